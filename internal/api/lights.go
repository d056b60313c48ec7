package api

import (
	"context"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/dokzlo13/lightboard/internal/board"
	"github.com/dokzlo13/lightboard/internal/hue"
)

type colorRequest struct {
	Color *string `json:"color"`
}

type brightnessRequest struct {
	Brightness *int `json:"brightness"`
}

type powerRequest struct {
	On *bool `json:"on"`
}

func commandContext(r *http.Request) context.Context {
	return board.WithSource(r.Context(), board.SourceAPI)
}

func slotParam(r *http.Request) (int, error) {
	raw := chi.URLParam(r, "slot")
	slot, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%w: slot %q", hue.ErrUnknownLight, raw)
	}
	return slot, nil
}

func (s *Server) getLights(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.board.State())
}

func (s *Server) setColor(w http.ResponseWriter, r *http.Request) {
	slot, err := slotParam(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req colorRequest
	if err := decodeBody(r, &req, false); err != nil {
		writeError(w, r, err)
		return
	}
	if req.Color == nil {
		writeError(w, r, fmt.Errorf("%w: color is required", errBadRequest))
		return
	}

	if err := s.board.SetColor(commandContext(r), slot, *req.Color); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, s.board.State())
}

func (s *Server) setBrightness(w http.ResponseWriter, r *http.Request) {
	slot, err := slotParam(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req brightnessRequest
	if err := decodeBody(r, &req, false); err != nil {
		writeError(w, r, err)
		return
	}
	if req.Brightness == nil {
		writeError(w, r, fmt.Errorf("%w: brightness is required", errBadRequest))
		return
	}

	if err := s.board.SetBrightness(commandContext(r), slot, *req.Brightness); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, s.board.State())
}

func (s *Server) setPower(w http.ResponseWriter, r *http.Request) {
	slot, err := slotParam(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req powerRequest
	if err := decodeBody(r, &req, false); err != nil {
		writeError(w, r, err)
		return
	}
	if req.On == nil {
		writeError(w, r, fmt.Errorf("%w: on is required", errBadRequest))
		return
	}

	if err := s.board.SetPower(commandContext(r), slot, *req.On); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, s.board.State())
}

func (s *Server) allOn(w http.ResponseWriter, r *http.Request) {
	s.runAll(w, r, s.board.AllOn)
}

func (s *Server) allOff(w http.ResponseWriter, r *http.Request) {
	s.runAll(w, r, s.board.AllOff)
}

func (s *Server) reset(w http.ResponseWriter, r *http.Request) {
	s.runAll(w, r, s.board.Reset)
}

func (s *Server) runAll(w http.ResponseWriter, r *http.Request, cmd func(context.Context) error) {
	if err := cmd(commandContext(r)); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, s.board.State())
}
