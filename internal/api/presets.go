package api

import (
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/dokzlo13/lightboard/internal/preset"
)

type saveRequest struct {
	Name string `json:"name"`
}

// nameParam returns the preset name from the path, decoded exactly once.
// chi routes on RawPath when it is set, so only then is the param still escaped.
func nameParam(r *http.Request) string {
	param := chi.URLParam(r, "name")
	if r.URL.RawPath == "" {
		return param
	}
	if name, err := url.PathUnescape(param); err == nil {
		return name
	}
	return param
}

func (s *Server) listPresets(w http.ResponseWriter, r *http.Request) {
	presets := s.board.Presets()
	if presets == nil {
		presets = []preset.Preset{}
	}
	writeJSON(w, http.StatusOK, presets)
}

func (s *Server) getPreset(w http.ResponseWriter, r *http.Request) {
	p, err := s.board.Preset(nameParam(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (s *Server) savePreset(w http.ResponseWriter, r *http.Request) {
	var req saveRequest
	if err := decodeBody(r, &req, true); err != nil {
		writeError(w, r, err)
		return
	}

	p, err := s.board.SavePreset(commandContext(r), req.Name)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, p)
}

func (s *Server) applyPreset(w http.ResponseWriter, r *http.Request) {
	p, err := s.board.ApplyPreset(commandContext(r), nameParam(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (s *Server) deletePreset(w http.ResponseWriter, r *http.Request) {
	name := nameParam(r)
	removed, err := s.board.DeletePreset(commandContext(r), name)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if !removed {
		writeError(w, r, fmt.Errorf("%w: %q", preset.ErrNotFound, name))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) getNames(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.board.Names())
}

func (s *Server) getHistory(w http.ResponseWriter, r *http.Request) {
	if s.history == nil {
		writeJSON(w, http.StatusOK, []any{})
		return
	}

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			writeError(w, r, fmt.Errorf("%w: invalid limit %q", errBadRequest, raw))
			return
		}
		limit = n
	}

	entries, err := s.history.Recent(limit)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if entries == nil {
		writeJSON(w, http.StatusOK, []any{})
		return
	}
	writeJSON(w, http.StatusOK, entries)
}
