// Package api exposes the board over HTTP.
package api

import (
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog/log"

	"github.com/dokzlo13/lightboard/internal/board"
	"github.com/dokzlo13/lightboard/internal/eventbus"
	"github.com/dokzlo13/lightboard/internal/ledger"
)

// History reads recorded commands. *ledger.Ledger implements it.
type History interface {
	Recent(limit int) ([]*ledger.Entry, error)
}

// Events streams bus events. *eventbus.Bus implements it.
type Events interface {
	SubscribeAll(handler eventbus.Handler) eventbus.Subscription
	Unsubscribe(sub eventbus.Subscription)
}

// Server holds the HTTP handlers. history and events may be nil.
type Server struct {
	board   *board.Board
	history History
	events  Events
	router  chi.Router

	done      chan struct{}
	closeOnce sync.Once
}

// New builds the router.
func New(b *board.Board, history History, events Events) *Server {
	s := &Server{
		board:   b,
		history: history,
		events:  events,
		done:    make(chan struct{}),
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)

	r.Get("/health", s.health)
	r.Get("/ready", s.ready)

	r.Route("/api", func(r chi.Router) {
		r.Get("/lights", s.getLights)
		r.Post("/lights/on", s.allOn)
		r.Post("/lights/off", s.allOff)
		r.Post("/lights/reset", s.reset)
		r.Put("/lights/{slot}/color", s.setColor)
		r.Put("/lights/{slot}/brightness", s.setBrightness)
		r.Put("/lights/{slot}/power", s.setPower)

		r.Get("/presets", s.listPresets)
		r.Post("/presets", s.savePreset)
		r.Get("/presets/{name}", s.getPreset)
		r.Post("/presets/{name}/apply", s.applyPreset)
		r.Delete("/presets/{name}", s.deletePreset)

		r.Get("/names", s.getNames)
		r.Get("/history", s.getHistory)
		r.Get("/events", s.streamEvents)
	})

	s.router = r
	return s
}

// Handler returns the root HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Close disconnects open event streams. http.Server.Shutdown does not touch
// hijacked connections, so call this first.
func (s *Server) Close() {
	s.closeOnce.Do(func() {
		close(s.done)
	})
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

func (s *Server) ready(w http.ResponseWriter, r *http.Request) {
	if !s.board.Ready() {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "loading names"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

// requestLogger logs every request through zerolog.
func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()

		defer func() {
			log.Debug().
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Int("status", ww.Status()).
				Int("bytes", ww.BytesWritten()).
				Dur("duration", time.Since(start)).
				Str("request_id", middleware.GetReqID(r.Context())).
				Msg("HTTP request")
		}()

		next.ServeHTTP(ww, r)
	})
}
