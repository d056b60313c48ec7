package app

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/dokzlo13/lightboard/internal/api"
	"github.com/dokzlo13/lightboard/internal/board"
	"github.com/dokzlo13/lightboard/internal/config"
	"github.com/dokzlo13/lightboard/internal/eventbus"
	"github.com/dokzlo13/lightboard/internal/ledger"
)

// ServerService runs the HTTP API.
type ServerService struct {
	cfg    *config.Config
	api    *api.Server
	server *http.Server
}

// NewServerService creates the API server without listening.
func NewServerService(cfg *config.Config, b *board.Board, history *ledger.Ledger, bus *eventbus.Bus) *ServerService {
	handler := api.New(b, history, bus)
	server := &http.Server{
		Addr:    cfg.Server.Addr(),
		Handler: handler.Handler(),
	}

	return &ServerService{cfg: cfg, api: handler, server: server}
}

// Run listens until ctx is cancelled. A listen failure is reported through onFatalError.
func (s *ServerService) Run(ctx context.Context, onFatalError func(error)) {
	ln, err := net.Listen("tcp", s.server.Addr)
	if err != nil {
		if onFatalError != nil {
			onFatalError(fmt.Errorf("api server: %w", err))
		}
		return
	}

	log.Info().Str("addr", s.server.Addr).Msg("Starting API server")

	stopped := make(chan struct{})
	go func() {
		defer close(stopped)
		<-ctx.Done()

		// Event streams are hijacked connections; Shutdown does not wait for them.
		s.api.Close()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout.Duration())
		defer cancel()
		if err := s.server.Shutdown(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("API server shutdown error")
		}
	}()

	if err := s.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Error().Err(err).Msg("API server error")
		if onFatalError != nil {
			onFatalError(err)
		}
	}
	<-stopped
}
