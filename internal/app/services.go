package app

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/dokzlo13/lightboard/internal/board"
	"github.com/dokzlo13/lightboard/internal/config"
	"github.com/dokzlo13/lightboard/internal/db"
	"github.com/dokzlo13/lightboard/internal/eventbus"
	"github.com/dokzlo13/lightboard/internal/ledger"
	"github.com/dokzlo13/lightboard/internal/preset"
	"github.com/dokzlo13/lightboard/internal/storage"
)

// Services is a container for all application services.
// It manages service initialization order and dependencies.
type Services struct {
	cfg *config.Config

	// Core infrastructure
	DB      *db.DB
	Ledger  *ledger.Ledger
	Presets *preset.Store
	Bus     *eventbus.Bus

	// High-level services
	Hue         *HueService
	Board       *board.Board
	Names       *NamesService
	Lua         *LuaService
	Server      *ServerService
	Maintenance *MaintenanceService

	wg sync.WaitGroup
}

// NewServices creates all services with proper dependency injection.
func NewServices(cfg *config.Config) (*Services, error) {
	s := &Services{cfg: cfg}

	// Initialize database
	database, err := db.Open(cfg.Database.Path)
	if err != nil {
		return nil, err
	}
	s.DB = database

	s.Ledger = ledger.New(database.DB)

	// Preset library, write-through to resource_state
	s.Presets = preset.NewStore(preset.NewRecords(storage.NewStore(database.DB)))
	loaded, err := s.Presets.Load()
	if err != nil {
		s.Close()
		return nil, err
	}
	log.Info().Int("presets", loaded).Msg("Loaded preset library")

	s.Bus = eventbus.NewWithConfig(cfg.EventBus.GetWorkers(), cfg.EventBus.GetQueueSize())

	s.Hue = NewHueService(cfg)
	s.Board = board.New(s.Hue.Controller, s.Presets, s.Bus, s.Ledger)
	s.Names = NewNamesService(cfg, database.DB, s.Board)

	s.Lua, err = NewLuaService(cfg, s.Board, s.Bus)
	if err != nil {
		s.Close()
		return nil, err
	}

	s.Server = NewServerService(cfg, s.Board, s.Ledger, s.Bus)
	s.Maintenance = NewMaintenanceService(cfg, database.DB, s.Ledger)

	return s, nil
}

// Start starts all services in the correct order.
// The onFatalError callback is called when a service cannot keep running (e.g. the API cannot listen).
func (s *Services) Start(ctx context.Context, onFatalError func(error)) error {
	// Bridge failures are not fatal; commands report unreachable until it comes back
	s.Hue.Start(ctx)

	s.goBackground(func() { s.Names.Run(ctx) })

	// Load Lua script before starting worker
	if err := s.Lua.LoadScript(); err != nil {
		return err
	}
	s.goBackground(func() { s.Lua.Run(ctx) })

	s.goBackground(func() { s.Server.Run(ctx, onFatalError) })
	s.goBackground(func() { s.Maintenance.Run(ctx) })

	return nil
}

func (s *Services) goBackground(fn func()) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		fn()
	}()
}

// ClearPresets clears the stored preset library.
func (s *Services) ClearPresets() error {
	if err := s.Presets.Clear(); err != nil {
		return err
	}
	log.Warn().Msg("Preset library cleared")
	return nil
}

// Stop waits for background services to finish and releases all resources.
// The context passed to Start must already be cancelled.
func (s *Services) Stop() error {
	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(s.cfg.ShutdownTimeout.Duration()):
		// The Lua worker may still hold the VM; leave it to process exit.
		return errors.New("timed out waiting for services to stop")
	}

	s.Close()
	return nil
}

// Close releases all resources.
func (s *Services) Close() {
	if s.Lua != nil {
		s.Lua.Close()
	}
	if s.Bus != nil {
		ctx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout.Duration())
		defer cancel()
		s.Bus.Close(ctx)
	}
	if s.DB != nil {
		s.DB.Close()
	}
}
