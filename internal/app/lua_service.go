package app

import (
	"context"

	"github.com/rs/zerolog/log"

	"github.com/dokzlo13/lightboard/internal/board"
	"github.com/dokzlo13/lightboard/internal/config"
	"github.com/dokzlo13/lightboard/internal/eventbus"
	luart "github.com/dokzlo13/lightboard/internal/lua"
)

// LuaService wraps the Lua runtime and provides thread-safe execution.
type LuaService struct {
	cfg     *config.Config
	Runtime *luart.Runtime
}

// NewLuaService creates a new LuaService.
func NewLuaService(cfg *config.Config, b *board.Board, bus *eventbus.Bus) (*LuaService, error) {
	return &LuaService{
		cfg:     cfg,
		Runtime: luart.NewRuntime(b, bus),
	}, nil
}

// LoadScript loads and executes the configured script, if any.
// Must be called before Run().
func (s *LuaService) LoadScript() error {
	if s.cfg.Script == "" {
		log.Debug().Msg("No Lua script configured")
		return nil
	}
	return s.Runtime.LoadScript(s.cfg.Script)
}

// Run is the Lua worker loop - the ONLY goroutine that touches Lua after loading.
func (s *LuaService) Run(ctx context.Context) {
	s.Runtime.Run(ctx)
}

// Do queues work to be executed on the Lua VM.
func (s *LuaService) Do(ctx context.Context, work luart.LuaWork) bool {
	return s.Runtime.Do(ctx, work)
}

// Close closes the Lua runtime.
func (s *LuaService) Close() {
	if s.Runtime != nil {
		s.Runtime.Close()
	}
}
