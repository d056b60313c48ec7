package app

import (
	"context"
	"database/sql"
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/dokzlo13/lightboard/internal/board"
	"github.com/dokzlo13/lightboard/internal/config"
	"github.com/dokzlo13/lightboard/internal/kv"
	"github.com/dokzlo13/lightboard/internal/names"
)

const namesBucket = "names"

// NamesService fills the preset name pool once at startup.
type NamesService struct {
	cfg    *config.Config
	board  *board.Board
	source names.Source
}

// NewNamesService builds the name source. With names disabled the source is nil
// and the pool starts empty.
func NewNamesService(cfg *config.Config, database *sql.DB, b *board.Board) *NamesService {
	s := &NamesService{cfg: cfg, board: b}
	if !cfg.Names.IsEnabled() {
		return s
	}

	client := &http.Client{Timeout: cfg.Names.Timeout.Duration()}
	var src names.Source = names.NewHTTPSource(cfg.Names.BaseURL, cfg.Names.Endpoints, client)
	if ttl := cfg.Names.CacheTTL.Duration(); ttl > 0 {
		src = names.NewCachedSource(src, kv.NewSQLiteBucket(database, namesBucket), ttl)
	}
	s.source = src

	return s
}

// Run performs the bounded fetch and marks the board ready. Failures leave the pool empty.
func (s *NamesService) Run(ctx context.Context) {
	if s.source == nil {
		log.Info().Msg("Name source disabled, presets will use random names")
	}

	list := names.Load(ctx, s.source, s.cfg.Names.Timeout.Duration())
	if ctx.Err() != nil {
		return
	}

	added := s.board.LoadNames(board.WithSource(ctx, board.SourceStartup), list)
	log.Info().Int("names", added).Msg("Preset name pool ready")
}
