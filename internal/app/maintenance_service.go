package app

import (
	"context"
	"database/sql"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/dokzlo13/lightboard/internal/config"
	"github.com/dokzlo13/lightboard/internal/kv"
	"github.com/dokzlo13/lightboard/internal/ledger"
)

// MaintenanceService periodically trims the command history and expired kv entries.
type MaintenanceService struct {
	cfg    *config.Config
	db     *sql.DB
	ledger *ledger.Ledger
}

// NewMaintenanceService creates a new MaintenanceService.
func NewMaintenanceService(cfg *config.Config, database *sql.DB, l *ledger.Ledger) *MaintenanceService {
	return &MaintenanceService{cfg: cfg, db: database, ledger: l}
}

// Run cleans up once at startup and then on every interval tick.
func (s *MaintenanceService) Run(ctx context.Context) {
	s.cleanup()

	ticker := time.NewTicker(s.cfg.Ledger.CleanupInterval.Duration())
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.cleanup()
		}
	}
}

func (s *MaintenanceService) cleanup() {
	retention := s.cfg.Ledger.Retention()
	if retention > 0 {
		deleted, err := s.ledger.DeleteOlderThan(retention)
		if err != nil {
			log.Error().Err(err).Msg("Failed to cleanup old ledger entries")
		} else if deleted > 0 {
			log.Info().Int64("deleted", deleted).Dur("retention", retention).Msg("Cleaned up old ledger entries")
		}
	}

	expired, err := kv.CleanupExpired(s.db)
	if err != nil {
		log.Error().Err(err).Msg("Failed to cleanup expired kv entries")
	} else if expired > 0 {
		log.Debug().Int64("deleted", expired).Msg("Cleaned up expired kv entries")
	}
}
