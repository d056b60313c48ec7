package app

import (
	"context"

	"github.com/rs/zerolog/log"

	"github.com/dokzlo13/lightboard/internal/config"
	"github.com/dokzlo13/lightboard/internal/hue"
)

// HueService owns the two-light controller.
type HueService struct {
	cfg        *config.Config
	Controller *hue.Controller
}

// NewHueService creates the controller without touching the network.
func NewHueService(cfg *config.Config) *HueService {
	dial := hue.NewDialer(cfg.Hue.Bridge, cfg.Hue.Token)
	controller := hue.NewController(dial, cfg.Hue.Lights, cfg.Hue.Timeout.Duration(), cfg.Hue.RateLimitRPS)

	return &HueService{
		cfg:        cfg,
		Controller: controller,
	}
}

// Start connects to the bridge and switches the configured lights on.
// A failed connect is logged; the controller retries on the next command.
func (s *HueService) Start(ctx context.Context) {
	bridge := s.cfg.Hue.Bridge
	if bridge == "" {
		bridge = "discover"
	}

	if err := s.Controller.Connect(ctx); err != nil {
		log.Warn().Err(err).Str("bridge", bridge).Msg("Hue bridge not ready, commands will retry")
		return
	}

	bound := 0
	for _, l := range s.Controller.Lights() {
		if l.Bound {
			bound++
		}
	}
	log.Info().Str("bridge", bridge).Int("bound", bound).Msg("Hue lights ready")
}
