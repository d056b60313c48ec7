// Package hue drives the configured lights through a Hue bridge.
package hue

import (
	"context"
	"errors"
	"fmt"
	"net"

	"github.com/amimof/huego"
	"github.com/rs/zerolog/log"
)

var (
	// ErrUnreachable is returned when the bridge cannot be contacted.
	ErrUnreachable = errors.New("bridge unreachable")
	// ErrUnknownLight is returned for a slot number that is not configured.
	ErrUnknownLight = errors.New("unknown light")
)

// Bridge is the subset of the bridge API the controller needs.
// *huego.Bridge satisfies it.
type Bridge interface {
	GetLightsContext(ctx context.Context) ([]huego.Light, error)
	SetLightStateContext(ctx context.Context, id int, state huego.State) (*huego.Response, error)
}

var _ Bridge = (*huego.Bridge)(nil)

// Dialer returns a ready bridge handle.
type Dialer func(ctx context.Context) (Bridge, error)

// NewDialer returns a Dialer for the bridge at host, authenticated with token.
// An empty host is resolved through bridge discovery on every dial.
func NewDialer(host, token string) Dialer {
	return func(ctx context.Context) (Bridge, error) {
		addr := host
		if addr == "" {
			found, err := huego.DiscoverContext(ctx)
			if err != nil {
				return nil, fmt.Errorf("%w: discovery failed: %v", ErrUnreachable, err)
			}
			addr = found.Host
			log.Info().Str("bridge", addr).Msg("Discovered Hue bridge")
		}
		return huego.New(addr, token), nil
	}
}

// StaticDialer always returns b.
func StaticDialer(b Bridge) Dialer {
	return func(context.Context) (Bridge, error) {
		return b, nil
	}
}

// wrapBridgeError marks transport failures as ErrUnreachable.
func wrapBridgeError(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrUnreachable) {
		return fmt.Errorf("%s: %w", op, err)
	}
	var netErr net.Error
	if errors.As(err, &netErr) || errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%s: %w: %v", op, ErrUnreachable, err)
	}
	return fmt.Errorf("%s: %w", op, err)
}
