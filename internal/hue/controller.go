package hue

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/amimof/huego"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"

	"github.com/dokzlo13/lightboard/internal/color"
)

// Default warm white used by Reset, in bridge units.
const (
	ResetHue uint16 = 6929
	ResetSat uint8  = 129
	ResetBri uint8  = color.MaxBrightness
)

// LightState is a snapshot of one configured light.
type LightState struct {
	Slot  int       `json:"slot"`
	Name  string    `json:"name"`
	ID    int       `json:"id,omitempty"`
	Bound bool      `json:"bound"`
	On    bool      `json:"on"`
	Bri   uint8     `json:"bri"`
	XY    []float32 `json:"xy,omitempty"`
	Hue   uint16    `json:"hue,omitempty"`
	Sat   uint8     `json:"sat,omitempty"`
}

// slot tracks the last state written to a light. Color and brightness are kept
// while the light is off and sent with the next power-on.
type slot struct {
	name  string
	id    int
	bound bool

	on  bool
	bri uint8
	xy  []float32
	hue uint16
	sat uint8
}

func (s *slot) snapshot(n int) LightState {
	st := LightState{
		Slot:  n,
		Name:  s.name,
		ID:    s.id,
		Bound: s.bound,
		On:    s.on,
		Bri:   s.bri,
		Hue:   s.hue,
		Sat:   s.sat,
	}
	if s.xy != nil {
		st.XY = append([]float32(nil), s.xy...)
	}
	return st
}

// fullState is the state sent on power-on.
func (s *slot) fullState() huego.State {
	st := huego.State{On: true, Bri: max(s.bri, 1)}
	if s.xy != nil {
		st.Xy = s.xy
	} else if s.hue != 0 || s.sat != 0 {
		st.Hue = s.hue
		st.Sat = s.sat
	}
	return st
}

// Controller drives a fixed set of lights identified by name.
// Slots are numbered from 1 in configuration order. Slots whose light is not
// present on the bridge are accepted and ignored.
type Controller struct {
	mu      sync.Mutex
	dial    Dialer
	bridge  Bridge
	slots   []*slot
	limiter *rate.Limiter
	timeout time.Duration
}

// NewController creates a controller for the named lights. Nothing is sent
// to the bridge until Connect or the first command.
func NewController(dial Dialer, lightNames []string, timeout time.Duration, rateLimitRPS float64) *Controller {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	if rateLimitRPS <= 0 {
		rateLimitRPS = 10.0
	}

	slots := make([]*slot, len(lightNames))
	for i, name := range lightNames {
		slots[i] = &slot{name: name, on: true, bri: color.MaxBrightness}
	}

	return &Controller{
		dial:    dial,
		slots:   slots,
		limiter: rate.NewLimiter(rate.Limit(rateLimitRPS), max(int(rateLimitRPS), 1)),
		timeout: timeout,
	}
}

// Connect dials the bridge, binds slots to lights by name and switches the bound lights on.
func (c *Controller) Connect(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.connectLocked(ctx)
}

func (c *Controller) connectLocked(ctx context.Context) error {
	bridge, err := c.dial(ctx)
	if err != nil {
		return wrapBridgeError("connect", err)
	}

	callCtx, cancel := c.callContext(ctx)
	defer cancel()
	if err := c.limiter.Wait(callCtx); err != nil {
		return wrapBridgeError("connect", err)
	}
	lights, err := bridge.GetLightsContext(callCtx)
	if err != nil {
		return wrapBridgeError("list lights", err)
	}

	byName := make(map[string]huego.Light, len(lights))
	for _, l := range lights {
		byName[l.Name] = l
	}

	for i, s := range c.slots {
		l, ok := byName[s.name]
		if !ok {
			s.bound = false
			log.Warn().Int("slot", i+1).Str("light", s.name).Msg("Light not found on bridge, slot ignored")
			continue
		}
		s.id = l.ID
		s.bound = true
		if l.State != nil {
			s.bri = l.State.Bri
			if len(l.State.Xy) == 2 {
				s.xy = append([]float32(nil), l.State.Xy...)
			}
		}
		log.Debug().Int("slot", i+1).Str("light", s.name).Int("id", l.ID).Msg("Light bound")
	}

	c.bridge = bridge

	var errs []error
	for i, s := range c.slots {
		if !s.bound {
			continue
		}
		if err := c.sendLocked(ctx, s, huego.State{On: true}); err != nil {
			errs = append(errs, fmt.Errorf("slot %d: %w", i+1, err))
			continue
		}
		s.on = true
	}

	log.Info().Int("lights", len(lights)).Msg("Connected to Hue bridge")
	return errors.Join(errs...)
}

// Lights returns a snapshot of every slot.
func (c *Controller) Lights() []LightState {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([]LightState, len(c.slots))
	for i, s := range c.slots {
		out[i] = s.snapshot(i + 1)
	}
	return out
}

// Slots returns the number of configured lights.
func (c *Controller) Slots() int {
	return len(c.slots)
}

// SetPower switches a light on or off. Power-on restores the remembered color and brightness.
func (c *Controller) SetPower(ctx context.Context, n int, on bool) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	s, err := c.slotLocked(ctx, n)
	if err != nil || s == nil {
		return err
	}

	state := huego.State{On: false}
	if on {
		state = s.fullState()
	}
	if err := c.sendLocked(ctx, s, state); err != nil {
		return err
	}
	s.on = on
	return nil
}

// SetColor sets a light to a hex color. An empty color is a no-op.
func (c *Controller) SetColor(ctx context.Context, n int, hex string) error {
	if hex == "" {
		if _, err := c.checkSlot(n); err != nil {
			return err
		}
		return nil
	}
	xy, err := color.HexToXY(hex)
	if err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	s, err := c.slotLocked(ctx, n)
	if err != nil || s == nil {
		return err
	}

	coords := xy.Float32()
	if s.on {
		if err := c.sendLocked(ctx, s, huego.State{On: true, Xy: coords}); err != nil {
			return err
		}
	}
	s.xy = coords
	s.hue, s.sat = 0, 0
	return nil
}

// SetBrightness sets a light's brightness from a 0-100 percentage.
func (c *Controller) SetBrightness(ctx context.Context, n int, pct int) error {
	bri := color.ScaleBrightness(pct)

	c.mu.Lock()
	defer c.mu.Unlock()

	s, err := c.slotLocked(ctx, n)
	if err != nil || s == nil {
		return err
	}

	if s.on {
		// Bridge brightness starts at 1.
		if err := c.sendLocked(ctx, s, huego.State{On: true, Bri: max(bri, 1)}); err != nil {
			return err
		}
	}
	s.bri = bri
	return nil
}

// Reset sets every bound light to the default warm white.
// All slots are attempted; failures are joined.
func (c *Controller) Reset(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.ensureLocked(ctx); err != nil {
		return err
	}

	var errs []error
	for i, s := range c.slots {
		if !s.bound {
			continue
		}
		if s.on {
			state := huego.State{On: true, Hue: ResetHue, Sat: ResetSat, Bri: ResetBri}
			if err := c.sendLocked(ctx, s, state); err != nil {
				errs = append(errs, fmt.Errorf("slot %d: %w", i+1, err))
				continue
			}
		}
		s.xy = nil
		s.hue, s.sat, s.bri = ResetHue, ResetSat, ResetBri
	}
	return errors.Join(errs...)
}

func (c *Controller) checkSlot(n int) (*slot, error) {
	if n < 1 || n > len(c.slots) {
		return nil, fmt.Errorf("%w: slot %d", ErrUnknownLight, n)
	}
	return c.slots[n-1], nil
}

// slotLocked resolves a slot and makes sure the bridge is connected.
// It returns a nil slot without error when the light is not on the bridge.
func (c *Controller) slotLocked(ctx context.Context, n int) (*slot, error) {
	s, err := c.checkSlot(n)
	if err != nil {
		return nil, err
	}
	if err := c.ensureLocked(ctx); err != nil {
		return nil, err
	}
	if !s.bound {
		log.Debug().Int("slot", n).Str("light", s.name).Msg("Light not bound, command ignored")
		return nil, nil
	}
	return s, nil
}

func (c *Controller) ensureLocked(ctx context.Context) error {
	if c.bridge != nil {
		return nil
	}
	log.Info().Msg("Bridge not connected, retrying")
	return c.connectLocked(ctx)
}

func (c *Controller) sendLocked(ctx context.Context, s *slot, state huego.State) error {
	callCtx, cancel := c.callContext(ctx)
	defer cancel()

	if err := c.limiter.Wait(callCtx); err != nil {
		return wrapBridgeError("rate limit", err)
	}

	log.Debug().
		Str("light", s.name).
		Int("id", s.id).
		Interface("state", state).
		Msg("Applying state to light")

	if _, err := c.bridge.SetLightStateContext(callCtx, s.id, state); err != nil {
		return wrapBridgeError(fmt.Sprintf("set state of %q", s.name), err)
	}
	return nil
}

func (c *Controller) callContext(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, c.timeout)
}
