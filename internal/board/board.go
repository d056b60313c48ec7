// Package board implements the user-facing light and preset commands.
package board

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/dokzlo13/lightboard/internal/color"
	"github.com/dokzlo13/lightboard/internal/eventbus"
	"github.com/dokzlo13/lightboard/internal/hue"
	"github.com/dokzlo13/lightboard/internal/preset"
)

// Slots is the number of lights a preset describes.
const Slots = 2

// DefaultBrightness is the slider position on startup and after a reset.
const DefaultBrightness = 100

// Lights drives the bridge. *hue.Controller implements it.
type Lights interface {
	Lights() []hue.LightState
	SetPower(ctx context.Context, slot int, on bool) error
	SetColor(ctx context.Context, slot int, hex string) error
	SetBrightness(ctx context.Context, slot int, pct int) error
	Reset(ctx context.Context) error
}

// Presets stores presets. *preset.Store implements it.
type Presets interface {
	Save(p preset.Preset) (preset.Preset, error)
	Delete(name string) (bool, error)
	Get(name string) (preset.Preset, bool)
	List() []preset.Preset
	Names() preset.PoolSnapshot
	InitNames(names []string) int
}

// Publisher receives command notifications. *eventbus.Bus implements it.
type Publisher interface {
	Publish(event eventbus.Event)
}

// History records commands. *ledger.Ledger implements it.
type History interface {
	Append(eventType, source string, payload map[string]any) error
}

// SlotState is what the control surface shows for one light.
type SlotState struct {
	Slot       int    `json:"slot"`
	Name       string `json:"name"`
	Bound      bool   `json:"bound"`
	On         bool   `json:"on"`
	Color      string `json:"color"`
	Brightness int    `json:"brightness"`
}

type slotState struct {
	on         bool
	color      string
	brightness int
}

// Board ties the lights, the preset store and the notification sinks together.
// Commands are serialized.
type Board struct {
	mu      sync.Mutex
	lights  Lights
	presets Presets
	bus     Publisher
	history History
	state   [Slots]slotState

	namesReady bool
}

// New creates a board. bus and history may be nil.
func New(lights Lights, presets Presets, bus Publisher, history History) *Board {
	b := &Board{
		lights:  lights,
		presets: presets,
		bus:     bus,
		history: history,
	}
	for i := range b.state {
		b.state[i] = slotState{on: true, brightness: DefaultBrightness}
	}
	return b
}

// State returns the control surface state of every slot.
func (b *Board) State() []SlotState {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.stateLocked()
}

func (b *Board) stateLocked() []SlotState {
	bridge := b.lights.Lights()
	out := make([]SlotState, Slots)
	for i, s := range b.state {
		out[i] = SlotState{Slot: i + 1, On: s.on, Color: s.color, Brightness: s.brightness}
		if i < len(bridge) {
			out[i].Name = bridge[i].Name
			out[i].Bound = bridge[i].Bound
		}
	}
	return out
}

// SetColor sets one light's color. An empty color does nothing.
func (b *Board) SetColor(ctx context.Context, slot int, hex string) error {
	if err := checkSlot(slot); err != nil {
		return err
	}
	if hex == "" {
		return nil
	}
	if _, err := color.ParseHex(hex); err != nil {
		return err
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if err := b.setColorLocked(ctx, slot, hex); err != nil {
		return err
	}
	b.record(ctx, eventbus.EventTypeLightChanged, map[string]any{"slot": slot, "color": hex})
	return nil
}

// SetBrightness sets one light's brightness in percent (0-100).
func (b *Board) SetBrightness(ctx context.Context, slot int, pct int) error {
	if err := checkSlot(slot); err != nil {
		return err
	}
	if err := preset.ValidateBrightness(pct); err != nil {
		return err
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if err := b.setBrightnessLocked(ctx, slot, pct); err != nil {
		return err
	}
	b.record(ctx, eventbus.EventTypeLightChanged, map[string]any{"slot": slot, "brightness": pct})
	return nil
}

// SetPower switches one light.
func (b *Board) SetPower(ctx context.Context, slot int, on bool) error {
	if err := checkSlot(slot); err != nil {
		return err
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if err := b.setPowerLocked(ctx, slot, on); err != nil {
		return err
	}
	b.record(ctx, eventbus.EventTypeLightChanged, map[string]any{"slot": slot, "on": on})
	return nil
}

// AllOn switches both lights on.
func (b *Board) AllOn(ctx context.Context) error {
	return b.setAll(ctx, true)
}

// AllOff switches both lights off.
func (b *Board) AllOff(ctx context.Context) error {
	return b.setAll(ctx, false)
}

func (b *Board) setAll(ctx context.Context, on bool) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	var errs []error
	for slot := 1; slot <= Slots; slot++ {
		if err := b.setPowerLocked(ctx, slot, on); err != nil {
			errs = append(errs, fmt.Errorf("slot %d: %w", slot, err))
			continue
		}
		b.record(ctx, eventbus.EventTypeLightChanged, map[string]any{"slot": slot, "on": on})
	}
	return errors.Join(errs...)
}

// Reset puts both lights back to the default warm white.
func (b *Board) Reset(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if err := b.lights.Reset(ctx); err != nil {
		return err
	}
	for i := range b.state {
		b.state[i].color = ""
		b.state[i].brightness = DefaultBrightness
	}
	b.record(ctx, eventbus.EventTypeLightsReset, nil)
	return nil
}

// SavePreset stores the current color and brightness of both lights.
// An empty nameHint gets a generated name.
func (b *Board) SavePreset(ctx context.Context, nameHint string) (preset.Preset, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	p, err := b.presets.Save(preset.Preset{
		Name:        nameHint,
		Color1:      b.state[0].color,
		Brightness1: b.state[0].brightness,
		Color2:      b.state[1].color,
		Brightness2: b.state[1].brightness,
	})
	if err != nil {
		return preset.Preset{}, err
	}
	b.record(ctx, eventbus.EventTypePresetSaved, presetData(p))
	return p, nil
}

// ApplyPreset sets both lights from a stored preset. Empty colors are left unchanged.
// Every step is attempted; failures are joined.
func (b *Board) ApplyPreset(ctx context.Context, name string) (preset.Preset, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	p, ok := b.presets.Get(name)
	if !ok {
		return preset.Preset{}, fmt.Errorf("%w: %q", preset.ErrNotFound, name)
	}

	steps := []struct {
		slot       int
		color      string
		brightness int
	}{
		{1, p.Color1, p.Brightness1},
		{2, p.Color2, p.Brightness2},
	}

	var errs []error
	for _, s := range steps {
		if s.color != "" {
			if err := b.setColorLocked(ctx, s.slot, s.color); err != nil {
				errs = append(errs, fmt.Errorf("slot %d color: %w", s.slot, err))
			}
		}
		if err := b.setBrightnessLocked(ctx, s.slot, s.brightness); err != nil {
			errs = append(errs, fmt.Errorf("slot %d brightness: %w", s.slot, err))
		}
	}
	if err := errors.Join(errs...); err != nil {
		return p, err
	}

	b.record(ctx, eventbus.EventTypePresetApplied, presetData(p))
	return p, nil
}

// DeletePreset removes a preset and reports whether it existed.
func (b *Board) DeletePreset(ctx context.Context, name string) (bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	removed, err := b.presets.Delete(name)
	if err != nil {
		return false, err
	}
	if removed {
		b.record(ctx, eventbus.EventTypePresetDeleted, map[string]any{"name": name})
	}
	return removed, nil
}

// Presets lists stored presets in insertion order.
func (b *Board) Presets() []preset.Preset {
	return b.presets.List()
}

// Preset returns one stored preset.
func (b *Board) Preset(name string) (preset.Preset, error) {
	p, ok := b.presets.Get(name)
	if !ok {
		return preset.Preset{}, fmt.Errorf("%w: %q", preset.ErrNotFound, name)
	}
	return p, nil
}

// Names returns the generated-name pool.
func (b *Board) Names() preset.PoolSnapshot {
	return b.presets.Names()
}

// LoadNames fills the name pool and marks the board ready.
// Saves made before this use the fallback token.
func (b *Board) LoadNames(ctx context.Context, names []string) int {
	added := b.presets.InitNames(names)

	b.mu.Lock()
	b.namesReady = true
	b.record(ctx, eventbus.EventTypeNamesLoaded, map[string]any{"added": added})
	b.mu.Unlock()

	return added
}

// Ready reports whether the name pool initialisation has finished.
func (b *Board) Ready() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.namesReady
}

func (b *Board) setColorLocked(ctx context.Context, slot int, hex string) error {
	if err := b.lights.SetColor(ctx, slot, hex); err != nil {
		return err
	}
	b.state[slot-1].color = hex
	return nil
}

func (b *Board) setBrightnessLocked(ctx context.Context, slot int, pct int) error {
	if err := b.lights.SetBrightness(ctx, slot, pct); err != nil {
		return err
	}
	b.state[slot-1].brightness = pct
	return nil
}

func (b *Board) setPowerLocked(ctx context.Context, slot int, on bool) error {
	if err := b.lights.SetPower(ctx, slot, on); err != nil {
		return err
	}
	b.state[slot-1].on = on
	return nil
}

// record publishes the event and appends it to the history. Failures are logged only.
func (b *Board) record(ctx context.Context, eventType eventbus.EventType, data map[string]any) {
	source := SourceFrom(ctx)

	if b.bus != nil {
		payload := make(map[string]any, len(data)+1)
		for k, v := range data {
			payload[k] = v
		}
		payload["source"] = source
		b.bus.Publish(eventbus.Event{Type: eventType, Data: payload})
	}

	if b.history != nil {
		if err := b.history.Append(string(eventType), source, data); err != nil {
			log.Warn().Err(err).Str("event_type", string(eventType)).Msg("Failed to record command")
		}
	}
}

func checkSlot(slot int) error {
	if slot < 1 || slot > Slots {
		return fmt.Errorf("%w: slot %d", hue.ErrUnknownLight, slot)
	}
	return nil
}

func presetData(p preset.Preset) map[string]any {
	return map[string]any{
		"name":        p.Name,
		"color1":      p.Color1,
		"brightness1": p.Brightness1,
		"color2":      p.Color2,
		"brightness2": p.Brightness2,
	}
}
