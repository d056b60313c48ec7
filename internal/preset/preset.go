// Package preset holds named light presets and the pool of generated preset names.
package preset

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/dokzlo13/lightboard/internal/color"
)

var (
	// ErrNotFound is returned when a preset name is not in the store.
	ErrNotFound = errors.New("preset not found")
	// ErrMalformedRecord is returned when a stored payload is not a valid preset.
	ErrMalformedRecord = errors.New("malformed preset record")
	// ErrInvalidBrightness is returned for brightness outside 0..100.
	ErrInvalidBrightness = errors.New("brightness must be between 0 and 100")
)

// Preset is a named snapshot of both lights.
// Colors are "#RRGGBB"/"RRGGBB" strings; an empty color means "leave unchanged" when applied.
type Preset struct {
	Name        string `json:"name"`
	Color1      string `json:"color1"`
	Brightness1 int    `json:"brightness1"`
	Color2      string `json:"color2"`
	Brightness2 int    `json:"brightness2"`
}

// Validate checks the light settings. The name is not checked; it is resolved on save.
func (p Preset) Validate() error {
	if err := validateColor(p.Color1); err != nil {
		return fmt.Errorf("color1: %w", err)
	}
	if err := validateColor(p.Color2); err != nil {
		return fmt.Errorf("color2: %w", err)
	}
	if err := ValidateBrightness(p.Brightness1); err != nil {
		return fmt.Errorf("brightness1: %w", err)
	}
	if err := ValidateBrightness(p.Brightness2); err != nil {
		return fmt.Errorf("brightness2: %w", err)
	}
	return nil
}

// ValidateBrightness checks a percentage.
func ValidateBrightness(pct int) error {
	if pct < 0 || pct > 100 {
		return fmt.Errorf("%w: %d", ErrInvalidBrightness, pct)
	}
	return nil
}

func validateColor(c string) error {
	if c == "" {
		return nil
	}
	_, err := color.ParseHex(c)
	return err
}

// Decode parses a stored payload. All four light fields must be present with the
// right JSON types; the name is always taken from the storage key.
// Any problem is reported as ErrMalformedRecord.
func Decode(key string, payload []byte) (Preset, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(payload, &raw); err != nil {
		return Preset{}, fmt.Errorf("%w: %q: %v", ErrMalformedRecord, key, err)
	}

	var p Preset
	fields := []struct {
		name string
		dst  any
	}{
		{"color1", &p.Color1},
		{"brightness1", &p.Brightness1},
		{"color2", &p.Color2},
		{"brightness2", &p.Brightness2},
	}
	for _, f := range fields {
		value, ok := raw[f.name]
		if !ok {
			return Preset{}, fmt.Errorf("%w: %q: missing field %s", ErrMalformedRecord, key, f.name)
		}
		if err := json.Unmarshal(value, f.dst); err != nil {
			return Preset{}, fmt.Errorf("%w: %q: field %s: %v", ErrMalformedRecord, key, f.name, err)
		}
	}

	if value, ok := raw["name"]; ok {
		if err := json.Unmarshal(value, &p.Name); err != nil {
			return Preset{}, fmt.Errorf("%w: %q: field name: %v", ErrMalformedRecord, key, err)
		}
	}
	// The storage key is the identity.
	p.Name = key

	if err := p.Validate(); err != nil {
		return Preset{}, fmt.Errorf("%w: %q: %v", ErrMalformedRecord, key, err)
	}

	return p, nil
}
