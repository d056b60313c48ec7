// Package color converts user-facing colors into the Hue bridge's native color model.
package color

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/lucasb-eyer/go-colorful"
)

// ErrInvalidColorFormat is returned for strings that are not 6-digit hex colors.
var ErrInvalidColorFormat = errors.New("invalid color format")

// MaxBrightness is the top of the bridge's native brightness range.
const MaxBrightness = 254

// XY is a CIE 1931 chromaticity coordinate as understood by the bridge.
type XY struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Float32 returns the coordinate in the []float32 form used by huego.
func (p XY) Float32() []float32 {
	return []float32{float32(p.X), float32(p.Y)}
}

// ParseHex decodes "#RRGGBB" or "RRGGBB" into normalized sRGB channels.
func ParseHex(s string) (colorful.Color, error) {
	digits := strings.TrimPrefix(s, "#")
	if len(digits) != 6 {
		return colorful.Color{}, fmt.Errorf("%w: %q", ErrInvalidColorFormat, s)
	}
	for _, r := range digits {
		if !isHexDigit(r) {
			return colorful.Color{}, fmt.Errorf("%w: %q", ErrInvalidColorFormat, s)
		}
	}

	c, err := colorful.Hex("#" + digits)
	if err != nil {
		return colorful.Color{}, fmt.Errorf("%w: %q: %v", ErrInvalidColorFormat, s, err)
	}
	return c, nil
}

// HexToXY converts a hex color to bridge chromaticity coordinates.
// The empty string is not a color; callers that treat it as "no change" must check before calling.
func HexToXY(s string) (XY, error) {
	c, err := ParseHex(s)
	if err != nil {
		return XY{}, err
	}
	return RGBToXY(c), nil
}

// RGBToXY converts normalized sRGB to xy using the wide-gamut D65 matrix.
// Pure black has no chromaticity and maps to (0, 0).
func RGBToXY(c colorful.Color) XY {
	// sRGB inverse transfer: c/12.92 below 0.04045, ((c+0.055)/1.055)^2.4 above
	r, g, b := c.LinearRgb()

	x := r*0.649926 + g*0.103455 + b*0.197109
	y := r*0.234327 + g*0.743075 + b*0.022598
	z := g*0.053077 + b*1.035763

	sum := x + y + z
	if sum == 0 || math.IsNaN(sum) {
		return XY{}
	}
	return XY{X: x / sum, Y: y / sum}
}

// ScaleBrightness maps a 0-100 percentage onto the bridge's 0-254 range.
// The fractional part is truncated, so 50% becomes 127. Out of range input is clamped.
func ScaleBrightness(pct int) uint8 {
	if pct <= 0 {
		return 0
	}
	if pct >= 100 {
		return MaxBrightness
	}
	return uint8(float64(pct) / 100 * MaxBrightness)
}

func isHexDigit(r rune) bool {
	return (r >= '0' && r <= '9') || (r >= 'a' && r <= 'f') || (r >= 'A' && r <= 'F')
}
