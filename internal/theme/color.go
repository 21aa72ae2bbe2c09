// Parses the CSS color notations accepted in theme palettes.

package theme

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/lucasb-eyer/go-colorful"
)

var errEmptyColor = errors.New("empty color")

// ParseColor parses a palette color.
//
// Accepted forms: #rgb, #rrggbb, rgb(r, g, b), hsl(h, s%, l%) and the bare
// "h s% l%" triplet used by the generated CSS custom properties.
func ParseColor(s string) (colorful.Color, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return colorful.Color{}, errEmptyColor
	}
	lower := strings.ToLower(s)
	switch {
	case strings.HasPrefix(lower, "#"):
		return parseHex(lower)
	case strings.HasPrefix(lower, "rgb(") && strings.HasSuffix(lower, ")"):
		return parseRGB(lower[len("rgb(") : len(lower)-1])
	case strings.HasPrefix(lower, "hsl(") && strings.HasSuffix(lower, ")"):
		return parseHSL(lower[len("hsl(") : len(lower)-1])
	default:
		return parseHSL(lower)
	}
}

func parseHex(s string) (colorful.Color, error) {
	switch len(s) {
	case 4:
		s = "#" + strings.Repeat(s[1:2], 2) + strings.Repeat(s[2:3], 2) + strings.Repeat(s[3:4], 2)
	case 7:
	default:
		return colorful.Color{}, fmt.Errorf("invalid hex color %q", s)
	}
	c, err := colorful.Hex(s)
	if err != nil {
		return colorful.Color{}, fmt.Errorf("invalid hex color %q: %w", s, err)
	}
	return c, nil
}

// splitArgs splits "a, b, c" or "a b c" into exactly three fields.
func splitArgs(s string) ([]string, error) {
	fields := strings.FieldsFunc(s, func(r rune) bool { return r == ',' || r == ' ' || r == '\t' })
	if len(fields) != 3 {
		return nil, fmt.Errorf("expected 3 components, got %d in %q", len(fields), s)
	}
	return fields, nil
}

func parseRGB(s string) (colorful.Color, error) {
	fields, err := splitArgs(s)
	if err != nil {
		return colorful.Color{}, err
	}
	var v [3]float64
	for i, f := range fields {
		n, err := parseFinite(f)
		if err != nil || n < 0 || n > 255 {
			return colorful.Color{}, fmt.Errorf("invalid rgb component %q", f)
		}
		v[i] = n / 255
	}
	return colorful.Color{R: v[0], G: v[1], B: v[2]}, nil
}

func parseHSL(s string) (colorful.Color, error) {
	fields, err := splitArgs(s)
	if err != nil {
		return colorful.Color{}, err
	}
	h, err := parseFinite(strings.TrimSuffix(fields[0], "deg"))
	if err != nil || h < 0 || h > 360 {
		return colorful.Color{}, fmt.Errorf("invalid hue %q", fields[0])
	}
	sat, err := parsePercent(fields[1])
	if err != nil {
		return colorful.Color{}, err
	}
	light, err := parsePercent(fields[2])
	if err != nil {
		return colorful.Color{}, err
	}
	return colorful.Hsl(math.Mod(h, 360), sat, light), nil
}

func parsePercent(s string) (float64, error) {
	if !strings.HasSuffix(s, "%") {
		return 0, fmt.Errorf("expected percentage, got %q", s)
	}
	n, err := parseFinite(strings.TrimSuffix(s, "%"))
	if err != nil || n < 0 || n > 100 {
		return 0, fmt.Errorf("invalid percentage %q", s)
	}
	return n / 100, nil
}

// parseFinite parses a decimal number, rejecting NaN and infinities.
func parseFinite(s string) (float64, error) {
	n, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(n) || math.IsInf(n, 0) {
		return 0, fmt.Errorf("%q is not a finite number", s)
	}
	return n, nil
}

// HSLTriplet formats c as "h s% l%", each component rounded to one decimal.
func HSLTriplet(c colorful.Color) string {
	h, s, l := c.Clamped().Hsl()
	if math.IsNaN(h) {
		h = 0
	}
	return formatNumber(math.Mod(h, 360)) + " " + formatNumber(s*100) + "% " + formatNumber(l*100) + "%"
}

// NormalizeColor parses s and returns its HSL triplet.
func NormalizeColor(s string) (string, error) {
	c, err := ParseColor(s)
	if err != nil {
		return "", err
	}
	return HSLTriplet(c), nil
}

// formatNumber rounds to one decimal and drops a trailing ".0".
func formatNumber(v float64) string {
	r := math.Round(v*10) / 10
	if r == 0 {
		r = 0 // Normalize -0.
	}
	return strconv.FormatFloat(r, 'f', -1, 64)
}
