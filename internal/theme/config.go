// Package theme holds the visual theme data model of the marketing site: color
// tokens, typography, gradients, motion and widget configs, together with the
// validation layer guarding every JSON config read from or written to storage.
package theme

import (
	"maps"
	"slices"
)

// Config is the JSON document stored in a theme row.
type Config struct {
	Colors     Colors            `json:"colors" jsonschema:"description=Light and dark color palettes keyed by token name"`
	Typography Typography        `json:"typography" jsonschema:"description=Font stacks and type scale"`
	RadiusPx   *float64          `json:"radius_px,omitempty" jsonschema:"description=Base corner radius in pixels,minimum=0,maximum=64"`
	Gradients  []Gradient        `json:"gradients,omitempty" jsonschema:"description=Named linear gradients"`
	Motion     Motion            `json:"motion" jsonschema:"description=Animation durations and easing"`
	Widgets    map[string]Widget `json:"widgets,omitempty" jsonschema:"description=Per-widget configuration keyed by widget name"`
}

// Colors holds the two palettes. Values are CSS colors: #rgb, #rrggbb,
// rgb(r, g, b), hsl(h, s%, l%) or a bare "h s% l%" triplet.
type Colors struct {
	Light map[string]string `json:"light" jsonschema:"description=Palette used by default"`
	Dark  map[string]string `json:"dark" jsonschema:"description=Palette used under the .dark class"`
}

// Typography describes fonts and the modular type scale.
type Typography struct {
	FontSans      string  `json:"font_sans,omitempty" jsonschema:"description=Sans-serif font stack"`
	FontSerif     string  `json:"font_serif,omitempty" jsonschema:"description=Serif font stack"`
	FontMono      string  `json:"font_mono,omitempty" jsonschema:"description=Monospace font stack"`
	BaseSizePx    float64 `json:"base_size_px,omitempty" jsonschema:"description=Root font size in pixels,minimum=8,maximum=32"`
	ScaleRatio    float64 `json:"scale_ratio,omitempty" jsonschema:"description=Ratio between consecutive heading sizes,minimum=1,maximum=2"`
	LineHeight    float64 `json:"line_height,omitempty" jsonschema:"description=Body line height,minimum=1,maximum=3"`
	HeadingWeight int     `json:"heading_weight,omitempty" jsonschema:"description=Font weight of headings,minimum=100,maximum=900"`
	BodyWeight    int     `json:"body_weight,omitempty" jsonschema:"description=Font weight of body text,minimum=100,maximum=900"`
}

// Gradient is a named linear gradient.
type Gradient struct {
	Name     string         `json:"name" jsonschema:"description=Kebab-case gradient name"`
	AngleDeg float64        `json:"angle_deg" jsonschema:"description=Gradient angle in degrees,minimum=0,maximum=360"`
	Stops    []GradientStop `json:"stops" jsonschema:"description=At least two color stops with non-decreasing positions,minItems=2"`
}

// GradientStop is one color stop of a gradient.
type GradientStop struct {
	Color    string  `json:"color"`
	Position float64 `json:"position" jsonschema:"description=Stop position in percent,minimum=0,maximum=100"`
}

// Motion describes animation timing.
type Motion struct {
	DurationFastMs *int   `json:"duration_fast_ms,omitempty" jsonschema:"minimum=0,maximum=5000"`
	DurationBaseMs *int   `json:"duration_base_ms,omitempty" jsonschema:"minimum=0,maximum=5000"`
	DurationSlowMs *int   `json:"duration_slow_ms,omitempty" jsonschema:"minimum=0,maximum=5000"`
	Easing         string `json:"easing,omitempty" jsonschema:"description=CSS easing keyword or cubic-bezier()"`
	ReduceMotion   bool   `json:"reduce_motion,omitempty" jsonschema:"description=Disable animations for users preferring reduced motion"`
}

// Widget configures one widget of the marketing pages.
type Widget struct {
	Enabled bool           `json:"enabled"`
	Variant string         `json:"variant,omitempty"`
	Options map[string]any `json:"options,omitempty"`
}

// Clone returns a deep copy of the config.
func (c *Config) Clone() Config {
	out := *c
	out.Colors.Light = maps.Clone(c.Colors.Light)
	out.Colors.Dark = maps.Clone(c.Colors.Dark)
	out.RadiusPx = clonePtr(c.RadiusPx)
	out.Motion.DurationFastMs = clonePtr(c.Motion.DurationFastMs)
	out.Motion.DurationBaseMs = clonePtr(c.Motion.DurationBaseMs)
	out.Motion.DurationSlowMs = clonePtr(c.Motion.DurationSlowMs)
	if c.Gradients != nil {
		out.Gradients = make([]Gradient, len(c.Gradients))
		for i, g := range c.Gradients {
			g.Stops = slices.Clone(g.Stops)
			out.Gradients[i] = g
		}
	}
	if c.Widgets != nil {
		out.Widgets = make(map[string]Widget, len(c.Widgets))
		for k, w := range c.Widgets {
			w.Options = cloneOptions(w.Options)
			out.Widgets[k] = w
		}
	}
	return out
}

func clonePtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

func cloneOptions(in map[string]any) map[string]any {
	if in == nil {
		return nil
	}
	out := make(map[string]any, len(in))
	for k, v := range in {
		switch t := v.(type) {
		case map[string]any:
			out[k] = cloneOptions(t)
		case []any:
			out[k] = slices.Clone(t)
		default:
			out[k] = v
		}
	}
	return out
}
