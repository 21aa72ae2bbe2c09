package theme

import "maps"

// RequiredTokens lists the color tokens every palette must define.
var RequiredTokens = []string{
	"background", "foreground",
	"card", "card-foreground",
	"popover", "popover-foreground",
	"primary", "primary-foreground",
	"secondary", "secondary-foreground",
	"muted", "muted-foreground",
	"accent", "accent-foreground",
	"destructive", "destructive-foreground",
	"border", "input", "ring",
}

// KnownWidgets maps each widget rendered by the site to its allowed variants.
// The first variant is the default.
var KnownWidgets = map[string][]string{
	"hero":                 {"centered", "split", "video"},
	"cta-banner":           {"solid", "gradient"},
	"testimonial-carousel": {"cards", "quotes"},
	"portfolio-grid":       {"grid", "masonry"},
	"contact-form":         {"inline", "modal"},
}

var defaultLight = map[string]string{
	"background":             "0 0% 100%",
	"foreground":             "222.2 84% 4.9%",
	"card":                   "0 0% 100%",
	"card-foreground":        "222.2 84% 4.9%",
	"popover":                "0 0% 100%",
	"popover-foreground":     "222.2 84% 4.9%",
	"primary":                "221.2 83.2% 53.3%",
	"primary-foreground":     "210 40% 98%",
	"secondary":              "210 40% 96.1%",
	"secondary-foreground":   "222.2 47.4% 11.2%",
	"muted":                  "210 40% 96.1%",
	"muted-foreground":       "215.4 16.3% 46.9%",
	"accent":                 "210 40% 96.1%",
	"accent-foreground":      "222.2 47.4% 11.2%",
	"destructive":            "0 84.2% 60.2%",
	"destructive-foreground": "210 40% 98%",
	"border":                 "214.3 31.8% 91.4%",
	"input":                  "214.3 31.8% 91.4%",
	"ring":                   "221.2 83.2% 53.3%",
}

var defaultDark = map[string]string{
	"background":             "222.2 84% 4.9%",
	"foreground":             "210 40% 98%",
	"card":                   "222.2 84% 4.9%",
	"card-foreground":        "210 40% 98%",
	"popover":                "222.2 84% 4.9%",
	"popover-foreground":     "210 40% 98%",
	"primary":                "217.2 91.2% 59.8%",
	"primary-foreground":     "222.2 47.4% 11.2%",
	"secondary":              "217.2 32.6% 17.5%",
	"secondary-foreground":   "210 40% 98%",
	"muted":                  "217.2 32.6% 17.5%",
	"muted-foreground":       "215 20.2% 65.1%",
	"accent":                 "217.2 32.6% 17.5%",
	"accent-foreground":      "210 40% 98%",
	"destructive":            "0 62.8% 30.6%",
	"destructive-foreground": "210 40% 98%",
	"border":                 "217.2 32.6% 17.5%",
	"input":                  "217.2 32.6% 17.5%",
	"ring":                   "224.3 76.3% 48%",
}

const defaultRadiusPx = 8

// DefaultConfig returns the built-in theme.
func DefaultConfig() Config {
	r := float64(defaultRadiusPx)
	c := Config{
		Colors: Colors{
			Light: maps.Clone(defaultLight),
			Dark:  maps.Clone(defaultDark),
		},
		Typography: Typography{
			FontSans:      `"Inter", ui-sans-serif, system-ui, sans-serif`,
			FontSerif:     `"Merriweather", ui-serif, Georgia, serif`,
			FontMono:      `"JetBrains Mono", ui-monospace, monospace`,
			BaseSizePx:    16,
			ScaleRatio:    1.25,
			LineHeight:    1.5,
			HeadingWeight: 700,
			BodyWeight:    400,
		},
		RadiusPx: &r,
		Gradients: []Gradient{
			{Name: "hero", AngleDeg: 135, Stops: []GradientStop{{Color: "221.2 83.2% 53.3%", Position: 0}, {Color: "262.1 83.3% 57.8%", Position: 100}}},
			{Name: "subtle", AngleDeg: 180, Stops: []GradientStop{{Color: "210 40% 96.1%", Position: 0}, {Color: "0 0% 100%", Position: 100}}},
		},
		Motion: Motion{
			DurationFastMs: ptr(150),
			DurationBaseMs: ptr(250),
			DurationSlowMs: ptr(400),
			Easing:         "cubic-bezier(0.4, 0, 0.2, 1)",
		},
		Widgets: map[string]Widget{},
	}
	for name, variants := range KnownWidgets {
		c.Widgets[name] = Widget{Enabled: true, Variant: variants[0]}
	}
	return c
}

// WithDefaults returns a copy of c where every missing value is taken from
// DefaultConfig. Provided values are never overwritten.
func (c *Config) WithDefaults() Config {
	d := DefaultConfig()
	out := c.Clone()

	out.Colors.Light = fillTokens(out.Colors.Light, d.Colors.Light)
	out.Colors.Dark = fillTokens(out.Colors.Dark, d.Colors.Dark)

	t := &out.Typography
	if t.FontSans == "" {
		t.FontSans = d.Typography.FontSans
	}
	if t.FontSerif == "" {
		t.FontSerif = d.Typography.FontSerif
	}
	if t.FontMono == "" {
		t.FontMono = d.Typography.FontMono
	}
	if t.BaseSizePx == 0 {
		t.BaseSizePx = d.Typography.BaseSizePx
	}
	if t.ScaleRatio == 0 {
		t.ScaleRatio = d.Typography.ScaleRatio
	}
	if t.LineHeight == 0 {
		t.LineHeight = d.Typography.LineHeight
	}
	if t.HeadingWeight == 0 {
		t.HeadingWeight = d.Typography.HeadingWeight
	}
	if t.BodyWeight == 0 {
		t.BodyWeight = d.Typography.BodyWeight
	}

	if out.RadiusPx == nil {
		out.RadiusPx = d.RadiusPx
	}
	if out.Gradients == nil {
		out.Gradients = d.Gradients
	}

	m := &out.Motion
	if m.DurationFastMs == nil {
		m.DurationFastMs = d.Motion.DurationFastMs
	}
	if m.DurationBaseMs == nil {
		m.DurationBaseMs = d.Motion.DurationBaseMs
	}
	if m.DurationSlowMs == nil {
		m.DurationSlowMs = d.Motion.DurationSlowMs
	}
	if m.Easing == "" {
		m.Easing = d.Motion.Easing
	}

	if out.Widgets == nil {
		out.Widgets = map[string]Widget{}
	}
	for name, w := range d.Widgets {
		cur, ok := out.Widgets[name]
		if !ok {
			out.Widgets[name] = w
			continue
		}
		if cur.Variant == "" {
			cur.Variant = w.Variant
			out.Widgets[name] = cur
		}
	}
	return out
}

func ptr[T any](v T) *T {
	return &v
}

func fillTokens(dst, defaults map[string]string) map[string]string {
	if dst == nil {
		dst = make(map[string]string, len(defaults))
	}
	for k, v := range defaults {
		if dst[k] == "" {
			dst[k] = v
		}
	}
	return dst
}
