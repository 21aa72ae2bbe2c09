package theme

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"
)

func TestDefaultConfigValid(t *testing.T) {
	c := DefaultConfig()
	if err := c.Validate(); err != nil {
		t.Fatalf("DefaultConfig().Validate() = %v", err)
	}
}

func TestWithDefaults(t *testing.T) {
	t.Run("empty config is filled", func(t *testing.T) {
		var c Config
		filled := c.WithDefaults()
		if err := filled.Validate(); err != nil {
			t.Fatalf("Validate() = %v", err)
		}
		if c.Colors.Light != nil {
			t.Error("WithDefaults mutated its receiver")
		}
	})

	t.Run("provided values are kept", func(t *testing.T) {
		zero := 0.0
		c := Config{
			Colors:     Colors{Light: map[string]string{"primary": "#ff0000", "brand": "#00ff00"}},
			Typography: Typography{BaseSizePx: 18},
			RadiusPx:   &zero,
			Gradients:  []Gradient{},
			Motion:     Motion{Easing: "linear", DurationFastMs: ptr(0)},
			Widgets:    map[string]Widget{"hero": {Enabled: false}},
		}
		got := c.WithDefaults()
		if got.Colors.Light["primary"] != "#ff0000" {
			t.Errorf("primary = %q, want kept", got.Colors.Light["primary"])
		}
		if got.Colors.Light["brand"] != "#00ff00" {
			t.Error("custom token dropped")
		}
		if got.Colors.Light["background"] == "" || got.Colors.Dark["ring"] == "" {
			t.Error("missing tokens not filled")
		}
		if got.Typography.BaseSizePx != 18 || got.Typography.ScaleRatio != 1.25 {
			t.Errorf("typography = %+v", got.Typography)
		}
		if *got.RadiusPx != 0 {
			t.Errorf("radius = %v, want explicit 0 kept", *got.RadiusPx)
		}
		if len(got.Gradients) != 0 {
			t.Errorf("explicit empty gradients replaced: %v", got.Gradients)
		}
		if got.Motion.Easing != "linear" || *got.Motion.DurationBaseMs != 250 {
			t.Errorf("motion = %+v", got.Motion)
		}
		if *got.Motion.DurationFastMs != 0 {
			t.Errorf("fast duration = %d, want explicit 0 kept", *got.Motion.DurationFastMs)
		}
		hero := got.Widgets["hero"]
		if hero.Enabled || hero.Variant != "centered" {
			t.Errorf("hero = %+v, want disabled with default variant", hero)
		}
		if _, ok := got.Widgets["cta-banner"]; !ok {
			t.Error("missing widget not added")
		}
		if err := got.Validate(); err != nil {
			t.Errorf("Validate() = %v", err)
		}
	})
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(c *Config)
		paths  []string
	}{
		{
			name:   "missing token",
			mutate: func(c *Config) { delete(c.Colors.Dark, "ring") },
			paths:  []string{"colors.dark.ring"},
		},
		{
			name:   "bad color and token name",
			mutate: func(c *Config) { c.Colors.Light["Brand_Color"] = "nope" },
			paths:  []string{"colors.light.Brand_Color"},
		},
		{
			name: "typography ranges",
			mutate: func(c *Config) {
				c.Typography.BaseSizePx = 4
				c.Typography.HeadingWeight = 650
				c.Typography.FontMono = "x; }"
			},
			paths: []string{"typography.base_size_px", "typography.heading_weight", "typography.font_mono"},
		},
		{
			name: "gradients",
			mutate: func(c *Config) {
				c.Gradients = []Gradient{
					{Name: "a", AngleDeg: 400, Stops: []GradientStop{{Color: "#fff", Position: 50}, {Color: "#000", Position: 10}}},
					{Name: "a", Stops: []GradientStop{{Color: "#fff"}}},
				}
			},
			paths: []string{"gradients[0].angle_deg", "gradients[0].stops[1].position", "gradients[1].name", "gradients[1].stops"},
		},
		{
			name: "motion",
			mutate: func(c *Config) {
				c.Motion.DurationFastMs = ptr(900)
				c.Motion.Easing = "cubic-bezier(2, 0, 0, 1)"
			},
			paths: []string{"motion", "motion.easing"},
		},
		{
			name:   "missing duration",
			mutate: func(c *Config) { c.Motion.DurationSlowMs = nil },
			paths:  []string{"motion.duration_slow_ms"},
		},
		{
			name: "non-finite values",
			mutate: func(c *Config) {
				c.Colors.Light["accent"] = "0 NaN% NaN%"
				c.Colors.Dark["accent"] = "hsl(nan, 50%, 50%)"
				c.Motion.Easing = "cubic-bezier(nan, 0, 1, 1)"
			},
			paths: []string{"colors.light.accent", "colors.dark.accent", "motion.easing"},
		},
		{
			name:   "widget variant",
			mutate: func(c *Config) { c.Widgets["hero"] = Widget{Enabled: true, Variant: "carousel"} },
			paths:  []string{"widgets.hero.variant"},
		},
		{
			name:   "radius",
			mutate: func(c *Config) { r := 100.0; c.RadiusPx = &r },
			paths:  []string{"radius_px"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := DefaultConfig()
			tt.mutate(&c)
			err := c.Validate()
			var ve *ValidationError
			if !errors.As(err, &ve) {
				t.Fatalf("Validate() = %v, want *ValidationError", err)
			}
			fields := ve.Fields()
			for _, p := range tt.paths {
				if _, ok := fields[p]; !ok {
					t.Errorf("missing issue for %s; got %v", p, fields)
				}
			}
			if len(fields) != len(tt.paths) {
				t.Errorf("got %d issues, want %d: %v", len(fields), len(tt.paths), fields)
			}
		})
	}
}

func TestValidateEasing(t *testing.T) {
	for _, ok := range []string{"linear", "ease-in-out", "cubic-bezier(0.4, 0, 0.2, 1)", "cubic-bezier(0,-1,1,2)"} {
		if err := ValidateEasing(ok); err != nil {
			t.Errorf("ValidateEasing(%q) = %v", ok, err)
		}
	}
	for _, bad := range []string{"", "bounce", "cubic-bezier(0, 0, 1)", "cubic-bezier(a, 0, 1, 1)", "cubic-bezier(-0.1, 0, 1, 1)", "cubic-bezier(nan, 0, 1, 1)", "cubic-bezier(0, Inf, 1, 1)", "cubic-bezier(0, 0, 1, -inf)"} {
		if err := ValidateEasing(bad); err == nil {
			t.Errorf("ValidateEasing(%q) succeeded", bad)
		}
	}
}

func TestSchema(t *testing.T) {
	data, err := Schema()
	if err != nil {
		t.Fatal(err)
	}
	var doc map[string]any
	if err := json.Unmarshal(data, &doc); err != nil {
		t.Fatalf("schema is not JSON: %v", err)
	}
	for _, want := range []string{`"colors"`, `"typography"`, `"motion"`, `"gradients"`} {
		if !strings.Contains(string(data), want) {
			t.Errorf("schema missing %s", want)
		}
	}
}
