package theme

import (
	"fmt"
	"math"
	"regexp"
	"slices"
	"strings"
)

// Issue is one validation failure, addressed by a dotted field path.
type Issue struct {
	Path    string `json:"path"`
	Message string `json:"message"`
}

// ValidationError lists every issue found in a config.
type ValidationError struct {
	Issues []Issue
}

func (e *ValidationError) Error() string {
	parts := make([]string, len(e.Issues))
	for i, is := range e.Issues {
		parts[i] = is.Path + ": " + is.Message
	}
	return "invalid theme config: " + strings.Join(parts, "; ")
}

// Fields returns the issues keyed by path, for API error details.
func (e *ValidationError) Fields() map[string]any {
	out := make(map[string]any, len(e.Issues))
	for _, is := range e.Issues {
		out[is.Path] = is.Message
	}
	return out
}

type validator struct {
	issues []Issue
}

func (v *validator) addf(path, format string, args ...any) {
	v.issues = append(v.issues, Issue{Path: path, Message: fmt.Sprintf(format, args...)})
}

func (v *validator) rangeCheck(path string, val, lo, hi float64) {
	if math.IsNaN(val) || val < lo || val > hi {
		v.addf(path, "must be between %g and %g, got %g", lo, hi, val)
	}
}

var kebabRe = regexp.MustCompile(`^[a-z][a-z0-9]*(-[a-z0-9]+)*$`)

// IsKebab reports whether s is a lowercase kebab-case identifier.
func IsKebab(s string) bool {
	return kebabRe.MatchString(s)
}

var easingKeywords = []string{"linear", "ease", "ease-in", "ease-out", "ease-in-out", "step-start", "step-end"}

// Validate checks the config. It expects a config that went through
// WithDefaults; missing required values are reported as issues.
func (c *Config) Validate() error {
	v := &validator{}
	c.validateColors(v)
	c.validateTypography(v)
	if c.RadiusPx == nil {
		v.addf("radius_px", "is required")
	} else {
		v.rangeCheck("radius_px", *c.RadiusPx, 0, 64)
	}
	c.validateGradients(v)
	c.validateMotion(v)
	c.validateWidgets(v)
	if len(v.issues) != 0 {
		return &ValidationError{Issues: v.issues}
	}
	return nil
}

func (c *Config) validateColors(v *validator) {
	for _, p := range []struct {
		name    string
		palette map[string]string
	}{{"light", c.Colors.Light}, {"dark", c.Colors.Dark}} {
		for _, tok := range RequiredTokens {
			if _, ok := p.palette[tok]; !ok {
				v.addf("colors."+p.name+"."+tok, "is required")
			}
		}
		for _, tok := range sortedKeys(p.palette) {
			path := "colors." + p.name + "." + tok
			if !IsKebab(tok) {
				v.addf(path, "token name must be kebab-case")
			}
			if _, err := ParseColor(p.palette[tok]); err != nil {
				v.addf(path, "%v", err)
			}
		}
	}
}

func (c *Config) validateTypography(v *validator) {
	t := &c.Typography
	for _, f := range []struct{ path, val string }{
		{"typography.font_sans", t.FontSans},
		{"typography.font_serif", t.FontSerif},
		{"typography.font_mono", t.FontMono},
	} {
		switch {
		case strings.TrimSpace(f.val) == "":
			v.addf(f.path, "is required")
		case strings.ContainsAny(f.val, ";{}<>"):
			v.addf(f.path, "contains forbidden characters")
		}
	}
	v.rangeCheck("typography.base_size_px", t.BaseSizePx, 8, 32)
	v.rangeCheck("typography.scale_ratio", t.ScaleRatio, 1, 2)
	v.rangeCheck("typography.line_height", t.LineHeight, 1, 3)
	for _, w := range []struct {
		path string
		val  int
	}{{"typography.heading_weight", t.HeadingWeight}, {"typography.body_weight", t.BodyWeight}} {
		if w.val < 100 || w.val > 900 || w.val%100 != 0 {
			v.addf(w.path, "must be a multiple of 100 between 100 and 900, got %d", w.val)
		}
	}
}

func (c *Config) validateGradients(v *validator) {
	seen := map[string]bool{}
	for i, g := range c.Gradients {
		path := fmt.Sprintf("gradients[%d]", i)
		if !IsKebab(g.Name) {
			v.addf(path+".name", "must be kebab-case, got %q", g.Name)
		} else if seen[g.Name] {
			v.addf(path+".name", "duplicate gradient %q", g.Name)
		}
		seen[g.Name] = true
		v.rangeCheck(path+".angle_deg", g.AngleDeg, 0, 360)
		if len(g.Stops) < 2 {
			v.addf(path+".stops", "needs at least 2 stops, got %d", len(g.Stops))
		}
		prev := 0.0
		for j, s := range g.Stops {
			sp := fmt.Sprintf("%s.stops[%d]", path, j)
			if _, err := ParseColor(s.Color); err != nil {
				v.addf(sp+".color", "%v", err)
			}
			v.rangeCheck(sp+".position", s.Position, 0, 100)
			if s.Position < prev {
				v.addf(sp+".position", "must not be lower than the previous stop (%g)", prev)
			}
			prev = s.Position
		}
	}
}

func (c *Config) validateMotion(v *validator) {
	m := &c.Motion
	durations := []struct {
		path string
		ms   *int
	}{
		{"motion.duration_fast_ms", m.DurationFastMs},
		{"motion.duration_base_ms", m.DurationBaseMs},
		{"motion.duration_slow_ms", m.DurationSlowMs},
	}
	complete := true
	for _, d := range durations {
		if d.ms == nil {
			v.addf(d.path, "is required")
			complete = false
			continue
		}
		v.rangeCheck(d.path, float64(*d.ms), 0, 5000)
	}
	if complete && (*m.DurationFastMs > *m.DurationBaseMs || *m.DurationBaseMs > *m.DurationSlowMs) {
		v.addf("motion", "durations must satisfy fast <= base <= slow")
	}
	if err := ValidateEasing(m.Easing); err != nil {
		v.addf("motion.easing", "%v", err)
	}
}

func (c *Config) validateWidgets(v *validator) {
	for _, name := range sortedKeys(c.Widgets) {
		path := "widgets." + name
		if !IsKebab(name) {
			v.addf(path, "widget name must be kebab-case")
			continue
		}
		w := c.Widgets[name]
		variants, known := KnownWidgets[name]
		if known && !slices.Contains(variants, w.Variant) {
			v.addf(path+".variant", "must be one of %s, got %q", strings.Join(variants, ", "), w.Variant)
		}
		if w.Variant != "" && !IsKebab(w.Variant) {
			v.addf(path+".variant", "must be kebab-case, got %q", w.Variant)
		}
	}
}

// ValidateEasing checks a CSS easing keyword or cubic-bezier() function.
func ValidateEasing(s string) error {
	if slices.Contains(easingKeywords, s) {
		return nil
	}
	if !strings.HasPrefix(s, "cubic-bezier(") || !strings.HasSuffix(s, ")") {
		return fmt.Errorf("unknown easing %q", s)
	}
	args := strings.Split(s[len("cubic-bezier("):len(s)-1], ",")
	if len(args) != 4 {
		return fmt.Errorf("cubic-bezier needs 4 arguments, got %d", len(args))
	}
	for i, a := range args {
		n, err := parseFinite(strings.TrimSpace(a))
		if err != nil {
			return fmt.Errorf("invalid cubic-bezier argument %q", strings.TrimSpace(a))
		}
		// x coordinates (1st and 3rd) must be in [0, 1].
		if i%2 == 0 && (n < 0 || n > 1) {
			return fmt.Errorf("cubic-bezier x%d must be in [0, 1], got %g", i/2+1, n)
		}
	}
	return nil
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
