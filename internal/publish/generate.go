// Package publish turns a validated theme config into the CSS and TypeScript
// sources consumed by the marketing site build, and commits them.
package publish

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"slices"
	"strconv"
	"strings"
	"text/template"

	"github.com/maruel/showroom/internal/theme"
)

// Generated file paths, relative to the site directory.
const (
	ThemeCSSPath   = "src/styles/theme.css"
	TokensTSPath   = "src/theme/tokens.ts"
	WidgetsTSPath  = "src/theme/widgets.ts"
	rootFontSizePx = 16
)

// Paths lists every generated file.
var Paths = []string{ThemeCSSPath, TokensTSPath, WidgetsTSPath}

// Options describes the theme being generated, for the file banners.
type Options struct {
	Name    string
	Slug    string
	Version int
}

// File is one generated source file.
type File struct {
	Path    string `json:"path"`
	Content string `json:"content"`
}

// typeScale lists the named steps of the modular scale and their exponent.
var typeScale = []struct {
	name string
	exp  int
}{
	{"xs", -2}, {"sm", -1}, {"base", 0}, {"lg", 1}, {"xl", 2}, {"2xl", 3}, {"3xl", 4}, {"4xl", 5},
}

// Generate renders the theme sources. The config is default-filled and
// validated first; invalid input returns an error. Output is deterministic.
func Generate(cfg theme.Config, opts Options) ([]File, error) {
	if opts.Slug == "" {
		return nil, errors.New("theme slug is required")
	}
	c := cfg.WithDefaults()
	if err := c.Validate(); err != nil {
		return nil, err
	}
	m, err := newModel(&c, opts)
	if err != nil {
		return nil, err
	}
	css := renderCSS(m)
	tokens, err := render(tokensTmpl, m)
	if err != nil {
		return nil, fmt.Errorf("failed to render %s: %w", TokensTSPath, err)
	}
	widgets, err := render(widgetsTmpl, m)
	if err != nil {
		return nil, fmt.Errorf("failed to render %s: %w", WidgetsTSPath, err)
	}
	return []File{
		{Path: ThemeCSSPath, Content: css},
		{Path: TokensTSPath, Content: tokens},
		{Path: WidgetsTSPath, Content: widgets},
	}, nil
}

type kv struct {
	Key   string
	Value string
}

type model struct {
	Banner     string
	Light      []kv // token -> "h s% l%"
	Dark       []kv
	TokenNames []string
	Fonts      []kv // CSS property -> stack
	Scale      []kv // step -> rem
	BaseSizePx string
	LineHeight string
	HeadWeight int
	BodyWeight int
	Radius     string
	Gradients  []kv // name -> linear-gradient()
	Motion     theme.Motion
	Widgets    []kv // name -> JSON object
}

// banner is embedded in both block and line comments; "*/" must not appear.
func banner(opts Options) string {
	s := fmt.Sprintf("Generated by showroom from theme %q (%s) version %d. DO NOT EDIT.", opts.Name, opts.Slug, opts.Version)
	return strings.ReplaceAll(s, "*/", "* /")
}

func newModel(c *theme.Config, opts Options) (*model, error) {
	m := &model{
		Banner:     banner(opts),
		BaseSizePx: formatFloat(c.Typography.BaseSizePx, 2) + "px",
		LineHeight: formatFloat(c.Typography.LineHeight, 3),
		HeadWeight: c.Typography.HeadingWeight,
		BodyWeight: c.Typography.BodyWeight,
		Radius:     rem(*c.RadiusPx),
		Motion:     c.Motion,
	}
	var err error
	if m.Light, err = palette(c.Colors.Light); err != nil {
		return nil, err
	}
	if m.Dark, err = palette(c.Colors.Dark); err != nil {
		return nil, err
	}
	names := map[string]struct{}{}
	for _, p := range []map[string]string{c.Colors.Light, c.Colors.Dark} {
		for k := range p {
			names[k] = struct{}{}
		}
	}
	for k := range names {
		m.TokenNames = append(m.TokenNames, k)
	}
	slices.Sort(m.TokenNames)

	m.Fonts = []kv{
		{"font-sans", c.Typography.FontSans},
		{"font-serif", c.Typography.FontSerif},
		{"font-mono", c.Typography.FontMono},
	}
	for _, s := range typeScale {
		px := c.Typography.BaseSizePx * math.Pow(c.Typography.ScaleRatio, float64(s.exp))
		m.Scale = append(m.Scale, kv{s.name, rem(px)})
	}
	for _, g := range c.Gradients {
		v, err := gradient(g)
		if err != nil {
			return nil, err
		}
		m.Gradients = append(m.Gradients, kv{g.Name, v})
	}
	slices.SortFunc(m.Gradients, func(a, b kv) int { return strings.Compare(a.Key, b.Key) })
	for _, name := range sortedKeys(c.Widgets) {
		b, err := marshal(c.Widgets[name])
		if err != nil {
			return nil, fmt.Errorf("widget %s: %w", name, err)
		}
		m.Widgets = append(m.Widgets, kv{name, b})
	}
	return m, nil
}

func palette(p map[string]string) ([]kv, error) {
	out := make([]kv, 0, len(p))
	for _, k := range sortedKeys(p) {
		v, err := theme.NormalizeColor(p[k])
		if err != nil {
			return nil, fmt.Errorf("color %s: %w", k, err)
		}
		out = append(out, kv{k, v})
	}
	return out, nil
}

func gradient(g theme.Gradient) (string, error) {
	stops := make([]string, len(g.Stops))
	for i, s := range g.Stops {
		v, err := theme.NormalizeColor(s.Color)
		if err != nil {
			return "", fmt.Errorf("gradient %s: %w", g.Name, err)
		}
		stops[i] = "hsl(" + v + ") " + formatFloat(s.Position, 2) + "%"
	}
	return "linear-gradient(" + formatFloat(g.AngleDeg, 2) + "deg, " + strings.Join(stops, ", ") + ")", nil
}

func renderCSS(m *model) string {
	var b strings.Builder
	fmt.Fprintf(&b, "/* %s */\n\n", m.Banner)
	b.WriteString(":root {\n")
	for _, t := range m.Light {
		fmt.Fprintf(&b, "  --%s: %s;\n", t.Key, t.Value)
	}
	b.WriteString("\n")
	for _, f := range m.Fonts {
		fmt.Fprintf(&b, "  --%s: %s;\n", f.Key, f.Value)
	}
	fmt.Fprintf(&b, "  --font-size-root: %s;\n", m.BaseSizePx)
	for _, s := range m.Scale {
		fmt.Fprintf(&b, "  --text-%s: %s;\n", s.Key, s.Value)
	}
	fmt.Fprintf(&b, "  --line-height-body: %s;\n", m.LineHeight)
	fmt.Fprintf(&b, "  --font-weight-heading: %d;\n", m.HeadWeight)
	fmt.Fprintf(&b, "  --font-weight-body: %d;\n", m.BodyWeight)
	fmt.Fprintf(&b, "  --radius: %s;\n", m.Radius)
	b.WriteString("\n")
	fmt.Fprintf(&b, "  --duration-fast: %dms;\n", *m.Motion.DurationFastMs)
	fmt.Fprintf(&b, "  --duration-base: %dms;\n", *m.Motion.DurationBaseMs)
	fmt.Fprintf(&b, "  --duration-slow: %dms;\n", *m.Motion.DurationSlowMs)
	fmt.Fprintf(&b, "  --ease-standard: %s;\n", m.Motion.Easing)
	if len(m.Gradients) != 0 {
		b.WriteString("\n")
		for _, g := range m.Gradients {
			fmt.Fprintf(&b, "  --gradient-%s: %s;\n", g.Key, g.Value)
		}
	}
	b.WriteString("}\n\n.dark {\n")
	for _, t := range m.Dark {
		fmt.Fprintf(&b, "  --%s: %s;\n", t.Key, t.Value)
	}
	b.WriteString("}\n")
	if m.Motion.ReduceMotion {
		b.WriteString(`
@media (prefers-reduced-motion: reduce) {
  :root {
    --duration-fast: 0ms;
    --duration-base: 0ms;
    --duration-slow: 0ms;
  }

  *,
  *::before,
  *::after {
    animation-duration: 0.01ms !important;
    animation-iteration-count: 1 !important;
    transition-duration: 0.01ms !important;
    scroll-behavior: auto !important;
  }
}
`)
	}
	return b.String()
}

var funcs = template.FuncMap{
	"js": func(s string) (string, error) { return marshal(s) },
	"camel": func(s string) string {
		parts := strings.Split(s, "-")
		for i := 1; i < len(parts); i++ {
			if parts[i] != "" {
				parts[i] = strings.ToUpper(parts[i][:1]) + parts[i][1:]
			}
		}
		return strings.Join(parts, "")
	},
	"last": func(i int, s any) bool {
		switch v := s.(type) {
		case []string:
			return i == len(v)-1
		case []kv:
			return i == len(v)-1
		}
		return false
	},
}

var tokensTmpl = template.Must(template.New(TokensTSPath).Funcs(funcs).Parse(`// {{.Banner}}

export const colors = {
  light: {
{{- range .Light}}
    {{js .Key}}: {{js (printf "hsl(%s)" .Value)}},
{{- end}}
  },
  dark: {
{{- range .Dark}}
    {{js .Key}}: {{js (printf "hsl(%s)" .Value)}},
{{- end}}
  },
} as const;

export const typography = {
{{- range .Fonts}}
  {{camel .Key}}: {{js .Value}},
{{- end}}
  rootSize: {{js .BaseSizePx}},
  lineHeight: {{.LineHeight}},
  headingWeight: {{.HeadWeight}},
  bodyWeight: {{.BodyWeight}},
  scale: {
{{- range .Scale}}
    {{js .Key}}: {{js .Value}},
{{- end}}
  },
} as const;

export const radius = {{js .Radius}};

export const gradients = {
{{- range .Gradients}}
  {{js .Key}}: {{js .Value}},
{{- end}}
} as const;

export const motion = {
  durationFastMs: {{.Motion.DurationFastMs}},
  durationBaseMs: {{.Motion.DurationBaseMs}},
  durationSlowMs: {{.Motion.DurationSlowMs}},
  easing: {{js .Motion.Easing}},
  reduceMotion: {{.Motion.ReduceMotion}},
} as const;

export type ThemeTokenName =
{{- range $i, $n := .TokenNames}}
  | {{js $n}}{{if last $i $.TokenNames}};{{end}}
{{- end}}
`))

var widgetsTmpl = template.Must(template.New(WidgetsTSPath).Funcs(funcs).Parse(`// {{.Banner}}

export interface WidgetConfig {
  enabled: boolean;
  variant?: string;
  options?: Record<string, unknown>;
}

export const widgets = {
{{- range .Widgets}}
  {{js .Key}}: {{.Value}},
{{- end}}
} satisfies Record<string, WidgetConfig>;

export type WidgetName = keyof typeof widgets;
`))

func render(t *template.Template, m *model) (string, error) {
	var buf bytes.Buffer
	if err := t.Execute(&buf, m); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// marshal encodes v as compact JSON, which is also a valid TS literal.
func marshal(v any) (string, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return "", err
	}
	return strings.TrimSuffix(buf.String(), "\n"), nil
}

func rem(px float64) string {
	if px == 0 {
		return "0"
	}
	return formatFloat(px/rootFontSizePx, 4) + "rem"
}

func formatFloat(v float64, prec int) string {
	p := math.Pow(10, float64(prec))
	r := math.Round(v*p) / p
	if r == 0 {
		r = 0
	}
	return strconv.FormatFloat(r, 'f', -1, 64)
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
