package publish

import (
	"errors"
	"os"
	"strings"
	"testing"

	"github.com/gkampitakis/go-snaps/snaps"
	"github.com/maruel/showroom/internal/theme"
)

func TestMain(m *testing.M) {
	v := m.Run()
	snaps.Clean(m)
	os.Exit(v)
}

func fixedConfig() theme.Config {
	radius := 6.0
	return theme.Config{
		Colors: theme.Colors{
			Light: map[string]string{"primary": "#ff0000", "brand-accent": "rgb(0, 0, 255)"},
			Dark:  map[string]string{"primary": "hsl(120, 100%, 25%)"},
		},
		Typography: theme.Typography{FontSans: `"Inter", sans-serif`, BaseSizePx: 16, ScaleRatio: 1.5},
		RadiusPx:   &radius,
		Gradients: []theme.Gradient{
			{Name: "sunrise", AngleDeg: 90, Stops: []theme.GradientStop{{Color: "#fff", Position: 0}, {Color: "#000", Position: 100}}},
		},
		Motion: theme.Motion{Easing: "ease-out", ReduceMotion: true},
		Widgets: map[string]theme.Widget{
			"hero":          {Enabled: true, Variant: "split", Options: map[string]any{"headline": "Build <fast>", "cta": true}},
			"custom-banner": {Enabled: false},
		},
	}
}

func generate(t *testing.T, cfg theme.Config) map[string]string {
	t.Helper()
	files, err := Generate(cfg, Options{Name: "Sunrise", Slug: "sunrise", Version: 3})
	if err != nil {
		t.Fatalf("Generate() = %v", err)
	}
	out := map[string]string{}
	for _, f := range files {
		out[f.Path] = f.Content
	}
	if len(out) != len(Paths) {
		t.Fatalf("got files %v", files)
	}
	return out
}

func TestGenerateCSS(t *testing.T) {
	css := generate(t, fixedConfig())[ThemeCSSPath]
	for _, want := range []string{
		`/* Generated by showroom from theme "Sunrise" (sunrise) version 3. DO NOT EDIT. */`,
		"  --primary: 0 100% 50%;\n",
		"  --brand-accent: 240 100% 50%;\n",
		"  --background: 0 0% 100%;\n",
		"  --font-sans: \"Inter\", sans-serif;\n",
		"  --text-base: 1rem;\n",
		"  --text-lg: 1.5rem;\n",
		"  --text-sm: 0.6667rem;\n",
		"  --radius: 0.375rem;\n",
		"  --ease-standard: ease-out;\n",
		"  --gradient-sunrise: linear-gradient(90deg, hsl(0 0% 100%) 0%, hsl(0 0% 0%) 100%);\n",
		".dark {\n",
		"  --primary: 120 100% 25%;\n",
		"@media (prefers-reduced-motion: reduce)",
	} {
		if !strings.Contains(css, want) {
			t.Errorf("theme.css missing %q", want)
		}
	}
	// Light tokens come before .dark, sorted.
	root, dark, _ := strings.Cut(css, ".dark {")
	if strings.Contains(root, "120 100% 25%") {
		t.Error("dark value leaked into :root")
	}
	if !strings.Contains(dark, "--background: 222.2 84% 4.9%") {
		t.Error("dark defaults not filled")
	}
	if strings.Index(root, "--accent:") > strings.Index(root, "--background:") {
		t.Error("tokens are not sorted")
	}
	snaps.MatchSnapshot(t, css)
}

func TestGenerateNoReducedMotion(t *testing.T) {
	cfg := fixedConfig()
	cfg.Motion.ReduceMotion = false
	if css := generate(t, cfg)[ThemeCSSPath]; strings.Contains(css, "prefers-reduced-motion") {
		t.Error("reduced motion block emitted while disabled")
	}
}

func TestGenerateBannerCommentClose(t *testing.T) {
	files, err := Generate(fixedConfig(), Options{Name: "Evil */ body{display:none} /*", Slug: "evil", Version: 1})
	if err != nil {
		t.Fatal(err)
	}
	for _, f := range files {
		if f.Path != ThemeCSSPath {
			continue
		}
		first, rest, _ := strings.Cut(f.Content, "\n")
		if !strings.HasPrefix(first, "/* ") || strings.Count(first, "*/") != 1 || !strings.HasSuffix(first, " */") {
			t.Errorf("banner = %q", first)
		}
		if strings.Contains(rest, "display:none") {
			t.Error("theme name escaped the banner comment")
		}
		return
	}
	t.Fatalf("%s not generated", ThemeCSSPath)
}

func TestGenerateTS(t *testing.T) {
	files := generate(t, fixedConfig())
	tokens := files[TokensTSPath]
	for _, want := range []string{
		`    "primary": "hsl(0 100% 50%)",`,
		`    "brand-accent": "hsl(240 100% 50%)",`,
		`  fontSans: "\"Inter\", sans-serif",`,
		`  lineHeight: 1.5,`,
		`export const radius = "0.375rem";`,
		`  "sunrise": "linear-gradient(90deg, hsl(0 0% 100%) 0%, hsl(0 0% 0%) 100%)",`,
		`  easing: "ease-out",`,
		`  reduceMotion: true,`,
		"export type ThemeTokenName =\n  | \"accent\"\n",
		`  | "secondary-foreground";`,
	} {
		if !strings.Contains(tokens, want) {
			t.Errorf("tokens.ts missing %q\n%s", want, tokens)
		}
	}
	snaps.MatchSnapshot(t, tokens)

	widgets := files[WidgetsTSPath]
	for _, want := range []string{
		`  "custom-banner": {"enabled":false},`,
		`  "hero": {"enabled":true,"variant":"split","options":{"cta":true,"headline":"Build <fast>"}},`,
		`  "contact-form": {"enabled":true,"variant":"inline"},`,
		"} satisfies Record<string, WidgetConfig>;",
	} {
		if !strings.Contains(widgets, want) {
			t.Errorf("widgets.ts missing %q\n%s", want, widgets)
		}
	}
}

func TestGenerateDeterministic(t *testing.T) {
	a := generate(t, fixedConfig())
	for range 5 {
		b := generate(t, fixedConfig())
		for p, c := range a {
			if b[p] != c {
				t.Fatalf("%s differs between runs", p)
			}
		}
	}
}

func TestGenerateInvalid(t *testing.T) {
	cfg := fixedConfig()
	cfg.Colors.Light["primary"] = "#zzz"
	_, err := Generate(cfg, Options{Slug: "x"})
	var ve *theme.ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("err = %v, want *theme.ValidationError", err)
	}
	if _, err := Generate(theme.DefaultConfig(), Options{}); err == nil {
		t.Error("missing slug accepted")
	}
}
