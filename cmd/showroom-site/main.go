// Showroom-site exports the route table of the marketing site for the static
// site generator, along with sitemap.xml and robots.txt.
package main

import (
	"bytes"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/maruel/showroom/internal/cli"
	"github.com/maruel/showroom/internal/config"
	"github.com/maruel/showroom/internal/content"
	"github.com/maruel/showroom/internal/site"
	"github.com/maruel/showroom/internal/theme"
)

func main() {
	if err := mainImpl(); err != nil && !errors.Is(err, context.Canceled) {
		fmt.Fprintf(os.Stderr, "showroom-site: %v\n", err)
		os.Exit(1)
	}
}

func mainImpl() error {
	version := flag.Bool("version", false, "Print version and exit")
	dataDir := flag.String("data-dir", "./data", "Data directory of the showroom server")
	outDir := flag.String("out", "", "Directory receiving routes.json, sitemap.xml and robots.txt; empty prints the routes to stdout")
	baseURL := flag.String("base-url", "", "Public URL of the site, overrides server_config.json")
	logLevel := flag.String("log-level", "info", "Log level (debug, info, warn, error)")
	watch := flag.Bool("watch", false, "Export again whenever the data changes")
	flag.Parse()
	if len(flag.Args()) > 0 {
		return fmt.Errorf("unknown arguments: %v", flag.Args())
	}
	if *version {
		b := cli.ReadBuildInfo()
		b.Print(os.Stdout, "showroom-site")
		return nil
	}

	ll := cli.SetupLogging()
	env, err := cli.LoadDotEnv(*dataDir)
	if err != nil {
		return err
	}
	set := make(map[string]bool)
	flag.Visit(func(f *flag.Flag) {
		set[f.Name] = true
	})
	cli.Override(set, env, "log-level", "LOG_LEVEL", logLevel)
	cli.Override(set, env, "base-url", "BASE_URL", baseURL)
	if err := cli.SetLevel(ll, *logLevel); err != nil {
		return err
	}

	e := &exporter{dataDir: *dataDir, outDir: *outDir, baseURL: *baseURL, stdout: os.Stdout}
	if err := e.export(); err != nil {
		return err
	}
	if !*watch {
		return nil
	}
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM, os.Interrupt)
	defer stop()
	slog.Info("Watching for changes", "data", *dataDir)
	return cli.WatchDir(ctx, 200*time.Millisecond, func() {
		if err := e.export(); err != nil {
			slog.Error("Export failed", "err", err)
		}
	}, filepath.Join(*dataDir, "db"), *dataDir)
}

type exporter struct {
	dataDir string
	outDir  string
	baseURL string
	stdout  io.Writer
}

// manifest reads the current content from disk and expands the route table.
func (e *exporter) manifest() (*site.Manifest, error) {
	cfg, err := readConfig(e.dataDir)
	if err != nil {
		return nil, err
	}
	baseURL := cfg.Site.BaseURL
	if e.baseURL != "" {
		baseURL = e.baseURL
	}
	routes, err := site.LoadRoutes(filepath.Join(e.dataDir, "site.yaml"))
	if err != nil {
		return nil, err
	}
	dbDir := filepath.Join(e.dataDir, "db")
	themes, err := theme.NewStore(filepath.Join(dbDir, "themes.jsonl"), 0)
	if err != nil {
		return nil, err
	}
	slug := ""
	if t, err := themes.Active(); err == nil {
		slug = t.Slug
	} else if !errors.Is(err, theme.ErrNoActiveTheme) {
		return nil, err
	}
	portfolio, err := content.NewPortfolioStore(filepath.Join(dbDir, "portfolio.jsonl"), 0)
	if err != nil {
		return nil, err
	}
	testimonials, err := content.NewTestimonialStore(filepath.Join(dbDir, "testimonials.jsonl"))
	if err != nil {
		return nil, err
	}
	c := site.Content{Portfolio: portfolio.List(true), Testimonials: testimonials.List(true)}
	return site.NewManifest(cfg.Site.Name, baseURL, slug, routes, c)
}

func (e *exporter) export() error {
	m, err := e.manifest()
	if err != nil {
		return err
	}
	if e.outDir == "" {
		return site.ExportJSON(e.stdout, m)
	}
	if err := os.MkdirAll(e.outDir, 0o755); err != nil { //nolint:gosec // G301: build output
		return err
	}
	outputs := []struct {
		name  string
		write func(io.Writer) error
	}{
		{"routes.json", func(w io.Writer) error { return site.ExportJSON(w, m) }},
		{"sitemap.xml", func(w io.Writer) error { return site.Sitemap(w, m.BaseURL, m.Pages) }},
		{"robots.txt", func(w io.Writer) error { return site.Robots(w, m.BaseURL) }},
	}
	for _, o := range outputs {
		var buf bytes.Buffer
		if err := o.write(&buf); err != nil {
			return fmt.Errorf("%s: %w", o.name, err)
		}
		if err := os.WriteFile(filepath.Join(e.outDir, o.name), buf.Bytes(), 0o644); err != nil { //nolint:gosec // G306: build output
			return err
		}
	}
	slog.Info("Exported site", "pages", len(m.Pages), "theme", m.Theme, "out", e.outDir)
	return nil
}

// readConfig loads server_config.json without creating it; the server owns
// that file.
func readConfig(dataDir string) (*config.ServerConfig, error) {
	if _, err := os.Stat(filepath.Join(dataDir, config.FileName)); errors.Is(err, os.ErrNotExist) {
		cfg := config.Default()
		return &cfg, nil
	}
	return config.Load(dataDir)
}
