// Showroom serves the admin back office of a marketing site: themes, contact
// form submissions, portfolio and testimonials, plus the public API the site
// build and the contact form use.
package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/maruel/showroom/frontend"
	"github.com/maruel/showroom/internal/cli"
	"github.com/maruel/showroom/internal/config"
	"github.com/maruel/showroom/internal/content"
	"github.com/maruel/showroom/internal/gitrepo"
	"github.com/maruel/showroom/internal/identity"
	"github.com/maruel/showroom/internal/modules/playground"
	"github.com/maruel/showroom/internal/modules/portfolio"
	"github.com/maruel/showroom/internal/modules/submissions"
	"github.com/maruel/showroom/internal/modules/testimonials"
	"github.com/maruel/showroom/internal/modules/themes"
	"github.com/maruel/showroom/internal/notify"
	"github.com/maruel/showroom/internal/publish"
	"github.com/maruel/showroom/internal/registry"
	"github.com/maruel/showroom/internal/server"
	"github.com/maruel/showroom/internal/server/handlers"
	"github.com/maruel/showroom/internal/server/ipgeo"
	"github.com/maruel/showroom/internal/server/ratelimit"
	"github.com/maruel/showroom/internal/theme"
)

// sessionRetention is how long expired or revoked sessions are kept.
const sessionRetention = 7 * 24 * time.Hour

func main() {
	if err := mainImpl(); err != nil && !errors.Is(err, context.Canceled) {
		fmt.Fprintf(os.Stderr, "showroom: %v\n", err)
		os.Exit(1)
	}
}

func mainImpl() error {
	version := flag.Bool("version", false, "Print version and exit")
	httpAddr := flag.String("http", "localhost:8080", "Address to listen on (e.g., localhost:8080, :8080, 0.0.0.0:8080)")
	dataDir := flag.String("data-dir", "./data", "Data directory")
	logLevel := flag.String("log-level", "info", "Log level (debug, info, warn, error)")
	baseURL := flag.String("base-url", "", "Public URL of the marketing site, overrides server_config.json")
	geoDB := flag.String("geo-db", "", "Path to MaxMind MMDB file for IP geolocation (optional)")
	siteDir := flag.String("site-dir", "", "Git checkout of the marketing site receiving published themes (default: <data-dir>/site)")
	flag.Parse()
	if len(flag.Args()) > 0 {
		return fmt.Errorf("unknown arguments: %v", flag.Args())
	}

	if *version {
		b := cli.ReadBuildInfo()
		b.Print(os.Stdout, "showroom")
		return nil
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM, os.Interrupt)
	defer stop()
	ll := cli.SetupLogging()

	if err := os.MkdirAll(*dataDir, 0o755); err != nil { //nolint:gosec // G301: 0o755 is intentional for data directories
		return fmt.Errorf("failed to create data directory: %w", err)
	}
	// Run onboarding if no .env file exists and stdin is a TTY
	if _, err := os.Stat(filepath.Join(*dataDir, cli.DotEnvFile)); os.IsNotExist(err) {
		if isatty.IsTerminal(os.Stdin.Fd()) {
			if err := runOnboarding(*dataDir); err != nil {
				return fmt.Errorf("onboarding failed: %w", err)
			}
		}
	}
	env, err := cli.LoadDotEnv(*dataDir)
	if err != nil {
		return err
	}

	// Override with .env file values if not explicitly set via flags
	set := make(map[string]bool)
	flag.Visit(func(f *flag.Flag) {
		set[f.Name] = true
	})
	cli.Override(set, env, "http", "HTTP", httpAddr)
	cli.Override(set, env, "log-level", "LOG_LEVEL", logLevel)
	cli.Override(set, env, "base-url", "BASE_URL", baseURL)
	cli.Override(set, env, "geo-db", "GEO_DB", geoDB)
	cli.Override(set, env, "site-dir", "SITE_DIR", siteDir)
	if err := cli.SetLevel(ll, *logLevel); err != nil {
		return err
	}
	if *siteDir == "" {
		*siteDir = filepath.Join(*dataDir, "site")
	}

	// Load server_config.json for JWT secret, SMTP, VAPID and quotas (creates with defaults if missing)
	cfg, err := config.Load(*dataDir)
	if err != nil {
		return fmt.Errorf("failed to load %s: %w", config.FileName, err)
	}
	if *baseURL != "" {
		cfg.Site.BaseURL = strings.TrimSuffix(*baseURL, "/")
		if err := cfg.Site.Validate(); err != nil {
			return fmt.Errorf("invalid -base-url: %w", err)
		}
	}

	dbDir := filepath.Join(*dataDir, "db")
	dataRepo, err := gitrepo.Open(dbDir, "showroom", "showroom@localhost")
	if err != nil {
		return fmt.Errorf("failed to open data repository: %w", err)
	}
	siteRepo, err := gitrepo.Open(*siteDir, "showroom", "showroom@localhost")
	if err != nil {
		return fmt.Errorf("failed to open site repository: %w", err)
	}

	identityDir := filepath.Join(*dataDir, "identity")
	users, err := identity.NewUserService(filepath.Join(identityDir, "users.jsonl"))
	if err != nil {
		return err
	}
	sessions, err := identity.NewSessionService(filepath.Join(identityDir, "sessions.jsonl"))
	if err != nil {
		return err
	}
	pushSubs, err := identity.NewPushSubscriptionService(filepath.Join(identityDir, "push_subscriptions.jsonl"))
	if err != nil {
		return err
	}
	if err := bootstrapAdmin(users, env); err != nil {
		return err
	}
	if n, err := sessions.CleanupExpired(sessionRetention); err != nil {
		slog.Warn("Failed to clean up sessions", "err", err)
	} else if n > 0 {
		slog.Info("Cleaned up expired sessions", "count", n)
	}

	themeStore, err := theme.NewStore(filepath.Join(dbDir, "themes.jsonl"), cfg.Quotas.MaxThemes)
	if err != nil {
		return err
	}
	submissionStore, err := content.NewSubmissionStore(filepath.Join(dbDir, "submissions.jsonl"), cfg.Quotas.MaxSubmissionsPerDay)
	if err != nil {
		return err
	}
	portfolioStore, err := content.NewPortfolioStore(filepath.Join(dbDir, "portfolio.jsonl"), cfg.Quotas.MaxPortfolioItems)
	if err != nil {
		return err
	}
	testimonialStore, err := content.NewTestimonialStore(filepath.Join(dbDir, "testimonials.jsonl"))
	if err != nil {
		return err
	}

	geo, err := ipgeo.Open(*geoDB)
	if err != nil {
		return fmt.Errorf("failed to open geo database: %w", err)
	}
	if geo != nil {
		defer func() { _ = geo.Close() }()
	}
	limiters := ratelimit.NewConfig(ratelimit.Rates{
		Auth:        cfg.RateLimits.AuthRatePerMin,
		PublicWrite: cfg.RateLimits.PublicWriteRatePerMin,
		Write:       cfg.RateLimits.WriteRatePerMin,
		Read:        cfg.RateLimits.ReadRatePerMin,
	})
	defer limiters.Close()
	notifier := notify.New(cfg, pushSubs)
	defer notifier.Wait()

	srvEnv := &server.Env{
		Cfg:      cfg,
		Users:    users,
		Sessions: sessions,
		Limiters: limiters,
		DataRepo: dataRepo,
		Geo:      geo,
	}
	reg := registry.New()
	for _, m := range []registry.Module{
		themes.New(srvEnv, themeStore, publish.NewPublisher(themeStore, siteRepo)),
		submissions.New(srvEnv, submissionStore, notifier),
		portfolio.New(srvEnv, portfolioStore),
		testimonials.New(srvEnv, testimonialStore),
		playground.New(srvEnv),
	} {
		if err := reg.Register(m); err != nil {
			return fmt.Errorf("failed to register module: %w", err)
		}
	}

	b := cli.ReadBuildInfo()
	h := &server.Handlers{
		Health:        handlers.NewHealthHandler(b.Version),
		Auth:          handlers.NewAuthHandler(users, sessions, string(cfg.JWTSecret), cfg.Quotas.MaxSessionsPerUser),
		Modules:       handlers.NewModuleHandler(reg),
		Site:          handlers.NewSiteHandler(cfg, filepath.Join(*dataDir, "site.yaml"), themeStore, portfolioStore, testimonialStore),
		Notifications: handlers.NewNotificationHandler(cfg.VAPID, pushSubs),
	}
	spa, err := fs.Sub(frontend.Files, "dist")
	if err != nil {
		return fmt.Errorf("failed to load frontend: %w", err)
	}

	srv := &http.Server{
		Addr:              *httpAddr,
		Handler:           server.NewRouter(srvEnv, h, reg, spa),
		BaseContext:       func(_ net.Listener) context.Context { return ctx },
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		slog.Info("Server started", "addr", *httpAddr, "data", *dataDir, "site", *siteDir, "modules", strings.Join(reg.Names(), ","))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("Server error", "err", err)
			stop()
		}
	}()
	go cleanupSessions(ctx, sessions)
	if err := cli.WatchExecutable(ctx, stop); err != nil {
		slog.Warn("Could not watch executable for changes", "err", err)
	}

	<-ctx.Done()
	slog.Info("Shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// bootstrapAdmin creates the administrator from ADMIN_EMAIL and
// ADMIN_PASSWORD when no user exists yet.
func bootstrapAdmin(users *identity.UserService, env map[string]string) error {
	if users.Count() != 0 {
		return nil
	}
	email, password := env["ADMIN_EMAIL"], env["ADMIN_PASSWORD"]
	if email == "" || password == "" {
		slog.Warn("No administrator account; set ADMIN_EMAIL and ADMIN_PASSWORD in .env")
		return nil
	}
	u, err := users.Bootstrap(email, password)
	if err != nil {
		return fmt.Errorf("failed to create administrator: %w", err)
	}
	slog.Info("Created administrator", "email", u.Email)
	return nil
}

// cleanupSessions prunes old sessions once a day until ctx is done.
func cleanupSessions(ctx context.Context, sessions *identity.SessionService) {
	t := time.NewTicker(24 * time.Hour)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			if n, err := sessions.CleanupExpired(sessionRetention); err != nil {
				slog.WarnContext(ctx, "Failed to clean up sessions", "err", err)
			} else if n > 0 {
				slog.InfoContext(ctx, "Cleaned up expired sessions", "count", n)
			}
		}
	}
}

func runOnboarding(dataDir string) error {
	fmt.Println("Welcome to showroom! Let's set up your configuration.")
	fmt.Println("")

	reader := bufio.NewReader(os.Stdin)
	env := make(map[string]string)
	ask := func(prompt, def string) (string, error) {
		fmt.Print(prompt)
		val, err := reader.ReadString('\n')
		if err != nil {
			return "", err
		}
		if val = strings.TrimSpace(val); val == "" {
			val = def
		}
		return val, nil
	}

	fmt.Println("--- Site ---")
	fmt.Println("The base URL is where the marketing site is published. It is used in")
	fmt.Println("sitemap.xml, robots.txt and notification links.")
	val, err := ask("Base URL (default: http://localhost:4321): ", "http://localhost:4321")
	if err != nil {
		return fmt.Errorf("failed to read base URL: %w", err)
	}
	env["BASE_URL"] = val

	fmt.Println("\n--- Administrator ---")
	if env["ADMIN_EMAIL"], err = ask("Admin email: ", ""); err != nil {
		return fmt.Errorf("failed to read admin email: %w", err)
	}
	if env["ADMIN_EMAIL"] != "" {
		if env["ADMIN_PASSWORD"], err = ask("Admin password: ", ""); err != nil {
			return fmt.Errorf("failed to read admin password: %w", err)
		}
	}

	fmt.Println("\n--- Marketing site checkout ---")
	fmt.Printf("Published themes are committed into this git checkout (default: %s).\n", filepath.Join(dataDir, "site"))
	if env["SITE_DIR"], err = ask("Site directory (optional): ", ""); err != nil {
		return fmt.Errorf("failed to read site directory: %w", err)
	}

	fmt.Println("")
	if err := cli.SaveDotEnv(dataDir, env); err != nil {
		return fmt.Errorf("failed to save .env file: %w", err)
	}
	fmt.Printf("Configuration saved to %s\n", filepath.Join(dataDir, cli.DotEnvFile))
	fmt.Println("You can edit this file later to change your settings.")
	fmt.Println("")
	return nil
}
