// Package config manages the server configuration stored in
// server_config.json in the data directory.
package config

import (
	"crypto/rand"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	webpush "github.com/SherClockHolmes/webpush-go"
	"github.com/maruel/showroom/internal/email"
)

// FileName is the name of the configuration file in the data directory.
const FileName = "server_config.json"

// ServerConfig stores all server-wide configuration.
// Loaded from server_config.json, created with defaults if missing.
type ServerConfig struct {
	// JWTSecret is the secret used to sign JWT tokens.
	// Auto-generated if empty on first load.
	JWTSecret []byte `json:"jwt_secret"`

	// SMTP holds email configuration. Empty host disables email features.
	SMTP email.Config `json:"smtp"`

	// VAPID holds the web push keys. Auto-generated if empty.
	VAPID VAPID `json:"vapid"`

	Quotas     Quotas     `json:"quotas"`
	RateLimits RateLimits `json:"rate_limits"`
	Site       Site       `json:"site"`
}

// VAPID is a Web Push application server key pair.
type VAPID struct {
	PublicKey  string `json:"public_key"`
	PrivateKey string `json:"private_key"`
	// Subject is the contact URL or mailto: sent to push services.
	Subject string `json:"subject"`
}

// Site describes the public marketing site.
type Site struct {
	Name    string `json:"name"`
	BaseURL string `json:"base_url"`
	// Locale selects the language of notification emails.
	Locale string `json:"locale,omitempty"`
}

// Validate checks the site settings.
func (s *Site) Validate() error {
	if strings.TrimSpace(s.Name) == "" {
		return errors.New("name is required")
	}
	u, err := url.Parse(s.BaseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("base_url %q must be an absolute http(s) URL", s.BaseURL)
	}
	return nil
}

// Quotas defines server-wide limits. 0 means unlimited.
type Quotas struct {
	// MaxRequestBodyBytes limits the size of any single HTTP request body.
	MaxRequestBodyBytes int64 `json:"max_request_body_bytes"`
	// MaxSessionsPerUser limits active sessions per administrator.
	MaxSessionsPerUser int `json:"max_sessions_per_user"`
	// MaxThemes limits the number of stored themes.
	MaxThemes int `json:"max_themes"`
	// MaxSubmissionsPerDay limits accepted contact form submissions per UTC day.
	MaxSubmissionsPerDay int `json:"max_submissions_per_day"`
	// MaxPortfolioItems limits the number of portfolio entries.
	MaxPortfolioItems int `json:"max_portfolio_items"`
}

// Validate checks that all quota values are non-negative.
func (q *Quotas) Validate() error {
	if q.MaxRequestBodyBytes < 0 {
		return errors.New("max_request_body_bytes must be non-negative")
	}
	if q.MaxSessionsPerUser < 0 {
		return errors.New("max_sessions_per_user must be non-negative")
	}
	if q.MaxThemes < 0 {
		return errors.New("max_themes must be non-negative")
	}
	if q.MaxSubmissionsPerDay < 0 {
		return errors.New("max_submissions_per_day must be non-negative")
	}
	if q.MaxPortfolioItems < 0 {
		return errors.New("max_portfolio_items must be non-negative")
	}
	return nil
}

// DefaultQuotas returns the default server-wide quotas.
func DefaultQuotas() Quotas {
	return Quotas{
		MaxRequestBodyBytes:  1024 * 1024, // 1 MiB
		MaxSessionsPerUser:   10,
		MaxThemes:            100,
		MaxSubmissionsPerDay: 500,
		MaxPortfolioItems:    500,
	}
}

// RateLimits defines rate limiting configuration (requests per minute).
// 0 means unlimited.
type RateLimits struct {
	// AuthRatePerMin limits login attempts per IP.
	AuthRatePerMin int `json:"auth_rate_per_min"`
	// PublicWriteRatePerMin limits anonymous writes (contact form) per IP.
	PublicWriteRatePerMin int `json:"public_write_rate_per_min"`
	// WriteRatePerMin limits administrator writes per user.
	WriteRatePerMin int `json:"write_rate_per_min"`
	// ReadRatePerMin limits reads per IP or user.
	ReadRatePerMin int `json:"read_rate_per_min"`
}

// Validate checks that rate limit values are non-negative.
func (r *RateLimits) Validate() error {
	if r.AuthRatePerMin < 0 {
		return errors.New("auth_rate_per_min must be non-negative")
	}
	if r.PublicWriteRatePerMin < 0 {
		return errors.New("public_write_rate_per_min must be non-negative")
	}
	if r.WriteRatePerMin < 0 {
		return errors.New("write_rate_per_min must be non-negative")
	}
	if r.ReadRatePerMin < 0 {
		return errors.New("read_rate_per_min must be non-negative")
	}
	return nil
}

// DefaultRateLimits returns the default rate limits.
func DefaultRateLimits() RateLimits {
	return RateLimits{
		AuthRatePerMin:        5,
		PublicWriteRatePerMin: 3,
		WriteRatePerMin:       120,
		ReadRatePerMin:        6000,
	}
}

// Default returns a configuration without secrets.
func Default() ServerConfig {
	return ServerConfig{
		Quotas:     DefaultQuotas(),
		RateLimits: DefaultRateLimits(),
		Site:       Site{Name: "Showroom", BaseURL: "http://localhost:8080"},
	}
}

// Validate checks that the configuration is valid.
func (c *ServerConfig) Validate() error {
	if len(c.JWTSecret) == 0 {
		return errors.New("jwt_secret is required")
	}
	if len(c.JWTSecret) < 32 {
		return errors.New("jwt_secret must be at least 32 bytes")
	}
	if c.SMTP.Enabled() {
		if err := c.SMTP.Validate(); err != nil {
			return err
		}
	}
	if (c.VAPID.PublicKey == "") != (c.VAPID.PrivateKey == "") {
		return errors.New("vapid: public_key and private_key must be set together")
	}
	if err := c.Quotas.Validate(); err != nil {
		return fmt.Errorf("quotas: %w", err)
	}
	if err := c.RateLimits.Validate(); err != nil {
		return fmt.Errorf("rate_limits: %w", err)
	}
	if err := c.Site.Validate(); err != nil {
		return fmt.Errorf("site: %w", err)
	}
	return nil
}

// Load loads configuration from dataDir/server_config.json.
// Creates the file with defaults if it doesn't exist.
// Auto-generates the JWT secret and the VAPID keys if empty.
func Load(dataDir string) (*ServerConfig, error) {
	path := filepath.Join(dataDir, FileName)
	cfg := Default()
	modified := false
	data, err := os.ReadFile(path) //nolint:gosec // G304: path is constructed from dataDir, not user input
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("failed to read %s: %w", FileName, err)
		}
		modified = true
	} else if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", FileName, err)
	}

	if len(cfg.JWTSecret) == 0 {
		cfg.JWTSecret = make([]byte, 32)
		if _, err := rand.Read(cfg.JWTSecret); err != nil {
			return nil, fmt.Errorf("failed to generate JWT secret: %w", err)
		}
		modified = true
	}
	if cfg.VAPID.PublicKey == "" && cfg.VAPID.PrivateKey == "" {
		priv, pub, err := webpush.GenerateVAPIDKeys()
		if err != nil {
			return nil, fmt.Errorf("failed to generate VAPID keys: %w", err)
		}
		cfg.VAPID.PrivateKey = priv
		cfg.VAPID.PublicKey = pub
		modified = true
	}
	if cfg.VAPID.Subject == "" {
		cfg.VAPID.Subject = cfg.Site.BaseURL
		modified = true
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid %s: %w", FileName, err)
	}
	if modified {
		if err := cfg.Save(dataDir); err != nil {
			return nil, err
		}
	}
	return &cfg, nil
}

// Save saves configuration to dataDir/server_config.json.
func (c *ServerConfig) Save(dataDir string) error {
	if err := c.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	data = append(data, '\n')
	if err := os.WriteFile(filepath.Join(dataDir, FileName), data, 0o600); err != nil {
		return fmt.Errorf("failed to write %s: %w", FileName, err)
	}
	return nil
}
