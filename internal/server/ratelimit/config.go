// Defines rate limit tiers and routing rules.

package ratelimit

import (
	"strings"
	"time"
)

// Scope defines how rate limit keys are determined.
type Scope int

const (
	// ScopeIP uses client IP address as the rate limit key.
	ScopeIP Scope = iota
	// ScopeUser uses authenticated user ID as the rate limit key.
	ScopeUser
)

// Tier defines a rate limit tier with its limiter and scope.
type Tier struct {
	Name    string
	Limiter *Limiter
	Scope   Scope
}

// Rates holds the per-minute request counts of each tier. Zero disables the
// tier.
type Rates struct {
	Auth        int
	PublicWrite int
	Write       int
	Read        int
}

// Config holds rate limiters for different tiers. A nil tier is unlimited.
type Config struct {
	Auth        *Tier // login, per IP
	PublicWrite *Tier // anonymous writes such as the contact form, per IP
	Write       *Tier // administrator writes, per user
	ReadAuth    *Tier // administrator reads, per user
	ReadUnauth  *Tier // public reads, per IP
}

// NewConfig creates a Config from per-minute rates. Bursts are sized so a
// short spike of legitimate traffic is not throttled.
func NewConfig(r Rates) *Config {
	return &Config{
		Auth:        newTier("auth", r.Auth, r.Auth, ScopeIP),
		PublicWrite: newTier("public_write", r.PublicWrite, r.PublicWrite, ScopeIP),
		Write:       newTier("write", r.Write, max(r.Write/6, 1), ScopeUser),
		ReadAuth:    newTier("read", r.Read, max(r.Read/6, 1), ScopeUser),
		ReadUnauth:  newTier("read", r.Read, max(r.Read/6, 1), ScopeIP),
	}
}

func newTier(name string, perMin, burst int, scope Scope) *Tier {
	if perMin <= 0 {
		return nil
	}
	return &Tier{Name: name, Limiter: NewLimiter(perMin, time.Minute, burst), Scope: scope}
}

// MatchUnauth returns the tier for unauthenticated requests.
// Returns nil for paths that should not be rate limited.
func (c *Config) MatchUnauth(method, path string) *Tier {
	if c == nil || path == "/api/health" {
		return nil
	}
	if isAuthEndpoint(method, path) {
		return c.Auth
	}
	switch method {
	case "GET", "HEAD":
		return c.ReadUnauth
	case "POST", "PUT", "PATCH", "DELETE":
		return c.PublicWrite
	}
	return nil
}

// MatchAuth returns the tier for authenticated requests.
// Returns nil for paths that should not be rate limited.
func (c *Config) MatchAuth(method, path string) *Tier {
	if c == nil || path == "/api/health" {
		return nil
	}
	// Previews render without persisting anything.
	if method == "POST" && strings.HasSuffix(path, "/preview") {
		return c.ReadAuth
	}
	switch method {
	case "POST", "PUT", "PATCH", "DELETE":
		return c.Write
	case "GET", "HEAD":
		return c.ReadAuth
	}
	return nil
}

// Close stops all limiter cleanup goroutines.
func (c *Config) Close() {
	for _, t := range []*Tier{c.Auth, c.PublicWrite, c.Write, c.ReadAuth, c.ReadUnauth} {
		if t != nil {
			t.Limiter.Close()
		}
	}
}

// isAuthEndpoint checks if the path is an authentication endpoint.
func isAuthEndpoint(method, path string) bool {
	return method == "POST" && path == "/api/auth/login"
}
