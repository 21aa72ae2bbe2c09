// Package reqctx carries per-request metadata through context.Context: the
// client address, its country and the authenticated administrator.
package reqctx

import (
	"context"
	"net"
	"net/http"
	"net/netip"
	"strings"

	"github.com/maruel/ksid"
	"github.com/maruel/showroom/internal/identity"
)

// GetClientIP returns the client address of r. The leftmost parseable entry
// of X-Forwarded-For wins, then X-Real-IP, then RemoteAddr without its port.
func GetClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		for part := range strings.SplitSeq(xff, ",") {
			if addr, err := netip.ParseAddr(strings.TrimSpace(part)); err == nil {
				return addr.String()
			}
		}
	}
	if xri := strings.TrimSpace(r.Header.Get("X-Real-IP")); xri != "" {
		return xri
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return strings.Trim(r.RemoteAddr, "[]")
}

type contextKey int

const (
	keyClientIP contextKey = iota
	keyUserAgent
	keyCountryCode
	keySessionID
	keyTokenString
	keyUser
)

func value[T any](ctx context.Context, k contextKey) T {
	v, _ := ctx.Value(k).(T)
	return v
}

// WithClientIP adds the client IP to the context.
func WithClientIP(ctx context.Context, ip string) context.Context {
	return context.WithValue(ctx, keyClientIP, ip)
}

// ClientIP extracts the client IP from the context.
func ClientIP(ctx context.Context) string {
	return value[string](ctx, keyClientIP)
}

// WithUserAgent adds the User-Agent to the context.
func WithUserAgent(ctx context.Context, ua string) context.Context {
	return context.WithValue(ctx, keyUserAgent, ua)
}

// UserAgent extracts the User-Agent from the context.
func UserAgent(ctx context.Context) string {
	return value[string](ctx, keyUserAgent)
}

// WithCountryCode adds the country code to the context.
func WithCountryCode(ctx context.Context, cc string) context.Context {
	return context.WithValue(ctx, keyCountryCode, cc)
}

// CountryCode extracts the country code from the context.
func CountryCode(ctx context.Context) string {
	return value[string](ctx, keyCountryCode)
}

// WithSessionID adds the session ID to the context.
func WithSessionID(ctx context.Context, id ksid.ID) context.Context {
	return context.WithValue(ctx, keySessionID, id)
}

// SessionID extracts the session ID from the context.
func SessionID(ctx context.Context) ksid.ID {
	return value[ksid.ID](ctx, keySessionID)
}

// WithTokenString adds the JWT token string to the context.
func WithTokenString(ctx context.Context, token string) context.Context {
	return context.WithValue(ctx, keyTokenString, token)
}

// TokenString extracts the JWT token string from the context.
func TokenString(ctx context.Context) string {
	return value[string](ctx, keyTokenString)
}

// WithUser adds the authenticated administrator to the context.
func WithUser(ctx context.Context, user *identity.User) context.Context {
	return context.WithValue(ctx, keyUser, user)
}

// User extracts the authenticated administrator from the context, or nil.
func User(ctx context.Context) *identity.User {
	return value[*identity.User](ctx, keyUser)
}
