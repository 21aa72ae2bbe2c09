// Request and response types for administrator authentication.

package dto

import (
	"net/mail"
	"strings"
	"time"

	"github.com/maruel/ksid"
)

// LoginRequest is a request to log in with email and password.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Validate validates the login request fields.
func (r *LoginRequest) Validate() error {
	if r.Email == "" {
		return MissingField("email")
	}
	if r.Password == "" {
		return MissingField("password")
	}
	return nil
}

// LogoutRequest revokes the session of the calling token.
type LogoutRequest struct{}

// Validate is a no-op.
func (r *LogoutRequest) Validate() error {
	return nil
}

// GetMeRequest returns the calling administrator.
type GetMeRequest struct{}

// Validate is a no-op.
func (r *GetMeRequest) Validate() error {
	return nil
}

// UserResponse is an administrator account.
type UserResponse struct {
	ID      ksid.ID   `json:"id"`
	Email   string    `json:"email"`
	Name    string    `json:"name"`
	Created time.Time `json:"created"`
}

// LoginResponse carries the bearer token of a new session.
type LoginResponse struct {
	Token     string        `json:"token"`
	ExpiresAt time.Time     `json:"expires_at"`
	User      *UserResponse `json:"user"`
}

// HealthRequest is a request to check server health.
type HealthRequest struct{}

// Validate is a no-op.
func (r *HealthRequest) Validate() error {
	return nil
}

// HealthResponse reports the server status.
type HealthResponse struct {
	Status    string `json:"status"`
	Version   string `json:"version"`
	GoVersion string `json:"go_version"`
	Revision  string `json:"revision,omitempty"`
	Dirty     bool   `json:"dirty,omitempty"`
}

func validateEmail(field, s string) error {
	s = strings.TrimSpace(s)
	if s == "" {
		return MissingField(field)
	}
	if _, err := mail.ParseAddress(s); err != nil {
		return InvalidField(field, "must be an email address")
	}
	return nil
}

// ListSessionsRequest lists the live sessions of the caller.
type ListSessionsRequest struct{}

// Validate is a no-op.
func (r *ListSessionsRequest) Validate() error {
	return nil
}

// SessionResponse is a login session.
type SessionResponse struct {
	ID          ksid.ID   `json:"id"`
	DeviceInfo  string    `json:"device_info,omitempty"`
	IPAddress   string    `json:"ip_address,omitempty"`
	CountryCode string    `json:"country_code,omitempty"`
	Created     time.Time `json:"created"`
	ExpiresAt   time.Time `json:"expires_at"`
	IsCurrent   bool      `json:"is_current"`
}

// ListSessionsResponse lists live sessions, oldest first.
type ListSessionsResponse struct {
	Sessions []SessionResponse `json:"sessions"`
}
