// Handles administrator login, logout and session management.

package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/maruel/ksid"
	"github.com/maruel/showroom/internal/identity"
	"github.com/maruel/showroom/internal/server/dto"
	"github.com/maruel/showroom/internal/server/reqctx"
)

// TokenExpiration is the lifetime of a session token.
const TokenExpiration = 24 * time.Hour

// AuthHandler handles authentication requests.
type AuthHandler struct {
	users       *identity.UserService
	sessions    *identity.SessionService
	jwtSecret   []byte
	maxSessions int
}

// NewAuthHandler creates a new auth handler.
func NewAuthHandler(users *identity.UserService, sessions *identity.SessionService, jwtSecret string, maxSessions int) *AuthHandler {
	return &AuthHandler{
		users:       users,
		sessions:    sessions,
		jwtSecret:   []byte(jwtSecret),
		maxSessions: maxSessions,
	}
}

// Login checks the credentials and opens a session.
func (h *AuthHandler) Login(ctx context.Context, req *dto.LoginRequest) (*dto.LoginResponse, error) {
	user, err := h.users.Authenticate(req.Email, req.Password)
	if err != nil {
		if errors.Is(err, identity.ErrInvalidCredentials) {
			slog.InfoContext(ctx, "Failed login", "email", req.Email, "ip", reqctx.ClientIP(ctx))
			return nil, dto.NewAPIError(http.StatusUnauthorized, dto.ErrorCodeUnauthorized, "Invalid credentials")
		}
		return nil, dto.InternalWithError("Failed to authenticate", err)
	}
	token, expiresAt, err := h.GenerateTokenWithSession(ctx, user)
	if errors.Is(err, identity.ErrSessionQuotaExceeded) {
		return nil, dto.QuotaExceeded("session")
	}
	if err != nil {
		return nil, dto.InternalWithError("Failed to generate token", err)
	}
	return &dto.LoginResponse{Token: token, ExpiresAt: expiresAt, User: userToResponse(user)}, nil
}

// GenerateTokenWithSession creates a session and signs a JWT carrying its ID.
func (h *AuthHandler) GenerateTokenWithSession(ctx context.Context, user *identity.User) (string, time.Time, error) {
	now := time.Now()
	expiresAt := now.Add(TokenExpiration)
	// Pre-generate the session ID so it can be embedded in the token.
	sessionID := ksid.NewID()
	claims := jwt.MapClaims{
		"sub":   user.ID.String(),
		"email": user.Email,
		"sid":   sessionID.String(),
		"exp":   expiresAt.Unix(),
		"iat":   now.Unix(),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(h.jwtSecret)
	if err != nil {
		return "", time.Time{}, err
	}
	if _, err := h.sessions.Create(sessionID, user.ID, token, reqctx.UserAgent(ctx), reqctx.ClientIP(ctx), reqctx.CountryCode(ctx), expiresAt, h.maxSessions); err != nil {
		return "", time.Time{}, err
	}
	return token, expiresAt, nil
}

// Logout revokes the session of the calling token.
func (h *AuthHandler) Logout(ctx context.Context, _ *identity.User, _ *dto.LogoutRequest) (*dto.OkResponse, error) {
	sessionID := reqctx.SessionID(ctx)
	if sessionID.IsZero() {
		return &dto.OkResponse{Ok: true}, nil
	}
	if err := h.sessions.Revoke(sessionID); err != nil {
		slog.ErrorContext(ctx, "Failed to revoke session", "err", err, "session_id", sessionID)
		return nil, dto.InternalWithError("Failed to logout", err)
	}
	return &dto.OkResponse{Ok: true}, nil
}

// GetMe returns the calling administrator.
func (h *AuthHandler) GetMe(_ context.Context, user *identity.User, _ *dto.GetMeRequest) (*dto.UserResponse, error) {
	return userToResponse(user), nil
}

// ListSessions returns the live sessions of the caller.
func (h *AuthHandler) ListSessions(ctx context.Context, user *identity.User, _ *dto.ListSessionsRequest) (*dto.ListSessionsResponse, error) {
	current := reqctx.SessionID(ctx)
	out := make([]dto.SessionResponse, 0, 4)
	for s := range h.sessions.ActiveByUser(user.ID) {
		out = append(out, dto.SessionResponse{
			ID:          s.ID,
			DeviceInfo:  s.DeviceInfo,
			IPAddress:   s.IPAddress,
			CountryCode: s.CountryCode,
			Created:     s.Created,
			ExpiresAt:   s.ExpiresAt,
			IsCurrent:   s.ID == current,
		})
	}
	return &dto.ListSessionsResponse{Sessions: out}, nil
}

// RevokeSession revokes one of the caller's sessions.
func (h *AuthHandler) RevokeSession(_ context.Context, user *identity.User, req *dto.IDRequest) (*dto.OkResponse, error) {
	s, err := h.sessions.Get(req.ID)
	if err != nil {
		return nil, dto.NotFound("session")
	}
	if s.UserID != user.ID {
		return nil, dto.Forbidden("Cannot revoke another user's session")
	}
	if err := h.sessions.Revoke(req.ID); err != nil {
		return nil, dto.InternalWithError("Failed to revoke session", err)
	}
	return &dto.OkResponse{Ok: true}, nil
}

func userToResponse(u *identity.User) *dto.UserResponse {
	return &dto.UserResponse{ID: u.ID, Email: u.Email, Name: u.Name, Created: u.Created}
}
