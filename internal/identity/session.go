package identity

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"iter"
	"time"

	"github.com/maruel/ksid"
	"github.com/maruel/showroom/internal/jsonldb"
)

var (
	// ErrSessionNotFound is returned when a session does not exist.
	ErrSessionNotFound = errors.New("session not found")
	// ErrSessionQuotaExceeded is returned when a user has too many active sessions.
	ErrSessionQuotaExceeded = errors.New("maximum number of active sessions exceeded")

	errSessionIDRequired        = errors.New("session id is required")
	errSessionUserIDRequired    = errors.New("session user_id is required")
	errSessionTokenHashRequired = errors.New("session token_hash is required")
)

// Session is a login session. The JWT itself is never stored, only its hash.
type Session struct {
	ID          ksid.ID   `json:"id" jsonschema:"description=Unique session identifier"`
	UserID      ksid.ID   `json:"user_id" jsonschema:"description=User who owns this session"`
	TokenHash   string    `json:"token_hash" jsonschema:"description=SHA-256 hash of the JWT token"`
	DeviceInfo  string    `json:"device_info,omitempty" jsonschema:"description=User-Agent at login"`
	IPAddress   string    `json:"ip_address,omitempty" jsonschema:"description=Client IP address at login"`
	CountryCode string    `json:"country_code,omitempty" jsonschema:"description=ISO 3166-1 alpha-2 country code at login"`
	Created     time.Time `json:"created"`
	ExpiresAt   time.Time `json:"expires_at"`
	RevokedAt   time.Time `json:"revoked_at,omitzero"`
}

// Clone returns a copy of the session.
func (s *Session) Clone() *Session {
	c := *s
	return &c
}

// GetID returns the session ID.
func (s *Session) GetID() ksid.ID {
	return s.ID
}

// Validate checks required fields.
func (s *Session) Validate() error {
	if s.ID.IsZero() {
		return errSessionIDRequired
	}
	if s.UserID.IsZero() {
		return errSessionUserIDRequired
	}
	if s.TokenHash == "" {
		return errSessionTokenHashRequired
	}
	return nil
}

// Active reports whether the session is neither revoked nor expired at now.
func (s *Session) Active(now time.Time) bool {
	return s.RevokedAt.IsZero() && s.ExpiresAt.After(now)
}

// SessionService handles session persistence.
type SessionService struct {
	table    *jsonldb.Table[*Session]
	byUserID *jsonldb.Index[ksid.ID, *Session]
}

// NewSessionService opens the sessions table.
func NewSessionService(tablePath string) (*SessionService, error) {
	table, err := jsonldb.NewTable[*Session](tablePath)
	if err != nil {
		return nil, err
	}
	byUserID := jsonldb.NewIndex(table, func(s *Session) ksid.ID { return s.UserID })
	return &SessionService{table: table, byUserID: byUserID}, nil
}

// Create records a session with a pre-generated ID, so the ID can be embedded
// in the JWT before the session is stored. maxSessions <= 0 disables the quota.
func (s *SessionService) Create(id, userID ksid.ID, token, deviceInfo, ipAddress, countryCode string, expiresAt time.Time, maxSessions int) (*Session, error) {
	if maxSessions > 0 {
		n := 0
		for range s.ActiveByUser(userID) {
			n++
		}
		if n >= maxSessions {
			return nil, ErrSessionQuotaExceeded
		}
	}
	if len(deviceInfo) > 200 {
		deviceInfo = deviceInfo[:200]
	}
	session := &Session{
		ID:          id,
		UserID:      userID,
		TokenHash:   HashToken(token),
		DeviceInfo:  deviceInfo,
		IPAddress:   ipAddress,
		CountryCode: countryCode,
		Created:     time.Now().UTC(),
		ExpiresAt:   expiresAt.UTC(),
	}
	if err := s.table.Append(session); err != nil {
		return nil, err
	}
	return session.Clone(), nil
}

// Get retrieves a session.
func (s *SessionService) Get(id ksid.ID) (*Session, error) {
	session := s.table.Get(id)
	if session == nil {
		return nil, ErrSessionNotFound
	}
	return session, nil
}

// ActiveByUser iterates over the active sessions of a user.
func (s *SessionService) ActiveByUser(userID ksid.ID) iter.Seq[*Session] {
	now := time.Now()
	return func(yield func(*Session) bool) {
		for session := range s.byUserID.Iter(userID) {
			if session.Active(now) && !yield(session) {
				return
			}
		}
	}
}

// IsValid reports whether the session exists, is active and was issued for
// token.
func (s *SessionService) IsValid(id ksid.ID, token string) (bool, error) {
	session := s.table.Get(id)
	if session == nil {
		return false, ErrSessionNotFound
	}
	return session.Active(time.Now()) && session.TokenHash == HashToken(token), nil
}

// Revoke marks a session as revoked. Revoking twice is a no-op.
func (s *SessionService) Revoke(id ksid.ID) error {
	_, err := s.table.Modify(id, func(session *Session) error {
		if session.RevokedAt.IsZero() {
			session.RevokedAt = time.Now().UTC()
		}
		return nil
	})
	if errors.Is(err, jsonldb.ErrNotFound) {
		return ErrSessionNotFound
	}
	return err
}

// CleanupExpired deletes sessions expired for longer than olderThan.
func (s *SessionService) CleanupExpired(olderThan time.Duration) (int, error) {
	cutoff := time.Now().Add(-olderThan)
	var ids []ksid.ID
	for session := range s.table.All() {
		if session.ExpiresAt.Before(cutoff) {
			ids = append(ids, session.ID)
		}
	}
	for i, id := range ids {
		if _, err := s.table.Delete(id); err != nil {
			return i, err
		}
	}
	return len(ids), nil
}

// HashToken returns the hex SHA-256 of a token.
func HashToken(token string) string {
	h := sha256.Sum256([]byte(token))
	return hex.EncodeToString(h[:])
}
