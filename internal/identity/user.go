// Package identity stores the back-office administrators, their login
// sessions and their web push subscriptions in JSONL tables.
package identity

import (
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/maruel/ksid"
	"github.com/maruel/showroom/internal/jsonldb"
	"golang.org/x/crypto/bcrypt"
)

var (
	// ErrUserNotFound is returned when a user does not exist.
	ErrUserNotFound = errors.New("user not found")
	// ErrUserExists is returned when the email is already registered.
	ErrUserExists = errors.New("user already exists")
	// ErrInvalidCredentials is returned when the email or password is wrong.
	ErrInvalidCredentials = errors.New("invalid credentials")

	errUserIDRequired   = errors.New("id is required")
	errEmailInvalid     = errors.New("email is invalid")
	errEmailPwdRequired = errors.New("email and password are required")
	errPasswordTooShort = errors.New("password must be at least 8 characters")
)

// minPasswordLen is the shortest accepted password.
const minPasswordLen = 8

// User is a back-office administrator.
type User struct {
	ID       ksid.ID   `json:"id" jsonschema:"description=Unique user identifier"`
	Email    string    `json:"email" jsonschema:"description=Login email address"`
	Name     string    `json:"name" jsonschema:"description=Display name"`
	Created  time.Time `json:"created"`
	Modified time.Time `json:"modified"`
}

type userStorage struct {
	User
	PasswordHash string `json:"password_hash" jsonschema:"description=Bcrypt-hashed password"`
}

func (u *userStorage) Clone() *userStorage {
	c := *u
	return &c
}

func (u *userStorage) GetID() ksid.ID {
	return u.ID
}

func (u *userStorage) Validate() error {
	if u.ID.IsZero() {
		return errUserIDRequired
	}
	if _, err := mail.ParseAddress(u.Email); err != nil {
		return errEmailInvalid
	}
	return nil
}

// UserService handles administrators and password authentication.
type UserService struct {
	table   *jsonldb.Table[*userStorage]
	byEmail *jsonldb.UniqueIndex[string, *userStorage]
}

// NewUserService opens the users table.
func NewUserService(tablePath string) (*UserService, error) {
	table, err := jsonldb.NewTable[*userStorage](tablePath)
	if err != nil {
		return nil, err
	}
	byEmail := jsonldb.NewUniqueIndex(table, func(u *userStorage) string { return u.Email })
	return &UserService{table: table, byEmail: byEmail}, nil
}

// Create registers a new administrator.
func (s *UserService) Create(email, password, name string) (*User, error) {
	email = normalizeEmail(email)
	if email == "" || password == "" {
		return nil, errEmailPwdRequired
	}
	if len(password) < minPasswordLen {
		return nil, errPasswordTooShort
	}
	if s.byEmail.Get(email) != nil {
		return nil, ErrUserExists
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}
	now := time.Now().UTC()
	stored := &userStorage{
		User: User{
			ID:       ksid.NewID(),
			Email:    email,
			Name:     strings.TrimSpace(name),
			Created:  now,
			Modified: now,
		},
		PasswordHash: string(hash),
	}
	if err := s.table.Append(stored); err != nil {
		return nil, err
	}
	user := stored.User
	return &user, nil
}

// Get retrieves a user by ID.
func (s *UserService) Get(id ksid.ID) (*User, error) {
	stored := s.table.Get(id)
	if stored == nil {
		return nil, ErrUserNotFound
	}
	user := stored.User
	return &user, nil
}

// GetByEmail retrieves a user by email.
func (s *UserService) GetByEmail(email string) (*User, error) {
	stored := s.byEmail.Get(normalizeEmail(email))
	if stored == nil {
		return nil, ErrUserNotFound
	}
	user := stored.User
	return &user, nil
}

// Count returns the number of users.
func (s *UserService) Count() int {
	return s.table.Len()
}

// Authenticate verifies the credentials.
func (s *UserService) Authenticate(email, password string) (*User, error) {
	stored := s.byEmail.Get(normalizeEmail(email))
	if stored == nil {
		// Spend the same time as a real comparison.
		_ = bcrypt.CompareHashAndPassword(dummyHash, []byte(password))
		return nil, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(stored.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}
	user := stored.User
	return &user, nil
}

// SetPassword replaces the password of a user.
func (s *UserService) SetPassword(id ksid.ID, password string) error {
	if len(password) < minPasswordLen {
		return errPasswordTooShort
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}
	_, err = s.table.Modify(id, func(u *userStorage) error {
		u.PasswordHash = string(hash)
		u.Modified = time.Now().UTC()
		return nil
	})
	if errors.Is(err, jsonldb.ErrNotFound) {
		return ErrUserNotFound
	}
	return err
}

// Bootstrap creates the initial administrator when no user exists yet.
// It returns the created user, or nil when users already exist.
func (s *UserService) Bootstrap(email, password string) (*User, error) {
	if s.Count() != 0 {
		return nil, nil
	}
	if email == "" || password == "" {
		return nil, errors.New("no administrator exists: set ADMIN_EMAIL and ADMIN_PASSWORD")
	}
	name, _, _ := strings.Cut(email, "@")
	return s.Create(email, password, name)
}

var dummyHash, _ = bcrypt.GenerateFromPassword([]byte("showroom-dummy-password"), bcrypt.DefaultCost)

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
