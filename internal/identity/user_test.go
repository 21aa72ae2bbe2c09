package identity

import (
	"errors"
	"path/filepath"
	"testing"
)

func newTestUserService(t *testing.T) *UserService {
	t.Helper()
	s, err := NewUserService(filepath.Join(t.TempDir(), "users.jsonl"))
	if err != nil {
		t.Fatalf("NewUserService() = %v", err)
	}
	return s
}

func TestUserService(t *testing.T) {
	s := newTestUserService(t)

	u, err := s.Create(" Admin@Example.com ", "correct horse", "Admin")
	if err != nil {
		t.Fatalf("Create() = %v", err)
	}
	if u.Email != "admin@example.com" {
		t.Errorf("email = %q, want normalized", u.Email)
	}
	if _, err := s.Create("admin@example.com", "another password", ""); !errors.Is(err, ErrUserExists) {
		t.Errorf("duplicate: err = %v", err)
	}
	if _, err := s.Create("short@example.com", "short", ""); !errors.Is(err, errPasswordTooShort) {
		t.Errorf("short password: err = %v", err)
	}
	if _, err := s.Create("not an email", "long enough pwd", ""); err == nil {
		t.Error("invalid email accepted")
	}

	t.Run("Authenticate", func(t *testing.T) {
		got, err := s.Authenticate("ADMIN@example.com", "correct horse")
		if err != nil {
			t.Fatalf("Authenticate() = %v", err)
		}
		if got.ID != u.ID {
			t.Errorf("id = %s, want %s", got.ID, u.ID)
		}
		if _, err := s.Authenticate("admin@example.com", "wrong"); !errors.Is(err, ErrInvalidCredentials) {
			t.Errorf("wrong password: err = %v", err)
		}
		if _, err := s.Authenticate("nobody@example.com", "correct horse"); !errors.Is(err, ErrInvalidCredentials) {
			t.Errorf("unknown user: err = %v", err)
		}
	})

	t.Run("SetPassword", func(t *testing.T) {
		if err := s.SetPassword(u.ID, "battery staple"); err != nil {
			t.Fatal(err)
		}
		if _, err := s.Authenticate("admin@example.com", "battery staple"); err != nil {
			t.Errorf("new password rejected: %v", err)
		}
		if _, err := s.Authenticate("admin@example.com", "correct horse"); err == nil {
			t.Error("old password still accepted")
		}
	})
}

func TestUserBootstrap(t *testing.T) {
	s := newTestUserService(t)
	if _, err := s.Bootstrap("", ""); err == nil {
		t.Error("Bootstrap without credentials succeeded on empty table")
	}
	u, err := s.Bootstrap("owner@example.com", "long enough pwd")
	if err != nil {
		t.Fatal(err)
	}
	if u == nil || u.Name != "owner" {
		t.Fatalf("Bootstrap() = %+v", u)
	}
	again, err := s.Bootstrap("", "")
	if err != nil || again != nil {
		t.Errorf("second Bootstrap() = %v, %v; want nil, nil", again, err)
	}
}
