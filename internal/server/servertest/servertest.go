// Package servertest runs registry modules behind the real wrappers and auth
// guard for handler tests.
package servertest

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/maruel/showroom/internal/config"
	"github.com/maruel/showroom/internal/identity"
	"github.com/maruel/showroom/internal/registry"
	"github.com/maruel/showroom/internal/server"
	"github.com/maruel/showroom/internal/server/handlers"
	"github.com/maruel/showroom/internal/server/reqctx"
)

// Env is a test server environment with one logged-in administrator.
type Env struct {
	*server.Env
	Dir   string
	User  *identity.User
	Token string
	srv   *httptest.Server
}

// New returns an environment with rate limiting disabled. Call Serve once
// the modules are built from e.Env.
func New(t testing.TB) *Env {
	t.Helper()
	dir := t.TempDir()
	users, err := identity.NewUserService(filepath.Join(dir, "users.jsonl"))
	if err != nil {
		t.Fatal(err)
	}
	sessions, err := identity.NewSessionService(filepath.Join(dir, "sessions.jsonl"))
	if err != nil {
		t.Fatal(err)
	}
	cfg := config.Default()
	cfg.JWTSecret = []byte("servertest-secret-0123456789abcdef")
	user, err := users.Create("admin@example.com", "correct-horse", "Admin")
	if err != nil {
		t.Fatal(err)
	}
	auth := handlers.NewAuthHandler(users, sessions, string(cfg.JWTSecret), 0)
	ctx := reqctx.WithClientIP(context.Background(), "127.0.0.1")
	token, _, err := auth.GenerateTokenWithSession(ctx, user)
	if err != nil {
		t.Fatal(err)
	}
	return &Env{
		Env:   &server.Env{Cfg: &cfg, Users: users, Sessions: sessions},
		Dir:   dir,
		User:  user,
		Token: token,
	}
}

// Serve registers the modules and starts the test server.
func (e *Env) Serve(t testing.TB, mods ...registry.Module) {
	t.Helper()
	reg := registry.New()
	for _, m := range mods {
		if err := reg.Register(m); err != nil {
			t.Fatal(err)
		}
	}
	mux := &http.ServeMux{}
	reg.Mount(mux, server.RequireAdmin(e.Env))
	e.srv = httptest.NewServer(mux)
	t.Cleanup(e.srv.Close)
}

// Do performs a JSON request, decodes the response into out when non-nil and
// returns the status code. An empty token sends no Authorization header.
func (e *Env) Do(t testing.TB, method, path string, body, out any, token string) int {
	t.Helper()
	var r io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("Marshal request body: %v", err)
		}
		r = bytes.NewReader(data)
	}
	req, err := http.NewRequest(method, e.srv.URL+path, r)
	if err != nil {
		t.Fatalf("NewRequest: %v", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("Do request: %v", err)
	}
	data, err := io.ReadAll(resp.Body)
	if closeErr := resp.Body.Close(); closeErr != nil && err == nil {
		err = closeErr
	}
	if err != nil {
		t.Fatalf("ReadAll/Close: %v", err)
	}
	if out != nil && len(data) > 0 && resp.StatusCode < 300 {
		if err := json.Unmarshal(data, out); err != nil {
			t.Fatalf("Unmarshal response: %v\nBody: %s", err, data)
		}
	}
	return resp.StatusCode
}

// Admin is Do with the administrator token.
func (e *Env) Admin(t testing.TB, method, path string, body, out any) int {
	t.Helper()
	return e.Do(t, method, path, body, out, e.Token)
}
