package registry

import (
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func text(s string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, s+":"+r.PathValue("id"))
	})
}

func TestRegister(t *testing.T) {
	r := New()
	themes := Module{
		Name:  "themes",
		Title: "Themes",
		Order: 10,
		Routes: []Route{
			{Method: http.MethodGet, Pattern: "", Handler: text("list")},
			{Method: http.MethodGet, Pattern: "/{id}", Handler: text("get")},
		},
		Nav:    []NavItem{{ID: "themes", Label: "Themes", Path: "/admin/themes", Section: "design"}},
		Tables: []string{"themes"},
	}
	if err := r.Register(themes); err != nil {
		t.Fatalf("Register() = %v", err)
	}

	tests := []struct {
		name    string
		m       Module
		wantErr error
	}{
		{"duplicate name", Module{Name: "themes", Title: "T"}, ErrDuplicateModule},
		{"conflicting wildcard", Module{Name: "other", Title: "O", Routes: []Route{
			{Method: http.MethodGet, Pattern: "/{slug}", Handler: text("x")},
			{Method: http.MethodGet, Pattern: "/{id}", Handler: text("x")},
		}}, ErrDuplicateRoute},
		{"duplicate nav", Module{Name: "other", Title: "O", Nav: []NavItem{{ID: "themes", Label: "X", Path: "/x"}}}, ErrDuplicateNav},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := r.Register(tt.m); !errors.Is(err, tt.wantErr) {
				t.Errorf("err = %v, want %v", err, tt.wantErr)
			}
		})
	}

	for _, bad := range []Module{
		{Name: "", Title: "x"},
		{Name: "Bad_Name", Title: "x"},
		{Name: "auth", Title: "x"},
		{Name: "notitle"},
		{Name: "m", Title: "x", Routes: []Route{{Method: "TRACE", Pattern: "", Handler: text("x")}}},
		{Name: "m", Title: "x", Routes: []Route{{Method: http.MethodGet, Pattern: "nope", Handler: text("x")}}},
		{Name: "m", Title: "x", Routes: []Route{{Method: http.MethodGet, Pattern: "/x"}}},
		{Name: "m", Title: "x", Nav: []NavItem{{ID: "n", Label: "N", Path: "relative"}}},
	} {
		if err := r.Register(bad); err == nil {
			t.Errorf("Register(%+v) succeeded", bad)
		}
	}
	if names := r.Names(); len(names) != 1 {
		t.Errorf("rejected modules were partially registered: %v", names)
	}
}

func TestNav(t *testing.T) {
	r := New()
	mods := []Module{
		{Name: "submissions", Title: "Submissions", Order: 20, Nav: []NavItem{{ID: "inbox", Label: "Inbox", Path: "/admin/inbox"}}},
		{Name: "themes", Title: "Themes", Order: 10, Nav: []NavItem{
			{ID: "themes", Label: "Themes", Path: "/admin/themes", Section: "design", Order: 2},
			{ID: "publish", Label: "Publish", Path: "/admin/publish", Section: "design", Order: 1},
		}},
		{Name: "portfolio", Title: "Portfolio", Order: 20, Nav: []NavItem{{ID: "portfolio", Label: "Portfolio", Path: "/admin/portfolio"}}},
	}
	for _, m := range mods {
		if err := r.Register(m); err != nil {
			t.Fatal(err)
		}
	}
	got := r.Modules()
	if got[0].Name != "themes" || got[1].Name != "portfolio" || got[2].Name != "submissions" {
		t.Errorf("Modules() order = %s, %s, %s", got[0].Name, got[1].Name, got[2].Name)
	}
	nav := r.Nav()
	if len(nav) != 2 || nav[0].Name != "design" || nav[1].Name != DefaultSection {
		t.Fatalf("Nav() = %+v", nav)
	}
	if nav[0].Items[0].ID != "publish" {
		t.Errorf("design items not sorted by order: %+v", nav[0].Items)
	}
	if len(nav[1].Items) != 2 || nav[1].Items[0].ID != "inbox" {
		t.Errorf("content items = %+v", nav[1].Items)
	}
	if m, ok := r.Lookup("themes"); !ok || m.Title != "Themes" {
		t.Errorf("Lookup() = %+v, %v", m, ok)
	}
}

func TestMount(t *testing.T) {
	r := New()
	err := r.Register(Module{
		Name:  "submissions",
		Title: "Submissions",
		Routes: []Route{
			{Method: http.MethodPost, Pattern: "", Handler: text("create"), Public: true},
			{Method: http.MethodGet, Pattern: "/{id}", Handler: text("get")},
		},
		Tables: []string{"submissions"},
	})
	if err != nil {
		t.Fatal(err)
	}
	guard := func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Header.Get("Authorization") == "" {
				http.Error(w, "no", http.StatusUnauthorized)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
	mux := http.NewServeMux()
	r.Mount(mux, guard)

	tests := []struct {
		method, path string
		auth         bool
		code         int
		body         string
	}{
		{http.MethodPost, "/api/submissions", false, http.StatusOK, "create:"},
		{http.MethodGet, "/api/admin/submissions/abc", false, http.StatusUnauthorized, ""},
		{http.MethodGet, "/api/admin/submissions/abc", true, http.StatusOK, "get:abc"},
	}
	for _, tt := range tests {
		req := httptest.NewRequest(tt.method, tt.path, nil)
		if tt.auth {
			req.Header.Set("Authorization", "Bearer x")
		}
		w := httptest.NewRecorder()
		mux.ServeHTTP(w, req)
		if w.Code != tt.code {
			t.Errorf("%s %s: code = %d, want %d", tt.method, tt.path, w.Code, tt.code)
		}
		if tt.body != "" && !strings.HasPrefix(w.Body.String(), tt.body) {
			t.Errorf("%s %s: body = %q", tt.method, tt.path, w.Body.String())
		}
	}
	if err := r.Register(Module{Name: "late", Title: "Late"}); !errors.Is(err, ErrSealed) {
		t.Errorf("register after mount: err = %v", err)
	}
	if got := r.Tables(); len(got) != 1 || got[0] != "submissions" {
		t.Errorf("Tables() = %v", got)
	}
}
