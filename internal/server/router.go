// Package server implements the HTTP server and routing logic.
package server

//go:generate go run ../apiroutes -q

import (
	"io"
	"io/fs"
	"net/http"
	"path"
	"strings"

	"github.com/maruel/showroom/internal/registry"
	"github.com/maruel/showroom/internal/server/dto"
	"github.com/maruel/showroom/internal/server/handlers"
)

// Handlers are the built-in API handlers. Module routes come from the
// registry instead.
type Handlers struct {
	Health        *handlers.HealthHandler
	Auth          *handlers.AuthHandler
	Modules       *handlers.ModuleHandler
	Site          *handlers.SiteHandler
	Notifications *handlers.NotificationHandler
}

// NewRouter creates and configures the HTTP router.
// Serves API endpoints at /api/* and the admin SPA from spa at /. spa is
// rooted at the built assets; nil disables the SPA.
func NewRouter(env *Env, h *Handlers, reg *registry.Registry, spa fs.FS) http.Handler {
	mux := &http.ServeMux{}
	admin := RequireAdmin(env)

	// Health check
	mux.Handle("GET /api/health", Wrap(h.Health.Health, env))

	// Auth endpoints
	mux.Handle("POST /api/auth/login", Wrap(h.Auth.Login, env))
	mux.Handle("POST /api/auth/logout", admin(WrapAdmin(h.Auth.Logout, env)))
	mux.Handle("GET /api/auth/me", admin(WrapAdmin(h.Auth.GetMe, env)))
	mux.Handle("GET /api/auth/sessions", admin(WrapAdmin(h.Auth.ListSessions, env)))
	mux.Handle("DELETE /api/auth/sessions/{id}", admin(WrapAdmin(h.Auth.RevokeSession, env)))

	// Modules
	mux.Handle("GET /api/admin/modules", admin(WrapAdmin(h.Modules.ListModules, env)))
	reg.Mount(mux, admin)

	// Static site generation
	mux.Handle("GET /api/site/routes", Wrap(h.Site.Routes, env))

	// Push notifications
	mux.Handle("GET /api/notifications/vapid", Wrap(h.Notifications.VAPIDKey, env))
	mux.Handle("POST /api/admin/notifications/subscribe", admin(WrapAdmin(h.Notifications.Subscribe, env)))
	mux.Handle("DELETE /api/admin/notifications/subscribe", admin(WrapAdmin(h.Notifications.Unsubscribe, env)))

	// Unknown API paths must not fall through to the SPA.
	mux.HandleFunc("/api/", func(w http.ResponseWriter, r *http.Request) {
		writeAPIError(w, dto.NotFound("endpoint "+r.URL.Path))
	})
	if spa != nil {
		mux.Handle("/", NewSPAHandler(spa))
	}
	return mux
}

// SPAHandler serves a single-page application with fallback to index.html.
type SPAHandler struct {
	fsys  fs.FS
	files http.Handler
}

// NewSPAHandler creates a handler for the built frontend rooted at fsys.
func NewSPAHandler(fsys fs.FS) *SPAHandler {
	return &SPAHandler{fsys: fsys, files: http.FileServer(http.FS(fsys))}
}

// ServeHTTP implements http.Handler for SPA routing.
func (h *SPAHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	name := strings.TrimPrefix(path.Clean(r.URL.Path), "/")
	if name != "" {
		if st, err := fs.Stat(h.fsys, name); err == nil && !st.IsDir() {
			if path.Ext(name) != "" && name != "index.html" {
				w.Header().Set("Cache-Control", "public, max-age=3600")
			}
			h.files.ServeHTTP(w, r)
			return
		}
	}

	// File not found: fall back to index.html for client-side routing.
	index, err := h.fsys.Open("index.html")
	if err != nil {
		http.NotFound(w, r)
		return
	}
	defer func() { _ = index.Close() }()
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-cache, no-store, must-revalidate")
	_, _ = io.Copy(w, index)
}
