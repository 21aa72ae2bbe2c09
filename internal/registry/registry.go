// Package registry is the module plugin registry: self-contained admin
// features register their HTTP routes and navigation entries at startup and
// the server mounts them.
package registry

import (
	"errors"
	"fmt"
	"net/http"
	"regexp"
	"slices"
	"strings"
	"sync"
)

var (
	// ErrDuplicateModule is returned when a module name is already registered.
	ErrDuplicateModule = errors.New("module already registered")
	// ErrDuplicateRoute is returned when two routes share method and path.
	ErrDuplicateRoute = errors.New("route already registered")
	// ErrDuplicateNav is returned when two navigation entries share an ID.
	ErrDuplicateNav = errors.New("navigation entry already registered")
	// ErrSealed is returned when registering after Mount.
	ErrSealed = errors.New("registry is already mounted")
)

// AdminPrefix and PublicPrefix are the path prefixes of module routes.
const (
	AdminPrefix  = "/api/admin/"
	PublicPrefix = "/api/"
)

// DefaultSection is the navigation section used when a NavItem has none.
const DefaultSection = "content"

// Route is an HTTP endpoint of a module.
type Route struct {
	Method string
	// Pattern is relative to the module prefix. It is empty or starts with
	// "/" and may hold http.ServeMux wildcards like {id}.
	Pattern string
	Handler http.Handler
	// Public routes are mounted under /api/<module> without the auth guard.
	Public bool
}

// NavItem is an entry of the admin navigation.
type NavItem struct {
	ID      string `json:"id"`
	Label   string `json:"label"`
	Path    string `json:"path"`
	Icon    string `json:"icon,omitempty"`
	Section string `json:"section"`
	Order   int    `json:"order"`
}

// Module is a self-contained admin feature.
type Module struct {
	Name        string
	Title       string
	Description string
	Icon        string
	Order       int
	Routes      []Route
	Nav         []NavItem
	// Tables lists the data tables owned by the module.
	Tables []string
}

// Path returns the full request path of a route of module name.
func (r *Route) Path(module string) string {
	prefix := AdminPrefix
	if r.Public {
		prefix = PublicPrefix
	}
	return prefix + module + r.Pattern
}

// NavSection is a group of navigation entries.
type NavSection struct {
	Name  string    `json:"name"`
	Items []NavItem `json:"items"`
}

// Registry holds the registered modules. It is safe for concurrent use.
type Registry struct {
	mu      sync.RWMutex
	modules map[string]*Module
	routes  map[string]string
	nav     map[string]string
	sealed  bool
}

// New returns an empty registry.
func New() *Registry {
	return &Registry{
		modules: map[string]*Module{},
		routes:  map[string]string{},
		nav:     map[string]string{},
	}
}

var (
	nameRe    = regexp.MustCompile(`^[a-z][a-z0-9]*(-[a-z0-9]+)*$`)
	methods   = []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete}
	reserved  = []string{"auth", "admin", "health", "modules", "site", "notifications"}
	patternRe = regexp.MustCompile(`^(/([a-z0-9._-]+|\{[a-zA-Z][a-zA-Z0-9_]*(\.\.\.)?\}))*$`)
)

// wildcardRe strips wildcard names so {id} and {slug} conflict.
var wildcardRe = regexp.MustCompile(`\{([a-zA-Z][a-zA-Z0-9_]*)(\.\.\.)?\}`)

// Register adds a module. The whole module is rejected when any route or
// navigation entry conflicts with an existing one.
func (r *Registry) Register(m Module) error {
	if !nameRe.MatchString(m.Name) {
		return fmt.Errorf("invalid module name %q: must be kebab-case", m.Name)
	}
	if slices.Contains(reserved, m.Name) {
		return fmt.Errorf("module name %q is reserved", m.Name)
	}
	if strings.TrimSpace(m.Title) == "" {
		return fmt.Errorf("module %q: title is required", m.Name)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.sealed {
		return ErrSealed
	}
	if _, ok := r.modules[m.Name]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicateModule, m.Name)
	}

	routes := map[string]bool{}
	for i := range m.Routes {
		rt := &m.Routes[i]
		if !slices.Contains(methods, rt.Method) {
			return fmt.Errorf("module %q: unsupported method %q", m.Name, rt.Method)
		}
		if !patternRe.MatchString(rt.Pattern) {
			return fmt.Errorf("module %q: invalid pattern %q", m.Name, rt.Pattern)
		}
		if rt.Handler == nil {
			return fmt.Errorf("module %q: %s %s has no handler", m.Name, rt.Method, rt.Pattern)
		}
		key := routeKey(rt.Method, wildcardRe.ReplaceAllString(rt.Path(m.Name), "{$2}"))
		if owner, ok := r.routes[key]; ok || routes[key] {
			if owner == "" {
				owner = m.Name
			}
			return fmt.Errorf("%w: %s (owned by %s)", ErrDuplicateRoute, key, owner)
		}
		routes[key] = true
	}

	ids := map[string]bool{}
	nav := slices.Clone(m.Nav)
	for i := range nav {
		n := &nav[i]
		if n.ID == "" || strings.TrimSpace(n.Label) == "" {
			return fmt.Errorf("module %q: navigation entries need an id and a label", m.Name)
		}
		if !strings.HasPrefix(n.Path, "/") {
			return fmt.Errorf("module %q: navigation path %q must be absolute", m.Name, n.Path)
		}
		if n.Section == "" {
			n.Section = DefaultSection
		}
		if owner, ok := r.nav[n.ID]; ok || ids[n.ID] {
			if owner == "" {
				owner = m.Name
			}
			return fmt.Errorf("%w: %s (owned by %s)", ErrDuplicateNav, n.ID, owner)
		}
		ids[n.ID] = true
	}

	for key := range routes {
		r.routes[key] = m.Name
	}
	for id := range ids {
		r.nav[id] = m.Name
	}
	m.Routes = slices.Clone(m.Routes)
	m.Nav = nav
	m.Tables = slices.Clone(m.Tables)
	r.modules[m.Name] = &m
	return nil
}

// Lookup returns the module registered under name.
func (r *Registry) Lookup(name string) (Module, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	m, ok := r.modules[name]
	if !ok {
		return Module{}, false
	}
	return *m, true
}

// Names returns the registered module names, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.modules))
	for name := range r.modules {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// Tables returns the table names owned by every module, sorted.
func (r *Registry) Tables() []string {
	var out []string
	for _, m := range r.Modules() {
		out = append(out, m.Tables...)
	}
	slices.Sort(out)
	return slices.Compact(out)
}

// Modules returns the modules sorted by Order then Name.
func (r *Registry) Modules() []Module {
	r.mu.RLock()
	out := make([]Module, 0, len(r.modules))
	for _, m := range r.modules {
		out = append(out, *m)
	}
	r.mu.RUnlock()
	slices.SortFunc(out, func(a, b Module) int {
		if a.Order != b.Order {
			return a.Order - b.Order
		}
		return strings.Compare(a.Name, b.Name)
	})
	return out
}

// Nav returns the navigation grouped by section. Sections appear in the
// order of their first module; items are sorted by Order then Label.
func (r *Registry) Nav() []NavSection {
	var sections []NavSection
	index := map[string]int{}
	for _, m := range r.Modules() {
		for _, n := range m.Nav {
			i, ok := index[n.Section]
			if !ok {
				i = len(sections)
				index[n.Section] = i
				sections = append(sections, NavSection{Name: n.Section})
			}
			sections[i].Items = append(sections[i].Items, n)
		}
	}
	for i := range sections {
		slices.SortStableFunc(sections[i].Items, func(a, b NavItem) int {
			if a.Order != b.Order {
				return a.Order - b.Order
			}
			return strings.Compare(a.Label, b.Label)
		})
	}
	return sections
}

// Mount installs every module route on mux. Admin routes are wrapped by
// guard. The registry refuses new modules afterwards.
func (r *Registry) Mount(mux *http.ServeMux, guard func(http.Handler) http.Handler) {
	mods := r.Modules()
	r.mu.Lock()
	r.sealed = true
	r.mu.Unlock()
	for _, m := range mods {
		for _, rt := range m.Routes {
			h := rt.Handler
			if !rt.Public && guard != nil {
				h = guard(h)
			}
			mux.Handle(routeKey(rt.Method, rt.Path(m.Name)), h)
		}
	}
}

func routeKey(method, path string) string {
	return method + " " + path
}
