// Command apiroutes generates docs/API.md from the static routes of
// internal/server/router.go and the routes of every registered module.
package main

import (
	"flag"
	"fmt"
	"go/ast"
	"go/parser"
	"go/token"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/maruel/showroom/internal/modules/playground"
	"github.com/maruel/showroom/internal/modules/portfolio"
	"github.com/maruel/showroom/internal/modules/submissions"
	"github.com/maruel/showroom/internal/modules/testimonials"
	"github.com/maruel/showroom/internal/modules/themes"
	"github.com/maruel/showroom/internal/registry"
)

var quiet = flag.Bool("q", false, "quiet mode")

type route struct {
	Method  string
	Path    string
	Role    string
	Handler string
}

func main() {
	flag.Parse()
	root, err := findRepoRoot()
	if err != nil {
		fmt.Fprintf(os.Stderr, "apiroutes: %v\n", err)
		os.Exit(1)
	}
	n, err := run(filepath.Join(root, "internal", "server", "router.go"), filepath.Join(root, "docs", "API.md"))
	if err != nil {
		fmt.Fprintf(os.Stderr, "apiroutes: %v\n", err)
		os.Exit(1)
	}
	if !*quiet {
		fmt.Fprintf(os.Stderr, "Generated docs/API.md with %d routes\n", n)
	}
}

func findRepoRoot() (string, error) {
	dir, err := os.Getwd()
	if err != nil {
		return "", err
	}
	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", fmt.Errorf("could not find go.mod")
		}
		dir = parent
	}
}

func run(routerPath, outPath string) (int, error) {
	routes, err := parseRouter(routerPath)
	if err != nil {
		return 0, err
	}
	mods, err := moduleRoutes()
	if err != nil {
		return 0, err
	}
	routes = append(routes, mods...)
	sortRoutes(routes)
	if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil { //nolint:gosec // G301: docs directory
		return 0, err
	}
	out, err := os.Create(outPath) //nolint:gosec // G304: path derived from the repository root
	if err != nil {
		return 0, err
	}
	if err := writeMarkdown(out, groupRoutes(routes)); err != nil {
		_ = out.Close()
		return 0, err
	}
	return len(routes), out.Close()
}

// parseRouter extracts the mux.Handle calls of router.go. A handler wrapped
// in admin(...) requires a session.
func parseRouter(path string) ([]route, error) {
	fset := token.NewFileSet()
	f, err := parser.ParseFile(fset, path, nil, parser.ParseComments)
	if err != nil {
		return nil, err
	}
	var routes []route
	ast.Inspect(f, func(n ast.Node) bool {
		call, ok := n.(*ast.CallExpr)
		if !ok {
			return true
		}
		sel, ok := call.Fun.(*ast.SelectorExpr)
		if !ok || sel.Sel.Name != "Handle" || len(call.Args) < 2 {
			return true
		}
		lit, ok := call.Args[0].(*ast.BasicLit)
		if !ok || lit.Kind != token.STRING {
			return true
		}
		method, p := parsePattern(strings.Trim(lit.Value, `"`))
		if p == "/" {
			return true
		}
		role, handler := parseHandler(call.Args[1])
		routes = append(routes, route{Method: method, Path: p, Role: role, Handler: handler})
		return true
	})
	return routes, nil
}

// moduleRoutes registers every module without storage; only the route
// tables are read.
func moduleRoutes() ([]route, error) {
	reg := registry.New()
	for _, m := range []registry.Module{
		themes.New(nil, nil, nil),
		submissions.New(nil, nil, nil),
		portfolio.New(nil, nil),
		testimonials.New(nil, nil),
		playground.New(nil),
	} {
		if err := reg.Register(m); err != nil {
			return nil, err
		}
	}
	var routes []route
	for _, m := range reg.Modules() {
		for _, rt := range m.Routes {
			role := "admin"
			if rt.Public {
				role = "public"
			}
			routes = append(routes, route{Method: rt.Method, Path: rt.Path(m.Name), Role: role, Handler: m.Name})
		}
	}
	return routes, nil
}

func parsePattern(p string) (method, path string) {
	if m, rest, ok := strings.Cut(p, " "); ok {
		return m, rest
	}
	return "*", p
}

func parseHandler(expr ast.Expr) (role, handler string) {
	call, ok := expr.(*ast.CallExpr)
	if !ok {
		return "public", exprName(expr)
	}
	switch exprName(call.Fun) {
	case "admin":
		if len(call.Args) == 1 {
			_, h := parseHandler(call.Args[0])
			return "admin", h
		}
	case "Wrap", "WrapAdmin":
		if len(call.Args) >= 1 {
			return "public", exprName(call.Args[0])
		}
	}
	return "public", exprName(call.Fun)
}

func exprName(e ast.Expr) string {
	switch v := e.(type) {
	case *ast.Ident:
		return v.Name
	case *ast.SelectorExpr:
		return exprName(v.X) + "." + v.Sel.Name
	case *ast.CallExpr:
		return exprName(v.Fun)
	}
	return "?"
}

var methodOrder = []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete}

func sortRoutes(routes []route) {
	slices.SortFunc(routes, func(a, b route) int {
		if c := strings.Compare(a.Path, b.Path); c != 0 {
			return c
		}
		return slices.Index(methodOrder, a.Method) - slices.Index(methodOrder, b.Method)
	})
}

type routeGroup struct {
	Name   string
	Routes []route
}

// groupRoutes groups by the first path segment after /api/ or /api/admin/.
func groupRoutes(routes []route) []routeGroup {
	var names []string
	groups := map[string][]route{}
	for _, r := range routes {
		name := categorize(r.Path)
		if _, ok := groups[name]; !ok {
			names = append(names, name)
		}
		groups[name] = append(groups[name], r)
	}
	slices.Sort(names)
	out := make([]routeGroup, 0, len(names))
	for _, n := range names {
		out = append(out, routeGroup{Name: n, Routes: groups[n]})
	}
	return out
}

func categorize(path string) string {
	rest := strings.TrimPrefix(path, "/api/")
	rest = strings.TrimPrefix(rest, "admin/")
	seg, _, _ := strings.Cut(rest, "/")
	if seg == "" {
		return "Other"
	}
	return strings.ToUpper(seg[:1]) + seg[1:]
}

func writeMarkdown(w io.Writer, groups []routeGroup) error {
	const header = `# showroom API Reference

<!-- Code generated by go generate; DO NOT EDIT. -->

JSON API of the showroom back office. Module routes live under
` + "`/api/admin/<module>`" + ` (admin) and ` + "`/api/<module>`" + ` (public).

## Authentication

Include the JWT returned by ` + "`POST /api/auth/login`" + ` in the Authorization header:
` + "`Authorization: Bearer <token>`" + `

`
	if _, err := io.WriteString(w, header); err != nil {
		return err
	}
	for _, g := range groups {
		if _, err := fmt.Fprintf(w, "## %s\n\n| Method | Path | Auth |\n|--------|------|------|\n", g.Name); err != nil {
			return err
		}
		for _, r := range g.Routes {
			if _, err := fmt.Fprintf(w, "| %s | `%s` | %s |\n", r.Method, r.Path, r.Role); err != nil {
				return err
			}
		}
		if _, err := fmt.Fprintln(w); err != nil {
			return err
		}
	}
	return nil
}
