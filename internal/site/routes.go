// Package site holds the static route table consumed by the static site
// generator and expands it with published content.
package site

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"
)

// Content sources a route can draw from.
const (
	SourcePortfolio    = "portfolio"
	SourceTestimonials = "testimonials"
)

var (
	sources     = []string{SourcePortfolio, SourceTestimonials}
	changeFreqs = []string{"always", "hourly", "daily", "weekly", "monthly", "yearly", "never"}
	segmentRe   = regexp.MustCompile(`^([a-z0-9]+(-[a-z0-9]+)*|:[a-z][a-z0-9_]*)$`)
)

// Route is an entry of the route table. A route with a ":param" segment is
// dynamic and expands to one page per published item of Source. A static
// route with a Source receives the published items as props.
type Route struct {
	Path        string  `json:"path" yaml:"path"`
	Title       string  `json:"title" yaml:"title"`
	Description string  `json:"description,omitempty" yaml:"description,omitempty"`
	Component   string  `json:"component" yaml:"component"`
	Priority    float64 `json:"priority" yaml:"priority"`
	ChangeFreq  string  `json:"change_freq" yaml:"change_freq"`
	Source      string  `json:"source,omitempty" yaml:"source,omitempty"`
}

// Dynamic reports whether the route has a parameter segment.
func (r *Route) Dynamic() bool {
	return strings.Contains(r.Path, "/:")
}

// DefaultRoutes returns the built-in route table.
func DefaultRoutes() []Route {
	return []Route{
		{Path: "/", Title: "Home", Component: "HomePage", Priority: 1, ChangeFreq: "weekly", Source: SourceTestimonials},
		{Path: "/about", Title: "About", Component: "AboutPage", Priority: 0.6, ChangeFreq: "monthly"},
		{Path: "/services", Title: "Services", Component: "ServicesPage", Priority: 0.8, ChangeFreq: "monthly"},
		{Path: "/portfolio", Title: "Portfolio", Component: "PortfolioPage", Priority: 0.8, ChangeFreq: "weekly", Source: SourcePortfolio},
		{Path: "/portfolio/:slug", Title: "Portfolio", Component: "PortfolioItemPage", Priority: 0.7, ChangeFreq: "monthly", Source: SourcePortfolio},
		{Path: "/testimonials", Title: "Testimonials", Component: "TestimonialsPage", Priority: 0.5, ChangeFreq: "monthly", Source: SourceTestimonials},
		{Path: "/contact", Title: "Contact", Component: "ContactPage", Priority: 0.5, ChangeFreq: "yearly"},
	}
}

// ValidateRoutes checks every route and rejects duplicate paths.
func ValidateRoutes(routes []Route) error {
	var errs []error
	seen := map[string]bool{}
	for i := range routes {
		r := &routes[i]
		if err := r.validate(); err != nil {
			errs = append(errs, fmt.Errorf("routes[%d] %s: %w", i, r.Path, err))
		}
		if seen[r.Path] {
			errs = append(errs, fmt.Errorf("routes[%d]: duplicate path %s", i, r.Path))
		}
		seen[r.Path] = true
	}
	return errors.Join(errs...)
}

func (r *Route) validate() error {
	if r.Path != "/" {
		if !strings.HasPrefix(r.Path, "/") || strings.HasSuffix(r.Path, "/") {
			return errors.New("path must start with / and not end with /")
		}
		params := 0
		for seg := range strings.SplitSeq(r.Path[1:], "/") {
			if !segmentRe.MatchString(seg) {
				return fmt.Errorf("invalid segment %q", seg)
			}
			if strings.HasPrefix(seg, ":") {
				params++
			}
		}
		if params > 1 {
			return errors.New("at most one parameter segment is supported")
		}
	}
	if strings.TrimSpace(r.Title) == "" {
		return errors.New("title is required")
	}
	if r.Component == "" {
		return errors.New("component is required")
	}
	if r.Priority < 0 || r.Priority > 1 {
		return errors.New("priority must be between 0 and 1")
	}
	if !slices.Contains(changeFreqs, r.ChangeFreq) {
		return fmt.Errorf("invalid change_freq %q", r.ChangeFreq)
	}
	if r.Source != "" && !slices.Contains(sources, r.Source) {
		return fmt.Errorf("unknown source %q", r.Source)
	}
	if r.Dynamic() && r.Source != SourcePortfolio {
		return fmt.Errorf("dynamic routes need the %s source", SourcePortfolio)
	}
	return nil
}

type siteFile struct {
	Routes []Route `yaml:"routes"`
}

// LoadRoutes reads the route table from a site.yaml file. A missing file
// yields DefaultRoutes.
func LoadRoutes(path string) ([]Route, error) {
	data, err := os.ReadFile(filepath.Clean(path))
	if errors.Is(err, os.ErrNotExist) {
		return DefaultRoutes(), nil
	}
	if err != nil {
		return nil, err
	}
	var f siteFile
	d := yaml.NewDecoder(strings.NewReader(string(data)))
	d.KnownFields(true)
	if err := d.Decode(&f); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	if len(f.Routes) == 0 {
		return nil, fmt.Errorf("%s: no routes", path)
	}
	if err := ValidateRoutes(f.Routes); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return f.Routes, nil
}
