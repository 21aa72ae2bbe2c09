// Serves the static route table expanded with published content.

package handlers

import (
	"context"
	"errors"
	"log/slog"

	"github.com/maruel/showroom/internal/config"
	"github.com/maruel/showroom/internal/content"
	"github.com/maruel/showroom/internal/server/dto"
	"github.com/maruel/showroom/internal/site"
	"github.com/maruel/showroom/internal/theme"
)

// SiteHandler builds the site manifest.
type SiteHandler struct {
	cfg          *config.ServerConfig
	routesPath   string
	themes       *theme.Store
	portfolio    *content.PortfolioStore
	testimonials *content.TestimonialStore
}

// NewSiteHandler creates a new site handler. routesPath is the site.yaml
// file; when it does not exist the built-in routes are used.
func NewSiteHandler(cfg *config.ServerConfig, routesPath string, themes *theme.Store, portfolio *content.PortfolioStore, testimonials *content.TestimonialStore) *SiteHandler {
	return &SiteHandler{cfg: cfg, routesPath: routesPath, themes: themes, portfolio: portfolio, testimonials: testimonials}
}

// Routes returns the manifest the static site generator consumes.
func (h *SiteHandler) Routes(ctx context.Context, _ *dto.SiteRoutesRequest) (*site.Manifest, error) {
	m, err := h.Manifest()
	if err != nil {
		slog.ErrorContext(ctx, "Failed to build site manifest", "err", err)
		return nil, dto.InternalWithError("Failed to build site routes", err)
	}
	return m, nil
}

// Manifest loads the routes and expands them with the published content.
func (h *SiteHandler) Manifest() (*site.Manifest, error) {
	routes, err := site.LoadRoutes(h.routesPath)
	if err != nil {
		return nil, err
	}
	slug := ""
	if t, err := h.themes.Active(); err == nil {
		slug = t.Slug
	} else if !errors.Is(err, theme.ErrNoActiveTheme) {
		return nil, err
	}
	c := site.Content{
		Portfolio:    h.portfolio.List(true),
		Testimonials: h.testimonials.List(true),
	}
	return site.NewManifest(h.cfg.Site.Name, h.cfg.Site.BaseURL, slug, routes, c)
}
