// Package portfolio is the module managing case studies shown on the site.
package portfolio

import (
	"context"
	"errors"
	"net/http"
	"slices"

	"github.com/maruel/showroom/internal/content"
	"github.com/maruel/showroom/internal/identity"
	"github.com/maruel/showroom/internal/registry"
	"github.com/maruel/showroom/internal/server"
	"github.com/maruel/showroom/internal/server/dto"
	"github.com/maruel/showroom/internal/site"
)

// Name is the module name.
const Name = "portfolio"

type handler struct {
	store *content.PortfolioStore
}

// New returns the portfolio module.
func New(env *server.Env, store *content.PortfolioStore) registry.Module {
	h := &handler{store: store}
	return registry.Module{
		Name:        Name,
		Title:       "Portfolio",
		Description: "Case studies published under /portfolio.",
		Icon:        "briefcase",
		Order:       30,
		Tables:      []string{"portfolio"},
		Routes: []registry.Route{
			{Method: http.MethodGet, Pattern: "", Handler: server.WrapAdmin(h.list, env)},
			{Method: http.MethodPost, Pattern: "", Handler: server.WrapAdmin(h.create, env)},
			{Method: http.MethodGet, Pattern: "/{id}", Handler: server.WrapAdmin(h.get, env)},
			{Method: http.MethodPut, Pattern: "/{id}", Handler: server.WrapAdmin(h.update, env)},
			{Method: http.MethodDelete, Pattern: "/{id}", Handler: server.WrapAdmin(h.delete, env)},
			{Method: http.MethodGet, Pattern: "", Handler: server.Wrap(h.listPublished, env), Public: true},
			{Method: http.MethodGet, Pattern: "/{slug}", Handler: server.Wrap(h.getPublished, env), Public: true},
		},
		Nav: []registry.NavItem{
			{ID: "portfolio", Label: "Portfolio", Path: "/portfolio", Icon: "briefcase", Order: 10},
		},
	}
}

func (h *handler) list(_ context.Context, _ *identity.User, req *dto.ListPortfolioRequest) (*dto.ListPortfolioResponse, error) {
	return listResponse(h.store.List(false), req.Tag), nil
}

func (h *handler) listPublished(_ context.Context, req *dto.ListPortfolioRequest) (*dto.ListPortfolioResponse, error) {
	return listResponse(h.store.List(true), req.Tag), nil
}

func (h *handler) get(_ context.Context, _ *identity.User, req *dto.IDRequest) (*dto.PortfolioItemResponse, error) {
	p, err := h.store.Get(req.ID)
	if err != nil {
		return nil, apiError(err)
	}
	return toResponse(p, true)
}

func (h *handler) getPublished(_ context.Context, req *dto.GetPortfolioBySlugRequest) (*dto.PortfolioItemResponse, error) {
	p, err := h.store.GetBySlug(req.Slug)
	if err != nil || !p.Published {
		return nil, dto.NotFound("portfolio item")
	}
	return toResponse(p, true)
}

func (h *handler) create(_ context.Context, _ *identity.User, req *dto.CreatePortfolioItemRequest) (*dto.PortfolioItemResponse, error) {
	item := &content.PortfolioItem{}
	applyFields(item, &req.PortfolioItemFields)
	p, err := h.store.Create(item)
	if err != nil {
		return nil, apiError(err)
	}
	return toResponse(p, false)
}

func (h *handler) update(_ context.Context, _ *identity.User, req *dto.UpdatePortfolioItemRequest) (*dto.PortfolioItemResponse, error) {
	p, err := h.store.Update(req.ID, func(p *content.PortfolioItem) error {
		applyFields(p, &req.PortfolioItemFields)
		return nil
	})
	if err != nil {
		return nil, apiError(err)
	}
	return toResponse(p, false)
}

func (h *handler) delete(_ context.Context, _ *identity.User, req *dto.IDRequest) (*dto.OkResponse, error) {
	if err := h.store.Delete(req.ID); err != nil {
		return nil, apiError(err)
	}
	return &dto.OkResponse{Ok: true}, nil
}

func applyFields(p *content.PortfolioItem, f *dto.PortfolioItemFields) {
	p.Slug = f.Slug
	p.Title = f.Title
	p.Summary = f.Summary
	p.Body = f.Body
	p.Tags = slices.Clone(f.Tags)
	p.ImageURL = f.ImageURL
	p.Featured = f.Featured
	p.Order = f.Order
	p.Published = f.Published
}

func listResponse(items []*content.PortfolioItem, tag string) *dto.ListPortfolioResponse {
	out := &dto.ListPortfolioResponse{Items: make([]dto.PortfolioItemResponse, 0, len(items))}
	for _, p := range items {
		if tag != "" && !slices.Contains(p.Tags, tag) {
			continue
		}
		// Listings omit bodies; rendering cannot fail without one.
		resp, _ := toResponse(p, false)
		resp.Body = ""
		out.Items = append(out.Items, *resp)
	}
	return out
}

func toResponse(p *content.PortfolioItem, render bool) (*dto.PortfolioItemResponse, error) {
	resp := &dto.PortfolioItemResponse{
		ID:        p.ID,
		Slug:      p.Slug,
		Title:     p.Title,
		Summary:   p.Summary,
		Body:      p.Body,
		Tags:      p.Tags,
		ImageURL:  p.ImageURL,
		Featured:  p.Featured,
		Order:     p.Order,
		Published: p.Published,
		Created:   p.Created,
		Modified:  p.Modified,
	}
	if render && p.Body != "" {
		html, err := site.RenderMarkdown(p.Body)
		if err != nil {
			return nil, dto.InternalWithError("Failed to render body", err)
		}
		resp.BodyHTML = html
	}
	return resp, nil
}

func apiError(err error) error {
	switch {
	case errors.Is(err, content.ErrNotFound):
		return dto.NotFound("portfolio item")
	case errors.Is(err, content.ErrSlugTaken):
		return dto.Conflict(err.Error())
	case errors.Is(err, content.ErrQuotaExceeded):
		return dto.QuotaExceeded("portfolio item")
	case errors.Is(err, content.ErrInvalid):
		return dto.BadRequest(err.Error())
	}
	return dto.InternalWithError("Portfolio operation failed", err)
}
