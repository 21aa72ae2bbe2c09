// Package testimonials is the module managing customer quotes.
package testimonials

import (
	"context"
	"errors"
	"net/http"

	"github.com/maruel/showroom/internal/content"
	"github.com/maruel/showroom/internal/identity"
	"github.com/maruel/showroom/internal/registry"
	"github.com/maruel/showroom/internal/server"
	"github.com/maruel/showroom/internal/server/dto"
)

// Name is the module name.
const Name = "testimonials"

type handler struct {
	store *content.TestimonialStore
}

// New returns the testimonials module.
func New(env *server.Env, store *content.TestimonialStore) registry.Module {
	h := &handler{store: store}
	return registry.Module{
		Name:        Name,
		Title:       "Testimonials",
		Description: "Customer quotes shown on the home and testimonials pages.",
		Icon:        "quote",
		Order:       40,
		Tables:      []string{"testimonials"},
		Routes: []registry.Route{
			{Method: http.MethodGet, Pattern: "", Handler: server.WrapAdmin(h.list, env)},
			{Method: http.MethodPost, Pattern: "", Handler: server.WrapAdmin(h.create, env)},
			{Method: http.MethodPut, Pattern: "/{id}", Handler: server.WrapAdmin(h.update, env)},
			{Method: http.MethodDelete, Pattern: "/{id}", Handler: server.WrapAdmin(h.delete, env)},
			{Method: http.MethodGet, Pattern: "", Handler: server.Wrap(h.listPublished, env), Public: true},
		},
		Nav: []registry.NavItem{
			{ID: "testimonials", Label: "Testimonials", Path: "/testimonials", Icon: "quote", Order: 20},
		},
	}
}

func (h *handler) list(_ context.Context, _ *identity.User, _ *dto.ListTestimonialsRequest) (*dto.ListTestimonialsResponse, error) {
	return listResponse(h.store.List(false)), nil
}

func (h *handler) listPublished(_ context.Context, _ *dto.ListTestimonialsRequest) (*dto.ListTestimonialsResponse, error) {
	return listResponse(h.store.List(true)), nil
}

func (h *handler) create(_ context.Context, _ *identity.User, req *dto.CreateTestimonialRequest) (*dto.TestimonialResponse, error) {
	t := &content.Testimonial{}
	applyFields(t, &req.TestimonialFields)
	t, err := h.store.Create(t)
	if err != nil {
		return nil, apiError(err)
	}
	resp := toResponse(t)
	return &resp, nil
}

func (h *handler) update(_ context.Context, _ *identity.User, req *dto.UpdateTestimonialRequest) (*dto.TestimonialResponse, error) {
	t, err := h.store.Update(req.ID, func(t *content.Testimonial) error {
		applyFields(t, &req.TestimonialFields)
		return nil
	})
	if err != nil {
		return nil, apiError(err)
	}
	resp := toResponse(t)
	return &resp, nil
}

func (h *handler) delete(_ context.Context, _ *identity.User, req *dto.IDRequest) (*dto.OkResponse, error) {
	if err := h.store.Delete(req.ID); errors.Is(err, content.ErrNotFound) {
		return nil, dto.NotFound("testimonial")
	} else if err != nil {
		return nil, dto.InternalWithError("Failed to delete testimonial", err)
	}
	return &dto.OkResponse{Ok: true}, nil
}

func apiError(err error) error {
	switch {
	case errors.Is(err, content.ErrNotFound):
		return dto.NotFound("testimonial")
	case errors.Is(err, content.ErrInvalid):
		return dto.BadRequest(err.Error())
	}
	return dto.InternalWithError("Testimonial operation failed", err)
}

func applyFields(t *content.Testimonial, f *dto.TestimonialFields) {
	t.Author = f.Author
	t.Role = f.Role
	t.Company = f.Company
	t.Quote = f.Quote
	t.Rating = f.Rating
	t.AvatarURL = f.AvatarURL
	t.Order = f.Order
	t.Published = f.Published
}

func listResponse(items []*content.Testimonial) *dto.ListTestimonialsResponse {
	out := &dto.ListTestimonialsResponse{Testimonials: make([]dto.TestimonialResponse, 0, len(items))}
	for _, t := range items {
		out.Testimonials = append(out.Testimonials, toResponse(t))
	}
	return out
}

func toResponse(t *content.Testimonial) dto.TestimonialResponse {
	return dto.TestimonialResponse{
		ID:        t.ID,
		Author:    t.Author,
		Role:      t.Role,
		Company:   t.Company,
		Quote:     t.Quote,
		Rating:    t.Rating,
		AvatarURL: t.AvatarURL,
		Order:     t.Order,
		Published: t.Published,
		Created:   t.Created,
	}
}
