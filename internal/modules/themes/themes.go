// Package themes is the admin module managing visual themes and publishing
// them into the site sources.
package themes

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/maruel/showroom/internal/identity"
	"github.com/maruel/showroom/internal/publish"
	"github.com/maruel/showroom/internal/registry"
	"github.com/maruel/showroom/internal/server"
	"github.com/maruel/showroom/internal/server/dto"
	"github.com/maruel/showroom/internal/theme"
)

// Name is the module name.
const Name = "themes"

type handler struct {
	store *theme.Store
	pub   *publish.Publisher
}

// New returns the themes module.
func New(env *server.Env, store *theme.Store, pub *publish.Publisher) registry.Module {
	h := &handler{store: store, pub: pub}
	return registry.Module{
		Name:        Name,
		Title:       "Themes",
		Description: "Color tokens, typography, gradients, motion and widgets of the site.",
		Icon:        "palette",
		Order:       10,
		Tables:      []string{"themes"},
		Routes: []registry.Route{
			{Method: http.MethodGet, Pattern: "", Handler: server.WrapAdmin(h.list, env)},
			{Method: http.MethodPost, Pattern: "", Handler: server.WrapAdmin(h.create, env)},
			{Method: http.MethodGet, Pattern: "/schema", Handler: server.WrapAdmin(h.schema, env)},
			{Method: http.MethodGet, Pattern: "/history", Handler: server.WrapAdmin(h.history, env)},
			{Method: http.MethodGet, Pattern: "/{id}", Handler: server.WrapAdmin(h.get, env)},
			{Method: http.MethodPut, Pattern: "/{id}", Handler: server.WrapAdmin(h.update, env)},
			{Method: http.MethodDelete, Pattern: "/{id}", Handler: server.WrapAdmin(h.delete, env)},
			{Method: http.MethodPost, Pattern: "/{id}/duplicate", Handler: server.WrapAdmin(h.duplicate, env)},
			{Method: http.MethodPost, Pattern: "/{id}/activate", Handler: server.WrapAdmin(h.activate, env)},
			{Method: http.MethodPost, Pattern: "/{id}/preview", Handler: server.WrapAdmin(h.preview, env)},
			{Method: http.MethodPost, Pattern: "/{id}/publish", Handler: server.WrapAdmin(h.publish, env)},
			// The site build reads the active theme.
			{Method: http.MethodGet, Pattern: "/active", Handler: server.Wrap(h.active, env), Public: true},
		},
		Nav: []registry.NavItem{
			{ID: "themes", Label: "Themes", Path: "/themes", Icon: "palette", Section: "design", Order: 0},
			{ID: "themes-history", Label: "Publish history", Path: "/themes/history", Icon: "history", Section: "design", Order: 1},
		},
	}
}

func (h *handler) list(_ context.Context, _ *identity.User, _ *dto.ListThemesRequest) (*dto.ListThemesResponse, error) {
	themes := h.store.List()
	out := &dto.ListThemesResponse{Themes: make([]dto.ThemeResponse, 0, len(themes))}
	for _, t := range themes {
		out.Themes = append(out.Themes, toResponse(t))
	}
	return out, nil
}

func (h *handler) get(_ context.Context, _ *identity.User, req *dto.IDRequest) (*dto.ThemeResponse, error) {
	t, err := h.store.Get(req.ID)
	if err != nil {
		return nil, apiError(err)
	}
	resp := toResponse(t)
	return &resp, nil
}

func (h *handler) active(_ context.Context, _ *dto.EmptyRequest) (*dto.ThemeResponse, error) {
	t, err := h.store.Active()
	if err != nil {
		return nil, apiError(err)
	}
	resp := toResponse(t)
	return &resp, nil
}

func (h *handler) create(_ context.Context, _ *identity.User, req *dto.CreateThemeRequest) (*dto.ThemeResponse, error) {
	t, err := h.store.Create(req.Name, req.Slug, req.Description, req.Config)
	if err != nil {
		return nil, apiError(err)
	}
	resp := toResponse(t)
	return &resp, nil
}

func (h *handler) update(_ context.Context, _ *identity.User, req *dto.UpdateThemeRequest) (*dto.ThemeResponse, error) {
	t, err := h.store.Update(req.ID, func(t *theme.Theme) error {
		t.Name = req.Name
		t.Slug = req.Slug
		t.Description = req.Description
		t.Config = req.Config
		return nil
	})
	if err != nil {
		return nil, apiError(err)
	}
	resp := toResponse(t)
	return &resp, nil
}

func (h *handler) delete(_ context.Context, _ *identity.User, req *dto.IDRequest) (*dto.OkResponse, error) {
	if err := h.store.Delete(req.ID); err != nil {
		return nil, apiError(err)
	}
	return &dto.OkResponse{Ok: true}, nil
}

func (h *handler) duplicate(_ context.Context, _ *identity.User, req *dto.DuplicateThemeRequest) (*dto.ThemeResponse, error) {
	t, err := h.store.Duplicate(req.ID, req.Name)
	if err != nil {
		return nil, apiError(err)
	}
	resp := toResponse(t)
	return &resp, nil
}

func (h *handler) activate(_ context.Context, _ *identity.User, req *dto.IDRequest) (*dto.ThemeResponse, error) {
	t, err := h.store.SetActive(req.ID)
	if err != nil {
		return nil, apiError(err)
	}
	resp := toResponse(t)
	return &resp, nil
}

func (h *handler) preview(_ context.Context, _ *identity.User, req *dto.IDRequest) (*dto.PreviewThemeResponse, error) {
	t, err := h.store.Get(req.ID)
	if err != nil {
		return nil, apiError(err)
	}
	files, err := h.pub.Preview(req.ID)
	if err != nil {
		return nil, apiError(err)
	}
	return &dto.PreviewThemeResponse{Version: t.Version + 1, Files: ToGeneratedFiles(files)}, nil
}

func (h *handler) publish(ctx context.Context, user *identity.User, req *dto.IDRequest) (*dto.PublishThemeResponse, error) {
	res, err := h.pub.Publish(ctx, req.ID, server.GitAuthor(user))
	if err != nil {
		return nil, apiError(err)
	}
	return &dto.PublishThemeResponse{Theme: toResponse(res.Theme), Commit: res.Commit, Files: res.Files}, nil
}

func (h *handler) history(_ context.Context, _ *identity.User, req *dto.ThemeHistoryRequest) (*dto.ThemeHistoryResponse, error) {
	commits, err := h.pub.History(req.Limit)
	if err != nil {
		return nil, dto.InternalWithError("Failed to read publish history", err)
	}
	out := &dto.ThemeHistoryResponse{Commits: make([]dto.CommitResponse, 0, len(commits))}
	for _, c := range commits {
		out.Commits = append(out.Commits, dto.CommitResponse{
			Hash:        c.Hash,
			Message:     c.Message,
			Author:      c.Author,
			AuthorEmail: c.AuthorEmail,
			Date:        c.Date,
			Files:       c.Files,
		})
	}
	return out, nil
}

func (h *handler) schema(_ context.Context, _ *identity.User, _ *dto.ThemeSchemaRequest) (*dto.ThemeSchemaResponse, error) {
	b, err := theme.Schema()
	if err != nil {
		return nil, dto.InternalWithError("Failed to build schema", err)
	}
	return &dto.ThemeSchemaResponse{Schema: json.RawMessage(b), Defaults: theme.DefaultConfig()}, nil
}

// ToGeneratedFiles converts generated sources to their API form.
func ToGeneratedFiles(files []publish.File) []dto.GeneratedFile {
	out := make([]dto.GeneratedFile, len(files))
	for i, f := range files {
		out[i] = dto.GeneratedFile{Path: f.Path, Content: f.Content}
	}
	return out
}

// InvalidTheme converts a theme validation failure to an API error. ok is
// false when err is not a validation failure.
func InvalidTheme(err error) (*dto.APIError, bool) {
	var ve *theme.ValidationError
	if !errors.As(err, &ve) {
		return nil, false
	}
	return dto.InvalidTheme(ve.Fields()), true
}

func apiError(err error) error {
	if apiErr, ok := InvalidTheme(err); ok {
		return apiErr
	}
	switch {
	case errors.Is(err, theme.ErrNotFound):
		return dto.NotFound("theme")
	case errors.Is(err, theme.ErrNoActiveTheme):
		return dto.NotFound("active theme")
	case errors.Is(err, theme.ErrSlugTaken), errors.Is(err, theme.ErrActiveTheme):
		return dto.Conflict(err.Error())
	case errors.Is(err, theme.ErrQuotaExceeded):
		return dto.QuotaExceeded("theme")
	}
	return dto.InternalWithError("Theme operation failed", err)
}

func toResponse(t *theme.Theme) dto.ThemeResponse {
	return dto.ThemeResponse{
		ID:          t.ID,
		Name:        t.Name,
		Slug:        t.Slug,
		Description: t.Description,
		Config:      t.Config,
		IsActive:    t.IsActive,
		Version:     t.Version,
		PublishedAt: t.PublishedAt,
		Created:     t.Created,
		Modified:    t.Modified,
	}
}
