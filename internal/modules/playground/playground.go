// Package playground is the module previewing unsaved theme configs and
// markdown the way the site build renders them.
package playground

import (
	"context"
	"net/http"

	"github.com/maruel/showroom/internal/identity"
	"github.com/maruel/showroom/internal/modules/themes"
	"github.com/maruel/showroom/internal/publish"
	"github.com/maruel/showroom/internal/registry"
	"github.com/maruel/showroom/internal/server"
	"github.com/maruel/showroom/internal/server/dto"
	"github.com/maruel/showroom/internal/site"
)

// Name is the module name.
const Name = "playground"

// New returns the playground module. It owns no table.
func New(env *server.Env) registry.Module {
	return registry.Module{
		Name:        Name,
		Title:       "Playground",
		Description: "Try theme settings and markdown without saving.",
		Icon:        "flask",
		Order:       90,
		Routes: []registry.Route{
			{Method: http.MethodPost, Pattern: "/preview", Handler: server.WrapAdmin(preview, env)},
			{Method: http.MethodPost, Pattern: "/markdown", Handler: server.WrapAdmin(markdown, env)},
		},
		Nav: []registry.NavItem{
			{ID: "playground", Label: "Playground", Path: "/playground", Icon: "flask", Section: "design", Order: 10},
		},
	}
}

func preview(_ context.Context, _ *identity.User, req *dto.PlaygroundPreviewRequest) (*dto.PlaygroundPreviewResponse, error) {
	name := req.Name
	if name == "" {
		name = "Playground"
	}
	cfg := req.Config.WithDefaults()
	files, err := publish.Generate(cfg, publish.Options{Name: name, Slug: "playground", Version: 0})
	if err != nil {
		if apiErr, ok := themes.InvalidTheme(err); ok {
			return nil, apiErr
		}
		return nil, dto.BadRequest(err.Error())
	}
	return &dto.PlaygroundPreviewResponse{Config: cfg, Files: themes.ToGeneratedFiles(files)}, nil
}

func markdown(_ context.Context, _ *identity.User, req *dto.MarkdownRequest) (*dto.MarkdownResponse, error) {
	html, err := site.RenderMarkdown(req.Source)
	if err != nil {
		return nil, dto.InternalWithError("Failed to render markdown", err)
	}
	return &dto.MarkdownResponse{HTML: html}, nil
}
