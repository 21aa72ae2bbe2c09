// Lists the registered admin modules and the navigation they contribute.

package handlers

import (
	"context"

	"github.com/maruel/showroom/internal/identity"
	"github.com/maruel/showroom/internal/registry"
	"github.com/maruel/showroom/internal/server/dto"
)

// ModuleHandler exposes the module registry.
type ModuleHandler struct {
	reg *registry.Registry
}

// NewModuleHandler creates a new module handler.
func NewModuleHandler(reg *registry.Registry) *ModuleHandler {
	return &ModuleHandler{reg: reg}
}

// ListModules returns the modules sorted by order and the grouped sidebar.
func (h *ModuleHandler) ListModules(_ context.Context, _ *identity.User, _ *dto.ListModulesRequest) (*dto.ListModulesResponse, error) {
	mods := h.reg.Modules()
	resp := &dto.ListModulesResponse{
		Modules: make([]dto.ModuleResponse, 0, len(mods)),
		Nav:     []dto.NavSection{},
	}
	for _, m := range mods {
		mr := dto.ModuleResponse{
			Name:        m.Name,
			Title:       m.Title,
			Description: m.Description,
			Icon:        m.Icon,
			Order:       m.Order,
			Routes:      make([]dto.ModuleRoute, 0, len(m.Routes)),
			Tables:      m.Tables,
		}
		for _, rt := range m.Routes {
			mr.Routes = append(mr.Routes, dto.ModuleRoute{Method: rt.Method, Path: rt.Path(m.Name), Public: rt.Public})
		}
		resp.Modules = append(resp.Modules, mr)
	}
	for _, s := range h.reg.Nav() {
		section := dto.NavSection{Name: s.Name, Items: make([]dto.NavItem, 0, len(s.Items))}
		for _, n := range s.Items {
			section.Items = append(section.Items, dto.NavItem{ID: n.ID, Label: n.Label, Path: n.Path, Icon: n.Icon, Order: n.Order})
		}
		resp.Nav = append(resp.Nav, section)
	}
	return resp, nil
}
