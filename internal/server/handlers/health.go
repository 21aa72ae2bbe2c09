package handlers

import (
	"context"
	"runtime"
	"runtime/debug"

	"github.com/maruel/showroom/internal/server/dto"
)

// HealthHandler handles health check requests.
type HealthHandler struct {
	version  string
	revision string
	dirty    bool
}

// NewHealthHandler creates a new health handler. The VCS revision is read
// from the build info.
func NewHealthHandler(version string) *HealthHandler {
	h := &HealthHandler{version: version}
	if info, ok := debug.ReadBuildInfo(); ok {
		for _, s := range info.Settings {
			switch s.Key {
			case "vcs.revision":
				h.revision = s.Value
			case "vcs.modified":
				h.dirty = s.Value == "true"
			}
		}
	}
	return h
}

// Health handles health check requests.
func (h *HealthHandler) Health(_ context.Context, _ *dto.HealthRequest) (*dto.HealthResponse, error) {
	return &dto.HealthResponse{
		Status:    "ok",
		Version:   h.version,
		GoVersion: runtime.Version(),
		Revision:  h.revision,
		Dirty:     h.dirty,
	}, nil
}
