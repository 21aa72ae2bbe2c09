// Package submissions is the module receiving contact form posts from the
// public site and triaging them in the admin inbox.
package submissions

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/maruel/showroom/internal/content"
	"github.com/maruel/showroom/internal/identity"
	"github.com/maruel/showroom/internal/registry"
	"github.com/maruel/showroom/internal/server"
	"github.com/maruel/showroom/internal/server/dto"
	"github.com/maruel/showroom/internal/server/reqctx"
)

// Name is the module name.
const Name = "submissions"

// Notifier is told about every stored submission.
type Notifier interface {
	Submission(ctx context.Context, sub *content.Submission)
}

type handler struct {
	store  *content.SubmissionStore
	notify Notifier
}

// New returns the submissions module. notify may be nil.
func New(env *server.Env, store *content.SubmissionStore, notify Notifier) registry.Module {
	h := &handler{store: store, notify: notify}
	return registry.Module{
		Name:        Name,
		Title:       "Submissions",
		Description: "Contact form inbox.",
		Icon:        "inbox",
		Order:       20,
		Tables:      []string{"submissions"},
		Routes: []registry.Route{
			{Method: http.MethodPost, Pattern: "", Handler: server.Wrap(h.create, env), Public: true},
			{Method: http.MethodGet, Pattern: "", Handler: server.WrapAdmin(h.list, env)},
			{Method: http.MethodGet, Pattern: "/{id}", Handler: server.WrapAdmin(h.get, env)},
			{Method: http.MethodPatch, Pattern: "/{id}", Handler: server.WrapAdmin(h.setStatus, env)},
			{Method: http.MethodDelete, Pattern: "/{id}", Handler: server.WrapAdmin(h.delete, env)},
		},
		Nav: []registry.NavItem{
			{ID: "submissions", Label: "Inbox", Path: "/submissions", Icon: "inbox", Order: 0},
		},
	}
}

func (h *handler) create(ctx context.Context, req *dto.CreateSubmissionRequest) (*dto.CreateSubmissionResponse, error) {
	if req.Website != "" {
		// Bots fill every field; pretend success.
		slog.InfoContext(ctx, "Dropped honeypot submission", "ip", reqctx.ClientIP(ctx))
		return &dto.CreateSubmissionResponse{Ok: true}, nil
	}
	sub, err := h.store.Create(&content.Submission{
		Name:        req.Name,
		Email:       req.Email,
		Company:     req.Company,
		Message:     req.Message,
		Page:        req.Page,
		IP:          reqctx.ClientIP(ctx),
		CountryCode: reqctx.CountryCode(ctx),
	})
	if errors.Is(err, content.ErrQuotaExceeded) {
		return nil, dto.QuotaExceeded("submission")
	}
	if errors.Is(err, content.ErrInvalid) {
		return nil, dto.BadRequest(err.Error())
	}
	if err != nil {
		return nil, dto.InternalWithError("Failed to store submission", err)
	}
	slog.InfoContext(ctx, "New submission", "id", sub.ID, "country", sub.CountryCode)
	if h.notify != nil {
		h.notify.Submission(ctx, sub)
	}
	return &dto.CreateSubmissionResponse{Ok: true, ID: sub.ID}, nil
}

func (h *handler) list(_ context.Context, _ *identity.User, req *dto.ListSubmissionsRequest) (*dto.ListSubmissionsResponse, error) {
	subs := h.store.List(content.SubmissionStatus(req.Status))
	out := &dto.ListSubmissionsResponse{
		Submissions: make([]dto.SubmissionResponse, 0, len(subs)),
		Counts:      map[string]int{},
	}
	for _, s := range subs {
		out.Submissions = append(out.Submissions, toResponse(s))
	}
	for _, st := range []content.SubmissionStatus{content.StatusNew, content.StatusRead, content.StatusArchived} {
		out.Counts[string(st)] = h.store.CountByStatus(st)
	}
	return out, nil
}

func (h *handler) get(_ context.Context, _ *identity.User, req *dto.IDRequest) (*dto.SubmissionResponse, error) {
	s, err := h.store.Get(req.ID)
	if err != nil {
		return nil, dto.NotFound("submission")
	}
	resp := toResponse(s)
	return &resp, nil
}

func (h *handler) setStatus(_ context.Context, _ *identity.User, req *dto.UpdateSubmissionStatusRequest) (*dto.SubmissionResponse, error) {
	s, err := h.store.SetStatus(req.ID, content.SubmissionStatus(req.Status))
	if errors.Is(err, content.ErrNotFound) {
		return nil, dto.NotFound("submission")
	}
	if errors.Is(err, content.ErrInvalid) {
		return nil, dto.BadRequest(err.Error())
	}
	if err != nil {
		return nil, dto.InternalWithError("Failed to update submission", err)
	}
	resp := toResponse(s)
	return &resp, nil
}

func (h *handler) delete(_ context.Context, _ *identity.User, req *dto.IDRequest) (*dto.OkResponse, error) {
	if err := h.store.Delete(req.ID); errors.Is(err, content.ErrNotFound) {
		return nil, dto.NotFound("submission")
	} else if err != nil {
		return nil, dto.InternalWithError("Failed to delete submission", err)
	}
	return &dto.OkResponse{Ok: true}, nil
}

func toResponse(s *content.Submission) dto.SubmissionResponse {
	return dto.SubmissionResponse{
		ID:          s.ID,
		Name:        s.Name,
		Email:       s.Email,
		Company:     s.Company,
		Page:        s.Page,
		Message:     s.Message,
		IP:          s.IP,
		CountryCode: s.CountryCode,
		Status:      string(s.Status),
		Created:     s.Created,
	}
}
