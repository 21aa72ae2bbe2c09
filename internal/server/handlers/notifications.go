// Manages the Web Push subscriptions of administrators.

package handlers

import (
	"context"
	"errors"

	"github.com/maruel/showroom/internal/config"
	"github.com/maruel/showroom/internal/identity"
	"github.com/maruel/showroom/internal/server/dto"
)

// NotificationHandler handles push subscription requests.
type NotificationHandler struct {
	vapid config.VAPID
	subs  *identity.PushSubscriptionService
}

// NewNotificationHandler creates a new notification handler.
func NewNotificationHandler(vapid config.VAPID, subs *identity.PushSubscriptionService) *NotificationHandler {
	return &NotificationHandler{vapid: vapid, subs: subs}
}

// VAPIDKey returns the public key browsers subscribe with.
func (h *NotificationHandler) VAPIDKey(_ context.Context, _ *dto.VAPIDKeyRequest) (*dto.VAPIDKeyResponse, error) {
	if h.vapid.PublicKey == "" {
		return nil, dto.NotFound("VAPID key")
	}
	return &dto.VAPIDKeyResponse{PublicKey: h.vapid.PublicKey}, nil
}

// Subscribe registers the caller's browser.
func (h *NotificationHandler) Subscribe(_ context.Context, user *identity.User, req *dto.PushSubscribeRequest) (*dto.OkResponse, error) {
	if _, err := h.subs.Create(user.ID, req.Endpoint, req.P256dh, req.Auth); err != nil {
		return nil, dto.BadRequest(err.Error())
	}
	return &dto.OkResponse{Ok: true}, nil
}

// Unsubscribe removes a browser subscription. Unknown endpoints succeed.
func (h *NotificationHandler) Unsubscribe(_ context.Context, _ *identity.User, req *dto.PushUnsubscribeRequest) (*dto.OkResponse, error) {
	if err := h.subs.DeleteByEndpoint(req.Endpoint); err != nil && !errors.Is(err, identity.ErrPushSubscriptionNotFound) {
		return nil, dto.InternalWithError("Failed to unsubscribe", err)
	}
	return &dto.OkResponse{Ok: true}, nil
}
