// Request and response types for the module registry, the site route table
// and push notifications.

package dto

import (
	"strings"
)

// ListModulesRequest lists the registered admin modules.
type ListModulesRequest struct{}

// Validate is a no-op.
func (r *ListModulesRequest) Validate() error {
	return nil
}

// ModuleRoute is one HTTP route of a module.
type ModuleRoute struct {
	Method string `json:"method"`
	Path   string `json:"path"`
	Public bool   `json:"public,omitempty"`
}

// ModuleResponse describes a registered module.
type ModuleResponse struct {
	Name        string        `json:"name"`
	Title       string        `json:"title"`
	Description string        `json:"description,omitempty"`
	Icon        string        `json:"icon,omitempty"`
	Order       int           `json:"order"`
	Routes      []ModuleRoute `json:"routes"`
	Tables      []string      `json:"tables,omitempty"`
}

// NavItem is one sidebar entry.
type NavItem struct {
	ID    string `json:"id"`
	Label string `json:"label"`
	Path  string `json:"path"`
	Icon  string `json:"icon,omitempty"`
	Order int    `json:"order"`
}

// NavSection groups sidebar entries.
type NavSection struct {
	Name  string    `json:"name"`
	Items []NavItem `json:"items"`
}

// ListModulesResponse lists modules and the sidebar they contribute.
type ListModulesResponse struct {
	Modules []ModuleResponse `json:"modules"`
	Nav     []NavSection     `json:"nav"`
}

// SiteRoutesRequest returns the expanded static route table.
type SiteRoutesRequest struct{}

// Validate is a no-op.
func (r *SiteRoutesRequest) Validate() error {
	return nil
}

// VAPIDKeyRequest returns the web push public key.
type VAPIDKeyRequest struct{}

// Validate is a no-op.
func (r *VAPIDKeyRequest) Validate() error {
	return nil
}

// VAPIDKeyResponse carries the VAPID public key.
type VAPIDKeyResponse struct {
	PublicKey string `json:"public_key"`
}

// PushSubscribeRequest registers a browser push subscription.
type PushSubscribeRequest struct {
	Endpoint string `json:"endpoint"`
	P256dh   string `json:"p256dh"`
	Auth     string `json:"auth"`
}

// Validate validates the subscription.
func (r *PushSubscribeRequest) Validate() error {
	if r.Endpoint == "" {
		return MissingField("endpoint")
	}
	if !strings.HasPrefix(r.Endpoint, "https://") {
		return InvalidField("endpoint", "must be an https URL")
	}
	if r.P256dh == "" {
		return MissingField("p256dh")
	}
	if r.Auth == "" {
		return MissingField("auth")
	}
	return nil
}

// PushUnsubscribeRequest removes a browser push subscription.
type PushUnsubscribeRequest struct {
	Endpoint string `json:"endpoint"`
}

// Validate validates the endpoint.
func (r *PushUnsubscribeRequest) Validate() error {
	if r.Endpoint == "" {
		return MissingField("endpoint")
	}
	return nil
}
