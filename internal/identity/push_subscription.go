package identity

import (
	"errors"
	"iter"
	"net/url"
	"time"

	"github.com/maruel/ksid"
	"github.com/maruel/showroom/internal/jsonldb"
)

var (
	// ErrPushSubscriptionNotFound is returned when no subscription matches.
	ErrPushSubscriptionNotFound = errors.New("push subscription not found")

	errPushSubIDRequired     = errors.New("push subscription id is required")
	errPushSubUserIDRequired = errors.New("push subscription user_id is required")
	errPushSubEndpoint       = errors.New("push subscription endpoint must be an https URL")
	errPushSubKeysRequired   = errors.New("push subscription keys are required")
)

// PushSubscription is a browser Web Push subscription of an administrator.
type PushSubscription struct {
	ID       ksid.ID   `json:"id"`
	UserID   ksid.ID   `json:"user_id"`
	Endpoint string    `json:"endpoint"`
	P256dh   string    `json:"p256dh"`
	Auth     string    `json:"auth"`
	Created  time.Time `json:"created"`
}

// Clone returns a copy.
func (p *PushSubscription) Clone() *PushSubscription {
	c := *p
	return &c
}

// GetID returns the subscription ID.
func (p *PushSubscription) GetID() ksid.ID {
	return p.ID
}

// Validate checks required fields.
func (p *PushSubscription) Validate() error {
	if p.ID.IsZero() {
		return errPushSubIDRequired
	}
	if p.UserID.IsZero() {
		return errPushSubUserIDRequired
	}
	if u, err := url.Parse(p.Endpoint); err != nil || u.Scheme != "https" || u.Host == "" {
		return errPushSubEndpoint
	}
	if p.P256dh == "" || p.Auth == "" {
		return errPushSubKeysRequired
	}
	return nil
}

// PushSubscriptionService handles push subscription persistence.
type PushSubscriptionService struct {
	table      *jsonldb.Table[*PushSubscription]
	byEndpoint *jsonldb.UniqueIndex[string, *PushSubscription]
}

// NewPushSubscriptionService opens the push subscriptions table.
func NewPushSubscriptionService(tablePath string) (*PushSubscriptionService, error) {
	table, err := jsonldb.NewTable[*PushSubscription](tablePath)
	if err != nil {
		return nil, err
	}
	byEndpoint := jsonldb.NewUniqueIndex(table, func(p *PushSubscription) string { return p.Endpoint })
	return &PushSubscriptionService{table: table, byEndpoint: byEndpoint}, nil
}

// Create stores a subscription, replacing any previous one for the same
// endpoint.
func (s *PushSubscriptionService) Create(userID ksid.ID, endpoint, p256dh, auth string) (*PushSubscription, error) {
	if existing, ok := s.byEndpoint.Lookup(endpoint); ok {
		if _, err := s.table.Delete(existing); err != nil {
			return nil, err
		}
	}
	sub := &PushSubscription{
		ID:       ksid.NewID(),
		UserID:   userID,
		Endpoint: endpoint,
		P256dh:   p256dh,
		Auth:     auth,
		Created:  time.Now().UTC(),
	}
	if err := s.table.Append(sub); err != nil {
		return nil, err
	}
	return sub.Clone(), nil
}

// All iterates over every subscription.
func (s *PushSubscriptionService) All() iter.Seq[*PushSubscription] {
	return s.table.All()
}

// DeleteByEndpoint removes the subscription registered for endpoint.
func (s *PushSubscriptionService) DeleteByEndpoint(endpoint string) error {
	id, ok := s.byEndpoint.Lookup(endpoint)
	if !ok {
		return ErrPushSubscriptionNotFound
	}
	_, err := s.table.Delete(id)
	return err
}
