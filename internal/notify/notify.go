// Package notify tells administrators about new contact form submissions by
// email and web push.
//
// Delivery is fire-and-forget: it never blocks the request and failures are
// only logged.
package notify

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"slices"
	"sync"

	webpush "github.com/SherClockHolmes/webpush-go"
	"github.com/maruel/showroom/internal/config"
	"github.com/maruel/showroom/internal/content"
	"github.com/maruel/showroom/internal/email"
	"github.com/maruel/showroom/internal/identity"
)

// pushTTL is how long push services keep an undelivered message, in seconds.
const pushTTL = 86400

type mailer interface {
	SendSubmission(ctx context.Context, siteName string, sub email.Submission, locale email.Locale) error
}

type pushFunc func(payload []byte, s *webpush.Subscription, opts *webpush.Options) (*http.Response, error)

// Notifier dispatches submission notifications.
type Notifier struct {
	mail     mailer
	push     pushFunc
	subs     *identity.PushSubscriptionService
	vapid    config.VAPID
	siteName string
	locale   email.Locale
	wg       sync.WaitGroup
}

// New returns a Notifier using the SMTP and VAPID settings of cfg. Channels
// that are not configured are skipped. subs may be nil to disable push.
func New(cfg *config.ServerConfig, subs *identity.PushSubscriptionService) *Notifier {
	n := &Notifier{
		push:     webpush.SendNotification,
		subs:     subs,
		vapid:    cfg.VAPID,
		siteName: cfg.Site.Name,
		locale:   email.ParseLocale(cfg.Site.Locale),
	}
	if cfg.SMTP.Enabled() && len(cfg.SMTP.NotifyTo) != 0 {
		n.mail = &email.Service{Config: cfg.SMTP}
	}
	return n
}

// Submission notifies about sub in the background.
func (n *Notifier) Submission(ctx context.Context, sub *content.Submission) {
	if n == nil {
		return
	}
	// The request context is canceled once the response is sent.
	ctx = context.WithoutCancel(ctx)
	if n.mail != nil {
		n.wg.Go(func() {
			msg := email.Submission{
				Name:    sub.Name,
				Email:   sub.Email,
				Company: sub.Company,
				Page:    sub.Page,
				Message: sub.Message,
				Country: sub.CountryCode,
			}
			if err := n.mail.SendSubmission(ctx, n.siteName, msg, n.locale); err != nil {
				slog.ErrorContext(ctx, "Failed to email submission", "err", err, "submission_id", sub.ID)
			}
		})
	}
	if n.subs != nil && n.vapid.PrivateKey != "" {
		n.wg.Go(func() { n.pushAll(ctx, sub) })
	}
}

// Wait blocks until every pending notification is delivered or failed.
func (n *Notifier) Wait() {
	if n != nil {
		n.wg.Wait()
	}
}

func (n *Notifier) pushAll(ctx context.Context, sub *content.Submission) {
	payload, err := json.Marshal(map[string]string{
		"type":  "submission",
		"id":    sub.ID.String(),
		"title": "New message from " + sub.Name,
		"body":  truncate(sub.Message, 140),
		"url":   "/admin/submissions",
	})
	if err != nil {
		slog.ErrorContext(ctx, "Failed to encode push payload", "err", err)
		return
	}
	// Collect first: deleting while iterating would deadlock on the table.
	for _, s := range slices.Collect(n.subs.All()) {
		resp, err := n.push(payload, &webpush.Subscription{
			Endpoint: s.Endpoint,
			Keys:     webpush.Keys{P256dh: s.P256dh, Auth: s.Auth},
		}, &webpush.Options{
			Subscriber:      n.vapid.Subject,
			VAPIDPublicKey:  n.vapid.PublicKey,
			VAPIDPrivateKey: n.vapid.PrivateKey,
			TTL:             pushTTL,
		})
		if err != nil {
			slog.ErrorContext(ctx, "Web push send failed", "err", err, "endpoint", s.Endpoint)
			continue
		}
		_ = resp.Body.Close()
		switch {
		case resp.StatusCode == http.StatusGone || resp.StatusCode == http.StatusNotFound:
			// The browser unsubscribed.
			if err := n.subs.DeleteByEndpoint(s.Endpoint); err != nil {
				slog.ErrorContext(ctx, "Failed to delete expired push subscription", "err", err, "endpoint", s.Endpoint)
			}
		case resp.StatusCode >= 400:
			slog.WarnContext(ctx, "Web push rejected", "status", resp.StatusCode, "endpoint", s.Endpoint)
		}
	}
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
