// Package email sends notification emails over SMTP.
//
// Connections always negotiate STARTTLS and authenticate.
package email

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/smtp"
	"strings"
	"time"
)

// Config holds SMTP configuration. An empty Host disables email.
type Config struct {
	Host     string   `json:"host"`
	Port     string   `json:"port"`
	Username string   `json:"username"`
	Password string   `json:"password"`
	From     string   `json:"from"`
	NotifyTo []string `json:"notify_to,omitempty"`
}

// Enabled returns true if SMTP is configured with at least a host.
func (c *Config) Enabled() bool {
	return c.Host != ""
}

// Validate checks that required fields are set and applies defaults.
func (c *Config) Validate() error {
	if c.Host == "" {
		return errors.New("smtp: host is required")
	}
	if c.Username == "" {
		return errors.New("smtp: username is required")
	}
	if c.Password == "" {
		return errors.New("smtp: password is required")
	}
	if c.From == "" {
		return errors.New("smtp: from is required")
	}
	for _, to := range c.NotifyTo {
		if !strings.Contains(to, "@") {
			return fmt.Errorf("smtp: invalid notify_to address %q", to)
		}
	}
	if c.Port == "" {
		c.Port = "587"
	}
	return nil
}

// Service sends emails with a Config.
type Service struct {
	Config Config
}

// Send sends an email to one recipient.
func (s *Service) Send(ctx context.Context, to, subject, body string) error {
	return s.sendMail(ctx, []string{to}, subject, body)
}

// SendMultiple sends an email to multiple recipients.
func (s *Service) SendMultiple(ctx context.Context, to []string, subject, body string) error {
	if len(to) == 0 {
		return errors.New("no recipient")
	}
	return s.sendMail(ctx, to, subject, body)
}

// SendSubmission notifies the configured recipients of a new contact form
// submission.
func (s *Service) SendSubmission(ctx context.Context, siteName string, sub Submission, locale Locale) error {
	subject, body := SubmissionEmail(locale, siteName, sub)
	return s.SendMultiple(ctx, s.Config.NotifyTo, subject, body)
}

func (s *Service) sendMail(ctx context.Context, to []string, subject, body string) error {
	addr := net.JoinHostPort(s.Config.Host, s.Config.Port)
	dialer := &net.Dialer{Timeout: 10 * time.Second}
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return fmt.Errorf("dial: %w", err)
	}
	client, err := smtp.NewClient(conn, s.Config.Host)
	if err != nil {
		_ = conn.Close()
		return fmt.Errorf("smtp client: %w", err)
	}
	defer func() {
		if err := client.Quit(); err != nil {
			slog.WarnContext(ctx, "SMTP quit failed", "err", err)
		}
	}()

	tlsConfig := &tls.Config{
		ServerName: s.Config.Host,
		MinVersion: tls.VersionTLS12,
	}
	if err := client.StartTLS(tlsConfig); err != nil {
		return fmt.Errorf("starttls: %w", err)
	}
	auth := smtp.PlainAuth("", s.Config.Username, s.Config.Password, s.Config.Host)
	if err := client.Auth(auth); err != nil {
		return fmt.Errorf("auth: %w", err)
	}
	if err := client.Mail(s.Config.From); err != nil {
		return fmt.Errorf("mail from: %w", err)
	}
	for _, rcpt := range to {
		if err := client.Rcpt(rcpt); err != nil {
			return fmt.Errorf("rcpt to %s: %w", rcpt, err)
		}
	}
	w, err := client.Data()
	if err != nil {
		return fmt.Errorf("data: %w", err)
	}
	if _, err := w.Write([]byte(buildMessage(s.Config.From, to, subject, body))); err != nil {
		return fmt.Errorf("write: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("close: %w", err)
	}
	slog.InfoContext(ctx, "Email sent", "to", to, "subject", subject)
	return nil
}

// buildMessage renders the RFC 5322 message. Header values are stripped of
// line breaks so user supplied text cannot inject headers.
func buildMessage(from string, to []string, subject, body string) string {
	var sb strings.Builder
	sb.WriteString("From: " + oneLine(from) + "\r\n")
	sb.WriteString("To: " + oneLine(strings.Join(to, ", ")) + "\r\n")
	sb.WriteString("Subject: " + oneLine(subject) + "\r\n")
	sb.WriteString("MIME-Version: 1.0\r\n")
	sb.WriteString("Content-Type: text/plain; charset=\"utf-8\"\r\n")
	sb.WriteString("\r\n")
	sb.WriteString(body)
	return sb.String()
}

func oneLine(s string) string {
	return strings.NewReplacer("\r", " ", "\n", " ").Replace(s)
}
