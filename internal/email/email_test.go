package email

import (
	"strings"
	"testing"
)

func TestConfigValidate(t *testing.T) {
	c := Config{Host: "smtp.example.com", Username: "u", Password: "p", From: "site@example.com"}
	if err := c.Validate(); err != nil {
		t.Fatal(err)
	}
	if c.Port != "587" {
		t.Errorf("port = %q, want default 587", c.Port)
	}
	c.NotifyTo = []string{"nope"}
	if err := c.Validate(); err == nil {
		t.Error("invalid notify_to accepted")
	}
	var empty Config
	if empty.Enabled() {
		t.Error("empty config enabled")
	}
}

func TestBuildMessage(t *testing.T) {
	msg := buildMessage("site@example.com", []string{"a@example.com", "b@example.com"}, "Hi\r\nBcc: evil@example.com", "body")
	if !strings.Contains(msg, "To: a@example.com, b@example.com\r\n") {
		t.Errorf("missing To header: %q", msg)
	}
	if strings.Contains(msg, "\r\nBcc:") {
		t.Errorf("header injection: %q", msg)
	}
	if !strings.HasSuffix(msg, "\r\n\r\nbody") {
		t.Errorf("body not separated: %q", msg)
	}
}

func TestSubmissionEmail(t *testing.T) {
	sub := Submission{Name: "Ada", Email: "ada@example.com", Message: "Hello there"}
	tests := []struct {
		locale  Locale
		subject string
		none    string
	}{
		{LocaleEN, "[Acme] New message from Ada", "(none)"},
		{LocaleFR, "[Acme] Nouveau message de Ada", "(aucun)"},
		{ParseLocale("xx"), "[Acme] New message from Ada", "(none)"},
	}
	for _, tt := range tests {
		t.Run(string(tt.locale), func(t *testing.T) {
			subject, body := SubmissionEmail(tt.locale, "Acme", sub)
			if subject != tt.subject {
				t.Errorf("subject = %q, want %q", subject, tt.subject)
			}
			for _, want := range []string{"ada@example.com", "Hello there", tt.none} {
				if !strings.Contains(body, want) {
					t.Errorf("body missing %q:\n%s", want, body)
				}
			}
		})
	}
}
