// Provides localized email templates.

package email

import (
	"fmt"
	"strings"
)

// Locale represents a supported language code.
type Locale string

// Supported locales for email templates.
const (
	LocaleEN Locale = "en"
	LocaleFR Locale = "fr"
)

// DefaultLocale is used when no locale is specified or the locale is unsupported.
const DefaultLocale = LocaleEN

// ParseLocale converts a string to a Locale, returning DefaultLocale if unsupported.
func ParseLocale(s string) Locale {
	switch Locale(s) {
	case LocaleEN, LocaleFR:
		return Locale(s)
	default:
		return DefaultLocale
	}
}

// Submission is the part of a contact form submission rendered in emails.
type Submission struct {
	Name    string
	Email   string
	Company string
	Page    string
	Message string
	Country string
}

type emailTemplates struct {
	SubmissionSubject string
	SubmissionBody    string
	UnknownField      string
}

var templates = map[Locale]*emailTemplates{
	LocaleEN: {
		SubmissionSubject: "[%s] New message from %s",
		SubmissionBody: `A visitor sent a message through the contact form.

Name:    %s
Email:   %s
Company: %s
Page:    %s
Country: %s

%s

- %s
`,
		UnknownField: "(none)",
	},
	LocaleFR: {
		SubmissionSubject: "[%s] Nouveau message de %s",
		SubmissionBody: `Un visiteur a envoyé un message via le formulaire de contact.

Nom :        %s
E-mail :     %s
Entreprise : %s
Page :       %s
Pays :       %s

%s

- %s
`,
		UnknownField: "(aucun)",
	},
}

func getTemplates(locale Locale) *emailTemplates {
	if t, ok := templates[locale]; ok {
		return t
	}
	return templates[DefaultLocale]
}

// SubmissionEmail returns the subject and body of a submission notification.
func SubmissionEmail(locale Locale, siteName string, sub Submission) (subject, body string) {
	t := getTemplates(locale)
	orNone := func(s string) string {
		if strings.TrimSpace(s) == "" {
			return t.UnknownField
		}
		return s
	}
	subject = fmt.Sprintf(t.SubmissionSubject, siteName, sub.Name)
	body = fmt.Sprintf(t.SubmissionBody,
		sub.Name, sub.Email, orNone(sub.Company), orNone(sub.Page), orNone(sub.Country),
		sub.Message, siteName)
	return subject, body
}
