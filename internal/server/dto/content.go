// Request and response types for submissions, portfolio and testimonials.

package dto

import (
	"strings"
	"time"

	"github.com/maruel/ksid"
)

// CreateSubmissionRequest is a contact form post from the public site.
type CreateSubmissionRequest struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Company string `json:"company,omitempty"`
	Page    string `json:"page,omitempty"`
	Message string `json:"message"`
	// Website is a honeypot field hidden from humans.
	Website string `json:"website,omitempty"`
}

// Validate validates the submission fields.
func (r *CreateSubmissionRequest) Validate() error {
	if strings.TrimSpace(r.Name) == "" {
		return MissingField("name")
	}
	if err := validateEmail("email", r.Email); err != nil {
		return err
	}
	if strings.TrimSpace(r.Message) == "" {
		return MissingField("message")
	}
	return nil
}

// CreateSubmissionResponse acknowledges a submission.
type CreateSubmissionResponse struct {
	Ok bool    `json:"ok"`
	ID ksid.ID `json:"id,omitzero"`
}

// SubmissionResponse is a contact form submission as seen by administrators.
type SubmissionResponse struct {
	ID          ksid.ID   `json:"id"`
	Name        string    `json:"name"`
	Email       string    `json:"email"`
	Company     string    `json:"company,omitempty"`
	Page        string    `json:"page,omitempty"`
	Message     string    `json:"message"`
	IP          string    `json:"ip,omitempty"`
	CountryCode string    `json:"country_code,omitempty"`
	Status      string    `json:"status"`
	Created     time.Time `json:"created"`
}

// ListSubmissionsRequest lists submissions, optionally with one status.
type ListSubmissionsRequest struct {
	Status string `query:"status"`
}

// Validate validates the status filter.
func (r *ListSubmissionsRequest) Validate() error {
	switch r.Status {
	case "", "new", "read", "archived":
		return nil
	}
	return InvalidField("status", "must be new, read or archived")
}

// ListSubmissionsResponse lists submissions newest first with per-status
// counts.
type ListSubmissionsResponse struct {
	Submissions []SubmissionResponse `json:"submissions"`
	Counts      map[string]int       `json:"counts"`
}

// UpdateSubmissionStatusRequest moves a submission through the inbox.
type UpdateSubmissionStatusRequest struct {
	ID     ksid.ID `path:"id" tstype:"-"`
	Status string  `json:"status"`
}

// Validate validates the request.
func (r *UpdateSubmissionStatusRequest) Validate() error {
	if r.ID.IsZero() {
		return MissingField("id")
	}
	switch r.Status {
	case "new", "read", "archived":
		return nil
	case "":
		return MissingField("status")
	}
	return InvalidField("status", "must be new, read or archived")
}

// PortfolioItemResponse is a portfolio entry.
type PortfolioItemResponse struct {
	ID        ksid.ID   `json:"id"`
	Slug      string    `json:"slug"`
	Title     string    `json:"title"`
	Summary   string    `json:"summary,omitempty"`
	Body      string    `json:"body,omitempty"`
	BodyHTML  string    `json:"body_html,omitempty"`
	Tags      []string  `json:"tags,omitempty"`
	ImageURL  string    `json:"image_url,omitempty"`
	Featured  bool      `json:"featured"`
	Order     int       `json:"order"`
	Published bool      `json:"published"`
	Created   time.Time `json:"created"`
	Modified  time.Time `json:"modified"`
}

// ListPortfolioRequest lists portfolio entries.
type ListPortfolioRequest struct {
	Tag string `query:"tag"`
}

// Validate is a no-op.
func (r *ListPortfolioRequest) Validate() error {
	return nil
}

// ListPortfolioResponse lists portfolio entries in display order.
type ListPortfolioResponse struct {
	Items []PortfolioItemResponse `json:"items"`
}

// GetPortfolioBySlugRequest fetches a published entry by slug.
type GetPortfolioBySlugRequest struct {
	Slug string `path:"slug" tstype:"-"`
}

// Validate validates the slug.
func (r *GetPortfolioBySlugRequest) Validate() error {
	if r.Slug == "" {
		return MissingField("slug")
	}
	return nil
}

// PortfolioItemFields are the editable fields of a portfolio entry.
type PortfolioItemFields struct {
	Slug      string   `json:"slug,omitempty"`
	Title     string   `json:"title"`
	Summary   string   `json:"summary,omitempty"`
	Body      string   `json:"body,omitempty"`
	Tags      []string `json:"tags,omitempty"`
	ImageURL  string   `json:"image_url,omitempty"`
	Featured  bool     `json:"featured"`
	Order     int      `json:"order"`
	Published bool     `json:"published"`
}

func (f *PortfolioItemFields) validate() error {
	if strings.TrimSpace(f.Title) == "" {
		return MissingField("title")
	}
	return nil
}

// CreatePortfolioItemRequest creates a portfolio entry. An empty slug is
// derived from the title.
type CreatePortfolioItemRequest struct {
	PortfolioItemFields
}

// Validate validates the request.
func (r *CreatePortfolioItemRequest) Validate() error {
	return r.validate()
}

// UpdatePortfolioItemRequest replaces the editable fields of an entry.
type UpdatePortfolioItemRequest struct {
	ID ksid.ID `path:"id" tstype:"-"`
	PortfolioItemFields
}

// Validate validates the request.
func (r *UpdatePortfolioItemRequest) Validate() error {
	if r.ID.IsZero() {
		return MissingField("id")
	}
	if r.Slug == "" {
		return MissingField("slug")
	}
	return r.validate()
}

// TestimonialResponse is a customer quote.
type TestimonialResponse struct {
	ID        ksid.ID   `json:"id"`
	Author    string    `json:"author"`
	Role      string    `json:"role,omitempty"`
	Company   string    `json:"company,omitempty"`
	Quote     string    `json:"quote"`
	Rating    int       `json:"rating"`
	AvatarURL string    `json:"avatar_url,omitempty"`
	Order     int       `json:"order"`
	Published bool      `json:"published"`
	Created   time.Time `json:"created"`
}

// ListTestimonialsRequest lists testimonials.
type ListTestimonialsRequest struct{}

// Validate is a no-op.
func (r *ListTestimonialsRequest) Validate() error {
	return nil
}

// ListTestimonialsResponse lists testimonials in display order.
type ListTestimonialsResponse struct {
	Testimonials []TestimonialResponse `json:"testimonials"`
}

// TestimonialFields are the editable fields of a testimonial.
type TestimonialFields struct {
	Author    string `json:"author"`
	Role      string `json:"role,omitempty"`
	Company   string `json:"company,omitempty"`
	Quote     string `json:"quote"`
	Rating    int    `json:"rating"`
	AvatarURL string `json:"avatar_url,omitempty"`
	Order     int    `json:"order"`
	Published bool   `json:"published"`
}

func (f *TestimonialFields) validate() error {
	if strings.TrimSpace(f.Author) == "" {
		return MissingField("author")
	}
	if strings.TrimSpace(f.Quote) == "" {
		return MissingField("quote")
	}
	if f.Rating < 1 || f.Rating > 5 {
		return InvalidField("rating", "must be between 1 and 5")
	}
	return nil
}

// CreateTestimonialRequest creates a testimonial.
type CreateTestimonialRequest struct {
	TestimonialFields
}

// Validate validates the request.
func (r *CreateTestimonialRequest) Validate() error {
	return r.validate()
}

// UpdateTestimonialRequest replaces the editable fields of a testimonial.
type UpdateTestimonialRequest struct {
	ID ksid.ID `path:"id" tstype:"-"`
	TestimonialFields
}

// Validate validates the request.
func (r *UpdateTestimonialRequest) Validate() error {
	if r.ID.IsZero() {
		return MissingField("id")
	}
	return r.validate()
}
