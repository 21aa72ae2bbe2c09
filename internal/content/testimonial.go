package content

import (
	"errors"
	"slices"
	"strings"
	"time"

	"github.com/maruel/ksid"
	"github.com/maruel/showroom/internal/jsonldb"
)

// Testimonial is a customer quote.
type Testimonial struct {
	ID        ksid.ID   `json:"id"`
	Author    string    `json:"author"`
	Role      string    `json:"role,omitempty"`
	Company   string    `json:"company,omitempty"`
	Quote     string    `json:"quote" jsonschema:"description=Markdown quote"`
	Rating    int       `json:"rating" jsonschema:"minimum=1,maximum=5"`
	AvatarURL string    `json:"avatar_url,omitempty"`
	Order     int       `json:"order"`
	Published bool      `json:"published,omitempty"`
	Created   time.Time `json:"created"`
}

// Clone returns a copy.
func (t *Testimonial) Clone() *Testimonial {
	c := *t
	return &c
}

// GetID returns the testimonial ID.
func (t *Testimonial) GetID() ksid.ID {
	return t.ID
}

// Validate checks the testimonial fields.
func (t *Testimonial) Validate() error {
	if t.ID.IsZero() {
		return errors.New("id is required")
	}
	if strings.TrimSpace(t.Author) == "" {
		return errors.New("author is required")
	}
	if strings.TrimSpace(t.Quote) == "" {
		return errors.New("quote is required")
	}
	if t.Rating < 1 || t.Rating > 5 {
		return errors.New("rating must be between 1 and 5")
	}
	return validateURL("avatar_url", t.AvatarURL)
}

// TestimonialStore persists testimonials.
type TestimonialStore struct {
	table *jsonldb.Table[*Testimonial]
}

// NewTestimonialStore opens the testimonials table.
func NewTestimonialStore(path string) (*TestimonialStore, error) {
	table, err := jsonldb.NewTable[*Testimonial](path)
	if err != nil {
		return nil, err
	}
	return &TestimonialStore{table: table}, nil
}

// List returns testimonials sorted by Order then creation.
func (s *TestimonialStore) List(publishedOnly bool) []*Testimonial {
	var out []*Testimonial
	for t := range s.table.All() {
		if !publishedOnly || t.Published {
			out = append(out, t)
		}
	}
	slices.SortStableFunc(out, func(a, b *Testimonial) int { return a.Order - b.Order })
	return out
}

// Get returns a testimonial.
func (s *TestimonialStore) Get(id ksid.ID) (*Testimonial, error) {
	t := s.table.Get(id)
	if t == nil {
		return nil, ErrNotFound
	}
	return t, nil
}

// Create stores a new testimonial.
func (s *TestimonialStore) Create(t *Testimonial) (*Testimonial, error) {
	row := t.Clone()
	row.ID = ksid.NewID()
	row.Created = time.Now().UTC()
	if err := s.table.Append(row); err != nil {
		return nil, err
	}
	return row.Clone(), nil
}

// Update applies fn to a testimonial.
func (s *TestimonialStore) Update(id ksid.ID, fn func(t *Testimonial) error) (*Testimonial, error) {
	t, err := s.table.Modify(id, fn)
	if errors.Is(err, jsonldb.ErrNotFound) {
		return nil, ErrNotFound
	}
	return t, err
}

// Delete removes a testimonial.
func (s *TestimonialStore) Delete(id ksid.ID) error {
	_, err := s.table.Delete(id)
	if errors.Is(err, jsonldb.ErrNotFound) {
		return ErrNotFound
	}
	return err
}
