package content

import (
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"slices"
	"strings"
	"sync"
	"time"
	"unicode"

	"github.com/maruel/ksid"
	"github.com/maruel/showroom/internal/jsonldb"
)

// PortfolioItem is a case study shown on the site.
type PortfolioItem struct {
	ID        ksid.ID   `json:"id"`
	Slug      string    `json:"slug" jsonschema:"description=URL segment under /portfolio/"`
	Title     string    `json:"title"`
	Summary   string    `json:"summary,omitempty"`
	Body      string    `json:"body,omitempty" jsonschema:"description=Markdown body"`
	Tags      []string  `json:"tags,omitempty"`
	ImageURL  string    `json:"image_url,omitempty"`
	Featured  bool      `json:"featured,omitempty"`
	Order     int       `json:"order"`
	Published bool      `json:"published,omitempty"`
	Created   time.Time `json:"created"`
	Modified  time.Time `json:"modified"`
}

// Clone returns a deep copy.
func (p *PortfolioItem) Clone() *PortfolioItem {
	c := *p
	c.Tags = slices.Clone(p.Tags)
	return &c
}

// GetID returns the item ID.
func (p *PortfolioItem) GetID() ksid.ID {
	return p.ID
}

// Validate checks the item fields.
func (p *PortfolioItem) Validate() error {
	if p.ID.IsZero() {
		return errors.New("id is required")
	}
	if !IsSlug(p.Slug) {
		return fmt.Errorf("slug %q must be lowercase letters, digits and dashes", p.Slug)
	}
	if strings.TrimSpace(p.Title) == "" {
		return errors.New("title is required")
	}
	for _, tag := range p.Tags {
		if strings.TrimSpace(tag) == "" {
			return errors.New("tags must not be empty")
		}
	}
	return validateURL("image_url", p.ImageURL)
}

// PortfolioStore persists portfolio items.
type PortfolioStore struct {
	mu       sync.Mutex
	table    *jsonldb.Table[*PortfolioItem]
	bySlug   *jsonldb.UniqueIndex[string, *PortfolioItem]
	maxItems int
}

// NewPortfolioStore opens the portfolio table. maxItems <= 0 disables the
// quota.
func NewPortfolioStore(path string, maxItems int) (*PortfolioStore, error) {
	table, err := jsonldb.NewTable[*PortfolioItem](path)
	if err != nil {
		return nil, err
	}
	return &PortfolioStore{
		table:    table,
		bySlug:   jsonldb.NewUniqueIndex(table, func(p *PortfolioItem) string { return p.Slug }),
		maxItems: maxItems,
	}, nil
}

// List returns every item sorted by Order then Title. When publishedOnly is
// set, drafts are skipped.
func (s *PortfolioStore) List(publishedOnly bool) []*PortfolioItem {
	var out []*PortfolioItem
	for p := range s.table.All() {
		if publishedOnly && !p.Published {
			continue
		}
		out = append(out, p)
	}
	slices.SortStableFunc(out, func(a, b *PortfolioItem) int {
		if a.Order != b.Order {
			return a.Order - b.Order
		}
		return strings.Compare(a.Title, b.Title)
	})
	return out
}

// Get returns an item by ID.
func (s *PortfolioStore) Get(id ksid.ID) (*PortfolioItem, error) {
	p := s.table.Get(id)
	if p == nil {
		return nil, ErrNotFound
	}
	return p, nil
}

// GetBySlug returns an item by slug.
func (s *PortfolioStore) GetBySlug(slug string) (*PortfolioItem, error) {
	p := s.bySlug.Get(slug)
	if p == nil {
		return nil, ErrNotFound
	}
	return p, nil
}

// Create stores a new item. An empty slug is derived from the title.
func (s *PortfolioStore) Create(item *PortfolioItem) (*PortfolioItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.maxItems > 0 && s.table.Len() >= s.maxItems {
		return nil, ErrQuotaExceeded
	}
	row := item.Clone()
	if row.Slug == "" {
		row.Slug = Slugify(row.Title)
	}
	if _, ok := s.bySlug.Lookup(row.Slug); ok {
		return nil, ErrSlugTaken
	}
	now := time.Now().UTC()
	row.ID = ksid.NewID()
	row.Title = strings.TrimSpace(row.Title)
	row.Created = now
	row.Modified = now
	if err := s.table.Append(row); err != nil {
		return nil, err
	}
	return row.Clone(), nil
}

// Update applies fn to an item.
func (s *PortfolioStore) Update(id ksid.ID, fn func(p *PortfolioItem) error) (*PortfolioItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, err := s.table.Modify(id, func(p *PortfolioItem) error {
		if err := fn(p); err != nil {
			return err
		}
		if other, ok := s.bySlug.Lookup(p.Slug); ok && other != p.ID {
			return ErrSlugTaken
		}
		p.Modified = time.Now().UTC()
		return nil
	})
	if errors.Is(err, jsonldb.ErrNotFound) {
		return nil, ErrNotFound
	}
	return p, err
}

// Delete removes an item.
func (s *PortfolioStore) Delete(id ksid.ID) error {
	_, err := s.table.Delete(id)
	if errors.Is(err, jsonldb.ErrNotFound) {
		return ErrNotFound
	}
	return err
}

var slugRe = regexp.MustCompile(`^[a-z0-9]+(-[a-z0-9]+)*$`)

// IsSlug reports whether s is usable as a URL segment.
func IsSlug(s string) bool {
	return slugRe.MatchString(s)
}

// Slugify derives a slug from a title. Non ASCII letters are dropped.
func Slugify(title string) string {
	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(title) {
		if r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r)) {
			if dash && b.Len() > 0 {
				b.WriteByte('-')
			}
			dash = false
			b.WriteRune(r)
		} else {
			dash = true
		}
	}
	if b.Len() == 0 {
		return "item"
	}
	return b.String()
}

func validateURL(field, s string) error {
	if s == "" {
		return nil
	}
	u, err := url.Parse(s)
	if err != nil || (u.Scheme != "https" && u.Scheme != "http" && !strings.HasPrefix(s, "/")) {
		return fmt.Errorf("%s %q must be an http(s) URL or an absolute path", field, s)
	}
	return nil
}
