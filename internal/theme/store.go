// Persists themes in a JSONL table and enforces the single active theme.

package theme

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"
	"unicode"

	"github.com/maruel/ksid"
	"github.com/maruel/showroom/internal/jsonldb"
)

var (
	// ErrNotFound is returned when a theme does not exist.
	ErrNotFound = errors.New("theme not found")
	// ErrSlugTaken is returned when a slug is already used by another theme.
	ErrSlugTaken = errors.New("theme slug already in use")
	// ErrActiveTheme is returned when deleting the active theme.
	ErrActiveTheme = errors.New("cannot delete the active theme")
	// ErrNoActiveTheme is returned when no theme is active.
	ErrNoActiveTheme = errors.New("no active theme")
	// ErrQuotaExceeded is returned when the theme limit is reached.
	ErrQuotaExceeded = errors.New("theme quota exceeded")

	errNameRequired = errors.New("name is required")
	errIDRequired   = errors.New("id is required")
)

// Theme is a row of the themes table.
type Theme struct {
	ID          ksid.ID   `json:"id" jsonschema:"description=Unique theme identifier"`
	Name        string    `json:"name" jsonschema:"description=Display name"`
	Slug        string    `json:"slug" jsonschema:"description=Unique kebab-case identifier"`
	Description string    `json:"description,omitempty"`
	Config      Config    `json:"config" jsonschema:"description=Validated theme settings"`
	IsActive    bool      `json:"is_active,omitempty" jsonschema:"description=Whether the site currently uses this theme"`
	Version     int       `json:"version" jsonschema:"description=Incremented on each publish"`
	PublishedAt time.Time `json:"published_at,omitzero" jsonschema:"description=Last publish timestamp"`
	Created     time.Time `json:"created"`
	Modified    time.Time `json:"modified"`
}

// Clone returns a deep copy of the theme.
func (t *Theme) Clone() *Theme {
	c := *t
	c.Config = t.Config.Clone()
	return &c
}

// GetID returns the theme ID.
func (t *Theme) GetID() ksid.ID {
	return t.ID
}

// Validate checks the row, including its config.
func (t *Theme) Validate() error {
	if t.ID.IsZero() {
		return errIDRequired
	}
	if strings.TrimSpace(t.Name) == "" {
		return errNameRequired
	}
	if !IsKebab(t.Slug) {
		return fmt.Errorf("slug %q must be kebab-case", t.Slug)
	}
	return t.Config.Validate()
}

// Store is the theme service.
type Store struct {
	// mu serializes operations touching more than one row.
	mu        sync.Mutex
	table     *jsonldb.Table[*Theme]
	bySlug    *jsonldb.UniqueIndex[string, *Theme]
	maxThemes int
}

// NewStore opens the themes table. maxThemes <= 0 disables the quota.
func NewStore(path string, maxThemes int) (*Store, error) {
	table, err := jsonldb.NewTable[*Theme](path)
	if err != nil {
		return nil, err
	}
	return &Store{
		table:     table,
		bySlug:    jsonldb.NewUniqueIndex(table, func(t *Theme) string { return t.Slug }),
		maxThemes: maxThemes,
	}, nil
}

// List returns all themes, oldest first.
func (s *Store) List() []*Theme {
	return slices.Collect(s.table.All())
}

// Get returns the theme with the given ID.
func (s *Store) Get(id ksid.ID) (*Theme, error) {
	t := s.table.Get(id)
	if t == nil {
		return nil, ErrNotFound
	}
	return t, nil
}

// GetBySlug returns the theme with the given slug.
func (s *Store) GetBySlug(slug string) (*Theme, error) {
	t := s.bySlug.Get(slug)
	if t == nil {
		return nil, ErrNotFound
	}
	return t, nil
}

// Active returns the active theme.
func (s *Store) Active() (*Theme, error) {
	for t := range s.table.All() {
		if t.IsActive {
			return t, nil
		}
	}
	return nil, ErrNoActiveTheme
}

// Create stores a new theme. An empty slug is derived from the name. The
// config is default-filled then validated. The first theme becomes active.
func (s *Store) Create(name, slug, description string, cfg Config) (*Theme, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.maxThemes > 0 && s.table.Len() >= s.maxThemes {
		return nil, ErrQuotaExceeded
	}
	if slug == "" {
		slug = Slugify(name)
	}
	if s.bySlug.Get(slug) != nil {
		return nil, ErrSlugTaken
	}
	now := time.Now().UTC()
	t := &Theme{
		ID:          ksid.NewID(),
		Name:        strings.TrimSpace(name),
		Slug:        slug,
		Description: description,
		Config:      cfg.WithDefaults(),
		IsActive:    s.table.Len() == 0,
		Created:     now,
		Modified:    now,
	}
	if err := s.table.Append(t); err != nil {
		return nil, unwrapValidation(err)
	}
	return t.Clone(), nil
}

// Update applies fn to the theme. The config is default-filled and validated
// again before it is persisted. fn must not change IsActive.
func (s *Store) Update(id ksid.ID, fn func(t *Theme) error) (*Theme, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, err := s.table.Modify(id, func(t *Theme) error {
		active := t.IsActive
		if err := fn(t); err != nil {
			return err
		}
		t.IsActive = active
		if other, ok := s.bySlug.Lookup(t.Slug); ok && other != t.ID {
			return ErrSlugTaken
		}
		t.Config = t.Config.WithDefaults()
		t.Modified = time.Now().UTC()
		return nil
	})
	if errors.Is(err, jsonldb.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, unwrapValidation(err)
	}
	return t, nil
}

// Delete removes a theme. The active theme cannot be deleted.
func (s *Store) Delete(id ksid.ID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	t := s.table.Get(id)
	if t == nil {
		return ErrNotFound
	}
	if t.IsActive {
		return ErrActiveTheme
	}
	_, err := s.table.Delete(id)
	return err
}

// Duplicate copies a theme under a new name. The copy is never active.
func (s *Store) Duplicate(id ksid.ID, name string) (*Theme, error) {
	src, err := s.Get(id)
	if err != nil {
		return nil, err
	}
	if name == "" {
		name = src.Name + " copy"
	}
	slug := Slugify(name)
	for i := 2; s.bySlug.Get(slug) != nil; i++ {
		slug = fmt.Sprintf("%s-%d", Slugify(name), i)
	}
	return s.Create(name, slug, src.Description, src.Config)
}

// SetActive makes the theme with the given ID the only active theme.
func (s *Store) SetActive(id ksid.ID) (*Theme, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.setActiveLocked(id, nil)
}

// MarkPublished bumps the version, records the publish time and activates
// the theme.
func (s *Store) MarkPublished(id ksid.ID, at time.Time) (*Theme, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.setActiveLocked(id, func(t *Theme) error {
		if at.IsZero() {
			return errors.New("publish time is required")
		}
		t.Version++
		t.PublishedAt = at.UTC()
		return nil
	})
}

func (s *Store) setActiveLocked(id ksid.ID, extra func(t *Theme) error) (*Theme, error) {
	prev := s.table.Get(id)
	if prev == nil {
		return nil, ErrNotFound
	}
	// The target is activated first; a failure there leaves the active theme
	// untouched.
	active, err := s.table.Modify(id, func(t *Theme) error {
		if extra != nil {
			if err := extra(t); err != nil {
				return err
			}
		}
		t.IsActive = true
		t.Modified = time.Now().UTC()
		return nil
	})
	if err != nil {
		return nil, err
	}
	// Collect first: Modify cannot run while All holds the read lock.
	var deactivated []ksid.ID
	for _, t := range slices.Collect(s.table.All()) {
		if !t.IsActive || t.ID == id {
			continue
		}
		if _, err := s.table.Modify(t.ID, setActive(false)); err != nil {
			err = fmt.Errorf("failed to deactivate theme %s: %w", t.ID, err)
			return nil, errors.Join(err, s.rollbackActivation(prev, deactivated))
		}
		deactivated = append(deactivated, t.ID)
	}
	return active, nil
}

// rollbackActivation restores prev and reactivates the themes in
// deactivated.
func (s *Store) rollbackActivation(prev *Theme, deactivated []ksid.ID) error {
	var errs []error
	for _, id := range deactivated {
		if _, err := s.table.Modify(id, setActive(true)); err != nil {
			errs = append(errs, fmt.Errorf("failed to reactivate theme %s: %w", id, err))
		}
	}
	if _, err := s.table.Modify(prev.ID, func(t *Theme) error {
		*t = *prev
		return nil
	}); err != nil {
		errs = append(errs, fmt.Errorf("failed to restore theme %s: %w", prev.ID, err))
	}
	return errors.Join(errs...)
}

func setActive(active bool) func(t *Theme) error {
	return func(t *Theme) error {
		t.IsActive = active
		return nil
	}
}

// unwrapValidation surfaces a *ValidationError wrapped by the table.
func unwrapValidation(err error) error {
	var ve *ValidationError
	if errors.As(err, &ve) {
		return ve
	}
	return err
}

// Slugify derives a kebab-case slug from a display name.
func Slugify(name string) string {
	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(name) {
		switch {
		case r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r)):
			if dash && b.Len() > 0 {
				b.WriteByte('-')
			}
			dash = false
			b.WriteRune(r)
		default:
			dash = true
		}
	}
	s := b.String()
	if s == "" || !unicode.IsLetter(rune(s[0])) {
		s = "theme-" + s
	}
	return strings.TrimSuffix(s, "-")
}
