// Package content stores the marketing content edited in the back office:
// contact form submissions, portfolio items and testimonials.
package content

import (
	"errors"
	"fmt"
	"iter"
	"net/mail"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/maruel/ksid"
	"github.com/maruel/showroom/internal/jsonldb"
)

var (
	// ErrNotFound is returned when an item does not exist.
	ErrNotFound = errors.New("not found")
	// ErrQuotaExceeded is returned when a configured limit is reached.
	ErrQuotaExceeded = errors.New("quota exceeded")
	// ErrSlugTaken is returned when a slug is already used.
	ErrSlugTaken = errors.New("slug already in use")
	// ErrInvalid is returned when an item fails validation.
	ErrInvalid = jsonldb.ErrInvalidRow
)

// SubmissionStatus is the triage state of a submission.
type SubmissionStatus string

// Submission states.
const (
	StatusNew      SubmissionStatus = "new"
	StatusRead     SubmissionStatus = "read"
	StatusArchived SubmissionStatus = "archived"
)

// Valid reports whether s is a known status.
func (s SubmissionStatus) Valid() bool {
	switch s {
	case StatusNew, StatusRead, StatusArchived:
		return true
	}
	return false
}

const (
	maxNameLen    = 200
	maxMessageLen = 5000
)

// Submission is a message sent through the public contact form.
type Submission struct {
	ID          ksid.ID          `json:"id"`
	Name        string           `json:"name"`
	Email       string           `json:"email"`
	Company     string           `json:"company,omitempty"`
	Message     string           `json:"message"`
	Page        string           `json:"page,omitempty" jsonschema:"description=Site path the form was sent from"`
	IP          string           `json:"ip,omitempty"`
	CountryCode string           `json:"country_code,omitempty"`
	Status      SubmissionStatus `json:"status"`
	Created     time.Time        `json:"created"`
}

// Clone returns a copy.
func (s *Submission) Clone() *Submission {
	c := *s
	return &c
}

// GetID returns the submission ID.
func (s *Submission) GetID() ksid.ID {
	return s.ID
}

// Validate checks the submission fields.
func (s *Submission) Validate() error {
	if s.ID.IsZero() {
		return errors.New("id is required")
	}
	if strings.TrimSpace(s.Name) == "" {
		return errors.New("name is required")
	}
	if len(s.Name) > maxNameLen || len(s.Company) > maxNameLen {
		return fmt.Errorf("name and company must be at most %d bytes", maxNameLen)
	}
	if _, err := mail.ParseAddress(s.Email); err != nil {
		return errors.New("email is invalid")
	}
	if strings.TrimSpace(s.Message) == "" {
		return errors.New("message is required")
	}
	if len(s.Message) > maxMessageLen {
		return fmt.Errorf("message must be at most %d bytes", maxMessageLen)
	}
	if !s.Status.Valid() {
		return fmt.Errorf("invalid status %q", s.Status)
	}
	return nil
}

// SubmissionStore persists contact form submissions.
type SubmissionStore struct {
	mu       sync.Mutex
	table    *jsonldb.Table[*Submission]
	byStatus *jsonldb.Index[SubmissionStatus, *Submission]
	maxDaily int
}

// NewSubmissionStore opens the submissions table. maxDaily <= 0 disables the
// daily quota.
func NewSubmissionStore(path string, maxDaily int) (*SubmissionStore, error) {
	table, err := jsonldb.NewTable[*Submission](path)
	if err != nil {
		return nil, err
	}
	return &SubmissionStore{
		table:    table,
		byStatus: jsonldb.NewIndex(table, func(s *Submission) SubmissionStatus { return s.Status }),
		maxDaily: maxDaily,
	}, nil
}

// Create stores a new submission with status "new".
func (s *SubmissionStore) Create(sub *Submission) (*Submission, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now().UTC()
	if s.maxDaily > 0 && s.countSince(now.Truncate(24*time.Hour)) >= s.maxDaily {
		return nil, ErrQuotaExceeded
	}
	row := sub.Clone()
	row.ID = ksid.NewID()
	row.Name = strings.TrimSpace(row.Name)
	row.Email = strings.TrimSpace(row.Email)
	row.Status = StatusNew
	row.Created = now
	if err := s.table.Append(row); err != nil {
		return nil, err
	}
	return row.Clone(), nil
}

// countSince counts submissions created at or after t.
func (s *SubmissionStore) countSince(t time.Time) int {
	n := 0
	for sub := range s.table.All() {
		if !sub.Created.Before(t) {
			n++
		}
	}
	return n
}

// Get returns a submission.
func (s *SubmissionStore) Get(id ksid.ID) (*Submission, error) {
	sub := s.table.Get(id)
	if sub == nil {
		return nil, ErrNotFound
	}
	return sub, nil
}

// List iterates over submissions, newest first. An empty status lists all.
func (s *SubmissionStore) List(status SubmissionStatus) []*Submission {
	var seq iter.Seq[*Submission]
	if status == "" {
		seq = s.table.All()
	} else {
		seq = s.byStatus.Iter(status)
	}
	var out []*Submission
	for sub := range seq {
		out = append(out, sub)
	}
	slices.Reverse(out)
	return out
}

// CountByStatus returns the number of submissions with the given status.
func (s *SubmissionStore) CountByStatus(status SubmissionStatus) int {
	return s.byStatus.Count(status)
}

// SetStatus changes the triage state of a submission.
func (s *SubmissionStore) SetStatus(id ksid.ID, status SubmissionStatus) (*Submission, error) {
	sub, err := s.table.Modify(id, func(sub *Submission) error {
		sub.Status = status
		return nil
	})
	if errors.Is(err, jsonldb.ErrNotFound) {
		return nil, ErrNotFound
	}
	return sub, err
}

// Delete removes a submission.
func (s *SubmissionStore) Delete(id ksid.ID) error {
	_, err := s.table.Delete(id)
	if errors.Is(err, jsonldb.ErrNotFound) {
		return ErrNotFound
	}
	return err
}
