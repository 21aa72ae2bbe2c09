// Request and response types for theme management and publishing.

package dto

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/maruel/ksid"
	"github.com/maruel/showroom/internal/theme"
)

// IDRequest addresses a single row by its ID in the URL path.
type IDRequest struct {
	ID ksid.ID `path:"id" tstype:"-"`
}

// Validate validates the ID.
func (r *IDRequest) Validate() error {
	if r.ID.IsZero() {
		return MissingField("id")
	}
	return nil
}

// ThemeResponse is a stored theme.
type ThemeResponse struct {
	ID          ksid.ID      `json:"id"`
	Name        string       `json:"name"`
	Slug        string       `json:"slug"`
	Description string       `json:"description,omitempty"`
	Config      theme.Config `json:"config"`
	IsActive    bool         `json:"is_active"`
	Version     int          `json:"version"`
	PublishedAt time.Time    `json:"published_at,omitzero"`
	Created     time.Time    `json:"created"`
	Modified    time.Time    `json:"modified"`
}

// ListThemesRequest lists every theme.
type ListThemesRequest struct{}

// Validate is a no-op.
func (r *ListThemesRequest) Validate() error {
	return nil
}

// ListThemesResponse lists themes, oldest first.
type ListThemesResponse struct {
	Themes []ThemeResponse `json:"themes"`
}

// CreateThemeRequest creates a theme. Missing config fields are filled with
// defaults.
type CreateThemeRequest struct {
	Name        string       `json:"name"`
	Slug        string       `json:"slug,omitempty"`
	Description string       `json:"description,omitempty"`
	Config      theme.Config `json:"config"`
}

// Validate validates the theme metadata. The config is validated after
// default filling by the store.
func (r *CreateThemeRequest) Validate() error {
	if strings.TrimSpace(r.Name) == "" {
		return MissingField("name")
	}
	if r.Slug != "" && !theme.IsKebab(r.Slug) {
		return InvalidField("slug", "must be kebab-case")
	}
	return nil
}

// UpdateThemeRequest replaces the editable fields of a theme.
type UpdateThemeRequest struct {
	ID          ksid.ID      `path:"id" tstype:"-"`
	Name        string       `json:"name"`
	Slug        string       `json:"slug"`
	Description string       `json:"description,omitempty"`
	Config      theme.Config `json:"config"`
}

// Validate validates the update request.
func (r *UpdateThemeRequest) Validate() error {
	if r.ID.IsZero() {
		return MissingField("id")
	}
	if strings.TrimSpace(r.Name) == "" {
		return MissingField("name")
	}
	if !theme.IsKebab(r.Slug) {
		return InvalidField("slug", "must be kebab-case")
	}
	return nil
}

// DuplicateThemeRequest copies a theme. An empty name appends " copy".
type DuplicateThemeRequest struct {
	ID   ksid.ID `path:"id" tstype:"-"`
	Name string  `json:"name,omitempty"`
}

// Validate validates the ID.
func (r *DuplicateThemeRequest) Validate() error {
	if r.ID.IsZero() {
		return MissingField("id")
	}
	return nil
}

// GeneratedFile is one generated site source file.
type GeneratedFile struct {
	Path    string `json:"path"`
	Content string `json:"content"`
}

// PreviewThemeResponse holds the sources a publish would write.
type PreviewThemeResponse struct {
	Version int             `json:"version"`
	Files   []GeneratedFile `json:"files"`
}

// PublishThemeResponse reports a completed publish.
type PublishThemeResponse struct {
	Theme  ThemeResponse `json:"theme"`
	Commit string        `json:"commit,omitempty"`
	Files  []string      `json:"files"`
}

// ThemeHistoryRequest lists publish commits.
type ThemeHistoryRequest struct {
	Limit int `query:"limit"`
}

// Validate validates the limit.
func (r *ThemeHistoryRequest) Validate() error {
	if r.Limit < 0 || r.Limit > 1000 {
		return InvalidField("limit", "must be between 0 and 1000")
	}
	return nil
}

// CommitResponse is one publish commit.
type CommitResponse struct {
	Hash        string    `json:"hash"`
	Message     string    `json:"message"`
	Author      string    `json:"author"`
	AuthorEmail string    `json:"author_email"`
	Date        time.Time `json:"date"`
	Files       []string  `json:"files,omitempty"`
}

// ThemeHistoryResponse lists publish commits, newest first.
type ThemeHistoryResponse struct {
	Commits []CommitResponse `json:"commits"`
}

// ThemeSchemaRequest returns the JSON Schema of a theme config.
type ThemeSchemaRequest struct{}

// Validate is a no-op.
func (r *ThemeSchemaRequest) Validate() error {
	return nil
}

// ThemeSchemaResponse wraps the JSON Schema document.
type ThemeSchemaResponse struct {
	Schema   json.RawMessage `json:"schema" tstype:"Record<string, unknown>"`
	Defaults theme.Config    `json:"defaults"`
}

// PlaygroundPreviewRequest renders an unsaved config.
type PlaygroundPreviewRequest struct {
	Name   string       `json:"name,omitempty"`
	Config theme.Config `json:"config"`
}

// Validate is a no-op; the config is validated after default filling.
func (r *PlaygroundPreviewRequest) Validate() error {
	return nil
}

// PlaygroundPreviewResponse holds the filled config and its sources.
type PlaygroundPreviewResponse struct {
	Config theme.Config    `json:"config"`
	Files  []GeneratedFile `json:"files"`
}

// MarkdownRequest renders markdown the way the site build does.
type MarkdownRequest struct {
	Source string `json:"source"`
}

// Validate limits the source size.
func (r *MarkdownRequest) Validate() error {
	if len(r.Source) > 100_000 {
		return InvalidField("source", "must be at most 100000 bytes")
	}
	return nil
}

// MarkdownResponse is rendered HTML.
type MarkdownResponse struct {
	HTML string `json:"html"`
}
