package publish

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path"
	"time"

	"github.com/maruel/ksid"
	"github.com/maruel/showroom/internal/gitrepo"
	"github.com/maruel/showroom/internal/theme"
)

// Result describes a completed publish.
type Result struct {
	Theme  *theme.Theme `json:"theme"`
	Commit string       `json:"commit,omitempty"` // Empty when the sources were already up to date.
	Files  []string     `json:"files"`
}

// Publisher writes generated theme sources into the site repository.
type Publisher struct {
	themes *theme.Store
	repo   *gitrepo.Repo
}

// NewPublisher returns a publisher writing into repo's working directory.
func NewPublisher(themes *theme.Store, repo *gitrepo.Repo) *Publisher {
	return &Publisher{themes: themes, repo: repo}
}

// Preview renders the sources of a theme without writing them.
func (p *Publisher) Preview(id ksid.ID) ([]File, error) {
	t, err := p.themes.Get(id)
	if err != nil {
		return nil, err
	}
	return Generate(t.Config, Options{Name: t.Name, Slug: t.Slug, Version: t.Version + 1})
}

// Publish generates the sources of the theme, commits them as author, then
// records the new version and makes the theme active.
func (p *Publisher) Publish(ctx context.Context, id ksid.ID, author gitrepo.Author) (*Result, error) {
	t, err := p.themes.Get(id)
	if err != nil {
		return nil, err
	}
	version := t.Version + 1
	files, err := Generate(t.Config, Options{Name: t.Name, Slug: t.Slug, Version: version})
	if err != nil {
		return nil, err
	}
	paths := make([]string, len(files))
	for i, f := range files {
		paths[i] = f.Path
	}
	hash, err := p.repo.CommitTx(ctx, author, func() (string, []string, error) {
		if err := writeFiles(p.repo.Dir(), files); err != nil {
			return "", nil, err
		}
		return fmt.Sprintf("Publish theme %s version %d\n\nTheme: %s\nID: %s", t.Slug, version, t.Name, t.ID), paths, nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to commit theme sources: %w", err)
	}
	updated, err := p.themes.MarkPublished(id, time.Now())
	if err != nil {
		return nil, err
	}
	slog.InfoContext(ctx, "publish: theme published", "slug", t.Slug, "version", updated.Version, "commit", hash)
	return &Result{Theme: updated, Commit: hash, Files: paths}, nil
}

// History lists the publish commits, newest first.
func (p *Publisher) History(limit int) ([]*gitrepo.Commit, error) {
	return p.repo.History(ThemeCSSPath, limit)
}

func writeFiles(dir string, files []File) error {
	root, err := os.OpenRoot(dir)
	if err != nil {
		return err
	}
	defer func() { _ = root.Close() }()
	for _, f := range files {
		if err := root.MkdirAll(path.Dir(f.Path), 0o755); err != nil {
			return fmt.Errorf("failed to create directory for %s: %w", f.Path, err)
		}
		if err := root.WriteFile(f.Path, []byte(f.Content), 0o644); err != nil { //nolint:gosec // G306: site sources
			return fmt.Errorf("failed to write %s: %w", f.Path, err)
		}
	}
	return nil
}
