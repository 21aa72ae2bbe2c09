package publish

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/maruel/showroom/internal/gitrepo"
	"github.com/maruel/showroom/internal/theme"
)

func TestPublisher(t *testing.T) {
	dir := t.TempDir()
	themes, err := theme.NewStore(filepath.Join(dir, "data", "themes.jsonl"), 0)
	if err != nil {
		t.Fatal(err)
	}
	repo, err := gitrepo.Open(filepath.Join(dir, "site"), "", "")
	if err != nil {
		t.Fatal(err)
	}
	p := NewPublisher(themes, repo)
	ctx := t.Context()
	author := gitrepo.Author{Name: "Admin", Email: "admin@example.com"}

	first, _ := themes.Create("Default", "", "", theme.Config{})
	second, _ := themes.Create("Sunrise", "", "", fixedConfig())

	preview, err := p.Preview(second.ID)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(preview[0].Content, "version 1.") {
		t.Errorf("preview banner = %q", strings.SplitN(preview[0].Content, "\n", 2)[0])
	}
	if _, err := os.Stat(filepath.Join(dir, "site", ThemeCSSPath)); !os.IsNotExist(err) {
		t.Error("Preview wrote files")
	}

	res, err := p.Publish(ctx, second.ID, author)
	if err != nil {
		t.Fatalf("Publish() = %v", err)
	}
	if res.Commit == "" || res.Theme.Version != 1 || !res.Theme.IsActive || res.Theme.PublishedAt.IsZero() {
		t.Errorf("result = %+v", res)
	}
	if len(res.Files) != len(Paths) {
		t.Errorf("files = %v", res.Files)
	}
	css, err := os.ReadFile(filepath.Join(dir, "site", filepath.FromSlash(ThemeCSSPath)))
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(css), `theme "Sunrise" (sunrise) version 1`) {
		t.Errorf("theme.css banner: %q", strings.SplitN(string(css), "\n", 2)[0])
	}
	if prev, _ := themes.Get(first.ID); prev.IsActive {
		t.Error("previous theme still active")
	}

	res, err = p.Publish(ctx, second.ID, author)
	if err != nil {
		t.Fatal(err)
	}
	if res.Theme.Version != 2 {
		t.Errorf("version = %d, want 2", res.Theme.Version)
	}

	history, err := p.History(10)
	if err != nil {
		t.Fatal(err)
	}
	if len(history) != 2 {
		t.Fatalf("History() len = %d, want 2", len(history))
	}
	if history[0].Message != "Publish theme sunrise version 2" || history[0].Author != "Admin" {
		t.Errorf("latest = %+v", history[0])
	}
}
