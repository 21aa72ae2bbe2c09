package gitrepo

import (
	"os"
	"path/filepath"
	"testing"
)

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	p := filepath.Join(dir, filepath.FromSlash(name))
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(p, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
}

func TestRepo(t *testing.T) {
	t.Parallel()

	t.Run("Init", func(t *testing.T) {
		t.Parallel()
		dir := filepath.Join(t.TempDir(), "site")
		r, err := Open(dir, "", "")
		if err != nil {
			t.Fatalf("Open() = %v", err)
		}
		if _, err := os.Stat(filepath.Join(dir, ".git")); err != nil {
			t.Errorf(".git not created: %v", err)
		}
		n, err := r.CommitCount()
		if err != nil || n != 0 {
			t.Errorf("CommitCount() = %d, %v", n, err)
		}
		h, err := r.History("", 10)
		if err != nil || len(h) != 0 {
			t.Errorf("History() = %v, %v", h, err)
		}
		// Reopen.
		if _, err := Open(dir, "", ""); err != nil {
			t.Errorf("reopen: %v", err)
		}
	})

	t.Run("CommitFiles", func(t *testing.T) {
		t.Parallel()
		dir := t.TempDir()
		r, err := Open(dir, "Bot", "bot@example.com")
		if err != nil {
			t.Fatal(err)
		}
		ctx := t.Context()
		author := Author{Name: "Admin", Email: "admin@example.com"}

		hash, err := r.CommitTx(ctx, author, func() (string, []string, error) {
			writeFile(t, dir, "src/a.css", "a")
			writeFile(t, dir, "b.txt", "b")
			return "Add a\n\nfirst", []string{"src/a.css"}, nil
		})
		if err != nil || hash == "" {
			t.Fatalf("CommitTx() = %q, %v", hash, err)
		}

		// Unchanged file: nothing to commit.
		hash, err = r.CommitTx(ctx, author, func() (string, []string, error) {
			return "noop", []string{"src/a.css"}, nil
		})
		if err != nil || hash != "" {
			t.Errorf("noop CommitTx() = %q, %v", hash, err)
		}

		// Empty list skips.
		hash, err = r.CommitTx(ctx, author, func() (string, []string, error) {
			return "skip", []string{}, nil
		})
		if err != nil || hash != "" {
			t.Errorf("empty CommitTx() = %q, %v", hash, err)
		}

		h, err := r.History("src/a.css", 0)
		if err != nil {
			t.Fatal(err)
		}
		if len(h) != 1 {
			t.Fatalf("History() len = %d, want 1", len(h))
		}
		c := h[0]
		if c.Message != "Add a" || c.Body != "first" || c.Author != "Admin" || c.AuthorEmail != "admin@example.com" {
			t.Errorf("commit = %+v", c)
		}
		if len(c.Files) != 1 || c.Files[0] != "src/a.css" {
			t.Errorf("files = %v", c.Files)
		}
		data, err := r.FileAtCommit("HEAD", "src/a.css")
		if err != nil || string(data) != "a" {
			t.Errorf("FileAtCommit() = %q, %v", data, err)
		}
		if _, err := r.FileAtCommit("HEAD", "b.txt"); err == nil {
			t.Error("untracked file should not be in HEAD")
		}
	})

	t.Run("CommitAll", func(t *testing.T) {
		t.Parallel()
		dir := t.TempDir()
		r, err := Open(dir, "", "")
		if err != nil {
			t.Fatal(err)
		}
		ctx := t.Context()
		writeFile(t, dir, "one.jsonl", "1")
		writeFile(t, dir, "two.jsonl", "2")
		if _, err := r.CommitTx(ctx, Author{}, func() (string, []string, error) {
			return "initial", nil, nil
		}); err != nil {
			t.Fatal(err)
		}
		if err := os.Remove(filepath.Join(dir, "two.jsonl")); err != nil {
			t.Fatal(err)
		}
		writeFile(t, dir, "one.jsonl", "1b")
		hash, err := r.CommitTx(ctx, Author{}, func() (string, []string, error) {
			return "update", nil, nil
		})
		if err != nil || hash == "" {
			t.Fatalf("CommitTx() = %q, %v", hash, err)
		}
		n, _ := r.CommitCount()
		if n != 2 {
			t.Errorf("CommitCount() = %d, want 2", n)
		}
		h, _ := r.History("", 1)
		if len(h) != 1 || h[0].Author != "showroom" {
			t.Fatalf("History() = %+v", h)
		}
		if got := h[0].Files; len(got) != 2 || got[0] != "one.jsonl" || got[1] != "two.jsonl" {
			t.Errorf("files = %v", got)
		}
		if _, err := r.FileAtCommit("HEAD", "two.jsonl"); err == nil {
			t.Error("deleted file still in HEAD")
		}
	})
}
