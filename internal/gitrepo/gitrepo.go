// Package gitrepo records changes to a directory as git commits using go-git,
// so data and published site files keep an auditable history.
package gitrepo

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"slices"
	"strings"
	"sync"
	"time"

	gogit "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
)

// Author identifies who made a change.
type Author struct {
	Name  string
	Email string
}

// Commit is one entry of the history.
type Commit struct {
	Hash        string    `json:"hash"`
	Message     string    `json:"message"` // Subject line.
	Body        string    `json:"body,omitempty"`
	Author      string    `json:"author"`
	AuthorEmail string    `json:"author_email"`
	Date        time.Time `json:"date"`
	Files       []string  `json:"files,omitempty"`
}

// maxHistory caps History.
const maxHistory = 1000

// Repo is a git repository rooted at a directory.
type Repo struct {
	dir          string
	defaultName  string
	defaultEmail string
	repo         *gogit.Repository
	mu           sync.Mutex
}

// Open opens the repository in dir, creating the directory and initializing
// the repository as needed.
func Open(dir, defaultName, defaultEmail string) (*Repo, error) {
	if defaultName == "" {
		defaultName = "showroom"
	}
	if defaultEmail == "" {
		defaultEmail = "showroom@localhost"
	}
	if err := os.MkdirAll(dir, 0o755); err != nil { //nolint:gosec // G301: data directory
		return nil, fmt.Errorf("failed to create repo directory: %w", err)
	}
	repo, err := gogit.PlainOpen(dir)
	if errors.Is(err, gogit.ErrRepositoryNotExists) {
		if repo, err = gogit.PlainInit(dir, false); err != nil {
			return nil, fmt.Errorf("failed to initialize git repo: %w", err)
		}
		cfg, err := repo.Config()
		if err != nil {
			return nil, fmt.Errorf("failed to read git config: %w", err)
		}
		cfg.User.Name = defaultName
		cfg.User.Email = defaultEmail
		if err := repo.SetConfig(cfg); err != nil {
			return nil, fmt.Errorf("failed to write git config: %w", err)
		}
	} else if err != nil {
		return nil, fmt.Errorf("failed to open git repo: %w", err)
	}
	return &Repo{dir: dir, defaultName: defaultName, defaultEmail: defaultEmail, repo: repo}, nil
}

// Dir returns the working directory.
func (r *Repo) Dir() string {
	return r.dir
}

// CommitTx runs fn while holding the repository lock then commits the files
// it returns. An error or an empty file list skips the commit. A nil file
// list with a message commits every change in the worktree instead.
//
// Returns the new commit hash, or "" when nothing changed.
func (r *Repo) CommitTx(ctx context.Context, author Author, fn func() (msg string, files []string, err error)) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	msg, files, err := fn()
	if err != nil {
		return "", err
	}
	if files != nil && len(files) == 0 {
		return "", nil
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	w, err := r.repo.Worktree()
	if err != nil {
		return "", fmt.Errorf("failed to get worktree: %w", err)
	}
	status, err := w.Status()
	if err != nil {
		return "", fmt.Errorf("failed to get worktree status: %w", err)
	}
	if files == nil {
		for p := range status {
			files = append(files, p)
		}
		slices.Sort(files)
	}
	for _, f := range files {
		st, ok := status[f]
		if !ok {
			continue
		}
		if st.Worktree == gogit.Deleted {
			if _, err := w.Remove(f); err != nil {
				return "", fmt.Errorf("failed to stage removal of %s: %w", f, err)
			}
			continue
		}
		if _, err := w.Add(f); err != nil {
			return "", fmt.Errorf("failed to stage %s: %w", f, err)
		}
	}
	if status, err = w.Status(); err != nil {
		return "", fmt.Errorf("failed to get worktree status: %w", err)
	}
	if !hasStaged(status) {
		return "", nil
	}

	name, email := author.Name, author.Email
	if name == "" {
		name = r.defaultName
	}
	if email == "" {
		email = r.defaultEmail
	}
	now := time.Now()
	h, err := w.Commit(msg, &gogit.CommitOptions{
		Author:    &object.Signature{Name: name, Email: email, When: now},
		Committer: &object.Signature{Name: r.defaultName, Email: r.defaultEmail, When: now},
	})
	if err != nil {
		return "", fmt.Errorf("failed to commit: %w", err)
	}
	return h.String(), nil
}

func hasStaged(s gogit.Status) bool {
	for _, fs := range s {
		if fs.Staging != gogit.Unmodified && fs.Staging != gogit.Untracked {
			return true
		}
	}
	return false
}

// CommitCount returns the number of commits reachable from HEAD.
func (r *Repo) CommitCount() (int, error) {
	iter, err := r.repo.Log(&gogit.LogOptions{})
	if errors.Is(err, plumbing.ErrReferenceNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	defer iter.Close()
	n := 0
	err = iter.ForEach(func(*object.Commit) error {
		n++
		return nil
	})
	return n, err
}

// History returns the latest commits touching path, newest first. An empty
// path means the whole repository. n <= 0 or above 1000 is capped to 1000.
func (r *Repo) History(path string, n int) ([]*Commit, error) {
	if n <= 0 || n > maxHistory {
		n = maxHistory
	}
	opts := &gogit.LogOptions{}
	if path != "" && path != "." {
		if strings.HasSuffix(path, "/") {
			prefix := path
			opts.PathFilter = func(p string) bool { return strings.HasPrefix(p, prefix) }
		} else {
			opts.FileName = &path
		}
	}
	iter, err := r.repo.Log(opts)
	if errors.Is(err, plumbing.ErrReferenceNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	defer iter.Close()

	var out []*Commit
	for range n {
		c, err := iter.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		subject, body, _ := strings.Cut(c.Message, "\n")
		out = append(out, &Commit{
			Hash:        c.Hash.String(),
			Message:     subject,
			Body:        strings.TrimSpace(body),
			Author:      c.Author.Name,
			AuthorEmail: c.Author.Email,
			Date:        c.Author.When,
			Files:       changedFiles(c),
		})
	}
	return out, nil
}

func changedFiles(c *object.Commit) []string {
	stats, err := c.Stats()
	if err != nil {
		return nil
	}
	files := make([]string, 0, len(stats))
	for _, s := range stats {
		files = append(files, s.Name)
	}
	slices.Sort(files)
	return files
}

// FileAtCommit returns the content of a file at a commit. hash may be "HEAD".
func (r *Repo) FileAtCommit(hash, filePath string) ([]byte, error) {
	h := plumbing.NewHash(hash)
	if hash == "HEAD" {
		ref, err := r.repo.Head()
		if err != nil {
			return nil, fmt.Errorf("failed to resolve HEAD: %w", err)
		}
		h = ref.Hash()
	}
	c, err := r.repo.CommitObject(h)
	if err != nil {
		return nil, fmt.Errorf("failed to get commit: %w", err)
	}
	f, err := c.File(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to get file at commit: %w", err)
	}
	rd, err := f.Reader()
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer func() { _ = rd.Close() }()
	return io.ReadAll(rd)
}
