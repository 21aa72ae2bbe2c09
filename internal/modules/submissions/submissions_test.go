package submissions

import (
	"context"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/maruel/showroom/internal/content"
	"github.com/maruel/showroom/internal/server/dto"
	"github.com/maruel/showroom/internal/server/servertest"
)

type fakeNotifier struct {
	mu   sync.Mutex
	subs []*content.Submission
}

func (f *fakeNotifier) Submission(_ context.Context, sub *content.Submission) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.subs = append(f.subs, sub)
}

func setup(t *testing.T, maxDaily int) (*servertest.Env, *fakeNotifier) {
	t.Helper()
	env := servertest.New(t)
	store, err := content.NewSubmissionStore(filepath.Join(env.Dir, "submissions.jsonl"), maxDaily)
	if err != nil {
		t.Fatal(err)
	}
	n := &fakeNotifier{}
	env.Serve(t, New(env.Env, store, n))
	return env, n
}

func TestSubmissions(t *testing.T) {
	env, n := setup(t, 0)
	post := dto.CreateSubmissionRequest{Name: "Ada", Email: "ada@example.com", Page: "/contact", Message: "Hello"}

	var created dto.CreateSubmissionResponse
	if status := env.Do(t, http.MethodPost, "/api/submissions", post, &created, ""); status != http.StatusOK {
		t.Fatalf("create: status %d", status)
	}
	if !created.Ok || created.ID.IsZero() {
		t.Errorf("created = %+v", created)
	}
	if len(n.subs) != 1 || n.subs[0].IP == "" {
		t.Errorf("notified = %+v", n.subs)
	}

	spam := post
	spam.Website = "http://spam.example"
	var dropped dto.CreateSubmissionResponse
	if status := env.Do(t, http.MethodPost, "/api/submissions", spam, &dropped, ""); status != http.StatusOK || !dropped.Ok || !dropped.ID.IsZero() {
		t.Errorf("honeypot: %d %+v", status, dropped)
	}
	invalid := post
	invalid.Email = "not-an-email"
	if status := env.Do(t, http.MethodPost, "/api/submissions", invalid, nil, ""); status != http.StatusBadRequest {
		t.Errorf("invalid email: status %d", status)
	}

	if status := env.Do(t, http.MethodGet, "/api/admin/submissions", nil, nil, ""); status != http.StatusUnauthorized {
		t.Errorf("anonymous list: status %d", status)
	}
	var list dto.ListSubmissionsResponse
	if status := env.Admin(t, http.MethodGet, "/api/admin/submissions", nil, &list); status != http.StatusOK {
		t.Fatalf("list: status %d", status)
	}
	if len(list.Submissions) != 1 || list.Counts["new"] != 1 {
		t.Fatalf("list = %+v", list)
	}

	id := created.ID.String()
	var updated dto.SubmissionResponse
	if status := env.Admin(t, http.MethodPatch, "/api/admin/submissions/"+id, dto.UpdateSubmissionStatusRequest{Status: "archived"}, &updated); status != http.StatusOK {
		t.Fatalf("set status: status %d", status)
	}
	if updated.Status != "archived" {
		t.Errorf("status = %q", updated.Status)
	}
	if status := env.Admin(t, http.MethodPatch, "/api/admin/submissions/"+id, dto.UpdateSubmissionStatusRequest{Status: "spam"}, nil); status != http.StatusBadRequest {
		t.Errorf("bad status: status %d", status)
	}
	env.Admin(t, http.MethodGet, "/api/admin/submissions?status=new", nil, &list)
	if len(list.Submissions) != 0 || list.Counts["archived"] != 1 {
		t.Errorf("filtered list = %+v", list)
	}

	if status := env.Admin(t, http.MethodDelete, "/api/admin/submissions/"+id, nil, nil); status != http.StatusOK {
		t.Errorf("delete: status %d", status)
	}
	if status := env.Admin(t, http.MethodGet, "/api/admin/submissions/"+id, nil, nil); status != http.StatusNotFound {
		t.Errorf("get deleted: status %d", status)
	}
}

func TestSubmissionsQuota(t *testing.T) {
	env, _ := setup(t, 1)
	post := dto.CreateSubmissionRequest{Name: "Ada", Email: "ada@example.com", Message: "Hello"}
	if status := env.Do(t, http.MethodPost, "/api/submissions", post, nil, ""); status != http.StatusOK {
		t.Fatalf("first: status %d", status)
	}
	if status := env.Do(t, http.MethodPost, "/api/submissions", post, nil, ""); status != http.StatusTooManyRequests {
		t.Errorf("past the daily quota: status %d", status)
	}
}

func TestSubmissionsStoreErrors(t *testing.T) {
	env := servertest.New(t)
	dir := filepath.Join(env.Dir, "inbox")
	if err := os.Mkdir(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	store, err := content.NewSubmissionStore(filepath.Join(dir, "submissions.jsonl"), 0)
	if err != nil {
		t.Fatal(err)
	}
	env.Serve(t, New(env.Env, store, nil))

	long := dto.CreateSubmissionRequest{Name: "Ada", Email: "ada@example.com", Message: strings.Repeat("x", 5001)}
	if status := env.Do(t, http.MethodPost, "/api/submissions", long, nil, ""); status != http.StatusBadRequest {
		t.Errorf("message too long: status %d", status)
	}

	// The table can no longer be persisted.
	if err := os.RemoveAll(dir); err != nil {
		t.Fatal(err)
	}
	post := dto.CreateSubmissionRequest{Name: "Ada", Email: "ada@example.com", Message: "Hello"}
	if status := env.Do(t, http.MethodPost, "/api/submissions", post, nil, ""); status != http.StatusInternalServerError {
		t.Errorf("unwritable table: status %d", status)
	}
}
