package identity

import (
	"errors"
	"path/filepath"
	"slices"
	"testing"

	"github.com/maruel/ksid"
)

func TestPushSubscriptionService(t *testing.T) {
	s, err := NewPushSubscriptionService(filepath.Join(t.TempDir(), "push.jsonl"))
	if err != nil {
		t.Fatal(err)
	}
	userID := ksid.NewID()
	const endpoint = "https://push.example.com/abc"

	if _, err := s.Create(userID, "http://insecure.example.com", "k", "a"); err == nil {
		t.Error("non-https endpoint accepted")
	}
	first, err := s.Create(userID, endpoint, "key1", "auth1")
	if err != nil {
		t.Fatalf("Create() = %v", err)
	}
	second, err := s.Create(userID, endpoint, "key2", "auth2")
	if err != nil {
		t.Fatal(err)
	}
	all := slices.Collect(s.All())
	if len(all) != 1 {
		t.Fatalf("%d subscriptions, want 1 after upsert", len(all))
	}
	if all[0].ID == first.ID || all[0].ID != second.ID || all[0].P256dh != "key2" {
		t.Errorf("got %+v", all[0])
	}

	if err := s.DeleteByEndpoint(endpoint); err != nil {
		t.Fatal(err)
	}
	if err := s.DeleteByEndpoint(endpoint); !errors.Is(err, ErrPushSubscriptionNotFound) {
		t.Errorf("second delete: err = %v", err)
	}
}
