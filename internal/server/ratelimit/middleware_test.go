package ratelimit

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestWriteHeaders(t *testing.T) {
	reset := time.Unix(1767225600, 0)
	tests := []struct {
		name       string
		result     Result
		remaining  string
		retryAfter string
	}{
		{"allowed", Result{Allowed: true, Limit: 3, Remaining: 2, ResetAt: reset}, "2", ""},
		{"refused", Result{Limit: 3, ResetAt: reset, RetryAfter: 20 * time.Second}, "0", "20"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			WriteHeaders(w, tt.result)
			h := w.Header()
			if got := h.Get("X-RateLimit-Limit"); got != "3" {
				t.Errorf("X-RateLimit-Limit = %q", got)
			}
			if got := h.Get("X-RateLimit-Remaining"); got != tt.remaining {
				t.Errorf("X-RateLimit-Remaining = %q, want %q", got, tt.remaining)
			}
			if got := h.Get("X-RateLimit-Reset"); got != "1767225600" {
				t.Errorf("X-RateLimit-Reset = %q", got)
			}
			if got := h.Get("Retry-After"); got != tt.retryAfter {
				t.Errorf("Retry-After = %q, want %q", got, tt.retryAfter)
			}
		})
	}
}

func TestScopeString(t *testing.T) {
	for s, want := range map[Scope]string{ScopeIP: "ip", ScopeUser: "user", Scope(7): "unknown"} {
		if got := s.String(); got != want {
			t.Errorf("Scope(%d).String() = %q, want %q", s, got, want)
		}
	}
}

func TestBuildKey_Tiers(t *testing.T) {
	cfg := NewConfig(Rates{Auth: 5, PublicWrite: 3, Write: 120, Read: 600})
	defer cfg.Close()
	tests := []struct {
		tier *Tier
		id   string
		want string
	}{
		{cfg.Auth, "203.0.113.7", "ip:203.0.113.7:auth"},
		{cfg.PublicWrite, "203.0.113.7", "ip:203.0.113.7:public_write"},
		{cfg.Write, "admin-1", "user:admin-1:write"},
		{cfg.ReadAuth, "admin-1", "user:admin-1:read"},
		{cfg.ReadUnauth, "2001:db8::1", "ip:2001:db8::1:read"},
	}
	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			if got := BuildKey(tt.tier.Scope, tt.id, tt.tier.Name); got != tt.want {
				t.Errorf("BuildKey() = %q, want %q", got, tt.want)
			}
		})
	}
}

// A contact form visitor exhausting the public write tier gets a 429 carrying
// the headers, while a reader from the same address is unaffected.
func TestResponseWriter_PublicWriteExhausted(t *testing.T) {
	now := time.Unix(1767225600, 0)
	l := newLimiter(2, time.Minute, 2, func() time.Time { return now })
	key := BuildKey(ScopeIP, "198.51.100.4", "public_write")
	for i := range 2 {
		if r := l.Allow(key); !r.Allowed {
			t.Fatalf("submission %d refused", i+1)
		}
	}
	result := l.Allow(key)
	if result.Allowed {
		t.Fatal("third submission allowed")
	}
	underlying := httptest.NewRecorder()
	rw := NewResponseWriter(underlying, result)
	rw.WriteHeader(http.StatusTooManyRequests)
	if _, err := rw.Write([]byte(`{"error":"rate limited"}`)); err != nil {
		t.Fatal(err)
	}
	if underlying.Code != http.StatusTooManyRequests {
		t.Errorf("status = %d", underlying.Code)
	}
	if got := underlying.Header().Get("Retry-After"); got != "30" {
		t.Errorf("Retry-After = %q, want 30", got)
	}
	if got := underlying.Header().Get("X-RateLimit-Limit"); got != "2" {
		t.Errorf("X-RateLimit-Limit = %q", got)
	}
	if r := l.Allow(BuildKey(ScopeIP, "198.51.100.4", "read")); !r.Allowed {
		t.Error("read bucket shares the public write budget")
	}
}

func TestResponseWriter_InjectOnce(t *testing.T) {
	underlying := httptest.NewRecorder()
	rw := NewResponseWriter(underlying, Result{Allowed: true, Limit: 100, Remaining: 99, ResetAt: time.Unix(1767225600, 0)})
	for _, chunk := range []string{"a", "b"} {
		if _, err := rw.Write([]byte(chunk)); err != nil {
			t.Fatal(err)
		}
		// Headers set after the first write must not be overwritten.
		underlying.Header().Set("X-RateLimit-Remaining", "changed")
	}
	if got := underlying.Header().Get("X-RateLimit-Remaining"); got != "changed" {
		t.Errorf("headers injected twice: %q", got)
	}
	if underlying.Body.String() != "ab" {
		t.Errorf("body = %q", underlying.Body.String())
	}
	if underlying.Code != http.StatusOK {
		t.Errorf("status = %d", underlying.Code)
	}
}

func TestResponseWriter_Unwrap(t *testing.T) {
	underlying := httptest.NewRecorder()
	rw := NewResponseWriter(underlying, Result{Allowed: true, Limit: 1})
	if rw.Unwrap() != http.ResponseWriter(underlying) {
		t.Fatal("Unwrap did not return the wrapped writer")
	}
	if err := http.NewResponseController(rw).Flush(); err != nil {
		t.Errorf("Flush through controller = %v", err)
	}
	if !underlying.Flushed {
		t.Error("recorder not flushed")
	}
}
