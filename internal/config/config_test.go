package config

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
)

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	cfg, err := Load(dir)
	if err != nil {
		t.Fatalf("Load() = %v", err)
	}
	if len(cfg.JWTSecret) != 32 {
		t.Errorf("secret length = %d", len(cfg.JWTSecret))
	}
	if cfg.VAPID.PublicKey == "" || cfg.VAPID.PrivateKey == "" {
		t.Error("VAPID keys not generated")
	}
	if cfg.VAPID.Subject != cfg.Site.BaseURL {
		t.Errorf("subject = %q", cfg.VAPID.Subject)
	}
	st, err := os.Stat(filepath.Join(dir, FileName))
	if err != nil {
		t.Fatal(err)
	}
	if st.Mode().Perm() != 0o600 {
		t.Errorf("mode = %v, want 0600", st.Mode().Perm())
	}

	again, err := Load(dir)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(again.JWTSecret, cfg.JWTSecret) || again.VAPID.PublicKey != cfg.VAPID.PublicKey {
		t.Error("secrets regenerated on second load")
	}
}

func TestLoadInvalid(t *testing.T) {
	tests := map[string]string{
		"not json":       `{`,
		"short secret":   `{"jwt_secret":"c2hvcnQ="}`,
		"negative quota": `{"quotas":{"max_themes":-1}}`,
		"bad base url":   `{"site":{"name":"x","base_url":"nope"}}`,
		"half vapid":     `{"vapid":{"public_key":"abc"}}`,
		"smtp no user":   `{"smtp":{"host":"smtp.example.com"}}`,
	}
	for name, content := range tests {
		t.Run(name, func(t *testing.T) {
			dir := t.TempDir()
			if err := os.WriteFile(filepath.Join(dir, FileName), []byte(content), 0o600); err != nil {
				t.Fatal(err)
			}
			if _, err := Load(dir); err == nil {
				t.Error("Load() succeeded")
			}
		})
	}
}

func TestDefaultRateLimits(t *testing.T) {
	r := DefaultRateLimits()
	if err := r.Validate(); err != nil {
		t.Fatal(err)
	}
	if r.PublicWriteRatePerMin >= r.WriteRatePerMin {
		t.Error("public writes must be stricter than admin writes")
	}
}
