package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/maruel/showroom/internal/bundle"
)

const manifestYAML = `name: faq
version: 1.0.0
description: Frequently asked questions
files:
  - src/modules/faq/index.ts
  - src/modules/faq/Faq.tsx
dependencies:
  clsx: ^2.1.0
requires:
  - themes
database:
  tables:
    - name: faq_entries
      columns:
        - name: id
          type: id
          required: true
        - name: question
          type: text
`

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
}

func exportFAQ(t *testing.T) string {
	t.Helper()
	src := t.TempDir()
	writeFile(t, filepath.Join(src, "module.yaml"), manifestYAML)
	writeFile(t, filepath.Join(src, "src/modules/faq/index.ts"), "export * from './Faq';\n")
	writeFile(t, filepath.Join(src, "src/modules/faq/Faq.tsx"), "export function Faq() {}\n")
	out := filepath.Join(t.TempDir(), "faq.bundle.json")
	args := []string{"export", "-root", src, "-manifest", filepath.Join(src, "module.yaml"), "-o", out}
	if err := mainImpl(args, &bytes.Buffer{}); err != nil {
		t.Fatalf("export: %v", err)
	}
	return out
}

func TestExportPlanApply(t *testing.T) {
	b := exportFAQ(t)
	target := t.TempDir()
	dataDir := t.TempDir()
	writeFile(t, filepath.Join(target, "package.json"), `{"dependencies":{"clsx":"^2.0.0"}}`)
	writeFile(t, filepath.Join(target, "src/modules/faq/index.ts"), "// local edit\n")
	writeFile(t, filepath.Join(target, "src/modules/faq/old.ts"), "old\n")

	var out bytes.Buffer
	if err := mainImpl([]string{"plan", "-bundle", b, "-target", target, "-data-dir", dataDir, "-json"}, &out); err != nil {
		t.Fatalf("plan: %v", err)
	}
	var p bundle.Plan
	if err := json.Unmarshal(out.Bytes(), &p); err != nil {
		t.Fatal(err)
	}
	got := map[string]bundle.Action{}
	for _, op := range p.Files {
		got[op.Path] = op.Action
	}
	want := map[string]bundle.Action{
		"src/modules/faq/Faq.tsx":  bundle.ActionCreate,
		"src/modules/faq/index.ts": bundle.ActionConflict,
		"src/modules/faq/old.ts":   bundle.ActionOrphan,
	}
	for k, v := range want {
		if got[k] != v {
			t.Errorf("%s: %q, want %q", k, got[k], v)
		}
	}
	if len(p.Tables) != 1 || len(p.Dependencies) != 1 || p.Dependencies[0].Action != "mismatch" {
		t.Errorf("plan = %+v", p)
	}

	err := mainImpl([]string{"apply", "-bundle", b, "-target", target, "-data-dir", dataDir}, &bytes.Buffer{})
	if err == nil || !strings.Contains(err.Error(), "conflicts") {
		t.Fatalf("apply with conflicts: %v", err)
	}

	out.Reset()
	if err := mainImpl([]string{"apply", "-bundle", b, "-target", target, "-data-dir", dataDir, "-overwrite", "-prune"}, &out); err != nil {
		t.Fatalf("apply: %v", err)
	}
	if !strings.Contains(out.String(), "create_table") {
		t.Errorf("text plan = %s", out.String())
	}
	data, err := os.ReadFile(filepath.Join(target, "src/modules/faq/index.ts"))
	if err != nil || string(data) != "export * from './Faq';\n" {
		t.Errorf("index.ts = %q, %v", data, err)
	}
	if _, err := os.Stat(filepath.Join(target, "src/modules/faq/old.ts")); !os.IsNotExist(err) {
		t.Errorf("orphan not pruned: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dataDir, "db", "faq_entries.jsonl")); err != nil {
		t.Errorf("table not created: %v", err)
	}

	// A second run is a reinstall and detects the installed module.
	out.Reset()
	if err := mainImpl([]string{"plan", "-bundle", b, "-target", target, "-data-dir", dataDir, "-json"}, &out); err != nil {
		t.Fatal(err)
	}
	p = bundle.Plan{}
	if err := json.Unmarshal(out.Bytes(), &p); err != nil {
		t.Fatal(err)
	}
	if p.Install != bundle.InstallReinstall || len(p.Tables) != 0 {
		t.Errorf("second plan = %+v", p)
	}
	mods, err := installedModules(os.DirFS(target), "extra, ")
	if err != nil {
		t.Fatal(err)
	}
	if s := strings.Join(mods, ","); s != "extra,faq,playground,portfolio,submissions,testimonials,themes" {
		t.Errorf("installed = %s", s)
	}
}

func TestMissingRequirement(t *testing.T) {
	b := exportFAQ(t)
	old := builtinModules
	builtinModules = nil
	t.Cleanup(func() { builtinModules = old })
	err := mainImpl([]string{"plan", "-bundle", b, "-target", t.TempDir()}, &bytes.Buffer{})
	if err == nil || !strings.Contains(err.Error(), "themes") {
		t.Errorf("err = %v", err)
	}
}

func TestUsage(t *testing.T) {
	if err := mainImpl(nil, &bytes.Buffer{}); err == nil {
		t.Error("missing command accepted")
	}
	if err := mainImpl([]string{"frobnicate"}, &bytes.Buffer{}); err == nil {
		t.Error("unknown command accepted")
	}
	if err := mainImpl([]string{"export"}, &bytes.Buffer{}); err == nil {
		t.Error("export without -manifest accepted")
	}
}
