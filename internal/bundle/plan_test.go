package bundle

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"slices"
	"testing"
	"testing/fstest"

	"github.com/gkampitakis/go-snaps/snaps"
)

func TestMain(m *testing.M) {
	v := m.Run()
	snaps.Clean(m)
	os.Exit(v)
}

func sourceFS() fstest.MapFS {
	return fstest.MapFS{
		"src/modules/testimonials/index.ts": {Data: []byte("export * from './Card';\n")},
		"src/modules/testimonials/Card.tsx": {Data: []byte("export const Card = () => null;\n")},
	}
}

func testBundle(t *testing.T) *Bundle {
	t.Helper()
	b, err := Export(validManifest(), sourceFS())
	if err != nil {
		t.Fatalf("Export() = %v", err)
	}
	return b
}

func TestExport(t *testing.T) {
	b := testBundle(t)
	if len(b.Files) != 2 || b.Files[0].Size != 24 || len(b.Files[0].SHA256) != 64 {
		t.Errorf("files = %+v", b.Files)
	}
	var buf bytes.Buffer
	if err := b.Write(&buf); err != nil {
		t.Fatal(err)
	}
	got, err := Read(&buf)
	if err != nil {
		t.Fatalf("Read() = %v", err)
	}
	if got.Manifest.Name != "testimonials" {
		t.Errorf("manifest = %+v", got.Manifest)
	}

	m := validManifest()
	m.Files = append(m.Files, "src/modules/testimonials/missing.ts")
	if _, err := Export(m, sourceFS()); err == nil {
		t.Error("Export with a missing file succeeded")
	}

	b.Files[1].Content = []byte("tampered")
	if err := b.Verify(); !errors.Is(err, ErrHashMismatch) {
		t.Errorf("Verify() = %v, want ErrHashMismatch", err)
	}
}

func TestPlanImport(t *testing.T) {
	b := testBundle(t)
	baseline := sourceFS()
	baseline["src/modules/testimonials/Card.tsx"] = &fstest.MapFile{Data: []byte("old\n")}
	baseline["src/modules/testimonials/Old.tsx"] = &fstest.MapFile{Data: []byte("old\n")}
	baseline["src/modules/testimonials/module.json"] = &fstest.MapFile{
		Data: []byte(`{"name":"testimonials","version":"1.1.0","files":["src/modules/testimonials/index.ts"]}`),
	}
	baseline["package.json"] = &fstest.MapFile{
		Data: []byte(`{"dependencies":{"react":"^19.0.0"},"devDependencies":{"clsx":"^1.0.0"}}`),
	}
	opts := Options{InstalledModules: []string{"themes"}, ExistingTables: []string{"themes"}}

	p, err := PlanImport(b, baseline, opts)
	if err != nil {
		t.Fatalf("PlanImport() = %v", err)
	}
	want := []FileOp{
		{ActionConflict, "src/modules/testimonials/Card.tsx"},
		{ActionOrphan, "src/modules/testimonials/Old.tsx"},
		{ActionSkip, "src/modules/testimonials/index.ts"},
	}
	if !slices.Equal(p.Files, want) {
		t.Errorf("files = %+v\nwant %+v", p.Files, want)
	}
	if p.Install != InstallUpgrade || p.PreviousVersion != "1.1.0" {
		t.Errorf("install = %s from %q", p.Install, p.PreviousVersion)
	}
	if len(p.Dependencies) != 1 || p.Dependencies[0].Action != "mismatch" || p.Dependencies[0].Installed != "^1.0.0" {
		t.Errorf("dependencies = %+v", p.Dependencies)
	}
	if len(p.Tables) != 1 || p.Tables[0].Table.Name != "testimonials" {
		t.Errorf("tables = %+v", p.Tables)
	}
	if c := p.Conflicts(); len(c) != 1 {
		t.Errorf("Conflicts() = %v", c)
	}
	snaps.MatchJSON(t, p)

	opts.Overwrite = true
	opts.Prune = true
	p, err = PlanImport(b, baseline, opts)
	if err != nil {
		t.Fatal(err)
	}
	if n := p.Count(); n[ActionOverwrite] != 1 || n[ActionDelete] != 1 || n[ActionConflict] != 0 {
		t.Errorf("Count() = %v", n)
	}

	if _, err := PlanImport(b, baseline, Options{}); !errors.Is(err, ErrMissingRequirement) {
		t.Errorf("missing requirement: err = %v", err)
	}
}

func TestPlanImportFresh(t *testing.T) {
	b := testBundle(t)
	p, err := PlanImport(b, fstest.MapFS{}, Options{InstalledModules: []string{"themes"}, ExistingTables: []string{"testimonials"}})
	if err != nil {
		t.Fatal(err)
	}
	if p.Install != InstallNew || len(p.Tables) != 0 {
		t.Errorf("plan = %+v", p)
	}
	for _, op := range p.Files {
		if op.Action != ActionCreate {
			t.Errorf("%s: action = %s, want create", op.Path, op.Action)
		}
	}
	if len(p.Dependencies) != 1 || p.Dependencies[0].Action != "add" || len(p.Warnings) != 1 {
		t.Errorf("dependencies = %+v warnings = %v", p.Dependencies, p.Warnings)
	}
}

func TestApply(t *testing.T) {
	b := testBundle(t)
	dir := t.TempDir()
	stale := filepath.Join(dir, "src", "modules", "testimonials", "Old.tsx")
	if err := os.MkdirAll(filepath.Dir(stale), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(stale, []byte("old"), 0o644); err != nil {
		t.Fatal(err)
	}
	card := filepath.Join(dir, "src", "modules", "testimonials", "Card.tsx")
	if err := os.WriteFile(card, []byte("local edit"), 0o644); err != nil {
		t.Fatal(err)
	}
	opts := Options{InstalledModules: []string{"themes"}, Prune: true}

	p, err := PlanImport(b, os.DirFS(dir), opts)
	if err != nil {
		t.Fatal(err)
	}
	if err := Apply(p, b, dir); !errors.Is(err, ErrConflicts) {
		t.Fatalf("Apply() with conflict = %v", err)
	}

	opts.Overwrite = true
	if p, err = PlanImport(b, os.DirFS(dir), opts); err != nil {
		t.Fatal(err)
	}
	if err := Apply(p, b, dir); err != nil {
		t.Fatalf("Apply() = %v", err)
	}
	if _, err := os.Stat(stale); !os.IsNotExist(err) {
		t.Error("orphan not pruned")
	}
	got, _ := os.ReadFile(card)
	if string(got) != "export const Card = () => null;\n" {
		t.Errorf("Card.tsx = %q", got)
	}

	// A second plan sees an identical tree and the recorded manifest.
	p, err = PlanImport(b, os.DirFS(dir), opts)
	if err != nil {
		t.Fatal(err)
	}
	if p.Install != InstallReinstall {
		t.Errorf("install = %s", p.Install)
	}
	if n := p.Count(); n[ActionSkip] != 2 || len(p.Files) != 2 {
		t.Errorf("second plan = %+v", p.Files)
	}
}
