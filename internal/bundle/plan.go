// Builds the import plan of a bundle against a baseline file tree.

package bundle

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"maps"
	"path"
	"slices"
	"strings"

	"golang.org/x/mod/semver"
)

// Action is what an import does with a file.
type Action string

// File actions.
const (
	// ActionCreate writes a file absent from the baseline.
	ActionCreate Action = "create"
	// ActionSkip leaves an identical file alone.
	ActionSkip Action = "skip"
	// ActionConflict marks a different baseline file; it blocks Apply.
	ActionConflict Action = "conflict"
	// ActionOverwrite replaces a different baseline file.
	ActionOverwrite Action = "overwrite"
	// ActionOrphan marks a baseline module file not listed in the manifest.
	ActionOrphan Action = "orphan"
	// ActionDelete removes an orphan.
	ActionDelete Action = "delete"
)

// FileOp is one file operation of a plan.
type FileOp struct {
	Action Action `json:"action"`
	Path   string `json:"path"`
}

// TableOp is a table the import creates.
type TableOp struct {
	Action string `json:"action"`
	Table  Table  `json:"table"`
}

// DependencyOp is a package dependency change.
type DependencyOp struct {
	Name      string `json:"name"`
	Version   string `json:"version"`
	Installed string `json:"installed,omitempty"`
	// Action is "add" when the baseline lacks the package and "mismatch"
	// when it pins another version.
	Action string `json:"action"`
}

// Install describes the relationship with an already installed version.
type Install string

// Install kinds.
const (
	InstallNew       Install = "install"
	InstallUpgrade   Install = "upgrade"
	InstallReinstall Install = "reinstall"
	InstallDowngrade Install = "downgrade"
)

// ManifestFile is the name of the installed manifest kept in the module
// directory.
const ManifestFile = "module.json"

// Plan is the ordered list of operations an import would perform.
type Plan struct {
	Module          string         `json:"module"`
	Version         string         `json:"version"`
	ModuleDir       string         `json:"module_dir"`
	Install         Install        `json:"install"`
	PreviousVersion string         `json:"previous_version,omitempty"`
	Files           []FileOp       `json:"files"`
	Tables          []TableOp      `json:"tables,omitempty"`
	Dependencies    []DependencyOp `json:"dependencies,omitempty"`
	Warnings        []string       `json:"warnings,omitempty"`
}

// Conflicts returns the paths that block Apply.
func (p *Plan) Conflicts() []string {
	var out []string
	for _, op := range p.Files {
		if op.Action == ActionConflict {
			out = append(out, op.Path)
		}
	}
	return out
}

// Count returns the number of file operations per action.
func (p *Plan) Count() map[Action]int {
	out := map[Action]int{}
	for _, op := range p.Files {
		out[op.Action]++
	}
	return out
}

// Options tunes PlanImport.
type Options struct {
	// Overwrite turns conflicts into overwrites.
	Overwrite bool
	// Prune turns orphans into deletions.
	Prune bool
	// InstalledModules must contain every module the manifest requires.
	InstalledModules []string
	// ExistingTables lists the tables already present.
	ExistingTables []string
	// ModuleDir is the baseline directory owned by the module. Defaults to
	// src/modules/<name>.
	ModuleDir string
	// PackageJSON is the baseline package manifest. Defaults to package.json.
	PackageJSON string
}

// ErrMissingRequirement is returned when a required module is not installed.
var ErrMissingRequirement = errors.New("required module not installed")

// DefaultModuleDir returns the directory owned by module name.
func DefaultModuleDir(name string) string {
	return "src/modules/" + name
}

// PlanImport verifies b and diff-checks it against baseline.
func PlanImport(b *Bundle, baseline fs.FS, opts Options) (*Plan, error) {
	if err := b.Verify(); err != nil {
		return nil, err
	}
	m := &b.Manifest
	var missing []string
	for _, r := range m.Requires {
		if !slices.Contains(opts.InstalledModules, r) {
			missing = append(missing, r)
		}
	}
	if len(missing) != 0 {
		return nil, fmt.Errorf("%w: %s", ErrMissingRequirement, strings.Join(missing, ", "))
	}
	dir := opts.ModuleDir
	if dir == "" {
		dir = DefaultModuleDir(m.Name)
	}
	if err := CheckPath(dir); err != nil {
		return nil, fmt.Errorf("module dir: %w", err)
	}
	p := &Plan{Module: m.Name, Version: m.Version, ModuleDir: dir}
	if err := p.checkInstalled(baseline, m); err != nil {
		return nil, err
	}
	if err := p.planFiles(b, baseline, opts); err != nil {
		return nil, err
	}
	if err := p.planDependencies(baseline, m, opts.PackageJSON); err != nil {
		return nil, err
	}
	for _, t := range m.Database.Tables {
		if !slices.Contains(opts.ExistingTables, t.Name) {
			p.Tables = append(p.Tables, TableOp{Action: "create_table", Table: t})
		}
	}
	return p, nil
}

func (p *Plan) checkInstalled(baseline fs.FS, m *Manifest) error {
	data, err := fs.ReadFile(baseline, path.Join(p.ModuleDir, ManifestFile))
	if errors.Is(err, fs.ErrNotExist) {
		p.Install = InstallNew
		return nil
	}
	if err != nil {
		return err
	}
	prev, err := ParseManifest(data)
	if err != nil {
		return fmt.Errorf("installed manifest: %w", err)
	}
	if prev.Name != m.Name {
		return fmt.Errorf("%s belongs to module %q, not %q", p.ModuleDir, prev.Name, m.Name)
	}
	p.PreviousVersion = prev.Version
	switch semver.Compare(CanonicalVersion(m.Version), CanonicalVersion(prev.Version)) {
	case 1:
		p.Install = InstallUpgrade
	case 0:
		p.Install = InstallReinstall
	default:
		p.Install = InstallDowngrade
		p.Warnings = append(p.Warnings, fmt.Sprintf("downgrading %s from %s to %s", m.Name, prev.Version, m.Version))
	}
	return nil
}

func (p *Plan) planFiles(b *Bundle, baseline fs.FS, opts Options) error {
	listed := map[string]bool{}
	for i := range b.Files {
		f := &b.Files[i]
		listed[f.Path] = true
		data, err := fs.ReadFile(baseline, f.Path)
		switch {
		case errors.Is(err, fs.ErrNotExist):
			p.Files = append(p.Files, FileOp{Action: ActionCreate, Path: f.Path})
		case err != nil:
			return fmt.Errorf("failed to read baseline %s: %w", f.Path, err)
		case hashBytes(data) == f.SHA256:
			p.Files = append(p.Files, FileOp{Action: ActionSkip, Path: f.Path})
		case opts.Overwrite:
			p.Files = append(p.Files, FileOp{Action: ActionOverwrite, Path: f.Path})
		default:
			p.Files = append(p.Files, FileOp{Action: ActionConflict, Path: f.Path})
		}
	}

	marker := path.Join(p.ModuleDir, ManifestFile)
	err := fs.WalkDir(baseline, p.ModuleDir, func(name string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || listed[name] || name == marker {
			return nil
		}
		action := ActionOrphan
		if opts.Prune {
			action = ActionDelete
		}
		p.Files = append(p.Files, FileOp{Action: action, Path: name})
		return nil
	})
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to scan %s: %w", p.ModuleDir, err)
	}
	slices.SortFunc(p.Files, func(a, b FileOp) int { return strings.Compare(a.Path, b.Path) })
	return nil
}

type packageJSON struct {
	Dependencies    map[string]string `json:"dependencies"`
	DevDependencies map[string]string `json:"devDependencies"`
}

func (p *Plan) planDependencies(baseline fs.FS, m *Manifest, pkgPath string) error {
	if len(m.Dependencies) == 0 {
		return nil
	}
	if pkgPath == "" {
		pkgPath = "package.json"
	}
	installed := map[string]string{}
	data, err := fs.ReadFile(baseline, pkgPath)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		p.Warnings = append(p.Warnings, pkgPath+" not found; every dependency is added")
	case err != nil:
		return err
	default:
		var pkg packageJSON
		if err := json.Unmarshal(data, &pkg); err != nil {
			return fmt.Errorf("invalid %s: %w", pkgPath, err)
		}
		maps.Copy(installed, pkg.DevDependencies)
		maps.Copy(installed, pkg.Dependencies)
	}
	for _, name := range slices.Sorted(maps.Keys(m.Dependencies)) {
		want := m.Dependencies[name]
		have, ok := installed[name]
		switch {
		case !ok:
			p.Dependencies = append(p.Dependencies, DependencyOp{Name: name, Version: want, Action: "add"})
		case have != want:
			p.Dependencies = append(p.Dependencies, DependencyOp{Name: name, Version: want, Installed: have, Action: "mismatch"})
			p.Warnings = append(p.Warnings, fmt.Sprintf("%s: bundle wants %s, baseline has %s", name, want, have))
		}
	}
	return nil
}
