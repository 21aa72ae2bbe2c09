// Package bundle exports a module into a portable bundle and turns a bundle
// into an import plan by diff-checking its manifest against a baseline file
// tree.
package bundle

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"maps"
	"os"
	"path"
	"path/filepath"
	"regexp"
	"slices"
	"strings"

	"github.com/maruel/showroom/internal/jsonldb"
	"golang.org/x/mod/semver"
	"gopkg.in/yaml.v3"
)

// Column is a column a module needs in one of its tables.
type Column struct {
	Name     string             `json:"name" yaml:"name"`
	Type     jsonldb.ColumnType `json:"type" yaml:"type"`
	Required bool               `json:"required,omitempty" yaml:"required,omitempty"`
}

// Table is a data table owned by a module.
type Table struct {
	Name    string   `json:"name" yaml:"name"`
	Columns []Column `json:"columns" yaml:"columns"`
}

// Database lists the tables a module needs.
type Database struct {
	Tables []Table `json:"tables,omitempty" yaml:"tables,omitempty"`
}

// Manifest describes a module's files, dependencies and database
// requirements.
type Manifest struct {
	Name         string            `json:"name" yaml:"name"`
	Version      string            `json:"version" yaml:"version"`
	Description  string            `json:"description,omitempty" yaml:"description,omitempty"`
	Files        []string          `json:"files" yaml:"files"`
	Dependencies map[string]string `json:"dependencies,omitempty" yaml:"dependencies,omitempty"`
	// Requires lists the modules that must already be installed.
	Requires []string `json:"requires,omitempty" yaml:"requires,omitempty"`
	Database Database `json:"database,omitzero" yaml:"database,omitempty"`
}

var (
	kebabRe = regexp.MustCompile(`^[a-z][a-z0-9]*(-[a-z0-9]+)*$`)
	snakeRe = regexp.MustCompile(`^[a-z][a-z0-9]*(_[a-z0-9]+)*$`)
)

// CanonicalVersion returns v in the "vMAJOR.MINOR.PATCH" form used by
// golang.org/x/mod/semver, or "" when v is not a semantic version.
func CanonicalVersion(v string) string {
	if !strings.HasPrefix(v, "v") {
		v = "v" + v
	}
	if !semver.IsValid(v) || semver.Canonical(v) != v {
		return ""
	}
	return v
}

// Validate reports every problem of the manifest at once.
func (m *Manifest) Validate() error {
	var errs []error
	add := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf(format, args...))
	}
	if !kebabRe.MatchString(m.Name) {
		add("name %q must be kebab-case", m.Name)
	}
	if CanonicalVersion(m.Version) == "" {
		add("version %q is not a semantic version (MAJOR.MINOR.PATCH)", m.Version)
	}
	if len(m.Files) == 0 {
		add("files: at least one file is required")
	}
	seen := map[string]bool{}
	for i, f := range m.Files {
		if err := CheckPath(f); err != nil {
			add("files[%d]: %w", i, err)
		}
		if seen[f] {
			add("files[%d]: duplicate path %q", i, f)
		}
		seen[f] = true
	}
	for _, name := range slices.Sorted(maps.Keys(m.Dependencies)) {
		if name == "" {
			add("dependencies: empty package name")
		}
		if strings.TrimSpace(m.Dependencies[name]) == "" {
			add("dependencies[%s]: version is required", name)
		}
	}
	for i, r := range m.Requires {
		if !kebabRe.MatchString(r) {
			add("requires[%d]: %q must be kebab-case", i, r)
		}
		if r == m.Name {
			add("requires[%d]: module cannot require itself", i)
		}
	}
	tables := map[string]bool{}
	for i, t := range m.Database.Tables {
		if !snakeRe.MatchString(t.Name) {
			add("database.tables[%d]: name %q must be snake_case", i, t.Name)
		}
		if tables[t.Name] {
			add("database.tables[%d]: duplicate table %q", i, t.Name)
		}
		tables[t.Name] = true
		if len(t.Columns) == 0 {
			add("database.tables[%d]: at least one column is required", i)
		}
		cols := map[string]bool{}
		for j, c := range t.Columns {
			if !snakeRe.MatchString(c.Name) {
				add("database.tables[%d].columns[%d]: name %q must be snake_case", i, j, c.Name)
			}
			if cols[c.Name] {
				add("database.tables[%d].columns[%d]: duplicate column %q", i, j, c.Name)
			}
			cols[c.Name] = true
			if !c.Type.Valid() {
				add("database.tables[%d].columns[%d]: unknown type %q", i, j, c.Type)
			}
		}
	}
	return errors.Join(errs...)
}

// CheckPath verifies that p is a clean relative slash separated path that
// stays inside its root and names no hidden file or directory.
func CheckPath(p string) error {
	switch {
	case p == "":
		return errors.New("empty path")
	case p == ".":
		return errors.New("path \".\" names the root")
	case strings.Contains(p, `\`):
		return fmt.Errorf("path %q must use forward slashes", p)
	case path.IsAbs(p):
		return fmt.Errorf("path %q must be relative", p)
	case path.Clean(p) != p:
		return fmt.Errorf("path %q is not clean", p)
	case p == ".." || strings.HasPrefix(p, "../"):
		return fmt.Errorf("path %q escapes the root", p)
	}
	for seg := range strings.SplitSeq(p, "/") {
		if strings.HasPrefix(seg, ".") {
			return fmt.Errorf("path %q contains hidden segment %q", p, seg)
		}
	}
	return nil
}

// ParseManifest decodes a manifest. YAML is a superset of JSON, but JSON is
// decoded strictly when the document starts with '{'.
func ParseManifest(data []byte) (*Manifest, error) {
	m := &Manifest{}
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) > 0 && trimmed[0] == '{' {
		d := json.NewDecoder(bytes.NewReader(trimmed))
		d.DisallowUnknownFields()
		if err := d.Decode(m); err != nil {
			return nil, fmt.Errorf("invalid manifest JSON: %w", err)
		}
	} else {
		d := yaml.NewDecoder(bytes.NewReader(data))
		d.KnownFields(true)
		if err := d.Decode(m); err != nil {
			return nil, fmt.Errorf("invalid manifest YAML: %w", err)
		}
	}
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return m, nil
}

// LoadManifest reads and validates a manifest file.
func LoadManifest(p string) (*Manifest, error) {
	data, err := os.ReadFile(filepath.Clean(p))
	if err != nil {
		return nil, err
	}
	m, err := ParseManifest(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", p, err)
	}
	return m, nil
}
