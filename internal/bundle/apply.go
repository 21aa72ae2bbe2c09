// Executes an import plan on disk.

package bundle

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"strings"
)

// ErrConflicts is returned by Apply when the plan has unresolved conflicts.
var ErrConflicts = errors.New("plan has unresolved conflicts")

// Apply executes the file operations of p in dir. All writes go through an
// os.Root so no path can escape dir. The manifest is recorded in the module
// directory so later plans detect upgrades.
func Apply(p *Plan, b *Bundle, dir string) error {
	if p.Module != b.Manifest.Name || p.Version != b.Manifest.Version {
		return fmt.Errorf("plan is for %s@%s, bundle is %s@%s", p.Module, p.Version, b.Manifest.Name, b.Manifest.Version)
	}
	if c := p.Conflicts(); len(c) != 0 {
		return fmt.Errorf("%w: %s", ErrConflicts, strings.Join(c, ", "))
	}
	root, err := os.OpenRoot(dir)
	if err != nil {
		return err
	}
	defer root.Close()

	for _, op := range p.Files {
		switch op.Action {
		case ActionCreate, ActionOverwrite:
			f := b.File(op.Path)
			if f == nil {
				return fmt.Errorf("%s is not in the bundle", op.Path)
			}
			if err := writeFile(root, op.Path, f.Content); err != nil {
				return err
			}
		case ActionDelete:
			if err := root.Remove(op.Path); err != nil && !errors.Is(err, fs.ErrNotExist) {
				return fmt.Errorf("failed to delete %s: %w", op.Path, err)
			}
		}
	}
	data, err := json.MarshalIndent(&b.Manifest, "", "  ")
	if err != nil {
		return err
	}
	return writeFile(root, path.Join(p.ModuleDir, ManifestFile), append(data, '\n'))
}

func writeFile(root *os.Root, name string, data []byte) error {
	if d := path.Dir(name); d != "." {
		if err := root.MkdirAll(d, 0o755); err != nil {
			return fmt.Errorf("failed to create %s: %w", d, err)
		}
	}
	if err := root.WriteFile(name, data, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", name, err)
	}
	return nil
}
