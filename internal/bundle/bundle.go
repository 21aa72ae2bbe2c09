// Reads module files into a bundle and checks their integrity.

package bundle

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"time"
)

// FormatVersion is the version of the bundle file format.
const FormatVersion = 1

// File is a file of a bundle.
type File struct {
	Path    string `json:"path"`
	SHA256  string `json:"sha256"`
	Size    int64  `json:"size"`
	Content []byte `json:"content"`
}

// Bundle is a manifest plus the content and hash of every listed file.
type Bundle struct {
	Format   int       `json:"format"`
	Manifest Manifest  `json:"manifest"`
	Files    []File    `json:"files"`
	Created  time.Time `json:"created"`
}

// ErrHashMismatch is returned when a file does not match its recorded hash.
var ErrHashMismatch = errors.New("file hash mismatch")

// Export reads every file listed in m from fsys. A missing file is an error.
func Export(m *Manifest, fsys fs.FS) (*Bundle, error) {
	if err := m.Validate(); err != nil {
		return nil, fmt.Errorf("invalid manifest: %w", err)
	}
	b := &Bundle{Format: FormatVersion, Manifest: *m, Created: time.Now().UTC()}
	for _, p := range m.Files {
		data, err := fs.ReadFile(fsys, p)
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", p, err)
		}
		b.Files = append(b.Files, File{Path: p, SHA256: hashBytes(data), Size: int64(len(data)), Content: data})
	}
	return b, nil
}

// Verify checks the manifest, that the file list matches it and that every
// file matches its hash and size.
func (b *Bundle) Verify() error {
	if b.Format != FormatVersion {
		return fmt.Errorf("unsupported bundle format %d", b.Format)
	}
	if err := b.Manifest.Validate(); err != nil {
		return fmt.Errorf("invalid manifest: %w", err)
	}
	if len(b.Files) != len(b.Manifest.Files) {
		return fmt.Errorf("bundle has %d files, manifest lists %d", len(b.Files), len(b.Manifest.Files))
	}
	for i := range b.Files {
		f := &b.Files[i]
		if f.Path != b.Manifest.Files[i] {
			return fmt.Errorf("file %d is %q, manifest lists %q", i, f.Path, b.Manifest.Files[i])
		}
		if int64(len(f.Content)) != f.Size || hashBytes(f.Content) != f.SHA256 {
			return fmt.Errorf("%w: %s", ErrHashMismatch, f.Path)
		}
	}
	return nil
}

// File returns the bundled file at path p.
func (b *Bundle) File(p string) *File {
	for i := range b.Files {
		if b.Files[i].Path == p {
			return &b.Files[i]
		}
	}
	return nil
}

// Write encodes the bundle as indented JSON.
func (b *Bundle) Write(w io.Writer) error {
	e := json.NewEncoder(w)
	e.SetIndent("", "  ")
	return e.Encode(b)
}

// Read decodes and verifies a bundle.
func Read(r io.Reader) (*Bundle, error) {
	b := &Bundle{}
	d := json.NewDecoder(r)
	d.DisallowUnknownFields()
	if err := d.Decode(b); err != nil {
		return nil, fmt.Errorf("invalid bundle: %w", err)
	}
	if err := b.Verify(); err != nil {
		return nil, err
	}
	return b, nil
}

func hashBytes(data []byte) string {
	h := sha256.Sum256(data)
	return hex.EncodeToString(h[:])
}
