package jsonldb

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"iter"
	"os"
	"path/filepath"
	"slices"
	"sync"

	"github.com/maruel/ksid"
)

var (
	// ErrNotFound is returned when a row ID is not in the table.
	ErrNotFound = errors.New("row not found")
	// ErrDuplicateID is returned when appending a row whose ID already exists.
	ErrDuplicateID = errors.New("duplicate row ID")
	// ErrInvalidRow wraps the error of a row failing Validate.
	ErrInvalidRow = errors.New("invalid row")

	errZeroID = errors.New("row ID is zero")
)

// Row is implemented by every type stored in a Table.
type Row[T any] interface {
	comparable
	Clone() T
	GetID() ksid.ID
	Validate() error
}

// TableObserver is notified after each successful mutation.
//
// Callbacks run with the table write lock held; they must not call back into
// the table.
type TableObserver[T any] interface {
	OnAppend(row T)
	OnUpdate(prev, curr T)
	OnDelete(row T)
}

// Table handles storage and in-memory caching for a single JSONL table.
type Table[T Row[T]] struct {
	path    string
	columns []Column

	mu        sync.RWMutex
	rows      []T
	byID      map[ksid.ID]int
	observers []TableObserver[T]
}

// NewTable creates a Table and loads all rows from path.
func NewTable[T Row[T]](path string) (*Table[T], error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil { //nolint:gosec // G301: data directories are world readable
		return nil, fmt.Errorf("failed to create directory for %s: %w", path, err)
	}
	columns, err := SchemaOf[T]()
	if err != nil {
		return nil, fmt.Errorf("failed to derive schema for %s: %w", path, err)
	}
	t := &Table[T]{path: path, columns: columns, byID: map[ksid.ID]int{}}
	if err := t.load(); err != nil {
		return nil, err
	}
	return t, nil
}

// Path returns the file backing the table.
func (t *Table[T]) Path() string {
	return t.path
}

// Columns returns the schema of the table.
func (t *Table[T]) Columns() []Column {
	return slices.Clone(t.columns)
}

func (t *Table[T]) load() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	f, err := os.Open(t.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to open table file %s: %w", t.path, err)
	}
	defer func() { _ = f.Close() }()

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	first := true
	var rows []T
	for lineNo := 1; scanner.Scan(); lineNo++ {
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		if first {
			first = false
			var hdr schemaHeader
			if err := json.Unmarshal(line, &hdr); err != nil {
				return fmt.Errorf("failed to parse schema header in %s: %w", t.path, err)
			}
			if err := hdr.Validate(); err != nil {
				return fmt.Errorf("invalid schema header in %s: %w", t.path, err)
			}
			continue
		}
		var row T
		if err := json.Unmarshal(line, &row); err != nil {
			return fmt.Errorf("failed to unmarshal row at %s:%d: %w", t.path, lineNo, err)
		}
		if err := row.Validate(); err != nil {
			return fmt.Errorf("invalid row at %s:%d: %w", t.path, lineNo, err)
		}
		rows = append(rows, row)
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("failed to read table file %s: %w", t.path, err)
	}

	slices.SortFunc(rows, func(a, b T) int { return compareIDs(a.GetID(), b.GetID()) })
	for i, row := range rows {
		if _, ok := t.byID[row.GetID()]; ok {
			return fmt.Errorf("%w %s in %s", ErrDuplicateID, row.GetID(), t.path)
		}
		t.byID[row.GetID()] = i
	}
	t.rows = rows
	return nil
}

// AddObserver registers o and replays every existing row through OnAppend.
func (t *Table[T]) AddObserver(o TableObserver[T]) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.observers = append(t.observers, o)
	for _, row := range t.rows {
		o.OnAppend(row)
	}
}

// Len returns the number of rows.
func (t *Table[T]) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.rows)
}

// Get returns a clone of the row with the given ID, or the zero value.
func (t *Table[T]) Get(id ksid.ID) T {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if i, ok := t.byID[id]; ok {
		return t.rows[i].Clone()
	}
	var zero T
	return zero
}

// All returns an iterator over clones of all rows, in ID order.
func (t *Table[T]) All() iter.Seq[T] {
	return t.Iter(0)
}

// Iter returns an iterator over clones of rows with ID strictly greater than
// startID.
func (t *Table[T]) Iter(startID ksid.ID) iter.Seq[T] {
	return func(yield func(T) bool) {
		t.mu.RLock()
		defer t.mu.RUnlock()
		start, _ := slices.BinarySearchFunc(t.rows, startID, func(r T, id ksid.ID) int {
			return compareIDs(r.GetID(), id)
		})
		for _, row := range t.rows[start:] {
			if row.GetID() == startID {
				continue
			}
			if !yield(row.Clone()) {
				return
			}
		}
	}
}

// Append validates row, adds it to the table and persists the table.
func (t *Table[T]) Append(row T) error {
	if row.GetID().IsZero() {
		return errZeroID
	}
	if err := row.Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidRow, err)
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, ok := t.byID[row.GetID()]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicateID, row.GetID())
	}
	rows := slices.Clone(t.rows)
	i, _ := slices.BinarySearchFunc(rows, row.GetID(), func(r T, id ksid.ID) int {
		return compareIDs(r.GetID(), id)
	})
	rows = slices.Insert(rows, i, row.Clone())
	if err := t.persist(rows); err != nil {
		return err
	}
	t.setRows(rows)
	for _, o := range t.observers {
		o.OnAppend(rows[i])
	}
	return nil
}

// Modify atomically applies fn to a clone of the row with the given ID.
//
// The write lock is held for the whole operation. If fn returns an error or
// the modified row fails validation, nothing is persisted. The modified row
// is returned.
func (t *Table[T]) Modify(id ksid.ID, fn func(row T) error) (T, error) {
	var zero T
	t.mu.Lock()
	defer t.mu.Unlock()
	i, ok := t.byID[id]
	if !ok {
		return zero, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	prev := t.rows[i]
	curr := prev.Clone()
	if err := fn(curr); err != nil {
		return zero, err
	}
	if curr.GetID() != id {
		return zero, fmt.Errorf("row ID changed from %s to %s", id, curr.GetID())
	}
	if err := curr.Validate(); err != nil {
		return zero, fmt.Errorf("%w: %w", ErrInvalidRow, err)
	}
	rows := slices.Clone(t.rows)
	rows[i] = curr
	if err := t.persist(rows); err != nil {
		return zero, err
	}
	t.rows = rows
	for _, o := range t.observers {
		o.OnUpdate(prev, curr)
	}
	return curr.Clone(), nil
}

// Delete removes the row with the given ID and returns it.
func (t *Table[T]) Delete(id ksid.ID) (T, error) {
	var zero T
	t.mu.Lock()
	defer t.mu.Unlock()
	i, ok := t.byID[id]
	if !ok {
		return zero, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	prev := t.rows[i]
	rows := slices.Delete(slices.Clone(t.rows), i, i+1)
	if err := t.persist(rows); err != nil {
		return zero, err
	}
	t.setRows(rows)
	for _, o := range t.observers {
		o.OnDelete(prev)
	}
	return prev, nil
}

// setRows replaces rows and rebuilds the ID map. Must hold the write lock.
func (t *Table[T]) setRows(rows []T) {
	t.rows = rows
	t.byID = make(map[ksid.ID]int, len(rows))
	for i, row := range rows {
		t.byID[row.GetID()] = i
	}
}

// persist writes the header and rows to a temporary file and renames it over
// the table file. Must hold the write lock.
func (t *Table[T]) persist(rows []T) error {
	tmp, err := os.CreateTemp(filepath.Dir(t.path), filepath.Base(t.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temporary table file: %w", err)
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	w := bufio.NewWriter(tmp)
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(schemaHeader{Version: currentVersion, Columns: t.columns}); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("failed to write schema header: %w", err)
	}
	for _, row := range rows {
		if err := enc.Encode(row); err != nil {
			_ = tmp.Close()
			return fmt.Errorf("failed to write row %s: %w", row.GetID(), err)
		}
	}
	if err := w.Flush(); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("failed to flush table file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close table file: %w", err)
	}
	if err := os.Rename(tmp.Name(), t.path); err != nil {
		return fmt.Errorf("failed to replace table file: %w", err)
	}
	return nil
}

func compareIDs(a, b ksid.ID) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}
