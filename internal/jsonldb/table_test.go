package jsonldb

import (
	"bufio"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/maruel/ksid"
)

// testRow is a simple row type for testing.
type testRow struct {
	ID    ksid.ID `json:"id" jsonschema:"description=Row identifier"`
	Name  string  `json:"name" jsonschema:"description=Row name"`
	Count int     `json:"count,omitempty"`
}

func (r *testRow) Clone() *testRow {
	c := *r
	return &c
}

func (r *testRow) GetID() ksid.ID {
	return r.ID
}

func (r *testRow) Validate() error {
	if r.Name == "" {
		return errors.New("name is required")
	}
	return nil
}

func setupTable(t *testing.T) (*Table[*testRow], string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.jsonl")
	table, err := NewTable[*testRow](path)
	if err != nil {
		t.Fatalf("NewTable failed: %v", err)
	}
	return table, path
}

func TestTable(t *testing.T) {
	t.Run("empty", func(t *testing.T) {
		table, path := setupTable(t)
		if table.Len() != 0 {
			t.Errorf("Len() = %d, want 0", table.Len())
		}
		if _, err := os.Stat(path); !os.IsNotExist(err) {
			t.Errorf("file should not exist before first write, err=%v", err)
		}
		if got := table.Get(ksid.NewID()); got != nil {
			t.Errorf("Get() = %v, want nil", got)
		}
	})

	t.Run("append and reload", func(t *testing.T) {
		table, path := setupTable(t)
		a := &testRow{ID: ksid.NewID(), Name: "a"}
		b := &testRow{ID: ksid.NewID(), Name: "b"}
		for _, r := range []*testRow{b, a} {
			if err := table.Append(r); err != nil {
				t.Fatalf("Append(%s) failed: %v", r.Name, err)
			}
		}
		reloaded, err := NewTable[*testRow](path)
		if err != nil {
			t.Fatalf("NewTable reload failed: %v", err)
		}
		var names []string
		for r := range reloaded.All() {
			names = append(names, r.Name)
		}
		if strings.Join(names, ",") != "a,b" {
			t.Errorf("rows = %v, want sorted by ID [a b]", names)
		}
	})

	t.Run("schema header", func(t *testing.T) {
		table, path := setupTable(t)
		if err := table.Append(&testRow{ID: ksid.NewID(), Name: "x"}); err != nil {
			t.Fatal(err)
		}
		f, err := os.Open(path)
		if err != nil {
			t.Fatal(err)
		}
		defer func() { _ = f.Close() }()
		s := bufio.NewScanner(f)
		if !s.Scan() {
			t.Fatal("empty file")
		}
		hdr := s.Text()
		for _, want := range []string{`"version":"1.0"`, `"name":"id","type":"id"`, `"name":"count","type":"number"`, `"description":"Row name"`} {
			if !strings.Contains(hdr, want) {
				t.Errorf("header %s missing %s", hdr, want)
			}
		}
	})

	t.Run("append rejects", func(t *testing.T) {
		table, _ := setupTable(t)
		id := ksid.NewID()
		if err := table.Append(&testRow{ID: id, Name: "a"}); err != nil {
			t.Fatal(err)
		}
		if err := table.Append(&testRow{ID: id, Name: "b"}); !errors.Is(err, ErrDuplicateID) {
			t.Errorf("duplicate Append() error = %v, want ErrDuplicateID", err)
		}
		if err := table.Append(&testRow{ID: ksid.NewID()}); err == nil {
			t.Error("invalid Append() should fail")
		}
		if err := table.Append(&testRow{Name: "zero"}); err == nil {
			t.Error("zero ID Append() should fail")
		}
		if table.Len() != 1 {
			t.Errorf("Len() = %d, want 1", table.Len())
		}
	})

	t.Run("get returns clone", func(t *testing.T) {
		table, _ := setupTable(t)
		id := ksid.NewID()
		if err := table.Append(&testRow{ID: id, Name: "a"}); err != nil {
			t.Fatal(err)
		}
		r := table.Get(id)
		r.Name = "mutated"
		if got := table.Get(id).Name; got != "a" {
			t.Errorf("Name = %q, want unchanged %q", got, "a")
		}
	})

	t.Run("modify", func(t *testing.T) {
		table, path := setupTable(t)
		id := ksid.NewID()
		if err := table.Append(&testRow{ID: id, Name: "a"}); err != nil {
			t.Fatal(err)
		}
		got, err := table.Modify(id, func(r *testRow) error {
			r.Count++
			return nil
		})
		if err != nil {
			t.Fatalf("Modify failed: %v", err)
		}
		if got.Count != 1 {
			t.Errorf("Count = %d, want 1", got.Count)
		}
		if _, err := table.Modify(id, func(r *testRow) error {
			r.Name = ""
			return nil
		}); !errors.Is(err, ErrInvalidRow) {
			t.Errorf("Modify producing invalid row = %v, want ErrInvalidRow", err)
		}
		wantErr := errors.New("boom")
		if _, err := table.Modify(id, func(*testRow) error { return wantErr }); !errors.Is(err, wantErr) {
			t.Errorf("Modify error = %v, want %v", err, wantErr)
		}
		if _, err := table.Modify(ksid.NewID(), func(*testRow) error { return nil }); !errors.Is(err, ErrNotFound) {
			t.Errorf("Modify unknown error = %v, want ErrNotFound", err)
		}
		reloaded, err := NewTable[*testRow](path)
		if err != nil {
			t.Fatal(err)
		}
		if r := reloaded.Get(id); r == nil || r.Count != 1 || r.Name != "a" {
			t.Errorf("reloaded row = %+v", r)
		}
	})

	t.Run("delete", func(t *testing.T) {
		table, _ := setupTable(t)
		id := ksid.NewID()
		other := ksid.NewID()
		for _, r := range []*testRow{{ID: id, Name: "a"}, {ID: other, Name: "b"}} {
			if err := table.Append(r); err != nil {
				t.Fatal(err)
			}
		}
		prev, err := table.Delete(id)
		if err != nil {
			t.Fatalf("Delete failed: %v", err)
		}
		if prev.Name != "a" {
			t.Errorf("deleted row = %+v", prev)
		}
		if table.Get(id) != nil {
			t.Error("row still present after Delete")
		}
		if table.Get(other) == nil {
			t.Error("other row lost after Delete")
		}
		if _, err := table.Delete(id); !errors.Is(err, ErrNotFound) {
			t.Errorf("second Delete error = %v, want ErrNotFound", err)
		}
	})

	t.Run("iter from", func(t *testing.T) {
		table, _ := setupTable(t)
		var ids []ksid.ID
		for i := range 4 {
			id := ksid.NewID()
			ids = append(ids, id)
			if err := table.Append(&testRow{ID: id, Name: string(rune('a' + i))}); err != nil {
				t.Fatal(err)
			}
		}
		var got []string
		for r := range table.Iter(ids[1]) {
			got = append(got, r.Name)
		}
		if strings.Join(got, "") != "cd" {
			t.Errorf("Iter = %v, want [c d]", got)
		}
	})

	t.Run("corrupt file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "bad.jsonl")
		if err := os.WriteFile(path, []byte("{\"version\":\"1.0\",\"columns\":[]}\nnot json\n"), 0o600); err != nil {
			t.Fatal(err)
		}
		if _, err := NewTable[*testRow](path); err == nil {
			t.Error("NewTable on corrupt file should fail")
		}
	})
}

func TestSchemaOf(t *testing.T) {
	cols, err := SchemaOf[*testRow]()
	if err != nil {
		t.Fatal(err)
	}
	want := map[string]ColumnType{"id": ColumnTypeID, "name": ColumnTypeText, "count": ColumnTypeNumber}
	if len(cols) != len(want) {
		t.Fatalf("got %d columns, want %d: %+v", len(cols), len(want), cols)
	}
	for _, c := range cols {
		if want[c.Name] != c.Type {
			t.Errorf("column %s type = %s, want %s", c.Name, c.Type, want[c.Name])
		}
	}
	if _, err := SchemaOf[int](); err == nil {
		t.Error("SchemaOf[int] should fail")
	}
}

func TestCreateEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sub", "test.jsonl")
	cols := []Column{{Name: "id", Type: ColumnTypeID, Required: true}, {Name: "name", Type: ColumnTypeText}}
	if err := CreateEmpty(path, cols); err != nil {
		t.Fatal(err)
	}
	table, err := NewTable[*testRow](path)
	if err != nil {
		t.Fatalf("NewTable on empty table: %v", err)
	}
	if table.Len() != 0 {
		t.Errorf("Len() = %d", table.Len())
	}
	if err := CreateEmpty(path, cols); !errors.Is(err, os.ErrExist) {
		t.Errorf("second CreateEmpty: err = %v, want ErrExist", err)
	}
	if err := CreateEmpty(filepath.Join(t.TempDir(), "bad.jsonl"), []Column{{Name: "x", Type: "blob"}}); err == nil {
		t.Error("invalid column type accepted")
	}
}
