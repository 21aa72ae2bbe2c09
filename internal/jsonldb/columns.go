// Handles the schema header written on the first line of every table file.

package jsonldb

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"slices"
	"time"

	"github.com/invopop/jsonschema"
	"github.com/maruel/ksid"
)

var errSchemaVersionRequired = errors.New("schema version is required")

// currentVersion is the current version of the JSONL table format.
const currentVersion = "1.0"

// ColumnType represents the storage type of a table column.
type ColumnType string

// Column types inferred from Go field types.
const (
	ColumnTypeText   ColumnType = "text"
	ColumnTypeNumber ColumnType = "number"
	ColumnTypeBool   ColumnType = "bool"
	ColumnTypeDate   ColumnType = "date"
	ColumnTypeID     ColumnType = "id"
	ColumnTypeJSONB  ColumnType = "jsonb"
)

// ColumnTypes lists every valid column type.
var ColumnTypes = []ColumnType{ColumnTypeText, ColumnTypeNumber, ColumnTypeBool, ColumnTypeDate, ColumnTypeID, ColumnTypeJSONB}

// Valid reports whether c is a known column type.
func (c ColumnType) Valid() bool {
	return slices.Contains(ColumnTypes, c)
}

// Column describes one column of a table.
type Column struct {
	Name        string     `json:"name"`
	Type        ColumnType `json:"type"`
	Required    bool       `json:"required,omitempty"`
	Description string     `json:"description,omitempty"`
}

// schemaHeader is the first line of a JSONL table file.
type schemaHeader struct {
	Version string   `json:"version"`
	Columns []Column `json:"columns"`
}

// Validate checks that the schema header is well-formed.
func (h *schemaHeader) Validate() error {
	if h.Version == "" {
		return errSchemaVersionRequired
	}
	for i, col := range h.Columns {
		if col.Name == "" {
			return fmt.Errorf("column %d: name is required", i)
		}
		if !col.Type.Valid() {
			return fmt.Errorf("column %q: invalid type %q", col.Name, col.Type)
		}
	}
	return nil
}

// SchemaOf returns the column definitions of the row type T.
func SchemaOf[T any]() ([]Column, error) {
	return schemaFromType(reflect.TypeFor[T]())
}

// schemaFromType extracts column definitions using JSON Schema reflection.
//
// Descriptions come from `jsonschema:"description=..."` tags.
func schemaFromType(t reflect.Type) ([]Column, error) {
	if t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t.Kind() != reflect.Struct {
		return nil, fmt.Errorf("type must be a struct or pointer to struct, got %s", t.Kind())
	}

	r := jsonschema.Reflector{Anonymous: true, DoNotReference: true, ExpandedStruct: true}
	schema := r.ReflectFromType(t)

	required := make(map[string]bool, len(schema.Required))
	for _, name := range schema.Required {
		required[name] = true
	}
	fields := make(map[string]reflect.Type)
	collectFields(t, fields)

	var columns []Column
	for pair := schema.Properties.Oldest(); pair != nil; pair = pair.Next() {
		colType := ColumnTypeText
		if ft, ok := fields[pair.Key]; ok {
			colType = goTypeToColumnType(ft)
		}
		columns = append(columns, Column{
			Name:        pair.Key,
			Type:        colType,
			Required:    required[pair.Key],
			Description: pair.Value.Description,
		})
	}
	return columns, nil
}

// collectFields maps JSON names to Go types, flattening embedded structs.
func collectFields(t reflect.Type, out map[string]reflect.Type) {
	for i := range t.NumField() {
		field := t.Field(i)
		if !field.IsExported() {
			continue
		}
		if field.Anonymous && field.Type.Kind() == reflect.Struct && field.Tag.Get("json") == "" {
			collectFields(field.Type, out)
			continue
		}
		out[jsonFieldName(&field)] = field.Type
	}
}

// jsonFieldName returns the JSON field name for a struct field.
func jsonFieldName(field *reflect.StructField) string {
	tag := field.Tag.Get("json")
	if tag == "" || tag == "-" {
		return field.Name
	}
	for i, c := range tag {
		if c == ',' {
			if i == 0 {
				return field.Name
			}
			return tag[:i]
		}
	}
	return tag
}

// goTypeToColumnType maps Go types to column types.
func goTypeToColumnType(t reflect.Type) ColumnType {
	if t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	switch t {
	case reflect.TypeFor[time.Time]():
		return ColumnTypeDate
	case reflect.TypeFor[ksid.ID]():
		return ColumnTypeID
	}
	switch t.Kind() {
	case reflect.String:
		return ColumnTypeText
	case reflect.Bool:
		return ColumnTypeBool
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return ColumnTypeNumber
	case reflect.Struct, reflect.Slice, reflect.Array, reflect.Map, reflect.Interface:
		return ColumnTypeJSONB
	default:
		return ColumnTypeText
	}
}

// CreateEmpty writes a table file holding only the schema header. It fails
// if path already exists.
func CreateEmpty(path string, columns []Column) error {
	hdr := schemaHeader{Version: currentVersion, Columns: columns}
	if err := hdr.Validate(); err != nil {
		return err
	}
	data, err := json.Marshal(&hdr)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil { //nolint:gosec // G301: data directories are world readable
		return err
	}
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644) //nolint:gosec // G302: table files are world readable
	if err != nil {
		return err
	}
	if _, err := f.Write(append(data, '\n')); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}
