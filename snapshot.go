package auditlog

import (
	"bytes"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"
)

// Snapshot is a flat mapping of field name to value at one point in time.
type Snapshot map[string]any

// Clone returns a shallow copy of s. A nil snapshot clones to an empty one.
func (s Snapshot) Clone() Snapshot {
	out := make(Snapshot, len(s))
	for k, v := range s {
		out[k] = v
	}
	return out
}

var timeType = reflect.TypeOf(time.Time{})

// FromStruct flattens the exported fields of a struct (or pointer to struct)
// into a Snapshot. Field names come from the `audit` tag, then `db`, then
// `json`, falling back to the snake_cased Go name. A tag value of "-" skips
// the field. Embedded structs are flattened into the parent.
func FromStruct(v any) (Snapshot, error) {
	if v == nil {
		return nil, errors.New("auditlog: nil snapshot target")
	}
	val := reflect.ValueOf(v)
	if val.Kind() == reflect.Pointer {
		if val.IsNil() {
			return nil, fmt.Errorf("auditlog: nil pointer snapshot target %T", v)
		}
		val = val.Elem()
	}
	if val.Kind() != reflect.Struct {
		return nil, fmt.Errorf("auditlog: unsupported snapshot target %T", v)
	}
	out := Snapshot{}
	flattenStruct(val, out)
	return out, nil
}

func flattenStruct(val reflect.Value, out Snapshot) {
	typ := val.Type()
	for i := 0; i < typ.NumField(); i++ {
		f := typ.Field(i)
		name, skip := fieldName(f)
		if skip {
			continue
		}
		// promoted fields of embedded structs stay reachable even when the
		// embedded type itself is unexported
		if f.Anonymous && f.Type.Kind() == reflect.Struct && f.Type != timeType && !hasNameTag(f) {
			flattenStruct(val.Field(i), out)
			continue
		}
		if !f.IsExported() {
			continue
		}
		out[name] = val.Field(i).Interface()
	}
}

func fieldName(f reflect.StructField) (string, bool) {
	for _, key := range []string{"audit", "db", "json"} {
		tag, ok := f.Tag.Lookup(key)
		if !ok {
			continue
		}
		name, _, _ := strings.Cut(tag, ",")
		if name == "-" {
			return "", true
		}
		if name != "" {
			return name, false
		}
	}
	return toSnakeCase(f.Name), false
}

func hasNameTag(f reflect.StructField) bool {
	for _, key := range []string{"audit", "db", "json"} {
		if tag, ok := f.Tag.Lookup(key); ok {
			if name, _, _ := strings.Cut(tag, ","); name != "" {
				return true
			}
		}
	}
	return false
}

// ScanRows consumes rows into one Snapshot per row and closes rows.
// []byte values holding a JSON object or array are decoded with numbers kept
// as json.Number; other []byte values, numeric text included, become strings.
func ScanRows(rows *sql.Rows) ([]Snapshot, error) {
	defer func(rows *sql.Rows) {
		_ = rows.Close()
	}(rows)

	cols, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("auditlog: failed to read columns: %w", err)
	}
	var out []Snapshot
	for rows.Next() {
		vals := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range vals {
			ptrs[i] = &vals[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("auditlog: failed to scan row: %w", err)
		}
		out = append(out, rowToSnapshot(cols, vals))
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("auditlog: failed to iterate rows: %w", err)
	}
	return out, nil
}

func rowToSnapshot(cols []string, vals []any) Snapshot {
	m := make(Snapshot, len(cols))
	for i, c := range cols {
		v := vals[i]
		if b, ok := v.([]byte); ok {
			if js, ok := decodeJSONColumn(b); ok {
				m[c] = js
				continue
			}
			m[c] = string(b)
			continue
		}
		m[c] = v
	}
	return m
}

// decodeJSONColumn decodes b when it holds a JSON object or array.
func decodeJSONColumn(b []byte) (any, bool) {
	trimmed := bytes.TrimSpace(b)
	if len(trimmed) == 0 || (trimmed[0] != '{' && trimmed[0] != '[') || !json.Valid(trimmed) {
		return nil, false
	}
	dec := json.NewDecoder(bytes.NewReader(trimmed))
	dec.UseNumber()
	var js any
	if err := dec.Decode(&js); err != nil {
		return nil, false
	}
	return js, true
}
