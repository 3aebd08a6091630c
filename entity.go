package auditlog

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/jinzhu/inflection"

	"github.com/mickamy/auditlog/internal/ident"
)

// Entity identifies a watched entity type. Its EntityType is stored as the
// model name of every audit row.
type Entity interface {
	EntityType() string
}

// Discarder is implemented by entity types that declare their own fields to
// keep out of audit diffs.
type Discarder interface {
	Discarded() []string
}

// EntityName adapts a plain type name to Entity.
type EntityName string

func (n EntityName) EntityType() string {
	return string(n)
}

// resolveKey picks the primary key value of a record. An explicit value wins;
// otherwise "id" and then "<singular entity>_id" are looked up in the snapshots.
func resolveKey(entityType string, explicit any, snaps ...Snapshot) any {
	if explicit != nil {
		return explicit
	}
	for _, s := range snaps {
		if v, ok := s["id"]; ok && v != nil {
			return v
		}
	}
	base := toSnakeCase(ident.Base(entityType))
	if base == "" {
		return nil
	}
	singularID := inflection.Singular(base) + "_id"
	for _, s := range snaps {
		if v, ok := s[singularID]; ok && v != nil {
			return v
		}
	}
	return nil
}

// formatKey renders a primary key value for the model_id column.
func formatKey(v any) string {
	switch k := v.(type) {
	case nil:
		return ""
	case string:
		return k
	case []byte:
		return string(k)
	case fmt.Stringer:
		return k.String()
	default:
		return fmt.Sprint(k)
	}
}

func toSnakeCase(s string) string {
	runes := []rune(strings.TrimSpace(s))
	var b strings.Builder
	for i, r := range runes {
		if unicode.IsUpper(r) {
			if i > 0 && (unicode.IsLower(runes[i-1]) || (i+1 < len(runes) && unicode.IsLower(runes[i+1]))) {
				b.WriteByte('_')
			}
			b.WriteRune(unicode.ToLower(r))
		} else {
			b.WriteRune(r)
		}
	}
	return b.String()
}
