// Package ident parses and quotes SQL identifiers used for audit table names
// and entity type names.
package ident

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalid is returned when an identifier cannot be used as a table name.
var ErrInvalid = errors.New("ident: invalid identifier")

// Split splits a potentially schema-qualified identifier into its parts.
// Double quotes group characters (including dots); "" inside quotes is an escaped quote.
func Split(ident string) []string {
	ident = strings.TrimSpace(ident)
	if ident == "" {
		return nil
	}
	var parts []string
	var buf strings.Builder
	inQuotes := false
	runes := []rune(ident)
	for i := 0; i < len(runes); i++ {
		r := runes[i]
		switch r {
		case '"':
			if inQuotes && i+1 < len(runes) && runes[i+1] == '"' {
				buf.WriteRune('"')
				i++
				continue
			}
			inQuotes = !inQuotes
		case '.':
			if inQuotes {
				buf.WriteRune(r)
				continue
			}
			parts = append(parts, strings.TrimSpace(buf.String()))
			buf.Reset()
		default:
			buf.WriteRune(r)
		}
	}
	parts = append(parts, strings.TrimSpace(buf.String()))
	return parts
}

// Quote safely quotes a single identifier part.
func Quote(part string) string {
	return `"` + strings.ReplaceAll(part, `"`, `""`) + `"`
}

// QuoteQualified renders identifier parts as a qualified SQL identifier.
func QuoteQualified(parts []string) string {
	if len(parts) == 0 {
		return ""
	}
	quoted := make([]string, len(parts))
	for i, p := range parts {
		quoted[i] = Quote(p)
	}
	return strings.Join(quoted, ".")
}

// Table validates a table name ("table" or "schema.table") and returns it quoted.
func Table(name string) (string, error) {
	parts := Split(name)
	if len(parts) == 0 || len(parts) > 2 {
		return "", fmt.Errorf("%w: %q", ErrInvalid, name)
	}
	for _, p := range parts {
		if p == "" {
			return "", fmt.Errorf("%w: %q", ErrInvalid, name)
		}
	}
	return QuoteQualified(parts), nil
}

// Base returns the last segment of a qualified identifier.
func Base(ident string) string {
	parts := Split(ident)
	if len(parts) == 0 {
		return strings.TrimSpace(ident)
	}
	return parts[len(parts)-1]
}
