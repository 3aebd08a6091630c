package auditlog

import (
	"errors"
	"fmt"
	"strings"
)

// DefaultRestoreMessage is stored as the new value of every field when a
// soft-deleted record is restored.
const DefaultRestoreMessage = "Data restored."

// DefaultDiscards are credentials and bookkeeping timestamps that rows already
// carry elsewhere.
var DefaultDiscards = []string{
	"password",
	"remember_token",
	"created_at",
	"updated_at",
	"deleted_at",
	"banned_at",
}

// MaskFunc replaces the value of a kept field before it is written to a diff.
type MaskFunc func(key string, v any) any

// MaskMap maps field names to the function masking their values.
type MaskMap map[string]MaskFunc

// MaskAll replaces any non-nil value with a fixed placeholder.
func MaskAll(_ string, v any) any {
	if v == nil {
		return nil
	}
	return "[masked]"
}

// Watchers toggles audit capture per action.
type Watchers struct {
	Create  bool `koanf:"create" toml:"create"`
	Update  bool `koanf:"update" toml:"update"`
	Delete  bool `koanf:"delete" toml:"delete"`
	Restore bool `koanf:"restore" toml:"restore"`
}

// Enabled reports whether the watcher for a is turned on.
func (w Watchers) Enabled(a Action) bool {
	switch a {
	case ActionCreate:
		return w.Create
	case ActionUpdate:
		return w.Update
	case ActionDelete:
		return w.Delete
	case ActionRestore:
		return w.Restore
	default:
		return false
	}
}

// Messages holds the texts stored in place of values.
type Messages struct {
	RestoreSoftDeleted string `koanf:"restore_softdeleted" toml:"restore_softdeleted"`
}

// Config is the process-wide audit configuration. Build it once, pass it to
// New and do not modify it afterwards.
type Config struct {
	Models         []string            `koanf:"models" toml:"models"`                       // watched entity types
	Discards       []string            `koanf:"discards" toml:"discards"`                   // dropped from every entity
	EntityDiscards map[string][]string `koanf:"discards_by_model" toml:"discards_by_model"` // dropped per entity type
	Messages       Messages            `koanf:"messages" toml:"messages"`
	Watchers       Watchers            `koanf:"watchers" toml:"watchers"`
	Mask           MaskMap             `koanf:"-" toml:"-"` // optional value masking for kept fields
}

// DefaultConfig returns the configuration used when nothing else is specified:
// every watcher on, credentials and timestamps discarded.
func DefaultConfig() Config {
	return Config{
		Discards: append([]string(nil), DefaultDiscards...),
		Messages: Messages{RestoreSoftDeleted: DefaultRestoreMessage},
		Watchers: Watchers{Create: true, Update: true, Delete: true, Restore: true},
	}
}

var (
	ErrEmptyModel     = errors.New("auditlog: model name cannot be empty")
	ErrDuplicateModel = errors.New("auditlog: model listed more than once")
)

// Validate reports every problem found in c.
func (c Config) Validate() error {
	var errs []error
	seen := make(map[string]struct{}, len(c.Models))
	for _, m := range c.Models {
		name := strings.TrimSpace(m)
		if name == "" {
			errs = append(errs, ErrEmptyModel)
			continue
		}
		if _, ok := seen[name]; ok {
			errs = append(errs, fmt.Errorf("%w: %q", ErrDuplicateModel, name))
			continue
		}
		seen[name] = struct{}{}
	}
	for model := range c.EntityDiscards {
		if strings.TrimSpace(model) == "" {
			errs = append(errs, fmt.Errorf("discards_by_model: %w", ErrEmptyModel))
		}
	}
	return errors.Join(errs...)
}

// Watches reports whether entityType is listed in Models.
func (c Config) Watches(entityType string) bool {
	for _, m := range c.Models {
		if strings.TrimSpace(m) == entityType {
			return true
		}
	}
	return false
}
