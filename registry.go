package auditlog

import (
	"context"
	"errors"
	"fmt"
)

// Record is the view of an entity instance a lifecycle notification supplies.
type Record interface {
	// Key returns the primary key column name and its value.
	Key() (name string, value any)
	// Attributes returns the current field values.
	Attributes() Snapshot
	// Original returns the field values before the change being notified.
	Original() Snapshot
	// Changes returns the fields modified by an update with their new values.
	Changes() Snapshot
}

// Hook receives lifecycle notifications. A returned error propagates to the
// code that fired the notification.
type Hook func(ctx context.Context, rec Record) error

// Watchable is an entity type exposing lifecycle subscription points.
type Watchable interface {
	Entity
	OnCreated(Hook)
	OnUpdated(Hook)
	OnDeleted(Hook)
}

// Restorable is implemented by Watchable types that signal restoration of
// soft-deleted records.
type Restorable interface {
	OnRestored(Hook)
}

var (
	ErrNilWatchable       = errors.New("auditlog: watchable cannot be nil")
	ErrDuplicateWatchable = errors.New("auditlog: entity type registered more than once")
)

// Registry subscribes a Handler to the lifecycle hooks of configured entity types.
type Registry struct {
	h      *Handler
	models []string
}

// NewRegistry creates a Registry feeding h.
func NewRegistry(h *Handler) *Registry {
	return &Registry{h: h}
}

// Register subscribes to every watchable whose entity type is listed in
// Config.Models, one hook per enabled watcher. Configured models without a
// matching watchable are skipped and logged; watchables that are not
// configured are ignored.
func (r *Registry) Register(ws ...Watchable) error {
	known := make(map[string]Watchable, len(ws))
	for _, w := range ws {
		if w == nil {
			return ErrNilWatchable
		}
		name := w.EntityType()
		if _, ok := known[name]; ok {
			return fmt.Errorf("%w: %q", ErrDuplicateWatchable, name)
		}
		known[name] = w
	}

	cfg := r.h.cfg
	for _, model := range cfg.Models {
		w, ok := known[model]
		if !ok {
			r.h.metrics.incUnresolved(model)
			r.h.logger.Warn().Str("model", model).Msg("auditlog.Registry: configured model has no registered entity type, skipping")
			continue
		}

		if cfg.Watchers.Create {
			w.OnCreated(r.hook(w, ActionCreate))
		}
		if cfg.Watchers.Update {
			w.OnUpdated(r.hook(w, ActionUpdate))
		}
		if cfg.Watchers.Delete {
			w.OnDeleted(r.hook(w, ActionDelete))
		}
		if cfg.Watchers.Restore {
			if rw, ok := w.(Restorable); ok {
				rw.OnRestored(r.hook(w, ActionRestore))
			} else {
				r.h.logger.Warn().Str("model", model).Msg("auditlog.Registry: entity type exposes no restore signal, restores will not be audited")
			}
		}
		r.models = append(r.models, model)
		r.h.logger.Debug().Str("model", model).Msg("auditlog.Registry: watching")
	}
	return nil
}

// Models returns the entity types subscribed so far.
func (r *Registry) Models() []string {
	return append([]string(nil), r.models...)
}

func (r *Registry) hook(entity Entity, action Action) Hook {
	return func(ctx context.Context, rec Record) error {
		ev := Event{Action: action, Entity: entity}

		switch action {
		case ActionCreate:
			ev.New = rec.Attributes()
		case ActionUpdate:
			ev.Old = rec.Original()
			ev.New = rec.Changes()
			if len(r.h.Redact(entity, ev.New)) == 0 {
				r.h.metrics.incSkipped(entity.EntityType(), action.String(), skipReasonNoChanges)
				r.h.logger.Debug().Str("model", entity.EntityType()).Msg("auditlog.Registry: update changed only discarded fields, skipping")
				return nil
			}
		case ActionDelete:
			ev.Old = rec.Attributes()
		case ActionRestore:
			ev.Old = rec.Original()
			if len(ev.Old) == 0 {
				ev.Old = rec.Attributes()
			}
		}

		name, key := rec.Key()
		if key == nil && name != "" {
			if v, ok := ev.Old[name]; ok {
				key = v
			} else if v, ok := ev.New[name]; ok {
				key = v
			} else {
				key = rec.Attributes()[name]
			}
		}
		ev.EntityID = key

		_, err := r.h.Record(ctx, ev)
		return err
	}
}
