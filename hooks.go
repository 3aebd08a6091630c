package auditlog

import (
	"context"
	"fmt"
	"reflect"
	"sync"
)

// Hooks is an in-process lifecycle notification hub. Embedding it in a type
// that implements Entity makes the type Watchable and Restorable.
type Hooks struct {
	mu   sync.RWMutex
	subs map[Action][]Hook
}

func (h *Hooks) OnCreated(fn Hook)  { h.on(ActionCreate, fn) }
func (h *Hooks) OnUpdated(fn Hook)  { h.on(ActionUpdate, fn) }
func (h *Hooks) OnDeleted(fn Hook)  { h.on(ActionDelete, fn) }
func (h *Hooks) OnRestored(fn Hook) { h.on(ActionRestore, fn) }

func (h *Hooks) on(a Action, fn Hook) {
	if fn == nil {
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.subs == nil {
		h.subs = make(map[Action][]Hook)
	}
	h.subs[a] = append(h.subs[a], fn)
}

// Fire notifies the subscribers of action in subscription order and stops at
// the first error.
func (h *Hooks) Fire(ctx context.Context, action Action, rec Record) error {
	if !action.Valid() {
		return fmt.Errorf("%w: %q", ErrUnknownAction, action)
	}
	h.mu.RLock()
	subs := append([]Hook(nil), h.subs[action]...)
	h.mu.RUnlock()

	for _, fn := range subs {
		if err := fn(ctx, rec); err != nil {
			return err
		}
	}
	return nil
}

// Subscribers returns the number of hooks subscribed to action.
func (h *Hooks) Subscribers(action Action) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs[action])
}

// MapRecord is a Record built from two snapshots of the same entity.
type MapRecord struct {
	KeyName  string   // primary key column; "id" when empty
	Previous Snapshot // state before the change; nil for creates
	Current  Snapshot // state after the change; for deletes, the deleted state
}

func (r MapRecord) Key() (string, any) {
	name := r.KeyName
	if name == "" {
		name = "id"
	}
	if v, ok := r.Current[name]; ok {
		return name, v
	}
	return name, r.Previous[name]
}

func (r MapRecord) Attributes() Snapshot {
	return r.Current.Clone()
}

func (r MapRecord) Original() Snapshot {
	if r.Previous == nil {
		return r.Current.Clone()
	}
	return r.Previous.Clone()
}

// Changes returns the fields of Current that are absent from Previous or
// hold a different value.
func (r MapRecord) Changes() Snapshot {
	out := Snapshot{}
	for k, v := range r.Current {
		prev, ok := r.Previous[k]
		if !ok || !reflect.DeepEqual(prev, v) {
			out[k] = v
		}
	}
	return out
}
