package auditlog

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Change pairs the previous and current value of a single field.
type Change struct {
	Old any `json:"old"`
	New any `json:"new"`
}

// Diff maps field names to their change.
type Diff map[string]Change

// Encode serializes d as a JSON object. Keys are emitted in sorted order, so
// equal diffs encode to equal bytes.
func (d Diff) Encode() ([]byte, error) {
	if d == nil {
		d = Diff{}
	}
	b, err := json.Marshal(map[string]Change(d))
	if err != nil {
		return nil, fmt.Errorf("auditlog: failed to encode diff: %w", err)
	}
	return b, nil
}

// DecodeDiff parses the output of Diff.Encode. Numbers are decoded as
// json.Number so integer values survive without float rounding.
func DecodeDiff(b []byte) (Diff, error) {
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.UseNumber()
	var d Diff
	if err := dec.Decode(&d); err != nil {
		return nil, fmt.Errorf("auditlog: failed to decode diff: %w", err)
	}
	if d == nil {
		d = Diff{}
	}
	return d, nil
}

// Diff builds the change set for action from already redacted snapshots.
// A disabled watcher yields an empty diff.
func (h *Handler) Diff(action Action, oldFields, newFields Snapshot) (Diff, error) {
	if !action.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrUnknownAction, action)
	}
	d := Diff{}
	if !h.cfg.Watchers.Enabled(action) {
		return d, nil
	}

	switch action {
	case ActionCreate:
		if len(newFields) == 0 {
			return nil, fmt.Errorf("%w: action %q expects new data", ErrMissingData, action)
		}
		for k, v := range newFields {
			d[k] = Change{Old: nil, New: v}
		}

	case ActionUpdate:
		if len(oldFields) == 0 || len(newFields) == 0 {
			return nil, fmt.Errorf("%w: action %q expects both old and new data", ErrMissingData, action)
		}
		for k, v := range newFields {
			prev, ok := oldFields[k]
			if !ok {
				return nil, fmt.Errorf("%w: field %q has no previous value", ErrInconsistentSnapshot, k)
			}
			d[k] = Change{Old: prev, New: v}
		}

	case ActionRestore:
		msg := h.cfg.Messages.RestoreSoftDeleted
		for k, v := range oldFields {
			d[k] = Change{Old: v, New: msg}
		}

	case ActionDelete:
		if len(oldFields) == 0 {
			return nil, fmt.Errorf("%w: action %q expects old data", ErrMissingData, action)
		}
		for k, v := range oldFields {
			d[k] = Change{Old: v, New: nil}
		}
	}
	return d, nil
}
