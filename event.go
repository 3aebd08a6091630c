package auditlog

import (
	"encoding/json"
	"time"
)

// Event is a single lifecycle notification handed to Handler.Record.
type Event struct {
	Action   Action
	Entity   Entity
	EntityID any      // primary key; resolved from the snapshots when nil
	Old      Snapshot // before the change; empty for create
	New      Snapshot // after the change; empty for delete and restore
}

// RowID identifies a persisted row within its store.
type RowID string

// Row is an audit record as written to a Store.
type Row struct {
	ID        RowID           `json:"id,omitempty"`
	UserID    *string         `json:"user_id"`
	ModelName string          `json:"model_name"`
	ModelID   string          `json:"model_id"`
	Action    Action          `json:"action"`
	Record    json.RawMessage `json:"record"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// Diff decodes the row's serialized record.
func (r *Row) Diff() (Diff, error) {
	return DecodeDiff(r.Record)
}
