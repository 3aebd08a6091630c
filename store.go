package auditlog

import (
	"context"
	"strconv"
	"sync/atomic"

	"github.com/mickamy/auditlog/internal/buffer"
)

//go:generate mockgen -source=store.go -destination=mocks/store.go -package=mocks Store

// Store persists audit rows. Insert must not modify row and returns the
// identifier the store assigned to it.
type Store interface {
	Insert(ctx context.Context, row *Row) (RowID, error)
}

// MemoryStore keeps rows in process memory. Used for tests and development.
type MemoryStore struct {
	rows *buffer.Buffer[Row]
	seq  atomic.Int64
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{rows: buffer.NewBuffer[Row]()}
}

// Insert stores a copy of row under a sequential identifier.
func (s *MemoryStore) Insert(_ context.Context, row *Row) (RowID, error) {
	id := RowID(strconv.FormatInt(s.seq.Add(1), 10))
	cp := *row
	cp.ID = id
	cp.Record = append([]byte(nil), row.Record...)
	if row.UserID != nil {
		uid := *row.UserID
		cp.UserID = &uid
	}
	s.rows.Add(cp)
	return id, nil
}

// Rows returns copies of all stored rows in insertion order.
func (s *MemoryStore) Rows() []Row {
	return s.rows.Snapshot()
}

// Len returns the number of stored rows.
func (s *MemoryStore) Len() int {
	return s.rows.Len()
}

// Reset removes all rows.
func (s *MemoryStore) Reset() {
	s.rows.Drain()
}
