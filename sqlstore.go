package auditlog

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"

	"github.com/mickamy/auditlog/internal/ident"
)

// DefaultTable is the table audit rows are written to.
const DefaultTable = "audit_logs"

// SQLStore writes rows to a PostgreSQL table through database/sql. When the
// context carries a transaction set with WithTx, the insert joins it.
type SQLStore struct {
	db    *sql.DB
	table string
	stmt  string
}

// SQLOption customizes an SQLStore.
type SQLOption func(*SQLStore)

// WithTable overrides the target table ("table" or "schema.table").
func WithTable(name string) SQLOption {
	return func(s *SQLStore) {
		s.table = name
	}
}

// NewSQLStore creates an SQLStore on db.
func NewSQLStore(db *sql.DB, opts ...SQLOption) (*SQLStore, error) {
	if db == nil {
		return nil, fmt.Errorf("auditlog: nil *sql.DB")
	}
	s := &SQLStore{db: db, table: DefaultTable}
	for _, opt := range opts {
		opt(s)
	}
	table, err := ident.Table(s.table)
	if err != nil {
		return nil, fmt.Errorf("auditlog: invalid audit table: %w", err)
	}
	s.stmt = fmt.Sprintf(`
INSERT INTO %s (user_id, model_name, model_id, action, record, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7)
RETURNING id
`, table)
	return s, nil
}

type rowQuerier interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (s *SQLStore) querier(ctx context.Context) rowQuerier {
	if tx, ok := txFromContext(ctx); ok {
		return tx
	}
	return s.db
}

// Insert writes row and returns the generated id.
func (s *SQLStore) Insert(ctx context.Context, row *Row) (RowID, error) {
	var userID sql.NullString
	if row.UserID != nil {
		userID = sql.NullString{String: *row.UserID, Valid: true}
	}

	var id int64
	err := s.querier(ctx).QueryRowContext(ctx, s.stmt,
		userID,
		row.ModelName,
		row.ModelID,
		string(row.Action),
		string(row.Record),
		row.CreatedAt,
		row.UpdatedAt,
	).Scan(&id)
	if err != nil {
		return "", fmt.Errorf("auditlog: failed to insert into %s: %w", s.table, err)
	}
	return RowID(strconv.FormatInt(id, 10)), nil
}
