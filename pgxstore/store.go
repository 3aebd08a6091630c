// Package pgxstore writes audit rows to PostgreSQL through pgx.
package pgxstore

import (
	"context"
	"fmt"
	"strconv"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mickamy/auditlog"
	"github.com/mickamy/auditlog/internal/ident"
)

// Querier is satisfied by *pgxpool.Pool, *pgx.Conn and pgx.Tx.
type Querier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type Store struct {
	q     Querier
	table string
	stmt  string
}

var _ auditlog.Store = (*Store)(nil)

type Option func(*Store)

// WithTable overrides the target table ("table" or "schema.table").
func WithTable(name string) Option {
	return func(s *Store) {
		s.table = name
	}
}

func New(q Querier, opts ...Option) (*Store, error) {
	if q == nil {
		return nil, fmt.Errorf("pgxstore: nil querier")
	}
	s := &Store{q: q, table: auditlog.DefaultTable}
	for _, opt := range opts {
		opt(s)
	}
	table, err := ident.Table(s.table)
	if err != nil {
		return nil, fmt.Errorf("pgxstore: invalid audit table: %w", err)
	}
	s.stmt = fmt.Sprintf(`INSERT INTO %s (user_id, model_name, model_id, action, record, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7)
RETURNING id`, table)
	return s, nil
}

// Connect opens a pgx pool on dsn and wraps it in a Store. The caller owns
// the returned pool.
func Connect(ctx context.Context, dsn string, opts ...Option) (*Store, *pgxpool.Pool, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, nil, fmt.Errorf("pgxstore: open pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("pgxstore: ping: %w", err)
	}
	s, err := New(pool, opts...)
	if err != nil {
		pool.Close()
		return nil, nil, err
	}
	return s, pool, nil
}

func (s *Store) Insert(ctx context.Context, row *auditlog.Row) (auditlog.RowID, error) {
	var id int64
	err := s.q.QueryRow(ctx, s.stmt,
		row.UserID,
		row.ModelName,
		row.ModelID,
		string(row.Action),
		string(row.Record),
		row.CreatedAt,
		row.UpdatedAt,
	).Scan(&id)
	if err != nil {
		return "", fmt.Errorf("pgxstore: failed to insert into %s: %w", s.table, err)
	}
	return auditlog.RowID(strconv.FormatInt(id, 10)), nil
}
