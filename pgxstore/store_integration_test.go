//go:build integration

package pgxstore_test

import (
	"context"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mickamy/auditlog"
	"github.com/mickamy/auditlog/internal/testutil/containers"
	"github.com/mickamy/auditlog/pgxstore"
)

func TestStore_Postgres(t *testing.T) {
	pg := containers.NewPostgresContainer(t)
	ctx := context.Background()
	require.NoError(t, auditlog.Migrate(pg.DB))

	store, pool, err := pgxstore.Connect(ctx, pg.DSN)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	h, err := auditlog.New(auditlog.DefaultConfig(), store)
	require.NoError(t, err)

	row, err := h.Record(auditlog.WithActor(ctx, "5"), auditlog.Event{
		Action: auditlog.ActionUpdate,
		Entity: auditlog.EntityName("posts"),
		Old:    auditlog.Snapshot{"id": 3, "title": "a"},
		New:    auditlog.Snapshot{"title": "b"},
	})
	require.NoError(t, err)

	id, err := strconv.ParseInt(string(row.ID), 10, 64)
	require.NoError(t, err)

	var (
		userID *string
		action string
		record []byte
	)
	err = pool.QueryRow(ctx, `SELECT user_id, action, record FROM audit_logs WHERE id = $1`, id).
		Scan(&userID, &action, &record)
	require.NoError(t, err)
	require.NotNil(t, userID)
	assert.Equal(t, "5", *userID)
	assert.Equal(t, "update", action)
	assert.JSONEq(t, `{"title":{"old":"a","new":"b"}}`, string(record))
}
