package redissink_test

import (
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mickamy/auditlog"
	"github.com/mickamy/auditlog/redissink"
)

func TestDecode(t *testing.T) {
	t.Parallel()

	ts := time.Date(2026, 3, 4, 5, 6, 7, 8_000_000, time.UTC)
	msg := redis.XMessage{
		ID: "1700000000000-0",
		Values: map[string]any{
			"user_id":    "u-1",
			"model_name": "users",
			"model_id":   "9",
			"action":     "restore",
			"record":     `{"name":{"old":"ann","new":"Data restored."}}`,
			"created_at": "1772600767008",
			"updated_at": "1772600767008",
		},
	}

	row, err := redissink.Decode(msg)
	require.NoError(t, err)

	assert.Equal(t, auditlog.RowID("1700000000000-0"), row.ID)
	require.NotNil(t, row.UserID)
	assert.Equal(t, "u-1", *row.UserID)
	assert.Equal(t, "users", row.ModelName)
	assert.Equal(t, "9", row.ModelID)
	assert.Equal(t, auditlog.ActionRestore, row.Action)
	assert.Equal(t, ts, row.CreatedAt)
	assert.Equal(t, ts, row.UpdatedAt)

	d, err := row.Diff()
	require.NoError(t, err)
	assert.Equal(t, auditlog.Diff{"name": {Old: "ann", New: "Data restored."}}, d)
}

func TestDecode_Errors(t *testing.T) {
	t.Parallel()

	base := func() map[string]any {
		return map[string]any{
			"user_id":    "",
			"model_name": "users",
			"model_id":   "1",
			"action":     "create",
			"record":     "{}",
			"created_at": "0",
			"updated_at": "0",
		}
	}

	row, err := redissink.Decode(redis.XMessage{ID: "1-0", Values: base()})
	require.NoError(t, err)
	assert.Nil(t, row.UserID)

	bad := base()
	bad["action"] = "archive"
	_, err = redissink.Decode(redis.XMessage{ID: "1-0", Values: bad})
	require.ErrorIs(t, err, auditlog.ErrUnknownAction)

	bad = base()
	bad["created_at"] = "yesterday"
	_, err = redissink.Decode(redis.XMessage{ID: "1-0", Values: bad})
	require.Error(t, err)
}
