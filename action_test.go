package auditlog_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mickamy/auditlog"
)

func TestParseAction(t *testing.T) {
	t.Parallel()

	tcs := []struct {
		in      string
		want    auditlog.Action
		wantErr bool
	}{
		{in: "create", want: auditlog.ActionCreate},
		{in: "UPDATE", want: auditlog.ActionUpdate},
		{in: " Delete ", want: auditlog.ActionDelete},
		{in: "restore", want: auditlog.ActionRestore},
		{in: "restored", wantErr: true},
		{in: "", wantErr: true},
	}
	for _, tc := range tcs {
		got, err := auditlog.ParseAction(tc.in)
		if tc.wantErr {
			require.ErrorIs(t, err, auditlog.ErrUnknownAction, tc.in)
			continue
		}
		require.NoError(t, err, tc.in)
		assert.Equal(t, tc.want, got)
	}

	for _, a := range auditlog.Actions {
		assert.True(t, a.Valid(), a.String())
	}
}

func TestActorFromContext(t *testing.T) {
	t.Parallel()

	_, ok := auditlog.ActorFromContext(context.Background())
	assert.False(t, ok)

	_, ok = auditlog.ActorFromContext(auditlog.WithActor(context.Background(), ""))
	assert.False(t, ok)

	id, ok := auditlog.ContextIdentity.CurrentActorID(auditlog.WithActor(context.Background(), "u-1"))
	assert.True(t, ok)
	assert.Equal(t, "u-1", id)
}

func TestPersistError(t *testing.T) {
	t.Parallel()

	cause := context.DeadlineExceeded
	err := &auditlog.PersistError{Model: "users", Action: auditlog.ActionDelete, Err: cause}
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Contains(t, err.Error(), "users")
	assert.Contains(t, err.Error(), "delete")
}
