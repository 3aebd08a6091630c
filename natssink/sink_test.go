package natssink_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	natsserver "github.com/nats-io/nats-server/v2/server"
	"github.com/nats-io/nats.go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mickamy/auditlog"
	"github.com/mickamy/auditlog/natssink"
)

func startTestNATS(t *testing.T) string {
	t.Helper()
	opts := &natsserver.Options{Host: "127.0.0.1", Port: -1}
	srv, err := natsserver.NewServer(opts)
	if err != nil {
		t.Fatalf("starting embedded NATS: %v", err)
	}
	srv.Start()
	t.Cleanup(srv.Shutdown)
	if !srv.ReadyForConnections(5 * time.Second) {
		t.Fatal("embedded NATS not ready")
	}
	return srv.ClientURL()
}

func TestSink_Insert(t *testing.T) {
	url := startTestNATS(t)

	sink, err := natssink.Connect(url, natssink.WithSubjectPrefix("audit"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = sink.Close() })

	sub, err := nats.Connect(url)
	require.NoError(t, err)
	t.Cleanup(sub.Close)

	msgs := make(chan *nats.Msg, 4)
	s, err := sub.ChanSubscribe("audit.>", msgs)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Unsubscribe() })
	require.NoError(t, sub.Flush())

	h, err := auditlog.New(auditlog.DefaultConfig(), sink)
	require.NoError(t, err)

	row, err := h.Record(auditlog.WithActor(context.Background(), "u-1"), auditlog.Event{
		Action: auditlog.ActionCreate,
		Entity: auditlog.EntityName("users"),
		New:    auditlog.Snapshot{"id": 1, "name": "ann"},
	})
	require.NoError(t, err)
	require.NotEmpty(t, row.ID)

	select {
	case msg := <-msgs:
		assert.Equal(t, "audit.users.create", msg.Subject)
		assert.Equal(t, string(row.ID), msg.Header.Get(nats.MsgIdHdr))

		var got auditlog.Row
		require.NoError(t, json.Unmarshal(msg.Data, &got))
		assert.Equal(t, row.ID, got.ID)
		require.NotNil(t, got.UserID)
		assert.Equal(t, "u-1", *got.UserID)
		assert.Equal(t, "users", got.ModelName)
		assert.Equal(t, "1", got.ModelID)
		assert.Equal(t, auditlog.ActionCreate, got.Action)
		assert.JSONEq(t, `{"id":{"old":null,"new":1},"name":{"old":null,"new":"ann"}}`, string(got.Record))
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for audit row")
	}
}

func TestSink_Insert_ContextWithoutDeadline(t *testing.T) {
	url := startTestNATS(t)

	sink, err := natssink.Connect(url, natssink.WithFlushTimeout(time.Second))
	require.NoError(t, err)
	t.Cleanup(func() { _ = sink.Close() })

	row := &auditlog.Row{ModelName: "users", ModelID: "1", Action: auditlog.ActionCreate, Record: []byte(`{}`)}
	id, err := sink.Insert(context.Background(), row)
	require.NoError(t, err)
	assert.NotEmpty(t, id)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	_, err = sink.Insert(ctx, row)
	require.NoError(t, err)
}

func TestSink_Subject(t *testing.T) {
	t.Parallel()

	sink := natssink.New(nil)
	tcs := []struct {
		model string
		want  string
	}{
		{model: "users", want: "auditlog.users.delete"},
		{model: "public.users", want: "auditlog.public_users.delete"},
		{model: "a b*>", want: "auditlog.a_b__.delete"},
		{model: "", want: "auditlog._.delete"},
	}
	for _, tc := range tcs {
		assert.Equal(t, tc.want, sink.Subject(tc.model, auditlog.ActionDelete))
	}
}

func TestSink_InsertAfterClose(t *testing.T) {
	url := startTestNATS(t)

	sink, err := natssink.Connect(url)
	require.NoError(t, err)
	require.NoError(t, sink.Close())

	_, err = sink.Insert(context.Background(), &auditlog.Row{ModelName: "users", Action: auditlog.ActionCreate})
	require.Error(t, err)
}

func TestConnect_Unreachable(t *testing.T) {
	t.Parallel()

	_, err := natssink.Connect("nats://127.0.0.1:1")
	require.Error(t, err)
}
