// Package natssink publishes audit rows to NATS subjects.
package natssink

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"

	"github.com/mickamy/auditlog"
)

// DefaultSubjectPrefix is prepended to "<model>.<action>".
const DefaultSubjectPrefix = "auditlog"

// DefaultFlushTimeout bounds the wait for the server's acknowledgement when
// the caller's context has no deadline.
const DefaultFlushTimeout = 5 * time.Second

// Sink publishes each row as JSON to "<prefix>.<model>.<action>" and waits
// for the server to acknowledge it with a flush.
type Sink struct {
	conn         *nats.Conn
	prefix       string
	flushTimeout time.Duration
}

var _ auditlog.Store = (*Sink)(nil)

type Option func(*Sink)

func WithSubjectPrefix(p string) Option {
	return func(s *Sink) {
		if p != "" {
			s.prefix = p
		}
	}
}

// WithFlushTimeout overrides DefaultFlushTimeout.
func WithFlushTimeout(d time.Duration) Option {
	return func(s *Sink) {
		if d > 0 {
			s.flushTimeout = d
		}
	}
}

func New(conn *nats.Conn, opts ...Option) *Sink {
	s := &Sink{conn: conn, prefix: DefaultSubjectPrefix, flushTimeout: DefaultFlushTimeout}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Connect dials url and returns a Sink owning the connection.
func Connect(url string, opts ...Option) (*Sink, error) {
	nc, err := nats.Connect(url)
	if err != nil {
		return nil, fmt.Errorf("connecting to NATS at %s: %w", url, err)
	}
	return New(nc, opts...), nil
}

// Subject returns the subject a row for model and action is published to.
func (s *Sink) Subject(model string, action auditlog.Action) string {
	return s.prefix + "." + subjectToken(model) + "." + action.String()
}

func (s *Sink) Insert(ctx context.Context, row *auditlog.Row) (auditlog.RowID, error) {
	id := auditlog.RowID(uuid.NewString())
	out := *row
	out.ID = id
	data, err := json.Marshal(out)
	if err != nil {
		return "", fmt.Errorf("marshaling audit row: %w", err)
	}

	msg := nats.NewMsg(s.Subject(row.ModelName, row.Action))
	msg.Data = data
	msg.Header.Set(nats.MsgIdHdr, string(id))
	if err := s.conn.PublishMsg(msg); err != nil {
		return "", fmt.Errorf("publishing audit row: %w", err)
	}
	// FlushWithContext rejects contexts without a deadline.
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.flushTimeout)
		defer cancel()
	}
	if err := s.conn.FlushWithContext(ctx); err != nil {
		return "", fmt.Errorf("flushing audit row: %w", err)
	}
	return id, nil
}

func (s *Sink) Close() error {
	s.conn.Close()
	return nil
}

// subjectToken makes a model name safe to use as a single subject token.
func subjectToken(model string) string {
	r := strings.NewReplacer(".", "_", " ", "_", "*", "_", ">", "_", "\\", "_")
	t := r.Replace(strings.TrimSpace(model))
	if t == "" {
		return "_"
	}
	return t
}
