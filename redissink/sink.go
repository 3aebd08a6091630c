// Package redissink appends audit rows to a Redis stream.
package redissink

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/mickamy/auditlog"
)

// DefaultStream is the stream key rows are appended to.
const DefaultStream = "auditlog:rows"

// Sink appends each row to a Redis stream with XADD. The entry id Redis
// assigns becomes the row id.
type Sink struct {
	client redis.UniversalClient
	stream string
	maxLen int64
}

var _ auditlog.Store = (*Sink)(nil)

type Option func(*Sink)

func WithStream(key string) Option {
	return func(s *Sink) {
		if key != "" {
			s.stream = key
		}
	}
}

// WithMaxLen caps the stream length approximately. Zero keeps every entry.
func WithMaxLen(n int64) Option {
	return func(s *Sink) {
		s.maxLen = n
	}
}

func New(client redis.UniversalClient, opts ...Option) *Sink {
	s := &Sink{client: client, stream: DefaultStream}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Sink) Insert(ctx context.Context, row *auditlog.Row) (auditlog.RowID, error) {
	userID := ""
	if row.UserID != nil {
		userID = *row.UserID
	}
	values := map[string]any{
		"user_id":    userID,
		"model_name": row.ModelName,
		"model_id":   row.ModelID,
		"action":     string(row.Action),
		"record":     string(row.Record),
		"created_at": row.CreatedAt.UnixMilli(),
		"updated_at": row.UpdatedAt.UnixMilli(),
	}
	args := &redis.XAddArgs{
		Stream: s.stream,
		Values: values,
	}
	if s.maxLen > 0 {
		args.MaxLen = s.maxLen
		args.Approx = true
	}
	id, err := s.client.XAdd(ctx, args).Result()
	if err != nil {
		return "", fmt.Errorf("redissink: xadd %s: %w", s.stream, err)
	}
	return auditlog.RowID(id), nil
}

// Decode converts a stream message written by Insert back into a Row.
func Decode(msg redis.XMessage) (*auditlog.Row, error) {
	raw, err := json.Marshal(msg.Values)
	if err != nil {
		return nil, fmt.Errorf("redissink: encode message: %w", err)
	}
	var fields struct {
		UserID    string `json:"user_id"`
		ModelName string `json:"model_name"`
		ModelID   string `json:"model_id"`
		Action    string `json:"action"`
		Record    string `json:"record"`
		CreatedAt string `json:"created_at"`
		UpdatedAt string `json:"updated_at"`
	}
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, fmt.Errorf("redissink: decode message: %w", err)
	}
	action, err := auditlog.ParseAction(fields.Action)
	if err != nil {
		return nil, err
	}
	created, err := parseMillis(fields.CreatedAt)
	if err != nil {
		return nil, err
	}
	updated, err := parseMillis(fields.UpdatedAt)
	if err != nil {
		return nil, err
	}
	row := &auditlog.Row{
		ID:        auditlog.RowID(msg.ID),
		ModelName: fields.ModelName,
		ModelID:   fields.ModelID,
		Action:    action,
		Record:    json.RawMessage(fields.Record),
		CreatedAt: created,
		UpdatedAt: updated,
	}
	if fields.UserID != "" {
		uid := fields.UserID
		row.UserID = &uid
	}
	return row, nil
}
