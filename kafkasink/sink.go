// Package kafkasink produces audit rows to a Kafka topic with franz-go.
package kafkasink

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/google/uuid"
	"github.com/twmb/franz-go/pkg/kgo"

	"github.com/mickamy/auditlog"
)

// DefaultTopic receives every row unless overridden.
const DefaultTopic = "auditlog.rows"

// Producer is the subset of *kgo.Client the sink needs.
type Producer interface {
	ProduceSync(ctx context.Context, rs ...*kgo.Record) kgo.ProduceResults
}

// Sink produces each row synchronously, keyed by "<model>:<model_id>" so all
// rows of one entity land on the same partition. The row id is
// "<partition>:<offset>".
type Sink struct {
	p     Producer
	topic string
}

var _ auditlog.Store = (*Sink)(nil)

type Option func(*Sink)

func WithTopic(topic string) Option {
	return func(s *Sink) {
		if topic != "" {
			s.topic = topic
		}
	}
}

func New(p Producer, opts ...Option) *Sink {
	s := &Sink{p: p, topic: DefaultTopic}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Dial creates a franz-go client for the given brokers.
func Dial(brokers []string, extra ...kgo.Opt) (*kgo.Client, error) {
	opts := append([]kgo.Opt{
		kgo.SeedBrokers(brokers...),
		kgo.AllowAutoTopicCreation(),
	}, extra...)
	cl, err := kgo.NewClient(opts...)
	if err != nil {
		return nil, fmt.Errorf("kafkasink: new client: %w", err)
	}
	return cl, nil
}

func (s *Sink) Insert(ctx context.Context, row *auditlog.Row) (auditlog.RowID, error) {
	value, err := json.Marshal(row)
	if err != nil {
		return "", fmt.Errorf("kafkasink: marshal row: %w", err)
	}
	rec := &kgo.Record{
		Topic: s.topic,
		Key:   []byte(row.ModelName + ":" + row.ModelID),
		Value: value,
		Headers: []kgo.RecordHeader{
			{Key: "action", Value: []byte(row.Action)},
			{Key: "message_id", Value: []byte(uuid.NewString())},
		},
	}
	out, err := s.p.ProduceSync(ctx, rec).First()
	if err != nil {
		return "", fmt.Errorf("kafkasink: produce to %s: %w", s.topic, err)
	}
	return auditlog.RowID(strconv.FormatInt(int64(out.Partition), 10) + ":" + strconv.FormatInt(out.Offset, 10)), nil
}
