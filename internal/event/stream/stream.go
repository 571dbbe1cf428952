// Package stream fans event changes out to Kafka. Publishing is optional:
// with no brokers configured every constructor returns nil and the rest of
// the application carries on without a stream.
package stream

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/twmb/franz-go/pkg/kadm"
	"github.com/twmb/franz-go/pkg/kerr"
	"github.com/twmb/franz-go/pkg/kgo"

	"eventtrail/internal/event/models"
)

// ChangeMessage is the wire form of one audit trail entry. Timestamps are
// reference-zone RFC 3339 strings; consumers localize on their own terms.
type ChangeMessage struct {
	EventID    uuid.UUID    `json:"event_id"`
	Field      models.Field `json:"field"`
	Previous   any          `json:"previous_value"`
	New        any          `json:"new_value"`
	OccurredAt string       `json:"occurred_at"`
	Actor      string       `json:"actor"`
	Version    int64        `json:"version"`
}

// Sink receives change messages. The Kafka publisher is the production Sink;
// tests substitute an in-memory one.
type Sink interface {
	Publish(ctx context.Context, msgs ...ChangeMessage) error
}

// Publisher writes change messages to a Kafka topic, keyed by event ID so a
// single event's history stays ordered within its partition.
type Publisher struct {
	client *kgo.Client
	topic  string
}

// NewPublisher connects to the given brokers. Returns nil when brokers is
// empty so callers can wire an unconfigured stream straight through.
func NewPublisher(brokers []string, topic string) (*Publisher, error) {
	if len(brokers) == 0 {
		return nil, nil
	}
	client, err := kgo.NewClient(
		kgo.SeedBrokers(brokers...),
		kgo.DefaultProduceTopic(topic),
		kgo.ProducerBatchCompression(kgo.SnappyCompression()),
	)
	if err != nil {
		return nil, fmt.Errorf("create kafka client: %w", err)
	}
	return &Publisher{client: client, topic: topic}, nil
}

// EnsureTopic creates the change topic if it does not already exist.
func (p *Publisher) EnsureTopic(ctx context.Context, partitions int32, replicas int16) error {
	if p == nil {
		return nil
	}
	admin := kadm.NewClient(p.client)
	resp, err := admin.CreateTopic(ctx, partitions, replicas, nil, p.topic)
	if err != nil {
		return fmt.Errorf("create topic %q: %w", p.topic, err)
	}
	if resp.Err != nil && !errors.Is(resp.Err, kerr.TopicAlreadyExists) {
		return fmt.Errorf("create topic %q: %w", p.topic, resp.Err)
	}
	return nil
}

// Publish produces one record per message and waits for broker acks.
func (p *Publisher) Publish(ctx context.Context, msgs ...ChangeMessage) error {
	if p == nil || len(msgs) == 0 {
		return nil
	}
	records := make([]*kgo.Record, 0, len(msgs))
	for _, msg := range msgs {
		value, err := json.Marshal(msg)
		if err != nil {
			return fmt.Errorf("encode change message: %w", err)
		}
		records = append(records, &kgo.Record{
			Key:   []byte(msg.EventID.String()),
			Value: value,
		})
	}
	if err := p.client.ProduceSync(ctx, records...).FirstErr(); err != nil {
		return fmt.Errorf("produce change messages: %w", err)
	}
	return nil
}

// Close flushes pending records and releases the client.
func (p *Publisher) Close() {
	if p == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = p.client.Flush(ctx)
	p.client.Close()
}

// Messages converts persisted change entries into wire messages.
func Messages(eventID uuid.UUID, version int64, entries []models.ChangeEntry) []ChangeMessage {
	msgs := make([]ChangeMessage, 0, len(entries))
	for _, entry := range entries {
		msgs = append(msgs, ChangeMessage{
			EventID:    eventID,
			Field:      entry.Field,
			Previous:   entry.Previous,
			New:        entry.New,
			OccurredAt: entry.OccurredAt.UTC().Format(time.RFC3339),
			Actor:      entry.Actor,
			Version:    version,
		})
	}
	return msgs
}
