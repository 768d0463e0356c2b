// Package kafka publishes record events to a Kafka topic.
package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/papercomputeco/yearbook/pkg/eventstream"
)

// DefaultTopic is used when Config.Topic is empty.
const DefaultTopic = "yearbook.records"

// Config holds configuration for the Kafka publisher.
type Config struct {
	// Brokers are the bootstrap broker addresses.
	Brokers []string

	// Topic receives every event.
	Topic string

	// WriteTimeout bounds a single write. Defaults to 10s.
	WriteTimeout time.Duration
}

// messageWriter is the part of kafka.Writer the publisher needs.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafkago.Message) error
	Close() error
}

// Publisher writes events keyed by collection, so events of one collection
// keep their order within a partition.
type Publisher struct {
	writer messageWriter
	topic  string
}

// NewPublisher creates a Kafka publisher. No connection is made until the
// first Publish.
func NewPublisher(c Config) (*Publisher, error) {
	if len(c.Brokers) == 0 {
		return nil, errors.New("kafka brokers are required")
	}

	topic := c.Topic
	if topic == "" {
		topic = DefaultTopic
	}

	timeout := c.WriteTimeout
	if timeout == 0 {
		timeout = 10 * time.Second
	}

	w := &kafkago.Writer{
		Addr:                   kafkago.TCP(c.Brokers...),
		Topic:                  topic,
		Balancer:               &kafkago.Hash{},
		RequiredAcks:           kafkago.RequireOne,
		WriteTimeout:           timeout,
		AllowAutoTopicCreation: true,
	}

	return &Publisher{writer: w, topic: topic}, nil
}

// Publish writes one event.
func (p *Publisher) Publish(ctx context.Context, event *eventstream.RecordEvent) error {
	if event == nil {
		return eventstream.ErrNilRecordEvent
	}

	value, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshaling event: %w", err)
	}

	msg := kafkago.Message{
		Key:   []byte(event.Collection),
		Value: value,
		Headers: []kafkago.Header{
			{Key: "event_type", Value: []byte(event.EventType)},
			{Key: "event_id", Value: []byte(event.EventID)},
		},
	}

	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("writing to %s: %w", p.topic, err)
	}
	return nil
}

// Close flushes pending writes and closes the writer.
func (p *Publisher) Close() error {
	return p.writer.Close()
}
