package events

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/angelmondragon/store-manager/pkg/config"
	"github.com/segmentio/kafka-go"
)

// Publisher emits order events.
type Publisher interface {
	PublishOrderEvent(ctx context.Context, eventType EventType, event OrderEvent) error
	Close() error
}

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaPublisher writes order events to a single Kafka topic keyed by order id.
type KafkaPublisher struct {
	writer messageWriter
	now    func() time.Time
}

// NewKafkaPublisher builds a publisher over a kafka-go writer.
func NewKafkaPublisher(cfg config.KafkaConfig) (*KafkaPublisher, error) {
	if !cfg.Enabled() {
		return nil, fmt.Errorf("kafka brokers are required")
	}
	if cfg.OrdersTopic == "" {
		return nil, fmt.Errorf("kafka orders topic is required")
	}
	writer := &kafka.Writer{
		Addr:                   kafka.TCP(cfg.Brokers...),
		Topic:                  cfg.OrdersTopic,
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireAll,
		WriteTimeout:           cfg.WriteTimeout,
		AllowAutoTopicCreation: true,
	}
	return newKafkaPublisher(writer), nil
}

func newKafkaPublisher(writer messageWriter) *KafkaPublisher {
	return &KafkaPublisher{writer: writer, now: time.Now}
}

// PublishOrderEvent wraps event in an envelope and writes it synchronously.
func (p *KafkaPublisher) PublishOrderEvent(ctx context.Context, eventType EventType, event OrderEvent) error {
	envelope, err := NewEnvelope(eventType, event, p.now())
	if err != nil {
		return fmt.Errorf("encode %s payload: %w", eventType, err)
	}
	value, err := json.Marshal(envelope)
	if err != nil {
		return fmt.Errorf("encode %s envelope: %w", eventType, err)
	}
	msg := kafka.Message{
		Key:   []byte(strconv.FormatInt(event.OrderID, 10)),
		Value: value,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(eventType)},
			{Key: "event_id", Value: []byte(envelope.EventID)},
		},
		Time: envelope.OccurredAt,
	}
	injectTraceContext(ctx, &msg)
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("publish %s: %w", eventType, err)
	}
	return nil
}

// Close flushes and closes the writer.
func (p *KafkaPublisher) Close() error {
	if p == nil || p.writer == nil {
		return nil
	}
	return p.writer.Close()
}

// Noop discards events; used when no brokers are configured.
type Noop struct{}

func (Noop) PublishOrderEvent(context.Context, EventType, OrderEvent) error { return nil }

func (Noop) Close() error { return nil }
