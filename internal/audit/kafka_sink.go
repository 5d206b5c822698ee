package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"warehouse-backend/internal/observability"

	otelkafka "github.com/Trendyol/otel-kafka-konsumer"
	"github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/propagation"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"
)

// MessageProducer is the part of the instrumented kafka writer the sink needs.
type MessageProducer interface {
	WriteMessage(ctx context.Context, msg kafka.Message) error
	Close() error
}

// KafkaSink publishes every event to the audit topic, keyed by entity so one entity's
// events stay ordered within a partition.
type KafkaSink struct {
	producer MessageProducer
}

type message struct {
	EventID     string          `json:"event_id"`
	At          string          `json:"at"`
	UserID      uint            `json:"user_id"`
	UserName    string          `json:"user_name"`
	EntityType  string          `json:"entity_type"`
	EntityID    uint            `json:"entity_id"`
	EntityName  string          `json:"entity_name"`
	Action      string          `json:"action"`
	Description string          `json:"description"`
	Changes     json.RawMessage `json:"changes"`
}

func NewKafkaSink(brokers []string, topic string, tp trace.TracerProvider) (*KafkaSink, error) {
	base := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		BatchTimeout: 50 * time.Millisecond,
		BatchSize:    100,
		Async:        true,
	}
	writer, err := otelkafka.NewWriter(base,
		otelkafka.WithTracerProvider(tp),
		otelkafka.WithPropagator(propagation.TraceContext{}),
		otelkafka.WithAttributes([]attribute.KeyValue{
			semconv.MessagingDestinationNameKey.String(topic),
			attribute.String("messaging.kafka.client_id", observability.ServiceName),
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka audit writer: %w", err)
	}
	return &KafkaSink{producer: writer}, nil
}

func newKafkaSinkWithProducer(p MessageProducer) *KafkaSink {
	return &KafkaSink{producer: p}
}

func (s *KafkaSink) Write(ctx context.Context, e Event) error {
	body, err := json.Marshal(message{
		EventID:     e.ID,
		At:          e.At.UTC().Format(time.RFC3339Nano),
		UserID:      e.Actor.ID,
		UserName:    e.Actor.Name,
		EntityType:  e.EntityType,
		EntityID:    e.EntityID,
		EntityName:  e.EntityName,
		Action:      string(e.Action),
		Description: e.Description,
		Changes:     json.RawMessage(e.Changes()),
	})
	if err != nil {
		return err
	}
	return s.producer.WriteMessage(ctx, kafka.Message{
		Key:   []byte(fmt.Sprintf("%s:%d", e.EntityType, e.EntityID)),
		Value: body,
		Headers: []kafka.Header{
			{Key: "event_id", Value: []byte(e.ID)},
			{Key: "action", Value: []byte(e.Action)},
		},
	})
}

func (s *KafkaSink) Close() error {
	return s.producer.Close()
}
