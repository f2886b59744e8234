package event

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/google/uuid"
	"github.com/petshop/erp/internal/domain/shared"
	"github.com/petshop/erp/internal/infrastructure/config"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// MessageWriter is the subset of *kafka.Writer the relay needs
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// RelayEnvelope is the JSON value written for every relayed event
type RelayEnvelope struct {
	EventID       uuid.UUID       `json:"event_id"`
	EventType     string          `json:"event_type"`
	TenantID      uuid.UUID       `json:"tenant_id"`
	AggregateType string          `json:"aggregate_type"`
	AggregateID   uuid.UUID       `json:"aggregate_id"`
	OccurredAt    time.Time       `json:"occurred_at"`
	Payload       json.RawMessage `json:"payload"`
}

// KafkaRelay forwards every domain event to a Kafka topic. Messages are keyed by
// aggregate so one aggregate's events stay ordered within a partition.
type KafkaRelay struct {
	writer     MessageWriter
	topic      string
	maxRetries uint
	newBackOff func() backoff.BackOff
	logger     *zap.Logger
}

// NewKafkaWriter builds a writer for cfg.Brokers and cfg.Topic
func NewKafkaWriter(cfg config.KafkaConfig) *kafka.Writer {
	return &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Topic:        cfg.Topic,
		Balancer:     &kafka.Hash{},
		WriteTimeout: cfg.WriteTimeout,
		RequiredAcks: kafka.RequireOne,
	}
}

// NewKafkaRelay creates a relay writing through writer
func NewKafkaRelay(writer MessageWriter, cfg config.KafkaConfig, logger *zap.Logger) *KafkaRelay {
	retries := cfg.MaxRetries
	if retries <= 0 {
		retries = 3
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &KafkaRelay{
		writer:     writer,
		topic:      cfg.Topic,
		maxRetries: uint(retries),
		newBackOff: func() backoff.BackOff { return backoff.NewExponentialBackOff() },
		logger:     logger,
	}
}

// Name implements NamedHandler
func (r *KafkaRelay) Name() string { return "kafka_relay" }

// EventTypes subscribes the relay to every event
func (r *KafkaRelay) EventTypes() []string { return []string{Wildcard} }

// Handle writes the event, retrying transient failures with exponential backoff.
// A failure after the last attempt is returned so the outbox entry is retried.
func (r *KafkaRelay) Handle(ctx context.Context, event shared.DomainEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal %s: %w", event.EventType(), err)
	}
	value, err := json.Marshal(RelayEnvelope{
		EventID:       event.EventID(),
		EventType:     event.EventType(),
		TenantID:      event.TenantID(),
		AggregateType: event.AggregateType(),
		AggregateID:   event.AggregateID(),
		OccurredAt:    event.OccurredAt(),
		Payload:       payload,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal envelope: %w", err)
	}

	msg := kafka.Message{
		Key:   []byte(event.AggregateID().String()),
		Value: value,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(event.EventType())},
			{Key: "tenant_id", Value: []byte(event.TenantID().String())},
		},
	}

	attempt := 0
	_, err = backoff.Retry(ctx, func() (struct{}, error) {
		attempt++
		err := r.writer.WriteMessages(ctx, msg)
		if err == nil {
			return struct{}{}, nil
		}
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return struct{}{}, backoff.Permanent(err)
		}
		r.logger.Warn("kafka write failed",
			zap.String("topic", r.topic),
			zap.String("event_id", event.EventID().String()),
			zap.Int("attempt", attempt),
			zap.Error(err),
		)
		return struct{}{}, err
	},
		backoff.WithBackOff(r.newBackOff()),
		backoff.WithMaxTries(r.maxRetries),
	)
	if err != nil {
		return fmt.Errorf("failed to relay %s to kafka: %w", event.EventType(), err)
	}
	return nil
}

// Close closes the underlying writer
func (r *KafkaRelay) Close() error {
	return r.writer.Close()
}

var _ shared.EventHandler = (*KafkaRelay)(nil)
