package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
	"github.com/trogers1052/options-premium-tracker/internal/models"
)

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Producer handles publishing position events to Kafka
type Producer struct {
	writer messageWriter
	topic  string
	now    func() time.Time
}

// NewProducer creates a new Kafka producer
func NewProducer(brokers []string, topic string) *Producer {
	writer := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		BatchTimeout: 10 * time.Millisecond,
	}

	return &Producer{
		writer: writer,
		topic:  topic,
		now:    time.Now,
	}
}

// PublishPositionEvent publishes a position transition. Messages are keyed by owner
// so one trader's events stay ordered within a partition.
func (p *Producer) PublishPositionEvent(ctx context.Context, eventType string, position *models.Position) error {
	event := models.PositionEvent{
		EventID:    uuid.NewString(),
		EventType:  eventType,
		PositionID: position.ID,
		OwnerEmail: position.OwnerEmail,
		Symbol:     position.Symbol,
		Status:     position.Status,
		Timestamp:  p.now().UTC(),
	}
	return p.publish(ctx, position.OwnerEmail, event)
}

func (p *Producer) publish(ctx context.Context, key string, event models.PositionEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	msg := kafka.Message{
		Key:   []byte(key),
		Value: data,
	}

	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("failed to write message to kafka: %w", err)
	}

	return nil
}

// Close closes the Kafka producer
func (p *Producer) Close() error {
	return p.writer.Close()
}
