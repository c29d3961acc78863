package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/trogers1052/options-premium-tracker/internal/models"
)

// UsageInvalidator drops cached usage counts for a trader
type UsageInvalidator interface {
	Invalidate(ctx context.Context, ownerEmail string) error
}

type messageReader interface {
	ReadMessage(ctx context.Context) (kafka.Message, error)
	Close() error
	Config() kafka.ReaderConfig
}

// Consumer reads position events and invalidates the usage counts they change
type Consumer struct {
	reader messageReader
	cache  UsageInvalidator
}

// NewConsumer creates a new Kafka consumer for position events
func NewConsumer(brokers []string, topic, groupID string, cache UsageInvalidator) *Consumer {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:        brokers,
		Topic:          topic,
		GroupID:        groupID,
		MinBytes:       1,
		MaxBytes:       10e6, // 10MB
		MaxWait:        1 * time.Second,
		StartOffset:    kafka.LastOffset,
		CommitInterval: time.Second,
	})

	return &Consumer{
		reader: reader,
		cache:  cache,
	}
}

// Start begins consuming messages from Kafka
func (c *Consumer) Start(ctx context.Context) error {
	log.Printf("Starting Kafka consumer for topic: %s", c.reader.Config().Topic)

	for {
		select {
		case <-ctx.Done():
			log.Println("Kafka consumer shutting down...")
			return c.reader.Close()
		default:
			msg, err := c.reader.ReadMessage(ctx)
			if err != nil {
				if ctx.Err() != nil {
					return c.reader.Close()
				}
				log.Printf("Error reading message: %v", err)
				continue
			}

			if err := c.processMessage(ctx, msg); err != nil {
				log.Printf("Error processing message: %v", err)
			}
		}
	}
}

// processMessage handles a single Kafka message
func (c *Consumer) processMessage(ctx context.Context, msg kafka.Message) error {
	var event models.PositionEvent
	if err := json.Unmarshal(msg.Value, &event); err != nil {
		return fmt.Errorf("failed to unmarshal position event: %w", err)
	}

	// Edits and shares leave the open count and monthly creations unchanged
	switch event.EventType {
	case models.EventPositionOpened, models.EventPositionClosed, models.EventPositionRolled:
	default:
		return nil
	}

	if event.OwnerEmail == "" {
		return fmt.Errorf("event %s has no owner", event.EventID)
	}

	if err := c.cache.Invalidate(ctx, event.OwnerEmail); err != nil {
		return fmt.Errorf("failed to invalidate usage for %s: %w", event.OwnerEmail, err)
	}

	log.Printf("Invalidated usage counts for %s after %s of position %d",
		event.OwnerEmail, event.EventType, event.PositionID)
	return nil
}
