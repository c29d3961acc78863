package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/trogers1052/options-premium-tracker/internal/models"
)

type mockInvalidator struct {
	mu     sync.Mutex
	owners []string
	err    error
	called chan struct{}
}

func (m *mockInvalidator) Invalidate(ctx context.Context, ownerEmail string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.owners = append(m.owners, ownerEmail)
	if m.called != nil {
		select {
		case m.called <- struct{}{}:
		default:
		}
	}
	return m.err
}

func (m *mockInvalidator) Owners() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.owners...)
}

type mockReader struct {
	cfg  kafka.ReaderConfig
	msgs chan kafka.Message

	mu         sync.Mutex
	closeCalls int
}

func newMockReader(topic string, buffer int) *mockReader {
	return &mockReader{
		cfg:  kafka.ReaderConfig{Topic: topic},
		msgs: make(chan kafka.Message, buffer),
	}
}

func (r *mockReader) ReadMessage(ctx context.Context) (kafka.Message, error) {
	select {
	case msg := <-r.msgs:
		return msg, nil
	case <-ctx.Done():
		return kafka.Message{}, ctx.Err()
	}
}

func (r *mockReader) Close() error {
	r.mu.Lock()
	r.closeCalls++
	r.mu.Unlock()
	return nil
}

func (r *mockReader) CloseCalls() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.closeCalls
}

func (r *mockReader) Config() kafka.ReaderConfig {
	return r.cfg
}

func eventMessage(t *testing.T, eventType, owner string) kafka.Message {
	t.Helper()
	payload, err := json.Marshal(models.PositionEvent{
		EventID:    "evt-1",
		EventType:  eventType,
		PositionID: 12,
		OwnerEmail: owner,
		Symbol:     "AAPL",
		Timestamp:  time.Now(),
	})
	require.NoError(t, err)
	return kafka.Message{Key: []byte(owner), Value: payload}
}

func TestConsumer_processMessage(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name       string
		eventType  string
		invalidate bool
	}{
		{"opened", models.EventPositionOpened, true},
		{"closed", models.EventPositionClosed, true},
		{"rolled", models.EventPositionRolled, true},
		{"edited", models.EventPositionEdited, false},
		{"shared", models.EventPositionShared, false},
		{"unknown", "SOMETHING_ELSE", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cache := &mockInvalidator{}
			consumer := &Consumer{cache: cache}

			err := consumer.processMessage(ctx, eventMessage(t, tt.eventType, "trader@example.com"))
			require.NoError(t, err)
			if tt.invalidate {
				assert.Equal(t, []string{"trader@example.com"}, cache.Owners())
			} else {
				assert.Empty(t, cache.Owners())
			}
		})
	}
}

func TestConsumer_processMessage_errors(t *testing.T) {
	ctx := context.Background()

	t.Run("malformed payload", func(t *testing.T) {
		consumer := &Consumer{cache: &mockInvalidator{}}
		err := consumer.processMessage(ctx, kafka.Message{Value: []byte("{not json")})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to unmarshal")
	})

	t.Run("missing owner", func(t *testing.T) {
		cache := &mockInvalidator{}
		consumer := &Consumer{cache: cache}
		err := consumer.processMessage(ctx, eventMessage(t, models.EventPositionOpened, ""))
		require.Error(t, err)
		assert.Empty(t, cache.Owners())
	})

	t.Run("cache failure", func(t *testing.T) {
		consumer := &Consumer{cache: &mockInvalidator{err: errors.New("redis down")}}
		err := consumer.processMessage(ctx, eventMessage(t, models.EventPositionClosed, "trader@example.com"))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to invalidate usage")
	})
}

func TestConsumer_Start_consumesAndProcessesMessages(t *testing.T) {
	cache := &mockInvalidator{called: make(chan struct{}, 1)}
	reader := newMockReader("position-events", 2)
	consumer := &Consumer{reader: reader, cache: cache}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan error, 1)
	go func() {
		done <- consumer.Start(ctx)
	}()

	reader.msgs <- kafka.Message{Value: []byte("garbage")}
	reader.msgs <- eventMessage(t, models.EventPositionOpened, "trader@example.com")

	select {
	case <-cache.called:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for position event to be processed")
	}

	cancel()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for consumer to shut down")
	}

	assert.Equal(t, []string{"trader@example.com"}, cache.Owners())
	assert.Equal(t, 1, reader.CloseCalls())
}
