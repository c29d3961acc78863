// Package cache keeps per-trader usage counts in Redis in front of the position store.
package cache

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/trogers1052/options-premium-tracker/internal/usage"
)

// DefaultTTL bounds how long a count may lag behind the store when an invalidation is lost
const DefaultTTL = 5 * time.Minute

const openField = "open"

// UsageCounter caches usage.Counter results in one Redis hash per trader
type UsageCounter struct {
	client redis.Cmdable
	next   usage.Counter
	ttl    time.Duration
	logger *slog.Logger
}

// NewUsageCounter wraps next with a Redis cache
func NewUsageCounter(client redis.Cmdable, next usage.Counter, ttl time.Duration, logger *slog.Logger) *UsageCounter {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &UsageCounter{
		client: client,
		next:   next,
		ttl:    ttl,
		logger: logger.With("component", "usage_cache"),
	}
}

func usageKey(ownerEmail string) string {
	return "usage:" + ownerEmail
}

func createdField(since time.Time) string {
	return "created:" + strconv.FormatInt(since.UTC().Unix(), 10)
}

// CountOpenPositions implements usage.Counter
func (c *UsageCounter) CountOpenPositions(ctx context.Context, ownerEmail string) (int, error) {
	return c.cached(ctx, ownerEmail, openField, func() (int, error) {
		return c.next.CountOpenPositions(ctx, ownerEmail)
	})
}

// CountPositionsCreatedSince implements usage.Counter
func (c *UsageCounter) CountPositionsCreatedSince(ctx context.Context, ownerEmail string, since time.Time) (int, error) {
	return c.cached(ctx, ownerEmail, createdField(since), func() (int, error) {
		return c.next.CountPositionsCreatedSince(ctx, ownerEmail, since)
	})
}

// cached serves field from Redis, loading and storing it on a miss.
// Redis errors degrade to reading the store directly.
func (c *UsageCounter) cached(ctx context.Context, ownerEmail, field string, load func() (int, error)) (int, error) {
	key := usageKey(ownerEmail)

	count, err := c.client.HGet(ctx, key, field).Int()
	if err == nil {
		return count, nil
	}
	if !errors.Is(err, redis.Nil) {
		c.logger.Warn("usage cache read failed", "key", key, "field", field, "err", err)
	}

	count, err = load()
	if err != nil {
		return 0, err
	}

	pipe := c.client.TxPipeline()
	pipe.HSet(ctx, key, field, count)
	pipe.Expire(ctx, key, c.ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		c.logger.Warn("usage cache write failed", "key", key, "field", field, "err", err)
	}
	return count, nil
}

// Invalidate drops every cached count of ownerEmail
func (c *UsageCounter) Invalidate(ctx context.Context, ownerEmail string) error {
	if err := c.client.Del(ctx, usageKey(ownerEmail)).Err(); err != nil {
		return fmt.Errorf("failed to invalidate usage for %s: %w", ownerEmail, err)
	}
	return nil
}

// NewClient connects to Redis and verifies the connection
func NewClient(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to redis at %s: %w", addr, err)
	}
	return client, nil
}
