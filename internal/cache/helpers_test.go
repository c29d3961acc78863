package cache

import (
	"time"

	"github.com/redis/go-redis/v9"
)

// newUnreachableClient points at a port nothing listens on
func newUnreachableClient() *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 100 * time.Millisecond,
		MaxRetries:  -1,
	})
}
