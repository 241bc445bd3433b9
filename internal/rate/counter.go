package rate

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrRedisUnavailable wraps any Redis transport failure.
var ErrRedisUnavailable = errors.New("redis unavailable")

// Counter tracks consecutive authentication failures per identifier inside
// a fixed window.
type Counter struct {
	redis  redis.UniversalClient
	window time.Duration
}

// New creates a failure [Counter] backed by the given Redis client.
func New(client redis.UniversalClient, window time.Duration) *Counter {
	return &Counter{
		redis:  client,
		window: window,
	}
}

func failureKey(identifier string) string {
	return "af:" + strings.ToLower(identifier)
}

// RecordFailure increments the identifier's failure counter and returns the
// count within the current window. The window starts at the first failure.
func (c *Counter) RecordFailure(ctx context.Context, identifier string) (int64, error) {
	key := failureKey(identifier)

	count, err := c.redis.Incr(ctx, key).Result()
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	if count == 1 {
		if err := c.redis.Expire(ctx, key, c.window).Err(); err != nil {
			return 0, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
		}
	}

	return count, nil
}

// Reset clears the identifier's failure counter.
func (c *Counter) Reset(ctx context.Context, identifier string) error {
	if err := c.redis.Del(ctx, failureKey(identifier)).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return nil
}
