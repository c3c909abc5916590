package rate

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Window is a fixed-window Redis counter. Each key gets its TTL on the first
// hit of a window and is rejected once the count passes Max.
type Window struct {
	redis  redis.UniversalClient
	Max    int
	Length time.Duration
}

// NewWindow creates a fixed-window counter backed by the given Redis client.
func NewWindow(redisClient redis.UniversalClient, max int, length time.Duration) *Window {
	return &Window{
		redis:  redisClient,
		Max:    max,
		Length: length,
	}
}

// Hit records one attempt against key and returns [ErrRateLimited] when the
// window budget is exhausted.
func (w *Window) Hit(ctx context.Context, key string) error {
	if w == nil || w.redis == nil {
		return nil
	}

	count, err := w.redis.Incr(ctx, key).Result()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	// Fixed-window semantics: set TTL only for the first hit in the window.
	if count == 1 {
		if err := w.redis.Expire(ctx, key, w.Length).Err(); err != nil {
			return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
		}
	}

	if count > int64(w.Max) {
		return ErrRateLimited
	}

	return nil
}

// Reset clears the given counters.
func (w *Window) Reset(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	if err := w.redis.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return nil
}
