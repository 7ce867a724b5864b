// Package throttle implements per-key cooldowns on top of Redis.
package throttle

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrInvalidWindow is returned when the cooldown window is not positive.
var ErrInvalidWindow = errors.New("throttle: window must be positive")

// Throttle reserves a key for a window of time.
type Throttle interface {
	// Acquire reserves key for window. When the key is already reserved it
	// returns false and the time left until it frees up.
	Acquire(ctx context.Context, key string, window time.Duration) (bool, time.Duration, error)
	// Release frees key before its window ends.
	Release(ctx context.Context, key string) error
}

// Cooldown is a Redis backed Throttle using SET NX with an expiry.
type Cooldown struct {
	client redis.UniversalClient
	prefix string
}

// New builds a Cooldown. Keys are stored under "cooldown:".
func New(client redis.UniversalClient) *Cooldown {
	return &Cooldown{
		client: client,
		prefix: "cooldown:",
	}
}

// Acquire implements Throttle.
func (c *Cooldown) Acquire(ctx context.Context, key string, window time.Duration) (bool, time.Duration, error) {
	if window <= 0 {
		return false, 0, ErrInvalidWindow
	}

	fk := c.prefix + key

	acquired, err := c.client.SetNX(ctx, fk, time.Now().Unix(), window).Result()
	if err != nil {
		return false, 0, err
	}
	if acquired {
		return true, 0, nil
	}

	ttl, err := c.client.PTTL(ctx, fk).Result()
	if err != nil {
		return false, 0, err
	}

	// -2: key expired between SETNX and PTTL. -1: key has no expiry.
	switch {
	case ttl == -2:
		return c.Acquire(ctx, key, window)
	case ttl < 0:
		if err := c.client.Expire(ctx, fk, window).Err(); err != nil {
			return false, 0, err
		}
		return false, window, nil
	}

	return false, ttl, nil
}

// Release implements Throttle.
func (c *Cooldown) Release(ctx context.Context, key string) error {
	return c.client.Del(ctx, c.prefix+key).Err()
}
