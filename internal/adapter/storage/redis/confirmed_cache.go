package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

// ConfirmedCache implements ports.ConfirmedCache: a short-lived record
// of recently confirmed payment references so verify calls answer from
// Redis instead of the database on the hot path.
type ConfirmedCache struct {
	client *goredis.Client
	prefix string
}

// NewConfirmedCache creates a Redis-backed confirmed-payment cache.
func NewConfirmedCache(client *goredis.Client) *ConfirmedCache {
	return &ConfirmedCache{
		client: client,
		prefix: "payment:confirmed:",
	}
}

// MarkConfirmed records the reference as confirmed for ttl.
func (c *ConfirmedCache) MarkConfirmed(ctx context.Context, reference string, ttl time.Duration) error {
	if err := c.client.Set(ctx, c.prefix+reference, "1", ttl).Err(); err != nil {
		return fmt.Errorf("redis mark confirmed: %w", err)
	}
	return nil
}

// IsConfirmed reports whether the reference was recently confirmed.
func (c *ConfirmedCache) IsConfirmed(ctx context.Context, reference string) (bool, error) {
	err := c.client.Get(ctx, c.prefix+reference).Err()
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return false, nil
		}
		return false, fmt.Errorf("redis check confirmed: %w", err)
	}
	return true, nil
}
