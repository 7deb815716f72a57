package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"civicpay/internal/core/ports"

	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"
)

// TokenCache implements ports.TokenSource. It caches the gateway
// access token in memory and refreshes it through singleflight, so a
// burst of concurrent callers at expiry triggers exactly one OAuth
// exchange.
type TokenCache struct {
	gateway ports.BankGateway
	skew    time.Duration
	log     zerolog.Logger

	mu        sync.RWMutex
	token     string
	expiresAt time.Time

	group singleflight.Group
}

// NewTokenCache creates a TokenCache. skew is subtracted from the
// reported expiry so a token is never handed out moments before it
// lapses.
func NewTokenCache(gateway ports.BankGateway, skew time.Duration, log zerolog.Logger) *TokenCache {
	return &TokenCache{
		gateway: gateway,
		skew:    skew,
		log:     log,
	}
}

// Token returns a valid access token, refreshing it when the cached
// one is missing or near expiry.
func (c *TokenCache) Token(ctx context.Context) (string, error) {
	c.mu.RLock()
	token, expiresAt := c.token, c.expiresAt
	c.mu.RUnlock()

	if token != "" && time.Now().Before(expiresAt.Add(-c.skew)) {
		return token, nil
	}

	v, err, _ := c.group.Do("token", func() (any, error) {
		// Another caller may have refreshed while we waited for the
		// flight slot.
		c.mu.RLock()
		token, expiresAt := c.token, c.expiresAt
		c.mu.RUnlock()
		if token != "" && time.Now().Before(expiresAt.Add(-c.skew)) {
			return token, nil
		}

		fresh, exp, err := c.gateway.RequestToken(ctx)
		if err != nil {
			return "", fmt.Errorf("refresh gateway token: %w", err)
		}

		c.mu.Lock()
		c.token, c.expiresAt = fresh, exp
		c.mu.Unlock()

		c.log.Debug().Time("expires_at", exp).Msg("gateway token refreshed")
		return fresh, nil
	})
	if err != nil {
		return "", err
	}
	return v.(string), nil
}

// Invalidate drops the cached token, forcing a refresh on the next
// call. Used when the gateway rejects a token before its expiry.
func (c *TokenCache) Invalidate() {
	c.mu.Lock()
	c.token, c.expiresAt = "", time.Time{}
	c.mu.Unlock()
}
