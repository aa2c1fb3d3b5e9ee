/**
 * @description
 * Session-scoped confirmation cache and per-account return-url preferences.
 */
package app

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// SessionCache remembers that a session's account already passed the
// payment gate, so repeated intercepts within one session skip the storage
// read. The cache is an optimization only: a miss or an unavailable backend
// never changes observable behavior. It also keeps the per-account
// return-url preference captured at signup.
type SessionCache interface {
	Confirmed(ctx context.Context, sessionID, accountID string) bool
	SetConfirmed(ctx context.Context, sessionID, accountID string)
	WantsURL(ctx context.Context, accountID string) string
	SetWantsURL(ctx context.Context, accountID, url string)
	ClearWantsURL(ctx context.Context, accountID string)
}

const sessionCacheTTL = 12 * time.Hour

// RedisSessionCache is the Redis-backed cache. Keys are scoped to one
// session and one account; nothing is shared across accounts.
type RedisSessionCache struct {
	client *redis.Client
	prefix string
}

// NewRedisSessionCache creates a cache on top of an established client.
func NewRedisSessionCache(client *redis.Client) *RedisSessionCache {
	return &RedisSessionCache{client: client, prefix: "walletgate"}
}

func (c *RedisSessionCache) confirmedKey(sessionID, accountID string) string {
	return fmt.Sprintf("%s:session:%s:confirmed:%s", c.prefix, sessionID, accountID)
}

func (c *RedisSessionCache) wantsURLKey(accountID string) string {
	return fmt.Sprintf("%s:wantsurl:%s", c.prefix, accountID)
}

func (c *RedisSessionCache) Confirmed(ctx context.Context, sessionID, accountID string) bool {
	if sessionID == "" || accountID == "" {
		return false
	}
	val, err := c.client.Get(ctx, c.confirmedKey(sessionID, accountID)).Result()
	return err == nil && val == "1"
}

func (c *RedisSessionCache) SetConfirmed(ctx context.Context, sessionID, accountID string) {
	if sessionID == "" || accountID == "" {
		return
	}
	c.client.Set(ctx, c.confirmedKey(sessionID, accountID), "1", sessionCacheTTL)
}

func (c *RedisSessionCache) WantsURL(ctx context.Context, accountID string) string {
	val, err := c.client.Get(ctx, c.wantsURLKey(accountID)).Result()
	if err != nil {
		return ""
	}
	return val
}

func (c *RedisSessionCache) SetWantsURL(ctx context.Context, accountID, url string) {
	if url == "" {
		return
	}
	c.client.Set(ctx, c.wantsURLKey(accountID), url, sessionCacheTTL)
}

func (c *RedisSessionCache) ClearWantsURL(ctx context.Context, accountID string) {
	c.client.Del(ctx, c.wantsURLKey(accountID))
}

// NoopSessionCache is used when Redis is not configured.
type NoopSessionCache struct{}

func (NoopSessionCache) Confirmed(ctx context.Context, sessionID, accountID string) bool { return false }
func (NoopSessionCache) SetConfirmed(ctx context.Context, sessionID, accountID string)   {}
func (NoopSessionCache) WantsURL(ctx context.Context, accountID string) string           { return "" }
func (NoopSessionCache) SetWantsURL(ctx context.Context, accountID, url string)          {}
func (NoopSessionCache) ClearWantsURL(ctx context.Context, accountID string)             {}
