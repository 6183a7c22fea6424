package credential

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const defaultRedisKeyPrefix = "receipts:credential:"

// RedisTokenCache shares tokens between processes.
// Entries expire with the token itself.
type RedisTokenCache struct {
	client    redis.UniversalClient
	keyPrefix string
	clock     func() time.Time
}

// RedisConfig holds Redis connection settings.
type RedisConfig struct {
	Addr      string
	Password  string
	DB        int
	KeyPrefix string
}

// NewRedisTokenCache connects to Redis and verifies the connection.
func NewRedisTokenCache(cfg RedisConfig) (*RedisTokenCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     10,
		MinIdleConns: 1,
		MaxRetries:   3,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return NewRedisTokenCacheWithClient(client, cfg.KeyPrefix), nil
}

// NewRedisTokenCacheWithClient wraps an existing client.
func NewRedisTokenCacheWithClient(client redis.UniversalClient, keyPrefix string) *RedisTokenCache {
	if keyPrefix == "" {
		keyPrefix = defaultRedisKeyPrefix
	}
	return &RedisTokenCache{client: client, keyPrefix: keyPrefix, clock: time.Now}
}

func (c *RedisTokenCache) Get(ctx context.Context, key string) (Token, bool, error) {
	raw, err := c.client.Get(ctx, c.keyPrefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return Token{}, false, nil
	}
	if err != nil {
		return Token{}, false, fmt.Errorf("failed to read token: %w", err)
	}

	var tok Token
	if err := json.Unmarshal(raw, &tok); err != nil {
		return Token{}, false, fmt.Errorf("failed to decode token: %w", err)
	}
	return tok, true, nil
}

// Set stores tok until its expiry. Tokens already expired are not stored.
func (c *RedisTokenCache) Set(ctx context.Context, key string, tok Token) error {
	ttl := tok.Expiry.Sub(c.clock())
	if ttl <= 0 {
		return nil
	}

	raw, err := json.Marshal(tok)
	if err != nil {
		return fmt.Errorf("failed to encode token: %w", err)
	}
	if err := c.client.Set(ctx, c.keyPrefix+key, raw, ttl).Err(); err != nil {
		return fmt.Errorf("failed to store token: %w", err)
	}
	return nil
}

func (c *RedisTokenCache) Delete(ctx context.Context, key string) error {
	if err := c.client.Del(ctx, c.keyPrefix+key).Err(); err != nil {
		return fmt.Errorf("failed to delete token: %w", err)
	}
	return nil
}

// Close closes the underlying client.
func (c *RedisTokenCache) Close() error {
	return c.client.Close()
}

var _ TokenCache = (*RedisTokenCache)(nil)
