package credential

import (
	"context"
	"sync"
)

// TokenCache stores access tokens by key.
type TokenCache interface {
	Get(ctx context.Context, key string) (Token, bool, error)
	Set(ctx context.Context, key string, tok Token) error
	Delete(ctx context.Context, key string) error
}

// MemoryTokenCache is a process-local TokenCache.
type MemoryTokenCache struct {
	mu     sync.RWMutex
	tokens map[string]Token
}

// NewMemoryTokenCache creates an empty cache.
func NewMemoryTokenCache() *MemoryTokenCache {
	return &MemoryTokenCache{tokens: make(map[string]Token)}
}

func (c *MemoryTokenCache) Get(_ context.Context, key string) (Token, bool, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	tok, ok := c.tokens[key]
	return tok, ok, nil
}

func (c *MemoryTokenCache) Set(_ context.Context, key string, tok Token) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.tokens[key] = tok
	return nil
}

func (c *MemoryTokenCache) Delete(_ context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.tokens, key)
	return nil
}

var _ TokenCache = (*MemoryTokenCache)(nil)
