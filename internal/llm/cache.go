package llm

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"log/slog"
	"sync"
	"time"
)

// cacheEntry is a stored completion and when it stops being valid.
type cacheEntry struct {
	expiry     time.Time
	completion string
}

// completionCache provides thread-safe TTL caching of completions keyed by
// prompt hash.
type completionCache struct {
	entries map[string]cacheEntry
	now     func() time.Time
	ttl     time.Duration
	mu      sync.RWMutex
}

func newCompletionCache(ttl time.Duration) *completionCache {
	if ttl == 0 {
		ttl = 15 * time.Minute
	}
	return &completionCache{
		entries: make(map[string]cacheEntry),
		now:     time.Now,
		ttl:     ttl,
	}
}

func cacheKey(prompt string) string {
	sum := sha256.Sum256([]byte(prompt))
	return hex.EncodeToString(sum[:])
}

func (c *completionCache) get(key string) (string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	entry, exists := c.entries[key]
	if !exists || c.now().After(entry.expiry) {
		return "", false
	}
	return entry.completion, true
}

// set stores a completion and drops any expired entries.
func (c *completionCache) set(key, completion string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	for k, entry := range c.entries {
		if now.After(entry.expiry) {
			delete(c.entries, k)
		}
	}

	c.entries[key] = cacheEntry{
		completion: completion,
		expiry:     now.Add(c.ttl),
	}
}

func (c *completionCache) size() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// cachedClient answers repeated prompts from memory, so duplicate documents in
// a batch are only sent once. Failures are never cached.
type cachedClient struct {
	next   Client
	cache  *completionCache
	logger *slog.Logger
}

func newCachedClient(next Client, ttl time.Duration, logger *slog.Logger) *cachedClient {
	return &cachedClient{
		next:   next,
		cache:  newCompletionCache(ttl),
		logger: logger,
	}
}

func (c *cachedClient) Complete(ctx context.Context, prompt string) (string, error) {
	key := cacheKey(prompt)
	if completion, ok := c.cache.get(key); ok {
		c.logger.Debug("using cached completion", "key", key[:12])
		return completion, nil
	}

	completion, err := c.next.Complete(ctx, prompt)
	if err != nil {
		return "", err
	}

	c.cache.set(key, completion)
	return completion, nil
}
