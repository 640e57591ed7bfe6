package assistant

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"

	"parchi/internal/cache"
	"parchi/internal/core"
)

// CachedParser remembers successful parses of identical text for the rest of
// the day. Relative dates in the text resolve differently tomorrow.
type CachedParser struct {
	next  Parser
	cache *cache.LRUCache[core.Draft]
	now   func() time.Time
}

func NewCachedParser(next Parser, size int, ttl time.Duration) *CachedParser {
	return &CachedParser{next: next, cache: cache.NewLRUCache[core.Draft](size, ttl), now: time.Now}
}

func (c *CachedParser) Parse(ctx context.Context, text string) (core.Draft, error) {
	key := cacheKey(core.DateOf(c.now()), text)
	if d, ok := c.cache.Get(key); ok {
		return d, nil
	}
	d, err := c.next.Parse(ctx, text)
	if err != nil {
		return core.Draft{}, err
	}
	c.cache.Set(key, d)
	return d, nil
}

// Cache exposes the underlying cache for cleanup registration and stats.
func (c *CachedParser) Cache() *cache.LRUCache[core.Draft] {
	return c.cache
}

func cacheKey(day core.Date, text string) string {
	sum := sha256.Sum256([]byte(day.String() + "\x00" + strings.Join(strings.Fields(strings.ToLower(text)), " ")))
	return hex.EncodeToString(sum[:])
}
