package status

import (
	"context"
	"time"

	"github.com/patrickmn/go-cache"
)

const cacheKey = "status"

// Cached remembers the last document produced by Source for ttl. Errors are
// not cached.
type Cached struct {
	Source Source

	c *cache.Cache
}

func NewCached(src Source, ttl time.Duration) *Cached {
	return &Cached{
		Source: src,
		c:      cache.New(ttl, 2*ttl),
	}
}

func (c *Cached) Status(ctx context.Context) (Status, error) {
	if v, ok := c.c.Get(cacheKey); ok {
		return v.(Status), nil
	}

	st, err := c.Source.Status(ctx)
	if err != nil {
		return st, err
	}
	c.c.Set(cacheKey, st, cache.DefaultExpiration)
	return st, nil
}

// Invalidate drops the cached document.
func (c *Cached) Invalidate() {
	c.c.Delete(cacheKey)
}
