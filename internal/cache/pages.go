package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

const pageKeyPrefix = "page:"

// DefaultPageTTL is the lifetime of a cached page.
const DefaultPageTTL = 20 * time.Second

// opTimeout bounds each cache read or write so an unreachable store only adds this much latency.
const opTimeout = 100 * time.Millisecond

// Page is a stored HTTP response.
type Page struct {
	Status      int    `json:"status"`
	ContentType string `json:"content_type"`
	Body        []byte `json:"body"`
}

// PageCache stores whole responses by URL. Entries expire after the TTL and are
// never invalidated by writes.
type PageCache struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewPageCache returns a PageCache over rdb. A nil rdb yields a cache that never hits.
func NewPageCache(rdb *redis.Client, ttl time.Duration) *PageCache {
	if ttl <= 0 {
		ttl = DefaultPageTTL
	}
	return &PageCache{rdb: rdb, ttl: ttl}
}

// PageKey returns the redis key for a request URL (path plus query string).
func PageKey(url string) string {
	return pageKeyPrefix + url
}

// TTL returns the configured entry lifetime.
func (p *PageCache) TTL() time.Duration {
	return p.ttl
}

// Enabled reports whether a backing store is configured.
func (p *PageCache) Enabled() bool {
	return p != nil && p.rdb != nil
}

// Get returns the page stored for url. A miss returns (nil, nil).
func (p *PageCache) Get(ctx context.Context, url string) (*Page, error) {
	if !p.Enabled() {
		return nil, nil
	}
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()
	raw, err := p.rdb.Get(ctx, PageKey(url)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var page Page
	if err := json.Unmarshal(raw, &page); err != nil {
		return nil, err
	}
	return &page, nil
}

// Set stores page for url with the cache TTL.
func (p *PageCache) Set(ctx context.Context, url string, page *Page) error {
	if !p.Enabled() {
		return nil
	}
	raw, err := json.Marshal(page)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()
	return p.rdb.Set(ctx, PageKey(url), raw, p.ttl).Err()
}
