// Package query caches API reads with per-resource staleness windows,
// prefix invalidation and de-duplication of concurrent fetches.
package query

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/go-ports/storefront/internal/metrics"
)

// Resource names. A cache key is the resource optionally followed by
// ":"-separated parts, e.g. "product:7".
const (
	Products   = "products"
	Product    = "product"
	Categories = "categories"
	Orders     = "orders"
	Order      = "order"
	Cart       = "cart"
)

// DefaultRetain bounds how long an entry is kept once written.
const DefaultRetain = 30 * time.Minute

// Key joins resource and the non-empty parts into a cache key.
func Key(resource string, parts ...any) string {
	var b strings.Builder
	b.WriteString(resource)
	for _, p := range parts {
		s := fmt.Sprint(p)
		if s == "" {
			continue
		}
		b.WriteByte(':')
		b.WriteString(s)
	}
	return b.String()
}

// resourceOf returns the resource part of key.
func resourceOf(key string) string {
	if i := strings.IndexByte(key, ':'); i >= 0 {
		return key[:i]
	}
	return key
}

// Options configures a Client.
type Options struct {
	Metrics metrics.Recorder
	Logger  *slog.Logger
	Retain  time.Duration
	Now     func() time.Time
}

// Client is a query cache over a Backend.
type Client struct {
	backend Backend
	group   singleflight.Group
	metrics metrics.Recorder
	logger  *slog.Logger
	retain  time.Duration
	now     func() time.Time

	// generation is bumped by every invalidation; fetches that started
	// before it are not written back.
	generation atomic.Uint64
}

// New creates a Client over backend.
func New(backend Backend, opts Options) *Client {
	c := &Client{
		backend: backend,
		metrics: opts.Metrics,
		logger:  opts.Logger,
		retain:  opts.Retain,
		now:     opts.Now,
	}
	if c.metrics == nil {
		c.metrics = metrics.Nop{}
	}
	if c.logger == nil {
		c.logger = slog.Default()
	}
	if c.retain <= 0 {
		c.retain = DefaultRetain
	}
	if c.now == nil {
		c.now = time.Now
	}
	return c
}

// Fetch returns the cached value under key when it is younger than staleFor,
// otherwise it calls fn, caches its result and returns it. Concurrent calls
// for the same key share one fn call unless an invalidation happened between
// them. Errors are never cached.
func Fetch[T any](ctx context.Context, c *Client, key string, staleFor time.Duration, fn func(context.Context) (T, error)) (T, error) {
	var zero T
	resource := resourceOf(key)

	if staleFor > 0 {
		if v, ok := load[T](ctx, c, key, staleFor); ok {
			c.metrics.RecordCacheHit(resource)
			return v, nil
		}
	}
	c.metrics.RecordCacheMiss(resource)

	// A fetch that started before an invalidation is never shared with one
	// that starts after it.
	gen := c.generation.Load()
	raw, err, _ := c.group.Do(fmt.Sprintf("%s#%d", key, gen), func() (any, error) {
		v, err := fn(ctx)
		if err != nil {
			return nil, err
		}
		data, err := json.Marshal(v)
		if err != nil {
			return nil, fmt.Errorf("query.Fetch %s: encode: %w", key, err)
		}
		if c.generation.Load() == gen {
			e := Entry{Data: data, FetchedAt: c.now()}
			if err := c.backend.Store(ctx, key, e, c.retain); err != nil {
				c.logger.Warn("query cache store failed", "key", key, "err", err)
			}
		}
		return data, nil
	})
	if err != nil {
		return zero, err
	}

	var out T
	if err := json.Unmarshal(raw.([]byte), &out); err != nil {
		return zero, fmt.Errorf("query.Fetch %s: decode: %w", key, err)
	}
	return out, nil
}

func load[T any](ctx context.Context, c *Client, key string, staleFor time.Duration) (T, bool) {
	var zero T
	e, ok, err := c.backend.Load(ctx, key)
	if err != nil {
		c.logger.Warn("query cache load failed", "key", key, "err", err)
		return zero, false
	}
	if !ok || c.now().Sub(e.FetchedAt) >= staleFor {
		return zero, false
	}
	var v T
	if err := json.Unmarshal(e.Data, &v); err != nil {
		c.logger.Warn("query cache entry unreadable", "key", key, "err", err)
		return zero, false
	}
	return v, true
}

// Invalidate drops every cached key of the given resources.
func (c *Client) Invalidate(ctx context.Context, resources ...string) error {
	c.generation.Add(1)
	for _, r := range resources {
		if r == "" {
			continue
		}
		if err := c.backend.Invalidate(ctx, r); err != nil {
			return fmt.Errorf("query.Invalidate %s: %w", r, err)
		}
	}
	return nil
}

// InvalidateAll drops every cached key.
func (c *Client) InvalidateAll(ctx context.Context) error {
	c.generation.Add(1)
	if err := c.backend.Invalidate(ctx, ""); err != nil {
		return fmt.Errorf("query.InvalidateAll: %w", err)
	}
	return nil
}

// Close releases the backend.
func (c *Client) Close() error {
	return c.backend.Close()
}
