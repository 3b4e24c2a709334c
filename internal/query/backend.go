package query

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/go-ports/storefront/internal/config"
)

// Backend identifiers accepted in cache.backend.
const (
	BackendMemory = "memory"
	BackendRedis  = "redis"
)

// Entry is one cached query result.
type Entry struct {
	Data      json.RawMessage `json:"data"`
	FetchedAt time.Time       `json:"fetched_at"`
}

// Backend stores cached query results.
type Backend interface {
	Load(ctx context.Context, key string) (Entry, bool, error)
	Store(ctx context.Context, key string, e Entry, ttl time.Duration) error
	// Invalidate drops every key of resource. An empty resource drops all keys.
	Invalidate(ctx context.Context, resource string) error
	Close() error
}

// NewBackend creates the backend selected by cfg.
func NewBackend(ctx context.Context, cfg config.CacheConfig) (Backend, error) {
	switch cfg.Backend {
	case "", BackendMemory:
		return NewMemory(), nil
	case BackendRedis:
		return NewRedis(ctx, cfg.Redis)
	default:
		return nil, fmt.Errorf("query.NewBackend: unsupported cache backend: %s", cfg.Backend)
	}
}

// matches reports whether key belongs to resource.
func matches(key, resource string) bool {
	return resource == "" || key == resource || strings.HasPrefix(key, resource+":")
}

// ---------------------------------------------------------------------------
// memory
// ---------------------------------------------------------------------------

type memoryEntry struct {
	entry     Entry
	expiresAt time.Time
}

// Memory is an in-process Backend.
type Memory struct {
	mu      sync.Mutex
	entries map[string]memoryEntry
	now     func() time.Time
}

// NewMemory creates an empty in-process backend.
func NewMemory() *Memory {
	return &Memory{entries: make(map[string]memoryEntry), now: time.Now}
}

func (m *Memory) Load(_ context.Context, key string) (Entry, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.entries[key]
	if !ok {
		return Entry{}, false, nil
	}
	if !e.expiresAt.IsZero() && m.now().After(e.expiresAt) {
		delete(m.entries, key)
		return Entry{}, false, nil
	}
	return e.entry, true, nil
}

func (m *Memory) Store(_ context.Context, key string, e Entry, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	me := memoryEntry{entry: e}
	if ttl > 0 {
		me.expiresAt = m.now().Add(ttl)
	}
	m.entries[key] = me
	return nil
}

func (m *Memory) Invalidate(_ context.Context, resource string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for key := range m.entries {
		if matches(key, resource) {
			delete(m.entries, key)
		}
	}
	return nil
}

// Keys returns the cached keys in sorted order.
func (m *Memory) Keys() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	keys := make([]string, 0, len(m.entries))
	for k := range m.entries {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func (m *Memory) Close() error { return nil }
