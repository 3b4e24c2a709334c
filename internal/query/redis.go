package query

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/go-ports/storefront/internal/config"
)

// Redis is a Backend shared across processes through a redis server.
type Redis struct {
	client *redis.Client
	prefix string
}

// NewRedis connects to the server in cfg and verifies it with a PING.
func NewRedis(ctx context.Context, cfg config.RedisConfig) (*Redis, error) {
	if cfg.Addr == "" {
		return nil, errors.New("query.NewRedis: redis address required")
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("query.NewRedis: ping %s: %w", cfg.Addr, err)
	}
	prefix := cfg.Prefix
	if prefix == "" {
		prefix = "shop:query:"
	}
	return &Redis{client: client, prefix: prefix}, nil
}

func (r *Redis) key(k string) string {
	return r.prefix + k
}

func (r *Redis) Load(ctx context.Context, key string) (Entry, bool, error) {
	raw, err := r.client.Get(ctx, r.key(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return Entry{}, false, nil
	}
	if err != nil {
		return Entry{}, false, fmt.Errorf("query.Redis.Load: %w", err)
	}
	var e Entry
	if err := json.Unmarshal(raw, &e); err != nil {
		return Entry{}, false, fmt.Errorf("query.Redis.Load: decode %s: %w", key, err)
	}
	return e, true, nil
}

func (r *Redis) Store(ctx context.Context, key string, e Entry, ttl time.Duration) error {
	data, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("query.Redis.Store: %w", err)
	}
	if err := r.client.Set(ctx, r.key(key), data, ttl).Err(); err != nil {
		return fmt.Errorf("query.Redis.Store: %w", err)
	}
	return nil
}

func (r *Redis) Invalidate(ctx context.Context, resource string) error {
	patterns := []string{r.prefix + "*"}
	if resource != "" {
		patterns = []string{r.key(resource), r.key(resource) + ":*"}
	}
	for _, pattern := range patterns {
		var cursor uint64
		for {
			keys, next, err := r.client.Scan(ctx, cursor, pattern, 100).Result()
			if err != nil {
				return fmt.Errorf("query.Redis.Invalidate: scan: %w", err)
			}
			if len(keys) > 0 {
				if err := r.client.Del(ctx, keys...).Err(); err != nil {
					return fmt.Errorf("query.Redis.Invalidate: del: %w", err)
				}
			}
			if next == 0 {
				break
			}
			cursor = next
		}
	}
	return nil
}

func (r *Redis) Close() error {
	return r.client.Close()
}
