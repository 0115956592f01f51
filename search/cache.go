package search

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Cache stores fused result sets keyed by (normalized_query, filter_hash,
// embedding_config_id, mode, limit), an optional layer in front of
// Engine.Search. Engine.Search works identically with a nil Cache
// (disabled); correctness never depends on it.
type Cache interface {
	Get(ctx context.Context, key string) (*SearchResponse, bool, error)
	Set(ctx context.Context, key string, resp *SearchResponse, ttl time.Duration) error

	// InvalidateNote drops every cached entry that could have included
	// noteID. The simplest correct implementation is a full flush, since
	// any query might have touched any note. Engine itself never calls
	// it; a caller that wires write-path signals to the cache does.
	InvalidateNote(ctx context.Context, noteID string) error
}

// CacheKey builds the cache key for a Query.
func CacheKey(q Query) string {
	h := sha256.New()
	fmt.Fprintf(h, "q=%s|mode=%s|cfg=%s|limit=%d|", q.Normalize(), q.Mode, q.EmbeddingConfig, q.Limit)
	filterJSON, _ := json.Marshal(q.Filter)
	h.Write(filterJSON)
	return hex.EncodeToString(h.Sum(nil))
}

// RedisCache implements Cache over go-redis, the same client shape
// evalgo-org-eve's RedisRepository uses for its own cache operations
// (SET/GET with a namespaced key, JSON-encoded value).
type RedisCache struct {
	client *redis.Client
	prefix string
}

// NewRedisCache wraps an existing *redis.Client. Tests construct one
// against a miniredis instance instead of a live server.
func NewRedisCache(client *redis.Client) *RedisCache {
	return &RedisCache{client: client, prefix: "search:cache:"}
}

func (c *RedisCache) Get(ctx context.Context, key string) (*SearchResponse, bool, error) {
	data, err := c.client.Get(ctx, c.prefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("search cache get: %w", err)
	}
	var resp SearchResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return nil, false, fmt.Errorf("search cache unmarshal: %w", err)
	}
	return &resp, true, nil
}

func (c *RedisCache) Set(ctx context.Context, key string, resp *SearchResponse, ttl time.Duration) error {
	data, err := json.Marshal(resp)
	if err != nil {
		return fmt.Errorf("search cache marshal: %w", err)
	}
	if err := c.client.Set(ctx, c.prefix+key, data, ttl).Err(); err != nil {
		return fmt.Errorf("search cache set: %w", err)
	}
	return nil
}

// InvalidateNote flushes the whole cache namespace. Per-note invalidation
// would require indexing which cache keys touched which notes; the
// contract only calls for invalidation by TTL or on any write to any
// participating note, so a full-namespace flush on any note write
// satisfies that without building a reverse index nothing else needs.
func (c *RedisCache) InvalidateNote(ctx context.Context, _ string) error {
	iter := c.client.Scan(ctx, 0, c.prefix+"*", 0).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("search cache scan: %w", err)
	}
	if len(keys) == 0 {
		return nil
	}
	return c.client.Del(ctx, keys...).Err()
}

var _ Cache = (*RedisCache)(nil)
