package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const listSnapshotKey = "todo:list"

// ListCache stores the last list fetched from the store as one JSON value.
// It is what the page shows before (or instead of) a successful fetch.
type ListCache struct {
	client *RedisClient
	ttl    time.Duration
}

// NewListCache creates a ListCache whose snapshot expires after ttl.
// A zero ttl keeps the snapshot until it is overwritten.
func NewListCache(r *RedisClient, ttl time.Duration) *ListCache {
	return &ListCache{client: r, ttl: ttl}
}

// Load returns the snapshot, or redis.Nil when none is stored.
func (c *ListCache) Load(ctx context.Context) ([]CachedTodo, error) {
	raw, err := c.client.Client().Get(ctx, listSnapshotKey).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, redis.Nil
		}
		return nil, fmt.Errorf("snapshot load: %w", err)
	}
	var todos []CachedTodo
	if err := json.Unmarshal(raw, &todos); err != nil {
		return nil, fmt.Errorf("snapshot decode: %w", err)
	}
	return todos, nil
}

// Save replaces the snapshot.
func (c *ListCache) Save(ctx context.Context, todos []CachedTodo) error {
	if todos == nil {
		todos = []CachedTodo{}
	}
	raw, err := json.Marshal(todos)
	if err != nil {
		return fmt.Errorf("snapshot encode: %w", err)
	}
	if err := c.client.Client().Set(ctx, listSnapshotKey, raw, c.ttl).Err(); err != nil {
		return fmt.Errorf("snapshot save: %w", err)
	}
	return nil
}
