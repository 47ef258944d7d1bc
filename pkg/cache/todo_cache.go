package cache

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	// TodoCacheTTL is the time-to-live for a cached todo.
	TodoCacheTTL = 24 * time.Hour

	todoCacheKeyPrefix = "todo"
)

// CachedTodo is the read model stored in Redis as a hash.
type CachedTodo struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	Done      bool      `json:"done"`
	CreatedAt time.Time `json:"created_at"`
}

// TodoCache is the per-todo read-through cache. The store stays the source of
// truth: entries are only ever filled from a store read (Fill) and dropped on
// any change (Invalidate). Each id has a version counter bumped by Invalidate;
// Fill writes only if the counter still holds the value read before the store
// read.
//
// Key format: "todo:{id}" (hash) and "todo:{id}:v" (version).
type TodoCache struct {
	client *RedisClient
}

// NewTodoCache creates a TodoCache backed by r.
func NewTodoCache(r *RedisClient) *TodoCache {
	return &TodoCache{client: r}
}

// Get returns the cached todo, or redis.Nil when the key is absent or expired.
func (c *TodoCache) Get(ctx context.Context, id uuid.UUID) (*CachedTodo, error) {
	vals, err := c.client.Client().HGetAll(ctx, todoKey(id)).Result()
	if err != nil {
		return nil, fmt.Errorf("cache get: %w", err)
	}
	if len(vals) == 0 {
		return nil, redis.Nil
	}
	return parseCachedTodo(vals)
}

// Version returns the invalidation counter for id; 0 if it was never bumped.
func (c *TodoCache) Version(ctx context.Context, id uuid.UUID) (int64, error) {
	return readVersion(ctx, c.client.Client(), id)
}

// Fill caches todo if its version is still version. It reports whether the
// entry was written.
func (c *TodoCache) Fill(ctx context.Context, todo *CachedTodo, version int64) (bool, error) {
	vkey := versionKey(todo.ID)
	err := c.client.Client().Watch(ctx, func(tx *redis.Tx) error {
		current, err := readVersion(ctx, tx, todo.ID)
		if err != nil {
			return err
		}
		if current != version {
			return errStaleFill
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			key := todoKey(todo.ID)
			pipe.HSet(ctx, key,
				"id", todo.ID.String(),
				"name", todo.Name,
				"done", strconv.FormatBool(todo.Done),
				"created_at", todo.CreatedAt.UTC().Format(time.RFC3339Nano),
			)
			pipe.Expire(ctx, key, TodoCacheTTL)
			return nil
		})
		return err
	}, vkey)

	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, errStaleFill), errors.Is(err, redis.TxFailedErr):
		return false, nil
	default:
		return false, fmt.Errorf("cache fill: %w", err)
	}
}

// Invalidate drops the cached todo and bumps its version, atomically.
func (c *TodoCache) Invalidate(ctx context.Context, id uuid.UUID) error {
	vkey := versionKey(id)
	_, err := c.client.Client().TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Incr(ctx, vkey)
		pipe.Expire(ctx, vkey, TodoCacheTTL)
		pipe.Del(ctx, todoKey(id))
		return nil
	})
	if err != nil {
		return fmt.Errorf("cache invalidate: %w", err)
	}
	return nil
}

var errStaleFill = errors.New("cache: version moved since read")

// stringGetter is satisfied by *redis.Client and by *redis.Tx inside Watch.
type stringGetter interface {
	Get(ctx context.Context, key string) *redis.StringCmd
}

func readVersion(ctx context.Context, c stringGetter, id uuid.UUID) (int64, error) {
	v, err := c.Get(ctx, versionKey(id)).Int64()
	switch {
	case errors.Is(err, redis.Nil):
		return 0, nil
	case err != nil:
		return 0, fmt.Errorf("cache version: %w", err)
	}
	return v, nil
}

func parseCachedTodo(vals map[string]string) (*CachedTodo, error) {
	id, err := uuid.Parse(vals["id"])
	if err != nil {
		return nil, fmt.Errorf("cache parse id: %w", err)
	}
	done, err := strconv.ParseBool(vals["done"])
	if err != nil {
		return nil, fmt.Errorf("cache parse done: %w", err)
	}
	createdAt, err := time.Parse(time.RFC3339Nano, vals["created_at"])
	if err != nil {
		return nil, fmt.Errorf("cache parse created_at: %w", err)
	}
	return &CachedTodo{
		ID:        id,
		Name:      vals["name"],
		Done:      done,
		CreatedAt: createdAt,
	}, nil
}

func todoKey(id uuid.UUID) string {
	return fmt.Sprintf("%s:%s", todoCacheKeyPrefix, id)
}

func versionKey(id uuid.UUID) string {
	return todoKey(id) + ":v"
}
