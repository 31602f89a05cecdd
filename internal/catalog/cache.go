package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	typeKeyPrefix = "catalog:type:"
	typeListKey   = "catalog:types"
)

// CachedRepository is a read-through Redis cache in front of a Repository.
// Deliverable types are read-mostly: staleness only affects future workload
// computations, so a short TTL is safe. Writes invalidate eagerly. Cache
// failures degrade to the underlying repository, never to an error.
type CachedRepository struct {
	next Repository
	rdb  *redis.Client
	ttl  time.Duration
}

// NewCachedRepository wraps repo with a Redis read cache.
func NewCachedRepository(next Repository, rdb *redis.Client, ttl time.Duration) Repository {
	return &CachedRepository{next: next, rdb: rdb, ttl: ttl}
}

func (c *CachedRepository) GetByKey(ctx context.Context, typeKey string) (*DeliverableType, error) {
	raw, err := c.rdb.Get(ctx, typeKeyPrefix+typeKey).Bytes()
	if err == nil {
		var dt DeliverableType
		if err := json.Unmarshal(raw, &dt); err == nil {
			return &dt, nil
		}
	} else if !errors.Is(err, redis.Nil) {
		slog.Warn("catalog cache read failed", "key", typeKey, "error", err)
	}

	dt, err := c.next.GetByKey(ctx, typeKey)
	if err != nil {
		return nil, err
	}
	c.store(ctx, typeKeyPrefix+typeKey, dt)
	return dt, nil
}

func (c *CachedRepository) List(ctx context.Context) ([]DeliverableType, error) {
	raw, err := c.rdb.Get(ctx, typeListKey).Bytes()
	if err == nil {
		var types []DeliverableType
		if err := json.Unmarshal(raw, &types); err == nil {
			return types, nil
		}
	} else if !errors.Is(err, redis.Nil) {
		slog.Warn("catalog cache read failed", "key", typeListKey, "error", err)
	}

	types, err := c.next.List(ctx)
	if err != nil {
		return nil, err
	}
	c.store(ctx, typeListKey, types)
	return types, nil
}

func (c *CachedRepository) Create(ctx context.Context, dt *DeliverableType) error {
	if err := c.next.Create(ctx, dt); err != nil {
		return err
	}
	c.invalidate(ctx, typeListKey)
	return nil
}

func (c *CachedRepository) Update(ctx context.Context, typeKey string, fields UpdateFields) (*DeliverableType, error) {
	dt, err := c.next.Update(ctx, typeKey, fields)
	if err != nil {
		return nil, err
	}
	c.invalidate(ctx, typeKeyPrefix+typeKey, typeListKey)
	return dt, nil
}

func (c *CachedRepository) Delete(ctx context.Context, typeKey string) error {
	if err := c.next.Delete(ctx, typeKey); err != nil {
		return err
	}
	c.invalidate(ctx, typeKeyPrefix+typeKey, typeListKey)
	return nil
}

func (c *CachedRepository) CreateCategory(ctx context.Context, cat *ServiceCategory) error {
	return c.next.CreateCategory(ctx, cat)
}

func (c *CachedRepository) ListCategories(ctx context.Context) ([]ServiceCategory, error) {
	return c.next.ListCategories(ctx)
}

func (c *CachedRepository) store(ctx context.Context, key string, v any) {
	raw, err := json.Marshal(v)
	if err != nil {
		return
	}
	if err := c.rdb.Set(ctx, key, raw, c.ttl).Err(); err != nil {
		slog.Warn("catalog cache write failed", "key", key, "error", err)
	}
}

func (c *CachedRepository) invalidate(ctx context.Context, keys ...string) {
	if err := c.rdb.Del(ctx, keys...).Err(); err != nil {
		slog.Warn("catalog cache invalidation failed", "keys", keys, "error", err)
	}
}
