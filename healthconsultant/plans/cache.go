package plans

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

const keyPlanCatalog = "healthconsultant:plans:catalog"

// stores the whole plan list under one key
type Cache interface {
	Get(ctx context.Context) ([]Plan, bool, error)
	Set(ctx context.Context, plans []Plan, ttl time.Duration) error
	Invalidate(ctx context.Context) error
}

// implements Cache using Redis, shared by every server instance
type RedisCache struct {
	client *redis.Client
}

// creates a new Redis-backed plan cache
func NewRedisCache(client *redis.Client) *RedisCache {
	return &RedisCache{client: client}
}

func (c *RedisCache) Get(ctx context.Context) ([]Plan, bool, error) {
	raw, err := c.client.Get(ctx, keyPlanCatalog).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}

	if err != nil {
		return nil, false, err
	}

	var plans []Plan
	if err := json.Unmarshal(raw, &plans); err != nil {
		return nil, false, fmt.Errorf("failed to decode cached plans: %w", err)
	}

	return plans, true, nil
}

func (c *RedisCache) Set(ctx context.Context, plans []Plan, ttl time.Duration) error {
	raw, err := json.Marshal(plans)
	if err != nil {
		return fmt.Errorf("failed to encode plans: %w", err)
	}

	return c.client.Set(ctx, keyPlanCatalog, raw, ttl).Err()
}

func (c *RedisCache) Invalidate(ctx context.Context) error {
	return c.client.Del(ctx, keyPlanCatalog).Err()
}

// implements Cache in process memory; used when no redis is configured
type MemoryCache struct {
	mu        sync.RWMutex
	plans     []Plan
	expiresAt time.Time
	now       func() time.Time
}

// creates a new in-memory plan cache
func NewMemoryCache() *MemoryCache {
	return &MemoryCache{now: time.Now}
}

func (c *MemoryCache) Get(_ context.Context) ([]Plan, bool, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.plans == nil || !c.now().Before(c.expiresAt) {
		return nil, false, nil
	}

	out := make([]Plan, len(c.plans))
	copy(out, c.plans)

	return out, true, nil
}

func (c *MemoryCache) Set(_ context.Context, plans []Plan, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.plans = make([]Plan, len(plans))
	copy(c.plans, plans)
	c.expiresAt = c.now().Add(ttl)

	return nil
}

func (c *MemoryCache) Invalidate(_ context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.plans = nil

	return nil
}
