package plans

import (
	"context"
	"strings"
	"time"

	"codeberg.org/healthconsultant/server/internal/logger"
)

// read-through cache over the plan source
type Catalog struct {
	source Source
	cache  Cache
	ttl    time.Duration
}

// creates a plan catalog; a nil cache disables caching
func NewCatalog(source Source, cache Cache, ttl time.Duration) *Catalog {
	return &Catalog{source: source, cache: cache, ttl: ttl}
}

// lists plans from cache, loading from the source on a miss
func (c *Catalog) ListPlans(ctx context.Context) ([]Plan, error) {
	if c.cache != nil {
		cached, ok, err := c.cache.Get(ctx)
		if err != nil {
			logger.Warn("plan cache read failed, using database", "error", err)
		}

		if ok {
			return cached, nil
		}
	}

	return c.Refresh(ctx)
}

// reloads plans from the source and repopulates the cache
func (c *Catalog) Refresh(ctx context.Context) ([]Plan, error) {
	plans, err := c.source.ListPlans(ctx)
	if err != nil {
		return nil, err
	}

	if c.cache != nil {
		if err := c.cache.Set(ctx, plans, c.ttl); err != nil {
			logger.Warn("plan cache write failed", "error", err)
		}
	}

	return plans, nil
}

// drops cached plans so the next read hits the source
func (c *Catalog) Invalidate(ctx context.Context) error {
	if c.cache == nil {
		return nil
	}

	return c.cache.Invalidate(ctx)
}

func (c *Catalog) FindByID(ctx context.Context, id string) (*Plan, error) {
	return c.find(ctx, func(p Plan) bool { return p.ID == id })
}

// title match ignores case and surrounding whitespace
func (c *Catalog) FindByTitle(ctx context.Context, title string) (*Plan, error) {
	title = strings.TrimSpace(title)

	return c.find(ctx, func(p Plan) bool {
		return strings.EqualFold(strings.TrimSpace(p.Title), title)
	})
}

func (c *Catalog) FindByStripePrice(ctx context.Context, priceID string) (*Plan, error) {
	if priceID == "" {
		return nil, ErrPlanNotFound
	}

	return c.find(ctx, func(p Plan) bool { return p.StripePriceID == priceID })
}

func (c *Catalog) find(ctx context.Context, match func(Plan) bool) (*Plan, error) {
	plans, err := c.ListPlans(ctx)
	if err != nil {
		return nil, err
	}

	for _, p := range plans {
		if match(p) {
			found := p
			return &found, nil
		}
	}

	return nil, ErrPlanNotFound
}
