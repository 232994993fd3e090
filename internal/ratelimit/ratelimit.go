package ratelimit

import (
	"fmt"

	"codeberg.org/healthconsultant/server/internal/auth"
	"codeberg.org/healthconsultant/server/internal/errors"
	"codeberg.org/healthconsultant/server/internal/logger"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/ulule/limiter/v3"
	mgin "github.com/ulule/limiter/v3/drivers/middleware/gin"
	"github.com/ulule/limiter/v3/drivers/store/memory"
	sredis "github.com/ulule/limiter/v3/drivers/store/redis"
)

const keyPrefix = "healthconsultant:ratelimit"

// shared counter store; redis when available so limits hold across replicas
func NewStore(client *redis.Client) (limiter.Store, error) {
	if client == nil {
		return memory.NewStoreWithOptions(limiter.StoreOptions{Prefix: keyPrefix}), nil
	}

	store, err := sredis.NewStoreWithOptions(client, limiter.StoreOptions{Prefix: keyPrefix})
	if err != nil {
		return nil, fmt.Errorf("failed to create redis limiter store: %w", err)
	}

	return store, nil
}

// limits requests per authenticated user, falling back to client ip.
// name scopes the counters so routes sharing a store do not share a budget.
// formatted follows limiter syntax, e.g. "30-M"
func Middleware(store limiter.Store, name, formatted string) (gin.HandlerFunc, error) {
	rate, err := limiter.NewRateFromFormatted(formatted)
	if err != nil {
		return nil, fmt.Errorf("invalid rate %q for %s: %w", formatted, name, err)
	}

	instance := limiter.New(store, rate)

	return mgin.NewMiddleware(instance,
		mgin.WithKeyGetter(keyFor(name)),
		mgin.WithLimitReachedHandler(func(c *gin.Context) {
			errors.TooManyRequests(c, "rate limit exceeded, slow down")
		}),
		mgin.WithErrorHandler(func(c *gin.Context, err error) {
			// fail open; the limiter is only a throttle
			logger.FromContext(c.Request.Context()).Warn("rate limiter unavailable",
				"error", err,
				"limiter", name,
			)
			c.Next()
		}),
	), nil
}

func keyFor(name string) func(c *gin.Context) string {
	return func(c *gin.Context) string {
		if userID, ok := auth.GetUserID(c); ok {
			return name + ":user:" + userID
		}

		return name + ":ip:" + c.ClientIP()
	}
}
