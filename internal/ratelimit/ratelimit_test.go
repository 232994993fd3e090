package ratelimit

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"codeberg.org/healthconsultant/server/internal/auth"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ulule/limiter/v3"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newRouter(t *testing.T, formatted string) *gin.Engine {
	t.Helper()

	store, err := NewStore(nil)
	require.NoError(t, err)

	return newRouterWithStore(t, store, formatted)
}

func newRouterWithStore(t *testing.T, store limiter.Store, formatted string) *gin.Engine {
	t.Helper()

	limit, err := Middleware(store, "record", formatted)
	require.NoError(t, err)

	router := gin.New()
	router.Use(func(c *gin.Context) {
		if userID := c.GetHeader("X-Test-User"); userID != "" {
			c.Set(auth.ContextUserID, userID)
		}
		c.Next()
	})
	router.POST("/record", limit, func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	return router
}

func send(router *gin.Engine, userID string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/record", nil)
	if userID != "" {
		req.Header.Set("X-Test-User", userID)
	}

	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	return w
}

func TestMiddlewareLimitsPerUser(t *testing.T) {
	router := newRouter(t, "2-M")

	assert.Equal(t, http.StatusOK, send(router, "u1").Code)
	assert.Equal(t, http.StatusOK, send(router, "u1").Code)

	w := send(router, "u1")
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Contains(t, w.Body.String(), "too_many_requests")
	assert.Equal(t, "0", w.Header().Get("X-RateLimit-Remaining"))

	// a different user has their own budget
	assert.Equal(t, http.StatusOK, send(router, "u2").Code)
}

func TestMiddlewareFallsBackToClientIP(t *testing.T) {
	router := newRouter(t, "1-M")

	assert.Equal(t, http.StatusOK, send(router, "").Code)
	assert.Equal(t, http.StatusTooManyRequests, send(router, "").Code)
}

func TestMiddlewareRejectsBadRate(t *testing.T) {
	store, err := NewStore(nil)
	require.NoError(t, err)

	_, err = Middleware(store, "record", "lots")
	assert.Error(t, err)
}

func TestKeysAreScopedByName(t *testing.T) {
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
	c.Set(auth.ContextUserID, "u1")

	assert.Equal(t, "record:user:u1", keyFor("record")(c))
	assert.Equal(t, "consult:user:u1", keyFor("consult")(c))
}

// a store whose backend is down
type brokenStore struct{}

var errStoreDown = errors.New("redis: connection refused")

func (brokenStore) Get(context.Context, string, limiter.Rate) (limiter.Context, error) {
	return limiter.Context{}, errStoreDown
}

func (brokenStore) Peek(context.Context, string, limiter.Rate) (limiter.Context, error) {
	return limiter.Context{}, errStoreDown
}

func (brokenStore) Reset(context.Context, string, limiter.Rate) (limiter.Context, error) {
	return limiter.Context{}, errStoreDown
}

func (brokenStore) Increment(context.Context, string, int64, limiter.Rate) (limiter.Context, error) {
	return limiter.Context{}, errStoreDown
}

func TestMiddlewareFailsOpenWhenStoreDown(t *testing.T) {
	router := newRouterWithStore(t, brokenStore{}, "1-M")

	for i := 0; i < 3; i++ {
		assert.Equal(t, http.StatusOK, send(router, "u1").Code)
	}
}
