package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/eduard0708/exits-saas-lms-sub008/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLimiter(t *testing.T, limit int) (*RateLimiter, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	return NewRateLimiter(client, limit, time.Hour, nil), mr
}

func TestRateLimiter_Allow(t *testing.T) {
	limiter, mr := newTestLimiter(t, 2)
	ctx := t.Context()

	allowed, remaining, err := limiter.Allow(ctx, "tenant:user")
	require.NoError(t, err)
	assert.True(t, allowed)
	assert.Equal(t, 1, remaining)

	allowed, remaining, _ = limiter.Allow(ctx, "tenant:user")
	assert.True(t, allowed)
	assert.Equal(t, 0, remaining)

	allowed, remaining, _ = limiter.Allow(ctx, "tenant:user")
	assert.False(t, allowed)
	assert.Equal(t, 0, remaining)

	t.Run("keys are independent", func(t *testing.T) {
		allowed, _, _ := limiter.Allow(ctx, "tenant:other")
		assert.True(t, allowed)
	})

	t.Run("counters expire with the window", func(t *testing.T) {
		keys := mr.Keys()
		require.NotEmpty(t, keys)
		assert.Equal(t, time.Hour, mr.TTL(keys[0]))
	})
}

func TestRateLimit_Middleware(t *testing.T) {
	limiter, mr := newTestLimiter(t, 1)

	router := gin.New()
	router.Use(RateLimit(limiter))
	router.GET("/test", func(c *gin.Context) { c.Status(http.StatusOK) })

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/test", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "1", w.Header().Get("X-RateLimit-Limit"))
	assert.Equal(t, "0", w.Header().Get("X-RateLimit-Remaining"))

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/test", nil))
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, dto.ErrCodeRateLimited, errorCode(t, w))

	t.Run("redis failure lets requests through", func(t *testing.T) {
		mr.SetError("LOADING")
		defer mr.SetError("")

		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/test", nil))
		assert.Equal(t, http.StatusOK, w.Code)
	})
}

func TestRateLimit_KeysByUser(t *testing.T) {
	limiter, _ := newTestLimiter(t, 1)

	router := gin.New()
	router.Use(func(c *gin.Context) {
		c.Set(JWTTenantIDKey, "t-1")
		c.Set(JWTUserIDKey, c.GetHeader("X-User"))
		c.Next()
	})
	router.Use(RateLimit(limiter))
	router.GET("/test", func(c *gin.Context) { c.Status(http.StatusOK) })

	for _, user := range []string{"a", "b"} {
		req := httptest.NewRequest(http.MethodGet, "/test", nil)
		req.Header.Set("X-User", user)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		assert.Equal(t, http.StatusOK, w.Code, user)
	}
}
