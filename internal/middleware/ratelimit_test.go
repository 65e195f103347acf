package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/coder/quartz"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func limitedRouter(rdb *redis.Client, cfg RateLimitConfig) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.POST("/track", RateLimit(rdb, cfg), func(c *gin.Context) { c.Status(http.StatusOK) })
	return r
}

func hit(r http.Handler, ip string) int {
	req := httptest.NewRequest(http.MethodPost, "/track", nil)
	req.RemoteAddr = ip + ":5555"
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec.Code
}

func TestRateLimit(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()

	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer rdb.Close()

	clock := quartz.NewMock(t)
	clock.Set(time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC))
	r := limitedRouter(rdb, RateLimitConfig{Max: 3, Window: time.Second, Clock: clock})

	for i := 0; i < 3; i++ {
		assert.Equal(t, http.StatusOK, hit(r, "192.0.2.1"))
	}
	assert.Equal(t, http.StatusTooManyRequests, hit(r, "192.0.2.1"))
	assert.Equal(t, http.StatusOK, hit(r, "192.0.2.2"), "other clients keep their own budget")

	clock.Advance(time.Second)
	assert.Equal(t, http.StatusOK, hit(r, "192.0.2.1"), "next window starts fresh")
}

func TestRateLimitWithoutRedis(t *testing.T) {
	r := limitedRouter(nil, RateLimitConfig{Max: 1})
	for i := 0; i < 5; i++ {
		assert.Equal(t, http.StatusOK, hit(r, "192.0.2.1"))
	}
}

func TestRateLimitRedisDown(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
	defer rdb.Close()
	mr.Close()

	r := limitedRouter(rdb, RateLimitConfig{Max: 1})
	assert.Equal(t, http.StatusOK, hit(r, "192.0.2.1"))
	assert.Equal(t, http.StatusOK, hit(r, "192.0.2.1"))
}
