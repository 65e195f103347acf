package middleware

import (
	"fmt"
	"strconv"
	"time"

	"github.com/coder/quartz"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/mx-space/footprint/internal/pkg/response"
)

const (
	DefaultRateLimitMax    = 50
	DefaultRateLimitWindow = time.Second
	rateLimitKeyPrefix     = "footprint:rate_limit"
)

// RateLimitConfig bounds how many requests one client IP may make per window.
type RateLimitConfig struct {
	Max    int64
	Window time.Duration
	Clock  quartz.Clock
	Logger *zap.Logger
}

// RateLimit returns a fixed-window limiter counting per client IP in Redis.
// A nil client or a Redis error lets the request through.
func RateLimit(rdb *redis.Client, cfg RateLimitConfig) gin.HandlerFunc {
	if cfg.Max <= 0 {
		cfg.Max = DefaultRateLimitMax
	}
	if cfg.Window <= 0 {
		cfg.Window = DefaultRateLimitWindow
	}
	if cfg.Clock == nil {
		cfg.Clock = quartz.NewReal()
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}

	return func(c *gin.Context) {
		if rdb == nil {
			c.Next()
			return
		}

		ip := c.ClientIP()
		if ip == "" {
			c.Next()
			return
		}

		ctx := c.Request.Context()
		windowKey := cfg.Clock.Now().UnixNano() / int64(cfg.Window)
		key := fmt.Sprintf("%s:%s:%d", rateLimitKeyPrefix, ip, windowKey)

		count, err := rdb.Incr(ctx, key).Result()
		if err != nil {
			cfg.Logger.Debug("rate limit unavailable", zap.Error(err))
			c.Next()
			return
		}

		if count == 1 {
			rdb.PExpire(ctx, key, cfg.Window+time.Second)
		}

		if count > cfg.Max {
			retry := int(cfg.Window / time.Second)
			if retry < 1 {
				retry = 1
			}
			c.Header("Retry-After", strconv.Itoa(retry))
			response.TooManyRequests(c)
			return
		}

		c.Next()
	}
}
