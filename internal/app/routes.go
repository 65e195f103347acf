package app

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mx-space/footprint/internal/middleware"
	"github.com/mx-space/footprint/internal/modules/stats/visitor"
	"github.com/mx-space/footprint/internal/modules/system/core/health"
	"github.com/mx-space/footprint/internal/modules/tasks/crontask"
	"github.com/mx-space/footprint/internal/pkg/response"
)

const apiPrefix = "/api"

func (a *App) registerRoutes(deps Deps) {
	r := a.router
	adminMW := middleware.Admin()

	r.NoRoute(response.NotFound)
	r.NoMethod(response.MethodNotAllowed)

	r.GET("/", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"name":    "footprint",
			"version": "1.0.0",
		})
	})
	if a.cfg.Metrics.Enabled {
		r.GET(a.cfg.Metrics.Path, gin.WrapH(a.metrics.Handler()))
	}

	api := r.Group(apiPrefix)

	// Infrastructure
	health.RegisterRoutes(api, health.NewChecker(deps.StorePing, a.redisPinger(deps)), a.cfg.LogDir(), adminMW)
	crontask.NewHandler(a.sched).RegisterRoutes(api, adminMW)

	// Visitor tracking
	var ingest []gin.HandlerFunc
	if deps.Redis != nil && a.cfg.RateLimit.Max > 0 {
		ingest = append(ingest, middleware.RateLimit(deps.Redis.Raw(), middleware.RateLimitConfig{
			Max:    a.cfg.RateLimit.Max,
			Window: a.cfg.RateLimit.Window,
			Clock:  deps.Clock,
			Logger: a.logger,
		}))
	}
	visitor.NewHandler(a.svc, a.engine, a.retention).RegisterRoutes(api, adminMW, ingest...)

	api.GET("/visitors/config", func(c *gin.Context) {
		response.OK(c, gin.H{
			"dedupWindowMs": a.cfg.Analytics.DedupWindow.Milliseconds(),
		})
	})
}

func (a *App) redisPinger(deps Deps) health.Pinger {
	if deps.Redis == nil {
		return nil
	}
	return deps.Redis.Ping
}
