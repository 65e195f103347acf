package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/coder/quartz"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"

	"github.com/mx-space/footprint/internal/config"
	"github.com/mx-space/footprint/internal/middleware"
	"github.com/mx-space/footprint/internal/modules/stats/visitor"
	"github.com/mx-space/footprint/internal/modules/system/core/health"
	pkgcron "github.com/mx-space/footprint/internal/pkg/cron"
	"github.com/mx-space/footprint/internal/pkg/metrics"
	pkgredis "github.com/mx-space/footprint/internal/pkg/redis"
)

// Deps are the backends the application runs against.
type Deps struct {
	Store     visitor.Store
	StorePing health.Pinger
	Redis     *pkgredis.Client // nil disables rate limiting and the cleanup lock
	Registry  *prometheus.Registry
	Clock     quartz.Clock
}

// App holds all application dependencies.
type App struct {
	cfg     *config.AppConfig
	router  *gin.Engine
	logger  *zap.Logger
	cancel  context.CancelFunc
	sched   *pkgcron.Scheduler
	metrics *metrics.Metrics

	svc       *visitor.Service
	engine    *visitor.Engine
	retention *visitor.Retention

	closers []func(context.Context) error
}

// New initializes the application: config → store → Redis → routes.
func New(logger *zap.Logger, cfg *config.AppConfig) (*App, error) {
	if cfg == nil {
		return nil, errors.New("config is nil")
	}
	applyRuntimeSettings(cfg, logger)

	ctx := context.Background()
	store, err := OpenStore(ctx, cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("store: %w", err)
	}

	deps := Deps{Store: store.Store, StorePing: store.Ping}
	closers := []func(context.Context) error{store.Close}

	if cfg.Redis.Enabled {
		rc, err := pkgredis.Connect(cfg.RedisURL)
		if err != nil {
			logger.Warn("redis unavailable, rate limiting and cleanup lock disabled", zap.Error(err))
		} else {
			deps.Redis = rc
			closers = append(closers, func(context.Context) error { return rc.Close() })
		}
	}

	app, err := Build(logger, cfg, deps)
	if err != nil {
		for _, closeFn := range closers {
			_ = closeFn(ctx)
		}
		return nil, err
	}
	app.closers = closers
	return app, nil
}

// Build assembles the router and background jobs around already opened backends.
func Build(logger *zap.Logger, cfg *config.AppConfig, deps Deps) (*App, error) {
	if deps.Store == nil {
		return nil, errors.New("store is nil")
	}
	if deps.Registry == nil {
		deps.Registry = prometheus.NewRegistry()
		deps.Registry.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
	}
	if deps.Clock == nil {
		deps.Clock = quartz.NewReal()
	}

	m := metrics.New(deps.Registry)
	opts := []visitor.Option{
		visitor.WithLogger(logger.Named("Visitor")),
		visitor.WithClock(deps.Clock),
		visitor.WithMetrics(m),
		visitor.WithWindows(visitor.Windows{
			StaleAfter:      cfg.Analytics.StaleAfter,
			DuplicateWindow: cfg.Analytics.DuplicateWindow,
			RealtimeWindow:  cfg.Analytics.RealtimeWindow,
		}),
	}

	if cfg.IsDev() {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.HandleMethodNotAllowed = true
	if err := router.SetTrustedProxies(cfg.TrustedProxies); err != nil {
		return nil, fmt.Errorf("trusted_proxies: %w", err)
	}
	router.Use(gin.Recovery())
	router.Use(middleware.Logger(logger))
	router.Use(middleware.Metrics(m))
	router.Use(newCORS(cfg))

	ctx, cancel := context.WithCancel(context.Background())
	app := &App{
		cfg:       cfg,
		router:    router,
		logger:    logger,
		cancel:    cancel,
		sched:     pkgcron.New(logger.Named("CronService")),
		metrics:   m,
		svc:       visitor.NewService(deps.Store, opts...),
		engine:    visitor.NewEngine(deps.Store, opts...),
		retention: visitor.NewRetention(deps.Store, opts...),
	}

	if err := registerCronJobs(app.sched, app.retention, deps.Redis, cfg, logger); err != nil {
		cancel()
		return nil, err
	}
	if cfg.Analytics.CleanupEnabled {
		app.sched.Start(ctx)
	}

	app.registerRoutes(deps)
	return app, nil
}

// Addr returns the listen address.
func (a *App) Addr() string { return fmt.Sprintf(":%d", a.cfg.Port) }

// Router returns the HTTP handler.
func (a *App) Router() http.Handler { return a.router }

// Shutdown stops background jobs and closes the backends.
func (a *App) Shutdown(ctx context.Context) error {
	a.cancel()
	select {
	case <-a.sched.Stop().Done():
	case <-ctx.Done():
	}

	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](ctx); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
