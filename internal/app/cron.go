package app

import (
	"context"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/mx-space/footprint/internal/config"
	"github.com/mx-space/footprint/internal/modules/stats/visitor"
	pkgcron "github.com/mx-space/footprint/internal/pkg/cron"
	pkgredis "github.com/mx-space/footprint/internal/pkg/redis"
)

const (
	cleanupJobName = "cleanup_visitors"
	cleanupLockKey = "footprint:lock:" + cleanupJobName
)

// registerCronJobs registers all scheduled background jobs.
func registerCronJobs(sched *pkgcron.Scheduler, retention *visitor.Retention, rc *pkgredis.Client, cfg *config.AppConfig, logger *zap.Logger) error {
	cronLogger := logger.Named("CronService")

	return sched.Register(pkgcron.Job{
		Name:        cleanupJobName,
		Description: "Purge stale visitor records and collapse duplicates",
		Interval:    cfg.Analytics.CleanupInterval,
		Fn: func(ctx context.Context) error {
			if rc != nil {
				token := uuid.NewString()
				ok, err := rc.TryLock(ctx, cleanupLockKey, token, cfg.Analytics.CleanupInterval)
				switch {
				case err != nil:
					cronLogger.Warn("cleanup lock unavailable, running unguarded", zap.Error(err))
				case !ok:
					cronLogger.Info("cleanup already running on another instance, skipped")
					return nil
				default:
					defer func() {
						if err := rc.Unlock(context.WithoutCancel(ctx), cleanupLockKey, token); err != nil {
							cronLogger.Warn("release cleanup lock", zap.Error(err))
						}
					}()
				}
			}

			if _, err := retention.Run(ctx); err != nil {
				return err
			}
			return nil
		},
	})
}
