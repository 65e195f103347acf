// Command cleanup runs one retention pass against the configured visit store,
// then prints the report and the most recent visits.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/mx-space/footprint/internal/app"
	"github.com/mx-space/footprint/internal/config"
	"github.com/mx-space/footprint/internal/models"
	"github.com/mx-space/footprint/internal/modules/stats/visitor"
	"github.com/mx-space/footprint/internal/pkg/nativelog"
)

const recentShown = 10

func main() {
	configPath := flag.String("config", "", "Path to YAML config file (default "+config.DefaultConfigPath+")")
	timeout := flag.Duration("timeout", 2*time.Minute, "Abort the run after this long")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fallback, _ := zap.NewProduction()
		fallback.Fatal("failed to load config", zap.Error(err))
	}

	logger := newLogger(cfg)
	defer func() { _ = logger.Sync() }()

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	if err := run(ctx, os.Stdout, cfg, logger); err != nil {
		logger.Error("cleanup failed", zap.Error(err))
		_ = logger.Sync()
		cancel()
		os.Exit(1)
	}
}

// newLogger tees to stdout and the daily log file, falling back to a plain
// production logger when the log directory cannot be used.
func newLogger(cfg *config.AppConfig) *zap.Logger {
	logger, err := nativelog.NewZapLogger(cfg.LogDir(), cfg.IsDev())
	if err != nil {
		logger, _ = zap.NewProduction()
		logger.Warn("native log pipeline unavailable, fallback to zap production logger", zap.Error(err))
	}
	return logger.Named("Cleanup")
}

func run(ctx context.Context, out io.Writer, cfg *config.AppConfig, logger *zap.Logger) error {
	opened, err := app.OpenStore(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer opened.Close(context.WithoutCancel(ctx))

	windows := visitor.Windows{
		StaleAfter:      cfg.Analytics.StaleAfter,
		DuplicateWindow: cfg.Analytics.DuplicateWindow,
	}
	retention := visitor.NewRetention(opened.Store, visitor.WithLogger(logger), visitor.WithWindows(windows))
	engine := visitor.NewEngine(opened.Store, visitor.WithLogger(logger))

	return report(ctx, out, retention, engine)
}

func report(ctx context.Context, out io.Writer, retention *visitor.Retention, engine *visitor.Engine) error {
	res, runErr := retention.Run(ctx)
	if res != nil {
		fmt.Fprintf(out, "Deleted %d stale records\n", res.OldRecordsDeleted)
		fmt.Fprintf(out, "Deleted %d duplicate records\n", res.DuplicateRecordsDeleted)
		fmt.Fprintf(out, "Remaining records: %d\n", res.RemainingRecords)
	}
	if runErr != nil {
		return runErr
	}

	recent, err := engine.Recent(ctx, recentShown)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "\nMost recent %d visits:\n", len(recent))
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(summarize(recent))
}

type recentRow struct {
	IP        string    `json:"ip"`
	Page      string    `json:"page"`
	SessionID string    `json:"sessionId"`
	CreatedAt time.Time `json:"createdAt"`
}

func summarize(rows []models.VisitModel) []recentRow {
	out := make([]recentRow, 0, len(rows))
	for _, v := range rows {
		out = append(out, recentRow{IP: v.IP, Page: v.Page, SessionID: v.SessionID, CreatedAt: v.CreatedAt})
	}
	return out
}
