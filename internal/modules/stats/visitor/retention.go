package visitor

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/mx-space/footprint/internal/models"
)

// CleanupReport counts what one retention run removed.
type CleanupReport struct {
	OldRecordsDeleted       int64 `json:"oldRecordsDeleted"`
	DuplicateRecordsDeleted int64 `json:"duplicateRecordsDeleted"`
	RemainingRecords        int64 `json:"remainingRecords"`
}

// Retention purges stale visits and collapses near-duplicate ones.
// Deletions already applied are kept when a later step fails.
type Retention struct {
	store Store
	opts  options
}

func NewRetention(store Store, opts ...Option) *Retention {
	return &Retention{store: store, opts: buildOptions(opts)}
}

// Run executes the age-based purge and then the duplicate collapse. On failure the
// partial report is returned together with the error.
func (r *Retention) Run(ctx context.Context) (*CleanupReport, error) {
	report := &CleanupReport{}
	log := r.opts.logger

	now := r.opts.clock.Now()
	old, err := r.store.DeleteCreatedBefore(ctx, now.Add(-r.opts.windows.StaleAfter))
	if err != nil {
		return r.finish(report, storeErr("purge stale visits", err))
	}
	report.OldRecordsDeleted = old

	recent, err := r.store.CreatedSince(ctx, now.Add(-r.opts.windows.DuplicateWindow))
	if err != nil {
		return r.finish(report, storeErr("scan recent visits", err))
	}
	for _, ids := range duplicateIDs(recent) {
		n, err := r.store.DeleteIDs(ctx, ids)
		report.DuplicateRecordsDeleted += n
		if err != nil {
			return r.finish(report, storeErr("delete duplicate visits", err))
		}
	}

	remaining, err := r.store.Count(ctx)
	if err != nil {
		return r.finish(report, storeErr("count visits", err))
	}
	report.RemainingRecords = remaining

	log.Info("visitor cleanup completed",
		zap.Int64("old", report.OldRecordsDeleted),
		zap.Int64("duplicates", report.DuplicateRecordsDeleted),
		zap.Int64("remaining", report.RemainingRecords),
	)
	return r.finish(report, nil)
}

func (r *Retention) finish(report *CleanupReport, err error) (*CleanupReport, error) {
	status := "ok"
	if err != nil {
		status = "error"
		r.opts.logger.Error("visitor cleanup failed",
			zap.Int64("old", report.OldRecordsDeleted),
			zap.Int64("duplicates", report.DuplicateRecordsDeleted),
			zap.Error(err),
		)
	}
	r.opts.metrics.CleanupFinished(status, report.OldRecordsDeleted, report.DuplicateRecordsDeleted, report.RemainingRecords)
	return report, err
}

// PurgeResult is the outcome of an unconditional purge.
type PurgeResult struct {
	DeletedCount int64
}

func (p PurgeResult) Message() string {
	return fmt.Sprintf("Removed %d visitor records", p.DeletedCount)
}

// PurgeAll deletes every visit.
func (r *Retention) PurgeAll(ctx context.Context) (*PurgeResult, error) {
	n, err := r.store.DeleteAll(ctx)
	if err != nil {
		err = storeErr("purge all visits", err)
		r.opts.logger.Error("visitor purge failed", zap.Error(err))
		return nil, err
	}
	r.opts.logger.Warn("all visitor records purged", zap.Int64("deleted", n))
	return &PurgeResult{DeletedCount: n}, nil
}

// duplicateIDs groups rows by (session, page) and returns, per group with more than
// one member, every id except the earliest created. rows must be ordered oldest first.
func duplicateIDs(rows []models.VisitModel) [][]string {
	type key struct{ session, page string }
	index := make(map[key]int)
	var groups [][]string
	for _, v := range rows {
		k := key{v.SessionID, v.Page}
		i, ok := index[k]
		if !ok {
			index[k] = len(groups)
			groups = append(groups, []string{v.ID})
			continue
		}
		groups[i] = append(groups[i], v.ID)
	}

	out := make([][]string, 0)
	for _, g := range groups {
		if len(g) > 1 {
			out = append(out, g[1:])
		}
	}
	return out
}
