package visitor

import (
	"context"

	"github.com/mx-space/footprint/internal/models"
)

const (
	DefaultRecentLimit = 20
	maxRecentLimit     = 200
)

// Recent returns the newest visits, capped at limit.
func (e *Engine) Recent(ctx context.Context, limit int) ([]models.VisitModel, error) {
	if limit <= 0 {
		limit = DefaultRecentLimit
	}
	if limit > maxRecentLimit {
		limit = maxRecentLimit
	}
	rows, _, err := e.store.List(ctx, ListQuery{Limit: limit})
	if err != nil {
		return nil, storeErr("recent visits", err)
	}
	return rows, nil
}

// List returns one page of the visitor list and the total number of matches.
func (e *Engine) List(ctx context.Context, q ListQuery) ([]models.VisitModel, int64, error) {
	rows, total, err := e.store.List(ctx, q)
	if err != nil {
		return nil, 0, storeErr("list visitors", err)
	}
	return rows, total, nil
}

// withoutUserAgent blanks the raw user agent before rows leave the admin API.
func withoutUserAgent(rows []models.VisitModel) []models.VisitModel {
	out := make([]models.VisitModel, len(rows))
	for i, v := range rows {
		v.UserAgent = ""
		out[i] = v
	}
	return out
}
