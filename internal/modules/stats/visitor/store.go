package visitor

import (
	"context"
	"time"

	"github.com/mx-space/footprint/internal/models"
)

// Store is the durable collection of visit records.
//
// Single-record writes (Create, Merge, Patch) are atomic at the record level.
// Nothing spanning several records is transactional.
type Store interface {
	// LatestBySessionPage returns the most recently created visit for the pair, or nil.
	LatestBySessionPage(ctx context.Context, sessionID, page string) (*models.VisitModel, error)
	Create(ctx context.Context, v *models.VisitModel) error
	Get(ctx context.Context, id string) (*models.VisitModel, error)
	// Merge adds seconds to timeOnPage, clears isBounce and stamps lastVisit.
	Merge(ctx context.Context, id string, addSeconds int64, at time.Time) error
	Patch(ctx context.Context, id string, patch VisitPatch, at time.Time) error
	// UpdateSessionTime overwrites sessionTime on every record of the session.
	UpdateSessionTime(ctx context.Context, sessionID string, sessionTime int64, at time.Time) (int64, error)

	// CreatedBetween returns records with start <= createdAt <= end, oldest first.
	CreatedBetween(ctx context.Context, start, end time.Time) ([]models.VisitModel, error)
	// CreatedSince returns records with createdAt >= since, oldest first.
	CreatedSince(ctx context.Context, since time.Time) ([]models.VisitModel, error)
	// ActiveSince returns records with lastVisit >= since, oldest first.
	ActiveSince(ctx context.Context, since time.Time) ([]models.VisitModel, error)

	DeleteCreatedBefore(ctx context.Context, cutoff time.Time) (int64, error)
	DeleteIDs(ctx context.Context, ids []string) (int64, error)
	DeleteAll(ctx context.Context) (int64, error)
	Count(ctx context.Context) (int64, error)

	// List returns one page of records, newest first, and the total matching count.
	List(ctx context.Context, q ListQuery) ([]models.VisitModel, int64, error)
}

// VisitPatch carries the fields an explicit update may overwrite. Nil means absent.
type VisitPatch struct {
	TimeOnPage     *int64
	SessionTime    *int64
	IsBounce       *bool
	Converted      *bool
	ConversionType *string
}

// Empty reports whether no field is present.
func (p VisitPatch) Empty() bool {
	return p.TimeOnPage == nil && p.SessionTime == nil && p.IsBounce == nil &&
		p.Converted == nil && p.ConversionType == nil
}

// ListQuery selects a page of the visitor list. Search matches ip, page, country
// or city as a case-insensitive substring.
type ListQuery struct {
	Search string
	Offset int
	Limit  int
}
