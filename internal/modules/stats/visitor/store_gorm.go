package visitor

import (
	"context"
	"errors"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/mx-space/footprint/internal/models"
)

// GormStore persists visits in the relational database.
type GormStore struct {
	db *gorm.DB
}

func NewGormStore(db *gorm.DB) *GormStore { return &GormStore{db: db} }

func (s *GormStore) LatestBySessionPage(ctx context.Context, sessionID, page string) (*models.VisitModel, error) {
	var v models.VisitModel
	err := s.db.WithContext(ctx).
		Where("session_id = ? AND page = ?", sessionID, page).
		Order("created_at DESC").
		First(&v).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, storeErr("latest visit", err)
	}
	return &v, nil
}

func (s *GormStore) Create(ctx context.Context, v *models.VisitModel) error {
	if err := s.db.WithContext(ctx).Create(v).Error; err != nil {
		return storeErr("create visit", err)
	}
	return nil
}

func (s *GormStore) Get(ctx context.Context, id string) (*models.VisitModel, error) {
	var v models.VisitModel
	err := s.db.WithContext(ctx).Where("id = ?", id).First(&v).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, storeErr("get visit", err)
	}
	return &v, nil
}

func (s *GormStore) Merge(ctx context.Context, id string, addSeconds int64, at time.Time) error {
	res := s.db.WithContext(ctx).Model(&models.VisitModel{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"time_on_page": gorm.Expr("time_on_page + ?", addSeconds),
			"is_bounce":    false,
			"last_visit":   at,
			"updated_at":   at,
		})
	if res.Error != nil {
		return storeErr("merge visit", res.Error)
	}
	return s.ensureExists(ctx, "merge visit", id, res.RowsAffected)
}

func (s *GormStore) Patch(ctx context.Context, id string, patch VisitPatch, at time.Time) error {
	updates := map[string]any{
		"last_visit": at,
		"updated_at": at,
	}
	if patch.TimeOnPage != nil {
		updates["time_on_page"] = *patch.TimeOnPage
	}
	if patch.SessionTime != nil {
		updates["session_time"] = *patch.SessionTime
	}
	if patch.IsBounce != nil {
		updates["is_bounce"] = *patch.IsBounce
	}
	if patch.Converted != nil {
		updates["converted"] = *patch.Converted
	}
	if patch.ConversionType != nil {
		updates["conversion_type"] = *patch.ConversionType
	}

	res := s.db.WithContext(ctx).Model(&models.VisitModel{}).Where("id = ?", id).Updates(updates)
	if res.Error != nil {
		return storeErr("patch visit", res.Error)
	}
	return s.ensureExists(ctx, "patch visit", id, res.RowsAffected)
}

// ensureExists tells an unchanged row from a missing one: MySQL reports
// changed rows, so an update that writes identical values affects zero.
func (s *GormStore) ensureExists(ctx context.Context, op, id string, affected int64) error {
	if affected > 0 {
		return nil
	}
	var n int64
	if err := s.db.WithContext(ctx).Model(&models.VisitModel{}).Where("id = ?", id).Count(&n).Error; err != nil {
		return storeErr(op, err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *GormStore) UpdateSessionTime(ctx context.Context, sessionID string, sessionTime int64, at time.Time) (int64, error) {
	res := s.db.WithContext(ctx).Model(&models.VisitModel{}).
		Where("session_id = ?", sessionID).
		Updates(map[string]any{
			"session_time": sessionTime,
			"last_visit":   at,
			"updated_at":   at,
		})
	if res.Error != nil {
		return 0, storeErr("update session time", res.Error)
	}
	return res.RowsAffected, nil
}

func (s *GormStore) CreatedBetween(ctx context.Context, start, end time.Time) ([]models.VisitModel, error) {
	return s.find(ctx, "created_at BETWEEN ? AND ?", start, end)
}

func (s *GormStore) CreatedSince(ctx context.Context, since time.Time) ([]models.VisitModel, error) {
	return s.find(ctx, "created_at >= ?", since)
}

func (s *GormStore) ActiveSince(ctx context.Context, since time.Time) ([]models.VisitModel, error) {
	return s.find(ctx, "last_visit >= ?", since)
}

func (s *GormStore) find(ctx context.Context, query string, args ...any) ([]models.VisitModel, error) {
	var rows []models.VisitModel
	if err := s.db.WithContext(ctx).Where(query, args...).Order("created_at ASC").Find(&rows).Error; err != nil {
		return nil, storeErr("query visits", err)
	}
	return rows, nil
}

func (s *GormStore) DeleteCreatedBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res := s.db.WithContext(ctx).Where("created_at < ?", cutoff).Delete(&models.VisitModel{})
	if res.Error != nil {
		return 0, storeErr("delete stale visits", res.Error)
	}
	return res.RowsAffected, nil
}

func (s *GormStore) DeleteIDs(ctx context.Context, ids []string) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	res := s.db.WithContext(ctx).Where("id IN ?", ids).Delete(&models.VisitModel{})
	if res.Error != nil {
		return 0, storeErr("delete visits", res.Error)
	}
	return res.RowsAffected, nil
}

func (s *GormStore) DeleteAll(ctx context.Context) (int64, error) {
	res := s.db.WithContext(ctx).Where("1 = 1").Delete(&models.VisitModel{})
	if res.Error != nil {
		return 0, storeErr("purge visits", res.Error)
	}
	return res.RowsAffected, nil
}

func (s *GormStore) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := s.db.WithContext(ctx).Model(&models.VisitModel{}).Count(&n).Error; err != nil {
		return 0, storeErr("count visits", err)
	}
	return n, nil
}

func (s *GormStore) List(ctx context.Context, q ListQuery) ([]models.VisitModel, int64, error) {
	search := strings.ToLower(strings.TrimSpace(q.Search))
	filtered := func(db *gorm.DB) *gorm.DB {
		if search == "" {
			return db
		}
		like := "%" + escapeLike(search) + "%"
		return db.Where(
			"LOWER(ip) LIKE ? OR LOWER(page) LIKE ? OR LOWER(country) LIKE ? OR LOWER(city) LIKE ?",
			like, like, like, like,
		)
	}

	var total int64
	if err := s.db.WithContext(ctx).Model(&models.VisitModel{}).Scopes(filtered).Count(&total).Error; err != nil {
		return nil, 0, storeErr("count visitors", err)
	}

	var rows []models.VisitModel
	if err := s.db.WithContext(ctx).Scopes(filtered).
		Order("created_at DESC").Offset(q.Offset).Limit(q.Limit).
		Find(&rows).Error; err != nil {
		return nil, 0, storeErr("list visitors", err)
	}
	return rows, total, nil
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string { return likeEscaper.Replace(s) }
