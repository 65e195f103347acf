package visitor

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/mx-space/footprint/internal/models"
)

// MemoryStore keeps visits in process. Each call holds the lock for its own
// duration only, so callers see the same interleavings as with a real database.
type MemoryStore struct {
	mu     sync.RWMutex
	visits []*models.VisitModel
}

func NewMemoryStore() *MemoryStore { return &MemoryStore{} }

func (s *MemoryStore) LatestBySessionPage(_ context.Context, sessionID, page string) (*models.VisitModel, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var latest *models.VisitModel
	for _, v := range s.visits {
		if v.SessionID != sessionID || v.Page != page {
			continue
		}
		if latest == nil || !v.CreatedAt.Before(latest.CreatedAt) {
			latest = v
		}
	}
	if latest == nil {
		return nil, nil
	}
	out := *latest
	return &out, nil
}

func (s *MemoryStore) Create(_ context.Context, v *models.VisitModel) error {
	v.EnsureID()
	if v.CreatedAt.IsZero() {
		v.CreatedAt = time.Now()
	}
	if v.UpdatedAt.IsZero() {
		v.UpdatedAt = v.CreatedAt
	}
	row := *v

	s.mu.Lock()
	s.visits = append(s.visits, &row)
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) Get(_ context.Context, id string) (*models.VisitModel, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v := s.find(id)
	if v == nil {
		return nil, ErrNotFound
	}
	out := *v
	return &out, nil
}

func (s *MemoryStore) Merge(_ context.Context, id string, addSeconds int64, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	v := s.find(id)
	if v == nil {
		return ErrNotFound
	}
	v.TimeOnPage += addSeconds
	v.IsBounce = false
	v.LastVisit = at
	v.UpdatedAt = at
	return nil
}

func (s *MemoryStore) Patch(_ context.Context, id string, patch VisitPatch, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	v := s.find(id)
	if v == nil {
		return ErrNotFound
	}
	if patch.TimeOnPage != nil {
		v.TimeOnPage = *patch.TimeOnPage
	}
	if patch.SessionTime != nil {
		v.SessionTime = *patch.SessionTime
	}
	if patch.IsBounce != nil {
		v.IsBounce = *patch.IsBounce
	}
	if patch.Converted != nil {
		v.Converted = *patch.Converted
	}
	if patch.ConversionType != nil {
		v.ConversionType = *patch.ConversionType
	}
	v.LastVisit = at
	v.UpdatedAt = at
	return nil
}

func (s *MemoryStore) UpdateSessionTime(_ context.Context, sessionID string, sessionTime int64, at time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for _, v := range s.visits {
		if v.SessionID != sessionID {
			continue
		}
		v.SessionTime = sessionTime
		v.LastVisit = at
		v.UpdatedAt = at
		n++
	}
	return n, nil
}

func (s *MemoryStore) CreatedBetween(_ context.Context, start, end time.Time) ([]models.VisitModel, error) {
	return s.collect(func(v *models.VisitModel) bool {
		return !v.CreatedAt.Before(start) && !v.CreatedAt.After(end)
	}), nil
}

func (s *MemoryStore) CreatedSince(_ context.Context, since time.Time) ([]models.VisitModel, error) {
	return s.collect(func(v *models.VisitModel) bool {
		return !v.CreatedAt.Before(since)
	}), nil
}

func (s *MemoryStore) ActiveSince(_ context.Context, since time.Time) ([]models.VisitModel, error) {
	return s.collect(func(v *models.VisitModel) bool {
		return !v.LastVisit.Before(since)
	}), nil
}

func (s *MemoryStore) DeleteCreatedBefore(_ context.Context, cutoff time.Time) (int64, error) {
	return s.remove(func(v *models.VisitModel) bool { return v.CreatedAt.Before(cutoff) }), nil
}

func (s *MemoryStore) DeleteIDs(_ context.Context, ids []string) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	set := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return s.remove(func(v *models.VisitModel) bool {
		_, ok := set[v.ID]
		return ok
	}), nil
}

func (s *MemoryStore) DeleteAll(_ context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := int64(len(s.visits))
	s.visits = nil
	return n, nil
}

func (s *MemoryStore) Count(_ context.Context) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return int64(len(s.visits)), nil
}

func (s *MemoryStore) List(_ context.Context, q ListQuery) ([]models.VisitModel, int64, error) {
	needle := strings.ToLower(strings.TrimSpace(q.Search))
	rows := s.collect(func(v *models.VisitModel) bool {
		if needle == "" {
			return true
		}
		for _, field := range []string{v.IP, v.Page, v.Country, v.City} {
			if strings.Contains(strings.ToLower(field), needle) {
				return true
			}
		}
		return false
	})
	sort.SliceStable(rows, func(i, j int) bool { return rows[i].CreatedAt.After(rows[j].CreatedAt) })

	total := int64(len(rows))
	start := q.Offset
	if start < 0 {
		start = 0
	}
	if start > len(rows) {
		start = len(rows)
	}
	end := len(rows)
	if q.Limit > 0 && start+q.Limit < end {
		end = start + q.Limit
	}
	return rows[start:end], total, nil
}

func (s *MemoryStore) find(id string) *models.VisitModel {
	for _, v := range s.visits {
		if v.ID == id {
			return v
		}
	}
	return nil
}

// collect copies matching rows ordered by createdAt, insertion order breaking ties.
func (s *MemoryStore) collect(match func(*models.VisitModel) bool) []models.VisitModel {
	s.mu.RLock()
	out := make([]models.VisitModel, 0, len(s.visits))
	for _, v := range s.visits {
		if match(v) {
			out = append(out, *v)
		}
	}
	s.mu.RUnlock()
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out
}

func (s *MemoryStore) remove(match func(*models.VisitModel) bool) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	kept := s.visits[:0]
	var n int64
	for _, v := range s.visits {
		if match(v) {
			n++
			continue
		}
		kept = append(kept, v)
	}
	s.visits = kept
	return n
}
