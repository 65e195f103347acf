package visitor

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/coder/quartz"
	"github.com/stretchr/testify/require"

	"github.com/mx-space/footprint/internal/models"
)

var epoch = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

type fixture struct {
	store     *MemoryStore
	clock     *quartz.Mock
	svc       *Service
	engine    *Engine
	retention *Retention
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	clock := quartz.NewMock(t)
	clock.Set(epoch)
	store := NewMemoryStore()
	return &fixture{
		store:     store,
		clock:     clock,
		svc:       NewService(store, WithClock(clock)),
		engine:    NewEngine(store, WithClock(clock)),
		retention: NewRetention(store, WithClock(clock)),
	}
}

// seed inserts a visit created at the given offset from the fixture's clock.
func (f *fixture) seed(t *testing.T, ago time.Duration, mutate func(*models.VisitModel)) *models.VisitModel {
	t.Helper()
	at := f.clock.Now().Add(-ago)
	v := &models.VisitModel{
		IP:        "10.0.0.1",
		SessionID: "s-seed",
		Page:      "/",
		Device:    models.DeviceDesktop,
		IsBounce:  true,
		Referrer:  models.DefaultReferrer,
		LastVisit: at,
	}
	v.CreatedAt = at
	if mutate != nil {
		mutate(v)
	}
	require.NoError(t, f.store.Create(context.Background(), v))
	return v
}

func ptr[T any](v T) *T { return &v }

func sessionName(i int) string { return fmt.Sprintf("session-%d", i) }
