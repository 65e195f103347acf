package visitor

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mx-space/footprint/internal/models"
)

func TestMemoryStoreReturnsCopies(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	v := &models.VisitModel{SessionID: "s", Page: "/"}
	require.NoError(t, store.Create(ctx, v))

	got, err := store.Get(ctx, v.ID)
	require.NoError(t, err)
	got.TimeOnPage = 99

	again, err := store.Get(ctx, v.ID)
	require.NoError(t, err)
	assert.Zero(t, again.TimeOnPage)
}

func TestMemoryStoreRangesAreOrdered(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for _, offset := range []time.Duration{3, 1, 2} {
		v := &models.VisitModel{SessionID: "s", Page: "/"}
		v.CreatedAt = base.Add(offset * time.Minute)
		require.NoError(t, store.Create(ctx, v))
	}

	rows, err := store.CreatedBetween(ctx, base.Add(time.Minute), base.Add(2*time.Minute))
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.True(t, rows[0].CreatedAt.Before(rows[1].CreatedAt))

	latest, err := store.LatestBySessionPage(ctx, "s", "/")
	require.NoError(t, err)
	assert.Equal(t, base.Add(3*time.Minute), latest.CreatedAt)
}

func TestMemoryStoreMissing(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	_, err := store.Get(ctx, "x")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, store.Merge(ctx, "x", 1, time.Now()), ErrNotFound)
	assert.ErrorIs(t, store.Patch(ctx, "x", VisitPatch{}, time.Now()), ErrNotFound)

	v, err := store.LatestBySessionPage(ctx, "s", "/")
	require.NoError(t, err)
	assert.Nil(t, v)
}

func TestMemoryStoreListBeyondEnd(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	require.NoError(t, store.Create(ctx, &models.VisitModel{SessionID: "s", Page: "/"}))

	rows, total, err := store.List(ctx, ListQuery{Offset: 50, Limit: 50})
	require.NoError(t, err)
	assert.Empty(t, rows)
	assert.EqualValues(t, 1, total)
}
