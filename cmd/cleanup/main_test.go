package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/coder/quartz"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mx-space/footprint/internal/config"
	"github.com/mx-space/footprint/internal/models"
	"github.com/mx-space/footprint/internal/modules/stats/visitor"
)

func TestReport(t *testing.T) {
	ctx := t.Context()
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	clock := quartz.NewMock(t)
	clock.Set(now)

	store := visitor.NewMemoryStore()
	add := func(session string, ago time.Duration) {
		v := &models.VisitModel{IP: "10.0.0.1", SessionID: session, Page: "/"}
		v.CreatedAt = now.Add(-ago)
		require.NoError(t, store.Create(ctx, v))
	}
	add("old", 3*time.Hour)
	add("dup", 2*time.Minute)
	add("dup", time.Minute)
	add("solo", 30*time.Second)

	var out bytes.Buffer
	err := report(ctx, &out,
		visitor.NewRetention(store, visitor.WithClock(clock)),
		visitor.NewEngine(store, visitor.WithClock(clock)),
	)
	require.NoError(t, err)

	text := out.String()
	assert.Contains(t, text, "Deleted 1 stale records")
	assert.Contains(t, text, "Deleted 1 duplicate records")
	assert.Contains(t, text, "Remaining records: 2")
	assert.Contains(t, text, "Most recent 2 visits:")
	assert.Contains(t, text, `"sessionId": "solo"`)
}

func TestNewLoggerWritesDailyFile(t *testing.T) {
	dir := t.TempDir()
	cfg, err := config.Parse([]byte("env: production\npaths:\n  logs: "+dir+"\n"), nil)
	require.NoError(t, err)

	logger := newLogger(cfg)
	logger.Info("cleanup started")
	_ = logger.Sync()

	files, err := filepath.Glob(filepath.Join(dir, "footprint_*.log"))
	require.NoError(t, err)
	require.Len(t, files, 1)
	data, err := os.ReadFile(files[0])
	require.NoError(t, err)
	assert.Contains(t, string(data), `"msg":"cleanup started"`)
	assert.Contains(t, string(data), `"logger":"Cleanup"`)
}
