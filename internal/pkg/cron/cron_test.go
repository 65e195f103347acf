package cron

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestRunRecordsOutcome(t *testing.T) {
	s := New(zap.NewNop())
	var calls atomic.Int32
	require.NoError(t, s.Register(Job{
		Name:     "ok",
		Interval: time.Hour,
		Fn: func(context.Context) error {
			calls.Add(1)
			return nil
		},
	}))
	require.NoError(t, s.Register(Job{
		Name:     "broken",
		Interval: time.Hour,
		Fn:       func(context.Context) error { return errors.New("store down") },
	}))

	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, s.Run(ctx, "ok"))
	require.NoError(t, s.Run(ctx, "broken"))
	cancel()

	assert.Eventually(t, func() bool {
		res, err := s.GetTask("ok")
		return err == nil && res.Status == StatusFulfill
	}, time.Second, 5*time.Millisecond)
	assert.Eventually(t, func() bool {
		res, err := s.GetTask("broken")
		return err == nil && res.Status == StatusReject && res.Message == "store down"
	}, time.Second, 5*time.Millisecond)
	assert.EqualValues(t, 1, calls.Load())
}

func TestRunKeepsJobContextAlive(t *testing.T) {
	s := New(nil)
	done := make(chan error, 1)
	require.NoError(t, s.Register(Job{
		Name:     "ctx",
		Interval: time.Hour,
		Fn: func(ctx context.Context) error {
			done <- ctx.Err()
			return nil
		},
	}))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.NoError(t, s.Run(ctx, "ctx"))
	assert.NoError(t, <-done)
}

func TestRegisterValidates(t *testing.T) {
	s := New(nil)
	noop := func(context.Context) error { return nil }

	assert.Error(t, s.Register(Job{Name: "nofn", Interval: time.Minute}))
	assert.Error(t, s.Register(Job{Name: "nosched", Fn: noop}))
	assert.Error(t, s.Register(Job{Name: "badspec", Spec: "every tuesday", Fn: noop}))
	require.NoError(t, s.Register(Job{Name: "dup", Interval: time.Minute, Fn: noop}))
	assert.Error(t, s.Register(Job{Name: "dup", Interval: time.Minute, Fn: noop}))
}

func TestUnknownJob(t *testing.T) {
	s := New(nil)
	assert.Error(t, s.Run(context.Background(), "missing"))
	_, err := s.GetTask("missing")
	assert.Error(t, err)
}

func TestListReportsNextRun(t *testing.T) {
	s := New(nil)
	noop := func(context.Context) error { return nil }
	require.NoError(t, s.Register(Job{Name: "b", Interval: time.Hour, Fn: noop}))
	require.NoError(t, s.Register(Job{Name: "a", Spec: "@every 30m", Fn: noop}))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	s.Start(ctx)

	items := s.List()
	require.Len(t, items, 2)
	assert.Equal(t, "a", items[0].Name)
	assert.Equal(t, "@every 30m", items[0].Schedule)
	assert.Equal(t, "@every 1h0m0s", items[1].Schedule)
	require.NotNil(t, items[1].NextDate)
	assert.WithinDuration(t, time.Now().Add(time.Hour), *items[1].NextDate, 5*time.Second)
	assert.Equal(t, StatusIdle, items[1].Status)
}
