package jobmgr

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestStartStop(t *testing.T) {
	defer goleak.VerifyNone(t)

	m := NewManager(context.Background(), nil)
	started := make(chan struct{})
	require.NoError(t, m.Start("watch", func(ctx context.Context) error {
		close(started)
		<-ctx.Done()
		return ctx.Err()
	}))
	<-started

	assert.Error(t, m.Start("watch", func(context.Context) error { return nil }))
	assert.Equal(t, []string{"watch"}, m.List())
	assert.Equal(t, "Running jobs: watch", m.Status())

	require.NoError(t, m.Stop("watch"))
	assert.Error(t, m.Stop("watch"))
	assert.Equal(t, "No jobs are running.", m.Status())
	m.StopAll()
}

func TestFinishedJobsAreRemoved(t *testing.T) {
	defer goleak.VerifyNone(t)

	m := NewManager(context.Background(), nil)
	require.NoError(t, m.Start("once", func(context.Context) error { return errors.New("failed") }))
	require.Eventually(t, func() bool { return len(m.List()) == 0 }, time.Second, 5*time.Millisecond)

	// the name is free again
	require.NoError(t, m.Start("once", func(context.Context) error { return nil }))
	m.StopAll()
}

func TestEvery(t *testing.T) {
	defer goleak.VerifyNone(t)

	m := NewManager(context.Background(), nil)
	var runs atomic.Int32
	require.NoError(t, m.Every("tick", 5*time.Millisecond, func(context.Context) error {
		if runs.Add(1) == 1 {
			return errors.New("first run fails")
		}
		return nil
	}))
	require.Eventually(t, func() bool { return runs.Load() >= 3 }, time.Second, 5*time.Millisecond)

	assert.Error(t, m.Every("bad", 0, func(context.Context) error { return nil }))
	m.StopAll()
	assert.Empty(t, m.List())
}

func TestStopAllRefusesNewJobs(t *testing.T) {
	defer goleak.VerifyNone(t)

	ctx, cancel := context.WithCancel(context.Background())
	m := NewManager(ctx, nil)
	done := make(chan struct{})
	require.NoError(t, m.Start("wait", func(ctx context.Context) error {
		<-ctx.Done()
		close(done)
		return nil
	}))

	cancel()
	<-done
	m.StopAll()
	assert.ErrorIs(t, m.Start("late", func(context.Context) error { return nil }), ErrStopped)
}
