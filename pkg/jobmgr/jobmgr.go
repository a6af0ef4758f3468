// Package jobmgr runs named background jobs with cancellation and in-memory
// tracking of what is running.
//
// Typical usage:
//
//	jm := jobmgr.NewManager(ctx, logger)
//
//	err := jm.Every("cooldown-sweep", time.Hour, func(ctx context.Context) error {
//	    tracker.Sweep()
//	    return nil
//	})
//
//	// on shutdown
//	jm.StopAll()
//
// Jobs run in their own goroutines and are removed once they return.
package jobmgr

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
)

var ErrStopped = errors.New("jobmgr: manager stopped")

// Runner is the body of a job. It must return once ctx is cancelled.
type Runner func(ctx context.Context) error

type job struct {
	name    string
	started time.Time
	cancel  context.CancelFunc
}

// Manager starts, stops and tracks jobs. It is safe for concurrent use.
type Manager struct {
	ctx    context.Context
	cancel context.CancelFunc
	logger *zap.Logger

	mu   sync.Mutex
	jobs map[string]*job
	wg   sync.WaitGroup
}

// NewManager creates a Manager whose jobs are cancelled when parent is.
func NewManager(parent context.Context, logger *zap.Logger) *Manager {
	if logger == nil {
		logger = zap.NewNop()
	}
	ctx, cancel := context.WithCancel(parent)
	return &Manager{
		ctx:    ctx,
		cancel: cancel,
		logger: logger.Named("jobs"),
		jobs:   make(map[string]*job),
	}
}

// Start runs a job in a separate goroutine and returns immediately. Starting
// a job whose name is already running is an error.
func (m *Manager) Start(name string, run Runner) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.ctx.Err() != nil {
		return ErrStopped
	}
	if _, exists := m.jobs[name]; exists {
		return fmt.Errorf("job '%s' is already running", name)
	}

	ctx, cancel := context.WithCancel(m.ctx)
	j := &job{name: name, started: time.Now(), cancel: cancel}
	m.jobs[name] = j
	m.wg.Add(1)

	go func() {
		defer m.wg.Done()
		defer cancel()
		m.logger.Debug("Job running", zap.String("job", name))

		err := run(ctx)
		switch {
		case err != nil && !errors.Is(err, context.Canceled):
			m.logger.Error("Job failed", zap.String("job", name), zap.Error(err))
		default:
			m.logger.Debug("Job done", zap.String("job", name))
		}

		m.mu.Lock()
		if m.jobs[name] == j {
			delete(m.jobs, name)
		}
		m.mu.Unlock()
	}()
	return nil
}

// Every starts a job that calls fn once per interval until stopped. An
// error from fn is logged and does not stop the job.
func (m *Manager) Every(name string, interval time.Duration, fn Runner) error {
	if interval <= 0 {
		return fmt.Errorf("job '%s': interval must be positive", name)
	}
	return m.Start(name, func(ctx context.Context) error {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return nil
			case <-ticker.C:
				if err := fn(ctx); err != nil {
					m.logger.Warn("Periodic job run failed", zap.String("job", name), zap.Error(err))
				}
			}
		}
	})
}

// Stop cancels a running job by name.
func (m *Manager) Stop(name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	j, ok := m.jobs[name]
	if !ok {
		return fmt.Errorf("job '%s' not running", name)
	}
	j.cancel()
	delete(m.jobs, name)
	return nil
}

// StopAll cancels every job, refuses new ones and waits for running jobs to
// return.
func (m *Manager) StopAll() {
	m.mu.Lock()
	m.cancel()
	m.mu.Unlock()
	m.wg.Wait()
}

// List returns the names of running jobs, sorted.
func (m *Manager) List() []string {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]string, 0, len(m.jobs))
	for k := range m.jobs {
		out = append(out, k)
	}
	slices.Sort(out)
	return out
}

// Status returns a human-readable summary of running jobs, e.g.
// "Running jobs: cooldown-sweep, settings-watch".
func (m *Manager) Status() string {
	active := m.List()
	if len(active) == 0 {
		return "No jobs are running."
	}
	return fmt.Sprintf("Running jobs: %s", strings.Join(active, ", "))
}
