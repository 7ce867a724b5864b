// Package goroutine runs background work (consumers, post-verification
// side effects) under a shared limit so shutdown can wait for it.
package goroutine

import (
	"context"
	"errors"
	"log/slog"
	"runtime"
	"sync"
	"sync/atomic"

	"github.com/shandysiswandi/bgvotp/internal/pkg/stacktrace"
	"golang.org/x/sync/errgroup"
)

// DefaultPerCPU is multiplied by the CPU count when no limit is configured.
const DefaultPerCPU = 100

type Manager struct {
	group  errgroup.Group
	closed atomic.Bool

	mu   sync.Mutex
	errs []error
}

func NewManager(limit int) *Manager {
	if limit < 1 {
		limit = runtime.NumCPU() * DefaultPerCPU
	}

	m := &Manager{}
	m.group.SetLimit(limit)
	return m
}

// Go runs f unless the manager is closed or full, in which case f is dropped
// with a warning. Errors and panics from f are collected for Wait.
func (m *Manager) Go(ctx context.Context, f func(ctx context.Context) error) {
	if m == nil {
		return
	}
	if m.closed.Load() {
		slog.WarnContext(ctx, "goroutine manager is closed, task dropped")
		return
	}

	started := m.group.TryGo(func() error {
		defer func() {
			if rvr := recover(); rvr != nil {
				slog.ErrorContext(ctx, "panic in background task", "panic", rvr, stacktrace.Attr())
				m.collect(errors.New("goroutine: task panicked"))
			}
		}()

		if err := ctx.Err(); err != nil {
			slog.WarnContext(ctx, "background task skipped", "because", err)
			return nil
		}
		m.collect(f(ctx))
		return nil
	})
	if !started {
		slog.WarnContext(ctx, "goroutine limit reached, task dropped")
	}
}

func (m *Manager) collect(err error) {
	if err == nil {
		return
	}
	m.mu.Lock()
	m.errs = append(m.errs, err)
	m.mu.Unlock()
}

// Wait stops accepting tasks, waits for running ones and joins their errors.
func (m *Manager) Wait() error {
	if m == nil {
		return nil
	}

	m.closed.Store(true)
	//nolint:errcheck // tasks never return an error to the group
	_ = m.group.Wait()

	m.mu.Lock()
	defer m.mu.Unlock()
	return errors.Join(m.errs...)
}
