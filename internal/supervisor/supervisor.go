// Package supervisor implements spec §5's cancellation model: a single
// shutdown flag observed by every task, plus task-group lifecycle
// management so the top-level driver can await every task before closing
// the database pool.
package supervisor

import (
	"context"
	"sync"

	"golang.org/x/sync/errgroup"
)

// Supervisor owns the process-wide shutdown signal and the set of
// long-lived tasks derived from it. Every task receives a context that is
// cancelled exactly once, when Shutdown is called or any task returns a
// non-nil error (errgroup's standard "first error cancels the rest").
type Supervisor struct {
	group  *errgroup.Group
	ctx    context.Context
	cancel context.CancelFunc

	mu       sync.Mutex
	shutdown bool
}

// New creates a Supervisor rooted at parent.
func New(parent context.Context) *Supervisor {
	ctx, cancel := context.WithCancel(parent)
	group, ctx := errgroup.WithContext(ctx)
	return &Supervisor{group: group, ctx: ctx, cancel: cancel}
}

// Go launches fn as a supervised task. fn must return promptly once its
// context is cancelled (spec §5: "each task drains its current event and
// exits").
func (s *Supervisor) Go(fn func(ctx context.Context) error) {
	s.group.Go(func() error {
		return fn(s.ctx)
	})
}

// Context returns the supervisor's root context, cancelled on shutdown.
func (s *Supervisor) Context() context.Context {
	return s.ctx
}

// ShuttingDown reports whether Shutdown has been called, for tasks that
// need to check the flag synchronously between select iterations rather
// than via ctx.Done() (spec §5 "a single shutdown flag").
func (s *Supervisor) ShuttingDown() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.shutdown
}

// Shutdown flips the shutdown flag and cancels every task's context. It
// does not block; call Wait afterwards to await drain.
func (s *Supervisor) Shutdown() {
	s.mu.Lock()
	s.shutdown = true
	s.mu.Unlock()
	s.cancel()
}

// Wait blocks until every supervised task has returned, then returns the
// first non-nil error any of them produced (context.Canceled from a clean
// shutdown is not an error worth propagating).
func (s *Supervisor) Wait() error {
	err := s.group.Wait()
	if err == context.Canceled {
		return nil
	}
	return err
}
