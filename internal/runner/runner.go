// Package runner executes many tasks concurrently and reports per-task
// success. Partial success is the expected outcome: one task failing never
// aborts the others.
package runner

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/sprintloop/sprintloop/internal/board"
	"github.com/sprintloop/sprintloop/internal/executor"
)

// Runner fans task executions out across a bounded pool of goroutines.
type Runner struct {
	store  *board.Store
	exec   *executor.Executor
	logger *slog.Logger
	limit  int
}

// Option configures a Runner.
type Option func(*Runner)

// WithLimit bounds how many tasks run at once. Zero or negative means
// unbounded.
func WithLimit(n int) Option {
	return func(r *Runner) { r.limit = n }
}

// WithLogger sets the structured logger.
func WithLogger(l *slog.Logger) Option {
	return func(r *Runner) { r.logger = l }
}

// New creates a Runner over exec. The store is consulted after each run to
// decide success.
func New(store *board.Store, exec *executor.Executor, opts ...Option) *Runner {
	r := &Runner{
		store:  store,
		exec:   exec,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// RunAll executes every task id concurrently and returns task id -> success.
// Progress callbacks stay tagged with their task's id, so one callback can
// multiplex all of them. A task's error or panic is recorded as false; the
// other tasks keep running.
func (r *Runner) RunAll(ctx context.Context, taskIDs []string, onProgress executor.ProgressFunc) map[string]bool {
	results := make(map[string]bool, len(taskIDs))
	var mu sync.Mutex

	g, ctx := errgroup.WithContext(ctx)
	if r.limit > 0 {
		g.SetLimit(r.limit)
	}

	for _, id := range taskIDs {
		id := id
		g.Go(func() error {
			ok := r.runOne(ctx, id, onProgress)
			mu.Lock()
			results[id] = ok
			mu.Unlock()
			return nil
		})
	}

	// Goroutines never return errors; failures land in the result map.
	_ = g.Wait()
	return results
}

func (r *Runner) runOne(ctx context.Context, taskID string, onProgress executor.ProgressFunc) (ok bool) {
	defer func() {
		if rec := recover(); rec != nil {
			r.logger.Error("task execution panicked", "task_id", taskID, "panic", fmt.Sprint(rec))
			ok = false
		}
	}()

	if err := r.exec.ExecuteTask(ctx, taskID, onProgress); err != nil {
		r.logger.Warn("task execution failed", "task_id", taskID, "error", err)
		return false
	}

	// A backend-reported failure is not a thrown error, but it is still not
	// a success: the task record says which it was.
	task, err := r.store.GetTask(taskID)
	if err != nil {
		return false
	}
	return task.Status == board.StatusAwaitingReview
}
