// Package executor drives a single task from "ready to run" to "awaiting
// review" or "failed", delegating the actual work to the external agent
// backend.
package executor

import (
	"context"
	"crypto/sha1"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/sprintloop/sprintloop/internal/agent"
	"github.com/sprintloop/sprintloop/internal/assign"
	"github.com/sprintloop/sprintloop/internal/board"
	sperrors "github.com/sprintloop/sprintloop/internal/errors"
	"github.com/sprintloop/sprintloop/internal/events"
	"github.com/sprintloop/sprintloop/internal/worktree"
)

// ProgressFunc receives progress checkpoints during execution.
type ProgressFunc func(events.ProgressUpdate)

// Executor runs one task end to end. It holds no task state of its own;
// every side effect goes through the board store, so a failed run can be
// retried by calling ExecuteTask again.
type Executor struct {
	store     *board.Store
	backend   agent.Backend
	worktrees *worktree.Manager
	publisher events.Publisher
	logger    *slog.Logger

	autoAssign bool
	agentModel string

	// taskLocks serializes concurrent executions of the same task id.
	mu        sync.Mutex
	taskLocks map[string]*sync.Mutex
}

// Option configures an Executor.
type Option func(*Executor)

// WithWorktrees enables isolated workspaces: each run gets (or reuses) an
// active worktree for the task.
func WithWorktrees(m *worktree.Manager) Option {
	return func(e *Executor) { e.worktrees = m }
}

// WithPublisher sets the progress publisher.
func WithPublisher(p events.Publisher) Option {
	return func(e *Executor) { e.publisher = p }
}

// WithAutoAssign lets the executor suggest an agent role for unassigned
// tasks instead of failing.
func WithAutoAssign(enabled bool) Option {
	return func(e *Executor) { e.autoAssign = enabled }
}

// WithAgentModel sets the model recorded on auto-assigned tasks.
func WithAgentModel(model string) Option {
	return func(e *Executor) { e.agentModel = model }
}

// WithLogger sets the structured logger.
func WithLogger(l *slog.Logger) Option {
	return func(e *Executor) { e.logger = l }
}

// New creates an Executor over the store and agent backend.
func New(store *board.Store, backend agent.Backend, opts ...Option) *Executor {
	e := &Executor{
		store:     store,
		backend:   backend,
		publisher: events.NopPublisher{},
		logger:    slog.Default(),
		taskLocks: make(map[string]*sync.Mutex),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func (e *Executor) lockTask(taskID string) func() {
	e.mu.Lock()
	l, ok := e.taskLocks[taskID]
	if !ok {
		l = &sync.Mutex{}
		e.taskLocks[taskID] = l
	}
	e.mu.Unlock()

	l.Lock()
	return l.Unlock
}

func (e *Executor) progress(onProgress ProgressFunc, taskID string, pct int, status board.Status, step, output string) {
	update := events.ProgressUpdate{
		TaskID:      taskID,
		Progress:    pct,
		Status:      string(status),
		CurrentStep: step,
		Output:      output,
		Timestamp:   time.Now(),
	}
	e.publisher.Publish(update)
	if onProgress != nil {
		onProgress(update)
	}
}

// ExecuteTask runs the task to completion. On success the task lands in
// review; on backend failure it stays in progress with status failed so it
// can be rerun.
func (e *Executor) ExecuteTask(ctx context.Context, taskID string, onProgress ProgressFunc) error {
	unlock := e.lockTask(taskID)
	defer unlock()

	task, err := e.store.GetTask(taskID)
	if err != nil {
		return err
	}

	if task.AssignedAgent == "" {
		if !e.autoAssign {
			return sperrors.ErrAgentUnassigned(taskID)
		}
		role := assign.SuggestRole(task.Title, task.Description)
		if task, err = e.store.AssignAgent(taskID, role, e.agentModel); err != nil {
			return err
		}
		e.logger.Info("agent auto-assigned", "task_id", taskID, "role", role)
	}

	if _, err := e.store.StartTask(taskID); err != nil {
		return err
	}
	e.progress(onProgress, taskID, 0, board.StatusRunning, "Starting agent...", "")

	if err := e.ensureWorktree(ctx, task); err != nil {
		return e.fail(onProgress, taskID, "Error", err)
	}

	descriptor, err := e.backend.CreateTask(ctx, task.Title, task.Description, string(task.Priority), task.AssignedAgent)
	if err != nil {
		return e.fail(onProgress, taskID, "Error", sperrors.ErrBackendFailed(taskID, err.Error()).WithCause(err))
	}
	e.progress(onProgress, taskID, 10, board.StatusRunning, "Agent assigned", "")

	results, err := e.backend.ExecuteChain(ctx, []agent.TaskDescriptor{descriptor})
	if err != nil {
		return e.fail(onProgress, taskID, "Error", sperrors.ErrBackendFailed(taskID, err.Error()).WithCause(err))
	}
	if len(results) != 1 {
		err := fmt.Errorf("backend returned %d results for 1 descriptor", len(results))
		return e.fail(onProgress, taskID, "Error", sperrors.ErrBackendFailed(taskID, err.Error()).WithCause(err))
	}

	result := results[0]
	if !result.Success {
		if _, serr := e.store.SetStatus(taskID, board.StatusFailed); serr != nil {
			return serr
		}
		output := strings.Join(result.Errors, "; ")
		e.progress(onProgress, taskID, 0, board.StatusFailed, "Failed", output)
		e.logger.Warn("agent run failed", "task_id", taskID, "errors", output)
		return nil
	}

	if err := e.recordChanges(ctx, task, result); err != nil {
		return e.fail(onProgress, taskID, "Error", err)
	}

	e.progress(onProgress, taskID, 90, board.StatusRunning, "Submitting for review...", "")
	if _, err := e.store.SubmitForReview(taskID); err != nil {
		return err
	}
	e.progress(onProgress, taskID, 100, board.StatusAwaitingReview, "Ready for review", result.Output)
	e.logger.Info("task ready for review", "task_id", taskID, "files", len(result.FilesModified))
	return nil
}

// ensureWorktree gives the task an active worktree when a manager is
// configured. An existing active worktree is reused.
func (e *Executor) ensureWorktree(ctx context.Context, task *board.Task) error {
	if e.worktrees == nil {
		return nil
	}

	if _, err := e.worktrees.Get(task.ID); err == nil {
		return nil
	} else if !sperrors.IsCode(err, sperrors.CodeWorktreeNotFound) {
		return err
	}

	wt, err := e.worktrees.Create(ctx, task.ID, task.GitBranch)
	if err != nil {
		return err
	}
	_, err = e.store.SetWorktreeRef(task.ID, wt.ID, wt.Branch)
	return err
}

// recordChanges appends one commit record per modified file, authored by
// the assigned role. With a worktree configured, the changes are also
// committed on the task's branch.
func (e *Executor) recordChanges(ctx context.Context, task *board.Task, result agent.Result) error {
	var branchSHA string
	if e.worktrees != nil && len(result.FilesModified) > 0 {
		info, err := e.worktrees.Commit(ctx, task.ID, fmt.Sprintf("Apply agent changes for %s", task.Title), result.FilesModified)
		if err != nil {
			return err
		}
		branchSHA = info.SHA
	}

	for _, file := range result.FilesModified {
		sha := branchSHA
		if sha == "" {
			sha = syntheticSHA(task.ID, file)
		}
		commit := board.Commit{
			SHA:          sha,
			Message:      fmt.Sprintf("Update %s", file),
			Author:       task.AssignedAgent,
			Timestamp:    time.Now(),
			FilesChanged: []string{file},
		}
		if _, err := e.store.AddCommit(task.ID, commit); err != nil {
			return err
		}
	}
	return nil
}

// syntheticSHA derives a stable pseudo-sha for commit records when no real
// repository is attached.
func syntheticSHA(taskID, file string) string {
	sum := sha1.Sum([]byte(taskID + ":" + file))
	return fmt.Sprintf("%x", sum)
}

// fail marks the task failed, emits the failure checkpoint, and returns
// err so callers can log or alert. The column is left untouched: a failed
// task stays actionable.
func (e *Executor) fail(onProgress ProgressFunc, taskID, step string, err error) error {
	if _, serr := e.store.SetStatus(taskID, board.StatusFailed); serr != nil {
		e.logger.Error("failed to mark task failed", "task_id", taskID, "error", serr)
	}
	e.progress(onProgress, taskID, 0, board.StatusFailed, step, err.Error())
	return err
}
