package executor

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sprintloop/sprintloop/internal/agent"
	"github.com/sprintloop/sprintloop/internal/board"
	sperrors "github.com/sprintloop/sprintloop/internal/errors"
	"github.com/sprintloop/sprintloop/internal/events"
	"github.com/sprintloop/sprintloop/internal/vcs"
	"github.com/sprintloop/sprintloop/internal/worktree"
)

type fixture struct {
	store   *board.Store
	backend *agent.Fake
	exec    *Executor
	boardID string
}

func newFixture(t *testing.T, opts ...Option) *fixture {
	t.Helper()

	var ids int
	base := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	var ticks int
	store := board.NewStore(
		board.WithIDFunc(func() string {
			ids++
			return fmt.Sprintf("task-%03d", ids)
		}),
		board.WithClock(func() time.Time {
			ticks++
			return base.Add(time.Duration(ticks) * time.Second)
		}),
	)
	b := store.CreateBoard("Sprint", "")
	backend := agent.NewFake()

	return &fixture{
		store:   store,
		backend: backend,
		exec:    New(store, backend, opts...),
		boardID: b.ID,
	}
}

func (f *fixture) newAssignedTask(t *testing.T, title string) *board.Task {
	t.Helper()
	task, err := f.store.CreateTask(f.boardID, board.Draft{Title: title})
	require.NoError(t, err)
	task, err = f.store.AssignAgent(task.ID, "development", "")
	require.NoError(t, err)
	return task
}

func collectProgress(updates *[]events.ProgressUpdate) ProgressFunc {
	return func(u events.ProgressUpdate) {
		*updates = append(*updates, u)
	}
}

func TestExecuteTaskUnknownID(t *testing.T) {
	f := newFixture(t)
	err := f.exec.ExecuteTask(context.Background(), "ghost", nil)
	assert.True(t, sperrors.IsCode(err, sperrors.CodeTaskNotFound))
}

func TestExecuteTaskUnassigned(t *testing.T) {
	f := newFixture(t)
	task, err := f.store.CreateTask(f.boardID, board.Draft{Title: "Fix login"})
	require.NoError(t, err)

	err = f.exec.ExecuteTask(context.Background(), task.ID, nil)
	assert.True(t, sperrors.IsCode(err, sperrors.CodeAgentUnassigned))

	got, _ := f.store.GetTask(task.ID)
	assert.Equal(t, board.StatusPending, got.Status)
}

func TestExecuteTaskAutoAssign(t *testing.T) {
	f := newFixture(t, WithAutoAssign(true))
	task, err := f.store.CreateTask(f.boardID, board.Draft{Title: "Fix the login bug"})
	require.NoError(t, err)

	require.NoError(t, f.exec.ExecuteTask(context.Background(), task.ID, nil))

	got, _ := f.store.GetTask(task.ID)
	assert.Equal(t, "development", got.AssignedAgent)
	assert.Equal(t, board.ColumnInReview, got.Column)
}

func TestExecuteTaskSuccessPath(t *testing.T) {
	f := newFixture(t)
	task := f.newAssignedTask(t, "Add rate limiter")
	f.backend.Script("Add rate limiter", agent.Result{
		Success:       true,
		FilesModified: []string{"internal/rate/limiter.go", "internal/rate/limiter_test.go"},
		Output:        "implemented",
	})

	var updates []events.ProgressUpdate
	require.NoError(t, f.exec.ExecuteTask(context.Background(), task.ID, collectProgress(&updates)))

	got, _ := f.store.GetTask(task.ID)
	assert.Equal(t, board.ColumnInReview, got.Column)
	assert.Equal(t, board.StatusAwaitingReview, got.Status)
	require.Len(t, got.Commits, 2)
	assert.Equal(t, "development", got.Commits[0].Author)
	assert.Equal(t, []string{"internal/rate/limiter.go"}, got.Commits[0].FilesChanged)

	require.Len(t, updates, 4)
	assert.Equal(t, 0, updates[0].Progress)
	assert.Equal(t, "Starting agent...", updates[0].CurrentStep)
	assert.Equal(t, 10, updates[1].Progress)
	assert.Equal(t, "Agent assigned", updates[1].CurrentStep)
	assert.Equal(t, 90, updates[2].Progress)
	assert.Equal(t, "Submitting for review...", updates[2].CurrentStep)
	assert.Equal(t, 100, updates[3].Progress)
	assert.Equal(t, "Ready for review", updates[3].CurrentStep)
	for _, u := range updates {
		assert.Equal(t, task.ID, u.TaskID)
	}
}

func TestExecuteTaskBackendReportedFailure(t *testing.T) {
	f := newFixture(t)
	task := f.newAssignedTask(t, "Broken build")
	f.backend.Script("Broken build", agent.Result{
		Success: false,
		Errors:  []string{"compile error", "tests failed"},
	})

	var updates []events.ProgressUpdate
	err := f.exec.ExecuteTask(context.Background(), task.ID, collectProgress(&updates))
	require.NoError(t, err, "backend-reported failure is not a thrown error")

	got, _ := f.store.GetTask(task.ID)
	assert.Equal(t, board.StatusFailed, got.Status)
	assert.Equal(t, board.ColumnInProgress, got.Column, "failed task stays actionable")

	last := updates[len(updates)-1]
	assert.Equal(t, 0, last.Progress)
	assert.Equal(t, "Failed", last.CurrentStep)
	assert.Equal(t, "compile error; tests failed", last.Output)
}

func TestExecuteTaskBackendUnreachable(t *testing.T) {
	f := newFixture(t)
	task := f.newAssignedTask(t, "Anything")
	f.backend.Err = errors.New("connection refused")

	var updates []events.ProgressUpdate
	err := f.exec.ExecuteTask(context.Background(), task.ID, collectProgress(&updates))
	require.Error(t, err, "unreachable backend is re-raised")
	assert.True(t, sperrors.IsCode(err, sperrors.CodeBackendFailed))

	got, _ := f.store.GetTask(task.ID)
	assert.Equal(t, board.StatusFailed, got.Status)
	assert.Equal(t, board.ColumnInProgress, got.Column)

	last := updates[len(updates)-1]
	assert.Equal(t, "Error", last.CurrentStep)
	assert.Contains(t, last.Output, "connection refused")
}

func TestExecuteTaskRetryAfterFailure(t *testing.T) {
	f := newFixture(t)
	task := f.newAssignedTask(t, "Flaky")
	f.backend.Script("Flaky", agent.Result{Success: false, Errors: []string{"transient"}})

	require.NoError(t, f.exec.ExecuteTask(context.Background(), task.ID, nil))
	got, _ := f.store.GetTask(task.ID)
	require.Equal(t, board.StatusFailed, got.Status)

	f.backend.Script("Flaky", agent.Result{Success: true, FilesModified: []string{"a.go"}})
	require.NoError(t, f.exec.ExecuteTask(context.Background(), task.ID, nil))

	got, _ = f.store.GetTask(task.ID)
	assert.Equal(t, board.StatusAwaitingReview, got.Status)
}

func TestExecuteTaskWithWorktrees(t *testing.T) {
	backendVCS := vcs.NewMemory()
	mgr := worktree.NewManager(backendVCS, "/tmp/worktrees", "main")

	f := newFixture(t)
	f.exec = New(f.store, f.backend, WithWorktrees(mgr))

	task := f.newAssignedTask(t, "Feature")
	f.backend.Script("Feature", agent.Result{Success: true, FilesModified: []string{"f.go"}})

	require.NoError(t, f.exec.ExecuteTask(context.Background(), task.ID, nil))

	wt, err := mgr.Get(task.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, wt.AheadBy)
	require.NotNil(t, wt.LastCommit)

	got, _ := f.store.GetTask(task.ID)
	assert.Equal(t, wt.ID, got.WorktreeRef)
	require.Len(t, got.Commits, 1)
	assert.Equal(t, wt.LastCommit.SHA, got.Commits[0].SHA)
}

func TestExecuteTaskPublishesToSubscribers(t *testing.T) {
	pub := events.NewMemoryPublisher()
	defer pub.Close()

	f := newFixture(t)
	f.exec = New(f.store, f.backend, WithPublisher(pub))
	task := f.newAssignedTask(t, "Feature")

	ch := pub.Subscribe(task.ID)
	require.NoError(t, f.exec.ExecuteTask(context.Background(), task.ID, nil))

	first := <-ch
	assert.Equal(t, "Starting agent...", first.CurrentStep)
}
