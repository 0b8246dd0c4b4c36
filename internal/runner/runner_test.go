package runner

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sprintloop/sprintloop/internal/agent"
	"github.com/sprintloop/sprintloop/internal/board"
	"github.com/sprintloop/sprintloop/internal/events"
	"github.com/sprintloop/sprintloop/internal/executor"
)

type fixture struct {
	store   *board.Store
	backend *agent.Fake
	runner  *Runner
	boardID string
}

func newFixture(t *testing.T, opts ...Option) *fixture {
	t.Helper()

	var ids int
	store := board.NewStore(board.WithIDFunc(func() string {
		ids++
		return fmt.Sprintf("task-%03d", ids)
	}))
	b := store.CreateBoard("Sprint", "")
	backend := agent.NewFake()
	exec := executor.New(store, backend)

	return &fixture{
		store:   store,
		backend: backend,
		runner:  New(store, exec, opts...),
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

func TestRunAllPartialSuccess(t *testing.T) {
	f := newFixture(t)

	var ids []string
	for i := 0; i < 5; i++ {
		task := f.newAssignedTask(t, fmt.Sprintf("task %d", i))
		ids = append(ids, task.ID)
	}
	// One backend-reported failure and one unassigned task in the middle.
	f.backend.Script("task 2", agent.Result{Success: false, Errors: []string{"boom"}})
	unassigned, err := f.store.CreateTask(f.boardID, board.Draft{Title: "orphan"})
	require.NoError(t, err)
	ids = append(ids, unassigned.ID)

	results := f.runner.RunAll(context.Background(), ids, nil)

	require.Len(t, results, 6)
	assert.True(t, results[ids[0]])
	assert.True(t, results[ids[1]])
	assert.False(t, results[ids[2]], "backend failure recorded as false")
	assert.True(t, results[ids[3]])
	assert.True(t, results[ids[4]])
	assert.False(t, results[unassigned.ID], "thrown error recorded as false")

	// Failures never abort the others.
	for _, id := range ids[:2] {
		got, err := f.store.GetTask(id)
		require.NoError(t, err)
		assert.Equal(t, board.StatusAwaitingReview, got.Status)
	}
}

func TestRunAllProgressTaggedPerTask(t *testing.T) {
	f := newFixture(t)

	var ids []string
	for i := 0; i < 3; i++ {
		ids = append(ids, f.newAssignedTask(t, fmt.Sprintf("task %d", i)).ID)
	}

	var mu sync.Mutex
	seen := make(map[string]int)
	onProgress := func(u events.ProgressUpdate) {
		mu.Lock()
		seen[u.TaskID]++
		mu.Unlock()
	}

	f.runner.RunAll(context.Background(), ids, onProgress)

	for _, id := range ids {
		assert.Equal(t, 4, seen[id], "each task emits its four checkpoints")
	}
}

func TestRunAllEmptyInput(t *testing.T) {
	f := newFixture(t)
	results := f.runner.RunAll(context.Background(), nil, nil)
	assert.Empty(t, results)
}

func TestRunAllWithLimit(t *testing.T) {
	f := newFixture(t, WithLimit(2))

	var ids []string
	for i := 0; i < 8; i++ {
		ids = append(ids, f.newAssignedTask(t, fmt.Sprintf("task %d", i)).ID)
	}

	done := make(chan map[string]bool, 1)
	go func() {
		done <- f.runner.RunAll(context.Background(), ids, nil)
	}()

	select {
	case results := <-done:
		assert.Len(t, results, 8)
		for _, ok := range results {
			assert.True(t, ok)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("bounded run did not finish")
	}
}

func TestRunAllSameTaskTwiceIsSerialized(t *testing.T) {
	f := newFixture(t)
	task := f.newAssignedTask(t, "repeat")

	results := f.runner.RunAll(context.Background(), []string{task.ID, task.ID}, nil)
	assert.Len(t, results, 1)
	assert.True(t, results[task.ID])
}
