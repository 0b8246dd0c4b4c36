package worktree

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	sperrors "github.com/sprintloop/sprintloop/internal/errors"
	"github.com/sprintloop/sprintloop/internal/vcs"
)

func newTestManager(t *testing.T) (*Manager, *vcs.Memory) {
	t.Helper()

	backend := vcs.NewMemory()
	var ids int
	base := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	var ticks int

	m := NewManager(backend, "/tmp/worktrees", "main",
		WithIDFunc(func() string {
			ids++
			return fmt.Sprintf("wt-%03d", ids)
		}),
		WithClock(func() time.Time {
			ticks++
			return base.Add(time.Duration(ticks) * time.Second)
		}),
	)
	return m, backend
}

func TestCreateDerivesBranchName(t *testing.T) {
	m, _ := newTestManager(t)

	wt, err := m.Create(context.Background(), "task-12345678-extra", "")
	require.NoError(t, err)

	assert.Equal(t, "wt-001", wt.ID)
	assert.Equal(t, "task-12345678-extra", wt.TaskID)
	assert.Contains(t, wt.Branch, "task/task-123")
	assert.Equal(t, "main", wt.BaseBranch)
	assert.Equal(t, StatusActive, wt.Status)
	assert.Equal(t, 0, wt.AheadBy)
	assert.Equal(t, 0, wt.BehindBy)
	assert.NotContains(t, wt.Path, "/task/", "path must be directory-safe")
}

func TestCreateExplicitBranch(t *testing.T) {
	m, _ := newTestManager(t)

	wt, err := m.Create(context.Background(), "t1", "feature/login")
	require.NoError(t, err)
	assert.Equal(t, "feature/login", wt.Branch)

	_, err = m.Create(context.Background(), "t2", "bad name")
	assert.ErrorIs(t, err, vcs.ErrInvalidBranchName)
}

func TestCreateSecondActiveFails(t *testing.T) {
	m, _ := newTestManager(t)
	ctx := context.Background()

	_, err := m.Create(ctx, "T2", "")
	require.NoError(t, err)

	_, err = m.Create(ctx, "T2", "")
	require.Error(t, err)
	assert.True(t, sperrors.IsCode(err, sperrors.CodeWorktreeExists))
}

func TestCreateAllowedAfterDelete(t *testing.T) {
	m, _ := newTestManager(t)
	ctx := context.Background()

	_, err := m.Create(ctx, "t1", "")
	require.NoError(t, err)
	require.NoError(t, m.Delete(ctx, "t1"))

	_, err = m.Create(ctx, "t1", "")
	assert.NoError(t, err)
}

func TestCommitBumpsAhead(t *testing.T) {
	m, _ := newTestManager(t)
	ctx := context.Background()

	_, err := m.Create(ctx, "t1", "")
	require.NoError(t, err)

	info, err := m.Commit(ctx, "t1", "add handler", []string{"handler.go"})
	require.NoError(t, err)
	assert.NotEmpty(t, info.SHA)

	wt, err := m.Get("t1")
	require.NoError(t, err)
	assert.Equal(t, 1, wt.AheadBy)
	require.NotNil(t, wt.LastCommit)
	assert.Equal(t, info.SHA, wt.LastCommit.SHA)

	_, err = m.Commit(ctx, "ghost", "msg", nil)
	assert.True(t, sperrors.IsCode(err, sperrors.CodeWorktreeNotFound))
}

func TestDiff(t *testing.T) {
	m, _ := newTestManager(t)
	ctx := context.Background()

	_, err := m.Create(ctx, "t1", "")
	require.NoError(t, err)
	_, err = m.Commit(ctx, "t1", "c1", []string{"a.go", "b.go"})
	require.NoError(t, err)

	diff, err := m.Diff(ctx, "t1")
	require.NoError(t, err)
	assert.Equal(t, 2, diff.FilesChanged)

	_, err = m.Diff(ctx, "ghost")
	assert.True(t, sperrors.IsCode(err, sperrors.CodeWorktreeNotFound))
}

func TestRebaseResetsBehind(t *testing.T) {
	m, backend := newTestManager(t)
	ctx := context.Background()

	wt, err := m.Create(ctx, "t1", "")
	require.NoError(t, err)

	backend.AdvanceBase("main", 3)
	wt, err = m.Refresh(ctx, "t1")
	require.NoError(t, err)
	assert.Equal(t, 3, wt.BehindBy)

	res, err := m.Rebase(ctx, "t1")
	require.NoError(t, err)
	assert.True(t, res.Success)

	wt, err = m.Get("t1")
	require.NoError(t, err)
	assert.Equal(t, 0, wt.BehindBy)
}

func TestRebaseConflictLeavesStatus(t *testing.T) {
	m, backend := newTestManager(t)
	ctx := context.Background()

	wt, err := m.Create(ctx, "t1", "")
	require.NoError(t, err)
	backend.SetConflicts(wt.Branch, "main", []string{"shared.go"})

	res, err := m.Rebase(ctx, "t1")
	require.NoError(t, err)
	assert.False(t, res.Success)
	assert.Equal(t, []string{"shared.go"}, res.Conflicts)

	wt, err = m.Get("t1")
	require.NoError(t, err)
	assert.Equal(t, StatusActive, wt.Status)
}

func TestMergeSuccess(t *testing.T) {
	m, _ := newTestManager(t)
	ctx := context.Background()

	_, err := m.Create(ctx, "t1", "")
	require.NoError(t, err)

	res, err := m.Merge(ctx, "t1", true)
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.NotEmpty(t, res.CommitSHA)

	wt, err := m.Get("t1")
	require.NoError(t, err)
	assert.Equal(t, StatusMerged, wt.Status)
	assert.Empty(t, m.Active())
}

func TestMergeBlockedByConflicts(t *testing.T) {
	m, backend := newTestManager(t)
	ctx := context.Background()

	wt, err := m.Create(ctx, "t1", "")
	require.NoError(t, err)
	backend.SetConflicts(wt.Branch, "main", []string{"shared.go", "config.yaml"})

	res, err := m.Merge(ctx, "t1", true)
	require.NoError(t, err)
	assert.False(t, res.Success)
	assert.Len(t, res.Conflicts, 2)

	wt, err = m.Get("t1")
	require.NoError(t, err)
	assert.Equal(t, StatusConflicted, wt.Status)

	// Conflicted worktrees can still be deleted.
	require.NoError(t, m.Delete(ctx, "t1"))
	_, err = m.Get("t1")
	assert.True(t, sperrors.IsCode(err, sperrors.CodeWorktreeNotFound))
}

func TestCheckConflicts(t *testing.T) {
	m, backend := newTestManager(t)
	ctx := context.Background()

	wt, err := m.Create(ctx, "t1", "")
	require.NoError(t, err)

	conflicts, err := m.CheckConflicts(ctx, "t1")
	require.NoError(t, err)
	assert.Empty(t, conflicts)

	backend.SetConflicts(wt.Branch, "main", []string{"shared.go"})
	conflicts, err = m.CheckConflicts(ctx, "t1")
	require.NoError(t, err)
	assert.Equal(t, []string{"shared.go"}, conflicts)
}

func TestDeleteUnknownIsNoop(t *testing.T) {
	m, _ := newTestManager(t)
	assert.NoError(t, m.Delete(context.Background(), "ghost"))
}

func TestActiveNeverDuplicatesTask(t *testing.T) {
	m, _ := newTestManager(t)
	ctx := context.Background()

	for _, id := range []string{"t1", "t2", "t3"} {
		_, err := m.Create(ctx, id, "")
		require.NoError(t, err)
	}
	_, err := m.Merge(ctx, "t2", true)
	require.NoError(t, err)

	seen := make(map[string]bool)
	for _, wt := range m.Active() {
		assert.False(t, seen[wt.TaskID], "duplicate active worktree for %s", wt.TaskID)
		seen[wt.TaskID] = true
	}
	assert.Len(t, seen, 2)
}

func TestStatusSummary(t *testing.T) {
	m, backend := newTestManager(t)
	ctx := context.Background()

	w1, err := m.Create(ctx, "t1", "")
	require.NoError(t, err)
	_, err = m.Create(ctx, "t2", "")
	require.NoError(t, err)

	_, err = m.Commit(ctx, "t1", "c1", nil)
	require.NoError(t, err)
	_, err = m.Commit(ctx, "t1", "c2", nil)
	require.NoError(t, err)

	backend.SetConflicts(w1.Branch, "main", []string{"x.go"})
	_, err = m.Merge(ctx, "t1", true)
	require.NoError(t, err)

	s := m.Status()
	assert.Equal(t, 1, s.Active)
	assert.Equal(t, 1, s.Conflicted)
	assert.Equal(t, 2, s.Ahead)
	assert.Equal(t, 0, s.Behind)
}

func TestClonesAreIsolated(t *testing.T) {
	m, _ := newTestManager(t)
	ctx := context.Background()

	wt, err := m.Create(ctx, "t1", "")
	require.NoError(t, err)
	wt.Status = StatusDeleted
	wt.AheadBy = 99

	fresh, err := m.Get("t1")
	require.NoError(t, err)
	assert.Equal(t, StatusActive, fresh.Status)
	assert.Equal(t, 0, fresh.AheadBy)
}
