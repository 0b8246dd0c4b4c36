// Package worktree coordinates isolated workspaces for tasks: one active
// worktree per task, a branch per worktree, and the merge protocol back
// into the base branch.
package worktree

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	sperrors "github.com/sprintloop/sprintloop/internal/errors"
	"github.com/sprintloop/sprintloop/internal/vcs"
)

// Status is the lifecycle state of a worktree.
type Status string

const (
	StatusActive     Status = "active"
	StatusMerged     Status = "merged"
	StatusDeleted    Status = "deleted"
	StatusConflicted Status = "conflicted"
)

// IsValidStatus checks whether s is a known worktree status.
func IsValidStatus(s Status) bool {
	switch s {
	case StatusActive, StatusMerged, StatusDeleted, StatusConflicted:
		return true
	}
	return false
}

// Worktree is an isolated workspace bound to exactly one task while active.
type Worktree struct {
	ID         string          `yaml:"id" json:"id"`
	TaskID     string          `yaml:"task_id" json:"task_id"`
	Branch     string          `yaml:"branch" json:"branch"`
	Path       string          `yaml:"path" json:"path"`
	BaseBranch string          `yaml:"base_branch" json:"base_branch"`
	Status     Status          `yaml:"status" json:"status"`
	AheadBy    int             `yaml:"ahead_by" json:"ahead_by"`
	BehindBy   int             `yaml:"behind_by" json:"behind_by"`
	LastCommit *vcs.CommitInfo `yaml:"last_commit,omitempty" json:"last_commit,omitempty"`
	CreatedAt  time.Time       `yaml:"created_at" json:"created_at"`
}

// Clone returns a deep copy.
func (w *Worktree) Clone() *Worktree {
	c := *w
	if w.LastCommit != nil {
		lc := *w.LastCommit
		c.LastCommit = &lc
	}
	return &c
}

// StatusSummary aggregates counters across all registered worktrees.
type StatusSummary struct {
	Active     int `json:"active"`
	Ahead      int `json:"ahead"`
	Behind     int `json:"behind"`
	Conflicted int `json:"conflicted"`
}

// Manager owns the worktree registry. Worktree records are mutated only
// through Manager operations.
type Manager struct {
	mu      sync.RWMutex
	backend vcs.Backend
	root    string
	base    string
	logger  *slog.Logger

	// entries is keyed by task id: at most one active worktree per task.
	entries map[string]*Worktree

	newID func() string
	now   func() time.Time
}

// Option configures a Manager.
type Option func(*Manager)

// WithIDFunc overrides worktree id generation.
func WithIDFunc(fn func() string) Option {
	return func(m *Manager) { m.newID = fn }
}

// WithClock overrides the time source.
func WithClock(fn func() time.Time) Option {
	return func(m *Manager) { m.now = fn }
}

// WithLogger sets the structured logger.
func WithLogger(l *slog.Logger) Option {
	return func(m *Manager) { m.logger = l }
}

// NewManager creates a Manager over backend. root is the directory new
// workspaces are provisioned under; base is the branch they are cut from
// and merged into.
func NewManager(backend vcs.Backend, root, base string, opts ...Option) *Manager {
	m := &Manager{
		backend: backend,
		root:    root,
		base:    base,
		logger:  slog.Default(),
		entries: make(map[string]*Worktree),
		newID:   uuid.NewString,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

const branchIDLen = 8

func shortID(id string) string {
	if len(id) > branchIDLen {
		return id[:branchIDLen]
	}
	return id
}

// Create provisions an isolated workspace for the task. With an empty
// branchName, one is derived from the task id and the current time. A task
// with an active worktree cannot get a second one.
func (m *Manager) Create(ctx context.Context, taskID, branchName string) (*Worktree, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if existing, ok := m.entries[taskID]; ok && existing.Status == StatusActive {
		return nil, sperrors.ErrWorktreeExists(taskID)
	}

	if branchName == "" {
		branchName = fmt.Sprintf("task/%s-%s", shortID(taskID), m.now().UTC().Format("20060102150405"))
	}
	if err := vcs.ValidateBranchName(branchName); err != nil {
		return nil, err
	}

	path := filepath.Join(m.root, vcs.SanitizeDirName(branchName))
	if err := m.backend.CreateBranch(ctx, branchName, m.base, path); err != nil {
		return nil, sperrors.ErrVCSFailed("create branch " + branchName).WithCause(err)
	}

	wt := &Worktree{
		ID:         m.newID(),
		TaskID:     taskID,
		Branch:     branchName,
		Path:       path,
		BaseBranch: m.base,
		Status:     StatusActive,
		CreatedAt:  m.now(),
	}
	m.entries[taskID] = wt

	m.logger.Info("worktree created", "task_id", taskID, "branch", branchName, "path", path)
	return wt.Clone(), nil
}

// Get returns the worktree registered for the task.
func (m *Manager) Get(taskID string) (*Worktree, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	wt, ok := m.entries[taskID]
	if !ok {
		return nil, sperrors.ErrWorktreeNotFound(taskID)
	}
	return wt.Clone(), nil
}

// Active returns all worktrees currently in active status.
func (m *Manager) Active() []*Worktree {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []*Worktree
	for _, wt := range m.entries {
		if wt.Status == StatusActive {
			out = append(out, wt.Clone())
		}
	}
	return out
}

// Commit records a commit on the task's worktree branch and bumps the
// ahead counter.
func (m *Manager) Commit(ctx context.Context, taskID, message string, files []string) (vcs.CommitInfo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	wt, ok := m.entries[taskID]
	if !ok {
		return vcs.CommitInfo{}, sperrors.ErrWorktreeNotFound(taskID)
	}

	info, err := m.backend.Commit(ctx, wt.Branch, message, "", files)
	if err != nil {
		return vcs.CommitInfo{}, sperrors.ErrVCSFailed("commit on " + wt.Branch).WithCause(err)
	}

	wt.AheadBy++
	wt.LastCommit = &info
	return info, nil
}

// Diff returns the structural diff between the worktree branch and base.
func (m *Manager) Diff(ctx context.Context, taskID string) (vcs.DiffResult, error) {
	m.mu.RLock()
	wt, ok := m.entries[taskID]
	if !ok {
		m.mu.RUnlock()
		return vcs.DiffResult{}, sperrors.ErrWorktreeNotFound(taskID)
	}
	branch, base := wt.Branch, wt.BaseBranch
	m.mu.RUnlock()

	diff, err := m.backend.Diff(ctx, branch, base)
	if err != nil {
		return vcs.DiffResult{}, sperrors.ErrVCSFailed("diff " + branch).WithCause(err)
	}
	return diff, nil
}

// CheckConflicts dry-runs the merge of the worktree branch into base. An
// empty list means mergeable.
func (m *Manager) CheckConflicts(ctx context.Context, taskID string) ([]string, error) {
	m.mu.RLock()
	wt, ok := m.entries[taskID]
	if !ok {
		m.mu.RUnlock()
		return nil, sperrors.ErrWorktreeNotFound(taskID)
	}
	branch, base := wt.Branch, wt.BaseBranch
	m.mu.RUnlock()

	conflicts, err := m.backend.CheckConflicts(ctx, branch, base)
	if err != nil {
		return nil, sperrors.ErrVCSFailed("conflict check on " + branch).WithCause(err)
	}
	return conflicts, nil
}

// Rebase replays the worktree branch onto the latest base. Conflicts leave
// the worktree status untouched; the caller resolves and retries.
func (m *Manager) Rebase(ctx context.Context, taskID string) (vcs.MergeResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	wt, ok := m.entries[taskID]
	if !ok {
		return vcs.MergeResult{}, sperrors.ErrWorktreeNotFound(taskID)
	}

	result, err := m.backend.Rebase(ctx, wt.Branch, wt.BaseBranch)
	if err != nil {
		return vcs.MergeResult{}, sperrors.ErrVCSFailed("rebase " + wt.Branch).WithCause(err)
	}
	if result.Success {
		wt.BehindBy = 0
		m.refreshCountersLocked(ctx, wt)
	}
	return result, nil
}

// Merge integrates the worktree branch into base. Conflicts are checked
// first: a conflicted worktree is marked as such and never merged.
func (m *Manager) Merge(ctx context.Context, taskID string, squash bool) (vcs.MergeResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	wt, ok := m.entries[taskID]
	if !ok {
		return vcs.MergeResult{}, sperrors.ErrWorktreeNotFound(taskID)
	}

	conflicts, err := m.backend.CheckConflicts(ctx, wt.Branch, wt.BaseBranch)
	if err != nil {
		return vcs.MergeResult{}, sperrors.ErrVCSFailed("conflict check on " + wt.Branch).WithCause(err)
	}
	if len(conflicts) > 0 {
		wt.Status = StatusConflicted
		m.logger.Warn("merge blocked by conflicts", "task_id", taskID, "branch", wt.Branch, "conflicts", len(conflicts))
		return vcs.MergeResult{Success: false, Conflicts: conflicts}, nil
	}

	result, err := m.backend.Merge(ctx, wt.Branch, wt.BaseBranch, squash)
	if err != nil {
		return vcs.MergeResult{}, sperrors.ErrVCSFailed("merge " + wt.Branch).WithCause(err)
	}
	if !result.Success {
		wt.Status = StatusConflicted
		return result, nil
	}

	wt.Status = StatusMerged
	m.logger.Info("worktree merged", "task_id", taskID, "branch", wt.Branch, "commit", result.CommitSHA, "squash", squash)
	return result, nil
}

// Delete releases the workspace and removes the registry entry. Unknown
// tasks are a no-op.
func (m *Manager) Delete(ctx context.Context, taskID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	wt, ok := m.entries[taskID]
	if !ok {
		return nil
	}

	if err := m.backend.DeleteBranch(ctx, wt.Branch, wt.Path); err != nil {
		return sperrors.ErrVCSFailed("delete branch " + wt.Branch).WithCause(err)
	}

	if wt.Status == StatusActive || wt.Status == StatusConflicted {
		wt.Status = StatusDeleted
	}
	delete(m.entries, taskID)

	m.logger.Info("worktree deleted", "task_id", taskID, "branch", wt.Branch)
	return nil
}

// Refresh recomputes the ahead/behind counters for the task's worktree
// from the backend.
func (m *Manager) Refresh(ctx context.Context, taskID string) (*Worktree, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	wt, ok := m.entries[taskID]
	if !ok {
		return nil, sperrors.ErrWorktreeNotFound(taskID)
	}
	m.refreshCountersLocked(ctx, wt)
	return wt.Clone(), nil
}

func (m *Manager) refreshCountersLocked(ctx context.Context, wt *Worktree) {
	ahead, behind, err := m.backend.AheadBehind(ctx, wt.Branch, wt.BaseBranch)
	if err != nil {
		m.logger.Warn("counter refresh failed", "task_id", wt.TaskID, "branch", wt.Branch, "error", err)
		return
	}
	wt.AheadBy = ahead
	wt.BehindBy = behind
}

// Snapshot returns all registry entries ordered by creation time, for
// persistence.
func (m *Manager) Snapshot() []*Worktree {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]*Worktree, 0, len(m.entries))
	for _, wt := range m.entries {
		out = append(out, wt.Clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out
}

// Restore replaces the registry with the snapshot entries. Active entries
// are re-registered with the backend when it supports adoption.
func (m *Manager) Restore(entries []*Worktree) {
	m.mu.Lock()
	defer m.mu.Unlock()

	registrar, _ := m.backend.(vcs.WorktreeRegistrar)
	m.entries = make(map[string]*Worktree, len(entries))
	for _, wt := range entries {
		if wt == nil {
			continue
		}
		m.entries[wt.TaskID] = wt.Clone()
		if registrar != nil && wt.Status == StatusActive {
			registrar.RegisterWorktree(wt.Branch, wt.BaseBranch, wt.Path)
		}
	}
}

// Status aggregates counters across all registered worktrees.
func (m *Manager) Status() StatusSummary {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var s StatusSummary
	for _, wt := range m.entries {
		switch wt.Status {
		case StatusActive:
			s.Active++
		case StatusConflicted:
			s.Conflicted++
		}
		s.Ahead += wt.AheadBy
		s.Behind += wt.BehindBy
	}
	return s
}
