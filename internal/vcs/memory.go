package vcs

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// Memory is an in-memory Backend for tests and dry runs. Branch histories
// are modeled as commit counts, not real trees; conflicts are injected via
// SetConflicts.
type Memory struct {
	mu       sync.Mutex
	branches map[string]*memBranch
	// conflicts maps "branch|base" to the conflicted paths reported by
	// CheckConflicts, Rebase and Merge.
	conflicts map[string][]string
	seq       int
	now       func() time.Time
}

type memBranch struct {
	base    string
	path    string
	commits []CommitInfo
	// behind counts base commits the branch has not replayed yet.
	behind int
}

// NewMemory creates an empty in-memory Backend.
func NewMemory() *Memory {
	return &Memory{
		branches:  make(map[string]*memBranch),
		conflicts: make(map[string][]string),
		now:       time.Now,
	}
}

// SetConflicts injects conflicted paths for the branch/base pair. An empty
// slice clears them.
func (m *Memory) SetConflicts(branch, base string, paths []string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := branch + "|" + base
	if len(paths) == 0 {
		delete(m.conflicts, key)
		return
	}
	m.conflicts[key] = paths
}

// AdvanceBase simulates n new commits landing on base, putting every branch
// cut from it behind.
func (m *Memory) AdvanceBase(base string, n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, b := range m.branches {
		if b.base == base {
			b.behind += n
		}
	}
}

// RegisterWorktree re-adopts a branch without going through CreateBranch.
func (m *Memory) RegisterWorktree(branch, base, path string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.branches[branch]; !ok {
		m.branches[branch] = &memBranch{base: base, path: path}
	}
}

func (m *Memory) CreateBranch(ctx context.Context, branch, base, path string) error {
	if err := ValidateBranchName(branch); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.branches[branch]; ok {
		return fmt.Errorf("branch %s already exists", branch)
	}
	for _, b := range m.branches {
		if b.path == path {
			return fmt.Errorf("worktree path %s already in use", path)
		}
	}

	m.branches[branch] = &memBranch{base: base, path: path}
	return nil
}

func (m *Memory) Commit(ctx context.Context, branch, message, author string, files []string) (CommitInfo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	b, ok := m.branches[branch]
	if !ok {
		return CommitInfo{}, fmt.Errorf("no worktree registered for branch %s", branch)
	}

	m.seq++
	info := CommitInfo{
		SHA:          fmt.Sprintf("%040x", m.seq),
		Message:      message,
		Author:       author,
		Timestamp:    m.now(),
		FilesChanged: files,
	}
	b.commits = append(b.commits, info)
	return info, nil
}

func (m *Memory) Diff(ctx context.Context, branch, base string) (DiffResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	b, ok := m.branches[branch]
	if !ok {
		return DiffResult{}, fmt.Errorf("unknown branch %s", branch)
	}

	var result DiffResult
	seen := make(map[string]int)
	for _, c := range b.commits {
		for _, f := range c.FilesChanged {
			if idx, ok := seen[f]; ok {
				result.Files[idx].Additions++
				result.Additions++
				continue
			}
			seen[f] = len(result.Files)
			result.Files = append(result.Files, FileDiff{Path: f, Additions: 1})
			result.Additions++
		}
	}
	result.FilesChanged = len(result.Files)
	return result, nil
}

func (m *Memory) CheckConflicts(ctx context.Context, branch, base string) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.branches[branch]; !ok {
		return nil, fmt.Errorf("unknown branch %s", branch)
	}
	return m.conflicts[branch+"|"+base], nil
}

func (m *Memory) Rebase(ctx context.Context, branch, base string) (MergeResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	b, ok := m.branches[branch]
	if !ok {
		return MergeResult{}, fmt.Errorf("unknown branch %s", branch)
	}
	if paths := m.conflicts[branch+"|"+base]; len(paths) > 0 {
		return MergeResult{Success: false, Conflicts: paths}, nil
	}

	b.behind = 0
	m.seq++
	sha := fmt.Sprintf("%040x", m.seq)
	if n := len(b.commits); n > 0 {
		sha = b.commits[n-1].SHA
	}
	return MergeResult{Success: true, CommitSHA: sha}, nil
}

func (m *Memory) Merge(ctx context.Context, branch, base string, squash bool) (MergeResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.branches[branch]; !ok {
		return MergeResult{}, fmt.Errorf("unknown branch %s", branch)
	}
	if paths := m.conflicts[branch+"|"+base]; len(paths) > 0 {
		return MergeResult{Success: false, Conflicts: paths}, nil
	}

	m.seq++
	return MergeResult{Success: true, CommitSHA: fmt.Sprintf("%040x", m.seq)}, nil
}

func (m *Memory) AheadBehind(ctx context.Context, branch, base string) (int, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	b, ok := m.branches[branch]
	if !ok {
		return 0, 0, fmt.Errorf("unknown branch %s", branch)
	}
	return len(b.commits), b.behind, nil
}

func (m *Memory) DeleteBranch(ctx context.Context, branch, path string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.branches, branch)
	return nil
}
