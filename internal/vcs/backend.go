// Package vcs defines the version-control capability that worktree
// coordination depends on, plus a subprocess git adapter and an in-memory
// fake for tests.
//
// The coordination layer never shells out directly: it talks to Backend, so
// its invariants stay testable without a repository on disk.
package vcs

import (
	"context"
	"time"
)

// CommitInfo describes a commit recorded on a branch.
type CommitInfo struct {
	SHA          string    `json:"sha"`
	Message      string    `json:"message"`
	Author       string    `json:"author"`
	Timestamp    time.Time `json:"timestamp"`
	FilesChanged []string  `json:"files_changed,omitempty"`
}

// FileDiff describes the change to a single file between two branches.
type FileDiff struct {
	Path      string `json:"path"`
	Additions int    `json:"additions"`
	Deletions int    `json:"deletions"`
}

// DiffResult is a structural diff between a branch and its base.
type DiffResult struct {
	Files        []FileDiff `json:"files"`
	Additions    int        `json:"additions"`
	Deletions    int        `json:"deletions"`
	FilesChanged int        `json:"files_changed"`
}

// MergeResult reports the outcome of a merge or rebase. Conflicts are a
// result value, not an error: the caller resolves and retries.
type MergeResult struct {
	Success   bool     `json:"success"`
	CommitSHA string   `json:"commit_sha,omitempty"`
	Conflicts []string `json:"conflicts,omitempty"`
}

// Backend is the abstract version-control capability. A real implementation
// drives git; tests use the in-memory fake.
type Backend interface {
	// CreateBranch creates branch from base and provisions a workspace at
	// path. "Branch or path already in use" is an error, never an overwrite.
	CreateBranch(ctx context.Context, branch, base, path string) error

	// Commit records a commit on branch and returns its info.
	Commit(ctx context.Context, branch, message, author string, files []string) (CommitInfo, error)

	// Diff returns the structural diff of branch against base.
	Diff(ctx context.Context, branch, base string) (DiffResult, error)

	// CheckConflicts does a dry-run three-way comparison of branch, base,
	// and their merge-base. An empty list means mergeable.
	CheckConflicts(ctx context.Context, branch, base string) ([]string, error)

	// Rebase replays branch onto the latest base. On conflict it returns
	// Success=false with the conflict list and leaves branch untouched.
	Rebase(ctx context.Context, branch, base string) (MergeResult, error)

	// Merge integrates branch into base, squashing history when squash is
	// set. Returns the resulting commit SHA on success.
	Merge(ctx context.Context, branch, base string, squash bool) (MergeResult, error)

	// AheadBehind reports how many commits branch is ahead of and behind
	// base.
	AheadBehind(ctx context.Context, branch, base string) (ahead, behind int, err error)

	// DeleteBranch removes the branch and its workspace.
	DeleteBranch(ctx context.Context, branch, path string) error
}

// WorktreeRegistrar is implemented by backends that track branch-to-path
// registrations and can re-adopt worktrees created by an earlier process.
type WorktreeRegistrar interface {
	RegisterWorktree(branch, base, path string)
}
