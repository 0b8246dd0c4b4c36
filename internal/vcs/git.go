package vcs

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"
)

// Git is a Backend driving a real repository through the git CLI. Each
// branch gets its own worktree directory, so concurrent branches never
// touch the main checkout.
type Git struct {
	mu       sync.Mutex
	repoPath string
	runner   CommandRunner

	// paths maps branch -> worktree path for branches created here.
	paths map[string]string
}

// NewGit creates a git-backed Backend for the repository at repoPath.
func NewGit(repoPath string, runner CommandRunner) *Git {
	if runner == nil {
		runner = NewExecRunner()
	}
	return &Git{
		repoPath: repoPath,
		runner:   runner,
		paths:    make(map[string]string),
	}
}

func (g *Git) git(ctx context.Context, workDir string, args ...string) (string, error) {
	if workDir == "" {
		workDir = g.repoPath
	}
	return g.runner.Run(ctx, workDir, "git", args...)
}

// CreateBranch creates branch from base with a dedicated worktree at path.
// A branch or path already in use is an error, never a silent reuse.
func (g *Git) CreateBranch(ctx context.Context, branch, base, path string) error {
	if err := ValidateBranchName(branch); err != nil {
		return err
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	if _, err := g.git(ctx, "", "rev-parse", "--verify", "--quiet", "refs/heads/"+branch); err == nil {
		return fmt.Errorf("branch %s already exists", branch)
	}
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("worktree path %s already in use", path)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create worktrees dir: %w", err)
	}

	// Stale registrations (directory deleted, git still tracking) block
	// worktree add; prune and retry once.
	if _, err := g.git(ctx, "", "worktree", "add", "-b", branch, path, base); err != nil {
		_, _ = g.git(ctx, "", "worktree", "prune")
		if _, err := g.git(ctx, "", "worktree", "add", "-b", branch, path, base); err != nil {
			return fmt.Errorf("create worktree for %s: %w", branch, err)
		}
	}

	g.paths[branch] = path
	return nil
}

// RegisterWorktree re-adopts a worktree created by an earlier process.
func (g *Git) RegisterWorktree(branch, base, path string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.paths[branch] = path
}

func (g *Git) pathFor(branch string) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	path, ok := g.paths[branch]
	if !ok {
		return "", fmt.Errorf("no worktree registered for branch %s", branch)
	}
	return path, nil
}

// Commit stages and commits on the branch's worktree. With no explicit file
// list, everything is staged.
func (g *Git) Commit(ctx context.Context, branch, message, author string, files []string) (CommitInfo, error) {
	path, err := g.pathFor(branch)
	if err != nil {
		return CommitInfo{}, err
	}

	if len(files) == 0 {
		if _, err := g.git(ctx, path, "add", "-A"); err != nil {
			return CommitInfo{}, fmt.Errorf("stage changes: %w", err)
		}
	} else {
		args := append([]string{"add", "--"}, files...)
		if _, err := g.git(ctx, path, args...); err != nil {
			return CommitInfo{}, fmt.Errorf("stage files: %w", err)
		}
	}

	commitArgs := []string{"commit", "-m", message}
	if author != "" {
		commitArgs = append(commitArgs, "--author", fmt.Sprintf("%s <%s@agents.local>", author, author))
	}
	if _, err := g.git(ctx, path, commitArgs...); err != nil {
		return CommitInfo{}, fmt.Errorf("commit on %s: %w", branch, err)
	}

	sha, err := g.git(ctx, path, "rev-parse", "HEAD")
	if err != nil {
		return CommitInfo{}, fmt.Errorf("resolve HEAD: %w", err)
	}

	changed, _ := g.git(ctx, path, "diff-tree", "--no-commit-id", "--name-only", "-r", sha)

	return CommitInfo{
		SHA:          sha,
		Message:      message,
		Author:       author,
		Timestamp:    time.Now(),
		FilesChanged: splitLines(changed),
	}, nil
}

// Diff returns the numstat diff of branch against base.
func (g *Git) Diff(ctx context.Context, branch, base string) (DiffResult, error) {
	out, err := g.git(ctx, "", "diff", "--numstat", base+"..."+branch)
	if err != nil {
		return DiffResult{}, fmt.Errorf("diff %s against %s: %w", branch, base, err)
	}

	var result DiffResult
	for _, line := range splitLines(out) {
		fields := strings.Fields(line)
		if len(fields) < 3 {
			continue
		}
		// Binary files show "-" counts.
		add, _ := strconv.Atoi(fields[0])
		del, _ := strconv.Atoi(fields[1])
		result.Files = append(result.Files, FileDiff{
			Path:      fields[2],
			Additions: add,
			Deletions: del,
		})
		result.Additions += add
		result.Deletions += del
	}
	result.FilesChanged = len(result.Files)
	return result, nil
}

// CheckConflicts does a dry-run merge via merge-tree. Exit status 1 means
// conflicts; the conflicted paths follow the tree OID in the output.
func (g *Git) CheckConflicts(ctx context.Context, branch, base string) ([]string, error) {
	out, err := g.git(ctx, "", "merge-tree", "--write-tree", "--name-only", "--no-messages", base, branch)
	if err == nil {
		return nil, nil
	}

	lines := splitLines(out)
	if len(lines) < 2 {
		return nil, fmt.Errorf("check conflicts for %s: %w", branch, err)
	}
	// First line is the tree OID; the rest are conflicted file names.
	return lines[1:], nil
}

// Rebase replays branch onto base inside its worktree. A conflicted rebase
// is aborted and reported as a failed MergeResult.
func (g *Git) Rebase(ctx context.Context, branch, base string) (MergeResult, error) {
	path, err := g.pathFor(branch)
	if err != nil {
		return MergeResult{}, err
	}

	if _, err := g.git(ctx, path, "rebase", base); err != nil {
		conflicted, _ := g.git(ctx, path, "diff", "--name-only", "--diff-filter=U")
		_, _ = g.git(ctx, path, "rebase", "--abort")
		return MergeResult{Success: false, Conflicts: splitLines(conflicted)}, nil
	}

	sha, err := g.git(ctx, path, "rev-parse", "HEAD")
	if err != nil {
		return MergeResult{}, fmt.Errorf("resolve HEAD after rebase: %w", err)
	}
	return MergeResult{Success: true, CommitSHA: sha}, nil
}

// Merge integrates branch into base from the main checkout. The caller is
// expected to have run CheckConflicts first; a conflicted merge here is
// aborted and reported as failed.
func (g *Git) Merge(ctx context.Context, branch, base string, squash bool) (MergeResult, error) {
	if _, err := g.git(ctx, "", "checkout", base); err != nil {
		return MergeResult{}, fmt.Errorf("checkout %s: %w", base, err)
	}

	var mergeErr error
	if squash {
		if _, err := g.git(ctx, "", "merge", "--squash", branch); err != nil {
			mergeErr = err
		} else if _, err := g.git(ctx, "", "commit", "-m", fmt.Sprintf("Merge %s (squash)", branch)); err != nil {
			mergeErr = err
		}
	} else {
		if _, err := g.git(ctx, "", "merge", "--no-ff", branch); err != nil {
			mergeErr = err
		}
	}

	if mergeErr != nil {
		conflicted, _ := g.git(ctx, "", "diff", "--name-only", "--diff-filter=U")
		_, _ = g.git(ctx, "", "merge", "--abort")
		return MergeResult{Success: false, Conflicts: splitLines(conflicted)}, nil
	}

	sha, err := g.git(ctx, "", "rev-parse", "HEAD")
	if err != nil {
		return MergeResult{}, fmt.Errorf("resolve HEAD after merge: %w", err)
	}
	return MergeResult{Success: true, CommitSHA: sha}, nil
}

// AheadBehind reports commit counts between branch and base.
func (g *Git) AheadBehind(ctx context.Context, branch, base string) (int, int, error) {
	out, err := g.git(ctx, "", "rev-list", "--left-right", "--count", base+"..."+branch)
	if err != nil {
		return 0, 0, fmt.Errorf("rev-list %s...%s: %w", base, branch, err)
	}
	fields := strings.Fields(out)
	if len(fields) != 2 {
		return 0, 0, fmt.Errorf("unexpected rev-list output %q", out)
	}
	behind, _ := strconv.Atoi(fields[0])
	ahead, _ := strconv.Atoi(fields[1])
	return ahead, behind, nil
}

// DeleteBranch removes the branch, its worktree, and any stale
// registrations.
func (g *Git) DeleteBranch(ctx context.Context, branch, path string) error {
	g.mu.Lock()
	delete(g.paths, branch)
	g.mu.Unlock()

	if path != "" {
		_, _ = g.git(ctx, "", "worktree", "remove", "--force", path)
	}
	if _, err := g.git(ctx, "", "branch", "-D", branch); err != nil {
		return fmt.Errorf("delete branch %s: %w", branch, err)
	}
	_, _ = g.git(ctx, "", "worktree", "prune")
	return nil
}

func splitLines(s string) []string {
	if s == "" {
		return nil
	}
	var out []string
	for _, line := range strings.Split(s, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			out = append(out, line)
		}
	}
	return out
}
