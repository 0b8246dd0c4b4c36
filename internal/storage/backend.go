// Package storage persists board state between runs. Two backends are
// provided: a JSON file for the default local setup, and a SQL database
// (SQLite or PostgreSQL) for shared deployments.
package storage

import (
	"context"
	"fmt"

	"github.com/sprintloop/sprintloop/internal/board"
	"github.com/sprintloop/sprintloop/internal/worktree"
)

// State is the durable shape of a sprintloop instance: the board snapshot
// (tasks flattened to ordered id/record pairs) plus the worktree summary.
// Everything in it is plain serializable data.
type State struct {
	Board     board.Snapshot         `json:"board"`
	Worktrees worktree.StatusSummary `json:"worktrees"`

	// WorktreeEntries is the full registry, so a restarted process can
	// keep operating on existing worktrees.
	WorktreeEntries []*worktree.Worktree `json:"worktree_entries,omitempty"`
}

// Backend stores and retrieves State. Implementations must be safe for
// concurrent use.
type Backend interface {
	// Save persists the full state, replacing whatever was stored before.
	Save(ctx context.Context, state *State) error

	// Load returns the stored state, or nil when nothing has been saved
	// yet.
	Load(ctx context.Context) (*State, error)

	// Close releases backend resources.
	Close() error
}

// Open creates a backend. kind selects the implementation: "file" treats
// target as a JSON file path, "sqlite" as a database path, "postgres" as a
// connection string.
func Open(kind, target string) (Backend, error) {
	switch kind {
	case "file", "":
		return NewFileBackend(target), nil
	case "sqlite":
		return OpenDatabase(DialectSQLite, target)
	case "postgres":
		return OpenDatabase(DialectPostgres, target)
	default:
		return nil, fmt.Errorf("unknown storage backend %q", kind)
	}
}
