package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/sprintloop/sprintloop/internal/board"
	"github.com/sprintloop/sprintloop/internal/storage/driver"
	"github.com/sprintloop/sprintloop/internal/worktree"
)

// Dialect aliases so callers don't import the driver package directly.
const (
	DialectSQLite   = driver.DialectSQLite
	DialectPostgres = driver.DialectPostgres
)

// DatabaseBackend persists state in a SQL database. Boards and tasks are
// stored as ordered id/record rows; each Save replaces the previous state
// in one transaction.
type DatabaseBackend struct {
	drv driver.Driver
}

var schema = []string{
	`CREATE TABLE IF NOT EXISTS boards (
		id TEXT PRIMARY KEY,
		record TEXT NOT NULL,
		position INTEGER NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS tasks (
		id TEXT PRIMARY KEY,
		record TEXT NOT NULL,
		position INTEGER NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS meta (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL
	)`,
}

// OpenDatabase opens (and migrates) a database backend for the dialect.
func OpenDatabase(dialect driver.Dialect, dsn string) (*DatabaseBackend, error) {
	drv, err := driver.New(dialect)
	if err != nil {
		return nil, err
	}
	if err := drv.Open(dsn); err != nil {
		return nil, err
	}

	ctx := context.Background()
	for _, stmt := range schema {
		if _, err := drv.Exec(ctx, stmt); err != nil {
			_ = drv.Close()
			return nil, fmt.Errorf("create schema: %w", err)
		}
	}
	return &DatabaseBackend{drv: drv}, nil
}

func (b *DatabaseBackend) placeholders(n int) string {
	out := ""
	for i := 1; i <= n; i++ {
		if i > 1 {
			out += ", "
		}
		out += b.drv.Placeholder(i)
	}
	return out
}

// Save replaces the stored state in one transaction.
func (b *DatabaseBackend) Save(ctx context.Context, state *State) error {
	tx, err := b.drv.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin save: %w", err)
	}
	defer tx.Rollback()

	for _, table := range []string{"boards", "tasks", "meta"} {
		if _, err := tx.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return fmt.Errorf("clear %s: %w", table, err)
		}
	}

	insert3 := b.placeholders(3)
	for i, bd := range state.Board.Boards {
		record, err := json.Marshal(bd)
		if err != nil {
			return fmt.Errorf("marshal board %s: %w", bd.ID, err)
		}
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO boards (id, record, position) VALUES ("+insert3+")",
			bd.ID, string(record), i); err != nil {
			return fmt.Errorf("insert board %s: %w", bd.ID, err)
		}
	}

	for i, entry := range state.Board.Tasks {
		record, err := json.Marshal(entry.Task)
		if err != nil {
			return fmt.Errorf("marshal task %s: %w", entry.ID, err)
		}
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO tasks (id, record, position) VALUES ("+insert3+")",
			entry.ID, string(record), i); err != nil {
			return fmt.Errorf("insert task %s: %w", entry.ID, err)
		}
	}

	summary, err := json.Marshal(state.Worktrees)
	if err != nil {
		return fmt.Errorf("marshal worktree summary: %w", err)
	}
	entries, err := json.Marshal(state.WorktreeEntries)
	if err != nil {
		return fmt.Errorf("marshal worktree entries: %w", err)
	}
	insert2 := b.placeholders(2)
	for key, value := range map[string]string{
		"active_board":     state.Board.ActiveBoard,
		"worktree_summary": string(summary),
		"worktree_entries": string(entries),
	} {
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO meta (key, value) VALUES ("+insert2+")",
			key, value); err != nil {
			return fmt.Errorf("insert meta %s: %w", key, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit save: %w", err)
	}
	return nil
}

// Load reads the stored state. An empty database means no state yet.
func (b *DatabaseBackend) Load(ctx context.Context) (*State, error) {
	var state State

	var saved int
	if err := b.drv.QueryRow(ctx, "SELECT COUNT(*) FROM meta").Scan(&saved); err != nil {
		return nil, fmt.Errorf("check meta: %w", err)
	}
	if saved == 0 {
		return nil, nil
	}

	rows, err := b.drv.Query(ctx, "SELECT record FROM boards ORDER BY position")
	if err != nil {
		return nil, fmt.Errorf("load boards: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var record string
		if err := rows.Scan(&record); err != nil {
			return nil, fmt.Errorf("scan board: %w", err)
		}
		var bd board.Board
		if err := json.Unmarshal([]byte(record), &bd); err != nil {
			return nil, fmt.Errorf("parse board record: %w", err)
		}
		state.Board.Boards = append(state.Board.Boards, &bd)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate boards: %w", err)
	}

	taskRows, err := b.drv.Query(ctx, "SELECT id, record FROM tasks ORDER BY position")
	if err != nil {
		return nil, fmt.Errorf("load tasks: %w", err)
	}
	defer taskRows.Close()
	for taskRows.Next() {
		var id, record string
		if err := taskRows.Scan(&id, &record); err != nil {
			return nil, fmt.Errorf("scan task: %w", err)
		}
		var task board.Task
		if err := json.Unmarshal([]byte(record), &task); err != nil {
			return nil, fmt.Errorf("parse task record %s: %w", id, err)
		}
		state.Board.Tasks = append(state.Board.Tasks, board.TaskEntry{ID: id, Task: &task})
	}
	if err := taskRows.Err(); err != nil {
		return nil, fmt.Errorf("iterate tasks: %w", err)
	}

	if err := b.loadMeta(ctx, &state); err != nil {
		return nil, err
	}
	return &state, nil
}

func (b *DatabaseBackend) loadMeta(ctx context.Context, state *State) error {
	get := func(key string) (string, error) {
		var value string
		err := b.drv.QueryRow(ctx,
			"SELECT value FROM meta WHERE key = "+b.drv.Placeholder(1), key).Scan(&value)
		if err == sql.ErrNoRows {
			return "", nil
		}
		return value, err
	}

	active, err := get("active_board")
	if err != nil {
		return fmt.Errorf("load active board: %w", err)
	}
	state.Board.ActiveBoard = active

	summary, err := get("worktree_summary")
	if err != nil {
		return fmt.Errorf("load worktree summary: %w", err)
	}
	if summary != "" {
		var s worktree.StatusSummary
		if err := json.Unmarshal([]byte(summary), &s); err != nil {
			return fmt.Errorf("parse worktree summary: %w", err)
		}
		state.Worktrees = s
	}

	entries, err := get("worktree_entries")
	if err != nil {
		return fmt.Errorf("load worktree entries: %w", err)
	}
	if entries != "" && entries != "null" {
		if err := json.Unmarshal([]byte(entries), &state.WorktreeEntries); err != nil {
			return fmt.Errorf("parse worktree entries: %w", err)
		}
	}
	return nil
}

// Close closes the underlying database.
func (b *DatabaseBackend) Close() error {
	return b.drv.Close()
}
