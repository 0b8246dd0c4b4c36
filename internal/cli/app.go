package cli

import (
	"context"
	"path/filepath"

	"github.com/sprintloop/sprintloop/internal/agent"
	"github.com/sprintloop/sprintloop/internal/board"
	"github.com/sprintloop/sprintloop/internal/config"
	"github.com/sprintloop/sprintloop/internal/events"
	"github.com/sprintloop/sprintloop/internal/executor"
	"github.com/sprintloop/sprintloop/internal/runner"
	"github.com/sprintloop/sprintloop/internal/storage"
	"github.com/sprintloop/sprintloop/internal/vcs"
	"github.com/sprintloop/sprintloop/internal/worktree"
)

// app wires the components behind every command: config, persistence, the
// board store, worktrees, and the agent backend.
type app struct {
	cfg       *config.Config
	store     *board.Store
	backend   storage.Backend
	worktrees *worktree.Manager
	exec      *executor.Executor
	runner    *runner.Runner
	publisher *events.MemoryPublisher
}

func configPath() string {
	if cfgFile != "" {
		return cfgFile
	}
	return filepath.Join(config.SprintloopDir, config.ConfigFileName)
}

// openApp loads config and persisted state and builds the component graph.
// Callers must close() it.
func openApp(ctx context.Context) (*app, error) {
	cfg, err := config.LoadFrom(configPath())
	if err != nil {
		return nil, err
	}

	target := cfg.Storage.Path
	if cfg.Storage.Backend == "postgres" {
		target = cfg.Storage.DSN
	}
	backend, err := storage.Open(cfg.Storage.Backend, target)
	if err != nil {
		return nil, err
	}

	store := board.NewStore()
	state, err := backend.Load(ctx)
	if err != nil {
		_ = backend.Close()
		return nil, err
	}
	if state != nil {
		store.Restore(&state.Board)
	}

	a := &app{
		cfg:       cfg,
		store:     store,
		backend:   backend,
		publisher: events.NewMemoryPublisher(),
	}

	if cfg.Worktree.Enabled {
		git := vcs.NewGit(".", nil)
		a.worktrees = worktree.NewManager(git, cfg.Worktree.Root, cfg.Worktree.BaseBranch)
		if state != nil {
			a.worktrees.Restore(state.WorktreeEntries)
		}
	}

	claude := agent.NewClaude(
		agent.WithBinary(cfg.Agent.Binary),
		agent.WithModel(cfg.Agent.Model),
	)

	execOpts := []executor.Option{
		executor.WithPublisher(a.publisher),
		executor.WithAutoAssign(cfg.Agent.AutoAssign),
		executor.WithAgentModel(cfg.Agent.Model),
	}
	if a.worktrees != nil {
		execOpts = append(execOpts, executor.WithWorktrees(a.worktrees))
	}
	a.exec = executor.New(store, claude, execOpts...)
	a.runner = runner.New(store, a.exec, runner.WithLimit(cfg.MaxParallel))

	return a, nil
}

// save persists the current board state.
func (a *app) save(ctx context.Context) error {
	state := &storage.State{Board: *a.store.Snapshot()}
	if a.worktrees != nil {
		state.Worktrees = a.worktrees.Status()
		state.WorktreeEntries = a.worktrees.Snapshot()
	}
	return a.backend.Save(ctx, state)
}

func (a *app) close() {
	a.publisher.Close()
	_ = a.backend.Close()
}
