// Package config provides configuration management for sprintloop.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

const (
	// ConfigFileName is the default config file name.
	ConfigFileName = "config.yaml"
	// SprintloopDir is the sprintloop configuration directory.
	SprintloopDir = ".sprintloop"
)

// AgentConfig controls how the external agent backend is invoked.
type AgentConfig struct {
	// Binary is the path to the agent CLI (default: claude).
	Binary string `yaml:"binary"`

	// Model passed to the CLI; empty uses the CLI's default.
	Model string `yaml:"model,omitempty"`

	// AutoAssign suggests a role for unassigned tasks at run time.
	AutoAssign bool `yaml:"auto_assign"`
}

// StorageConfig selects where board state is persisted.
type StorageConfig struct {
	// Backend is one of file, sqlite, postgres.
	Backend string `yaml:"backend"`

	// Path is the state file (file backend) or database path (sqlite).
	Path string `yaml:"path"`

	// DSN is the connection string for the postgres backend.
	DSN string `yaml:"dsn,omitempty"`
}

// WorktreeConfig controls workspace isolation.
type WorktreeConfig struct {
	// Enabled turns on per-task worktrees.
	Enabled bool `yaml:"enabled"`

	// Root is the directory worktrees are created under.
	Root string `yaml:"root"`

	// BaseBranch is the branch worktrees are cut from and merged into.
	BaseBranch string `yaml:"base_branch"`

	// SquashMerge collapses a worktree's history into one commit on merge.
	SquashMerge bool `yaml:"squash_merge"`
}

// Config represents the sprintloop configuration.
type Config struct {
	// Version is the config file version.
	Version int `yaml:"version"`

	Agent    AgentConfig    `yaml:"agent"`
	Storage  StorageConfig  `yaml:"storage"`
	Worktree WorktreeConfig `yaml:"worktree"`

	// MaxParallel bounds how many tasks run at once; 0 means unbounded.
	MaxParallel int `yaml:"max_parallel"`
}

// Default returns the default configuration.
func Default() *Config {
	return &Config{
		Version: 1,
		Agent: AgentConfig{
			Binary:     "claude",
			AutoAssign: true,
		},
		Storage: StorageConfig{
			Backend: "file",
			Path:    filepath.Join(SprintloopDir, "state.json"),
		},
		Worktree: WorktreeConfig{
			Enabled:     true,
			Root:        filepath.Join(SprintloopDir, "worktrees"),
			BaseBranch:  "main",
			SquashMerge: true,
		},
		MaxParallel: 4,
	}
}

// Validate checks cross-field constraints.
func (c *Config) Validate() error {
	switch c.Storage.Backend {
	case "file", "sqlite":
		if c.Storage.Path == "" {
			return fmt.Errorf("storage.path is required for the %s backend", c.Storage.Backend)
		}
	case "postgres":
		if c.Storage.DSN == "" {
			return fmt.Errorf("storage.dsn is required for the postgres backend")
		}
	default:
		return fmt.Errorf("unknown storage backend %q", c.Storage.Backend)
	}
	if c.MaxParallel < 0 {
		return fmt.Errorf("max_parallel cannot be negative")
	}
	return nil
}

// Load loads the config from the default location.
func Load() (*Config, error) {
	return LoadFrom(filepath.Join(SprintloopDir, ConfigFileName))
}

// LoadFrom loads the config from a specific path. A missing file yields
// the defaults.
func LoadFrom(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Default(), nil
		}
		return nil, fmt.Errorf("read config: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save saves the config to the default location.
func (c *Config) Save() error {
	return c.SaveTo(filepath.Join(SprintloopDir, ConfigFileName))
}

// SaveTo saves the config to a specific path.
func (c *Config) SaveTo(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

// Init creates the sprintloop directory structure and a default config.
func Init(force bool) error {
	if !force {
		if _, err := os.Stat(SprintloopDir); err == nil {
			return fmt.Errorf("sprintloop already initialized (use --force to overwrite)")
		}
	}

	dirs := []string{
		SprintloopDir,
		filepath.Join(SprintloopDir, "worktrees"),
	}
	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("create %s: %w", dir, err)
		}
	}

	return Default().Save()
}
