package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	assert.Equal(t, 1, cfg.Version)
	assert.Equal(t, "claude", cfg.Agent.Binary)
	assert.True(t, cfg.Agent.AutoAssign)
	assert.Equal(t, "file", cfg.Storage.Backend)
	assert.Equal(t, "main", cfg.Worktree.BaseBranch)
	assert.True(t, cfg.Worktree.SquashMerge)
	assert.NoError(t, cfg.Validate())
}

func TestLoadFromMissingYieldsDefaults(t *testing.T) {
	cfg, err := LoadFrom(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoadFromMergesOverDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("agent:\n  model: opus\nmax_parallel: 8\n"), 0644))

	cfg, err := LoadFrom(path)
	require.NoError(t, err)
	assert.Equal(t, "opus", cfg.Agent.Model)
	assert.Equal(t, 8, cfg.MaxParallel)
	// Untouched fields keep their defaults.
	assert.Equal(t, "claude", cfg.Agent.Binary)
	assert.Equal(t, "file", cfg.Storage.Backend)
}

func TestLoadFromRejectsInvalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("storage:\n  backend: etcd\n"), 0644))

	_, err := LoadFrom(path)
	assert.ErrorContains(t, err, "unknown storage backend")
}

func TestValidate(t *testing.T) {
	cfg := Default()
	cfg.Storage.Backend = "postgres"
	assert.ErrorContains(t, cfg.Validate(), "storage.dsn")

	cfg.Storage.DSN = "postgres://localhost/sprintloop"
	assert.NoError(t, cfg.Validate())

	cfg = Default()
	cfg.Storage.Path = ""
	assert.ErrorContains(t, cfg.Validate(), "storage.path")

	cfg = Default()
	cfg.MaxParallel = -1
	assert.ErrorContains(t, cfg.Validate(), "max_parallel")
}

func TestSaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")

	cfg := Default()
	cfg.Agent.Model = "sonnet"
	cfg.MaxParallel = 2
	require.NoError(t, cfg.SaveTo(path))

	got, err := LoadFrom(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, got)
}
