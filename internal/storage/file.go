package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sync"

	"github.com/sprintloop/sprintloop/internal/util"
)

// FileBackend persists state as a single JSON file. Writes are atomic, so
// a crash mid-save never leaves a corrupt file behind.
type FileBackend struct {
	mu   sync.Mutex
	path string
}

// NewFileBackend creates a file backend writing to path.
func NewFileBackend(path string) *FileBackend {
	return &FileBackend{path: path}
}

// Save writes the state to the file.
func (f *FileBackend) Save(ctx context.Context, state *State) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal state: %w", err)
	}
	if err := util.AtomicWriteFile(f.path, data, 0644); err != nil {
		return fmt.Errorf("write state file: %w", err)
	}
	return nil
}

// Load reads the state from the file. A missing file means no state yet.
func (f *FileBackend) Load(ctx context.Context) (*State, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	data, err := os.ReadFile(f.path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read state file: %w", err)
	}

	var state State
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, fmt.Errorf("parse state file: %w", err)
	}
	return &state, nil
}

// Close is a no-op for the file backend.
func (f *FileBackend) Close() error {
	return nil
}
