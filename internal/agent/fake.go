package agent

import (
	"context"
	"fmt"
	"sync"
)

// Fake is a scripted Backend for tests. Results are matched by descriptor
// title; unscripted descriptors succeed with no modified files.
type Fake struct {
	mu      sync.Mutex
	scripts map[string]Result
	// Err, when set, is returned by ExecuteChain to simulate an
	// unreachable backend.
	Err error

	created  []TaskDescriptor
	executed [][]TaskDescriptor
	seq      int
}

// NewFake creates an empty fake backend.
func NewFake() *Fake {
	return &Fake{scripts: make(map[string]Result)}
}

// Script sets the result returned for descriptors with the given title.
func (f *Fake) Script(title string, res Result) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.scripts[title] = res
}

// Created returns all descriptors registered via CreateTask.
func (f *Fake) Created() []TaskDescriptor {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]TaskDescriptor(nil), f.created...)
}

// Executed returns the descriptor batches passed to ExecuteChain.
func (f *Fake) Executed() [][]TaskDescriptor {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([][]TaskDescriptor(nil), f.executed...)
}

func (f *Fake) CreateTask(ctx context.Context, title, description, priority, role string) (TaskDescriptor, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.seq++
	d := TaskDescriptor{
		ID:          fmt.Sprintf("backend-%03d", f.seq),
		Title:       title,
		Description: description,
		Priority:    priority,
		Role:        role,
	}
	f.created = append(f.created, d)
	return d, nil
}

func (f *Fake) ExecuteChain(ctx context.Context, descriptors []TaskDescriptor) ([]Result, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.executed = append(f.executed, append([]TaskDescriptor(nil), descriptors...))
	if f.Err != nil {
		return nil, f.Err
	}

	results := make([]Result, 0, len(descriptors))
	for _, d := range descriptors {
		if res, ok := f.scripts[d.Title]; ok {
			results = append(results, res)
			continue
		}
		results = append(results, Result{Success: true, Output: "done"})
	}
	return results, nil
}
