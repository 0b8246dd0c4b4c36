// Package agent defines the contract with the external agent backend that
// performs the actual work for a task, plus a Claude CLI adapter and a
// scripted fake for tests.
package agent

import "context"

// TaskDescriptor is the backend-side handle for a unit of work.
type TaskDescriptor struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Priority    string `json:"priority"`
	Role        string `json:"role"`
}

// Result is the outcome of executing one descriptor.
type Result struct {
	Success       bool     `json:"success"`
	FilesModified []string `json:"files_modified"`
	Output        string   `json:"output"`
	Errors        []string `json:"errors,omitempty"`
}

// Backend is the external agent capability. Implementations may shell out,
// call a network API, or (in tests) play back scripted results.
type Backend interface {
	// CreateTask registers a backend-side task descriptor.
	CreateTask(ctx context.Context, title, description, priority, role string) (TaskDescriptor, error)

	// ExecuteChain runs the descriptors in order and returns one result per
	// descriptor, same order. A descriptor's failure is reported in its
	// Result, not as an error; the returned error means the backend itself
	// was unreachable or misbehaved.
	ExecuteChain(ctx context.Context, descriptors []TaskDescriptor) ([]Result, error)
}
