// Package errors provides structured error types for sprintloop.
package errors

import (
	"fmt"
	"strings"
)

// Code represents a unique error code.
type Code string

// Error codes for sprintloop.
const (
	// Board/task errors
	CodeBoardNotFound Code = "BOARD_NOT_FOUND"
	CodeTaskNotFound  Code = "TASK_NOT_FOUND"

	// Agent errors
	CodeAgentUnassigned Code = "AGENT_UNASSIGNED"
	CodeBackendFailed   Code = "BACKEND_FAILED"

	// Worktree errors
	CodeWorktreeNotFound Code = "WORKTREE_NOT_FOUND"
	CodeWorktreeExists   Code = "WORKTREE_EXISTS"
	CodeVCSFailed        Code = "VCS_FAILED"
)

// Error is the structured error type for sprintloop.
type Error struct {
	Code  Code
	What  string
	Why   string
	Fix   string
	Cause error
}

// Error implements the error interface.
func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(e.What)
	if e.Why != "" {
		b.WriteString(": ")
		b.WriteString(e.Why)
	}
	if e.Cause != nil {
		b.WriteString(": ")
		b.WriteString(e.Cause.Error())
	}
	return b.String()
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target is an Error with the same code.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// WithCause returns a copy of the error with the given cause.
func (e *Error) WithCause(err error) *Error {
	return &Error{
		Code:  e.Code,
		What:  e.What,
		Why:   e.Why,
		Fix:   e.Fix,
		Cause: err,
	}
}

// UserMessage returns a user-friendly message for CLI output.
func (e *Error) UserMessage() string {
	var b strings.Builder
	b.WriteString("Error: ")
	b.WriteString(e.What)
	if e.Why != "" {
		b.WriteString("\n\nWhy: ")
		b.WriteString(e.Why)
	}
	if e.Fix != "" {
		b.WriteString("\n\nFix: ")
		b.WriteString(e.Fix)
	}
	return b.String()
}

// IsCode reports whether err is (or wraps) an Error with the given code.
func IsCode(err error, code Code) bool {
	for err != nil {
		if se, ok := err.(*Error); ok && se.Code == code {
			return true
		}
		unwrapper, ok := err.(interface{ Unwrap() error })
		if !ok {
			return false
		}
		err = unwrapper.Unwrap()
	}
	return false
}

// IsNotFound reports whether err is any of the not-found codes.
func IsNotFound(err error) bool {
	return IsCode(err, CodeTaskNotFound) ||
		IsCode(err, CodeBoardNotFound) ||
		IsCode(err, CodeWorktreeNotFound)
}

// --- Error constructors ---

// ErrBoardNotFound returns an error when a board doesn't exist.
func ErrBoardNotFound(id string) *Error {
	return &Error{
		Code: CodeBoardNotFound,
		What: fmt.Sprintf("board %s not found", id),
		Why:  "No board with this ID exists in the store",
		Fix:  "Run 'sprintloop board list' to see available boards",
	}
}

// ErrTaskNotFound returns an error when a task doesn't exist.
func ErrTaskNotFound(id string) *Error {
	return &Error{
		Code: CodeTaskNotFound,
		What: fmt.Sprintf("task %s not found", id),
		Why:  "No task with this ID exists in the store",
		Fix:  "Run 'sprintloop list' to see available tasks, or create one with 'sprintloop new'",
	}
}

// ErrAgentUnassigned returns an error when execution is requested before an
// agent role has been assigned.
func ErrAgentUnassigned(taskID string) *Error {
	return &Error{
		Code: CodeAgentUnassigned,
		What: fmt.Sprintf("task %s has no assigned agent", taskID),
		Why:  "Execution requires an agent role to route the work",
		Fix:  fmt.Sprintf("Assign one with 'sprintloop assign %s <role>' or let 'sprintloop run --auto-assign' suggest one", taskID),
	}
}

// ErrBackendFailed returns an error when the external agent backend threw or
// returned failure.
func ErrBackendFailed(taskID, output string) *Error {
	return &Error{
		Code: CodeBackendFailed,
		What: fmt.Sprintf("agent backend failed for task %s", taskID),
		Why:  output,
		Fix:  "The task stays on the board with status=failed; fix the cause and re-run it",
	}
}

// ErrWorktreeNotFound returns an error when no worktree is registered for a task.
func ErrWorktreeNotFound(taskID string) *Error {
	return &Error{
		Code: CodeWorktreeNotFound,
		What: fmt.Sprintf("no worktree registered for task %s", taskID),
		Why:  "The operation requires an active worktree",
		Fix:  fmt.Sprintf("Create one with 'sprintloop worktree create %s'", taskID),
	}
}

// ErrVCSFailed returns an error when a version-control operation failed.
// Attach the underlying failure with WithCause.
func ErrVCSFailed(op string) *Error {
	return &Error{
		Code: CodeVCSFailed,
		What: fmt.Sprintf("version control operation failed: %s", op),
		Why:  "The underlying repository rejected the operation",
		Fix:  "Check the repository state and retry",
	}
}

// ErrWorktreeExists returns an error when a task already has an active worktree.
func ErrWorktreeExists(taskID string) *Error {
	return &Error{
		Code: CodeWorktreeExists,
		What: fmt.Sprintf("task %s already has an active worktree", taskID),
		Why:  "At most one active worktree is allowed per task",
		Fix:  "Merge or delete the existing worktree before creating another",
	}
}
