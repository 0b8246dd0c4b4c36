// Package board provides the task and board data model for sprintloop.
package board

import (
	"time"
)

// Column represents a task's position on the board.
type Column string

const (
	ColumnBacklog    Column = "backlog"
	ColumnTodo       Column = "todo"
	ColumnInProgress Column = "in_progress"
	ColumnInReview   Column = "in_review"
	ColumnDone       Column = "done"
)

// Columns returns all board columns in workflow order.
func Columns() []Column {
	return []Column{ColumnBacklog, ColumnTodo, ColumnInProgress, ColumnInReview, ColumnDone}
}

// IsValidColumn returns true if the column is a valid column value.
func IsValidColumn(c Column) bool {
	switch c {
	case ColumnBacklog, ColumnTodo, ColumnInProgress, ColumnInReview, ColumnDone:
		return true
	default:
		return false
	}
}

// Status represents a task's execution state. It is derived from column
// moves rather than set independently; see Store.MoveTask.
type Status string

const (
	StatusPending        Status = "pending"
	StatusRunning        Status = "running"
	StatusAwaitingReview Status = "awaiting_review"
	StatusCompleted      Status = "completed"
	StatusFailed         Status = "failed"
)

// ValidStatuses returns all valid status values.
func ValidStatuses() []Status {
	return []Status{StatusPending, StatusRunning, StatusAwaitingReview, StatusCompleted, StatusFailed}
}

// IsValidStatus returns true if the status is a valid status value.
func IsValidStatus(s Status) bool {
	switch s {
	case StatusPending, StatusRunning, StatusAwaitingReview, StatusCompleted, StatusFailed:
		return true
	default:
		return false
	}
}

// Priority represents the urgency/importance of a task.
type Priority string

const (
	PriorityLow      Priority = "low"
	PriorityMedium   Priority = "medium"
	PriorityHigh     Priority = "high"
	PriorityCritical Priority = "critical"
)

// IsValidPriority returns true if the priority is a valid priority value.
func IsValidPriority(p Priority) bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh, PriorityCritical:
		return true
	default:
		return false
	}
}

// ReviewStatus represents the review decision on a task.
type ReviewStatus string

const (
	ReviewPending          ReviewStatus = "pending"
	ReviewApproved         ReviewStatus = "approved"
	ReviewChangesRequested ReviewStatus = "changes_requested"
)

// Commit records one commit produced while working on a task.
type Commit struct {
	SHA          string    `yaml:"sha" json:"sha"`
	Message      string    `yaml:"message" json:"message"`
	Author       string    `yaml:"author" json:"author"`
	Timestamp    time.Time `yaml:"timestamp" json:"timestamp"`
	FilesChanged []string  `yaml:"files_changed,omitempty" json:"files_changed,omitempty"`
}

// ReviewComment is a single comment left during review.
type ReviewComment struct {
	ID         string    `yaml:"id" json:"id"`
	Author     string    `yaml:"author" json:"author"`
	Content    string    `yaml:"content" json:"content"`
	Timestamp  time.Time `yaml:"timestamp" json:"timestamp"`
	Resolved   bool      `yaml:"resolved" json:"resolved"`
	FilePath   string    `yaml:"file_path,omitempty" json:"file_path,omitempty"`
	LineNumber int       `yaml:"line_number,omitempty" json:"line_number,omitempty"`
}

// Task represents a unit of work moving through the board.
type Task struct {
	ID          string `yaml:"id" json:"id"`
	Title       string `yaml:"title" json:"title"`
	Description string `yaml:"description,omitempty" json:"description,omitempty"`

	Column   Column   `yaml:"column" json:"column"`
	Status   Status   `yaml:"status" json:"status"`
	Priority Priority `yaml:"priority" json:"priority"`

	// AssignedAgent is the role routing this task (e.g. "development");
	// AgentModel is an optional backend model hint.
	AssignedAgent string `yaml:"assigned_agent,omitempty" json:"assigned_agent,omitempty"`
	AgentModel    string `yaml:"agent_model,omitempty" json:"agent_model,omitempty"`

	// GitBranch and WorktreeRef identify the isolated workspace backing
	// this task while it runs.
	GitBranch   string `yaml:"git_branch,omitempty" json:"git_branch,omitempty"`
	WorktreeRef string `yaml:"worktree_ref,omitempty" json:"worktree_ref,omitempty"`

	Commits        []Commit        `yaml:"commits,omitempty" json:"commits,omitempty"`
	ReviewStatus   ReviewStatus    `yaml:"review_status,omitempty" json:"review_status,omitempty"`
	ReviewComments []ReviewComment `yaml:"review_comments,omitempty" json:"review_comments,omitempty"`

	// Progress is 0-100.
	Progress int `yaml:"progress" json:"progress"`

	CreatedAt   time.Time  `yaml:"created_at" json:"created_at"`
	UpdatedAt   time.Time  `yaml:"updated_at" json:"updated_at"`
	CompletedAt *time.Time `yaml:"completed_at,omitempty" json:"completed_at,omitempty"`

	EstimatedDuration time.Duration `yaml:"estimated_duration,omitempty" json:"estimated_duration,omitempty"`
	ActualDuration    time.Duration `yaml:"actual_duration,omitempty" json:"actual_duration,omitempty"`

	Labels    []string `yaml:"labels,omitempty" json:"labels,omitempty"`
	ProjectID string   `yaml:"project_id,omitempty" json:"project_id,omitempty"`
}

// Clone returns a deep copy of the task. The store hands out clones so
// callers can't mutate records behind its back.
func (t *Task) Clone() *Task {
	c := *t
	c.Commits = append([]Commit(nil), t.Commits...)
	c.ReviewComments = append([]ReviewComment(nil), t.ReviewComments...)
	c.Labels = append([]string(nil), t.Labels...)
	if t.CompletedAt != nil {
		at := *t.CompletedAt
		c.CompletedAt = &at
	}
	return &c
}

// IsTerminal returns true if the task is in a terminal execution state.
func (t *Task) IsTerminal() bool {
	return t.Status == StatusCompleted
}

// Board is a named container of task references. It never stores task
// content; the store owns task records and boards hold ids only.
type Board struct {
	ID          string    `yaml:"id" json:"id"`
	Name        string    `yaml:"name" json:"name"`
	Description string    `yaml:"description,omitempty" json:"description,omitempty"`
	TaskIDs     []string  `yaml:"task_ids" json:"task_ids"`
	Columns     []Column  `yaml:"columns" json:"columns"`
	CreatedAt   time.Time `yaml:"created_at" json:"created_at"`
}

// Clone returns a deep copy of the board.
func (b *Board) Clone() *Board {
	c := *b
	c.TaskIDs = append([]string(nil), b.TaskIDs...)
	c.Columns = append([]Column(nil), b.Columns...)
	return &c
}
