package board

import (
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/sprintloop/sprintloop/internal/errors"
)

// Store is the single source of truth for boards and tasks. All mutations go
// through it, and it enforces the column→status correlation.
//
// All methods are safe for concurrent use; mutations are serialized by an
// internal mutex so concurrently running executions can't corrupt records.
type Store struct {
	mu sync.RWMutex

	boards      map[string]*Board
	tasks       map[string]*Task
	activeBoard string

	newID func() string
	now   func() time.Time
}

// Option configures a Store.
type Option func(*Store)

// WithIDFunc overrides the id generator (tests assert exact ids).
func WithIDFunc(f func() string) Option {
	return func(s *Store) { s.newID = f }
}

// WithClock overrides the time source.
func WithClock(f func() time.Time) Option {
	return func(s *Store) { s.now = f }
}

// NewStore creates an empty store.
func NewStore(opts ...Option) *Store {
	s := &Store{
		boards: make(map[string]*Board),
		tasks:  make(map[string]*Task),
		newID:  uuid.NewString,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreateBoard creates a new board with an empty task list and makes it the
// active board.
func (s *Store) CreateBoard(name, description string) *Board {
	s.mu.Lock()
	defer s.mu.Unlock()

	b := &Board{
		ID:          s.newID(),
		Name:        name,
		Description: description,
		TaskIDs:     []string{},
		Columns:     Columns(),
		CreatedAt:   s.now(),
	}
	s.boards[b.ID] = b
	s.activeBoard = b.ID
	return b.Clone()
}

// Draft holds the caller-settable fields for a new task. Zero values fall
// back to defaults (column=backlog, status=pending, priority=medium).
type Draft struct {
	Title       string
	Description string
	Priority    Priority
	Labels      []string
	ProjectID   string
}

// CreateTask creates a task on the given board. New tasks start in backlog
// with status pending and progress 0.
func (s *Store) CreateTask(boardID string, draft Draft) (*Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	b, ok := s.boards[boardID]
	if !ok {
		return nil, errors.ErrBoardNotFound(boardID)
	}

	priority := draft.Priority
	if priority == "" {
		priority = PriorityMedium
	}

	now := s.now()
	t := &Task{
		ID:          s.newID(),
		Title:       draft.Title,
		Description: draft.Description,
		Column:      ColumnBacklog,
		Status:      StatusPending,
		Priority:    priority,
		Progress:    0,
		Labels:      append([]string(nil), draft.Labels...),
		ProjectID:   draft.ProjectID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	s.tasks[t.ID] = t
	b.TaskIDs = append(b.TaskIDs, t.ID)

	return t.Clone(), nil
}

// Patch holds optional field updates for UpdateTask. Nil fields are left
// unchanged.
type Patch struct {
	Title       *string
	Description *string
	Priority    *Priority
	AgentModel  *string
	Progress    *int
	Labels      *[]string
}

// UpdateTask merges the patch into the task and bumps UpdatedAt. Returns
// NotFoundError for an unknown id (documented choice: silent no-ops hide
// caller bugs).
func (s *Store) UpdateTask(taskID string, patch Patch) (*Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.tasks[taskID]
	if !ok {
		return nil, errors.ErrTaskNotFound(taskID)
	}

	if patch.Title != nil {
		t.Title = *patch.Title
	}
	if patch.Description != nil {
		t.Description = *patch.Description
	}
	if patch.Priority != nil {
		t.Priority = *patch.Priority
	}
	if patch.AgentModel != nil {
		t.AgentModel = *patch.AgentModel
	}
	if patch.Progress != nil {
		t.Progress = clampProgress(*patch.Progress)
	}
	if patch.Labels != nil {
		t.Labels = append([]string(nil), (*patch.Labels)...)
	}
	t.UpdatedAt = s.now()

	return t.Clone(), nil
}

// DeleteTask removes the task and its id from every board. Releasing any
// active worktree is the caller's responsibility.
func (s *Store) DeleteTask(taskID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.tasks[taskID]; !ok {
		return errors.ErrTaskNotFound(taskID)
	}
	delete(s.tasks, taskID)

	for _, b := range s.boards {
		for i, id := range b.TaskIDs {
			if id == taskID {
				b.TaskIDs = append(b.TaskIDs[:i], b.TaskIDs[i+1:]...)
				break
			}
		}
	}
	return nil
}

// MoveTask sets the task's column and applies the column→status side-effect
// table. Status is derived: moving to in_progress forces running, in_review
// forces awaiting_review, done forces completed (and stamps CompletedAt);
// backlog and todo leave status unchanged.
func (s *Store) MoveTask(taskID string, to Column) (*Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.moveTaskLocked(taskID, to)
}

func (s *Store) moveTaskLocked(taskID string, to Column) (*Task, error) {
	t, ok := s.tasks[taskID]
	if !ok {
		return nil, errors.ErrTaskNotFound(taskID)
	}

	now := s.now()
	t.Column = to
	switch to {
	case ColumnInProgress:
		t.Status = StatusRunning
	case ColumnInReview:
		t.Status = StatusAwaitingReview
	case ColumnDone:
		t.Status = StatusCompleted
		t.CompletedAt = &now
	}
	t.UpdatedAt = now

	return t.Clone(), nil
}

// branchIDLen is how much of the task id goes into derived branch names.
const branchIDLen = 8

func shortID(id string) string {
	if len(id) <= branchIDLen {
		return id
	}
	return id[:branchIDLen]
}

// AssignAgent sets the agent role and optional model hint, and derives a
// deterministic branch name agent/{role}/{short task id}.
func (s *Store) AssignAgent(taskID, role, model string) (*Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.tasks[taskID]
	if !ok {
		return nil, errors.ErrTaskNotFound(taskID)
	}

	t.AssignedAgent = role
	t.AgentModel = model
	t.GitBranch = "agent/" + role + "/" + shortID(taskID)
	t.UpdatedAt = s.now()

	return t.Clone(), nil
}

// UnassignAgent clears the agent role and model. The derived branch name is
// left stale until reassignment.
func (s *Store) UnassignAgent(taskID string) (*Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.tasks[taskID]
	if !ok {
		return nil, errors.ErrTaskNotFound(taskID)
	}

	t.AssignedAgent = ""
	t.AgentModel = ""
	t.UpdatedAt = s.now()

	return t.Clone(), nil
}

// StartTask moves the task to in_progress and resets progress to 0.
func (s *Store) StartTask(taskID string) (*Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.moveTaskLocked(taskID, ColumnInProgress); err != nil {
		return nil, err
	}
	t := s.tasks[taskID]
	t.Status = StatusRunning
	t.Progress = 0
	t.UpdatedAt = s.now()
	return t.Clone(), nil
}

// CompleteTask moves the task to done with progress 100.
func (s *Store) CompleteTask(taskID string) (*Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.moveTaskLocked(taskID, ColumnDone); err != nil {
		return nil, err
	}
	t := s.tasks[taskID]
	t.Progress = 100
	if t.CompletedAt != nil && !t.CreatedAt.IsZero() {
		t.ActualDuration = t.CompletedAt.Sub(t.CreatedAt)
	}
	return t.Clone(), nil
}

// SubmitForReview moves the task to in_review and marks the review pending.
// Idempotent: calling it twice leaves the task in the same state.
func (s *Store) SubmitForReview(taskID string) (*Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.moveTaskLocked(taskID, ColumnInReview); err != nil {
		return nil, err
	}
	t := s.tasks[taskID]
	t.ReviewStatus = ReviewPending
	return t.Clone(), nil
}

// ApproveReview marks the review approved. The column is left unchanged; a
// separate CompleteTask call finishes the task.
func (s *Store) ApproveReview(taskID string) (*Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.tasks[taskID]
	if !ok {
		return nil, errors.ErrTaskNotFound(taskID)
	}
	t.ReviewStatus = ReviewApproved
	t.UpdatedAt = s.now()
	return t.Clone(), nil
}

// RequestChanges marks the review as changes_requested and appends a review
// comment. The task is NOT moved back to in_progress; the reviewer may be
// annotating without re-opening, so that decision stays with the caller.
func (s *Store) RequestChanges(taskID, author, comment string) (*Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.tasks[taskID]
	if !ok {
		return nil, errors.ErrTaskNotFound(taskID)
	}
	t.ReviewStatus = ReviewChangesRequested
	t.ReviewComments = append(t.ReviewComments, ReviewComment{
		ID:        s.newID(),
		Author:    author,
		Content:   comment,
		Timestamp: s.now(),
	})
	t.UpdatedAt = s.now()
	return t.Clone(), nil
}

// CommentDraft holds the caller-settable fields for a review comment.
type CommentDraft struct {
	Author     string
	Content    string
	FilePath   string
	LineNumber int
}

// AddReviewComment appends a comment with a generated id and timestamp.
func (s *Store) AddReviewComment(taskID string, draft CommentDraft) (*Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.tasks[taskID]
	if !ok {
		return nil, errors.ErrTaskNotFound(taskID)
	}
	t.ReviewComments = append(t.ReviewComments, ReviewComment{
		ID:         s.newID(),
		Author:     draft.Author,
		Content:    draft.Content,
		FilePath:   draft.FilePath,
		LineNumber: draft.LineNumber,
		Timestamp:  s.now(),
	})
	t.UpdatedAt = s.now()
	return t.Clone(), nil
}

// AddCommit appends a commit record to the task's history.
func (s *Store) AddCommit(taskID string, c Commit) (*Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.tasks[taskID]
	if !ok {
		return nil, errors.ErrTaskNotFound(taskID)
	}
	t.Commits = append(t.Commits, c)
	t.UpdatedAt = s.now()
	return t.Clone(), nil
}

// SetStatus sets the execution status directly, leaving the column alone.
// This is the failure path: a failed task stays in in_progress so it remains
// actionable on the board.
func (s *Store) SetStatus(taskID string, status Status) (*Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.tasks[taskID]
	if !ok {
		return nil, errors.ErrTaskNotFound(taskID)
	}
	t.Status = status
	t.UpdatedAt = s.now()
	return t.Clone(), nil
}

// SetWorktreeRef records the workspace identifiers backing the task.
func (s *Store) SetWorktreeRef(taskID, worktreeID, branch string) (*Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.tasks[taskID]
	if !ok {
		return nil, errors.ErrTaskNotFound(taskID)
	}
	t.WorktreeRef = worktreeID
	if branch != "" {
		t.GitBranch = branch
	}
	t.UpdatedAt = s.now()
	return t.Clone(), nil
}

// GetTask returns the task by id.
func (s *Store) GetTask(taskID string) (*Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	t, ok := s.tasks[taskID]
	if !ok {
		return nil, errors.ErrTaskNotFound(taskID)
	}
	return t.Clone(), nil
}

// GetBoard returns the board by id.
func (s *Store) GetBoard(boardID string) (*Board, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	b, ok := s.boards[boardID]
	if !ok {
		return nil, errors.ErrBoardNotFound(boardID)
	}
	return b.Clone(), nil
}

// GetActiveBoard returns the most recently created board, or nil when no
// board exists yet.
func (s *Store) GetActiveBoard() *Board {
	s.mu.RLock()
	defer s.mu.RUnlock()

	b, ok := s.boards[s.activeBoard]
	if !ok {
		return nil
	}
	return b.Clone()
}

// SetActiveBoard makes the board the default target for new tasks.
func (s *Store) SetActiveBoard(boardID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.boards[boardID]; !ok {
		return errors.ErrBoardNotFound(boardID)
	}
	s.activeBoard = boardID
	return nil
}

// Boards returns all boards sorted by creation time.
func (s *Store) Boards() []*Board {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*Board, 0, len(s.boards))
	for _, b := range s.boards {
		out = append(out, b.Clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out
}

// TasksByColumn returns tasks in the given column, oldest first.
func (s *Store) TasksByColumn(col Column) []*Task {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*Task
	for _, t := range s.tasks {
		if t.Column == col {
			out = append(out, t.Clone())
		}
	}
	sortByCreation(out)
	return out
}

// TasksByAgent returns tasks assigned to the given role, oldest first.
func (s *Store) TasksByAgent(role string) []*Task {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*Task
	for _, t := range s.tasks {
		if t.AssignedAgent == role {
			out = append(out, t.Clone())
		}
	}
	sortByCreation(out)
	return out
}

// BoardTasks returns the board's tasks in board order. An unknown board id
// returns an empty list (read-only queries don't error).
func (s *Store) BoardTasks(boardID string) []*Task {
	s.mu.RLock()
	defer s.mu.RUnlock()

	b, ok := s.boards[boardID]
	if !ok {
		return nil
	}
	out := make([]*Task, 0, len(b.TaskIDs))
	for _, id := range b.TaskIDs {
		if t, ok := s.tasks[id]; ok {
			out = append(out, t.Clone())
		}
	}
	return out
}

func sortByCreation(tasks []*Task) {
	sort.Slice(tasks, func(i, j int) bool {
		if tasks[i].CreatedAt.Equal(tasks[j].CreatedAt) {
			return tasks[i].ID < tasks[j].ID
		}
		return tasks[i].CreatedAt.Before(tasks[j].CreatedAt)
	})
}

func clampProgress(p int) int {
	if p < 0 {
		return 0
	}
	if p > 100 {
		return 100
	}
	return p
}
