package board

import "sort"

// Snapshot is the serializable form of the store: boards plus tasks
// flattened to an ordered list of (id, record) pairs. The live maps are
// never dumped directly; Restore rebuilds them from this form.
type Snapshot struct {
	ActiveBoard string      `yaml:"active_board" json:"active_board"`
	Boards      []*Board    `yaml:"boards" json:"boards"`
	Tasks       []TaskEntry `yaml:"tasks" json:"tasks"`
}

// TaskEntry pairs a task id with its record for stable serialization.
type TaskEntry struct {
	ID   string `yaml:"id" json:"id"`
	Task *Task  `yaml:"task" json:"task"`
}

// Snapshot flattens the store into a serializable snapshot. Tasks are
// ordered by creation time so output is deterministic.
func (s *Store) Snapshot() *Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap := &Snapshot{ActiveBoard: s.activeBoard}
	for _, b := range s.boards {
		snap.Boards = append(snap.Boards, b.Clone())
	}
	tasks := make([]*Task, 0, len(s.tasks))
	for _, t := range s.tasks {
		tasks = append(tasks, t.Clone())
	}
	sortByCreation(tasks)
	sortBoards(snap.Boards)
	for _, t := range tasks {
		snap.Tasks = append(snap.Tasks, TaskEntry{ID: t.ID, Task: t})
	}
	return snap
}

// Restore replaces the store's contents with the snapshot.
func (s *Store) Restore(snap *Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.boards = make(map[string]*Board, len(snap.Boards))
	s.tasks = make(map[string]*Task, len(snap.Tasks))
	for _, b := range snap.Boards {
		s.boards[b.ID] = b.Clone()
	}
	for _, e := range snap.Tasks {
		if e.Task != nil {
			s.tasks[e.ID] = e.Task.Clone()
		}
	}
	s.activeBoard = snap.ActiveBoard
}

func sortBoards(boards []*Board) {
	sort.Slice(boards, func(i, j int) bool {
		return boards[i].CreatedAt.Before(boards[j].CreatedAt)
	})
}
