package chatagent

import "github.com/dohr-michael/agentflow/taskdata"

// Derived views: pure projections over the collection, recomputed on every
// call so they always reflect the latest committed mutation. The returned
// tasks are shared snapshots and must be treated as read-only.

// AllTasks returns every task in insertion order.
func (s *Store) AllTasks() []*Task {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.tasks.All()
}

// TaskByID returns the task with the given id, or nil.
func (s *Store) TaskByID(taskID string) *Task {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.tasks.Get(taskID)
}

// SelectedTask returns the task recorded by SelectTask, or nil when nothing
// is selected or the selection no longer exists.
func (s *Store) SelectedTask() *Task {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.selectedTaskID == "" {
		return nil
	}
	return s.tasks.Get(s.selectedTaskID)
}

// SelectedTabIndex returns the tab index recorded by SelectTab (or set
// implicitly by CreateTask).
func (s *Store) SelectedTabIndex() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.selectedTabIndex
}

// TasksByStatus returns the tasks whose status equals st, in insertion order.
func (s *Store) TasksByStatus(st taskdata.Status) []*Task {
	return s.filter(func(t *Task) bool { return t.Status == st })
}

// ActiveTasks returns the tasks that are neither done nor failed.
func (s *Store) ActiveTasks() []*Task {
	return s.filter(func(t *Task) bool { return !t.Status.Terminal() })
}

// CompletedTasks returns the tasks with StatusDone.
func (s *Store) CompletedTasks() []*Task {
	return s.TasksByStatus(taskdata.StatusDone)
}

// FailedTasks returns the tasks with StatusFailed.
func (s *Store) FailedTasks() []*Task {
	return s.TasksByStatus(taskdata.StatusFailed)
}

func (s *Store) filter(keep func(*Task) bool) []*Task {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*Task
	for _, t := range s.tasks.All() {
		if keep(t) {
			out = append(out, t)
		}
	}
	return out
}
