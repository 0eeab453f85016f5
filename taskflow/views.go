package taskflow

import "github.com/dohr-michael/agentflow/taskdata"

// AllTasks returns every task in insertion order as read-only snapshots.
func (s *Store) AllTasks() []*Task {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*Task, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.byID[id])
	}
	return out
}

// TaskByID returns the task with the given id, or nil.
func (s *Store) TaskByID(taskID string) *Task {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.byID[taskID]
}

// SelectedTask returns the selected task, or nil.
func (s *Store) SelectedTask() *Task {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.selectedTaskID == "" {
		return nil
	}
	return s.byID[s.selectedTaskID]
}

// TasksByStatus returns the tasks whose status equals st.
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
	for _, id := range s.order {
		if t := s.byID[id]; keep(t) {
			out = append(out, t)
		}
	}
	return out
}
