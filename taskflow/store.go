// Package taskflow implements the flat task store variant: each task holds a
// single ordered chunk list (no sender grouping), and streams are folded in
// through caller-supplied status/data mappers.
package taskflow

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"

	"github.com/dohr-michael/agentflow/stream"
	"github.com/dohr-michael/agentflow/taskdata"
)

// Task is one tracked unit of work: an id, a status, and the flat sequence of
// chunks received so far.
type Task struct {
	ID     string           `json:"id"`
	Status taskdata.Status  `json:"status"`
	Data   []taskdata.Chunk `json:"data"`
}

// Clone returns a deep copy of the task.
func (t *Task) Clone() *Task {
	if t == nil {
		return nil
	}
	c := *t
	c.Data = append([]taskdata.Chunk(nil), t.Data...)
	return &c
}

// Changes is the partial change set handed to the update callback.
type Changes struct {
	Status *taskdata.Status `json:"status,omitempty"`
	Data   []taskdata.Chunk `json:"data,omitempty"`
}

// Callbacks is the optional persistence bridge. Mutating callbacks fire after
// the in-memory commit, on their own goroutine; failures are logged and never
// roll anything back.
type Callbacks struct {
	OnTaskCreate func(task *Task)
	OnTaskUpdate func(taskID string, changes Changes)
	OnTaskDelete func(taskID string)
	OnTasksLoad  func() ([]*Task, error)
}

// StatusMapper derives the task status implied by one stream event.
type StatusMapper func(ev stream.Event) taskdata.Status

// DataMapper converts one stream event into the chunk to append.
type DataMapper func(ev stream.Event) taskdata.Chunk

// Store is the flat-variant task store: an insertion-ordered id→task mapping
// plus a selection. Safe for concurrent use.
type Store struct {
	mu        sync.RWMutex
	order     []string
	byID      map[string]*Task
	callbacks Callbacks

	selectedTaskID string
	loading        bool

	notifyc chan struct{}
}

// NewStore creates a store with the given persistence bridge. Call
// LoadExistingTasks to populate it.
func NewStore(callbacks Callbacks) *Store {
	return &Store{
		byID:      make(map[string]*Task),
		callbacks: callbacks,
		notifyc:   make(chan struct{}, 1),
	}
}

func (s *Store) notify() {
	select {
	case s.notifyc <- struct{}{}:
	default:
	}
}

// Changes returns a coalesced change-signal channel.
func (s *Store) Changes() <-chan struct{} { return s.notifyc }

func (s *Store) fire(name string, fn func()) {
	if fn == nil {
		return
	}
	go func() {
		defer func() {
			if r := recover(); r != nil {
				slog.Error("task callback failed", "callback", name, "error", r)
			}
		}()
		fn()
	}()
}

// LoadExistingTasks replaces the store contents with the tasks supplied by
// OnTasksLoad. A no-op when no loader is configured; load errors are logged.
func (s *Store) LoadExistingTasks() {
	if s.callbacks.OnTasksLoad == nil {
		return
	}

	s.mu.Lock()
	s.loading = true
	s.mu.Unlock()

	tasks, err := s.callbacks.OnTasksLoad()

	s.mu.Lock()
	s.loading = false
	if err == nil {
		s.setAllLocked(tasks)
	}
	s.mu.Unlock()
	s.notify()

	if err != nil {
		slog.Error("load tasks", "error", err)
	}
}

// IsLoading reports whether an initial load is in flight.
func (s *Store) IsLoading() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loading
}

// AddTask inserts a task and fires the create callback.
func (s *Store) AddTask(task *Task) {
	t := task.Clone()

	s.mu.Lock()
	if _, ok := s.byID[t.ID]; !ok {
		s.order = append(s.order, t.ID)
	}
	s.byID[t.ID] = t
	s.mu.Unlock()
	s.notify()

	snapshot := t.Clone()
	s.fire("onTaskCreate", func() {
		if s.callbacks.OnTaskCreate != nil {
			s.callbacks.OnTaskCreate(snapshot)
		}
	})
}

// AddTasks inserts each task in order, firing the create callback per task.
func (s *Store) AddTasks(tasks []*Task) {
	for _, t := range tasks {
		s.AddTask(t)
	}
}

// SetAllTasks replaces the store contents. No callbacks fire; a bulk load is
// a trusted source.
func (s *Store) SetAllTasks(tasks []*Task) {
	s.mu.Lock()
	s.setAllLocked(tasks)
	s.mu.Unlock()
	s.notify()
}

func (s *Store) setAllLocked(tasks []*Task) {
	s.order = s.order[:0]
	s.byID = make(map[string]*Task, len(tasks))
	for _, t := range tasks {
		t := t.Clone()
		s.order = append(s.order, t.ID)
		s.byID[t.ID] = t
	}
}

// RemoveTask deletes a task. Unknown ids are a no-op and fire no callback.
func (s *Store) RemoveTask(taskID string) {
	s.mu.Lock()
	_, ok := s.byID[taskID]
	if ok {
		delete(s.byID, taskID)
		for i, id := range s.order {
			if id == taskID {
				s.order = append(s.order[:i], s.order[i+1:]...)
				break
			}
		}
		if s.selectedTaskID == taskID {
			s.selectedTaskID = ""
		}
	}
	s.mu.Unlock()

	if !ok {
		return
	}
	s.notify()
	s.fire("onTaskDelete", func() {
		if s.callbacks.OnTaskDelete != nil {
			s.callbacks.OnTaskDelete(taskID)
		}
	})
}

// UpdateTaskStatus transitions a task's status and fires the update callback
// with the status change. Unknown ids are a no-op.
func (s *Store) UpdateTaskStatus(taskID string, status taskdata.Status) {
	s.mu.Lock()
	t, ok := s.byID[taskID]
	if ok {
		c := t.Clone()
		c.Status = status
		s.byID[taskID] = c
	}
	s.mu.Unlock()

	if !ok {
		return
	}
	s.notify()
	s.fire("onTaskUpdate", func() {
		if s.callbacks.OnTaskUpdate != nil {
			st := status
			s.callbacks.OnTaskUpdate(taskID, Changes{Status: &st})
		}
	})
}

// AddTaskData appends a chunk to a task's data list and fires the update
// callback with the new list. Unknown ids are a no-op.
func (s *Store) AddTaskData(taskID string, chunk taskdata.Chunk) {
	s.mu.Lock()
	t, ok := s.byID[taskID]
	var snapshot []taskdata.Chunk
	if ok {
		c := t.Clone()
		c.Data = append(c.Data, chunk)
		s.byID[taskID] = c
		snapshot = append([]taskdata.Chunk(nil), c.Data...)
	}
	s.mu.Unlock()

	if !ok {
		return
	}
	s.notify()
	s.fire("onTaskUpdate", func() {
		if s.callbacks.OnTaskUpdate != nil {
			s.callbacks.OnTaskUpdate(taskID, Changes{Data: snapshot})
		}
	})
}

// SelectTask records the selected task id; empty clears the selection.
func (s *Store) SelectTask(taskID string) {
	s.mu.Lock()
	s.selectedTaskID = taskID
	s.mu.Unlock()
	s.notify()
}

// Subscription is the cancel handle returned by Connect.
type Subscription struct {
	cancel context.CancelFunc
	done   chan struct{}
}

// Cancel stops ingestion. The task status stays whatever it was; no terminal
// transition happens on cancellation.
func (s *Subscription) Cancel() {
	s.cancel()
	<-s.done
}

// Done is closed once ingestion has stopped.
func (s *Subscription) Done() <-chan struct{} { return s.done }

// Connect attaches a stream to a task. The task moves to StatusProcessing
// immediately; each event is mapped through statusMapper and dataMapper and
// appended. A stream error marks the task failed with an error chunk; normal
// completion marks it done unless it already failed. A non-nil stop channel
// cancels ingestion when it receives or closes.
func (s *Store) Connect(ctx context.Context, taskID string, st stream.Stream, statusMapper StatusMapper, dataMapper DataMapper, stop <-chan struct{}) *Subscription {
	s.UpdateTaskStatus(taskID, taskdata.StatusProcessing)

	ctx, cancel := context.WithCancel(ctx)
	sub := &Subscription{cancel: cancel, done: make(chan struct{})}

	if stop != nil {
		go func() {
			select {
			case <-stop:
				cancel()
			case <-ctx.Done():
			}
		}()
	}

	go func() {
		defer close(sub.done)
		for {
			ev, err := st.Recv(ctx)
			if err != nil {
				switch {
				case errors.Is(err, io.EOF):
					if t := s.TaskByID(taskID); t != nil && t.Status != taskdata.StatusFailed {
						s.UpdateTaskStatus(taskID, taskdata.StatusDone)
					}
				case errors.Is(err, context.Canceled) || ctx.Err() != nil:
					// Cancelled: leave the status as-is.
				default:
					s.UpdateTaskStatus(taskID, taskdata.StatusFailed)
					s.AddTaskData(taskID, taskdata.Chunk{
						Type:        taskdata.ChunkError,
						Content:     errContent(err),
						Observation: "Task failed due to an error",
					})
				}
				return
			}
			s.UpdateTaskStatus(taskID, statusMapper(ev))
			s.AddTaskData(taskID, dataMapper(ev))
		}
	}()
	return sub
}

func errContent(err error) string {
	if err == nil || err.Error() == "" {
		return "Unknown error"
	}
	return err.Error()
}
