package chatagent

import (
	"log/slog"
	"strings"
	"sync"

	"github.com/dohr-michael/agentflow/taskdata"
)

// Options configures a Store at construction time.
type Options struct {
	// GlobalContextPrompt is prepended to every task's seeded context chunk.
	GlobalContextPrompt string
	// PersistTasks gates the persistence bridge. When false the store is
	// purely in-memory and the create/update/delete/load callbacks are never
	// consulted.
	PersistTasks bool
	// StorageKey names the storage bucket the bridge should use. The store
	// only carries it; interpretation is up to the bridge implementation.
	StorageKey string
	// Callbacks is the persistence bridge. All fields optional.
	Callbacks Callbacks
}

// Store holds the task collection and all state that was store-scoped in the
// hosting application: selection, tab index, configuration and the bridge.
// It is safe for concurrent use; mutations take the write lock, views the
// read lock.
type Store struct {
	mu        sync.RWMutex
	tasks     *Collection
	callbacks Callbacks

	globalContextPrompt string
	persist             bool
	storageKey          string

	selectedTaskID   string
	selectedTabIndex int
	loading          bool

	notifyc chan struct{}
}

// NewStore creates a store with the given options. Call LoadExistingTasks to
// populate it from the persistence bridge.
func NewStore(opts Options) *Store {
	return &Store{
		tasks:               NewCollection(),
		callbacks:           opts.Callbacks,
		globalContextPrompt: opts.GlobalContextPrompt,
		persist:             opts.PersistTasks,
		storageKey:          opts.StorageKey,
		notifyc:             make(chan struct{}, 1),
	}
}

// StorageKey returns the configured storage bucket name.
func (s *Store) StorageKey() string { return s.storageKey }

// notify signals watchers that the store changed. Non-blocking; consecutive
// changes coalesce into one signal.
func (s *Store) notify() {
	select {
	case s.notifyc <- struct{}{}:
	default:
	}
}

// Changes returns a channel that receives a signal after store mutations.
// Signals are coalesced, so a receiver re-reads the views it cares about
// rather than counting notifications.
func (s *Store) Changes() <-chan struct{} {
	return s.notifyc
}

// LoadExistingTasks replaces the collection with the tasks supplied by the
// OnTasksLoad callback. Load errors are logged and leave the collection
// untouched. A no-op when persistence is disabled or no loader is set.
func (s *Store) LoadExistingTasks() {
	if !s.persist || s.callbacks.OnTasksLoad == nil {
		return
	}

	s.mu.Lock()
	s.loading = true
	s.mu.Unlock()
	s.notify()

	tasks, err := s.callbacks.OnTasksLoad()

	s.mu.Lock()
	s.loading = false
	if err == nil {
		s.tasks.SetAll(tasks)
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

// CreateTask adds a new task seeded with a system context message built from
// the global context prompt and the per-task prompt. The new task starts in
// StatusStarting and becomes the selected tab. A snapshot of the task is
// returned.
func (s *Store) CreateTask(name, contextPrompt string, allowUserInput bool) *Task {
	task := &Task{
		ID:             GenerateTaskID(),
		Name:           name,
		Status:         taskdata.StatusStarting,
		AllowUserInput: allowUserInput,
		Messages: []Message{{
			Sender: taskdata.SenderSystem,
			Data: []taskdata.Chunk{{
				Type:    taskdata.ChunkContext,
				Content: s.globalContextPrompt + "\n" + contextPrompt,
			}},
		}},
	}

	s.mu.Lock()
	s.tasks.Insert(task)
	s.selectedTabIndex = s.tasks.Len() - 1
	s.mu.Unlock()
	s.notify()

	if s.persist {
		snapshot := task.Clone()
		fire("onTaskCreate", func() {
			if s.callbacks.OnTaskCreate != nil {
				s.callbacks.OnTaskCreate(snapshot)
			}
		})
	}
	return task.Clone()
}

// AddTasks inserts pre-built tasks (for example restored from an external
// source), firing the create callback for each.
func (s *Store) AddTasks(tasks []*Task) {
	for _, t := range tasks {
		t := t.Clone()
		s.mu.Lock()
		s.tasks.Insert(t)
		s.mu.Unlock()
		s.notify()

		if s.persist {
			snapshot := t.Clone()
			fire("onTaskCreate", func() {
				if s.callbacks.OnTaskCreate != nil {
					s.callbacks.OnTaskCreate(snapshot)
				}
			})
		}
	}
}

// SetAllTasks replaces the whole collection. Load is a trusted source: task
// statuses are taken as-is and no callbacks fire.
func (s *Store) SetAllTasks(tasks []*Task) {
	s.mu.Lock()
	s.tasks.SetAll(tasks)
	s.mu.Unlock()
	s.notify()
}

// RemoveTask deletes a task. Removing an unknown id is a no-op and fires no
// callback.
func (s *Store) RemoveTask(taskID string) {
	s.mu.Lock()
	removed := s.tasks.Remove(taskID)
	if removed && s.selectedTaskID == taskID {
		s.selectedTaskID = ""
	}
	s.mu.Unlock()

	if !removed {
		return
	}
	s.notify()

	if s.persist {
		fire("onTaskDelete", func() {
			if s.callbacks.OnTaskDelete != nil {
				s.callbacks.OnTaskDelete(taskID)
			}
		})
	}
}

// RemoveAllTasks removes every task, firing the delete callback per task.
func (s *Store) RemoveAllTasks() {
	s.mu.RLock()
	ids := make([]string, 0, s.tasks.Len())
	for _, t := range s.tasks.All() {
		ids = append(ids, t.ID)
	}
	s.mu.RUnlock()

	for _, id := range ids {
		s.RemoveTask(id)
	}
}

// UpdateTaskStatus transitions a task's status. Unknown ids are a no-op. The
// update callback receives the new status together with a snapshot of the
// task's messages, so terminal transitions persist the full history.
func (s *Store) UpdateTaskStatus(taskID string, status taskdata.Status) {
	s.mu.Lock()
	updated := s.tasks.Patch(taskID, TaskPatch{Status: &status})
	s.mu.Unlock()

	if updated == nil {
		return
	}
	s.notify()

	if s.persist {
		changes := TaskPatch{Status: &status, Messages: updated.Clone().Messages}
		fire("onTaskUpdate", func() {
			if s.callbacks.OnTaskUpdate != nil {
				s.callbacks.OnTaskUpdate(taskID, changes)
			}
		})
	}
}

// AddTaskMessage appends a chunk for the given sender, coalescing into the
// task's last message when it has the same sender and starting a new message
// otherwise. This single rule produces the grouped turns: any interleaving of
// senders yields alternating messages, never two adjacent turns by the same
// sender. Unknown ids are a no-op.
func (s *Store) AddTaskMessage(taskID string, sender taskdata.Sender, chunk taskdata.Chunk) {
	s.mu.Lock()
	task := s.tasks.Get(taskID)
	if task == nil {
		s.mu.Unlock()
		return
	}

	messages := task.Clone().Messages
	if n := len(messages); n > 0 && messages[n-1].Sender == sender {
		messages[n-1].Data = append(messages[n-1].Data, chunk)
	} else {
		messages = append(messages, Message{Sender: sender, Data: []taskdata.Chunk{chunk}})
	}
	s.tasks.Patch(taskID, TaskPatch{Messages: messages})
	s.mu.Unlock()
	s.notify()
}

// SendMessage folds a user-submitted message into the task via the same
// coalescing rule as ingestion. Empty (after trimming) messages and messages
// sent while the task is processing are rejected as no-ops; the host attaches
// the next assistant stream itself, usually from the OnUserMessage callback.
func (s *Store) SendMessage(taskID, message string) {
	if strings.TrimSpace(message) == "" {
		return
	}

	s.mu.RLock()
	task := s.tasks.Get(taskID)
	processing := task != nil && task.Status == taskdata.StatusProcessing
	s.mu.RUnlock()
	if task == nil || processing {
		return
	}

	s.AddTaskMessage(taskID, taskdata.SenderUser, taskdata.Chunk{
		Type:        taskdata.ChunkUser,
		Content:     message,
		Observation: string(taskdata.ChunkUser),
	})

	fire("onUserMessage", func() {
		if s.callbacks.OnUserMessage != nil {
			s.callbacks.OnUserMessage(taskID, message)
		}
	})
}

// LatestChunk returns a copy of the last chunk of the task's last message,
// or nil when the task is unknown or empty.
func (s *Store) LatestChunk(taskID string) *taskdata.Chunk {
	s.mu.RLock()
	defer s.mu.RUnlock()

	latest := s.tasks.Get(taskID).latestChunk()
	if latest == nil {
		return nil
	}
	c := *latest
	return &c
}

// appendToLatestChunk grows the content of the task's last chunk by text.
// This is how token-by-token streamed text reassembles into one string.
func (s *Store) appendToLatestChunk(taskID, text string) {
	s.mu.Lock()
	task := s.tasks.Get(taskID)
	if task.latestChunk() == nil {
		s.mu.Unlock()
		return
	}
	messages := task.Clone().Messages
	last := &messages[len(messages)-1]
	last.Data[len(last.Data)-1].Content += text
	s.tasks.Patch(taskID, TaskPatch{Messages: messages})
	s.mu.Unlock()
	s.notify()
}

// SelectTask records the selected task id. An empty id clears the selection.
func (s *Store) SelectTask(taskID string) {
	s.mu.Lock()
	s.selectedTaskID = taskID
	s.mu.Unlock()
	s.notify()
}

// SelectTab records the selected tab index.
func (s *Store) SelectTab(index int) {
	s.mu.Lock()
	s.selectedTabIndex = index
	s.mu.Unlock()
	s.notify()
}
