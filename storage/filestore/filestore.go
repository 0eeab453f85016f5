// Package filestore persists task lists as a single JSON file per storage
// key. The smallest useful persistence backend: no schema, no daemon, easy
// to inspect by hand.
package filestore

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/dohr-michael/agentflow/chatagent"
)

// Store reads and writes the task list for one storage key. All writes are
// atomic (temp file + rename).
type Store struct {
	mu   sync.Mutex
	path string
}

// NewStore creates a store writing to <dir>/<key>.json.
func NewStore(dir, key string) *Store {
	return &Store{path: filepath.Join(dir, key+".json")}
}

// Load reads all persisted tasks. A missing file is an empty list.
func (s *Store) Load() ([]*chatagent.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.read()
}

// Create appends a task to the persisted list. An existing task with the
// same id is replaced.
func (s *Store) Create(task *chatagent.Task) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tasks, err := s.read()
	if err != nil {
		return err
	}
	replaced := false
	for i, t := range tasks {
		if t.ID == task.ID {
			tasks[i] = task.Clone()
			replaced = true
			break
		}
	}
	if !replaced {
		tasks = append(tasks, task.Clone())
	}
	return s.write(tasks)
}

// Update merges changes into the persisted task. Unknown ids are a no-op.
func (s *Store) Update(taskID string, changes chatagent.TaskPatch) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tasks, err := s.read()
	if err != nil {
		return err
	}
	for i, t := range tasks {
		if t.ID == taskID {
			tasks[i] = changes.Apply(t)
			return s.write(tasks)
		}
	}
	return nil
}

// Delete removes the persisted task. Unknown ids are a no-op.
func (s *Store) Delete(taskID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tasks, err := s.read()
	if err != nil {
		return err
	}
	for i, t := range tasks {
		if t.ID == taskID {
			return s.write(append(tasks[:i], tasks[i+1:]...))
		}
	}
	return nil
}

// Callbacks returns a persistence bridge backed by this store. Write errors
// are logged, never propagated: the in-memory store stays the source of
// truth.
func (s *Store) Callbacks() chatagent.Callbacks {
	return chatagent.Callbacks{
		OnTaskCreate: func(task *chatagent.Task) {
			if err := s.Create(task); err != nil {
				slog.Error("persist task create", "task", task.ID, "error", err)
			}
		},
		OnTaskUpdate: func(taskID string, changes chatagent.TaskPatch) {
			if err := s.Update(taskID, changes); err != nil {
				slog.Error("persist task update", "task", taskID, "error", err)
			}
		},
		OnTaskDelete: func(taskID string) {
			if err := s.Delete(taskID); err != nil {
				slog.Error("persist task delete", "task", taskID, "error", err)
			}
		},
		OnTasksLoad: s.Load,
	}
}

func (s *Store) read() ([]*chatagent.Task, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("read tasks file: %w", err)
	}

	var tasks []*chatagent.Task
	if err := json.Unmarshal(data, &tasks); err != nil {
		return nil, fmt.Errorf("decode tasks file: %w", err)
	}
	return tasks, nil
}

func (s *Store) write(tasks []*chatagent.Task) error {
	if tasks == nil {
		tasks = []*chatagent.Task{}
	}
	data, err := json.MarshalIndent(tasks, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal tasks: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("create storage dir: %w", err)
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write tasks tmp: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("rename tasks file: %w", err)
	}
	return nil
}
