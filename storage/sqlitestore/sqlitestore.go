// Package sqlitestore persists tasks in a SQLite database, one row per task
// with the message history JSON-encoded. A heavier alternative to the flat
// file backend when task lists grow beyond a demo.
package sqlitestore

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"

	_ "modernc.org/sqlite" // register sqlite driver

	"github.com/dohr-michael/agentflow/chatagent"
	"github.com/dohr-michael/agentflow/taskdata"
)

const schema = `
CREATE TABLE IF NOT EXISTS tasks (
	id               TEXT    PRIMARY KEY,
	name             TEXT    NOT NULL DEFAULT '',
	status           TEXT    NOT NULL DEFAULT 'starting',
	allow_user_input INTEGER NOT NULL DEFAULT 0,
	messages         TEXT    NOT NULL DEFAULT '[]',
	position         INTEGER NOT NULL DEFAULT 0
);
`

// Store persists tasks in a SQLite database.
type Store struct {
	db *sql.DB
}

// NewStore opens (or creates) a SQLite database at dbPath and runs the tasks
// schema. Use ":memory:" for an in-memory database (useful in tests).
func NewStore(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db for tasks: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("run tasks schema: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error { return s.db.Close() }

// Load returns all persisted tasks in insertion order.
func (s *Store) Load() ([]*chatagent.Task, error) {
	rows, err := s.db.Query(
		`SELECT id, name, status, allow_user_input, messages FROM tasks ORDER BY position, rowid`)
	if err != nil {
		return nil, fmt.Errorf("query tasks: %w", err)
	}
	defer rows.Close()

	var tasks []*chatagent.Task
	for rows.Next() {
		var (
			task    chatagent.Task
			status  string
			allow   int
			rawMsgs string
		)
		if err := rows.Scan(&task.ID, &task.Name, &status, &allow, &rawMsgs); err != nil {
			return nil, fmt.Errorf("scan task row: %w", err)
		}
		task.Status = taskdata.Status(status)
		task.AllowUserInput = allow != 0
		if err := json.Unmarshal([]byte(rawMsgs), &task.Messages); err != nil {
			return nil, fmt.Errorf("decode messages for task %s: %w", task.ID, err)
		}
		tasks = append(tasks, &task)
	}
	return tasks, rows.Err()
}

// Create inserts a task. An existing row with the same id is replaced but
// keeps its position.
func (s *Store) Create(task *chatagent.Task) error {
	msgs, err := encodeMessages(task.Messages)
	if err != nil {
		return err
	}

	const q = `
		INSERT INTO tasks (id, name, status, allow_user_input, messages, position)
		VALUES (?, ?, ?, ?, ?, (SELECT COALESCE(MAX(position), 0) + 1 FROM tasks))
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			status = excluded.status,
			allow_user_input = excluded.allow_user_input,
			messages = excluded.messages
	`
	_, err = s.db.Exec(q, task.ID, task.Name, string(task.Status), boolToInt(task.AllowUserInput), msgs)
	if err != nil {
		return fmt.Errorf("insert task %s: %w", task.ID, err)
	}
	return nil
}

// Update merges changes into the persisted task. Unknown ids are a no-op.
func (s *Store) Update(taskID string, changes chatagent.TaskPatch) error {
	row := s.db.QueryRow(
		`SELECT id, name, status, allow_user_input, messages FROM tasks WHERE id = ?`, taskID)

	var (
		task    chatagent.Task
		status  string
		allow   int
		rawMsgs string
	)
	err := row.Scan(&task.ID, &task.Name, &status, &allow, &rawMsgs)
	if err == sql.ErrNoRows {
		return nil
	}
	if err != nil {
		return fmt.Errorf("load task %s: %w", taskID, err)
	}
	task.Status = taskdata.Status(status)
	task.AllowUserInput = allow != 0
	if err := json.Unmarshal([]byte(rawMsgs), &task.Messages); err != nil {
		return fmt.Errorf("decode messages for task %s: %w", taskID, err)
	}

	updated := changes.Apply(&task)
	msgs, err := encodeMessages(updated.Messages)
	if err != nil {
		return err
	}

	_, err = s.db.Exec(
		`UPDATE tasks SET name = ?, status = ?, messages = ? WHERE id = ?`,
		updated.Name, string(updated.Status), msgs, taskID)
	if err != nil {
		return fmt.Errorf("update task %s: %w", taskID, err)
	}
	return nil
}

// Delete removes the persisted task. Unknown ids are a no-op.
func (s *Store) Delete(taskID string) error {
	if _, err := s.db.Exec(`DELETE FROM tasks WHERE id = ?`, taskID); err != nil {
		return fmt.Errorf("delete task %s: %w", taskID, err)
	}
	return nil
}

// Callbacks returns a persistence bridge backed by this store. Write errors
// are logged, never propagated.
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

func encodeMessages(msgs []chatagent.Message) (string, error) {
	if msgs == nil {
		msgs = []chatagent.Message{}
	}
	data, err := json.Marshal(msgs)
	if err != nil {
		return "", fmt.Errorf("marshal messages: %w", err)
	}
	return string(data), nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
