// Package chatagent implements the rich task/message state core for
// streaming agent conversations: a normalized task collection, a stream
// ingestion engine with sender coalescing, derived views, and an optional
// persistence bridge.
package chatagent

import (
	"strings"

	"github.com/google/uuid"

	"github.com/dohr-michael/agentflow/taskdata"
)

// Message is one contiguous turn by a single sender, composed of one or more
// chunks. Consecutive messages in a task never share a sender; the store's
// coalescing rule folds same-sender chunks into the existing turn.
type Message struct {
	Sender taskdata.Sender  `json:"sender"`
	Data   []taskdata.Chunk `json:"data"`
}

// Task is one tracked unit of conversational work. Its identity never
// changes; all other fields mutate only through store operations, which
// replace the task value atomically in the collection.
type Task struct {
	ID             string          `json:"id"`
	Name           string          `json:"name"`
	Status         taskdata.Status `json:"status"`
	AllowUserInput bool            `json:"allowUserInput"`
	Messages       []Message       `json:"messages"`
}

// Clone returns a deep copy of the task. Store mutations operate on clones so
// that snapshots handed to readers and callbacks stay immutable.
func (t *Task) Clone() *Task {
	if t == nil {
		return nil
	}
	c := *t
	c.Messages = make([]Message, len(t.Messages))
	for i, m := range t.Messages {
		c.Messages[i] = Message{
			Sender: m.Sender,
			Data:   append([]taskdata.Chunk(nil), m.Data...),
		}
	}
	return &c
}

// latestChunk returns a pointer to the last chunk of the last message, or nil
// when the task has no messages yet.
func (t *Task) latestChunk() *taskdata.Chunk {
	if t == nil || len(t.Messages) == 0 {
		return nil
	}
	last := &t.Messages[len(t.Messages)-1]
	if len(last.Data) == 0 {
		return nil
	}
	return &last.Data[len(last.Data)-1]
}

// TaskPatch is a partial change set merged into an existing task. Nil fields
// are left untouched.
type TaskPatch struct {
	Name     *string          `json:"name,omitempty"`
	Status   *taskdata.Status `json:"status,omitempty"`
	Messages []Message        `json:"messages,omitempty"`
}

// Apply merges the patch into a copy of t and returns the copy.
func (p TaskPatch) Apply(t *Task) *Task {
	c := t.Clone()
	if p.Name != nil {
		c.Name = *p.Name
	}
	if p.Status != nil {
		c.Status = *p.Status
	}
	if p.Messages != nil {
		c.Messages = p.Messages
	}
	return c
}

// GenerateTaskID creates a unique task identifier.
func GenerateTaskID() string {
	u := uuid.New().String()
	return "task_" + strings.ReplaceAll(u[:8], "-", "")
}
