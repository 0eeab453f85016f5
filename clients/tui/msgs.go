package tui

import "github.com/dohr-michael/agentflow/stream"

// StoreChangedMsg signals that the task store changed and the view must be
// rebuilt from a fresh snapshot.
type StoreChangedMsg struct{}

// AgentStartedMsg carries a freshly opened agent stream for a task.
type AgentStartedMsg struct {
	TaskID string
	Stream stream.Stream
}

// StreamFinishedMsg signals that a task's agent stream wound down.
type StreamFinishedMsg struct {
	TaskID string
}

// AgentErrorMsg carries an error from starting an agent turn.
type AgentErrorMsg struct {
	TaskID string
	Err    error
}
