// Package taskdata defines the shared vocabulary for streamed agent tasks:
// chunk types, senders and the task status state machine. Both store
// variants (chatagent and taskflow) build on these types.
package taskdata

// Status is the lifecycle state of a task.
//
// Transitions: STARTING → PROCESSING → {DONE | FAILED}. DONE and FAILED are
// terminal; only a bulk load may overwrite them.
type Status string

const (
	StatusStarting   Status = "starting"
	StatusProcessing Status = "processing"
	StatusDone       Status = "done"
	StatusFailed     Status = "failed"
)

// Terminal reports whether no further transition is allowed from s.
func (s Status) Terminal() bool {
	return s == StatusDone || s == StatusFailed
}

// Sender identifies who authored a message turn.
type Sender string

const (
	SenderUser      Sender = "user"
	SenderAssistant Sender = "assistant"
	SenderSystem    Sender = "system"
)

// ChunkType tags a chunk of streamed content. The base vocabulary below is
// what the stores produce themselves; callers may define additional types
// (the rendering registry falls back to a default widget for unknown ones).
type ChunkType string

const (
	ChunkMessage ChunkType = "message"
	ChunkContext ChunkType = "context"
	ChunkDone    ChunkType = "done"
	ChunkError   ChunkType = "error"
	ChunkThink   ChunkType = "think"
	ChunkUser    ChunkType = "user"
	ChunkTool    ChunkType = "tool"
)

// Chunk is the smallest unit of streamed content. Content carries the
// human-readable text (or a label such as a tool name); Observation is an
// optional structured payload whose shape depends on Type. The stores never
// inspect Observation beyond carrying it.
type Chunk struct {
	Type        ChunkType `json:"type"`
	Content     string    `json:"content"`
	Observation any       `json:"observation,omitempty"`
}

// DoneObservation is the Observation attached to a ChunkDone chunk.
type DoneObservation struct {
	TotalTimeMs int64 `json:"totalTimeMs"`
}
