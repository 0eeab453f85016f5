package chatagent

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"time"

	"github.com/dohr-michael/agentflow/stream"
	"github.com/dohr-michael/agentflow/taskdata"
)

const errorObservation = "Task failed due to an error"

// Subscription is the handle for one attached ingestion stream. It is owned
// by whichever component attached it; the store does not track subscriptions.
type Subscription struct {
	cancel context.CancelFunc
	done   chan struct{}
}

// Cancel stops ingestion before the stream completes. No DONE or FAILED
// transition happens on cancellation: the task status stays whatever it was,
// typically StatusProcessing.
func (s *Subscription) Cancel() {
	s.cancel()
	<-s.done
}

// Done is closed once ingestion has stopped for any reason.
func (s *Subscription) Done() <-chan struct{} {
	return s.done
}

// ChatWithAgent attaches a live event stream to a task and folds each event
// into its message history, advancing the status state machine as a side
// effect. The task moves to StatusProcessing immediately. Events from one
// stream are processed strictly one at a time; streams attached to different
// tasks run independently.
//
// At most one stream may be attached to a task at a time; attaching a second
// before the first ends is the caller's bug.
func (s *Store) ChatWithAgent(ctx context.Context, taskID string, st stream.Stream) *Subscription {
	s.UpdateTaskStatus(taskID, taskdata.StatusProcessing)

	ctx, cancel := context.WithCancel(ctx)
	sub := &Subscription{cancel: cancel, done: make(chan struct{})}
	start := time.Now()

	go func() {
		defer close(sub.done)
		for {
			ev, err := st.Recv(ctx)
			if err != nil {
				if errors.Is(err, io.EOF) || errors.Is(err, context.Canceled) || ctx.Err() != nil {
					return
				}
				// A stream-level failure behaves like an error event.
				s.ingestError(taskID, err.Error())
				return
			}
			if stop := s.ingest(taskID, start, ev); stop {
				cancel()
				return
			}
		}
	}()
	return sub
}

// ingest dispatches one event by its type tag. It returns true when the
// subscription must end (only the done event does that).
func (s *Store) ingest(taskID string, start time.Time, ev stream.Event) bool {
	slog.Debug("ingest event", "task", taskID, "type", ev.Type)

	switch ev.Type {
	case "error":
		s.ingestError(taskID, decodeErrorMessage(ev.Data))

	case "message":
		text := ev.Text()
		if latest := s.LatestChunk(taskID); latest == nil || latest.Type != taskdata.ChunkMessage {
			s.AddTaskMessage(taskID, taskdata.SenderAssistant, taskdata.Chunk{
				Type:    taskdata.ChunkMessage,
				Content: text,
			})
		} else {
			s.appendToLatestChunk(taskID, text)
		}

	case "tool":
		name, observation, err := decodeToolPayload(ev.Data)
		if err != nil {
			// Malformed payloads are a reportable ingestion error, not a
			// process fault.
			s.ingestError(taskID, "invalid tool payload: "+err.Error())
			return false
		}
		s.AddTaskMessage(taskID, taskdata.SenderAssistant, taskdata.Chunk{
			Type:        taskdata.ChunkTool,
			Content:     name,
			Observation: observation,
		})

	case "tool_start":
		// Reserved for UI affordances (spinners); nothing to fold.

	case "done":
		if t := s.TaskByID(taskID); t != nil && t.Status != taskdata.StatusFailed {
			s.AddTaskMessage(taskID, taskdata.SenderAssistant, taskdata.Chunk{
				Type:        taskdata.ChunkDone,
				Content:     "Done",
				Observation: taskdata.DoneObservation{TotalTimeMs: time.Since(start).Milliseconds()},
			})
			s.UpdateTaskStatus(taskID, taskdata.StatusDone)
		}
		// The subscription ends on done regardless of status.
		return true

	default:
		// Unrecognized tags are ignored.
	}
	return false
}

// ingestError marks the task failed and appends an assistant error chunk.
func (s *Store) ingestError(taskID, message string) {
	if message == "" {
		message = "Unknown error"
	}
	s.UpdateTaskStatus(taskID, taskdata.StatusFailed)
	s.AddTaskMessage(taskID, taskdata.SenderAssistant, taskdata.Chunk{
		Type:        taskdata.ChunkError,
		Content:     message,
		Observation: errorObservation,
	})
}

// decodeErrorMessage extracts the message text from an error event payload,
// accepting either {"message": "..."} or a bare string.
func decodeErrorMessage(data json.RawMessage) string {
	var payload struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(data, &payload); err == nil && payload.Message != "" {
		return payload.Message
	}
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		return s
	}
	return ""
}

// decodeToolPayload performs the two-level decode the wire format requires:
// the event data is a JSON-encoded string holding a record whose kwargs carry
// the tool name and a nested JSON-encoded content blob.
func decodeToolPayload(data json.RawMessage) (string, any, error) {
	raw := data
	var encoded string
	if err := json.Unmarshal(data, &encoded); err == nil {
		raw = json.RawMessage(encoded)
	}

	var outer struct {
		Kwargs struct {
			Name    string `json:"name"`
			Content string `json:"content"`
		} `json:"kwargs"`
	}
	if err := json.Unmarshal(raw, &outer); err != nil {
		return "", nil, err
	}

	var observation any
	if err := json.Unmarshal([]byte(outer.Kwargs.Content), &observation); err != nil {
		return "", nil, err
	}
	return outer.Kwargs.Name, observation, nil
}
