package chatagent

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/dohr-michael/agentflow/stream"
	"github.com/dohr-michael/agentflow/taskdata"
)

func waitDone(t *testing.T, sub *Subscription) {
	t.Helper()
	select {
	case <-sub.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("ingestion did not finish")
	}
}

func TestChatWithAgentStreamedText(t *testing.T) {
	s := NewStore(Options{GlobalContextPrompt: "Ctx"})
	task := s.CreateTask("demo", "", true)

	sub := s.ChatWithAgent(context.Background(), task.ID, stream.FromSlice(
		stream.NewEvent("message", "Hi"),
		stream.NewEvent("message", " there"),
		stream.NewEvent("done", nil),
	))
	waitDone(t, sub)

	got := s.TaskByID(task.ID)
	if got.Status != taskdata.StatusDone {
		t.Errorf("status: got %q, want done", got.Status)
	}
	if len(got.Messages) != 3 {
		t.Fatalf("messages: got %d, want 3 (context, text, done)", len(got.Messages))
	}

	text := got.Messages[1]
	if text.Sender != taskdata.SenderAssistant || len(text.Data) != 1 {
		t.Fatalf("text message: %+v", text)
	}
	// Token-by-token chunks concatenate into one growing content string.
	if text.Data[0].Type != taskdata.ChunkMessage || text.Data[0].Content != "Hi there" {
		t.Errorf("text chunk: got %+v, want message %q", text.Data[0], "Hi there")
	}

	done := got.Messages[2].Data[0]
	if done.Type != taskdata.ChunkDone || done.Content != "Done" {
		t.Errorf("done chunk: got %+v", done)
	}
	obs, ok := done.Observation.(taskdata.DoneObservation)
	if !ok {
		t.Fatalf("done observation: got %T", done.Observation)
	}
	if obs.TotalTimeMs < 0 {
		t.Errorf("totalTimeMs: got %d", obs.TotalTimeMs)
	}
}

func TestChatWithAgentCoalescingAcrossN(t *testing.T) {
	s := NewStore(Options{})
	task := s.CreateTask("demo", "", true)

	events := make([]stream.Event, 0, 6)
	want := ""
	for _, tok := range []string{"a", "b", "c", "d", "e"} {
		events = append(events, stream.NewEvent("message", tok))
		want += tok
	}
	events = append(events, stream.NewEvent("done", nil))

	sub := s.ChatWithAgent(context.Background(), task.ID, stream.FromSlice(events...))
	waitDone(t, sub)

	got := s.TaskByID(task.ID)
	text := got.Messages[1]
	if len(text.Data) != 1 {
		t.Fatalf("chunks: got %d, want 1 coalesced chunk", len(text.Data))
	}
	if text.Data[0].Content != want {
		t.Errorf("content: got %q, want %q", text.Data[0].Content, want)
	}
}

func TestChatWithAgentErrorEvent(t *testing.T) {
	s := NewStore(Options{})
	task := s.CreateTask("demo", "", true)

	sub := s.ChatWithAgent(context.Background(), task.ID, stream.FromSlice(
		stream.NewEvent("error", map[string]string{"message": "boom"}),
		stream.NewEvent("done", nil),
	))
	waitDone(t, sub)

	got := s.TaskByID(task.ID)
	if got.Status != taskdata.StatusFailed {
		t.Errorf("status: got %q, want failed", got.Status)
	}
	last := got.Messages[len(got.Messages)-1]
	chunk := last.Data[len(last.Data)-1]
	if chunk.Type != taskdata.ChunkError || chunk.Content != "boom" {
		t.Errorf("error chunk: got %+v", chunk)
	}
	if chunk.Observation != errorObservation {
		t.Errorf("observation: got %v", chunk.Observation)
	}
	// The later done event must not flip the terminal status or append a
	// DONE chunk.
	for _, m := range got.Messages {
		for _, c := range m.Data {
			if c.Type == taskdata.ChunkDone {
				t.Error("DONE chunk appended after FAILED")
			}
		}
	}
}

func TestChatWithAgentErrorWithoutMessageUsesFallback(t *testing.T) {
	s := NewStore(Options{})
	task := s.CreateTask("demo", "", true)

	sub := s.ChatWithAgent(context.Background(), task.ID, stream.FromSlice(
		stream.NewEvent("error", map[string]int{"code": 500}),
		stream.NewEvent("done", nil),
	))
	waitDone(t, sub)

	got := s.TaskByID(task.ID)
	last := got.Messages[len(got.Messages)-1]
	if c := last.Data[len(last.Data)-1]; c.Content != "Unknown error" {
		t.Errorf("fallback content: got %q", c.Content)
	}
}

func TestChatWithAgentStreamFailure(t *testing.T) {
	s := NewStore(Options{})
	task := s.CreateTask("demo", "", true)

	sub := s.ChatWithAgent(context.Background(), task.ID, stream.FromSliceWithError(
		errors.New("connection reset"),
		stream.NewEvent("message", "partial"),
	))
	waitDone(t, sub)

	got := s.TaskByID(task.ID)
	if got.Status != taskdata.StatusFailed {
		t.Errorf("status: got %q, want failed", got.Status)
	}
	last := got.Messages[len(got.Messages)-1]
	if c := last.Data[len(last.Data)-1]; c.Type != taskdata.ChunkError || c.Content != "connection reset" {
		t.Errorf("error chunk: got %+v", c)
	}
}

func TestChatWithAgentToolEvent(t *testing.T) {
	s := NewStore(Options{})
	task := s.CreateTask("demo", "", true)

	inner, _ := json.Marshal(map[string]any{"rows": []int{1, 2, 3}})
	outer, _ := json.Marshal(map[string]any{
		"kwargs": map[string]any{"name": "search", "content": string(inner)},
	})

	sub := s.ChatWithAgent(context.Background(), task.ID, stream.FromSlice(
		stream.NewEvent("tool_start", nil),
		stream.NewEvent("tool", string(outer)),
		stream.NewEvent("done", nil),
	))
	waitDone(t, sub)

	got := s.TaskByID(task.ID)
	if got.Status != taskdata.StatusDone {
		t.Fatalf("status: got %q, want done", got.Status)
	}

	var toolChunk *taskdata.Chunk
	for _, m := range got.Messages {
		for i := range m.Data {
			if m.Data[i].Type == taskdata.ChunkTool {
				toolChunk = &m.Data[i]
			}
		}
	}
	if toolChunk == nil {
		t.Fatal("no tool chunk appended")
	}
	if toolChunk.Content != "search" {
		t.Errorf("tool name: got %q, want search", toolChunk.Content)
	}
	obs, ok := toolChunk.Observation.(map[string]any)
	if !ok {
		t.Fatalf("tool observation: got %T", toolChunk.Observation)
	}
	if _, ok := obs["rows"]; !ok {
		t.Errorf("tool observation missing inner payload: %+v", obs)
	}
}

func TestChatWithAgentMalformedToolPayload(t *testing.T) {
	s := NewStore(Options{})
	task := s.CreateTask("demo", "", true)

	sub := s.ChatWithAgent(context.Background(), task.ID, stream.FromSlice(
		stream.NewEvent("tool", "{not json"),
		stream.NewEvent("done", nil),
	))
	waitDone(t, sub)

	// Parse failure is an ingestion error, not a crash.
	if got := s.TaskByID(task.ID).Status; got != taskdata.StatusFailed {
		t.Errorf("status: got %q, want failed", got)
	}
}

func TestChatWithAgentUnrecognizedTagIgnored(t *testing.T) {
	s := NewStore(Options{})
	task := s.CreateTask("demo", "", true)
	before := len(s.TaskByID(task.ID).Messages)

	sub := s.ChatWithAgent(context.Background(), task.ID, stream.FromSlice(
		stream.NewEvent("heartbeat", nil),
		stream.NewEvent("progress", map[string]int{"pct": 50}),
		stream.NewEvent("done", nil),
	))
	waitDone(t, sub)

	got := s.TaskByID(task.ID)
	// only the done message is added on top of the seed
	if len(got.Messages) != before+1 {
		t.Errorf("messages: got %d, want %d", len(got.Messages), before+1)
	}
}

func TestChatWithAgentCancelLeavesProcessing(t *testing.T) {
	s := NewStore(Options{})
	task := s.CreateTask("demo", "", true)

	events := make(chan stream.Event)
	sub := s.ChatWithAgent(context.Background(), task.ID, stream.FromChannel(events))

	events <- stream.NewEvent("message", "partial")
	sub.Cancel()

	got := s.TaskByID(task.ID)
	// Cancellation is not a completion: no DONE/FAILED transition happens.
	if got.Status != taskdata.StatusProcessing {
		t.Errorf("status after cancel: got %q, want processing", got.Status)
	}

	// Further events must not mutate the task.
	select {
	case events <- stream.NewEvent("message", " late"):
		t.Fatal("stream still consumed after cancel")
	default:
	}
}

func TestChatWithAgentSetsProcessingOnAttach(t *testing.T) {
	s := NewStore(Options{})
	task := s.CreateTask("demo", "", true)

	events := make(chan stream.Event)
	sub := s.ChatWithAgent(context.Background(), task.ID, stream.FromChannel(events))

	if got := s.TaskByID(task.ID).Status; got != taskdata.StatusProcessing {
		t.Errorf("status on attach: got %q, want processing", got)
	}
	close(events)
	waitDone(t, sub)
}
