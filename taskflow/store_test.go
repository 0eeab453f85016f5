package taskflow

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/dohr-michael/agentflow/stream"
	"github.com/dohr-michael/agentflow/taskdata"
)

func passthroughStatus(ev stream.Event) taskdata.Status {
	return taskdata.StatusProcessing
}

func textData(ev stream.Event) taskdata.Chunk {
	return taskdata.Chunk{Type: taskdata.ChunkType(ev.Type), Content: ev.Text()}
}

func waitDone(t *testing.T, sub *Subscription) {
	t.Helper()
	select {
	case <-sub.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("ingestion did not finish")
	}
}

func TestAddRemoveTask(t *testing.T) {
	deleted := make(chan string, 1)
	s := NewStore(Callbacks{OnTaskDelete: func(id string) { deleted <- id }})

	s.AddTask(&Task{ID: "t1", Status: taskdata.StatusStarting})
	if got := s.TaskByID("t1"); got == nil {
		t.Fatal("task not inserted")
	}

	s.RemoveTask("missing")
	select {
	case <-deleted:
		t.Fatal("onTaskDelete fired for unknown id")
	case <-time.After(50 * time.Millisecond):
	}

	s.RemoveTask("t1")
	select {
	case id := <-deleted:
		if id != "t1" {
			t.Errorf("deleted id: got %q", id)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("onTaskDelete not fired")
	}
}

func TestSetAllTasksReplaces(t *testing.T) {
	s := NewStore(Callbacks{})
	s.AddTask(&Task{ID: "a"})
	s.AddTask(&Task{ID: "b"})

	s.SetAllTasks(nil)
	if got := s.AllTasks(); len(got) != 0 {
		t.Fatalf("tasks after empty load: got %d, want 0", len(got))
	}
}

func TestAddTaskDataAppends(t *testing.T) {
	updates := make(chan Changes, 2)
	s := NewStore(Callbacks{OnTaskUpdate: func(_ string, c Changes) { updates <- c }})
	s.AddTask(&Task{ID: "t1"})

	s.AddTaskData("t1", taskdata.Chunk{Type: taskdata.ChunkMessage, Content: "hello"})
	got := s.TaskByID("t1")
	if len(got.Data) != 1 || got.Data[0].Content != "hello" {
		t.Fatalf("data: got %+v", got.Data)
	}

	select {
	case c := <-updates:
		if len(c.Data) != 1 {
			t.Errorf("update changes: got %+v", c)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("onTaskUpdate not fired")
	}
}

func TestConnectHappyPath(t *testing.T) {
	s := NewStore(Callbacks{})
	s.AddTask(&Task{ID: "t1", Status: taskdata.StatusStarting})

	sub := s.Connect(context.Background(), "t1", stream.FromSlice(
		stream.NewEvent("message", "Starting the process..."),
		stream.NewEvent("progress", "20%"),
		stream.NewEvent("progress", "100%"),
	), passthroughStatus, textData, nil)
	waitDone(t, sub)

	got := s.TaskByID("t1")
	if got.Status != taskdata.StatusDone {
		t.Errorf("status: got %q, want done", got.Status)
	}
	if len(got.Data) != 3 {
		t.Fatalf("data: got %d chunks, want 3", len(got.Data))
	}
	if got.Data[1].Type != "progress" {
		t.Errorf("chunk type: got %q", got.Data[1].Type)
	}
}

func TestConnectStreamError(t *testing.T) {
	s := NewStore(Callbacks{})
	s.AddTask(&Task{ID: "t1"})

	sub := s.Connect(context.Background(), "t1", stream.FromSliceWithError(
		errors.New("boom"),
		stream.NewEvent("message", "partial"),
	), passthroughStatus, textData, nil)
	waitDone(t, sub)

	got := s.TaskByID("t1")
	if got.Status != taskdata.StatusFailed {
		t.Errorf("status: got %q, want failed", got.Status)
	}
	last := got.Data[len(got.Data)-1]
	if last.Type != taskdata.ChunkError || last.Content != "boom" {
		t.Errorf("error chunk: got %+v", last)
	}
}

func TestConnectCompletionAfterFailureKeepsFailed(t *testing.T) {
	s := NewStore(Callbacks{})
	s.AddTask(&Task{ID: "t1"})

	failing := func(ev stream.Event) taskdata.Status { return taskdata.StatusFailed }
	sub := s.Connect(context.Background(), "t1", stream.FromSlice(
		stream.NewEvent("message", "bad"),
	), failing, textData, nil)
	waitDone(t, sub)

	if got := s.TaskByID("t1").Status; got != taskdata.StatusFailed {
		t.Errorf("status: got %q, want failed", got)
	}
}

func TestConnectStopChannelCancels(t *testing.T) {
	s := NewStore(Callbacks{})
	s.AddTask(&Task{ID: "t1"})

	events := make(chan stream.Event)
	stop := make(chan struct{})
	sub := s.Connect(context.Background(), "t1", stream.FromChannel(events), passthroughStatus, textData, stop)

	events <- stream.NewEvent("message", "one")
	close(stop)
	waitDone(t, sub)

	// Cancellation leaves the status alone: still processing.
	if got := s.TaskByID("t1").Status; got != taskdata.StatusProcessing {
		t.Errorf("status after stop: got %q, want processing", got)
	}
}

func TestViews(t *testing.T) {
	s := NewStore(Callbacks{})
	s.AddTask(&Task{ID: "a", Status: taskdata.StatusStarting})
	s.AddTask(&Task{ID: "b", Status: taskdata.StatusDone})
	s.AddTask(&Task{ID: "c", Status: taskdata.StatusFailed})

	if got := s.ActiveTasks(); len(got) != 1 || got[0].ID != "a" {
		t.Errorf("active: got %+v", got)
	}
	if got := s.CompletedTasks(); len(got) != 1 || got[0].ID != "b" {
		t.Errorf("completed: got %+v", got)
	}
	if got := s.FailedTasks(); len(got) != 1 || got[0].ID != "c" {
		t.Errorf("failed: got %+v", got)
	}

	s.SelectTask("b")
	if got := s.SelectedTask(); got == nil || got.ID != "b" {
		t.Errorf("selected: got %+v", got)
	}
}

func TestLoadExistingTasks(t *testing.T) {
	s := NewStore(Callbacks{
		OnTasksLoad: func() ([]*Task, error) {
			return []*Task{{ID: "x", Status: taskdata.StatusDone}}, nil
		},
	})
	s.LoadExistingTasks()

	if got := s.TaskByID("x"); got == nil || got.Status != taskdata.StatusDone {
		t.Fatalf("loaded task: got %+v", got)
	}
}
