package filestore

import (
	"testing"
	"time"

	"github.com/dohr-michael/agentflow/chatagent"
	"github.com/dohr-michael/agentflow/taskdata"
)

func TestCRUD(t *testing.T) {
	store := NewStore(t.TempDir(), "demo_tasks")

	// Empty load before any write.
	tasks, err := store.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(tasks) != 0 {
		t.Fatalf("initial tasks: got %d, want 0", len(tasks))
	}

	task := &chatagent.Task{
		ID:     "t1",
		Name:   "demo",
		Status: taskdata.StatusStarting,
		Messages: []chatagent.Message{{
			Sender: taskdata.SenderSystem,
			Data:   []taskdata.Chunk{{Type: taskdata.ChunkContext, Content: "Ctx\n"}},
		}},
	}
	if err := store.Create(task); err != nil {
		t.Fatalf("Create: %v", err)
	}

	tasks, err = store.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(tasks) != 1 || tasks[0].ID != "t1" {
		t.Fatalf("after create: %+v", tasks)
	}
	if tasks[0].Messages[0].Data[0].Content != "Ctx\n" {
		t.Errorf("messages round trip: %+v", tasks[0].Messages)
	}

	done := taskdata.StatusDone
	if err := store.Update("t1", chatagent.TaskPatch{Status: &done}); err != nil {
		t.Fatalf("Update: %v", err)
	}
	tasks, _ = store.Load()
	if tasks[0].Status != taskdata.StatusDone {
		t.Errorf("status after update: got %q", tasks[0].Status)
	}
	if len(tasks[0].Messages) != 1 {
		t.Error("partial update dropped messages")
	}

	if err := store.Update("missing", chatagent.TaskPatch{Status: &done}); err != nil {
		t.Errorf("Update of unknown id: %v", err)
	}

	if err := store.Delete("t1"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	tasks, _ = store.Load()
	if len(tasks) != 0 {
		t.Errorf("after delete: %+v", tasks)
	}

	if err := store.Delete("t1"); err != nil {
		t.Errorf("Delete of unknown id: %v", err)
	}
}

func TestCreateReplacesSameID(t *testing.T) {
	store := NewStore(t.TempDir(), "demo_tasks")

	if err := store.Create(&chatagent.Task{ID: "t1", Name: "first"}); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := store.Create(&chatagent.Task{ID: "t1", Name: "second"}); err != nil {
		t.Fatalf("Create: %v", err)
	}

	tasks, _ := store.Load()
	if len(tasks) != 1 || tasks[0].Name != "second" {
		t.Fatalf("after duplicate create: %+v", tasks)
	}
}

func TestCallbacksRoundTrip(t *testing.T) {
	dir := t.TempDir()
	store := NewStore(dir, "demo_tasks")

	s := chatagent.NewStore(chatagent.Options{
		GlobalContextPrompt: "Ctx",
		PersistTasks:        true,
		StorageKey:          "demo_tasks",
		Callbacks:           store.Callbacks(),
	})
	task := s.CreateTask("demo", "", true)

	// The bridge fires asynchronously; poll the file.
	waitPersisted(t, store, task.ID)

	restored := chatagent.NewStore(chatagent.Options{
		PersistTasks: true,
		Callbacks:    store.Callbacks(),
	})
	restored.LoadExistingTasks()
	if got := restored.TaskByID(task.ID); got == nil {
		t.Fatal("task not restored from file")
	}
}

func waitPersisted(t *testing.T, store *Store, id string) {
	t.Helper()
	for range 100 {
		tasks, err := store.Load()
		if err == nil {
			for _, task := range tasks {
				if task.ID == id {
					return
				}
			}
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("task %s never persisted", id)
}
