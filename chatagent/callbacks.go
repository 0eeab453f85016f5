package chatagent

import "log/slog"

// Callbacks is the persistence bridge: an optional set of hooks a host
// supplies to mirror store mutations to storage. Every field is independently
// nilable; the store behaves identically whether none, some, or all are set.
//
// Mutating callbacks fire after the in-memory mutation has committed and run
// on their own goroutine: their latency or failure never blocks or rolls back
// the store. The in-memory state is the source of truth.
type Callbacks struct {
	// OnTaskCreate is invoked with a snapshot of each newly created task.
	OnTaskCreate func(task *Task)
	// OnTaskUpdate is invoked with the partial changes applied to a task.
	OnTaskUpdate func(taskID string, changes TaskPatch)
	// OnTaskDelete is invoked after a task has been removed.
	OnTaskDelete func(taskID string)
	// OnTasksLoad supplies the initial task set during store initialization.
	OnTasksLoad func() ([]*Task, error)
	// OnUserMessage is invoked after SendMessage appends a user turn,
	// typically to trigger the next assistant stream.
	OnUserMessage func(taskID, message string)
}

// fire runs fn on its own goroutine, logging (never propagating) panics.
func fire(name string, fn func()) {
	if fn == nil {
		return
	}
	go func() {
		defer func() {
			if r := recover(); r != nil {
				slog.Error("task callback failed", "callback", name, "error", r)
			}
		}()
		fn()
	}()
}
