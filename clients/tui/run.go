package tui

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/dohr-michael/agentflow/chatagent"
	"github.com/dohr-michael/agentflow/render"
)

// Run loads persisted tasks and drives the TUI until the user quits.
func Run(ctx context.Context, store *chatagent.Store, registry *render.Registry, agent AgentFunc) error {
	store.LoadExistingTasks()
	if tasks := store.AllTasks(); len(tasks) == 0 {
		task := store.CreateTask("Task 1", "", true)
		store.SelectTask(task.ID)
	} else if store.SelectedTask() == nil {
		store.SelectTask(tasks[0].ID)
	}

	app := NewApp(ctx, store, registry, agent)
	p := tea.NewProgram(app, tea.WithAltScreen(), tea.WithContext(ctx))
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("run tui: %w", err)
	}
	return nil
}
