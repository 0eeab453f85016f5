// Package tui is the demo chat host: a bubbletea application driving a
// chatagent.Store, with one tab per task and a chat viewport rendered
// through the widget registry.
package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/dohr-michael/agentflow/chatagent"
	"github.com/dohr-michael/agentflow/render"
	"github.com/dohr-michael/agentflow/stream"
)

// AgentFunc opens the event stream answering one user message on a task.
type AgentFunc func(ctx context.Context, taskID, message string) (stream.Stream, error)

// App is the root TUI model.
// Architecture: TABS | CHAT | INPUT | FOOTER
type App struct {
	store    *chatagent.Store
	registry *render.Registry
	agent    AgentFunc
	ctx      context.Context

	viewport  viewport.Model
	input     textinput.Model
	width     int
	height    int
	ready     bool
	quitting  bool
	statusMsg string

	// One live subscription per task.
	subs map[string]*chatagent.Subscription
}

// NewApp creates the demo host model around an initialized store.
func NewApp(ctx context.Context, store *chatagent.Store, registry *render.Registry, agent AgentFunc) *App {
	input := textinput.New()
	input.Placeholder = "Ask the agent..."
	input.Prompt = promptCharStyle.Render("❯ ")
	input.CharLimit = 0

	return &App{
		store:    store,
		registry: registry,
		agent:    agent,
		ctx:      ctx,
		input:    input,
		subs:     make(map[string]*chatagent.Subscription),
	}
}

// Init starts the input cursor and the store watcher.
func (a *App) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, a.input.Focus(), a.waitForChange())
}

// waitForChange re-arms the store change watcher. Changes are coalesced by
// the store, so one signal can cover many mutations.
func (a *App) waitForChange() tea.Cmd {
	changes := a.store.Changes()
	return func() tea.Msg {
		select {
		case <-changes:
			return StoreChangedMsg{}
		case <-a.ctx.Done():
			return nil
		}
	}
}

// Update handles messages and updates state.
func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		a.resize()
		a.refreshViewport(true)

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c":
			a.quitting = true
			a.cancelAll()
			return a, tea.Quit
		case "ctrl+n":
			a.newTask()
			return a, a.waitForChange()
		case "ctrl+w":
			a.closeSelectedTask()
			return a, nil
		case "tab":
			a.cycleTask(1)
			a.refreshViewport(true)
			return a, nil
		case "shift+tab":
			a.cycleTask(-1)
			a.refreshViewport(true)
			return a, nil
		case "esc":
			a.cancelSelected()
			return a, nil
		case "pgup", "pgdown":
			var cmd tea.Cmd
			a.viewport, cmd = a.viewport.Update(msg)
			return a, cmd
		case "enter":
			cmds = append(cmds, a.submit())
			return a, tea.Batch(cmds...)
		}

		var cmd tea.Cmd
		a.input, cmd = a.input.Update(msg)
		cmds = append(cmds, cmd)

	case StoreChangedMsg:
		a.refreshViewport(false)
		cmds = append(cmds, a.waitForChange())

	case AgentStartedMsg:
		cmds = append(cmds, a.attach(msg.TaskID, msg.Stream))

	case StreamFinishedMsg:
		delete(a.subs, msg.TaskID)

	case AgentErrorMsg:
		a.statusMsg = fmt.Sprintf("agent error: %v", msg.Err)

	default:
		var cmd tea.Cmd
		a.viewport, cmd = a.viewport.Update(msg)
		cmds = append(cmds, cmd)
	}

	return a, tea.Batch(cmds...)
}

// View renders TABS | CHAT | INPUT | FOOTER.
func (a *App) View() string {
	if a.quitting {
		return "Goodbye!\n"
	}
	if !a.ready {
		return "Loading..."
	}

	return lipgloss.JoinVertical(lipgloss.Left,
		a.renderTabs(),
		a.viewport.View(),
		inputSeparatorStyle.Render(strings.Repeat("─", max(a.width, 1))),
		a.input.View(),
		a.renderFooter(),
	)
}

func (a *App) resize() {
	tabsHeight := 1
	inputHeight := 2 // separator + input
	footerHeight := 1

	chatHeight := a.height - tabsHeight - inputHeight - footerHeight
	if chatHeight < 3 {
		chatHeight = 3
	}

	if !a.ready {
		a.viewport = viewport.New(a.width, chatHeight)
		a.ready = true
	} else {
		a.viewport.Width = a.width
		a.viewport.Height = chatHeight
	}
	a.input.Width = a.width - 4
}

// refreshViewport rebuilds the chat content from the selected task. When the
// viewport was already at the bottom (or jump is set) it follows the tail.
func (a *App) refreshViewport(jump bool) {
	if !a.ready {
		return
	}
	atBottom := a.viewport.AtBottom()

	task := a.store.SelectedTask()
	if task == nil {
		a.viewport.SetContent(helpText())
		return
	}

	var b strings.Builder
	for _, message := range task.Messages {
		for _, chunk := range message.Data {
			b.WriteString(a.registry.Render(chunk, a.viewport.Width))
			b.WriteString("\n")
		}
	}
	a.viewport.SetContent(b.String())

	if jump || atBottom {
		a.viewport.GotoBottom()
	}
}

func (a *App) renderTabs() string {
	tasks := a.store.AllTasks()
	if len(tasks) == 0 {
		return tabBarStyle.Render("no tasks — ctrl+n to start one")
	}

	selected := a.store.SelectedTask()
	parts := make([]string, 0, len(tasks))
	for _, task := range tasks {
		label := fmt.Sprintf("%s %s", statusGlyph(task.Status), task.Name)
		if selected != nil && task.ID == selected.ID {
			parts = append(parts, activeTabStyle.Render(label))
		} else {
			parts = append(parts, tabStyle.Render(label))
		}
	}
	return tabBarStyle.Render(strings.Join(parts, tabSeparatorStyle.Render(" │ ")))
}

func (a *App) renderFooter() string {
	hints := "ctrl+n new · tab switch · ctrl+w close · esc cancel · ctrl+c quit"
	if a.statusMsg != "" {
		hints = a.statusMsg
	}
	if a.store.IsLoading() {
		hints = "loading tasks..."
	}
	return footerStyle.Width(max(a.width, 1)).Render(hints)
}

// newTask creates and selects a fresh conversation tab.
func (a *App) newTask() {
	n := len(a.store.AllTasks()) + 1
	task := a.store.CreateTask(fmt.Sprintf("Task %d", n), "", true)
	a.store.SelectTask(task.ID)
}

func (a *App) closeSelectedTask() {
	task := a.store.SelectedTask()
	if task == nil {
		return
	}
	if sub, ok := a.subs[task.ID]; ok {
		sub.Cancel()
		delete(a.subs, task.ID)
	}
	a.store.RemoveTask(task.ID)
	if remaining := a.store.AllTasks(); len(remaining) > 0 {
		a.store.SelectTask(remaining[len(remaining)-1].ID)
	}
	a.refreshViewport(true)
}

func (a *App) cycleTask(dir int) {
	tasks := a.store.AllTasks()
	if len(tasks) == 0 {
		return
	}
	selected := a.store.SelectedTask()
	idx := 0
	for i, task := range tasks {
		if selected != nil && task.ID == selected.ID {
			idx = i
			break
		}
	}
	idx = (idx + dir + len(tasks)) % len(tasks)
	a.store.SelectTask(tasks[idx].ID)
}

// submit routes the typed text through SendMessage and opens an agent stream
// for the reply.
func (a *App) submit() tea.Cmd {
	text := strings.TrimSpace(a.input.Value())
	if text == "" {
		return nil
	}

	task := a.store.SelectedTask()
	if task == nil {
		a.newTask()
		task = a.store.SelectedTask()
	}
	if task == nil {
		return nil
	}
	if _, busy := a.subs[task.ID]; busy {
		a.statusMsg = "task is still processing"
		return nil
	}

	a.input.Reset()
	a.statusMsg = ""
	a.store.SendMessage(task.ID, text)

	taskID := task.ID
	return func() tea.Msg {
		st, err := a.agent(a.ctx, taskID, text)
		if err != nil {
			return AgentErrorMsg{TaskID: taskID, Err: err}
		}
		return AgentStartedMsg{TaskID: taskID, Stream: st}
	}
}

// attach hooks a freshly opened stream into the store and watches for its
// wind-down.
func (a *App) attach(taskID string, st stream.Stream) tea.Cmd {
	sub := a.store.ChatWithAgent(a.ctx, taskID, st)
	a.subs[taskID] = sub
	return func() tea.Msg {
		<-sub.Done()
		return StreamFinishedMsg{TaskID: taskID}
	}
}

func (a *App) cancelSelected() {
	task := a.store.SelectedTask()
	if task == nil {
		return
	}
	if sub, ok := a.subs[task.ID]; ok {
		sub.Cancel()
		delete(a.subs, task.ID)
		a.statusMsg = "stream cancelled"
	}
}

func (a *App) cancelAll() {
	for id, sub := range a.subs {
		sub.Cancel()
		delete(a.subs, id)
	}
}

func helpText() string {
	return helpStyle.Render("\n  No task selected.\n\n  ctrl+n  start a new task\n  enter   send a message\n")
}
