// Package render turns task chunks into styled terminal text. A Registry maps
// chunk types to widgets so hosts can override or extend the built-in set,
// with a fallback widget for chunk types nothing is registered for.
package render

import (
	"fmt"
	"strings"
	"sync"

	"github.com/charmbracelet/glamour"

	"github.com/dohr-michael/agentflow/taskdata"
)

// Widget renders one chunk at the given terminal width.
type Widget interface {
	Render(chunk taskdata.Chunk, width int) string
}

// WidgetFunc adapts a function to the Widget interface.
type WidgetFunc func(chunk taskdata.Chunk, width int) string

func (f WidgetFunc) Render(chunk taskdata.Chunk, width int) string { return f(chunk, width) }

// Registry maps chunk types to widgets. Unregistered types fall back to the
// default widget.
type Registry struct {
	mu       sync.RWMutex
	widgets  map[taskdata.ChunkType]Widget
	fallback Widget
}

// NewRegistry returns a registry preloaded with the built-in widgets.
func NewRegistry() *Registry {
	r := &Registry{
		widgets:  make(map[taskdata.ChunkType]Widget),
		fallback: WidgetFunc(renderFallback),
	}
	r.Register(taskdata.ChunkMessage, WidgetFunc(renderMessage))
	r.Register(taskdata.ChunkContext, WidgetFunc(renderContext))
	r.Register(taskdata.ChunkUser, WidgetFunc(renderUser))
	r.Register(taskdata.ChunkTool, WidgetFunc(renderTool))
	r.Register(taskdata.ChunkDone, WidgetFunc(renderDone))
	r.Register(taskdata.ChunkError, WidgetFunc(renderError))
	r.Register(taskdata.ChunkThink, WidgetFunc(renderThink))
	return r
}

// Register installs (or replaces) the widget for a chunk type.
func (r *Registry) Register(t taskdata.ChunkType, w Widget) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.widgets[t] = w
}

// SetFallback replaces the widget used for unregistered chunk types.
func (r *Registry) SetFallback(w Widget) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.fallback = w
}

// Widget returns the widget for a chunk type, or the fallback.
func (r *Registry) Widget(t taskdata.ChunkType) Widget {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if w, ok := r.widgets[t]; ok {
		return w
	}
	return r.fallback
}

// Render renders one chunk using the registered widget for its type.
func (r *Registry) Render(chunk taskdata.Chunk, width int) string {
	return r.Widget(chunk.Type).Render(chunk, width)
}

// Built-in widgets.

var (
	markdownRenderer     *glamour.TermRenderer
	markdownRendererOnce sync.Once
)

// RenderMarkdown renders markdown for terminal display, falling back to the
// raw text when the renderer cannot be built.
func RenderMarkdown(content string, width int) string {
	markdownRendererOnce.Do(func() {
		r, err := glamour.NewTermRenderer(
			glamour.WithStandardStyle("dark"),
			glamour.WithWordWrap(width),
		)
		if err == nil {
			markdownRenderer = r
		}
	})
	if markdownRenderer == nil {
		return content
	}
	out, err := markdownRenderer.Render(content)
	if err != nil {
		return content
	}
	return strings.TrimRight(out, "\n")
}

func renderMessage(chunk taskdata.Chunk, width int) string {
	return RenderMarkdown(chunk.Content, width)
}

func renderContext(chunk taskdata.Chunk, _ int) string {
	return ContextStyle.Render("Context: " + strings.TrimSpace(chunk.Content))
}

func renderUser(chunk taskdata.Chunk, _ int) string {
	return UserStyle.Render("❯ ") + chunk.Content
}

func renderTool(chunk taskdata.Chunk, _ int) string {
	line := ToolBulletStyle.Render("⏺ ") + ToolNameStyle.Render(chunk.Content)
	if chunk.Observation != nil {
		line += " " + ToolArgsStyle.Render(observationText(chunk.Observation))
	}
	return line
}

func renderDone(chunk taskdata.Chunk, _ int) string {
	line := DoneStyle.Render("✓ " + chunk.Content)
	if obs, ok := chunk.Observation.(taskdata.DoneObservation); ok {
		line += " " + ObservationStyle.Render(fmt.Sprintf("(%dms)", obs.TotalTimeMs))
	}
	return line
}

func renderError(chunk taskdata.Chunk, _ int) string {
	line := ErrorStyle.Render("✗ " + chunk.Content)
	if chunk.Observation != nil {
		line += "\n" + ObservationStyle.Render(observationText(chunk.Observation))
	}
	return line
}

func renderThink(chunk taskdata.Chunk, _ int) string {
	return ThinkStyle.Render(chunk.Content)
}

func renderFallback(chunk taskdata.Chunk, _ int) string {
	return FallbackStyle.Render(fmt.Sprintf("[%s] %s", chunk.Type, chunk.Content))
}

func observationText(obs any) string {
	switch v := obs.(type) {
	case string:
		return v
	case fmt.Stringer:
		return v.String()
	default:
		return fmt.Sprintf("%v", v)
	}
}
