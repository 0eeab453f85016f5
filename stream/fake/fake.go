// Package fake provides in-memory demo agents: scripted event streams that
// behave like a live connection without any transport. The demo host uses
// them; tests can too.
package fake

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/dohr-michael/agentflow/stream"
)

// Options tunes a fake agent run.
type Options struct {
	// Interval is the pause between events. Zero means no pause (useful in
	// tests).
	Interval time.Duration
}

// AssistantChat returns a stream that simulates one assistant turn answering
// reply: token-by-token message events, a tool event with the double-encoded
// payload shape the wire format uses, and a final done event. The tokens
// exercise the stores' text coalescing.
func AssistantChat(ctx context.Context, reply string, opts Options) stream.Stream {
	ch := make(chan stream.Event)
	go func() {
		defer close(ch)

		emit := func(ev stream.Event) bool {
			if opts.Interval > 0 {
				select {
				case <-time.After(opts.Interval):
				case <-ctx.Done():
					return false
				}
			}
			select {
			case ch <- ev:
				return true
			case <-ctx.Done():
				return false
			}
		}

		if !emit(stream.NewEvent("tool_start", nil)) {
			return
		}
		if !emit(stream.NewEvent("tool", ToolPayload("search", map[string]any{
			"query": reply,
			"hits":  3,
		}))) {
			return
		}
		for _, word := range strings.Fields(reply) {
			if !emit(stream.NewEvent("message", word+" ")) {
				return
			}
		}
		emit(stream.NewEvent("done", nil))
	}()
	return stream.FromChannel(ch)
}

// ProgressRun returns a stream that simulates a long-running job: an opening
// message followed by steps progress events (a caller-extension chunk type)
// and a final done. Mirrors the flat-store demo.
func ProgressRun(ctx context.Context, steps int, opts Options) stream.Stream {
	if steps <= 0 {
		steps = 5
	}
	ch := make(chan stream.Event)
	go func() {
		defer close(ch)

		emit := func(ev stream.Event) bool {
			if opts.Interval > 0 {
				select {
				case <-time.After(opts.Interval):
				case <-ctx.Done():
					return false
				}
			}
			select {
			case ch <- ev:
				return true
			case <-ctx.Done():
				return false
			}
		}

		if !emit(stream.NewEvent("message", "Starting the process...")) {
			return
		}
		for i := 1; i <= steps; i++ {
			pct := i * 100 / steps
			if !emit(stream.NewEvent("progress", map[string]any{
				"content":  fmt.Sprintf("Processing: %d%% complete", pct),
				"progress": pct,
			})) {
				return
			}
		}
		emit(stream.NewEvent("done", nil))
	}()
	return stream.FromChannel(ch)
}

// Failing returns a stream that emits one message and then an error event,
// for demoing the failure path.
func Failing(ctx context.Context, message string, opts Options) stream.Stream {
	return stream.FromSlice(
		stream.NewEvent("message", "Working on it..."),
		stream.NewEvent("error", map[string]string{"message": message}),
		stream.NewEvent("done", nil),
	)
}

// ToolPayload builds the two-level tool event payload: an outer kwargs record
// whose content field is itself JSON-encoded.
func ToolPayload(name string, content any) string {
	inner, _ := json.Marshal(content)
	outer, _ := json.Marshal(map[string]any{
		"kwargs": map[string]any{"name": name, "content": string(inner)},
	})
	return string(outer)
}
