// Package stream defines the event stream contract consumed by the task
// stores: a sequence of typed events terminated by completion or error.
package stream

import (
	"context"
	"encoding/json"
	"io"
)

// Event is one element of an agent event stream. Type is the dispatch tag
// ("message", "tool", "tool_start", "done", "error", or anything else, which
// consumers ignore). Data is the raw payload; its shape depends on Type.
type Event struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

// NewEvent builds an Event, marshaling data as the payload. A nil data
// produces an event with no payload.
func NewEvent(eventType string, data any) Event {
	if data == nil {
		return Event{Type: eventType}
	}
	raw, err := json.Marshal(data)
	if err != nil {
		return Event{Type: eventType}
	}
	return Event{Type: eventType, Data: raw}
}

// Text returns the event payload decoded as a string. Payloads that are not
// JSON strings are returned verbatim, so plain-text transports work too.
func (e Event) Text() string {
	var s string
	if err := json.Unmarshal(e.Data, &s); err != nil {
		return string(e.Data)
	}
	return s
}

// Stream delivers events one at a time. Recv blocks until the next event is
// available, the stream completes (io.EOF), the stream fails (any other
// error), or ctx is done. Implementations deliver events sequentially; a
// consumer never sees two events from the same stream interleaved.
type Stream interface {
	Recv(ctx context.Context) (Event, error)
}

// chanStream adapts a channel of events to the Stream interface.
type chanStream struct {
	ch  <-chan Event
	err error
}

// FromChannel wraps an event channel as a Stream. Closing the channel
// completes the stream.
func FromChannel(ch <-chan Event) Stream {
	return &chanStream{ch: ch}
}

func (s *chanStream) Recv(ctx context.Context) (Event, error) {
	select {
	case ev, ok := <-s.ch:
		if !ok {
			return Event{}, io.EOF
		}
		return ev, nil
	case <-ctx.Done():
		return Event{}, ctx.Err()
	}
}

// sliceStream replays a fixed script of events.
type sliceStream struct {
	events []Event
	pos    int
}

// FromSlice returns a Stream that replays the given events in order and then
// completes. Useful for tests and scripted demos.
func FromSlice(events ...Event) Stream {
	return &sliceStream{events: events}
}

func (s *sliceStream) Recv(ctx context.Context) (Event, error) {
	if err := ctx.Err(); err != nil {
		return Event{}, err
	}
	if s.pos >= len(s.events) {
		return Event{}, io.EOF
	}
	ev := s.events[s.pos]
	s.pos++
	return ev, nil
}

// failingStream replays events and then fails with err instead of completing.
type failingStream struct {
	inner Stream
	err   error
}

// FromSliceWithError returns a Stream that replays events and then fails
// with err instead of completing normally.
func FromSliceWithError(err error, events ...Event) Stream {
	return &failingStream{inner: FromSlice(events...), err: err}
}

func (s *failingStream) Recv(ctx context.Context) (Event, error) {
	ev, inner := s.inner.Recv(ctx)
	if inner == io.EOF {
		return Event{}, s.err
	}
	return ev, inner
}
