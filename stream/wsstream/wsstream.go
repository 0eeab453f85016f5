// Package wsstream consumes agent events over a WebSocket connection. The
// gateway writes one JSON-encoded {type, data} event per text message.
package wsstream

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/coder/websocket"

	"github.com/dohr-michael/agentflow/stream"
)

// Conn is a WebSocket-backed event stream.
type Conn struct {
	conn *websocket.Conn
}

// Dial connects to the gateway WebSocket endpoint.
func Dial(ctx context.Context, url string) (*Conn, error) {
	conn, _, err := websocket.Dial(ctx, url, nil)
	if err != nil {
		return nil, fmt.Errorf("ws dial: %w", err)
	}
	return &Conn{conn: conn}, nil
}

// Recv reads the next event. A normal closure surfaces as io.EOF so the
// ingestion engine treats it as stream completion; any other read error is a
// stream failure.
func (c *Conn) Recv(ctx context.Context) (stream.Event, error) {
	_, data, err := c.conn.Read(ctx)
	if err != nil {
		if websocket.CloseStatus(err) == websocket.StatusNormalClosure {
			return stream.Event{}, io.EOF
		}
		return stream.Event{}, err
	}
	var ev stream.Event
	if err := json.Unmarshal(data, &ev); err != nil {
		return stream.Event{}, fmt.Errorf("decode ws event: %w", err)
	}
	return ev, nil
}

// Close gracefully closes the connection.
func (c *Conn) Close() error {
	return c.conn.Close(websocket.StatusNormalClosure, "bye")
}
