// Package sse consumes Server-Sent Events responses as event streams. Each
// SSE data line carries one JSON-encoded {type, data} event, the framing the
// demo agent gateway produces.
package sse

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/dohr-michael/agentflow/stream"
)

// Client opens SSE streams against an agent endpoint.
type Client struct {
	httpClient *http.Client
	baseURL    string
}

// NewClient creates a client for the given base URL (for example
// "http://127.0.0.1:3000"). A nil httpClient falls back to
// http.DefaultClient.
func NewClient(baseURL string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{httpClient: httpClient, baseURL: strings.TrimRight(baseURL, "/")}
}

// Chat opens the chat endpoint for one assistant turn and returns the event
// stream. The caller owns the stream until it completes or the context is
// cancelled.
func (c *Client) Chat(ctx context.Context, message, taskID string) (stream.Stream, error) {
	endpoint := fmt.Sprintf("%s/agent/chat?message=%s&taskId=%s",
		c.baseURL, url.QueryEscape(message), url.QueryEscape(taskID))
	return c.Open(ctx, endpoint)
}

// Open performs a GET against endpoint and parses the response body as an
// SSE stream.
func (c *Client) Open(ctx context.Context, endpoint string) (stream.Stream, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("sse request: %w", err)
	}
	req.Header.Set("Accept", "text/event-stream")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("sse connect: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("sse connect: unexpected status %s", resp.Status)
	}

	return &bodyStream{body: resp.Body, scanner: bufio.NewScanner(resp.Body)}, nil
}

// bodyStream incrementally parses SSE framing: "data:" lines accumulate until
// a blank line terminates the event.
type bodyStream struct {
	body    io.ReadCloser
	scanner *bufio.Scanner
}

func (s *bodyStream) Recv(ctx context.Context) (stream.Event, error) {
	if err := ctx.Err(); err != nil {
		s.body.Close()
		return stream.Event{}, err
	}

	var data strings.Builder
	for s.scanner.Scan() {
		line := s.scanner.Text()
		switch {
		case strings.HasPrefix(line, "data:"):
			data.WriteString(strings.TrimPrefix(strings.TrimPrefix(line, "data:"), " "))
		case line == "" && data.Len() > 0:
			var ev stream.Event
			if err := json.Unmarshal([]byte(data.String()), &ev); err != nil {
				// Skip frames that are not event JSON (comments, retries).
				data.Reset()
				continue
			}
			return ev, nil
		}
	}

	s.body.Close()
	if err := s.scanner.Err(); err != nil {
		return stream.Event{}, err
	}
	return stream.Event{}, io.EOF
}
