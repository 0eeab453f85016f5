// Package gateway implements the demo agent backend: an HTTP server that
// replays a simulated assistant turn over SSE or WebSocket, using the same
// event framing the stores ingest.
package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/dohr-michael/agentflow/stream"
	"github.com/dohr-michael/agentflow/stream/fake"
)

// Server is the demo agent HTTP server.
type Server struct {
	httpServer *http.Server
	host       string
	port       int
	// interval is the pause between emitted events, so streaming is visible
	// in the demo UI.
	interval time.Duration
}

// NewServer creates a server listening on host:port.
func NewServer(host string, port int, interval time.Duration) *Server {
	s := &Server{host: host, port: port, interval: interval}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.RealIP)

	r.Get("/api/health", s.handleHealth)
	r.Get("/agent/chat", s.handleChat)
	r.Get("/api/ws", s.handleWS)

	s.httpServer = &http.Server{
		Addr:    fmt.Sprintf("%s:%d", host, port),
		Handler: r,
	}
	return s
}

// Start begins listening. It blocks until the server is stopped.
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.httpServer.Addr)
	if err != nil {
		return err
	}
	slog.Info("agent gateway listening", "addr", ln.Addr().String())
	return s.httpServer.Serve(ln)
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

// handleChat streams one simulated assistant turn as SSE. Each event is one
// "data:" frame holding the JSON-encoded event.
func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	message := r.URL.Query().Get("message")
	if message == "" {
		message = "Hello! How can I help you today?"
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	turn := fake.AssistantChat(r.Context(), s.reply(message), fake.Options{Interval: s.interval})
	for {
		ev, err := turn.Recv(r.Context())
		if err != nil {
			return
		}
		data, err := json.Marshal(ev)
		if err != nil {
			slog.Error("marshal sse event", "error", err)
			return
		}
		fmt.Fprintf(w, "data: %s\n\n", data)
		flusher.Flush()
	}
}

// handleWS streams the same simulated turn over a WebSocket, one JSON event
// per text message.
func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		InsecureSkipVerify: true, // any origin; this is a local demo server
	})
	if err != nil {
		slog.Error("ws accept", "error", err)
		return
	}
	defer conn.Close(websocket.StatusNormalClosure, "")

	message := r.URL.Query().Get("message")
	if message == "" {
		message = "Hello! How can I help you today?"
	}

	ctx := r.Context()
	turn := fake.AssistantChat(ctx, s.reply(message), fake.Options{Interval: s.interval})
	for {
		ev, err := turn.Recv(ctx)
		if err != nil {
			return
		}
		if err := writeEvent(ctx, conn, ev); err != nil {
			slog.Debug("ws write", "error", err)
			return
		}
	}
}

func writeEvent(ctx context.Context, conn *websocket.Conn, ev stream.Event) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	return conn.Write(ctx, websocket.MessageText, data)
}

// reply produces the simulated assistant answer for a user message.
func (s *Server) reply(message string) string {
	return fmt.Sprintf("You asked: %q. This is a simulated agent answer streamed token by token.", message)
}
