// Package websocket is the stream transport's outward half: it upgrades an HTTP connection per the control
// plane's subscribeToExecutionEvents call and pumps StreamTransport.Subscribe's batched
// StreamEvents straight to the browser/API client, one frame per event, until the client
// disconnects or the stream is closed.
package websocket

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	gorillaws "github.com/gorilla/websocket"

	"github.com/flowforge/orchestrator/internal/durable"
	"github.com/flowforge/orchestrator/internal/infrastructure/logger"
)

var upgrader = gorillaws.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

const (
	writeTimeout = 10 * time.Second
	pingInterval = 54 * time.Second
	pongTimeout  = 60 * time.Second
)

// streamFrame is the wire message pushed for each delivered stream row.
type streamFrame struct {
	WorkflowID string                 `json:"workflow_id"`
	StreamKey  string                 `json:"stream_key"`
	Offset     int64                  `json:"offset"`
	Value      map[string]interface{} `json:"value"`
	Closed     bool                   `json:"closed"`
	Timestamp  time.Time              `json:"timestamp"`
}

// StreamHandler adapts one execution's event stream onto a WebSocket connection.
type StreamHandler struct {
	transport *durable.StreamTransport
	log       *logger.Logger
}

// NewStreamHandler builds the handler over a shared stream transport.
func NewStreamHandler(transport *durable.StreamTransport, log *logger.Logger) *StreamHandler {
	return &StreamHandler{transport: transport, log: log}
}

// ServeHTTP upgrades the request and streams one execution's "events" stream (or a
// caller-chosen stream_key) from the given offset. URL query parameters: execution_id
// (required), stream_key (default "events"), from_offset (default 0).
func (h *StreamHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	executionID := r.URL.Query().Get("execution_id")
	if executionID == "" {
		http.Error(w, "execution_id is required", http.StatusBadRequest)
		return
	}
	streamKey := r.URL.Query().Get("stream_key")
	if streamKey == "" {
		streamKey = "events"
	}
	var fromOffset int64
	if raw := r.URL.Query().Get("from_offset"); raw != "" {
		parsed, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			http.Error(w, "from_offset must be an integer", http.StatusBadRequest)
			return
		}
		fromOffset = parsed
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		if h.log != nil {
			h.log.Error("websocket: upgrade failed", "error", err)
		}
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	events, unsubscribe, err := h.transport.Subscribe(ctx, executionID, streamKey, fromOffset)
	if err != nil {
		if h.log != nil {
			h.log.Error("websocket: subscribe failed", "execution_id", executionID, "stream_key", streamKey, "error", err)
		}
		_ = conn.WriteMessage(gorillaws.CloseMessage, gorillaws.FormatCloseMessage(gorillaws.CloseInternalServerErr, "subscribe failed"))
		return
	}
	defer unsubscribe()

	go h.drainClientReads(conn, cancel)

	conn.SetReadDeadline(time.Now().Add(pongTimeout))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(pongTimeout))
		return nil
	})

	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case evt, ok := <-events:
			if !ok {
				return
			}
			frame := streamFrame{
				WorkflowID: evt.WorkflowID,
				StreamKey:  evt.StreamKey,
				Offset:     evt.Offset,
				Value:      evt.Value,
				Closed:     evt.Closed,
				Timestamp:  evt.At,
			}
			data, err := json.Marshal(frame)
			if err != nil {
				continue
			}
			conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := conn.WriteMessage(gorillaws.TextMessage, data); err != nil {
				return
			}
			if evt.Closed {
				return
			}
		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := conn.WriteMessage(gorillaws.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// drainClientReads discards inbound frames (this is a push-only stream) but keeps the read
// deadline/pong handler alive, and cancels the connection's context on disconnect.
func (h *StreamHandler) drainClientReads(conn *gorillaws.Conn, cancel context.CancelFunc) {
	defer cancel()
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}
