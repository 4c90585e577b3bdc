package ws

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/taskforge/taskforge-api/internal/assistant"
	"github.com/taskforge/taskforge-api/internal/platform/logger"
)

// Handler upgrades HTTP requests to WebSocket connections and runs the chat
// loop for each one.
type Handler struct {
	hub       *Hub
	assistant assistant.Assistant
	upgrader  websocket.Upgrader
	logger    *slog.Logger
}

// NewHandler creates a WebSocket handler. The assistant may be nil, in which
// case chat messages receive an error frame but task list broadcasts still
// work.
func NewHandler(hub *Hub, asst assistant.Assistant, log *slog.Logger) *Handler {
	if log == nil {
		log = slog.Default()
	}
	return &Handler{
		hub:       hub,
		assistant: asst,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			// The browser client is served from a different origin in
			// development; task data is not origin-sensitive.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		logger: log.With(slog.String("component", "ws_handler")),
	}
}

// ServeHTTP handles GET /ws requests.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warn("websocket upgrade failed", "error", err)
		return
	}

	client := newClient(h.hub, conn, h.logger)
	select {
	case h.hub.register <- client:
	case <-h.hub.done:
		log.Info("hub stopped, rejecting connection")
		_ = conn.Close()
		return
	}
	go client.writePump()

	var conv assistant.Conversation
	if h.assistant != nil {
		conv = h.assistant.NewConversation()
	}

	h.readLoop(r, client, conv)
}

// readLoop processes inbound frames until the connection drops. It is the
// only reader of the connection.
func (h *Handler) readLoop(r *http.Request, client *Client, conv assistant.Conversation) {
	defer func() {
		select {
		case h.hub.unregister <- client:
		case <-h.hub.done:
		}
		_ = client.conn.Close()
	}()

	client.conn.SetReadLimit(maxMessageSize)
	_ = client.conn.SetReadDeadline(time.Now().Add(pongWait))
	client.conn.SetPongHandler(func(string) error {
		return client.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, raw, err := client.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				client.logger.Warn("unexpected websocket close", "error", err)
			}
			return
		}

		var frame InboundFrame
		if err := json.Unmarshal(raw, &frame); err != nil {
			client.trySend(mustMarshal(ErrorFrame{
				Type:    TypeError,
				Message: "Malformed frame.",
			}))
			continue
		}

		switch frame.Type {
		case TypeChatMessage:
			h.handleChatMessage(r, client, conv, frame.Content)
		default:
			client.trySend(mustMarshal(ErrorFrame{
				Type:    TypeError,
				Message: "Unsupported frame type: " + frame.Type,
			}))
		}
	}
}

func (h *Handler) handleChatMessage(r *http.Request, client *Client, conv assistant.Conversation, content string) {
	if conv == nil {
		client.trySend(mustMarshal(ErrorFrame{
			Type:    TypeError,
			Message: "The assistant is not available.",
		}))
		return
	}

	client.logger.Info("processing chat message", slog.Int("content_length", len(content)))

	reply, err := conv.Send(r.Context(), content)
	if err != nil {
		client.logger.Error("assistant failed", "error", err)
		client.trySend(mustMarshal(ErrorFrame{
			Type:    TypeError,
			Message: "An unexpected error occurred. Please try again.",
		}))
		return
	}

	client.trySend(mustMarshal(ChatFrame{
		Type:    TypeChatMessage,
		Sender:  "agent",
		Content: reply,
	}))
}

// mustMarshal marshals frames built entirely from local values; a failure
// here is a programming error.
func mustMarshal(v any) []byte {
	payload, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	return payload
}
