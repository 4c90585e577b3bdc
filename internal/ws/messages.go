package ws

import "github.com/taskforge/taskforge-api/internal/domain"

// Frame types exchanged over the WebSocket.
const (
	// TypeChatMessage carries a user message inbound and an assistant reply
	// outbound.
	TypeChatMessage = "chat_message"

	// TypeTaskListUpdate carries the full ordered task list, broadcast to
	// every client after a mutation.
	TypeTaskListUpdate = "task_list_update"

	// TypeError carries a client-safe failure notice.
	TypeError = "error"
)

// InboundFrame is a message received from a client.
type InboundFrame struct {
	Type    string `json:"type"`
	Content string `json:"content"`
}

// ChatFrame is an assistant reply sent to a single client.
type ChatFrame struct {
	Type    string `json:"type"`
	Sender  string `json:"sender"`
	Content string `json:"content"`
}

// TaskListFrame is the broadcast carrying the current task list.
type TaskListFrame struct {
	Type  string         `json:"type"`
	Tasks []*domain.Task `json:"tasks"`
}

// ErrorFrame reports a failure to a single client.
type ErrorFrame struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}
