// Package ws implements the WebSocket surface: the connection hub, the
// per-connection pumps and the chat endpoint backed by the assistant.
package ws

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"

	"github.com/taskforge/taskforge-api/internal/domain"
)

// Hub tracks connected clients and fans broadcast frames out to them.
// All bookkeeping happens on the run loop goroutine; clients communicate
// with it only through channels.
type Hub struct {
	clients    map[*Client]bool
	register   chan *Client
	unregister chan *Client
	broadcast  chan []byte
	done       chan struct{}
	wg         sync.WaitGroup
	logger     *slog.Logger
}

// NewHub creates a Hub. Call Run before registering clients and Shutdown on
// server exit.
func NewHub(log *slog.Logger) *Hub {
	if log == nil {
		log = slog.Default()
	}
	return &Hub{
		clients:    make(map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan []byte, 16),
		done:       make(chan struct{}),
		logger:     log.With(slog.String("component", "ws_hub")),
	}
}

// Run starts the hub loop in its own goroutine.
func (h *Hub) Run() {
	h.wg.Add(1)
	go h.loop()
}

// Shutdown stops the hub loop and closes every client connection.
func (h *Hub) Shutdown() {
	close(h.done)
	h.wg.Wait()
}

func (h *Hub) loop() {
	defer h.wg.Done()

	for {
		select {
		case client := <-h.register:
			h.clients[client] = true
			h.logger.Info("client connected",
				slog.String("client_id", client.id),
				slog.Int("total_clients", len(h.clients)))

		case client := <-h.unregister:
			h.dropClient(client)

		case message := <-h.broadcast:
			for client := range h.clients {
				select {
				case client.send <- message:
				default:
					// Client can't keep up; drop it rather than stall the hub.
					h.logger.Warn("dropping slow client", slog.String("client_id", client.id))
					h.dropClient(client)
				}
			}

		case <-h.done:
			for client := range h.clients {
				h.dropClient(client)
			}
			return
		}
	}
}

func (h *Hub) dropClient(client *Client) {
	if _, ok := h.clients[client]; !ok {
		return
	}
	delete(h.clients, client)
	client.closeSend()
	h.logger.Info("client disconnected",
		slog.String("client_id", client.id),
		slog.Int("total_clients", len(h.clients)))
}

// BroadcastTaskList sends the task list to every connected client.
// Implements service.Broadcaster. Never blocks the caller: if the hub's
// buffer is full the frame is dropped and the next mutation re-sends a
// complete list anyway.
func (h *Hub) BroadcastTaskList(ctx context.Context, tasks []*domain.Task) {
	payload, err := json.Marshal(TaskListFrame{
		Type:  TypeTaskListUpdate,
		Tasks: tasks,
	})
	if err != nil {
		h.logger.Error("failed to marshal task list frame", "error", err)
		return
	}

	select {
	case h.broadcast <- payload:
	case <-h.done:
	default:
		h.logger.Warn("broadcast buffer full, dropping task list frame")
	}
}
