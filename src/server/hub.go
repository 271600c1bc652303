package server

import (
	"context"
	"net/http"

	"means-server/src/logger"
	"means-server/src/models"
	"means-server/src/utils"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

// -----------------------------------------------------------------------------
// Hub fans session events out to WebSocket observers. Recent events are kept
// in a ring buffer and replayed to each new observer.
// -----------------------------------------------------------------------------

type Hub struct {
	Logger *logger.Logger

	clients    map[*Client]struct{}
	broadcast  chan models.MSessionEvent
	register   chan *Client
	unregister chan *Client
	recent     *utils.RingBuffer[models.MSessionEvent]
	done       chan struct{}
}

// -----------------------------------------------------------------------------

func NewHub(bufferSize int, log *logger.Logger) *Hub {
	return &Hub{
		Logger:  log,
		clients: make(map[*Client]struct{}),
		// Buffered so sessions never wait on slow observers
		broadcast:  make(chan models.MSessionEvent, 256),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		recent:     utils.NewRingBuffer[models.MSessionEvent](bufferSize),
		done:       make(chan struct{}),
	}
}

// -----------------------------------------------------------------------------

// Run is the main Hub loop
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			close(h.done)
			for client := range h.clients {
				delete(h.clients, client)
				close(client.send)
			}
			return

		case client := <-h.register:
			h.clients[client] = struct{}{}
			for _, event := range h.recent.GetAll() {
				select {
				case client.send <- event:
				default:
				}
			}

		case client := <-h.unregister:
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
			}

		case event := <-h.broadcast:
			h.recent.Append(event)

			for client := range h.clients {
				select {
				case client.send <- event:
				default:
					// Client too slow, disconnect to prevent Hub blocking
					delete(h.clients, client)
					close(client.send)
				}
			}
		}
	}
}

// -----------------------------------------------------------------------------

// Publish queues an event without blocking; events are dropped when the
// queue is full (interfaces.IEventPublisher)
func (h *Hub) Publish(event models.MSessionEvent) {
	select {
	case h.broadcast <- event:
	default:
		h.Logger.Warning("Event queue full, dropping %s event for %s", event.Type, event.RemoteAddr)
	}
}

// -----------------------------------------------------------------------------

// Recent returns the buffered events, oldest first
func (h *Hub) Recent() []models.MSessionEvent {
	return h.recent.GetAll()
}

// -----------------------------------------------------------------------------
// WebSocket Handler
// -----------------------------------------------------------------------------

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// -----------------------------------------------------------------------------

func (h *Hub) handleWebSocket(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.Logger.Info("Failed to upgrade websocket: %v", err)
		return
	}

	client := &Client{
		hub:  h,
		conn: conn,
		// Buffered channel to prevent blocking the Hub loop
		send: make(chan models.MSessionEvent, 256),
	}

	select {
	case h.register <- client:
	case <-h.done:
		conn.Close()
		return
	}

	go client.writePump()
	go client.readPump()
}
