package chat

import (
	"sync"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	EventBotMessage = "bot_message"
	EventError      = "error"
)

// Event is the envelope written to websocket members of a session group.
type Event struct {
	Event string `json:"event"`
	Data  any    `json:"data"`
}

// Conn wraps a websocket connection with a write lock, since broadcasts
// and per-connection replies may race.
type Conn struct {
	ws *websocket.Conn
	mu sync.Mutex
}

func NewConn(ws *websocket.Conn) *Conn {
	return &Conn{ws: ws}
}

func (c *Conn) WriteEvent(event string, data any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ws.WriteJSON(Event{Event: event, Data: data})
}

func (c *Conn) Close() error {
	return c.ws.Close()
}

// Hub tracks the multicast group of each session. Joining is idempotent
// and has no effect on the session log.
type Hub struct {
	mu     sync.RWMutex
	rooms  map[string]map[*Conn]struct{}
	logger *zap.Logger
}

func NewHub(logger *zap.Logger) *Hub {
	return &Hub{
		rooms:  make(map[string]map[*Conn]struct{}),
		logger: logger,
	}
}

func (h *Hub) Join(sessionID string, conn *Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()

	room, ok := h.rooms[sessionID]
	if !ok {
		room = make(map[*Conn]struct{})
		h.rooms[sessionID] = room
	}
	room[conn] = struct{}{}
}

func (h *Hub) Leave(sessionID string, conn *Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()

	room, ok := h.rooms[sessionID]
	if !ok {
		return
	}
	delete(room, conn)
	if len(room) == 0 {
		delete(h.rooms, sessionID)
	}
}

// Broadcast writes an event to every member of the session group. A
// failed write affects only that member.
func (h *Hub) Broadcast(sessionID, event string, data any) {
	h.mu.RLock()
	conns := make([]*Conn, 0, len(h.rooms[sessionID]))
	for conn := range h.rooms[sessionID] {
		conns = append(conns, conn)
	}
	h.mu.RUnlock()

	for _, conn := range conns {
		if err := conn.WriteEvent(event, data); err != nil {
			h.logger.Warn("Failed to write to group member",
				zap.String("session_id", sessionID),
				zap.Error(err))
		}
	}
}

func (h *Hub) Members(sessionID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[sessionID])
}
