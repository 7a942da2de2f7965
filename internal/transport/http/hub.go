package http

import (
	"log"
	"sync"

	"github.com/RD1707/project-recall-sub001/internal/app"
)

type outboundMessage struct {
	Type    string `json:"type"`
	Payload any    `json:"payload"`
}

type errorPayload struct {
	Message string `json:"message"`
}

// jsonWriter is the slice of *websocket.Conn the hub writes through.
type jsonWriter interface {
	WriteJSON(v interface{}) error
}

// client is one live WebSocket connection. Writes go through the send
// channel so a single writer goroutine owns the connection.
type client struct {
	id   string
	conn jsonWriter
	send chan outboundMessage
}

// Hub tracks live connections and their room memberships, and implements
// the gateway capabilities the quiz service depends on: join-room,
// broadcast, and private error replies.
type Hub struct {
	mu    sync.RWMutex
	conns map[string]*client
	// rooms maps room code -> connection ID -> client.
	rooms map[string]map[string]*client
	// membership maps connection ID -> room codes, for disconnect cleanup.
	membership map[string]map[string]struct{}
}

func NewHub() *Hub {
	return &Hub{
		conns:      make(map[string]*client),
		rooms:      make(map[string]map[string]*client),
		membership: make(map[string]map[string]struct{}),
	}
}

// Register wires a connection into the hub and starts its writer.
func (h *Hub) Register(connectionID string, conn jsonWriter) {
	c := &client{
		id:   connectionID,
		conn: conn,
		send: make(chan outboundMessage, 16),
	}

	h.mu.Lock()
	h.conns[connectionID] = c
	h.membership[connectionID] = make(map[string]struct{})
	h.mu.Unlock()

	go func() {
		for msg := range c.send {
			if err := c.conn.WriteJSON(msg); err != nil {
				log.Printf("ws write to %s failed: %v", c.id, err)
				return
			}
		}
	}()
}

// Unregister drops a connection and removes it from every room it was in.
// It returns the codes of rooms left with no members.
func (h *Hub) Unregister(connectionID string) []string {
	h.mu.Lock()
	defer h.mu.Unlock()

	c, ok := h.conns[connectionID]
	if !ok {
		return nil
	}
	delete(h.conns, connectionID)
	close(c.send)

	var emptied []string
	for code := range h.membership[connectionID] {
		if members, ok := h.rooms[code]; ok {
			delete(members, connectionID)
			if len(members) == 0 {
				delete(h.rooms, code)
				emptied = append(emptied, code)
			}
		}
	}
	delete(h.membership, connectionID)
	return emptied
}

// JoinRoom adds a connection to a room's delivery set. Idempotent.
func (h *Hub) JoinRoom(connectionID, roomCode string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	c, ok := h.conns[connectionID]
	if !ok {
		return
	}
	members, ok := h.rooms[roomCode]
	if !ok {
		members = make(map[string]*client)
		h.rooms[roomCode] = members
	}
	members[connectionID] = c
	h.membership[connectionID][roomCode] = struct{}{}
}

// Broadcast delivers an event to every current member of a room. Slow
// consumers with a full queue are skipped rather than blocking the room.
func (h *Hub) Broadcast(roomCode, event string, payload any) {
	msg := outboundMessage{Type: event, Payload: payload}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, c := range h.rooms[roomCode] {
		select {
		case c.send <- msg:
		default:
			log.Printf("dropping %s for slow connection %s in room %s", event, c.id, roomCode)
		}
	}
}

// EmitTo delivers an event to one connection only. The lock is held across
// the send so Unregister cannot close the channel underneath it.
func (h *Hub) EmitTo(connectionID, event string, payload any) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	c, ok := h.conns[connectionID]
	if !ok {
		return
	}
	select {
	case c.send <- outboundMessage{Type: event, Payload: payload}:
	default:
		log.Printf("dropping %s for slow connection %s", event, connectionID)
	}
}

// ReplyError sends a private error event to the acting connection; it is
// never broadcast.
func (h *Hub) ReplyError(connectionID, message string) {
	h.EmitTo(connectionID, app.EventError, errorPayload{Message: message})
}
