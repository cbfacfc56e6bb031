package api

// #region imports
import (
	"log"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
)

// #endregion

// #region hub

// Hub fans conversation events out to websocket spectators, one room per
// counterpart id. Rooms are created on first join and dropped when the last
// spectator leaves.
type Hub struct {
	mu    sync.Mutex
	rooms map[string]map[*websocket.Conn]bool
}

// NewHub returns an empty hub.
func NewHub() *Hub {
	return &Hub{rooms: make(map[string]map[*websocket.Conn]bool)}
}

func (h *Hub) add(id string, conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	room, ok := h.rooms[id]
	if !ok {
		room = make(map[*websocket.Conn]bool)
		h.rooms[id] = room
	}
	room[conn] = true
}

func (h *Hub) remove(id string, conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if room, ok := h.rooms[id]; ok {
		delete(room, conn)
		if len(room) == 0 {
			delete(h.rooms, id)
		}
	}
}

// Spectators reports the current room size.
func (h *Hub) Spectators(id string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.rooms[id])
}

// Broadcast sends payload to every spectator of the room. Connections that
// fail to write are dropped.
func (h *Hub) Broadcast(id string, payload interface{}) {
	h.mu.Lock()
	defer h.mu.Unlock()
	room, ok := h.rooms[id]
	if !ok {
		return
	}
	for conn := range room {
		if err := conn.WriteJSON(payload); err != nil {
			log.Printf("[API] dropping stale spectator for %s: %v", id, err)
			conn.Close()
			delete(room, conn)
		}
	}
	if len(room) == 0 {
		delete(h.rooms, id)
	}
}

// #endregion hub

// #region ws-handler

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// The feed is read-only broadcast data; any origin may spectate.
	CheckOrigin: func(*http.Request) bool { return true },
}

// Conversation upgrades the request and keeps the spectator in the room
// until the connection drops. Inbound frames are read and discarded to
// service pings.
func (h *Handler) Conversation(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "conversation id is required"})
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("[API] websocket upgrade failed: %v", err)
		return
	}

	h.hub.add(id, conn)
	h.hub.Broadcast(id, map[string]interface{}{
		"type":       "spectator_update",
		"spectators": h.hub.Spectators(id),
	})

	defer func() {
		h.hub.remove(id, conn)
		conn.Close()
	}()
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

// #endregion ws-handler
