package websocket

import (
	"sync"

	"github.com/charmbracelet/log"
)

type Hub struct {
	Rooms map[string]*Room
	mu    sync.Mutex
}

func NewHub() *Hub {
	return &Hub{
		Rooms: make(map[string]*Room),
	}
}

func (h *Hub) GetRoom(roomID string) (*Room, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	room, exists := h.Rooms[roomID]
	return room, exists
}

// Join seats c in the room for roomID, creating the room on first use.
func (h *Hub) Join(roomID string, c *Client) *Room {
	h.mu.Lock()
	defer h.mu.Unlock()
	room, exists := h.Rooms[roomID]
	if !exists {
		room = NewRoom(roomID)
		h.Rooms[roomID] = room
		log.Debug("room opened", "room", roomID)
	}
	room.AddClient(c)
	return room
}

// Leave unseats c and drops its room once empty.
func (h *Hub) Leave(c *Client) {
	if c.Room == nil {
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, empty := c.Room.RemoveClient(c); empty {
		if h.Rooms[c.Room.ID] == c.Room {
			delete(h.Rooms, c.Room.ID)
			log.Debug("room closed", "room", c.Room.ID)
		}
	}
}
