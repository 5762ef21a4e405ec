package websocket

import (
	"sync"

	"github.com/charmbracelet/log"
)

// Room groups the connections watching one match, at most one per seat.
type Room struct {
	ID      string
	mu      sync.Mutex
	Clients map[int]*Client
}

func NewRoom(id string) *Room {
	return &Room{
		ID:      id,
		Clients: make(map[int]*Client),
	}
}

// AddClient seats c, closing any connection previously holding that seat.
func (r *Room) AddClient(c *Client) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if old, ok := r.Clients[c.ID]; ok && old != c {
		close(old.Send)
	}
	r.Clients[c.ID] = c
	c.Room = r
	log.Printf("Client %d joined room %s", c.ID, r.ID)
}

// RemoveClient reports whether c was seated and the room is now empty.
func (r *Room) RemoveClient(c *Client) (removed, empty bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if cur, ok := r.Clients[c.ID]; ok && cur == c {
		delete(r.Clients, c.ID)
		close(c.Send)
		removed = true
		log.Printf("Client %d left room %s", c.ID, r.ID)
	}
	return removed, len(r.Clients) == 0
}

func (r *Room) Seats() []int {
	r.mu.Lock()
	defer r.mu.Unlock()
	seats := make([]int, 0, len(r.Clients))
	for id := range r.Clients {
		seats = append(seats, id)
	}
	return seats
}

// SendTo queues message for the seat without blocking; a full buffer drops
// the message.
func (r *Room) SendTo(id int, message []byte) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	client, ok := r.Clients[id]
	if !ok {
		return false
	}
	select {
	case client.Send <- message:
		return true
	default:
		return false
	}
}

func (r *Room) Broadcast(senderID int, message []byte) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, client := range r.Clients {
		if id == senderID {
			continue
		}
		select {
		case client.Send <- message:
		default:
			log.Warn("dropping message for slow client", "room", r.ID, "client", id)
		}
	}
}
