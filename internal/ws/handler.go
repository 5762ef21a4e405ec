package ws

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/charmbracelet/log"
	"github.com/gorilla/websocket"
	"github.com/krishanu7/battleship-engine/internal/auth"
	"github.com/krishanu7/battleship-engine/internal/game"
	wsPkg "github.com/krishanu7/battleship-engine/pkg/websocket"
)

const maxMessageSize = 4096

// Matches is the part of the match service the socket needs.
type Matches interface {
	Snapshot(ctx context.Context, id string, viewer int) (game.Snapshot, error)
	Place(id string, player int, start game.Coord, o game.Orientation) error
	AutoPlace(id string, player int) error
	Attack(id string, player int, target game.Coord) (game.AttackResult, error)
	NextRound(id string) error
}

type Seats interface {
	VerifySeatToken(token string) (auth.SeatClaims, error)
}

type Handler struct {
	Hub     *wsPkg.Hub
	matches Matches
	seats   Seats
}

func NewHandler(hub *wsPkg.Hub, matches Matches, seats Seats) *Handler {
	return &Handler{
		Hub:     hub,
		matches: matches,
		seats:   seats,
	}
}

// ClientMessage is a command sent over the socket.
type ClientMessage struct {
	Type        string `json:"type"`
	Row         *int   `json:"row,omitempty"`
	Col         *int   `json:"col,omitempty"`
	Coordinate  string `json:"coordinate,omitempty"`
	Orientation string `json:"orientation,omitempty"`
	Message     string `json:"message,omitempty"`
}

// ServerMessage is everything pushed to a client. State is always the
// receiving seat's own perspective.
type ServerMessage struct {
	Type    string             `json:"type"`
	Event   *game.Event        `json:"event,omitempty"`
	State   *game.Snapshot     `json:"state,omitempty"`
	Attack  *game.AttackResult `json:"attack,omitempty"`
	Message string             `json:"message,omitempty"`
	Seat    int                `json:"seat"`
}

func (m ClientMessage) coord() (game.Coord, error) {
	if m.Coordinate != "" {
		row, col, err := game.ParseCoordinate(m.Coordinate)
		return game.Coord{Row: row, Col: col}, err
	}
	if m.Row == nil || m.Col == nil {
		return game.Coord{}, fmt.Errorf("missing row/col or coordinate")
	}
	return game.Coord{Row: *m.Row, Col: *m.Col}, nil
}

func (h *Handler) ServeWS(w http.ResponseWriter, r *http.Request) {
	matchID := r.PathValue("id")
	token := r.URL.Query().Get("token")
	if token == "" {
		token = r.Header.Get("Authorization")
	}
	claims, err := h.seats.VerifySeatToken(token)
	if err != nil || claims.MatchID != matchID {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	snap, err := h.matches.Snapshot(r.Context(), matchID, claims.Player)
	if err != nil {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}

	conn, err := wsPkg.Upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("Upgrade failed: %v", err)
		return
	}

	client := wsPkg.NewClient(claims.Player, conn)
	h.Hub.Join(matchID, client)
	h.send(client, ServerMessage{Type: "state", State: &snap})

	log.Printf("Player %d connected to match %s", client.ID, matchID)
	go func() {
		if err := client.WritePump(); err != nil {
			log.Printf("Write error for client %d: %v", client.ID, err)
		}
	}()
	go h.read(client)
}

func (h *Handler) send(c *wsPkg.Client, msg ServerMessage) {
	data, err := json.Marshal(msg)
	if err != nil {
		log.Printf("Failed to marshal %s message: %v", msg.Type, err)
		return
	}
	if !c.Room.SendTo(c.ID, data) {
		log.Warn("message dropped", "room", c.Room.ID, "client", c.ID, "type", msg.Type)
	}
}

func (h *Handler) read(c *wsPkg.Client) {
	defer func() {
		h.Hub.Leave(c)
		c.Conn.Close()
	}()
	c.PrepareRead(maxMessageSize)
	for {
		_, raw, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Printf("Read error for client %d: %v", c.ID, err)
			}
			return
		}
		var msg ClientMessage
		if err := json.Unmarshal(raw, &msg); err != nil {
			h.send(c, ServerMessage{Type: "error", Message: "invalid message"})
			continue
		}
		if err := h.dispatch(c, msg); err != nil {
			h.send(c, ServerMessage{Type: "error", Message: err.Error()})
		}
	}
}

func (h *Handler) dispatch(c *wsPkg.Client, msg ClientMessage) error {
	matchID := c.Room.ID
	switch msg.Type {
	case "state":
		snap, err := h.matches.Snapshot(context.Background(), matchID, c.ID)
		if err != nil {
			return err
		}
		h.send(c, ServerMessage{Type: "state", State: &snap})
		return nil
	case "place":
		start, err := msg.coord()
		if err != nil {
			return err
		}
		o, err := game.ParseOrientation(msg.Orientation)
		if err != nil {
			return err
		}
		return h.matches.Place(matchID, c.ID, start, o)
	case "autoplace":
		return h.matches.AutoPlace(matchID, c.ID)
	case "attack":
		target, err := msg.coord()
		if err != nil {
			return err
		}
		res, err := h.matches.Attack(matchID, c.ID, target)
		if err != nil {
			return err
		}
		h.send(c, ServerMessage{Type: "attack_result", Attack: &res})
		return nil
	case "next_round":
		return h.matches.NextRound(matchID)
	case "chat":
		data, err := json.Marshal(ServerMessage{Type: "chat", Message: msg.Message, Seat: c.ID})
		if err != nil {
			return err
		}
		c.Room.Broadcast(c.ID, data)
		return nil
	}
	return errors.New("unknown message type: " + msg.Type)
}
