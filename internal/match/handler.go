package match

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/charmbracelet/log"
	"github.com/krishanu7/battleship-engine/internal/auth"
	"github.com/krishanu7/battleship-engine/internal/game"
)

// Seats issues and checks the per-player bearer tokens of a match.
type Seats interface {
	IssueSeatToken(matchID string, player int) (string, error)
	VerifySeatToken(token string) (auth.SeatClaims, error)
	Username(token string) (string, error)
}

type Handler struct {
	service *Service
	seats   Seats
}

func NewHandler(s *Service, seats Seats) *Handler {
	return &Handler{
		service: s,
		seats:   seats,
	}
}

func (h *Handler) Routes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/v1/matches", h.Create)
	mux.HandleFunc("GET /api/v1/matches/{id}", h.State)
	mux.HandleFunc("POST /api/v1/matches/{id}/place", h.Place)
	mux.HandleFunc("POST /api/v1/matches/{id}/autoplace", h.AutoPlace)
	mux.HandleFunc("POST /api/v1/matches/{id}/attack", h.Attack)
	mux.HandleFunc("POST /api/v1/matches/{id}/next-round", h.NextRound)
	mux.HandleFunc("POST /api/v1/matches/{id}/reset", h.Reset)
	mux.HandleFunc("DELETE /api/v1/matches/{id}", h.Delete)
}

type CreateResponse struct {
	Message string         `json:"message"`
	MatchID string         `json:"match_id"`
	Mode    game.Mode      `json:"mode"`
	BestOf  int            `json:"best_of"`
	Names   [2]string      `json:"names"`
	Tokens  map[int]string `json:"tokens"`
}

type AttackResponse struct {
	Result game.AttackResult `json:"result"`
	State  game.Snapshot     `json:"state"`
}

type coordRequest struct {
	Row        *int   `json:"row"`
	Col        *int   `json:"col"`
	Coordinate string `json:"coordinate"`
}

func (c coordRequest) coord() (game.Coord, error) {
	if c.Coordinate != "" {
		row, col, err := game.ParseCoordinate(c.Coordinate)
		if err != nil {
			return game.Coord{}, err
		}
		return game.Coord{Row: row, Col: col}, nil
	}
	if c.Row == nil || c.Col == nil {
		return game.Coord{}, fmt.Errorf("missing row/col or coordinate")
	}
	return game.Coord{Row: *c.Row, Col: *c.Col}, nil
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("Failed to encode response: %v", err)
	}
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]string{"error": msg})
}

// StatusFor maps a service or engine error to an HTTP status.
func StatusFor(err error) int {
	switch {
	case errors.Is(err, ErrMatchNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrUnauthorized), errors.Is(err, auth.ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, game.ErrPlacementExhausted):
		return http.StatusInternalServerError
	case errors.Is(err, game.ErrOutOfBounds), errors.Is(err, game.ErrOverlap), errors.Is(err, game.ErrAlreadyShot):
		return http.StatusBadRequest
	case errors.Is(err, game.ErrInvalidMove), errors.Is(err, game.ErrMatchDecided):
		return http.StatusConflict
	}
	return http.StatusInternalServerError
}

func (h *Handler) fail(w http.ResponseWriter, err error) {
	code := StatusFor(err)
	if code == http.StatusInternalServerError {
		log.Error("request failed", "err", err)
	}
	writeError(w, code, err.Error())
}

// seat resolves the caller's player id for the match in the path.
func (h *Handler) seat(r *http.Request) (string, int, error) {
	id := r.PathValue("id")
	claims, err := h.seats.VerifySeatToken(r.Header.Get("Authorization"))
	if err != nil {
		return "", 0, err
	}
	if claims.MatchID != id {
		return "", 0, fmt.Errorf("token is for another match: %w", ErrUnauthorized)
	}
	return id, claims.Player, nil
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request payload")
		return
	}
	if req.Player1Name == "" && r.Header.Get("Authorization") != "" {
		if name, err := h.seats.Username(r.Header.Get("Authorization")); err == nil {
			req.Player1Name = name
		}
	}

	m, err := h.service.Create(req)
	if err != nil {
		if errors.Is(err, game.ErrPlacementExhausted) {
			h.fail(w, err)
			return
		}
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	seats := []int{game.Player1}
	if m.Mode() == game.VsPlayer {
		seats = append(seats, game.Player2)
	}
	tokens := make(map[int]string, len(seats))
	for _, p := range seats {
		tok, err := h.seats.IssueSeatToken(m.ID(), p)
		if err != nil {
			h.service.Delete(m.ID())
			h.fail(w, err)
			return
		}
		tokens[p] = tok
	}

	writeJSON(w, http.StatusCreated, CreateResponse{
		Message: "Match created",
		MatchID: m.ID(),
		Mode:    m.Mode(),
		BestOf:  m.Score().BestOf,
		Names:   m.Names(),
		Tokens:  tokens,
	})
}

func (h *Handler) State(w http.ResponseWriter, r *http.Request) {
	id, player, err := h.seat(r)
	if err != nil {
		h.fail(w, err)
		return
	}
	if v := r.URL.Query().Get("player_id"); v != "" {
		if n, err := strconv.Atoi(v); err != nil || n != player {
			h.fail(w, fmt.Errorf("viewer %q does not hold this seat: %w", v, ErrUnauthorized))
			return
		}
	}
	h.respondState(w, r, id, player)
}

func (h *Handler) respondState(w http.ResponseWriter, r *http.Request, id string, player int) {
	snap, err := h.service.Snapshot(r.Context(), id, player)
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

func (h *Handler) Place(w http.ResponseWriter, r *http.Request) {
	id, player, err := h.seat(r)
	if err != nil {
		h.fail(w, err)
		return
	}
	var req struct {
		coordRequest
		Orientation string `json:"orientation"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request payload")
		return
	}
	start, err := req.coord()
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	o, err := game.ParseOrientation(req.Orientation)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := h.service.Place(id, player, start, o); err != nil {
		h.fail(w, err)
		return
	}
	h.respondState(w, r, id, player)
}

func (h *Handler) AutoPlace(w http.ResponseWriter, r *http.Request) {
	id, player, err := h.seat(r)
	if err != nil {
		h.fail(w, err)
		return
	}
	if err := h.service.AutoPlace(id, player); err != nil {
		h.fail(w, err)
		return
	}
	h.respondState(w, r, id, player)
}

func (h *Handler) Attack(w http.ResponseWriter, r *http.Request) {
	id, player, err := h.seat(r)
	if err != nil {
		h.fail(w, err)
		return
	}
	var req coordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request payload")
		return
	}
	target, err := req.coord()
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	res, err := h.service.Attack(id, player, target)
	if err != nil {
		h.fail(w, err)
		return
	}
	snap, err := h.service.Snapshot(r.Context(), id, player)
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, AttackResponse{Result: res, State: snap})
}

func (h *Handler) NextRound(w http.ResponseWriter, r *http.Request) {
	id, player, err := h.seat(r)
	if err != nil {
		h.fail(w, err)
		return
	}
	if err := h.service.NextRound(id); err != nil {
		h.fail(w, err)
		return
	}
	h.respondState(w, r, id, player)
}

func (h *Handler) Reset(w http.ResponseWriter, r *http.Request) {
	id, player, err := h.seat(r)
	if err != nil {
		h.fail(w, err)
		return
	}
	if err := h.service.Reset(id); err != nil {
		h.fail(w, err)
		return
	}
	h.respondState(w, r, id, player)
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	id, _, err := h.seat(r)
	if err != nil {
		h.fail(w, err)
		return
	}
	if err := h.service.Delete(id); err != nil {
		h.fail(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
