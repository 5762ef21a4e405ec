package leaderboard

import (
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/charmbracelet/log"
)

const defaultLimit = 10

type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) Leaderboard(w http.ResponseWriter, r *http.Request) {
	limit := defaultLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > 100 {
			http.Error(w, "invalid limit", http.StatusBadRequest)
			return
		}
		limit = n
	}
	entries, err := h.service.GetLeaderboard(r.Context(), limit)
	if err != nil {
		log.Error("failed to load leaderboard", "err", err)
		http.Error(w, "failed to load leaderboard", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(entries); err != nil {
		log.Printf("Failed to encode response: %v", err)
	}
}

func (h *Handler) MatchRecord(w http.ResponseWriter, r *http.Request) {
	rec, err := h.service.GetMatch(r.Context(), r.PathValue("id"))
	if errors.Is(err, sql.ErrNoRows) {
		http.Error(w, "match not found", http.StatusNotFound)
		return
	}
	if err != nil {
		log.Error("failed to load match record", "err", err)
		http.Error(w, "failed to load match record", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(rec); err != nil {
		log.Printf("Failed to encode response: %v", err)
	}
}
