package leaderboard

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/krishanu7/battleship-engine/db"
)

type Service struct {
	db  *sql.DB
	now func() time.Time
}

func NewService(db *sql.DB) *Service {
	return &Service{db: db, now: time.Now}
}

type LeaderboardEntry struct {
	Name        string    `json:"name"`
	RoundWins   int       `json:"round_wins"`
	RoundLosses int       `json:"round_losses"`
	MatchWins   int       `json:"match_wins"`
	MatchLosses int       `json:"match_losses"`
	UpdatedAt   time.Time `json:"updated_at"`
}

const upsertMatch = `
	INSERT INTO matches (id, mode, player1, player2, best_of, wins_p1, wins_p2, winner, updated_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	ON CONFLICT (id) DO UPDATE
	SET wins_p1 = EXCLUDED.wins_p1, wins_p2 = EXCLUDED.wins_p2,
	    winner = EXCLUDED.winner, updated_at = EXCLUDED.updated_at
`

const upsertStats = `
	INSERT INTO player_stats (name, round_wins, round_losses, match_wins, match_losses, updated_at)
	VALUES ($1, $2, $3, $4, $5, $6)
	ON CONFLICT (name) DO UPDATE
	SET round_wins = player_stats.round_wins + EXCLUDED.round_wins,
	    round_losses = player_stats.round_losses + EXCLUDED.round_losses,
	    match_wins = player_stats.match_wins + EXCLUDED.match_wins,
	    match_losses = player_stats.match_losses + EXCLUDED.match_losses,
	    updated_at = EXCLUDED.updated_at
`

// RecordRound stores the match tally after a finished round and credits the
// round (and, when rec.Winner is set, the match) to the player names.
func (s *Service) RecordRound(ctx context.Context, rec db.MatchRecord, roundWinner int) error {
	if roundWinner != 0 && roundWinner != 1 {
		return fmt.Errorf("invalid round winner %d", roundWinner)
	}
	now := s.now()
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin tally: %w", err)
	}
	defer tx.Rollback()

	var winner any
	if rec.Winner != nil {
		winner = *rec.Winner
	}
	if _, err := tx.ExecContext(ctx, upsertMatch,
		rec.ID, rec.Mode, rec.Player1, rec.Player2, rec.BestOf, rec.WinsP1, rec.WinsP2, winner, now); err != nil {
		return fmt.Errorf("failed to save match %s: %w", rec.ID, err)
	}

	names := [2]string{rec.Player1, rec.Player2}
	matchDone := 0
	if rec.Winner != nil {
		matchDone = 1
	}
	win, loss := names[roundWinner], names[1-roundWinner]
	if _, err := tx.ExecContext(ctx, upsertStats, win, 1, 0, matchDone, 0, now); err != nil {
		return fmt.Errorf("failed to credit %s: %w", win, err)
	}
	if _, err := tx.ExecContext(ctx, upsertStats, loss, 0, 1, 0, matchDone, now); err != nil {
		return fmt.Errorf("failed to debit %s: %w", loss, err)
	}
	return tx.Commit()
}

func (s *Service) GetMatch(ctx context.Context, id string) (db.MatchRecord, error) {
	var rec db.MatchRecord
	var winner sql.NullInt64
	err := s.db.QueryRowContext(ctx, `
		SELECT id, mode, player1, player2, best_of, wins_p1, wins_p2, winner, updated_at
		FROM matches
		WHERE id = $1
	`, id).Scan(&rec.ID, &rec.Mode, &rec.Player1, &rec.Player2, &rec.BestOf, &rec.WinsP1, &rec.WinsP2, &winner, &rec.UpdatedAt)
	if err != nil {
		return db.MatchRecord{}, err
	}
	if winner.Valid {
		w := int(winner.Int64)
		rec.Winner = &w
	}
	return rec, nil
}

func (s *Service) GetLeaderboard(ctx context.Context, limit int) ([]LeaderboardEntry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT name, round_wins, round_losses, match_wins, match_losses, updated_at
		FROM player_stats
		ORDER BY match_wins DESC, round_wins DESC, name
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	leaderboard := []LeaderboardEntry{}
	for rows.Next() {
		var entry LeaderboardEntry
		if err := rows.Scan(&entry.Name, &entry.RoundWins, &entry.RoundLosses, &entry.MatchWins, &entry.MatchLosses, &entry.UpdatedAt); err != nil {
			return nil, err
		}
		leaderboard = append(leaderboard, entry)
	}
	return leaderboard, rows.Err()
}
