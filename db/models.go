package db

import (
	"database/sql"
	"fmt"
	"time"
)

type User struct {
	ID        string    `json:"id" db:"id"`
	Username  string    `json:"username" db:"username"`
	Email     string    `json:"email" db:"email"`
	Password  string    `json:"-" db:"password"` // Hashed password
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// MatchRecord is the persisted tally of one match. Winner is nil until a
// player takes the majority of BestOf.
type MatchRecord struct {
	ID        string    `json:"id" db:"id"`
	Mode      string    `json:"mode" db:"mode"`
	Player1   string    `json:"player1" db:"player1"`
	Player2   string    `json:"player2" db:"player2"`
	BestOf    int       `json:"best_of" db:"best_of"`
	WinsP1    int       `json:"wins_p1" db:"wins_p1"`
	WinsP2    int       `json:"wins_p2" db:"wins_p2"`
	Winner    *int      `json:"winner" db:"winner"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

type PlayerStats struct {
	Name        string    `json:"name" db:"name"`
	RoundWins   int       `json:"round_wins" db:"round_wins"`
	RoundLosses int       `json:"round_losses" db:"round_losses"`
	MatchWins   int       `json:"match_wins" db:"match_wins"`
	MatchLosses int       `json:"match_losses" db:"match_losses"`
	UpdatedAt   time.Time `json:"updated_at" db:"updated_at"`
}

var schema = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id TEXT PRIMARY KEY,
		username TEXT NOT NULL CONSTRAINT users_username_key UNIQUE,
		email TEXT CONSTRAINT users_email_key UNIQUE,
		password TEXT NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS matches (
		id TEXT PRIMARY KEY,
		mode TEXT NOT NULL,
		player1 TEXT NOT NULL,
		player2 TEXT NOT NULL,
		best_of INT NOT NULL,
		wins_p1 INT NOT NULL DEFAULT 0,
		wins_p2 INT NOT NULL DEFAULT 0,
		winner INT,
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS player_stats (
		name TEXT PRIMARY KEY,
		round_wins INT NOT NULL DEFAULT 0,
		round_losses INT NOT NULL DEFAULT 0,
		match_wins INT NOT NULL DEFAULT 0,
		match_losses INT NOT NULL DEFAULT 0,
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
}

// Migrate creates the tables if they are missing.
func Migrate(conn *sql.DB) error {
	for _, stmt := range schema {
		if _, err := conn.Exec(stmt); err != nil {
			return fmt.Errorf("failed to migrate: %w", err)
		}
	}
	return nil
}
