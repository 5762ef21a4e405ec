package leaderboard

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/krishanu7/battleship-engine/db"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixed = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func newMockService(t *testing.T) (*Service, sqlmock.Sqlmock) {
	t.Helper()
	conn, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	s := NewService(conn)
	s.now = func() time.Time { return fixed }
	return s, mock
}

func TestRecordRoundCreditsBothPlayers(t *testing.T) {
	s, mock := newMockService(t)
	rec := db.MatchRecord{ID: "m1", Mode: "vs_player", Player1: "ann", Player2: "bob", BestOf: 3, WinsP1: 1}

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO matches").
		WithArgs("m1", "vs_player", "ann", "bob", 3, 1, 0, nil, fixed).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO player_stats").
		WithArgs("ann", 1, 0, 0, 0, fixed).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO player_stats").
		WithArgs("bob", 0, 1, 0, 0, fixed).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, s.RecordRound(context.Background(), rec, 0))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRecordRoundCreditsMatchWinner(t *testing.T) {
	s, mock := newMockService(t)
	winner := 1
	rec := db.MatchRecord{ID: "m2", Mode: "vs_bot", Player1: "ann", Player2: "AI", BestOf: 1, WinsP2: 1, Winner: &winner}

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO matches").
		WithArgs("m2", "vs_bot", "ann", "AI", 1, 0, 1, 1, fixed).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO player_stats").
		WithArgs("AI", 1, 0, 1, 0, fixed).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO player_stats").
		WithArgs("ann", 0, 1, 0, 1, fixed).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, s.RecordRound(context.Background(), rec, 1))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRecordRoundRollsBackOnFailure(t *testing.T) {
	s, mock := newMockService(t)
	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO matches").WillReturnError(errors.New("disk full"))
	mock.ExpectRollback()

	err := s.RecordRound(context.Background(), db.MatchRecord{ID: "m3", Player1: "a", Player2: "b", BestOf: 1}, 0)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "m3")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRecordRoundRejectsBadWinner(t *testing.T) {
	s, mock := newMockService(t)
	assert.Error(t, s.RecordRound(context.Background(), db.MatchRecord{ID: "m"}, 2))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetMatch(t *testing.T) {
	s, mock := newMockService(t)
	mock.ExpectQuery("SELECT id, mode, player1").
		WithArgs("m1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "mode", "player1", "player2", "best_of", "wins_p1", "wins_p2", "winner", "updated_at"}).
			AddRow("m1", "vs_player", "ann", "bob", 3, 2, 1, 0, fixed))

	rec, err := s.GetMatch(context.Background(), "m1")
	require.NoError(t, err)
	require.NotNil(t, rec.Winner)
	assert.Equal(t, 0, *rec.Winner)
	assert.Equal(t, 2, rec.WinsP1)
	assert.Equal(t, 1, rec.WinsP2)
}

func TestLeaderboardHandler(t *testing.T) {
	s, mock := newMockService(t)
	mock.ExpectQuery("SELECT name, round_wins").
		WithArgs(5).
		WillReturnRows(sqlmock.NewRows([]string{"name", "round_wins", "round_losses", "match_wins", "match_losses", "updated_at"}).
			AddRow("ann", 4, 1, 2, 0, fixed).
			AddRow("AI", 1, 4, 0, 2, fixed))

	rr := httptest.NewRecorder()
	NewHandler(s).Leaderboard(rr, httptest.NewRequest(http.MethodGet, "/api/v1/leaderboard?limit=5", nil))

	require.Equal(t, http.StatusOK, rr.Code)
	var entries []LeaderboardEntry
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&entries))
	require.Len(t, entries, 2)
	assert.Equal(t, "ann", entries[0].Name)
	assert.Equal(t, 2, entries[0].MatchWins)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLeaderboardHandlerRejectsBadLimit(t *testing.T) {
	s, _ := newMockService(t)
	rr := httptest.NewRecorder()
	NewHandler(s).Leaderboard(rr, httptest.NewRequest(http.MethodGet, "/api/v1/leaderboard?limit=abc", nil))
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}
