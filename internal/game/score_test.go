package game

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBestOfThreeDecision(t *testing.T) {
	s, err := NewScore(3)
	require.NoError(t, err)

	require.NoError(t, s.Record(Player1))
	_, decided := s.MatchWinner()
	assert.False(t, decided)

	require.NoError(t, s.Record(Player2))
	_, decided = s.MatchWinner()
	assert.False(t, decided, "1-1 must not decide a best of 3")

	require.NoError(t, s.Record(Player2))
	w, decided := s.MatchWinner()
	require.True(t, decided)
	assert.Equal(t, Player2, w)

	require.ErrorIs(t, s.Record(Player1), ErrMatchDecided)
	assert.Equal(t, [2]int{1, 2}, s.Wins)
	assert.Equal(t, 3, s.RoundsPlayed())
}

func TestBestOfOneDecidesImmediately(t *testing.T) {
	s, err := NewScore(1)
	require.NoError(t, err)
	require.NoError(t, s.Record(Player1))
	w, decided := s.MatchWinner()
	require.True(t, decided)
	assert.Equal(t, Player1, w)

	s.Reset()
	_, decided = s.MatchWinner()
	assert.False(t, decided)
}

func TestScoreRejectsBadInput(t *testing.T) {
	_, err := NewScore(0)
	assert.Error(t, err)

	s, err := NewScore(5)
	require.NoError(t, err)
	require.ErrorIs(t, s.Record(2), ErrInvalidMove)
}
