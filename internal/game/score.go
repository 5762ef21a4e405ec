package game

import "fmt"

// Score is the best-of-N round tally of a match.
type Score struct {
	BestOf int    `json:"best_of"`
	Wins   [2]int `json:"wins"`
}

func NewScore(bestOf int) (Score, error) {
	if bestOf < 1 {
		return Score{}, fmt.Errorf("best_of must be at least 1, got %d", bestOf)
	}
	return Score{BestOf: bestOf}, nil
}

// Record credits a round win. It refuses once the match is decided.
func (s *Score) Record(winner int) error {
	if !validPlayer(winner) {
		return fmt.Errorf("player %d: %w", winner, ErrInvalidMove)
	}
	if _, decided := s.MatchWinner(); decided {
		return ErrMatchDecided
	}
	s.Wins[winner]++
	return nil
}

// MatchWinner returns the player whose wins exceed BestOf/2.
func (s Score) MatchWinner() (int, bool) {
	for p, w := range s.Wins {
		if w > s.BestOf/2 {
			return p, true
		}
	}
	return 0, false
}

func (s Score) RoundsPlayed() int {
	return s.Wins[0] + s.Wins[1]
}

func (s *Score) Reset() {
	s.Wins = [2]int{}
}
