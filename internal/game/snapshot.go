package game

import (
	"fmt"
	"time"
)

// Display codes for a rendered cell.
const (
	CodeUnknown = "?"
	CodeWater   = "~"
	CodeShip    = "S"
	CodeMiss    = "O"
	CodeHit     = "x"
	CodeSunk    = "X"
)

// Snapshot is everything a client needs to draw the match for one viewer.
// The opponent's ships stay hidden until hit.
type Snapshot struct {
	MatchID       string     `json:"match_id"`
	Mode          Mode       `json:"mode"`
	Viewer        int        `json:"viewer"`
	Names         [2]string  `json:"names"`
	Phase         Phase      `json:"phase"`
	Round         int        `json:"round"`
	BestOf        int        `json:"best_of"`
	CurrentTurn   int        `json:"current_turn"`
	YourTurn      bool       `json:"your_turn"`
	YourBoard     [][]string `json:"your_board"`
	OpponentBoard [][]string `json:"opponent_board"`
	Wins          [2]int     `json:"wins"`
	ShipsSunk     [2]int     `json:"ships_sunk"`
	YourSinks     string     `json:"your_sinks"`
	OpponentSinks string     `json:"opponent_sinks"`
	ShipsToPlace  []int      `json:"ships_to_place"`
	ShipsPlaced   bool       `json:"your_ships_placed"`
	Status        string     `json:"status_message"`
	LastEvent     string     `json:"last_event"`
	TimeLeft      int        `json:"time_left"`
	RoundWinner   *int       `json:"round_winner"`
	MatchWinner   *int       `json:"match_winner"`
}

func (m *Match) Snapshot(viewer int) (Snapshot, error) {
	if !validPlayer(viewer) {
		return Snapshot{}, fmt.Errorf("viewer %d: %w", viewer, ErrInvalidMove)
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	own, opp := m.seats[viewer], m.seats[Opponent(viewer)]
	snap := Snapshot{
		MatchID:       m.opts.ID,
		Mode:          m.opts.Mode,
		Viewer:        viewer,
		Names:         [2]string{m.seats[Player1].name, m.seats[Player2].name},
		Phase:         m.phase,
		Round:         m.round,
		BestOf:        m.score.BestOf,
		CurrentTurn:   m.turn,
		YourTurn:      m.phase == PhaseBattle && m.turn == viewer,
		YourBoard:     ownView(own.board),
		OpponentBoard: opponentView(own.tracker, opp.board),
		Wins:          m.score.Wins,
		ShipsToPlace:  append([]int{}, own.queue...),
		ShipsPlaced:   own.queue.Empty() && m.phase != PhaseSetup,
		Status:        m.status,
		LastEvent:     own.lastEvent,
		TimeLeft:      m.timeLeft(),
	}
	// ShipsSunk[p] counts the ships player p has sunk on the other board.
	snap.ShipsSunk[Player1] = m.seats[Player2].board.SunkCount()
	snap.ShipsSunk[Player2] = m.seats[Player1].board.SunkCount()
	snap.YourSinks = fmt.Sprintf("%d/%d", opp.board.SunkCount(), len(Fleet))
	snap.OpponentSinks = fmt.Sprintf("%d/%d", own.board.SunkCount(), len(Fleet))

	if m.roundWinner >= 0 {
		w := m.roundWinner
		snap.RoundWinner = &w
	}
	if w, decided := m.score.MatchWinner(); decided {
		snap.MatchWinner = &w
	}
	return snap, nil
}

func (m *Match) timeLeft() int {
	if m.phase != PhaseBattle || m.turnDeadline.IsZero() {
		return 0
	}
	left := m.turnDeadline.Sub(m.opts.Clock.Now())
	if left < 0 {
		return 0
	}
	return int((left + time.Second - 1) / time.Second)
}

func ownView(b *Board) [][]string {
	grid := make([][]string, BoardSize)
	for r := 0; r < BoardSize; r++ {
		grid[r] = make([]string, BoardSize)
		for c := 0; c < BoardSize; c++ {
			pos := Coord{Row: r, Col: c}
			switch b.Cell(pos) {
			case ShipCell:
				grid[r][c] = CodeShip
			case Miss:
				grid[r][c] = CodeMiss
			case Hit:
				if b.SunkAt(pos) {
					grid[r][c] = CodeSunk
				} else {
					grid[r][c] = CodeHit
				}
			default:
				grid[r][c] = CodeWater
			}
		}
	}
	return grid
}

func opponentView(t *Tracker, defender *Board) [][]string {
	grid := make([][]string, BoardSize)
	for r := 0; r < BoardSize; r++ {
		grid[r] = make([]string, BoardSize)
		for c := 0; c < BoardSize; c++ {
			pos := Coord{Row: r, Col: c}
			switch t.At(pos) {
			case MarkMiss:
				grid[r][c] = CodeMiss
			case MarkHit:
				if defender.SunkAt(pos) {
					grid[r][c] = CodeSunk
				} else {
					grid[r][c] = CodeHit
				}
			default:
				grid[r][c] = CodeUnknown
			}
		}
	}
	return grid
}
