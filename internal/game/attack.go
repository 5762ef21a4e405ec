package game

import "fmt"

type Mark uint8

const (
	Unknown Mark = iota
	MarkHit
	MarkMiss
)

// Tracker is the attacker's own record of shots fired at the opponent.
type Tracker struct {
	marks [BoardSize][BoardSize]Mark
	shots int
}

func NewTracker() *Tracker {
	return &Tracker{}
}

func (t *Tracker) Reset() {
	*t = Tracker{}
}

func (t *Tracker) At(c Coord) Mark {
	if !c.InBounds() {
		return Unknown
	}
	return t.marks[c.Row][c.Col]
}

func (t *Tracker) Attacked(c Coord) bool {
	return t.At(c) != Unknown
}

func (t *Tracker) Shots() int {
	return t.shots
}

func (t *Tracker) Full() bool {
	return t.shots >= BoardSize*BoardSize
}

func (t *Tracker) record(c Coord, m Mark) {
	t.marks[c.Row][c.Col] = m
	t.shots++
}

type AttackResult struct {
	Target    Coord       `json:"target"`
	Outcome   ShotOutcome `json:"outcome"`
	Sunk      bool        `json:"sunk"`
	ShipType  ShipType    `json:"ship_type,omitempty"`
	RoundOver bool        `json:"round_over"`
}

// ResolveAttack fires at target, recording the outcome on both the defender's
// board and the attacker's tracker. Attacking a cell the tracker already knows
// is a caller error.
func ResolveAttack(defender *Board, tracker *Tracker, target Coord) (AttackResult, error) {
	if !target.InBounds() {
		return AttackResult{}, fmt.Errorf("attack at %d,%d: %w", target.Row, target.Col, ErrOutOfBounds)
	}
	if tracker.Attacked(target) {
		return AttackResult{}, fmt.Errorf("attack at %s already recorded: %w", target, ErrInvalidMove)
	}
	if c := defender.Cell(target); c == Hit || c == Miss {
		return AttackResult{}, fmt.Errorf("tracker and board disagree at %s: %w", target, ErrInvalidMove)
	}

	outcome, ship, err := defender.ReceiveShot(target)
	if err != nil {
		return AttackResult{}, err
	}
	res := AttackResult{Target: target, Outcome: outcome}
	if outcome == HitShot {
		tracker.record(target, MarkHit)
		res.ShipType = ship.Type
		res.Sunk = defender.SunkAt(target)
	} else {
		tracker.record(target, MarkMiss)
	}
	res.RoundOver = defender.RemainingShipCells() == 0
	return res, nil
}
