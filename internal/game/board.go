package game

import (
	"fmt"
	"strings"
)

type Cell uint8

const (
	Empty Cell = iota
	ShipCell
	Hit
	Miss
)

type ShotOutcome string

const (
	AlreadyShot ShotOutcome = "already_shot"
	HitShot     ShotOutcome = "hit"
	MissShot    ShotOutcome = "miss"
)

// Ship is the descriptor of one placed ship. Its cells are derived from the
// anchor, length and orientation.
type Ship struct {
	Type        ShipType    `json:"type"`
	Start       Coord       `json:"start"`
	Length      int         `json:"length"`
	Orientation Orientation `json:"orientation"`
	Cells       []Coord     `json:"cells"`
}

// Board is one player's own grid: ship cells plus incoming shots.
type Board struct {
	cells  [BoardSize][BoardSize]Cell
	owner  [BoardSize][BoardSize]int8 // index into ships, -1 for water
	ships  []Ship
	hits   []int
	remain int
}

func NewBoard() *Board {
	b := &Board{}
	b.Reset()
	return b
}

// Reset clears ships and shots.
func (b *Board) Reset() {
	for r := 0; r < BoardSize; r++ {
		for c := 0; c < BoardSize; c++ {
			b.cells[r][c] = Empty
			b.owner[r][c] = -1
		}
	}
	b.ships = nil
	b.hits = nil
	b.remain = 0
}

func shipCells(start Coord, length int, o Orientation) []Coord {
	cells := make([]Coord, 0, length)
	for i := 0; i < length; i++ {
		if o == Horizontal {
			cells = append(cells, Coord{Row: start.Row, Col: start.Col + i})
		} else {
			cells = append(cells, Coord{Row: start.Row + i, Col: start.Col})
		}
	}
	return cells
}

// CanPlace reports whether a ship fits at start without committing it.
func (b *Board) CanPlace(start Coord, length int, o Orientation) error {
	if length <= 0 {
		return fmt.Errorf("ship length %d: %w", length, ErrInvalidMove)
	}
	if o != Horizontal && o != Vertical {
		return fmt.Errorf("orientation %q: %w", o, ErrInvalidMove)
	}
	cells := shipCells(start, length, o)
	for _, cell := range cells {
		if !cell.InBounds() {
			return fmt.Errorf("ship of length %d at %d,%d %s: %w", length, start.Row, start.Col, o, ErrOutOfBounds)
		}
	}
	for _, cell := range cells {
		if b.cells[cell.Row][cell.Col] != Empty {
			return fmt.Errorf("ship of length %d at %s: %w", length, cell, ErrOverlap)
		}
	}
	return nil
}

// Place commits a ship of the given length. The board is left untouched when
// any cell is out of bounds or occupied.
func (b *Board) Place(start Coord, length int, o Orientation) error {
	if err := b.CanPlace(start, length, o); err != nil {
		return err
	}
	shipType, _ := ShipTypeForLength(length)
	cells := shipCells(start, length, o)
	idx := int8(len(b.ships))
	for _, cell := range cells {
		b.cells[cell.Row][cell.Col] = ShipCell
		b.owner[cell.Row][cell.Col] = idx
	}
	b.ships = append(b.ships, Ship{
		Type:        shipType,
		Start:       start,
		Length:      length,
		Orientation: o,
		Cells:       cells,
	})
	b.hits = append(b.hits, 0)
	b.remain += length
	return nil
}

// ReceiveShot applies an incoming shot. Repeated shots at the same cell return
// AlreadyShot and change nothing. On a hit the struck ship is returned.
func (b *Board) ReceiveShot(target Coord) (ShotOutcome, *Ship, error) {
	if !target.InBounds() {
		return "", nil, fmt.Errorf("shot at %d,%d: %w", target.Row, target.Col, ErrOutOfBounds)
	}
	switch b.cells[target.Row][target.Col] {
	case Hit, Miss:
		return AlreadyShot, nil, nil
	case Empty:
		b.cells[target.Row][target.Col] = Miss
		return MissShot, nil, nil
	}
	b.cells[target.Row][target.Col] = Hit
	b.remain--
	idx := b.owner[target.Row][target.Col]
	b.hits[idx]++
	ship := b.ships[idx]
	return HitShot, &ship, nil
}

// RemainingShipCells counts cells still in state ShipCell.
func (b *Board) RemainingShipCells() int {
	return b.remain
}

func (b *Board) Destroyed() bool {
	return b.remain == 0 && len(b.ships) > 0
}

func (b *Board) Cell(c Coord) Cell {
	if !c.InBounds() {
		return Empty
	}
	return b.cells[c.Row][c.Col]
}

// Ships returns a copy of the placed ship descriptors.
func (b *Board) Ships() []Ship {
	out := make([]Ship, len(b.ships))
	copy(out, b.ships)
	return out
}

func (b *Board) IsSunk(idx int) bool {
	return idx >= 0 && idx < len(b.ships) && b.hits[idx] == b.ships[idx].Length
}

// SunkAt reports whether the ship covering c has been sunk.
func (b *Board) SunkAt(c Coord) bool {
	if !c.InBounds() {
		return false
	}
	return b.IsSunk(int(b.owner[c.Row][c.Col]))
}

func (b *Board) SunkCount() int {
	n := 0
	for i := range b.ships {
		if b.IsSunk(i) {
			n++
		}
	}
	return n
}

func (b *Board) Clone() *Board {
	out := *b
	out.ships = make([]Ship, len(b.ships))
	copy(out.ships, b.ships)
	out.hits = make([]int, len(b.hits))
	copy(out.hits, b.hits)
	return &out
}

func (b *Board) String() string {
	var sb strings.Builder
	for r := 0; r < BoardSize; r++ {
		for c := 0; c < BoardSize; c++ {
			switch b.cells[r][c] {
			case ShipCell:
				sb.WriteByte('S')
			case Hit:
				sb.WriteByte('x')
			case Miss:
				sb.WriteByte('O')
			default:
				sb.WriteByte('~')
			}
		}
		sb.WriteByte('\n')
	}
	return sb.String()
}
