package game

import (
	"fmt"
	"strconv"
	"strings"
)

// BoardSize is the side of the square grid.
const BoardSize = 10

type ShipType string

const (
	Carrier    ShipType = "Carrier"
	Battleship ShipType = "Battleship"
	Cruiser    ShipType = "Cruiser"
	Destroyer  ShipType = "Destroyer"
)

// Fleet is the classic fleet in the order ships are offered for placement.
var Fleet = []ShipType{Carrier, Battleship, Cruiser, Destroyer}

var ShipConfig = map[ShipType]int{
	Carrier:    5,
	Battleship: 4,
	Cruiser:    3,
	Destroyer:  2,
}

// FleetCells is the number of ship cells in a full fleet.
func FleetCells() int {
	total := 0
	for _, t := range Fleet {
		total += ShipConfig[t]
	}
	return total
}

// ShipTypeForLength maps a length back to its classic ship type.
func ShipTypeForLength(length int) (ShipType, bool) {
	for t, size := range ShipConfig {
		if size == length {
			return t, true
		}
	}
	return "", false
}

type Orientation string

const (
	Horizontal Orientation = "horizontal"
	Vertical   Orientation = "vertical"
)

func ParseOrientation(s string) (Orientation, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "horizontal", "h":
		return Horizontal, nil
	case "vertical", "v":
		return Vertical, nil
	}
	return "", fmt.Errorf("invalid orientation: %q", s)
}

type Coord struct {
	Row int `json:"row"`
	Col int `json:"col"`
}

func (c Coord) InBounds() bool {
	return c.Row >= 0 && c.Row < BoardSize && c.Col >= 0 && c.Col < BoardSize
}

func (c Coord) String() string {
	return FormatCoordinate(c.Row, c.Col)
}

// ParseCoordinate converts "A1" to row (0-9) and col (0-9).
func ParseCoordinate(coord string) (row, col int, err error) {
	if len(coord) < 2 {
		return 0, 0, fmt.Errorf("invalid coordinate: %s", coord)
	}
	rowChar := strings.ToUpper(string(coord[0]))
	colStr := coord[1:]

	if rowChar < "A" || rowChar > "J" {
		return 0, 0, fmt.Errorf("invalid row: %s", rowChar)
	}
	col, err = strconv.Atoi(colStr)
	if err != nil || colStr[0] == '+' || colStr[0] == '-' {
		return 0, 0, fmt.Errorf("invalid column: %s", colStr)
	}
	if col < 1 || col > BoardSize {
		return 0, 0, fmt.Errorf("column out of bounds: %d", col)
	}
	return int(rowChar[0] - 'A'), col - 1, nil
}

// FormatCoordinate converts row (0-9) and col (0-9) to "A1".
func FormatCoordinate(row, col int) string {
	return fmt.Sprintf("%c%d", 'A'+row, col+1)
}

type Mode string

const (
	VsBot    Mode = "vs_bot"
	VsPlayer Mode = "vs_player"
)

func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case VsBot, VsPlayer:
		return Mode(s), nil
	case "":
		return VsBot, nil
	}
	return "", fmt.Errorf("invalid game mode: %q", s)
}

type Phase string

const (
	PhaseSetup     Phase = "setup"
	PhasePlacingP1 Phase = "placing_p1"
	PhasePlacingP2 Phase = "placing_p2"
	PhaseBattle    Phase = "battle"
	PhaseRoundOver Phase = "round_over"
	PhaseMatchOver Phase = "match_over"
)

const (
	Player1 = 0
	Player2 = 1
)

// Opponent returns the other seat.
func Opponent(player int) int {
	return 1 - player
}

func validPlayer(player int) bool {
	return player == Player1 || player == Player2
}
