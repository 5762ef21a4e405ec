package game

import (
	"fmt"
	"math/rand/v2"
	"time"
)

// MaxPlacementAttempts bounds the random tries per ship.
const MaxPlacementAttempts = 1000

// Bot picks placements and targets at random. It goes through the same
// AttemptPlacement and ResolveAttack paths as a human seat.
type Bot struct {
	rng *rand.Rand
}

func NewBot(rng *rand.Rand) *Bot {
	if rng == nil {
		seed := uint64(time.Now().UnixNano())
		rng = rand.New(rand.NewPCG(seed, seed>>1|1))
	}
	return &Bot{rng: rng}
}

// PlaceFleet places every ship in queue onto b. If any ship cannot be placed
// within MaxPlacementAttempts the board is left as it was and
// ErrPlacementExhausted is returned.
func (bot *Bot) PlaceFleet(b *Board, queue ShipQueue) error {
	scratch := b.Clone()
	for !queue.Empty() {
		length, _ := queue.Head()
		placed := false
		for attempt := 0; attempt < MaxPlacementAttempts; attempt++ {
			start := Coord{Row: bot.rng.IntN(BoardSize), Col: bot.rng.IntN(BoardSize)}
			o := Horizontal
			if bot.rng.IntN(2) == 1 {
				o = Vertical
			}
			next, err := AttemptPlacement(scratch, queue, start, o)
			if err != nil {
				continue
			}
			queue = next
			placed = true
			break
		}
		if !placed {
			return fmt.Errorf("ship of length %d after %d attempts: %w", length, MaxPlacementAttempts, ErrPlacementExhausted)
		}
	}
	*b = *scratch
	return nil
}

// ChooseTarget samples uniformly until it hits a cell the tracker has not seen.
func (bot *Bot) ChooseTarget(tracker *Tracker) (Coord, error) {
	if tracker.Full() {
		return Coord{}, fmt.Errorf("no cells left to attack: %w", ErrInvalidMove)
	}
	for {
		c := Coord{Row: bot.rng.IntN(BoardSize), Col: bot.rng.IntN(BoardSize)}
		if !tracker.Attacked(c) {
			return c, nil
		}
	}
}
