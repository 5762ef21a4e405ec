package game

import "fmt"

// ShipQueue holds the lengths still to be placed, head first.
type ShipQueue []int

// NewShipQueue returns the full classic fleet in descending size.
func NewShipQueue() ShipQueue {
	q := make(ShipQueue, 0, len(Fleet))
	for _, t := range Fleet {
		q = append(q, ShipConfig[t])
	}
	return q
}

func (q ShipQueue) Empty() bool {
	return len(q) == 0
}

func (q ShipQueue) Head() (int, bool) {
	if len(q) == 0 {
		return 0, false
	}
	return q[0], true
}

// AttemptPlacement places the ship at the head of queue. On success the
// shortened queue is returned; on failure the board and queue are unchanged
// and the same size must be retried.
func AttemptPlacement(b *Board, queue ShipQueue, start Coord, o Orientation) (ShipQueue, error) {
	length, ok := queue.Head()
	if !ok {
		return queue, fmt.Errorf("no ships left to place: %w", ErrInvalidMove)
	}
	if err := b.Place(start, length, o); err != nil {
		return queue, err
	}
	return queue[1:], nil
}
