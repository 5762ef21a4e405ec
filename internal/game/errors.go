package game

import "errors"

var (
	ErrOutOfBounds        = errors.New("out of bounds")
	ErrOverlap            = errors.New("overlaps another ship")
	ErrAlreadyShot        = errors.New("cell already attacked")
	ErrInvalidMove        = errors.New("invalid move")
	ErrPlacementExhausted = errors.New("placement attempts exhausted")
	ErrMatchDecided       = errors.New("match already decided")
)
