package ports

import (
	"errors"
	"fmt"

	"tileworld/internal/domain/grid"
)

var (
	ErrNotFound    = errors.New("not found")
	ErrConflict    = errors.New("conflict")
	ErrCellBlocked = errors.New("cell blocked")
)

// MoveBlockedError reports a move into a cell that was occupied when the
// environment executed it.
type MoveBlockedError struct {
	AgentID int
	Target  grid.Point
}

func (e *MoveBlockedError) Error() string {
	return fmt.Sprintf("agent %d: move to (%d,%d): %v", e.AgentID, e.Target.X, e.Target.Y, ErrCellBlocked)
}

func (e *MoveBlockedError) Unwrap() error {
	return ErrCellBlocked
}
