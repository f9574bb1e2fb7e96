package engine

import (
	"errors"
	"fmt"
)

var (
	ErrInventoryExhausted = errors.New("no squares of that size remaining")
	ErrInventoryOverflow  = errors.New("inventory already full for that size")
	ErrInvalidPlacement   = errors.New("invalid placement")
	ErrSquareLocked       = errors.New("square is locked")
	ErrNotFound           = errors.New("square not found")
	ErrInvalidSize        = errors.New("invalid square size")
	ErrDragInProgress     = errors.New("a drag is already in progress")
	ErrNoActiveDrag       = errors.New("no active drag")
	ErrUnknownAction      = errors.New("unknown action")
)

// PlacementReason explains why a candidate placement was rejected
type PlacementReason string

const (
	ReasonOutOfBounds PlacementReason = "out_of_bounds"
	ReasonOverlap     PlacementReason = "overlap"
)

// PlacementError describes a rejected placement. It matches ErrInvalidPlacement
// under errors.Is.
type PlacementError struct {
	Reason     PlacementReason
	X, Y, Size int
	ConflictID string
}

func (e *PlacementError) Error() string {
	if e.Reason == ReasonOverlap {
		return fmt.Sprintf("invalid placement: size %d at (%d,%d) overlaps %s", e.Size, e.X, e.Y, e.ConflictID)
	}
	return fmt.Sprintf("invalid placement: size %d at (%d,%d) is out of bounds", e.Size, e.X, e.Y)
}

func (e *PlacementError) Is(target error) bool {
	return target == ErrInvalidPlacement
}

// ReasonCode maps an engine error to a stable machine-friendly code
func ReasonCode(err error) string {
	var perr *PlacementError
	switch {
	case err == nil:
		return ""
	case errors.As(err, &perr):
		return "invalid_placement"
	case errors.Is(err, ErrInvalidPlacement):
		return "invalid_placement"
	case errors.Is(err, ErrInventoryExhausted):
		return "inventory_exhausted"
	case errors.Is(err, ErrInventoryOverflow):
		return "inventory_overflow"
	case errors.Is(err, ErrSquareLocked):
		return "square_locked"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrInvalidSize):
		return "invalid_size"
	case errors.Is(err, ErrDragInProgress):
		return "drag_in_progress"
	case errors.Is(err, ErrNoActiveDrag):
		return "no_active_drag"
	case errors.Is(err, ErrUnknownAction):
		return "unknown_action"
	}
	return "internal"
}

// IsRejection reports whether err is a local, non-fatal rejection produced by
// the engine rather than an infrastructure failure.
func IsRejection(err error) bool {
	code := ReasonCode(err)
	return code != "" && code != "internal"
}
