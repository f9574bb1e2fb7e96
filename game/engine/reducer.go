package engine

import (
	"fmt"
	"math"
)

// ActionType names an input event consumed by the engine
type ActionType string

const (
	ActionPickUp      ActionType = "pick_up"
	ActionPointerMove ActionType = "pointer_move"
	ActionDrop        ActionType = "drop"
	ActionCancel      ActionType = "cancel"
	ActionPlace       ActionType = "place"
	ActionMove        ActionType = "move"
	ActionRemove      ActionType = "remove"
	ActionToggleLock  ActionType = "toggle_lock"
	ActionReset       ActionType = "reset"
)

// Action is a single input event. Pointer actions use pixel coordinates in
// X/Y; place and move use grid cells.
type Action struct {
	Type     ActionType `json:"type"`
	Size     int        `json:"size,omitempty"`
	SquareID string     `json:"square_id,omitempty"`
	X        float64    `json:"x,omitempty"`
	Y        float64    `json:"y,omitempty"`
}

// Outcome is what a dispatched action produced
type Outcome struct {
	Action   Action        `json:"action"`
	Drag     *DragSession  `json:"drag,omitempty"`
	Preview  *Preview      `json:"preview,omitempty"`
	Square   *PlacedSquare `json:"square,omitempty"`
	Event    *BoardEvent   `json:"event,omitempty"`
	Canceled bool          `json:"canceled,omitempty"`
}

// Dispatch applies one action to the engine. Rejected actions leave the board
// and inventory untouched and return an engine error.
func (e *GameEngine) Dispatch(action Action) (*Outcome, error) {
	out := &Outcome{Action: action}
	before := e.totalEvents

	switch action.Type {
	case ActionPickUp:
		drag, err := e.PickUp(action.Size, action.SquareID)
		if err != nil {
			return nil, err
		}
		out.Drag = drag

	case ActionPointerMove:
		preview, err := e.PointerMove(action.X, action.Y)
		if err != nil {
			return nil, err
		}
		out.Preview = preview

	case ActionDrop:
		result, err := e.Drop(action.X, action.Y)
		if err != nil {
			return nil, err
		}
		sq := result.Square
		out.Square = &sq

	case ActionCancel:
		out.Canceled = e.CancelDrag()

	case ActionPlace:
		x, y, err := e.gridPosition(action)
		if err != nil {
			return nil, err
		}
		sq, err := e.Place(action.Size, x, y)
		if err != nil {
			return nil, err
		}
		out.Square = &sq

	case ActionMove:
		x, y, err := e.gridPosition(action)
		if err != nil {
			return nil, err
		}
		sq, err := e.Move(action.SquareID, x, y)
		if err != nil {
			return nil, err
		}
		out.Square = &sq

	case ActionRemove:
		sq, err := e.Remove(action.SquareID)
		if err != nil {
			return nil, err
		}
		out.Square = &sq

	case ActionToggleLock:
		sq, err := e.ToggleLock(action.SquareID)
		if err != nil {
			return nil, err
		}
		out.Square = &sq

	case ActionReset:
		out.Event = e.Reset()

	default:
		return nil, fmt.Errorf("%q: %w", action.Type, ErrUnknownAction)
	}

	if out.Event == nil && e.totalEvents > before {
		out.Event = e.GetLastEvent()
	}
	return out, nil
}

// maxExactCell bounds the coordinates a float64 carries exactly
const maxExactCell = 1 << 53

// gridPosition reads the grid cell of a place or move action. Fractional,
// non-finite or out-of-range values are rejected rather than truncated.
func (e *GameEngine) gridPosition(action Action) (int, int, error) {
	x, okX := gridCell(action.X)
	y, okY := gridCell(action.Y)
	if !okX || !okY {
		err := fmt.Errorf("%w: grid position (%g,%g) is not a whole cell", ErrInvalidPlacement, action.X, action.Y)
		e.reject(err)
		return 0, 0, err
	}
	return x, y, nil
}

func gridCell(v float64) (int, bool) {
	if math.IsNaN(v) || math.IsInf(v, 0) || v != math.Trunc(v) {
		return 0, false
	}
	if v < -maxExactCell || v > maxExactCell {
		return 0, false
	}
	return int(v), true
}

// Reduce is the pure form of Dispatch: it applies action to a copy of state
// and returns the next state. The input state is never modified. On rejection
// the returned state equals the input.
func Reduce(config *BoardConfig, state *GameState, action Action) (*GameState, *Outcome, error) {
	eng, err := NewEngine(config)
	if err != nil {
		return nil, nil, err
	}
	if state != nil {
		if err := eng.SetState(state); err != nil {
			return nil, nil, err
		}
	}
	out, err := eng.Dispatch(action)
	if err != nil {
		if state == nil {
			return eng.GetState(), nil, err
		}
		return cloneState(state), nil, err
	}
	return eng.GetState(), out, nil
}

func cloneState(state *GameState) *GameState {
	c := *state
	c.Squares = append([]PlacedSquare{}, state.Squares...)
	c.Counts = append([]SquareCount{}, state.Counts...)
	c.Events = append([]BoardEvent{}, state.Events...)
	if state.Drag != nil {
		drag := *state.Drag
		if drag.Preview != nil {
			p := *drag.Preview
			drag.Preview = &p
		}
		c.Drag = &drag
	}
	if state.Preview != nil {
		p := *state.Preview
		c.Preview = &p
	}
	return &c
}
