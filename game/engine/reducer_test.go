package engine

import (
	"errors"
	"math"
	"testing"
)

func TestDispatch_Actions(t *testing.T) {
	eng := createTestEngine(t)

	out, err := eng.Dispatch(Action{Type: ActionPlace, Size: 2, X: 0, Y: 0})
	if err != nil {
		t.Fatalf("place: %v", err)
	}
	if out.Square == nil || out.Event == nil || out.Event.Type != EventPlaced {
		t.Fatalf("place: unexpected outcome %+v", out)
	}
	id := out.Square.ID

	steps := []struct {
		action Action
		event  EventType
	}{
		{Action{Type: ActionMove, SquareID: id, X: 5, Y: 5}, EventRepositioned},
		{Action{Type: ActionToggleLock, SquareID: id}, EventLocked},
		{Action{Type: ActionToggleLock, SquareID: id}, EventUnlocked},
		{Action{Type: ActionRemove, SquareID: id}, EventRemoved},
		{Action{Type: ActionReset}, EventReset},
	}

	for _, step := range steps {
		t.Run(string(step.action.Type), func(t *testing.T) {
			out, err := eng.Dispatch(step.action)
			if err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}
			if out.Event == nil || out.Event.Type != step.event {
				t.Errorf("Expected %s event, got %+v", step.event, out.Event)
			}
		})
	}
}

func TestDispatch_DragSequence(t *testing.T) {
	eng := createTestEngine(t)

	out, err := eng.Dispatch(Action{Type: ActionPickUp, Size: 4})
	if err != nil || out.Drag == nil {
		t.Fatalf("pick up: %+v %v", out, err)
	}
	if out.Event != nil {
		t.Error("Pick up must not emit an event")
	}

	px, py := pointerFor(6, 6, 4)
	out, err = eng.Dispatch(Action{Type: ActionPointerMove, X: px, Y: py})
	if err != nil || out.Preview == nil || !out.Preview.Valid {
		t.Fatalf("pointer move: %+v %v", out, err)
	}

	out, err = eng.Dispatch(Action{Type: ActionDrop, X: px, Y: py})
	if err != nil {
		t.Fatalf("drop: %v", err)
	}
	if out.Square == nil || out.Square.X != 6 || out.Square.Y != 6 {
		t.Errorf("Unexpected dropped square %+v", out.Square)
	}

	out, err = eng.Dispatch(Action{Type: ActionCancel})
	if err != nil || out.Canceled {
		t.Errorf("Cancel while idle should succeed without canceling: %+v %v", out, err)
	}
}

func TestDispatch_UnknownAction(t *testing.T) {
	eng := createTestEngine(t)

	_, err := eng.Dispatch(Action{Type: "teleport"})
	if !errors.Is(err, ErrUnknownAction) {
		t.Errorf("Expected ErrUnknownAction, got %v", err)
	}
}

func TestReduce_Pure(t *testing.T) {
	config := DefaultBoardConfig()
	state, _, err := Reduce(config, nil, Action{Type: ActionPlace, Size: 3, X: 0, Y: 0})
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if len(state.Squares) != 1 {
		t.Fatalf("Expected 1 square, got %d", len(state.Squares))
	}

	snapshot := cloneState(state)

	next, out, err := Reduce(config, state, Action{Type: ActionPlace, Size: 5, X: 20, Y: 20})
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if out.Square == nil || len(next.Squares) != 2 {
		t.Errorf("Expected second square in next state, got %+v", next.Squares)
	}

	if len(state.Squares) != len(snapshot.Squares) || state.Counts[4] != snapshot.Counts[4] {
		t.Error("Reduce mutated its input state")
	}
}

// A rejected overlap hands back a copy of the input state
func TestReduce_RejectionReturnsInputState(t *testing.T) {
	config := DefaultBoardConfig()
	state, _, _ := Reduce(config, nil, Action{Type: ActionPlace, Size: 3, X: 0, Y: 0})

	next, out, err := Reduce(config, state, Action{Type: ActionPlace, Size: 2, X: 1, Y: 1})
	if !errors.Is(err, ErrInvalidPlacement) {
		t.Fatalf("Expected ErrInvalidPlacement, got %v", err)
	}
	if out != nil {
		t.Error("Expected no outcome on rejection")
	}
	if len(next.Squares) != 1 || next.Counts[1].Remaining != 2 {
		t.Errorf("Rejected state differs from input: %+v", next)
	}
	if next == state {
		t.Error("Returned state should be a copy")
	}
}

func TestReduce_InvalidState(t *testing.T) {
	config := DefaultBoardConfig()
	bad := &GameState{
		Squares: []PlacedSquare{{ID: "a", Size: 9, X: 40, Y: 0}},
		Counts:  NewInventory(9).Counts(),
	}

	if _, _, err := Reduce(config, bad, Action{Type: ActionReset}); err == nil {
		t.Error("Expected error for invalid input state")
	}
}

func TestReduce_ExtremeStateRejected(t *testing.T) {
	config := DefaultBoardConfig()
	counts := NewInventory(9).Counts()
	counts[2].Remaining = 2
	offBoard := &GameState{
		Squares: []PlacedSquare{{ID: "a", Size: 3, X: math.MaxInt - 1, Y: math.MaxInt - 1}},
		Counts:  counts,
	}

	next, _, err := Reduce(config, offBoard, Action{Type: ActionPlace, Size: 1, X: 0, Y: 0})
	if err == nil {
		t.Fatalf("Expected an off-board state to be rejected, got %+v", next.Squares)
	}
}

func TestDispatch_FractionalGridRejected(t *testing.T) {
	tests := []struct {
		name string
		x, y float64
	}{
		{"negative fraction", -0.7, -0.7},
		{"positive fraction", 2.5, 3},
		{"y fraction", 3, 0.25},
		{"nan", math.NaN(), 0},
		{"infinite", math.Inf(1), 0},
		{"beyond int range", 1e300, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			eng := createTestEngine(t)

			_, err := eng.Dispatch(Action{Type: ActionPlace, Size: 1, X: tt.x, Y: tt.y})
			if !errors.Is(err, ErrInvalidPlacement) {
				t.Fatalf("place: expected ErrInvalidPlacement, got %v", err)
			}
			if ReasonCode(err) != "invalid_placement" {
				t.Errorf("Expected invalid_placement reason, got %s", ReasonCode(err))
			}
			if eng.Board().Len() != 0 || eng.Board().Inventory().Remaining(1) != 1 {
				t.Error("Rejected place changed the board")
			}

			out, err := eng.Dispatch(Action{Type: ActionPlace, Size: 2, X: 4, Y: 4})
			if err != nil {
				t.Fatalf("place: %v", err)
			}
			_, err = eng.Dispatch(Action{Type: ActionMove, SquareID: out.Square.ID, X: tt.x, Y: tt.y})
			if !errors.Is(err, ErrInvalidPlacement) {
				t.Fatalf("move: expected ErrInvalidPlacement, got %v", err)
			}
			if sq, _ := eng.Board().Find(out.Square.ID); sq.X != 4 || sq.Y != 4 {
				t.Errorf("Rejected move changed the square: %+v", sq)
			}
		})
	}
}

func TestDispatch_WholeFloatGridAccepted(t *testing.T) {
	eng := createTestEngine(t)

	out, err := eng.Dispatch(Action{Type: ActionPlace, Size: 1, X: 44, Y: 44})
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if out.Square.X != 44 || out.Square.Y != 44 {
		t.Errorf("Expected square at (44,44), got (%d,%d)", out.Square.X, out.Square.Y)
	}
}
