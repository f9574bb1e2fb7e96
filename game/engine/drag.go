package engine

import "fmt"

// DragState is the phase of a drag gesture
type DragState string

const (
	DragIdle       DragState = "idle"
	DragDragging   DragState = "dragging"
	DragCommitting DragState = "committing"
)

// DragSession is the transient state of the single active gesture
type DragSession struct {
	State    DragState  `json:"state"`
	Source   SourceKind `json:"source"`
	Size     int        `json:"size"`
	SquareID string     `json:"square_id"`
	Preview  *Preview   `json:"preview,omitempty"`
}

// Active reports whether a gesture is in flight
func (d *DragSession) Active() bool {
	return d != nil && d.State != DragIdle && d.State != ""
}

// DropResult describes a committed drop
type DropResult struct {
	Square       PlacedSquare `json:"square"`
	Repositioned bool         `json:"repositioned"`
}

// gesture drives one DragSession against a board
type gesture struct {
	board   *Board
	session *DragSession
}

// pickUp starts a drag. An empty squareID means a new square from the
// inventory; otherwise the existing board square is picked up.
func (g *gesture) pickUp(size int, squareID string) (*DragSession, error) {
	if g.session.Active() {
		return nil, ErrDragInProgress
	}

	var next DragSession
	if squareID == "" {
		if size < MinSquareSize || size > g.board.Inventory().Sizes() {
			return nil, fmt.Errorf("size %d: %w", size, ErrInvalidSize)
		}
		if g.board.Inventory().Remaining(size) == 0 {
			return nil, fmt.Errorf("size %d: %w", size, ErrInventoryExhausted)
		}
		next = DragSession{Source: SourceToolbar, Size: size, SquareID: g.board.newID(size)}
	} else {
		sq, ok := g.board.Find(squareID)
		if !ok {
			return nil, fmt.Errorf("square %s: %w", squareID, ErrNotFound)
		}
		if sq.Locked {
			return nil, fmt.Errorf("square %s: %w", squareID, ErrSquareLocked)
		}
		if size != 0 && size != sq.Size {
			return nil, fmt.Errorf("square %s has size %d, not %d: %w", squareID, sq.Size, size, ErrInvalidSize)
		}
		next = DragSession{Source: SourceBoard, Size: sq.Size, SquareID: sq.ID}
	}

	next.State = DragDragging
	*g.session = next
	return g.session, nil
}

// pointerMove recomputes the live preview for the pointer position
func (g *gesture) pointerMove(px, py float64) (*Preview, error) {
	if !g.session.Active() {
		return nil, ErrNoActiveDrag
	}
	p := g.board.Geometry().Evaluate(px, py, g.session.Size, g.board.squares, g.excludeID())
	g.session.Preview = p.Preview()
	return g.session.Preview, nil
}

// drop commits the gesture at the final pointer position. The placement is
// validated again against the current board; the last preview is not trusted.
// The session returns to idle whether or not the commit succeeds.
func (g *gesture) drop(px, py float64) (*DropResult, error) {
	if !g.session.Active() {
		return nil, ErrNoActiveDrag
	}
	g.session.State = DragCommitting
	defer g.clear()

	x, y := g.board.Geometry().Snap(px, py, g.session.Size)
	if _, exists := g.board.Find(g.session.SquareID); exists {
		sq, err := g.board.Move(g.session.SquareID, x, y)
		if err != nil {
			return nil, err
		}
		return &DropResult{Square: sq, Repositioned: true}, nil
	}

	sq, err := g.board.placeWithID(g.session.SquareID, g.session.Size, x, y)
	if err != nil {
		return nil, err
	}
	return &DropResult{Square: sq}, nil
}

// cancel abandons the gesture. It reports whether a drag was active.
func (g *gesture) cancel() bool {
	if !g.session.Active() {
		return false
	}
	g.clear()
	return true
}

func (g *gesture) clear() {
	*g.session = DragSession{State: DragIdle}
}

func (g *gesture) excludeID() string {
	if g.session.Source == SourceBoard {
		return g.session.SquareID
	}
	return ""
}
