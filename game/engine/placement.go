package engine

import "math"

// Rect is an axis-aligned square of grid cells anchored at its top-left cell
type Rect struct {
	X, Y, Size int
}

// Overlaps reports whether two rectangles share at least one cell. They are
// disjoint only when fully separated on the x-axis or on the y-axis.
func (r Rect) Overlaps(o Rect) bool {
	return !(separated(r.X, r.Size, o.X, o.Size) || separated(r.Y, r.Size, o.Y, o.Size))
}

// separated reports whether the spans [a,a+aSize) and [b,b+bSize) are
// disjoint. The distance is taken in uint so extreme coordinates cannot wrap.
func separated(a, aSize, b, bSize int) bool {
	if a >= b {
		return uint(a)-uint(b) >= uint(bSize)
	}
	return uint(b)-uint(a) >= uint(aSize)
}

// Placement is the outcome of validating a candidate position
type Placement struct {
	X          int
	Y          int
	Size       int
	Valid      bool
	Reason     PlacementReason
	ConflictID string
}

// Err returns a *PlacementError for an invalid placement, nil otherwise
func (p Placement) Err() error {
	if p.Valid {
		return nil
	}
	return &PlacementError{Reason: p.Reason, X: p.X, Y: p.Y, Size: p.Size, ConflictID: p.ConflictID}
}

// Preview converts the placement into its rendering form
func (p Placement) Preview() *Preview {
	return &Preview{X: p.X, Y: p.Y, Size: p.Size, Valid: p.Valid}
}

// Geometry holds the board dimensions used by the placement validator. All of
// its methods are pure.
type Geometry struct {
	GridSize int
	CellSize int
}

// Snap converts a board-local pointer position in pixels into a top-left grid
// cell so the square is centered under the pointer, clamped onto the board.
func (g Geometry) Snap(px, py float64, size int) (int, int) {
	half := float64(size*g.CellSize) / 2
	x := roundHalfUp((px - half) / float64(g.CellSize))
	y := roundHalfUp((py - half) / float64(g.CellSize))
	return g.clamp(x, size), g.clamp(y, size)
}

func (g Geometry) clamp(v, size int) int {
	limit := g.GridSize - size
	if v > limit {
		v = limit
	}
	if v < 0 {
		v = 0
	}
	return v
}

// InBounds reports whether a square of size anchored at (x,y) lies on the board
func (g Geometry) InBounds(x, y, size int) bool {
	if size < 1 || size > g.GridSize {
		return false
	}
	return x >= 0 && y >= 0 && x <= g.GridSize-size && y <= g.GridSize-size
}

// Validate checks a grid position against the board bounds and every other
// square, skipping excludeID when a square is being repositioned.
func (g Geometry) Validate(x, y, size int, others []PlacedSquare, excludeID string) Placement {
	p := Placement{X: x, Y: y, Size: size}
	if !g.InBounds(x, y, size) {
		p.Reason = ReasonOutOfBounds
		return p
	}
	candidate := Rect{X: x, Y: y, Size: size}
	for _, sq := range others {
		if excludeID != "" && sq.ID == excludeID {
			continue
		}
		if candidate.Overlaps(sq.Rect()) {
			p.Reason = ReasonOverlap
			p.ConflictID = sq.ID
			return p
		}
	}
	p.Valid = true
	return p
}

// Evaluate snaps a pointer position and validates the resulting cell
func (g Geometry) Evaluate(px, py float64, size int, others []PlacedSquare, excludeID string) Placement {
	x, y := g.Snap(px, py, size)
	return g.Validate(x, y, size, others, excludeID)
}

// roundHalfUp rounds to the nearest integer with ties going towards +Inf
func roundHalfUp(v float64) int {
	switch {
	case math.IsNaN(v):
		return 0
	case v > math.MaxInt32:
		return math.MaxInt32
	case v < math.MinInt32:
		return math.MinInt32
	}
	return int(math.Floor(v + 0.5))
}
