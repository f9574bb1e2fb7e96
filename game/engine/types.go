package engine

import "time"

const (
	// Reference board geometry
	DefaultGridSize    = 45
	DefaultCellSize    = 14
	DefaultSquareSizes = 9

	// Validation constants
	MinSquareSize  = 1
	MaxSquareSizes = 12
	MaxGridSize    = 100
	MinCellSize    = 4
	MaxCellSize    = 64
	MaxEventLog    = 1000
)

// SourceKind identifies where a dragged square came from
type SourceKind string

const (
	SourceToolbar SourceKind = "toolbar"
	SourceBoard   SourceKind = "board"
)

// PlacedSquare is a square locked into the grid. It occupies the cells
// [X, X+Size) x [Y, Y+Size).
type PlacedSquare struct {
	ID     string `json:"id"`
	Size   int    `json:"size"`
	X      int    `json:"x"`
	Y      int    `json:"y"`
	Locked bool   `json:"locked"`
}

// Rect returns the occupied-cell rectangle of the square
func (s PlacedSquare) Rect() Rect {
	return Rect{X: s.X, Y: s.Y, Size: s.Size}
}

// SquareCount tracks how many squares of one size are still available
type SquareCount struct {
	Size      int `json:"size"`
	Total     int `json:"total"`
	Remaining int `json:"remaining"`
}

// Placed returns how many squares of this size are on the board
func (c SquareCount) Placed() int {
	return c.Total - c.Remaining
}

// Preview is the live placement candidate shown during a drag
type Preview struct {
	X     int  `json:"x"`
	Y     int  `json:"y"`
	Size  int  `json:"size"`
	Valid bool `json:"valid"`
}

// EventType names the discrete board outputs consumed by observers
type EventType string

const (
	EventPlaced       EventType = "placed"
	EventRepositioned EventType = "repositioned"
	EventRemoved      EventType = "removed"
	EventLocked       EventType = "locked"
	EventUnlocked     EventType = "unlocked"
	EventReset        EventType = "reset"
)

// BoardEvent is emitted after every successful mutation of the board
type BoardEvent struct {
	Type           EventType   `json:"type"`
	SquareID       string      `json:"square_id,omitempty"`
	Size           int         `json:"size,omitempty"`
	X              int         `json:"x"`
	Y              int         `json:"y"`
	SquareCount    SquareCount `json:"square_count"`
	TotalSquares   int         `json:"total_squares"`
	SquaresCleared int         `json:"squares_cleared,omitempty"`
	Sequence       int         `json:"sequence"`
	Timestamp      int64       `json:"timestamp"`
}

// GameState is the JSON snapshot of a board exposed to transports
type GameState struct {
	ConfigName   string         `json:"config_name"`
	GridSize     int            `json:"grid_size"`
	CellSize     int            `json:"cell_size"`
	SquareSizes  int            `json:"square_sizes"`
	Squares      []PlacedSquare `json:"squares"`
	Counts       []SquareCount  `json:"counts"`
	Drag         *DragSession   `json:"drag,omitempty"`
	Preview      *Preview       `json:"preview,omitempty"`
	CoveredCells int            `json:"covered_cells"`
	TotalCells   int            `json:"total_cells"`
	Complete     bool           `json:"complete"`
	Message      string         `json:"message"`

	// Events is the observability log of this board. It is never replayed.
	Events      []BoardEvent `json:"events"`
	TotalEvents int          `json:"total_events"`
}

func now() int64 {
	return time.Now().UnixMilli()
}
