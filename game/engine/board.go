package engine

import (
	"fmt"

	"github.com/google/uuid"
)

// IDGenerator mints opaque square identifiers
type IDGenerator func(size int) string

// NewSquareID returns a session-unique identifier for a new square
func NewSquareID(size int) string {
	return fmt.Sprintf("square-%d-%s", size, uuid.NewString())
}

// Board is the authoritative set of placed squares. Every mutating method is
// all-or-nothing: on error neither the squares nor the inventory change.
type Board struct {
	geometry  Geometry
	squares   []PlacedSquare
	inventory *Inventory
	newID     IDGenerator
}

// NewBoard creates an empty board with a full inventory of sizes 1..sizes
func NewBoard(geometry Geometry, sizes int) *Board {
	return &Board{
		geometry:  geometry,
		squares:   []PlacedSquare{},
		inventory: NewInventory(sizes),
		newID:     NewSquareID,
	}
}

// SetIDGenerator replaces the identifier scheme, mainly for tests
func (b *Board) SetIDGenerator(gen IDGenerator) {
	if gen != nil {
		b.newID = gen
	}
}

// Geometry returns the board dimensions
func (b *Board) Geometry() Geometry {
	return b.geometry
}

// Inventory exposes the inventory for read access
func (b *Board) Inventory() *Inventory {
	return b.inventory
}

// Squares returns a copy of the placed squares in placement order
func (b *Board) Squares() []PlacedSquare {
	out := make([]PlacedSquare, len(b.squares))
	copy(out, b.squares)
	return out
}

// Len returns the number of placed squares
func (b *Board) Len() int {
	return len(b.squares)
}

// Find returns the square with the given id
func (b *Board) Find(id string) (PlacedSquare, bool) {
	if i := b.index(id); i >= 0 {
		return b.squares[i], true
	}
	return PlacedSquare{}, false
}

// Check validates a grid position without mutating anything
func (b *Board) Check(x, y, size int, excludeID string) Placement {
	return b.geometry.Validate(x, y, size, b.squares, excludeID)
}

// Place puts a new unlocked square of size at (x,y) and takes it from the inventory
func (b *Board) Place(size, x, y int) (PlacedSquare, error) {
	return b.placeWithID(b.newID(size), size, x, y)
}

func (b *Board) placeWithID(id string, size, x, y int) (PlacedSquare, error) {
	if size < MinSquareSize || size > b.inventory.Sizes() {
		return PlacedSquare{}, fmt.Errorf("size %d: %w", size, ErrInvalidSize)
	}
	if b.inventory.Remaining(size) == 0 {
		return PlacedSquare{}, fmt.Errorf("size %d: %w", size, ErrInventoryExhausted)
	}
	if _, exists := b.Find(id); exists {
		return PlacedSquare{}, fmt.Errorf("square %s already placed: %w", id, ErrInvalidPlacement)
	}
	if err := b.Check(x, y, size, "").Err(); err != nil {
		return PlacedSquare{}, err
	}
	if err := b.inventory.Decrement(size); err != nil {
		return PlacedSquare{}, err
	}
	sq := PlacedSquare{ID: id, Size: size, X: x, Y: y}
	b.squares = append(b.squares, sq)
	return sq, nil
}

// Move repositions an unlocked square. Inventory is untouched.
func (b *Board) Move(id string, x, y int) (PlacedSquare, error) {
	i := b.index(id)
	if i < 0 {
		return PlacedSquare{}, fmt.Errorf("square %s: %w", id, ErrNotFound)
	}
	sq := b.squares[i]
	if sq.Locked {
		return PlacedSquare{}, fmt.Errorf("square %s: %w", id, ErrSquareLocked)
	}
	if err := b.Check(x, y, sq.Size, id).Err(); err != nil {
		return PlacedSquare{}, err
	}
	sq.X, sq.Y = x, y
	b.squares[i] = sq
	return sq, nil
}

// Remove deletes an unlocked square and returns it to the inventory
func (b *Board) Remove(id string) (PlacedSquare, error) {
	i := b.index(id)
	if i < 0 {
		return PlacedSquare{}, fmt.Errorf("square %s: %w", id, ErrNotFound)
	}
	sq := b.squares[i]
	if sq.Locked {
		return PlacedSquare{}, fmt.Errorf("square %s: %w", id, ErrSquareLocked)
	}
	if err := b.inventory.Increment(sq.Size); err != nil {
		return PlacedSquare{}, err
	}
	b.squares = append(b.squares[:i:i], b.squares[i+1:]...)
	return sq, nil
}

// ToggleLock flips the locked flag of a square
func (b *Board) ToggleLock(id string) (PlacedSquare, error) {
	i := b.index(id)
	if i < 0 {
		return PlacedSquare{}, fmt.Errorf("square %s: %w", id, ErrNotFound)
	}
	b.squares[i].Locked = !b.squares[i].Locked
	return b.squares[i], nil
}

// Reset clears every square and refills the inventory. It returns the number
// of squares cleared.
func (b *Board) Reset() int {
	cleared := len(b.squares)
	b.squares = []PlacedSquare{}
	b.inventory.Reset()
	return cleared
}

// CoveredCells returns the number of grid cells occupied by squares
func (b *Board) CoveredCells() int {
	covered := 0
	for _, sq := range b.squares {
		covered += sq.Size * sq.Size
	}
	return covered
}

// Complete reports whether every square is placed and the board is covered
func (b *Board) Complete() bool {
	return b.inventory.Exhausted() && b.CoveredCells() == b.geometry.GridSize*b.geometry.GridSize
}

// Restore replaces the board contents after verifying every board invariant
func (b *Board) Restore(squares []PlacedSquare, counts []SquareCount) error {
	placed := make(map[int]int)
	seen := make(map[string]bool)
	for i, sq := range squares {
		if sq.ID == "" || seen[sq.ID] {
			return fmt.Errorf("square %d has a missing or duplicate id", i)
		}
		seen[sq.ID] = true
		if sq.Size < MinSquareSize || sq.Size > b.inventory.Sizes() {
			return fmt.Errorf("square %s: %w", sq.ID, ErrInvalidSize)
		}
		if err := b.geometry.Validate(sq.X, sq.Y, sq.Size, squares[:i], "").Err(); err != nil {
			return fmt.Errorf("square %s: %w", sq.ID, err)
		}
		placed[sq.Size]++
	}
	inv := NewInventory(b.inventory.Sizes())
	if err := inv.restore(counts); err != nil {
		return err
	}
	for _, c := range inv.counts {
		if c.Remaining+placed[c.Size] != c.Total {
			return fmt.Errorf("size %d: %d remaining with %d placed does not add up to %d", c.Size, c.Remaining, placed[c.Size], c.Total)
		}
	}
	b.squares = make([]PlacedSquare, len(squares))
	copy(b.squares, squares)
	b.inventory = inv
	return nil
}

func (b *Board) index(id string) int {
	for i, sq := range b.squares {
		if sq.ID == id {
			return i
		}
	}
	return -1
}
