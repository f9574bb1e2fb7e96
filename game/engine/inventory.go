package engine

import "fmt"

// Inventory tracks remaining squares per size. Size n has exactly n squares.
type Inventory struct {
	counts []SquareCount
}

// NewInventory creates an inventory for sizes 1..sizes with every square available
func NewInventory(sizes int) *Inventory {
	inv := &Inventory{counts: make([]SquareCount, sizes)}
	inv.Reset()
	return inv
}

// Reset reinitializes every count to remaining == total
func (inv *Inventory) Reset() {
	for i := range inv.counts {
		size := i + 1
		inv.counts[i] = SquareCount{Size: size, Total: size, Remaining: size}
	}
}

// Sizes returns the largest square size tracked
func (inv *Inventory) Sizes() int {
	return len(inv.counts)
}

// Decrement takes one square of the given size out of the inventory
func (inv *Inventory) Decrement(size int) error {
	c, err := inv.slot(size)
	if err != nil {
		return err
	}
	if c.Remaining == 0 {
		return fmt.Errorf("size %d: %w", size, ErrInventoryExhausted)
	}
	c.Remaining--
	return nil
}

// Increment returns one square of the given size to the inventory
func (inv *Inventory) Increment(size int) error {
	c, err := inv.slot(size)
	if err != nil {
		return err
	}
	if c.Remaining == c.Total {
		return fmt.Errorf("size %d: %w", size, ErrInventoryOverflow)
	}
	c.Remaining++
	return nil
}

// Remaining returns how many squares of size are still available, or 0 for
// an unknown size.
func (inv *Inventory) Remaining(size int) int {
	c, err := inv.slot(size)
	if err != nil {
		return 0
	}
	return c.Remaining
}

// Count returns the SquareCount for size
func (inv *Inventory) Count(size int) (SquareCount, error) {
	c, err := inv.slot(size)
	if err != nil {
		return SquareCount{}, err
	}
	return *c, nil
}

// Counts returns a copy of all counts ordered by size
func (inv *Inventory) Counts() []SquareCount {
	out := make([]SquareCount, len(inv.counts))
	copy(out, inv.counts)
	return out
}

// Exhausted reports whether every square has been placed
func (inv *Inventory) Exhausted() bool {
	for _, c := range inv.counts {
		if c.Remaining > 0 {
			return false
		}
	}
	return true
}

// Area returns the cells covered by every square in the inventory, placed or not
func (inv *Inventory) Area() int {
	area := 0
	for _, c := range inv.counts {
		area += c.Size * c.Size * c.Total
	}
	return area
}

// restore overwrites remaining counts; callers validate the counts first
func (inv *Inventory) restore(counts []SquareCount) error {
	if len(counts) != len(inv.counts) {
		return fmt.Errorf("expected %d counts, got %d", len(inv.counts), len(counts))
	}
	for i, c := range counts {
		if c.Size != i+1 || c.Total != c.Size || c.Remaining < 0 || c.Remaining > c.Total {
			return fmt.Errorf("count for size %d is inconsistent: %+v", i+1, c)
		}
	}
	copy(inv.counts, counts)
	return nil
}

func (inv *Inventory) slot(size int) (*SquareCount, error) {
	if size < MinSquareSize || size > len(inv.counts) {
		return nil, fmt.Errorf("size %d: %w", size, ErrInvalidSize)
	}
	return &inv.counts[size-1], nil
}

// TilingArea returns the cell area covered by the full inventory of sizes
// 1..sizes, i.e. the sum of n*n*n.
func TilingArea(sizes int) int {
	area := 0
	for n := 1; n <= sizes; n++ {
		area += n * n * n
	}
	return area
}
