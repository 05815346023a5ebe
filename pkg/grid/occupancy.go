package grid

import (
	"errors"
	"fmt"
)

// ErrEmptyGrid is returned when constructing an occupancy grid with no cells.
var ErrEmptyGrid = errors.New("occupancy grid has no cells")

// Occupancy is the fixed ground-truth map. Cell (x, y) is pathable when
// cells[x][y] is true. Anything outside the grid is treated as blocked,
// which gives every map an implicit boundary wall.
type Occupancy struct {
	width  int
	height int
	cells  [][]bool
}

// NewOccupancy copies the column-major pathable array into a new grid.
// Every column must have the same length.
func NewOccupancy(pathable [][]bool) (*Occupancy, error) {
	if len(pathable) == 0 || len(pathable[0]) == 0 {
		return nil, ErrEmptyGrid
	}

	height := len(pathable[0])
	cells := make([][]bool, len(pathable))
	for x, col := range pathable {
		if len(col) != height {
			return nil, fmt.Errorf("column %d has %d cells, expected %d", x, len(col), height)
		}
		cells[x] = append([]bool(nil), col...)
	}

	return &Occupancy{width: len(pathable), height: height, cells: cells}, nil
}

// Open returns a width x height grid with every cell pathable.
func Open(width, height int) *Occupancy {
	cells := make([][]bool, width)
	for x := range cells {
		cells[x] = make([]bool, height)
		for y := range cells[x] {
			cells[x][y] = true
		}
	}
	return &Occupancy{width: width, height: height, cells: cells}
}

// Width returns the number of columns.
func (o *Occupancy) Width() int { return o.width }

// Height returns the number of rows.
func (o *Occupancy) Height() int { return o.height }

// InBounds reports whether c lies inside the grid.
func (o *Occupancy) InBounds(c Cell) bool {
	return c.X >= 0 && c.Y >= 0 && c.X < o.width && c.Y < o.height
}

// Pathable reports the ground truth at c. Out-of-bounds cells are blocked.
func (o *Occupancy) Pathable(c Cell) bool {
	if !o.InBounds(c) {
		return false
	}
	return o.cells[c.X][c.Y]
}

// PathableCount returns the number of pathable cells in the grid.
func (o *Occupancy) PathableCount() int {
	n := 0
	for _, col := range o.cells {
		for _, p := range col {
			if p {
				n++
			}
		}
	}
	return n
}

// Reachable returns every pathable cell connected to from by 4-connected
// moves, including from itself when it is pathable.
func (o *Occupancy) Reachable(from Cell) Set {
	seen := NewSet()
	if !o.Pathable(from) {
		return seen
	}
	seen.Add(from)
	stack := []Cell{from}
	for len(stack) > 0 {
		c := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		for _, n := range c.Neighbours() {
			if !seen.Has(n) && o.Pathable(n) {
				seen.Add(n)
				stack = append(stack, n)
			}
		}
	}
	return seen
}
