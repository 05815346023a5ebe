package grid

import (
	"fmt"
	"math"
)

// Cell is an integer grid coordinate. Cells are values and never mutated.
type Cell struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// Cardinal holds the four unit offsets of 4-connected movement, in the
// order neighbours are expanded by every search in the engine.
var Cardinal = [4]Cell{{0, 1}, {1, 0}, {0, -1}, {-1, 0}}

// C is shorthand for Cell{X: x, Y: y}.
func C(x, y int) Cell {
	return Cell{X: x, Y: y}
}

// Add returns the vector sum c + o.
func (c Cell) Add(o Cell) Cell {
	return Cell{X: c.X + o.X, Y: c.Y + o.Y}
}

// Sub returns the vector difference c - o.
func (c Cell) Sub(o Cell) Cell {
	return Cell{X: c.X - o.X, Y: c.Y - o.Y}
}

// Distance returns the Euclidean distance between c and o.
func (c Cell) Distance(o Cell) float64 {
	return math.Hypot(float64(c.X-o.X), float64(c.Y-o.Y))
}

// Neighbours returns the four 4-connected neighbours of c.
func (c Cell) Neighbours() [4]Cell {
	var n [4]Cell
	for i, d := range Cardinal {
		n[i] = c.Add(d)
	}
	return n
}

// Adjacent reports whether c and o are 4-connected neighbours.
func (c Cell) Adjacent(o Cell) bool {
	dx, dy := c.X-o.X, c.Y-o.Y
	return dx*dx+dy*dy == 1
}

// Reflections returns c reflected across both axes: (x,y), (-x,-y), (x,-y), (-x,y).
func (c Cell) Reflections() [4]Cell {
	return [4]Cell{{c.X, c.Y}, {-c.X, -c.Y}, {c.X, -c.Y}, {-c.X, c.Y}}
}

// Key renders the cell as "x,y", the form used for storage hash fields.
func (c Cell) Key() string {
	return fmt.Sprintf("%d,%d", c.X, c.Y)
}

// ParseKey is the inverse of Key.
func ParseKey(s string) (Cell, error) {
	var c Cell
	if _, err := fmt.Sscanf(s, "%d,%d", &c.X, &c.Y); err != nil {
		return Cell{}, fmt.Errorf("invalid cell key %q: %w", s, err)
	}
	return c, nil
}

func (c Cell) String() string {
	return fmt.Sprintf("(%d, %d)", c.X, c.Y)
}
