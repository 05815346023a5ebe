package grid

import "sort"

// Set is an unordered collection of cells.
type Set map[Cell]struct{}

// NewSet returns a set holding cells.
func NewSet(cells ...Cell) Set {
	s := make(Set, len(cells))
	for _, c := range cells {
		s[c] = struct{}{}
	}
	return s
}

func (s Set) Add(c Cell) { s[c] = struct{}{} }
func (s Set) Remove(c Cell) { delete(s, c) }

func (s Set) Has(c Cell) bool {
	_, ok := s[c]
	return ok
}

// AnyWithin reports whether some member lies within radius of c.
func (s Set) AnyWithin(c Cell, radius float64) bool {
	for m := range s {
		if m.Distance(c) <= radius {
			return true
		}
	}
	return false
}

// Sorted returns the members ordered by x then y.
func (s Set) Sorted() []Cell {
	out := make([]Cell, 0, len(s))
	for c := range s {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].X != out[j].X {
			return out[i].X < out[j].X
		}
		return out[i].Y < out[j].Y
	})
	return out
}
