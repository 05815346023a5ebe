package grid

// Knowledge is a partial view of the ground truth: a present key maps to
// whether that cell is pathable. Entries are only ever added.
type Knowledge map[Cell]bool

// Known reports whether c is present.
func (k Knowledge) Known(c Cell) bool {
	_, ok := k[c]
	return ok
}

// Pathable reports whether c is known and pathable.
func (k Knowledge) Pathable(c Cell) bool {
	return k[c]
}

// Blocked reports whether c is known and blocked.
func (k Knowledge) Blocked(c Cell) bool {
	p, ok := k[c]
	return ok && !p
}

// HasUnknownNeighbour reports whether any 4-connected neighbour of c is absent.
func (k Knowledge) HasUnknownNeighbour(c Cell) bool {
	for _, n := range c.Neighbours() {
		if !k.Known(n) {
			return true
		}
	}
	return false
}

// Merge copies every entry of other that k does not already hold and
// returns the newly added cells.
func (k Knowledge) Merge(other Knowledge) []Cell {
	var added []Cell
	for c, p := range other {
		if _, ok := k[c]; ok {
			continue
		}
		k[c] = p
		added = append(added, c)
	}
	return added
}

// Clone returns an independent copy of k.
func (k Knowledge) Clone() Knowledge {
	out := make(Knowledge, len(k))
	for c, p := range k {
		out[c] = p
	}
	return out
}
