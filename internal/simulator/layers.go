package simulator

import "github.com/dyluth/swarm/pkg/grid"

// Coverage says how widely a cell is known across the swarm.
type Coverage int

const (
	KnownByOne Coverage = iota + 1
	KnownBySeveral
	KnownByAll
)

func (c Coverage) String() string {
	switch c {
	case KnownByOne:
		return "one"
	case KnownBySeveral:
		return "several"
	case KnownByAll:
		return "all"
	}
	return "none"
}

// Layer is one cell of the combined view.
type Layer struct {
	Pathable bool
	Coverage Coverage
}

// Combined returns the union of every agent's knowledge.
func (s *Simulator) Combined() grid.Knowledge {
	out := make(grid.Knowledge)
	for _, a := range s.agents {
		for c, p := range a.Knowledge() {
			out[c] = p
		}
	}
	return out
}

// Layers classifies every known cell by how many agents know it.
func (s *Simulator) Layers() map[grid.Cell]Layer {
	counts := make(map[grid.Cell]int)
	out := make(map[grid.Cell]Layer)
	for _, a := range s.agents {
		for c, p := range a.Knowledge() {
			counts[c]++
			out[c] = Layer{Pathable: p}
		}
	}
	for c, n := range counts {
		l := out[c]
		switch {
		case n == len(s.agents):
			l.Coverage = KnownByAll
		case n > 1:
			l.Coverage = KnownBySeveral
		default:
			l.Coverage = KnownByOne
		}
		out[c] = l
	}
	return out
}

// Explored returns how many pathable cells the swarm knows, and how many
// can be reached from the start at all.
func (s *Simulator) Explored() (known, total int) {
	combined := s.Combined()
	for c, p := range combined {
		if p && s.world.InBounds(c) {
			known++
		}
	}
	return known, s.reachable
}
