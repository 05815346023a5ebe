// Package frontier finds the boundary between an agent's known territory
// and the unknown: known-pathable cells with at least one neighbour the
// agent has never observed.
package frontier

import "github.com/dyluth/swarm/pkg/grid"

// Move is a frontier candidate. Cell is the known-pathable boundary cell an
// agent would walk to; Unknown is the unobserved neighbour that made it a
// boundary; Hops is the breadth-first distance from the search position.
type Move struct {
	Cell    grid.Cell
	Unknown grid.Cell
	Hops    int
}

// Result partitions the candidates of one search. Restricted candidates lie
// within sight radius of a blacklisted cell. Both lists are in discovery
// order, nearest first.
type Result struct {
	Legal      []Move
	Restricted []Move
}

// Empty reports whether the search found nothing at all.
func (r Result) Empty() bool {
	return len(r.Legal) == 0 && len(r.Restricted) == 0
}

// Params configures one search.
type Params struct {
	Position    grid.Cell
	Knowledge   grid.Knowledge
	Blacklist   grid.Set
	SightRadius float64

	// SoftCap stops the search once this many legal candidates are held.
	// Zero disables the cap.
	SoftCap int

	// StagnationCutoff stops the search after this many consecutive
	// expansion levels without a new candidate, provided at least one legal
	// candidate is already held. Zero disables the cutoff.
	StagnationCutoff int
}

// Search walks outward from p.Position through known-pathable cells, level
// by level. An unobserved neighbour marks the cell it was reached from as a
// candidate, once per source cell. Known-blocked neighbours are dropped.
func Search(p Params) Result {
	var res Result

	seen := grid.NewSet(p.Position)
	sources := make(grid.Set)
	level := []grid.Cell{p.Position}
	stale := 0

	for hops := 0; len(level) > 0; hops++ {
		if p.SoftCap > 0 && len(res.Legal) >= p.SoftCap {
			break
		}
		if p.StagnationCutoff > 0 && len(res.Legal) > 0 && stale > p.StagnationCutoff {
			break
		}
		stale++

		var next []grid.Cell
		for _, cur := range level {
			for _, n := range cur.Neighbours() {
				if seen.Has(n) {
					continue
				}
				seen.Add(n)

				pathable, known := p.Knowledge[n]
				switch {
				case known && pathable:
					next = append(next, n)
				case known:
				case !sources.Has(cur):
					sources.Add(cur)
					stale = 0
					m := Move{Cell: cur, Unknown: n, Hops: hops}
					if p.Blacklist.AnyWithin(cur, p.SightRadius) {
						res.Restricted = append(res.Restricted, m)
					} else {
						res.Legal = append(res.Legal, m)
					}
				}
			}
		}
		level = next
	}
	return res
}
