package geometry

import "github.com/dyluth/swarm/pkg/grid"

// graph links every cell on a ray to the cells that follow it on any ray
// through it, with the origin as the root.
type graph struct {
	next map[grid.Cell][]grid.Cell
	rays int
}

// Visibility is the ray graph of one radius translated to a center.
type Visibility struct {
	center grid.Cell
	base   *graph
}

// Visibility returns the ray graph for radius centred on center. The graph
// is built once per radius; translation happens lazily as it is walked.
func (c *Cache) Visibility(center grid.Cell, radius int) Visibility {
	return Visibility{center: center, base: c.graph(radius)}
}

func (c *Cache) graph(radius int) *graph {
	c.mu.RLock()
	g, ok := c.graphs[radius]
	c.mu.RUnlock()
	if ok {
		return g
	}

	edges := c.baseCircle(radius)
	g = &graph{next: make(map[grid.Cell][]grid.Cell), rays: len(edges)}
	for _, edge := range edges {
		prev := grid.Cell{}
		for _, cell := range c.Ray(edge) {
			g.link(prev, cell)
			prev = cell
		}
	}

	c.mu.Lock()
	if existing, ok := c.graphs[radius]; ok {
		g = existing
	} else {
		c.graphs[radius] = g
	}
	c.mu.Unlock()
	return g
}

func (g *graph) link(from, to grid.Cell) {
	for _, n := range g.next[from] {
		if n == to {
			return
		}
	}
	g.next[from] = append(g.next[from], to)
}

// Start returns the center the rays fan out from.
func (v Visibility) Start() grid.Cell {
	return v.center
}

// RayCount returns the number of rays, one per boundary cell.
func (v Visibility) RayCount() int {
	return v.base.rays
}

// Next returns the successors of c along every ray passing through it.
func (v Visibility) Next(c grid.Cell) []grid.Cell {
	succ := v.base.next[c.Sub(v.center)]
	out := make([]grid.Cell, len(succ))
	for i, s := range succ {
		out[i] = s.Add(v.center)
	}
	return out
}

// Flood walks the graph breadth-first from the center, calling fn once for
// every reached cell. Propagation continues through a cell only when fn
// returns true.
func (v Visibility) Flood(fn func(grid.Cell) bool) {
	origin := grid.Cell{}
	seen := map[grid.Cell]struct{}{origin: {}}
	queue := []grid.Cell{origin}

	for len(queue) > 0 {
		off := queue[0]
		queue = queue[1:]

		if !fn(off.Add(v.center)) {
			continue
		}
		for _, n := range v.base.next[off] {
			if _, ok := seen[n]; ok {
				continue
			}
			seen[n] = struct{}{}
			queue = append(queue, n)
		}
	}
}
