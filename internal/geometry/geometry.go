// Package geometry computes discretised circles and straight-line rays on
// the grid, and the visibility graph that scanning and discoverability
// estimates flood through.
//
// All shapes are computed once per radius around the origin and translated
// on demand. A Cache is owned by whoever drives the simulation and passed
// to the components that need it; it is safe for concurrent use.
package geometry

import (
	"math"
	"sync"

	"github.com/dyluth/swarm/pkg/grid"
)

// Cache memoises circle boundaries, rays and visibility graphs per radius.
type Cache struct {
	mu       sync.RWMutex
	circles  map[int][]grid.Cell
	graphs   map[int]*graph
	rayCache map[grid.Cell][]grid.Cell
}

// NewCache returns an empty cache.
func NewCache() *Cache {
	return &Cache{
		circles:  make(map[int][]grid.Cell),
		graphs:   make(map[int]*graph),
		rayCache: make(map[grid.Cell][]grid.Cell),
	}
}

// Arc returns the first-quadrant boundary offsets of a disc of the given
// radius. Starting at (0, radius) the horizontal offset steps outward while
// the squared distance stays within (radius + 0.5)^2, and the vertical offset
// drops when it does not. Each point is also added mirrored across y = x.
func Arc(radius int) []grid.Cell {
	if radius <= 0 {
		return nil
	}

	seen := make(map[grid.Cell]struct{})
	var out []grid.Cell
	add := func(c grid.Cell) {
		if _, ok := seen[c]; ok {
			return
		}
		seen[c] = struct{}{}
		out = append(out, c)
	}

	limit := (float64(radius) + 0.5) * (float64(radius) + 0.5)
	within := func(a, b int) bool {
		return float64(a*a+b*b) <= limit
	}

	a, b := 0, radius
	for b > 0 {
		for within(a, b) {
			add(grid.C(a, b))
			add(grid.C(b, a))
			a++
		}
		for b != 0 && !within(a, b) {
			b--
		}
	}
	return out
}

// Circle returns the boundary of a disc of the given radius centred on
// center: the arc reflected across both axes, then translated.
func (c *Cache) Circle(center grid.Cell, radius int) []grid.Cell {
	base := c.baseCircle(radius)
	out := make([]grid.Cell, len(base))
	for i, off := range base {
		out[i] = center.Add(off)
	}
	return out
}

func (c *Cache) baseCircle(radius int) []grid.Cell {
	c.mu.RLock()
	circle, ok := c.circles[radius]
	c.mu.RUnlock()
	if ok {
		return circle
	}

	seen := make(map[grid.Cell]struct{})
	for _, edge := range Arc(radius) {
		for _, r := range edge.Reflections() {
			if _, dup := seen[r]; dup {
				continue
			}
			seen[r] = struct{}{}
			circle = append(circle, r)
		}
	}

	c.mu.Lock()
	if existing, ok := c.circles[radius]; ok {
		circle = existing
	} else {
		c.circles[radius] = circle
	}
	c.mu.Unlock()
	return circle
}

// AngleBetween returns the bearing from a to b in radians, in (-π, π].
func AngleBetween(a, b grid.Cell) float64 {
	return math.Atan2(float64(b.Y-a.Y), float64(b.X-a.X))
}

// MostSimilarAngle picks whichever of two candidate steps points at goal
// on a bearing closest to target. A nil candidate is unavailable; a
// candidate equal to goal always wins. At least one candidate must be
// non-nil.
func MostSimilarAngle(a, b *grid.Cell, goal grid.Cell, target float64) grid.Cell {
	switch {
	case a == nil:
		return *b
	case *a == goal:
		return *a
	case b == nil:
		return *a
	case *b == goal:
		return *b
	}

	if angleDiff(AngleBetween(*a, goal), target) < angleDiff(AngleBetween(*b, goal), target) {
		return *a
	}
	return *b
}

// angleDiff is |x - y| folded into [0, π].
func angleDiff(x, y float64) float64 {
	d := math.Abs(x - y)
	if d > math.Pi {
		d = 2*math.Pi - d
	}
	return d
}

// Ray walks from the origin to end one axis step at a time, returning the
// cells visited excluding the origin and including end. Rays are cached by
// end offset.
func (c *Cache) Ray(end grid.Cell) []grid.Cell {
	c.mu.RLock()
	ray, ok := c.rayCache[end]
	c.mu.RUnlock()
	if ok {
		return ray
	}

	ray = walk(end)

	c.mu.Lock()
	c.rayCache[end] = ray
	c.mu.Unlock()
	return ray
}

// RayBetween is Ray translated to run from start to end. It is not cached.
func RayBetween(start, end grid.Cell) []grid.Cell {
	ray := walk(end.Sub(start))
	for i := range ray {
		ray[i] = ray[i].Add(start)
	}
	return ray
}

func walk(end grid.Cell) []grid.Cell {
	var origin grid.Cell
	target := AngleBetween(origin, end)
	dx, dy := sign(end.X), sign(end.Y)

	var ray []grid.Cell
	for cur := origin; cur != end; {
		var a, b *grid.Cell
		if cur.X != end.X {
			next := grid.C(cur.X+dx, cur.Y)
			a = &next
		}
		if cur.Y != end.Y {
			next := grid.C(cur.X, cur.Y+dy)
			b = &next
		}
		cur = MostSimilarAngle(a, b, end, target)
		ray = append(ray, cur)
	}
	return ray
}

func sign(v int) int {
	switch {
	case v > 0:
		return 1
	case v < 0:
		return -1
	}
	return 0
}
