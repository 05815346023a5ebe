package simulator

import (
	"github.com/dyluth/swarm/internal/geometry"
	"github.com/dyluth/swarm/pkg/grid"
)

// Scanner reveals ground truth to agents. It floods the visibility rays of
// the sight radius outward from the agent and stops each ray at the first
// blocked cell. Walls directly beside a visible open cell are reported too,
// since their faces are in view. Cells outside the map read as walls.
type Scanner struct {
	world *grid.Occupancy
	geo   *geometry.Cache
}

// NewScanner returns a scanner over world.
func NewScanner(world *grid.Occupancy, geo *geometry.Cache) *Scanner {
	return &Scanner{world: world, geo: geo}
}

// Scan implements agent.Sensor.
func (s *Scanner) Scan(center grid.Cell, radius int, record func(grid.Cell, bool)) {
	s.geo.Visibility(center, radius).Flood(func(c grid.Cell) bool {
		open := s.world.Pathable(c)
		record(c, open)
		if !open {
			return false
		}
		for _, n := range c.Neighbours() {
			if !s.world.Pathable(n) {
				record(n, false)
			}
		}
		return true
	})
}
