// Package grid defines the value types shared by every part of the
// exploration engine: integer cells, the read-only ground-truth occupancy
// grid, and the per-agent partial knowledge map.
//
// Cell is a comparable value type and is safe to use as a map key. Occupancy
// is immutable after construction and may be shared by reference between
// goroutines without synchronisation. Knowledge is not safe for concurrent
// mutation; each agent owns its own.
package grid
