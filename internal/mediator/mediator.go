// Package mediator settles conflicts between two agents heading for goals
// within sight of each other. The agent closer to its goal keeps it; the
// other drops its route and tries to blacklist the contested area.
package mediator

import "github.com/dyluth/swarm/pkg/grid"

// Party is the view of an agent the mediator needs.
type Party interface {
	ID() string
	Goal() grid.Cell
	DistanceToGoal() float64
	Blacklist(c grid.Cell) bool
	ClearPath()
}

type pairKey struct {
	lo, hi string
}

func keyOf(a, b Party) pairKey {
	if a.ID() < b.ID() {
		return pairKey{a.ID(), b.ID()}
	}
	return pairKey{b.ID(), a.ID()}
}

// Mediator remembers which pairs it has already handled. Use a fresh one per
// round so every pair is considered at most once per round.
type Mediator struct {
	checked  map[pairKey]struct{}
	resolved int
}

// New returns a mediator with no history.
func New() *Mediator {
	return &Mediator{checked: make(map[pairKey]struct{})}
}

// Mediate handles the pair (a, b) once. On ties a yields. It reports whether
// the yielding agent accepted the blacklist and must choose a new goal.
// Repeat calls for the same unordered pair do nothing and return false.
func (m *Mediator) Mediate(a, b Party) bool {
	key := keyOf(a, b)
	if _, ok := m.checked[key]; ok {
		return false
	}
	m.checked[key] = struct{}{}

	keeper, yielder := b, a
	if a.DistanceToGoal() < b.DistanceToGoal() {
		keeper, yielder = a, b
	}

	yielder.ClearPath()
	if !yielder.Blacklist(keeper.Goal()) {
		return false
	}
	m.resolved++
	return true
}

// Checked reports whether the pair has been handled.
func (m *Mediator) Checked(a, b Party) bool {
	_, ok := m.checked[keyOf(a, b)]
	return ok
}

// Resolved returns how many mediations ended in a re-plan.
func (m *Mediator) Resolved() int {
	return m.resolved
}
