// Package pathing finds shortest 4-connected routes through the cells an
// agent already knows to be pathable.
package pathing

import (
	"container/heap"
	"errors"
	"fmt"

	"github.com/dyluth/swarm/pkg/grid"
)

// ErrUnreachable means no route exists through known-pathable cells. Goals
// are always picked from known territory connected to the agent, so callers
// treat this as an invariant violation rather than a retryable condition.
var ErrUnreachable = errors.New("goal unreachable through known cells")

// Path returns the cells from start (exclusive) to goal (inclusive). Every
// returned cell is pathable in k; start itself need not be known. The
// route is as short as possible: priority is steps taken plus the straight
// line distance to goal, which never overestimates on a unit-cost grid.
func Path(start, goal grid.Cell, k grid.Knowledge) ([]grid.Cell, error) {
	if start == goal {
		return []grid.Cell{}, nil
	}
	if !k.Pathable(goal) {
		return nil, fmt.Errorf("%w: %v to %v", ErrUnreachable, start, goal)
	}

	best := map[grid.Cell]int{start: 0}
	closed := make(grid.Set)
	open := &queue{}
	heap.Push(open, &entry{cell: start, priority: start.Distance(goal)})

	for open.Len() > 0 {
		cur := heap.Pop(open).(*entry)
		if cur.cell == goal {
			return cur.history, nil
		}
		if closed.Has(cur.cell) {
			continue
		}
		closed.Add(cur.cell)

		steps := len(cur.history) + 1
		for _, n := range cur.cell.Neighbours() {
			if closed.Has(n) || !k.Pathable(n) {
				continue
			}
			if prev, ok := best[n]; ok && prev <= steps {
				continue
			}
			best[n] = steps

			history := make([]grid.Cell, steps)
			copy(history, cur.history)
			history[steps-1] = n
			heap.Push(open, &entry{
				cell:     n,
				history:  history,
				priority: float64(steps) + n.Distance(goal),
			})
		}
	}

	return nil, fmt.Errorf("%w: %v to %v", ErrUnreachable, start, goal)
}

// entry is one open-set node; it carries the full route that reached it.
type entry struct {
	cell     grid.Cell
	history  []grid.Cell
	priority float64
	index    int
}

// queue is a min-heap of entries ordered by priority.
type queue []*entry

func (q queue) Len() int { return len(q) }

func (q queue) Less(i, j int) bool {
	return q[i].priority < q[j].priority
}

func (q queue) Swap(i, j int) {
	q[i], q[j] = q[j], q[i]
	q[i].index = i
	q[j].index = j
}

func (q *queue) Push(x any) {
	e := x.(*entry)
	e.index = len(*q)
	*q = append(*q, e)
}

func (q *queue) Pop() any {
	old := *q
	n := len(old)
	e := old[n-1]
	old[n-1] = nil
	e.index = -1
	*q = old[:n-1]
	return e
}
