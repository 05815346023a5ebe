package agent

import (
	"github.com/sirupsen/logrus"

	"github.com/dyluth/swarm/pkg/grid"
)

// Drop is a marker an agent leaves where it committed to a new goal, telling
// others the surrounding area has already been claimed.
type Drop struct {
	Cell  grid.Cell `json:"cell"`
	Owner string    `json:"owner"`
}

// scan asks the sensor for everything visible from the current position.
func (a *Agent) scan() {
	var added []grid.Cell
	a.sensor.Scan(a.position, a.cfg.SightRadius, func(c grid.Cell, pathable bool) {
		if a.knowledge.Known(c) {
			return
		}
		a.knowledge[c] = pathable
		a.queue(c, "")
		a.discovered = append(a.discovered, c)
		added = append(added, c)
	})
	a.scans++
	a.reflow(added)
	a.log.WithFields(logrus.Fields{"at": a.position, "new_cells": len(added)}).Debug("Scanned")
}

// queue records c as unshared with every peer except skip.
func (a *Agent) queue(c grid.Cell, skip string) {
	for _, peer := range a.peers {
		if peer != skip {
			a.caches[peer].Add(c)
		}
	}
}

// DrainFor returns everything learned since the last exchange with peer and
// empties that queue.
func (a *Agent) DrainFor(peer string) grid.Knowledge {
	pending := a.caches[peer]
	if len(pending) == 0 {
		return nil
	}
	out := make(grid.Knowledge, len(pending))
	for c := range pending {
		out[c] = a.knowledge[c]
	}
	a.caches[peer] = make(grid.Set)
	return out
}

// Receive merges cells shared by peer. Newly learned cells are relayed to
// every other peer and the distance field is updated. It returns the number
// of cells that were new.
func (a *Agent) Receive(from string, cells grid.Knowledge) int {
	if len(cells) == 0 {
		return 0
	}
	added := a.knowledge.Merge(cells)
	for _, c := range added {
		a.queue(c, from)
	}
	a.reflow(added)
	return len(added)
}

// Blacklist refuses c as a goal and forces a re-plan from scratch. It is
// refused when a whitelisted cell lies within sight radius of c, or when c
// is already blacklisted.
func (a *Agent) Blacklist(c grid.Cell) bool {
	radius := float64(a.cfg.SightRadius)
	for w := range a.whitelist {
		if w.Distance(c) < radius {
			return false
		}
	}
	if a.blacklist.Has(c) {
		return false
	}

	a.blacklist.Add(c)
	a.mediated = true
	a.state = Exploring
	a.goal = a.cfg.Start
	a.path = nil
	a.log.WithField("cell", c).Debug("Blacklisted goal area")
	return true
}

// ClearPath drops the planned route so the next turn plans again.
func (a *Agent) ClearPath() {
	a.path = nil
}

func (a *Agent) leaveDrop() {
	if !a.cfg.Drops {
		return
	}
	c := a.position
	a.drop = &c
}

// TakeDrop returns the drop left during the last turn, if any.
func (a *Agent) TakeDrop() (Drop, bool) {
	if a.drop == nil {
		return Drop{}, false
	}
	d := Drop{Cell: *a.drop, Owner: a.id}
	a.drop = nil
	return d, true
}

// AvoidDrops blacklists the first drop left by another agent that lies
// within sight radius of the current goal.
func (a *Agent) AvoidDrops(drops []Drop) bool {
	if !a.state.Active() {
		return false
	}
	radius := float64(a.cfg.SightRadius)
	for _, d := range drops {
		if d.Owner == a.id || d.Cell.Distance(a.goal) > radius {
			continue
		}
		if a.Blacklist(d.Cell) {
			a.log.WithField("drop", d.Cell).Info("Found drop near goal, re-planning")
			return true
		}
		return false
	}
	return false
}

// reflow extends the distance-from-start field after cells were learned.
// Relaxation is seeded from known distances next to the new cells, so
// only the affected region is revisited.
func (a *Agent) reflow(added []grid.Cell) {
	var queue []grid.Cell
	for _, c := range added {
		if !a.knowledge.Pathable(c) {
			continue
		}
		for _, n := range c.Neighbours() {
			if _, ok := a.distances[n]; ok && a.knowledge.Pathable(n) {
				queue = append(queue, n)
			}
		}
	}

	for len(queue) > 0 {
		c := queue[0]
		queue = queue[1:]
		d := a.distances[c] + 1
		for _, n := range c.Neighbours() {
			if !a.knowledge.Pathable(n) {
				continue
			}
			if cur, ok := a.distances[n]; ok && cur <= d {
				continue
			}
			a.distances[n] = d
			queue = append(queue, n)
		}
	}
}
