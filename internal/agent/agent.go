// Package agent implements a single explorer: what it knows, where it is
// heading, and the state machine that decides when to scan, where to go
// next and when to head home.
//
// An Agent is not safe for concurrent use. The simulator guarantees that
// only one goroutine touches a given agent at a time: Turn runs in the
// parallel compute phase, everything else runs in the serial phases.
package agent

import (
	"fmt"
	"io"
	"math/rand"

	"github.com/sirupsen/logrus"

	"github.com/dyluth/swarm/internal/frontier"
	"github.com/dyluth/swarm/internal/geometry"
	"github.com/dyluth/swarm/internal/pathing"
	"github.com/dyluth/swarm/pkg/grid"
)

// Sensor reveals ground truth around a position. record is called for every
// cell the sensor observes.
type Sensor interface {
	Scan(center grid.Cell, radius int, record func(c grid.Cell, pathable bool))
}

// Config is the per-agent policy.
type Config struct {
	Start            grid.Cell
	SightRadius      int
	SoftCap          int
	StagnationCutoff int
	Scoring          Scoring
	RandomBest       int
	Seed             int64
	Drops            bool
}

// Agent is one explorer.
type Agent struct {
	id     string
	cfg    Config
	sensor Sensor
	geo    *geometry.Cache
	rng    *rand.Rand
	log    *logrus.Entry

	state    State
	position grid.Cell
	goal     grid.Cell
	path     []grid.Cell
	mediated bool

	knowledge grid.Knowledge
	distances map[grid.Cell]int
	blacklist grid.Set
	whitelist grid.Set
	caches    map[string]grid.Set
	peers     []string

	scans int
	moves int

	discovered []grid.Cell
	taken      []grid.Cell
	drop       *grid.Cell
}

// New places an agent at cfg.Start, which it knows to be pathable. The start
// cell is whitelisted so it can never be blacklisted by mediation.
func New(id string, cfg Config, sensor Sensor, geo *geometry.Cache, log *logrus.Entry) *Agent {
	if cfg.Scoring == "" {
		cfg.Scoring = ScoreFrontier
	}
	if log == nil {
		l := logrus.New()
		l.SetOutput(io.Discard)
		log = logrus.NewEntry(l)
	}

	a := &Agent{
		id:        id,
		cfg:       cfg,
		sensor:    sensor,
		geo:       geo,
		rng:       rand.New(rand.NewSource(cfg.Seed)),
		log:       log.WithField("agent", id),
		state:     Exploring,
		position:  cfg.Start,
		goal:      cfg.Start,
		knowledge: grid.Knowledge{cfg.Start: true},
		distances: map[grid.Cell]int{cfg.Start: 0},
		blacklist: make(grid.Set),
		whitelist: grid.NewSet(cfg.Start),
		caches:    make(map[string]grid.Set),
	}
	a.log.WithField("start", cfg.Start).Debug("Agent initialised")
	return a
}

// AddPeer starts tracking what has not yet been shared with peer.
func (a *Agent) AddPeer(peer string) {
	if peer == a.id {
		return
	}
	if _, ok := a.caches[peer]; ok {
		return
	}
	a.caches[peer] = make(grid.Set)
	a.peers = append(a.peers, peer)
}

func (a *Agent) ID() string { return a.id }
func (a *Agent) State() State { return a.state }
func (a *Agent) Position() grid.Cell { return a.position }
func (a *Agent) Goal() grid.Cell { return a.goal }
func (a *Agent) Start() grid.Cell { return a.cfg.Start }
func (a *Agent) Scans() int { return a.scans }
func (a *Agent) Moves() int { return a.moves }
func (a *Agent) Finished() bool { return a.state == Finished }
func (a *Agent) Knowledge() grid.Knowledge { return a.knowledge }

// Path returns a copy of the remaining planned route.
func (a *Agent) Path() []grid.Cell {
	return append([]grid.Cell(nil), a.path...)
}

// DistanceFromStart returns the hop distance from start through known
// pathable cells, if one is known.
func (a *Agent) DistanceFromStart(c grid.Cell) (int, bool) {
	d, ok := a.distances[c]
	return d, ok
}

// DistanceToGoal is the straight-line distance from position to goal.
func (a *Agent) DistanceToGoal() float64 {
	return a.position.Distance(a.goal)
}

// Blacklisted reports whether c is currently refused as a goal.
func (a *Agent) Blacklisted(c grid.Cell) bool { return a.blacklist.Has(c) }

// Whitelisted reports whether c has been explicitly permitted as a goal.
func (a *Agent) Whitelisted(c grid.Cell) bool { return a.whitelist.Has(c) }

// DrainDiscovered returns the cells this agent has scanned since the last
// call, and forgets them.
func (a *Agent) DrainDiscovered() []grid.Cell {
	out := a.discovered
	a.discovered = nil
	return out
}

// DrainPathTaken returns the cells stepped onto since the last call, and
// forgets them.
func (a *Agent) DrainPathTaken() []grid.Cell {
	out := a.taken
	a.taken = nil
	return out
}

// Turn runs one decision step: scan on arrival, search the frontier and
// commit to a goal. It touches only this agent's own state and the
// read-only sensor.
func (a *Agent) Turn() error {
	if !a.state.Active() {
		return nil
	}
	if a.state == Following && len(a.path) > 0 && a.knowledge.HasUnknownNeighbour(a.goal) {
		return nil
	}

	if a.mediated {
		a.mediated = false
	} else if a.position == a.goal {
		a.scan()
	}

	res := frontier.Search(frontier.Params{
		Position:         a.position,
		Knowledge:        a.knowledge,
		Blacklist:        a.blacklist,
		SightRadius:      float64(a.cfg.SightRadius),
		SoftCap:          a.cfg.SoftCap,
		StagnationCutoff: a.cfg.StagnationCutoff,
	})
	return a.choose(res)
}

func (a *Agent) choose(res frontier.Result) error {
	switch {
	case len(res.Legal) > 0:
		m := a.pick(res.Legal)
		a.leaveDrop()
		a.log.WithFields(logrus.Fields{"goal": m.Cell, "from": a.position}).Debug("Moving to frontier")
		return a.head(m.Cell, Following)

	case len(res.Restricted) > 0:
		m := a.pick(res.Restricted)
		radius := float64(a.cfg.SightRadius)
		for b := range a.blacklist {
			if b.Distance(m.Cell) < radius {
				a.blacklist.Remove(b)
				a.whitelist.Add(b)
			}
		}
		a.whitelist.Add(m.Cell)
		a.leaveDrop()
		a.log.WithFields(logrus.Fields{"goal": m.Cell, "from": a.position}).Debug("Whitelisting restricted frontier")
		return a.head(m.Cell, Following)
	}

	a.log.WithFields(logrus.Fields{"start": a.cfg.Start, "from": a.position}).Debug("Nothing left to explore, returning")
	return a.head(a.cfg.Start, Returning)
}

func (a *Agent) head(target grid.Cell, next State) error {
	route, err := pathing.Path(a.position, target, a.knowledge)
	if err != nil {
		return fmt.Errorf("agent %s: %w", a.id, err)
	}
	a.path = route
	a.goal = target
	a.state = next
	return nil
}

// Advance applies one step of the planned path and settles the state
// machine. It reports whether the agent moved.
func (a *Agent) Advance() bool {
	if a.state == Finished {
		return false
	}

	moved := false
	if len(a.path) > 0 {
		a.position = a.path[0]
		a.path = a.path[1:]
		a.moves++
		a.taken = append(a.taken, a.position)
		moved = true
	}

	if len(a.path) == 0 {
		switch {
		case a.state == Following:
			a.state = Exploring
		case a.state == Returning && a.position == a.cfg.Start:
			a.state = Finished
			a.log.WithFields(logrus.Fields{"moves": a.moves, "scans": a.scans}).Info("Agent returned to start")
		}
	}
	return moved
}
