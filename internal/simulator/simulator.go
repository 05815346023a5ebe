// Package simulator drives a swarm of agents over a ground-truth grid in
// bulk-synchronous rounds: share, mediate, compute, apply.
//
// The ground truth and geometry cache are shared read-only. Every agent's
// mutable state is touched either by the single controlling goroutine (the
// share, mediate and apply phases) or by exactly one worker goroutine in
// the compute phase, never both at once.
package simulator

import (
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/dyluth/swarm/internal/agent"
	"github.com/dyluth/swarm/internal/geometry"
	"github.com/dyluth/swarm/pkg/grid"
)

var (
	// ErrComputeTimeout means agent turns did not finish within the turn
	// timeout. The simulation cannot continue.
	ErrComputeTimeout = errors.New("agent turns did not complete in time")

	// ErrRoundLimit means Run hit its round limit before every agent finished.
	ErrRoundLimit = errors.New("round limit reached before exploration completed")
)

// Sharing selects who agents exchange knowledge with.
type Sharing string

const (
	// SharingLocal exchanges only with peers inside the broadcast radius.
	SharingLocal Sharing = "local"
	// SharingGlobal exchanges with every unfinished peer every round.
	SharingGlobal Sharing = "global"
)

// Config holds the scalar settings of a simulation. Zero values take defaults.
type Config struct {
	Agents           int
	Start            grid.Cell
	SightRadius      int
	BroadcastRadius  float64
	LineOfSight      bool
	Sharing          Sharing
	Drops            bool
	SoftCap          int
	StagnationCutoff int
	Scoring          agent.Scoring
	RandomBest       int
	Seed             int64
	TurnTimeout      time.Duration
	Workers          int
	MaxRounds        int
}

func (c *Config) applyDefaults() {
	if c.Agents == 0 {
		c.Agents = 5
	}
	if c.SightRadius == 0 {
		c.SightRadius = 20
	}
	if c.BroadcastRadius == 0 {
		c.BroadcastRadius = float64(2 * c.SightRadius)
	}
	if c.Sharing == "" {
		c.Sharing = SharingLocal
	}
	if c.SoftCap == 0 {
		c.SoftCap = 200
	}
	if c.StagnationCutoff == 0 {
		c.StagnationCutoff = 50
	}
	if c.Scoring == "" {
		c.Scoring = agent.ScoreFrontier
	}
	if c.RandomBest == 0 {
		c.RandomBest = 1
	}
	if c.TurnTimeout == 0 {
		c.TurnTimeout = 2 * time.Minute
	}
}

func (c *Config) validate(world *grid.Occupancy) error {
	if c.Agents < 1 {
		return fmt.Errorf("agents must be at least 1 (got %d)", c.Agents)
	}
	if c.SightRadius < 1 {
		return fmt.Errorf("sight radius must be positive (got %d)", c.SightRadius)
	}
	if c.BroadcastRadius <= 0 {
		return fmt.Errorf("broadcast radius must be positive (got %v)", c.BroadcastRadius)
	}
	if c.Sharing != SharingLocal && c.Sharing != SharingGlobal {
		return fmt.Errorf("unknown sharing mode %q", c.Sharing)
	}
	if c.SoftCap < 0 || c.StagnationCutoff < 0 || c.RandomBest < 1 || c.Workers < 0 {
		return fmt.Errorf("soft cap, stagnation cutoff and workers must not be negative, random best must be at least 1")
	}
	if !world.Pathable(c.Start) {
		return fmt.Errorf("start %v is not a pathable cell of the %dx%d map", c.Start, world.Width(), world.Height())
	}
	return nil
}

// Simulator owns the agents and the ground truth for one run.
type Simulator struct {
	id      string
	cfg     Config
	world   *grid.Occupancy
	geo     *geometry.Cache
	scanner *Scanner
	log     *logrus.Entry

	agents    []*agent.Agent
	drops     []agent.Drop
	round     int
	finished  map[string]bool
	reachable int
}

// New builds a simulator with cfg.Agents agents standing on cfg.Start. A nil
// logger discards output.
func New(world *grid.Occupancy, cfg Config, logger *logrus.Logger) (*Simulator, error) {
	if world == nil {
		return nil, grid.ErrEmptyGrid
	}
	cfg.applyDefaults()
	if err := cfg.validate(world); err != nil {
		return nil, fmt.Errorf("invalid simulation config: %w", err)
	}
	if logger == nil {
		logger = logrus.New()
		logger.SetOutput(io.Discard)
	}

	geo := geometry.NewCache()
	s := &Simulator{
		id:        uuid.New().String(),
		cfg:       cfg,
		world:     world,
		geo:       geo,
		scanner:   NewScanner(world, geo),
		finished:  make(map[string]bool),
		reachable: len(world.Reachable(cfg.Start)),
	}
	s.log = logger.WithFields(logrus.Fields{"component": "simulator", "run_id": s.id})

	for i := 0; i < cfg.Agents; i++ {
		id := fmt.Sprintf("agent-%d", i+1)
		s.agents = append(s.agents, agent.New(id, agent.Config{
			Start:            cfg.Start,
			SightRadius:      cfg.SightRadius,
			SoftCap:          cfg.SoftCap,
			StagnationCutoff: cfg.StagnationCutoff,
			Scoring:          cfg.Scoring,
			RandomBest:       cfg.RandomBest,
			Seed:             cfg.Seed + int64(i),
			Drops:            cfg.Drops && cfg.Sharing == SharingLocal,
		}, s.scanner, geo, s.log))
	}
	for _, a := range s.agents {
		for _, p := range s.agents {
			a.AddPeer(p.ID())
		}
	}

	s.logEvent("simulation_started", logrus.Fields{
		"agents":       cfg.Agents,
		"start":        cfg.Start.String(),
		"sight_radius": cfg.SightRadius,
		"sharing":      string(cfg.Sharing),
		"width":        world.Width(),
		"height":       world.Height(),
	})
	return s, nil
}

// ID returns the run identifier.
func (s *Simulator) ID() string { return s.id }

// Config returns the effective configuration, defaults applied.
func (s *Simulator) Config() Config { return s.cfg }

// World returns the ground truth.
func (s *Simulator) World() *grid.Occupancy { return s.world }

// Rounds returns the number of rounds played.
func (s *Simulator) Rounds() int { return s.round }

// Agents returns the agents in a stable order. Callers must only read from
// them between rounds.
func (s *Simulator) Agents() []*agent.Agent { return s.agents }

// Drops returns the drop markers placed so far.
func (s *Simulator) Drops() []agent.Drop {
	return append([]agent.Drop(nil), s.drops...)
}

// Complete reports whether every agent is finished.
func (s *Simulator) Complete() bool {
	for _, a := range s.agents {
		if !a.Finished() {
			return false
		}
	}
	return true
}

// logEvent emits one structured lifecycle event.
func (s *Simulator) logEvent(eventType string, fields logrus.Fields) {
	s.log.WithField("event_type", eventType).WithFields(fields).Info(eventType)
}
