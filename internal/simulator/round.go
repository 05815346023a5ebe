package simulator

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/dyluth/swarm/internal/agent"
	"github.com/dyluth/swarm/internal/geometry"
	"github.com/dyluth/swarm/internal/mediator"
)

// RoundReport summarises one round.
type RoundReport struct {
	Round        int  `json:"round"`
	Exchanged    int  `json:"exchanged"`
	Mediations   int  `json:"mediations"`
	DropsAvoided int  `json:"drops_avoided"`
	NewScans     int  `json:"new_scans"`
	Moves        int  `json:"moves"`
	Finished     int  `json:"finished"`
	Complete     bool `json:"complete"`
}

// Progress is false when the round completed no scans and settled no
// conflicts. Such rounds change nothing worth redrawing.
func (r RoundReport) Progress() bool {
	return r.NewScans > 0 || r.Mediations > 0 || r.DropsAvoided > 0
}

// Round plays one share, mediate, compute, apply cycle. Once started a round
// always runs to the end; ctx is only checked before it begins. A returned
// error is fatal to the simulation.
func (s *Simulator) Round(ctx context.Context) (RoundReport, error) {
	if err := ctx.Err(); err != nil {
		return RoundReport{}, err
	}
	s.round++
	report := RoundReport{Round: s.round}

	report.Exchanged = s.share()
	report.DropsAvoided = s.avoidDrops()
	report.Mediations = s.mediate()

	scansBefore := s.totalScans()
	if err := s.compute(); err != nil {
		return report, err
	}
	report.NewScans = s.totalScans() - scansBefore

	report.Moves = s.apply()
	for _, a := range s.agents {
		if a.Finished() {
			report.Finished++
		}
	}
	report.Complete = report.Finished == len(s.agents)

	s.log.WithFields(logrus.Fields{
		"event_type": "round_completed",
		"round":      report.Round,
		"new_scans":  report.NewScans,
		"mediations": report.Mediations,
		"moves":      report.Moves,
		"finished":   report.Finished,
	}).Debug("round_completed")
	return report, nil
}

// peers returns the unfinished agents a can exchange with this round.
func (s *Simulator) peers(a *agent.Agent) []*agent.Agent {
	var out []*agent.Agent
	for _, p := range s.agents {
		if p != a && !p.Finished() && s.inRange(a, p) {
			out = append(out, p)
		}
	}
	return out
}

// inRange reports whether a can reach p under the sharing mode.
func (s *Simulator) inRange(a, p *agent.Agent) bool {
	if s.cfg.Sharing == SharingGlobal {
		return true
	}
	if a.Position().Distance(p.Position()) >= s.cfg.BroadcastRadius {
		return false
	}
	return !s.cfg.LineOfSight || s.inSight(a, p)
}

// inSight reports whether the straight line from a to p crosses only cells
// a knows to be open.
func (s *Simulator) inSight(a, p *agent.Agent) bool {
	k := a.Knowledge()
	for _, c := range geometry.RayBetween(a.Position(), p.Position()) {
		if !k.Pathable(c) {
			return false
		}
	}
	return true
}

// share drains every active agent's queues into its peers and back.
func (s *Simulator) share() int {
	exchanged := 0
	for _, a := range s.agents {
		if !a.State().Active() {
			continue
		}
		for _, p := range s.peers(a) {
			exchanged += p.Receive(a.ID(), a.DrainFor(p.ID()))
			exchanged += a.Receive(p.ID(), p.DrainFor(a.ID()))
		}
	}
	return exchanged
}

// avoidDrops lets each agent react to drops left nearby by others.
func (s *Simulator) avoidDrops() int {
	if !s.cfg.Drops || s.cfg.Sharing != SharingLocal || len(s.drops) == 0 {
		return 0
	}
	avoided := 0
	for _, a := range s.agents {
		var local []agent.Drop
		for _, d := range s.drops {
			if d.Cell.Distance(a.Position()) < s.cfg.BroadcastRadius {
				local = append(local, d)
			}
		}
		if a.AvoidDrops(local) {
			avoided++
		}
	}
	return avoided
}

// mediate settles goal conflicts until a full pass changes nothing. Each
// unordered pair is handled at most once per round, so this terminates.
func (s *Simulator) mediate() int {
	m := mediator.New()
	radius := float64(s.cfg.SightRadius)

	for {
		progress := false
		for i, a := range s.agents {
			for _, b := range s.agents[i+1:] {
				if !a.State().Active() || !b.State().Active() || m.Checked(a, b) {
					continue
				}
				if !s.inRange(a, b) || a.Goal().Distance(b.Goal()) > radius {
					continue
				}
				if m.Mediate(a, b) {
					progress = true
					s.logEvent("mediation_resolved", logrus.Fields{
						"round":  s.round,
						"agents": []string{a.ID(), b.ID()},
						"goal_a": a.Goal().String(),
						"goal_b": b.Goal().String(),
					})
				}
			}
		}
		if !progress {
			return m.Resolved()
		}
	}
}

// compute runs every active agent's turn in parallel and waits for all of
// them, or for the turn timeout.
func (s *Simulator) compute() error {
	var g errgroup.Group
	if s.cfg.Workers > 0 {
		g.SetLimit(s.cfg.Workers)
	}

	done := make(chan error, 1)
	go func() {
		for _, a := range s.agents {
			if !a.State().Active() {
				continue
			}
			g.Go(a.Turn)
		}
		done <- g.Wait()
	}()

	timer := time.NewTimer(s.cfg.TurnTimeout)
	defer timer.Stop()

	select {
	case err := <-done:
		if err != nil {
			s.logEvent("turn_failed", logrus.Fields{"round": s.round, "error": err.Error()})
			return fmt.Errorf("round %d: %w", s.round, err)
		}
		return nil
	case <-timer.C:
		s.logEvent("compute_timeout", logrus.Fields{"round": s.round, "timeout": s.cfg.TurnTimeout.String()})
		return fmt.Errorf("round %d: %w after %s", s.round, ErrComputeTimeout, s.cfg.TurnTimeout)
	}
}

// apply steps every agent along its path and collects new drops.
func (s *Simulator) apply() int {
	moves := 0
	for _, a := range s.agents {
		if a.Advance() {
			moves++
		}
		if d, ok := a.TakeDrop(); ok {
			s.drops = append(s.drops, d)
		}
		if a.Finished() && !s.finished[a.ID()] {
			s.finished[a.ID()] = true
			s.logEvent("agent_finished", logrus.Fields{
				"agent": a.ID(),
				"round": s.round,
				"moves": a.Moves(),
				"scans": a.Scans(),
			})
		}
	}
	return moves
}

func (s *Simulator) totalScans() int {
	n := 0
	for _, a := range s.agents {
		n += a.Scans()
	}
	return n
}
