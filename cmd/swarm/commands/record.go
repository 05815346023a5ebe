package commands

import (
	"context"
	"time"

	"github.com/dyluth/swarm/internal/simulator"
	"github.com/dyluth/swarm/pkg/blackboard"
)

// recorder mirrors a running simulation onto the blackboard: the run record,
// a snapshot every `every` rounds plus the last one, and the combined
// knowledge once the run ends.
type recorder struct {
	client     *blackboard.Client
	sim        *simulator.Simulator
	run        *blackboard.Run
	every      int
	last       simulator.RoundReport
	saved      int
	discovered map[string]int
}

func startRecording(ctx context.Context, client *blackboard.Client, sim *simulator.Simulator, mapPath string, every int) (*recorder, error) {
	cfg := sim.Config()
	_, pathable := sim.Explored()
	run := &blackboard.Run{
		ID:          sim.ID(),
		MapPath:     mapPath,
		Width:       sim.World().Width(),
		Height:      sim.World().Height(),
		Start:       cfg.Start,
		Agents:      cfg.Agents,
		SightRadius: cfg.SightRadius,
		Sharing:     string(cfg.Sharing),
		Scoring:     string(cfg.Scoring),
		Seed:        cfg.Seed,
		Status:      blackboard.RunStatusRunning,
		Pathable:    pathable,
		StartedAtMs: time.Now().UnixMilli(),
	}
	if err := client.CreateRun(ctx, run); err != nil {
		return nil, err
	}
	return &recorder{
		client:     client,
		sim:        sim,
		run:        run,
		every:      every,
		discovered: make(map[string]int),
	}, nil
}

// observe records one finished round. discovered holds the cells each agent
// found this round.
func (r *recorder) observe(ctx context.Context, report simulator.RoundReport, discovered map[string]int) error {
	for id, n := range discovered {
		r.discovered[id] += n
	}
	r.last = report

	if report.Complete || (r.every > 0 && report.Round%r.every == 0) {
		return r.snapshot(ctx)
	}
	return nil
}

func (r *recorder) snapshot(ctx context.Context) error {
	explored, _ := r.sim.Explored()
	s := &blackboard.RoundSnapshot{
		RunID:        r.run.ID,
		Round:        r.last.Round,
		NewScans:     r.last.NewScans,
		Mediations:   r.last.Mediations,
		DropsAvoided: r.last.DropsAvoided,
		Moves:        r.last.Moves,
		Finished:     r.last.Finished,
		Complete:     r.last.Complete,
		Explored:     explored,
		CreatedAtMs:  time.Now().UnixMilli(),
	}
	for _, a := range r.sim.Agents() {
		s.Agents = append(s.Agents, blackboard.AgentSnapshot{
			ID:         a.ID(),
			State:      a.State().String(),
			Position:   a.Position(),
			Goal:       a.Goal(),
			Scans:      a.Scans(),
			Moves:      a.Moves(),
			Discovered: r.discovered[a.ID()],
		})
	}
	if err := r.client.SaveRound(ctx, s); err != nil {
		return err
	}
	r.saved = s.Round
	return nil
}

// finish stores the final state and marks the run complete, or failed with
// runErr.
func (r *recorder) finish(ctx context.Context, runErr error) error {
	if r.last.Round > 0 && r.saved != r.last.Round {
		if err := r.snapshot(ctx); err != nil {
			return err
		}
	}
	if err := r.client.SaveKnowledge(ctx, r.run.ID, r.sim.Combined()); err != nil {
		return err
	}

	r.run.Rounds = r.sim.Rounds()
	r.run.Explored, _ = r.sim.Explored()
	r.run.FinishedAtMs = time.Now().UnixMilli()
	r.run.Status = blackboard.RunStatusComplete
	if runErr != nil {
		r.run.Status = blackboard.RunStatusFailed
		r.run.Error = runErr.Error()
	}
	return r.client.UpdateRun(ctx, r.run)
}
