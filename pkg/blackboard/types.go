package blackboard

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/dyluth/swarm/pkg/grid"
)

// Run is the record of one simulation.
type Run struct {
	ID           string    `json:"id"`              // UUID, shared with the simulator's run id
	MapPath      string    `json:"map_path"`        // Map file the ground truth was loaded from
	Width        int       `json:"width"`           // Map width in cells
	Height       int       `json:"height"`          // Map height in cells
	Start        grid.Cell `json:"start"`           // Cell every agent started on
	Agents       int       `json:"agents"`          // Team size
	SightRadius  int       `json:"sight_radius"`    // Scan radius in cells
	Sharing      string    `json:"sharing"`         // "local" or "global"
	Scoring      string    `json:"scoring"`         // Frontier scoring policy
	Seed         int64     `json:"seed"`            // Base RNG seed
	Status       RunStatus `json:"status"`          // Lifecycle state
	Rounds       int       `json:"rounds"`          // Rounds played so far
	Explored     int       `json:"explored"`        // Pathable cells the swarm knows
	Pathable     int       `json:"pathable"`        // Pathable cells in the map
	Error        string    `json:"error,omitempty"` // Failure reason when status=failed
	StartedAtMs  int64     `json:"started_at_ms"`   // Unix timestamp in milliseconds
	FinishedAtMs int64     `json:"finished_at_ms"`  // Zero while running
}

// RunStatus is the lifecycle state of a run.
type RunStatus string

const (
	// RunStatusRunning means rounds are still being played
	RunStatusRunning RunStatus = "running"

	// RunStatusComplete means every agent explored and returned to the start
	RunStatusComplete RunStatus = "complete"

	// RunStatusFailed means the run stopped early (round limit, timeout, interrupt)
	RunStatusFailed RunStatus = "failed"
)

// RoundSnapshot is the state of a run after one round.
type RoundSnapshot struct {
	RunID        string          `json:"run_id"`
	Round        int             `json:"round"`
	NewScans     int             `json:"new_scans"`
	Mediations   int             `json:"mediations"`
	DropsAvoided int             `json:"drops_avoided"`
	Moves        int             `json:"moves"`
	Finished     int             `json:"finished"`
	Complete     bool            `json:"complete"`
	Explored     int             `json:"explored"`
	Agents       []AgentSnapshot `json:"agents"`
	CreatedAtMs  int64           `json:"created_at_ms"`
}

// AgentSnapshot is one agent's public state after a round.
type AgentSnapshot struct {
	ID         string    `json:"id"`
	State      string    `json:"state"`
	Position   grid.Cell `json:"position"`
	Goal       grid.Cell `json:"goal"`
	Scans      int       `json:"scans"`
	Moves      int       `json:"moves"`
	Discovered int       `json:"discovered"` // Cells this agent has discovered so far
}

// EventType distinguishes the messages on the run events channel.
type EventType string

const (
	EventRunStarted  EventType = "run_started"
	EventRound       EventType = "round"
	EventRunFinished EventType = "run_finished"
)

// Event is one message on the run events channel. Run is set for run
// events and Round for round events.
type Event struct {
	Type  EventType      `json:"type"`
	Run   *Run           `json:"run,omitempty"`
	Round *RoundSnapshot `json:"round,omitempty"`
}

// Validate checks if the Run has valid field values.
func (r *Run) Validate() error {
	if !isValidUUID(r.ID) {
		return fmt.Errorf("invalid run ID: not a valid UUID")
	}

	if r.Agents < 1 {
		return fmt.Errorf("invalid agents: must be >= 1, got %d", r.Agents)
	}

	if err := r.Status.Validate(); err != nil {
		return fmt.Errorf("invalid status: %w", err)
	}

	if r.Rounds < 0 {
		return fmt.Errorf("invalid rounds: must be >= 0, got %d", r.Rounds)
	}

	if r.StartedAtMs <= 0 {
		return fmt.Errorf("started_at_ms must be set")
	}

	return nil
}

// Terminal reports whether the run has stopped.
func (s RunStatus) Terminal() bool {
	return s == RunStatusComplete || s == RunStatusFailed
}

// Validate checks if the RunStatus is a valid enum value.
func (s RunStatus) Validate() error {
	switch s {
	case RunStatusRunning, RunStatusComplete, RunStatusFailed:
		return nil
	default:
		return fmt.Errorf("unknown run status: %q", s)
	}
}

// Validate checks if the RoundSnapshot has valid field values.
func (s *RoundSnapshot) Validate() error {
	if !isValidUUID(s.RunID) {
		return fmt.Errorf("invalid run ID: not a valid UUID")
	}

	if s.Round < 1 {
		return fmt.Errorf("invalid round: must be >= 1, got %d", s.Round)
	}

	for i, a := range s.Agents {
		if a.ID == "" {
			return fmt.Errorf("agent at index %d has no id", i)
		}
	}

	return nil
}

// isValidUUID checks if a string is a valid UUID format.
func isValidUUID(s string) bool {
	_, err := uuid.Parse(s)
	return err == nil
}
