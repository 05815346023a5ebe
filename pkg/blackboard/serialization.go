package blackboard

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/dyluth/swarm/pkg/grid"
)

// Serialization helpers for converting between Go structs and Redis hashes
//
// Redis stores data as string-to-string maps (hashes). Scalars get one field
// each; nested values such as the agent list are JSON-encoded into a single
// field.

// RunToHash converts a Run struct to a Redis hash format.
func RunToHash(r *Run) map[string]interface{} {
	return map[string]interface{}{
		"id":             r.ID,
		"map_path":       r.MapPath,
		"width":          r.Width,
		"height":         r.Height,
		"start":          r.Start.Key(),
		"agents":         r.Agents,
		"sight_radius":   r.SightRadius,
		"sharing":        r.Sharing,
		"scoring":        r.Scoring,
		"seed":           r.Seed,
		"status":         string(r.Status),
		"rounds":         r.Rounds,
		"explored":       r.Explored,
		"pathable":       r.Pathable,
		"error":          r.Error,
		"started_at_ms":  r.StartedAtMs,
		"finished_at_ms": r.FinishedAtMs,
	}
}

// HashToRun converts a Redis hash to a Run struct.
func HashToRun(hash map[string]string) (*Run, error) {
	ints := make(map[string]int)
	for _, field := range []string{"width", "height", "agents", "sight_radius", "rounds", "explored", "pathable"} {
		v, err := strconv.Atoi(hash[field])
		if err != nil {
			return nil, fmt.Errorf("invalid %s field: %w", field, err)
		}
		ints[field] = v
	}

	start, err := grid.ParseKey(hash["start"])
	if err != nil {
		return nil, fmt.Errorf("invalid start field: %w", err)
	}

	seed, _ := strconv.ParseInt(hash["seed"], 10, 64)
	startedAtMs, _ := strconv.ParseInt(hash["started_at_ms"], 10, 64)
	finishedAtMs, _ := strconv.ParseInt(hash["finished_at_ms"], 10, 64)

	return &Run{
		ID:           hash["id"],
		MapPath:      hash["map_path"],
		Width:        ints["width"],
		Height:       ints["height"],
		Start:        start,
		Agents:       ints["agents"],
		SightRadius:  ints["sight_radius"],
		Sharing:      hash["sharing"],
		Scoring:      hash["scoring"],
		Seed:         seed,
		Status:       RunStatus(hash["status"]),
		Rounds:       ints["rounds"],
		Explored:     ints["explored"],
		Pathable:     ints["pathable"],
		Error:        hash["error"],
		StartedAtMs:  startedAtMs,
		FinishedAtMs: finishedAtMs,
	}, nil
}

// RoundToHash converts a RoundSnapshot struct to a Redis hash format.
// The agent list is JSON-encoded.
func RoundToHash(s *RoundSnapshot) (map[string]interface{}, error) {
	agents := s.Agents
	if agents == nil {
		agents = []AgentSnapshot{}
	}
	agentsJSON, err := json.Marshal(agents)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal agents: %w", err)
	}

	return map[string]interface{}{
		"run_id":        s.RunID,
		"round":         s.Round,
		"new_scans":     s.NewScans,
		"mediations":    s.Mediations,
		"drops_avoided": s.DropsAvoided,
		"moves":         s.Moves,
		"finished":      s.Finished,
		"complete":      strconv.FormatBool(s.Complete),
		"explored":      s.Explored,
		"agents":        string(agentsJSON),
		"created_at_ms": s.CreatedAtMs,
	}, nil
}

// HashToRound converts a Redis hash to a RoundSnapshot struct.
func HashToRound(hash map[string]string) (*RoundSnapshot, error) {
	round, err := strconv.Atoi(hash["round"])
	if err != nil {
		return nil, fmt.Errorf("invalid round field: %w", err)
	}

	var agents []AgentSnapshot
	if agentsJSON := hash["agents"]; agentsJSON != "" {
		if err := json.Unmarshal([]byte(agentsJSON), &agents); err != nil {
			return nil, fmt.Errorf("failed to unmarshal agents: %w", err)
		}
	}
	if agents == nil {
		agents = []AgentSnapshot{}
	}

	newScans, _ := strconv.Atoi(hash["new_scans"])
	mediations, _ := strconv.Atoi(hash["mediations"])
	dropsAvoided, _ := strconv.Atoi(hash["drops_avoided"])
	moves, _ := strconv.Atoi(hash["moves"])
	finished, _ := strconv.Atoi(hash["finished"])
	explored, _ := strconv.Atoi(hash["explored"])
	complete, _ := strconv.ParseBool(hash["complete"])
	createdAtMs, _ := strconv.ParseInt(hash["created_at_ms"], 10, 64)

	return &RoundSnapshot{
		RunID:        hash["run_id"],
		Round:        round,
		NewScans:     newScans,
		Mediations:   mediations,
		DropsAvoided: dropsAvoided,
		Moves:        moves,
		Finished:     finished,
		Complete:     complete,
		Explored:     explored,
		Agents:       agents,
		CreatedAtMs:  createdAtMs,
	}, nil
}

// KnowledgeToHash converts a knowledge map to a Redis hash of "x,y" to
// "1" (pathable) or "0" (blocked).
func KnowledgeToHash(k grid.Knowledge) map[string]interface{} {
	hash := make(map[string]interface{}, len(k))
	for c, pathable := range k {
		if pathable {
			hash[c.Key()] = "1"
		} else {
			hash[c.Key()] = "0"
		}
	}
	return hash
}

// HashToKnowledge converts a Redis hash back to a knowledge map.
func HashToKnowledge(hash map[string]string) (grid.Knowledge, error) {
	k := make(grid.Knowledge, len(hash))
	for key, v := range hash {
		c, err := grid.ParseKey(key)
		if err != nil {
			return nil, fmt.Errorf("invalid knowledge cell %q: %w", key, err)
		}
		switch v {
		case "1":
			k[c] = true
		case "0":
			k[c] = false
		default:
			return nil, fmt.Errorf("invalid knowledge value %q for cell %s", v, key)
		}
	}
	return k, nil
}
