package blackboard

import "fmt"

// Redis key pattern helpers
//
// Key pattern: swarm:{instance_name}:{entity}:{run_id}
// Channel pattern: swarm:{instance_name}:run_events

// RunKey returns the Redis key for a run record.
// Pattern: swarm:{instance_name}:run:{run_id}
func RunKey(instanceName, runID string) string {
	return fmt.Sprintf("swarm:%s:run:%s", instanceName, runID)
}

// RunKeyPattern returns the SCAN pattern matching every run record of an
// instance whose ID starts with prefix.
func RunKeyPattern(instanceName, prefix string) string {
	return RunKey(instanceName, prefix+"*")
}

// RoundKey returns the Redis key for one round snapshot.
// Pattern: swarm:{instance_name}:round:{run_id}:{round}
func RoundKey(instanceName, runID string, round int) string {
	return fmt.Sprintf("swarm:%s:round:%s:%d", instanceName, runID, round)
}

// RoundIndexKey returns the Redis key for the sorted set of stored rounds.
// Pattern: swarm:{instance_name}:rounds:{run_id}
func RoundIndexKey(instanceName, runID string) string {
	return fmt.Sprintf("swarm:%s:rounds:%s", instanceName, runID)
}

// KnowledgeKey returns the Redis key for a run's combined knowledge.
// Pattern: swarm:{instance_name}:knowledge:{run_id}
func KnowledgeKey(instanceName, runID string) string {
	return fmt.Sprintf("swarm:%s:knowledge:%s", instanceName, runID)
}

// RunEventsChannel returns the Pub/Sub channel carrying run and round events.
// Pattern: swarm:{instance_name}:run_events
func RunEventsChannel(instanceName string) string {
	return fmt.Sprintf("swarm:%s:run_events", instanceName)
}

// RoundScore converts a round number to a sorted-set score.
func RoundScore(round int) float64 {
	return float64(round)
}

// RoundFromScore converts a sorted-set score back to a round number.
func RoundFromScore(score float64) int {
	return int(score)
}
