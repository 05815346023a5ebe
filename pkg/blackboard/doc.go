// Package blackboard records swarm simulations in Redis so they can be
// watched live and inspected afterwards.
//
// # Overview
//
// A run is one simulation from start to finish. While it plays, the CLI
// stores a run record, a snapshot of selected rounds and, at the end, the
// swarm's combined knowledge of the map. Every stored round is also
// published as an event so `swarm watch` can follow a run as it happens.
//
// # Multi-Instance Support
//
// All Redis keys and Pub/Sub channels are namespaced by instance name so
// several boards can share one Redis server without seeing each other's runs.
//
// # Usage Example
//
//	client, err := blackboard.NewClient(&redis.Options{Addr: "localhost:6379"}, "default")
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer client.Close()
//
//	run := &blackboard.Run{
//		ID:          uuid.New().String(),
//		MapPath:     "maps/floor.txt",
//		Agents:      5,
//		Status:      blackboard.RunStatusRunning,
//		StartedAtMs: time.Now().UnixMilli(),
//	}
//	if err := client.CreateRun(ctx, run); err != nil {
//		log.Fatal(err)
//	}
//
// # Redis Schema
//
// Runs: swarm:{instance_name}:run:{run_id} (hash)
// Rounds: swarm:{instance_name}:round:{run_id}:{round} (hash)
// Round index: swarm:{instance_name}:rounds:{run_id} (sorted set scored by round)
// Knowledge: swarm:{instance_name}:knowledge:{run_id} (hash of "x,y" to 1 or 0)
//
// Pub/Sub channel: swarm:{instance_name}:run_events
package blackboard
