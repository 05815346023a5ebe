package board

import "fmt"

// Label keys used for swarm board resources
const (
	LabelProject      = "swarm.board"
	LabelInstanceName = "swarm.instance.name"
	LabelComponent    = "swarm.component"
	LabelRedisPort    = "swarm.redis.port"
)

// ComponentRedis is the component label of the board's Redis container.
const ComponentRedis = "redis"

// BuildLabels creates the standard label set for a board resource.
// component may be empty.
func BuildLabels(instanceName, component string) map[string]string {
	labels := map[string]string{
		LabelProject:      "true",
		LabelInstanceName: instanceName,
	}

	if component != "" {
		labels[LabelComponent] = component
	}

	return labels
}

// RedisContainerName returns the Redis container name for an instance
func RedisContainerName(instanceName string) string {
	return fmt.Sprintf("swarm-redis-%s", instanceName)
}
