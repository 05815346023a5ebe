//go:build integration

package testutil

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/client"
	"github.com/stretchr/testify/require"

	"github.com/dyluth/swarm/internal/board"
	"github.com/dyluth/swarm/internal/watch"
	"github.com/dyluth/swarm/pkg/blackboard"
)

// E2EEnvironment represents an isolated E2E test environment
type E2EEnvironment struct {
	T            *testing.T
	TmpDir       string
	InstanceName string
	DockerClient *client.Client
	BBClient     *blackboard.Client
	RedisPort    int
	Ctx          context.Context
}

// SetupE2EEnvironment creates an isolated environment with a temp directory
// and a unique board name.
func SetupE2EEnvironment(t *testing.T) *E2EEnvironment {
	ctx := context.Background()
	tmpDir := t.TempDir()

	// Microseconds keep parallel runs apart
	now := time.Now()
	instanceName := fmt.Sprintf("test-e2e-%s-%06d", now.Format("20060102-150405"), now.Nanosecond()/1000)

	cli, err := board.NewDockerClient(ctx)
	require.NoError(t, err, "Failed to create Docker client")

	env := &E2EEnvironment{
		T:            t,
		TmpDir:       tmpDir,
		InstanceName: instanceName,
		DockerClient: cli,
		Ctx:          ctx,
	}

	t.Cleanup(func() {
		if env.BBClient != nil {
			env.BBClient.Close()
		}
		if _, err := board.Down(ctx, cli, instanceName); err != nil {
			t.Logf("Board cleanup: %v", err)
		}
		cli.Close()
	})

	return env
}

// WriteProject writes swarm.yml and maps/floor.txt into the temp directory
// and returns the config path.
func (env *E2EEnvironment) WriteProject(swarmYML, floorMap string) string {
	configPath := filepath.Join(env.TmpDir, "swarm.yml")
	require.NoError(env.T, os.WriteFile(configPath, []byte(swarmYML), 0644), "Failed to write swarm.yml")
	require.NoError(env.T, os.MkdirAll(filepath.Join(env.TmpDir, "maps"), 0755))
	require.NoError(env.T, os.WriteFile(filepath.Join(env.TmpDir, "maps", "floor.txt"), []byte(floorMap), 0644), "Failed to write map")
	return configPath
}

// StartBoard brings up this environment's board and connects to it.
func (env *E2EEnvironment) StartBoard() {
	info, err := board.Up(env.Ctx, env.DockerClient, board.UpOptions{Name: env.InstanceName})
	require.NoError(env.T, err, "Failed to start board")
	env.WaitForContainer(board.RedisContainerName(env.InstanceName))
	env.InitializeBlackboardClient()
	require.Equal(env.T, info.Port, env.RedisPort)
}

// InitializeBlackboardClient connects to the blackboard for this environment
func (env *E2EEnvironment) InitializeBlackboardClient() {
	info, err := board.Find(env.Ctx, env.DockerClient, env.InstanceName)
	require.NoError(env.T, err, "Failed to find board")
	env.RedisPort = info.Port

	env.BBClient, err = blackboard.NewClientFromURL(info.RedisURL, env.InstanceName)
	require.NoError(env.T, err, "Failed to create blackboard client")

	require.NoError(env.T, board.WaitReady(env.Ctx, env.BBClient.Ping, 30*time.Second))
}

// WaitForContainer waits for a container to be running (up to 30 seconds)
func (env *E2EEnvironment) WaitForContainer(name string) {
	for i := 0; i < 30; i++ {
		containers, err := env.DockerClient.ContainerList(env.Ctx, container.ListOptions{All: true})
		if err == nil {
			for _, c := range containers {
				for _, n := range c.Names {
					if n == "/"+name && c.State == "running" {
						env.T.Logf("✓ Container %s is running", name)
						return
					}
				}
			}
		}
		time.Sleep(1 * time.Second)
	}

	require.Fail(env.T, fmt.Sprintf("Container %s did not start within 30 seconds", name))
}

// WaitForRun waits up to a minute for a run to finish on the blackboard.
func (env *E2EEnvironment) WaitForRun(runID string) *blackboard.Run {
	run, err := watch.PollForStatus(env.Ctx, env.BBClient, runID, time.Minute)
	require.NoError(env.T, err)
	return run
}

// DefaultSwarmYML returns a small config with the blackboard enabled.
// The map path is absolute so runs work from any directory.
func (env *E2EEnvironment) DefaultSwarmYML() string {
	return fmt.Sprintf(`version: "1.0"
map:
  path: %s
swarm:
  agents: 3
  sight_radius: 4
policy:
  seed: 7
blackboard:
  enabled: true
  redis_url: %s
  instance: %s
output:
  snapshot_every: 5
`, filepath.Join(env.TmpDir, "maps", "floor.txt"), board.RedisURL(env.RedisPort), env.InstanceName)
}

// SmallFloor is a two-room map with a start marker.
const SmallFloor = `############
#S...#.....#
#....#.....#
#..........#
#....#.....#
############
`
