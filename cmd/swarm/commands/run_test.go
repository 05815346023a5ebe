package commands

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dyluth/swarm/internal/config"
	"github.com/dyluth/swarm/internal/mapio"
	"github.com/dyluth/swarm/internal/scaffold"
	"github.com/dyluth/swarm/pkg/blackboard"
	"github.com/dyluth/swarm/pkg/grid"
)

// newProject scaffolds a project into a temp dir and returns the config path.
func newProject(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, scaffold.Initialize(dir, false, &bytes.Buffer{}))
	return filepath.Join(dir, "swarm.yml")
}

func TestInitCommand(t *testing.T) {
	dir := t.TempDir()

	out, _, err := executeCommand(t, "init", dir)
	require.NoError(t, err)
	assert.Contains(t, out, "Successfully initialized swarm project")
	assert.FileExists(t, filepath.Join(dir, "swarm.yml"))
	assert.FileExists(t, filepath.Join(dir, "maps", "floor.txt"))

	_, _, err = executeCommand(t, "init", dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "project already initialized")

	_, _, err = executeCommand(t, "init", dir, "--force")
	require.NoError(t, err)
}

func TestRunCommand_Local(t *testing.T) {
	cfgPath := newProject(t)

	out, _, err := executeCommand(t, "run", "--config", cfgPath, "--agents", "3", "--show")
	require.NoError(t, err)

	assert.Contains(t, out, "→ round 1")
	assert.Contains(t, out, "Run summary")
	assert.Contains(t, out, "Complete:  true")
	assert.Contains(t, out, "All agents returned to (1, 1)")
	assert.Contains(t, out, "Rendered map to")
	assert.FileExists(t, filepath.Join(filepath.Dir(cfgPath), "floor.png"))

	// --show draws the explored map with all three agents home on (1, 1).
	assert.Contains(t, out, "\n#3...........#...............#\n")
	assert.Contains(t, out, "\n#....#  #.........#.....#....#\n")
}

func TestRunCommand_Quiet(t *testing.T) {
	cfgPath := newProject(t)
	png := filepath.Join(t.TempDir(), "out.png")

	out, _, err := executeCommand(t, "run", "-c", cfgPath, "-q", "--seed", "3", "--render", png)
	require.NoError(t, err)
	assert.NotContains(t, out, "→ round")
	assert.FileExists(t, png)
}

func TestRunCommand_Errors(t *testing.T) {
	t.Run("missing config", func(t *testing.T) {
		_, errOut, err := executeCommand(t, "run", "-c", filepath.Join(t.TempDir(), "swarm.yml"))
		require.Error(t, err)
		assert.Equal(t, "failed to load configuration", err.Error())
		assert.Contains(t, errOut, "swarm init")
	})

	t.Run("missing map", func(t *testing.T) {
		cfgPath := newProject(t)
		require.NoError(t, os.Remove(filepath.Join(filepath.Dir(cfgPath), "maps", "floor.txt")))

		_, _, err := executeCommand(t, "run", "-c", cfgPath)
		require.Error(t, err)
		assert.Equal(t, "failed to load map", err.Error())
	})

	t.Run("round limit", func(t *testing.T) {
		cfgPath := newProject(t)
		data, err := os.ReadFile(cfgPath)
		require.NoError(t, err)
		data = bytes.Replace(data, []byte("max_rounds: 0"), []byte("max_rounds: 2"), 1)
		require.NoError(t, os.WriteFile(cfgPath, data, 0644))

		_, errOut, err := executeCommand(t, "run", "-c", cfgPath, "-q")
		require.Error(t, err)
		assert.Equal(t, "round limit reached", err.Error())
		assert.Contains(t, errOut, "scheduler.max_rounds")
	})

	t.Run("bad agents override", func(t *testing.T) {
		cfgPath := newProject(t)
		_, _, err := executeCommand(t, "run", "-c", cfgPath, "--agents", "0")
		require.Error(t, err)
		assert.Equal(t, "invalid override", err.Error())
	})
}

func TestRunAndInspectRecordedRun(t *testing.T) {
	mr := miniredis.RunT(t)
	redisURL := "redis://" + mr.Addr()
	cfgPath := newProject(t)

	out, _, err := executeCommand(t, "run", "-c", cfgPath, "-q", "--agents", "2", "--record", "--redis-url", redisURL)
	require.NoError(t, err)
	assert.Contains(t, out, "Recording run ")

	client, err := blackboard.NewClientFromURL(redisURL, "default")
	require.NoError(t, err)
	defer client.Close()
	ctx := context.Background()

	ids, err := client.ScanRuns(ctx, "")
	require.NoError(t, err)
	require.Len(t, ids, 1)
	runID := ids[0]

	run, err := client.GetRun(ctx, runID)
	require.NoError(t, err)
	assert.Equal(t, blackboard.RunStatusComplete, run.Status)
	assert.Equal(t, "maps/floor.txt", run.MapPath)
	assert.Equal(t, 2, run.Agents)
	assert.Equal(t, grid.C(1, 1), run.Start)
	assert.Equal(t, run.Pathable, run.Explored)
	assert.Positive(t, run.FinishedAtMs)

	// snapshot_every is 10 in the scaffolded config, plus the final round.
	rounds, err := client.RoundNumbers(ctx, runID)
	require.NoError(t, err)
	require.NotEmpty(t, rounds)
	assert.Equal(t, run.Rounds, rounds[len(rounds)-1])
	for _, r := range rounds[:len(rounds)-1] {
		assert.Zero(t, r%10)
	}

	latest, err := client.LatestRound(ctx, runID)
	require.NoError(t, err)
	assert.True(t, latest.Complete)
	require.Len(t, latest.Agents, 2)
	discovered := 0
	for _, a := range latest.Agents {
		assert.Equal(t, "finished", a.State)
		assert.Equal(t, grid.C(1, 1), a.Position)
		discovered += a.Discovered
	}
	assert.Positive(t, discovered)

	k, err := client.GetKnowledge(ctx, runID)
	require.NoError(t, err)
	m, err := mapio.Load(filepath.Join(filepath.Dir(cfgPath), "maps", "floor.txt"))
	require.NoError(t, err)
	for c, pathable := range k {
		if m.World.InBounds(c) {
			assert.Equal(t, m.World.Pathable(c), pathable, "cell %s", c)
		}
	}

	t.Run("runs list", func(t *testing.T) {
		out, _, err := executeCommand(t, "runs", "list", "--redis-url", redisURL, "--status", "complete")
		require.NoError(t, err)
		assert.Contains(t, out, runID[:8])
		assert.Contains(t, out, "1 run found")

		out, _, err = executeCommand(t, "runs", "list", "--redis-url", redisURL, "--status", "failed")
		require.NoError(t, err)
		assert.Contains(t, out, "No runs found for instance 'default'")

		_, _, err = executeCommand(t, "runs", "list", "--redis-url", redisURL, "--status", "lost")
		require.Error(t, err)
		assert.Equal(t, "invalid status filter", err.Error())
	})

	t.Run("runs show", func(t *testing.T) {
		out, _, err := executeCommand(t, "runs", "show", runID[:8], "--redis-url", redisURL, "--map")
		require.NoError(t, err)
		assert.Contains(t, out, "Run "+runID)
		assert.Contains(t, out, "Status:    complete")
		assert.Contains(t, out, "agent-2")

		// The stored knowledge redraws the floor plan, minus the sealed rooms.
		assert.Contains(t, out, "\n#............#...............#\n")
		assert.Contains(t, out, "\n#..#.....#.......#       #...#\n")

		_, _, err = executeCommand(t, "runs", "show", "ffffffff", "--redis-url", redisURL)
		require.Error(t, err)
		assert.Equal(t, "run with ID 'ffffffff' not found", err.Error())
	})

	t.Run("watch finished run", func(t *testing.T) {
		out, _, err := executeCommand(t, "watch", runID, "--redis-url", redisURL)
		require.NoError(t, err)
		assert.Contains(t, out, "🏁 Run complete: "+runID[:8])
	})

	t.Run("runs delete", func(t *testing.T) {
		_, _, err := executeCommand(t, "runs", "delete", runID, "--redis-url", redisURL)
		require.NoError(t, err)

		exists, err := client.RunExists(ctx, runID)
		require.NoError(t, err)
		assert.False(t, exists)
	})
}

func TestResolveStart(t *testing.T) {
	world, err := mapio.ReadASCII(strings.NewReader("#####\n#.S.#\n#####\n"))
	require.NoError(t, err)

	cfg := &config.SwarmConfig{}
	start, err := resolveStart(cfg, world)
	require.NoError(t, err)
	assert.Equal(t, grid.C(2, 1), start)

	override := grid.C(1, 1)
	cfg.Map.Start = &override
	start, err = resolveStart(cfg, world)
	require.NoError(t, err)
	assert.Equal(t, override, start)

	outside := grid.C(9, 9)
	cfg.Map.Start = &outside
	_, err = resolveStart(cfg, world)
	assert.Error(t, err)

	cfg.Map.Start = nil
	world.Start = nil
	_, err = resolveStart(cfg, world)
	assert.Error(t, err)
}
