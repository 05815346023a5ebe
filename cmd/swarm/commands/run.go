package commands

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/dyluth/swarm/internal/config"
	"github.com/dyluth/swarm/internal/mapio"
	"github.com/dyluth/swarm/internal/printer"
	"github.com/dyluth/swarm/internal/render"
	"github.com/dyluth/swarm/internal/simulator"
	"github.com/dyluth/swarm/pkg/grid"
)

var (
	runMap      string
	runAgents   int
	runSeed     int64
	runRecord   bool
	runRedisURL string
	runRender   string
	runScale    int
	runShow     bool
	runQuiet    bool
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run an exploration simulation",
	Long: `Run an exploration simulation described by swarm.yml.

Paths in swarm.yml are resolved relative to the config file. Progress
is printed after every round. When blackboard.enabled is set (or --record is
given) the run is stored on the blackboard, where 'swarm watch' and
'swarm runs' can see it.

Examples:
  # Run with swarm.yml in the current directory
  swarm run

  # Try a different map and team size, then print the explored map
  swarm run --map maps/warehouse.png --agents 8 --show

  # Record on a board started with 'swarm board up'
  swarm run --record --redis-url redis://localhost:6380`,
	Args: cobra.NoArgs,
	RunE: runRun,
}

func init() {
	runCmd.Flags().StringVar(&runMap, "map", "", "Override map.path")
	runCmd.Flags().IntVar(&runAgents, "agents", 0, "Override swarm.agents")
	runCmd.Flags().Int64Var(&runSeed, "seed", 0, "Override policy.seed")
	runCmd.Flags().BoolVar(&runRecord, "record", false, "Record the run on the blackboard even if blackboard.enabled is false")
	runCmd.Flags().StringVar(&runRedisURL, "redis-url", "", "Override blackboard.redis_url")
	runCmd.Flags().StringVar(&runRender, "render", "", "Override output.render (PNG of the explored map)")
	runCmd.Flags().IntVar(&runScale, "scale", 4, "Pixels per cell in the rendered PNG")
	runCmd.Flags().BoolVar(&runShow, "show", false, "Print the explored map to the terminal when done")
	runCmd.Flags().BoolVarP(&runQuiet, "quiet", "q", false, "Do not print per-round progress")
	rootCmd.AddCommand(runCmd)
}

func runRun(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(configPath)
	if err != nil {
		return printer.ErrorWithContext(
			"failed to load configuration",
			err.Error(),
			map[string]string{"Config": configPath},
			[]string{"Create a starter project:\n  swarm init"},
		)
	}
	if err := applyRunOverrides(cmd, cfg); err != nil {
		return printer.Error("invalid override", err.Error(), nil)
	}

	mapPath := relativeToConfig(cfg.Map.Path)
	m, err := mapio.Load(mapPath)
	if err != nil {
		return printer.ErrorWithContext(
			"failed to load map",
			err.Error(),
			map[string]string{"Map": mapPath},
			[]string{"ASCII maps use '#' for walls, '.' for open floor and 'S' for the start", "PNG maps treat light pixels as open floor"},
		)
	}

	start, err := resolveStart(cfg, m)
	if err != nil {
		return printer.Error("no start cell", err.Error(), []string{
			"Mark the start with 'S' in an ASCII map",
			"Or set map.start in swarm.yml:\n  start: {x: 1, y: 1}",
		})
	}

	logger, err := cfg.Logging.NewLogger(cmd.ErrOrStderr())
	if err != nil {
		return err
	}

	sim, err := simulator.New(m.World, cfg.Simulation(start), logger)
	if err != nil {
		return printer.Error("invalid simulation", err.Error(), nil)
	}

	var rec *recorder
	if cfg.Blackboard.Enabled {
		client, err := dialBlackboard(ctx, cfg.Blackboard.Instance, cfg.Blackboard.RedisURL)
		if err != nil {
			return err
		}
		defer client.Close()

		if rec, err = startRecording(ctx, client, sim, cfg.Map.Path, cfg.Output.SnapshotEvery); err != nil {
			return fmt.Errorf("failed to record run: %w", err)
		}
		printer.Info("Recording run %s on blackboard '%s'\n", sim.ID(), cfg.Blackboard.Instance)
	}

	canvas := render.NewCanvas(sim.World(), runScale)
	observe := func(report simulator.RoundReport) error {
		discovered := canvas.Update(sim.Agents())
		if !runQuiet {
			known, total := sim.Explored()
			printer.Progress(report.Round, known, total, report.Finished, len(sim.Agents()))
		}
		if rec != nil {
			return rec.observe(ctx, report, discovered)
		}
		return nil
	}

	_, runErr := sim.Run(ctx, observe)

	if rec != nil {
		// The run context may be cancelled; the final record must still land.
		if err := rec.finish(context.WithoutCancel(ctx), runErr); err != nil {
			printer.Warning("failed to store final run state: %v\n", err)
		}
	}

	if cfg.Output.Render != "" {
		pngPath := relativeToConfig(cfg.Output.Render)
		canvas.Update(sim.Agents())
		if err := writePNG(pngPath, canvas, sim); err != nil {
			printer.Warning("failed to render map: %v\n", err)
		} else {
			printer.Step("Rendered map to %s\n", pngPath)
		}
	}

	if runShow {
		if err := render.Terminal(cmd.OutOrStdout(), sim.World(), sim.Layers(), sim.Agents()); err != nil {
			return err
		}
	}

	known, total := sim.Explored()
	printer.Fields("Run summary", [][2]string{
		{"Run", sim.ID()},
		{"Rounds", fmt.Sprintf("%d", sim.Rounds())},
		{"Explored", fmt.Sprintf("%d/%d", known, total)},
		{"Complete", fmt.Sprintf("%t", sim.Complete())},
	})

	if runErr != nil {
		return runFailure(runErr)
	}
	printer.Success("All agents returned to %s\n", start)
	return nil
}

// applyRunOverrides copies explicitly set flags over the loaded config and
// revalidates it. Paths given on the command line are relative to the
// working directory, not the config file.
func applyRunOverrides(cmd *cobra.Command, cfg *config.SwarmConfig) error {
	flags := cmd.Flags()
	if flags.Changed("map") {
		abs, err := filepath.Abs(runMap)
		if err != nil {
			return err
		}
		cfg.Map.Path = abs
	}
	if flags.Changed("agents") {
		cfg.Swarm.Agents = &runAgents
	}
	if flags.Changed("seed") {
		cfg.Policy.Seed = runSeed
	}
	if runRecord {
		cfg.Blackboard.Enabled = true
	}
	if flags.Changed("redis-url") {
		cfg.Blackboard.RedisURL = runRedisURL
	}
	if flags.Changed("render") {
		abs, err := filepath.Abs(runRender)
		if err != nil {
			return err
		}
		cfg.Output.Render = abs
	}
	return cfg.Validate()
}

// resolveStart prefers map.start from the config, then the map's own marker.
func resolveStart(cfg *config.SwarmConfig, m *mapio.Map) (grid.Cell, error) {
	if cfg.Map.Start != nil {
		if !m.World.InBounds(*cfg.Map.Start) {
			return grid.Cell{}, fmt.Errorf("map.start %s is outside the %dx%d map", *cfg.Map.Start, m.World.Width(), m.World.Height())
		}
		return *cfg.Map.Start, nil
	}
	if m.Start != nil {
		return *m.Start, nil
	}
	return grid.Cell{}, fmt.Errorf("the map has no start marker and map.start is not set")
}

// relativeToConfig resolves paths from swarm.yml against the directory the
// config file lives in.
func relativeToConfig(p string) string {
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(filepath.Dir(configPath), p)
}

func writePNG(path string, canvas *render.Canvas, sim *simulator.Simulator) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := canvas.WritePNG(f, sim.Agents()); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func runFailure(err error) error {
	switch {
	case errors.Is(err, context.Canceled):
		return printer.Error("run interrupted", "The simulation was stopped before every agent finished.", nil)
	case errors.Is(err, simulator.ErrRoundLimit):
		return printer.Error("round limit reached", err.Error(), []string{"Raise scheduler.max_rounds or set it to 0 for no limit"})
	case errors.Is(err, simulator.ErrComputeTimeout):
		return printer.Error("agent turns timed out", err.Error(), []string{"Raise scheduler.turn_timeout", "Use fewer agents or a smaller sight radius"})
	default:
		return printer.Error("simulation failed", err.Error(), nil)
	}
}
