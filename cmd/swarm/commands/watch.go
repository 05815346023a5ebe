package commands

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/dyluth/swarm/internal/printer"
	"github.com/dyluth/swarm/internal/watch"
)

var (
	watchTarget       target
	watchOutputFormat string
)

var watchCmd = &cobra.Command{
	Use:   "watch [RUN_ID]",
	Short: "Follow simulations live",
	Long: `Follow simulations live as they are recorded on the blackboard.

Without RUN_ID every run on the instance is followed until interrupted.
With RUN_ID (short prefixes of at least 6 characters work) only that run is
followed, and the command exits when it finishes.

Output Formats:
  default - One human-readable line per event
  jsonl   - Line-delimited JSON for programmatic processing

Examples:
  # Follow everything on the board named in swarm.yml
  swarm watch

  # Follow one run until it ends
  swarm watch 3f2a9c

  # Export events as JSON
  swarm watch --output=jsonl > events.jsonl`,
	Args: cobra.MaximumNArgs(1),
	RunE: runWatch,
}

func init() {
	watchTarget.addFlags(watchCmd)
	watchCmd.Flags().StringVarP(&watchOutputFormat, "output", "o", "default", "Output format (default or jsonl)")
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var format watch.OutputFormat
	switch watchOutputFormat {
	case "default":
		format = watch.OutputFormatDefault
	case "jsonl":
		format = watch.OutputFormatJSONL
	default:
		return printer.Error(
			"invalid output format",
			fmt.Sprintf("Unknown format: %s", watchOutputFormat),
			[]string{"Valid formats: default, jsonl"},
		)
	}

	client, err := watchTarget.connect(ctx)
	if err != nil {
		return err
	}
	defer client.Close()

	opts := watch.Options{Format: format}
	if len(args) > 0 {
		if opts.RunID, err = resolveRunID(ctx, client, args[0]); err != nil {
			return err
		}
	}

	if format == watch.OutputFormatDefault {
		if opts.RunID != "" {
			printer.Info("Watching run %s on '%s' (Ctrl+C to stop)\n\n", opts.RunID, client.InstanceName())
		} else {
			printer.Info("Watching all runs on '%s' (Ctrl+C to stop)\n\n", client.InstanceName())
		}
	}

	return watch.Stream(ctx, client, cmd.OutOrStdout(), opts)
}
