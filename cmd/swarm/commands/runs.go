package commands

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/dyluth/swarm/internal/printer"
	"github.com/dyluth/swarm/internal/runs"
	"github.com/dyluth/swarm/pkg/blackboard"
)

var (
	runsTarget       target
	runsOutputFormat string
	runsSince        string
	runsUntil        string
	runsStatus       string
	runsMapGlob      string
	runsShowMap      bool
)

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "Inspect simulations recorded on the blackboard",
}

var runsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List recorded runs with filtering",
	Long: `List runs recorded on the blackboard, oldest first.

Output Formats:
  default - Human-readable table
  jsonl   - Line-delimited JSON, one run per line

Filters:
  --since  - Runs started after this time (duration like '2h' or RFC3339)
  --until  - Runs started before this time
  --status - running, complete or failed
  --map    - Glob pattern on the map path ("maps/*.png")

Examples:
  # Everything from the last hour
  swarm runs list --since=1h

  # Failed runs as JSONL for piping to jq
  swarm runs list --status=failed --output=jsonl | jq .error`,
	Args: cobra.NoArgs,
	RunE: runRunsList,
}

var runsShowCmd = &cobra.Command{
	Use:   "show RUN_ID",
	Short: "Show one run and its latest snapshot",
	Long: `Show a run's settings, outcome and the agents in its latest stored snapshot.
Supports short IDs (at least 6 characters).

With --map the combined knowledge stored at the end of the run is drawn
as ASCII ('.' open, '#' wall, ' ' never seen).`,
	Args: cobra.ExactArgs(1),
	RunE: runRunsShow,
}

var runsDeleteCmd = &cobra.Command{
	Use:   "delete RUN_ID",
	Short: "Delete a run and everything stored with it",
	Args:  cobra.ExactArgs(1),
	RunE:  runRunsDelete,
}

func init() {
	runsTarget.addFlags(runsListCmd)
	runsListCmd.Flags().StringVarP(&runsOutputFormat, "output", "o", "default", "Output format: default or jsonl")
	runsListCmd.Flags().StringVar(&runsSince, "since", "", "Show runs started after time (duration or RFC3339)")
	runsListCmd.Flags().StringVar(&runsUntil, "until", "", "Show runs started before time (duration or RFC3339)")
	runsListCmd.Flags().StringVar(&runsStatus, "status", "", "Filter by status (running, complete, failed)")
	runsListCmd.Flags().StringVar(&runsMapGlob, "map", "", "Filter by map path (glob pattern)")

	runsTarget.addFlags(runsShowCmd)
	runsShowCmd.Flags().StringVarP(&runsOutputFormat, "output", "o", "default", "Output format: default or jsonl")
	runsShowCmd.Flags().BoolVar(&runsShowMap, "map", false, "Draw the stored knowledge map")

	runsTarget.addFlags(runsDeleteCmd)

	runsCmd.AddCommand(runsListCmd, runsShowCmd, runsDeleteCmd)
	rootCmd.AddCommand(runsCmd)
}

func parseRunsOutput() (runs.OutputFormat, error) {
	format, err := runs.ParseOutputFormat(runsOutputFormat)
	if err != nil {
		return "", printer.Error(
			"invalid output format",
			fmt.Sprintf("Unknown format: %s", runsOutputFormat),
			[]string{"Valid formats: default, jsonl"},
		)
	}
	return format, nil
}

func runRunsList(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	format, err := parseRunsOutput()
	if err != nil {
		return err
	}

	sinceMS, untilMS, err := runs.ParseRange(runsSince, runsUntil)
	if err != nil {
		return printer.Error(
			"invalid time filter",
			err.Error(),
			[]string{"Use duration format like '1h30m' or RFC3339 like '2025-10-29T13:00:00Z'"},
		)
	}

	status := blackboard.RunStatus(runsStatus)
	if status != "" {
		if err := status.Validate(); err != nil {
			return printer.Error("invalid status filter", err.Error(), []string{"Valid statuses: running, complete, failed"})
		}
	}

	client, err := runsTarget.connect(ctx)
	if err != nil {
		return err
	}
	defer client.Close()

	list, err := runs.List(ctx, client, &runs.FilterCriteria{
		SinceTimestampMs: sinceMS,
		UntilTimestampMs: untilMS,
		Status:           status,
		MapGlob:          runsMapGlob,
	}, cmd.ErrOrStderr())
	if err != nil {
		return fmt.Errorf("failed to list runs: %w", err)
	}

	return runs.Write(cmd.OutOrStdout(), list, format, client.InstanceName())
}

func runRunsShow(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	format, err := parseRunsOutput()
	if err != nil {
		return err
	}

	client, err := runsTarget.connect(ctx)
	if err != nil {
		return err
	}
	defer client.Close()

	runID, err := resolveRunID(ctx, client, args[0])
	if err != nil {
		return err
	}

	detail, err := runs.Get(ctx, client, runID)
	if err != nil {
		if runs.IsNotFoundError(err) {
			return printer.Error(
				fmt.Sprintf("run '%s' not found", runID),
				"The run was resolved but could not be fetched.",
				[]string{"This might indicate it was just deleted. Try again."},
			)
		}
		return err
	}

	out := cmd.OutOrStdout()
	if err := runs.FormatDetail(out, detail, format); err != nil {
		return err
	}

	if runsShowMap {
		k, err := client.GetKnowledge(ctx, runID)
		if err != nil {
			if blackboard.IsNotFound(err) {
				printer.Warning("no knowledge stored for this run yet\n")
				return nil
			}
			return fmt.Errorf("failed to fetch knowledge: %w", err)
		}
		fmt.Fprintln(out)
		return runs.FormatKnowledge(out, k, detail.Run.Width, detail.Run.Height)
	}
	return nil
}

func runRunsDelete(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	client, err := runsTarget.connect(ctx)
	if err != nil {
		return err
	}
	defer client.Close()

	runID, err := resolveRunID(ctx, client, args[0])
	if err != nil {
		return err
	}
	if err := client.DeleteRun(ctx, runID); err != nil {
		return err
	}
	printer.Success("Deleted run %s\n", runID)
	return nil
}

// resolveRunID expands a short run ID, printing friendly errors.
func resolveRunID(ctx context.Context, client *blackboard.Client, shortID string) (string, error) {
	fullID, err := runs.Resolve(ctx, client, shortID)
	if err == nil {
		return fullID, nil
	}

	if runs.IsNotFoundError(err) {
		return "", printer.Error(
			fmt.Sprintf("run with ID '%s' not found", shortID),
			"The specified run does not exist on the blackboard.",
			[]string{
				"List recorded runs:\n  swarm runs list",
				fmt.Sprintf("Verify instance:\n  swarm runs list --name %s", client.InstanceName()),
			},
		)
	}
	if runs.IsAmbiguousError(err) {
		fmt.Fprintln(os.Stderr, runs.FormatAmbiguousError(err.(*runs.AmbiguousError)))
		return "", fmt.Errorf("ambiguous short ID")
	}
	return "", fmt.Errorf("failed to resolve run ID: %w", err)
}
