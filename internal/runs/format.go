package runs

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/olekukonko/tablewriter"

	"github.com/dyluth/swarm/pkg/blackboard"
)

// OutputFormat specifies how to format run output.
type OutputFormat string

const (
	// OutputFormatDefault renders a table
	OutputFormatDefault OutputFormat = "default"

	// OutputFormatJSONL outputs complete records as line-delimited JSON
	OutputFormatJSONL OutputFormat = "jsonl"
)

// ParseOutputFormat validates an --output flag value.
func ParseOutputFormat(s string) (OutputFormat, error) {
	switch OutputFormat(s) {
	case "", OutputFormatDefault:
		return OutputFormatDefault, nil
	case OutputFormatJSONL:
		return OutputFormatJSONL, nil
	}
	return "", fmt.Errorf("unknown output format: %s (must be 'default' or 'jsonl')", s)
}

// Write formats runs in the requested format.
func Write(w io.Writer, runs []*blackboard.Run, format OutputFormat, instanceName string) error {
	switch format {
	case OutputFormatDefault:
		return FormatTable(w, runs, instanceName)
	case OutputFormatJSONL:
		return FormatJSONL(w, runs)
	default:
		return fmt.Errorf("unknown output format: %s", format)
	}
}

// FormatTable writes runs as a table with columns ID, STATUS, MAP, AGENTS,
// ROUNDS, EXPLORED and STARTED.
func FormatTable(w io.Writer, runs []*blackboard.Run, instanceName string) error {
	if len(runs) == 0 {
		fmt.Fprintf(w, "No runs found for instance '%s'\n", instanceName)
		return nil
	}

	fmt.Fprintf(w, "Runs for instance '%s':\n\n", instanceName)

	table := tablewriter.NewWriter(w)
	table.Header("ID", "Status", "Map", "Agents", "Rounds", "Explored", "Started")
	for _, r := range runs {
		if err := table.Append(
			formatID(r.ID),
			string(r.Status),
			r.MapPath,
			fmt.Sprintf("%d", r.Agents),
			fmt.Sprintf("%d", r.Rounds),
			formatExplored(r.Explored, r.Pathable),
			formatTimestamp(r.StartedAtMs),
		); err != nil {
			return fmt.Errorf("failed to build table: %w", err)
		}
	}
	if err := table.Render(); err != nil {
		return fmt.Errorf("failed to render table: %w", err)
	}

	countMsg := "run"
	if len(runs) != 1 {
		countMsg = "runs"
	}
	fmt.Fprintf(w, "\n%d %s found\n", len(runs), countMsg)
	return nil
}

// FormatJSONL writes runs as line-delimited JSON, one run per line.
func FormatJSONL(w io.Writer, runs []*blackboard.Run) error {
	enc := json.NewEncoder(w)
	for _, r := range runs {
		if err := enc.Encode(r); err != nil {
			return fmt.Errorf("failed to write JSONL output: %w", err)
		}
	}
	return nil
}

// FormatAgents writes the agents of a round snapshot as a table.
func FormatAgents(w io.Writer, agents []blackboard.AgentSnapshot) error {
	table := tablewriter.NewWriter(w)
	table.Header("Agent", "State", "Position", "Goal", "Scans", "Moves")
	for _, a := range agents {
		if err := table.Append(
			a.ID,
			a.State,
			a.Position.String(),
			a.Goal.String(),
			fmt.Sprintf("%d", a.Scans),
			fmt.Sprintf("%d", a.Moves),
		); err != nil {
			return fmt.Errorf("failed to build table: %w", err)
		}
	}
	if err := table.Render(); err != nil {
		return fmt.Errorf("failed to render table: %w", err)
	}
	return nil
}

// formatID truncates a run ID to its first 8 characters for compact display.
func formatID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

// formatExplored shows explored/pathable with a percentage.
func formatExplored(explored, pathable int) string {
	if pathable == 0 {
		return "-"
	}
	return fmt.Sprintf("%d/%d (%d%%)", explored, pathable, 100*explored/pathable)
}

// formatTimestamp formats a Unix timestamp in milliseconds as relative time
// like "2m ago" or "1h ago".
func formatTimestamp(timestampMs int64) string {
	if timestampMs == 0 {
		return "-"
	}

	diff := now().Sub(time.UnixMilli(timestampMs))

	if diff < time.Minute {
		return fmt.Sprintf("%ds ago", int(diff.Seconds()))
	} else if diff < time.Hour {
		return fmt.Sprintf("%dm ago", int(diff.Minutes()))
	} else if diff < 24*time.Hour {
		return fmt.Sprintf("%dh ago", int(diff.Hours()))
	}
	return fmt.Sprintf("%dd ago", int(diff.Hours()/24))
}

// formatDuration renders the wall-clock length of a run.
func formatDuration(r *blackboard.Run) string {
	if r.FinishedAtMs == 0 {
		return "-"
	}
	return (time.Duration(r.FinishedAtMs-r.StartedAtMs) * time.Millisecond).String()
}
