package runs

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/dyluth/swarm/pkg/blackboard"
	"github.com/dyluth/swarm/pkg/grid"
)

// Detail is everything `swarm runs show` reports about one run.
type Detail struct {
	Run    *blackboard.Run           `json:"run"`
	Latest *blackboard.RoundSnapshot `json:"latest_round,omitempty"`
	Stored []int                     `json:"stored_rounds"`
}

// Get loads a run with its latest stored round. runID must be a full ID;
// use Resolve first for short IDs.
func Get(ctx context.Context, bbClient *blackboard.Client, runID string) (*Detail, error) {
	run, err := bbClient.GetRun(ctx, runID)
	if err != nil {
		if blackboard.IsNotFound(err) {
			return nil, &NotFoundError{ShortID: runID}
		}
		return nil, fmt.Errorf("failed to fetch run: %w", err)
	}

	stored, err := bbClient.RoundNumbers(ctx, runID)
	if err != nil {
		return nil, err
	}

	d := &Detail{Run: run, Stored: stored}
	if len(stored) > 0 {
		latest, err := bbClient.LatestRound(ctx, runID)
		if err != nil && !blackboard.IsNotFound(err) {
			return nil, fmt.Errorf("failed to fetch latest round: %w", err)
		}
		d.Latest = latest
	}
	return d, nil
}

// FormatDetail writes a run's detail in the requested format.
func FormatDetail(w io.Writer, d *Detail, format OutputFormat) error {
	if format == OutputFormatJSONL {
		if err := json.NewEncoder(w).Encode(d); err != nil {
			return fmt.Errorf("failed to write JSON output: %w", err)
		}
		return nil
	}

	r := d.Run
	fmt.Fprintf(w, "Run %s\n\n", r.ID)
	rows := [][2]string{
		{"Status", string(r.Status)},
		{"Map", fmt.Sprintf("%s (%dx%d, start %s)", r.MapPath, r.Width, r.Height, r.Start)},
		{"Agents", fmt.Sprintf("%d (sight %d, %s sharing, %s scoring, seed %d)", r.Agents, r.SightRadius, r.Sharing, r.Scoring, r.Seed)},
		{"Rounds", fmt.Sprintf("%d", r.Rounds)},
		{"Explored", formatExplored(r.Explored, r.Pathable)},
		{"Started", formatTimestamp(r.StartedAtMs)},
		{"Duration", formatDuration(r)},
		{"Snapshots", fmt.Sprintf("%d", len(d.Stored))},
	}
	if r.Error != "" {
		rows = append(rows, [2]string{"Error", r.Error})
	}
	for _, row := range rows {
		fmt.Fprintf(w, "  %-10s %s\n", row[0]+":", row[1])
	}

	if d.Latest != nil {
		fmt.Fprintf(w, "\nAgents after round %d:\n", d.Latest.Round)
		return FormatAgents(w, d.Latest.Agents)
	}
	return nil
}

// FormatKnowledge draws stored knowledge as ASCII: '.' for known open
// cells, '#' for known walls and ' ' for cells nobody saw.
func FormatKnowledge(w io.Writer, k grid.Knowledge, width, height int) error {
	line := make([]byte, width+1)
	line[width] = '\n'
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			pathable, known := k[grid.C(x, y)]
			switch {
			case !known:
				line[x] = ' '
			case pathable:
				line[x] = '.'
			default:
				line[x] = '#'
			}
		}
		if _, err := w.Write(line); err != nil {
			return err
		}
	}
	return nil
}
