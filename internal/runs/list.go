// Package runs lists and inspects simulations recorded on the blackboard.
package runs

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"sort"

	"github.com/dyluth/swarm/pkg/blackboard"
)

// FilterCriteria defines filtering options for `swarm runs list`.
// All filters are ANDed together.
type FilterCriteria struct {
	SinceTimestampMs int64                // Unix timestamp in milliseconds, 0 = no filter
	UntilTimestampMs int64                // Unix timestamp in milliseconds, 0 = no filter
	Status           blackboard.RunStatus // Exact status, empty = no filter
	MapGlob          string               // Glob pattern for the map path, empty = no filter
}

// Matches returns true if the run matches all filter criteria.
func (fc *FilterCriteria) Matches(r *blackboard.Run) bool {
	if fc.SinceTimestampMs > 0 && r.StartedAtMs < fc.SinceTimestampMs {
		return false
	}
	if fc.UntilTimestampMs > 0 && r.StartedAtMs > fc.UntilTimestampMs {
		return false
	}

	if fc.Status != "" && r.Status != fc.Status {
		return false
	}

	if fc.MapGlob != "" {
		matched, err := filepath.Match(fc.MapGlob, r.MapPath)
		if err != nil || !matched {
			return false
		}
	}

	return true
}

// List retrieves every run on the blackboard that matches filters (which may
// be nil), oldest first. Malformed records are reported to warn and skipped.
func List(ctx context.Context, bbClient *blackboard.Client, filters *FilterCriteria, warn io.Writer) ([]*blackboard.Run, error) {
	ids, err := bbClient.ScanRuns(ctx, "")
	if err != nil {
		return nil, err
	}

	var out []*blackboard.Run
	for _, id := range ids {
		run, err := bbClient.GetRun(ctx, id)
		if err != nil {
			if blackboard.IsNotFound(err) {
				// Deleted between SCAN and read
				continue
			}
			fmt.Fprintf(warn, "⚠️  Skipping malformed run: id=%s (error: %v)\n", id, err)
			continue
		}

		if filters != nil && !filters.Matches(run) {
			continue
		}
		out = append(out, run)
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].StartedAtMs != out[j].StartedAtMs {
			return out[i].StartedAtMs < out[j].StartedAtMs
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}
