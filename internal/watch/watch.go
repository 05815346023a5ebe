// Package watch follows simulations live through blackboard run events.
package watch

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/dyluth/swarm/pkg/blackboard"
)

// OutputFormat specifies how events are written.
type OutputFormat string

const (
	// OutputFormatDefault prints one human-readable line per event
	OutputFormatDefault OutputFormat = "default"

	// OutputFormatJSONL prints every event as line-delimited JSON
	OutputFormatJSONL OutputFormat = "jsonl"
)

// Options controls a Stream call.
type Options struct {
	// RunID restricts output to a single run and makes Stream return once
	// that run finishes. Empty follows every run on the instance.
	RunID  string
	Format OutputFormat
}

// Stream writes run events from the blackboard to w until ctx is cancelled,
// or, when opts.RunID is set, until that run finishes.
//
// A watched run that already finished is reported immediately without
// waiting for events.
func Stream(ctx context.Context, client *blackboard.Client, w io.Writer, opts Options) error {
	sub, err := client.SubscribeRunEvents(ctx)
	if err != nil {
		return err
	}
	defer sub.Close()

	// Subscribe before checking so a finish between the two is not lost.
	if opts.RunID != "" {
		run, err := client.GetRun(ctx, opts.RunID)
		if err != nil && !blackboard.IsNotFound(err) {
			return fmt.Errorf("failed to fetch run: %w", err)
		}
		if run != nil && run.Status.Terminal() {
			return writeEvent(w, &blackboard.Event{Type: blackboard.EventRunFinished, Run: run}, opts.Format)
		}
	}

	events := sub.Events()
	errs := sub.Errors()
	for {
		select {
		case <-ctx.Done():
			return nil

		case err, ok := <-errs:
			if !ok {
				errs = nil
				continue
			}
			fmt.Fprintf(w, "⚠️  %v\n", err)

		case e, ok := <-events:
			if !ok {
				if ctx.Err() != nil {
					return nil
				}
				return fmt.Errorf("event subscription closed")
			}
			if opts.RunID != "" && eventRunID(e) != opts.RunID {
				continue
			}
			if err := writeEvent(w, e, opts.Format); err != nil {
				return err
			}
			if opts.RunID != "" && e.Type == blackboard.EventRunFinished {
				return nil
			}
		}
	}
}

// PollForStatus polls a run until it reaches a terminal status.
// Polls every 200ms for the specified timeout duration.
func PollForStatus(ctx context.Context, client *blackboard.Client, runID string, timeout time.Duration) (*blackboard.Run, error) {
	ticker := time.NewTicker(200 * time.Millisecond)
	defer ticker.Stop()

	timeoutCh := time.After(timeout)

	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()

		case <-timeoutCh:
			return nil, fmt.Errorf("timeout waiting for run %s to finish after %v", runID, timeout)

		case <-ticker.C:
			run, err := client.GetRun(ctx, runID)
			if err != nil {
				if blackboard.IsNotFound(err) {
					// Not recorded yet, continue polling
					continue
				}
				return nil, fmt.Errorf("failed to query run: %w", err)
			}
			if run.Status.Terminal() {
				return run, nil
			}
		}
	}
}

func eventRunID(e *blackboard.Event) string {
	if e.Run != nil {
		return e.Run.ID
	}
	if e.Round != nil {
		return e.Round.RunID
	}
	return ""
}

func writeEvent(w io.Writer, e *blackboard.Event, format OutputFormat) error {
	if format == OutputFormatJSONL {
		data, err := json.Marshal(e)
		if err != nil {
			return fmt.Errorf("failed to marshal event: %w", err)
		}
		_, err = fmt.Fprintf(w, "%s\n", data)
		return err
	}
	_, err := fmt.Fprintln(w, FormatEvent(e))
	return err
}

// FormatEvent renders an event as a single human-readable line.
func FormatEvent(e *blackboard.Event) string {
	switch e.Type {
	case blackboard.EventRunStarted:
		if e.Run == nil {
			break
		}
		return fmt.Sprintf("🚀 Run started: %s map=%s agents=%d sight=%d sharing=%s",
			shortID(e.Run.ID), e.Run.MapPath, e.Run.Agents, e.Run.SightRadius, e.Run.Sharing)

	case blackboard.EventRound:
		if e.Round == nil {
			break
		}
		r := e.Round
		return fmt.Sprintf("🔄 Round %d: %s explored=%d scans=%d moves=%d mediations=%d finished=%d",
			r.Round, shortID(r.RunID), r.Explored, r.NewScans, r.Moves, r.Mediations, r.Finished)

	case blackboard.EventRunFinished:
		if e.Run == nil {
			break
		}
		r := e.Run
		line := fmt.Sprintf("🏁 Run %s: %s after %d rounds, explored %d/%d",
			r.Status, shortID(r.ID), r.Rounds, r.Explored, r.Pathable)
		if r.Error != "" {
			line += " (" + r.Error + ")"
		}
		return line
	}
	return fmt.Sprintf("❓ Unknown event: %s", e.Type)
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
