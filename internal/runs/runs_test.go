package runs

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dyluth/swarm/pkg/blackboard"
	"github.com/dyluth/swarm/pkg/grid"
)

var fixedNow = time.Date(2025, 10, 29, 13, 0, 0, 0, time.UTC)

func setup(t *testing.T) (*blackboard.Client, *miniredis.Miniredis) {
	t.Helper()
	previous := now
	now = func() time.Time { return fixedNow }
	t.Cleanup(func() { now = previous })

	mr := miniredis.RunT(t)
	client, err := blackboard.NewClient(&redis.Options{Addr: mr.Addr()}, "test-instance")
	require.NoError(t, err)
	t.Cleanup(func() { client.Close() })
	return client, mr
}

func storeRun(t *testing.T, client *blackboard.Client, id, mapPath string, status blackboard.RunStatus, age time.Duration) *blackboard.Run {
	t.Helper()
	r := &blackboard.Run{
		ID:          id,
		MapPath:     mapPath,
		Width:       30,
		Height:      16,
		Agents:      4,
		SightRadius: 10,
		Sharing:     "local",
		Scoring:     "frontier",
		Status:      status,
		Rounds:      42,
		Explored:    150,
		Pathable:    300,
		StartedAtMs: fixedNow.Add(-age).UnixMilli(),
	}
	if status.Terminal() {
		r.FinishedAtMs = r.StartedAtMs + 90_000
	}
	require.NoError(t, client.CreateRun(context.Background(), r))
	return r
}

func TestParseTime(t *testing.T) {
	previous := now
	now = func() time.Time { return fixedNow }
	t.Cleanup(func() { now = previous })

	ms, err := ParseTime("1h30m")
	require.NoError(t, err)
	assert.Equal(t, fixedNow.Add(-90*time.Minute).UnixMilli(), ms)

	ms, err = ParseTime("2025-10-29T12:00:00Z")
	require.NoError(t, err)
	assert.Equal(t, fixedNow.Add(-time.Hour).UnixMilli(), ms)

	_, err = ParseTime("")
	assert.Error(t, err)

	_, err = ParseTime("yesterday")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid time specification: yesterday")
}

func TestParseRange(t *testing.T) {
	since, until, err := ParseRange("", "")
	require.NoError(t, err)
	assert.Zero(t, since)
	assert.Zero(t, until)

	since, until, err = ParseRange("2h", "1h")
	require.NoError(t, err)
	assert.Less(t, since, until)

	_, _, err = ParseRange("1h", "2h")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--since must be before --until")

	_, _, err = ParseRange("bogus", "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid --since")

	_, _, err = ParseRange("", "bogus")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid --until")
}

func TestFilterCriteria(t *testing.T) {
	r := &blackboard.Run{MapPath: "maps/office.txt", Status: blackboard.RunStatusComplete, StartedAtMs: 1000}

	testCases := []struct {
		name    string
		filter  FilterCriteria
		matches bool
	}{
		{"empty filter", FilterCriteria{}, true},
		{"since before", FilterCriteria{SinceTimestampMs: 500}, true},
		{"since after", FilterCriteria{SinceTimestampMs: 1500}, false},
		{"until after", FilterCriteria{UntilTimestampMs: 1500}, true},
		{"until before", FilterCriteria{UntilTimestampMs: 500}, false},
		{"status match", FilterCriteria{Status: blackboard.RunStatusComplete}, true},
		{"status mismatch", FilterCriteria{Status: blackboard.RunStatusFailed}, false},
		{"map glob", FilterCriteria{MapGlob: "maps/*.txt"}, true},
		{"map glob mismatch", FilterCriteria{MapGlob: "*.png"}, false},
		{"bad glob", FilterCriteria{MapGlob: "["}, false},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.matches, tc.filter.Matches(r))
		})
	}
}

func TestList(t *testing.T) {
	client, mr := setup(t)
	ctx := context.Background()

	newest := storeRun(t, client, "cccc0000-0000-4000-8000-000000000003", "maps/b.png", blackboard.RunStatusRunning, time.Minute)
	oldest := storeRun(t, client, "aaaa0000-0000-4000-8000-000000000001", "maps/a.txt", blackboard.RunStatusComplete, 3*time.Hour)
	middle := storeRun(t, client, "bbbb0000-0000-4000-8000-000000000002", "maps/a.txt", blackboard.RunStatusFailed, time.Hour)

	// A corrupt record is skipped with a warning.
	mr.HSet(blackboard.RunKey("test-instance", "dddd0000-0000-4000-8000-000000000004"), "width", "wide")

	var warn bytes.Buffer
	all, err := List(ctx, client, nil, &warn)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, []string{oldest.ID, middle.ID, newest.ID}, []string{all[0].ID, all[1].ID, all[2].ID})
	assert.Contains(t, warn.String(), "Skipping malformed run: id=dddd0000")

	since, _, err := ParseRange("2h", "")
	require.NoError(t, err)
	recent, err := List(ctx, client, &FilterCriteria{SinceTimestampMs: since, MapGlob: "maps/*.txt"}, &warn)
	require.NoError(t, err)
	require.Len(t, recent, 1)
	assert.Equal(t, middle.ID, recent[0].ID)
}

func TestFormatTable(t *testing.T) {
	client, _ := setup(t)

	var buf bytes.Buffer
	require.NoError(t, FormatTable(&buf, nil, "test-instance"))
	assert.Equal(t, "No runs found for instance 'test-instance'\n", buf.String())

	r := storeRun(t, client, "aaaa0000-0000-4000-8000-000000000001", "maps/a.txt", blackboard.RunStatusComplete, 2*time.Hour)
	buf.Reset()
	require.NoError(t, Write(&buf, []*blackboard.Run{r}, OutputFormatDefault, "test-instance"))

	out := buf.String()
	assert.Contains(t, out, "Runs for instance 'test-instance'")
	assert.Contains(t, out, "aaaa0000")
	assert.NotContains(t, out, r.ID)
	assert.Contains(t, out, "complete")
	assert.Contains(t, out, "maps/a.txt")
	assert.Contains(t, out, "150/300 (50%)")
	assert.Contains(t, out, "2h ago")
	assert.Contains(t, out, "1 run found")
}

func TestFormatJSONL(t *testing.T) {
	client, _ := setup(t)
	a := storeRun(t, client, "aaaa0000-0000-4000-8000-000000000001", "a.txt", blackboard.RunStatusComplete, time.Hour)
	b := storeRun(t, client, "bbbb0000-0000-4000-8000-000000000002", "b.txt", blackboard.RunStatusRunning, time.Minute)

	var buf bytes.Buffer
	require.NoError(t, Write(&buf, []*blackboard.Run{a, b}, OutputFormatJSONL, "test-instance"))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)
	var decoded blackboard.Run
	require.NoError(t, json.Unmarshal([]byte(lines[1]), &decoded))
	assert.Equal(t, *b, decoded)
}

func TestParseOutputFormat(t *testing.T) {
	f, err := ParseOutputFormat("")
	require.NoError(t, err)
	assert.Equal(t, OutputFormatDefault, f)

	f, err = ParseOutputFormat("jsonl")
	require.NoError(t, err)
	assert.Equal(t, OutputFormatJSONL, f)

	_, err = ParseOutputFormat("xml")
	assert.Error(t, err)
}

func TestResolve(t *testing.T) {
	client, _ := setup(t)
	ctx := context.Background()

	storeRun(t, client, "abcdef01-0000-4000-8000-000000000001", "a.txt", blackboard.RunStatusComplete, time.Hour)
	storeRun(t, client, "abcdef02-0000-4000-8000-000000000002", "a.txt", blackboard.RunStatusComplete, time.Hour)
	unique := storeRun(t, client, "123456ab-0000-4000-8000-000000000003", "a.txt", blackboard.RunStatusComplete, time.Hour)

	t.Run("unique prefix", func(t *testing.T) {
		id, err := Resolve(ctx, client, "123456")
		require.NoError(t, err)
		assert.Equal(t, unique.ID, id)
	})

	t.Run("full id", func(t *testing.T) {
		id, err := Resolve(ctx, client, unique.ID)
		require.NoError(t, err)
		assert.Equal(t, unique.ID, id)
	})

	t.Run("full id missing", func(t *testing.T) {
		_, err := Resolve(ctx, client, "99999999-0000-4000-8000-000000000000")
		assert.True(t, IsNotFoundError(err))
	})

	t.Run("too short", func(t *testing.T) {
		_, err := Resolve(ctx, client, "abc")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "at least 6 characters")
	})

	t.Run("no match", func(t *testing.T) {
		_, err := Resolve(ctx, client, "ffffff")
		assert.True(t, IsNotFoundError(err))
		assert.Equal(t, "no runs found matching 'ffffff'", err.Error())
	})

	t.Run("ambiguous", func(t *testing.T) {
		_, err := Resolve(ctx, client, "abcdef")
		require.True(t, IsAmbiguousError(err))
		amb := err.(*AmbiguousError)
		assert.Equal(t, []string{
			"abcdef01-0000-4000-8000-000000000001",
			"abcdef02-0000-4000-8000-000000000002",
		}, amb.Matches)
		msg := FormatAmbiguousError(amb)
		assert.Contains(t, msg, "matches 2 runs")
		assert.Contains(t, msg, "Use a longer prefix")
	})
}

func TestFormatAmbiguousError_Truncates(t *testing.T) {
	err := &AmbiguousError{ShortID: "aaaaaa"}
	for i := 0; i < 13; i++ {
		err.Matches = append(err.Matches, fmt.Sprintf("aaaaaa%02d", i))
	}
	msg := FormatAmbiguousError(err)
	assert.Contains(t, msg, "aaaaaa09")
	assert.NotContains(t, msg, "aaaaaa10")
	assert.Contains(t, msg, "...and 3 more")
}

func TestGetAndFormatDetail(t *testing.T) {
	client, _ := setup(t)
	ctx := context.Background()

	r := storeRun(t, client, "aaaa0000-0000-4000-8000-000000000001", "maps/a.txt", blackboard.RunStatusFailed, time.Hour)
	r.Error = "round limit reached"
	require.NoError(t, client.UpdateRun(ctx, r))
	for _, n := range []int{10, 20} {
		require.NoError(t, client.SaveRound(ctx, &blackboard.RoundSnapshot{
			RunID: r.ID,
			Round: n,
			Agents: []blackboard.AgentSnapshot{
				{ID: "agent-1", State: "returning", Position: grid.C(3, 4), Goal: grid.C(1, 1), Scans: 7, Moves: n},
			},
		}))
	}

	d, err := Get(ctx, client, r.ID)
	require.NoError(t, err)
	assert.Equal(t, []int{10, 20}, d.Stored)
	require.NotNil(t, d.Latest)
	assert.Equal(t, 20, d.Latest.Round)

	var buf bytes.Buffer
	require.NoError(t, FormatDetail(&buf, d, OutputFormatDefault))
	out := buf.String()
	assert.Contains(t, out, "Run "+r.ID)
	assert.Contains(t, out, "Status:    failed")
	assert.Contains(t, out, "Error:     round limit reached")
	assert.Contains(t, out, "Duration:  1m30s")
	assert.Contains(t, out, "Agents after round 20")
	assert.Contains(t, out, "agent-1")
	assert.Contains(t, out, "returning")
	assert.Contains(t, out, "(3, 4)")

	buf.Reset()
	require.NoError(t, FormatDetail(&buf, d, OutputFormatJSONL))
	var decoded Detail
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	assert.Equal(t, r.ID, decoded.Run.ID)
	assert.Equal(t, 20, decoded.Latest.Round)

	_, err = Get(ctx, client, "99999999-0000-4000-8000-000000000000")
	assert.True(t, IsNotFoundError(err))
}

func TestFormatKnowledge(t *testing.T) {
	k := grid.Knowledge{
		grid.C(0, 0): false,
		grid.C(1, 0): true,
		grid.C(2, 1): true,
	}

	var buf bytes.Buffer
	require.NoError(t, FormatKnowledge(&buf, k, 3, 2))
	assert.Equal(t, "#. \n  .\n", buf.String())
}
