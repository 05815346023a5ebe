package render

import (
	"bytes"
	"context"
	"image/png"
	"strings"
	"testing"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dyluth/swarm/internal/agent"
	"github.com/dyluth/swarm/internal/geometry"
	"github.com/dyluth/swarm/internal/simulator"
	"github.com/dyluth/swarm/pkg/grid"
)

// dividedWorld is a 12x8 room split by a wall at x=6 with a door at y=4.
func dividedWorld(t *testing.T) *grid.Occupancy {
	t.Helper()
	cols := make([][]bool, 12)
	for x := range cols {
		cols[x] = make([]bool, 8)
		for y := range cols[x] {
			cols[x][y] = x != 6 || y == 4
		}
	}
	world, err := grid.NewOccupancy(cols)
	require.NoError(t, err)
	return world
}

func TestCanvasPaintsExploredMap(t *testing.T) {
	world := dividedWorld(t)
	sim, err := simulator.New(world, simulator.Config{
		Agents:      2,
		Start:       grid.C(2, 2),
		SightRadius: 4,
		MaxRounds:   500,
	}, nil)
	require.NoError(t, err)

	canvas := NewCanvas(world, 2)
	total := 0
	_, err = sim.Run(context.Background(), func(simulator.RoundReport) error {
		for _, n := range canvas.Update(sim.Agents()) {
			total += n
		}
		return nil
	})
	require.NoError(t, err)
	assert.Positive(t, total)

	img := canvas.Frame(nil)
	assert.Equal(t, 24, img.Bounds().Dx())
	assert.Equal(t, 16, img.Bounds().Dy())
	for x := 0; x < world.Width(); x++ {
		for y := 0; y < world.Height(); y++ {
			got := img.RGBAAt(x*2+1, y*2+1)
			if world.Pathable(grid.C(x, y)) {
				assert.True(t, got == openColour || got == trailColour, "cell (%d, %d) is %v", x, y, got)
			} else {
				assert.Equal(t, wallColour, got, "cell (%d, %d)", x, y)
			}
		}
	}
}

func TestCanvasUpdateDrainsDeltas(t *testing.T) {
	world := dividedWorld(t)
	sim, err := simulator.New(world, simulator.Config{
		Agents:      1,
		Start:       grid.C(2, 2),
		SightRadius: 3,
	}, nil)
	require.NoError(t, err)

	_, err = sim.Round(context.Background())
	require.NoError(t, err)

	canvas := NewCanvas(world, 1)
	first := canvas.Update(sim.Agents())
	assert.Positive(t, first["agent-1"])
	assert.Equal(t, unknownColour, canvas.Frame(nil).RGBAAt(11, 7), "far corner is unseen")

	second := canvas.Update(sim.Agents())
	assert.Equal(t, 0, second["agent-1"])
}

func TestFrameMarksAgents(t *testing.T) {
	world := grid.Open(20, 20)
	a := agent.New("scout", agent.Config{Start: grid.C(10, 10), SightRadius: 3}, nil, geometry.NewCache(), nil)

	canvas := NewCanvas(world, 1)
	frame := canvas.Frame([]*agent.Agent{a})
	assert.Equal(t, Palette[0], frame.RGBAAt(10, 10))
	assert.Equal(t, Palette[0], frame.RGBAAt(12, 10))
	assert.Equal(t, unknownColour, frame.RGBAAt(13, 13))

	// The canvas itself is left untouched.
	assert.Equal(t, unknownColour, canvas.Frame(nil).RGBAAt(10, 10))

	var buf bytes.Buffer
	require.NoError(t, canvas.WritePNG(&buf, []*agent.Agent{a}))
	decoded, err := png.Decode(&buf)
	require.NoError(t, err)
	assert.Equal(t, frame.Bounds(), decoded.Bounds())
}

func TestTerminal(t *testing.T) {
	noColor := color.NoColor
	color.NoColor = true
	t.Cleanup(func() { color.NoColor = noColor })

	world := grid.Open(4, 3)
	layers := map[grid.Cell]simulator.Layer{
		grid.C(0, 0): {Pathable: false, Coverage: simulator.KnownByOne},
		grid.C(1, 0): {Pathable: true, Coverage: simulator.KnownByAll},
		grid.C(2, 0): {Pathable: true, Coverage: simulator.KnownBySeveral},
		grid.C(0, 1): {Pathable: true, Coverage: simulator.KnownByOne},
		grid.C(1, 1): {Pathable: true, Coverage: simulator.KnownByOne},
	}
	a := agent.New("scout", agent.Config{Start: grid.C(1, 1), SightRadius: 2}, nil, geometry.NewCache(), nil)

	var buf bytes.Buffer
	require.NoError(t, Terminal(&buf, world, layers, []*agent.Agent{a}))

	lines := strings.Split(buf.String(), "\n")
	require.Len(t, lines, 4)
	assert.Equal(t, "#.. ", lines[0])
	assert.Equal(t, ".1  ", lines[1])
	assert.Equal(t, "    ", lines[2])
	assert.Equal(t, "", lines[3])
}
