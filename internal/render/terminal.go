package render

import (
	"bufio"
	"io"

	"github.com/fatih/color"

	"github.com/dyluth/swarm/internal/agent"
	"github.com/dyluth/swarm/internal/simulator"
	"github.com/dyluth/swarm/pkg/grid"
)

var (
	wallText    = color.New(color.FgRed)
	oneText     = color.New(color.FgGreen, color.Faint)
	severalText = color.New(color.FgGreen)
	allText     = color.New(color.FgGreen, color.Bold)
	agentText   = color.New(color.FgYellow, color.Bold)
)

// Terminal writes one character per cell: '#' for known walls, '.' for known
// open cells shaded by how many agents know them, a digit for each agent and
// a blank for unknown cells.
func Terminal(w io.Writer, world *grid.Occupancy, layers map[grid.Cell]simulator.Layer, agents []*agent.Agent) error {
	marks := make(map[grid.Cell]byte, len(agents))
	for i, a := range agents {
		marks[a.Position()] = byte('0' + (i+1)%10)
	}

	bw := bufio.NewWriter(w)
	for y := 0; y < world.Height(); y++ {
		for x := 0; x < world.Width(); x++ {
			c := grid.C(x, y)
			if m, ok := marks[c]; ok {
				agentText.Fprint(bw, string(m))
				continue
			}
			l, ok := layers[c]
			switch {
			case !ok:
				bw.WriteByte(' ')
			case !l.Pathable:
				wallText.Fprint(bw, "#")
			case l.Coverage == simulator.KnownByAll:
				allText.Fprint(bw, ".")
			case l.Coverage == simulator.KnownBySeveral:
				severalText.Fprint(bw, ".")
			default:
				oneText.Fprint(bw, ".")
			}
		}
		bw.WriteByte('\n')
	}
	return bw.Flush()
}
