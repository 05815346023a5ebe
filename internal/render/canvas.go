// Package render draws the swarm's view of the map as PNG images and as
// coloured terminal text.
package render

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"io"

	"github.com/dyluth/swarm/internal/agent"
	"github.com/dyluth/swarm/pkg/grid"
)

var (
	unknownColour = color.RGBA{R: 32, G: 32, B: 32, A: 255}
	openColour    = color.RGBA{G: 255, A: 255}
	wallColour    = color.RGBA{R: 255, A: 255}
	trailColour   = color.RGBA{G: 192, B: 255, A: 255}
)

// Palette colours agents by index, cycling when there are more agents.
var Palette = []color.RGBA{
	{R: 255, G: 255, A: 255},
	{R: 255, B: 255, A: 255},
	{R: 255, G: 128, A: 255},
	{R: 128, B: 255, A: 255},
	{G: 128, B: 128, A: 255},
	{R: 255, G: 255, B: 255, A: 255},
}

// Canvas accumulates the swarm's discoveries frame by frame. It consumes the
// agents' discovered and path-taken deltas, so it should be the only reader
// of them.
type Canvas struct {
	scale int
	img   *image.RGBA
}

// NewCanvas returns an all-unknown canvas for world with each cell drawn as
// a scale x scale block.
func NewCanvas(world *grid.Occupancy, scale int) *Canvas {
	if scale < 1 {
		scale = 1
	}
	img := image.NewRGBA(image.Rect(0, 0, world.Width()*scale, world.Height()*scale))
	draw.Draw(img, img.Bounds(), &image.Uniform{C: unknownColour}, image.Point{}, draw.Src)
	return &Canvas{scale: scale, img: img}
}

// Update paints every cell the agents discovered or stepped on since the last
// update. It returns the number of newly discovered cells per agent id.
func (c *Canvas) Update(agents []*agent.Agent) map[string]int {
	discovered := make(map[string]int, len(agents))
	for _, a := range agents {
		cells := a.DrainDiscovered()
		discovered[a.ID()] = len(cells)
		k := a.Knowledge()
		for _, cell := range cells {
			if k.Pathable(cell) {
				c.fill(cell, openColour)
			} else {
				c.fill(cell, wallColour)
			}
		}
	}
	// Trails go on top of the terrain discovered this frame.
	for _, a := range agents {
		for _, cell := range a.DrainPathTaken() {
			c.fill(cell, trailColour)
		}
	}
	return discovered
}

func (c *Canvas) fill(cell grid.Cell, col color.RGBA) {
	r := image.Rect(cell.X*c.scale, cell.Y*c.scale, (cell.X+1)*c.scale, (cell.Y+1)*c.scale)
	draw.Draw(c.img, r.Intersect(c.img.Bounds()), &image.Uniform{C: col}, image.Point{}, draw.Src)
}

// Frame returns a copy of the canvas with agent markers drawn on top.
func (c *Canvas) Frame(agents []*agent.Agent) *image.RGBA {
	out := image.NewRGBA(c.img.Bounds())
	draw.Draw(out, out.Bounds(), c.img, image.Point{}, draw.Src)

	radius := 2 * c.scale
	for i, a := range agents {
		col := Palette[i%len(Palette)]
		p := a.Position()
		cx, cy := p.X*c.scale+c.scale/2, p.Y*c.scale+c.scale/2
		for dx := -radius; dx <= radius; dx++ {
			for dy := -radius; dy <= radius; dy++ {
				if dx*dx+dy*dy > radius*radius {
					continue
				}
				pt := image.Pt(cx+dx, cy+dy)
				if pt.In(out.Bounds()) {
					out.SetRGBA(pt.X, pt.Y, col)
				}
			}
		}
	}
	return out
}

// WritePNG encodes the current frame.
func (c *Canvas) WritePNG(w io.Writer, agents []*agent.Agent) error {
	if err := png.Encode(w, c.Frame(agents)); err != nil {
		return fmt.Errorf("failed to encode frame: %w", err)
	}
	return nil
}
