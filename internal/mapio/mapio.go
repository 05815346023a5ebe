// Package mapio loads ground-truth maps from ASCII text and PNG images.
package mapio

import (
	"bufio"
	"bytes"
	"fmt"
	"image"
	"image/color"
	_ "image/png" // register the PNG decoder
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/dyluth/swarm/pkg/grid"
)

// Map is a loaded ground truth plus the start marker, if the source had one.
type Map struct {
	World *grid.Occupancy
	Start *grid.Cell
}

// Load reads a map file, choosing the decoder from its extension.
// .png files are images, anything else is ASCII.
func Load(path string) (*Map, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open map: %w", err)
	}
	defer f.Close()

	if strings.EqualFold(filepath.Ext(path), ".png") {
		m, err := ReadPNG(f)
		if err != nil {
			return nil, fmt.Errorf("failed to load %s: %w", path, err)
		}
		return m, nil
	}

	m, err := ReadASCII(f)
	if err != nil {
		return nil, fmt.Errorf("failed to load %s: %w", path, err)
	}
	return m, nil
}

// ReadASCII parses a text map. '#' is blocked, '.' and ' ' are open and a
// single 'S' marks an open start cell. Row n is y = n. Short rows are padded
// with blocked cells.
func ReadASCII(r io.Reader) (*Map, error) {
	var rows []string
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		rows = append(rows, strings.TrimRight(scanner.Text(), "\r"))
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}

	for len(rows) > 0 && strings.TrimSpace(rows[len(rows)-1]) == "" {
		rows = rows[:len(rows)-1]
	}
	for len(rows) > 0 && strings.TrimSpace(rows[0]) == "" {
		rows = rows[1:]
	}

	width := 0
	for _, row := range rows {
		if len(row) > width {
			width = len(row)
		}
	}
	if width == 0 {
		return nil, grid.ErrEmptyGrid
	}

	var start *grid.Cell
	cols := make([][]bool, width)
	for x := range cols {
		cols[x] = make([]bool, len(rows))
	}
	for y, row := range rows {
		for x := 0; x < len(row); x++ {
			switch row[x] {
			case '#':
			case '.', ' ':
				cols[x][y] = true
			case 'S':
				if start != nil {
					return nil, fmt.Errorf("line %d: second start marker at (%d, %d), first at %s", y+1, x, y, *start)
				}
				c := grid.C(x, y)
				start = &c
				cols[x][y] = true
			default:
				return nil, fmt.Errorf("line %d: unexpected character %q at column %d", y+1, row[x], x+1)
			}
		}
	}

	world, err := grid.NewOccupancy(cols)
	if err != nil {
		return nil, err
	}
	return &Map{World: world, Start: start}, nil
}

// ReadPNG decodes an image map. Opaque pixels at least half as bright as
// white are open, everything else is blocked.
func ReadPNG(r io.Reader) (*Map, error) {
	img, _, err := image.Decode(r)
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}

	bounds := img.Bounds()
	cols := make([][]bool, bounds.Dx())
	for x := range cols {
		cols[x] = make([]bool, bounds.Dy())
		for y := range cols[x] {
			cols[x][y] = light(img.At(bounds.Min.X+x, bounds.Min.Y+y))
		}
	}

	world, err := grid.NewOccupancy(cols)
	if err != nil {
		return nil, err
	}
	return &Map{World: world}, nil
}

func light(c color.Color) bool {
	if _, _, _, a := c.RGBA(); a < 0x8000 {
		return false
	}
	return color.GrayModel.Convert(c).(color.Gray).Y >= 128
}

// FormatASCII writes world in the format ReadASCII accepts. start may be nil.
func FormatASCII(world *grid.Occupancy, start *grid.Cell) string {
	var buf bytes.Buffer
	for y := 0; y < world.Height(); y++ {
		for x := 0; x < world.Width(); x++ {
			c := grid.C(x, y)
			switch {
			case start != nil && c == *start:
				buf.WriteByte('S')
			case world.Pathable(c):
				buf.WriteByte('.')
			default:
				buf.WriteByte('#')
			}
		}
		buf.WriteByte('\n')
	}
	return buf.String()
}
