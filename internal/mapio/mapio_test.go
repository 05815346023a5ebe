package mapio

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dyluth/swarm/pkg/grid"
)

func TestReadASCII(t *testing.T) {
	text := "\n#####\n#S..#\n#.#\n#####\n\n"

	m, err := ReadASCII(strings.NewReader(text))
	require.NoError(t, err)

	assert.Equal(t, 5, m.World.Width())
	assert.Equal(t, 4, m.World.Height())
	require.NotNil(t, m.Start)
	assert.Equal(t, grid.C(1, 1), *m.Start)

	assert.True(t, m.World.Pathable(grid.C(1, 1)))
	assert.True(t, m.World.Pathable(grid.C(3, 1)))
	assert.True(t, m.World.Pathable(grid.C(1, 2)))
	assert.False(t, m.World.Pathable(grid.C(2, 2)))
	// Padding of the short row is blocked.
	assert.False(t, m.World.Pathable(grid.C(3, 2)))
	assert.False(t, m.World.Pathable(grid.C(4, 2)))
	assert.Equal(t, 4, m.World.PathableCount())
}

func TestReadASCII_CRLFAndSpaces(t *testing.T) {
	m, err := ReadASCII(strings.NewReader("###\r\n# #\r\n###\r\n"))
	require.NoError(t, err)
	assert.Nil(t, m.Start)
	assert.Equal(t, 3, m.World.Width())
	assert.True(t, m.World.Pathable(grid.C(1, 1)))
	assert.Equal(t, 1, m.World.PathableCount())
}

func TestReadASCII_Errors(t *testing.T) {
	tests := []struct {
		name    string
		text    string
		wantErr string
	}{
		{name: "empty", text: "\n\n", wantErr: "no cells"},
		{name: "unknown character", text: "##\n#x\n", wantErr: "unexpected character 'x'"},
		{name: "two starts", text: "S.S\n", wantErr: "second start marker"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, err := ReadASCII(strings.NewReader(tt.text))
			require.Error(t, err)
			assert.Nil(t, m)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestFormatASCII_RoundTrip(t *testing.T) {
	text := "#####\n#S..#\n#.#.#\n#####\n"

	m, err := ReadASCII(strings.NewReader(text))
	require.NoError(t, err)
	assert.Equal(t, text, FormatASCII(m.World, m.Start))
}

func encodePNG(t *testing.T, img image.Image) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestReadPNG(t *testing.T) {
	img := image.NewNRGBA(image.Rect(0, 0, 4, 3))
	for x := 0; x < 4; x++ {
		for y := 0; y < 3; y++ {
			img.Set(x, y, color.White)
		}
	}
	img.Set(0, 0, color.Black)
	img.Set(1, 0, color.NRGBA{R: 255, A: 255})
	img.Set(2, 0, color.NRGBA{R: 200, G: 200, B: 200, A: 255})
	img.Set(3, 0, color.NRGBA{R: 255, G: 255, B: 255, A: 0})

	m, err := ReadPNG(bytes.NewReader(encodePNG(t, img)))
	require.NoError(t, err)

	assert.Equal(t, 4, m.World.Width())
	assert.Equal(t, 3, m.World.Height())
	assert.Nil(t, m.Start)
	assert.False(t, m.World.Pathable(grid.C(0, 0)), "black")
	assert.False(t, m.World.Pathable(grid.C(1, 0)), "red is dark")
	assert.True(t, m.World.Pathable(grid.C(2, 0)), "light grey")
	assert.False(t, m.World.Pathable(grid.C(3, 0)), "transparent")
	assert.Equal(t, 9, m.World.PathableCount())
}

func TestReadPNG_NotAnImage(t *testing.T) {
	_, err := ReadPNG(strings.NewReader("not a png"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to decode image")
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()

	textPath := filepath.Join(dir, "floor.txt")
	require.NoError(t, os.WriteFile(textPath, []byte("###\n#S#\n###\n"), 0644))
	m, err := Load(textPath)
	require.NoError(t, err)
	require.NotNil(t, m.Start)
	assert.Equal(t, grid.C(1, 1), *m.Start)

	img := image.NewGray(image.Rect(0, 0, 2, 2))
	img.Set(1, 1, color.White)
	pngPath := filepath.Join(dir, "floor.PNG")
	require.NoError(t, os.WriteFile(pngPath, encodePNG(t, img), 0644))
	m, err = Load(pngPath)
	require.NoError(t, err)
	assert.Equal(t, 1, m.World.PathableCount())

	_, err = Load(filepath.Join(dir, "missing.txt"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to open map")
}
