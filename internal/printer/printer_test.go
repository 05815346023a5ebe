package printer

import (
	"bytes"
	"testing"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// capture redirects output into buffers with colors disabled.
func capture(t *testing.T) (*bytes.Buffer, *bytes.Buffer) {
	t.Helper()
	noColor := color.NoColor
	color.NoColor = true
	var out, errOut bytes.Buffer
	SetOutput(&out, &errOut)
	t.Cleanup(func() {
		color.NoColor = noColor
		SetOutput(nil, nil)
	})
	return &out, &errOut
}

func TestError(t *testing.T) {
	t.Run("returns error with title", func(t *testing.T) {
		_, errOut := capture(t)
		err := Error("Test Error", "This is a test error", []string{})
		require.Error(t, err)
		require.Equal(t, "Test Error", err.Error())
		assert.Equal(t, "Test Error\n\nThis is a test error\n", errOut.String())
	})

	t.Run("prints a single suggestion plainly", func(t *testing.T) {
		_, errOut := capture(t)
		err := Error("Test Error", "Explanation", []string{"Try this fix"})
		require.Error(t, err)
		assert.Contains(t, errOut.String(), "\nTry this fix\n")
		assert.NotContains(t, errOut.String(), "Either:")
	})

	t.Run("numbers multiple suggestions", func(t *testing.T) {
		_, errOut := capture(t)
		err := Error("Test Error", "Explanation", []string{
			"First option",
			"Second option",
		})
		require.Error(t, err)
		assert.Contains(t, errOut.String(), "Either:\n  1. First option\n  2. Second option\n")
	})
}

func TestErrorWithContext(t *testing.T) {
	_, errOut := capture(t)
	context := map[string]string{
		"Map":      "maps/office.txt",
		"Instance": "test-instance",
	}
	err := ErrorWithContext("Test Error", "Explanation", context, []string{"Fix it"})
	require.Error(t, err)
	require.Equal(t, "Test Error", err.Error())
	assert.Contains(t, errOut.String(), "  Instance: test-instance\n  Map: maps/office.txt\n")
}

func TestSuccessAndWarning(t *testing.T) {
	out, _ := capture(t)

	Success("Run %s complete\n", "abc")
	Success("✓ already marked\n")
	Warning("careful\n")

	assert.Equal(t, "✓ Run abc complete\n✓ already marked\n⚠️  careful\n", out.String())
}

func TestProgress(t *testing.T) {
	out, _ := capture(t)

	Progress(7, 50, 200, 1, 4)
	Progress(8, 0, 0, 0, 4)

	assert.Equal(t,
		"→ round 7     explored 50/200 (25.0%)  finished 1/4\n"+
			"→ round 8     explored 0/0 (0.0%)  finished 0/4\n",
		out.String())
}

func TestFields(t *testing.T) {
	out, _ := capture(t)

	Fields("Run abc", [][2]string{{"Status", "complete"}, {"Map", "office.txt"}})

	assert.Equal(t, "Run abc\n  Status:  complete\n  Map:     office.txt\n", out.String())
}
