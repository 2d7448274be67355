package toolpath

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/sixdof/armctl/queue"
	"github.com/sixdof/armctl/wire"
)

func testConfig() Config {
	return Config{
		XRange:        Range{FromLow: 0, FromHigh: 100, ToLow: -100, ToHigh: 100},
		YRange:        Range{FromLow: 0, FromHigh: 100, ToLow: 250, ToHigh: 50},
		DrawHeight:    20,
		RetractHeight: 60,
		Home:          AxisPoint{X: 0, Y: 200, Z: 60},
	}
}

func encode(t *testing.T, commands []wire.Command) []string {
	t.Helper()
	lines := make([]string, 0, len(commands))
	for _, command := range commands {
		lines = append(lines, command.Encode())
	}
	return lines
}

func TestRangeMap(t *testing.T) {
	r := Range{FromLow: 0, FromHigh: 100, ToLow: -100, ToHigh: 100}

	for _, tc := range []struct {
		value    float64
		expected float64
	}{
		{0, -100},
		{100, 100},
		{50, 0},
		{25, -50},
		{33, -34},
	} {
		mapped, err := r.Map(tc.value, 1)
		require.NoError(t, err)
		require.Equal(t, tc.expected, mapped)
	}
}

func TestRangeMapInverted(t *testing.T) {
	// Display Y grows downward, arm Y grows away from the base.
	r := Range{FromLow: 0, FromHigh: 100, ToLow: 250, ToHigh: 50}

	mapped, err := r.Map(0, 1)
	require.NoError(t, err)
	require.Equal(t, 250.0, mapped)

	mapped, err = r.Map(100, 1)
	require.NoError(t, err)
	require.Equal(t, 50.0, mapped)
}

func TestRangeMapInvalid(t *testing.T) {
	r := Range{FromLow: 5, FromHigh: 5, ToLow: 0, ToHigh: 100}
	_, err := r.Map(5, 1)
	require.ErrorIs(t, err, ErrInvalidRange)
}

func TestNewGeneratorRejectsEmptyRange(t *testing.T) {
	config := testConfig()
	config.YRange.FromHigh = config.YRange.FromLow
	_, err := NewGenerator(config)
	require.ErrorIs(t, err, ErrInvalidRange)
}

func TestGenerateSingleOpenPolyline(t *testing.T) {
	g, err := NewGenerator(testConfig())
	require.NoError(t, err)

	commands, err := g.Generate([]Polyline{
		{ID: 1, Points: []PixelPoint{{X: 0, Y: 0}, {X: 50, Y: 50}, {X: 100, Y: 100}}},
	})
	require.NoError(t, err)

	require.Equal(t, []string{
		// Lift at the park position first.
		"G0 X0 Y200 Z60",
		// Travel to the stroke start, then lower the pen.
		"G0 X-100 Y250 Z60",
		"G0 X-100 Y250 Z20",
		// Draw.
		"G0 X0 Y150 Z20",
		"G0 X100 Y50 Z20",
		// Lift and go home.
		"G0 X100 Y50 Z60",
		"G0 X0 Y200 Z60",
	}, encode(t, commands))
}

func TestGenerateClosedPolylineSealsContour(t *testing.T) {
	g, err := NewGenerator(testConfig())
	require.NoError(t, err)

	commands, err := g.Generate([]Polyline{
		{ID: 1, Closed: true, Points: []PixelPoint{{X: 0, Y: 0}, {X: 100, Y: 0}, {X: 100, Y: 100}}},
	})
	require.NoError(t, err)

	lines := encode(t, commands)
	// Last draw-height move returns to the contour's first point.
	require.Equal(t, "G0 X-100 Y250 Z20", lines[len(lines)-3])
	require.Equal(t, "G0 X-100 Y250 Z60", lines[len(lines)-2])
	require.Equal(t, "G0 X0 Y200 Z60", lines[len(lines)-1])
}

func TestGenerateMultiplePolylinesChainWithRetracts(t *testing.T) {
	g, err := NewGenerator(testConfig())
	require.NoError(t, err)

	commands, err := g.Generate([]Polyline{
		{ID: 1, Points: []PixelPoint{{X: 0, Y: 0}, {X: 50, Y: 0}}},
		{ID: 2, Points: []PixelPoint{{X: 100, Y: 100}, {X: 50, Y: 100}}},
	})
	require.NoError(t, err)

	require.Equal(t, []string{
		"G0 X0 Y200 Z60",
		"G0 X-100 Y250 Z60",
		"G0 X-100 Y250 Z20",
		"G0 X0 Y250 Z20",
		// Pen up where the first stroke ended, travel, pen down.
		"G0 X0 Y250 Z60",
		"G0 X100 Y50 Z60",
		"G0 X100 Y50 Z20",
		"G0 X0 Y50 Z20",
		"G0 X0 Y50 Z60",
		"G0 X0 Y200 Z60",
	}, encode(t, commands))
}

func TestGenerateSkipsEmptyPolylines(t *testing.T) {
	g, err := NewGenerator(testConfig())
	require.NoError(t, err)

	commands, err := g.Generate([]Polyline{{ID: 1}, {ID: 2}})
	require.NoError(t, err)
	require.Empty(t, commands)
}

func TestGenerateTracksLastPositionAcrossCalls(t *testing.T) {
	g, err := NewGenerator(testConfig())
	require.NoError(t, err)

	_, err = g.Generate([]Polyline{
		{ID: 1, Points: []PixelPoint{{X: 0, Y: 0}}},
	})
	require.NoError(t, err)

	commands, err := g.Generate([]Polyline{
		{ID: 2, Points: []PixelPoint{{X: 100, Y: 100}}},
	})
	require.NoError(t, err)

	// The second drawing starts with a lift at the park position the first
	// drawing ended on.
	require.Equal(t, "G0 X0 Y200 Z60", commands[0].Encode())
}

func TestGenerateTo(t *testing.T) {
	g, err := NewGenerator(testConfig())
	require.NoError(t, err)

	q := queue.NewQueue[wire.Command]()
	n, err := g.GenerateTo([]Polyline{
		{ID: 1, Points: []PixelPoint{{X: 0, Y: 0}, {X: 100, Y: 100}}},
	}, q)
	require.NoError(t, err)
	require.Equal(t, 6, n)
	require.Equal(t, 6, q.Len())

	command, ok := q.Pop()
	require.True(t, ok)
	require.Equal(t, "G0 X0 Y200 Z60", command.Encode())
}
