// Package toolpath converts traced 2-D polylines from display space into the
// ordered motion command sequence that draws them: retract, travel, pen down,
// draw, and a final return home.
package toolpath

import (
	"errors"
	"fmt"
	"math"

	"github.com/sixdof/armctl/queue"
	"github.com/sixdof/armctl/wire"
)

var ErrInvalidRange = errors.New("toolpath: remap source range is empty")

// PixelPoint is a display-space coordinate.
type PixelPoint struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// AxisPoint is a physical arm coordinate.
type AxisPoint struct {
	X float64
	Y float64
	Z float64
}

// Polyline is one stroke: ordered pixel points plus an identifier
// distinguishing a new stroke from the continuation of the previous one.
// Closed polylines (traced contours) get an extra move back to their first
// point so the drawn outline is sealed.
type Polyline struct {
	ID     int          `json:"id"`
	Closed bool         `json:"closed"`
	Points []PixelPoint `json:"points"`
}

// Range is a linear remap interval pair: pixel values in [FromLow, FromHigh]
// map onto axis values in [ToLow, ToHigh].
type Range struct {
	FromLow  float64 `json:"from_low"`
	FromHigh float64 `json:"from_high"`
	ToLow    float64 `json:"to_low"`
	ToHigh   float64 `json:"to_high"`
}

// Map linearly remaps value and rounds the result to precision decimal
// places. An empty source range is a caller misconfiguration, reported before
// any command is generated rather than producing NaN moves.
func (r Range) Map(value float64, precision int) (float64, error) {
	if r.FromHigh == r.FromLow {
		return 0, fmt.Errorf("%w: [%v, %v]", ErrInvalidRange, r.FromLow, r.FromHigh)
	}
	mapped := r.ToLow + (r.ToHigh-r.ToLow)*(value-r.FromLow)/(r.FromHigh-r.FromLow)
	scale := math.Pow(10, float64(precision))
	return math.Round(mapped*scale) / scale, nil
}

// Config holds the pixel-to-axis remap and the two working heights.
type Config struct {
	XRange Range
	YRange Range
	// Z at which the pen touches the work surface.
	DrawHeight float64
	// Z at which the pen travels clear of the work surface.
	RetractHeight float64
	// Where the arm parks between drawings.
	Home AxisPoint
}

// Generator turns polylines into motion commands, tracking the last commanded
// XY position across calls so consecutive strokes chain safely.
type Generator struct {
	config       Config
	lastPosition AxisPoint
}

func NewGenerator(config Config) (*Generator, error) {
	// Validate both remap ranges up front: a partially generated toolpath must
	// never reach the queue.
	if _, err := config.XRange.Map(0, wire.AxisPrecision); err != nil {
		return nil, err
	}
	if _, err := config.YRange.Map(0, wire.AxisPrecision); err != nil {
		return nil, err
	}
	return &Generator{
		config:       config,
		lastPosition: config.Home,
	}, nil
}

func (g *Generator) mapPoint(p PixelPoint) (x, y float64) {
	x, _ = g.config.XRange.Map(float64(p.X), wire.AxisPrecision)
	y, _ = g.config.YRange.Map(float64(p.Y), wire.AxisPrecision)
	return x, y
}

// Generate converts the polylines into the full ordered move sequence. For
// each polyline: lift the pen at the current position, travel to the stroke
// start at retract height, lower to draw height, draw every segment, and for
// closed contours seal the outline back to its first point. After the last
// polyline the pen is lifted and the arm returns home at retract height.
func (g *Generator) Generate(polylines []Polyline) ([]wire.Command, error) {
	var commands []wire.Command

	for _, polyline := range polylines {
		if len(polyline.Points) == 0 {
			continue
		}

		commands = append(commands, wire.NewMove(
			g.lastPosition.X, g.lastPosition.Y, g.config.RetractHeight,
		))

		firstX, firstY := g.mapPoint(polyline.Points[0])
		commands = append(commands,
			wire.NewMove(firstX, firstY, g.config.RetractHeight),
			wire.NewMove(firstX, firstY, g.config.DrawHeight),
		)
		g.lastPosition = AxisPoint{X: firstX, Y: firstY, Z: g.config.DrawHeight}

		for _, point := range polyline.Points[1:] {
			x, y := g.mapPoint(point)
			commands = append(commands, wire.NewMove(x, y, g.config.DrawHeight))
			g.lastPosition = AxisPoint{X: x, Y: y, Z: g.config.DrawHeight}
		}

		if polyline.Closed && len(polyline.Points) > 1 {
			commands = append(commands, wire.NewMove(firstX, firstY, g.config.DrawHeight))
			g.lastPosition = AxisPoint{X: firstX, Y: firstY, Z: g.config.DrawHeight}
		}
	}

	if len(commands) == 0 {
		return nil, nil
	}

	commands = append(commands,
		wire.NewMove(g.lastPosition.X, g.lastPosition.Y, g.config.RetractHeight),
		wire.NewMove(g.config.Home.X, g.config.Home.Y, g.config.RetractHeight),
	)
	g.lastPosition = AxisPoint{
		X: g.config.Home.X,
		Y: g.config.Home.Y,
		Z: g.config.RetractHeight,
	}

	return commands, nil
}

// GenerateTo generates the move sequence and pushes it onto the queue.
func (g *Generator) GenerateTo(polylines []Polyline, q *queue.Queue[wire.Command]) (int, error) {
	commands, err := g.Generate(polylines)
	if err != nil {
		return 0, err
	}
	for _, command := range commands {
		q.Push(command)
	}
	return len(commands), nil
}
