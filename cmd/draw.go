package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/fornellas/slogxt/log"
	"github.com/spf13/cobra"

	"github.com/sixdof/armctl/arm"
	"github.com/sixdof/armctl/toolpath"
)

var drawCanvasWidth float64
var defaultDrawCanvasWidth = 410.0

var drawCanvasHeight float64
var defaultDrawCanvasHeight = 410.0

var drawXMin float64
var defaultDrawXMin = -100.0

var drawXMax float64
var defaultDrawXMax = 100.0

var drawYNear float64
var defaultDrawYNear = 50.0

var drawYFar float64
var defaultDrawYFar = 250.0

var drawHeight float64
var defaultDrawHeight = 20.0

var drawRetractHeight float64
var defaultDrawRetractHeight = 60.0

var drawHomeX float64
var defaultDrawHomeX = 0.0

var drawHomeY float64
var defaultDrawHomeY = 200.0

func getDrawGenerator() (*toolpath.Generator, error) {
	// Canvas Y grows downward, arm Y grows away from the base, hence the
	// inverted Y range.
	return toolpath.NewGenerator(toolpath.Config{
		XRange: toolpath.Range{
			FromLow: 0, FromHigh: drawCanvasWidth,
			ToLow: drawXMin, ToHigh: drawXMax,
		},
		YRange: toolpath.Range{
			FromLow: 0, FromHigh: drawCanvasHeight,
			ToLow: drawYFar, ToHigh: drawYNear,
		},
		DrawHeight:    drawHeight,
		RetractHeight: drawRetractHeight,
		Home: toolpath.AxisPoint{
			X: drawHomeX, Y: drawHomeY, Z: drawRetractHeight,
		},
	})
}

var DrawCmd = &cobra.Command{
	Use:   "draw path",
	Short: "Draw polylines from a JSON file by streaming the generated toolpath.",
	Args:  cobra.ExactArgs(1),
	Run: GetRunFn(func(cmd *cobra.Command, args []string) error {
		path := args[0]

		ctx, logger := log.MustWithAttrs(
			cmd.Context(),
			"port-name", portName,
			"address", address,
			"path", path,
		)
		cmd.SetContext(ctx)

		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		var polylines []toolpath.Polyline
		if err := json.Unmarshal(data, &polylines); err != nil {
			return fmt.Errorf("failed to parse polylines: %w", err)
		}

		generator, err := getDrawGenerator()
		if err != nil {
			return err
		}

		return WithClient(cmd, func(client *arm.Client) error {
			logger.Info("Drawing", "polylines", len(polylines))
			return client.Draw(cmd.Context(), generator, polylines)
		})
	}),
}

func init() {
	AddClientFlags(DrawCmd)
	DrawCmd.PersistentFlags().Float64Var(&drawCanvasWidth, "canvas-width", defaultDrawCanvasWidth, "Canvas width in pixels")
	DrawCmd.PersistentFlags().Float64Var(&drawCanvasHeight, "canvas-height", defaultDrawCanvasHeight, "Canvas height in pixels")
	DrawCmd.PersistentFlags().Float64Var(&drawXMin, "x-min", defaultDrawXMin, "Leftmost reachable X")
	DrawCmd.PersistentFlags().Float64Var(&drawXMax, "x-max", defaultDrawXMax, "Rightmost reachable X")
	DrawCmd.PersistentFlags().Float64Var(&drawYNear, "y-near", defaultDrawYNear, "Y closest to the base")
	DrawCmd.PersistentFlags().Float64Var(&drawYFar, "y-far", defaultDrawYFar, "Y furthest from the base")
	DrawCmd.PersistentFlags().Float64Var(&drawHeight, "draw-height", defaultDrawHeight, "Z at which the pen touches the surface")
	DrawCmd.PersistentFlags().Float64Var(&drawRetractHeight, "retract-height", defaultDrawRetractHeight, "Z at which the pen travels")
	DrawCmd.PersistentFlags().Float64Var(&drawHomeX, "home-x", defaultDrawHomeX, "X of the park position")
	DrawCmd.PersistentFlags().Float64Var(&drawHomeY, "home-y", defaultDrawHomeY, "Y of the park position")

	RootCmd.AddCommand(DrawCmd)

	resetFlagsFns = append(resetFlagsFns, func() {
		drawCanvasWidth = defaultDrawCanvasWidth
		drawCanvasHeight = defaultDrawCanvasHeight
		drawXMin = defaultDrawXMin
		drawXMax = defaultDrawXMax
		drawYNear = defaultDrawYNear
		drawYFar = defaultDrawYFar
		drawHeight = defaultDrawHeight
		drawRetractHeight = defaultDrawRetractHeight
		drawHomeX = defaultDrawHomeX
		drawHomeY = defaultDrawHomeY
	})
}
