package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/fornellas/slogxt/log"
	"github.com/spf13/cobra"

	"github.com/sixdof/armctl/toolpath"
)

var PlanCmd = &cobra.Command{
	Use:   "plan path",
	Short: "Generate the toolpath for a polylines JSON file without sending it.",
	Long:  "Writes the generated motion sequence as wire-format lines, one command per line. The output can be inspected, edited and later streamed with replay.",
	Args:  cobra.ExactArgs(1),
	Run: GetRunFn(func(cmd *cobra.Command, args []string) (err error) {
		path := args[0]

		ctx, logger := log.MustWithAttrs(
			cmd.Context(),
			"path", path,
			"output", outputValue.String(),
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
		commands, err := generator.Generate(polylines)
		if err != nil {
			return err
		}

		writerCloser, err := outputValue.WriterCloser()
		if err != nil {
			return err
		}
		defer func() { err = errors.Join(err, writerCloser.Close()) }()

		logger.Info("Planned", "commands", len(commands))
		for _, command := range commands {
			if _, err := fmt.Fprintln(writerCloser, command.Encode()); err != nil {
				return err
			}
		}
		return nil
	}),
}

func init() {
	AddOutputFlags(PlanCmd)
	PlanCmd.PersistentFlags().Float64Var(&drawCanvasWidth, "canvas-width", defaultDrawCanvasWidth, "Canvas width in pixels")
	PlanCmd.PersistentFlags().Float64Var(&drawCanvasHeight, "canvas-height", defaultDrawCanvasHeight, "Canvas height in pixels")
	PlanCmd.PersistentFlags().Float64Var(&drawXMin, "x-min", defaultDrawXMin, "Leftmost reachable X")
	PlanCmd.PersistentFlags().Float64Var(&drawXMax, "x-max", defaultDrawXMax, "Rightmost reachable X")
	PlanCmd.PersistentFlags().Float64Var(&drawYNear, "y-near", defaultDrawYNear, "Y closest to the base")
	PlanCmd.PersistentFlags().Float64Var(&drawYFar, "y-far", defaultDrawYFar, "Y furthest from the base")
	PlanCmd.PersistentFlags().Float64Var(&drawHeight, "draw-height", defaultDrawHeight, "Z at which the pen touches the surface")
	PlanCmd.PersistentFlags().Float64Var(&drawRetractHeight, "retract-height", defaultDrawRetractHeight, "Z at which the pen travels")
	PlanCmd.PersistentFlags().Float64Var(&drawHomeX, "home-x", defaultDrawHomeX, "X of the park position")
	PlanCmd.PersistentFlags().Float64Var(&drawHomeY, "home-y", defaultDrawHomeY, "Y of the park position")

	RootCmd.AddCommand(PlanCmd)

	resetFlagsFns = append(resetFlagsFns, func() {
	})
}
