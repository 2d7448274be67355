package main

import (
	"github.com/fornellas/slogxt/log"
	"github.com/spf13/cobra"

	"github.com/sixdof/armctl/arm"
)

var jogX float64
var jogY float64
var jogZ float64
var jogAbsolute bool

var JogCmd = &cobra.Command{
	Use:   "jog",
	Short: "Move the arm relative to its current position (or to an absolute point).",
	Args:  cobra.NoArgs,
	Run: GetRunFn(func(cmd *cobra.Command, args []string) error {
		ctx, logger := log.MustWithAttrs(
			cmd.Context(),
			"x", jogX,
			"y", jogY,
			"z", jogZ,
			"absolute", jogAbsolute,
		)
		cmd.SetContext(ctx)

		return WithClient(cmd, func(client *arm.Client) error {
			logger.Info("Moving")
			if jogAbsolute {
				return client.MoveTo(jogX, jogY, jogZ)
			}
			return client.Jog(jogX, jogY, jogZ)
		})
	}),
}

func init() {
	AddClientFlags(JogCmd)
	JogCmd.PersistentFlags().Float64VarP(&jogX, "x", "x", 0, "X displacement (or target with --absolute)")
	JogCmd.PersistentFlags().Float64VarP(&jogY, "y", "y", 0, "Y displacement (or target with --absolute)")
	JogCmd.PersistentFlags().Float64VarP(&jogZ, "z", "z", 0, "Z displacement (or target with --absolute)")
	JogCmd.PersistentFlags().BoolVar(&jogAbsolute, "absolute", false, "Treat coordinates as an absolute target")

	RootCmd.AddCommand(JogCmd)

	resetFlagsFns = append(resetFlagsFns, func() {
		jogX = 0
		jogY = 0
		jogZ = 0
		jogAbsolute = false
	})
}
