package main

import (
	"github.com/fornellas/slogxt/log"
	"github.com/spf13/cobra"

	"github.com/sixdof/armctl/arm"
)

var StopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Emergency stop: halt the arm immediately and discard pending motion.",
	Args:  cobra.NoArgs,
	Run: GetRunFn(func(cmd *cobra.Command, args []string) error {
		ctx, logger := log.MustWithAttrs(
			cmd.Context(),
			"port-name", portName,
			"address", address,
		)
		cmd.SetContext(ctx)

		return WithClient(cmd, func(client *arm.Client) error {
			logger.Info("Stopping")
			return client.EmergencyStop()
		})
	}),
}

func init() {
	AddClientFlags(StopCmd)

	RootCmd.AddCommand(StopCmd)

	resetFlagsFns = append(resetFlagsFns, func() {
	})
}
