package main

import (
	"strings"

	"github.com/fornellas/slogxt/log"
	"github.com/spf13/cobra"

	"github.com/sixdof/armctl/arm"
	"github.com/sixdof/armctl/wire"
)

var SendCmd = &cobra.Command{
	Use:   "send line...",
	Short: "Send a raw command line to the arm controller.",
	Args:  cobra.MinimumNArgs(1),
	Run: GetRunFn(func(cmd *cobra.Command, args []string) error {
		line := strings.Join(args, wire.Delimiter)

		ctx, logger := log.MustWithAttrs(
			cmd.Context(),
			"port-name", portName,
			"address", address,
			"line", line,
		)
		cmd.SetContext(ctx)

		command, err := wire.Decode(line)
		if err != nil {
			return err
		}

		return WithClient(cmd, func(client *arm.Client) error {
			logger.Info("Sending")
			return client.SendImmediate(command)
		})
	}),
}

func init() {
	AddClientFlags(SendCmd)

	RootCmd.AddCommand(SendCmd)

	resetFlagsFns = append(resetFlagsFns, func() {
	})
}
