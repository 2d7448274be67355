package main

import (
	"github.com/fornellas/slogxt/log"
	"github.com/spf13/cobra"

	"github.com/sixdof/armctl/arm"
)

var ReplayCmd = &cobra.Command{
	Use:   "replay path",
	Short: "Stream a previously saved command recording.",
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

		return WithClient(cmd, func(client *arm.Client) error {
			if err := client.LoadRecording(path); err != nil {
				return err
			}
			logger.Info("Replaying", "commands", client.RecordingLen())
			return client.Replay(cmd.Context())
		})
	}),
}

func init() {
	AddClientFlags(ReplayCmd)

	RootCmd.AddCommand(ReplayCmd)

	resetFlagsFns = append(resetFlagsFns, func() {
	})
}
