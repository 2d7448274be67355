package main

import (
	"os"

	"github.com/fornellas/slogxt/log"
	"github.com/spf13/cobra"
)

var ExitFn func(code int) = os.Exit

func Exit(code int) {
	ExitFn(code)
}

// GetRunFn adapts an error-returning command body to cobra's Run signature:
// errors are logged and turn into a non-zero exit status.
func GetRunFn(fn func(cmd *cobra.Command, args []string) error) func(cmd *cobra.Command, args []string) {
	return func(cmd *cobra.Command, args []string) {
		if err := fn(cmd, args); err != nil {
			logger := log.MustLogger(cmd.Context())
			logger.Error("Failed", "err", err)
			Exit(1)
		}
	}
}
