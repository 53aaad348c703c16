package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/fornellas/slogxt/log"
)

// Exit terminates the process after flushing the debug log file, if open.
func Exit(code int) {
	if logDebugFile != nil {
		logDebugFile.Close()
	}
	os.Exit(code)
}

// GetRunFn wraps an error returning run function into a cobra Run function
// that logs failures and exits non-zero.
func GetRunFn(fn func(cmd *cobra.Command, args []string) error) func(cmd *cobra.Command, args []string) {
	return func(cmd *cobra.Command, args []string) {
		if err := fn(cmd, args); err != nil {
			logger := log.MustLogger(cmd.Context())
			logger.Error("Failed", "err", err)
			Exit(1)
		}
	}
}
