package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "ucrelay",
	Short: "Relay commands to a Telegram topup bot and correlate its replies",
	Long:  "ucrelay bridges HTTP callers to a Telegram counterpart bot, extracting structured records from its free-form replies and correlating them back to the commands that triggered them.",
}

// Execute runs the root command and exits non-zero on error.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
