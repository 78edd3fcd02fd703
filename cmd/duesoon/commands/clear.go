package commands

import (
	"log/slog"

	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(clearCmd)
}

var clearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Wipes tracked courses and assignments, keeping settings.",
	Run: func(cmd *cobra.Command, args []string) {
		cfg := readConfig()
		svc, cleanup := openService(cfg)
		defer cleanup()

		if err := svc.ClearAll(cmd.Context()); err != nil {
			fatal("failed to clear data", err)
		}
		slog.Info("cleared all tracked data")
	},
}
