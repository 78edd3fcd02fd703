package commands

import (
	"log/slog"
	"time"

	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(refreshCmd)
}

var refreshCmd = &cobra.Command{
	Use:   "refresh",
	Short: "Runs one discovery + scrape pass and reports the outcome.",
	Run: func(cmd *cobra.Command, args []string) {
		cfg := readConfig()
		svc, cleanup := openService(cfg)
		defer cleanup()

		t1 := time.Now()
		summary, err := svc.RefreshAll(cmd.Context())
		if err != nil {
			fatal("refresh failed", err)
		}

		failures := 0
		denied := 0
		items := 0
		for _, r := range summary.Results {
			if r.Err != "" {
				failures++
				slog.Warn("course failed", "course", r.Id, "name", r.Name, "err", r.Err)
			}
			if r.NotAuthorized {
				denied++
			}
			items += r.ItemsFound
		}
		slog.Info("refresh done",
			"courses", len(summary.Results),
			"items", items,
			"denied", denied,
			"failures", failures,
			"seconds", time.Since(t1).Seconds(),
		)
	},
}
