package commands

import (
	"log/slog"
	"net/http"

	"duesoon-backend/lib/chrono"
	"duesoon-backend/lib/osutil"
	"duesoon-backend/services/tracker/httpapi"

	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(serveCmd)
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serves the JSON API and runs scheduled refreshes.",
	Run: func(cmd *cobra.Command, args []string) {
		cfg := readConfig()
		svc, cleanup := openService(cfg)
		defer cleanup()

		ctx := osutil.SignalContext()

		if cfg.RefreshCron != "" {
			cronner := chrono.NewStandardCron()
			defer cronner.Stop()

			err := cronner.Cron(cfg.RefreshCron, func() {
				summary, err := svc.RefreshAll(ctx)
				if err != nil {
					slog.Error("scheduled refresh failed", "err", err)
					return
				}
				slog.Info("scheduled refresh done",
					"courses", len(summary.Results),
					"at", summary.LastRefreshAt,
				)
			})
			if err != nil {
				fatal("failed to schedule refresh", err)
			}
			slog.Info("scheduled refresh", "cron", cfg.RefreshCron)
		}

		go func() {
			slog.Info("listening...", "addr", cfg.Listen)
			err := http.ListenAndServe(cfg.Listen, httpapi.New(svc))
			if err != nil {
				fatal("failed to listen", err)
			}
		}()

		<-ctx.Done()
	},
}
