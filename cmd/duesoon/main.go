package main

import (
	"context"
	"log/slog"
	"os"

	"duesoon-backend/cmd/duesoon/commands"
	"duesoon-backend/lib/telemetry"
)

func main() {
	ctx := context.Background()

	telemetry.InitSlog(os.Getenv("DEBUG") != "")

	// a missing telemetry.json5 just means no exporters; anything else
	// is a broken config the operator should hear about
	tel, err := telemetry.SetupFromEnv(ctx, "duesoon")
	if err == nil {
		defer tel.Shutdown(ctx)
	} else if !os.IsNotExist(err) {
		slog.Warn("telemetry disabled", "err", err)
	}

	commands.ExecuteContext(ctx)
}
