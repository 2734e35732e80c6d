// cmd/main.go
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"cloudpico-metobs/internal/app"
	"cloudpico-metobs/internal/config"
	"cloudpico-metobs/internal/logging"
	"cloudpico-metobs/internal/modules/weather/types"
)

const (
	appName = "metobs"
	// Default version is "dev" if not set with -ldflags "-X main.version=..."
	version = "dev"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	if len(args) != 1 || strings.TrimSpace(args[0]) == "" {
		fmt.Fprintf(os.Stderr, "usage: %s <station name>\n", appName)
		return 1
	}

	cfg, err := config.LoadFromEnv()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config error: %v\n", err)
		return 1
	}

	logger := logging.New(cfg, version, appName)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	res, err := app.Run(ctx, cfg, args[0])
	switch {
	case err == nil:
	case errors.Is(err, context.Canceled):
		slog.Info("interrupted")
		return 0
	case errors.Is(err, types.ErrStationNotFound):
		fmt.Fprintln(os.Stderr, "The station was not found. Are you sure you spelled it correctly?")
		return 1
	default:
		slog.Error("run failed", "error", err)
		return 1
	}

	slog.Info("done", "station_id", res.Station.ID, "rows", len(res.Dataset.Rows), "run_id", res.RunID)
	return 0
}
