package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"

	"cloudpico-metobs/internal/config"
	"cloudpico-metobs/internal/db"
	"cloudpico-metobs/internal/db/migrate"
	"cloudpico-metobs/internal/modules/weather/normalize"
	"cloudpico-metobs/internal/modules/weather/repository"
	"cloudpico-metobs/internal/modules/weather/service"
	"cloudpico-metobs/internal/modules/weather/smhi"
	"cloudpico-metobs/internal/modules/weather/views"
	"cloudpico-metobs/internal/mqtt"
)

// Run wires every component from cfg and runs the pipeline for one query.
func Run(ctx context.Context, cfg config.Config, query string) (*service.Result, error) {
	logger := slog.Default()
	logger.Info("config loaded",
		"appEnv", cfg.AppEnv,
		"logLevel", cfg.LogLevel.String(),
		"stationsFile", cfg.StationsFile,
		"outputDir", cfg.OutputDir,
		"parameters", len(cfg.Params),
		"fetchFailurePolicy", cfg.FetchFailurePolicy,
		"coercePolicy", cfg.CoercePolicy,
		"charts", cfg.Charts,
		"mqttBroker", cfg.MQTTBroker,
	)

	if err := os.MkdirAll(cfg.OutputDir, 0o755); err != nil {
		return nil, fmt.Errorf("output dir: %w", err)
	}

	dbConn, err := db.Open(cfg, logger)
	if err != nil {
		return nil, err
	}
	defer func() {
		if closeErr := db.Close(dbConn); closeErr != nil {
			slog.Error("db close", "error", closeErr)
		}
	}()

	if err := migrate.Run(ctx, dbConn); err != nil {
		return nil, err
	}

	repo := repository.NewRepository(dbConn)
	if err := loadStations(ctx, repo, cfg, logger); err != nil {
		return nil, err
	}

	policy, err := normalize.ParseCoercePolicy(cfg.CoercePolicy)
	if err != nil {
		return nil, err
	}

	var opts service.Options
	if cfg.Charts {
		renderer, err := views.NewRenderer(cfg.OutputDir, logger)
		if err != nil {
			return nil, err
		}
		opts.Presenter = renderer
	}
	if cfg.ExportEnabled() {
		opts.Publisher = mqtt.NewClient(cfg, logger)
	}

	svc := service.NewService(cfg,
		service.NewResolver(repo, logger),
		smhi.NewClient(cfg.DataURLTemplate, cfg.OutputDir, &http.Client{Timeout: cfg.HTTPTimeout}, logger),
		normalize.New(cfg.OutputDir, cfg.IndexColumns, policy, logger),
		opts,
		logger,
	)
	return svc.Run(ctx, query)
}

func loadStations(ctx context.Context, repo repository.StationRepository, cfg config.Config, logger *slog.Logger) error {
	f, err := os.Open(cfg.StationsFile)
	if err != nil {
		return fmt.Errorf("station table: %w", err)
	}
	defer f.Close()

	n, err := repo.Load(ctx, f, cfg.StationsIDColumn, cfg.StationsNameColumn)
	if err != nil {
		return fmt.Errorf("station table %s: %w", cfg.StationsFile, err)
	}
	logger.Info("station directory loaded", "stations", n, "path", cfg.StationsFile)

	if logger.Enabled(ctx, slog.LevelDebug) {
		stations, err := repo.GetStations(ctx)
		if err != nil {
			return fmt.Errorf("station directory: %w", err)
		}
		for _, st := range stations {
			logger.Debug("station", "id", st.ID, "name", st.Name)
		}
	}
	return nil
}
