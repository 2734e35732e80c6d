// Package service runs the station pipeline: resolve, download, normalize,
// export and present.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"cloudpico-metobs/internal/config"
	"cloudpico-metobs/internal/modules/weather/smhi"
	"cloudpico-metobs/internal/modules/weather/types"
	"cloudpico-metobs/internal/modules/weather/views"
	"cloudpico-metobs/internal/mqtt"
)

type Fetcher interface {
	FetchAll(ctx context.Context, stationID int, params []types.Parameter) []smhi.FetchResult
}

type Normalizer interface {
	Normalize(stationID int, paths []string, params []types.Parameter) (*types.Dataset, error)
}

// TelemetryPublisher is the optional export of merged rows.
type TelemetryPublisher interface {
	Connect(ctx context.Context) error
	PublishTelemetry(stationID string, t mqtt.Telemetry) error
	Disconnect()
}

// Result is what one run produced.
type Result struct {
	RunID   string
	Station types.Station
	Label   string
	Dataset *types.Dataset
	// Skipped lists parameters dropped under the skip fetch policy.
	Skipped []types.Parameter
}

type Service struct {
	resolver   *Resolver
	fetcher    Fetcher
	normalizer Normalizer
	presenter  views.Presenter
	publisher  TelemetryPublisher

	params        []types.Parameter
	failurePolicy string
	logger        *slog.Logger
}

// Options carries the optional collaborators. A nil Presenter skips charts and
// a nil Publisher skips the export.
type Options struct {
	Presenter views.Presenter
	Publisher TelemetryPublisher
}

func NewService(cfg config.Config, resolver *Resolver, fetcher Fetcher, normalizer Normalizer, opts Options, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	policy := cfg.FetchFailurePolicy
	if policy == "" {
		policy = config.FetchAbort
	}
	return &Service{
		resolver:      resolver,
		fetcher:       fetcher,
		normalizer:    normalizer,
		presenter:     opts.Presenter,
		publisher:     opts.Publisher,
		params:        cfg.Params,
		failurePolicy: policy,
		logger:        logger,
	}
}

// Label is the display form of a query: lower case with the first letter
// upper cased, so "new york" becomes "New york".
func Label(query string) string {
	s := cases.Lower(language.Swedish).String(strings.TrimSpace(query))
	_, size := utf8.DecodeRuneInString(s)
	return cases.Upper(language.Swedish).String(s[:size]) + s[size:]
}

// Run executes the pipeline for one station query.
func (s *Service) Run(ctx context.Context, query string) (*Result, error) {
	res := &Result{RunID: uuid.NewString(), Label: Label(query)}
	logger := s.logger.With("run_id", res.RunID)

	station, err := s.resolver.Resolve(ctx, query)
	if err != nil {
		return res, err
	}
	res.Station = station
	logger = logger.With("station_id", station.ID)
	logger.Info(fmt.Sprintf("Data from %s with id %d.", res.Label, station.ID))

	paths, params, skipped, err := s.fetch(ctx, logger, station.ID)
	res.Skipped = skipped
	if err != nil {
		return res, err
	}

	ds, err := s.normalizer.Normalize(station.ID, paths, params)
	if err != nil {
		return res, fmt.Errorf("normalize station %d: %w", station.ID, err)
	}
	res.Dataset = ds
	logger.Info("dataset ready", "rows", len(ds.Rows), "parameters", len(ds.Params))

	if s.publisher != nil {
		s.export(ctx, logger, ds)
	}

	if s.presenter != nil {
		if err := s.present(ctx, ds, res.Label); err != nil {
			return res, err
		}
	}
	return res, nil
}

// fetch downloads every configured parameter and applies the failure policy
// before anything is merged.
func (s *Service) fetch(ctx context.Context, logger *slog.Logger, stationID int) ([]string, []types.Parameter, []types.Parameter, error) {
	results := s.fetcher.FetchAll(ctx, stationID, s.params)

	var (
		paths   []string
		params  []types.Parameter
		skipped []types.Parameter
	)
	for _, r := range results {
		if r.Err == nil {
			paths = append(paths, r.Path)
			params = append(params, r.Parameter)
			continue
		}
		if errors.Is(r.Err, context.Canceled) || errors.Is(r.Err, context.DeadlineExceeded) {
			return nil, nil, skipped, r.Err
		}
		if s.failurePolicy != config.FetchSkip {
			return nil, nil, skipped, r.Err
		}
		logger.Warn("skipping parameter", "parameter", r.Parameter.Code, "name", r.Parameter.Name, "error", r.Err)
		skipped = append(skipped, r.Parameter)
	}
	if len(paths) == 0 {
		return nil, nil, skipped, fmt.Errorf("station %d: %w", stationID, types.ErrNoParameters)
	}
	return paths, params, skipped, nil
}

// export is best effort: failures are logged and the run result stands.
func (s *Service) export(ctx context.Context, logger *slog.Logger, ds *types.Dataset) {
	if err := s.publisher.Connect(ctx); err != nil {
		logger.Warn("telemetry export unavailable", "error", err)
		return
	}
	defer s.publisher.Disconnect()

	key := mqtt.StationKey(ds)
	readings := mqtt.FromDataset(ds)
	for i, t := range readings {
		if err := s.publisher.PublishTelemetry(key, t); err != nil {
			logger.Warn("telemetry export stopped", "published", i, "total", len(readings), "error", err)
			return
		}
	}
	logger.Info("telemetry exported", "readings", len(readings))
}

func (s *Service) present(ctx context.Context, ds *types.Dataset, label string) error {
	for _, p := range ds.Params {
		if err := s.presenter.Parameter(ctx, ds, label, p); err != nil {
			return fmt.Errorf("present %s: %w", p.Name, err)
		}
	}
	if err := s.presenter.Joint(ctx, ds, label); err != nil {
		return fmt.Errorf("present joint: %w", err)
	}
	if err := s.presenter.Pairs(ctx, ds, label); err != nil {
		return fmt.Errorf("present pairs: %w", err)
	}
	if err := s.presenter.Interactive(ctx, ds, label); err != nil {
		return fmt.Errorf("present interactive: %w", err)
	}
	return nil
}
