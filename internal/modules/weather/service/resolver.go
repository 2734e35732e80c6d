package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"cloudpico-metobs/internal/modules/weather/repository"
	"cloudpico-metobs/internal/modules/weather/types"
)

// Resolver maps a free-text query to a station: an exact caseless match first,
// then the first station in table order whose name starts with the query.
type Resolver struct {
	repo   repository.StationRepository
	logger *slog.Logger
}

func NewResolver(repo repository.StationRepository, logger *slog.Logger) *Resolver {
	if logger == nil {
		logger = slog.Default()
	}
	return &Resolver{repo: repo, logger: logger}
}

func (r *Resolver) Resolve(ctx context.Context, query string) (types.Station, error) {
	q := strings.TrimSpace(query)
	if q == "" {
		return types.Station{}, fmt.Errorf("%w: empty query", types.ErrStationNotFound)
	}

	s, ok, err := r.repo.FindExact(ctx, q)
	if err != nil {
		return types.Station{}, fmt.Errorf("exact lookup: %w", err)
	}
	if ok {
		r.logger.Debug("station matched", "query", q, "stage", "exact", "station_id", s.ID)
		return s, nil
	}

	s, ok, err = r.repo.FindPrefix(ctx, q)
	if err != nil {
		return types.Station{}, fmt.Errorf("prefix lookup: %w", err)
	}
	if ok {
		r.logger.Debug("station matched", "query", q, "stage", "prefix", "station_id", s.ID, "name", s.Name)
		return s, nil
	}

	return types.Station{}, fmt.Errorf("%w: %q", types.ErrStationNotFound, q)
}
