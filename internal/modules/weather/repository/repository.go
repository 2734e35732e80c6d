package repository

import (
	"context"
	"database/sql"
	_ "embed"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"

	"golang.org/x/text/cases"

	"cloudpico-metobs/internal/modules/weather/types"
)

//go:embed sql/insert-station.sql
var insertStationSQL string

//go:embed sql/find-station-exact.sql
var findStationExactSQL string

//go:embed sql/find-station-prefix.sql
var findStationPrefixSQL string

//go:embed sql/get-stations.sql
var getStationsSQL string

//go:embed sql/delete-stations.sql
var deleteStationsSQL string

// StationRepository is the station directory: an ordered, read-only lookup table
// once Load has run. Names are matched on their case-folded form.
type StationRepository interface {
	Load(ctx context.Context, r io.Reader, idColumn, nameColumn string) (int, error)
	FindExact(ctx context.Context, name string) (types.Station, bool, error)
	FindPrefix(ctx context.Context, prefix string) (types.Station, bool, error)
	GetStations(ctx context.Context) ([]types.Station, error)
}

type repositoryImpl struct {
	db *sql.DB
}

// NewRepository expects the stations schema to be migrated already.
func NewRepository(db *sql.DB) StationRepository {
	return &repositoryImpl{db: db}
}

// Fold is the caseless form names and queries are compared in.
func Fold(s string) string {
	return cases.Fold().String(s)
}

// Load replaces the directory with the stations of a semicolon separated table
// and returns how many were read. Source row order is kept.
func (r *repositoryImpl) Load(ctx context.Context, src io.Reader, idColumn, nameColumn string) (int, error) {
	reader := csv.NewReader(src)
	reader.Comma = ';'
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return 0, errors.New("station table is empty")
		}
		return 0, fmt.Errorf("read station header: %w", err)
	}
	idIdx, nameIdx := -1, -1
	for i, h := range header {
		h = strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))
		switch h {
		case idColumn:
			idIdx = i
		case nameColumn:
			nameIdx = i
		}
	}
	if idIdx < 0 || nameIdx < 0 {
		return 0, fmt.Errorf("station table needs columns %q and %q, got %q", idColumn, nameColumn, header)
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin load: %w", err)
	}
	defer func() {
		// No-op after a successful Commit.
		_ = tx.Rollback()
	}()

	if _, err := tx.ExecContext(ctx, deleteStationsSQL); err != nil {
		return 0, fmt.Errorf("clear stations: %w", err)
	}
	stmt, err := tx.PrepareContext(ctx, insertStationSQL)
	if err != nil {
		return 0, fmt.Errorf("prepare insert: %w", err)
	}
	defer func() {
		if err := stmt.Close(); err != nil {
			slog.Error("close insert statement", "error", err)
		}
	}()

	n := 0
	for {
		rec, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return 0, fmt.Errorf("read station table: %w", err)
		}
		if len(rec) <= idIdx || len(rec) <= nameIdx {
			line, _ := reader.FieldPos(0)
			slog.Debug("skipping short station row", "line", line, "fields", len(rec))
			continue
		}
		idStr := strings.TrimSpace(rec[idIdx])
		name := strings.TrimSpace(rec[nameIdx])
		if idStr == "" && name == "" {
			continue
		}
		id, err := strconv.Atoi(idStr)
		if err != nil {
			line, _ := reader.FieldPos(idIdx)
			return 0, fmt.Errorf("station table line %d: invalid %s %q: %w", line, idColumn, idStr, err)
		}
		n++
		if _, err := stmt.ExecContext(ctx, n, id, name, Fold(name)); err != nil {
			return 0, fmt.Errorf("insert station %d: %w", id, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit load: %w", err)
	}
	return n, nil
}

func (r *repositoryImpl) FindExact(ctx context.Context, name string) (types.Station, bool, error) {
	return r.findOne(ctx, findStationExactSQL, Fold(name))
}

// FindPrefix returns the first station in table order whose name starts with prefix.
func (r *repositoryImpl) FindPrefix(ctx context.Context, prefix string) (types.Station, bool, error) {
	if prefix == "" {
		return types.Station{}, false, nil
	}
	return r.findOne(ctx, findStationPrefixSQL, Fold(prefix))
}

func (r *repositoryImpl) findOne(ctx context.Context, query string, arg string) (types.Station, bool, error) {
	var s types.Station
	err := r.db.QueryRowContext(ctx, query, arg).Scan(&s.ID, &s.Name)
	if errors.Is(err, sql.ErrNoRows) {
		return types.Station{}, false, nil
	}
	if err != nil {
		return types.Station{}, false, err
	}
	return s, true, nil
}

func (r *repositoryImpl) GetStations(ctx context.Context) ([]types.Station, error) {
	rows, err := r.db.QueryContext(ctx, getStationsSQL)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := rows.Close(); err != nil {
			slog.Error("close stations rows", "error", err)
		}
	}()
	var out []types.Station
	for rows.Next() {
		var s types.Station
		if err := rows.Scan(&s.ID, &s.Name); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}
