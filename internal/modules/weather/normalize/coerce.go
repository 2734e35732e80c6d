package normalize

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"cloudpico-metobs/internal/modules/weather/types"
)

// Coerce parses the merged file into a typed dataset and writes it back in
// canonical form. Dates and times must always parse; value cells follow the
// Normalizer's CoercePolicy.
func (n *Normalizer) Coerce(stationID int, path string, params []types.Parameter) (*types.Dataset, error) {
	header, rows, err := readTable(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", types.ErrMerge, path, err)
	}
	if len(header) < 2 || header[0] != n.index[0] || header[1] != n.index[1] {
		return nil, fmt.Errorf("coerce %s: %w: header %q", path, types.ErrHeaderFormat, header)
	}
	cols := make([]int, len(params))
	for i, p := range params {
		cols[i] = indexOf(header, p.Name)
		if cols[i] < 0 {
			return nil, fmt.Errorf("coerce %s: %w: no column %q", path, types.ErrHeaderFormat, p.Name)
		}
	}

	ds := &types.Dataset{
		StationID: stationID,
		Index:     n.index,
		Params:    append([]types.Parameter(nil), params...),
		Rows:      make([]types.Row, 0, len(rows)),
	}
	nulls := 0
	for i, rec := range rows {
		// Header is line 1 of the file.
		line := i + 2
		row, nullCells, err := n.coerceRow(rec, cols, line, header)
		if err != nil {
			return nil, fmt.Errorf("coerce %s: %w", path, err)
		}
		nulls += nullCells
		ds.Rows = append(ds.Rows, row)
	}
	if nulls > 0 {
		n.logger.Warn("values stored as null", "path", path, "cells", nulls)
	}

	if err := WriteDataset(path, ds); err != nil {
		return nil, fmt.Errorf("coerce: %w", err)
	}
	n.logger.Info("coerced", "station_id", stationID, "rows", len(ds.Rows), "path", path)
	return ds, nil
}

func (n *Normalizer) coerceRow(rec []string, cols []int, line int, header []string) (types.Row, int, error) {
	cell := func(i int) string {
		if i < len(rec) {
			return strings.TrimSpace(rec[i])
		}
		return ""
	}

	date, err := time.ParseInLocation(types.DateLayout, cell(0), time.UTC)
	if err != nil {
		return types.Row{}, 0, &types.CoercionError{Line: line, Column: header[0], Value: cell(0), Err: err}
	}
	clock, err := ParseClock(cell(1))
	if err != nil {
		return types.Row{}, 0, &types.CoercionError{Line: line, Column: header[1], Value: cell(1), Err: err}
	}

	row := types.Row{Date: date, Time: clock, Values: make([]float64, len(cols))}
	nulls := 0
	for j, c := range cols {
		// An empty cell is a missing observation under either policy.
		if cell(c) == "" {
			row.Values[j] = math.NaN()
			nulls++
			continue
		}
		v, err := ParseNumber(cell(c))
		if err != nil {
			if n.policy == CoerceFail {
				return types.Row{}, 0, &types.CoercionError{Line: line, Column: header[c], Value: cell(c), Err: err}
			}
			v = math.NaN()
			nulls++
		}
		row.Values[j] = v
	}
	return row, nulls, nil
}

// ParseClock reads an hh:mm:ss time of day.
func ParseClock(s string) (time.Duration, error) {
	t, err := time.Parse(types.TimeLayout, s)
	if err != nil {
		return 0, err
	}
	return time.Duration(t.Hour())*time.Hour +
		time.Duration(t.Minute())*time.Minute +
		time.Duration(t.Second())*time.Second, nil
}

// ParseNumber accepts a decimal point or a decimal comma.
func ParseNumber(s string) (float64, error) {
	if s == "" {
		return 0, fmt.Errorf("empty value")
	}
	v, err := strconv.ParseFloat(strings.Replace(s, ",", ".", 1), 64)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("not a finite number")
	}
	return v, nil
}

// WriteDataset writes ds in its canonical file form; null cells are empty.
func WriteDataset(path string, ds *types.Dataset) error {
	header := []string{ds.Index[0], ds.Index[1]}
	for _, p := range ds.Params {
		header = append(header, p.Name)
	}
	rows := make([][]string, 0, len(ds.Rows))
	for _, r := range ds.Rows {
		rec := make([]string, 0, len(header))
		rec = append(rec, r.Date.Format(types.DateLayout), types.FormatClock(r.Time))
		for _, v := range r.Values {
			if math.IsNaN(v) {
				rec = append(rec, "")
				continue
			}
			rec = append(rec, strconv.FormatFloat(v, 'f', -1, 64))
		}
		rows = append(rows, rec)
	}
	return writeTable(path, header, rows)
}

func indexOf(header []string, name string) int {
	for i, h := range header {
		if h == name {
			return i
		}
	}
	return -1
}
