package normalize

import (
	"fmt"
	"slices"
	"strings"

	"cloudpico-metobs/internal/modules/weather/types"
)

type mergeKey struct {
	date string
	time string
}

// joined is an ordered key set with the value cells collected so far.
type joined struct {
	keys   []mergeKey
	values map[mergeKey][]string
}

// Merge inner-joins the cleaned files left to right on date and time and writes
// the per-station file. Only keys present in every file survive, each once, in
// the order of the first file. Flag columns are dropped.
func (n *Normalizer) Merge(stationID int, paths []string, params []types.Parameter) (string, error) {
	if len(paths) == 0 {
		return "", types.ErrNoParameters
	}
	if len(paths) != len(params) {
		return "", fmt.Errorf("%w: %d files for %d parameters", types.ErrMerge, len(paths), len(params))
	}
	// Column names key the merged file, so they must be distinct.
	seen := make(map[string]bool, len(params))
	for _, p := range params {
		if seen[p.Name] || p.Name == n.index[0] || p.Name == n.index[1] {
			return "", fmt.Errorf("%w: duplicate column name %q", types.ErrMerge, p.Name)
		}
		seen[p.Name] = true
	}

	var acc *joined
	for i, path := range paths {
		next, err := n.readCleaned(path, params[i])
		if err != nil {
			return "", err
		}
		if acc == nil {
			acc = next
			continue
		}
		before := len(acc.keys)
		acc = innerJoin(acc, next)
		n.logger.Debug("joined", "path", path, "rows_before", before, "rows_after", len(acc.keys))
	}

	header := []string{n.index[0], n.index[1]}
	for _, p := range params {
		header = append(header, p.Name)
	}
	rows := make([][]string, 0, len(acc.keys))
	for _, k := range acc.keys {
		rows = append(rows, append([]string{k.date, k.time}, acc.values[k]...))
	}

	out := n.MergedPath(stationID)
	if err := writeTable(out, header, rows); err != nil {
		return "", fmt.Errorf("%w: %w", types.ErrMerge, err)
	}
	n.logger.Info("merged", "station_id", stationID, "files", len(paths), "rows", len(rows), "path", out)
	return out, nil
}

func innerJoin(left, right *joined) *joined {
	out := &joined{values: make(map[mergeKey][]string, len(left.keys))}
	for _, k := range left.keys {
		r, ok := right.values[k]
		if !ok {
			continue
		}
		out.keys = append(out.keys, k)
		out.values[k] = slices.Concat(left.values[k], r)
	}
	return out
}

func (n *Normalizer) readCleaned(path string, p types.Parameter) (*joined, error) {
	header, rows, err := readTable(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", types.ErrMerge, path, err)
	}
	if len(header) < 3 || header[0] != n.index[0] || header[1] != n.index[1] {
		return nil, fmt.Errorf("%w: %s: unexpected header %q", types.ErrMerge, path, header)
	}
	col := 2
	for i, h := range header {
		if h == p.Name {
			col = i
			break
		}
	}

	j := &joined{values: make(map[mergeKey][]string, len(rows))}
	for _, rec := range rows {
		if len(rec) <= col {
			continue
		}
		k := mergeKey{date: strings.TrimSpace(rec[0]), time: strings.TrimSpace(rec[1])}
		if _, dup := j.values[k]; dup {
			continue
		}
		j.keys = append(j.keys, k)
		j.values[k] = []string{strings.TrimSpace(rec[col])}
	}
	return j, nil
}
