// Package normalize turns downloaded observation files into one typed,
// per-station dataset: clean each file in place, inner-join them on
// date and time, then convert the columns.
package normalize

import (
	"fmt"
	"log/slog"
	"path/filepath"

	"cloudpico-metobs/internal/modules/weather/types"
)

// CoercePolicy decides what happens to a value that is not a number.
type CoercePolicy int

const (
	// CoerceFail stops at the first bad value with a *types.CoercionError.
	CoerceFail CoercePolicy = iota
	// CoerceNull stores the cell as NaN and writes it back empty.
	CoerceNull
)

// ParseCoercePolicy maps the configuration value ("fail" or "null").
func ParseCoercePolicy(s string) (CoercePolicy, error) {
	switch s {
	case "fail":
		return CoerceFail, nil
	case "null":
		return CoerceNull, nil
	default:
		return CoerceFail, fmt.Errorf("invalid coerce policy %q", s)
	}
}

type Normalizer struct {
	dir     string
	index   [2]string
	offsets []HeaderOffset
	policy  CoercePolicy
	logger  *slog.Logger
}

// New returns a Normalizer writing into dir. index holds the date and time column labels.
func New(dir string, index [2]string, policy CoercePolicy, logger *slog.Logger) *Normalizer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Normalizer{
		dir:     dir,
		index:   index,
		offsets: DefaultHeaderOffsets,
		policy:  policy,
		logger:  logger,
	}
}

// MergedPath is where Merge writes the dataset of stationID.
func (n *Normalizer) MergedPath(stationID int) string {
	return filepath.Join(n.dir, types.MergedFileName(stationID))
}

// Normalize cleans every downloaded file, merges them and coerces the result.
// paths and params are parallel.
func (n *Normalizer) Normalize(stationID int, paths []string, params []types.Parameter) (*types.Dataset, error) {
	if len(paths) != len(params) {
		return nil, fmt.Errorf("normalize: %d files for %d parameters", len(paths), len(params))
	}
	for i, path := range paths {
		if err := n.Clean(path, params[i]); err != nil {
			return nil, err
		}
	}
	merged, err := n.Merge(stationID, paths, params)
	if err != nil {
		return nil, err
	}
	return n.Coerce(stationID, merged, params)
}
