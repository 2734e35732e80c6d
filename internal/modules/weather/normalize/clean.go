package normalize

import (
	"fmt"
	"strings"

	"cloudpico-metobs/internal/modules/weather/types"
)

const keptColumns = 4

// Clean rewrites a downloaded file in place as date;time;value;flag with the
// value column named after p. Running it on a cleaned file yields the same file.
func (n *Normalizer) Clean(path string, p types.Parameter) error {
	lines, err := readLines(path)
	if err != nil {
		return fmt.Errorf("clean %s: %w", path, err)
	}

	offset, err := DetectHeader(lines, n.index[0], n.offsets)
	if err != nil {
		return fmt.Errorf("clean %s: %w", path, err)
	}
	n.logger.Debug("header detected", "path", path, "offset", int(offset))

	records, err := parseRecords(lines[offset:])
	if err != nil {
		return fmt.Errorf("clean %s: %w", path, err)
	}

	header := records[0]
	if len(header) < 3 || strings.TrimSpace(header[1]) != n.index[1] {
		return fmt.Errorf("clean %s: %w: header %q", path, types.ErrHeaderFormat, header)
	}
	flag := "Kvalitet"
	if len(header) >= keptColumns && strings.TrimSpace(header[3]) != "" {
		flag = strings.TrimSpace(header[3])
	}
	out := []string{n.index[0], n.index[1], p.Name, flag}

	rows := make([][]string, 0, len(records)-1)
	for _, rec := range records[1:] {
		// Trailer and remark rows have no value column.
		if len(rec) < 3 || strings.TrimSpace(rec[0]) == "" {
			continue
		}
		row := make([]string, keptColumns)
		for i := 0; i < keptColumns && i < len(rec); i++ {
			row[i] = strings.TrimSpace(rec[i])
		}
		rows = append(rows, row)
	}

	if err := writeTable(path, out, rows); err != nil {
		return fmt.Errorf("clean: %w", err)
	}
	n.logger.Info("cleaned", "path", path, "parameter", p.Code, "rows", len(rows))
	return nil
}
