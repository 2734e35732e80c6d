package normalize

import (
	"fmt"
	"strings"

	"cloudpico-metobs/internal/modules/weather/types"
)

// HeaderOffset is the index, among non-blank lines, of the tabular header row.
type HeaderOffset int

// DefaultHeaderOffsets are tried in order. Upstream files carry a 7 or 6 row
// preamble depending on how many station periods they list; 0 is a file this
// package already cleaned.
var DefaultHeaderOffsets = []HeaderOffset{7, 6, 0}

// DetectHeader finds the first candidate offset whose row starts with dateLabel.
func DetectHeader(lines []string, dateLabel string, candidates []HeaderOffset) (HeaderOffset, error) {
	for _, off := range candidates {
		if int(off) < 0 || int(off) >= len(lines) {
			continue
		}
		first, _, _ := strings.Cut(lines[off], ";")
		if strings.TrimSpace(strings.Trim(first, `"`)) == dateLabel {
			return off, nil
		}
	}
	return 0, fmt.Errorf("%w: no %q header at offsets %v", types.ErrHeaderFormat, dateLabel, candidates)
}
