package views

import (
	"maps"
	"math"
	"slices"

	"cloudpico-metobs/internal/modules/weather/types"
)

const hoursPerDay = 24

type mean struct {
	sum float64
	n   int
}

func (m *mean) add(v float64) {
	if math.IsNaN(v) {
		return
	}
	m.sum += v
	m.n++
}

func (m mean) value() float64 {
	if m.n == 0 {
		return math.NaN()
	}
	return m.sum / float64(m.n)
}

// DailyMeans averages column col per date. Dates are ascending; a date whose
// cells are all null has a NaN mean.
func DailyMeans(ds *types.Dataset, col int) ([]string, []float64) {
	byDate := map[string]*mean{}
	for _, r := range ds.Rows {
		d := r.Date.Format(types.DateLayout)
		m, ok := byDate[d]
		if !ok {
			m = &mean{}
			byDate[d] = m
		}
		m.add(r.Values[col])
	}
	dates := slices.Sorted(maps.Keys(byDate))
	out := make([]float64, len(dates))
	for i, d := range dates {
		out[i] = byDate[d].value()
	}
	return dates, out
}

// HourlyMeans averages column col per hour of day across all dates.
func HourlyMeans(ds *types.Dataset, col int) []float64 {
	var hours [hoursPerDay]mean
	for _, r := range ds.Rows {
		if h := r.Hour(); h >= 0 && h < hoursPerDay {
			hours[h].add(r.Values[col])
		}
	}
	out := make([]float64, hoursPerDay)
	for i := range hours {
		out[i] = hours[i].value()
	}
	return out
}

// DateHourGrid pivots column col into one row per date and one cell per hour,
// averaging repeated observations. Missing cells are NaN.
func DateHourGrid(ds *types.Dataset, col int) ([]string, [][]float64) {
	byDate := map[string]*[hoursPerDay]mean{}
	for _, r := range ds.Rows {
		h := r.Hour()
		if h < 0 || h >= hoursPerDay {
			continue
		}
		d := r.Date.Format(types.DateLayout)
		cells, ok := byDate[d]
		if !ok {
			cells = &[hoursPerDay]mean{}
			byDate[d] = cells
		}
		cells[h].add(r.Values[col])
	}
	dates := slices.Sorted(maps.Keys(byDate))
	grid := make([][]float64, len(dates))
	for i, d := range dates {
		grid[i] = make([]float64, hoursPerDay)
		for h, m := range byDate[d] {
			grid[i][h] = m.value()
		}
	}
	return dates, grid
}

// RecentDays is the tail of DateHourGrid: at most n dates.
func RecentDays(ds *types.Dataset, col, n int) ([]string, [][]float64) {
	dates, grid := DateHourGrid(ds, col)
	if len(dates) > n {
		dates, grid = dates[len(dates)-n:], grid[len(grid)-n:]
	}
	return dates, grid
}

// Pairs returns the rows where both x and y are non-null.
func Pairs(ds *types.Dataset, x, y int) ([]float64, []float64) {
	xs := make([]float64, 0, len(ds.Rows))
	ys := make([]float64, 0, len(ds.Rows))
	for _, r := range ds.Rows {
		a, b := r.Values[x], r.Values[y]
		if math.IsNaN(a) || math.IsNaN(b) {
			continue
		}
		xs = append(xs, a)
		ys = append(ys, b)
	}
	return xs, ys
}

// Histogram counts values into bins equal-width bins over their range.
func Histogram(values []float64, bins int) (lo, hi float64, counts []int) {
	counts = make([]int, bins)
	lo, hi = bounds(values)
	if len(values) == 0 || bins == 0 {
		return lo, hi, counts
	}
	width := (hi - lo) / float64(bins)
	for _, v := range values {
		if math.IsNaN(v) {
			continue
		}
		i := bins - 1
		if width > 0 {
			i = min(int((v-lo)/width), bins-1)
		}
		counts[i]++
	}
	return lo, hi, counts
}

// bounds is the range of the non-NaN values, or (0, 1) when there are none.
func bounds(values ...[]float64) (float64, float64) {
	lo, hi := math.Inf(1), math.Inf(-1)
	for _, vs := range values {
		for _, v := range vs {
			if math.IsNaN(v) {
				continue
			}
			lo = math.Min(lo, v)
			hi = math.Max(hi, v)
		}
	}
	if math.IsInf(lo, 1) {
		return 0, 1
	}
	return lo, hi
}
