package views

import (
	"math"
	"slices"
	"testing"
)

func TestClusterOrder(t *testing.T) {
	tests := []struct {
		name string
		rows [][]float64
		want []int
	}{
		{name: "empty", rows: nil, want: []int{}},
		{name: "two rows", rows: [][]float64{{5}, {1}}, want: []int{0, 1}},
		{
			name: "groups adjacent",
			rows: [][]float64{{0, 0}, {10, 10}, {1, 0}, {11, 10}},
			want: []int{0, 2, 1, 3},
		},
		{
			name: "outlier last",
			rows: [][]float64{{100}, {1}, {2}, {3}},
			want: []int{0, 1, 2, 3},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ClusterOrder(tt.rows); !slices.Equal(got, tt.want) {
				t.Errorf("ClusterOrder() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestClusterOrder_permutation(t *testing.T) {
	rows := make([][]float64, 40)
	for i := range rows {
		rows[i] = []float64{math.Sin(float64(i)), float64(i % 7)}
	}
	got := ClusterOrder(rows)
	sorted := slices.Sorted(slices.Values(got))
	for i, v := range sorted {
		if v != i {
			t.Fatalf("ClusterOrder() is not a permutation: %v", got)
		}
	}
}

func TestCompleteGrid(t *testing.T) {
	nan := math.NaN()
	row := func(cells map[int]float64) []float64 {
		out := make([]float64, hoursPerDay)
		for h := range out {
			out[h] = nan
		}
		for h, v := range cells {
			out[h] = v
		}
		return out
	}
	dates := []string{"2024-01-01", "2024-01-02", "2024-01-03"}
	grid := [][]float64{
		row(map[int]float64{0: 1, 6: 2}),
		row(map[int]float64{0: 3}),
		row(map[int]float64{0: 5, 6: 6}),
	}

	gotDates, hours, rows := CompleteGrid(dates, grid)
	if !slices.Equal(gotDates, []string{"2024-01-01", "2024-01-03"}) {
		t.Errorf("dates = %v", gotDates)
	}
	if !slices.Equal(hours, []int{0, 6}) {
		t.Errorf("hours = %v", hours)
	}
	if len(rows) != 2 || !slices.Equal(rows[1], []float64{5, 6}) {
		t.Errorf("rows = %v", rows)
	}
}

func TestViridis(t *testing.T) {
	tests := []struct {
		v    float64
		want string
	}{
		{v: 0, want: "#440154"},
		{v: 1, want: "#fde725"},
		{v: math.NaN(), want: "#eeeeee"},
	}
	for _, tt := range tests {
		if got := viridis(tt.v, 0, 1); got != tt.want {
			t.Errorf("viridis(%v) = %s, want %s", tt.v, got, tt.want)
		}
	}
}
