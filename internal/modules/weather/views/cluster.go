package views

import "math"

// maxClusterRows bounds the clustermap to the most recent complete dates.
const maxClusterRows = 365

// CompleteGrid prepares a DateHourGrid for clustering: hours never observed
// are dropped as columns, then every date with a null cell is dropped.
func CompleteGrid(dates []string, grid [][]float64) ([]string, []int, [][]float64) {
	var hours []int
	for h := 0; h < hoursPerDay; h++ {
		for _, row := range grid {
			if !math.IsNaN(row[h]) {
				hours = append(hours, h)
				break
			}
		}
	}

	var outDates []string
	var outRows [][]float64
	for i, row := range grid {
		cells := make([]float64, len(hours))
		complete := true
		for j, h := range hours {
			if math.IsNaN(row[h]) {
				complete = false
				break
			}
			cells[j] = row[h]
		}
		if complete {
			outDates = append(outDates, dates[i])
			outRows = append(outRows, cells)
		}
	}
	if len(outDates) > maxClusterRows {
		outDates = outDates[len(outDates)-maxClusterRows:]
		outRows = outRows[len(outRows)-maxClusterRows:]
	}
	return outDates, hours, outRows
}

type clusterNode struct {
	left, right int // -1 for a leaf
	leaf        int
	size        int
}

// ClusterOrder returns the leaf order of an average-linkage dendrogram over
// rows, using Euclidean distance. Rows must have equal length.
func ClusterOrder(rows [][]float64) []int {
	n := len(rows)
	order := make([]int, 0, n)
	if n <= 2 {
		for i := range rows {
			order = append(order, i)
		}
		return order
	}

	dist := make([][]float64, n)
	for i := range dist {
		dist[i] = make([]float64, n)
	}
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			d := euclidean(rows[i], rows[j])
			dist[i][j], dist[j][i] = d, d
		}
	}

	nodes := make([]clusterNode, n, 2*n-1)
	slot := make([]int, n)
	active := make([]bool, n)
	for i := range nodes {
		nodes[i] = clusterNode{left: -1, right: -1, leaf: i, size: 1}
		slot[i] = i
		active[i] = true
	}

	for merges := 0; merges < n-1; merges++ {
		bi, bj, best := -1, -1, math.Inf(1)
		for i := 0; i < n; i++ {
			if !active[i] {
				continue
			}
			for j := i + 1; j < n; j++ {
				if active[j] && dist[i][j] < best {
					bi, bj, best = i, j, dist[i][j]
				}
			}
		}

		a, b := nodes[slot[bi]], nodes[slot[bj]]
		for k := 0; k < n; k++ {
			if !active[k] || k == bi || k == bj {
				continue
			}
			d := (float64(a.size)*dist[bi][k] + float64(b.size)*dist[bj][k]) / float64(a.size+b.size)
			dist[bi][k], dist[k][bi] = d, d
		}
		nodes = append(nodes, clusterNode{left: slot[bi], right: slot[bj], size: a.size + b.size})
		slot[bi] = len(nodes) - 1
		active[bj] = false
	}

	var walk func(i int)
	walk = func(i int) {
		nd := nodes[i]
		if nd.left < 0 {
			order = append(order, nd.leaf)
			return
		}
		walk(nd.left)
		walk(nd.right)
	}
	walk(len(nodes) - 1)
	return order
}

func euclidean(a, b []float64) float64 {
	var sum float64
	for i := range a {
		d := a[i] - b[i]
		sum += d * d
	}
	return math.Sqrt(sum)
}
