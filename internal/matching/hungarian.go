package matching

import "math"

// hungarian solves the square assignment problem for an n×n cost matrix
// with the Kuhn–Munkres algorithm using row and column potentials
// (Jonker–Volgenant variant), in O(n³) time.
//
// It returns assign[i] = column matched to row i and the total cost of the
// matching. Every row receives exactly one column.
func hungarian(cost [][]float64) ([]int, float64) {
	n := len(cost)
	if n == 0 {
		return []int{}, 0
	}

	// 1-indexed internally; column 0 is the virtual start of each augmenting path.
	const inf = math.MaxFloat64 / 2

	u := make([]float64, n+1) // Row potentials
	v := make([]float64, n+1) // Column potentials
	p := make([]int, n+1)     // p[j] = row assigned to column j
	way := make([]int, n+1)   // way[j] = previous column in augmenting path
	minv := make([]float64, n+1)
	used := make([]bool, n+1)

	for i := 1; i <= n; i++ {
		p[0] = i
		j0 := 0

		for j := 1; j <= n; j++ {
			minv[j] = inf
			used[j] = false
		}

		for {
			used[j0] = true
			i0 := p[j0]
			delta := inf
			j1 := -1

			for j := 1; j <= n; j++ {
				if used[j] {
					continue
				}
				cur := cost[i0-1][j-1] - u[i0] - v[j]
				if cur < minv[j] {
					minv[j] = cur
					way[j] = j0
				}
				if minv[j] < delta {
					delta = minv[j]
					j1 = j
				}
			}

			if j1 < 0 {
				break
			}

			for j := 0; j <= n; j++ {
				if used[j] {
					u[p[j]] += delta
					v[j] -= delta
				} else {
					minv[j] -= delta
				}
			}

			j0 = j1
			if p[j0] == 0 {
				break
			}
		}

		// Augment along the path.
		for j0 != 0 {
			p[j0] = p[way[j0]]
			j0 = way[j0]
		}
	}

	assign := make([]int, n)
	var total float64
	for j := 1; j <= n; j++ {
		assign[p[j]-1] = j - 1
		total += cost[p[j]-1][j-1]
	}
	return assign, total
}
