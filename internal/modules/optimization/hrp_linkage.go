package optimization

import (
	"fmt"
	"math"

	"github.com/arithmax-research/quantcore/internal/modules/riskmodel"
)

// Linkage selects how inter-cluster distance is measured while building the
// dendrogram.
type Linkage string

const (
	LinkageSingle   Linkage = "single"
	LinkageComplete Linkage = "complete"
	LinkageAverage  Linkage = "average"
)

// dendroNode is a node of the agglomerative clustering tree. Leaves index
// into the active asset list, not the universe.
type dendroNode struct {
	left    *dendroNode
	right   *dendroNode
	leaves  []int
	minLeaf int
}

// OptimizeLinkage is the dendrogram variant of HRP: correlation distance
// d = sqrt(2*(1-rho)), agglomerative clustering under the chosen linkage
// with a deterministic tie-break, quasi-diagonal ordering, then recursive
// bisection splitting each cluster's weight by inverse cluster variance.
// An empty linkage defaults to single.
func (h *HRP) OptimizeLinkage(model *riskmodel.Model, constraints Constraints, linkage Linkage) (*HRPResult, error) {
	symbols := model.Universe.Symbols()
	if err := constraints.Validate(symbols); err != nil {
		return nil, err
	}
	switch linkage {
	case "":
		linkage = LinkageSingle
	case LinkageSingle, LinkageComplete, LinkageAverage:
	default:
		return nil, fmt.Errorf("unknown linkage %q", linkage)
	}

	active := make([]int, 0, len(symbols))
	for i, symbol := range symbols {
		if !constraints.Excluded[symbol] {
			active = append(active, i)
		}
	}

	if len(active) == 1 {
		only := symbols[active[0]]
		applied, err := constraints.Apply(symbols, map[string]float64{only: 1})
		if err != nil {
			return nil, err
		}
		return &HRPResult{Weights: applied, Order: []string{only}}, nil
	}

	dist := make([][]float64, len(active))
	for a := range active {
		dist[a] = make([]float64, len(active))
		for b := range active {
			rho := model.Correlation.At(active[a], active[b])
			dist[a][b] = math.Sqrt(math.Max(0, 2*(1-rho)))
		}
	}

	root := buildDendrogram(dist, linkage)
	order := quasiDiagonalOrder(root)
	if len(order) != len(active) {
		return nil, fmt.Errorf("dendrogram order has %d leaves, expected %d", len(order), len(active))
	}

	weights := make([]float64, len(active))
	for i := range weights {
		weights[i] = 1
	}
	h.bisectAllocate(model, active, weights, order)

	sum := 0.0
	for _, w := range weights {
		sum += w
	}
	if sum <= 0 || math.IsNaN(sum) || math.IsInf(sum, 0) {
		return nil, fmt.Errorf("invalid allocation sum %v", sum)
	}

	raw := make(map[string]float64, len(symbols))
	for a, pos := range active {
		raw[symbols[pos]] = weights[a] / sum
	}
	applied, err := constraints.Apply(symbols, raw)
	if err != nil {
		return nil, err
	}

	ordered := make([]string, len(order))
	for k, a := range order {
		ordered[k] = symbols[active[a]]
	}
	return &HRPResult{Weights: applied, Order: ordered}, nil
}

func buildDendrogram(dist [][]float64, linkage Linkage) *dendroNode {
	nodes := make([]*dendroNode, 0, len(dist))
	for i := range dist {
		nodes = append(nodes, &dendroNode{leaves: []int{i}, minLeaf: i})
	}

	for len(nodes) > 1 {
		bestI, bestJ := 0, 1
		bestD := linkageDistance(dist, nodes[0], nodes[1], linkage)
		for i := 0; i < len(nodes); i++ {
			for j := i + 1; j < len(nodes); j++ {
				d := linkageDistance(dist, nodes[i], nodes[j], linkage)
				if d < bestD || (d == bestD && pairLess(nodes[i], nodes[j], nodes[bestI], nodes[bestJ])) {
					bestD, bestI, bestJ = d, i, j
				}
			}
		}

		left, right := nodes[bestI], nodes[bestJ]
		if right.minLeaf < left.minLeaf {
			left, right = right, left
		}
		merged := &dendroNode{
			left:    left,
			right:   right,
			leaves:  append(append([]int{}, left.leaves...), right.leaves...),
			minLeaf: left.minLeaf,
		}

		next := make([]*dendroNode, 0, len(nodes)-1)
		for k, node := range nodes {
			if k == bestI || k == bestJ {
				continue
			}
			next = append(next, node)
		}
		nodes = append(next, merged)
	}

	return nodes[0]
}

// pairLess orders candidate merges by their smallest leaf indices so equal
// distances break ties deterministically.
func pairLess(a1, b1, a2, b2 *dendroNode) bool {
	x1, y1 := a1.minLeaf, b1.minLeaf
	if y1 < x1 {
		x1, y1 = y1, x1
	}
	x2, y2 := a2.minLeaf, b2.minLeaf
	if y2 < x2 {
		x2, y2 = y2, x2
	}
	if x1 != x2 {
		return x1 < x2
	}
	return y1 < y2
}

func linkageDistance(dist [][]float64, a, b *dendroNode, linkage Linkage) float64 {
	switch linkage {
	case LinkageComplete:
		worst := math.Inf(-1)
		for _, i := range a.leaves {
			for _, j := range b.leaves {
				if dist[i][j] > worst {
					worst = dist[i][j]
				}
			}
		}
		return worst
	case LinkageAverage:
		sum := 0.0
		count := 0
		for _, i := range a.leaves {
			for _, j := range b.leaves {
				sum += dist[i][j]
				count++
			}
		}
		return sum / float64(count)
	default:
		best := math.Inf(1)
		for _, i := range a.leaves {
			for _, j := range b.leaves {
				if dist[i][j] < best {
					best = dist[i][j]
				}
			}
		}
		return best
	}
}

// quasiDiagonalOrder flattens the dendrogram left to right so correlated
// assets end up adjacent.
func quasiDiagonalOrder(node *dendroNode) []int {
	if node == nil {
		return nil
	}
	if node.left == nil && node.right == nil {
		return []int{node.leaves[0]}
	}
	return append(quasiDiagonalOrder(node.left), quasiDiagonalOrder(node.right)...)
}

// bisectAllocate walks the quasi-diagonal order top down, splitting each
// segment's weight between halves in inverse proportion to their cluster
// variances: alpha = 1 - vLeft/(vLeft+vRight).
func (h *HRP) bisectAllocate(model *riskmodel.Model, active []int, weights []float64, order []int) {
	if len(order) <= 1 {
		return
	}
	split := len(order) / 2
	left := order[:split]
	right := order[split:]

	vLeft := h.ivpClusterVariance(model, active, left)
	vRight := h.ivpClusterVariance(model, active, right)

	alpha := 0.5
	if vLeft+vRight > 0 {
		alpha = 1 - vLeft/(vLeft+vRight)
	}
	alpha = math.Max(0, math.Min(1, alpha))

	for _, a := range left {
		weights[a] *= alpha
	}
	for _, a := range right {
		weights[a] *= 1 - alpha
	}

	h.bisectAllocate(model, active, weights, left)
	h.bisectAllocate(model, active, weights, right)
}

// ivpClusterVariance is the variance of the inverse-variance portfolio over
// the cluster members.
func (h *HRP) ivpClusterVariance(model *riskmodel.Model, active []int, members []int) float64 {
	if len(members) == 0 {
		return 0
	}
	if len(members) == 1 {
		return math.Max(model.Covariance.At(active[members[0]], active[members[0]]), 0)
	}

	inv := make([]float64, len(members))
	sumInv := 0.0
	for k, a := range members {
		v := math.Max(model.Covariance.At(active[a], active[a]), 1e-12)
		inv[k] = 1 / v
		sumInv += inv[k]
	}
	for k := range inv {
		inv[k] /= sumInv
	}

	variance := 0.0
	for x, a := range members {
		for y, b := range members {
			variance += inv[x] * model.Covariance.At(active[a], active[b]) * inv[y]
		}
	}
	return math.Max(variance, 0)
}
