package optimization

import (
	"math"

	"github.com/arithmax-research/quantcore/internal/modules/riskmodel"
	"github.com/arithmax-research/quantcore/pkg/logger"
	"github.com/rs/zerolog"
)

// DefaultClusterThreshold is the absolute correlation above which two assets
// are grouped into the same cluster.
const DefaultClusterThreshold = 0.7

// HRPResult carries the allocation and the cluster partition that produced
// it. In linkage mode Clusters is replaced by Order, the quasi-diagonal leaf
// ordering of the dendrogram.
type HRPResult struct {
	Weights  map[string]float64
	Clusters [][]string
	Order    []string
}

// HRP allocates across correlation clusters: equal weight per cluster and an
// inverse-variance tilt within each cluster. The default mode forms disjoint
// clusters with a greedy correlation threshold sweep; OptimizeLinkage builds
// a full dendrogram instead.
type HRP struct {
	threshold float64
	log       zerolog.Logger
}

// NewHRP creates an HRP optimizer with the default cluster threshold.
func NewHRP(log zerolog.Logger) *HRP {
	return &HRP{
		threshold: DefaultClusterThreshold,
		log:       logger.Component(log, "hrp"),
	}
}

// Optimize runs threshold clustering over the non-excluded assets and
// allocates 1/numClusters to each cluster. Within a cluster of size m, asset
// a receives clusterWeight * (clusterVariance/assetVariance_a) / m where
// clusterVariance is the mean member variance; the whole vector is then
// renormalized and projected onto the constraints. A singleton cluster keeps
// its full cluster allocation.
func (h *HRP) Optimize(model *riskmodel.Model, constraints Constraints) (*HRPResult, error) {
	symbols := model.Universe.Symbols()
	if err := constraints.Validate(symbols); err != nil {
		return nil, err
	}

	active := make([]int, 0, len(symbols))
	for i, symbol := range symbols {
		if !constraints.Excluded[symbol] {
			active = append(active, i)
		}
	}

	clusters := h.clusterByCorrelation(model, active)
	clusterWeight := 1.0 / float64(len(clusters))

	weights := make(map[string]float64, len(symbols))
	for _, cluster := range clusters {
		if len(cluster) == 1 {
			weights[symbols[cluster[0]]] = clusterWeight
			continue
		}

		clusterVariance := 0.0
		for _, i := range cluster {
			clusterVariance += model.Covariance.At(i, i)
		}
		clusterVariance /= float64(len(cluster))

		size := float64(len(cluster))
		for _, i := range cluster {
			assetVariance := math.Max(model.Covariance.At(i, i), 1e-12)
			weights[symbols[i]] = clusterWeight * (clusterVariance / assetVariance) / size
		}
	}

	h.log.Debug().
		Int("clusters", len(clusters)).
		Int("assets", len(active)).
		Msg("Threshold clustering complete")

	applied, err := constraints.Apply(symbols, normalizeWeights(weights))
	if err != nil {
		return nil, err
	}

	named := make([][]string, len(clusters))
	for ci, cluster := range clusters {
		named[ci] = make([]string, len(cluster))
		for k, i := range cluster {
			named[ci][k] = symbols[i]
		}
	}

	return &HRPResult{Weights: applied, Clusters: named}, nil
}

// clusterByCorrelation sweeps assets in universe order: each still-unassigned
// asset seeds a cluster and absorbs every other unassigned asset whose
// absolute correlation with the seed exceeds the threshold.
func (h *HRP) clusterByCorrelation(model *riskmodel.Model, active []int) [][]int {
	assigned := make(map[int]bool, len(active))
	clusters := make([][]int, 0, len(active))

	for _, i := range active {
		if assigned[i] {
			continue
		}
		cluster := []int{i}
		assigned[i] = true

		for _, j := range active {
			if assigned[j] {
				continue
			}
			if math.Abs(model.Correlation.At(i, j)) > h.threshold {
				cluster = append(cluster, j)
				assigned[j] = true
			}
		}
		clusters = append(clusters, cluster)
	}

	return clusters
}
