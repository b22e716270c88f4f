package ml

import (
	"fmt"
	"math"
	"math/rand/v2"

	"tummy-tracker/internal/common"
)

// RandomForest is a bagged ensemble of decision trees. Each tree sees a
// bootstrap sample and considers sqrt(width) features per split.
type RandomForest struct {
	NTrees      int            `json:"n_trees"`
	Seed        uint64         `json:"seed"`
	MaxFeatures int            `json:"max_features"`
	Trees       []DecisionTree `json:"trees"`
	Importances []float64      `json:"importances"`
}

func NewRandomForest(nTrees int, seed uint64) *RandomForest {
	return &RandomForest{NTrees: nTrees, Seed: seed}
}

func (f *RandomForest) Name() string { return ForestName }

func (f *RandomForest) Fit(X [][]float64, y []int) error {
	width, err := validateTrainingInput(X, y)
	if err != nil {
		return fmt.Errorf("random forest: %w", err)
	}
	if f.NTrees <= 0 {
		f.NTrees = common.ForestTrees
	}
	f.MaxFeatures = max(1, int(math.Sqrt(float64(width))))

	n := len(X)
	f.Trees = make([]DecisionTree, 0, f.NTrees)
	importances := make([]float64, width)

	for t := 0; t < f.NTrees; t++ {
		rng := rand.New(rand.NewPCG(f.Seed, uint64(t)+1))

		sample := make([]int, n)
		for i := range sample {
			sample[i] = rng.IntN(n)
		}

		tree, raw := growTree(X, y, sample, f.MaxFeatures, rng)
		f.Trees = append(f.Trees, tree)

		addNormalized(importances, raw)
	}

	for j := range importances {
		importances[j] /= float64(f.NTrees)
	}
	f.Importances = normalize(importances)
	return nil
}

// PredictProba averages the class-1 leaf fractions of every tree.
func (f *RandomForest) PredictProba(x []float64) float64 {
	if len(f.Trees) == 0 {
		return 0.5
	}
	var sum float64
	for i := range f.Trees {
		sum += f.Trees[i].PredictProba(x)
	}
	return sum / float64(len(f.Trees))
}

func addNormalized(dst, raw []float64) {
	var total float64
	for _, v := range raw {
		total += v
	}
	if total <= 0 {
		return
	}
	for j, v := range raw {
		dst[j] += v / total
	}
}

func normalize(v []float64) []float64 {
	var total float64
	for _, x := range v {
		total += x
	}
	out := make([]float64, len(v))
	if total <= 0 {
		return out
	}
	for j, x := range v {
		out[j] = x / total
	}
	return out
}
