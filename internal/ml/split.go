package ml

import (
	"math"
	"math/rand/v2"
	"slices"
)

// trainValidationSplit partitions row indices per class so both partitions
// keep the class balance and the training side always holds at least one
// row of each class present. The same seed always yields the same split.
func trainValidationSplit(y []int, fraction float64, seed uint64) (train, validation []int) {
	rng := rand.New(rand.NewPCG(seed, seed))

	byClass := [2][]int{}
	for i, label := range y {
		byClass[label] = append(byClass[label], i)
	}

	for _, idx := range byClass {
		if len(idx) == 0 {
			continue
		}
		rng.Shuffle(len(idx), func(a, b int) { idx[a], idx[b] = idx[b], idx[a] })

		nVal := int(math.Round(fraction * float64(len(idx))))
		if nVal > len(idx)-1 {
			nVal = len(idx) - 1
		}
		validation = append(validation, idx[:nVal]...)
		train = append(train, idx[nVal:]...)
	}

	slices.Sort(train)
	slices.Sort(validation)
	return train, validation
}

func gather(X [][]float64, y []int, idx []int) ([][]float64, []int) {
	rows := make([][]float64, len(idx))
	labels := make([]int, len(idx))
	for k, i := range idx {
		rows[k] = X[i]
		labels[k] = y[i]
	}
	return rows, labels
}

func accuracy(c BinaryClassifier, X [][]float64, y []int, threshold float64) float64 {
	if len(X) == 0 {
		return 0
	}
	correct := 0
	for i, row := range X {
		pred := 0
		if c.PredictProba(row) > threshold {
			pred = 1
		}
		if pred == y[i] {
			correct++
		}
	}
	return float64(correct) / float64(len(X))
}
