package ml

import (
	"math/rand/v2"
	"slices"
)

// treeNode is one node of a flattened decision tree. Feature < 0 marks a leaf.
type treeNode struct {
	Feature   int     `json:"f"`
	Threshold float64 `json:"t"`
	Left      int     `json:"l"`
	Right     int     `json:"r"`
	Value     float64 `json:"v"` // class-1 fraction of the training rows reaching the node
}

// DecisionTree is a CART classifier grown with gini impurity.
type DecisionTree struct {
	Nodes []treeNode `json:"nodes"`
}

func (t *DecisionTree) PredictProba(x []float64) float64 {
	if len(t.Nodes) == 0 {
		return 0.5
	}
	i := 0
	for {
		n := t.Nodes[i]
		if n.Feature < 0 || n.Feature >= len(x) {
			return n.Value
		}
		if x[n.Feature] <= n.Threshold {
			i = n.Left
		} else {
			i = n.Right
		}
	}
}

type split struct {
	feature   int
	threshold float64
	impurity  float64
}

type treeBuilder struct {
	X           [][]float64
	y           []int
	width       int
	maxFeatures int
	rng         *rand.Rand
	nodes       []treeNode
	importance  []float64
}

// growTree fits a fully grown tree on the rows listed in sample (which may
// contain repeats) and returns it with its raw impurity-decrease importances.
func growTree(X [][]float64, y []int, sample []int, maxFeatures int, rng *rand.Rand) (DecisionTree, []float64) {
	width := len(X[0])
	b := &treeBuilder{
		X:           X,
		y:           y,
		width:       width,
		maxFeatures: maxFeatures,
		rng:         rng,
		importance:  make([]float64, width),
	}
	b.grow(slices.Clone(sample))
	return DecisionTree{Nodes: b.nodes}, b.importance
}

func (b *treeBuilder) grow(idx []int) int {
	n := len(idx)
	pos := 0
	for _, i := range idx {
		pos += b.y[i]
	}

	id := len(b.nodes)
	b.nodes = append(b.nodes, treeNode{Feature: -1, Value: float64(pos) / float64(n)})
	if pos == 0 || pos == n || n < 2 {
		return id
	}

	best, ok := b.bestSplit(idx)
	if !ok {
		return id
	}

	left := make([]int, 0, n)
	right := make([]int, 0, n)
	for _, i := range idx {
		if b.X[i][best.feature] <= best.threshold {
			left = append(left, i)
		} else {
			right = append(right, i)
		}
	}

	b.importance[best.feature] += float64(n)*gini(pos, n) - float64(n)*best.impurity

	l := b.grow(left)
	r := b.grow(right)
	b.nodes[id].Feature = best.feature
	b.nodes[id].Threshold = best.threshold
	b.nodes[id].Left = l
	b.nodes[id].Right = r
	return id
}

// bestSplit evaluates up to maxFeatures non-constant features in random
// order and returns the threshold with the lowest weighted child impurity.
func (b *treeBuilder) bestSplit(idx []int) (split, bool) {
	n := len(idx)
	best := split{impurity: 2}
	found := false
	visited := 0
	sorted := slices.Clone(idx)

	for _, f := range b.rng.Perm(b.width) {
		if visited >= b.maxFeatures {
			break
		}

		slices.SortStableFunc(sorted, func(a, c int) int {
			va, vc := b.X[a][f], b.X[c][f]
			switch {
			case va < vc:
				return -1
			case va > vc:
				return 1
			}
			return 0
		})
		if b.X[sorted[0]][f] == b.X[sorted[n-1]][f] {
			continue
		}
		visited++

		total := 0
		for _, i := range sorted {
			total += b.y[i]
		}

		leftPos := 0
		for k := 0; k < n-1; k++ {
			leftPos += b.y[sorted[k]]
			v, next := b.X[sorted[k]][f], b.X[sorted[k+1]][f]
			if v == next {
				continue
			}
			nl := k + 1
			nr := n - nl
			imp := (float64(nl)*gini(leftPos, nl) + float64(nr)*gini(total-leftPos, nr)) / float64(n)
			if imp < best.impurity {
				thr := v + (next-v)/2
				if thr >= next {
					thr = v
				}
				best = split{feature: f, threshold: thr, impurity: imp}
				found = true
			}
		}
	}
	return best, found
}

func gini(pos, n int) float64 {
	if n == 0 {
		return 0
	}
	p := float64(pos) / float64(n)
	return 1 - p*p - (1-p)*(1-p)
}
