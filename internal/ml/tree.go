package ml

import (
	"sort"
)

// TreeParams controls tree growth. MaxDepth 0 means unlimited depth.
// Lambda is the L2 penalty on leaf weights; 0 gives a plain CART regression tree.
type TreeParams struct {
	MaxDepth        int
	MinSamplesSplit int
	MinSamplesLeaf  int
	Lambda          float64
}

// Node is one entry of a flat tree. Leaves have Feature -1.
type Node struct {
	Feature   int     `json:"feature"`
	Threshold float64 `json:"threshold"`
	Left      int     `json:"left"`
	Right     int     `json:"right"`
	Value     float64 `json:"value"`
}

// Tree is a binary regression tree stored as a node slice rooted at index 0
type Tree struct {
	Nodes []Node `json:"nodes"`
}

// PredictRow walks the tree for one feature row
func (t *Tree) PredictRow(row []float64) float64 {
	if len(t.Nodes) == 0 {
		return 0
	}
	i := 0
	for {
		n := t.Nodes[i]
		if n.Feature < 0 {
			return n.Value
		}
		if row[n.Feature] <= n.Threshold {
			i = n.Left
		} else {
			i = n.Right
		}
	}
}

// GrowTree fits a tree on the rows of X selected by idx. Repeated indexes act as
// sample weights, which is how bootstrap samples are passed in.
func GrowTree(X [][]float64, y []float64, idx []int, params TreeParams) *Tree {
	if params.MinSamplesSplit < 2 {
		params.MinSamplesSplit = 2
	}
	if params.MinSamplesLeaf < 1 {
		params.MinSamplesLeaf = 1
	}
	g := &grower{X: X, y: y, params: params}
	g.grow(append([]int(nil), idx...), 0)
	return &Tree{Nodes: g.nodes}
}

type grower struct {
	X      [][]float64
	y      []float64
	params TreeParams
	nodes  []Node
}

type split struct {
	feature   int
	threshold float64
	gain      float64
	pos       int
}

func (g *grower) grow(idx []int, depth int) int {
	id := len(g.nodes)
	sum := g.sum(idx)
	g.nodes = append(g.nodes, Node{Feature: -1, Value: g.leaf(sum, len(idx))})

	if len(idx) < g.params.MinSamplesSplit {
		return id
	}
	if g.params.MaxDepth > 0 && depth >= g.params.MaxDepth {
		return id
	}

	best, ok := g.bestSplit(idx, sum)
	if !ok {
		return id
	}

	g.sortBy(idx, best.feature)
	left := append([]int(nil), idx[:best.pos]...)
	right := append([]int(nil), idx[best.pos:]...)

	l := g.grow(left, depth+1)
	r := g.grow(right, depth+1)
	g.nodes[id] = Node{Feature: best.feature, Threshold: best.threshold, Left: l, Right: r}
	return id
}

// bestSplit scans every feature for the threshold maximizing
// GL²/(nL+λ) + GR²/(nR+λ) - G²/(n+λ)
func (g *grower) bestSplit(idx []int, total float64) (split, bool) {
	n := len(idx)
	lambda := g.params.Lambda
	parent := total * total / (float64(n) + lambda)

	best := split{gain: 1e-12}
	found := false
	width := len(g.X[idx[0]])
	for f := 0; f < width; f++ {
		g.sortBy(idx, f)
		left := 0.0
		for i := 1; i < n; i++ {
			left += g.y[idx[i-1]]
			lo, hi := g.X[idx[i-1]][f], g.X[idx[i]][f]
			if lo == hi {
				continue
			}
			if i < g.params.MinSamplesLeaf || n-i < g.params.MinSamplesLeaf {
				continue
			}
			right := total - left
			gain := left*left/(float64(i)+lambda) + right*right/(float64(n-i)+lambda) - parent
			if gain > best.gain {
				best = split{feature: f, threshold: (lo + hi) / 2, gain: gain, pos: i}
				found = true
			}
		}
	}
	return best, found
}

func (g *grower) sortBy(idx []int, f int) {
	sort.SliceStable(idx, func(a, b int) bool {
		return g.X[idx[a]][f] < g.X[idx[b]][f]
	})
}

func (g *grower) sum(idx []int) float64 {
	s := 0.0
	for _, i := range idx {
		s += g.y[i]
	}
	return s
}

func (g *grower) leaf(sum float64, n int) float64 {
	return sum / (float64(n) + g.params.Lambda)
}
