package forecast

import "fmt"

// Node is one node of a regression tree. Leaves have Feature == -1.
type Node struct {
	Feature   int     `json:"f"`
	Threshold float64 `json:"t,omitempty"`
	Left      int     `json:"l,omitempty"`
	Right     int     `json:"r,omitempty"`
	Value     float64 `json:"v"`
}

// Tree is a CART regression tree stored in pre-order; the root is Nodes[0].
type Tree struct {
	Nodes []Node `json:"nodes"`
}

// Predict walks the tree for x. Samples with x[f] <= threshold go left.
func (t *Tree) Predict(x []float64) float64 {
	i := 0
	for {
		n := &t.Nodes[i]
		if n.Feature < 0 {
			return n.Value
		}
		if x[n.Feature] <= n.Threshold {
			i = n.Left
		} else {
			i = n.Right
		}
	}
}

// Depth returns the length of the longest root-to-leaf path.
func (t *Tree) Depth() int {
	var walk func(i int) int
	walk = func(i int) int {
		n := t.Nodes[i]
		if n.Feature < 0 {
			return 0
		}
		return 1 + max(walk(n.Left), walk(n.Right))
	}
	return walk(0)
}

// validate rejects trees that would index out of range or loop. Children are
// always stored after their parent, so a forward-only check is enough.
func (t *Tree) validate(width int) error {
	if len(t.Nodes) == 0 {
		return fmt.Errorf("empty tree")
	}
	for i, n := range t.Nodes {
		if n.Feature < 0 {
			continue
		}
		if n.Feature >= width {
			return fmt.Errorf("node %d splits on feature %d of %d", i, n.Feature, width)
		}
		if n.Left <= i || n.Right <= i || n.Left >= len(t.Nodes) || n.Right >= len(t.Nodes) {
			return fmt.Errorf("node %d has invalid children %d/%d", i, n.Left, n.Right)
		}
	}
	return nil
}

// treeBuilder grows one squared-error tree against a target vector. sorted
// holds, per feature, the node's sample indices ordered by that feature.
type treeBuilder struct {
	x        [][]float64
	target   []float64
	maxDepth int
	minSplit int
	minLeaf  int
	goLeft   []bool
	nodes    []Node
}

func newTreeBuilder(x [][]float64, maxDepth, minSplit, minLeaf int) *treeBuilder {
	return &treeBuilder{
		x:        x,
		maxDepth: maxDepth,
		minSplit: minSplit,
		minLeaf:  minLeaf,
		goLeft:   make([]bool, len(x)),
	}
}

func (b *treeBuilder) fit(target []float64, sorted [][]int) Tree {
	b.target = target
	b.nodes = make([]Node, 0, 1<<(b.maxDepth+1))
	b.grow(sorted, 0)
	return Tree{Nodes: b.nodes}
}

func (b *treeBuilder) grow(sorted [][]int, depth int) int {
	idx := len(b.nodes)
	b.nodes = append(b.nodes, Node{Feature: -1})

	rows := sorted[0]
	n := len(rows)
	var sum, sumSq float64
	for _, r := range rows {
		t := b.target[r]
		sum += t
		sumSq += t * t
	}
	nf := float64(n)
	b.nodes[idx].Value = sum / nf

	if depth >= b.maxDepth || n < b.minSplit || n < 2*b.minLeaf {
		return idx
	}
	if sumSq-sum*sum/nf <= 1e-12 {
		return idx
	}

	feature, pos, threshold, ok := b.bestSplit(sorted, sum)
	if !ok {
		return idx
	}

	for i, r := range sorted[feature] {
		b.goLeft[r] = i <= pos
	}
	left := make([][]int, len(sorted))
	right := make([][]int, len(sorted))
	for f, order := range sorted {
		l := make([]int, 0, pos+1)
		r := make([]int, 0, n-pos-1)
		for _, row := range order {
			if b.goLeft[row] {
				l = append(l, row)
			} else {
				r = append(r, row)
			}
		}
		left[f], right[f] = l, r
	}

	b.nodes[idx].Feature = feature
	b.nodes[idx].Threshold = threshold
	l := b.grow(left, depth+1)
	r := b.grow(right, depth+1)
	b.nodes[idx].Left = l
	b.nodes[idx].Right = r
	return idx
}

// bestSplit maximises sumL²/nL + sumR²/nR, which minimises the children's
// squared error. The first best split in (feature, position) order wins.
func (b *treeBuilder) bestSplit(sorted [][]int, sum float64) (feature, pos int, threshold float64, ok bool) {
	n := len(sorted[0])
	best := sum * sum / float64(n)
	for f, order := range sorted {
		var left float64
		for i := 0; i < n-1; i++ {
			left += b.target[order[i]]
			nl, nr := i+1, n-i-1
			if nl < b.minLeaf {
				continue
			}
			if nr < b.minLeaf {
				break
			}
			xi, xn := b.x[order[i]][f], b.x[order[i+1]][f]
			if xn <= xi {
				continue
			}
			right := sum - left
			gain := left*left/float64(nl) + right*right/float64(nr)
			if gain > best {
				best = gain
				feature, pos, ok = f, i, true
				threshold = xi + (xn-xi)/2
				if threshold >= xn {
					threshold = xi
				}
			}
		}
	}
	return feature, pos, threshold, ok
}
