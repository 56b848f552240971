package index

import (
	"math"
	"sort"
)

// split divides the overflowing node at the given path level into two. The
// axis is chosen by the smaller total margin over all legal distributions,
// the split index by minimal overlap with the total area as tie-break. The
// new sibling joins the parent, or becomes part of a new root when the
// overflowing node is the root itself.
func (t *RTree[T]) split(path []*Node[T], level int) {
	node := path[level]
	n := len(node.children)
	m := t.minEntries

	t.chooseSplitAxis(node, m, n)
	splitIndex := t.chooseSplitIndex(node, m, n)

	sibling := &Node[T]{
		leaf:     node.leaf,
		height:   node.height,
		children: append([]*Node[T]{}, node.children[splitIndex:]...),
	}
	node.children = node.children[:splitIndex]

	calcBBox(node)
	calcBBox(sibling)

	if level > 0 {
		parent := path[level-1]
		parent.children = append(parent.children, sibling)
	} else {
		t.splitRoot(node, sibling)
	}
}

// chooseSplitAxis sorts the children of node along the axis whose total
// distribution margin is smaller. After the call the children are sorted by
// the winning axis, ready for chooseSplitIndex.
func (t *RTree[T]) chooseSplitAxis(node *Node[T], m int, n int) {
	xMargin := t.allDistMargin(node, m, n, byMinX[T])
	yMargin := t.allDistMargin(node, m, n, byMinY[T])

	// allDistMargin left the children sorted by MinY, re-sort only when the
	// X axis won.
	if xMargin < yMargin {
		sortNodes(node.children, byMinX[T])
	}
}

// allDistMargin sorts the children by the given comparator and sums the
// margins of both group envelopes over every legal distribution. The sweep
// extends a prefix envelope forward and a suffix envelope backward instead
// of recomputing both groups per split index.
func (t *RTree[T]) allDistMargin(node *Node[T], m int, n int, less func(a, b *Node[T]) bool) float64 {
	sortNodes(node.children, less)

	left := distBBox(node, 0, m)
	right := distBBox(node, n-m, n)
	margin := left.Margin() + right.Margin()

	for i := m; i < n-m; i++ {
		left.Extend(node.children[i].env)
		margin += left.Margin()
	}
	for i := n - m - 1; i >= m; i-- {
		right.Extend(node.children[i].env)
		margin += right.Margin()
	}

	return margin
}

// chooseSplitIndex picks the split position on the already sorted children:
// minimal overlap between the two group envelopes, smaller total area on
// ties. Both groups keep at least m children.
func (t *RTree[T]) chooseSplitIndex(node *Node[T], m int, n int) int {
	index := -1
	minOverlap := math.Inf(1)
	minArea := math.Inf(1)

	for i := m; i <= n-m; i++ {
		left := distBBox(node, 0, i)
		right := distBBox(node, i, n)

		overlap := left.IntersectionArea(right)
		area := left.Area() + right.Area()

		if overlap < minOverlap {
			minOverlap = overlap
			minArea = area
			index = i
		} else if overlap == minOverlap && area < minArea {
			minArea = area
			index = i
		}
	}

	if index < 0 {
		// Cannot happen for n > 2m-1, which overflow guarantees.
		index = n - m
	}
	return index
}

func sortNodes[T any](nodes []*Node[T], less func(a, b *Node[T]) bool) {
	sort.Slice(nodes, func(i, j int) bool {
		return less(nodes[i], nodes[j])
	})
}

func byMinX[T any](a, b *Node[T]) bool {
	return a.env.MinX < b.env.MinX
}

func byMinY[T any](a, b *Node[T]) bool {
	return a.env.MinY < b.env.MinY
}
