package index

import "math"

// Load bulk loads entries with the OMT algorithm and merges the packed
// subtree into the tree. Loading into an empty tree adopts the packed tree
// as the new root, and trees of equal height become the two children of a
// new root; otherwise the shorter tree is inserted into the taller one as a
// whole subtree at the matching level. Very small batches fall back to
// repeated single insertion.
func (t *RTree[T]) Load(entries []*Node[T]) error {
	for _, entry := range entries {
		if err := validateEnvelope(entry.env); err != nil {
			return err
		}
	}

	if len(entries) == 0 {
		return nil
	}

	if len(entries) < t.minEntries {
		for _, entry := range entries {
			t.insertAtLevel(entry, t.root.height-1)
		}
		return nil
	}

	// The build sorts in place, keep the caller's slice untouched.
	items := make([]*Node[T], len(entries))
	copy(items, entries)

	node := t.build(items, 0, 0)

	switch {
	case len(t.root.children) == 0:
		t.root = node

	case t.root.height == node.height:
		t.splitRoot(t.root, node)

	default:
		if t.root.height < node.height {
			// The packed tree is taller, it becomes the host.
			t.root, node = node, t.root
		}
		t.insertAtLevel(node, t.root.height-node.height-1)
	}

	return nil
}

// build packs items into a subtree, OMT style: the root fan-out is chosen
// so the tree ends up with ceil(log_M N) levels and a full root, below
// that the items are tiled into vertical slices and square-ish tiles,
// alternating the sort axis per level.
func (t *RTree[T]) build(items []*Node[T], level int, height int) *Node[T] {
	n := len(items)
	m := t.maxEntries

	if n <= m {
		// Tiles share the backing array of the caller's items. Capping the
		// capacity makes a later insert into this leaf reallocate instead of
		// overwriting the first entry of the neighbouring tile.
		leaf := &Node[T]{
			leaf:     true,
			height:   1,
			children: items[:n:n],
		}
		calcBBox(leaf)
		return leaf
	}

	if level == 0 {
		// Target height of the packed tree, and the root fan-out that
		// maximizes the fill of the levels below it.
		height = int(math.Ceil(math.Log(float64(n)) / math.Log(float64(m))))
		m = int(math.Ceil(float64(n) / math.Pow(float64(t.maxEntries), float64(height-1))))

		sortNodes(items, byMinX[T])
	}

	node := &Node[T]{height: height}

	less := byMinY[T]
	if level%2 == 1 {
		less = byMinX[T]
	}

	// Slice size and tile size of this level.
	n2 := (n + m - 1) / m
	n1 := n2 * int(math.Ceil(math.Sqrt(float64(m))))

	for i := 0; i < n; i += n1 {
		slice := items[i:minInt(i+n1, n)]
		sortNodes(slice, less)

		for j := 0; j < len(slice); j += n2 {
			tile := slice[j:minInt(j+n2, len(slice))]
			node.children = append(node.children, t.build(tile, level+1, height-1))
		}
	}

	calcBBox(node)
	return node
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}
