package index

import "math"

// Insert adds one payload under the given envelope.
func (t *RTree[T]) Insert(payload T, env Envelope) error {
	return t.InsertNode(NewEntry(env, payload))
}

// InsertNode adds a pre-built entry node, for callers that create entries
// up front (for example to Load them later in batches).
func (t *RTree[T]) InsertNode(entry *Node[T]) error {
	if err := validateEnvelope(entry.env); err != nil {
		return err
	}
	t.insertAtLevel(entry, t.root.height-1)
	return nil
}

// insertAtLevel files item into the node chosen at the given level (counted
// from the root at 0), splits overflowing nodes bottom-up and extends the
// ancestor envelopes. item is an entry when level is the leaf level, or a
// whole subtree when Load merges trees of different heights.
func (t *RTree[T]) insertAtLevel(item *Node[T], level int) {
	var path []*Node[T]

	node := t.chooseSubtree(item.env, t.root, level, &path)
	node.children = append(node.children, item)
	node.env.Extend(item.env)

	for level >= 0 && len(path[level].children) > t.maxEntries {
		t.split(path, level)
		level--
	}

	for i := level; i >= 0; i-- {
		path[i].env.Extend(item.env)
	}
}

// chooseSubtree descends from node to the target level, recording every
// visited node in path. At each internal node the child needing the least
// area enlargement wins, ties go to the child with the smaller area.
func (t *RTree[T]) chooseSubtree(env Envelope, node *Node[T], level int, path *[]*Node[T]) *Node[T] {
	for {
		*path = append(*path, node)

		if node.leaf || len(*path)-1 == level {
			return node
		}

		minEnlargement := math.Inf(1)
		minArea := math.Inf(1)
		var target *Node[T]

		for _, child := range node.children {
			area := child.env.Area()
			enlargement := child.env.EnlargedArea(env) - area

			if enlargement < minEnlargement {
				minEnlargement = enlargement
				minArea = area
				target = child
			} else if enlargement == minEnlargement && area < minArea {
				minArea = area
				target = child
			}
		}

		node = target
	}
}

// splitRoot replaces the root with a new internal node holding the old
// root and its new sibling. This is the only way insertion grows the tree
// in height; Load can also replace the root with a taller packed tree.
func (t *RTree[T]) splitRoot(node *Node[T], sibling *Node[T]) {
	t.root = &Node[T]{
		leaf:     false,
		height:   node.height + 1,
		children: []*Node[T]{node, sibling},
	}
	calcBBox(t.root)
}
