package index

// Node is a node of the R-tree. Leaf nodes have height 1 and hold entry
// nodes as children; internal nodes hold further tree nodes. An entry node
// carries the indexed payload and the envelope the payload was inserted
// with. All mutation happens inside this package, callers only read.
type Node[T any] struct {
	env      Envelope
	leaf     bool
	height   int
	children []*Node[T]
	payload  T
}

// NewEntry creates an entry node for the given payload. Entry nodes are
// what Insert and Load file into leaves and what Search returns.
func NewEntry[T any](env Envelope, payload T) *Node[T] {
	return &Node[T]{
		env:     env,
		leaf:    true,
		height:  1,
		payload: payload,
	}
}

// Envelope returns the minimum bounding rectangle of the node.
func (n *Node[T]) Envelope() Envelope {
	return n.env
}

// IsLeaf reports whether the children of this node are entry nodes.
func (n *Node[T]) IsLeaf() bool {
	return n.leaf
}

// Height is 1 for leaves and 1 + the child height for internal nodes.
func (n *Node[T]) Height() int {
	return n.height
}

// Children returns the child slice of the node. Callers must not modify it.
func (n *Node[T]) Children() []*Node[T] {
	return n.children
}

// Payload returns the indexed value of an entry node. For non-entry nodes
// it returns the zero value.
func (n *Node[T]) Payload() T {
	return n.payload
}

// calcBBox recomputes the envelope of the node from its children.
func calcBBox[T any](node *Node[T]) {
	node.env = distBBox(node, 0, len(node.children))
}

// distBBox returns the covering envelope of children[start:end).
func distBBox[T any](node *Node[T], start int, end int) Envelope {
	env := EmptyEnvelope()
	for i := start; i < end; i++ {
		env.Extend(node.children[i].env)
	}
	return env
}
