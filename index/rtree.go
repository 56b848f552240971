// Package index implements an in-memory two-dimensional R-tree with the
// R*-tree split heuristic for point insertion and OMT (Overlap-Minimizing
// Top-down) bulk loading. The tree maps envelopes to opaque payloads and
// supports window search, removal by payload identity and bulk merging.
//
// A tree is single-writer: all operations, including Search, need exclusive
// access. Independent trees are fully independent.
package index

import (
	"math"

	"github.com/pkg/errors"
)

// DefaultMaxEntries is the fan-out used when the caller does not pick one.
const DefaultMaxEntries = 9

// minFanout is the smallest supported fan-out; smaller values are clamped.
const minFanout = 4

// RTree is the spatial index. The zero value is not usable, create trees
// with New or NewWithEquals.
type RTree[T any] struct {
	maxEntries int
	minEntries int
	equals     func(a, b T) bool
	root       *Node[T]
}

// New creates a tree for payloads that are comparable with ==. A
// maxEntries of 0 or less selects DefaultMaxEntries, values below 4 are
// clamped to 4.
func New[T comparable](maxEntries int) *RTree[T] {
	return NewWithEquals[T](maxEntries, func(a, b T) bool { return a == b })
}

// NewWithEquals creates a tree with an explicit payload equality function.
// Remove uses this function to identify the entry to delete, so it has to
// be consistent over the lifetime of the tree.
func NewWithEquals[T any](maxEntries int, equals func(a, b T) bool) *RTree[T] {
	if maxEntries <= 0 {
		maxEntries = DefaultMaxEntries
	}
	if maxEntries < minFanout {
		maxEntries = minFanout
	}

	minEntries := int(math.Ceil(float64(maxEntries) * 0.4))
	if minEntries < 2 {
		minEntries = 2
	}

	tree := &RTree[T]{
		maxEntries: maxEntries,
		minEntries: minEntries,
		equals:     equals,
	}
	tree.Clear()
	return tree
}

// MaxEntries returns the fan-out the tree was created with.
func (t *RTree[T]) MaxEntries() int {
	return t.maxEntries
}

// MinEntries returns the minimum fill derived from the fan-out.
func (t *RTree[T]) MinEntries() int {
	return t.minEntries
}

// Root returns the root node for read-only structural traversal.
func (t *RTree[T]) Root() *Node[T] {
	return t.root
}

// Height returns the height of the root. An empty tree has height 1.
func (t *RTree[T]) Height() int {
	return t.root.height
}

// Clear resets the tree to an empty root leaf.
func (t *RTree[T]) Clear() {
	t.root = &Node[T]{
		env:    EmptyEnvelope(),
		leaf:   true,
		height: 1,
	}
}

// Search returns all entries whose envelope intersects the window, in
// depth-first order. The result is fully materialized, later mutations of
// the tree do not affect it.
func (t *RTree[T]) Search(window Envelope) ([]*Node[T], error) {
	if err := validateEnvelope(window); err != nil {
		return nil, err
	}

	node := t.root
	if !node.env.Intersects(window) {
		return nil, nil
	}

	var result []*Node[T]
	var stack []*Node[T]

	for node != nil {
		for _, child := range node.children {
			if !window.Intersects(child.env) {
				continue
			}

			switch {
			case node.leaf:
				result = append(result, child)
			case window.Contains(child.env):
				// The window covers the whole subtree, collect it without
				// further intersection tests.
				result = t.collect(child, result)
			default:
				stack = append(stack, child)
			}
		}

		node = nil
		if len(stack) > 0 {
			node = stack[len(stack)-1]
			stack = stack[:len(stack)-1]
		}
	}

	return result, nil
}

// Entries returns every entry of the tree in depth-first order.
func (t *RTree[T]) Entries() []*Node[T] {
	return t.collect(t.root, nil)
}

// collect appends all entries below node to result.
func (t *RTree[T]) collect(node *Node[T], result []*Node[T]) []*Node[T] {
	var stack []*Node[T]

	for node != nil {
		if node.leaf {
			result = append(result, node.children...)
		} else {
			stack = append(stack, node.children...)
		}

		node = nil
		if len(stack) > 0 {
			node = stack[len(stack)-1]
			stack = stack[:len(stack)-1]
		}
	}

	return result
}

func validateEnvelope(env Envelope) error {
	if !env.Valid() {
		return errors.Errorf("invalid envelope (%f, %f, %f, %f): sides must be finite and min <= max per axis", env.MinX, env.MinY, env.MaxX, env.MaxY)
	}
	return nil
}
