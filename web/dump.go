package web

import (
	"encoding/json"
	"sync"

	"geoindex/geometry"
	"geoindex/index"
	"geoindex/session"

	"github.com/google/uuid"
	"github.com/hauke96/sigolo/v2"
)

// TreeNode is one non-entry node of the structural dump. Bounds are
// inverse-projected back to lon/lat as minLon, minLat, maxLon, maxLat.
type TreeNode struct {
	Id     string     `json:"id"`
	Height int        `json:"height"`
	Bounds [4]float64 `json:"bounds"`
}

// nodeIDs adorns tree nodes with stable identifiers per session. The core
// does not know about identifiers, so observers still need ids that stay
// the same across dumps as long as the node lives.
type nodeIDs struct {
	mu  sync.Mutex
	ids map[string]map[*index.Node[string]]string
}

func newNodeIDs() *nodeIDs {
	return &nodeIDs{ids: map[string]map[*index.Node[string]]string{}}
}

func (n *nodeIDs) get(sessionId string, node *index.Node[string]) string {
	n.mu.Lock()
	defer n.mu.Unlock()

	nodes, ok := n.ids[sessionId]
	if !ok {
		nodes = map[*index.Node[string]]string{}
		n.ids[sessionId] = nodes
	}

	id, ok := nodes[node]
	if !ok {
		id = uuid.NewString()
		nodes[node] = id
	}
	return id
}

// retain drops the ids of nodes that are no longer part of the tree.
func (n *nodeIDs) retain(sessionId string, live map[*index.Node[string]]bool) {
	n.mu.Lock()
	defer n.mu.Unlock()

	nodes := n.ids[sessionId]
	for node := range nodes {
		if !live[node] {
			delete(nodes, node)
		}
	}
}

func (n *nodeIDs) drop(sessionId string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	delete(n.ids, sessionId)
}

// buildDump serializes the tree structure depth-first. Entry nodes are
// not part of the dump, only the tree skeleton is. Must run while holding
// the session lock.
func (s *Server) buildDump(sessionId string, tree *session.Tree) []byte {
	var nodes []TreeNode
	live := map[*index.Node[string]]bool{}

	stack := []*index.Node[string]{tree.Root()}
	for len(stack) > 0 {
		node := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		live[node] = true

		nodes = append(nodes, TreeNode{
			Id:     s.ids.get(sessionId, node),
			Height: node.Height(),
			Bounds: nodeBounds(node),
		})

		if node.IsLeaf() {
			continue
		}
		children := node.Children()
		for i := len(children) - 1; i >= 0; i-- {
			stack = append(stack, children[i])
		}
	}

	s.ids.retain(sessionId, live)

	dump, err := json.Marshal(nodes)
	if err != nil {
		// A slice of plain structs always marshals.
		sigolo.Errorf("Error marshalling tree dump: %+v", err)
		return []byte("[]")
	}
	return dump
}

func nodeBounds(node *index.Node[string]) [4]float64 {
	env := node.Envelope()
	if !env.Valid() {
		// An empty root has the sentinel envelope, report a zero rectangle.
		return [4]float64{}
	}

	bound := geometry.Unproject(env)
	return [4]float64{bound.Min.Lon(), bound.Min.Lat(), bound.Max.Lon(), bound.Max.Lat()}
}
