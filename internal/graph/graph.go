// Package graph holds the pipeline plan model: typed nodes with ports, the
// editing operations that keep a graph structurally sound, and the validator
// that gates a graph before compilation.
package graph

import (
	"fmt"

	"github.com/google/uuid"

	"pipeld/pkg/types"
)

// FindNode returns the node with the given id.
func FindNode(g types.Graph, id string) (types.Node, bool) {
	for _, n := range g.Nodes {
		if n.ID == id {
			return n, true
		}
	}
	return types.Node{}, false
}

// FindOutput returns the named output port of a node.
func FindOutput(n types.Node, portID string) (types.Port, bool) {
	for _, p := range n.Outputs {
		if p.ID == portID {
			return p, true
		}
	}
	return types.Port{}, false
}

// FindInput returns the named input port of a node.
func FindInput(n types.Node, portID string) (types.Port, bool) {
	for _, p := range n.Inputs {
		if p.ID == portID {
			return p, true
		}
	}
	return types.Port{}, false
}

// AddNode appends a node, rejecting duplicate ids.
func AddNode(g *types.Graph, n types.Node) error {
	if n.ID == "" {
		return fmt.Errorf("node id cannot be empty")
	}
	if _, exists := FindNode(*g, n.ID); exists {
		return fmt.Errorf("node %s already exists", n.ID)
	}
	g.Nodes = append(g.Nodes, n)
	return nil
}

// RemoveNode deletes a node and every edge touching it. The GameLaunch node
// can never be removed by an editing operation.
func RemoveNode(g *types.Graph, id string) error {
	idx := -1
	for i, n := range g.Nodes {
		if n.ID == id {
			if n.Type == types.NodeGameLaunch {
				return fmt.Errorf("node %s: the GameLaunch node cannot be deleted", id)
			}
			idx = i
			break
		}
	}
	if idx < 0 {
		return fmt.Errorf("node %s not found", id)
	}
	g.Nodes = append(g.Nodes[:idx], g.Nodes[idx+1:]...)
	kept := g.Edges[:0]
	for _, e := range g.Edges {
		if e.From != id && e.To != id {
			kept = append(kept, e)
		}
	}
	g.Edges = kept
	return nil
}

// Connect adds an edge from (from, out) to (to, in), generating an id.
// Structural existence is checked here; media-type compatibility is the
// validator's job so an incompatible edge can still be saved and reported.
func Connect(g *types.Graph, from, out, to, in string) (types.Edge, error) {
	src, ok := FindNode(*g, from)
	if !ok {
		return types.Edge{}, fmt.Errorf("source node %s not found", from)
	}
	if _, ok := FindOutput(src, out); !ok {
		return types.Edge{}, fmt.Errorf("node %s has no output port %q", from, out)
	}
	dst, ok := FindNode(*g, to)
	if !ok {
		return types.Edge{}, fmt.Errorf("target node %s not found", to)
	}
	if _, ok := FindInput(dst, in); !ok {
		return types.Edge{}, fmt.Errorf("node %s has no input port %q", to, in)
	}
	e := types.Edge{ID: uuid.NewString(), From: from, Out: out, To: to, In: in}
	g.Edges = append(g.Edges, e)
	return e, nil
}

// RemoveEdge deletes an edge by id.
func RemoveEdge(g *types.Graph, id string) error {
	for i, e := range g.Edges {
		if e.ID == id {
			g.Edges = append(g.Edges[:i], g.Edges[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("edge %s not found", id)
}

// Clone deep-copies a graph so callers can hand out snapshots safely.
func Clone(g types.Graph) types.Graph {
	out := types.Graph{
		Nodes: make([]types.Node, len(g.Nodes)),
		Edges: append([]types.Edge(nil), g.Edges...),
	}
	for i, n := range g.Nodes {
		cp := n
		cp.Inputs = append([]types.Port(nil), n.Inputs...)
		cp.Outputs = append([]types.Port(nil), n.Outputs...)
		if n.Attributes != nil {
			cp.Attributes = make(map[string]any, len(n.Attributes))
			for k, v := range n.Attributes {
				cp.Attributes[k] = v
			}
		}
		out.Nodes[i] = cp
	}
	return out
}
