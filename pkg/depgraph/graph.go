// Package depgraph holds the per-sentence dependency graph, the bounded
// breadth-first walker over it, and the relation classifier built on the walker.
package depgraph

import (
	"github.com/japaniel/relex/pkg/relation"
)

// NodeKey identifies one token occurrence. Pos is the 1-based sentence position;
// when it is 0 two tokens with equal surface and tag share a node.
type NodeKey struct {
	Surface string
	Tag     string
	Pos     int
}

// GovernorKey returns the node key of e's governor.
func GovernorKey(e relation.Edge) NodeKey {
	return NodeKey{Surface: e.Governor.Surface, Tag: e.Governor.Tag, Pos: e.GovernorIndex}
}

// DependentKey returns the node key of e's dependent.
func DependentKey(e relation.Edge) NodeKey {
	return NodeKey{Surface: e.Dependent.Surface, Tag: e.Dependent.Tag, Pos: e.DependentIndex}
}

// Graph is the ordered edge list of one sentence plus a governor index.
// It is never modified after New returns.
type Graph struct {
	edges []relation.Edge
	byGov map[NodeKey][]int
}

// New builds a graph over a copy of edges. Duplicate edges are kept.
func New(edges []relation.Edge) *Graph {
	g := &Graph{
		edges: append([]relation.Edge(nil), edges...),
		byGov: make(map[NodeKey][]int, len(edges)),
	}
	for i, e := range g.edges {
		k := GovernorKey(e)
		g.byGov[k] = append(g.byGov[k], i)
	}
	return g
}

// Len returns the number of edges.
func (g *Graph) Len() int { return len(g.edges) }

// Edges returns a copy of the edges in their original order.
func (g *Graph) Edges() []relation.Edge {
	return append([]relation.Edge(nil), g.edges...)
}

// Governed returns, in graph order, the edges whose governor is k.
func (g *Graph) Governed(k NodeKey) []relation.Edge {
	idx := g.byGov[k]
	if len(idx) == 0 {
		return nil
	}
	out := make([]relation.Edge, len(idx))
	for i, j := range idx {
		out[i] = g.edges[j]
	}
	return out
}

func (g *Graph) governed(k NodeKey, fn func(relation.Edge)) {
	for _, j := range g.byGov[k] {
		fn(g.edges[j])
	}
}
