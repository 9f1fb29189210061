package depgraph

import (
	"errors"
	"fmt"

	"github.com/gammazero/deque"

	"github.com/japaniel/relex/pkg/relation"
)

// ErrDepthLimit is returned when a walk is requested with a limit below 1.
var ErrDepthLimit = errors.New("walk depth limit must be at least 1")

// Walk is the result of a bounded walk. Chain edges continued the walk;
// terminal edges ended in a token that satisfied the stop predicate.
type Walk struct {
	Chain    []relation.Edge
	Terminal []relation.Edge
}

type step int

const (
	stepSkip step = iota
	stepChain
	stepTerminal
)

type frontierItem struct {
	node  NodeKey
	depth int
}

// Walk explores breadth-first from start. Only nodes reached at depth < limit
// are expanded, so the walk terminates even on cyclic graphs.
func (g *Graph) Walk(start NodeKey, limit int, stop func(relation.TaggedToken) bool) (Walk, error) {
	var w Walk
	err := g.bfs(start, limit, func(e relation.Edge) step {
		if stop(e.Dependent) {
			w.Terminal = append(w.Terminal, e)
			return stepTerminal
		}
		w.Chain = append(w.Chain, e)
		return stepChain
	})
	return w, err
}

// Follow walks from start taking only edges accepted by keep; all other edges
// are ignored. The accepted edges are returned in visit order.
func (g *Graph) Follow(start NodeKey, limit int, keep func(relation.Edge) bool) ([]relation.Edge, error) {
	var out []relation.Edge
	err := g.bfs(start, limit, func(e relation.Edge) step {
		if !keep(e) {
			return stepSkip
		}
		out = append(out, e)
		return stepChain
	})
	return out, err
}

func (g *Graph) bfs(start NodeKey, limit int, visit func(relation.Edge) step) error {
	if limit < 1 {
		return fmt.Errorf("%w: got %d", ErrDepthLimit, limit)
	}
	var frontier deque.Deque[frontierItem]
	frontier.PushBack(frontierItem{node: start})
	for frontier.Len() > 0 {
		item := frontier.PopFront()
		if item.depth >= limit {
			continue
		}
		g.governed(item.node, func(e relation.Edge) {
			if visit(e) == stepChain {
				frontier.PushBack(frontierItem{node: DependentKey(e), depth: item.depth + 1})
			}
		})
	}
	return nil
}
