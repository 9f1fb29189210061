package depgraph

import (
	"github.com/japaniel/relex/pkg/relation"
)

// CopulaLabel marks the rewritten verb edge produced by CollapseCopula.
const CopulaLabel = "cop"

// CollapseCopula rewrites copular clauses from the verb-headed form some
// parsers produce into the noun-headed form, so that
//
//	(is, nsubj, Copper) (is, attr, metal)
//
// becomes
//
//	(metal, nsubj, Copper) (metal, cop, is)
//
// Only governors carrying both a subjectLabel and an attrLabel edge are
// touched; the first attribute edge wins. The input slice is not modified.
// An empty attrLabel returns a copy of edges.
func CollapseCopula(edges []relation.Edge, subjectLabel, attrLabel string) []relation.Edge {
	out := append([]relation.Edge(nil), edges...)
	if attrLabel == "" {
		return out
	}

	attr := make(map[NodeKey]int)
	var order []NodeKey
	hasSubj := make(map[NodeKey]bool)
	for i, e := range edges {
		k := GovernorKey(e)
		switch e.Label {
		case attrLabel:
			if _, ok := attr[k]; !ok {
				attr[k] = i
				order = append(order, k)
			}
		case subjectLabel:
			hasSubj[k] = true
		}
	}

	for _, k := range order {
		if !hasSubj[k] {
			continue
		}
		ai := attr[k]
		a := edges[ai]
		head, headIdx := a.Dependent, a.DependentIndex
		for i, e := range edges {
			if GovernorKey(e) != k || e.Label != subjectLabel {
				continue
			}
			out[i].Governor, out[i].GovernorIndex = head, headIdx
		}
		out[ai] = relation.Edge{
			Governor:       head,
			Label:          CopulaLabel,
			Dependent:      a.Governor,
			GovernorIndex:  headIdx,
			DependentIndex: a.GovernorIndex,
		}
	}
	return out
}
