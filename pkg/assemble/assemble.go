// Package assemble turns pattern matches and classified dependency relations
// into the relation triples returned to callers.
package assemble

import (
	"strings"

	"github.com/japaniel/relex/pkg/depgraph"
	"github.com/japaniel/relex/pkg/hearst"
	"github.com/japaniel/relex/pkg/relation"
)

// Input is everything known about one sentence.
type Input struct {
	Patterns  []hearst.Match
	Relations depgraph.Classification
	// Entities are recognized entity spans. nil disables span widening.
	Entities []string
}

// Assembler merges both engines' output. The zero value keeps every direct
// relation.
type Assembler struct {
	// DirectLabels restricts direct relations to these dependency labels
	// (subtypes such as nmod:poss match nmod). Empty keeps all.
	DirectLabels []string
}

// Assemble emits pattern triples first, then hypernym signals, direct
// relations and short relations, each in input order. Triples whose subject
// and object are equal are dropped.
func (a *Assembler) Assemble(in Input) []relation.Triple {
	var out []relation.Triple
	out = append(out, FromMatches(in.Patterns)...)
	out = append(out, a.fromClassification(in.Relations)...)
	if in.Entities != nil {
		return Widen(out, in.Entities)
	}
	return dropSelfLoops(out)
}

// FromMatches converts pattern matches. Matches without a usable subject are skipped.
func FromMatches(matches []hearst.Match) []relation.Triple {
	out := make([]relation.Triple, 0, len(matches))
	for _, m := range matches {
		var subject string
		var rest []string
		for _, s := range m.Specifics {
			if strings.TrimSpace(s) == "" {
				continue
			}
			if subject == "" {
				subject = s
			} else {
				rest = append(rest, s)
			}
		}
		if subject == "" {
			continue
		}
		out = append(out, relation.Triple{
			Subject:   relation.TextTerm(subject),
			Predicate: relation.Predicate{Label: m.Label, Attributes: rest},
			Object:    relation.TextTerm(m.General),
			Source:    relation.SourcePattern,
		})
	}
	return out
}

func (a *Assembler) fromClassification(c depgraph.Classification) []relation.Triple {
	var out []relation.Triple
	for _, e := range c.Hypernyms {
		out = append(out, relation.Triple{
			Subject:   relation.TokenTerm(e.Dependent),
			Predicate: relation.Predicate{Label: relation.LabelHypernym, Modifiers: []string{e.Label}},
			Object:    relation.TokenTerm(e.Governor),
			Source:    relation.SourceDependency,
		})
	}
	for _, e := range c.Direct {
		if !a.keepDirect(e.Label) {
			continue
		}
		out = append(out, relation.Triple{
			Subject:   relation.TokenTerm(e.Governor),
			Predicate: relation.Predicate{Label: relation.LabelDirect, Modifiers: []string{e.Label}},
			Object:    relation.TokenTerm(e.Dependent),
			Source:    relation.SourceDependency,
		})
	}
	for i, sr := range c.Short {
		var attrs []string
		if i < len(c.Prepositions) {
			for _, p := range c.Prepositions[i] {
				attrs = append(attrs, p.Dependent.Surface)
			}
		}
		for _, term := range sr.Terminals {
			out = append(out, relation.Triple{
				Subject: relation.TokenTerm(sr.From),
				Predicate: relation.Predicate{
					Label:      relation.LabelShort,
					Modifiers:  []string{term.Governor.Surface, term.Label},
					Attributes: attrs,
				},
				Object: relation.TokenTerm(term.Dependent),
				Source: relation.SourceDependency,
			})
		}
	}
	return out
}

func (a *Assembler) keepDirect(label string) bool {
	if len(a.DirectLabels) == 0 {
		return true
	}
	base, _, _ := strings.Cut(label, ":")
	for _, l := range a.DirectLabels {
		if l == label || l == base {
			return true
		}
	}
	return false
}

// Widen replaces every subject or object that is contained in an entity span
// with the full span text, trying spans in order. Triples that end up with
// equal subject and object are dropped. The input slice is not modified.
func Widen(triples []relation.Triple, spans []string) []relation.Triple {
	lower := make([]string, len(spans))
	for i, s := range spans {
		lower[i] = strings.ToLower(s)
	}
	out := make([]relation.Triple, 0, len(triples))
	for _, t := range triples {
		t.Subject = widenTerm(t.Subject, spans, lower)
		t.Object = widenTerm(t.Object, spans, lower)
		if t.SelfLoop() {
			continue
		}
		out = append(out, t)
	}
	return out
}

func widenTerm(term relation.Term, spans, lower []string) relation.Term {
	text := strings.ToLower(strings.TrimSpace(term.Text))
	if text == "" {
		return term
	}
	for i, span := range lower {
		if len(span) > len(text) && strings.Contains(span, text) {
			return relation.TextTerm(spans[i])
		}
	}
	return term
}

func dropSelfLoops(triples []relation.Triple) []relation.Triple {
	out := triples[:0]
	for _, t := range triples {
		if !t.SelfLoop() {
			out = append(out, t)
		}
	}
	return out
}
