package depgraph

import (
	"fmt"
	"strings"

	"github.com/japaniel/relex/pkg/relation"
)

// Config selects the closed part of the label and tag vocabulary the
// classifier interprets. Everything else passes through untouched.
type Config struct {
	NounTags          []string `yaml:"noun_tags" json:"noun_tags"`
	SubjectLabel      string   `yaml:"subject_label" json:"subject_label"`
	PrepositionLabels []string `yaml:"preposition_labels" json:"preposition_labels"`
	// Width is the depth limit of short-relation walks.
	Width int `yaml:"width" json:"width"`
}

// DefaultConfig uses Penn Treebank noun tags and Universal/ClearNLP labels.
func DefaultConfig() Config {
	return Config{
		NounTags:          []string{"NN", "NNS", "NNP", "NNPS"},
		SubjectLabel:      "nsubj",
		PrepositionLabels: []string{"prep", "pobj", "case", "nmod", "obl"},
		Width:             2,
	}
}

// ShortRelation maps a noun to the noun-terminated edges reached from it
// through non-noun intermediaries.
type ShortRelation struct {
	From      relation.TaggedToken
	FromIndex int
	Terminals []relation.Edge
}

// Classification is the classifier output for one sentence. Prepositions is
// index-aligned with Short.
type Classification struct {
	Direct       []relation.Edge
	Hypernyms    []relation.Edge
	Short        []ShortRelation
	Prepositions [][]relation.Edge
}

// Classifier sorts the edges of a graph into direct relations, hypernym
// signals, short relations and preposition attachments. It holds no
// per-sentence state and may be shared between goroutines.
type Classifier struct {
	nouns   map[string]bool
	subject string
	preps   map[string]bool
	width   int
}

// NewClassifier validates cfg and builds its label and tag lookups.
func NewClassifier(cfg Config) (*Classifier, error) {
	if cfg.Width < 1 {
		return nil, fmt.Errorf("%w: width %d", ErrDepthLimit, cfg.Width)
	}
	if len(cfg.NounTags) == 0 {
		return nil, fmt.Errorf("classifier needs at least one noun tag")
	}
	if strings.TrimSpace(cfg.SubjectLabel) == "" {
		return nil, fmt.Errorf("classifier needs a subject label")
	}
	c := &Classifier{
		nouns:   make(map[string]bool, len(cfg.NounTags)),
		subject: cfg.SubjectLabel,
		preps:   make(map[string]bool, len(cfg.PrepositionLabels)),
		width:   cfg.Width,
	}
	for _, t := range cfg.NounTags {
		c.nouns[t] = true
	}
	for _, l := range cfg.PrepositionLabels {
		c.preps[l] = true
	}
	return c, nil
}

// IsNoun reports whether tok carries one of the configured noun tags.
func (c *Classifier) IsNoun(tok relation.TaggedToken) bool { return c.nouns[tok.Tag] }

// IsPreposition reports whether label, or its base before a ':' subtype, is a
// preposition-class label.
func (c *Classifier) IsPreposition(label string) bool {
	if c.preps[label] {
		return true
	}
	if base, _, ok := strings.Cut(label, ":"); ok {
		return c.preps[base]
	}
	return false
}

// Classify visits every edge of g once, in order.
func (c *Classifier) Classify(g *Graph) Classification {
	var out Classification
	for _, e := range g.edges {
		govNoun, depNoun := c.IsNoun(e.Governor), c.IsNoun(e.Dependent)
		switch {
		case govNoun && depNoun:
			if e.Label == c.subject {
				out.Hypernyms = append(out.Hypernyms, e)
			} else {
				out.Direct = append(out.Direct, e)
			}
		case govNoun:
			// width >= 1 is checked in NewClassifier
			w, _ := g.Walk(DependentKey(e), c.width, c.IsNoun)
			if len(w.Terminal) > 0 {
				out.Short = append(out.Short, ShortRelation{
					From:      e.Governor,
					FromIndex: e.GovernorIndex,
					Terminals: w.Terminal,
				})
			}
		}
	}

	out.Prepositions = make([][]relation.Edge, len(out.Short))
	for i, sr := range out.Short {
		last := sr.Terminals[len(sr.Terminals)-1]
		preps, _ := g.Follow(DependentKey(last), 1, func(e relation.Edge) bool {
			return c.IsPreposition(e.Label)
		})
		out.Prepositions[i] = preps
	}
	return out
}
