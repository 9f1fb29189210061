// Package relation holds the value types shared by both extraction engines:
// tagged tokens, dependency edges and the relation triples handed to callers.
package relation

import (
	"strings"
)

// Labels of the fixed noun-relation vocabulary produced by the dependency engine.
const (
	LabelHypernym = "hypernym"
	LabelDirect   = "direct-relation"
	LabelShort    = "short-relation"
)

// Source records which engine produced a triple.
type Source string

const (
	SourcePattern    Source = "pattern"
	SourceDependency Source = "dependency"
)

// TaggedToken is a word and its part-of-speech tag. Two tokens with the same
// surface text and tag compare equal regardless of where they occur.
type TaggedToken struct {
	Surface string `json:"surface"`
	Tag     string `json:"tag"`
}

func (t TaggedToken) String() string { return t.Surface }

// Edge is one directed, labeled dependency arc of a sentence.
//
// GovernorIndex and DependentIndex are 1-based token positions inside the
// sentence. Zero means the position is unknown, in which case graph traversal
// falls back to comparing tokens by value.
type Edge struct {
	Governor  TaggedToken `json:"governor"`
	Label     string      `json:"label"`
	Dependent TaggedToken `json:"dependent"`

	GovernorIndex  int `json:"governor_index,omitempty"`
	DependentIndex int `json:"dependent_index,omitempty"`
}

// NewEdge builds an edge without positional information.
func NewEdge(governor TaggedToken, label string, dependent TaggedToken) Edge {
	return Edge{Governor: governor, Label: label, Dependent: dependent}
}

func (e Edge) String() string {
	return e.Governor.Surface + " -" + e.Label + "-> " + e.Dependent.Surface
}

// Term is a triple subject or object: either a bare string or a tagged token.
type Term struct {
	Text  string       `json:"text"`
	Token *TaggedToken `json:"token,omitempty"`
}

// TextTerm returns a bare string term.
func TextTerm(s string) Term { return Term{Text: s} }

// TokenTerm returns a term backed by a tagged token.
func TokenTerm(tok TaggedToken) Term {
	t := tok
	return Term{Text: tok.Surface, Token: &t}
}

func (t Term) String() string { return t.Text }

// IsZero reports whether the term carries no text.
func (t Term) IsZero() bool { return strings.TrimSpace(t.Text) == "" }

// Predicate carries the relation label plus optional modifier and attribute lists.
type Predicate struct {
	Label      string   `json:"label"`
	Modifiers  []string `json:"modifiers,omitempty"`
	Attributes []string `json:"attributes,omitempty"`
}

// Triple is the unit returned to callers.
type Triple struct {
	Subject   Term      `json:"subject"`
	Predicate Predicate `json:"predicate"`
	Object    Term      `json:"object"`
	Source    Source    `json:"source"`
}

// Label is a shortcut for t.Predicate.Label.
func (t Triple) Label() string { return t.Predicate.Label }

// SelfLoop reports whether subject and object name the same thing, ignoring
// case and surrounding space.
func (t Triple) SelfLoop() bool {
	return strings.EqualFold(strings.TrimSpace(t.Subject.Text), strings.TrimSpace(t.Object.Text))
}

// TSV renders the triple as "subject\tlabel\tobject". Tabs and newlines inside
// terms are folded to spaces so the record stays on one line.
func (t Triple) TSV() string {
	return flat(t.Subject.Text) + "\t" + flat(t.Predicate.Label) + "\t" + flat(t.Object.Text)
}

var flattener = strings.NewReplacer("\t", " ", "\n", " ", "\r", " ")

func flat(s string) string { return flattener.Replace(s) }
