// Package annotate defines the contract with the external annotation service
// (tokens, tags, dependency heads, noun chunks and entity spans) and the
// adapters that produce or consume annotated sentences.
package annotate

import (
	"context"

	"github.com/japaniel/relex/pkg/relation"
)

// Token is one annotated word. ID and Head are 0-based positions in the
// sentence; Head is -1 or equal to ID for the root.
type Token struct {
	ID    int    `json:"id"`
	Text  string `json:"text"`
	Lemma string `json:"lemma"`
	Tag   string `json:"tag"`
	Pos   string `json:"pos"`
	Head  int    `json:"head"`
	Dep   string `json:"dep"`
}

// Span covers tokens [Start, End).
type Span struct {
	Start int    `json:"start"`
	End   int    `json:"end"`
	Text  string `json:"text"`
	Label string `json:"label,omitempty"`
}

// Sentence is the annotation of a single sentence.
type Sentence struct {
	Text       string  `json:"text"`
	Tokens     []Token `json:"tokens"`
	NounChunks []Span  `json:"noun_chunks,omitempty"`
	Entities   []Span  `json:"entities,omitempty"`
}

// Annotator annotates one sentence. Implementations must honor ctx.
type Annotator interface {
	Annotate(ctx context.Context, sentence string) (*Sentence, error)
}

// EntityRecognizer returns entity span texts found in a sentence.
type EntityRecognizer interface {
	Entities(ctx context.Context, sentence string) ([]string, error)
}

// TagSource picks which token tag becomes the TaggedToken tag.
type TagSource int

const (
	// FineTag uses the treebank tag (NN, NNS, ...).
	FineTag TagSource = iota
	// CoarsePOS uses the universal part of speech (NOUN, VERB, ...).
	CoarsePOS
)

func (t Token) Tagged(src TagSource) relation.TaggedToken {
	tag := t.Tag
	if src == CoarsePOS || tag == "" {
		tag = t.Pos
	}
	return relation.TaggedToken{Surface: t.Text, Tag: tag}
}

// Edges derives one dependency edge per non-root token, in token order.
// Positions on the edges are 1-based.
func (s *Sentence) Edges(src TagSource) []relation.Edge {
	if s == nil {
		return nil
	}
	out := make([]relation.Edge, 0, len(s.Tokens))
	for i, t := range s.Tokens {
		if t.Head < 0 || t.Head == i || t.Head >= len(s.Tokens) {
			continue
		}
		gov := s.Tokens[t.Head]
		out = append(out, relation.Edge{
			Governor:       gov.Tagged(src),
			Label:          t.Dep,
			Dependent:      t.Tagged(src),
			GovernorIndex:  t.Head + 1,
			DependentIndex: i + 1,
		})
	}
	return out
}

// EntityTexts returns the entity span texts, rebuilding missing text from tokens.
func (s *Sentence) EntityTexts() []string {
	if s == nil || len(s.Entities) == 0 {
		return nil
	}
	out := make([]string, 0, len(s.Entities))
	for _, e := range s.Entities {
		text := e.Text
		if text == "" {
			text = s.spanText(e)
		}
		if text != "" {
			out = append(out, text)
		}
	}
	return out
}

func (s *Sentence) spanText(sp Span) string {
	if sp.Start < 0 || sp.End > len(s.Tokens) || sp.Start >= sp.End {
		return ""
	}
	words := make([]string, 0, sp.End-sp.Start)
	for _, t := range s.Tokens[sp.Start:sp.End] {
		words = append(words, t.Text)
	}
	return joinWords(words)
}

// Merge concatenates sentences into one, shifting token positions and spans.
func Merge(sentences []Sentence) *Sentence {
	if len(sentences) == 1 {
		s := sentences[0]
		return &s
	}
	out := &Sentence{}
	var texts []string
	for _, s := range sentences {
		off := len(out.Tokens)
		texts = append(texts, s.Text)
		for _, t := range s.Tokens {
			t.ID += off
			if t.Head >= 0 {
				t.Head += off
			}
			out.Tokens = append(out.Tokens, t)
		}
		for _, sp := range s.NounChunks {
			sp.Start, sp.End = sp.Start+off, sp.End+off
			out.NounChunks = append(out.NounChunks, sp)
		}
		for _, sp := range s.Entities {
			sp.Start, sp.End = sp.Start+off, sp.End+off
			out.Entities = append(out.Entities, sp)
		}
	}
	out.Text = joinWords(texts)
	return out
}
