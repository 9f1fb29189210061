package lang

import (
	"context"
	"fmt"
	"strings"

	"github.com/ikawaha/kagome-dict/ipa"
	"github.com/ikawaha/kagome/v2/tokenizer"

	"github.com/japaniel/relex/pkg/annotate"
)

// IPA part-of-speech labels.
const (
	nounPOS       = "名詞"
	properNounPOS = "固有名詞"
)

var ipaToUniversal = map[string]string{
	"名詞":   "NOUN",
	"動詞":   "VERB",
	"形容詞":  "ADJ",
	"副詞":   "ADV",
	"助詞":   "ADP",
	"助動詞":  "AUX",
	"連体詞":  "DET",
	"接続詞":  "CCONJ",
	"感動詞":  "INTJ",
	"接頭詞":  "X",
	"記号":   "PUNCT",
	"フィラー": "INTJ",
}

// Morpheme is one unit of kagome output.
type Morpheme struct {
	Surface  string
	BaseForm string
	Reading  string
	// Features are the raw IPA features: POS, three sub-POS levels,
	// conjugation type and form, base form, reading, pronunciation.
	Features []string
}

// POS returns the primary part of speech.
func (m Morpheme) POS() string {
	if len(m.Features) > 0 {
		return m.Features[0]
	}
	return ""
}

// Analyzer wraps a kagome tokenizer using the IPA dictionary.
type Analyzer struct {
	t *tokenizer.Tokenizer
}

// NewAnalyzer loads the IPA dictionary.
func NewAnalyzer() (*Analyzer, error) {
	t, err := tokenizer.New(ipa.Dict(), tokenizer.OmitBosEos())
	if err != nil {
		return nil, fmt.Errorf("failed to create kagome tokenizer: %w", err)
	}
	return &Analyzer{t: t}, nil
}

// Analyze splits text into morphemes, dropping whitespace-only tokens.
func (a *Analyzer) Analyze(text string) []Morpheme {
	var out []Morpheme
	for _, tok := range a.t.Tokenize(text) {
		if tok.Class == tokenizer.DUMMY || strings.TrimSpace(tok.Surface) == "" {
			continue
		}
		features := tok.Features()
		m := Morpheme{Surface: tok.Surface, BaseForm: tok.Surface, Features: features}
		if len(features) > 6 && features[6] != "*" {
			m.BaseForm = features[6]
		}
		if len(features) > 7 && features[7] != "*" {
			m.Reading = features[7]
		}
		out = append(out, m)
	}
	return out
}

// Annotate produces a sentence with tags and noun chunks but no dependency
// heads: runs of consecutive nouns form the chunks.
func (a *Analyzer) Annotate(ctx context.Context, sentence string) (*annotate.Sentence, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	morphs := a.Analyze(sentence)
	s := &annotate.Sentence{Text: sentence, Tokens: make([]annotate.Token, len(morphs))}
	for i, m := range morphs {
		s.Tokens[i] = annotate.Token{
			ID:    i,
			Text:  m.Surface,
			Lemma: m.BaseForm,
			Tag:   m.POS(),
			Pos:   universalPOS(m),
			Head:  -1,
		}
	}
	s.NounChunks = nounRuns(morphs)
	return s, nil
}

func universalPOS(m Morpheme) string {
	if m.POS() == nounPOS && len(m.Features) > 1 && m.Features[1] == properNounPOS {
		return "PROPN"
	}
	if u, ok := ipaToUniversal[m.POS()]; ok {
		return u
	}
	return "X"
}

func nounRuns(morphs []Morpheme) []annotate.Span {
	spans := []annotate.Span{}
	for i := 0; i < len(morphs); {
		if morphs[i].POS() != nounPOS {
			i++
			continue
		}
		j := i
		var b strings.Builder
		for j < len(morphs) && morphs[j].POS() == nounPOS {
			b.WriteString(morphs[j].Surface)
			j++
		}
		spans = append(spans, annotate.Span{Start: i, End: j, Text: b.String()})
		i = j
	}
	return spans
}

func newJapanese(opts Options) (*Language, error) {
	an, err := NewAnalyzer()
	if err != nil {
		return nil, err
	}
	var annotator annotate.Annotator = an
	if opts.Annotator != nil {
		annotator = opts.Annotator
	}
	return &Language{
		Name:    "ja",
		Profile: japaneseProfile(),
		tokenize: func(text string) []string {
			morphs := an.Analyze(text)
			out := make([]string, len(morphs))
			for i, m := range morphs {
				out[i] = m.Surface
			}
			return out
		},
		annotator: annotator,
	}, nil
}
