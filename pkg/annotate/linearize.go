package annotate

import (
	"strings"
	"unicode"
)

// PronounLemma is the lemma some annotators give every pronoun.
const PronounLemma = "-PRON-"

// DefaultStopAdjectives are quantifier-like modifiers dropped from noun phrases.
var DefaultStopAdjectives = []string{
	"able", "available", "brief", "certain", "different", "due", "enough", "especially",
	"few", "fifth", "former", "his", "howbeit", "immediate", "important", "inc", "its",
	"last", "latter", "least", "less", "likely", "little", "many", "ml", "more", "most",
	"much", "my", "necessary", "new", "next", "non", "old", "other", "our", "ours", "own",
	"particular", "past", "possible", "present", "proud", "recent", "same", "several",
	"significant", "similar", "such", "sup", "sure",
}

// Linearizer rewrites an annotated sentence into the form pattern rules match
// against: lowercased words separated by single spaces, with each noun chunk
// collapsed into one marker token such as NP_chemical_element.
type Linearizer struct {
	Marker       string
	NumberMarker string
	// Separator joins the words of a chunk; empty concatenates them.
	Separator string
	// StopTokens are dropped from noun chunks entirely.
	StopTokens []string
	// StopAdjectives are dropped from inside noun chunks. Leading ones are
	// kept as plain words so that rules like "such NP as" and "other NP" fire.
	StopAdjectives []string
}

// NewLinearizer returns a linearizer with the English defaults.
func NewLinearizer() *Linearizer {
	return &Linearizer{
		Marker:         "NP_",
		NumberMarker:   "CD_",
		Separator:      "_",
		StopTokens:     []string{"the", "a", "an"},
		StopAdjectives: DefaultStopAdjectives,
	}
}

func toSet(words []string) map[string]bool {
	m := make(map[string]bool, len(words))
	for _, w := range words {
		m[strings.ToLower(w)] = true
	}
	return m
}

// Linearize builds the marker string. When the sentence carries no noun
// chunks, runs of determiners, adjectives and nouns ending in a noun are used.
func (l *Linearizer) Linearize(s *Sentence) string {
	if s == nil {
		return ""
	}
	stopTok, stopAdj := toSet(l.StopTokens), toSet(l.StopAdjectives)
	chunks := s.NounChunks
	if chunks == nil {
		chunks = FallbackChunks(s.Tokens)
	}
	starts := make(map[int]Span, len(chunks))
	for _, c := range chunks {
		if c.Start >= 0 && c.End <= len(s.Tokens) && c.Start < c.End {
			if _, dup := starts[c.Start]; !dup {
				starts[c.Start] = c
			}
		}
	}

	var words []string
	for i := 0; i < len(s.Tokens); {
		if c, ok := starts[i]; ok {
			words = append(words, l.chunk(s.Tokens[c.Start:c.End], stopTok, stopAdj)...)
			i = c.End
			continue
		}
		t := s.Tokens[i]
		text := strings.ToLower(strings.TrimSpace(t.Text))
		if text != "" {
			if l.NumberMarker != "" && isNumber(t) {
				text = l.NumberMarker + text
			}
			words = append(words, text)
		}
		i++
	}
	return joinWords(words)
}

func (l *Linearizer) chunk(tokens []Token, stopTok, stopAdj map[string]bool) []string {
	var lead, parts []string
	leading := true
	for _, t := range tokens {
		text := strings.ToLower(t.Text)
		if stopTok[text] {
			continue
		}
		lemma := strings.ToLower(t.Lemma)
		if lemma == "" {
			lemma = text
		}
		if stopAdj[lemma] {
			if leading {
				lead = append(lead, text)
			}
			continue
		}
		leading = false
		switch {
		case t.Lemma == PronounLemma:
			parts = append(parts, text)
		case isAlnum(lemma):
			parts = append(parts, lemma)
		default:
			if cleaned := stripNonAlnum(lemma); cleaned != "" {
				parts = append(parts, cleaned)
			}
		}
	}
	if len(parts) == 0 {
		var plain []string
		for _, t := range tokens {
			if w := strings.ToLower(strings.TrimSpace(t.Text)); w != "" {
				plain = append(plain, w)
			}
		}
		return plain
	}
	return append(lead, l.Marker+strings.Join(parts, l.Separator))
}

// FallbackChunks finds maximal runs of determiner, adjective and noun tokens, trimmed so that each run ends with a noun.
func FallbackChunks(tokens []Token) []Span {
	var out []Span
	for i := 0; i < len(tokens); {
		if !chunkable(tokens[i]) {
			i++
			continue
		}
		j := i
		for j < len(tokens) && chunkable(tokens[j]) {
			j++
		}
		end := j
		for end > i && !isNounToken(tokens[end-1]) {
			end--
		}
		if end > i {
			out = append(out, Span{Start: i, End: end})
		}
		i = j
	}
	return out
}

func chunkable(t Token) bool {
	switch t.Pos {
	case "DET", "ADJ", "NOUN", "PROPN":
		return true
	case "":
		return strings.HasPrefix(t.Tag, "NN") || strings.HasPrefix(t.Tag, "JJ") || t.Tag == "DT"
	}
	return false
}

func isNounToken(t Token) bool {
	if t.Pos != "" {
		return t.Pos == "NOUN" || t.Pos == "PROPN"
	}
	return strings.HasPrefix(t.Tag, "NN")
}

func isNumber(t Token) bool {
	return t.Tag == "CD" || t.Pos == "NUM"
}

func isAlnum(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) {
			return false
		}
	}
	return true
}

func stripNonAlnum(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			return r
		}
		return -1
	}, s)
}

func joinWords(words []string) string {
	out := words[:0:0]
	for _, w := range words {
		if w = strings.TrimSpace(w); w != "" {
			out = append(out, w)
		}
	}
	return strings.Join(out, " ")
}
