// Package lang bundles the per-language pieces of extraction: how to tokenize,
// who annotates, which tags count as nouns and how sentences are linearized.
package lang

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/japaniel/relex/pkg/annotate"
	"github.com/japaniel/relex/pkg/depgraph"
	"github.com/japaniel/relex/pkg/relation"
)

var (
	// ErrUnsupportedLanguage is returned by New for names missing from the registry.
	ErrUnsupportedLanguage = errors.New("unsupported language")
	// ErrNoAnnotator is returned by Annotate when the language needs an
	// annotation service and none was configured.
	ErrNoAnnotator = errors.New("no annotator configured")
)

// Profile is the static description of a language.
type Profile struct {
	Classifier depgraph.Config
	// AttrLabel is the predicate-nominal label rewritten by CollapseCopula.
	// Empty when the parser already heads copular clauses with the noun.
	AttrLabel  string
	Tags       annotate.TagSource
	Rules      string
	Linearizer annotate.Linearizer
}

// Options carries the collaborators a language may use.
type Options struct {
	// Annotator is the external annotation service. Required for every
	// language except ja, which falls back to local morphological analysis.
	Annotator annotate.Annotator
}

// Language is a configured language.
type Language struct {
	Name    string
	Profile Profile

	tokenize  func(string) []string
	annotator annotate.Annotator
}

type factory func(Options) (*Language, error)

var registry = map[string]factory{
	"en": western("en", englishProfile),
	"de": western("de", germanProfile),
	"fr": western("fr", frenchProfile),
	"es": western("es", spanishProfile),
	"ja": newJapanese,
}

var aliases = map[string]string{
	"english":  "en",
	"german":   "de",
	"deutsch":  "de",
	"french":   "fr",
	"spanish":  "es",
	"japanese": "ja",
}

// New returns the named language. Names are codes (en) or English names (english).
func New(name string, opts Options) (*Language, error) {
	key := strings.ToLower(strings.TrimSpace(name))
	if code, ok := aliases[key]; ok {
		key = code
	}
	f, ok := registry[key]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedLanguage, name)
	}
	return f(opts)
}

// Names lists the registered language codes.
func Names() []string {
	out := make([]string, 0, len(registry))
	for k := range registry {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func western(code string, profile func() Profile) factory {
	return func(opts Options) (*Language, error) {
		return &Language{
			Name:      code,
			Profile:   profile(),
			tokenize:  Words,
			annotator: opts.Annotator,
		}, nil
	}
}

// Tokenize splits text into words and punctuation.
func (l *Language) Tokenize(text string) []string { return l.tokenize(text) }

// Annotate annotates one sentence.
func (l *Language) Annotate(ctx context.Context, sentence string) (*annotate.Sentence, error) {
	if l.annotator == nil {
		return nil, fmt.Errorf("%w for %s", ErrNoAnnotator, l.Name)
	}
	return l.annotator.Annotate(ctx, sentence)
}

// Edges derives the dependency edges of s in the form the classifier expects.
func (l *Language) Edges(s *annotate.Sentence) []relation.Edge {
	edges := s.Edges(l.Profile.Tags)
	return depgraph.CollapseCopula(edges, l.Profile.Classifier.SubjectLabel, l.Profile.AttrLabel)
}

// Linearize builds the noun-phrase marker string of s.
func (l *Language) Linearize(s *annotate.Sentence) string {
	lin := l.Profile.Linearizer
	return lin.Linearize(s)
}
