package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/japaniel/relex/pkg/annotate"
	"github.com/japaniel/relex/pkg/assemble"
	"github.com/japaniel/relex/pkg/depgraph"
	"github.com/japaniel/relex/pkg/hearst"
	"github.com/japaniel/relex/pkg/lang"
)

// DefaultAnnotateTimeout bounds one annotation call.
const DefaultAnnotateTimeout = 10 * time.Second

// Extractor runs both engines over one sentence. It holds no per-sentence
// state and is safe for concurrent use.
type Extractor struct {
	Language   *lang.Language
	Matcher    *hearst.Matcher
	Classifier *depgraph.Classifier
	Assembler  assemble.Assembler
	// Recognizer adds entity spans to the ones the annotator reports. Optional.
	Recognizer      annotate.EntityRecognizer
	AnnotateTimeout time.Duration
	// Logger nil means slog.Default().
	Logger  *slog.Logger
	Metrics *Metrics
}

// NewExtractor wires an extractor for l. A nil table selects the language's
// default rule variant.
func NewExtractor(l *lang.Language, table *hearst.Table) (*Extractor, error) {
	if l == nil {
		return nil, fmt.Errorf("language is required")
	}
	if table == nil {
		var err error
		if table, err = hearst.Variant(l.Profile.Rules, false); err != nil {
			return nil, err
		}
	}
	var opts []hearst.Option
	if m := l.Profile.Linearizer.Marker; m != "" {
		opts = append(opts, hearst.WithMarker(m))
	}
	matcher, err := hearst.NewMatcher(table, opts...)
	if err != nil {
		return nil, err
	}
	classifier, err := depgraph.NewClassifier(l.Profile.Classifier)
	if err != nil {
		return nil, fmt.Errorf("%s classifier: %w", l.Name, err)
	}
	return &Extractor{
		Language:        l,
		Matcher:         matcher,
		Classifier:      classifier,
		AnnotateTimeout: DefaultAnnotateTimeout,
	}, nil
}

func (x *Extractor) logger() *slog.Logger {
	if x.Logger != nil {
		return x.Logger
	}
	return slog.Default()
}

// Annotate calls the language annotator under AnnotateTimeout.
func (x *Extractor) Annotate(ctx context.Context, text string) (*annotate.Sentence, error) {
	if x.AnnotateTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, x.AnnotateTimeout)
		defer cancel()
	}
	start := time.Now()
	s, err := x.Language.Annotate(ctx, text)
	x.Metrics.observeAnnotate(time.Since(start))
	if err != nil {
		return nil, fmt.Errorf("annotate: %w", err)
	}
	if s == nil {
		s = &annotate.Sentence{Text: text}
	}
	if s.Text == "" {
		s.Text = text
	}
	return s, nil
}

// Extract annotates text and extracts its triples. An error means the
// sentence could not be annotated.
func (x *Extractor) Extract(ctx context.Context, text string) (Result, error) {
	s, err := x.Annotate(ctx, text)
	if err != nil {
		return Result{Text: text}, err
	}
	return x.FromAnnotated(ctx, s), nil
}

// FromAnnotated extracts the triples of an already annotated sentence.
func (x *Extractor) FromAnnotated(ctx context.Context, s *annotate.Sentence) Result {
	linear := x.Language.Linearize(s)
	matches := x.Matcher.Match(linear)
	cls := x.Classifier.Classify(depgraph.New(x.Language.Edges(s)))

	entities := s.EntityTexts()
	if x.Recognizer != nil {
		found, err := x.Recognizer.Entities(ctx, s.Text)
		if err != nil {
			x.logger().Warn("entity recognition failed", "sentence", s.Text, "error", err)
		}
		entities = append(entities, found...)
	}
	if len(entities) == 0 {
		entities = nil
	}

	return Result{
		Text:       s.Text,
		Linearized: linear,
		Triples: x.Assembler.Assemble(assemble.Input{
			Patterns:  matches,
			Relations: cls,
			Entities:  entities,
		}),
	}
}
