package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/japaniel/relex/pkg/annotate"
	"github.com/japaniel/relex/pkg/lang"
	"github.com/japaniel/relex/pkg/relation"
)

const (
	copperText = "Copper is a metal"
	fruitText  = "Fruits such as apples and bananas"
)

func copperSentence() *annotate.Sentence {
	return &annotate.Sentence{
		Text: copperText,
		Tokens: []annotate.Token{
			{ID: 0, Text: "Copper", Lemma: "copper", Tag: "NNP", Pos: "PROPN", Head: 1, Dep: "nsubj"},
			{ID: 1, Text: "is", Lemma: "be", Tag: "VBZ", Pos: "AUX", Head: 1, Dep: "ROOT"},
			{ID: 2, Text: "a", Lemma: "a", Tag: "DT", Pos: "DET", Head: 3, Dep: "det"},
			{ID: 3, Text: "metal", Lemma: "metal", Tag: "NN", Pos: "NOUN", Head: 1, Dep: "attr"},
		},
		NounChunks: []annotate.Span{{Start: 0, End: 1}, {Start: 2, End: 4}},
	}
}

func fruitSentence() *annotate.Sentence {
	words := [][4]string{
		{"Fruits", "fruit", "NNS", "NOUN"},
		{"such", "such", "JJ", "ADJ"},
		{"as", "as", "IN", "ADP"},
		{"apples", "apple", "NNS", "NOUN"},
		{"and", "and", "CC", "CCONJ"},
		{"bananas", "banana", "NNS", "NOUN"},
	}
	s := &annotate.Sentence{Text: fruitText}
	for i, w := range words {
		s.Tokens = append(s.Tokens, annotate.Token{ID: i, Text: w[0], Lemma: w[1], Tag: w[2], Pos: w[3], Head: -1})
	}
	s.NounChunks = []annotate.Span{{Start: 0, End: 1}, {Start: 3, End: 4}, {Start: 5, End: 6}}
	return s
}

type fakeAnnotator struct {
	mu    sync.Mutex
	fail  map[string]bool
	delay time.Duration
	calls int32
}

func (f *fakeAnnotator) Annotate(ctx context.Context, sentence string) (*annotate.Sentence, error) {
	atomic.AddInt32(&f.calls, 1)
	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	f.mu.Lock()
	failing := f.fail[sentence]
	f.mu.Unlock()
	if failing {
		return nil, errors.New("service unavailable")
	}
	switch {
	case strings.HasPrefix(sentence, copperText):
		s := copperSentence()
		s.Text = sentence
		return s, nil
	case strings.HasPrefix(sentence, fruitText):
		s := fruitSentence()
		s.Text = sentence
		return s, nil
	}
	return &annotate.Sentence{Text: sentence}, nil
}

type fixedRecognizer []string

func (r fixedRecognizer) Entities(ctx context.Context, sentence string) ([]string, error) {
	return r, nil
}

func newExtractor(t testing.TB, a annotate.Annotator) *Extractor {
	t.Helper()
	l, err := lang.New("en", lang.Options{Annotator: a})
	require.NoError(t, err)
	x, err := NewExtractor(l, nil)
	require.NoError(t, err)
	return x
}

func labels(triples []relation.Triple, label string) []relation.Triple {
	var out []relation.Triple
	for _, tr := range triples {
		if tr.Label() == label {
			out = append(out, tr)
		}
	}
	return out
}

func TestExtractCopperIsAMetal(t *testing.T) {
	x := newExtractor(t, &fakeAnnotator{})

	res, err := x.Extract(context.Background(), copperText)
	require.NoError(t, err)

	hyp := labels(res.Triples, relation.LabelHypernym)
	require.Len(t, hyp, 1)
	assert.Equal(t, "Copper", hyp[0].Subject.Text)
	assert.Equal(t, "metal", hyp[0].Object.Text)
	assert.Equal(t, relation.SourceDependency, hyp[0].Source)
	assert.Equal(t, "NP_copper is NP_metal", res.Linearized)
}

func TestExtractSuchAs(t *testing.T) {
	x := newExtractor(t, &fakeAnnotator{})

	res, err := x.Extract(context.Background(), fruitText)
	require.NoError(t, err)
	assert.Equal(t, "NP_fruit such as NP_apple and NP_banana", res.Linearized)

	got := labels(res.Triples, "typeOf")
	require.Len(t, got, 2)
	assert.Equal(t, "apple", got[0].Subject.Text)
	assert.Equal(t, "banana", got[1].Subject.Text)
	for _, tr := range got {
		assert.Equal(t, "fruit", tr.Object.Text)
		assert.Equal(t, relation.SourcePattern, tr.Source)
	}
}

func TestExtractWidensWithRecognizer(t *testing.T) {
	x := newExtractor(t, &fakeAnnotator{})
	x.Recognizer = fixedRecognizer{"pure copper"}

	res, err := x.Extract(context.Background(), copperText)
	require.NoError(t, err)
	hyp := labels(res.Triples, relation.LabelHypernym)
	require.Len(t, hyp, 1)
	assert.Equal(t, "pure copper", hyp[0].Subject.Text)
}

func TestExtractAnnotateTimeout(t *testing.T) {
	x := newExtractor(t, &fakeAnnotator{delay: time.Second})
	x.AnnotateTimeout = 20 * time.Millisecond

	_, err := x.Extract(context.Background(), copperText)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestNewExtractorRequiresLanguage(t *testing.T) {
	_, err := NewExtractor(nil, nil)
	assert.Error(t, err)
}

func mixedItems(n int) []Item {
	items := make([]Item, n)
	for i := range items {
		if i%2 == 0 {
			items[i] = Item{Text: fmt.Sprintf("%s %d", copperText, i)}
		} else {
			items[i] = Item{Text: fmt.Sprintf("%s %d", fruitText, i)}
		}
	}
	return items
}

func TestRunEmitsInOrder(t *testing.T) {
	p := New(newExtractor(t, &fakeAnnotator{delay: time.Millisecond}))
	p.Workers = 4

	items := mixedItems(40)
	var got []int
	sum, err := p.Run(context.Background(), items, func(r Result) error {
		got = append(got, r.Index)
		assert.Equal(t, items[r.Index].Text, r.Text)
		assert.NotEmpty(t, r.Triples)
		return nil
	})
	require.NoError(t, err)

	want := make([]int, len(items))
	for i := range want {
		want[i] = i
	}
	assert.Equal(t, want, got)
	assert.Equal(t, len(items), sum.Sentences)
	assert.Zero(t, sum.Skipped)
	assert.GreaterOrEqual(t, sum.Triples, 60)
}

func TestRunIsDeterministic(t *testing.T) {
	collect := func() []string {
		p := New(newExtractor(t, &fakeAnnotator{}))
		p.Workers = 8
		var out []string
		_, err := p.Run(context.Background(), mixedItems(30), func(r Result) error {
			for _, tr := range r.Triples {
				out = append(out, tr.TSV())
			}
			return nil
		})
		require.NoError(t, err)
		return out
	}
	assert.Equal(t, collect(), collect())
}

func TestRunSkipsFailedAnnotation(t *testing.T) {
	items := mixedItems(6)
	fake := &fakeAnnotator{fail: map[string]bool{items[2].Text: true}}
	p := New(newExtractor(t, fake))

	var skipped []int
	sum, err := p.Run(context.Background(), items, func(r Result) error {
		if r.Skipped {
			skipped = append(skipped, r.Index)
			assert.Error(t, r.Err)
			assert.Empty(t, r.Triples)
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, []int{2}, skipped)
	assert.Equal(t, 6, sum.Sentences)
	assert.Equal(t, 1, sum.Skipped)
}

func TestRunSkipsTimedOutSentence(t *testing.T) {
	x := newExtractor(t, &fakeAnnotator{delay: 200 * time.Millisecond})
	x.AnnotateTimeout = 10 * time.Millisecond
	p := New(x)

	sum, err := p.Run(context.Background(), Texts([]string{copperText, fruitText}), nil)
	require.NoError(t, err)
	assert.Equal(t, 2, sum.Skipped)
}

func TestRunPreAnnotatedSkipsAnnotator(t *testing.T) {
	fake := &fakeAnnotator{}
	p := New(newExtractor(t, fake))

	sum, err := p.Run(context.Background(), Annotated([]annotate.Sentence{*copperSentence(), *fruitSentence()}), nil)
	require.NoError(t, err)
	assert.Equal(t, 2, sum.Sentences)
	assert.Equal(t, 3, sum.Triples)
	assert.Zero(t, atomic.LoadInt32(&fake.calls))
}

func TestRunEmitErrorStops(t *testing.T) {
	p := New(newExtractor(t, &fakeAnnotator{}))
	boom := errors.New("disk full")

	var emitted int
	_, err := p.Run(context.Background(), mixedItems(50), func(r Result) error {
		emitted++
		if r.Index == 3 {
			return boom
		}
		return nil
	})
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 4, emitted)
}

func TestRunCanceledContext(t *testing.T) {
	p := New(newExtractor(t, &fakeAnnotator{}))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	sum, err := p.Run(ctx, mixedItems(10), nil)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, sum.Sentences)
}

func TestRunEmpty(t *testing.T) {
	p := New(newExtractor(t, &fakeAnnotator{}))
	sum, err := p.Run(context.Background(), nil, nil)
	require.NoError(t, err)
	assert.Equal(t, Summary{}, sum)
}

// failingPool always returns an error on Submit to simulate producer error.
type failingPool struct{}

func (f *failingPool) Start(ctx context.Context) {}
func (f *failingPool) Submit(job Job) error      { return errors.New("submit failed") }
func (f *failingPool) SubmitCtx(ctx context.Context, job Job) error {
	return errors.New("submit failed")
}
func (f *failingPool) Close() {}

func TestRunReturnsSubmitError(t *testing.T) {
	p := New(newExtractor(t, &fakeAnnotator{}))
	p.PoolFactory = func(workers, queue int) Pool { return &failingPool{} }

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	_, err := p.Run(ctx, mixedItems(10), nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "submit failed")
}

func counterValue(t *testing.T, reg *prometheus.Registry, name, label string) float64 {
	t.Helper()
	families, err := reg.Gather()
	require.NoError(t, err)
	for _, mf := range families {
		if mf.GetName() != name {
			continue
		}
		for _, m := range mf.GetMetric() {
			for _, lp := range m.GetLabel() {
				if lp.GetValue() == label {
					return m.GetCounter().GetValue()
				}
			}
		}
	}
	return 0
}

func TestRunRecordsMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	items := mixedItems(4)
	x := newExtractor(t, &fakeAnnotator{fail: map[string]bool{items[1].Text: true}})
	x.Metrics = NewMetrics(reg)

	_, err := New(x).Run(context.Background(), items, nil)
	require.NoError(t, err)

	assert.Equal(t, 3.0, counterValue(t, reg, "relex_sentences_total", "ok"))
	assert.Equal(t, 1.0, counterValue(t, reg, "relex_sentences_total", "skipped"))
	assert.Equal(t, 2.0, counterValue(t, reg, "relex_triples_total", "dependency"))
}
