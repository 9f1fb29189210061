package lang

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/japaniel/relex/pkg/annotate"
	"github.com/japaniel/relex/pkg/depgraph"
)

type stubAnnotator struct {
	s   *annotate.Sentence
	err error
}

func (s stubAnnotator) Annotate(ctx context.Context, sentence string) (*annotate.Sentence, error) {
	return s.s, s.err
}

func TestNewResolvesCodesAndAliases(t *testing.T) {
	for _, name := range []string{"en", "EN", "english", "german", "fr", "spanish"} {
		l, err := New(name, Options{})
		require.NoError(t, err, name)
		assert.NotEmpty(t, l.Name)
	}

	_, err := New("klingon", Options{})
	assert.ErrorIs(t, err, ErrUnsupportedLanguage)
}

func TestNames(t *testing.T) {
	assert.Equal(t, []string{"de", "en", "es", "fr", "ja"}, Names())
}

func TestProfilesBuildClassifiers(t *testing.T) {
	for _, name := range []string{"en", "de", "fr", "es"} {
		l, err := New(name, Options{})
		require.NoError(t, err)
		_, err = depgraph.NewClassifier(l.Profile.Classifier)
		assert.NoError(t, err, name)
	}
}

func TestAnnotateNeedsAnnotator(t *testing.T) {
	l, err := New("en", Options{})
	require.NoError(t, err)
	_, err = l.Annotate(context.Background(), "Copper is a metal.")
	assert.ErrorIs(t, err, ErrNoAnnotator)

	boom := errors.New("boom")
	l, err = New("en", Options{Annotator: stubAnnotator{err: boom}})
	require.NoError(t, err)
	_, err = l.Annotate(context.Background(), "x")
	assert.ErrorIs(t, err, boom)
}

func TestEnglishEdgesCollapseCopula(t *testing.T) {
	s := &annotate.Sentence{Tokens: []annotate.Token{
		{Text: "Copper", Tag: "NN", Head: 1, Dep: "nsubj"},
		{Text: "is", Tag: "VBZ", Head: 1, Dep: "ROOT"},
		{Text: "a", Tag: "DT", Head: 3, Dep: "det"},
		{Text: "metal", Tag: "NN", Head: 1, Dep: "attr"},
	}}
	l, err := New("en", Options{})
	require.NoError(t, err)

	edges := l.Edges(s)
	require.Len(t, edges, 3)
	assert.Equal(t, "metal", edges[0].Governor.Surface)
	assert.Equal(t, "nsubj", edges[0].Label)
	assert.Equal(t, "Copper", edges[0].Dependent.Surface)
	assert.Equal(t, depgraph.CopulaLabel, edges[2].Label)
}

func TestWords(t *testing.T) {
	assert.Equal(t,
		[]string{"Don't", "split", "well-known", "words", ",", "please", "."},
		Words("Don't split well-known words, please."))
	assert.Equal(t, []string{"Äpfel", "und", "Birnen"}, Words("Äpfel und Birnen"))
}

func TestJapaneseAnalyzer(t *testing.T) {
	l, err := New("ja", Options{})
	require.NoError(t, err)

	toks := l.Tokenize("私は学生です。")
	assert.Equal(t, []string{"私", "は", "学生", "です", "。"}, toks)

	s, err := l.Annotate(context.Background(), "りんごやみかんなどの果物")
	require.NoError(t, err)
	require.NotEmpty(t, s.Tokens)
	assert.Equal(t, "NOUN", s.Tokens[0].Pos)
	assert.Equal(t, "名詞", s.Tokens[0].Tag)
	assert.Equal(t, "NP_りんご や NP_みかん など の NP_果物", l.Linearize(s))
}

func TestJapaneseNounRunsMergeCompounds(t *testing.T) {
	an, err := NewAnalyzer()
	require.NoError(t, err)

	s, err := an.Annotate(context.Background(), "東京大学に行く")
	require.NoError(t, err)
	require.NotEmpty(t, s.NounChunks)
	assert.Equal(t, "東京大学", s.NounChunks[0].Text)
	assert.Equal(t, 0, s.NounChunks[0].Start)
}

func TestJapaneseAnnotateHonorsContext(t *testing.T) {
	an, err := NewAnalyzer()
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = an.Annotate(ctx, "テスト")
	assert.ErrorIs(t, err, context.Canceled)
}
