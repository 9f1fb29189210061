// Package hypernymy answers hyponym/hypernym questions from extracted triples.
package hypernymy

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/japaniel/relex/pkg/db"
	"github.com/japaniel/relex/pkg/relation"
)

// DefaultLabels are the triple labels read as "subject is a kind of object".
var DefaultLabels = []string{relation.LabelHypernym, "typeOf"}

// Pair is one hyponym/hypernym relation between normalized terms.
type Pair struct {
	Hyponym  string
	Hypernym string
}

// Index holds hypernym pairs. It is not safe for concurrent mutation.
type Index struct {
	labels    map[string]bool
	counts    map[Pair]int
	order     []Pair
	hypernyms map[string][]string
	hyponyms  map[string][]string
}

// NewIndex returns an empty index accepting the given labels, or
// DefaultLabels when none are given.
func NewIndex(labels ...string) *Index {
	if len(labels) == 0 {
		labels = DefaultLabels
	}
	x := &Index{
		labels:    make(map[string]bool, len(labels)),
		counts:    make(map[Pair]int),
		hypernyms: make(map[string][]string),
		hyponyms:  make(map[string][]string),
	}
	for _, l := range labels {
		x.labels[l] = true
	}
	return x
}

// Labels returns the accepted labels.
func (x *Index) Labels() []string {
	out := make([]string, 0, len(x.labels))
	for l := range x.labels {
		out = append(out, l)
	}
	return out
}

// Normalize folds a term to the form used for lookups.
func Normalize(term string) string {
	return strings.Join(strings.Fields(strings.ToLower(term)), " ")
}

// Add records subject/object of t when its label is accepted. It reports
// whether the triple was used.
func (x *Index) Add(t relation.Triple) bool {
	return x.add(t.Label(), t.Subject.Text, t.Object.Text, 1)
}

// AddAll adds every triple and returns how many were used.
func (x *Index) AddAll(triples []relation.Triple) int {
	n := 0
	for _, t := range triples {
		if x.Add(t) {
			n++
		}
	}
	return n
}

// AddStored adds stored triples, weighting each by its occurrence count.
func (x *Index) AddStored(triples []db.Triple) int {
	n := 0
	for _, t := range triples {
		c := t.OccurrenceCount
		if c < 1 {
			c = 1
		}
		if x.add(t.Label, t.Subject, t.Object, c) {
			n++
		}
	}
	return n
}

func (x *Index) add(label, hypo, hyper string, count int) bool {
	if !x.labels[label] {
		return false
	}
	p := Pair{Hyponym: Normalize(hypo), Hypernym: Normalize(hyper)}
	if p.Hyponym == "" || p.Hypernym == "" || p.Hyponym == p.Hypernym {
		return false
	}
	if _, seen := x.counts[p]; !seen {
		x.order = append(x.order, p)
		x.hypernyms[p.Hyponym] = append(x.hypernyms[p.Hyponym], p.Hypernym)
		x.hyponyms[p.Hypernym] = append(x.hyponyms[p.Hypernym], p.Hyponym)
	}
	x.counts[p] += count
	return true
}

// Load builds an index from the triples stored for sourceID (0 means all
// sources).
func Load(conn db.DBExecutor, sourceID int64, labels ...string) (*Index, error) {
	x := NewIndex(labels...)
	stored, err := db.QueryTriples(conn, db.TripleFilter{SourceID: sourceID, Labels: x.Labels()})
	if err != nil {
		return nil, fmt.Errorf("load hypernym triples: %w", err)
	}
	x.AddStored(stored)
	return x, nil
}

// Len is the number of distinct pairs.
func (x *Index) Len() int { return len(x.order) }

// Pairs returns the distinct pairs in the order they were first seen.
func (x *Index) Pairs() []Pair { return append([]Pair(nil), x.order...) }

// Count is how often the pair was seen in the given direction.
func (x *Index) Count(hypo, hyper string) int {
	return x.counts[Pair{Hyponym: Normalize(hypo), Hypernym: Normalize(hyper)}]
}

// Predict scores 1 when the two terms are related in either direction and 0
// otherwise.
func (x *Index) Predict(hypo, hyper string) float64 {
	if x.Count(hypo, hyper) > 0 || x.Count(hyper, hypo) > 0 {
		return 1
	}
	return 0
}

// Hypernyms lists the known hypernyms of term.
func (x *Index) Hypernyms(term string) []string {
	return append([]string(nil), x.hypernyms[Normalize(term)]...)
}

// Hyponyms lists the known hyponyms of term.
func (x *Index) Hyponyms(term string) []string {
	return append([]string(nil), x.hyponyms[Normalize(term)]...)
}

// ScoreTSV reads "hyponym<TAB>hypernym" lines from r and writes each pair
// with its Predict score. Blank lines and lines starting with # are skipped.
func (x *Index) ScoreTSV(r io.Reader, w io.Writer) error {
	sc := bufio.NewScanner(r)
	bw := bufio.NewWriter(w)
	line := 0
	for sc.Scan() {
		line++
		text := strings.TrimSpace(sc.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}
		fields := strings.Split(text, "\t")
		if len(fields) < 2 {
			return fmt.Errorf("line %d: expected hyponym and hypernym separated by a tab", line)
		}
		hypo, hyper := strings.TrimSpace(fields[0]), strings.TrimSpace(fields[1])
		score := strconv.FormatFloat(x.Predict(hypo, hyper), 'f', 1, 64)
		if _, err := bw.WriteString(hypo + "\t" + hyper + "\t" + score + "\n"); err != nil {
			return err
		}
	}
	if err := sc.Err(); err != nil {
		return err
	}
	return bw.Flush()
}
