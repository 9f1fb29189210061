// Package gazetteer recognizes entities in sentences from a fixed list of
// names and aliases.
package gazetteer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"
)

// Entry is one known entity.
type Entry struct {
	ID      string   `json:"id"`
	Name    string   `json:"name"`
	Aliases []string `json:"aliases,omitempty"`
	Type    string   `json:"type,omitempty"`
}

// Load reads entries from a JSON file holding either {"entities": [...]} or a
// bare array.
func Load(path string) ([]Entry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(bytes.NewReader(data))
}

// Parse decodes entries in either accepted layout.
func Parse(r io.Reader) ([]Entry, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	var wrapped struct {
		Entities []Entry `json:"entities"`
	}
	if err := json.Unmarshal(data, &wrapped); err == nil && len(wrapped.Entities) > 0 {
		return wrapped.Entities, nil
	}
	var entries []Entry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("failed to parse gazetteer as object or array: %w", err)
	}
	return entries, nil
}

type form struct {
	text  string
	entry int
}

// Recognizer matches surface forms case-insensitively on word boundaries,
// longest form first, without overlaps. It is read-only after construction.
type Recognizer struct {
	entries  []Entry
	forms    []form
	anywhere bool
}

// Option configures a Recognizer.
type Option func(*Recognizer)

// IgnoreWordBoundaries matches forms anywhere in the text, for scripts
// written without spaces.
func IgnoreWordBoundaries() Option {
	return func(r *Recognizer) { r.anywhere = true }
}

// NewRecognizer indexes the names and aliases of entries.
func NewRecognizer(entries []Entry, opts ...Option) *Recognizer {
	r := &Recognizer{entries: append([]Entry(nil), entries...)}
	for _, opt := range opts {
		opt(r)
	}
	seen := make(map[string]bool)
	for i, e := range r.entries {
		for _, s := range append([]string{e.Name}, e.Aliases...) {
			s = strings.ToLower(strings.TrimSpace(s))
			if s == "" || seen[s] {
				continue
			}
			seen[s] = true
			r.forms = append(r.forms, form{text: s, entry: i})
		}
	}
	sort.SliceStable(r.forms, func(a, b int) bool {
		return len(r.forms[a].text) > len(r.forms[b].text)
	})
	return r
}

// Len returns the number of entries.
func (r *Recognizer) Len() int { return len(r.entries) }

// Match is a recognized occurrence. Start and End are byte offsets into the sentence.
type Match struct {
	Entry Entry
	Start int
	End   int
}

// Find returns the matches in sentence order.
func (r *Recognizer) Find(sentence string) []Match {
	lower := strings.ToLower(sentence)
	if len(lower) != len(sentence) {
		// offsets would not line up with the original text
		lower = foldSameLength(sentence)
	}
	taken := make([]bool, len(lower))
	var out []Match
	for _, f := range r.forms {
		from := 0
		for {
			i := strings.Index(lower[from:], f.text)
			if i < 0 {
				break
			}
			start := from + i
			end := start + len(f.text)
			from = start + 1
			if (!r.anywhere && !boundary(lower, start, end)) || overlaps(taken, start, end) {
				continue
			}
			for k := start; k < end; k++ {
				taken[k] = true
			}
			out = append(out, Match{Entry: r.entries[f.entry], Start: start, End: end})
		}
	}
	sort.Slice(out, func(a, b int) bool { return out[a].Start < out[b].Start })
	return out
}

// Entities returns the canonical names of the entities in sentence, once
// each, in order of first occurrence.
func (r *Recognizer) Entities(ctx context.Context, sentence string) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	seen := make(map[string]bool)
	var out []string
	for _, m := range r.Find(sentence) {
		if !seen[m.Entry.Name] {
			seen[m.Entry.Name] = true
			out = append(out, m.Entry.Name)
		}
	}
	return out, nil
}

func boundary(s string, start, end int) bool {
	if start > 0 {
		r, _ := utf8.DecodeLastRuneInString(s[:start])
		if isWordRune(r) {
			return false
		}
	}
	if end < len(s) {
		r, _ := utf8.DecodeRuneInString(s[end:])
		if isWordRune(r) {
			return false
		}
	}
	return true
}

func overlaps(taken []bool, start, end int) bool {
	for k := start; k < end; k++ {
		if taken[k] {
			return true
		}
	}
	return false
}

func isWordRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r)
}

// foldSameLength lowercases rune by rune, keeping a rune unchanged when its
// lowercase form has a different encoded length.
func foldSameLength(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		l := unicode.ToLower(r)
		if utf8.RuneLen(l) != utf8.RuneLen(r) {
			l = r
		}
		b.WriteRune(l)
	}
	return b.String()
}
