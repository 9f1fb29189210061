package hearst

import (
	"fmt"
	"strings"
	"unicode"
)

// DefaultMarker prefixes every noun-phrase token in a linearized sentence.
const DefaultMarker = "NP_"

// Match is one pattern hit. In token-scan mode a match carries exactly one
// specific term; in capture-group mode it carries groups in order, with
// non-participating optional groups left as "".
type Match struct {
	Rule      int
	Label     string
	General   string
	Specifics []string
}

// Matcher runs every rule of a table against linearized sentences.
type Matcher struct {
	table  *Table
	marker string
}

// Option configures a Matcher.
type Option func(*Matcher)

// WithMarker overrides the noun-phrase marker. It must end with an underscore.
func WithMarker(marker string) Option {
	return func(m *Matcher) { m.marker = marker }
}

// NewMatcher binds a matcher to a rule table.
func NewMatcher(table *Table, opts ...Option) (*Matcher, error) {
	if table == nil {
		return nil, fmt.Errorf("%w: nil table", ErrMalformedRule)
	}
	m := &Matcher{table: table, marker: DefaultMarker}
	for _, opt := range opts {
		opt(m)
	}
	if m.marker == "" || !strings.HasSuffix(m.marker, "_") {
		return nil, fmt.Errorf("%w: marker %q must end with '_'", ErrMalformedRule, m.marker)
	}
	return m, nil
}

// Table returns the rule table the matcher runs.
func (m *Matcher) Table() *Table { return m.table }

// Marker returns the noun-phrase marker in use.
func (m *Matcher) Marker() string { return m.marker }

// Match tries each rule once, in table order, against sentence. The result is
// deterministic for a given table and sentence.
func (m *Matcher) Match(sentence string) []Match {
	var out []Match
	for i, rule := range m.table.rules {
		loc := rule.Pattern.FindStringSubmatchIndex(sentence)
		if loc == nil {
			continue
		}
		if rule.Groups == 0 {
			out = append(out, m.scan(i, rule, sentence[loc[0]:loc[1]])...)
			continue
		}
		if mt, ok := m.grouped(i, rule, sentence, loc); ok {
			out = append(out, mt)
		}
	}
	return out
}

func (m *Matcher) scan(idx int, rule Rule, span string) []Match {
	var nps []string
	for _, tok := range strings.Fields(span) {
		if !strings.HasPrefix(tok, m.marker) {
			continue
		}
		tok = strings.TrimRightFunc(tok, func(r rune) bool { return !isWord(r) })
		if len(tok) > len(m.marker) {
			nps = append(nps, tok)
		}
	}
	if len(nps) < 2 {
		return nil
	}
	var general string
	var specifics []string
	if rule.Direction == First {
		general, specifics = nps[0], nps[1:]
	} else {
		general, specifics = nps[len(nps)-1], nps[:len(nps)-1]
	}
	general = Clean(general, m.marker)
	out := make([]Match, 0, len(specifics))
	for _, s := range specifics {
		out = append(out, Match{
			Rule:      idx,
			Label:     rule.Label,
			General:   general,
			Specifics: []string{Clean(s, m.marker)},
		})
	}
	return out
}

func (m *Matcher) grouped(idx int, rule Rule, sentence string, loc []int) (Match, bool) {
	group := func(n int) string {
		if loc[2*n] < 0 {
			return ""
		}
		return Clean(sentence[loc[2*n]:loc[2*n+1]], m.marker)
	}
	n := rule.Groups
	var general string
	specifics := make([]string, 0, n-1)
	if rule.Direction == First {
		general = group(1)
		for g := 2; g <= n; g++ {
			specifics = append(specifics, group(g))
		}
	} else {
		general = group(n)
		for g := 1; g < n; g++ {
			specifics = append(specifics, group(g))
		}
	}
	if strings.TrimSpace(general) == "" {
		return Match{}, false
	}
	return Match{Rule: idx, Label: rule.Label, General: general, Specifics: specifics}, true
}

func isWord(r rune) bool {
	return r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r)
}

// Clean turns a marker token back into plain text: the marker is removed and
// underscores become spaces. Clean(Clean(s)) == Clean(s).
func Clean(term, marker string) string {
	if marker != "" {
		term = strings.ReplaceAll(term, marker, "")
	}
	return strings.ReplaceAll(term, "_", " ")
}
