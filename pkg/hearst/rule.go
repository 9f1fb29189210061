// Package hearst matches lexical-syntactic patterns against sentences in which
// every noun phrase has been collapsed into a single marker-prefixed token.
package hearst

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

// ErrMalformedRule is returned when a rule cannot be compiled or its group
// count does not fit the pattern.
var ErrMalformedRule = errors.New("malformed pattern rule")

// Direction selects which noun phrase of a match is the general term.
type Direction int

const (
	// First makes the first noun phrase (or capture group 1) the general term.
	First Direction = iota
	// Last makes the last noun phrase (or the last capture group) the general term.
	Last
)

func (d Direction) String() string {
	switch d {
	case First:
		return "first"
	case Last:
		return "last"
	default:
		return fmt.Sprintf("Direction(%d)", int(d))
	}
}

// ParseDirection accepts "first" or "last" in any case.
func ParseDirection(s string) (Direction, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "first":
		return First, nil
	case "last":
		return Last, nil
	}
	return 0, fmt.Errorf("%w: unknown direction %q", ErrMalformedRule, s)
}

func (d *Direction) UnmarshalYAML(node *yaml.Node) error {
	parsed, err := ParseDirection(node.Value)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

func (d Direction) MarshalYAML() (interface{}, error) {
	return d.String(), nil
}

// Rule is one compiled pattern. Groups == 0 selects whole-match token-scan
// mode; Groups == n reads capture groups 1..n.
type Rule struct {
	Pattern   *regexp.Regexp
	Direction Direction
	Label     string
	Groups    int
}

// NewRule compiles pattern and checks that groups is consistent with it.
// Word classes (\w, \W) are widened to Unicode letters and digits so that
// non-ASCII noun phrases are matched.
func NewRule(pattern string, dir Direction, label string, groups int) (Rule, error) {
	if dir != First && dir != Last {
		return Rule{}, fmt.Errorf("%w: invalid direction %d", ErrMalformedRule, int(dir))
	}
	if strings.TrimSpace(label) == "" {
		return Rule{}, fmt.Errorf("%w: empty label", ErrMalformedRule)
	}
	if groups < 0 {
		return Rule{}, fmt.Errorf("%w: negative group count %d", ErrMalformedRule, groups)
	}
	re, err := regexp.Compile(unicodeWordClasses(pattern))
	if err != nil {
		return Rule{}, fmt.Errorf("%w: %v", ErrMalformedRule, err)
	}
	if groups > re.NumSubexp() {
		return Rule{}, fmt.Errorf("%w: %q declares %d groups but has %d", ErrMalformedRule, pattern, groups, re.NumSubexp())
	}
	return Rule{Pattern: re, Direction: dir, Label: label, Groups: groups}, nil
}

// MustRule is like NewRule but panics on error. Intended for rule literals.
func MustRule(pattern string, dir Direction, label string, groups int) Rule {
	r, err := NewRule(pattern, dir, label, groups)
	if err != nil {
		panic(err)
	}
	return r
}

const (
	wordChars    = `\p{L}\p{N}_`
	wordClass    = `[` + wordChars + `]`
	nonWordClass = `[^` + wordChars + `]`
)

// unicodeWordClasses rewrites \w and \W, which RE2 restricts to ASCII.
func unicodeWordClasses(pattern string) string {
	if !strings.Contains(pattern, `\w`) && !strings.Contains(pattern, `\W`) {
		return pattern
	}
	var b strings.Builder
	inClass := false
	classStart := 0
	for i := 0; i < len(pattern); i++ {
		c := pattern[i]
		switch {
		case c == '\\' && i+1 < len(pattern):
			next := pattern[i+1]
			i++
			switch {
			case next == 'w' && inClass:
				b.WriteString(wordChars)
			case next == 'w':
				b.WriteString(wordClass)
			case next == 'W' && !inClass:
				b.WriteString(nonWordClass)
			default:
				b.WriteByte('\\')
				b.WriteByte(next)
			}
			continue
		case c == '[' && !inClass:
			inClass = true
			classStart = b.Len() + 1
			if i+1 < len(pattern) && pattern[i+1] == '^' {
				b.WriteString("[^")
				i++
				classStart++
				continue
			}
		case c == ']' && inClass && b.Len() > classStart:
			inClass = false
		}
		b.WriteByte(c)
	}
	return b.String()
}
