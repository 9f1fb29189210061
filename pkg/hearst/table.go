package hearst

import (
	"embed"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed rules/*.yaml
var ruleFiles embed.FS

// ErrUnknownVariant is returned for a rule table name that is not built in.
var ErrUnknownVariant = errors.New("unknown pattern variant")

// Built-in variant names.
const (
	VariantDefault      = "default"
	VariantGreedy       = "greedy"
	VariantSemiGreedy   = "semigreedy"
	VariantSameSentence = "samesentence"
	VariantJapanese     = "ja"

	extendedTable = "extended"
)

// Table is an ordered, immutable list of rules. Order decides output order only;
// every rule is tried against every sentence.
type Table struct {
	name  string
	rules []Rule
}

// NewTable returns a table over a copy of rules.
func NewTable(name string, rules ...Rule) *Table {
	return &Table{name: name, rules: append([]Rule(nil), rules...)}
}

// Name is the variant or file name of the table.
func (t *Table) Name() string { return t.name }

// Len is the number of rules.
func (t *Table) Len() int { return len(t.rules) }

// Rules returns a copy of the rule list.
func (t *Table) Rules() []Rule { return append([]Rule(nil), t.rules...) }

// Append returns a new table with rules added after the existing ones.
func (t *Table) Append(rules ...Rule) *Table {
	out := make([]Rule, 0, len(t.rules)+len(rules))
	out = append(out, t.rules...)
	out = append(out, rules...)
	return &Table{name: t.name, rules: out}
}

// Without returns a new table with every rule carrying one of labels removed.
func (t *Table) Without(labels ...string) *Table {
	drop := make(map[string]bool, len(labels))
	for _, l := range labels {
		drop[l] = true
	}
	out := make([]Rule, 0, len(t.rules))
	for _, r := range t.rules {
		if !drop[r.Label] {
			out = append(out, r)
		}
	}
	return &Table{name: t.name, rules: out}
}

// Labels lists the distinct relation labels in table order.
func (t *Table) Labels() []string {
	seen := make(map[string]bool)
	var out []string
	for _, r := range t.rules {
		if !seen[r.Label] {
			seen[r.Label] = true
			out = append(out, r.Label)
		}
	}
	return out
}

type ruleDoc struct {
	Pattern   string    `yaml:"pattern"`
	Direction Direction `yaml:"direction"`
	Label     string    `yaml:"label"`
	Groups    int       `yaml:"groups"`
}

type tableDoc struct {
	Name  string    `yaml:"name"`
	Rules []ruleDoc `yaml:"rules"`
}

// ParseTable reads a YAML rule table. Any malformed rule fails the whole table.
func ParseTable(r io.Reader) (*Table, error) {
	var doc tableDoc
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil {
		if errors.Is(err, io.EOF) {
			return NewTable(doc.Name), nil
		}
		return nil, fmt.Errorf("failed to decode rule table: %w", err)
	}
	rules := make([]Rule, 0, len(doc.Rules))
	for i, rd := range doc.Rules {
		rule, err := NewRule(rd.Pattern, rd.Direction, rd.Label, rd.Groups)
		if err != nil {
			return nil, fmt.Errorf("rule %d (%s): %w", i, rd.Label, err)
		}
		rules = append(rules, rule)
	}
	return NewTable(doc.Name, rules...), nil
}

// LoadTableFile reads a YAML rule table from disk.
func LoadTableFile(path string) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open rule table: %w", err)
	}
	defer f.Close()
	t, err := ParseTable(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return t, nil
}

func loadEmbedded(name string) (*Table, error) {
	f, err := ruleFiles.Open("rules/" + name + ".yaml")
	if err != nil {
		return nil, fmt.Errorf("%w: %q", ErrUnknownVariant, name)
	}
	defer f.Close()
	return ParseTable(f)
}

// Variant returns a built-in rule table. When extended is set the additional
// typeOf rules are appended after the variant's own rules.
func Variant(name string, extended bool) (*Table, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		name = VariantDefault
	}
	if name == extendedTable {
		return nil, fmt.Errorf("%w: %q is only available as an extension", ErrUnknownVariant, name)
	}
	t, err := loadEmbedded(name)
	if err != nil {
		return nil, err
	}
	if !extended {
		return t, nil
	}
	ext, err := loadEmbedded(extendedTable)
	if err != nil {
		return nil, err
	}
	return t.Append(ext.rules...), nil
}

// Variants lists the built-in table names.
func Variants() []string {
	entries, err := ruleFiles.ReadDir("rules")
	if err != nil {
		return nil
	}
	var names []string
	for _, e := range entries {
		name := strings.TrimSuffix(e.Name(), ".yaml")
		if name != extendedTable {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}
