package annotate

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
)

const conlluFields = 10

// ReadCoNLLU parses CoNLL-U sentences. Multiword ranges (1-2) and empty nodes
// (1.1) are skipped; the "# text =" comment becomes Sentence.Text.
func ReadCoNLLU(r io.Reader) ([]Sentence, error) {
	var (
		out     []Sentence
		cur     Sentence
		lineNo  int
		started bool
	)
	flush := func() {
		if !started {
			return
		}
		if cur.Text == "" {
			words := make([]string, len(cur.Tokens))
			for i, t := range cur.Tokens {
				words[i] = t.Text
			}
			cur.Text = joinWords(words)
		}
		out = append(out, cur)
		cur = Sentence{}
		started = false
	}

	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for sc.Scan() {
		lineNo++
		line := strings.TrimRight(sc.Text(), "\r")
		if strings.TrimSpace(line) == "" {
			flush()
			continue
		}
		if strings.HasPrefix(line, "#") {
			started = true
			if rest, ok := strings.CutPrefix(line, "# text ="); ok {
				cur.Text = strings.TrimSpace(rest)
			}
			continue
		}
		fields := strings.Split(line, "\t")
		if len(fields) != conlluFields {
			return nil, fmt.Errorf("conllu line %d: expected %d fields, got %d", lineNo, conlluFields, len(fields))
		}
		if strings.ContainsAny(fields[0], "-.") {
			continue
		}
		id, err := strconv.Atoi(fields[0])
		if err != nil {
			return nil, fmt.Errorf("conllu line %d: bad id %q: %w", lineNo, fields[0], err)
		}
		head := -1
		if h := fields[6]; h != "_" {
			n, err := strconv.Atoi(h)
			if err != nil {
				return nil, fmt.Errorf("conllu line %d: bad head %q: %w", lineNo, h, err)
			}
			head = n - 1
		}
		started = true
		cur.Tokens = append(cur.Tokens, Token{
			ID:    id - 1,
			Text:  fields[1],
			Lemma: underscoreEmpty(fields[2]),
			Pos:   underscoreEmpty(fields[3]),
			Tag:   underscoreEmpty(fields[4]),
			Head:  head,
			Dep:   underscoreEmpty(fields[7]),
		})
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("failed to read conllu: %w", err)
	}
	flush()
	return out, nil
}

func underscoreEmpty(s string) string {
	if s == "_" {
		return ""
	}
	return s
}
