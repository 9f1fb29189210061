package document

import (
	"strings"
	"unicode"
)

var abbreviations = map[string]bool{
	"mr.": true, "mrs.": true, "ms.": true, "dr.": true, "prof.": true, "st.": true,
	"vs.": true, "etc.": true, "e.g.": true, "i.e.": true, "cf.": true, "no.": true,
	"jr.": true, "sr.": true, "inc.": true, "ltd.": true, "co.": true, "approx.": true,
	"z.b.": true, "bzw.": true, "usw.": true,
}

// SplitSentences breaks text into trimmed sentences. Sentences end after
// 。！？ and newlines, and after . ! ? when followed by whitespace, unless
// the word before the period is a known abbreviation or a single letter.
func SplitSentences(text string) []string {
	var out []string
	runes := []rune(text)
	start := 0
	emit := func(end int) {
		if s := strings.TrimSpace(string(runes[start:end])); s != "" {
			out = append(out, s)
		}
		start = end
	}
	for i, r := range runes {
		switch r {
		case '。', '！', '？', '\n':
			emit(i + 1)
		case '.', '!', '?':
			if i+1 < len(runes) && !unicode.IsSpace(runes[i+1]) {
				continue
			}
			if r == '.' && abbreviated(runes[start:i+1]) {
				continue
			}
			emit(i + 1)
		}
	}
	emit(len(runes))
	return out
}

func abbreviated(sentence []rune) bool {
	i := len(sentence) - 1
	for i > 0 && !unicode.IsSpace(sentence[i-1]) {
		i--
	}
	word := strings.ToLower(string(sentence[i:]))
	if abbreviations[word] {
		return true
	}
	// initials such as "J." in "J. R. R. Tolkien"
	w := []rune(word)
	return len(w) == 2 && unicode.IsLetter(w[0])
}
