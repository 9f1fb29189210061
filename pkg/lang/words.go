package lang

import "regexp"

var wordRE = regexp.MustCompile(`[\p{L}\p{N}]+(?:['’-][\p{L}\p{N}]+)*|[^\s\p{L}\p{N}]`)

// Words splits text into words, keeping inner apostrophes and hyphens, with
// every other non-space symbol as its own token.
func Words(text string) []string {
	return wordRE.FindAllString(text, -1)
}
