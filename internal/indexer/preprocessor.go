package indexer

import (
	"strings"
	"unicode"
)

// Normalize cleans extracted text before chunking: line endings become "\n",
// control characters other than tab and newline are removed, trailing blanks
// are trimmed from every line, and runs of blank lines collapse to one.
func Normalize(text string) string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")
	text = strings.Map(func(r rune) rune {
		if r == '\n' || r == '\t' {
			return r
		}
		if unicode.IsControl(r) || r == unicode.ReplacementChar {
			return -1
		}
		return r
	}, text)

	lines := strings.Split(text, "\n")
	var b strings.Builder
	b.Grow(len(text))
	blank := 0
	for i, line := range lines {
		line = strings.TrimRightFunc(line, unicode.IsSpace)
		if line == "" {
			blank++
			if blank > 1 {
				continue
			}
		} else {
			blank = 0
		}
		if i > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(line)
	}
	return strings.TrimSpace(b.String())
}
