package ocr

import "strings"

// Normalize splits text into trimmed non-empty lines, collapses runs of
// identical whitespace-separated tokens within each line, and drops a line
// equal to the one kept before it. Lines are compared after token collapse,
// so "A A\nA" yields ["A"]; this keeps Normalize idempotent:
// Normalize(strings.Join(Normalize(s), "\n")) equals Normalize(s).
func Normalize(text string) []string {
	var lines []string
	for _, raw := range strings.Split(text, "\n") {
		line := collapseTokens(raw)
		if line == "" {
			continue
		}
		if n := len(lines); n > 0 && lines[n-1] == line {
			continue
		}
		lines = append(lines, line)
	}
	return lines
}

func collapseTokens(line string) string {
	var out []string
	for _, f := range strings.Fields(line) {
		if n := len(out); n > 0 && out[n-1] == f {
			continue
		}
		out = append(out, f)
	}
	return strings.Join(out, " ")
}
