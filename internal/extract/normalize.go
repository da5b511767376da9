package extract

import (
	"regexp"
	"strings"
)

var (
	lineSpacePattern  = regexp.MustCompile("[\t　]+")
	multiSpacePattern = regexp.MustCompile(`\s{2,}`)
	datePunctReplacer = strings.NewReplacer("／", "/", "．", ".", "－", "-", "―", "-", "ー", "-", "：", ":")
)

// normalizeLine collapses tabs, ideographic spaces and runs of whitespace
// into single spaces and trims the result.
func normalizeLine(line string) string {
	line = lineSpacePattern.ReplaceAllString(line, " ")
	line = multiSpacePattern.ReplaceAllString(line, " ")
	return strings.TrimSpace(line)
}

// normalizeDateText converts full-width digits to half-width and maps
// full-width date punctuation to its ASCII form.
func normalizeDateText(text string) string {
	text = strings.Map(func(r rune) rune {
		if r >= '０' && r <= '９' {
			return r - 0xFEE0
		}
		return r
	}, text)
	return datePunctReplacer.Replace(text)
}

// splitLines splits text into trimmed, non-empty, space-normalized lines.
func splitLines(text string) []string {
	raw := strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n")
	lines := make([]string, 0, len(raw))
	for _, line := range raw {
		if normalized := normalizeLine(line); normalized != "" {
			lines = append(lines, normalized)
		}
	}
	return lines
}
