package utils

import (
	"regexp"
	"strings"
)

// whitespace runs, including the no-break spaces the catalog uses as digit group separators
var space = regexp.MustCompile(`[\s\x{00a0}\x{202f}\x{2009}]+`)

// CleanText removes extra whitespace and normalizes text
func CleanText(text string) string {
	text = space.ReplaceAllString(text, " ")
	return strings.TrimSpace(text)
}

// TruncateText truncates text to at most maxRunes characters, preserving word boundaries
func TruncateText(text string, maxRunes int) string {
	runes := []rune(text)
	if len(runes) <= maxRunes {
		return text
	}

	truncated := string(runes[:maxRunes])
	lastSpace := strings.LastIndex(truncated, " ")

	if lastSpace > 0 {
		truncated = truncated[:lastSpace]
	}

	return truncated + "..."
}

// ContainsFold reports whether substr is within s, ignoring case
func ContainsFold(s, substr string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(substr))
}
