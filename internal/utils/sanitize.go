package utils

import (
	"html"
	"regexp"
	"strings"
	"unicode/utf8"
)

const maxPromptChars = 2000

var controlChars = regexp.MustCompile(`[\x00-\x09\x0b-\x0c\x0e-\x1f\x7f]`)

// SanitizeForPrompt cleans external text before it goes anywhere near an LLM
// prompt: decodes HTML entities, strips control characters and bounds the
// length so a single noisy source cannot blow up prompt sizes.
func SanitizeForPrompt(text string) string {
	if text == "" {
		return ""
	}
	text = html.UnescapeString(text)
	text = controlChars.ReplaceAllString(text, "")
	if len(text) > maxPromptChars {
		text = cutOnRuneBoundary(text, maxPromptChars) + "..."
	}
	return strings.TrimSpace(text)
}

// TruncateForPost shortens text to maxChars, breaking at a word boundary
// when one exists in the back half of the text.
func TruncateForPost(text string, maxChars int) string {
	if len(text) <= maxChars {
		return text
	}
	truncated := cutOnRuneBoundary(text, maxChars-3)
	if idx := strings.LastIndex(truncated, " "); idx > maxChars/2 {
		truncated = truncated[:idx]
	}
	return truncated + "..."
}

// cutOnRuneBoundary shortens s to at most max bytes without splitting a
// multibyte rune at the cut.
func cutOnRuneBoundary(s string, max int) string {
	if len(s) <= max {
		return s
	}
	cut := max
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut]
}
