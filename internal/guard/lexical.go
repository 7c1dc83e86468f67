package guard

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/russross/blackfriday/v2"

	"github.com/spacesedan/postforge/internal/drafter"
)

// hypePatterns flag marketing language that should never reach a reviewer.
var hypePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\bgame[- ]?changer\b`),
	regexp.MustCompile(`(?i)\brevolutionary\b`),
	regexp.MustCompile(`(?i)\bchanges everything\b`),
	regexp.MustCompile(`(?i)\bmind[- ]?blowing\b`),
	regexp.MustCompile(`(?i)\binsane\b`),
	regexp.MustCompile(`(?i)\bunbelievable\b`),
	regexp.MustCompile(`(?i)\b10x\b`),
	regexp.MustCompile(`(?i)\b100x\b`),
	regexp.MustCompile(`(?i)\bkills? the (entire )?industry\b`),
	regexp.MustCompile(`(?i)\bdisrupts?\b`),
}

var urlPattern = regexp.MustCompile(`https?://\S+`)

// substanceIndicators approximate whether a draft says something concrete:
// a question to the reader, a number, an action verb, or a tradeoff.
var substanceIndicators = []*regexp.Regexp{
	regexp.MustCompile(`\?`),
	regexp.MustCompile(`\d`),
	regexp.MustCompile(`(?i)\b(built|shipped|released|measured|benchmarked|tested|compared|reduced|improved)\b`),
	regexp.MustCompile(`(?i)\b(tradeoff|trade-off|however|but|instead|versus|vs)\b`),
}

// LexicalCheck runs the local screens on a draft body and returns the
// issues found. An empty slice means the draft passed.
func LexicalCheck(content string) []string {
	var issues []string

	text := stripMarkdown(content)

	for _, p := range hypePatterns {
		if match := p.FindString(text); match != "" {
			issues = append(issues, fmt.Sprintf("hype language: %q", strings.ToLower(match)))
		}
	}

	if urlPattern.MatchString(text) {
		issues = append(issues, "contains a URL; links are attached separately")
	}

	n := len([]rune(text))
	if n < drafter.MinDraftLen {
		issues = append(issues, fmt.Sprintf("too short: %d chars, minimum %d", n, drafter.MinDraftLen))
	}
	if n > drafter.MaxDraftLen {
		issues = append(issues, fmt.Sprintf("too long: %d chars, maximum %d", n, drafter.MaxDraftLen))
	}

	if !hasSubstance(text) {
		issues = append(issues, "no concrete detail: add a number, question, or tradeoff")
	}

	return issues
}

func hasSubstance(text string) bool {
	for _, p := range substanceIndicators {
		if p.MatchString(text) {
			return true
		}
	}
	return false
}

// stripMarkdown renders any markdown the model slipped in and flattens the
// result to plain text.
func stripMarkdown(content string) string {
	rendered := blackfriday.Run([]byte(content))
	plain := htmlTagPattern.ReplaceAllString(string(rendered), " ")
	return strings.Join(strings.Fields(plain), " ")
}

var htmlTagPattern = regexp.MustCompile(`<[^>]*>`)
