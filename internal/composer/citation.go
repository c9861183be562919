package composer

import (
	"regexp"
	"strings"
)

// Violation records one line of generated output that ends in neither a
// citation tag nor the not-available marker.
type Violation struct {
	// Line is the 1-based line number in the generated body.
	Line int
	// Text is the offending line, trimmed.
	Text string
}

// notAvailableMarker is the literal a sentence may end with when no retrieved
// chunk supports the claim.
const notAvailableMarker = "(Information not available in repository)"

// citationTagRe matches a provenance tag at the end of a line, optionally
// followed by trailing sentence punctuation.
var citationTagRe = regexp.MustCompile(`\[source: [^\]\s]+#\d+/\d+\][.!?]?$`)

// CheckCitations performs the structural citation check on a generated
// section body: every prose line must end with exactly one citation tag or
// the not-available marker. Headings, table rows, code fences and their
// contents, Mermaid diagrams, horizontal rules, and blank lines are exempt.
//
// The check is advisory. Callers flag outputs with violations; they never
// reject them.
func CheckCitations(body string) []Violation {
	var violations []Violation
	inFence := false

	for i, raw := range strings.Split(body, "\n") {
		line := strings.TrimSpace(raw)

		if strings.HasPrefix(line, "```") || strings.HasPrefix(line, "~~~") {
			inFence = !inFence
			continue
		}
		if inFence || exemptLine(line) {
			continue
		}

		if citationTagRe.MatchString(line) || strings.HasSuffix(line, notAvailableMarker) {
			continue
		}
		violations = append(violations, Violation{Line: i + 1, Text: line})
	}
	return violations
}

// exemptLine reports whether a line is structural Markdown rather than prose
// and therefore not subject to the citation contract.
func exemptLine(line string) bool {
	if line == "" {
		return true
	}
	switch {
	case strings.HasPrefix(line, "#"): // heading
		return true
	case strings.HasPrefix(line, "|"): // table row or separator
		return true
	case strings.HasPrefix(line, "---") || strings.HasPrefix(line, "***"): // rule
		return true
	case strings.HasPrefix(line, "!["): // image
		return true
	}
	// Bare list markers with no sentence content ("-", "*", "1.").
	trimmed := strings.TrimLeft(line, "-*+ ")
	return trimmed == ""
}
