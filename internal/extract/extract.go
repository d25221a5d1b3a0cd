// Package extract pulls structured lead facts out of free-form chat text.
// Every extractor is total: it returns ("", false)-style no-match results on
// ambiguous input and never panics. Callers only apply a result to a lead
// field that is still empty.
package extract

import (
	"regexp"
	"strings"
)

var (
	// 11 digits, optionally grouped as 000.000.000-00. Word-ish boundaries
	// keep longer digit runs from matching the formatted pattern.
	taxIDPattern = regexp.MustCompile(`(?:^|\D)(\d{3}[.\s]?\d{3}[.\s]?\d{3}[-.\s]?\d{2})(?:\D|$)`)

	emailPattern = regexp.MustCompile(`[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}`)

	nonDigit = regexp.MustCompile(`\D`)
)

// TaxID extracts an 11-digit Brazilian tax identifier, with separators
// stripped. Digit runs of any other length are not a match.
func TaxID(text string) (string, bool) {
	m := taxIDPattern.FindStringSubmatch(text)
	if m == nil {
		return "", false
	}
	digits := nonDigit.ReplaceAllString(m[1], "")
	if len(digits) != 11 {
		return "", false
	}
	return digits, true
}

// Email extracts the first email address, case-folded to lowercase.
func Email(text string) (string, bool) {
	m := emailPattern.FindString(text)
	if m == "" {
		return "", false
	}
	return strings.ToLower(m), true
}
