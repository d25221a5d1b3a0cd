package extract

import (
	"regexp"
	"strconv"
	"strings"
)

// BudgetRange is a parsed budget. Min is zero for "up to X" phrasings.
type BudgetRange struct {
	Min int64
	Max int64
}

// money token: digits with optional thousand/decimal separators, optionally
// followed by a scale word ("mil", "milhão", "milhões").
const moneyToken = `(?:r\$\s*)?([\d][\d.,]*)\s*(mil(?:h[oõ]es|h[aã]o)?)?`

var (
	betweenPattern = regexp.MustCompile(`(?i)entre\s+` + moneyToken + `\s+e\s+` + moneyToken)
	upToPattern    = regexp.MustCompile(`(?i)(?:at[eé]|no\s+m[aá]ximo|m[aá]ximo\s+de)\s+` + moneyToken)
)

// Budget extracts a budget range from phrasings like "entre 300 mil e 500
// mil" or "até 1 milhão". Returns no match when no money phrase is present.
func Budget(text string) (BudgetRange, bool) {
	if m := betweenPattern.FindStringSubmatch(text); m != nil {
		min, okMin := parseMoney(m[1], m[2])
		max, okMax := parseMoney(m[3], m[4])
		if okMin && okMax && min <= max {
			return BudgetRange{Min: min, Max: max}, true
		}
	}

	if m := upToPattern.FindStringSubmatch(text); m != nil {
		max, ok := parseMoney(m[1], m[2])
		if ok {
			return BudgetRange{Max: max}, true
		}
	}

	return BudgetRange{}, false
}

// parseMoney resolves the scale suffix first, then strips every non-numeric
// character from the amount token.
func parseMoney(amount, scale string) (int64, bool) {
	scale = strings.ToLower(scale)
	multiplier := int64(1)
	switch {
	case strings.HasPrefix(scale, "milh"):
		multiplier = 1_000_000
	case scale == "mil":
		multiplier = 1_000
	}

	// With a scale word, "1,5" means one and a half units of the scale.
	if multiplier > 1 && (strings.Contains(amount, ",") || strings.Contains(amount, ".")) {
		normalized := strings.ReplaceAll(amount, ",", ".")
		f, err := strconv.ParseFloat(normalized, 64)
		if err != nil {
			return 0, false
		}
		return int64(f * float64(multiplier)), true
	}

	digits := nonDigit.ReplaceAllString(amount, "")
	if digits == "" {
		return 0, false
	}
	n, err := strconv.ParseInt(digits, 10, 64)
	if err != nil {
		return 0, false
	}
	return n * multiplier, true
}
