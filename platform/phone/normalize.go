// Package phone provides phone number utilities.
// This is part of the platform layer and contains no business logic.
package phone

import (
	"strings"

	"github.com/nyaruka/phonenumbers"
)

const defaultRegion = "BR"

// Canonical strips messaging-provider decoration from an address and formats
// the remainder as E.164. Gateway providers prefix addresses with a channel
// tag ("whatsapp:+55..."); bridge providers use full JIDs
// ("5511999990000@s.whatsapp.net").
func Canonical(input string) string {
	trimmed := strings.TrimSpace(input)
	if trimmed == "" {
		return trimmed
	}

	if idx := strings.IndexByte(trimmed, ':'); idx >= 0 {
		trimmed = trimmed[idx+1:]
	}
	if idx := strings.IndexByte(trimmed, '@'); idx >= 0 {
		trimmed = trimmed[:idx]
	}
	if trimmed != "" && trimmed[0] != '+' && allDigits(trimmed) {
		trimmed = "+" + trimmed
	}

	return NormalizeE164(trimmed)
}

// NormalizeE164 formats a phone number to E.164. If parsing fails, it returns the trimmed input.
func NormalizeE164(input string) string {
	trimmed := strings.TrimSpace(input)
	if trimmed == "" {
		return trimmed
	}

	number, err := phonenumbers.Parse(trimmed, defaultRegion)
	if err != nil {
		return trimmed
	}

	if !phonenumbers.IsValidNumber(number) {
		return trimmed
	}

	return phonenumbers.Format(number, phonenumbers.E164)
}

func allDigits(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}
