package extract

import (
	"regexp"
	"strconv"
)

// room-type nouns that a bedroom count precedes.
var bedroomPattern = regexp.MustCompile(`(?i)(\d{1,2})\s*(?:quartos?|dormit[oó]rios?|su[ií]tes?)`)

// Bedrooms extracts the first integer immediately preceding a room-type noun.
func Bedrooms(text string) (int, bool) {
	m := bedroomPattern.FindStringSubmatch(text)
	if m == nil {
		return 0, false
	}
	n, err := strconv.Atoi(m[1])
	if err != nil || n == 0 {
		return 0, false
	}
	return n, true
}
