package extract

import (
	"regexp"
	"strings"
)

// gazetteer of neighborhood names recognized without the "bairro" marker.
// Matching is case-insensitive substring search against the inbound text.
var neighborhoodGazetteer = []string{
	"Savassi",
	"Lourdes",
	"Funcionários",
	"Buritis",
	"Belvedere",
	"Sion",
	"Serra",
	"Anchieta",
	"Cidade Nova",
	"Castelo",
	"Pampulha",
	"Santo Agostinho",
	"Gutierrez",
	"Luxemburgo",
	"Vila da Serra",
}

var bairroPattern = regexp.MustCompile(`(?i)bairro\s+([a-zA-ZÀ-ÿ]+(?:\s+[a-zA-ZÀ-ÿ]+){0,2})`)

// Neighborhood resolves a neighborhood mention: first against the gazetteer,
// then by capturing the words following the literal "bairro".
func Neighborhood(text string) (string, bool) {
	lower := strings.ToLower(text)
	for _, name := range neighborhoodGazetteer {
		if strings.Contains(lower, strings.ToLower(name)) {
			return name, true
		}
	}

	if m := bairroPattern.FindStringSubmatch(text); m != nil {
		captured := strings.TrimSpace(m[1])
		if captured != "" {
			return captured, true
		}
	}

	return "", false
}
