package funnel

import (
	_ "embed"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

// Category is a keyword category relevant to stage transitions.
type Category string

const (
	CategoryHandoff     Category = "handoff"
	CategoryScheduling  Category = "scheduling"
	CategoryInterest    Category = "interest"
	CategoryLocation    Category = "location"
	CategoryPreferences Category = "preferences"
	CategoryBudget      Category = "budget"
)

// categoryPriority is the fixed tie-break order: first match wins.
var categoryPriority = []Category{
	CategoryScheduling,
	CategoryInterest,
	CategoryLocation,
	CategoryPreferences,
	CategoryBudget,
}

//go:embed keywords.yaml
var defaultKeywordsYAML []byte

// Keywords holds the keyword lists per category. Lists live as data so they
// are independently testable and overridable per deployment.
type Keywords struct {
	lists map[Category][]string
}

type keywordsDoc struct {
	Handoff     []string `yaml:"handoff"`
	Scheduling  []string `yaml:"scheduling"`
	Interest    []string `yaml:"interest"`
	Location    []string `yaml:"location"`
	Preferences []string `yaml:"preferences"`
	Budget      []string `yaml:"budget"`
}

// DefaultKeywords parses the embedded keyword lists. The embedded document is
// validated by tests, so failure here is a programming error.
func DefaultKeywords() *Keywords {
	kw, err := ParseKeywords(defaultKeywordsYAML)
	if err != nil {
		panic("funnel: embedded keywords invalid: " + err.Error())
	}
	return kw
}

// ParseKeywords loads keyword lists from a YAML document.
func ParseKeywords(data []byte) (*Keywords, error) {
	var doc keywordsDoc
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse keywords: %w", err)
	}

	lists := map[Category][]string{
		CategoryHandoff:     normalizeAll(doc.Handoff),
		CategoryScheduling:  normalizeAll(doc.Scheduling),
		CategoryInterest:    normalizeAll(doc.Interest),
		CategoryLocation:    normalizeAll(doc.Location),
		CategoryPreferences: normalizeAll(doc.Preferences),
		CategoryBudget:      normalizeAll(doc.Budget),
	}

	for _, cat := range []Category{CategoryScheduling, CategoryInterest, CategoryBudget} {
		if len(lists[cat]) == 0 {
			return nil, fmt.Errorf("parse keywords: category %q is empty", cat)
		}
	}

	return &Keywords{lists: lists}, nil
}

// Match returns the highest-priority category whose keyword list matches the
// text, or ("", false) when nothing matches. Handoff is deliberately excluded;
// use WantsHuman, which is absolute and checked before any transition.
func (k *Keywords) Match(text string) (Category, bool) {
	normalized := normalizeText(text)
	for _, cat := range categoryPriority {
		if containsAny(normalized, k.lists[cat]) {
			return cat, true
		}
	}
	return "", false
}

// Has reports whether the text matches the given category.
func (k *Keywords) Has(text string, cat Category) bool {
	return containsAny(normalizeText(text), k.lists[cat])
}

// WantsHuman reports an explicit escalation request.
func (k *Keywords) WantsHuman(text string) bool {
	return k.Has(text, CategoryHandoff)
}

func containsAny(text string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(text, kw) {
			return true
		}
	}
	return false
}

func normalizeAll(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if n := normalizeText(v); n != "" {
			out = append(out, n)
		}
	}
	return out
}

// normalizeText lowercases and strips the Portuguese diacritics that show up
// in chat text, so keyword lists can stay in unaccented form.
func normalizeText(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	replacer := strings.NewReplacer(
		"á", "a", "à", "a", "â", "a", "ã", "a",
		"é", "e", "ê", "e",
		"í", "i",
		"ó", "o", "ô", "o", "õ", "o",
		"ú", "u", "ü", "u",
		"ç", "c",
	)
	return replacer.Replace(s)
}
