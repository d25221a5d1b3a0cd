// Package matching scores a tenant's property inventory against a lead's
// collected preferences and returns the best candidates.
package matching

import (
	"fmt"
	"sort"
	"strings"

	"imobzap_backend/internal/conversation"
	"imobzap_backend/internal/properties"
)

// Weights per scoring dimension. The sum of the base dimensions is 100; the
// bathroom and area bonuses can push a near-perfect fit above a plain one.
const (
	weightPrice        = 50
	weightNeighborhood = 30
	weightBedrooms     = 20
	bonusBathrooms     = 5
	bonusArea          = 5

	maxResults = 3
)

// Match is one scored property with the reasons behind the score.
type Match struct {
	Property properties.Property
	Score    int
	Reasons  []string
}

// Engine ranks eligible properties for a lead.
type Engine struct{}

func NewEngine() *Engine {
	return &Engine{}
}

// Rank filters the inventory down to eligible properties, scores each one and
// returns at most three matches ordered by descending score. Ties break on
// most recently updated, then on ID so the order is deterministic.
func (e *Engine) Rank(lead conversation.Lead, inventory []properties.Property) []Match {
	var matches []Match
	for _, p := range inventory {
		if !eligible(lead, p) {
			continue
		}
		matches = append(matches, score(lead, p))
	}

	sort.Slice(matches, func(i, j int) bool {
		a, b := matches[i], matches[j]
		if a.Score != b.Score {
			return a.Score > b.Score
		}
		if !a.Property.UpdatedAt.Equal(b.Property.UpdatedAt) {
			return a.Property.UpdatedAt.After(b.Property.UpdatedAt)
		}
		return a.Property.ID.String() < b.Property.ID.String()
	})

	if len(matches) > maxResults {
		matches = matches[:maxResults]
	}
	return matches
}

// eligible applies the hard filters. A property must belong to the lead's
// tenant, overlap the lead's budget window when one is known, and meet the
// lead's minimum bedroom count when one is known.
func eligible(lead conversation.Lead, p properties.Property) bool {
	if p.TenantID != lead.TenantID {
		return false
	}
	if lead.BudgetMax > 0 && p.Price > lead.BudgetMax {
		return false
	}
	if lead.BudgetMin > 0 && p.Price < lead.BudgetMin {
		return false
	}
	if lead.BedroomCount > 0 && p.BedroomCount < lead.BedroomCount {
		return false
	}
	return true
}

func score(lead conversation.Lead, p properties.Property) Match {
	m := Match{Property: p}

	m.Score += priceScore(lead, &m.Reasons)

	if lead.Neighborhood != "" && strings.EqualFold(p.Neighborhood, lead.Neighborhood) {
		m.Score += weightNeighborhood
		m.Reasons = append(m.Reasons, fmt.Sprintf("fica no bairro %s", p.Neighborhood))
	}

	if lead.BedroomCount > 0 {
		if p.BedroomCount == lead.BedroomCount {
			m.Score += weightBedrooms
			m.Reasons = append(m.Reasons, fmt.Sprintf("tem os %d quartos que você procura", p.BedroomCount))
		} else if p.BedroomCount > lead.BedroomCount {
			m.Score += weightBedrooms / 2
			m.Reasons = append(m.Reasons, fmt.Sprintf("tem %d quartos, um a mais de folga", p.BedroomCount))
		}
	}

	if p.BathroomCount >= 2 {
		m.Score += bonusBathrooms
	}
	if p.AreaTotal >= 100 {
		m.Score += bonusArea
		m.Reasons = append(m.Reasons, fmt.Sprintf("%.0f m² de área total", p.AreaTotal))
	}

	return m
}

// priceScore gives full weight when the lead stated a budget, since eligible
// properties already sit inside the window, and half weight otherwise.
func priceScore(lead conversation.Lead, reasons *[]string) int {
	if !lead.HasBudget() {
		return weightPrice / 2
	}
	*reasons = append(*reasons, "dentro do seu orçamento")
	return weightPrice
}
