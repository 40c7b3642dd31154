// Package matching scores prospects against property listings.
package matching

import (
	"math"
	"sort"
	"strings"

	"github.com/Ayman-Nadim/SmartAqar-Full-Stack/internal/models"
)

const (
	WeightBudget   = 40
	WeightType     = 30
	WeightLocation = 20
	WeightBedrooms = 10

	// Threshold is the minimum score for a pair to count as a match.
	Threshold = 50
)

type Match struct {
	ID       string           `json:"id"`
	Prospect *models.Prospect `json:"prospect"`
	Property *models.Property `json:"property"`
	Score    int              `json:"score"`
}

// Score returns the compatibility of a property with a prospect's preferences.
// The result is always a multiple of ten between 0 and 100.
func Score(prospect *models.Prospect, property *models.Property) int {
	prefs := prospect.Preferences
	score := 0

	if InBudget(prefs.Budget, property.Price) {
		score += WeightBudget
	}
	if wantsType(prefs.PropertyTypes, property.Type) {
		score += WeightType
	}
	if inLocations(prefs.Locations, property.Location) {
		score += WeightLocation
	}
	if property.Bedrooms >= prefs.Bedrooms {
		score += WeightBedrooms
	}
	return score
}

// InBudget treats a zero maximum as unbounded.
func InBudget(budget models.Range, price float64) bool {
	max := budget.Max
	if max <= 0 {
		max = math.Inf(1)
	}
	return price >= budget.Min && price <= max
}

func wantsType(types []string, t string) bool {
	for _, want := range types {
		if want == t {
			return true
		}
	}
	return false
}

func inLocations(locations []string, location string) bool {
	location = strings.ToLower(location)
	for _, loc := range locations {
		if strings.Contains(location, strings.ToLower(loc)) {
			return true
		}
	}
	return false
}

// FindMatches scores every prospect/property pair and keeps those at or above
// Threshold, best first. Pairs with equal scores keep prospect-major input order.
func FindMatches(prospects []models.Prospect, properties []models.Property) []Match {
	matches := make([]Match, 0)
	for i := range prospects {
		prospect := &prospects[i]
		for j := range properties {
			property := &properties[j]
			score := Score(prospect, property)
			if score < Threshold {
				continue
			}
			matches = append(matches, Match{
				ID:       prospect.ID.Hex() + "-" + property.ID.Hex(),
				Prospect: prospect,
				Property: property,
				Score:    score,
			})
		}
	}

	sort.SliceStable(matches, func(a, b int) bool {
		return matches[a].Score > matches[b].Score
	})
	return matches
}

// ForProspect returns the matches of one prospect, preserving order.
func ForProspect(matches []Match, prospect *models.Prospect) []Match {
	var out []Match
	for _, m := range matches {
		if m.Prospect.ID == prospect.ID {
			out = append(out, m)
		}
	}
	return out
}

// Summary is shown next to the match list.
type Summary struct {
	TotalMatches       int     `json:"totalMatches"`
	ProspectsWithMatch int     `json:"prospectsWithMatch"`
	AverageScore       float64 `json:"averageScore"`
	PerfectMatches     int     `json:"perfectMatches"`
}

func Summarize(matches []Match) Summary {
	s := Summary{TotalMatches: len(matches)}
	if len(matches) == 0 {
		return s
	}
	seen := make(map[string]bool)
	total := 0
	for _, m := range matches {
		total += m.Score
		if m.Score == 100 {
			s.PerfectMatches++
		}
		key := m.Prospect.ID.Hex()
		if !seen[key] {
			seen[key] = true
			s.ProspectsWithMatch++
		}
	}
	s.AverageScore = math.Round(float64(total)/float64(len(matches))*10) / 10
	return s
}
