package store

import (
	"sort"
	"strings"
)

// Query selects records for the results listing.
type Query struct {
	BusinessType  string
	TargetDemo    string
	MonthlyBudget float64
}

// BudgetTolerance is how far over budget a record's rent may be.
const BudgetTolerance = 1.5

var businessAliases = map[string]string{
	"boba":        "boba tea shop",
	"boba tea":    "boba tea shop",
	"tea shop":    "boba tea shop",
	"coffee":      "coffee shop",
	"cafe":        "coffee shop",
	"coffee shop": "coffee shop",
	"bakery":      "bakery",
	"baker":       "bakery",
	"bake shop":   "bakery",
}

var demoAliases = map[string]string{
	"student":             "students",
	"students":            "students",
	"young professionals": "professionals",
	"professional":        "professionals",
	"professionals":       "professionals",
	"family":              "families",
	"families":            "families",
}

func normalize(s string, aliases map[string]string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	if a, ok := aliases[s]; ok {
		return a
	}
	return s
}

// fuzzyMatch is true on an exact match, substring in either direction, or a
// shared alias bucket. An empty query matches everything.
func fuzzyMatch(value, query string, aliases map[string]string) bool {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return true
	}
	v := strings.ToLower(strings.TrimSpace(value))
	if v == "" {
		return false
	}
	if v == q || strings.Contains(v, q) || strings.Contains(q, v) {
		return true
	}
	return normalize(v, aliases) == normalize(q, aliases)
}

func BusinessMatches(recordType, query string) bool {
	return fuzzyMatch(recordType, query, businessAliases)
}

func DemoMatches(recordDemo, query string) bool {
	return fuzzyMatch(recordDemo, query, demoAliases)
}

// Filter returns the records matching q ordered by overall score, highest
// first, with unscored records last. Business type gates inclusion and rent
// above MonthlyBudget*BudgetTolerance excludes a record. If nothing passes,
// every record is returned instead. Demographic match only breaks ties.
func Filter(records []*ResultRecord, q Query) []*ResultRecord {
	var out []*ResultRecord
	for _, r := range records {
		if r == nil || !BusinessMatches(r.BusinessType, q.BusinessType) {
			continue
		}
		if q.MonthlyBudget > 0 && r.RentEstimate > q.MonthlyBudget*BudgetTolerance {
			continue
		}
		out = append(out, r)
	}
	if len(out) == 0 {
		for _, r := range records {
			if r != nil {
				out = append(out, r)
			}
		}
	}

	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		switch {
		case a.OverallScore == nil && b.OverallScore == nil:
		case a.OverallScore == nil:
			return false
		case b.OverallScore == nil:
			return true
		case *a.OverallScore != *b.OverallScore:
			return *a.OverallScore > *b.OverallScore
		}
		da, db := DemoMatches(a.TargetDemo, q.TargetDemo), DemoMatches(b.TargetDemo, q.TargetDemo)
		if da != db {
			return da
		}
		return a.ID < b.ID
	})
	return out
}
