package scoring

import (
	"fmt"
	"math"
)

// RevenueComponent buckets breakeven months into a 0-100 component.
// A missing projection counts as neutral (50).
func RevenueComponent(rev *RevenueProjection) int {
	if rev == nil {
		return 50
	}
	switch {
	case rev.BreakevenMonths <= 6:
		return 90
	case rev.BreakevenMonths <= 12:
		return 70
	case rev.BreakevenMonths <= 18:
		return 50
	default:
		return 30
	}
}

// Composite returns the weighted overall score, or nil when the location or
// competitor result is missing.
func Composite(loc *LocationResult, comp *CompetitorResult, rev *RevenueProjection, w CompositeWeights) *int {
	if loc == nil || comp == nil {
		return nil
	}
	v := float64(loc.Score)*w.Location + float64(comp.Score)*w.Competitor + float64(RevenueComponent(rev))*w.Revenue
	overall := clampScore(int(math.Round(v)))
	return &overall
}

// Contribution is one weighted term of the composite score.
type Contribution struct {
	Name     string  `json:"name"`
	Score    int     `json:"score"`
	Weight   float64 `json:"weight"`
	Weighted float64 `json:"weighted"`
	Reason   string  `json:"reason"`
}

// Explain breaks the composite into its weighted terms.
func Explain(loc *LocationResult, comp *CompetitorResult, rev *RevenueProjection, w CompositeWeights) []Contribution {
	out := make([]Contribution, 0, 3)
	if loc != nil {
		out = append(out, Contribution{
			Name: "location", Score: loc.Score, Weight: w.Location,
			Weighted: roundTo(float64(loc.Score)*w.Location, 2),
			Reason:   "foot traffic and transit access, confidence " + string(loc.Confidence),
		})
	}
	if comp != nil {
		out = append(out, Contribution{
			Name: "competitor", Score: comp.Score, Weight: w.Competitor,
			Weighted: roundTo(float64(comp.Score)*w.Competitor, 2),
			Reason:   comp.Breakdown.GapAnalysis,
		})
	}
	rc := RevenueComponent(rev)
	reason := "no revenue projection, neutral component"
	if rev != nil {
		reason = breakevenReason(rev)
	}
	out = append(out, Contribution{
		Name: "revenue", Score: rc, Weight: w.Revenue,
		Weighted: roundTo(float64(rc)*w.Revenue, 2),
		Reason:   reason,
	})
	return out
}

func breakevenReason(rev *RevenueProjection) string {
	if !rev.Viable {
		return "not viable at projected revenue"
	}
	return fmt.Sprintf("breakeven in %d months", rev.BreakevenMonths)
}
