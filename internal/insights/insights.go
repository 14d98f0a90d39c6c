// Package insights turns a persisted analysis into short narrative insights.
package insights

import (
	"context"
	"fmt"

	"github.com/MikeSquared-Agency/Vantage/internal/scoring"
	"github.com/MikeSquared-Agency/Vantage/internal/store"
)

// MaxInsights caps how many insights a generator returns.
const MaxInsights = 5

type Type string

const (
	TypeOpportunity Type = "opportunity"
	TypeRisk        Type = "risk"
	TypeTrend       Type = "trend"
	TypeTip         Type = "tip"
)

type Insight struct {
	Type        Type   `json:"type"`
	Title       string `json:"title"`
	Description string `json:"description"`
}

type Generator interface {
	Generate(ctx context.Context, rec *store.ResultRecord) ([]Insight, error)
}

// Unavailable is returned when no generator could produce anything.
var Unavailable = Insight{
	Type:        TypeTip,
	Title:       "AI Insights Unavailable",
	Description: "The insight model is not configured. Set VANTAGE_ANTHROPIC_API_KEY to enable AI insights.",
}

// RuleGenerator derives insights from the sub-scores without calling a model.
type RuleGenerator struct{}

func (RuleGenerator) Generate(_ context.Context, rec *store.ResultRecord) ([]Insight, error) {
	if rec == nil {
		return nil, fmt.Errorf("no record")
	}
	var out []Insight

	if loc := rec.Location; loc != nil {
		ft := loc.Breakdown.FootTraffic
		tr := loc.Breakdown.TransitAccess
		switch {
		case ft.Score >= 70:
			out = append(out, Insight{TypeOpportunity, "Strong pedestrian traffic",
				fmt.Sprintf("Nearby count stations average %.0f pedestrians per period. Walk-in demand should carry the business.", ft.AveragePedestrians)})
		case ft.Count == 0:
			out = append(out, Insight{TypeRisk, "No foot traffic data",
				"No pedestrian count stations are within a quarter mile. Verify walk-by traffic in person before signing a lease."})
		case ft.Score < 40:
			out = append(out, Insight{TypeRisk, "Light foot traffic",
				fmt.Sprintf("Average pedestrian counts nearby are only %.0f. Plan for destination marketing rather than walk-ins.", ft.AveragePedestrians)})
		}
		if tr.Count >= 3 {
			out = append(out, Insight{TypeOpportunity, "Excellent transit access",
				fmt.Sprintf("%d stations are within half a mile. Commuters are an easy audience for morning and evening offers.", tr.Count)})
		} else if tr.Count == 0 {
			out = append(out, Insight{TypeRisk, "Limited transit access",
				"No stations are within half a mile. Customers will mostly arrive on foot from the immediate area or by car."})
		}
	}

	if comp := rec.Competitor; comp != nil {
		b := comp.Breakdown
		switch {
		case b.CompetitorCount == 0:
			out = append(out, Insight{TypeOpportunity, "Untapped market",
				"No direct competitors were found nearby. Being first gives you the chance to define the category locally."})
		case b.CompetitorCount >= 8:
			out = append(out, Insight{TypeRisk, "Saturated market",
				fmt.Sprintf("%d competitors operate within the search radius. Differentiate on product or experience to win share.", b.CompetitorCount)})
		default:
			out = append(out, Insight{TypeTrend, "Proven demand nearby",
				fmt.Sprintf("%d competitors show the area already supports this kind of business. %s", b.CompetitorCount, b.GapAnalysis)})
		}
	}

	if rev := rec.Revenue; rev != nil {
		if !rev.Viable || rev.BreakevenMonths >= scoring.MaxBreakevenMonths {
			out = append(out, Insight{TypeRisk, "Rent outpaces projected profit",
				fmt.Sprintf("At $%.0f per month the projected margin does not cover rent. Negotiate rent or look for a smaller space.", rec.RentEstimate)})
		} else if rev.BreakevenMonths <= 12 {
			out = append(out, Insight{TypeOpportunity, "Fast path to breakeven",
				fmt.Sprintf("The moderate scenario recovers startup costs in about %d months.", rev.BreakevenMonths)})
		}
	}

	if rec.TargetDemo != "" {
		out = append(out, Insight{TypeTip, "Design for your audience",
			fmt.Sprintf("Tailor hours, pricing and menu to %s. Check that the neighborhood mix matches before committing.", rec.TargetDemo)})
	}

	if len(out) > MaxInsights {
		out = out[:MaxInsights]
	}
	return out, nil
}
