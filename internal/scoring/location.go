package scoring

import (
	"math"

	"github.com/MikeSquared-Agency/Vantage/internal/dataset"
)

type LocationBreakdown struct {
	FootTraffic   FootTrafficResult `json:"foot_traffic"`
	TransitAccess TransitResult     `json:"transit_access"`
}

type LocationResult struct {
	Score      int               `json:"score"`
	Confidence Confidence        `json:"confidence"`
	Breakdown  LocationBreakdown `json:"breakdown"`
}

// ScoreLocation combines foot traffic and transit access. Confidence reflects
// how many of the two scorers found any data near the site.
func ScoreLocation(lat, lng float64, ds *dataset.Datasets, w LocationWeights) LocationResult {
	if ds == nil {
		ds = &dataset.Datasets{}
	}
	ft := ScoreFootTraffic(lat, lng, ds.Pedestrian)
	tr := ScoreTransit(lat, lng, ds.Transit)

	total := float64(ft.Score)*w.FootTraffic + float64(tr.Score)*w.Transit

	contributing := 0
	if ft.Count > 0 {
		contributing++
	}
	if tr.Count > 0 {
		contributing++
	}

	return LocationResult{
		Score:      clampScore(int(math.Round(total))),
		Confidence: confidenceFromContributors(contributing),
		Breakdown:  LocationBreakdown{FootTraffic: ft, TransitAccess: tr},
	}
}

func confidenceFromContributors(n int) Confidence {
	switch {
	case n >= 2:
		return ConfidenceHigh
	case n == 1:
		return ConfidenceMedium
	default:
		return ConfidenceLow
	}
}
