package scoring

// SmallRadiusMeters is the search radius below which confidence is penalised.
const SmallRadiusMeters = 800

// ConfidenceBasis records the inputs of the data-quality score for auditing.
type ConfidenceBasis struct {
	Score           int     `json:"score"`
	CompetitorCount int     `json:"competitor_count"`
	TotalReviews    int     `json:"total_reviews"`
	RatingCoverage  float64 `json:"rating_coverage"`
	RadiusMeters    int     `json:"radius_meters"`
}

// ConfidenceFromCompetitors scores how well the places data supports the
// competitor analysis. It does not depend on the saturation score.
//
//	count:    >=5 → 40, >=3 → 25, >=1 → 10
//	reviews:  >=1000 → 40, >=300 → 25, >=50 → 10
//	coverage: >=0.7 → 20, >=0.4 → 10
//	radius < 800m: -10
func ConfidenceFromCompetitors(competitors []Competitor, radiusMeters int) (Confidence, ConfidenceBasis) {
	count := len(competitors)
	reviews, rated := 0, 0
	for _, c := range competitors {
		reviews += c.Reviews
		if c.Rating > 0 {
			rated++
		}
	}
	coverage := 0.0
	if count > 0 {
		coverage = float64(rated) / float64(count)
	}

	points := 0
	switch {
	case count >= 5:
		points += 40
	case count >= 3:
		points += 25
	case count >= 1:
		points += 10
	}
	switch {
	case reviews >= 1000:
		points += 40
	case reviews >= 300:
		points += 25
	case reviews >= 50:
		points += 10
	}
	switch {
	case coverage >= 0.7:
		points += 20
	case coverage >= 0.4:
		points += 10
	}
	if radiusMeters < SmallRadiusMeters {
		points -= 10
		if points < 0 {
			points = 0
		}
	}

	label := ConfidenceLow
	switch {
	case points >= 70:
		label = ConfidenceHigh
	case points >= 40:
		label = ConfidenceMedium
	}

	return label, ConfidenceBasis{
		Score:           points,
		CompetitorCount: count,
		TotalReviews:    reviews,
		RatingCoverage:  roundTo(coverage, 2),
		RadiusMeters:    radiusMeters,
	}
}
