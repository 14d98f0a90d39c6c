package scoring

const (
	// DefaultSearchRadiusMeters is used when a request does not name a radius.
	DefaultSearchRadiusMeters = 1000
	// MaxCompetitors caps how many nearby places are considered.
	MaxCompetitors = 10
)

type Competitor struct {
	Name       string  `json:"name"`
	Rating     float64 `json:"rating"`
	Reviews    int     `json:"reviews"`
	PriceLevel int     `json:"price_level"`
	Address    string  `json:"address"`
}

type CompetitorBreakdown struct {
	Competitors       []Competitor    `json:"competitors"`
	SaturationScore   int             `json:"saturation_score"`
	SaturationInverse int             `json:"saturation_inverse"`
	GapAnalysis       string          `json:"gap_analysis"`
	CompetitorCount   int             `json:"competitor_count"`
	ConfidenceBasis   ConfidenceBasis `json:"confidence_basis"`
}

// CompetitorResult's Score is the saturation score: higher means less crowded.
type CompetitorResult struct {
	Score      int                 `json:"score"`
	Confidence Confidence          `json:"confidence"`
	Breakdown  CompetitorBreakdown `json:"breakdown"`
}

const (
	gapUnproven   = "No direct competitors — unproven market. First-mover advantage but higher risk."
	gapWeak       = "Weak competition — opportunity to win on quality and service."
	gapProven     = "Proven market with room for differentiation. Focus on unique offerings."
	gapSaturated  = "Saturated market — need strong differentiation (niche flavors, experience, pricing)."
	weakRatingCap = 4.0
)

// ScoreCompetitors scores the nearby places returned by a places lookup.
// Only the first MaxCompetitors entries are used.
func ScoreCompetitors(competitors []Competitor, radiusMeters int) CompetitorResult {
	if radiusMeters <= 0 {
		radiusMeters = DefaultSearchRadiusMeters
	}
	if len(competitors) > MaxCompetitors {
		competitors = competitors[:MaxCompetitors]
	}
	list := make([]Competitor, len(competitors))
	copy(list, competitors)

	saturation := SaturationScore(len(list))
	confidence, basis := ConfidenceFromCompetitors(list, radiusMeters)

	return CompetitorResult{
		Score:      saturation,
		Confidence: confidence,
		Breakdown: CompetitorBreakdown{
			Competitors:       list,
			SaturationScore:   saturation,
			SaturationInverse: 100 - saturation,
			GapAnalysis:       GapAnalysis(list),
			CompetitorCount:   len(list),
			ConfidenceBasis:   basis,
		},
	}
}

// SaturationScore maps the competitor count to an opportunity score.
// Fewer competitors score higher.
func SaturationScore(count int) int {
	switch {
	case count <= 0:
		return 90
	case count <= 2:
		return 70
	case count <= 5:
		return 50
	case count <= 8:
		return 30
	default:
		return 20
	}
}

// GapAnalysis picks a market-gap summary from the count and mean rating.
func GapAnalysis(competitors []Competitor) string {
	if len(competitors) == 0 {
		return gapUnproven
	}
	if len(competitors) > 3 {
		return gapSaturated
	}
	sum := 0.0
	for _, c := range competitors {
		sum += c.Rating
	}
	if sum/float64(len(competitors)) < weakRatingCap {
		return gapWeak
	}
	return gapProven
}
