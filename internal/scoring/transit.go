package scoring

import (
	"github.com/MikeSquared-Agency/Vantage/internal/dataset"
	"github.com/MikeSquared-Agency/Vantage/internal/geo"
)

const TransitRadiusMiles = 0.5

type NearbyStation struct {
	Name     string  `json:"name"`
	Distance float64 `json:"distance"`
	Routes   string  `json:"routes"`
}

type TransitResult struct {
	Score          int             `json:"score"`
	NearbyStations []NearbyStation `json:"nearby_stations"`
	Count          int             `json:"count"`
}

// ScoreTransit counts transit stops within TransitRadiusMiles of the site.
func ScoreTransit(lat, lng float64, stops []dataset.TransitStop) TransitResult {
	result := TransitResult{NearbyStations: []NearbyStation{}}
	for _, s := range stops {
		dist, ok := geo.Within(lat, lng, s.Latitude, s.Longitude, TransitRadiusMiles)
		if !ok {
			continue
		}
		result.NearbyStations = append(result.NearbyStations, NearbyStation{
			Name:     s.Name,
			Distance: roundTo(dist, 2),
			Routes:   s.Routes,
		})
	}
	result.Count = len(result.NearbyStations)
	result.Score = TransitScore(result.Count)
	return result
}

// TransitScore is a step function of the nearby stop count.
func TransitScore(count int) int {
	switch {
	case count >= 3:
		return 100
	case count == 2:
		return 80
	case count == 1:
		return 60
	default:
		return 30
	}
}
