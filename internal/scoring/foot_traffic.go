package scoring

import (
	"math"

	"github.com/MikeSquared-Agency/Vantage/internal/dataset"
	"github.com/MikeSquared-Agency/Vantage/internal/geo"
)

// FootTrafficRadiusMiles bounds which pedestrian observations count toward a site.
const FootTrafficRadiusMiles = 0.25

type NearbyLocation struct {
	Name     string  `json:"name"`
	Distance float64 `json:"distance"`
	AvgCount float64 `json:"avg_count"`
	Region   string  `json:"region"`
}

type FootTrafficResult struct {
	Score              int              `json:"score"`
	NearbyLocations    []NearbyLocation `json:"nearby_locations"`
	AveragePedestrians float64          `json:"average_pedestrians"`
	Count              int              `json:"count"`
}

// ScoreFootTraffic averages the pedestrian counts observed within
// FootTrafficRadiusMiles of the site and maps the result to 0-100.
// Observations with no usable reading are ignored.
func ScoreFootTraffic(lat, lng float64, observations []dataset.PedestrianCount) FootTrafficResult {
	result := FootTrafficResult{NearbyLocations: []NearbyLocation{}}

	total := 0.0
	for _, obs := range observations {
		dist, ok := geo.Within(lat, lng, obs.Latitude, obs.Longitude, FootTrafficRadiusMiles)
		if !ok {
			continue
		}
		avg, ok := averageReadings(obs.Readings)
		if !ok {
			continue
		}
		total += avg
		result.NearbyLocations = append(result.NearbyLocations, NearbyLocation{
			Name:     obs.Name,
			Distance: roundTo(dist, 2),
			AvgCount: roundTo(avg, 1),
			Region:   obs.Region,
		})
	}

	result.Count = len(result.NearbyLocations)
	if result.Count == 0 {
		return result
	}
	overall := total / float64(result.Count)
	result.AveragePedestrians = roundTo(overall, 1)
	result.Score = FootTrafficScore(overall)
	return result
}

// averageReadings returns the mean of the positive readings.
func averageReadings(readings map[string]float64) (float64, bool) {
	sum, n := 0.0, 0
	for _, v := range readings {
		if v <= 0 || math.IsNaN(v) || math.IsInf(v, 0) {
			continue
		}
		sum += v
		n++
	}
	if n == 0 {
		return 0, false
	}
	return sum / float64(n), true
}

// FootTrafficScore maps an average pedestrian count onto 0-100 using a
// piecewise-linear table: 0-1000 → 0-40, 1000-3000 → 40-70,
// 3000-5000 → 70-90, and at most 10 more points above 5000.
func FootTrafficScore(avg float64) int {
	var s float64
	switch {
	case avg <= 0:
		s = 0
	case avg <= 1000:
		s = avg / 1000 * 40
	case avg <= 3000:
		s = 40 + (avg-1000)/2000*30
	case avg <= 5000:
		s = 70 + (avg-3000)/2000*20
	default:
		s = 90 + math.Min(10, (avg-5000)/5000*10)
	}
	return clampScore(int(math.Round(s)))
}
