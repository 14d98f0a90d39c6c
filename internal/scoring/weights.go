package scoring

import (
	"fmt"
	"math"
)

// LocationWeights splits the location sub-score between its two inputs.
// Weights must sum to 1.0 (±0.001 tolerance).
type LocationWeights struct {
	FootTraffic float64 `yaml:"foot_traffic" json:"foot_traffic"`
	Transit     float64 `yaml:"transit" json:"transit"`
}

func DefaultLocationWeights() LocationWeights {
	return LocationWeights{FootTraffic: 0.40, Transit: 0.60}
}

func (w LocationWeights) Sum() float64 { return w.FootTraffic + w.Transit }

func (w LocationWeights) Validate() error {
	return validateWeights("location", w.FootTraffic, w.Transit)
}

// CompositeWeights defines how the three sub-scores combine into the overall score.
type CompositeWeights struct {
	Location   float64 `yaml:"location" json:"location"`
	Competitor float64 `yaml:"competitor" json:"competitor"`
	Revenue    float64 `yaml:"revenue" json:"revenue"`
}

func DefaultCompositeWeights() CompositeWeights {
	return CompositeWeights{Location: 0.40, Competitor: 0.30, Revenue: 0.30}
}

func (w CompositeWeights) Sum() float64 { return w.Location + w.Competitor + w.Revenue }

func (w CompositeWeights) Validate() error {
	return validateWeights("composite", w.Location, w.Competitor, w.Revenue)
}

func validateWeights(name string, ws ...float64) error {
	sum := 0.0
	for _, v := range ws {
		if v < 0 {
			return fmt.Errorf("%s weights: negative weight: %f", name, v)
		}
		sum += v
	}
	if math.Abs(sum-1.0) > 0.001 {
		return fmt.Errorf("%s weights sum to %.4f, must sum to 1.0", name, sum)
	}
	return nil
}
