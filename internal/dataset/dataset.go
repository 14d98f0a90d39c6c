// Package dataset loads the static spatial reference data used by the
// location scorers: pedestrian-count observations and transit stops.
package dataset

// PedestrianCount is one pedestrian-count observation point. Readings maps a
// counting period (e.g. "may07_am") to the people counted in it.
type PedestrianCount struct {
	Name      string             `json:"name"`
	Region    string             `json:"region"`
	Latitude  float64            `json:"latitude"`
	Longitude float64            `json:"longitude"`
	Readings  map[string]float64 `json:"readings"`
}

type TransitStop struct {
	Name      string  `json:"name"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Routes    string  `json:"routes"`
}

// Datasets is loaded once at startup and shared read-only afterwards.
type Datasets struct {
	Pedestrian []PedestrianCount
	Transit    []TransitStop
}
