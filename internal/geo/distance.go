package geo

import "math"

// EarthRadiusMiles is the mean Earth radius used by every spatial filter.
const EarthRadiusMiles = 3959.0

const metersPerMile = 1609.344

// DistanceMiles returns the great-circle distance between two points given in
// decimal degrees, using the haversine formula.
func DistanceMiles(lat1, lon1, lat2, lon2 float64) float64 {
	rlat1 := toRadians(lat1)
	rlat2 := toRadians(lat2)
	dlat := toRadians(lat2 - lat1)
	dlon := toRadians(lon2 - lon1)

	a := math.Sin(dlat/2)*math.Sin(dlat/2) + math.Cos(rlat1)*math.Cos(rlat2)*math.Sin(dlon/2)*math.Sin(dlon/2)
	c := 2 * math.Asin(math.Sqrt(a))
	return EarthRadiusMiles * c
}

// Within reports whether the point (lat2, lon2) lies within radiusMiles of
// (lat1, lon1). The boundary is inclusive.
func Within(lat1, lon1, lat2, lon2, radiusMiles float64) (float64, bool) {
	d := DistanceMiles(lat1, lon1, lat2, lon2)
	return d, d <= radiusMiles
}

func MetersToMiles(m float64) float64 { return m / metersPerMile }

func toRadians(deg float64) float64 { return deg * math.Pi / 180 }
