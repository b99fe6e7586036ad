package matching

import "math"

const earthRadiusKm = 6371.0

func DistanceKm(a, b GeoPoint) float64 {
	lat1 := a.Lat * math.Pi / 180.0
	lat2 := b.Lat * math.Pi / 180.0
	dLat := lat2 - lat1
	dLng := (b.Lng - a.Lng) * math.Pi / 180.0

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLng/2)*math.Sin(dLng/2)
	c := 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))
	return earthRadiusKm * c
}

var distanceBands = []struct {
	maxKm float64
	score float64
}{
	{5, 1.0},
	{10, 0.75},
	{15, 0.5},
	{20, 0.25},
}

// DistanceBandScore discretizes a distance into the 1/0.75/0.5/0.25/0 steps.
func DistanceBandScore(km float64) float64 {
	for _, b := range distanceBands {
		if km <= b.maxKm {
			return b.score
		}
	}
	return 0
}
