package utils

import "math"

// EarthRadiusMeters is the mean earth radius used for great-circle distances.
const EarthRadiusMeters = 6371000

// CalculateHaversineDistance returns the great-circle distance between two points in meters.
func CalculateHaversineDistance(lat1, lon1, lat2, lon2 float64) float64 {
	dLat := (lat2 - lat1) * (math.Pi / 180.0)
	dLon := (lon2 - lon1) * (math.Pi / 180.0)

	lat1Rad := lat1 * (math.Pi / 180.0)
	lat2Rad := lat2 * (math.Pi / 180.0)

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Sin(dLon/2)*math.Sin(dLon/2)*math.Cos(lat1Rad)*math.Cos(lat2Rad)

	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	return EarthRadiusMeters * c
}

// DistanceMeters is CalculateHaversineDistance truncated to whole meters.
func DistanceMeters(lat1, lon1, lat2, lon2 float64) int {
	return int(CalculateHaversineDistance(lat1, lon1, lat2, lon2))
}
