// Package geo holds the geofence math used by attendance verification.
package geo

import "math"

// EarthRadiusMeters is the mean Earth radius used by the Haversine formula.
const EarthRadiusMeters = 6371000.0

// Point is a coordinate in signed decimal degrees.
type Point struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// DistanceMeters returns the great-circle distance between two coordinates using the Haversine formula.
func DistanceMeters(lat1, lon1, lat2, lon2 float64) float64 {
	dLat := toRadians(lat2 - lat1)
	dLon := toRadians(lon2 - lon1)

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(toRadians(lat1))*math.Cos(toRadians(lat2))*math.Sin(dLon/2)*math.Sin(dLon/2)
	// rounding can push a marginally above 1 for antipodal points
	a = math.Min(math.Max(a, 0), 1)

	return 2 * EarthRadiusMeters * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
}

// Distance is DistanceMeters for two points.
func Distance(a, b Point) float64 {
	return DistanceMeters(a.Latitude, a.Longitude, b.Latitude, b.Longitude)
}

// Within reports whether p lies inside the circle of radius meters centred on a, and the distance between them.
func Within(center Point, radius float64, p Point) (bool, float64) {
	d := Distance(center, p)
	return d <= radius, d
}

// OffsetNorth returns the point reached by travelling meters due north from p along the meridian.
func OffsetNorth(p Point, meters float64) Point {
	return Point{
		Latitude:  p.Latitude + meters/EarthRadiusMeters*180/math.Pi,
		Longitude: p.Longitude,
	}
}

func toRadians(deg float64) float64 {
	return deg * math.Pi / 180
}
