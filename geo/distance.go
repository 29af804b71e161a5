package geo

import "math"

// EarthRadiusKm is the IUGG mean Earth radius.
const EarthRadiusKm = 6371.0088

// Haversine returns the great-circle distance between a and b in kilometers.
func Haversine(a, b GeoPoint) (float64, error) {
	if !a.Valid() {
		return 0, &InvalidCoordinateError{Lat: a.Lat, Lon: a.Lon}
	}
	if !b.Valid() {
		return 0, &InvalidCoordinateError{Lat: b.Lat, Lon: b.Lon}
	}

	lat1 := a.Lat * math.Pi / 180
	lat2 := b.Lat * math.Pi / 180
	dlat := (b.Lat - a.Lat) * math.Pi / 180
	dlon := (b.Lon - a.Lon) * math.Pi / 180

	sinLat := math.Sin(dlat / 2)
	sinLon := math.Sin(dlon / 2)
	h := sinLat*sinLat + math.Cos(lat1)*math.Cos(lat2)*sinLon*sinLon

	// Floating point can push h a hair outside [0,1] for antipodal or
	// identical points, which would take Asin out of its domain.
	root := math.Sqrt(h)
	if root > 1 {
		root = 1
	} else if root < -1 {
		root = -1
	}

	return 2 * EarthRadiusKm * math.Asin(root), nil
}
