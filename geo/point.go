// Package geo implements the geographic primitives used by the
// geospatial index: points with geohash identity, and a distance unit
// convertible between kilometres and miles.
package geo

import (
	"math"

	"github.com/mmcloughlin/geohash"

	"github.com/cyp0633/calindex/internal/calerr"
)

// geohashPrecision is the character length used for point identity
// (cells of roughly 37 mm).
const geohashPrecision = 12

// Point is a validated lat/long pair.
type Point struct {
	Lat  float64
	Long float64
}

// NewPoint validates and builds a Point. Lat must be in [-90,90], Long in
// [-180,180].
func NewPoint(lat, long float64) (Point, error) {
	if lat < -90 || lat > 90 || long < -180 || long > 180 {
		return Point{}, calerr.New(calerr.InvalidGeoCoordinate, "latitude/longitude out of range")
	}
	return Point{Lat: lat, Long: long}, nil
}

// Geohash returns the 12-character geohash identity of p.
func (p Point) Geohash() string {
	return geohash.EncodeWithPrecision(p.Lat, p.Long, geohashPrecision)
}

// Equal reports whether p and other share the same geohash identity.
func (p Point) Equal(other Point) bool {
	return p.Geohash() == other.Geohash()
}

const earthRadiusMeters = 6371000.0

// Haversine computes the great-circle distance between a and b in meters
// and returns it as a Distance in kilometres.
func Haversine(a, b Point) Distance {
	lat1 := a.Lat * math.Pi / 180
	lat2 := b.Lat * math.Pi / 180
	dLat := (b.Lat - a.Lat) * math.Pi / 180
	dLong := (b.Long - a.Long) * math.Pi / 180

	sinDLat := math.Sin(dLat / 2)
	sinDLong := math.Sin(dLong / 2)

	h := sinDLat*sinDLat + math.Cos(lat1)*math.Cos(lat2)*sinDLong*sinDLong
	c := 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))

	meters := earthRadiusMeters * c
	return FromMeters(meters)
}
