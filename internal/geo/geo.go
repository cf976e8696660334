// Package geo provides the small amount of geometry used by discovery:
// great-circle distance, a latitude/longitude bounding box for SQL
// pre-filtering, and geohash encoding of profile locations.
package geo

import (
	"math"

	"github.com/mmcloughlin/geohash"
)

// EarthRadiusKm is the mean Earth radius used for distance calculations.
const EarthRadiusKm = 6371.0

// GeohashPrecision is the number of characters stored per profile (~150m cells).
const GeohashPrecision = 7

// Valid reports whether lat/lng are within WGS84 bounds.
func Valid(lat, lng float64) bool {
	return !math.IsNaN(lat) && !math.IsNaN(lng) &&
		lat >= -90 && lat <= 90 && lng >= -180 && lng <= 180
}

// DistanceKm returns the haversine distance between two points in kilometers.
func DistanceKm(lat1, lng1, lat2, lng2 float64) float64 {
	p1 := radians(lat1)
	p2 := radians(lat2)
	dp := radians(lat2 - lat1)
	dl := radians(lng2 - lng1)

	a := math.Sin(dp/2)*math.Sin(dp/2) +
		math.Cos(p1)*math.Cos(p2)*math.Sin(dl/2)*math.Sin(dl/2)
	return EarthRadiusKm * 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
}

// Box is an axis-aligned lat/lng rectangle.
type Box struct {
	MinLat, MaxLat float64
	MinLng, MaxLng float64
}

// BoundingBox returns a box that contains every point within radiusKm of
// (lat, lng). Near the poles the longitude span widens to the full range.
// The box does not wrap across the antimeridian; callers clamp to [-180,180].
func BoundingBox(lat, lng, radiusKm float64) Box {
	dLat := radiusKm / 111.0
	b := Box{
		MinLat: math.Max(-90, lat-dLat),
		MaxLat: math.Min(90, lat+dLat),
		MinLng: -180,
		MaxLng: 180,
	}
	cos := math.Cos(radians(lat))
	if cos > 1e-6 {
		dLng := radiusKm / (111.0 * cos)
		if dLng < 180 {
			b.MinLng = math.Max(-180, lng-dLng)
			b.MaxLng = math.Min(180, lng+dLng)
		}
	}
	return b
}

// Geohash encodes a location at GeohashPrecision.
func Geohash(lat, lng float64) string {
	return geohash.EncodeWithPrecision(lat, lng, GeohashPrecision)
}

func radians(deg float64) float64 { return deg * math.Pi / 180 }
