package geospatial

import (
	"math"

	"github.com/mirage-hunt/mirage/internal/core/domain"
)

// EarthRadiusMeters is the mean Earth radius of the spherical approximation.
const EarthRadiusMeters = 6371000.0

// DistanceMeters returns the great-circle distance between a and b using the
// haversine formula.
func DistanceMeters(a, b domain.GeoPoint) float64 {
	dLat := toRad(b.Lat - a.Lat)
	dLng := toRad(b.Lng - a.Lng)

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(toRad(a.Lat))*math.Cos(toRad(b.Lat))*
			math.Sin(dLng/2)*math.Sin(dLng/2)

	// cos(c) = 1 - 2h; rounding can push it just outside [-1, 1] for
	// identical or antipodal points.
	return EarthRadiusMeters * math.Acos(clamp(1-2*h, -1, 1))
}

// WithinGeofence reports whether point lies within radiusMeters of center.
func WithinGeofence(point, center domain.GeoPoint, radiusMeters float64) bool {
	return DistanceMeters(point, center) <= radiusMeters
}

// BoundingBox returns a box enclosing the circle of radiusMeters around p. It is
// a cheap pre-filter; callers still confirm with WithinGeofence.
func BoundingBox(p domain.GeoPoint, radiusMeters float64) domain.Bounds {
	angular := radiusMeters / EarthRadiusMeters
	latDelta := angular * 180 / math.Pi

	lngDelta := 180.0
	minLat, maxLat := p.Lat-latDelta, p.Lat+latDelta
	if minLat > -90 && maxLat < 90 && angular < math.Pi/2 {
		// Widest longitude offset of a spherical cap centred at p.
		if s := math.Sin(angular) / math.Cos(toRad(p.Lat)); s < 1 {
			lngDelta = math.Asin(s) * 180 / math.Pi
		}
	}

	return domain.Bounds{
		MinLat: math.Max(-90, minLat),
		MinLng: p.Lng - lngDelta,
		MaxLat: math.Min(90, maxLat),
		MaxLng: p.Lng + lngDelta,
	}
}

func toRad(deg float64) float64 {
	return deg * math.Pi / 180
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
