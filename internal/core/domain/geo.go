package domain

// GeoPoint represents a geographic coordinate (WGS 84, decimal degrees).
type GeoPoint struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Valid reports whether the point lies inside the latitude/longitude ranges.
func (p GeoPoint) Valid() bool {
	return p.Lat >= -90 && p.Lat <= 90 && p.Lng >= -180 && p.Lng <= 180
}

// Bounds represents a geographic bounding box.
type Bounds struct {
	MinLat float64 `json:"minLat"`
	MinLng float64 `json:"minLng"`
	MaxLat float64 `json:"maxLat"`
	MaxLng float64 `json:"maxLng"`
}

// Contains reports whether p falls inside the box. Longitudes beyond ±180
// wrap around the antimeridian.
func (b Bounds) Contains(p GeoPoint) bool {
	if p.Lat < b.MinLat || p.Lat > b.MaxLat {
		return false
	}
	if b.MaxLng-b.MinLng >= 360 {
		return true
	}
	switch {
	case b.MinLng < -180:
		return p.Lng >= b.MinLng+360 || p.Lng <= b.MaxLng
	case b.MaxLng > 180:
		return p.Lng >= b.MinLng || p.Lng <= b.MaxLng-360
	default:
		return p.Lng >= b.MinLng && p.Lng <= b.MaxLng
	}
}
