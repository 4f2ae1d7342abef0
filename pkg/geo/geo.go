// Package geo provides the small amount of flat-earth geometry the bridge
// needs: mile/degree conversions, radar bounds, and velocity decomposition.
//
// The conversions deliberately use fixed factors (1 degree of latitude ≈ 69
// statute miles, 1 degree of longitude ≈ 54.6 statute miles) with no
// cosine(latitude) correction. The error away from mid-latitudes is accepted;
// positions only need to be consistent between the radar bounds and the
// interpolator, not survey-grade.
package geo

import "math"

// LatLon is a geographic position in decimal degrees.
type LatLon struct {
	Lat float64
	Lon float64
}

// Bounds is the radar rectangle sent to position providers.
// Lat1/Lon1 is the north-west-ish corner, Lat2/Lon2 the opposite one,
// matching the corner ordering the FlightRadar24 feed expects.
type Bounds struct {
	Lat1 float64
	Lon1 float64
	Lat2 float64
	Lon2 float64
}

// MilesToLat converts statute miles to degrees of latitude.
func MilesToLat(miles float64) float64 {
	return miles / 69.0
}

// MilesToLon converts statute miles to degrees of longitude.
func MilesToLon(miles float64) float64 {
	return miles / 54.6
}

// Vector2D is a velocity split into north/east components.
// X is the north component, Y the east component, in the speed's units.
type Vector2D struct {
	X float64
	Y float64
}

// VectorFromHeadingSpeed decomposes a heading (degrees, 0 = north) and speed
// into north/east components.
func VectorFromHeadingSpeed(headingDeg, speed float64) Vector2D {
	rad := headingDeg * math.Pi / 180.0
	return Vector2D{
		X: math.Cos(rad) * speed,
		Y: math.Sin(rad) * speed,
	}
}

// BoundsFromRadius builds the radar rectangle around a center point with the
// given radius in statute miles.
func BoundsFromRadius(center LatLon, radiusMiles float64) Bounds {
	latOffset := MilesToLat(radiusMiles)
	lonOffset := MilesToLon(radiusMiles)

	return Bounds{
		Lat1: center.Lat + latOffset,
		Lon1: center.Lon - lonOffset,
		Lat2: center.Lat - latOffset,
		Lon2: center.Lon + lonOffset,
	}
}

// Contains reports whether a position lies inside the rectangle.
func (b Bounds) Contains(p LatLon) bool {
	return p.Lat <= b.Lat1 && p.Lat >= b.Lat2 && p.Lon >= b.Lon1 && p.Lon <= b.Lon2
}
