package geo

import "time"

// interpolateOffset hides feed latency by holding the extrapolation clock
// back by a fixed number of seconds. Zero means positions advance from the
// moment the fix was accepted.
const interpolateOffset = 0.0

// Interpolator dead-reckons a confirmed fix forward in time using the
// aircraft's heading and ground speed at that fix.
//
// The zero value is invalid: consumers must never extrapolate from (0, 0).
// Use NewInterpolator to build one from a real fix; Valid reports whether
// the interpolator holds one.
type Interpolator struct {
	pos      LatLon
	velocity LatLon // degrees per second
	fixedAt  time.Time
	lastCall LatLon
	valid    bool
}

// NewInterpolator records a fix at the current wall-clock instant together
// with a velocity derived from heading (degrees) and ground speed (knots).
func NewInterpolator(lat, lon float64, headingDeg, groundSpeedKts int) Interpolator {
	v := VectorFromHeadingSpeed(float64(headingDeg), float64(groundSpeedKts))

	return Interpolator{
		pos: LatLon{Lat: lat, Lon: lon},
		velocity: LatLon{
			// Knots to degrees per second.
			Lat: MilesToLat(v.X) / 3600.0,
			Lon: MilesToLon(v.Y) / 3600.0,
		},
		fixedAt:  time.Now(),
		lastCall: LatLon{Lat: lat, Lon: lon},
		valid:    true,
	}
}

// Valid reports whether the interpolator was built from a real fix.
func (ip *Interpolator) Valid() bool {
	return ip.valid
}

// Get returns the position extrapolated to now and caches it.
// An invalid interpolator returns its (zero) fix without advancing.
func (ip *Interpolator) Get() LatLon {
	if !ip.valid {
		return ip.lastCall
	}

	elapsed := time.Since(ip.fixedAt).Seconds() - interpolateOffset
	if elapsed < 0 {
		elapsed = 0
	}

	ip.lastCall = LatLon{
		Lat: ip.pos.Lat + ip.velocity.Lat*elapsed,
		Lon: ip.pos.Lon + ip.velocity.Lon*elapsed,
	}
	return ip.lastCall
}

// GetNoUpdate returns the most recently computed position without advancing
// the clock. Used for aircraft on the ground or with stale data, where
// extrapolation would drift them through terminals.
func (ip *Interpolator) GetNoUpdate() LatLon {
	return ip.lastCall
}
