package geo

import (
	"math"
	"testing"
	"time"
)

func TestMileConversions(t *testing.T) {
	if got := MilesToLat(69.0); math.Abs(got-1.0) > 1e-9 {
		t.Errorf("Expected 69 miles = 1 degree latitude, got %f", got)
	}
	if got := MilesToLon(54.6); math.Abs(got-1.0) > 1e-9 {
		t.Errorf("Expected 54.6 miles = 1 degree longitude, got %f", got)
	}
}

func TestVectorFromHeadingSpeed(t *testing.T) {
	t.Run("North is all X", func(t *testing.T) {
		v := VectorFromHeadingSpeed(0, 100)
		if math.Abs(v.X-100) > 1e-9 || math.Abs(v.Y) > 1e-9 {
			t.Errorf("Expected (100, 0), got (%f, %f)", v.X, v.Y)
		}
	})

	t.Run("East is all Y", func(t *testing.T) {
		v := VectorFromHeadingSpeed(90, 100)
		if math.Abs(v.X) > 1e-6 || math.Abs(v.Y-100) > 1e-6 {
			t.Errorf("Expected (0, 100), got (%f, %f)", v.X, v.Y)
		}
	})

	t.Run("South reverses sign", func(t *testing.T) {
		v := VectorFromHeadingSpeed(180, 100)
		if v.X > -99.9 {
			t.Errorf("Expected X near -100, got %f", v.X)
		}
	})
}

func TestBoundsFromRadius(t *testing.T) {
	center := LatLon{Lat: 40.0, Lon: -74.0}
	b := BoundsFromRadius(center, 30)

	if b.Lat1 <= b.Lat2 {
		t.Errorf("Expected Lat1 > Lat2, got %f <= %f", b.Lat1, b.Lat2)
	}
	if b.Lon1 >= b.Lon2 {
		t.Errorf("Expected Lon1 < Lon2, got %f >= %f", b.Lon1, b.Lon2)
	}

	wantLat := 30.0 / 69.0
	if math.Abs((b.Lat1-center.Lat)-wantLat) > 1e-9 {
		t.Errorf("Expected latitude offset %f, got %f", wantLat, b.Lat1-center.Lat)
	}

	if !b.Contains(center) {
		t.Error("Expected bounds to contain their own center")
	}
	if b.Contains(LatLon{Lat: 45.0, Lon: -74.0}) {
		t.Error("Expected point outside radius to be excluded")
	}
}

func TestInterpolator(t *testing.T) {
	t.Run("Returns the fix immediately after construction", func(t *testing.T) {
		ip := NewInterpolator(40.0, -74.0, 90, 360)

		pos := ip.Get()
		if math.Abs(pos.Lat-40.0) > 1e-6 || math.Abs(pos.Lon-(-74.0)) > 1e-6 {
			t.Errorf("Expected (40, -74) at delta 0, got (%f, %f)", pos.Lat, pos.Lon)
		}
	})

	t.Run("GetNoUpdate does not advance", func(t *testing.T) {
		ip := NewInterpolator(40.0, -74.0, 90, 360)
		first := ip.Get()

		pos := ip.GetNoUpdate()
		if pos != first {
			t.Errorf("Expected cached position %v, got %v", first, pos)
		}
	})

	t.Run("Eastbound flight moves east", func(t *testing.T) {
		ip := NewInterpolator(40.0, -74.0, 90, 360)
		// Backdate the fix by 5 seconds rather than sleeping.
		ip.fixedAt = ip.fixedAt.Add(-5 * time.Second)

		pos := ip.Get()
		if pos.Lon <= -74.0 {
			t.Errorf("Expected longitude east of -74.0, got %f", pos.Lon)
		}
		// 360 kt east for 5 s covers 0.5 mi = 0.5/54.6 degrees.
		want := -74.0 + 0.5/54.6
		if math.Abs(pos.Lon-want) > 1e-4 {
			t.Errorf("Expected longitude ~%f, got %f", want, pos.Lon)
		}
		if math.Abs(pos.Lat-40.0) > 1e-6 {
			t.Errorf("Expected latitude unchanged, got %f", pos.Lat)
		}
	})

	t.Run("Zero value never extrapolates", func(t *testing.T) {
		var ip Interpolator
		if ip.Valid() {
			t.Error("Expected zero-value interpolator to be invalid")
		}

		pos := ip.Get()
		if pos.Lat != 0 || pos.Lon != 0 {
			t.Errorf("Expected (0, 0) from invalid interpolator, got %v", pos)
		}
	})
}
