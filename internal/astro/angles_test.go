package astro

import (
	"math"
	"testing"
)

func TestAngularSeparation(t *testing.T) {
	tests := []struct {
		name      string
		ra1, dec1 float64
		ra2, dec2 float64
		want      float64
		tol       float64
	}{
		{"same point", 100, 30, 100, 30, 0, 1e-9},
		{"quarter turn on equator", 0, 0, 90, 0, 90, 1e-9},
		{"opposite on equator", 0, 0, 180, 0, 180, 1e-9},
		{"pole to equator", 0, 90, 0, 0, 90, 1e-9},
		{"pole to pole", 0, 90, 0, -90, 180, 1e-9},
		{"one degree of RA at dec 30", 100, 30, 101, 30, 0.866, 0.01},
		{"wraps through RA 0", 359, 0, 1, 0, 2, 1e-9},
		// Betelgeuse to Rigel, about 18.6 degrees.
		{"Orion shoulders to foot", 88.7929, 7.4071, 78.6345, -8.2016, 18.6, 0.1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := AngularSeparation(tt.ra1, tt.dec1, tt.ra2, tt.dec2)
			if math.Abs(got-tt.want) > tt.tol {
				t.Errorf("AngularSeparation() = %.4f, want %.4f (±%g)", got, tt.want, tt.tol)
			}
		})
	}
}

func TestAngularSpan(t *testing.T) {
	if got := AngularSpan(nil); got != 0 {
		t.Errorf("empty span = %v", got)
	}
	if got := AngularSpan([]SkyPoint{{10, 10}}); got != 0 {
		t.Errorf("single-point span = %v", got)
	}

	pts := []SkyPoint{{0, 0}, {10, 0}, {30, 0}, {20, 0}}
	if got := AngularSpan(pts); math.Abs(got-30) > 1e-9 {
		t.Errorf("span = %v, want 30", got)
	}
}
