package astro

import "math"

func radToDeg(rad float64) float64 {
	return rad * 180 / math.Pi
}

// AngularSeparation returns the great-circle distance in degrees between two
// sky positions given in degrees, using the haversine formula.
func AngularSeparation(ra1, dec1, ra2, dec2 float64) float64 {
	phi1, phi2 := degToRad(dec1), degToRad(dec2)
	dPhi := phi2 - phi1
	dLambda := degToRad(ra2 - ra1)

	a := math.Sin(dPhi/2)*math.Sin(dPhi/2) +
		math.Cos(phi1)*math.Cos(phi2)*math.Sin(dLambda/2)*math.Sin(dLambda/2)
	a = math.Min(1, math.Max(0, a))

	return radToDeg(2 * math.Asin(math.Sqrt(a)))
}

// SkyPoint is a position on the celestial sphere in degrees.
type SkyPoint struct {
	RA, Dec float64
}

// AngularSpan returns the largest pairwise separation among points, in
// degrees. The renderer uses it to pick a field of view for a constellation.
// Fewer than two points span zero.
func AngularSpan(points []SkyPoint) float64 {
	span := 0.0
	for i := range points {
		for j := i + 1; j < len(points); j++ {
			span = math.Max(span, AngularSeparation(points[i].RA, points[i].Dec, points[j].RA, points[j].Dec))
		}
	}
	return span
}
