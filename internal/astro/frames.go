// Package astro provides astronomical coordinate transformations and sky math.
package astro

import (
	"math"
)

// KmPerSecPerMasYrPc converts a proper motion of 1 mas/yr seen at 1 pc
// into a transverse velocity in km/s (1 AU/yr expressed in km/s, over 1000).
const KmPerSecPerMasYrPc = 4.740470463533348e-3

// Vec3 represents a 3D vector in any reference frame.
type Vec3 struct {
	X, Y, Z float64
}

// Norm returns the magnitude of the vector.
func (v Vec3) Norm() float64 {
	return math.Sqrt(v.X*v.X + v.Y*v.Y + v.Z*v.Z)
}

// Normalized returns a unit vector in the same direction.
func (v Vec3) Normalized() Vec3 {
	n := v.Norm()
	if n == 0 {
		return Vec3{}
	}
	return Vec3{X: v.X / n, Y: v.Y / n, Z: v.Z / n}
}

// Scale returns the vector scaled by a factor.
func (v Vec3) Scale(s float64) Vec3 {
	return Vec3{X: v.X * s, Y: v.Y * s, Z: v.Z * s}
}

// Add returns the sum of two vectors.
func (v Vec3) Add(u Vec3) Vec3 {
	return Vec3{X: v.X + u.X, Y: v.Y + u.Y, Z: v.Z + u.Z}
}

// Sub returns the difference of two vectors.
func (v Vec3) Sub(u Vec3) Vec3 {
	return Vec3{X: v.X - u.X, Y: v.Y - u.Y, Z: v.Z - u.Z}
}

// Slice returns the vector as [x, y, z], the layout stored and served as JSON.
func (v Vec3) Slice() []float64 {
	return []float64{v.X, v.Y, v.Z}
}

// Vec3FromSlice is the inverse of Slice. It reports false unless s has exactly
// three elements.
func Vec3FromSlice(s []float64) (Vec3, bool) {
	if len(s) != 3 {
		return Vec3{}, false
	}
	return Vec3{X: s[0], Y: s[1], Z: s[2]}, true
}

// ICRSPosition converts ICRS right ascension and declination (degrees) and a
// distance to a Cartesian position in the same units as the distance.
//
//	x = d·cos(dec)·cos(ra)
//	y = d·cos(dec)·sin(ra)
//	z = d·sin(dec)
func ICRSPosition(raDeg, decDeg, dist float64) Vec3 {
	ra := degToRad(raDeg)
	dec := degToRad(decDeg)
	cosDec := math.Cos(dec)
	return Vec3{
		X: dist * cosDec * math.Cos(ra),
		Y: dist * cosDec * math.Sin(ra),
		Z: dist * math.Sin(dec),
	}
}

// ICRSVelocity returns the transverse velocity (km/s) implied by a proper
// motion at the given distance in parsecs. pmRA includes the cos(dec) factor.
// There is no radial term: the pipeline carries no radial velocity.
func ICRSVelocity(raDeg, decDeg, distPc, pmRA, pmDec float64) Vec3 {
	ra := degToRad(raDeg)
	dec := degToRad(decDeg)
	sinRA, cosRA := math.Sin(ra), math.Cos(ra)
	sinDec, cosDec := math.Sin(dec), math.Cos(dec)

	// Local unit vectors toward increasing RA and increasing Dec.
	eRA := Vec3{X: -sinRA, Y: cosRA, Z: 0}
	eDec := Vec3{X: -sinDec * cosRA, Y: -sinDec * sinRA, Z: cosDec}

	k := KmPerSecPerMasYrPc * distPc
	return eRA.Scale(k * pmRA).Add(eDec.Scale(k * pmDec))
}

// ToRenderFrame maps an ICRS vector into the renderer's frame, where the
// up axis is celestial north: (x, y, z) -> (x, z, -y). The result is still
// right-handed.
func ToRenderFrame(v Vec3) Vec3 {
	return Vec3{X: v.X, Y: v.Z, Z: -v.Y}
}

// ToCartesian computes the render-frame position (parsecs) and transverse
// velocity (km/s) of a star. Callers must pass ra in [0,360), dec in
// [-90,90] and a positive distance.
func ToCartesian(raDeg, decDeg, distPc, pmRA, pmDec float64) (pos, vel Vec3) {
	pos = ToRenderFrame(ICRSPosition(raDeg, decDeg, distPc))
	vel = ToRenderFrame(ICRSVelocity(raDeg, decDeg, distPc, pmRA, pmDec))
	return pos, vel
}

// Centroid returns the mean of the given positions.
func Centroid(points []Vec3) Vec3 {
	if len(points) == 0 {
		return Vec3{}
	}
	var sum Vec3
	for _, p := range points {
		sum = sum.Add(p)
	}
	return sum.Scale(1 / float64(len(points)))
}

// ProjectedCentroid returns the mean of the unit directions to the given
// positions, i.e. where the group sits on the celestial sphere regardless of
// how far away each member is.
func ProjectedCentroid(points []Vec3) Vec3 {
	if len(points) == 0 {
		return Vec3{}
	}
	var sum Vec3
	for _, p := range points {
		sum = sum.Add(p.Normalized())
	}
	return sum.Scale(1 / float64(len(points)))
}
