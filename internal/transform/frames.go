package transform

import (
	"math"
	"time"

	"github.com/pauladam316/overpass-planner/internal/errs"
)

// Vec3 is a Cartesian 3-vector. Units are whatever the producing function
// documents (km for TEME, meters for ITRF).
type Vec3 struct {
	X, Y, Z float64
}

// Norm returns the Euclidean length.
func (v Vec3) Norm() float64 {
	return math.Sqrt(v.X*v.X + v.Y*v.Y + v.Z*v.Z)
}

// Sub returns v − u.
func (v Vec3) Sub(u Vec3) Vec3 {
	return Vec3{v.X - u.X, v.Y - u.Y, v.Z - u.Z}
}

// Dot returns the scalar product.
func (v Vec3) Dot(u Vec3) float64 {
	return v.X*u.X + v.Y*u.Y + v.Z*u.Z
}

// Scale returns v scaled by k.
func (v Vec3) Scale(k float64) Vec3 {
	return Vec3{v.X * k, v.Y * k, v.Z * k}
}

const arcsecToRad = math.Pi / (180.0 * 3600.0)

// TEMEToITRF transforms a TEME position (km) to ITRF (meters) at UTC instant t.
//
// The rotation is GMST about Z evaluated at UT1 = UTC + ΔUT1, followed by the
// polar-motion rotation (Vallado Eq. 3-78). EOP lookup failure aborts the
// transform; there is no silent reduced-model fallback.
func TEMEToITRF(temeKm Vec3, t time.Time, eopSrc EOPProvider) (Vec3, error) {
	eop, err := eopSrc.Lookup(t)
	if err != nil {
		return Vec3{}, errs.Wrap(errs.Calculation, err)
	}

	ut1 := t.Add(time.Duration(eop.DUT1 * float64(time.Second)))
	gmst := GMST(ut1)

	// TEME → PEF: rotation about Z by GMST.
	cosG := math.Cos(gmst)
	sinG := math.Sin(gmst)
	pef := Vec3{
		X: temeKm.X*cosG + temeKm.Y*sinG,
		Y: -temeKm.X*sinG + temeKm.Y*cosG,
		Z: temeKm.Z,
	}

	// PEF → ITRF: r_ITRF = ROT2(−xp)·ROT1(−yp)·r_PEF.
	xp := eop.PolarX * arcsecToRad
	yp := eop.PolarY * arcsecToRad
	itrf := rot2(-xp, rot1(-yp, pef))

	return itrf.Scale(1000.0), nil
}

// rot1 rotates v about the X axis by angle a (radians).
func rot1(a float64, v Vec3) Vec3 {
	c, s := math.Cos(a), math.Sin(a)
	return Vec3{
		X: v.X,
		Y: c*v.Y + s*v.Z,
		Z: -s*v.Y + c*v.Z,
	}
}

// rot2 rotates v about the Y axis by angle a (radians).
func rot2(a float64, v Vec3) Vec3 {
	c, s := math.Cos(a), math.Sin(a)
	return Vec3{
		X: c*v.X - s*v.Z,
		Y: v.Y,
		Z: s*v.X + c*v.Z,
	}
}

// ValidateITRF checks that an ITRF position (meters) is physically reasonable
// for an Earth-orbiting satellite.
func ValidateITRF(pos Vec3) bool {
	if math.IsNaN(pos.X) || math.IsNaN(pos.Y) || math.IsNaN(pos.Z) {
		return false
	}
	if math.IsInf(pos.X, 0) || math.IsInf(pos.Y, 0) || math.IsInf(pos.Z, 0) {
		return false
	}

	// LEO starts just above the surface; GEO is ~42164 km. Allow a generous
	// envelope of 6200-50000 km.
	mag := pos.Norm()
	const minRadius = 6200.0 * 1000.0
	const maxRadius = 50000.0 * 1000.0
	return mag >= minRadius && mag <= maxRadius
}
