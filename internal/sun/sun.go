// Package sun implements a low-precision solar ephemeris: good to a few
// hundredths of a degree, which is far below the half-degree scale that
// matters for twilight and eclipse decisions.
package sun

import (
	"math"
	"time"

	"github.com/pauladam316/overpass-planner/internal/transform"
)

const (
	degToRad = math.Pi / 180.0
	radToDeg = 180.0 / math.Pi

	// DefaultNightThresholdDeg is the civil-twilight boundary: the observer
	// is in darkness once the sun drops 6 degrees below the horizon.
	DefaultNightThresholdDeg = -6.0

	astronomicalUnitKm = 149597870.7
	earthRadiusKm      = 6378.137
)

// solarAngles returns the sun's right ascension, declination (radians) and
// Earth-sun distance (km) at t, from the standard low-precision analytic
// series (Astronomical Almanac, page C24).
func solarAngles(t time.Time) (ra, dec, distKm float64) {
	n := transform.JulianDate(t) - 2451545.0

	meanLon := math.Mod(280.460+0.9856474*n, 360.0)
	meanAnom := math.Mod(357.528+0.9856003*n, 360.0) * degToRad

	eclipticLon := (meanLon + 1.915*math.Sin(meanAnom) + 0.020*math.Sin(2*meanAnom)) * degToRad
	obliquity := (23.439 - 0.0000004*n) * degToRad

	ra = math.Atan2(math.Cos(obliquity)*math.Sin(eclipticLon), math.Cos(eclipticLon))
	dec = math.Asin(math.Sin(obliquity) * math.Sin(eclipticLon))

	distAU := 1.00014 - 0.01671*math.Cos(meanAnom) - 0.00014*math.Cos(2*meanAnom)
	distKm = distAU * astronomicalUnitKm
	return ra, dec, distKm
}

// ElevationDeg returns the sun's elevation above the horizon in degrees for
// an observer at the given geodetic coordinates at UTC instant t.
func ElevationDeg(latDeg, lonDeg float64, t time.Time) float64 {
	ra, dec, _ := solarAngles(t)

	// Local sidereal time; the hour angle is how far the sun has rotated
	// past the observer's meridian.
	lst := transform.GMST(t) + lonDeg*degToRad
	hourAngle := lst - ra

	lat := latDeg * degToRad
	sinElev := math.Sin(lat)*math.Sin(dec) + math.Cos(lat)*math.Cos(dec)*math.Cos(hourAngle)
	return math.Asin(clamp(sinElev, -1, 1)) * radToDeg
}

// IsNight reports whether the observer is in darkness: sun elevation strictly
// below thresholdDeg (use DefaultNightThresholdDeg for civil twilight).
func IsNight(latDeg, lonDeg float64, t time.Time, thresholdDeg float64) bool {
	return ElevationDeg(latDeg, lonDeg, t) < thresholdDeg
}

// PositionTEME returns the geocentric sun position in km. The equatorial
// frame of the low-precision model is treated as TEME; the difference is
// irrelevant at eclipse-test accuracy.
func PositionTEME(t time.Time) transform.Vec3 {
	ra, dec, distKm := solarAngles(t)
	return transform.Vec3{
		X: distKm * math.Cos(dec) * math.Cos(ra),
		Y: distKm * math.Cos(dec) * math.Sin(ra),
		Z: distKm * math.Sin(dec),
	}
}

// IsSatelliteLit reports whether a satellite at the given geocentric TEME
// position (km) is in sunlight, using a cylindrical Earth-shadow model: the
// satellite is dark only when it sits behind the Earth along the sun line
// and within one Earth radius of the shadow axis.
func IsSatelliteLit(satTEMEKm, sunTEMEKm transform.Vec3) bool {
	sunDist := sunTEMEKm.Norm()
	if sunDist == 0 {
		return true
	}
	sunDir := sunTEMEKm.Scale(1.0 / sunDist)

	along := satTEMEKm.Dot(sunDir)
	if along >= 0 {
		// Sunward side of the Earth: always lit.
		return true
	}

	perp := satTEMEKm.Sub(sunDir.Scale(along)).Norm()
	return perp >= earthRadiusKm
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
