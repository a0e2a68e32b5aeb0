package transform

import (
	"math"

	"github.com/pauladam316/overpass-planner/internal/errs"
)

// WGS-84 ellipsoid parameters.
const (
	wgs84A  = 6378137.0             // semi-major axis (meters)
	wgs84F  = 1.0 / 298.257223563   // flattening
	wgs84E2 = wgs84F * (2 - wgs84F) // first eccentricity squared
)

// Observer holds a ground observer's location in both geodetic and ITRF
// frames. The ITRF coordinates are precomputed once so they can be reused
// across the thousands of look-angle evaluations in one pass search.
type Observer struct {
	LatRad, LonRad, AltM float64
	ITRF                 Vec3 // meters
}

// AltAz holds topocentric look angles from observer to satellite.
type AltAz struct {
	AltitudeDeg float64 // -90..+90, positive above horizon
	AzimuthDeg  float64 // 0..360, clockwise from true north
	RangeKm     float64
}

// NewObserver creates an Observer from geodetic coordinates.
// Latitude and longitude are in degrees, altitude in meters above the
// WGS-84 ellipsoid.
func NewObserver(latDeg, lonDeg, altM float64) Observer {
	lat := latDeg * math.Pi / 180.0
	lon := lonDeg * math.Pi / 180.0

	sinLat := math.Sin(lat)
	cosLat := math.Cos(lat)
	sinLon := math.Sin(lon)
	cosLon := math.Cos(lon)

	// Radius of curvature in the prime vertical.
	N := wgs84A / math.Sqrt(1-wgs84E2*sinLat*sinLat)

	return Observer{
		LatRad: lat,
		LonRad: lon,
		AltM:   altM,
		ITRF: Vec3{
			X: (N + altM) * cosLat * cosLon,
			Y: (N + altM) * cosLat * sinLon,
			Z: (N*(1-wgs84E2) + altM) * sinLat,
		},
	}
}

// coincidentThresholdM2 is the squared-distance floor below which the
// satellite and observer are treated as coincident.
const coincidentThresholdM2 = 1e-12

// LookAngles computes topocentric altitude and azimuth from an observer to a
// satellite given in ITRF meters.
//
// The relative vector is rotated into the local ENU frame; altitude is
// atan2(up, hypot(east, north)) and azimuth atan2(east, north), normalized
// into [0, 360).
func LookAngles(obs Observer, satITRF Vec3) (AltAz, error) {
	r := satITRF.Sub(obs.ITRF)

	sinLat := math.Sin(obs.LatRad)
	cosLat := math.Cos(obs.LatRad)
	sinLon := math.Sin(obs.LonRad)
	cosLon := math.Cos(obs.LonRad)

	east := -sinLon*r.X + cosLon*r.Y
	north := -sinLat*cosLon*r.X - sinLat*sinLon*r.Y + cosLat*r.Z
	up := cosLat*cosLon*r.X + cosLat*sinLon*r.Y + sinLat*r.Z

	horizontal := math.Hypot(east, north)
	if horizontal*horizontal+up*up < coincidentThresholdM2 {
		return AltAz{}, errs.New(errs.Calculation, "satellite coincident with observer")
	}

	alt := math.Atan2(up, horizontal) * 180.0 / math.Pi

	az := math.Atan2(east, north) * 180.0 / math.Pi
	az = math.Mod(az, 360.0)
	if az < 0 {
		az += 360.0
	}

	return AltAz{
		AltitudeDeg: alt,
		AzimuthDeg:  az,
		RangeKm:     r.Norm() / 1000.0,
	}, nil
}

// GeodeticPoint holds a geodetic position (degrees, meters).
type GeodeticPoint struct {
	LatDeg, LonDeg, AltM float64
}

// ITRFToGeodetic converts an ITRF position (meters) to geodetic coordinates
// using the iterative Bowring method. Converges in 2-3 iterations for Earth
// orbits.
func ITRFToGeodetic(v Vec3) GeodeticPoint {
	lon := math.Atan2(v.Y, v.X)
	p := math.Hypot(v.X, v.Y)

	lat := math.Atan2(v.Z, p*(1-wgs84E2))
	for i := 0; i < 5; i++ {
		sinLat := math.Sin(lat)
		N := wgs84A / math.Sqrt(1-wgs84E2*sinLat*sinLat)
		lat = math.Atan2(v.Z+wgs84E2*N*sinLat, p)
	}

	sinLat := math.Sin(lat)
	cosLat := math.Cos(lat)
	N := wgs84A / math.Sqrt(1-wgs84E2*sinLat*sinLat)

	var alt float64
	if math.Abs(cosLat) > 1e-10 {
		alt = p/cosLat - N
	} else {
		alt = math.Abs(v.Z)/math.Abs(sinLat) - N*(1-wgs84E2)
	}

	return GeodeticPoint{
		LatDeg: lat * 180.0 / math.Pi,
		LonDeg: lon * 180.0 / math.Pi,
		AltM:   alt,
	}
}
