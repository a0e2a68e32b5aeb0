package passes

import "math"

// compassPoints are the 16-wind names in clockwise order from north.
var compassPoints = [...]string{
	"N", "NNE", "NE", "ENE", "E", "ESE", "SE", "SSE",
	"S", "SSW", "SW", "WSW", "W", "WNW", "NW", "NNW",
}

// CompassPoint names the 16-wind compass direction for an azimuth in
// degrees clockwise from true north.
func CompassPoint(azDeg float64) string {
	az := math.Mod(azDeg, 360.0)
	if az < 0 {
		az += 360.0
	}
	return compassPoints[int(az/22.5+0.5)%16]
}
