package propagation

import (
	"fmt"
	"math"
	"strings"
	"time"

	satellite "github.com/joshuaferrara/go-satellite"

	"github.com/pauladam316/overpass-planner/internal/errs"
	"github.com/pauladam316/overpass-planner/internal/tle"
	"github.com/pauladam316/overpass-planner/internal/transform"
)

// SGP4 library choice: github.com/joshuaferrara/go-satellite
//
// Pure Go (no CGO), explicit TEME output, includes ECIToECEF for
// cross-validation in tests.
//
// Note: Propagate() takes Satellite by value so SGP4 error codes are not
// visible to the caller. We detect propagation failures by checking output
// for NaN/Inf and unreasonable position magnitudes.

// SGP4Propagator propagates a single satellite's orbit from its TLE.
type SGP4Propagator struct {
	sat     satellite.Satellite
	noradID int
}

// NewFromTLE creates a propagator from a parsed TLE record.
func NewFromTLE(t tle.TLE) (*SGP4Propagator, error) {
	return newPropagator(t.Line1, t.Line2, t.NORADID)
}

// NewFromText creates a propagator from raw three-line TLE text: a name line
// followed by the two element lines, as returned by the catalog client.
func NewFromText(text string, noradID int) (*SGP4Propagator, error) {
	var line1, line2 string
	for _, raw := range strings.Split(text, "\n") {
		line := strings.TrimSpace(raw)
		switch {
		case strings.HasPrefix(line, "1 "):
			line1 = line
		case strings.HasPrefix(line, "2 "):
			line2 = line
		}
	}
	if line1 == "" || line2 == "" {
		return nil, errs.Errorf(errs.Tle, "TLE text for NORAD %d is missing element lines", noradID)
	}
	return newPropagator(line1, line2, noradID)
}

// newPropagator pre-validates the element lines before handing them to the
// library, because go-satellite calls log.Fatal on malformed input (which
// would kill the process).
func newPropagator(line1, line2 string, noradID int) (*SGP4Propagator, error) {
	if err := validateTLELines(line1, line2); err != nil {
		return nil, errs.Errorf(errs.Tle, "invalid TLE for NORAD %d: %w", noradID, err)
	}

	sat := satellite.TLEToSat(line1, line2, satellite.GravityWGS84)
	if sat.Error != 0 {
		return nil, errs.Errorf(errs.Tle, "sgp4 init failed for NORAD %d: code=%d %s", noradID, sat.Error, sat.ErrorStr)
	}
	return &SGP4Propagator{sat: sat, noradID: noradID}, nil
}

// validateTLELines performs basic format validation on TLE element lines.
func validateTLELines(line1, line2 string) error {
	line1 = strings.TrimSpace(line1)
	line2 = strings.TrimSpace(line2)

	if len(line1) != 69 {
		return fmt.Errorf("line1 length %d, expected 69", len(line1))
	}
	if len(line2) != 69 {
		return fmt.Errorf("line2 length %d, expected 69", len(line2))
	}
	if line1[0] != '1' {
		return fmt.Errorf("line1 must start with '1', got %q", line1[0])
	}
	if line2[0] != '2' {
		return fmt.Errorf("line2 must start with '2', got %q", line2[0])
	}
	return nil
}

// PositionTEME computes the satellite position at UTC instant t.
// The result is in the TEME frame in kilometers.
func (p *SGP4Propagator) PositionTEME(t time.Time) (transform.Vec3, error) {
	t = t.UTC()
	pos, _ := satellite.Propagate(p.sat, t.Year(), int(t.Month()), t.Day(), t.Hour(), t.Minute(), t.Second())

	if math.IsNaN(pos.X) || math.IsNaN(pos.Y) || math.IsNaN(pos.Z) ||
		math.IsInf(pos.X, 0) || math.IsInf(pos.Y, 0) || math.IsInf(pos.Z, 0) {
		return transform.Vec3{}, errs.Errorf(errs.Calculation, "sgp4 propagation failed for NORAD %d: output is NaN/Inf", p.noradID)
	}

	// Sanity check: magnitude between LEO floor and beyond-GEO ceiling.
	mag := math.Sqrt(pos.X*pos.X + pos.Y*pos.Y + pos.Z*pos.Z)
	if mag < 6200.0 || mag > 50000.0 {
		return transform.Vec3{}, errs.Errorf(errs.Calculation, "sgp4 propagation failed for NORAD %d: unreasonable position magnitude %.1f km", p.noradID, mag)
	}

	return transform.Vec3{X: pos.X, Y: pos.Y, Z: pos.Z}, nil
}

// NORADID returns the catalog number the propagator was built for.
func (p *SGP4Propagator) NORADID() int {
	return p.noradID
}
