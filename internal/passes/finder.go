// Package passes finds satellite overpasses: intervals where the satellite
// is above the observer's horizon. A coarse scan locates candidate
// intervals, bisection refines the horizon crossings, and a fine sweep
// followed by a golden-section search pins down the elevation peak.
package passes

import (
	"context"
	"log/slog"
	"math"
	"time"

	"github.com/pauladam316/overpass-planner/internal/errs"
	"github.com/pauladam316/overpass-planner/internal/transform"
)

// Geometry answers the pointwise questions the finder asks about one
// satellite/observer pair. Implementations are expected to be deterministic
// in t.
type Geometry interface {
	// LookAngles returns topocentric altitude/azimuth at t.
	LookAngles(t time.Time) (transform.AltAz, error)
	// IsNight reports whether the observer is in darkness at t.
	IsNight(t time.Time) bool
	// IsLit reports whether the satellite is sunlit at t.
	IsLit(t time.Time) bool
}

// Overpass is one horizon-to-horizon pass.
type Overpass struct {
	Start    time.Time
	End      time.Time
	Midpoint time.Time
	Peak     time.Time

	MaxElevationDeg float64
	StartAzimuthDeg float64
	EndAzimuthDeg   float64
	PeakAzimuthDeg  float64

	// IsNight is true when the observer is in darkness at the start,
	// midpoint, or end of the pass. IsLit is true when the satellite is
	// sunlit at the midpoint; both together mean the pass is likely
	// visible to the naked eye.
	IsNight bool
	IsLit   bool
}

// Config tunes the search. Zero values take the defaults.
type Config struct {
	CoarseStep  time.Duration // scan step, default 60s
	RefineTol   time.Duration // crossing/peak time resolution, default 1s
	PeakWindow  time.Duration // half-width of the peak search bracket, default 30s
	PeakIterCap int           // golden-section iteration cap, default 50
}

func (c Config) withDefaults() Config {
	if c.CoarseStep <= 0 {
		c.CoarseStep = 60 * time.Second
	}
	if c.RefineTol <= 0 {
		c.RefineTol = time.Second
	}
	if c.PeakWindow <= 0 {
		c.PeakWindow = 30 * time.Second
	}
	if c.PeakIterCap <= 0 {
		c.PeakIterCap = 50
	}
	return c
}

// Finder runs the overpass search for one geometry.
type Finder struct {
	geo    Geometry
	cfg    Config
	logger *slog.Logger
}

// NewFinder creates a Finder. A nil logger falls back to slog.Default().
func NewFinder(geo Geometry, cfg Config, logger *slog.Logger) *Finder {
	if logger == nil {
		logger = slog.Default()
	}
	return &Finder{geo: geo, cfg: cfg.withDefaults(), logger: logger}
}

// Find returns all overpasses between start and start+window, ordered by
// start time. A pass still in progress at the window end is truncated to the
// window boundary. A non-positive window yields no passes.
//
// Individual failed samples during the coarse scan are skipped (logged at
// warn); a failure during crossing or peak refinement aborts the search.
func (f *Finder) Find(ctx context.Context, start time.Time, window time.Duration) ([]Overpass, error) {
	if window <= 0 {
		return nil, nil
	}
	end := start.Add(window)

	var result []Overpass

	var (
		prevT    time.Time
		prevUp   bool
		havePrev bool

		inPass bool
		riseT  time.Time
	)

	for t := start; !t.After(end); t = t.Add(f.cfg.CoarseStep) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		la, err := f.geo.LookAngles(t)
		if err != nil {
			// One bad sample does not sink the scan; the previous good
			// sample stays as the bracket edge.
			f.logger.Warn("skipping coarse sample", "time", t, "error", err)
			continue
		}
		up := la.AltitudeDeg > 0 // exactly on the horizon counts as below

		switch {
		case up && !inPass:
			if havePrev && !prevUp {
				riseT, err = f.refineCrossing(prevT, t, true)
				if err != nil {
					return nil, err
				}
			} else {
				// Above the horizon at the first usable sample: the pass
				// is already in progress when the window opens.
				riseT = t
			}
			inPass = true

		case !up && inPass:
			setT, err := f.refineCrossing(prevT, t, false)
			if err != nil {
				return nil, err
			}
			pass, err := f.buildPass(riseT, setT)
			if err != nil {
				return nil, err
			}
			result = append(result, pass)
			inPass = false
		}

		prevT, prevUp, havePrev = t, up, true
	}

	// Pass still open at the window boundary: close it at the true setting
	// time if it sets before the boundary, otherwise truncate. A rise that
	// refined to the boundary itself would be a zero-width pass; skip it.
	if inPass && riseT.Before(end) {
		setT := end
		if la, err := f.geo.LookAngles(end); err == nil && la.AltitudeDeg <= 0 {
			refined, err := f.refineCrossing(prevT, end, false)
			if err != nil {
				return nil, err
			}
			setT = refined
		}
		pass, err := f.buildPass(riseT, setT)
		if err != nil {
			return nil, err
		}
		result = append(result, pass)
	}

	return result, nil
}

// refineCrossing bisects a horizon crossing bracketed by (lo, hi) down to
// RefineTol. For a rising crossing lo is below and hi above; for a setting
// crossing the reverse. The returned instant is always on the above-horizon
// side of the crossing.
func (f *Finder) refineCrossing(lo, hi time.Time, rising bool) (time.Time, error) {
	for hi.Sub(lo) > f.cfg.RefineTol {
		mid := lo.Add(hi.Sub(lo) / 2)
		la, err := f.geo.LookAngles(mid)
		if err != nil {
			return time.Time{}, errs.Wrap(errs.Calculation, err)
		}
		if (la.AltitudeDeg > 0) == rising {
			hi = mid
		} else {
			lo = mid
		}
	}
	if rising {
		return hi, nil
	}
	return lo, nil
}

// refinePeak finds the pass's elevation maximum: a sweep at RefineTol
// resolution over the whole pass locates the best sample, then a
// golden-section search bracketed to PeakWindow around it polishes the
// estimate. The sweep keeps a narrow spike between coarse-scan samples from
// escaping the bracket.
func (f *Finder) refinePeak(rise, set time.Time) (time.Time, transform.AltAz, error) {
	bestT := rise
	bestLA, err := f.geo.LookAngles(rise)
	if err != nil {
		return time.Time{}, transform.AltAz{}, errs.Wrap(errs.Calculation, err)
	}

	eval := func(t time.Time) (float64, error) {
		la, err := f.geo.LookAngles(t)
		if err != nil {
			return 0, errs.Wrap(errs.Calculation, err)
		}
		if la.AltitudeDeg > bestLA.AltitudeDeg {
			bestT, bestLA = t, la
		}
		return la.AltitudeDeg, nil
	}

	for t := rise.Add(f.cfg.RefineTol); t.Before(set); t = t.Add(f.cfg.RefineTol) {
		if _, err := eval(t); err != nil {
			return time.Time{}, transform.AltAz{}, err
		}
	}
	if _, err := eval(set); err != nil {
		return time.Time{}, transform.AltAz{}, err
	}

	a := bestT.Add(-f.cfg.PeakWindow)
	b := bestT.Add(f.cfg.PeakWindow)
	if a.Before(rise) {
		a = rise
	}
	if b.After(set) {
		b = set
	}

	invPhi := (math.Sqrt(5) - 1) / 2

	x1 := timeLerp(a, b, 1-invPhi)
	x2 := timeLerp(a, b, invPhi)
	f1, err := eval(x1)
	if err != nil {
		return time.Time{}, transform.AltAz{}, err
	}
	f2, err := eval(x2)
	if err != nil {
		return time.Time{}, transform.AltAz{}, err
	}

	for i := 0; i < f.cfg.PeakIterCap && b.Sub(a) > f.cfg.RefineTol; i++ {
		if f1 < f2 {
			a, x1, f1 = x1, x2, f2
			x2 = timeLerp(a, b, invPhi)
			if f2, err = eval(x2); err != nil {
				return time.Time{}, transform.AltAz{}, err
			}
		} else {
			b, x2, f2 = x2, x1, f1
			x1 = timeLerp(a, b, 1-invPhi)
			if f1, err = eval(x1); err != nil {
				return time.Time{}, transform.AltAz{}, err
			}
		}
	}

	return bestT, bestLA, nil
}

func (f *Finder) buildPass(rise, set time.Time) (Overpass, error) {
	startLA, err := f.geo.LookAngles(rise)
	if err != nil {
		return Overpass{}, errs.Wrap(errs.Calculation, err)
	}
	endLA, err := f.geo.LookAngles(set)
	if err != nil {
		return Overpass{}, errs.Wrap(errs.Calculation, err)
	}
	peakT, peakLA, err := f.refinePeak(rise, set)
	if err != nil {
		return Overpass{}, err
	}

	mid := rise.Add(set.Sub(rise) / 2)

	return Overpass{
		Start:           rise,
		End:             set,
		Midpoint:        mid,
		Peak:            peakT,
		MaxElevationDeg: peakLA.AltitudeDeg,
		StartAzimuthDeg: startLA.AzimuthDeg,
		EndAzimuthDeg:   endLA.AzimuthDeg,
		PeakAzimuthDeg:  peakLA.AzimuthDeg,
		IsNight:         f.geo.IsNight(rise) || f.geo.IsNight(mid) || f.geo.IsNight(set),
		IsLit:           f.geo.IsLit(mid),
	}, nil
}

func timeLerp(a, b time.Time, frac float64) time.Time {
	return a.Add(time.Duration(frac * float64(b.Sub(a))))
}
