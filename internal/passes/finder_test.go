package passes

import (
	"context"
	"errors"
	"log/slog"
	"math"
	"os"
	"testing"
	"time"

	"github.com/pauladam316/overpass-planner/internal/errs"
	"github.com/pauladam316/overpass-planner/internal/transform"
)

// synthGeom is an analytic stand-in for the SGP4 pipeline: altitude is a
// pure function of time, so rise/set/peak have closed-form expected values.
type synthGeom struct {
	alt      func(t time.Time) float64
	night    func(t time.Time) bool
	lit      func(t time.Time) bool
	failWhen func(t time.Time) bool
}

func (g *synthGeom) LookAngles(t time.Time) (transform.AltAz, error) {
	if g.failWhen != nil && g.failWhen(t) {
		return transform.AltAz{}, errors.New("ephemeris glitch")
	}
	return transform.AltAz{
		AltitudeDeg: g.alt(t),
		AzimuthDeg:  math.Mod(float64(t.Unix()), 360.0),
		RangeKm:     1000,
	}, nil
}

func (g *synthGeom) IsNight(t time.Time) bool {
	if g.night == nil {
		return false
	}
	return g.night(t)
}

func (g *synthGeom) IsLit(t time.Time) bool {
	if g.lit == nil {
		return true
	}
	return g.lit(t)
}

var scanStart = time.Date(2025, 2, 14, 0, 0, 0, 0, time.UTC)

// sineGeom oscillates with a 90-minute period, reaching +40 deg at 1350 s
// into each cycle. Above the horizon between ~292.1 s and ~2407.9 s.
func sineGeom() *synthGeom {
	const period = 5400.0
	return &synthGeom{
		alt: func(t time.Time) float64 {
			x := t.Sub(scanStart).Seconds()
			return 60.0*math.Sin(2*math.Pi*x/period) - 20.0
		},
	}
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func newTestFinder(g Geometry) *Finder {
	return NewFinder(g, Config{}, testLogger())
}

func TestFindBasic(t *testing.T) {
	finder := newTestFinder(sineGeom())

	found, err := finder.Find(context.Background(), scanStart, 3*time.Hour)
	if err != nil {
		t.Fatalf("Find: %v", err)
	}
	if len(found) != 2 {
		t.Fatalf("found %d passes in two orbital periods, want 2", len(found))
	}

	// Analytic horizon crossings for the first cycle.
	wantRise := scanStart.Add(time.Duration(292.1 * float64(time.Second)))
	wantSet := scanStart.Add(time.Duration(2407.9 * float64(time.Second)))

	p := found[0]
	if d := p.Start.Sub(wantRise); d < -2*time.Second || d > 2*time.Second {
		t.Errorf("rise = %v, want %v +/- 2s", p.Start, wantRise)
	}
	if d := p.End.Sub(wantSet); d < -2*time.Second || d > 2*time.Second {
		t.Errorf("set = %v, want %v +/- 2s", p.End, wantSet)
	}
	if math.Abs(p.MaxElevationDeg-40.0) > 0.05 {
		t.Errorf("peak elevation = %.4f deg, want ~40", p.MaxElevationDeg)
	}

	for i, p := range found {
		if !p.Start.Before(p.End) {
			t.Errorf("pass %d: start %v not before end %v", i, p.Start, p.End)
		}
		if want := p.Start.Add(p.End.Sub(p.Start) / 2); !p.Midpoint.Equal(want) {
			t.Errorf("pass %d: midpoint %v, want %v", i, p.Midpoint, want)
		}
		if p.Peak.Before(p.Start) || p.Peak.After(p.End) {
			t.Errorf("pass %d: peak time %v outside pass", i, p.Peak)
		}
		if i > 0 && !found[i-1].End.Before(p.Start) {
			t.Errorf("pass %d overlaps previous (prev end %v, start %v)", i, found[i-1].End, p.Start)
		}
	}
}

func TestFindPeakDominatesEndpoints(t *testing.T) {
	finder := newTestFinder(sineGeom())

	found, err := finder.Find(context.Background(), scanStart, 2*time.Hour)
	if err != nil {
		t.Fatal(err)
	}
	if len(found) == 0 {
		t.Fatal("expected at least one pass")
	}

	g := sineGeom()
	for i, p := range found {
		if p.MaxElevationDeg <= 0 {
			t.Errorf("pass %d: peak elevation %.2f not above horizon", i, p.MaxElevationDeg)
		}
		if p.MaxElevationDeg < g.alt(p.Start) || p.MaxElevationDeg < g.alt(p.End) {
			t.Errorf("pass %d: peak %.2f below an endpoint elevation", i, p.MaxElevationDeg)
		}
	}
}

func TestFindEmptyWindow(t *testing.T) {
	finder := newTestFinder(sineGeom())

	for _, window := range []time.Duration{0, -time.Hour} {
		found, err := finder.Find(context.Background(), scanStart, window)
		if err != nil {
			t.Fatalf("window %v: %v", window, err)
		}
		if len(found) != 0 {
			t.Errorf("window %v: found %d passes, want 0", window, len(found))
		}
	}
}

func TestFindNeverRises(t *testing.T) {
	finder := newTestFinder(&synthGeom{alt: func(time.Time) float64 { return -5.0 }})

	found, err := finder.Find(context.Background(), scanStart, 24*time.Hour)
	if err != nil {
		t.Fatal(err)
	}
	if len(found) != 0 {
		t.Errorf("found %d passes for a satellite that never rises, want 0", len(found))
	}
}

func TestFindTruncatedAtWindowEnd(t *testing.T) {
	finder := newTestFinder(sineGeom())

	// The first pass sets at ~2407.9 s; a 1500 s window cuts it short.
	window := 1500 * time.Second
	found, err := finder.Find(context.Background(), scanStart, window)
	if err != nil {
		t.Fatal(err)
	}
	if len(found) != 1 {
		t.Fatalf("found %d passes, want 1", len(found))
	}

	p := found[0]
	if !p.End.Equal(scanStart.Add(window)) {
		t.Errorf("truncated pass end = %v, want window end %v", p.End, scanStart.Add(window))
	}
	if p.Peak.After(p.End) {
		t.Errorf("peak time %v beyond truncated end %v", p.Peak, p.End)
	}
}

func TestFindInProgressAtWindowStart(t *testing.T) {
	finder := newTestFinder(sineGeom())

	// 600 s into the cycle the satellite is already at ~18.6 deg.
	start := scanStart.Add(600 * time.Second)
	found, err := finder.Find(context.Background(), start, time.Hour)
	if err != nil {
		t.Fatal(err)
	}
	if len(found) == 0 {
		t.Fatal("expected a pass in progress at the window start")
	}
	if !found[0].Start.Equal(start) {
		t.Errorf("in-progress pass start = %v, want window start %v", found[0].Start, start)
	}
}

func TestFindToleratesFailedCoarseSample(t *testing.T) {
	g := sineGeom()
	failT := scanStart.Add(900 * time.Second)
	g.failWhen = func(t time.Time) bool { return t.Equal(failT) }

	finder := newTestFinder(g)
	found, err := finder.Find(context.Background(), scanStart, time.Hour)
	if err != nil {
		t.Fatalf("Find with one bad sample: %v", err)
	}
	if len(found) != 1 {
		t.Fatalf("found %d passes, want 1", len(found))
	}

	wantRise := scanStart.Add(time.Duration(292.1 * float64(time.Second)))
	if d := found[0].Start.Sub(wantRise); d < -2*time.Second || d > 2*time.Second {
		t.Errorf("rise = %v, want %v +/- 2s", found[0].Start, wantRise)
	}
}

func TestFindRefinementFailure(t *testing.T) {
	g := sineGeom()
	// Coarse samples land on whole minutes; everything else fails, so the
	// first bisection sample errors out.
	g.failWhen = func(t time.Time) bool { return t.Unix()%60 != 0 }

	finder := newTestFinder(g)
	_, err := finder.Find(context.Background(), scanStart, time.Hour)
	if err == nil {
		t.Fatal("expected refinement failure")
	}
	if !errs.IsKind(err, errs.Calculation) {
		t.Errorf("error kind = %v, want CalculationError", err)
	}
}

// TestFindNarrowPeakBetweenCoarseSamples: a steep spike peaking at 65 s sits
// between the 60 s coarse samples, so the best coarse sample (120 s) is far
// from the true maximum. The full-pass sweep must still find it.
func TestFindNarrowPeakBetweenCoarseSamples(t *testing.T) {
	spike := &synthGeom{
		alt: func(t time.Time) float64 {
			x := t.Sub(scanStart).Seconds()
			switch {
			case x < 61:
				return x - 61
			case x <= 65:
				return 20 * (x - 61)
			default:
				return 80 - 0.5*(x-65)
			}
		},
	}

	finder := newTestFinder(spike)
	found, err := finder.Find(context.Background(), scanStart, 10*time.Minute)
	if err != nil {
		t.Fatal(err)
	}
	if len(found) != 1 {
		t.Fatalf("found %d passes, want 1", len(found))
	}

	p := found[0]
	if math.Abs(p.MaxElevationDeg-80.0) > 0.5 {
		t.Errorf("peak elevation = %.2f deg, want ~80", p.MaxElevationDeg)
	}
	wantPeak := scanStart.Add(65 * time.Second)
	if d := p.Peak.Sub(wantPeak); d < -2*time.Second || d > 2*time.Second {
		t.Errorf("peak time = %v, want %v +/- 2s", p.Peak, wantPeak)
	}
}

// TestFindRiseAtWindowBoundary: the satellite clears the horizon 0.1 s before
// the window closes, so the refined rise lands on the boundary itself. That
// would be a zero-width pass and must not be reported.
func TestFindRiseAtWindowBoundary(t *testing.T) {
	g := &synthGeom{
		alt: func(t time.Time) float64 {
			return t.Sub(scanStart).Seconds() - 599.9
		},
	}

	finder := newTestFinder(g)
	found, err := finder.Find(context.Background(), scanStart, 600*time.Second)
	if err != nil {
		t.Fatal(err)
	}
	if len(found) != 0 {
		t.Fatalf("found %d passes for a rise at the window boundary, want 0", len(found))
	}
}

func TestFindNightAndLitFlags(t *testing.T) {
	g := sineGeom()
	g.night = func(time.Time) bool { return true }
	g.lit = func(time.Time) bool { return false }

	finder := newTestFinder(g)
	found, err := finder.Find(context.Background(), scanStart, time.Hour)
	if err != nil {
		t.Fatal(err)
	}
	if len(found) == 0 {
		t.Fatal("expected a pass")
	}
	if !found[0].IsNight {
		t.Error("IsNight = false, want true for always-dark observer")
	}
	if found[0].IsLit {
		t.Error("IsLit = true, want false for eclipsed satellite")
	}
}

func BenchmarkFind24h(b *testing.B) {
	finder := newTestFinder(sineGeom())
	ctx := context.Background()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := finder.Find(ctx, scanStart, 24*time.Hour); err != nil {
			b.Fatal(err)
		}
	}
}

func TestFindContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	finder := newTestFinder(sineGeom())
	if _, err := finder.Find(ctx, scanStart, 24*time.Hour); !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
}
