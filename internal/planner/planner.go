// Package planner ties the catalog, propagation, frame transform, and pass
// search together behind the operations callers actually ask for.
package planner

import (
	"context"
	"log/slog"
	"runtime"
	"sort"
	"sync"
	"time"

	"github.com/pauladam316/overpass-planner/internal/errs"
	"github.com/pauladam316/overpass-planner/internal/metrics"
	"github.com/pauladam316/overpass-planner/internal/passes"
	"github.com/pauladam316/overpass-planner/internal/propagation"
	"github.com/pauladam316/overpass-planner/internal/sun"
	"github.com/pauladam316/overpass-planner/internal/tle"
	"github.com/pauladam316/overpass-planner/internal/transform"
)

// Catalog resolves NORAD ids to TLE records. *tle.Client is the production
// implementation.
type Catalog interface {
	FetchTLE(ctx context.Context, noradID int) (tle.TLE, error)
	SatelliteName(ctx context.Context, noradID int) (string, error)
}

// ObserverLocation is a ground observer in geodetic coordinates.
type ObserverLocation struct {
	LatitudeDeg  float64
	LongitudeDeg float64
	AltitudeM    float64
}

// Validate rejects coordinates outside the physically meaningful ranges.
func (l ObserverLocation) Validate() error {
	if l.LatitudeDeg < -90 || l.LatitudeDeg > 90 {
		return errs.Errorf(errs.InvalidInput, "latitude %.4f out of range [-90, 90]", l.LatitudeDeg)
	}
	if l.LongitudeDeg < -180 || l.LongitudeDeg > 180 {
		return errs.Errorf(errs.InvalidInput, "longitude %.4f out of range [-180, 180]", l.LongitudeDeg)
	}
	if l.AltitudeM < -500 || l.AltitudeM > 10000 {
		return errs.Errorf(errs.InvalidInput, "altitude %.1f m out of range [-500, 10000]", l.AltitudeM)
	}
	return nil
}

// Config tunes the planner. Zero values take defaults.
type Config struct {
	Search passes.Config

	// NightThresholdDeg is the sun elevation below which the observer
	// counts as being in darkness. Zero means civil twilight (-6).
	NightThresholdDeg float64

	// MaxConcurrent bounds the fan-out of GetAllOverpasses. Zero means
	// runtime.NumCPU().
	MaxConcurrent int
}

// Planner is the top-level overpass planning service.
type Planner struct {
	catalog Catalog
	eop     transform.EOPProvider
	cfg     Config
	logger  *slog.Logger

	now func() time.Time // injectable for tests
}

// New creates a Planner. A nil logger falls back to slog.Default().
func New(catalog Catalog, eop transform.EOPProvider, cfg Config, logger *slog.Logger) *Planner {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.NightThresholdDeg == 0 {
		cfg.NightThresholdDeg = sun.DefaultNightThresholdDeg
	}
	if cfg.MaxConcurrent <= 0 {
		cfg.MaxConcurrent = runtime.NumCPU()
	}
	return &Planner{
		catalog: catalog,
		eop:     eop,
		cfg:     cfg,
		logger:  logger,
		now:     time.Now,
	}
}

// FetchTLE resolves a NORAD id to its current TLE record.
func (p *Planner) FetchTLE(ctx context.Context, noradID int) (tle.TLE, error) {
	return p.catalog.FetchTLE(ctx, noradID)
}

// SatelliteName returns the catalog name for a NORAD id.
func (p *Planner) SatelliteName(ctx context.Context, noradID int) (string, error) {
	return p.catalog.SatelliteName(ctx, noradID)
}

// GetOverpasses finds all passes of the satellite over the observer within
// [now, now+window], ordered by start time.
func (p *Planner) GetOverpasses(ctx context.Context, noradID int, loc ObserverLocation, window time.Duration) ([]passes.Overpass, error) {
	if err := loc.Validate(); err != nil {
		return nil, err
	}

	rec, err := p.catalog.FetchTLE(ctx, noradID)
	if err != nil {
		return nil, err
	}

	prop, err := propagation.NewFromTLE(rec)
	if err != nil {
		return nil, err
	}

	geo := newSatGeometry(prop, loc, p.eop, p.cfg.NightThresholdDeg)
	finder := passes.NewFinder(geo, p.cfg.Search, p.logger)

	start := p.now().UTC()
	searchStart := time.Now()
	found, err := finder.Find(ctx, start, window)
	if err != nil {
		return nil, err
	}
	metrics.ObservePassSearch(time.Since(searchStart), len(found))

	p.logger.Info("pass search complete",
		"norad_id", noradID,
		"window", window.String(),
		"passes", len(found),
	)
	return found, nil
}

// SatellitePosition is a ground-track sample. Reserved for a future
// position-history operation.
type SatellitePosition struct {
	Time     time.Time
	Geodetic transform.GeodeticPoint
}

// GetSatellitePositions is reserved and currently returns an empty list for
// any satellite.
func (p *Planner) GetSatellitePositions(ctx context.Context, noradID int) ([]SatellitePosition, error) {
	return []SatellitePosition{}, nil
}

// SatellitePasses is one satellite's slice of a multi-satellite search.
// Err is set when that satellite's search failed; other satellites are
// unaffected.
type SatellitePasses struct {
	NORADID int
	Passes  []passes.Overpass
	Err     error
}

// GetAllOverpasses runs GetOverpasses for each id concurrently, bounded by
// MaxConcurrent. Per-satellite failures are reported in the result slice;
// the only error returned directly is context cancellation.
func (p *Planner) GetAllOverpasses(ctx context.Context, noradIDs []int, loc ObserverLocation, window time.Duration) ([]SatellitePasses, error) {
	if err := loc.Validate(); err != nil {
		return nil, err
	}

	sem := make(chan struct{}, p.cfg.MaxConcurrent)
	results := make([]SatellitePasses, len(noradIDs))

	var wg sync.WaitGroup
	for i, id := range noradIDs {
		wg.Add(1)
		go func(i, id int) {
			defer wg.Done()

			select {
			case sem <- struct{}{}:
				defer func() { <-sem }()
			case <-ctx.Done():
				results[i] = SatellitePasses{NORADID: id, Err: ctx.Err()}
				return
			}

			found, err := p.GetOverpasses(ctx, id, loc, window)
			results[i] = SatellitePasses{NORADID: id, Passes: found, Err: err}
			if err != nil {
				p.logger.Warn("satellite search failed", "norad_id", id, "error", err)
			}
		}(i, id)
	}
	wg.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	sort.Slice(results, func(a, b int) bool { return results[a].NORADID < results[b].NORADID })
	return results, nil
}

// satGeometry adapts one satellite/observer pair to the pass finder: SGP4 in
// TEME, rotated to ITRF with earth-orientation data, then local look angles.
type satGeometry struct {
	prop         *propagation.SGP4Propagator
	obs          transform.Observer
	eop          transform.EOPProvider
	latDeg       float64
	lonDeg       float64
	thresholdDeg float64
}

func newSatGeometry(prop *propagation.SGP4Propagator, loc ObserverLocation, eop transform.EOPProvider, thresholdDeg float64) *satGeometry {
	return &satGeometry{
		prop:         prop,
		obs:          transform.NewObserver(loc.LatitudeDeg, loc.LongitudeDeg, loc.AltitudeM),
		eop:          eop,
		latDeg:       loc.LatitudeDeg,
		lonDeg:       loc.LongitudeDeg,
		thresholdDeg: thresholdDeg,
	}
}

func (g *satGeometry) LookAngles(t time.Time) (transform.AltAz, error) {
	teme, err := g.prop.PositionTEME(t)
	if err != nil {
		return transform.AltAz{}, err
	}
	itrf, err := transform.TEMEToITRF(teme, t, g.eop)
	if err != nil {
		return transform.AltAz{}, err
	}
	return transform.LookAngles(g.obs, itrf)
}

func (g *satGeometry) IsNight(t time.Time) bool {
	return sun.IsNight(g.latDeg, g.lonDeg, t, g.thresholdDeg)
}

// IsLit treats a propagation failure as lit: the flag is advisory and must
// not sink an otherwise valid pass.
func (g *satGeometry) IsLit(t time.Time) bool {
	teme, err := g.prop.PositionTEME(t)
	if err != nil {
		return true
	}
	return sun.IsSatelliteLit(teme, sun.PositionTEME(t))
}
