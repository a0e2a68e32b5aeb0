// Command overpass plans satellite overpasses from a TOML config and prints
// them as a table, times rendered in the local timezone.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/midbel/toml"

	"github.com/pauladam316/overpass-planner/internal/cache"
	"github.com/pauladam316/overpass-planner/internal/passes"
	"github.com/pauladam316/overpass-planner/internal/planner"
	"github.com/pauladam316/overpass-planner/internal/tle"
	"github.com/pauladam316/overpass-planner/internal/transform"
)

type observerSettings struct {
	Latitude  float64 `toml:"latitude"`
	Longitude float64 `toml:"longitude"`
	Altitude  float64 `toml:"altitude"`
}

type settings struct {
	Observer       observerSettings `toml:"observer"`
	Satellites     []int            `toml:"satellites"`
	WindowHours    float64          `toml:"window_hours"`
	EOPFile        string           `toml:"eop_file"`
	EOPZero        bool             `toml:"eop_zero"`
	CacheDir       string           `toml:"cache_dir"`
	SourceURL      string           `toml:"source_url"`
	NightThreshold float64          `toml:"night_threshold"`
}

var (
	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	headerStyle = lipgloss.NewStyle().Bold(true).Underline(true)
	visStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	errStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	dimStyle    = lipgloss.NewStyle().Faint(true)
)

func main() {
	configPath := flag.String("config", "overpass.toml", "path to TOML configuration")
	hours := flag.Float64("hours", 0, "override the configured search window (hours)")
	flag.Parse()

	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelWarn,
	}))

	var cfg settings
	if err := toml.DecodeFile(*configPath, &cfg); err != nil {
		fatal("reading config %s: %v", *configPath, err)
	}
	if len(cfg.Satellites) == 0 {
		fatal("no satellites configured in %s", *configPath)
	}
	if *hours > 0 {
		cfg.WindowHours = *hours
	}
	if cfg.WindowHours <= 0 {
		cfg.WindowHours = 24
	}

	eop, err := loadEOP(cfg)
	if err != nil {
		fatal("%v", err)
	}

	cacheDir := cfg.CacheDir
	if cacheDir == "" {
		dir, err := cache.DefaultDir()
		if err != nil {
			fatal("resolving cache dir: %v (set cache_dir in config)", err)
		}
		cacheDir = dir
	}
	store := cache.NewStore(cacheDir, 0, logger)
	catalog := tle.NewClient(store, tle.NewFetcher(cfg.SourceURL), logger)

	pl := planner.New(catalog, eop, planner.Config{NightThresholdDeg: cfg.NightThreshold}, logger)

	loc := planner.ObserverLocation{
		LatitudeDeg:  cfg.Observer.Latitude,
		LongitudeDeg: cfg.Observer.Longitude,
		AltitudeM:    cfg.Observer.Altitude,
	}
	window := time.Duration(cfg.WindowHours * float64(time.Hour))

	ctx := context.Background()
	results, err := pl.GetAllOverpasses(ctx, cfg.Satellites, loc, window)
	if err != nil {
		fatal("%v", err)
	}

	fmt.Println(titleStyle.Render(fmt.Sprintf(
		"Overpasses for %.4f, %.4f (next %.0fh)",
		loc.LatitudeDeg, loc.LongitudeDeg, cfg.WindowHours,
	)))

	for _, sat := range results {
		fmt.Println()
		printSatellite(ctx, pl, sat)
	}
}

func printSatellite(ctx context.Context, pl *planner.Planner, sat planner.SatellitePasses) {
	label := fmt.Sprintf("NORAD %d", sat.NORADID)
	if name, err := pl.SatelliteName(ctx, sat.NORADID); err == nil && name != "" {
		label = fmt.Sprintf("%s (NORAD %d)", name, sat.NORADID)
	}
	fmt.Println(headerStyle.Render(label))

	if sat.Err != nil {
		fmt.Println(errStyle.Render("  " + sat.Err.Error()))
		return
	}
	if len(sat.Passes) == 0 {
		fmt.Println(dimStyle.Render("  no passes in window"))
		return
	}

	fmt.Println(dimStyle.Render(fmt.Sprintf(
		"  %-17s %-9s %7s %6s %6s %6s  %s",
		"START", "DURATION", "MAX EL", "FROM", "PEAK", "TO", "VISIBILITY",
	)))

	for _, p := range sat.Passes {
		line := fmt.Sprintf("  %-17s %-9s %6.1f° %6s %6s %6s  %s",
			p.Start.Local().Format("Jan 02 15:04:05"),
			p.End.Sub(p.Start).Round(time.Second),
			p.MaxElevationDeg,
			passes.CompassPoint(p.StartAzimuthDeg),
			passes.CompassPoint(p.PeakAzimuthDeg),
			passes.CompassPoint(p.EndAzimuthDeg),
			visibility(p),
		)
		if p.IsNight && p.IsLit {
			fmt.Println(visStyle.Render(line))
		} else {
			fmt.Println(line)
		}
	}
}

// visibility summarizes the naked-eye prospects for a pass.
func visibility(p passes.Overpass) string {
	switch {
	case p.IsNight && p.IsLit:
		return "visible"
	case p.IsNight:
		return "in shadow"
	default:
		return "daylight"
	}
}

func loadEOP(cfg settings) (transform.EOPProvider, error) {
	if cfg.EOPFile != "" {
		return transform.LoadFinals(cfg.EOPFile)
	}
	if cfg.EOPZero {
		return transform.ConstantEOP{}, nil
	}
	return nil, fmt.Errorf("set eop_file to an IERS finals file, or eop_zero = true to opt out")
}

func fatal(format string, args ...any) {
	fmt.Fprintln(os.Stderr, errStyle.Render(fmt.Sprintf(format, args...)))
	os.Exit(1)
}
