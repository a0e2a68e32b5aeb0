// Command overpassd serves the overpass planner over HTTP.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/pauladam316/overpass-planner/internal/api"
	"github.com/pauladam316/overpass-planner/internal/auth"
	"github.com/pauladam316/overpass-planner/internal/cache"
	"github.com/pauladam316/overpass-planner/internal/metrics"
	"github.com/pauladam316/overpass-planner/internal/planner"
	"github.com/pauladam316/overpass-planner/internal/tle"
	"github.com/pauladam316/overpass-planner/internal/transform"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	}))

	addr := os.Getenv("OVERPASS_HTTP_ADDR")
	if addr == "" {
		addr = ":8080"
	}

	authCfg, err := loadAuthConfig(logger)
	if err != nil {
		logger.Error("invalid auth configuration", "error", err)
		os.Exit(1)
	}

	eop, err := loadEOP(logger)
	if err != nil {
		logger.Error("invalid EOP configuration", "error", err)
		os.Exit(1)
	}

	catalogCfg := loadCatalogConfig(logger)
	store := cache.NewStore(catalogCfg.cacheDir, catalogCfg.maxAge, logger)
	fetcher := tle.NewFetcher(catalogCfg.sourceURL)
	catalog := tle.NewClient(store, fetcher, logger)

	pl := planner.New(catalog, eop, loadPlannerConfig(logger), logger)

	trustProxy := false
	if v := os.Getenv("OVERPASS_TRUST_PROXY"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			logger.Warn("invalid OVERPASS_TRUST_PROXY value, defaulting to false", "value", v)
		} else {
			trustProxy = b
		}
	}

	srv := api.NewServer(api.Config{Addr: addr, Auth: authCfg, TrustProxy: trustProxy}, pl, logger)

	// Graceful shutdown on SIGINT/SIGTERM.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Background goroutine to update the TLE cache age gauge.
	go func() {
		ticker := time.NewTicker(10 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if age, err := store.Age(); err == nil {
					metrics.SetTLECacheAge(age)
				}
			case <-ctx.Done():
				return
			}
		}
	}()

	go func() {
		logger.Info("starting server", "addr", addr, "auth_enabled", authCfg.Enabled)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server listen error", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.HTTPServer().Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", "error", err)
		os.Exit(1)
	}

	logger.Info("server stopped")
}

func loadAuthConfig(logger *slog.Logger) (auth.Config, error) {
	cfg := auth.Config{}

	enabledStr := os.Getenv("OVERPASS_AUTH_ENABLED")
	if enabledStr != "" {
		enabled, err := strconv.ParseBool(enabledStr)
		if err != nil {
			return cfg, errors.New("OVERPASS_AUTH_ENABLED must be a boolean value (true/false/1/0)")
		}
		cfg.Enabled = enabled
	}

	if cfg.Enabled {
		cfg.Token = os.Getenv("OVERPASS_AUTH_TOKEN")
		if cfg.Token == "" {
			return cfg, errors.New("OVERPASS_AUTH_TOKEN is required when auth is enabled")
		}
		logger.Info("auth enabled")
	}

	return cfg, nil
}

// loadEOP builds the earth-orientation provider. Accurate results need an
// IERS finals file; running with all-zero corrections must be an explicit
// choice, never a silent fallback.
func loadEOP(logger *slog.Logger) (transform.EOPProvider, error) {
	if path := os.Getenv("OVERPASS_EOP_FILE"); path != "" {
		table, err := transform.LoadFinals(path)
		if err != nil {
			return nil, err
		}
		lo, hi := table.Span()
		logger.Info("EOP table loaded", "path", path, "mjd_min", lo, "mjd_max", hi)
		return table, nil
	}

	if v := os.Getenv("OVERPASS_EOP_ZERO"); v != "" {
		zero, err := strconv.ParseBool(v)
		if err == nil && zero {
			logger.Warn("running with zero earth-orientation corrections; positions lose a few hundred meters of accuracy")
			return transform.ConstantEOP{}, nil
		}
	}

	return nil, errors.New("set OVERPASS_EOP_FILE to an IERS finals file, or OVERPASS_EOP_ZERO=true to opt out")
}

type catalogConfig struct {
	sourceURL string
	cacheDir  string
	maxAge    time.Duration
}

func loadCatalogConfig(logger *slog.Logger) catalogConfig {
	cfg := catalogConfig{
		sourceURL: tle.DefaultSourceURL,
		maxAge:    cache.DefaultMaxAge,
	}

	dir, err := cache.DefaultDir()
	if err != nil {
		dir = "/tmp/overpass_planner"
		logger.Warn("user cache dir unavailable, using fallback", "error", err, "dir", dir)
	}
	cfg.cacheDir = dir

	if v := os.Getenv("OVERPASS_TLE_SOURCE_URL"); v != "" {
		cfg.sourceURL = v
	}
	if v := os.Getenv("OVERPASS_TLE_CACHE_DIR"); v != "" {
		cfg.cacheDir = v
	}
	if v := os.Getenv("OVERPASS_TLE_MAX_AGE"); v != "" {
		seconds, err := strconv.Atoi(v)
		if err != nil || seconds < 1 {
			logger.Warn("invalid OVERPASS_TLE_MAX_AGE value, using default", "value", v, "default", cache.DefaultMaxAge.Seconds())
		} else {
			cfg.maxAge = time.Duration(seconds) * time.Second
		}
	}

	logger.Info("catalog config",
		"source_url", cfg.sourceURL,
		"cache_dir", cfg.cacheDir,
		"max_age_seconds", cfg.maxAge.Seconds(),
	)

	return cfg
}

func loadPlannerConfig(logger *slog.Logger) planner.Config {
	cfg := planner.Config{}

	if v := os.Getenv("OVERPASS_NIGHT_THRESHOLD"); v != "" {
		deg, err := strconv.ParseFloat(v, 64)
		if err != nil || deg > 0 {
			logger.Warn("invalid OVERPASS_NIGHT_THRESHOLD value, using civil twilight", "value", v)
		} else {
			cfg.NightThresholdDeg = deg
		}
	}

	if v := os.Getenv("OVERPASS_MAX_CONCURRENT"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			logger.Warn("invalid OVERPASS_MAX_CONCURRENT value, using CPU count", "value", v)
		} else {
			cfg.MaxConcurrent = n
		}
	}

	return cfg
}
