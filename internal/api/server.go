package api

import (
	"context"
	"encoding/json"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/pauladam316/overpass-planner/internal/auth"
	"github.com/pauladam316/overpass-planner/internal/errs"
	"github.com/pauladam316/overpass-planner/internal/health"
	"github.com/pauladam316/overpass-planner/internal/metrics"
	"github.com/pauladam316/overpass-planner/internal/passes"
	"github.com/pauladam316/overpass-planner/internal/planner"
	"github.com/pauladam316/overpass-planner/internal/tle"
)

// maxWindowHours caps the requested search window so one request cannot
// consume unbounded CPU.
const maxWindowHours = 168

const defaultWindowHours = 24

// Planner is the subset of planner operations the HTTP layer needs.
type Planner interface {
	GetOverpasses(ctx context.Context, noradID int, loc planner.ObserverLocation, window time.Duration) ([]passes.Overpass, error)
	FetchTLE(ctx context.Context, noradID int) (tle.TLE, error)
	SatelliteName(ctx context.Context, noradID int) (string, error)
}

// Server holds the HTTP server and its dependencies.
type Server struct {
	httpServer *http.Server
	logger     *slog.Logger
}

// Config holds HTTP server configuration.
type Config struct {
	Addr       string
	Auth       auth.Config
	TrustProxy bool
}

// NewServer creates a configured HTTP server.
func NewServer(cfg Config, pl Planner, logger *slog.Logger) *Server {
	mux := http.NewServeMux()

	// Register routes.
	mux.HandleFunc("GET /healthz", health.Healthz)
	mux.HandleFunc("GET /readyz", health.Readyz)
	mux.Handle("GET /metrics", metrics.Handler())
	mux.HandleFunc("GET /api/v1/overpasses", overpassesHandler(logger, pl))
	mux.HandleFunc("GET /api/v1/tle/{norad_id}", tleHandler(logger, pl))
	mux.HandleFunc("GET /api/v1/satellites/{norad_id}/name", nameHandler(logger, pl))

	// Build middleware chain: metrics -> logging -> auth -> mux.
	var handler http.Handler = mux
	handler = auth.Middleware(cfg.Auth)(handler)
	handler = loggingMiddleware(logger, cfg.TrustProxy)(handler)
	handler = metrics.Middleware(handler)

	return &Server{
		httpServer: &http.Server{
			Addr:              cfg.Addr,
			Handler:           handler,
			ReadTimeout:       10 * time.Second,
			ReadHeaderTimeout: 5 * time.Second,
			WriteTimeout:      60 * time.Second,
			IdleTimeout:       120 * time.Second,
		},
		logger: logger,
	}
}

// HTTPServer returns the underlying *http.Server for external control (e.g. shutdown).
func (s *Server) HTTPServer() *http.Server {
	return s.httpServer
}

// ListenAndServe starts the HTTP server.
func (s *Server) ListenAndServe() error {
	return s.httpServer.ListenAndServe()
}

// passJSON is the wire form of one overpass.
type passJSON struct {
	StartTime       time.Time `json:"start_time"`
	EndTime         time.Time `json:"end_time"`
	Midpoint        time.Time `json:"midpoint"`
	PeakTime        time.Time `json:"peak_time"`
	MaxElevationDeg float64   `json:"max_elevation_deg"`
	StartAzimuthDeg float64   `json:"start_azimuth_deg"`
	EndAzimuthDeg   float64   `json:"end_azimuth_deg"`
	PeakAzimuthDeg  float64   `json:"peak_azimuth_deg"`
	StartDirection  string    `json:"start_direction"`
	EndDirection    string    `json:"end_direction"`
	PeakDirection   string    `json:"peak_direction"`
	IsNight         bool      `json:"is_night"`
	IsLit           bool      `json:"is_lit"`
}

func toPassJSON(p passes.Overpass) passJSON {
	return passJSON{
		StartTime:       p.Start,
		EndTime:         p.End,
		Midpoint:        p.Midpoint,
		PeakTime:        p.Peak,
		MaxElevationDeg: p.MaxElevationDeg,
		StartAzimuthDeg: p.StartAzimuthDeg,
		EndAzimuthDeg:   p.EndAzimuthDeg,
		PeakAzimuthDeg:  p.PeakAzimuthDeg,
		StartDirection:  passes.CompassPoint(p.StartAzimuthDeg),
		EndDirection:    passes.CompassPoint(p.EndAzimuthDeg),
		PeakDirection:   passes.CompassPoint(p.PeakAzimuthDeg),
		IsNight:         p.IsNight,
		IsLit:           p.IsLit,
	}
}

func overpassesHandler(logger *slog.Logger, pl Planner) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()

		noradID, err := strconv.Atoi(q.Get("norad_id"))
		if err != nil || noradID <= 0 {
			writeJSONError(w, http.StatusBadRequest, "norad_id must be a positive integer")
			return
		}

		loc, ok := parseLocation(w, q.Get("lat"), q.Get("lon"), q.Get("alt"))
		if !ok {
			return
		}

		hours := float64(defaultWindowHours)
		if raw := q.Get("hours"); raw != "" {
			hours, err = strconv.ParseFloat(raw, 64)
			if err != nil || hours <= 0 {
				writeJSONError(w, http.StatusBadRequest, "hours must be a positive number")
				return
			}
		}
		if hours > maxWindowHours {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusBadRequest)
			json.NewEncoder(w).Encode(map[string]any{
				"error":     "requested window exceeds the search budget",
				"max_hours": maxWindowHours,
			})
			return
		}

		window := time.Duration(hours * float64(time.Hour))
		found, err := pl.GetOverpasses(r.Context(), noradID, loc, window)
		if err != nil {
			writeError(w, logger, err)
			return
		}

		out := make([]passJSON, 0, len(found))
		for _, p := range found {
			out = append(out, toPassJSON(p))
		}

		writeJSON(w, http.StatusOK, map[string]any{
			"norad_id": noradID,
			"count":    len(out),
			"passes":   out,
		})
	}
}

func tleHandler(logger *slog.Logger, pl Planner) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		noradID, err := strconv.Atoi(r.PathValue("norad_id"))
		if err != nil || noradID <= 0 {
			writeJSONError(w, http.StatusBadRequest, "norad_id must be a positive integer")
			return
		}

		rec, err := pl.FetchTLE(r.Context(), noradID)
		if err != nil {
			writeError(w, logger, err)
			return
		}

		writeJSON(w, http.StatusOK, map[string]any{
			"norad_id": rec.NORADID,
			"name":     rec.Name,
			"epoch":    rec.Epoch,
			"line1":    rec.Line1,
			"line2":    rec.Line2,
		})
	}
}

func nameHandler(logger *slog.Logger, pl Planner) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		noradID, err := strconv.Atoi(r.PathValue("norad_id"))
		if err != nil || noradID <= 0 {
			writeJSONError(w, http.StatusBadRequest, "norad_id must be a positive integer")
			return
		}

		name, err := pl.SatelliteName(r.Context(), noradID)
		if err != nil {
			writeError(w, logger, err)
			return
		}

		writeJSON(w, http.StatusOK, map[string]any{
			"norad_id": noradID,
			"name":     name,
		})
	}
}

// parseLocation reads lat/lon/alt query parameters; alt is optional.
// Range validation happens in the planner so the error taxonomy stays in
// one place; only syntax is checked here.
func parseLocation(w http.ResponseWriter, lat, lon, alt string) (planner.ObserverLocation, bool) {
	latDeg, err := strconv.ParseFloat(lat, 64)
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, "lat must be a number")
		return planner.ObserverLocation{}, false
	}
	lonDeg, err := strconv.ParseFloat(lon, 64)
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, "lon must be a number")
		return planner.ObserverLocation{}, false
	}
	var altM float64
	if alt != "" {
		altM, err = strconv.ParseFloat(alt, 64)
		if err != nil {
			writeJSONError(w, http.StatusBadRequest, "alt must be a number")
			return planner.ObserverLocation{}, false
		}
	}
	return planner.ObserverLocation{LatitudeDeg: latDeg, LongitudeDeg: lonDeg, AltitudeM: altM}, true
}

// writeError maps the error taxonomy onto HTTP statuses. The response body
// carries the full "<Kind>: reason" rendering.
func writeError(w http.ResponseWriter, logger *slog.Logger, err error) {
	status := http.StatusInternalServerError
	kind, _ := errs.KindOf(err)
	switch kind {
	case errs.InvalidInput:
		status = http.StatusBadRequest
	case errs.Parse:
		status = http.StatusNotFound
	case errs.Network:
		status = http.StatusBadGateway
	}

	if status == http.StatusInternalServerError {
		logger.Error("request failed", "error", err)
	}
	writeJSONError(w, status, err.Error())
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

func writeJSONError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// healthPath returns true for health/readiness paths that should not log at INFO.
func healthPath(path string) bool {
	return path == "/healthz" || path == "/readyz"
}

// remoteIP resolves the client address for request logs. Forwarding headers
// are honored only behind a trusted reverse proxy; anyone can set them.
func remoteIP(r *http.Request, trustProxy bool) string {
	if trustProxy {
		if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
			first, _, _ := strings.Cut(xff, ",")
			if ip := strings.TrimSpace(first); ip != "" {
				return ip
			}
		}
		if xri := strings.TrimSpace(r.Header.Get("X-Real-IP")); xri != "" {
			return xri
		}
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}

type statusRecorder struct {
	http.ResponseWriter
	statusCode int
}

func (sr *statusRecorder) WriteHeader(code int) {
	sr.statusCode = code
	sr.ResponseWriter.WriteHeader(code)
}

func loggingMiddleware(logger *slog.Logger, trustProxy bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			sr := &statusRecorder{ResponseWriter: w, statusCode: http.StatusOK}

			next.ServeHTTP(sr, r)

			duration := time.Since(start)
			level := slog.LevelInfo
			if healthPath(r.URL.Path) {
				level = slog.LevelDebug
			}

			logger.Log(r.Context(), level, "request",
				"component", "api",
				"method", r.Method,
				"path", r.URL.Path,
				"status", strconv.Itoa(sr.statusCode),
				"duration_ms", duration.Milliseconds(),
				"remote_ip", remoteIP(r, trustProxy),
			)
		})
	}
}
