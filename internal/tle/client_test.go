package tle

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strconv"
	"sync/atomic"
	"testing"
	"time"

	"github.com/pauladam316/overpass-planner/internal/cache"
	"github.com/pauladam316/overpass-planner/internal/errs"
)

var testLogger = slog.New(slog.NewJSONHandler(io.Discard, nil))

// spyServer returns a catalog server that counts requests.
func spyServer(t *testing.T, body string) (*httptest.Server, *atomic.Int64) {
	t.Helper()
	var hits atomic.Int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.Write([]byte(body))
	}))
	t.Cleanup(server.Close)
	return server, &hits
}

func newTestClient(t *testing.T, url string) (*Client, string) {
	t.Helper()
	dir := t.TempDir()
	store := cache.NewStore(dir, 0, testLogger)
	return NewClient(store, NewFetcher(url), testLogger), dir
}

// TestFetchTLECacheMissThenHit: the first call populates the cache over the
// network; the second is served from disk with no network call observed.
func TestFetchTLECacheMissThenHit(t *testing.T) {
	server, hits := spyServer(t, catalogBlob)
	client, _ := newTestClient(t, server.URL)

	got, err := client.FetchTLE(context.Background(), 25544)
	if err != nil {
		t.Fatalf("first fetch: %v", err)
	}
	if got.Name != "ISS (ZARYA)" {
		t.Errorf("name = %q", got.Name)
	}
	if hits.Load() != 1 {
		t.Fatalf("network hits after first fetch = %d, want 1", hits.Load())
	}

	if _, err := client.FetchTLE(context.Background(), 25544); err != nil {
		t.Fatalf("second fetch: %v", err)
	}
	if hits.Load() != 1 {
		t.Errorf("network hits after cached fetch = %d, want 1", hits.Load())
	}
}

// TestFetchTLEStaleCache: a timestamp older than the freshness bound forces a
// fresh network fetch.
func TestFetchTLEStaleCache(t *testing.T) {
	server, hits := spyServer(t, catalogBlob)
	client, dir := newTestClient(t, server.URL)

	if _, err := client.FetchTLE(context.Background(), 25544); err != nil {
		t.Fatal(err)
	}

	// Backdate the cache by three hours.
	old := strconv.FormatInt(time.Now().Add(-3*time.Hour).Unix(), 10)
	if err := os.WriteFile(filepath.Join(dir, "tle_cache_timestamp.txt"), []byte(old), 0o644); err != nil {
		t.Fatal(err)
	}

	if _, err := client.FetchTLE(context.Background(), 25544); err != nil {
		t.Fatal(err)
	}
	if hits.Load() != 2 {
		t.Errorf("network hits = %d, want 2 after stale cache", hits.Load())
	}
}

// TestFetchTLEIDMissingFromCache: a fresh cache without the requested id
// still triggers a refresh, and the refreshed listing serves it.
func TestFetchTLEIDMissingFromCache(t *testing.T) {
	server, hits := spyServer(t, catalogBlob)
	client, dir := newTestClient(t, server.URL)

	// Seed a fresh cache that only knows the ISS.
	store := cache.NewStore(dir, 0, testLogger)
	iss := "ISS (ZARYA)\n" +
		"1 25544U 98067A   25045.18032407  .00016717  00000+0  30099-3 0  9993\n" +
		"2 25544  51.6412 193.5765 0003457 126.2851 233.8519 15.49874301495058\n"
	if err := store.Write([]byte(iss)); err != nil {
		t.Fatal(err)
	}

	got, err := client.FetchTLE(context.Background(), 25338)
	if err != nil {
		t.Fatalf("fetch after cache miss on id: %v", err)
	}
	if got.NORADID != 25338 {
		t.Errorf("norad id = %d, want 25338", got.NORADID)
	}
	if hits.Load() != 1 {
		t.Errorf("network hits = %d, want 1", hits.Load())
	}
}

// TestFetchTLEParseErrorAfterRefresh: an id absent from the refreshed listing
// fails with ParseError naming the id.
func TestFetchTLEParseErrorAfterRefresh(t *testing.T) {
	server, _ := spyServer(t, catalogBlob)
	client, _ := newTestClient(t, server.URL)

	_, err := client.FetchTLE(context.Background(), 42)
	if err == nil {
		t.Fatal("expected error for unknown id")
	}
	if !errs.IsKind(err, errs.Parse) {
		t.Errorf("error kind = %v, want ParseError", err)
	}
}

// TestFetchTLENetworkError: transport failure with an invalid cache surfaces
// as NetworkError.
func TestFetchTLENetworkError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	client, _ := newTestClient(t, server.URL)
	_, err := client.FetchTLE(context.Background(), 25544)
	if !errs.IsKind(err, errs.Network) {
		t.Errorf("error kind = %v, want NetworkError", err)
	}
}

func TestFetchTLEInvalidID(t *testing.T) {
	client, _ := newTestClient(t, "http://127.0.0.1:0")
	_, err := client.FetchTLE(context.Background(), -1)
	if !errs.IsKind(err, errs.InvalidInput) {
		t.Errorf("error kind = %v, want InvalidInput", err)
	}
}

func TestSatelliteName(t *testing.T) {
	server, _ := spyServer(t, catalogBlob)
	client, _ := newTestClient(t, server.URL)

	name, err := client.SatelliteName(context.Background(), 25338)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if name != "NOAA 15" {
		t.Errorf("name = %q, want NOAA 15", name)
	}
}
