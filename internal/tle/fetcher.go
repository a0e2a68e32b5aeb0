package tle

import (
	"context"
	"io"
	"net/http"
	"time"

	"github.com/pauladam316/overpass-planner/internal/errs"
)

// DefaultSourceURL is the upstream active-satellite catalog listing.
const DefaultSourceURL = "https://celestrak.org/NORAD/elements/gp.php?GROUP=active&FORMAT=TLE"

const (
	fetchTimeout = 30 * time.Second

	// maxBodyBytes bounds the catalog download. The full active listing is
	// a few MB; anything near this limit is a misbehaving upstream.
	maxBodyBytes = 50 << 20
)

// Fetcher retrieves the raw catalog listing from a remote source.
type Fetcher struct {
	sourceURL  string
	httpClient *http.Client
}

// NewFetcher creates a Fetcher for the given source URL. An empty URL selects
// DefaultSourceURL.
func NewFetcher(sourceURL string) *Fetcher {
	if sourceURL == "" {
		sourceURL = DefaultSourceURL
	}
	return &Fetcher{
		sourceURL: sourceURL,
		httpClient: &http.Client{
			Timeout: fetchTimeout,
		},
	}
}

// SourceURL returns the configured source URL.
func (f *Fetcher) SourceURL() string {
	return f.sourceURL
}

// Fetch performs an HTTP GET for the catalog listing. Transport failures and
// non-2xx statuses surface as NetworkError.
func (f *Fetcher) Fetch(ctx context.Context) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.sourceURL, nil)
	if err != nil {
		return nil, errs.Errorf(errs.Network, "creating catalog request: %w", err)
	}

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return nil, errs.Errorf(errs.Network, "fetching catalog: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode/100 != 2 {
		return nil, errs.Errorf(errs.Network, "unexpected status %d from %s", resp.StatusCode, f.sourceURL)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes+1))
	if err != nil {
		return nil, errs.Errorf(errs.Network, "reading catalog body: %w", err)
	}
	if len(body) > maxBodyBytes {
		return nil, errs.Errorf(errs.Network, "catalog response exceeds %d byte limit", maxBodyBytes)
	}

	return body, nil
}
