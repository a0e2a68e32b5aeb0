package tle

import (
	"context"
	"log/slog"
	"sync"

	"github.com/pauladam316/overpass-planner/internal/cache"
	"github.com/pauladam316/overpass-planner/internal/errs"
	"github.com/pauladam316/overpass-planner/internal/metrics"
)

// Client resolves NORAD ids to validated TLE records, preferring the on-disk
// catalog cache and falling back to a network refresh.
type Client struct {
	store   *cache.Store
	fetcher *Fetcher
	logger  *slog.Logger

	mu sync.Mutex // serializes network refreshes
}

// NewClient wires a catalog client from a cache store and a fetcher.
func NewClient(store *cache.Store, fetcher *Fetcher, logger *slog.Logger) *Client {
	return &Client{
		store:   store,
		fetcher: fetcher,
		logger:  logger,
	}
}

// FetchTLE resolves noradID to a TLE record.
//
// A fresh cache that contains the id serves the request directly. A stale or
// unreadable cache, or an id missing from the cached listing, triggers a
// network refresh followed by a second parse. Cache failures degrade to a
// miss and never surface to the caller.
func (c *Client) FetchTLE(ctx context.Context, noradID int) (TLE, error) {
	if noradID <= 0 {
		return TLE{}, errs.Errorf(errs.InvalidInput, "NORAD id must be positive, got %d", noradID)
	}

	if c.store.IsValid() {
		blob, err := c.store.Read()
		if err != nil {
			c.logger.Warn("catalog cache read failed, refreshing", "error", err)
		} else if t, err := FindByID(noradID, blob); err == nil {
			metrics.IncTLEFetch("cache", "ok")
			return t, nil
		} else if !errs.IsKind(err, errs.Parse) {
			// A malformed record for this id is worth a refresh too, but note it.
			c.logger.Warn("cached record rejected, refreshing", "norad_id", noradID, "error", err)
		}
	}

	blob, err := c.refresh(ctx)
	if err != nil {
		metrics.IncTLEFetch("network", "error")
		return TLE{}, err
	}
	metrics.IncTLEFetch("network", "ok")

	t, err := FindByID(noradID, blob)
	if err != nil {
		return TLE{}, err
	}
	return t, nil
}

// SatelliteName returns the catalog name associated with noradID.
func (c *Client) SatelliteName(ctx context.Context, noradID int) (string, error) {
	t, err := c.FetchTLE(ctx, noradID)
	if err != nil {
		return "", err
	}
	return t.Name, nil
}

// refresh downloads the catalog and rewrites the cache. A failed cache write
// is logged and ignored; the freshly fetched blob still serves the request.
func (c *Client) refresh(ctx context.Context) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	blob, err := c.fetcher.Fetch(ctx)
	if err != nil {
		return nil, err
	}

	if err := c.store.Write(blob); err != nil {
		c.logger.Warn("catalog cache write failed", "error", err)
	}

	return blob, nil
}
