// Package fetch retrieves the upstream model listing through a TTL cache.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/everstacklabs/modelmeter/internal/cache"
	"github.com/everstacklabs/modelmeter/internal/catalog"
	"github.com/everstacklabs/modelmeter/internal/httpclient"
	"github.com/everstacklabs/modelmeter/internal/validate"
)

// Getter performs HTTP GETs. *httpclient.Client satisfies it.
type Getter interface {
	Get(ctx context.Context, url string, headers map[string]string) (*httpclient.Response, error)
}

// UpstreamError reports a listing request that failed after retries, or a
// response body that could not be decoded.
type UpstreamError struct {
	URL        string
	StatusCode int // 0 when no response was received
	// Stale is set when previously cached entries were returned with the error.
	Stale bool
	Err   error
}

func (e *UpstreamError) Error() string {
	msg := fmt.Sprintf("upstream %s", e.URL)
	if e.StatusCode != 0 {
		msg += fmt.Sprintf(" (status %d)", e.StatusCode)
	}
	msg += ": " + e.Err.Error()
	if e.Stale {
		msg += " (serving cached data)"
	}
	return msg
}

func (e *UpstreamError) Unwrap() error { return e.Err }

// Stats describes the last listing retrieved from upstream.
type Stats struct {
	Received  int       `json:"received"`
	Admitted  int       `json:"admitted"`
	Skipped   int       `json:"skipped"`
	Attempts  int       `json:"attempts"`
	FetchedAt time.Time `json:"fetched_at"`
}

// Fetcher loads one logical catalog slot. Concurrent loads of the same slot
// share a single upstream request.
type Fetcher struct {
	client Getter
	store  *cache.Store[[]catalog.Entry]
	url    string
	key    string

	group singleflight.Group

	mu    sync.Mutex
	stats Stats
}

// New creates a Fetcher for the listing at url, cached under key.
func New(client Getter, store *cache.Store[[]catalog.Entry], url, key string) *Fetcher {
	return &Fetcher{client: client, store: store, url: url, key: key}
}

// Key returns the cache key of the slot.
func (f *Fetcher) Key() string { return f.key }

// Fetch returns the cached entries when they are fresh and otherwise loads
// the listing from upstream. When the upstream fails and stale entries were
// cached, they are returned together with an *UpstreamError whose Stale
// field is set.
func (f *Fetcher) Fetch(ctx context.Context) ([]catalog.Entry, error) {
	env, fresh := f.store.Lookup(ctx, f.key)
	if fresh {
		slog.Debug("catalog served from cache", "key", f.key, "models", len(env.Payload))
		return env.Payload, nil
	}

	entries, err := f.load(ctx, true)
	if err != nil {
		if env != nil {
			return env.Payload, markStale(err)
		}
		return nil, err
	}
	return entries, nil
}

// Refresh loads the listing from upstream without consulting the cache and
// repopulates it. The cache is left untouched on failure, and any fresh
// cached entries are returned with the error.
func (f *Fetcher) Refresh(ctx context.Context) ([]catalog.Entry, error) {
	entries, err := f.load(ctx, false)
	if err != nil {
		if env, ok := f.store.Read(ctx, f.key); ok {
			return env.Payload, markStale(err)
		}
		return nil, err
	}
	return entries, nil
}

// Cached returns the entries held in the cache when they are fresh, without
// contacting upstream.
func (f *Fetcher) Cached(ctx context.Context) ([]catalog.Entry, bool) {
	env, ok := f.store.Read(ctx, f.key)
	if !ok {
		return nil, false
	}
	return env.Payload, true
}

// Invalidate clears the slot.
func (f *Fetcher) Invalidate(ctx context.Context) error {
	if err := f.store.Invalidate(ctx, f.key); err != nil {
		return fmt.Errorf("invalidating %s: %w", f.key, err)
	}
	return nil
}

// Status reports the cache state of the slot.
func (f *Fetcher) Status(ctx context.Context) cache.Status {
	return f.store.Status(ctx, f.key)
}

// LastStats returns statistics for the most recent upstream load.
func (f *Fetcher) LastStats() Stats {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.stats
}

// load runs one upstream request per slot at a time. With useCache set, a
// caller that joins after another load finished is served from the cache.
func (f *Fetcher) load(ctx context.Context, useCache bool) ([]catalog.Entry, error) {
	flight := "refresh:" + f.key
	if useCache {
		flight = "fetch:" + f.key
	}
	v, err, shared := f.group.Do(flight, func() (any, error) {
		if useCache {
			if env, ok := f.store.Read(ctx, f.key); ok {
				return env.Payload, nil
			}
		}
		return f.fetchUpstream(ctx)
	})
	if shared {
		slog.Debug("catalog load coalesced", "key", f.key)
	}
	if err != nil {
		return nil, err
	}
	return v.([]catalog.Entry), nil
}

func (f *Fetcher) fetchUpstream(ctx context.Context) ([]catalog.Entry, error) {
	resp, err := f.client.Get(ctx, f.url, nil)
	if err != nil {
		ue := &UpstreamError{URL: f.url, Err: err}
		var se *httpclient.StatusError
		if errors.As(err, &se) {
			ue.StatusCode = se.StatusCode
		}
		slog.Warn("catalog fetch failed", "key", f.key, "url", f.url, "status", ue.StatusCode, "error", err)
		return nil, ue
	}

	listing, err := catalog.ParseListing(resp.Body)
	if err != nil {
		slog.Warn("catalog response unparsable", "key", f.key, "url", f.url, "error", err)
		return nil, &UpstreamError{URL: f.url, StatusCode: resp.StatusCode, Err: err}
	}

	entries := make([]catalog.Entry, 0, len(listing.Entries))
	skipped := listing.Malformed
	for i := range listing.Entries {
		raw := &listing.Entries[i]
		if r := validate.Entry(raw, i); r.HasErrors() {
			skipped++
			slog.Debug("catalog entry skipped", "key", f.key, "id", raw.DisplayID(i), "reason", r.Errors()[0].String())
			continue
		}
		entries = append(entries, raw.Strict())
	}

	f.store.Write(ctx, f.key, entries)

	stats := Stats{
		Received:  len(listing.Entries) + listing.Malformed,
		Admitted:  len(entries),
		Skipped:   skipped,
		Attempts:  resp.Attempts,
		FetchedAt: time.Now(),
	}
	f.mu.Lock()
	f.stats = stats
	f.mu.Unlock()

	slog.Info("catalog fetched", "key", f.key, "admitted", stats.Admitted, "skipped", stats.Skipped, "attempts", stats.Attempts)
	return entries, nil
}

func markStale(err error) error {
	var ue *UpstreamError
	if errors.As(err, &ue) {
		stale := *ue
		stale.Stale = true
		return &stale
	}
	return err
}
