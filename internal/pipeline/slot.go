package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/everstacklabs/modelmeter/internal/catalog"
	"github.com/everstacklabs/modelmeter/internal/fetch"
)

// Slot names one logical catalog. Each slot has its own cache key.
type Slot string

const (
	SlotPricing    Slot = "pricing"
	SlotComparison Slot = "comparison"
	SlotDetailed   Slot = "detailed"
)

// Slots lists every logical catalog in load order.
var Slots = []Slot{SlotPricing, SlotComparison, SlotDetailed}

// ParseSlot validates a slot name.
func ParseSlot(name string) (Slot, error) {
	for _, s := range Slots {
		if string(s) == name {
			return s, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownSlot, name)
}

// slot holds the built list of one logical catalog. The list is replaced as
// a whole on every load and never patched.
type slot[T any] struct {
	name       Slot
	fetcher    *fetch.Fetcher
	build      func([]catalog.Entry) []T
	now        func() time.Time
	retryAfter time.Duration

	mu         sync.RWMutex
	items      []T
	loaded     bool
	validUntil time.Time
}

// get returns the current list, loading it first when it was never loaded or
// its cache window has passed. Items are returned even when err is non-nil.
func (s *slot[T]) get(ctx context.Context) ([]T, error) {
	s.mu.RLock()
	if s.loaded && s.now().Before(s.validUntil) {
		items := s.items
		s.mu.RUnlock()
		return items, nil
	}
	s.mu.RUnlock()

	err := s.load(ctx, false)
	return s.snapshot(), err
}

// snapshot returns the current list without loading.
func (s *slot[T]) snapshot() []T {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.items
}

// load fetches entries and rebuilds the list. On failure the previous list is
// kept; a slot that was never loaded falls back to the curated records only.
func (s *slot[T]) load(ctx context.Context, force bool) error {
	var (
		entries []catalog.Entry
		err     error
	)
	if force {
		entries, err = s.fetcher.Refresh(ctx)
	} else {
		entries, err = s.fetcher.Fetch(ctx)
	}

	validUntil := s.now().Add(s.retryAfter)
	if err == nil {
		if ms := s.fetcher.Status(ctx).TimeUntilExpiryMs; ms > 0 {
			validUntil = s.now().Add(time.Duration(ms) * time.Millisecond)
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	switch {
	case err == nil || entries != nil:
		s.items = s.build(entries)
	case !s.loaded:
		s.items = s.build(nil)
		slog.Warn("catalog unavailable, using curated records", "slot", s.name, "error", err)
	default:
		slog.Warn("catalog load failed, keeping previous list", "slot", s.name, "error", err)
	}
	s.loaded = true
	s.validUntil = validUntil

	if err != nil {
		return fmt.Errorf("%s: %w", s.name, err)
	}
	slog.Debug("catalog slot loaded", "slot", s.name, "records", len(s.items))
	return nil
}

// expire forces the next get to reload.
func (s *slot[T]) expire() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.validUntil = time.Time{}
}
