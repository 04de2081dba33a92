package cache

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"
)

// DefaultTTL is how long an envelope stays valid after it was written.
const DefaultTTL = time.Hour

// Envelope is the persisted form of a cached payload.
type Envelope[T any] struct {
	Payload   T     `json:"payload"`
	Timestamp int64 `json:"timestamp"` // epoch ms
}

// WrittenAt returns the envelope timestamp as a time.
func (e Envelope[T]) WrittenAt() time.Time {
	return time.UnixMilli(e.Timestamp)
}

// Fresh reports whether an envelope written at ts (epoch ms) is still valid at now.
func Fresh(ts int64, now time.Time, ttl time.Duration) bool {
	return now.UnixMilli()-ts < ttl.Milliseconds()
}

// Status describes the state of one cache slot.
type Status struct {
	HasData           bool  `json:"has_data"`
	IsValid           bool  `json:"is_valid"`
	Timestamp         int64 `json:"timestamp,omitempty"`
	TimeUntilExpiryMs int64 `json:"time_until_expiry_ms"`
}

// Options configures a Store.
type Options struct {
	TTL time.Duration
	Now func() time.Time
}

// Store reads and writes typed envelopes over a Backend.
type Store[T any] struct {
	backend Backend
	ttl     time.Duration
	now     func() time.Time
}

// NewStore creates a Store over backend. Zero-valued options fall back to
// DefaultTTL and time.Now.
func NewStore[T any](backend Backend, opts Options) *Store[T] {
	s := &Store[T]{backend: backend, ttl: opts.TTL, now: opts.Now}
	if s.ttl <= 0 {
		s.ttl = DefaultTTL
	}
	if s.now == nil {
		s.now = time.Now
	}
	return s
}

// TTL returns the validity window used by the store.
func (s *Store[T]) TTL() time.Duration { return s.ttl }

// Read returns the envelope stored under key if it is present and fresh.
// Stale and corrupt envelopes are purged and reported as absent.
func (s *Store[T]) Read(ctx context.Context, key string) (*Envelope[T], bool) {
	env, fresh := s.Lookup(ctx, key)
	if !fresh {
		return nil, false
	}
	return env, true
}

// Lookup returns whatever envelope is stored under key and whether it is fresh.
// A stale envelope is deleted from the backend but still returned so callers
// can serve it when the upstream is unavailable. Corrupt envelopes are purged
// and reported as absent.
func (s *Store[T]) Lookup(ctx context.Context, key string) (*Envelope[T], bool) {
	env, err := s.load(ctx, key)
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			slog.Debug("cache read failed", "key", key, "error", err)
		}
		return nil, false
	}

	if !Fresh(env.Timestamp, s.now(), s.ttl) {
		slog.Debug("cache entry expired", "key", key, "written_at", env.WrittenAt())
		s.purge(ctx, key)
		return env, false
	}
	return env, true
}

// Write stores payload under key with the current timestamp.
// Failures are logged and never returned.
func (s *Store[T]) Write(ctx context.Context, key string, payload T) {
	env := Envelope[T]{Payload: payload, Timestamp: s.now().UnixMilli()}
	data, err := json.Marshal(env)
	if err != nil {
		slog.Warn("cache encode failed", "key", key, "error", err)
		return
	}
	if err := s.backend.Set(ctx, key, data); err != nil {
		slog.Warn("cache write failed", "key", key, "bytes", len(data), "error", err)
	}
}

// Invalidate deletes the envelope stored under key.
func (s *Store[T]) Invalidate(ctx context.Context, key string) error {
	if err := s.backend.Delete(ctx, key); err != nil {
		return err
	}
	slog.Debug("cache invalidated", "key", key)
	return nil
}

// Status reports whether key holds data and how long it stays valid.
// Stale envelopes are left in place.
func (s *Store[T]) Status(ctx context.Context, key string) Status {
	env, err := s.load(ctx, key)
	if err != nil {
		return Status{}
	}
	remaining := s.ttl.Milliseconds() - (s.now().UnixMilli() - env.Timestamp)
	if remaining < 0 {
		remaining = 0
	}
	return Status{
		HasData:           true,
		IsValid:           remaining > 0,
		Timestamp:         env.Timestamp,
		TimeUntilExpiryMs: remaining,
	}
}

func (s *Store[T]) load(ctx context.Context, key string) (*Envelope[T], error) {
	data, err := s.backend.Get(ctx, key)
	if err != nil {
		return nil, err
	}

	var env Envelope[T]
	if err := json.Unmarshal(data, &env); err != nil || env.Timestamp <= 0 {
		slog.Warn("cache envelope corrupt, purging", "key", key, "error", err)
		s.purge(ctx, key)
		return nil, errCorrupt
	}
	return &env, nil
}

func (s *Store[T]) purge(ctx context.Context, key string) {
	if err := s.backend.Delete(ctx, key); err != nil {
		slog.Warn("cache purge failed", "key", key, "error", err)
	}
}

var errCorrupt = errors.New("cache: corrupt envelope")
