package cache

import (
	"context"
	"errors"
	"os"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type clock struct{ t time.Time }

func (c *clock) now() time.Time { return c.t }

func newTestStore(t *testing.T, b Backend) (*Store[[]string], *clock) {
	t.Helper()
	c := &clock{t: time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)}
	return NewStore[[]string](b, Options{TTL: time.Hour, Now: c.now}), c
}

func TestStoreRoundTripAndExpiry(t *testing.T) {
	backends := map[string]func(t *testing.T) Backend{
		"memory": func(t *testing.T) Backend { return NewMemoryBackend(0) },
		"file": func(t *testing.T) Backend {
			b, err := NewFileBackend(t.TempDir())
			require.NoError(t, err)
			return b
		},
	}

	for name, mk := range backends {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			b := mk(t)
			s, c := newTestStore(t, b)

			payload := []string{"openai/gpt-4o", "anthropic/claude-3.5-sonnet"}
			s.Write(ctx, "pricing", payload)

			env, ok := s.Read(ctx, "pricing")
			require.True(t, ok)
			assert.Equal(t, payload, env.Payload)
			assert.Equal(t, c.t.UnixMilli(), env.Timestamp)

			c.t = c.t.Add(59 * time.Minute)
			_, ok = s.Read(ctx, "pricing")
			assert.True(t, ok, "still valid just before TTL")

			c.t = c.t.Add(time.Minute)
			_, ok = s.Read(ctx, "pricing")
			assert.False(t, ok, "expired at exactly TTL")

			_, err := b.Get(ctx, "pricing")
			assert.ErrorIs(t, err, ErrNotFound, "stale envelope purged on read")
		})
	}
}

func TestStoreLookupReturnsStaleEnvelope(t *testing.T) {
	ctx := context.Background()
	s, c := newTestStore(t, NewMemoryBackend(0))

	s.Write(ctx, "detailed", []string{"a"})
	c.t = c.t.Add(2 * time.Hour)

	env, fresh := s.Lookup(ctx, "detailed")
	assert.False(t, fresh)
	require.NotNil(t, env)
	assert.Equal(t, []string{"a"}, env.Payload)
}

func TestStoreCorruptEnvelopeIsPurged(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{"not json", "{{{"},
		{"wrong shape", `{"payload": 5, "timestamp": 10}`},
		{"missing timestamp", `{"payload": ["a"]}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			b := NewMemoryBackend(0)
			require.NoError(t, b.Set(ctx, "comparison", []byte(tt.raw)))
			s, _ := newTestStore(t, b)

			env, ok := s.Read(ctx, "comparison")
			assert.False(t, ok)
			assert.Nil(t, env)

			_, err := b.Get(ctx, "comparison")
			assert.ErrorIs(t, err, ErrNotFound)
		})
	}
}

type failingBackend struct{ Backend }

func (failingBackend) Set(context.Context, string, []byte) error {
	return errors.New("disk full")
}

func TestStoreWriteIsBestEffort(t *testing.T) {
	ctx := context.Background()

	s, _ := newTestStore(t, failingBackend{NewMemoryBackend(0)})
	assert.NotPanics(t, func() { s.Write(ctx, "pricing", []string{"x"}) })
	_, ok := s.Read(ctx, "pricing")
	assert.False(t, ok)

	quota, _ := newTestStore(t, NewMemoryBackend(16))
	quota.Write(ctx, "pricing", []string{"a model name that does not fit"})
	_, ok = quota.Read(ctx, "pricing")
	assert.False(t, ok)
}

func TestStoreStatus(t *testing.T) {
	ctx := context.Background()
	s, c := newTestStore(t, NewMemoryBackend(0))

	assert.Equal(t, Status{}, s.Status(ctx, "pricing"))

	s.Write(ctx, "pricing", []string{"a"})
	written := c.t.UnixMilli()
	c.t = c.t.Add(15 * time.Minute)

	st := s.Status(ctx, "pricing")
	assert.True(t, st.HasData)
	assert.True(t, st.IsValid)
	assert.Equal(t, written, st.Timestamp)
	assert.Equal(t, (45 * time.Minute).Milliseconds(), st.TimeUntilExpiryMs)

	c.t = c.t.Add(time.Hour)
	st = s.Status(ctx, "pricing")
	assert.True(t, st.HasData, "status does not purge")
	assert.False(t, st.IsValid)
	assert.Zero(t, st.TimeUntilExpiryMs)

	require.NoError(t, s.Invalidate(ctx, "pricing"))
	assert.False(t, s.Status(ctx, "pricing").HasData)
}

func TestMemoryBackendQuota(t *testing.T) {
	ctx := context.Background()
	b := NewMemoryBackend(10)

	require.NoError(t, b.Set(ctx, "a", []byte("12345")))
	require.NoError(t, b.Set(ctx, "a", []byte("1234567890")), "overwrite reuses the slot's bytes")
	assert.ErrorIs(t, b.Set(ctx, "b", []byte("x")), ErrQuotaExceeded)

	require.NoError(t, b.Delete(ctx, "a"))
	assert.NoError(t, b.Set(ctx, "b", []byte("x")))
}

func TestFileBackendDeleteMissing(t *testing.T) {
	b, err := NewFileBackend(t.TempDir())
	require.NoError(t, err)
	assert.NoError(t, b.Delete(context.Background(), "never-written"))
}

func TestRedisBackend(t *testing.T) {
	addr := os.Getenv("MODELMETER_TEST_REDIS")
	if addr == "" {
		t.Skip("MODELMETER_TEST_REDIS not set")
	}

	ctx := context.Background()
	b, err := NewRedisBackend(ctx, addr, "", 0)
	require.NoError(t, err)
	defer b.Close()

	key := "modelmeter-test-" + strconv.FormatInt(time.Now().UnixNano(), 10)
	defer b.Delete(ctx, key)

	_, err = b.Get(ctx, key)
	assert.ErrorIs(t, err, ErrNotFound)

	s, _ := newTestStore(t, b)
	s.Write(ctx, key, []string{"x"})
	env, ok := s.Read(ctx, key)
	require.True(t, ok)
	assert.Equal(t, []string{"x"}, env.Payload)
}
