package cache

import (
	"context"
	"errors"
)

// ErrNotFound is returned by a Backend when the key has no value.
var ErrNotFound = errors.New("cache: key not found")

// ErrQuotaExceeded is returned by a Backend that refuses a write because it is full.
var ErrQuotaExceeded = errors.New("cache: quota exceeded")

// Backend is the persisted key-value area envelopes live in.
// Values are opaque serialized text; TTL handling happens in Store.
type Backend interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
}
