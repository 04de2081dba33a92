package pipeline

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/everstacklabs/modelmeter/internal/cache"
	"github.com/everstacklabs/modelmeter/internal/catalog"
	"github.com/everstacklabs/modelmeter/internal/config"
	"github.com/everstacklabs/modelmeter/internal/httpclient"
	"github.com/everstacklabs/modelmeter/internal/validate"
)

// Open builds a Pipeline from configuration: the cache backend, the upstream
// client and the curated dataset. The returned close function releases the
// backend.
func Open(ctx context.Context, cfg *config.Config) (*Pipeline, func() error, error) {
	backend, closeFn, err := OpenBackend(ctx, cfg.Cache)
	if err != nil {
		return nil, nil, err
	}

	static, err := catalog.LoadStatic(cfg.StaticPath)
	if err != nil {
		_ = closeFn()
		return nil, nil, err
	}
	if r := validate.Static(static); r.HasErrors() {
		_ = closeFn()
		return nil, nil, fmt.Errorf("static dataset invalid:\n%s", validate.FormatResult(r))
	} else if w := r.Warnings(); len(w) > 0 {
		slog.Warn("static dataset has warnings", "count", len(w))
	}

	client := httpclient.New(
		httpclient.WithTimeout(cfg.HTTP.Timeout),
		httpclient.WithRateLimit(cfg.HTTP.RateLimit),
		httpclient.WithRetry(cfg.HTTP.MaxAttempts, cfg.HTTP.MaxBackoff),
		httpclient.WithUserAgent("modelmeter"),
	)

	p := New(Config{
		Client:     client,
		Store:      cache.NewStore[[]catalog.Entry](backend, cache.Options{TTL: cfg.Cache.TTL}),
		ListingURL: cfg.ListingURL,
		Static:     static,
	})
	return p, closeFn, nil
}

// OpenBackend creates the configured cache backend.
func OpenBackend(ctx context.Context, cfg config.CacheConfig) (cache.Backend, func() error, error) {
	noop := func() error { return nil }
	switch cfg.Backend {
	case "memory":
		return cache.NewMemoryBackend(cfg.MaxBytes), noop, nil
	case "redis":
		rb, err := cache.NewRedisBackend(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err != nil {
			return nil, nil, err
		}
		return rb, rb.Close, nil
	case "file", "":
		fb, err := cache.NewFileBackend(cfg.Dir)
		if err != nil {
			return nil, nil, err
		}
		return fb, noop, nil
	default:
		return nil, nil, fmt.Errorf("unsupported cache backend: %s", cfg.Backend)
	}
}
