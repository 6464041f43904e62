package render

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/sync/singleflight"

	qerrors "github.com/Kevin-nav/AskTheSage/server/internal/errors"
	"github.com/Kevin-nav/AskTheSage/store/cache"
)

// CacheConfig holds the render cache configuration.
type CacheConfig struct {
	// FastTierSize bounds the in-process tier (default: 512).
	FastTierSize int
	// FastTierTTL expires fast-tier entries; the durable tier is the
	// source of truth, so expiry only costs a lookup (default: 1 hour).
	FastTierTTL time.Duration
	// RenderTimeout bounds a single external render call (default: 30s).
	RenderTimeout time.Duration
}

// Options controls a single GetOrRender call.
type Options struct {
	// ForceRender skips both cache tiers and re-renders even on a hit.
	ForceRender bool
}

// Cache is the content-addressed render cache. It guarantees at most one
// concurrent render per content hash: concurrent callers for the same hash
// wait on a single flight and share its result or failure, while different
// hashes proceed independently.
type Cache struct {
	fast     *cache.Cache
	durable  DurableStore
	renderer Renderer
	flight   singleflight.Group
	timeout  time.Duration
}

// NewCache creates a render cache around an external renderer and durable
// store.
func NewCache(renderer Renderer, durable DurableStore, config CacheConfig) *Cache {
	if config.FastTierSize <= 0 {
		config.FastTierSize = 512
	}
	if config.FastTierTTL <= 0 {
		config.FastTierTTL = time.Hour
	}
	if config.RenderTimeout <= 0 {
		config.RenderTimeout = 30 * time.Second
	}

	return &Cache{
		fast: cache.New(cache.Config{
			MaxItems:   config.FastTierSize,
			DefaultTTL: config.FastTierTTL,
		}),
		durable:  durable,
		renderer: renderer,
		timeout:  config.RenderTimeout,
	}
}

// Close releases the fast tier. Durable entries are unaffected.
func (c *Cache) Close() {
	c.fast.Close()
}

// GetOrRender returns the artifact reference for the content, rendering at
// most once per hash across concurrent callers. Render failures are
// returned to every waiter and never cached, so a later call retries.
func (c *Cache) GetOrRender(ctx context.Context, content Content, opts Options) (string, error) {
	hash, err := Hash(content)
	if err != nil {
		return "", err
	}

	if !opts.ForceRender {
		// Fast tier first: cheapest path.
		if ref, ok := c.fast.Get(ctx, hash); ok {
			return ref.(string), nil
		}

		// Durable tier: on hit, promote to the fast tier.
		ref, err := c.durable.Get(ctx, hash)
		if err != nil {
			return "", qerrors.StoreUnavailable("durable tier lookup failed", err)
		}
		if ref != "" {
			c.fast.Set(ctx, hash, ref)
			return ref, nil
		}
	}

	// Per-hash exclusive section: the winner renders, everyone else waits
	// for its result. singleflight forgets the key once the call returns,
	// so failures are not cached as absence.
	v, err, shared := c.flight.Do(hash, func() (any, error) {
		if !opts.ForceRender {
			// A previous flight may have completed between our durable
			// miss and winning the section.
			if ref, ok := c.fast.Get(ctx, hash); ok {
				return ref.(string), nil
			}
		}
		return c.renderAndStore(ctx, hash, content)
	})
	if err != nil {
		return "", err
	}
	if shared {
		slog.Debug("render shared across waiters", "content_hash", hash)
	}
	return v.(string), nil
}

// Invalidate drops a hash from both tiers. Called when content changes.
func (c *Cache) Invalidate(ctx context.Context, hash string) error {
	c.fast.Delete(ctx, hash)
	return c.durable.Delete(ctx, hash)
}

func (c *Cache) renderAndStore(ctx context.Context, hash string, content Content) (string, error) {
	start := time.Now()

	renderCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	data, err := c.renderer.Render(renderCtx, content)
	if err != nil {
		if renderCtx.Err() != nil {
			slog.Warn("render timed out", "content_hash", hash, "timeout", c.timeout)
			return "", qerrors.RenderTimeout("renderer exceeded deadline", err)
		}
		slog.Warn("render failed", "content_hash", hash, "error", err)
		return "", qerrors.RenderFailed("renderer returned an error", err)
	}

	// Write-through: durable tier first, then the fast tier, so no caller
	// ever sees a fast-tier reference that the durable tier cannot back.
	ref, err := c.durable.Put(ctx, hash, data)
	if err != nil {
		return "", qerrors.StoreUnavailable("durable tier write failed", err)
	}
	c.fast.Set(ctx, hash, ref)

	slog.Info("rendered artifact",
		"content_hash", hash,
		"bytes", len(data),
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return ref, nil
}
