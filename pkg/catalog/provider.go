package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/healthpredictor/platform/pkg/common/logger"
	"github.com/healthpredictor/platform/pkg/observability/metrics"
	"github.com/redis/go-redis/v9"
)

const snapshotCacheKey = "catalog:snapshot:v1"

type Loader interface {
	LoadSnapshot(ctx context.Context) (*Snapshot, error)
}

// Provider hands out catalog snapshots, caching the serialized catalog in
// Redis. A nil cache, or an unreachable one, falls through to the loader.
type Provider struct {
	loader Loader
	cache  redis.Cmdable
	ttl    time.Duration
}

func NewProvider(loader Loader, cache redis.Cmdable, ttl time.Duration) *Provider {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &Provider{loader: loader, cache: cache, ttl: ttl}
}

func (p *Provider) Snapshot(ctx context.Context) (*Snapshot, error) {
	if p.cache != nil {
		if snap, ok := p.fromCache(ctx); ok {
			metrics.ObserveCatalogCache(true)
			return snap, nil
		}
	}
	metrics.ObserveCatalogCache(false)

	snap, err := p.loader.LoadSnapshot(ctx)
	if err != nil {
		return nil, err
	}

	if p.cache != nil {
		payload, err := json.Marshal(snap)
		if err == nil {
			err = p.cache.Set(ctx, snapshotCacheKey, payload, p.ttl).Err()
		}
		if err != nil {
			logger.Log.WithError(err).Warn("Failed to cache catalog snapshot")
		}
	}
	return snap, nil
}

func (p *Provider) fromCache(ctx context.Context) (*Snapshot, bool) {
	raw, err := p.cache.Get(ctx, snapshotCacheKey).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			logger.Log.WithError(err).Warn("Catalog cache unavailable")
		}
		return nil, false
	}
	var snap Snapshot
	if err := json.Unmarshal(raw, &snap); err != nil {
		logger.Log.WithError(err).Warn("Discarding undecodable catalog snapshot")
		return nil, false
	}
	return &snap, true
}

// Invalidate drops the cached snapshot so the next call reloads the catalog.
func (p *Provider) Invalidate(ctx context.Context) error {
	if p.cache == nil {
		return nil
	}
	return p.cache.Del(ctx, snapshotCacheKey).Err()
}
