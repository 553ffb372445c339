package provider

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/sells-group/matjip/internal/cache"
	"github.com/sells-group/matjip/internal/metrics"
	"github.com/sells-group/matjip/internal/model"
)

// cacheKey hashes the lookup parameters into a stable cache key.
func cacheKey(kind string, parts ...any) string {
	h := sha256.New()
	for _, p := range parts {
		fmt.Fprintf(h, "%v\x00", p)
	}
	return kind + ":" + hex.EncodeToString(h.Sum(nil))[:32]
}

// cached runs fetch through the cache. Cache failures are logged and
// degrade to a direct fetch.
func cached[T any](ctx context.Context, c cache.Cache, ttl time.Duration, kind, key string, fetch func(context.Context) (T, error)) (T, error) {
	var v T
	hit, err := cache.GetJSON(ctx, c, key, &v)
	switch {
	case err != nil:
		zap.L().Warn("provider: cache read failed", zap.String("kind", kind), zap.Error(err))
		metrics.CacheLookups.WithLabelValues(kind, "error").Inc()
	case hit:
		metrics.CacheLookups.WithLabelValues(kind, "hit").Inc()
		return v, nil
	default:
		metrics.CacheLookups.WithLabelValues(kind, "miss").Inc()
	}

	v, err = fetch(ctx)
	if err != nil {
		return v, err
	}
	if err := cache.SetJSON(ctx, c, key, v, ttl); err != nil {
		zap.L().Warn("provider: cache write failed", zap.String("kind", kind), zap.Error(err))
	}
	return v, nil
}

// CachedListings decorates a ListingSearchProvider with a response cache.
type CachedListings struct {
	next  ListingSearchProvider
	cache cache.Cache
	ttl   time.Duration
}

// NewCachedListings wraps next.
func NewCachedListings(next ListingSearchProvider, c cache.Cache, ttl time.Duration) *CachedListings {
	return &CachedListings{next: next, cache: c, ttl: ttl}
}

// Provider implements ListingSearchProvider.
func (c *CachedListings) Provider() model.Provider { return c.next.Provider() }

// SearchListings implements ListingSearchProvider.
func (c *CachedListings) SearchListings(ctx context.Context, query string, q ListingQuery) ([]model.ProviderListing, error) {
	key := cacheKey("listings", c.next.Provider(), query, q.Category, q.Size, q.Lat, q.Lng, q.Radius)
	return cached(ctx, c.cache, c.ttl, "listings", key, func(ctx context.Context) ([]model.ProviderListing, error) {
		return c.next.SearchListings(ctx, query, q)
	})
}

// CachedDetails decorates a DetailProvider with a response cache. A
// confirmed no-match is cached too.
type CachedDetails struct {
	next  DetailProvider
	cache cache.Cache
	ttl   time.Duration
}

// NewCachedDetails wraps next.
func NewCachedDetails(next DetailProvider, c cache.Cache, ttl time.Duration) *CachedDetails {
	return &CachedDetails{next: next, cache: c, ttl: ttl}
}

// LookupDetail implements DetailProvider.
func (c *CachedDetails) LookupDetail(ctx context.Context, q DetailQuery) (*model.DetailRecord, error) {
	key := cacheKey("details", q.Name, q.Address, q.Lat, q.Lng)
	return cached(ctx, c.cache, c.ttl, "details", key, func(ctx context.Context) (*model.DetailRecord, error) {
		return c.next.LookupDetail(ctx, q)
	})
}

// PhotoURL implements DetailProvider.
func (c *CachedDetails) PhotoURL(ref string, maxWidth int) string {
	return c.next.PhotoURL(ref, maxWidth)
}

// CachedText decorates a TextSource with a response cache.
type CachedText struct {
	name  string
	next  TextSource
	cache cache.Cache
	ttl   time.Duration
}

// NewCachedText wraps next. name separates sources sharing one cache.
func NewCachedText(name string, next TextSource, c cache.Cache, ttl time.Duration) *CachedText {
	return &CachedText{name: name, next: next, cache: c, ttl: ttl}
}

// Search implements TextSource.
func (c *CachedText) Search(ctx context.Context, query, pageToken string) (TextPage, error) {
	key := cacheKey("text", c.name, query, pageToken)
	return cached(ctx, c.cache, c.ttl, "text", key, func(ctx context.Context) (TextPage, error) {
		return c.next.Search(ctx, query, pageToken)
	})
}
