package places

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/MikeSquared-Agency/Vantage/internal/cache"
	"github.com/MikeSquared-Agency/Vantage/internal/metrics"
)

// CachedClient wraps a Client with cache-aside lookups keyed by a hash of the
// query parameters. Cache failures fall through to the wrapped client.
type CachedClient struct {
	next   Client
	cache  cache.Cache
	ttl    time.Duration
	logger *slog.Logger
}

func NewCachedClient(next Client, c cache.Cache, ttl time.Duration, logger *slog.Logger) *CachedClient {
	return &CachedClient{next: next, cache: c, ttl: ttl, logger: logger}
}

func lookupKey(lat, lng float64, category string, radiusMeters int) string {
	return cache.Key("places",
		strconv.FormatFloat(lat, 'f', 6, 64),
		strconv.FormatFloat(lng, 'f', 6, 64),
		category,
		strconv.Itoa(radiusMeters),
	)
}

func (c *CachedClient) SearchNearby(ctx context.Context, lat, lng float64, category string, radiusMeters int) ([]Place, error) {
	key := lookupKey(lat, lng, category, radiusMeters)

	data, ok, err := c.cache.Get(ctx, key)
	if err != nil {
		c.logger.Warn("places cache get failed", "error", err)
	}
	if ok {
		var cached []Place
		if err := json.Unmarshal(data, &cached); err == nil {
			metrics.LookupCache.WithLabelValues("places", "hit").Inc()
			return cached, nil
		}
		c.logger.Warn("discarding undecodable places cache entry", "key", key)
	}
	metrics.LookupCache.WithLabelValues("places", "miss").Inc()

	result, err := c.next.SearchNearby(ctx, lat, lng, category, radiusMeters)
	if err != nil {
		return nil, err
	}

	raw, err := json.Marshal(result)
	if err != nil {
		return nil, fmt.Errorf("places: encode cache entry: %w", err)
	}
	if err := c.cache.Set(ctx, key, raw, c.ttl); err != nil {
		c.logger.Warn("places cache set failed", "error", err)
	}
	return result, nil
}
