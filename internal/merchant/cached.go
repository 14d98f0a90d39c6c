package merchant

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

// CachedClient is a cache-aside wrapper around a merchant Client. Absent
// results are not cached.
type CachedClient struct {
	next   Client
	cache  cache.Cache
	ttl    time.Duration
	logger *slog.Logger
}

func NewCachedClient(next Client, c cache.Cache, ttl time.Duration, logger *slog.Logger) *CachedClient {
	return &CachedClient{next: next, cache: c, ttl: ttl, logger: logger}
}

func (c *CachedClient) Lookup(ctx context.Context, lat, lng float64, category string, radiusMeters int) (*Insights, error) {
	key := cache.Key("merchant",
		strconv.FormatFloat(lat, 'f', 6, 64),
		strconv.FormatFloat(lng, 'f', 6, 64),
		category,
		strconv.Itoa(radiusMeters),
	)

	data, ok, err := c.cache.Get(ctx, key)
	if err != nil {
		c.logger.Warn("merchant cache get failed", "error", err)
	}
	if ok {
		var in Insights
		if err := json.Unmarshal(data, &in); err == nil {
			metrics.LookupCache.WithLabelValues("merchant", "hit").Inc()
			return &in, nil
		}
	}
	metrics.LookupCache.WithLabelValues("merchant", "miss").Inc()

	in, err := c.next.Lookup(ctx, lat, lng, category, radiusMeters)
	if err != nil || in == nil {
		return in, err
	}
	raw, err := json.Marshal(in)
	if err != nil {
		return nil, fmt.Errorf("merchant: encode cache entry: %w", err)
	}
	if err := c.cache.Set(ctx, key, raw, c.ttl); err != nil {
		c.logger.Warn("merchant cache set failed", "error", err)
	}
	return in, nil
}
