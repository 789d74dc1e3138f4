package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/AngelCh415/strategy-engine/internal/models"
)

const cachePrefix = "strategy-engine:"

// CachedStore is a read-through Redis cache in front of another MetricsStore.
// Writes always go to the inner store. A Redis failure on read degrades to
// the inner store instead of failing the call.
type CachedStore struct {
	inner MetricsStore
	rdb   *redis.Client
	ttl   time.Duration
	log   *slog.Logger
}

func NewCachedStore(inner MetricsStore, rdb *redis.Client, ttl time.Duration, log *slog.Logger) *CachedStore {
	if log == nil {
		log = slog.Default()
	}
	return &CachedStore{inner: inner, rdb: rdb, ttl: ttl, log: log}
}

func rangeKey(kind string, from, to time.Time) string {
	return cachePrefix + kind + ":" + day(from).Format("2006-01-02") + ":" + day(to).Format("2006-01-02")
}

func (c *CachedStore) FetchMeasurements(ctx context.Context, from, to time.Time) ([]models.Measurement, error) {
	key := rangeKey("measurements", from, to)
	var rows []models.Measurement
	if c.get(ctx, key, &rows) {
		return rows, nil
	}
	rows, err := c.inner.FetchMeasurements(ctx, from, to)
	if err != nil {
		return nil, err
	}
	c.set(ctx, key, rows)
	return rows, nil
}

func (c *CachedStore) FetchAggregatedBySource(ctx context.Context, from, to time.Time) (map[string]models.AggregatedSourceMetrics, error) {
	key := rangeKey("aggregated", from, to)
	var aggs map[string]models.AggregatedSourceMetrics
	if c.get(ctx, key, &aggs) {
		return aggs, nil
	}
	aggs, err := c.inner.FetchAggregatedBySource(ctx, from, to)
	if err != nil {
		return nil, err
	}
	c.set(ctx, key, aggs)
	return aggs, nil
}

func (c *CachedStore) PersistStrategy(ctx context.Context, r models.StrategyResult) (models.StrategyResult, error) {
	return c.inner.PersistStrategy(ctx, r)
}

// InsertMeasurements writes through and drops every cached range.
func (c *CachedStore) InsertMeasurements(ctx context.Context, rows []models.Measurement) (int, error) {
	w, ok := c.inner.(MeasurementWriter)
	if !ok {
		return 0, errors.New("inner store does not accept measurements")
	}
	n, err := w.InsertMeasurements(ctx, rows)
	if err != nil {
		return n, err
	}
	if err := c.Invalidate(ctx); err != nil {
		c.log.Warn("cache invalidate failed", slog.String("err", err.Error()))
	}
	return n, nil
}

func (c *CachedStore) Invalidate(ctx context.Context) error {
	iter := c.rdb.Scan(ctx, 0, cachePrefix+"*", 100).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("scan cache keys: %w", err)
	}
	if len(keys) == 0 {
		return nil
	}
	return c.rdb.Del(ctx, keys...).Err()
}

func (c *CachedStore) get(ctx context.Context, key string, dst any) bool {
	b, err := c.rdb.Get(ctx, key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.log.Warn("cache get failed", slog.String("key", key), slog.String("err", err.Error()))
		}
		return false
	}
	if err := json.Unmarshal(b, dst); err != nil {
		c.log.Warn("cache decode failed", slog.String("key", key), slog.String("err", err.Error()))
		return false
	}
	return true
}

func (c *CachedStore) set(ctx context.Context, key string, v any) {
	b, err := json.Marshal(v)
	if err != nil {
		return
	}
	if err := c.rdb.Set(ctx, key, b, c.ttl).Err(); err != nil {
		c.log.Warn("cache set failed", slog.String("key", key), slog.String("err", err.Error()))
	}
}
