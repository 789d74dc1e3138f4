package store

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AngelCh415/strategy-engine/internal/models"
)

// countingStore counts reads that reach the inner store.
type countingStore struct {
	*MemoryStore
	measurementReads int
	aggregatedReads  int
}

func (c *countingStore) FetchMeasurements(ctx context.Context, from, to time.Time) ([]models.Measurement, error) {
	c.measurementReads++
	return c.MemoryStore.FetchMeasurements(ctx, from, to)
}

func (c *countingStore) FetchAggregatedBySource(ctx context.Context, from, to time.Time) (map[string]models.AggregatedSourceMetrics, error) {
	c.aggregatedReads++
	return c.MemoryStore.FetchAggregatedBySource(ctx, from, to)
}

func setupCache(t *testing.T) (*CachedStore, *countingStore, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })

	inner := &countingStore{MemoryStore: NewMemoryStore()}
	inner.Upsert(models.Measurement{Source: "google", CampaignID: "C-1", Date: d("2025-08-01"), Clicks: 10, Impressions: 1000, Cost: 5})
	return NewCachedStore(inner, rdb, time.Minute, nil), inner, mr
}

func TestCachedStoreReadThrough(t *testing.T) {
	c, inner, mr := setupCache(t)
	ctx := context.Background()
	from, to := d("2025-08-01"), d("2025-08-02")

	first, err := c.FetchMeasurements(ctx, from, to)
	require.NoError(t, err)
	second, err := c.FetchMeasurements(ctx, from, to)
	require.NoError(t, err)

	assert.Equal(t, 1, inner.measurementReads)
	require.Len(t, second, 1)
	assert.Equal(t, first[0].Clicks, second[0].Clicks)
	assert.True(t, first[0].Date.Equal(second[0].Date))
	assert.True(t, mr.Exists(rangeKey("measurements", from, to)))

	_, err = c.FetchAggregatedBySource(ctx, from, to)
	require.NoError(t, err)
	aggs, err := c.FetchAggregatedBySource(ctx, from, to)
	require.NoError(t, err)
	assert.Equal(t, 1, inner.aggregatedReads)
	assert.Equal(t, 10, aggs["google"].TotalClicks)
}

func TestCachedStoreExpires(t *testing.T) {
	c, inner, mr := setupCache(t)
	ctx := context.Background()
	_, err := c.FetchMeasurements(ctx, d("2025-08-01"), d("2025-08-02"))
	require.NoError(t, err)

	mr.FastForward(2 * time.Minute)
	_, err = c.FetchMeasurements(ctx, d("2025-08-01"), d("2025-08-02"))
	require.NoError(t, err)
	assert.Equal(t, 2, inner.measurementReads)
}

func TestCachedStoreInsertInvalidates(t *testing.T) {
	c, inner, _ := setupCache(t)
	ctx := context.Background()
	from, to := d("2025-08-01"), d("2025-08-02")

	_, err := c.FetchMeasurements(ctx, from, to)
	require.NoError(t, err)

	n, err := c.InsertMeasurements(ctx, []models.Measurement{{Source: "vk", Date: d("2025-08-02"), Clicks: 1, Impressions: 10, Cost: 1}})
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	rows, err := c.FetchMeasurements(ctx, from, to)
	require.NoError(t, err)
	assert.Equal(t, 2, inner.measurementReads)
	assert.Len(t, rows, 2)
}

func TestCachedStoreFallsBackWhenRedisDown(t *testing.T) {
	c, inner, mr := setupCache(t)
	mr.Close()

	rows, err := c.FetchMeasurements(context.Background(), d("2025-08-01"), d("2025-08-02"))
	require.NoError(t, err)
	assert.Len(t, rows, 1)
	assert.Equal(t, 1, inner.measurementReads)
}

func TestCachedStorePersistPassesThrough(t *testing.T) {
	c, inner, _ := setupCache(t)
	r, err := c.PersistStrategy(context.Background(), models.StrategyResult{Source: "google"})
	require.NoError(t, err)
	assert.Equal(t, int64(1), r.ID)
	assert.Len(t, inner.Strategies(), 1)
}
