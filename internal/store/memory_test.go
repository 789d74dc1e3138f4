package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AngelCh415/strategy-engine/internal/models"
)

func d(s string) time.Time {
	t, _ := time.Parse("2006-01-02", s)
	return t
}

func TestMemoryStoreUpsertMergesSameKey(t *testing.T) {
	st := NewMemoryStore()
	st.Upsert(models.Measurement{Source: "google", CampaignID: "C-1", Date: d("2025-08-01").Add(5 * time.Hour), Clicks: 5, Impressions: 100, Cost: 10})
	st.Upsert(models.Measurement{Source: "google", CampaignID: "C-1", Date: d("2025-08-01"), Clicks: 5, Impressions: 100, Cost: 10})
	st.Upsert(models.Measurement{Source: "google", CampaignID: "C-1", Date: d("2025-08-01"), Clicks: -3, Impressions: -1, Cost: -2})

	rows, err := st.FetchMeasurements(context.Background(), d("2025-08-01"), d("2025-08-01"))
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, 10, rows[0].Clicks)
	assert.Equal(t, 200, rows[0].Impressions)
	assert.Equal(t, 20.0, rows[0].Cost)
}

func TestMemoryStoreFetchIsInclusiveAndOrdered(t *testing.T) {
	st := NewMemoryStore()
	_, err := st.InsertMeasurements(context.Background(), []models.Measurement{
		{Source: "vk", Date: d("2025-08-03"), Clicks: 1},
		{Source: "google", Date: d("2025-08-02"), Clicks: 1},
		{Source: "alpha", Date: d("2025-08-02"), Clicks: 1},
		{Source: "vk", Date: d("2025-08-05"), Clicks: 1},
		{Source: "vk", Date: d("2025-07-31"), Clicks: 1},
	})
	require.NoError(t, err)

	rows, err := st.FetchMeasurements(context.Background(), d("2025-08-01"), d("2025-08-03"))
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, "alpha", rows[0].Source)
	assert.Equal(t, "google", rows[1].Source)
	assert.Equal(t, "vk", rows[2].Source)
}

func TestMemoryStoreAggregatedSafeDiv(t *testing.T) {
	st := NewMemoryStore()
	st.Upsert(models.Measurement{Source: "google", Date: d("2025-08-01"), Clicks: 0, Impressions: 100, Cost: 100})
	st.Upsert(models.Measurement{Source: "vk", Date: d("2025-08-01")})
	st.Upsert(models.Measurement{Source: "yandex", Date: d("2025-08-01"), Clicks: 20, Impressions: 1000, Cost: 50})

	aggs, err := st.FetchAggregatedBySource(context.Background(), d("2025-08-01"), d("2025-08-01"))
	require.NoError(t, err)
	assert.Equal(t, models.AggregatedSourceMetrics{TotalImpressions: 100, TotalCost: 100}, aggs["google"])
	assert.Equal(t, models.AggregatedSourceMetrics{}, aggs["vk"])
	assert.InDelta(t, 2.0, aggs["yandex"].AvgCTR, 1e-9)
	assert.InDelta(t, 2.5, aggs["yandex"].AvgCPC, 1e-9)
}

func TestMemoryStorePersistAssignsIDs(t *testing.T) {
	st := NewMemoryStore()
	r1, err := st.PersistStrategy(context.Background(), models.StrategyResult{Source: "a", Recommendations: []string{"x"}})
	require.NoError(t, err)
	r2, err := st.PersistStrategy(context.Background(), models.StrategyResult{Source: "b"})
	require.NoError(t, err)

	assert.Equal(t, int64(1), r1.ID)
	assert.Equal(t, int64(2), r2.ID)

	r1.Recommendations[0] = "mutated"
	saved := st.Strategies()
	require.Len(t, saved, 2)
	assert.Equal(t, "x", saved[0].Recommendations[0])
}
