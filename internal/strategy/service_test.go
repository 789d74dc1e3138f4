package strategy

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AngelCh415/strategy-engine/internal/analytics"
	"github.com/AngelCh415/strategy-engine/internal/models"
	"github.com/AngelCh415/strategy-engine/internal/store"
	"github.com/AngelCh415/strategy-engine/internal/telemetry"
)

var now = time.Date(2025, 8, 10, 12, 0, 0, 0, time.UTC)

func clock() time.Time { return now }

func day(n int) time.Time { return time.Date(2025, 8, n, 0, 0, 0, 0, time.UTC) }

// alpha: CTR 1,2,3,4 % over four days at a constant CPC of 1.
func seededStore() *store.MemoryStore {
	st := store.NewMemoryStore()
	for i, c := range []int{10, 20, 30, 40} {
		st.Upsert(models.Measurement{Source: "alpha", CampaignID: "C-1", Date: day(6 + i), Clicks: c, Impressions: 1000, Cost: float64(c)})
	}
	return st
}

func newTestService(st store.MetricsStore, opts ...Option) *Service {
	a := analytics.NewService(st, nil).WithClock(clock)
	return NewService(st, a, nil, append([]Option{WithClock(clock)}, opts...)...)
}

// persistFailStore fails PersistStrategy for one source.
type persistFailStore struct {
	*store.MemoryStore
	failFor string
}

func (s persistFailStore) PersistStrategy(ctx context.Context, r models.StrategyResult) (models.StrategyResult, error) {
	if r.Source == s.failFor {
		return r, store.ErrDataAccess
	}
	return s.MemoryStore.PersistStrategy(ctx, r)
}

type readFailStore struct{ *store.MemoryStore }

func (readFailStore) FetchAggregatedBySource(context.Context, time.Time, time.Time) (map[string]models.AggregatedSourceMetrics, error) {
	return nil, store.ErrDataAccess
}

func TestGenerate(t *testing.T) {
	st := seededStore()
	svc := newTestService(st)

	res, err := svc.Generate(context.Background(), "alpha", 30)
	require.NoError(t, err)

	assert.Equal(t, int64(1), res.ID)
	assert.Equal(t, models.Retargeting, res.StrategyType)
	assert.Equal(t, "alpha", res.Source)
	assert.Equal(t, "Strategy for alpha based on 30 days of data", res.Name)
	assert.Equal(t, now, res.GeneratedAt)
	assert.Equal(t, 30, res.MetricsPeriod)
	assert.Equal(t, 74, res.ConfidenceScore)
	assert.InDelta(t, 0.32631, res.Metrics["alpha"], 1e-9)
	assert.InDelta(t, 0.4, res.Metrics[analytics.KeyCTRTrend], 1e-12)
	assert.Contains(t, res.Metrics, analytics.KeyCPCTrend)
	assert.Contains(t, res.Description, "positive CTR dynamics")

	require.Len(t, res.Recommendations, 6)
	assert.Equal(t, Recommend("alpha", models.Retargeting, nil, nil), res.Recommendations[:5])
	assert.Equal(t, NoticeCTRRising, res.Recommendations[5])

	saved := st.Strategies()
	require.Len(t, saved, 1)
	assert.Equal(t, res, saved[0])
}

func TestGenerateUnknownSourceIsLowEfficiency(t *testing.T) {
	svc := newTestService(seededStore())
	res, err := svc.Generate(context.Background(), "nobody", 30)
	require.NoError(t, err)
	assert.Equal(t, models.ConversionOptimization, res.StrategyType)
}

func TestGenerateTrendKeysWinOnCollision(t *testing.T) {
	st := seededStore()
	st.Upsert(models.Measurement{Source: analytics.KeyCTRTrend, Date: day(8), Clicks: 100, Impressions: 100, Cost: 1})
	svc := newTestService(st)

	res, err := svc.Generate(context.Background(), "alpha", 30)
	require.NoError(t, err)

	tr, err := svc.Analysis().MetricTrends(context.Background(), 30)
	require.NoError(t, err)
	assert.Equal(t, tr[analytics.KeyCTRTrend], res.Metrics[analytics.KeyCTRTrend])
}

func TestGenerateWithoutPersist(t *testing.T) {
	st := seededStore()
	svc := newTestService(st, WithPersist(false))
	res, err := svc.Generate(context.Background(), "alpha", 30)
	require.NoError(t, err)
	assert.Zero(t, res.ID)
	assert.Empty(t, st.Strategies())
}

func TestGenerateErrors(t *testing.T) {
	t.Run("read", func(t *testing.T) {
		svc := newTestService(readFailStore{seededStore()})
		_, err := svc.Generate(context.Background(), "alpha", 30)
		assert.True(t, errors.Is(err, store.ErrDataAccess))
	})
	t.Run("persist", func(t *testing.T) {
		svc := newTestService(persistFailStore{MemoryStore: seededStore(), failFor: "alpha"})
		_, err := svc.Generate(context.Background(), "alpha", 30)
		assert.True(t, errors.Is(err, store.ErrDataAccess))
	})
}

func TestGenerateBatchIsolatesFailures(t *testing.T) {
	st := persistFailStore{MemoryStore: seededStore(), failFor: "google"}
	m := telemetry.New()
	svc := newTestService(st, WithMetrics(m))

	results := svc.GenerateBatch(context.Background(), []string{"alpha", "google", "vk"}, 30, 2)
	require.Len(t, results, 3)

	assert.Equal(t, "alpha", results[0].Source)
	assert.True(t, results[0].OK())
	assert.Equal(t, models.Retargeting, results[0].Result.StrategyType)

	assert.Equal(t, "google", results[1].Source)
	assert.False(t, results[1].OK())
	assert.True(t, errors.Is(results[1].Err, store.ErrDataAccess))

	assert.True(t, results[2].OK())
	assert.Len(t, st.Strategies(), 2)

	families, err := m.Gatherer().Gather()
	require.NoError(t, err)
	names := map[string]bool{}
	for _, f := range families {
		names[f.GetName()] = true
	}
	assert.True(t, names["strategy_generated_total"])
	assert.True(t, names["strategy_generation_failures_total"])
}

func TestGenerateBatchDefaultsSources(t *testing.T) {
	svc := newTestService(seededStore())
	results := svc.GenerateBatch(context.Background(), nil, 30, 0)
	got := make([]string, len(results))
	for i, r := range results {
		got[i] = r.Source
		assert.True(t, r.OK())
	}
	assert.Equal(t, DefaultSources, got)
}

func TestParseSources(t *testing.T) {
	assert.Equal(t, []string{"yandex", "google", "vk"}, ParseSources("yandex, google", "vk", "google,,"))
	assert.Empty(t, ParseSources())
	assert.Empty(t, ParseSources(" , "))
}
