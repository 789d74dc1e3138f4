package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/AngelCh415/strategy-engine/internal/models"
)

type measurementKey struct {
	Date       time.Time
	Source     string
	CampaignID string
}

type MemoryStore struct {
	mu         sync.RWMutex
	rows       map[measurementKey]*models.Measurement
	strategies []models.StrategyResult
	nextID     int64
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{rows: make(map[measurementKey]*models.Measurement)}
}

// Upsert adds the row's counters to any existing row for the same
// day/source/campaign.
func (s *MemoryStore) Upsert(m models.Measurement) {
	k := measurementKey{Date: day(m.Date), Source: m.Source, CampaignID: m.CampaignID}
	s.mu.Lock()
	defer s.mu.Unlock()
	row, ok := s.rows[k]
	if !ok {
		row = &models.Measurement{Source: m.Source, CampaignID: m.CampaignID, Date: k.Date}
		s.rows[k] = row
	}
	row.Clicks += max0(m.Clicks)
	row.Impressions += max0(m.Impressions)
	row.Cost += maxf(m.Cost)
}

func (s *MemoryStore) InsertMeasurements(_ context.Context, rows []models.Measurement) (int, error) {
	for _, r := range rows {
		s.Upsert(r)
	}
	return len(rows), nil
}

func (s *MemoryStore) FetchMeasurements(_ context.Context, from, to time.Time) ([]models.Measurement, error) {
	from, to = day(from), day(to)
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []models.Measurement
	for k, v := range s.rows {
		if !k.Date.Before(from) && !k.Date.After(to) {
			out = append(out, *v)
		}
	}
	// orden determinista
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date) {
			return out[i].Date.Before(out[j].Date)
		}
		if out[i].Source != out[j].Source {
			return out[i].Source < out[j].Source
		}
		return out[i].CampaignID < out[j].CampaignID
	})
	return out, nil
}

func (s *MemoryStore) FetchAggregatedBySource(ctx context.Context, from, to time.Time) (map[string]models.AggregatedSourceMetrics, error) {
	rows, err := s.FetchMeasurements(ctx, from, to)
	if err != nil {
		return nil, err
	}
	return models.Aggregate(rows), nil
}

func (s *MemoryStore) PersistStrategy(_ context.Context, r models.StrategyResult) (models.StrategyResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	r.ID = s.nextID
	saved := r
	saved.Recommendations = append([]string(nil), r.Recommendations...)
	s.strategies = append(s.strategies, saved)
	return r, nil
}

// Strategies returns persisted results in insertion order.
func (s *MemoryStore) Strategies() []models.StrategyResult {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]models.StrategyResult(nil), s.strategies...)
}

func max0(i int) int {
	if i < 0 {
		return 0
	}
	return i
}
func maxf(f float64) float64 {
	if f < 0 {
		return 0
	}
	return f
}
