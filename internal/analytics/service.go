package analytics

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/AngelCh415/strategy-engine/internal/models"
	"github.com/AngelCh415/strategy-engine/internal/store"
)

// Keys of the trend map.
const (
	KeyCTRTrend = "ctr_trend"
	KeyCPCTrend = "cpc_trend"
)

// Service derives efficiency, trend and anomaly signals from a MetricsStore.
// daysBack must be positive; it is not validated here.
type Service struct {
	st  store.MetricsStore
	log *slog.Logger
	now func() time.Time
}

func NewService(st store.MetricsStore, log *slog.Logger) *Service {
	if log == nil {
		log = slog.Default()
	}
	return &Service{st: st, log: log, now: time.Now}
}

// WithClock replaces the time source used to compute analysis windows.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// Window returns the inclusive [today-daysBack, today] range.
func (s *Service) Window(daysBack int) (time.Time, time.Time) {
	y, m, d := s.now().UTC().Date()
	to := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	return to.AddDate(0, 0, -daysBack), to
}

// SourceEfficiency rates every source active in the window.
func (s *Service) SourceEfficiency(ctx context.Context, daysBack int) (map[string]float64, error) {
	s.log.Info("analyzing source efficiency", slog.Int("days_back", daysBack))
	from, to := s.Window(daysBack)
	aggs, err := s.st.FetchAggregatedBySource(ctx, from, to)
	if err != nil {
		return nil, fmt.Errorf("source efficiency: %w", err)
	}
	out := make(map[string]float64, len(aggs))
	for src, a := range aggs {
		eff := EfficiencyRating(a.AvgCTR, a.AvgCPC, float64(a.TotalClicks), a.TotalCost)
		out[src] = eff
		s.log.Debug("source efficiency", slog.String("source", src), slog.Float64("efficiency", eff))
	}
	s.log.Info("efficiency analysis complete", slog.Int("sources", len(out)))
	return out, nil
}

// MetricTrends computes ctr_trend and cpc_trend over daily totals of all
// sources combined.
func (s *Service) MetricTrends(ctx context.Context, daysBack int) (map[string]float64, error) {
	s.log.Info("analyzing metric trends", slog.Int("days_back", daysBack))
	from, to := s.Window(daysBack)
	rows, err := s.st.FetchMeasurements(ctx, from, to)
	if err != nil {
		return nil, fmt.Errorf("metric trends: %w", err)
	}
	dailyCTR, dailyCPC := DailySeries(rows)
	trends := map[string]float64{
		KeyCTRTrend: Trend(dailyCTR),
		KeyCPCTrend: Trend(dailyCPC),
	}
	s.log.Info("trend analysis complete",
		slog.Float64(KeyCTRTrend, trends[KeyCTRTrend]),
		slog.Float64(KeyCPCTrend, trends[KeyCPCTrend]))
	return trends, nil
}

// DailySeries groups rows by calendar date and returns chronologically
// ordered aggregate CTR and CPC per day.
func DailySeries(rows []models.Measurement) (ctr, cpc []float64) {
	type totals struct {
		clicks, impressions int
		cost                float64
	}
	byDate := make(map[time.Time]*totals)
	for _, r := range rows {
		k := dayOf(r.Date)
		t, ok := byDate[k]
		if !ok {
			t = &totals{}
			byDate[k] = t
		}
		t.clicks += r.Clicks
		t.impressions += r.Impressions
		t.cost += r.Cost
	}
	dates := make([]time.Time, 0, len(byDate))
	for d := range byDate {
		dates = append(dates, d)
	}
	sort.Slice(dates, func(i, j int) bool { return dates[i].Before(dates[j]) })

	ctr = make([]float64, 0, len(dates))
	cpc = make([]float64, 0, len(dates))
	for _, d := range dates {
		t := byDate[d]
		var c, p float64
		if t.impressions > 0 {
			c = float64(t.clicks) / float64(t.impressions) * 100
		}
		if t.clicks > 0 {
			p = t.cost / float64(t.clicks)
		}
		ctr = append(ctr, c)
		cpc = append(cpc, p)
	}
	return ctr, cpc
}

// AnomalyRecords runs outlier detection on each source's CTR and CPC
// sequences. Sources come in map order; within a source CTR anomalies
// precede CPC anomalies.
func (s *Service) AnomalyRecords(ctx context.Context, daysBack int) ([]models.Anomaly, error) {
	s.log.Info("detecting anomalies", slog.Int("days_back", daysBack))
	from, to := s.Window(daysBack)
	rows, err := s.st.FetchMeasurements(ctx, from, to)
	if err != nil {
		return nil, fmt.Errorf("detect anomalies: %w", err)
	}

	bySource := make(map[string][]models.Measurement)
	for _, r := range rows {
		src := models.SourceName(r.Source)
		bySource[src] = append(bySource[src], r)
	}

	var out []models.Anomaly
	for src, ms := range bySource {
		ctrs := make([]float64, len(ms))
		cpcs := make([]float64, len(ms))
		for i, m := range ms {
			ctrs[i] = m.CTR()
			cpcs[i] = m.CPC()
		}
		out = append(out, outliers(src, "ctr", ms, ctrs)...)
		out = append(out, outliers(src, "cpc", ms, cpcs)...)
	}
	s.log.Info("anomaly detection complete", slog.Int("anomalies", len(out)))
	return out, nil
}

// Anomalies returns the human-readable form of AnomalyRecords.
func (s *Service) Anomalies(ctx context.Context, daysBack int) ([]string, error) {
	recs, err := s.AnomalyRecords(ctx, daysBack)
	if err != nil {
		return nil, err
	}
	out := make([]string, len(recs))
	for i, a := range recs {
		out[i] = a.String()
	}
	return out, nil
}

func outliers(src, metric string, ms []models.Measurement, values []float64) []models.Anomaly {
	idx := DetectOutliers(values)
	if len(idx) == 0 {
		return nil
	}
	mean := Mean(values)
	out := make([]models.Anomaly, 0, len(idx))
	for _, i := range idx {
		dir := models.DirectionLow
		if values[i] > mean {
			dir = models.DirectionHigh
		}
		out = append(out, models.Anomaly{
			Source:    src,
			Date:      ms[i].Date,
			Metric:    metric,
			Value:     values[i],
			Direction: dir,
		})
	}
	return out
}

func dayOf(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
