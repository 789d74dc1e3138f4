package strategy

import (
	"context"
	"fmt"
	"log/slog"
	"maps"
	"time"

	"github.com/AngelCh415/strategy-engine/internal/analytics"
	"github.com/AngelCh415/strategy-engine/internal/models"
	"github.com/AngelCh415/strategy-engine/internal/store"
	"github.com/AngelCh415/strategy-engine/internal/telemetry"
)

type Service struct {
	st       store.MetricsStore
	analysis *analytics.Service
	log      *slog.Logger
	metrics  *telemetry.Metrics
	persist  bool
	now      func() time.Time
}

type Option func(*Service)

func WithMetrics(m *telemetry.Metrics) Option { return func(s *Service) { s.metrics = m } }

// WithPersist(false) returns results without handing them to the store.
func WithPersist(p bool) Option { return func(s *Service) { s.persist = p } }

func WithClock(now func() time.Time) Option { return func(s *Service) { s.now = now } }

func NewService(st store.MetricsStore, analysis *analytics.Service, log *slog.Logger, opts ...Option) *Service {
	if log == nil {
		log = slog.Default()
	}
	s := &Service{st: st, analysis: analysis, log: log, persist: true, now: time.Now}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Analysis exposes the read-only analysis operations.
func (s *Service) Analysis() *analytics.Service { return s.analysis }

// Generate runs analysis, classification, description, confidence scoring
// and recommendation synthesis for source, then persists the result.
// Any analysis or store error aborts the generation.
func (s *Service) Generate(ctx context.Context, source string, daysBack int) (models.StrategyResult, error) {
	start := time.Now()
	log := s.log.With(slog.String("source", source), slog.Int("days_back", daysBack))
	log.Info("generating strategy")

	res, nAnomalies, err := s.generate(ctx, source, daysBack)
	if err != nil {
		s.metrics.GenerationFailed(source)
		log.Error("strategy generation failed", slog.String("err", err.Error()))
		return models.StrategyResult{}, err
	}
	s.metrics.ObserveGeneration(string(res.StrategyType), res.ConfidenceScore, nAnomalies, time.Since(start))
	log.Info("strategy generated",
		slog.Int64("id", res.ID),
		slog.String("strategy_type", string(res.StrategyType)),
		slog.Int("confidence", res.ConfidenceScore),
		slog.Int("recommendations", len(res.Recommendations)))
	return res, nil
}

func (s *Service) generate(ctx context.Context, source string, daysBack int) (models.StrategyResult, int, error) {
	efficiency, err := s.analysis.SourceEfficiency(ctx, daysBack)
	if err != nil {
		return models.StrategyResult{}, 0, err
	}
	trends, err := s.analysis.MetricTrends(ctx, daysBack)
	if err != nil {
		return models.StrategyResult{}, 0, err
	}
	anomalies, err := s.analysis.Anomalies(ctx, daysBack)
	if err != nil {
		return models.StrategyResult{}, 0, err
	}

	ctrTrend, cpcTrend := trends[analytics.KeyCTRTrend], trends[analytics.KeyCPCTrend]
	st := Classify(efficiency[source], ctrTrend, cpcTrend)

	// las claves de tendencia ganan en colision
	snapshot := make(map[string]float64, len(efficiency)+len(trends))
	maps.Copy(snapshot, efficiency)
	maps.Copy(snapshot, trends)

	res := models.StrategyResult{
		Name:            fmt.Sprintf("Strategy for %s based on %d days of data", source, daysBack),
		Description:     Describe(source, st, trends),
		StrategyType:    st,
		Source:          source,
		GeneratedAt:     s.now().UTC(),
		Metrics:         snapshot,
		ConfidenceScore: Confidence(len(anomalies), ctrTrend),
		MetricsPeriod:   daysBack,
	}
	for _, r := range Recommend(source, st, snapshot, anomalies) {
		res.AddRecommendation(r)
	}

	if !s.persist {
		return res, len(anomalies), nil
	}
	saved, err := s.st.PersistStrategy(ctx, res)
	if err != nil {
		return models.StrategyResult{}, 0, fmt.Errorf("persist strategy for %s: %w", source, err)
	}
	return saved, len(anomalies), nil
}
