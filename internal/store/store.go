package store

import (
	"context"
	"errors"
	"time"

	"github.com/AngelCh415/strategy-engine/internal/models"
)

// ErrDataAccess marks a read or write the backing store could not complete.
var ErrDataAccess = errors.New("data access failure")

// MetricsStore is what the analysis and generation services need.
// Date ranges are inclusive calendar days.
type MetricsStore interface {
	FetchMeasurements(ctx context.Context, from, to time.Time) ([]models.Measurement, error)
	FetchAggregatedBySource(ctx context.Context, from, to time.Time) (map[string]models.AggregatedSourceMetrics, error)
	PersistStrategy(ctx context.Context, r models.StrategyResult) (models.StrategyResult, error)
}

// MeasurementWriter is implemented by stores ingest can load into.
type MeasurementWriter interface {
	InsertMeasurements(ctx context.Context, rows []models.Measurement) (int, error)
}

func day(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
