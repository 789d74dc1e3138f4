package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"

	"github.com/AngelCh415/strategy-engine/internal/models"
)

const strategyStatusDraft = "DRAFT"

// PostgresStore reads the metrics table and writes the strategies table.
type PostgresStore struct{ db *sql.DB }

func NewPostgresStore(db *sql.DB) *PostgresStore { return &PostgresStore{db: db} }

// OpenPostgres opens and pings a lib/pq connection.
func OpenPostgres(ctx context.Context, dsn string) (*sql.DB, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w: %w", ErrDataAccess, err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping postgres: %w: %w", ErrDataAccess, err)
	}
	return db, nil
}

func (s *PostgresStore) FetchMeasurements(ctx context.Context, from, to time.Time) ([]models.Measurement, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT date, COALESCE(source,'unknown'), COALESCE(campaign_id,''),
		       COALESCE(clicks,0), COALESCE(impressions,0), COALESCE(cost,0)
		FROM metrics
		WHERE date BETWEEN $1 AND $2
		ORDER BY date ASC
	`, day(from), day(to))
	if err != nil {
		return nil, fmt.Errorf("fetch measurements: %w: %w", ErrDataAccess, err)
	}
	defer rows.Close()

	var out []models.Measurement
	for rows.Next() {
		var m models.Measurement
		if err := rows.Scan(&m.Date, &m.Source, &m.CampaignID, &m.Clicks, &m.Impressions, &m.Cost); err != nil {
			return nil, fmt.Errorf("scan measurement: %w: %w", ErrDataAccess, err)
		}
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("fetch measurements: %w: %w", ErrDataAccess, err)
	}
	return out, nil
}

func (s *PostgresStore) FetchAggregatedBySource(ctx context.Context, from, to time.Time) (map[string]models.AggregatedSourceMetrics, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT COALESCE(source,'unknown'),
		       COALESCE(SUM(clicks),0), COALESCE(SUM(impressions),0), COALESCE(SUM(cost),0),
		       COALESCE(SUM(clicks)*100.0/NULLIF(SUM(impressions),0),0),
		       COALESCE(SUM(cost)/NULLIF(SUM(clicks),0),0)
		FROM metrics
		WHERE date BETWEEN $1 AND $2
		GROUP BY source
	`, day(from), day(to))
	if err != nil {
		return nil, fmt.Errorf("fetch aggregated metrics: %w: %w", ErrDataAccess, err)
	}
	defer rows.Close()

	out := make(map[string]models.AggregatedSourceMetrics)
	for rows.Next() {
		var src string
		var a models.AggregatedSourceMetrics
		if err := rows.Scan(&src, &a.TotalClicks, &a.TotalImpressions, &a.TotalCost, &a.AvgCTR, &a.AvgCPC); err != nil {
			return nil, fmt.Errorf("scan aggregated metrics: %w: %w", ErrDataAccess, err)
		}
		out[src] = a
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("fetch aggregated metrics: %w: %w", ErrDataAccess, err)
	}
	return out, nil
}

func (s *PostgresStore) PersistStrategy(ctx context.Context, r models.StrategyResult) (models.StrategyResult, error) {
	generated := r.GeneratedAt
	if generated.IsZero() {
		generated = time.Now().UTC()
	}
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO strategies (name, description, source, strategy_type, generated_at,
		                        recommendations, status, metrics_period, confidence_score)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id
	`, r.Name, r.Description, r.Source, string(r.StrategyType), generated,
		r.FormattedRecommendations(), strategyStatusDraft, r.MetricsPeriod, r.ConfidenceScore,
	).Scan(&r.ID)
	if err != nil {
		return r, fmt.Errorf("persist strategy: %w: %w", ErrDataAccess, err)
	}
	return r, nil
}

func (s *PostgresStore) InsertMeasurements(ctx context.Context, rows []models.Measurement) (int, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin insert: %w: %w", ErrDataAccess, err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO metrics (date, source, campaign_id, clicks, impressions, cost)
		VALUES ($1, $2, $3, $4, $5, $6)
	`)
	if err != nil {
		return 0, fmt.Errorf("prepare insert: %w: %w", ErrDataAccess, err)
	}
	defer stmt.Close()

	n := 0
	for _, m := range rows {
		if _, err := stmt.ExecContext(ctx, day(m.Date), m.Source, m.CampaignID, m.Clicks, m.Impressions, m.Cost); err != nil {
			return 0, fmt.Errorf("insert measurement: %w: %w", ErrDataAccess, err)
		}
		n++
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit insert: %w: %w", ErrDataAccess, err)
	}
	return n, nil
}
