package ingest

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/AngelCh415/strategy-engine/internal/models"
	"github.com/AngelCh415/strategy-engine/internal/store"
	"github.com/AngelCh415/strategy-engine/internal/telemetry"
	"github.com/AngelCh415/strategy-engine/internal/utils"
)

// ErrNotConfigured is returned when no ads API URL is set.
var ErrNotConfigured = errors.New("ads api not configured")

// Collector pulls measurement rows from the ads API into a store.
type Collector struct {
	c       HTTPClient
	w       store.MeasurementWriter
	log     *slog.Logger
	url     string
	backoff utils.Backoff
	metrics *telemetry.Metrics

	mu   sync.Mutex
	seen map[string]struct{} // idempotencia por-record
}

func NewCollector(c HTTPClient, w store.MeasurementWriter, log *slog.Logger, url string, m *telemetry.Metrics) *Collector {
	if log == nil {
		log = slog.Default()
	}
	return &Collector{
		c:       c,
		w:       w,
		log:     log,
		url:     url,
		backoff: utils.NewBackoff(100*time.Millisecond, 2),
		metrics: m,
		seen:    make(map[string]struct{}),
	}
}

// WithBackoff replaces the retry policy.
func (e *Collector) WithBackoff(b utils.Backoff) *Collector {
	e.backoff = b
	return e
}

type adsResp []struct {
	Date        string  `json:"date"`
	Source      string  `json:"source"`
	CampaignID  string  `json:"campaign_id"`
	Clicks      int     `json:"clicks"`
	Impressions int     `json:"impressions"`
	Cost        float64 `json:"cost"`
}

// Run fetches, normalizes and stores rows dated on or after since (when set).
// Rows already collected by this Collector are skipped.
func (e *Collector) Run(ctx context.Context, since *time.Time) (int, error) {
	n, err := e.run(ctx, since)
	e.metrics.Ingested(n, err)
	return n, err
}

func (e *Collector) run(ctx context.Context, since *time.Time) (int, error) {
	if e.url == "" {
		return 0, ErrNotConfigured
	}
	var resp adsResp
	if err := GetJSONWithRetry(ctx, e.c, e.url, &resp, e.backoff); err != nil {
		return 0, err
	}

	rows := make([]models.Measurement, 0, len(resp))
	for _, r := range resp {
		d, err := time.Parse("2006-01-02", strings.TrimSpace(r.Date))
		if err != nil {
			e.log.Debug("skipping row with bad date", slog.String("date", r.Date))
			continue
		}
		if since != nil && d.Before(dayUTC(*since)) {
			continue
		}
		src := models.SourceName(strings.ToLower(r.Source))
		campaign := strings.TrimSpace(r.CampaignID)
		if !e.markSeen(d.Format("2006-01-02") + "|" + src + "|" + campaign) {
			continue
		}
		rows = append(rows, models.Measurement{
			Source:      src,
			CampaignID:  campaign,
			Date:        d,
			Clicks:      max0(r.Clicks),
			Impressions: max0(r.Impressions),
			Cost:        maxf(r.Cost),
		})
	}
	if len(rows) == 0 {
		e.log.Info("ingest complete", slog.Int("rows", 0))
		return 0, nil
	}
	n, err := e.w.InsertMeasurements(ctx, rows)
	if err != nil {
		e.forget(rows)
		return 0, err
	}
	e.log.Info("ingest complete", slog.Int("rows", n))
	return n, nil
}

func (e *Collector) markSeen(key string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if _, ok := e.seen[key]; ok {
		return false
	}
	e.seen[key] = struct{}{}
	return true
}

// forget un-marks rows whose write failed so the next run retries them.
func (e *Collector) forget(rows []models.Measurement) {
	e.mu.Lock()
	defer e.mu.Unlock()
	for _, r := range rows {
		delete(e.seen, r.Date.Format("2006-01-02")+"|"+r.Source+"|"+r.CampaignID)
	}
}

func dayUTC(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
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
