package metrics

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/AngelCh415/strategy-engine/internal/models"
	"github.com/AngelCh415/strategy-engine/internal/store"
)

// Row is a measurement with its derived ratios.
type Row struct {
	Date        string  `json:"date"`
	Source      string  `json:"source"`
	CampaignID  string  `json:"campaign_id"`
	Clicks      int     `json:"clicks"`
	Impressions int     `json:"impressions"`
	Cost        float64 `json:"cost"`
	CTR         float64 `json:"ctr"`
	CPC         float64 `json:"cpc"`
}

// Service answers raw measurement queries for the HTTP API.
type Service struct{ st store.MetricsStore }

func NewService(st store.MetricsStore) *Service { return &Service{st: st} }
func norm(s string) string                      { return strings.ToLower(strings.TrimSpace(s)) }

func csvSet(s string) map[string]struct{} {
	out := map[string]struct{}{}
	for _, p := range strings.Split(s, ",") {
		p = norm(p)
		if p != "" {
			out[p] = struct{}{}
		}
	}
	return out
}

// QuerySources lists measurements between from and to (YYYY-MM-DD, both
// required), optionally filtered by a comma-separated source list.
func (s *Service) QuerySources(ctx context.Context, v url.Values) ([]Row, error) {
	from, err := time.Parse("2006-01-02", v.Get("from"))
	if err != nil {
		return nil, fmt.Errorf("bad from: %w", err)
	}
	to, err := time.Parse("2006-01-02", v.Get("to"))
	if err != nil {
		return nil, fmt.Errorf("bad to: %w", err)
	}
	srcSet := csvSet(v.Get("source"))
	limit := atoiDef(v.Get("limit"), 100)
	offset := atoiDef(v.Get("offset"), 0)

	ms, err := s.st.FetchMeasurements(ctx, from, to)
	if err != nil {
		return nil, err
	}
	rows := make([]Row, 0, len(ms))
	for _, m := range ms {
		if len(srcSet) > 0 {
			if _, ok := srcSet[norm(m.Source)]; !ok {
				continue
			}
		}
		rows = append(rows, toRow(m))
	}
	limit, offset = clampLimitOffset(limit, offset, len(rows))
	return paginate(rows, limit, offset), nil
}

func toRow(m models.Measurement) Row {
	return Row{
		Date:        m.Date.Format("2006-01-02"),
		Source:      m.Source,
		CampaignID:  m.CampaignID,
		Clicks:      m.Clicks,
		Impressions: m.Impressions,
		Cost:        round2(m.Cost),
		CTR:         round3(m.CTR()),
		CPC:         round3(m.CPC()),
	}
}

func paginate[T any](rows []T, limit, offset int) []T {
	if offset >= len(rows) {
		return []T{}
	}
	end := offset + limit
	if end > len(rows) {
		end = len(rows)
	}
	return rows[offset:end]
}

func atoiDef(s string, d int) int {
	v, err := strconv.Atoi(s)
	if err != nil {
		return d
	}
	return v
}
func clampLimitOffset(limit, offset, n int) (int, int) {
	if offset < 0 {
		offset = 0
	}
	if limit <= 0 {
		limit = n
	}
	if limit > 1000 {
		limit = 1000
	} // tope sano
	if offset > n {
		offset = n
	}
	return limit, offset
}
func round2(f float64) float64 { return float64(int64(f*100+0.5)) / 100 }
func round3(f float64) float64 { return float64(int64(f*1000+0.5)) / 1000 }
