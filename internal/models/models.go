package models

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Measurement is one per-period advertising row for a source/campaign.
// clicks <= impressions is not enforced; upstream data may be inconsistent.
type Measurement struct {
	Source      string    `json:"source"`
	CampaignID  string    `json:"campaign_id"`
	Date        time.Time `json:"date"`
	Impressions int       `json:"impressions"`
	Clicks      int       `json:"clicks"`
	Cost        float64   `json:"cost"`
}

// CTR is clicks/impressions in percent, 0 without impressions.
func (m Measurement) CTR() float64 {
	if m.Impressions <= 0 {
		return 0
	}
	return float64(m.Clicks) / float64(m.Impressions) * 100
}

// CPC is cost per click, 0 without clicks.
func (m Measurement) CPC() float64 {
	if m.Clicks <= 0 {
		return 0
	}
	return m.Cost / float64(m.Clicks)
}

type AggregatedSourceMetrics struct {
	TotalClicks      int     `json:"total_clicks"`
	TotalImpressions int     `json:"total_impressions"`
	TotalCost        float64 `json:"total_cost"`
	AvgCTR           float64 `json:"avg_ctr"`
	AvgCPC           float64 `json:"avg_cpc"`
}

// UnknownSource names rows whose source is empty.
const UnknownSource = "unknown"

func SourceName(s string) string {
	if s = strings.TrimSpace(s); s == "" {
		return UnknownSource
	}
	return s
}

// Aggregate sums rows per source with null-safe ctr/cpc.
func Aggregate(rows []Measurement) map[string]AggregatedSourceMetrics {
	out := make(map[string]AggregatedSourceMetrics)
	for _, r := range rows {
		src := SourceName(r.Source)
		a := out[src]
		a.TotalClicks += r.Clicks
		a.TotalImpressions += r.Impressions
		a.TotalCost += r.Cost
		out[src] = a
	}
	for k, a := range out {
		if a.TotalImpressions > 0 {
			a.AvgCTR = float64(a.TotalClicks) * 100 / float64(a.TotalImpressions)
		}
		if a.TotalClicks > 0 {
			a.AvgCPC = a.TotalCost / float64(a.TotalClicks)
		}
		out[k] = a
	}
	return out
}

type Direction string

const (
	DirectionHigh Direction = "high"
	DirectionLow  Direction = "low"
)

// Anomaly is an outlier observation of a single metric.
type Anomaly struct {
	Source    string    `json:"source"`
	Date      time.Time `json:"date"`
	Metric    string    `json:"metric"` // ctr | cpc
	Value     float64   `json:"value"`
	Direction Direction `json:"direction"`
}

func (a Anomaly) String() string {
	switch a.Metric {
	case "ctr":
		return fmt.Sprintf("Abnormally %s CTR (%.2f%%) for source %s on %s", a.Direction, a.Value, a.Source, a.Date.Format("2006-01-02"))
	default:
		return fmt.Sprintf("Abnormally %s %s (%.2f) for source %s on %s", a.Direction, strings.ToUpper(a.Metric), a.Value, a.Source, a.Date.Format("2006-01-02"))
	}
}

type StrategyType string

const (
	ConversionOptimization StrategyType = "CONVERSION_OPTIMIZATION"
	ReachExpansion         StrategyType = "REACH_EXPANSION"
	CostReduction          StrategyType = "COST_REDUCTION"
	Retargeting            StrategyType = "RETARGETING"
	AudienceSegmentation   StrategyType = "AUDIENCE_SEGMENTATION"
	CrossPlatform          StrategyType = "CROSS_PLATFORM"
	Seasonal               StrategyType = "SEASONAL"
	Competitive            StrategyType = "COMPETITIVE"
)

var StrategyTypes = []StrategyType{
	ConversionOptimization, ReachExpansion, CostReduction, Retargeting,
	AudienceSegmentation, CrossPlatform, Seasonal, Competitive,
}

var strategyLabels = map[StrategyType]string{
	ConversionOptimization: "Conversion optimization",
	ReachExpansion:         "Reach expansion",
	CostReduction:          "Cost reduction",
	Retargeting:            "Retargeting",
	AudienceSegmentation:   "Audience segmentation",
	CrossPlatform:          "Cross-platform strategy",
	Seasonal:               "Seasonal campaign",
	Competitive:            "Competitive strategy",
}

// Label is the display name; unknown types render as their raw value.
func (t StrategyType) Label() string {
	if l, ok := strategyLabels[t]; ok {
		return l
	}
	return string(t)
}

func (t StrategyType) Valid() bool {
	_, ok := strategyLabels[t]
	return ok
}

func ParseStrategyType(s string) (StrategyType, error) {
	t := StrategyType(strings.ToUpper(strings.TrimSpace(s)))
	if !t.Valid() {
		return "", fmt.Errorf("unknown strategy type %q", s)
	}
	return t, nil
}

// StrategyResult is built once per generation run and handed to the store,
// which assigns ID.
type StrategyResult struct {
	ID              int64              `json:"id"`
	Name            string             `json:"name"`
	Description     string             `json:"description"`
	StrategyType    StrategyType       `json:"strategy_type"`
	Source          string             `json:"source"`
	GeneratedAt     time.Time          `json:"generated_at"`
	Metrics         map[string]float64 `json:"metrics"`
	Recommendations []string           `json:"recommendations"`
	ConfidenceScore int                `json:"confidence_score"`
	MetricsPeriod   int                `json:"metrics_period"`
}

func (r *StrategyResult) AddRecommendation(s string) {
	r.Recommendations = append(r.Recommendations, s)
}

const NoRecommendations = "No recommendations"

// FormattedRecommendations renders a numbered list, one per line.
func (r *StrategyResult) FormattedRecommendations() string {
	if len(r.Recommendations) == 0 {
		return NoRecommendations
	}
	var b strings.Builder
	for i, rec := range r.Recommendations {
		b.WriteString(strconv.Itoa(i + 1))
		b.WriteString(". ")
		b.WriteString(rec)
		b.WriteString("\n")
	}
	return b.String()
}
