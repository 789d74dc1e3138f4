package strategy

import (
	"math"
	"strings"

	"github.com/AngelCh415/strategy-engine/internal/analytics"
	"github.com/AngelCh415/strategy-engine/internal/models"
)

// Decision thresholds. Comparisons against them are strict.
const (
	LowEfficiency  = 0.3
	HighEfficiency = 0.7
	TrendThreshold = 0.1  // classification and single-metric trend notices
	TrendBand      = 0.05 // description buckets and combined notices

	BaseConfidence   = 70
	AnomalyPenalty   = 5
	MaxAnomalyCharge = 30
	TrendBonusScale  = 10

	MaxListedAnomalies = 3
)

// Classify maps a source's efficiency and the global trends to a strategy
// type. It never yields Seasonal or Competitive.
func Classify(efficiency, ctrTrend, cpcTrend float64) models.StrategyType {
	switch {
	case efficiency < LowEfficiency:
		if cpcTrend > TrendThreshold {
			return models.CostReduction
		}
		return models.ConversionOptimization
	case efficiency < HighEfficiency:
		if ctrTrend < -TrendThreshold {
			return models.AudienceSegmentation
		}
		return models.Retargeting
	default:
		if ctrTrend > TrendThreshold {
			return models.ReachExpansion
		}
		return models.CrossPlatform
	}
}

// Confidence is 70 minus 5 per anomaly (capped at 30) plus floor(10*ctrTrend)
// for a positive trend, clamped to [0,100].
func Confidence(anomalyCount int, ctrTrend float64) int {
	penalty := min(anomalyCount*AnomalyPenalty, MaxAnomalyCharge)
	if penalty < 0 {
		penalty = 0
	}
	bonus := 0.0
	if ctrTrend > 0 {
		bonus = math.Floor(TrendBonusScale * ctrTrend)
	}
	score := float64(BaseConfidence-penalty) + bonus
	// NaN/Inf tambien caen al rango
	switch {
	case math.IsNaN(score) || score < 0:
		return 0
	case score > 100:
		return 100
	}
	return int(score)
}

// Describe builds the strategy description from the CTR and CPC trend buckets.
func Describe(source string, t models.StrategyType, trends map[string]float64) string {
	ctrTrend := trends[analytics.KeyCTRTrend]
	cpcTrend := trends[analytics.KeyCPCTrend]

	var b strings.Builder
	b.WriteString(`Strategy of type "`)
	b.WriteString(t.Label())
	b.WriteString(`" for advertising source `)
	b.WriteString(source)
	b.WriteString(".\n\n")

	b.WriteString("Trend analysis shows ")
	switch {
	case ctrTrend > TrendBand:
		b.WriteString("positive CTR dynamics, ")
	case ctrTrend < -TrendBand:
		b.WriteString("negative CTR dynamics, ")
	default:
		b.WriteString("a stable CTR, ")
	}
	switch {
	case cpcTrend > TrendBand:
		b.WriteString("with a rising cost per click. ")
	case cpcTrend < -TrendBand:
		b.WriteString("with a falling cost per click. ")
	default:
		b.WriteString("with a stable cost per click. ")
	}

	b.WriteString("\n\nThe strategy is designed to optimize the campaign ")
	b.WriteString("given current efficiency indicators and metric dynamics.")
	return b.String()
}
