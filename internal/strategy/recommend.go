package strategy

import (
	"fmt"
	"strings"

	"github.com/AngelCh415/strategy-engine/internal/analytics"
	"github.com/AngelCh415/strategy-engine/internal/models"
)

// Each bank holds exactly five templates; {source} is replaced by the source name.
var banks = map[models.StrategyType][5]string{
	models.ConversionOptimization: {
		"Optimize landing pages to increase conversion on {source}",
		"Run A/B tests on ad creatives to find the most effective variants",
		"Improve targeting towards higher-converting audience segments",
		"Review keywords and focus on the ones that bring higher-quality traffic",
		"Set up retargeting to bring back visitors who did not complete the target action",
	},
	models.ReachExpansion: {
		"Expand the keyword set with high-reach search queries",
		"Increase the budget of the best performing campaigns on {source}",
		"Develop new ad creatives to attract new audiences",
		"Explore adjacent audience segments to extend campaign reach",
		"Use automated bidding strategies to maximize reach within budget",
	},
	models.CostReduction: {
		"Optimize bids to lower the average cost per click on {source}",
		"Exclude expensive keywords with high CPC and low conversion",
		"Adjust ad scheduling towards periods with the least competition",
		"Improve ad quality score to lower the required bid",
		"Shift budget from high-CPC campaigns to lower-CPC campaigns",
	},
	models.Retargeting: {
		"Build retargeting segments on {source} by browsing depth and product interest",
		"Create special offers for users who abandoned their cart",
		"Set up email sequences to reinforce the retargeting audience",
		"Cap retargeting ad frequency to avoid banner blindness",
		"Use dynamic retargeting to show users the products they viewed",
	},
	models.AudienceSegmentation: {
		"Split {source} campaigns by demographic segment for more precise targeting",
		"Create separate strategies for new and existing customers",
		"Adapt ad messaging to each audience segment",
		"Analyze audience behavior patterns to refine segmentation",
		"Use look-alike audiences to grow the effective segments",
	},
	models.CrossPlatform: {
		"Build a single communication strategy across {source} and the other ad platforms",
		"Adapt creatives to each platform while keeping a common style",
		"Implement cross-channel conversion tracking for more accurate efficiency analysis",
		"Allocate budget between platforms based on each channel's efficiency",
		"Coordinate ad timing across platforms to amplify the overall effect",
	},
	models.Seasonal: {
		"Prepare seasonal campaigns on {source} ahead of peak demand periods",
		"Raise the budget before seasonal demand starts to capture maximum market share",
		"Develop special seasonal offers and promotions",
		"Adapt keywords to seasonal queries and audience interests",
		"Analyze past seasons' data to tune the current strategy",
	},
	models.Competitive: {
		"Analyze competitors' campaigns on {source} to find their strengths and weaknesses",
		"Consider bidding on competitor brand queries to attract their audience",
		"Highlight your offer's unique advantages over competitors in ad copy",
		"Monitor competitor pricing to adjust your own offers in time",
		"Create content comparing your product with competitors, stressing your advantages",
	},
}

const sourcePlaceholder = "{source}"

// Trend and anomaly lines.
const (
	NoticeCTRFalling = "Negative CTR trend observed. Refresh creatives and review audience targeting."
	NoticeCTRRising  = "Positive CTR trend observed. Increase the budget of successful campaigns to scale results."
	NoticeCPCRising  = "Cost per click is rising. Optimize bids and improve ad quality score."
	NoticeCPCFalling = "Cost per click is falling. Use this moment to expand campaign reach."
	NoticeCritical   = "Critical: CTR is falling while CPC is rising. The campaign strategy needs an urgent review."
	NoticeIdeal      = "Ideal: CTR is rising while CPC is falling. Make the most of this period to scale."

	AnomalyHeader     = "Pay attention to the anomalies detected in the metrics:"
	anomalyLine       = "- %s"
	anomalyRemainder  = "- And %d more anomalies. Run a detailed analysis."
	fallbackAuditLine = "Run a general audit of the ad campaigns on %s"
)

// Recommend returns the five category templates for t, then trend notices,
// then the anomaly block. Trend values are read from metrics under
// ctr_trend and cpc_trend; missing keys count as 0.
func Recommend(source string, t models.StrategyType, metrics map[string]float64, anomalies []string) []string {
	recs := make([]string, 0, 5+6+MaxListedAnomalies+2)

	if bank, ok := banks[t]; ok {
		r := strings.NewReplacer(sourcePlaceholder, source)
		for _, tmpl := range bank {
			recs = append(recs, r.Replace(tmpl))
		}
	} else {
		recs = append(recs, fmt.Sprintf(fallbackAuditLine, source))
	}

	recs = append(recs, trendNotices(metrics[analytics.KeyCTRTrend], metrics[analytics.KeyCPCTrend])...)

	if len(anomalies) > 0 {
		recs = append(recs, AnomalyHeader)
		for _, a := range anomalies[:min(MaxListedAnomalies, len(anomalies))] {
			recs = append(recs, fmt.Sprintf(anomalyLine, a))
		}
		if rest := len(anomalies) - MaxListedAnomalies; rest > 0 {
			recs = append(recs, fmt.Sprintf(anomalyRemainder, rest))
		}
	}
	return recs
}

// trendNotices applies each check independently, in a fixed order.
func trendNotices(ctrTrend, cpcTrend float64) []string {
	var out []string
	if ctrTrend < -TrendThreshold {
		out = append(out, NoticeCTRFalling)
	}
	if ctrTrend > TrendThreshold {
		out = append(out, NoticeCTRRising)
	}
	if cpcTrend > TrendThreshold {
		out = append(out, NoticeCPCRising)
	}
	if cpcTrend < -TrendThreshold {
		out = append(out, NoticeCPCFalling)
	}
	if ctrTrend < -TrendBand && cpcTrend > TrendBand {
		out = append(out, NoticeCritical)
	}
	if ctrTrend > TrendBand && cpcTrend < -TrendBand {
		out = append(out, NoticeIdeal)
	}
	return out
}
