package strategy

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AngelCh415/strategy-engine/internal/analytics"
	"github.com/AngelCh415/strategy-engine/internal/models"
)

func trends(ctr, cpc float64) map[string]float64 {
	return map[string]float64{analytics.KeyCTRTrend: ctr, analytics.KeyCPCTrend: cpc}
}

func TestEveryTypeHasFiveTemplates(t *testing.T) {
	for _, st := range models.StrategyTypes {
		recs := Recommend("google", st, nil, nil)
		require.Len(t, recs, 5, st)
		assert.Contains(t, strings.Join(recs, "\n"), "google", st)
		for _, r := range recs {
			assert.NotContains(t, r, sourcePlaceholder)
		}
	}
}

func TestRecommendUnknownTypeFallsBackToAudit(t *testing.T) {
	recs := Recommend("vk", models.StrategyType("BOGUS"), nil, nil)
	assert.Equal(t, []string{"Run a general audit of the ad campaigns on vk"}, recs)
}

func TestTrendNotices(t *testing.T) {
	cases := []struct {
		name     string
		ctr, cpc float64
		want     []string
	}{
		{"flat", 0, 0, nil},
		{"critical", -0.2, 0.2, []string{NoticeCTRFalling, NoticeCPCRising, NoticeCritical}},
		{"ideal", 0.2, -0.2, []string{NoticeCTRRising, NoticeCPCFalling, NoticeIdeal}},
		{"combined only", -0.06, 0.06, []string{NoticeCritical}},
		{"thresholds are strict", 0.1, -0.1, []string{NoticeIdeal}},
		{"band edges are strict", -0.05, 0.05, nil},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			recs := Recommend("yandex", models.CostReduction, trends(tc.ctr, tc.cpc), nil)
			assert.Equal(t, tc.want, nilIfEmpty(recs[5:]))
		})
	}
}

func TestAnomalyBlock(t *testing.T) {
	two := []string{"a1", "a2"}
	recs := Recommend("yandex", models.Retargeting, trends(0, 0), two)
	assert.Equal(t, []string{AnomalyHeader, "- a1", "- a2"}, recs[5:])

	five := []string{"a1", "a2", "a3", "a4", "a5"}
	recs = Recommend("yandex", models.Retargeting, trends(0, 0), five)
	assert.Equal(t, []string{AnomalyHeader, "- a1", "- a2", "- a3", fmt.Sprintf(anomalyRemainder, 2)}, recs[5:])

	three := []string{"a1", "a2", "a3"}
	recs = Recommend("yandex", models.Retargeting, trends(0, 0), three)
	assert.Len(t, recs, 5+1+3)
}

func TestRecommendOrder(t *testing.T) {
	recs := Recommend("google", models.ReachExpansion, trends(0.2, -0.2), []string{"x"})
	bank := Recommend("google", models.ReachExpansion, nil, nil)
	require.Len(t, recs, 5+3+2)
	assert.Equal(t, bank, recs[:5])
	assert.Equal(t, []string{NoticeCTRRising, NoticeCPCFalling, NoticeIdeal}, recs[5:8])
	assert.Equal(t, []string{AnomalyHeader, "- x"}, recs[8:])
}

func nilIfEmpty(s []string) []string {
	if len(s) == 0 {
		return nil
	}
	return s
}
