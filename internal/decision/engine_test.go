package decision_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ashita-ai/kenko/internal/decision"
	"github.com/ashita-ai/kenko/internal/model"
	"github.com/ashita-ai/kenko/internal/rules"
)

var asOf = time.Date(2025, time.March, 15, 0, 0, 0, 0, time.UTC)

func newEngine() *decision.Engine { return decision.NewEngine(rules.Default()) }

func areas(ds []model.Decision) []model.Area {
	out := make([]model.Area, len(ds))
	for i, d := range ds {
		out[i] = d.Area
	}
	return out
}

func TestDecideCustomerCrisis(t *testing.T) {
	h := model.HealthScore{Overall: 72, Financial: 85, Customer: 45, Operational: 82}
	ds := newEngine().Decide(h)
	require.Len(t, ds, 4)

	assert.Equal(t, []model.Area{
		model.AreaCustomerSatisfaction,
		model.AreaMarketPosition,
		model.AreaRevenue,
		model.AreaOperationalEfficiency,
	}, areas(ds))

	cs := ds[0]
	assert.Equal(t, model.AreaCritical, cs.Status)
	assert.Equal(t, model.UrgencyImmediate, cs.Urgency)
	assert.Equal(t, model.LevelHigh, cs.Impact)
	assert.Equal(t, model.LevelHigh, cs.RiskLevel)
	assert.Contains(t, cs.Actions, "immediate_service_improvement")
	assert.Len(t, cs.SpecificRecommendations, 4)
	assert.Len(t, cs.SuccessMetrics, 4)
	assert.Equal(t, 175, cs.PriorityScore)
	assert.Equal(t, "1-2 weeks (immediate action required)", cs.EstimatedTimeline)

	mp := ds[1]
	assert.Equal(t, model.AreaWarning, mp.Status)
	assert.Equal(t, 100, mp.PriorityScore)
	assert.Equal(t, 30, ds[2].PriorityScore)
	assert.Equal(t, 30, ds[3].PriorityScore)

	s := newEngine().Summarize(ds, 16, true, asOf)
	assert.Equal(t, 1, s.CriticalIssuesCount)
	assert.Equal(t, []model.Area{model.AreaCustomerSatisfaction}, s.CriticalIssues)
	assert.Equal(t, []model.Area{model.AreaRevenue, model.AreaOperationalEfficiency}, s.Opportunities)
	assert.Contains(t, s.RecommendedFocus, "HIGH PRIORITY")
	require.Len(t, s.TopPriorities, 3)
	assert.Equal(t, 1, s.TopPriorities[0].Rank)
	assert.Equal(t, "Implement 24/7 customer support escalation team", s.TopPriorities[0].KeyAction)
}

func TestDecideAllGoodIsGrowth(t *testing.T) {
	h := model.HealthScore{Overall: 88, Financial: 90, Customer: 85, Operational: 88}
	ds := newEngine().Decide(h)
	assert.Equal(t, model.AllAreas, areas(ds), "ties keep declaration order")
	for _, d := range ds {
		assert.Equal(t, model.AreaGood, d.Status)
		assert.Equal(t, 30, d.PriorityScore)
	}

	s := newEngine().Summarize(ds, 16, true, asOf)
	assert.Zero(t, s.CriticalIssuesCount)
	assert.Equal(t, 4, s.OpportunitiesCount)
	assert.Contains(t, s.RecommendedFocus, "GROWTH")
	assert.Contains(t, s.HealthAssessment, "Excellent")
	assert.InDelta(t, 0.8775, s.OverallHealthScore, 1e-3)
	assert.InDelta(t, 0.98775, s.ConfidenceScore, 1e-3)
	assert.Equal(t, "2025-04-14", s.NextReviewDate)
}

func TestDecideRevenueThresholds(t *testing.T) {
	tests := []struct {
		financial float64
		want      model.AreaStatus
	}{
		{59.9, model.AreaCritical},
		{60, model.AreaWarning},
		{79.9, model.AreaWarning},
		{80, model.AreaGood},
	}
	for _, tt := range tests {
		ds := newEngine().Decide(model.HealthScore{Overall: 90, Financial: tt.financial, Customer: 90, Operational: 90})
		for _, d := range ds {
			if d.Area == model.AreaRevenue {
				assert.Equal(t, tt.want, d.Status, "financial %.1f", tt.financial)
			}
		}
	}
}

func TestDecideOrderingIsTotalAndStable(t *testing.T) {
	h := model.HealthScore{Overall: 40, Financial: 40, Customer: 40, Operational: 40}
	ds := newEngine().Decide(h)
	assert.Equal(t, model.AllAreas, areas(ds))
	for i := 1; i < len(ds); i++ {
		assert.GreaterOrEqual(t, ds[i-1].PriorityScore, ds[i].PriorityScore)
	}

	s := newEngine().Summarize(ds, 16, true, asOf)
	assert.Equal(t, 4, s.CriticalIssuesCount)
	assert.Contains(t, s.RecommendedFocus, "CRITICAL")
	assert.Contains(t, s.HealthAssessment, "Poor")
}

func TestSummarizeImprovement(t *testing.T) {
	h := model.HealthScore{Overall: 68, Financial: 62, Customer: 72, Operational: 72}
	ds := newEngine().Decide(h)
	for _, d := range ds {
		assert.Equal(t, model.AreaWarning, d.Status, d.Area)
	}
	s := newEngine().Summarize(ds, 0, false, asOf)
	assert.Zero(t, s.CriticalIssuesCount)
	assert.Zero(t, s.OpportunitiesCount)
	assert.Contains(t, s.RecommendedFocus, "IMPROVEMENT")
	assert.Contains(t, s.HealthAssessment, "Fair")
	assert.InDelta(t, 0.5+0.685*0.1, s.ConfidenceScore, 1e-3)
}

func TestSummarizeNoDecisions(t *testing.T) {
	s := newEngine().Summarize(nil, 0, false, asOf)
	assert.Empty(t, s.TopPriorities)
	assert.NotNil(t, s.CriticalIssues)
	assert.Contains(t, s.HealthAssessment, "Poor")
}

func TestPriority(t *testing.T) {
	d := model.Decision{Status: model.AreaWarning, Impact: model.LevelMedium, Urgency: model.UrgencyWithinWeek, RiskLevel: model.LevelMedium}
	assert.Equal(t, 100, decision.Priority(d))
}
