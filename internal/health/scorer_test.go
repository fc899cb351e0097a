package health_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ashita-ai/kenko/internal/health"
	"github.com/ashita-ai/kenko/internal/model"
	"github.com/ashita-ai/kenko/internal/rules"
)

func newScorer() *health.Scorer { return health.NewScorer(rules.Default()) }

func k(id model.KPIID, cat model.Category, dir model.Direction, cur, target float64, trend model.Trend, status model.HealthStatus) model.KPI {
	return model.KPI{ID: id, Category: cat, Direction: dir, Current: cur, Target: target, Trend: trend, Status: status}
}

func TestKPIScore(t *testing.T) {
	s := newScorer()
	tests := []struct {
		name string
		kpi  model.KPI
		want float64
	}{
		{
			"clamped at 100",
			k(model.KPIProfitMargin, model.CategoryFinancial, model.HigherIsBetter, 22, 18, model.TrendUp, model.StatusExcellent),
			100,
		},
		{
			"on target and stable keeps base",
			k(model.KPICSAT, model.CategoryCustomer, model.HigherIsBetter, 85, 85, model.TrendStable, model.StatusGood),
			75,
		},
		{
			"performance term capped at minus 15",
			k(model.KPIRevenueGrowth, model.CategoryFinancial, model.HigherIsBetter, 0, 15, model.TrendDown, model.StatusCritical),
			5,
		},
		{
			"lower is better inverts ratio but not trend",
			k(model.KPIChurnRate, model.CategoryCustomer, model.LowerIsBetter, 18, 5, model.TrendUp, model.StatusCritical),
			15,
		},
		{
			"lower is better on target rising gains the bonus",
			k(model.KPIChurnRate, model.CategoryCustomer, model.LowerIsBetter, 5, 5, model.TrendUp, model.StatusGood),
			80,
		},
		{
			"lower is better on target falling loses the bonus",
			k(model.KPIChurnRate, model.CategoryCustomer, model.LowerIsBetter, 5, 5, model.TrendDown, model.StatusGood),
			70,
		},
		{
			"lower is better well under target",
			k(model.KPICAC, model.CategoryCustomer, model.LowerIsBetter, 300, 600, model.TrendDown, model.StatusExcellent),
			100,
		},
		{
			"no target means neutral ratio",
			k(model.KPIRevenue, model.CategoryFinancial, model.HigherIsBetter, 1000, 0, model.TrendStable, model.StatusWarning),
			50,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := s.KPIScore(tt.kpi)
			assert.InDelta(t, tt.want, got, 1e-9)
			assert.GreaterOrEqual(t, got, 0.0)
			assert.LessOrEqual(t, got, 100.0)
		})
	}
}

func TestScoreAllInsufficientIsNeutral(t *testing.T) {
	var kpis []model.KPI
	for _, id := range model.AllKPIs {
		r := rules.Default().KPI(id)
		kpis = append(kpis, model.KPI{ID: id, Category: r.Category, Direction: r.Direction, Status: model.StatusCritical, Trend: model.TrendStable, InsufficientData: true})
	}
	h := newScorer().Score(kpis)
	assert.Equal(t, 50.0, h.Overall)
	assert.Equal(t, 50.0, h.Financial)
	assert.Equal(t, 50.0, h.Customer)
	assert.Equal(t, 50.0, h.Operational)
	assert.Equal(t, model.StatusWarning, h.Status)
	require.Len(t, h.Factors, 6)
	for _, f := range h.Factors {
		assert.Equal(t, 50.0, f.Score, f.Name)
	}
	assert.Empty(t, h.KPIScores)
}

func TestScoreRenormalizesPresentKPIs(t *testing.T) {
	kpis := []model.KPI{
		k(model.KPICSAT, model.CategoryCustomer, model.HigherIsBetter, 85, 85, model.TrendStable, model.StatusGood),
	}
	h := newScorer().Score(kpis)
	assert.Equal(t, 75.0, h.Customer, "single present KPI carries the whole category")
	assert.Equal(t, 50.0, h.Financial)
	assert.Equal(t, 50.0, h.Operational)
	// 0.4*50 + 0.35*75 + 0.25*50
	assert.InDelta(t, 58.8, h.Overall, 0.05)
	assert.Equal(t, model.StatusWarning, h.Status)
	assert.Equal(t, 75.0, h.KPIScores[model.KPICSAT])
}

func TestScoreFactorsFollowTable(t *testing.T) {
	kpis := []model.KPI{
		k(model.KPIChurnRate, model.CategoryCustomer, model.LowerIsBetter, 18, 5, model.TrendUp, model.StatusCritical),
	}
	h := newScorer().Score(kpis)
	require.Len(t, h.Factors, 6)
	var sum float64
	for _, f := range h.Factors {
		sum += f.Weight
	}
	assert.InDelta(t, 1.0, sum, 1e-9)
	assert.Equal(t, "Churn Management", h.Factors[4].Name)
	assert.Equal(t, 15.0, h.Factors[4].Score)
	assert.Equal(t, 50.0, h.Factors[0].Score, "missing KPI scores 50")
}

func TestTrend(t *testing.T) {
	s := newScorer()
	assert.Equal(t, model.HealthInsufficientData, s.Trend(70, nil))
	history := []float64{10, 60, 70, 80}
	assert.Equal(t, model.HealthImproving, s.Trend(75.1, history))
	assert.Equal(t, model.HealthDeclining, s.Trend(64.9, history))
	assert.Equal(t, model.HealthStable, s.Trend(75, history))
	assert.Equal(t, model.HealthStable, s.Trend(42, []float64{40}))
}

func TestCriticalFactors(t *testing.T) {
	h := model.HealthScore{Factors: []model.HealthFactor{
		{Name: "Revenue Growth", Score: 40, Weight: 0.2},
		{Name: "Profitability", Score: 80, Weight: 0.2},
		{Name: "Cost Efficiency", Score: 55, Weight: 0.2},
		{Name: "Customer Satisfaction", Score: 30, Weight: 0.2},
		{Name: "Churn Management", Score: 20, Weight: 0.1},
		{Name: "Customer Lifetime Value", Score: 59.9, Weight: 0.1},
	}}
	got := newScorer().CriticalFactors(h)
	assert.Equal(t, []string{
		"Churn Management: 20.0/100 (Impact: 2.0)",
		"Customer Lifetime Value: 59.9/100 (Impact: 6.0)",
		"Customer Satisfaction: 30.0/100 (Impact: 6.0)",
	}, got)
}

func TestImprovements(t *testing.T) {
	s := newScorer()

	got := s.Improvements(model.HealthScore{Overall: 45, Financial: 40, Customer: 70, Operational: 55})
	require.Len(t, got, 3)
	assert.Equal(t, "critical", got[0].Priority)
	assert.Equal(t, "Financial Health", got[1].Area)
	assert.Equal(t, "Operational Health", got[2].Area)
	assert.Equal(t, "medium", got[2].Priority)

	got = s.Improvements(model.HealthScore{Overall: 60, Financial: 70, Customer: 55, Operational: 70})
	require.Len(t, got, 2)
	assert.Equal(t, "high", got[0].Priority)
	assert.Equal(t, "Customer Health", got[1].Area)

	assert.Empty(t, s.Improvements(model.HealthScore{Overall: 85, Financial: 85, Customer: 85, Operational: 85}))
}
