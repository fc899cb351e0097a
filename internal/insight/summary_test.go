package insight_test

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ashita-ai/kenko/internal/insight"
	"github.com/ashita-ai/kenko/internal/model"
)

func ins(title string, p model.Priority) model.Insight {
	return model.Insight{ID: uuid.New(), Title: title, Priority: p}
}

func TestRecommend(t *testing.T) {
	insights := []model.Insight{
		ins("Margin Squeeze", model.PriorityMedium),
		ins("Revenue Below Target", model.PriorityHigh),
		ins("Declining Revenue Trend", model.PriorityHigh),
		ins("High Churn in smb Segment", model.PriorityHigh),
		ins("Expense Ratio Below Target", model.PriorityMedium),
		ins("Nps Below Target", model.PriorityMedium),
		ins("Strong Csat Momentum", model.PriorityLow),
	}
	got := newEngine().Recommend(insights)
	require.Len(t, got, 5, "duplicate revenue template and the LOW insight are dropped")

	var ts []string
	for _, r := range got {
		ts = append(ts, r.Title)
	}
	assert.Equal(t, []string{
		"Accelerate Revenue Growth Initiative",
		"Customer Retention Excellence Program",
		"Profit Margin Optimization Program",
		"Strategic Cost Optimization Initiative",
		"Performance Improvement Initiative",
	}, ts)
	assert.Equal(t, insights[1].ID, got[0].InsightID)
	assert.Equal(t, model.ActionReduce, got[3].ActionType)
	assert.LessOrEqual(t, len(got), 8)
}

func TestRecommendNothingForLowInsights(t *testing.T) {
	assert.Empty(t, newEngine().Recommend([]model.Insight{ins("Strong Revenue Momentum", model.PriorityLow)}))
}

func TestPeriod(t *testing.T) {
	assert.Equal(t, "Q1 2025", insight.Period(time.Date(2025, time.March, 31, 0, 0, 0, 0, time.UTC)))
	assert.Equal(t, "Q2 2025", insight.Period(time.Date(2025, time.April, 1, 0, 0, 0, 0, time.UTC)))
	assert.Equal(t, "Q4 2024", insight.Period(time.Date(2024, time.December, 9, 0, 0, 0, 0, time.UTC)))
}

func TestHighlights(t *testing.T) {
	h := model.HealthScore{Overall: 61.2, Financial: 55, Customer: 70.5, Operational: 60, Status: model.StatusWarning}
	kpis := []model.KPI{
		kpiOf(model.KPIRevenue, 1, 2, model.TrendDown, model.StatusCritical),
		kpiOf(model.KPICAC, 300, 600, model.TrendDown, model.StatusExcellent),
	}
	assert.Equal(t, []string{
		"Overall business health: WARNING (61.2/100)",
		"Strongest performance: Customer (70.5/100)",
		"Critical attention needed: 1 KPIs in critical state",
		"Positive momentum: 1 KPIs showing strong favorable trends",
	}, insight.Highlights(kpis, h))
}

func TestTopRisksAndOpportunities(t *testing.T) {
	insights := []model.Insight{
		ins("A", model.PriorityHigh),
		ins("B", model.PriorityHigh),
		ins("Strong Csat Momentum", model.PriorityLow),
		ins("C", model.PriorityHigh),
		ins("D", model.PriorityHigh),
		ins("Profit Margin Exceeds Target", model.PriorityLow),
		ins("Strong Nps Momentum", model.PriorityLow),
	}
	risks := insight.TopRisks(insights)
	assert.Equal(t, []string{"A", "B", "C"}, titles(risks))

	kpis := []model.KPI{
		kpiOf(model.KPIProfitMargin, 19, 18, model.TrendUp, model.StatusGood),
		kpiOf(model.KPIChurnRate, 2, 5, model.TrendDown, model.StatusExcellent),
	}
	opps := insight.Opportunities(insights, kpis, now)
	assert.Equal(t, []string{"Strong Csat Momentum", "Profit Margin Exceeds Target", "Scale Churn Rate Success"}, titles(opps))
	assert.Equal(t, model.KPIChurnRate, opps[2].KPIID)
}

func TestNarrative(t *testing.T) {
	h := model.HealthScore{Overall: 72.4, Financial: 70, Customer: 75, Operational: 71.5, Status: model.StatusGood}
	n := insight.Narrative(h, 2, 3)
	assert.Contains(t, n, "solid performance with opportunities for improvement with an overall health score of 72.4/100")
	assert.Contains(t, n, "operational efficiency at 71.5/100")
	assert.Contains(t, n, "addressing the 2 identified risks while capitalizing on 3 growth opportunities")
}

func TestSummarize(t *testing.T) {
	h := model.HealthScore{Overall: 40, Financial: 40, Customer: 40, Operational: 40, Status: model.StatusCritical}
	insights := []model.Insight{ins("Revenue Below Target", model.PriorityHigh)}
	s := newEngine().Summarize(nil, insights, h, now)
	assert.Equal(t, "Q1 2025", s.Period)
	assert.Len(t, s.Risks, 1)
	assert.Empty(t, s.Opportunities)
	assert.Contains(t, s.Narrative, "significant challenges demanding immediate action")
	assert.Equal(t, "Strongest performance: Financial (40.0/100)", s.Highlights[1])
}
