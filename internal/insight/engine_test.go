package insight_test

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ashita-ai/kenko/internal/insight"
	"github.com/ashita-ai/kenko/internal/model"
	"github.com/ashita-ai/kenko/internal/rules"
)

var now = time.Date(2025, time.March, 15, 0, 0, 0, 0, time.UTC)

func newEngine() *insight.Engine { return insight.NewEngine(rules.Default()) }

func kpiOf(id model.KPIID, cur, target float64, trend model.Trend, status model.HealthStatus) model.KPI {
	r := rules.Default().KPI(id)
	return model.KPI{
		ID: id, Name: r.Name(), Category: r.Category, Direction: r.Direction,
		Current: cur, Target: target, Trend: trend, Status: status,
	}
}

func titles(ins []model.Insight) []string {
	out := make([]string, len(ins))
	for i, in := range ins {
		out[i] = in.Title
	}
	return out
}

func TestRevenueBelowTargetIsMedium(t *testing.T) {
	kpis := []model.KPI{kpiOf(model.KPIRevenue, 800_000, 1_000_000, model.TrendStable, model.StatusWarning)}
	got := newEngine().Generate(kpis, model.Records{}, now)
	require.Len(t, got, 1)
	in := got[0]
	assert.Equal(t, "Revenue Below Target", in.Title)
	assert.Equal(t, "Revenue is 20.0% below target", in.Observation)
	assert.Equal(t, model.PriorityMedium, in.Priority)
	assert.Equal(t, model.KPIRevenue, in.KPIID)
	assert.True(t, in.AutoGenerated)
	assert.Equal(t, model.SourceRuleBased, in.Source)
	assert.Equal(t, now, in.GeneratedAt)
}

func TestTargetThresholdsAreInclusive(t *testing.T) {
	tests := []struct {
		name string
		kpi  model.KPI
		want string
	}{
		{"revenue at 80%", kpiOf(model.KPIRevenue, 800_000, 1_000_000, model.TrendStable, model.StatusWarning), "Revenue Below Target"},
		{"churn at target/0.8", kpiOf(model.KPIChurnRate, 6.25, 5, model.TrendStable, model.StatusWarning), "Churn Rate Below Target"},
		{"margin at 120%", kpiOf(model.KPIProfitMargin, 120, 100, model.TrendStable, model.StatusGood), "Profit Margin Exceeds Target"},
		{"cac at target/1.2", kpiOf(model.KPICAC, 500, 600, model.TrendStable, model.StatusGood), "Cac Exceeds Target"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := newEngine().Generate([]model.KPI{tt.kpi}, model.Records{}, now)
			assert.Equal(t, []string{tt.want}, titles(got))
		})
	}
}

func TestLowerIsBetterUnderperformance(t *testing.T) {
	kpis := []model.KPI{kpiOf(model.KPIChurnRate, 18, 5, model.TrendUp, model.StatusCritical)}
	got := newEngine().Generate(kpis, model.Records{}, now)
	assert.Equal(t, []string{"Churn Rate Below Target", "Declining Churn Rate Trend"}, titles(got))
	assert.Equal(t, model.PriorityHigh, got[0].Priority, "260% gap")
	assert.Equal(t, model.PriorityHigh, got[1].Priority)
}

func TestOverperformanceAndMomentum(t *testing.T) {
	kpis := []model.KPI{
		kpiOf(model.KPIProfitMargin, 25, 18, model.TrendUp, model.StatusExcellent),
		kpiOf(model.KPICAC, 300, 600, model.TrendDown, model.StatusExcellent),
	}
	got := newEngine().Generate(kpis, model.Records{}, now)
	assert.Equal(t, []string{
		"Profit Margin Exceeds Target",
		"Strong Profit Margin Momentum",
		"Cac Exceeds Target",
		"Strong Cac Momentum",
	}, titles(got))
	for _, in := range got {
		assert.Equal(t, model.PriorityLow, in.Priority)
	}
}

func TestInsufficientKPIsAreSkipped(t *testing.T) {
	k := kpiOf(model.KPIRevenue, 0, 1_000_000, model.TrendStable, model.StatusCritical)
	k.InsufficientData = true
	assert.Empty(t, newEngine().Generate([]model.KPI{k}, model.Records{}, now))
}

func TestRankingIsStableByPriority(t *testing.T) {
	kpis := []model.KPI{
		kpiOf(model.KPIProfitMargin, 25, 18, model.TrendStable, model.StatusExcellent),
		kpiOf(model.KPIRevenue, 800_000, 1_000_000, model.TrendStable, model.StatusWarning),
		kpiOf(model.KPICSAT, 50, 85, model.TrendStable, model.StatusCritical),
		kpiOf(model.KPINPS, 35, 50, model.TrendStable, model.StatusGood),
	}
	got := newEngine().Generate(kpis, model.Records{}, now)
	assert.Equal(t, []string{
		"Csat Below Target",
		"Revenue Below Target",
		"Nps Below Target",
		"Profit Margin Exceeds Target",
	}, titles(got))
	assert.Equal(t, model.PriorityMedium, got[2].Priority, "a 30.0% gap is not above 30")
}

func TestGenerateCapsAtTen(t *testing.T) {
	var kpis []model.KPI
	for _, id := range model.AllKPIs {
		r := rules.Default().KPI(id)
		cur, trend := 1.0, model.TrendDown
		if r.Direction == model.LowerIsBetter {
			cur, trend = r.Target*10, model.TrendUp
		}
		target := r.Target
		if target == 0 {
			target = 100
		}
		kpis = append(kpis, kpiOf(id, cur, target, trend, model.StatusCritical))
	}
	got := newEngine().Generate(kpis, model.Records{}, now)
	require.Len(t, got, 10)
	for _, in := range got {
		assert.Equal(t, model.PriorityHigh, in.Priority)
	}
}

func TestCrossKPIRules(t *testing.T) {
	kpis := []model.KPI{
		kpiOf(model.KPIRevenue, 100, 100, model.TrendDown, model.StatusExcellent),
		kpiOf(model.KPIProfitMargin, 18, 18, model.TrendDown, model.StatusGood),
		kpiOf(model.KPIChurnRate, 5, 5, model.TrendUp, model.StatusGood),
		kpiOf(model.KPICAC, 550, 600, model.TrendUp, model.StatusGood),
	}
	got := newEngine().Generate(kpis, model.Records{}, now)
	assert.Equal(t, []string{"Revenue and Margin Double Decline", "Leaky Bucket Syndrome"}, titles(got))
	assert.Equal(t, model.KPIRevenue, got[0].KPIID)
	assert.Equal(t, model.KPICAC, got[1].KPIID)
}

func TestRecordRules(t *testing.T) {
	d := model.NewDate(2025, time.March, 1)
	var sales []model.SalesTransaction
	sales = append(sales, model.SalesTransaction{TransactionID: "big", CustomerID: "whale", Date: d, Amount: 900, ProductCategory: "software", Margin: 400})
	for i := range 9 {
		sales = append(sales, model.SalesTransaction{
			TransactionID: fmt.Sprintf("t%d", i), CustomerID: fmt.Sprintf("c%d", i), Date: d,
			Amount: 10, ProductCategory: "hardware", Margin: 0.5,
		})
	}
	records := model.Records{
		Sales: sales,
		Customers: []model.Customer{
			{CustomerID: "a", Segment: "enterprise", ChurnProbability: 0.1},
			{CustomerID: "b", Segment: "smb", ChurnProbability: 0.2},
			{CustomerID: "c", Segment: "smb", ChurnProbability: 0.4},
		},
	}
	kpis := []model.KPI{
		kpiOf(model.KPIRevenue, 990, 990, model.TrendStable, model.StatusExcellent),
		kpiOf(model.KPIProfitMargin, 18, 18, model.TrendStable, model.StatusGood),
		kpiOf(model.KPIChurnRate, 5, 5, model.TrendStable, model.StatusGood),
	}
	got := newEngine().Generate(kpis, records, now)
	require.Len(t, got, 3)

	assert.Equal(t, "High Churn in smb Segment", got[0].Title)
	assert.Equal(t, "smb segment has 30.0% churn probability", got[0].Observation)
	assert.Equal(t, model.PriorityHigh, got[0].Priority)

	assert.Equal(t, "High Customer Revenue Concentration", got[1].Title)
	assert.Equal(t, "Top 10% of customers generate 90.9% of revenue", got[1].Observation)

	assert.Equal(t, "Low Margin in hardware Category", got[2].Title)
	assert.Equal(t, "hardware category has only 5.0% profit margin", got[2].Observation)
}
