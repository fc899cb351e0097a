package rules_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ashita-ai/kenko/internal/model"
	"github.com/ashita-ai/kenko/internal/rules"
)

func TestDefaultValidates(t *testing.T) {
	r := rules.Default()
	require.NoError(t, r.Validate())
	assert.InDelta(t, 1.0, r.Combination().Sum(), 1e-12)

	for _, cat := range []model.Category{model.CategoryFinancial, model.CategoryCustomer, model.CategoryOperational} {
		var sum float64
		for _, id := range model.AllKPIs {
			if r.KPI(id).Category == cat {
				sum += r.CategoryWeight(id)
			}
		}
		assert.InDelta(t, 1.0, sum, 1e-9, "category %s", cat)
	}
}

func TestOperationalWeightsAreNormalized(t *testing.T) {
	r := rules.Default()
	// Raw operational weights are 0.30/0.25/0.20 and sum to 0.75.
	assert.InDelta(t, 0.4, r.CategoryWeight(model.KPIOperationalEfficiency), 1e-9)
	assert.InDelta(t, 0.25/0.75, r.CategoryWeight(model.KPIEmployeeSatisfaction), 1e-9)
}

func TestClassify(t *testing.T) {
	r := rules.Default()
	tests := []struct {
		name    string
		kpi     model.KPIID
		current float64
		target  float64
		want    model.HealthStatus
	}{
		{"margin excellent", model.KPIProfitMargin, 22, 18, model.StatusExcellent},
		{"margin at good boundary", model.KPIProfitMargin, 15, 18, model.StatusGood},
		{"margin warning", model.KPIProfitMargin, 12, 18, model.StatusWarning},
		{"margin critical", model.KPIProfitMargin, 9.9, 18, model.StatusCritical},
		{"churn excellent", model.KPIChurnRate, 3, 5, model.StatusExcellent},
		{"churn good", model.KPIChurnRate, 4.5, 5, model.StatusGood},
		{"churn warning", model.KPIChurnRate, 8, 5, model.StatusWarning},
		{"churn critical", model.KPIChurnRate, 18, 5, model.StatusCritical},
		{"revenue ratio excellent", model.KPIRevenue, 960_000, 1_000_000, model.StatusExcellent},
		{"revenue ratio good", model.KPIRevenue, 850_000, 1_000_000, model.StatusGood},
		{"revenue ratio warning", model.KPIRevenue, 800_000, 1_000_000, model.StatusWarning},
		{"revenue ratio critical", model.KPIRevenue, 700_000, 1_000_000, model.StatusCritical},
		{"mrr against fixed target", model.KPIMRR, 150_000, 150_000, model.StatusExcellent},
		{"cac good", model.KPICAC, 550, 600, model.StatusGood},
		{"ltv cac excellent", model.KPILTVCACRatio, 5.2, 3, model.StatusExcellent},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, r.KPI(tt.kpi).Classify(tt.current, tt.target))
		})
	}
}

func TestClassifyIsDeterministic(t *testing.T) {
	r := rules.Default()
	for _, id := range model.AllKPIs {
		k := r.KPI(id)
		first := k.Classify(42, k.Target)
		for range 5 {
			assert.Equal(t, first, k.Classify(42, k.Target), id)
		}
	}
}

func TestTargetFor(t *testing.T) {
	r := rules.Default()
	assert.InDelta(t, 1_100_000, r.KPI(model.KPIRevenue).TargetFor(900_000, 1_000_000), 1e-6)
	assert.Equal(t, 900_000.0, r.KPI(model.KPIRevenue).TargetFor(900_000, 0), "no previous revenue falls back to current")
	assert.Equal(t, 18.0, r.KPI(model.KPIProfitMargin).TargetFor(5, 100))
}

func TestAreaStatus(t *testing.T) {
	r := rules.Default()
	rev := r.Area(model.AreaRevenue)
	assert.Equal(t, model.AreaCritical, rev.Status(0.59))
	assert.Equal(t, model.AreaWarning, rev.Status(0.6))
	assert.Equal(t, model.AreaWarning, rev.Status(0.79))
	assert.Equal(t, model.AreaGood, rev.Status(0.8))

	mp := r.Area(model.AreaMarketPosition)
	assert.Equal(t, model.AreaWarning, mp.Status(0.7))
	assert.Equal(t, model.AreaGood, mp.Status(0.75))
}

func TestAreaReturnsIndependentCopy(t *testing.T) {
	r := rules.Default()
	first := r.Area(model.AreaRevenue)
	require.NotEmpty(t, first.Playbooks[model.AreaCritical].Actions)
	want := first.Playbooks[model.AreaCritical].Actions[0]

	first.Playbooks[model.AreaCritical].Actions[0] = "mutated"
	first.Playbooks[model.AreaGood] = rules.Playbook{}
	if len(first.SuccessMetrics) > 0 {
		first.SuccessMetrics[0] = "mutated"
	}

	again := r.Area(model.AreaRevenue)
	assert.Equal(t, want, again.Playbooks[model.AreaCritical].Actions[0])
	assert.NotEmpty(t, again.Playbooks[model.AreaGood].Actions)
	for _, m := range again.SuccessMetrics {
		assert.NotEqual(t, "mutated", m)
	}
}

func TestOverallStatus(t *testing.T) {
	r := rules.Default()
	assert.Equal(t, model.StatusExcellent, r.OverallStatus(80))
	assert.Equal(t, model.StatusGood, r.OverallStatus(79.9))
	assert.Equal(t, model.StatusGood, r.OverallStatus(65))
	assert.Equal(t, model.StatusWarning, r.OverallStatus(50))
	assert.Equal(t, model.StatusCritical, r.OverallStatus(49.9))
}

func TestParseOverrides(t *testing.T) {
	r, err := rules.Parse(strings.NewReader(`
kpis:
  churn-rate:
    target: 4
    thresholds: {excellent: 2, good: 4, warning: 7}
areas:
  revenue: {critical: 0.55}
`))
	require.NoError(t, err)
	assert.Equal(t, 4.0, r.KPI(model.KPIChurnRate).Target)
	assert.Equal(t, model.StatusWarning, r.KPI(model.KPIChurnRate).Classify(6, 4))
	assert.Equal(t, 0.55, r.Area(model.AreaRevenue).CriticalThreshold)
	assert.Equal(t, 0.8, r.Area(model.AreaRevenue).WarningThreshold)

	// Defaults are untouched by Apply.
	assert.Equal(t, 5.0, rules.Default().KPI(model.KPIChurnRate).Target)
}

func TestParseEmptyDocument(t *testing.T) {
	r, err := rules.Parse(strings.NewReader(""))
	require.NoError(t, err)
	assert.Equal(t, rules.Default().Combination(), r.Combination())
}

func TestParseRejectsInvalid(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		want string
	}{
		{"unknown field", "kpi: {}", "decode"},
		{"unknown kpi", "kpis: {ebitda: {target: 1}}", "unknown kpi"},
		{"unknown area", "areas: {pricing: {critical: 0.1}}", "unknown area"},
		{"combination sum", "combination: {financial: 0.5, customer: 0.5, operational: 0.5}", "combination weights"},
		{"inverted area thresholds", "areas: {revenue: {critical: 0.9, warning: 0.6}}", "critical <= warning"},
		{"unordered thresholds", "kpis: {csat: {thresholds: {excellent: 60, good: 75, warning: 65}}}", "excellent >= good"},
		{"unordered lower thresholds", "kpis: {cac: {thresholds: {excellent: 900, good: 600, warning: 800}}}", "excellent <= good"},
		{"category with no weight", "kpis: {operational-efficiency: {weight: 0}, employee-satisfaction: {weight: 0}, market-share: {weight: 0}}", "operational weights"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := rules.Parse(strings.NewReader(tt.yaml))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestLoadEmptyPathReturnsDefault(t *testing.T) {
	r, err := rules.Load("")
	require.NoError(t, err)
	require.NoError(t, r.Validate())
}
