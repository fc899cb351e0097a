package rules

import (
	"github.com/ashita-ai/kenko/internal/model"
)

// Thresholds are the three cut points between the four health statuses.
// For higher-is-better metrics a value at or above Excellent is EXCELLENT;
// for lower-is-better metrics a value at or below Excellent is.
type Thresholds struct {
	Excellent float64 `yaml:"excellent"`
	Good      float64 `yaml:"good"`
	Warning   float64 `yaml:"warning"`
}

// KPIRule is the static configuration of one metric.
type KPIRule struct {
	ID        model.KPIID
	Category  model.Category
	Unit      model.Unit
	Direction model.Direction
	// Target is the fixed goal. Ignored when TargetGrowth is set.
	Target float64
	// TargetGrowth derives the target from the previous period:
	// previous * (1 + TargetGrowth). Zero means use Target.
	TargetGrowth float64
	// RatioBased classifies on current/target instead of the raw value.
	RatioBased bool
	Thresholds Thresholds
	// Weight is the metric's share of its category score before
	// normalization. Zero excludes it from category scoring.
	Weight    float64
	Precision int
}

// Name is the human-readable metric name.
func (r KPIRule) Name() string { return r.ID.DisplayName() }

// TargetFor resolves the target given the previous-period value. A derived
// target with no usable previous value falls back to the current value so
// the business is measured against itself.
func (r KPIRule) TargetFor(current, previous float64) float64 {
	if r.TargetGrowth == 0 {
		return r.Target
	}
	if previous <= 0 {
		return current
	}
	return previous * (1 + r.TargetGrowth)
}

// Classify maps a value to a health status. It depends only on current,
// target and the rule's thresholds.
func (r KPIRule) Classify(current, target float64) model.HealthStatus {
	v := current
	if r.RatioBased {
		v = PerformanceRatio(current, target)
	}
	t := r.Thresholds
	if r.Direction == model.LowerIsBetter {
		switch {
		case v <= t.Excellent:
			return model.StatusExcellent
		case v <= t.Good:
			return model.StatusGood
		case v <= t.Warning:
			return model.StatusWarning
		default:
			return model.StatusCritical
		}
	}
	switch {
	case v >= t.Excellent:
		return model.StatusExcellent
	case v >= t.Good:
		return model.StatusGood
	case v >= t.Warning:
		return model.StatusWarning
	default:
		return model.StatusCritical
	}
}

// PerformanceRatio is current/target, or 1 when there is no positive target.
func PerformanceRatio(current, target float64) float64 {
	if target <= 0 {
		return 1
	}
	return current / target
}

// ratioThresholds is shared by the absolute-volume revenue metrics.
var ratioThresholds = Thresholds{Excellent: 0.95, Good: 0.85, Warning: 0.75}

// defaultKPIRule returns the built-in rule for id. The switch is total over
// model.AllKPIs; ok is false only for an unknown id.
func defaultKPIRule(id model.KPIID) (KPIRule, bool) {
	r := KPIRule{ID: id, Direction: model.HigherIsBetter, Precision: 1}
	switch id {
	case model.KPIRevenue:
		r.Category, r.Unit, r.Precision = model.CategoryFinancial, model.UnitCurrency, 2
		r.TargetGrowth, r.RatioBased, r.Thresholds = 0.10, true, ratioThresholds
		r.Weight = 0.25
	case model.KPIRevenueGrowth:
		r.Category, r.Unit = model.CategoryFinancial, model.UnitPercent
		r.Target, r.Thresholds = 15, Thresholds{15, 10, 5}
		r.Weight = 0.20
	case model.KPIProfitMargin:
		r.Category, r.Unit = model.CategoryFinancial, model.UnitPercent
		r.Target, r.Thresholds = 18, Thresholds{20, 15, 10}
		r.Weight = 0.25
	case model.KPIExpenseRatio:
		r.Category, r.Unit, r.Direction = model.CategoryFinancial, model.UnitPercent, model.LowerIsBetter
		r.Target, r.Thresholds = 75, Thresholds{70, 75, 85}
		r.Weight = 0.15
	case model.KPIMRR:
		r.Category, r.Unit, r.Precision = model.CategoryFinancial, model.UnitCurrency, 2
		r.Target, r.RatioBased, r.Thresholds = 150_000, true, ratioThresholds
		r.Weight = 0.10
	case model.KPIARR:
		r.Category, r.Unit, r.Precision = model.CategoryFinancial, model.UnitCurrency, 2
		r.Target, r.RatioBased, r.Thresholds = 1_800_000, true, ratioThresholds
		r.Weight = 0.05
	case model.KPICustomerHealth:
		r.Category, r.Unit = model.CategoryCustomer, model.UnitScore
		r.Target, r.Thresholds = 85, Thresholds{80, 70, 60}
		r.Weight = 0.25
	case model.KPIChurnRate:
		r.Category, r.Unit, r.Direction = model.CategoryCustomer, model.UnitPercent, model.LowerIsBetter
		r.Target, r.Thresholds = 5, Thresholds{3, 5, 8}
		r.Weight = 0.20
	case model.KPICLV:
		r.Category, r.Unit, r.Precision = model.CategoryCustomer, model.UnitCurrency, 2
		r.Target, r.Thresholds = 5000, Thresholds{5000, 3000, 1500}
		r.Weight = 0.15
	case model.KPICAC:
		r.Category, r.Unit, r.Direction, r.Precision = model.CategoryCustomer, model.UnitCurrency, model.LowerIsBetter, 2
		r.Target, r.Thresholds = 600, Thresholds{400, 600, 800}
		r.Weight = 0.10
	case model.KPILTVCACRatio:
		r.Category, r.Unit, r.Precision = model.CategoryCustomer, model.UnitRatio, 2
		r.Target, r.Thresholds = 3, Thresholds{5, 3, 2}
		r.Weight = 0.15
	case model.KPINPS:
		r.Category, r.Unit = model.CategoryCustomer, model.UnitScore
		r.Target, r.Thresholds = 50, Thresholds{50, 30, 10}
		r.Weight = 0.10
	case model.KPICSAT:
		r.Category, r.Unit = model.CategoryCustomer, model.UnitScore
		r.Target, r.Thresholds = 85, Thresholds{85, 75, 65}
		r.Weight = 0.05
	case model.KPIOperationalEfficiency:
		r.Category, r.Unit = model.CategoryOperational, model.UnitPercent
		r.Target, r.Thresholds = 80, Thresholds{90, 80, 70}
		r.Weight = 0.30
	case model.KPIEmployeeSatisfaction:
		r.Category, r.Unit = model.CategoryOperational, model.UnitScore
		r.Target, r.Thresholds = 80, Thresholds{85, 75, 65}
		r.Weight = 0.25
	case model.KPIMarketShare:
		r.Category, r.Unit = model.CategoryOperational, model.UnitPercent
		r.Target, r.Thresholds = 15, Thresholds{20, 15, 10}
		r.Weight = 0.20
	default:
		return KPIRule{}, false
	}
	return r, true
}

// Factor is one named contributor to the health score.
type Factor struct {
	Name   string
	KPI    model.KPIID
	Weight float64
}

var defaultFactors = []Factor{
	{Name: "Revenue Growth", KPI: model.KPIRevenueGrowth, Weight: 0.2},
	{Name: "Profitability", KPI: model.KPIProfitMargin, Weight: 0.2},
	{Name: "Cost Efficiency", KPI: model.KPIExpenseRatio, Weight: 0.2},
	{Name: "Customer Satisfaction", KPI: model.KPICustomerHealth, Weight: 0.2},
	{Name: "Churn Management", KPI: model.KPIChurnRate, Weight: 0.1},
	{Name: "Customer Lifetime Value", KPI: model.KPICLV, Weight: 0.1},
}
