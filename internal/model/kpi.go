package model

import (
	"math"
	"strings"
	"time"
)

// KPIID identifies one of the sixteen business metrics. The set is closed:
// every component that branches on a KPIID handles all of them.
type KPIID string

const (
	KPIRevenue               KPIID = "revenue"
	KPIRevenueGrowth         KPIID = "revenue-growth"
	KPIProfitMargin          KPIID = "profit-margin"
	KPIExpenseRatio          KPIID = "expense-ratio"
	KPICustomerHealth        KPIID = "customer-health"
	KPIChurnRate             KPIID = "churn-rate"
	KPICLV                   KPIID = "clv"
	KPICAC                   KPIID = "cac"
	KPILTVCACRatio           KPIID = "ltv-cac-ratio"
	KPIMRR                   KPIID = "mrr"
	KPIARR                   KPIID = "arr"
	KPINPS                   KPIID = "nps"
	KPICSAT                  KPIID = "csat"
	KPIOperationalEfficiency KPIID = "operational-efficiency"
	KPIEmployeeSatisfaction  KPIID = "employee-satisfaction"
	KPIMarketShare           KPIID = "market-share"
)

// AllKPIs lists every KPIID in declaration order. Calculator output and
// per-KPI insight generation follow this order.
var AllKPIs = []KPIID{
	KPIRevenue,
	KPIRevenueGrowth,
	KPIProfitMargin,
	KPIExpenseRatio,
	KPICustomerHealth,
	KPIChurnRate,
	KPICLV,
	KPICAC,
	KPILTVCACRatio,
	KPIMRR,
	KPIARR,
	KPINPS,
	KPICSAT,
	KPIOperationalEfficiency,
	KPIEmployeeSatisfaction,
	KPIMarketShare,
}

// Valid reports whether id is one of the declared KPIs.
func (id KPIID) Valid() bool {
	for _, k := range AllKPIs {
		if k == id {
			return true
		}
	}
	return false
}

// DisplayName turns "profit-margin" into "Profit Margin".
func (id KPIID) DisplayName() string {
	words := strings.Split(string(id), "-")
	for i, w := range words {
		if w == "" {
			continue
		}
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}

// HealthStatus is the four-level bucket assigned to a KPI or score.
type HealthStatus string

const (
	StatusExcellent HealthStatus = "excellent"
	StatusGood      HealthStatus = "good"
	StatusWarning   HealthStatus = "warning"
	StatusCritical  HealthStatus = "critical"
)

// Rank orders statuses from best (0) to worst (3).
func (s HealthStatus) Rank() int {
	switch s {
	case StatusExcellent:
		return 0
	case StatusGood:
		return 1
	case StatusWarning:
		return 2
	default:
		return 3
	}
}

// Trend is the raw direction of a metric between two periods.
type Trend string

const (
	TrendUp     Trend = "up"
	TrendDown   Trend = "down"
	TrendStable Trend = "stable"
)

// TrendOf compares two values. Equal values are STABLE.
func TrendOf(current, previous float64) Trend {
	switch {
	case current > previous:
		return TrendUp
	case current < previous:
		return TrendDown
	default:
		return TrendStable
	}
}

// Category groups KPIs for health scoring.
type Category string

const (
	CategoryFinancial   Category = "financial"
	CategoryCustomer    Category = "customer"
	CategoryOperational Category = "operational"
)

// Direction says whether a larger metric value is good or bad.
type Direction string

const (
	HigherIsBetter Direction = "higher"
	LowerIsBetter  Direction = "lower"
)

// Favorable reports whether movement t is an improvement for direction d.
// STABLE is neither favorable nor adverse.
func (d Direction) Favorable(t Trend) bool {
	if d == LowerIsBetter {
		return t == TrendDown
	}
	return t == TrendUp
}

// Adverse reports whether movement t is a deterioration for direction d.
func (d Direction) Adverse(t Trend) bool {
	if d == LowerIsBetter {
		return t == TrendUp
	}
	return t == TrendDown
}

// Unit describes how a KPI value is expressed.
type Unit string

const (
	UnitCurrency Unit = "currency"
	UnitPercent  Unit = "percent"
	UnitRatio    Unit = "ratio"
	UnitScore    Unit = "score"
)

// HistoricalValue is one monthly observation of a KPI.
type HistoricalValue struct {
	Period string  `json:"period"` // YYYY-MM
	Value  float64 `json:"value"`
}

// KPI is a computed business metric. KPIs are values: components derive
// new data from them but never modify them.
type KPI struct {
	ID               KPIID             `json:"id"`
	Name             string            `json:"name"`
	Category         Category          `json:"category"`
	Unit             Unit              `json:"unit"`
	Direction        Direction         `json:"direction"`
	Current          float64           `json:"current_value"`
	Previous         float64           `json:"previous_value"`
	Target           float64           `json:"target"`
	Trend            Trend             `json:"trend"`
	Status           HealthStatus      `json:"status"`
	History          []HistoricalValue `json:"historical_data,omitempty"`
	InsufficientData bool              `json:"insufficient_data,omitempty"`
	LastUpdated      time.Time         `json:"last_updated"`
}

// KPISet indexes KPIs by id.
type KPISet map[KPIID]KPI

// IndexKPIs builds a KPISet. Later duplicates win.
func IndexKPIs(kpis []KPI) KPISet {
	set := make(KPISet, len(kpis))
	for _, k := range kpis {
		set[k.ID] = k
	}
	return set
}

// Round rounds v to the given number of decimal places.
func Round(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}

// Round1 rounds v to one decimal place, the precision of all health scores.
func Round1(v float64) float64 { return Round(v, 1) }

// Clamp bounds v to [lo, hi].
func Clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
