package model

// HealthFactor is one named contributor to the overall health score.
type HealthFactor struct {
	Name   string  `json:"name"`
	KPI    KPIID   `json:"kpi"`
	Score  float64 `json:"score"`
	Weight float64 `json:"weight"`
}

// Impact is the factor's weighted contribution, used to rank critical factors.
func (f HealthFactor) Impact() float64 { return f.Score * f.Weight }

// HealthScore is the weighted roll-up of KPI scores. All scores are in
// [0, 100] and rounded to one decimal place.
type HealthScore struct {
	Overall     float64        `json:"overall_score"`
	Financial   float64        `json:"financial_health"`
	Customer    float64        `json:"customer_health"`
	Operational float64        `json:"operational_health"`
	Status      HealthStatus   `json:"status"`
	Factors     []HealthFactor `json:"factors"`
	// KPIScores holds the normalized per-KPI scores behind the category roll-up.
	KPIScores map[KPIID]float64 `json:"kpi_scores,omitempty"`
}

// CategoryScore returns the score for category c.
func (h HealthScore) CategoryScore(c Category) float64 {
	switch c {
	case CategoryFinancial:
		return h.Financial
	case CategoryCustomer:
		return h.Customer
	default:
		return h.Operational
	}
}

// HealthTrend compares the current overall score with recent history.
type HealthTrend string

const (
	HealthImproving        HealthTrend = "improving"
	HealthDeclining        HealthTrend = "declining"
	HealthStable           HealthTrend = "stable"
	HealthInsufficientData HealthTrend = "insufficient_data"
)

// Level is a three-step magnitude used for priority, impact, effort and risk.
type Level string

const (
	LevelHigh   Level = "high"
	LevelMedium Level = "medium"
	LevelLow    Level = "low"
)

// ImprovementAction is a health-level recommendation derived from the
// category scores.
type ImprovementAction struct {
	Priority       string `json:"priority"` // critical, high, medium
	Area           string `json:"area"`
	Action         string `json:"action"`
	ExpectedImpact string `json:"expected_impact"`
}
