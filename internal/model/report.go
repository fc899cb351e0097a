package model

import (
	"time"

	"github.com/google/uuid"
)

// Signals are optional external measurements that replace built-in proxies.
type Signals struct {
	// MarketSize is total addressable revenue for the current month.
	MarketSize *float64 `json:"market_size,omitempty"`
	// EmployeeSatisfaction is a 0-100 staff survey score.
	EmployeeSatisfaction *float64 `json:"employee_satisfaction,omitempty"`
}

// AnalysisInput is everything one pipeline run consumes.
type AnalysisInput struct {
	AsOf    *Date   `json:"as_of,omitempty"`
	Records Records `json:"records"`
	// Baseline holds explicit previous-period values. An entry here always
	// wins over a previous value derived from records.
	Baseline map[KPIID]float64 `json:"baseline,omitempty"`
	Signals  Signals           `json:"signals,omitempty"`
	// History is prior overall health scores, oldest first.
	History []float64 `json:"history,omitempty"`
	Enrich  bool      `json:"enrich,omitempty"`
}

// Report is the persisted output of one analysis run.
type Report struct {
	ID               uuid.UUID           `json:"id"`
	AsOf             time.Time           `json:"as_of"`
	GeneratedAt      time.Time           `json:"generated_at"`
	KPIs             []KPI               `json:"kpis"`
	HealthScore      HealthScore         `json:"health_score"`
	HealthTrend      HealthTrend         `json:"health_trend"`
	CriticalFactors  []string            `json:"critical_factors"`
	Improvements     []ImprovementAction `json:"improvements"`
	Insights         []Insight           `json:"insights"`
	Recommendations  []Recommendation    `json:"recommendations"`
	Decisions        []Decision          `json:"decisions"`
	ExecutiveSummary ExecutiveSummary    `json:"executive_summary"`
	Narrative        Narrative           `json:"narrative"`
	DataQuality      DataQuality         `json:"data_quality"`
}

// ReportSummary is the list view of a stored report.
type ReportSummary struct {
	ID               uuid.UUID    `json:"id"`
	AsOf             time.Time    `json:"as_of"`
	OverallScore     float64      `json:"overall_score"`
	Status           HealthStatus `json:"status"`
	RecommendedFocus string       `json:"recommended_focus"`
	CreatedAt        time.Time    `json:"created_at"`
}

// Summarize builds the list view of r.
func (r Report) Summarize() ReportSummary {
	return ReportSummary{
		ID:               r.ID,
		AsOf:             r.AsOf,
		OverallScore:     r.HealthScore.Overall,
		Status:           r.HealthScore.Status,
		RecommendedFocus: r.ExecutiveSummary.RecommendedFocus,
		CreatedAt:        r.GeneratedAt,
	}
}

// CriticalAreas returns the areas whose decision status is critical.
func (r Report) CriticalAreas() []Area {
	var out []Area
	for _, d := range r.Decisions {
		if d.Status == AreaCritical {
			out = append(out, d.Area)
		}
	}
	return out
}
