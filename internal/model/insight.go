package model

import (
	"time"

	"github.com/google/uuid"
)

// Priority ranks insights. HIGH sorts first.
type Priority string

const (
	PriorityHigh   Priority = "high"
	PriorityMedium Priority = "medium"
	PriorityLow    Priority = "low"
)

// Rank orders priorities from most (0) to least (2) urgent.
func (p Priority) Rank() int {
	switch p {
	case PriorityHigh:
		return 0
	case PriorityMedium:
		return 1
	default:
		return 2
	}
}

// Source values for generated text.
const (
	SourceRuleBased = "rule-based"
	SourceLLM       = "llm"
)

// Insight is a rule-detected observation about one KPI or a combination of
// KPIs.
type Insight struct {
	ID                uuid.UUID `json:"id"`
	KPIID             KPIID     `json:"kpi_id"`
	Title             string    `json:"title"`
	Observation       string    `json:"observation"`
	BusinessImpact    string    `json:"business_impact"`
	RecommendedAction string    `json:"recommended_action"`
	Priority          Priority  `json:"priority"`
	GeneratedAt       time.Time `json:"generated_at"`
	AutoGenerated     bool      `json:"auto_generated"`
	Source            string    `json:"source"`
}

// ActionType is the verb of a recommendation.
type ActionType string

const (
	ActionIncrease    ActionType = "increase"
	ActionReduce      ActionType = "reduce"
	ActionInvestigate ActionType = "investigate"
	ActionPrioritize  ActionType = "prioritize"
	ActionMaintain    ActionType = "maintain"
)

// Timeframe is the horizon over which a recommendation should land.
type Timeframe string

const (
	TimeframeImmediate Timeframe = "immediate"
	TimeframeShortTerm Timeframe = "short-term"
	TimeframeLongTerm  Timeframe = "long-term"
)

// Recommendation is an action derived from a HIGH or MEDIUM insight.
type Recommendation struct {
	ID             uuid.UUID  `json:"id"`
	InsightID      uuid.UUID  `json:"insight_id"`
	KPIID          KPIID      `json:"kpi_id"`
	Title          string     `json:"title"`
	Description    string     `json:"description"`
	ActionType     ActionType `json:"action_type"`
	ExpectedImpact string     `json:"expected_impact"`
	Timeframe      Timeframe  `json:"timeframe"`
	Effort         Level      `json:"effort"`
	Confidence     Level      `json:"confidence"`
}

// Narrative is executive prose for a report, written either by a hosted
// model or by the rule-based fallback.
type Narrative struct {
	Summary    string   `json:"summary"`
	Priorities []string `json:"priorities"`
	Assessment string   `json:"assessment"`
	Source     string   `json:"source"`
	Model      string   `json:"model,omitempty"`
}
