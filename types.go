package kenko

import (
	"time"

	"github.com/google/uuid"
)

// Role is the access level of an API client.
type Role string

const (
	RoleViewer  Role = "viewer"
	RoleAnalyst Role = "analyst"
	RoleAdmin   Role = "admin"
)

// ReportSummary is the public view of a completed report passed to
// ReportHook implementations.
type ReportSummary struct {
	ID          uuid.UUID
	AsOf        time.Time
	GeneratedAt time.Time
	// OverallScore is the composite health score in [0, 100].
	OverallScore     float64
	Status           string // excellent | good | warning | critical
	CriticalAreas    []string
	RecommendedFocus string
	// NarrativeSource is "llm" when a model wrote the narrative, otherwise
	// "rule-based".
	NarrativeSource string
}

// KPIBrief is one KPI as a Narrator sees it.
type KPIBrief struct {
	Name    string
	Current float64
	Target  float64
	Trend   string
	Status  string
}

// InsightBrief is one insight as a Narrator sees it.
type InsightBrief struct {
	Title       string
	Observation string
	Priority    string
}

// Brief is the input to a Narrator.
type Brief struct {
	AsOf         time.Time
	OverallScore float64
	Status       string
	Focus        string
	KPIs         []KPIBrief
	Insights     []InsightBrief
}

// Narrative is executive prose returned by a Narrator.
type Narrative struct {
	Summary    string
	Priorities []string
	Assessment string // excellent | good | warning | critical
	Model      string
}
