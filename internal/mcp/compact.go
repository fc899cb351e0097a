package mcp

import (
	"math"

	"github.com/ashita-ai/kenko/internal/model"
)

const (
	maxCompactText      = 280
	maxCompactInsights  = 5
	maxCompactDecisions = 4
)

// compactReport returns a minimal representation of a report for MCP
// responses. It drops KPI history, health factors, resource requirements
// and the long-form executive text that agents rarely act on.
func compactReport(r model.Report) map[string]any {
	kpis := make([]map[string]any, 0, len(r.KPIs))
	for _, k := range r.KPIs {
		kpis = append(kpis, compactKPI(k))
	}

	decisions := make([]map[string]any, 0, min(len(r.Decisions), maxCompactDecisions))
	for _, d := range r.Decisions[:min(len(r.Decisions), maxCompactDecisions)] {
		decisions = append(decisions, compactDecision(d))
	}

	insights := make([]map[string]any, 0, min(len(r.Insights), maxCompactInsights))
	for _, in := range r.Insights[:min(len(r.Insights), maxCompactInsights)] {
		insights = append(insights, map[string]any{
			"kpi_id":   in.KPIID,
			"title":    in.Title,
			"priority": in.Priority,
			"action":   truncate(in.RecommendedAction, maxCompactText),
		})
	}

	m := map[string]any{
		"id":                r.ID,
		"as_of":             r.AsOf.Format("2006-01-02"),
		"overall_score":     r.HealthScore.Overall,
		"status":            r.HealthScore.Status,
		"trend":             r.HealthTrend,
		"financial_health":  r.HealthScore.Financial,
		"customer_health":   r.HealthScore.Customer,
		"operational":       r.HealthScore.Operational,
		"recommended_focus": r.ExecutiveSummary.RecommendedFocus,
		"critical_issues":   nonNilAreas(r.ExecutiveSummary.CriticalIssues),
		"kpis":              kpis,
		"decisions":         decisions,
		"insights":          insights,
		"summary":           truncate(r.Narrative.Summary, maxCompactText),
		"summary_source":    r.Narrative.Source,
	}
	if skipped := r.DataQuality.Total(); skipped > 0 {
		m["skipped_records"] = skipped
	}
	return m
}

func compactKPI(k model.KPI) map[string]any {
	m := map[string]any{
		"id":      k.ID,
		"current": k.Current,
		"target":  k.Target,
		"status":  k.Status,
		"trend":   k.Trend,
	}
	if k.InsufficientData {
		m["insufficient_data"] = true
	}
	if k.Target != 0 {
		// Signed gap to target as a percentage of target, one decimal.
		m["gap_pct"] = math.Round((k.Current-k.Target)/k.Target*1000) / 10
	}
	return m
}

func compactDecision(d model.Decision) map[string]any {
	m := map[string]any{
		"area":     d.Area,
		"score":    d.Score,
		"status":   d.Status,
		"urgency":  d.Urgency,
		"priority": d.PriorityScore,
	}
	if len(d.Actions) > 0 {
		m["first_action"] = d.Actions[0]
	}
	return m
}

func nonNilAreas(a []model.Area) []model.Area {
	if a == nil {
		return []model.Area{}
	}
	return a
}

// truncate shortens s to at most n runes, appending "..." when cut.
func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	if n <= 3 {
		return string(runes[:n])
	}
	return string(runes[:n-3]) + "..."
}
