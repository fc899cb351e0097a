// Package decision maps health scores onto per-area action plans and ranks
// them for the executive summary.
package decision

import (
	"slices"
	"time"

	"github.com/ashita-ai/kenko/internal/model"
	"github.com/ashita-ai/kenko/internal/rules"
)

// Engine evaluates the area state machine. It is stateless.
type Engine struct {
	rules *rules.Rules
}

// NewEngine creates an Engine.
func NewEngine(r *rules.Rules) *Engine {
	return &Engine{rules: r}
}

// AreaScore maps a health score onto the 0-1 score of area a.
func AreaScore(h model.HealthScore, a model.Area) float64 {
	switch a {
	case model.AreaRevenue:
		return h.Financial / 100
	case model.AreaCustomerSatisfaction:
		return h.Customer / 100
	case model.AreaOperationalEfficiency:
		return h.Operational / 100
	default:
		return h.Overall / 100
	}
}

// Decide returns one decision per area, highest priority first. Equal
// priorities keep area declaration order.
func (e *Engine) Decide(h model.HealthScore) []model.Decision {
	out := make([]model.Decision, 0, len(model.AllAreas))
	for _, a := range model.AllAreas {
		out = append(out, e.decide(a, AreaScore(h, a)))
	}
	slices.SortStableFunc(out, func(x, y model.Decision) int {
		return y.PriorityScore - x.PriorityScore
	})
	return out
}

func (e *Engine) decide(a model.Area, score float64) model.Decision {
	rule := e.rules.Area(a)
	status := rule.Status(score)
	profile := e.rules.Profile(status)
	play := rule.Playbooks[status]

	d := model.Decision{
		Area:                    a,
		Score:                   model.Round(score, 3),
		Status:                  status,
		Urgency:                 profile.Urgency,
		Impact:                  profile.Impact,
		RiskLevel:               profile.Risk,
		Actions:                 slices.Clone(play.Actions),
		SpecificRecommendations: slices.Clone(play.Recommendations),
		SuccessMetrics:          slices.Clone(rule.SuccessMetrics),
		EstimatedTimeline:       profile.Timeline,
		ResourceRequirements:    profile.Resources,
	}
	d.PriorityScore = Priority(d)
	return d
}

// Priority is the sum of status, impact, urgency and risk points.
func Priority(d model.Decision) int {
	p := 0
	switch d.Status {
	case model.AreaCritical:
		p += 100
	case model.AreaWarning:
		p += 50
	default:
		p += 10
	}
	p += levelPoints(d.Impact, 30, 20, 10)
	switch d.Urgency {
	case model.UrgencyImmediate:
		p += 20
	case model.UrgencyWithinWeek:
		p += 15
	default:
		p += 5
	}
	p += levelPoints(d.RiskLevel, 25, 15, 5)
	return p
}

func levelPoints(l model.Level, high, medium, low int) int {
	switch l {
	case model.LevelHigh:
		return high
	case model.LevelMedium:
		return medium
	default:
		return low
	}
}

const (
	maxTopPriorities = 3
	reviewInterval   = 30 * 24 * time.Hour
)

// Summarize builds the decision half of the executive summary from
// prioritized decisions. kpiCount and healthPresent feed the confidence score.
func (e *Engine) Summarize(decisions []model.Decision, kpiCount int, healthPresent bool, asOf time.Time) model.ExecutiveSummary {
	s := model.ExecutiveSummary{
		CriticalIssues: []model.Area{},
		Opportunities:  []model.Area{},
		TopPriorities:  []model.TopPriority{},
		NextReviewDate: asOf.UTC().Add(reviewInterval).Format("2006-01-02"),
	}

	var sum float64
	for i, d := range decisions {
		sum += d.Score
		switch d.Status {
		case model.AreaCritical:
			s.CriticalIssues = append(s.CriticalIssues, d.Area)
		case model.AreaGood:
			s.Opportunities = append(s.Opportunities, d.Area)
		}
		if i < maxTopPriorities {
			action := "Monitor closely"
			if len(d.SpecificRecommendations) > 0 {
				action = d.SpecificRecommendations[0]
			}
			s.TopPriorities = append(s.TopPriorities, model.TopPriority{
				Rank:      i + 1,
				Area:      d.Area,
				Status:    d.Status,
				Urgency:   d.Urgency,
				KeyAction: action,
			})
		}
	}
	var mean float64
	if len(decisions) > 0 {
		mean = sum / float64(len(decisions))
	}

	s.OverallHealthScore = model.Round(mean, 3)
	s.HealthAssessment = assessment(mean)
	s.CriticalIssuesCount = len(s.CriticalIssues)
	s.OpportunitiesCount = len(s.Opportunities)
	s.RecommendedFocus = focus(mean, s.CriticalIssuesCount)
	s.ConfidenceScore = confidence(mean, kpiCount > 0, healthPresent)
	return s
}

func assessment(score float64) string {
	switch {
	case score >= 0.8:
		return "Excellent - Business is performing well with strong growth potential"
	case score >= 0.7:
		return "Good - Business is stable with room for improvement"
	case score >= 0.6:
		return "Fair - Business needs attention in several areas"
	default:
		return "Poor - Business requires immediate intervention"
	}
}

func focus(score float64, critical int) string {
	switch {
	case critical >= 3:
		return "CRITICAL - Focus on stabilizing business operations and addressing critical issues immediately"
	case critical > 0:
		return "HIGH PRIORITY - Address critical issues while maintaining operational stability"
	case score < 0.7:
		return "IMPROVEMENT - Focus on systematic improvements across all business areas"
	default:
		return "GROWTH - Focus on strategic growth and market expansion opportunities"
	}
}

func confidence(mean float64, kpis, health bool) float64 {
	c := 0.5
	if kpis {
		c += 0.2
	}
	if health {
		c += 0.2
	}
	c += mean * 0.1
	return model.Round(min(1, c), 3)
}
