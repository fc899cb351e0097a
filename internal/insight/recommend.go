package insight

import (
	"slices"
	"strings"

	"github.com/google/uuid"

	"github.com/ashita-ai/kenko/internal/model"
)

// template is the fixed part of a recommendation.
type template struct {
	title       string
	description string
	action      model.ActionType
	impact      string
	timeframe   model.Timeframe
	effort      model.Level
	confidence  model.Level
}

var (
	revenueTemplate = template{
		title:       "Accelerate Revenue Growth Initiative",
		description: "Implement comprehensive revenue acceleration program focusing on high-impact opportunities",
		action:      model.ActionIncrease,
		impact:      "10-15% revenue increase within 2 quarters",
		timeframe:   model.TimeframeShortTerm,
		effort:      model.LevelHigh,
		confidence:  model.LevelHigh,
	}
	churnTemplate = template{
		title:       "Customer Retention Excellence Program",
		description: "Launch targeted customer success initiatives to reduce churn and improve satisfaction",
		action:      model.ActionPrioritize,
		impact:      "20-30% reduction in churn rate within 6 months",
		timeframe:   model.TimeframeShortTerm,
		effort:      model.LevelMedium,
		confidence:  model.LevelHigh,
	}
	marginTemplate = template{
		title:       "Profit Margin Optimization Program",
		description: "Implement comprehensive margin improvement through pricing optimization and cost management",
		action:      model.ActionIncrease,
		impact:      "3-5% margin improvement within 6 months",
		timeframe:   model.TimeframeShortTerm,
		effort:      model.LevelHigh,
		confidence:  model.LevelMedium,
	}
	costTemplate = template{
		title:       "Strategic Cost Optimization Initiative",
		description: "Review and optimize cost structure while maintaining quality and service levels",
		action:      model.ActionReduce,
		impact:      "5-10% cost reduction within 3 months",
		timeframe:   model.TimeframeShortTerm,
		effort:      model.LevelMedium,
		confidence:  model.LevelMedium,
	}
	generalTemplate = template{
		title:       "Performance Improvement Initiative",
		description: "Implement targeted improvement actions based on insight analysis",
		action:      model.ActionInvestigate,
		impact:      "Measurable improvement in key metrics",
		timeframe:   model.TimeframeShortTerm,
		effort:      model.LevelMedium,
		confidence:  model.LevelMedium,
	}
)

// templateFor picks a template by keyword in the insight title. Order matters:
// "Revenue and Margin Double Decline" is a revenue recommendation.
func templateFor(title string) template {
	t := strings.ToLower(title)
	switch {
	case strings.Contains(t, "revenue"):
		return revenueTemplate
	case strings.Contains(t, "churn"):
		return churnTemplate
	case strings.Contains(t, "margin"):
		return marginTemplate
	case strings.Contains(t, "cost"), strings.Contains(t, "expense"):
		return costTemplate
	default:
		return generalTemplate
	}
}

// Recommend derives one recommendation per HIGH or MEDIUM insight,
// deduplicated by title and ordered by confidence. The result holds at most
// MaxRecommendations entries.
func (e *Engine) Recommend(insights []model.Insight) []model.Recommendation {
	seen := map[string]bool{}
	var out []model.Recommendation
	for _, in := range insights {
		if in.Priority != model.PriorityHigh && in.Priority != model.PriorityMedium {
			continue
		}
		tpl := templateFor(in.Title)
		key := strings.ReplaceAll(strings.ToLower(tpl.title), " ", "")
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, model.Recommendation{
			ID:             uuid.New(),
			InsightID:      in.ID,
			KPIID:          in.KPIID,
			Title:          tpl.title,
			Description:    tpl.description,
			ActionType:     tpl.action,
			ExpectedImpact: tpl.impact,
			Timeframe:      tpl.timeframe,
			Effort:         tpl.effort,
			Confidence:     tpl.confidence,
		})
	}
	slices.SortStableFunc(out, func(a, b model.Recommendation) int {
		return levelRank(a.Confidence) - levelRank(b.Confidence)
	})
	if limit := e.rules.Insights().MaxRecommendations; len(out) > limit {
		out = out[:limit]
	}
	return out
}

func levelRank(l model.Level) int {
	switch l {
	case model.LevelHigh:
		return 0
	case model.LevelMedium:
		return 1
	default:
		return 2
	}
}
