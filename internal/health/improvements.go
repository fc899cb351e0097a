package health

import "github.com/ashita-ai/kenko/internal/model"

// categoryActionScore is the category score below which a category action is suggested.
const categoryActionScore = 60

type categoryAction struct {
	category model.Category
	priority string
	area     string
	action   string
	impact   string
}

var categoryActions = []categoryAction{
	{
		category: model.CategoryFinancial,
		priority: "high",
		area:     "Financial Health",
		action:   "Focus on revenue growth and cost optimization",
		impact:   "Improved profitability and cash flow",
	},
	{
		category: model.CategoryCustomer,
		priority: "high",
		area:     "Customer Health",
		action:   "Enhance customer experience and retention programs",
		impact:   "Reduced churn and increased customer lifetime value",
	},
	{
		category: model.CategoryOperational,
		priority: "medium",
		area:     "Operational Health",
		action:   "Streamline processes and improve efficiency",
		impact:   "Lower operating costs and better resource utilization",
	},
}

// Improvements suggests health-level actions from the overall and category
// scores.
func (s *Scorer) Improvements(h model.HealthScore) []model.ImprovementAction {
	bands := s.rules.Scoring().StatusBands
	var out []model.ImprovementAction
	switch {
	case h.Overall < bands.Warning:
		out = append(out, model.ImprovementAction{
			Priority:       "critical",
			Area:           "Overall Business Health",
			Action:         "Implement comprehensive business turnaround strategy",
			ExpectedImpact: "Stabilize business operations and prevent further decline",
		})
	case h.Overall < bands.Good:
		out = append(out, model.ImprovementAction{
			Priority:       "high",
			Area:           "Overall Business Health",
			Action:         "Address key weaknesses across all business areas",
			ExpectedImpact: "Move business health from warning to good status",
		})
	}

	for _, a := range categoryActions {
		if h.CategoryScore(a.category) < categoryActionScore {
			out = append(out, model.ImprovementAction{
				Priority:       a.priority,
				Area:           a.area,
				Action:         a.action,
				ExpectedImpact: a.impact,
			})
		}
	}
	return out
}
