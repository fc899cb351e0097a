package rules

import (
	"slices"

	"github.com/ashita-ai/kenko/internal/model"
)

// Playbook is what the decision engine prescribes for one area in one state.
type Playbook struct {
	Actions         []string
	Recommendations []string
}

// AreaRule configures the state machine of one business area.
type AreaRule struct {
	Area              model.Area
	CriticalThreshold float64
	WarningThreshold  float64
	Playbooks         map[model.AreaStatus]Playbook
	SuccessMetrics    []string
}

func (a AreaRule) clone() AreaRule {
	out := a
	out.SuccessMetrics = slices.Clone(a.SuccessMetrics)
	if a.Playbooks != nil {
		out.Playbooks = make(map[model.AreaStatus]Playbook, len(a.Playbooks))
		for st, p := range a.Playbooks {
			out.Playbooks[st] = Playbook{
				Actions:         slices.Clone(p.Actions),
				Recommendations: slices.Clone(p.Recommendations),
			}
		}
	}
	return out
}

// Status is CRITICAL below the critical threshold, WARNING below the
// warning threshold, GOOD otherwise.
func (a AreaRule) Status(score float64) model.AreaStatus {
	switch {
	case score < a.CriticalThreshold:
		return model.AreaCritical
	case score < a.WarningThreshold:
		return model.AreaWarning
	default:
		return model.AreaGood
	}
}

// StatusProfile carries everything selected by an area's state alone.
type StatusProfile struct {
	Urgency   model.Urgency
	Impact    model.Level
	Risk      model.Level
	Timeline  string
	Resources model.Resources
}

func defaultAreaRules() map[model.Area]AreaRule {
	return map[model.Area]AreaRule{
		model.AreaRevenue: {
			Area:              model.AreaRevenue,
			CriticalThreshold: 0.6,
			WarningThreshold:  0.8,
			Playbooks: map[model.AreaStatus]Playbook{
				model.AreaCritical: {
					Actions: []string{"cost_cutting", "revenue_boost", "emergency_measures"},
					Recommendations: []string{
						"Implement immediate cost reduction measures targeting 15% reduction",
						"Launch emergency sales campaign with 20% discount for quick cash flow",
						"Renegotiate with suppliers for better payment terms",
						"Consider temporary staff reduction or reduced hours",
					},
				},
				model.AreaWarning: {
					Actions: []string{"monitor_closely", "prepare_contingency", "optimize_operations"},
					Recommendations: []string{
						"Increase marketing spend by 10% focusing on high-conversion channels",
						"Implement customer retention program to reduce churn",
						"Optimize pricing strategy based on competitor analysis",
						"Launch new product features to increase customer value",
					},
				},
				model.AreaGood: {
					Actions: []string{"maintain_growth", "expansion_planning", "invest_innovation"},
					Recommendations: []string{
						"Invest in market expansion to adjacent segments",
						"Develop strategic partnerships for growth",
						"Increase R&D investment for long-term competitiveness",
						"Consider acquisition opportunities for market share",
					},
				},
			},
			SuccessMetrics: []string{
				"Revenue growth rate > 15%",
				"Profit margin improvement > 5%",
				"Customer acquisition cost reduction > 20%",
				"Cash flow positive within 3 months",
			},
		},
		model.AreaCustomerSatisfaction: {
			Area:              model.AreaCustomerSatisfaction,
			CriticalThreshold: 0.7,
			WarningThreshold:  0.8,
			Playbooks: map[model.AreaStatus]Playbook{
				model.AreaCritical: {
					Actions: []string{"immediate_service_improvement", "customer_recovery", "management_intervention"},
					Recommendations: []string{
						"Implement 24/7 customer support escalation team",
						"Offer immediate compensation for affected customers",
						"Conduct emergency customer satisfaction survey",
						"Appoint customer experience task force",
					},
				},
				model.AreaWarning: {
					Actions: []string{"service_training", "feedback_collection", "process_improvement"},
					Recommendations: []string{
						"Implement proactive customer outreach program",
						"Enhance product training for support staff",
						"Improve product documentation and FAQs",
						"Launch customer feedback collection campaign",
					},
				},
				model.AreaGood: {
					Actions: []string{"maintain_quality", "loyalty_programs", "referral_incentives"},
					Recommendations: []string{
						"Develop customer advocacy program",
						"Implement customer success management",
						"Create customer advisory board",
						"Expand loyalty and rewards program",
					},
				},
			},
			SuccessMetrics: []string{
				"Customer satisfaction score > 85%",
				"Net Promoter Score > 50",
				"Customer churn rate < 5%",
				"Customer support response time < 2 hours",
			},
		},
		model.AreaOperationalEfficiency: {
			Area:              model.AreaOperationalEfficiency,
			CriticalThreshold: 0.7,
			WarningThreshold:  0.8,
			Playbooks: map[model.AreaStatus]Playbook{
				model.AreaCritical: {
					Actions: []string{"process_reengineering", "staff_retraining", "technology_upgrade"},
					Recommendations: []string{
						"Conduct immediate process audit and optimization",
						"Implement performance monitoring dashboard",
						"Provide emergency staff training programs",
						"Upgrade critical technology systems",
					},
				},
				model.AreaWarning: {
					Actions: []string{"performance_monitoring", "incremental_improvements", "resource_optimization"},
					Recommendations: []string{
						"Implement continuous improvement program",
						"Optimize resource allocation based on demand",
						"Automate repetitive manual processes",
						"Implement performance incentives",
					},
				},
				model.AreaGood: {
					Actions: []string{"continuous_improvement", "best_practices_sharing", "innovation_encouragement"},
					Recommendations: []string{
						"Invest in advanced automation technologies",
						"Implement best practices sharing program",
						"Develop innovation culture and incentives",
						"Expand strategic partnerships for efficiency",
					},
				},
			},
			SuccessMetrics: []string{
				"Process efficiency improvement > 25%",
				"Resource utilization > 80%",
				"Error rate reduction > 50%",
				"Employee productivity increase > 15%",
			},
		},
		model.AreaMarketPosition: {
			Area:              model.AreaMarketPosition,
			CriticalThreshold: 0.6,
			WarningThreshold:  0.75,
			Playbooks: map[model.AreaStatus]Playbook{
				model.AreaCritical: {
					Actions: []string{"market_research", "competitive_analysis", "strategy_pivot"},
					Recommendations: []string{
						"Conduct emergency competitive analysis",
						"Implement market research for new opportunities",
						"Consider strategic pivot or repositioning",
						"Strengthen brand messaging and differentiation",
					},
				},
				model.AreaWarning: {
					Actions: []string{"market_monitoring", "competitive_intelligence", "positioning_adjustment"},
					Recommendations: []string{
						"Increase competitive intelligence efforts",
						"Enhance product differentiation",
						"Implement targeted marketing campaigns",
						"Explore new market segments",
					},
				},
				model.AreaGood: {
					Actions: []string{"market_expansion", "brand_strengthening", "thought_leadership"},
					Recommendations: []string{
						"Expand into new geographic markets",
						"Develop strategic partnerships for growth",
						"Invest in thought leadership and brand building",
						"Consider mergers and acquisitions",
					},
				},
			},
			SuccessMetrics: []string{
				"Market share increase > 10%",
				"Brand awareness improvement > 20%",
				"Competitive advantage score > 75%",
				"New customer acquisition > 30%",
			},
		},
	}
}

func defaultStatusProfiles() map[model.AreaStatus]StatusProfile {
	return map[model.AreaStatus]StatusProfile{
		model.AreaCritical: {
			Urgency:  model.UrgencyImmediate,
			Impact:   model.LevelHigh,
			Risk:     model.LevelHigh,
			Timeline: "1-2 weeks (immediate action required)",
			Resources: model.Resources{
				Budget:       "High - Emergency funds required",
				Staff:        "Cross-functional team needed",
				Technology:   "Immediate system upgrades required",
				ExternalHelp: "Consultants may be needed",
			},
		},
		model.AreaWarning: {
			Urgency:  model.UrgencyWithinWeek,
			Impact:   model.LevelMedium,
			Risk:     model.LevelMedium,
			Timeline: "2-4 weeks (planned implementation)",
			Resources: model.Resources{
				Budget:       "Medium - Planned investment",
				Staff:        "Dedicated team members",
				Technology:   "System enhancements needed",
				ExternalHelp: "Optional expert consultation",
			},
		},
		model.AreaGood: {
			Urgency:  model.UrgencyWithinMonth,
			Impact:   model.LevelLow,
			Risk:     model.LevelLow,
			Timeline: "1-3 months (strategic implementation)",
			Resources: model.Resources{
				Budget:       "Low to Medium - Strategic investment",
				Staff:        "Existing team capacity",
				Technology:   "Gradual upgrades",
				ExternalHelp: "Long-term partnerships",
			},
		},
	}
}
