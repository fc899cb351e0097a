package model

// Area is a business area evaluated by the decision engine.
type Area string

const (
	AreaRevenue               Area = "revenue"
	AreaCustomerSatisfaction  Area = "customer_satisfaction"
	AreaOperationalEfficiency Area = "operational_efficiency"
	AreaMarketPosition        Area = "market_position"
)

// AllAreas lists areas in declaration order. Ties in decision priority
// preserve this order.
var AllAreas = []Area{
	AreaRevenue,
	AreaCustomerSatisfaction,
	AreaOperationalEfficiency,
	AreaMarketPosition,
}

// AreaStatus is the state of an area: a function of its score and the
// area's two thresholds.
type AreaStatus string

const (
	AreaCritical AreaStatus = "critical"
	AreaWarning  AreaStatus = "warning"
	AreaGood     AreaStatus = "good"
)

// Urgency is how soon an area needs action.
type Urgency string

const (
	UrgencyImmediate   Urgency = "immediate"
	UrgencyWithinWeek  Urgency = "within_week"
	UrgencyWithinMonth Urgency = "within_month"
)

// Resources describes what executing a decision will take.
type Resources struct {
	Budget       string `json:"budget"`
	Staff        string `json:"staff"`
	Technology   string `json:"technology"`
	ExternalHelp string `json:"external_help"`
}

// Decision is the prioritized action plan for one area.
type Decision struct {
	Area                    Area       `json:"area"`
	Score                   float64    `json:"score"` // 0.0-1.0
	Status                  AreaStatus `json:"status"`
	Urgency                 Urgency    `json:"urgency"`
	Impact                  Level      `json:"impact"`
	RiskLevel               Level      `json:"risk_level"`
	Actions                 []string   `json:"actions"`
	SpecificRecommendations []string   `json:"specific_recommendations"`
	SuccessMetrics          []string   `json:"success_metrics"`
	EstimatedTimeline       string     `json:"estimated_timeline"`
	ResourceRequirements    Resources  `json:"resource_requirements"`
	PriorityScore           int        `json:"priority_score"`
}

// TopPriority is a condensed decision for the executive summary.
type TopPriority struct {
	Rank      int        `json:"rank"`
	Area      Area       `json:"area"`
	Status    AreaStatus `json:"status"`
	Urgency   Urgency    `json:"urgency"`
	KeyAction string     `json:"key_action"`
}

// ExecutiveSummary condenses decisions and insights for a business reader.
type ExecutiveSummary struct {
	OverallHealthScore  float64       `json:"overall_health_score"` // 0.0-1.0
	HealthAssessment    string        `json:"health_assessment"`
	CriticalIssuesCount int           `json:"critical_issues_count"`
	CriticalIssues      []Area        `json:"critical_issues"`
	OpportunitiesCount  int           `json:"opportunities_count"`
	Opportunities       []Area        `json:"opportunities"`
	TopPriorities       []TopPriority `json:"top_priorities"`
	RecommendedFocus    string        `json:"recommended_focus"`
	NextReviewDate      string        `json:"next_review_date"`
	ConfidenceScore     float64       `json:"confidence_score"`

	Period           string    `json:"period,omitempty"`
	Highlights       []string  `json:"highlights,omitempty"`
	TopRisks         []Insight `json:"top_risks,omitempty"`
	TopOpportunities []Insight `json:"top_opportunities,omitempty"`
	Narrative        string    `json:"narrative,omitempty"`
}
