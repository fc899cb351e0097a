// Package rules holds the static configuration of the analysis pipeline:
// KPI thresholds and targets, category and factor weights, area state
// thresholds and playbooks.
//
// A Rules value is built once at process start (Default or Load) and passed
// explicitly to every component. Accessors return copies, so a Rules value
// cannot be modified after construction.
package rules

import (
	"errors"
	"fmt"
	"math"
	"slices"

	"github.com/ashita-ai/kenko/internal/model"
)

// ErrInvalid is wrapped by every validation failure.
var ErrInvalid = errors.New("rules: invalid")

// weightTolerance absorbs float error when checking that weights sum to 1.
const weightTolerance = 1e-9

// Combination weights the three category scores into the overall score.
type Combination struct {
	Financial   float64 `yaml:"financial"`
	Customer    float64 `yaml:"customer"`
	Operational float64 `yaml:"operational"`
}

// Sum is the total of the three weights.
func (c Combination) Sum() float64 { return c.Financial + c.Customer + c.Operational }

// Weight returns the weight of category cat.
func (c Combination) Weight(cat model.Category) float64 {
	switch cat {
	case model.CategoryFinancial:
		return c.Financial
	case model.CategoryCustomer:
		return c.Customer
	default:
		return c.Operational
	}
}

// Scoring holds the constants of the KPI score formula.
type Scoring struct {
	BaseScores map[model.HealthStatus]float64
	// PerformanceScale multiplies (ratio - 1); PerformanceCap bounds the result.
	PerformanceScale float64
	PerformanceCap   float64
	TrendBonus       float64
	// EmptyCategoryScore is used when a category has no scorable KPI.
	EmptyCategoryScore float64
	// StatusBands are the overall-score cut points for EXCELLENT, GOOD, WARNING.
	StatusBands Thresholds
	// CriticalFactorScore is the factor score below which a factor is critical.
	CriticalFactorScore float64
	// TrendMargin is the distance from the recent mean that counts as movement.
	TrendMargin float64
}

// InsightRules holds the constants of the insight engine.
type InsightRules struct {
	UnderperformRatio   float64
	OverperformRatio    float64
	HighGapPercent      float64
	TopCustomerFraction float64
	ConcentrationShare  float64
	SegmentChurn        float64
	LowMarginPercent    float64
	OpportunityRatio    float64
	MaxInsights         int
	MaxRecommendations  int
}

// Rules is the immutable configuration of one pipeline.
type Rules struct {
	kpis        map[model.KPIID]KPIRule
	weights     map[model.KPIID]float64 // normalized within category
	combination Combination
	factors     []Factor
	scoring     Scoring
	insights    InsightRules
	areas       map[model.Area]AreaRule
	profiles    map[model.AreaStatus]StatusProfile
}

// Default returns the built-in rule set. It always validates.
func Default() *Rules {
	kpis := make(map[model.KPIID]KPIRule, len(model.AllKPIs))
	for _, id := range model.AllKPIs {
		r, ok := defaultKPIRule(id)
		if !ok {
			panic(fmt.Sprintf("rules: no default for kpi %q", id))
		}
		kpis[id] = r
	}
	r := &Rules{
		kpis:        kpis,
		combination: Combination{Financial: 0.4, Customer: 0.35, Operational: 0.25},
		factors:     slices.Clone(defaultFactors),
		scoring: Scoring{
			BaseScores: map[model.HealthStatus]float64{
				model.StatusExcellent: 90,
				model.StatusGood:      75,
				model.StatusWarning:   50,
				model.StatusCritical:  25,
			},
			PerformanceScale:    30,
			PerformanceCap:      15,
			TrendBonus:          5,
			EmptyCategoryScore:  50,
			StatusBands:         Thresholds{Excellent: 80, Good: 65, Warning: 50},
			CriticalFactorScore: 60,
			TrendMargin:         5,
		},
		insights: InsightRules{
			UnderperformRatio:   0.8,
			OverperformRatio:    1.2,
			HighGapPercent:      30,
			TopCustomerFraction: 0.1,
			ConcentrationShare:  70,
			SegmentChurn:        0.15,
			LowMarginPercent:    10,
			OpportunityRatio:    1.1,
			MaxInsights:         10,
			MaxRecommendations:  8,
		},
		areas:    defaultAreaRules(),
		profiles: defaultStatusProfiles(),
	}
	r.normalize()
	return r
}

// normalize recomputes per-category KPI weights so each category sums to 1.
func (r *Rules) normalize() {
	totals := map[model.Category]float64{}
	for _, k := range r.kpis {
		totals[k.Category] += k.Weight
	}
	r.weights = make(map[model.KPIID]float64, len(r.kpis))
	for id, k := range r.kpis {
		if t := totals[k.Category]; t > 0 {
			r.weights[id] = k.Weight / t
		}
	}
}

// KPI returns the rule for id. Every id in model.AllKPIs has one.
func (r *Rules) KPI(id model.KPIID) KPIRule { return r.kpis[id] }

// CategoryWeight is the normalized weight of id within its category.
func (r *Rules) CategoryWeight(id model.KPIID) float64 { return r.weights[id] }

// Combination returns the category combination weights.
func (r *Rules) Combination() Combination { return r.combination }

// Factors returns the health factor table in display order.
func (r *Rules) Factors() []Factor { return slices.Clone(r.factors) }

// Scoring returns the score formula constants.
func (r *Rules) Scoring() Scoring {
	s := r.scoring
	s.BaseScores = make(map[model.HealthStatus]float64, len(r.scoring.BaseScores))
	for k, v := range r.scoring.BaseScores {
		s.BaseScores[k] = v
	}
	return s
}

// BaseScore is the starting score for a KPI in status s.
func (r *Rules) BaseScore(s model.HealthStatus) float64 { return r.scoring.BaseScores[s] }

// Insights returns the insight engine constants.
func (r *Rules) Insights() InsightRules { return r.insights }

// Area returns the rule for area a.
func (r *Rules) Area(a model.Area) AreaRule { return r.areas[a].clone() }

// Profile returns what area status s selects.
func (r *Rules) Profile(s model.AreaStatus) StatusProfile { return r.profiles[s] }

// OverallStatus buckets an overall (or category) score.
func (r *Rules) OverallStatus(score float64) model.HealthStatus {
	b := r.scoring.StatusBands
	switch {
	case score >= b.Excellent:
		return model.StatusExcellent
	case score >= b.Good:
		return model.StatusGood
	case score >= b.Warning:
		return model.StatusWarning
	default:
		return model.StatusCritical
	}
}

// Validate checks every invariant the pipeline relies on.
func (r *Rules) Validate() error {
	for _, id := range model.AllKPIs {
		k, ok := r.kpis[id]
		if !ok {
			return fmt.Errorf("%w: missing rule for kpi %q", ErrInvalid, id)
		}
		if k.Target < 0 || k.TargetGrowth < 0 || k.Weight < 0 {
			return fmt.Errorf("%w: kpi %q: target, target growth and weight must be non-negative", ErrInvalid, id)
		}
		t := k.Thresholds
		if k.Direction == model.LowerIsBetter {
			if t.Excellent > t.Good || t.Good > t.Warning {
				return fmt.Errorf("%w: kpi %q: lower-is-better thresholds must satisfy excellent <= good <= warning", ErrInvalid, id)
			}
		} else if t.Excellent < t.Good || t.Good < t.Warning {
			return fmt.Errorf("%w: kpi %q: thresholds must satisfy excellent >= good >= warning", ErrInvalid, id)
		}
	}

	for _, cat := range []model.Category{model.CategoryFinancial, model.CategoryCustomer, model.CategoryOperational} {
		var sum float64
		for id, w := range r.weights {
			if r.kpis[id].Category == cat {
				sum += w
			}
		}
		if math.Abs(sum-1) > weightTolerance {
			return fmt.Errorf("%w: %s weights sum to %.4f after normalization, want 1", ErrInvalid, cat, sum)
		}
	}

	if math.Abs(r.combination.Sum()-1) > weightTolerance {
		return fmt.Errorf("%w: combination weights sum to %.4f, want 1", ErrInvalid, r.combination.Sum())
	}

	var factorSum float64
	for _, f := range r.factors {
		factorSum += f.Weight
	}
	if math.Abs(factorSum-1) > weightTolerance {
		return fmt.Errorf("%w: factor weights sum to %.4f, want 1", ErrInvalid, factorSum)
	}

	for _, a := range model.AllAreas {
		ar, ok := r.areas[a]
		if !ok {
			return fmt.Errorf("%w: missing rule for area %q", ErrInvalid, a)
		}
		if ar.CriticalThreshold < 0 || ar.WarningThreshold > 1 || ar.CriticalThreshold > ar.WarningThreshold {
			return fmt.Errorf("%w: area %q: thresholds must satisfy 0 <= critical <= warning <= 1", ErrInvalid, a)
		}
	}
	return nil
}
