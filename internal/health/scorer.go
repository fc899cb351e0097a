// Package health rolls KPIs up into normalized category and overall scores.
package health

import (
	"fmt"
	"slices"

	"github.com/ashita-ai/kenko/internal/model"
	"github.com/ashita-ai/kenko/internal/rules"
)

var categories = []model.Category{model.CategoryFinancial, model.CategoryCustomer, model.CategoryOperational}

// Scorer computes health scores against one rule set. It is stateless and
// safe for concurrent use.
type Scorer struct {
	rules *rules.Rules
}

// NewScorer creates a Scorer.
func NewScorer(r *rules.Rules) *Scorer {
	return &Scorer{rules: r}
}

// KPIScore is the normalized 0-100 score of a single KPI: a base from its
// status, adjusted by performance against target and by raw trend.
func (s *Scorer) KPIScore(k model.KPI) float64 {
	sc := s.rules.Scoring()
	score := sc.BaseScores[k.Status]

	ratio := rules.PerformanceRatio(k.Current, k.Target)
	if k.Direction == model.LowerIsBetter {
		ratio = model.Clamp(2-ratio, 0, 2)
	}
	score += model.Clamp((ratio-1)*sc.PerformanceScale, -sc.PerformanceCap, sc.PerformanceCap)

	// The trend term follows the raw movement for every KPI, including the
	// lower-is-better ones; only the performance ratio is inverted.
	switch k.Trend {
	case model.TrendUp:
		score += sc.TrendBonus
	case model.TrendDown:
		score -= sc.TrendBonus
	}
	return model.Clamp(score, 0, 100)
}

// Score computes the full HealthScore for kpis. KPIs flagged as insufficient
// data do not contribute to category scores.
func (s *Scorer) Score(kpis []model.KPI) model.HealthScore {
	sc := s.rules.Scoring()

	kpiScores := make(map[model.KPIID]float64, len(kpis))
	weighted := map[model.Category]float64{}
	weights := map[model.Category]float64{}
	for _, k := range kpis {
		if k.InsufficientData {
			continue
		}
		v := s.KPIScore(k)
		kpiScores[k.ID] = model.Round1(v)
		w := s.rules.CategoryWeight(k.ID)
		weighted[k.Category] += v * w
		weights[k.Category] += w
	}

	catScore := make(map[model.Category]float64, len(categories))
	for _, c := range categories {
		if weights[c] > 0 {
			catScore[c] = weighted[c] / weights[c]
		} else {
			catScore[c] = sc.EmptyCategoryScore
		}
	}

	comb := s.rules.Combination()
	var overall float64
	for _, c := range categories {
		overall += catScore[c] * comb.Weight(c)
	}
	overall = model.Round1(model.Clamp(overall, 0, 100))

	return model.HealthScore{
		Overall:     overall,
		Financial:   model.Round1(catScore[model.CategoryFinancial]),
		Customer:    model.Round1(catScore[model.CategoryCustomer]),
		Operational: model.Round1(catScore[model.CategoryOperational]),
		Status:      s.rules.OverallStatus(overall),
		Factors:     s.factors(kpis),
		KPIScores:   kpiScores,
	}
}

func (s *Scorer) factors(kpis []model.KPI) []model.HealthFactor {
	set := model.IndexKPIs(kpis)
	empty := s.rules.Scoring().EmptyCategoryScore
	defs := s.rules.Factors()
	out := make([]model.HealthFactor, 0, len(defs))
	for _, f := range defs {
		score := empty
		if k, ok := set[f.KPI]; ok && !k.InsufficientData {
			score = model.Round1(s.KPIScore(k))
		}
		out = append(out, model.HealthFactor{Name: f.Name, KPI: f.KPI, Score: score, Weight: f.Weight})
	}
	return out
}

// Trend compares current with the mean of the last three history entries
// (or all of them when fewer).
func (s *Scorer) Trend(current float64, history []float64) model.HealthTrend {
	if len(history) == 0 {
		return model.HealthInsufficientData
	}
	recent := history[max(0, len(history)-3):]
	var sum float64
	for _, v := range recent {
		sum += v
	}
	mean := sum / float64(len(recent))
	margin := s.rules.Scoring().TrendMargin
	switch {
	case current > mean+margin:
		return model.HealthImproving
	case current < mean-margin:
		return model.HealthDeclining
	default:
		return model.HealthStable
	}
}

// maxCriticalFactors bounds CriticalFactors.
const maxCriticalFactors = 3

// CriticalFactors lists the weakest factors scoring below the critical
// threshold, lowest weighted impact first.
func (s *Scorer) CriticalFactors(h model.HealthScore) []string {
	limit := s.rules.Scoring().CriticalFactorScore
	var weak []model.HealthFactor
	for _, f := range h.Factors {
		if f.Score < limit {
			weak = append(weak, f)
		}
	}
	slices.SortStableFunc(weak, func(a, b model.HealthFactor) int {
		switch {
		case a.Impact() < b.Impact():
			return -1
		case a.Impact() > b.Impact():
			return 1
		default:
			return 0
		}
	})
	if len(weak) > maxCriticalFactors {
		weak = weak[:maxCriticalFactors]
	}
	out := make([]string, 0, len(weak))
	for _, f := range weak {
		out = append(out, fmt.Sprintf("%s: %.1f/100 (Impact: %.1f)", f.Name, f.Score, f.Impact()))
	}
	return out
}
