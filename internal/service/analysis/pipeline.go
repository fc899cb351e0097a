package analysis

import (
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/ashita-ai/kenko/internal/decision"
	"github.com/ashita-ai/kenko/internal/health"
	"github.com/ashita-ai/kenko/internal/insight"
	"github.com/ashita-ai/kenko/internal/kpi"
	"github.com/ashita-ai/kenko/internal/model"
	"github.com/ashita-ai/kenko/internal/narrative"
	"github.com/ashita-ai/kenko/internal/rules"
)

// Pipeline is the pure analysis core: records in, report out. It never
// fails and performs no I/O.
type Pipeline struct {
	calc      *kpi.Calculator
	scorer    *health.Scorer
	insights  *insight.Engine
	decisions *decision.Engine
}

// NewPipeline wires every stage against one rule set.
func NewPipeline(r *rules.Rules) *Pipeline {
	return &Pipeline{
		calc:      kpi.New(r),
		scorer:    health.NewScorer(r),
		insights:  insight.NewEngine(r),
		decisions: decision.NewEngine(r),
	}
}

// AsOf resolves the analysis date of in: its as_of, or the UTC date of now.
func AsOf(in model.AnalysisInput, now time.Time) time.Time {
	t := now.UTC()
	if in.AsOf != nil && !in.AsOf.IsZero() {
		t = in.AsOf.UTC()
	}
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// KPIs runs only the calculator stage.
func (p *Pipeline) KPIs(in model.AnalysisInput, now time.Time) ([]model.KPI, model.DataQuality) {
	records, dq := in.Records.Sanitize()
	return p.calc.Calculate(kpi.Input{
		Records:  records,
		AsOf:     AsOf(in, now),
		Baseline: in.Baseline,
		Signals:  in.Signals,
	}), dq
}

// Run executes every stage and assembles the report. The insight and
// decision stages only depend on KPIs and health, so they run concurrently.
func (p *Pipeline) Run(in model.AnalysisInput, now time.Time) model.Report {
	now = now.UTC()
	asOf := AsOf(in, now)
	records, dq := in.Records.Sanitize()

	kpis := p.calc.Calculate(kpi.Input{
		Records:  records,
		AsOf:     asOf,
		Baseline: in.Baseline,
		Signals:  in.Signals,
	})
	score := p.scorer.Score(kpis)

	var (
		insights  []model.Insight
		recs      []model.Recommendation
		material  insight.Summary
		decisions []model.Decision
		summary   model.ExecutiveSummary
	)
	var g errgroup.Group
	g.Go(func() error {
		insights = p.insights.Generate(kpis, records, now)
		recs = p.insights.Recommend(insights)
		material = p.insights.Summarize(kpis, insights, score, asOf)
		return nil
	})
	g.Go(func() error {
		decisions = p.decisions.Decide(score)
		summary = p.decisions.Summarize(decisions, len(kpis), true, asOf)
		return nil
	})
	_ = g.Wait()

	summary.Period = material.Period
	summary.Highlights = material.Highlights
	summary.TopRisks = material.Risks
	summary.TopOpportunities = material.Opportunities
	summary.Narrative = material.Narrative

	return model.Report{
		ID:               uuid.New(),
		AsOf:             asOf,
		GeneratedAt:      now,
		KPIs:             kpis,
		HealthScore:      score,
		HealthTrend:      p.scorer.Trend(score.Overall, in.History),
		CriticalFactors:  nonNil(p.scorer.CriticalFactors(score)),
		Improvements:     nonNil(p.scorer.Improvements(score)),
		Insights:         nonNil(insights),
		Recommendations:  nonNil(recs),
		Decisions:        decisions,
		ExecutiveSummary: summary,
		Narrative:        narrative.RuleBased(insights, material.Narrative),
		DataQuality:      dq,
	}
}

// Brief condenses a report for a narrator.
func Brief(r model.Report) narrative.Brief {
	return narrative.Brief{
		AsOf:     r.AsOf,
		Health:   r.HealthScore,
		KPIs:     r.KPIs,
		Insights: r.Insights,
		Focus:    r.ExecutiveSummary.RecommendedFocus,
	}
}

// nonNil keeps empty collections as [] rather than null in report JSON.
func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
