// Package insight detects notable conditions in KPIs and raw records and
// turns them into ranked insights, recommendations and summary material.
package insight

import (
	"fmt"
	"slices"
	"time"

	"github.com/google/uuid"

	"github.com/ashita-ai/kenko/internal/model"
	"github.com/ashita-ai/kenko/internal/rules"
)

// Engine evaluates insight rules. It holds no mutable state.
type Engine struct {
	rules *rules.Rules
}

// NewEngine creates an Engine.
func NewEngine(r *rules.Rules) *Engine {
	return &Engine{rules: r}
}

// Generate returns at most MaxInsights insights, HIGH first. Within a
// priority, insights keep generation order: per-KPI rules in KPI order, then
// cross-KPI rules.
func (e *Engine) Generate(kpis []model.KPI, records model.Records, now time.Time) []model.Insight {
	g := generator{cfg: e.rules.Insights(), now: now.UTC()}

	for _, k := range kpis {
		if !k.InsufficientData {
			g.targetRules(k)
			g.trendRules(k)
		}
		switch k.ID {
		case model.KPIRevenue:
			g.concentration(records.Sales)
		case model.KPIChurnRate:
			g.segmentChurn(records.Customers)
		case model.KPIProfitMargin:
			g.lowMarginCategory(records.Sales)
		}
	}
	g.crossKPI(model.IndexKPIs(kpis))

	out := g.out
	slices.SortStableFunc(out, func(a, b model.Insight) int {
		return a.Priority.Rank() - b.Priority.Rank()
	})
	if len(out) > g.cfg.MaxInsights {
		out = out[:g.cfg.MaxInsights]
	}
	return out
}

// generator accumulates insights for one Generate call.
type generator struct {
	cfg rules.InsightRules
	now time.Time
	out []model.Insight
}

func (g *generator) add(id model.KPIID, p model.Priority, title, observation, impact, action string) {
	g.out = append(g.out, model.Insight{
		ID:                uuid.New(),
		KPIID:             id,
		Title:             title,
		Observation:       observation,
		BusinessImpact:    impact,
		RecommendedAction: action,
		Priority:          p,
		GeneratedAt:       g.now,
		AutoGenerated:     true,
		Source:            model.SourceRuleBased,
	})
}

// targetRules fires at most one of underperformance or overperformance.
func (g *generator) targetRules(k model.KPI) {
	if k.Target <= 0 {
		return
	}
	name := k.ID.DisplayName()
	gap := model.Round1(abs(k.Target-k.Current) / k.Target * 100)

	if underperforms(k, g.cfg.UnderperformRatio) {
		p := model.PriorityMedium
		if gap > g.cfg.HighGapPercent {
			p = model.PriorityHigh
		}
		g.add(k.ID, p,
			name+" Below Target",
			fmt.Sprintf("%s is %.1f%% below target", name, gap),
			"This performance gap could impact overall business objectives and stakeholder confidence",
			fmt.Sprintf("Implement immediate improvement plan to close %.1f%% performance gap", gap),
		)
		return
	}
	if overperforms(k, g.cfg.OverperformRatio) {
		g.add(k.ID, model.PriorityLow,
			name+" Exceeds Target",
			fmt.Sprintf("%s is %.1f%% better than target", name, gap),
			"This exceptional performance creates opportunities for scaling and best practice sharing",
			"Document success factors and consider raising targets to maintain motivation",
		)
	}
}

// underperforms compares against target*ratio, inverted for lower-is-better.
// Both thresholds are inclusive: revenue at exactly 80% of target fires.
func underperforms(k model.KPI, ratio float64) bool {
	if k.Direction == model.LowerIsBetter {
		return k.Current*ratio >= k.Target
	}
	return k.Current <= k.Target*ratio
}

func overperforms(k model.KPI, ratio float64) bool {
	if k.Direction == model.LowerIsBetter {
		return k.Current*ratio <= k.Target
	}
	return k.Current >= k.Target*ratio
}

// trendRules fires at most one of declining trend or momentum.
func (g *generator) trendRules(k model.KPI) {
	name := k.ID.DisplayName()
	switch {
	case k.Direction.Adverse(k.Trend) && (k.Status == model.StatusWarning || k.Status == model.StatusCritical):
		g.add(k.ID, model.PriorityHigh,
			"Declining "+name+" Trend",
			name+" shows consistent downward trend",
			"Continued decline could impact overall business performance and competitive position",
			"Implement immediate intervention strategy to reverse negative trend",
		)
	case k.Direction.Favorable(k.Trend) && (k.Status == model.StatusGood || k.Status == model.StatusExcellent):
		g.add(k.ID, model.PriorityLow,
			"Strong "+name+" Momentum",
			name+" demonstrates consistent positive trend",
			"This momentum creates competitive advantage and growth opportunities",
			"Scale successful practices and invest further to accelerate growth",
		)
	}
}

// crossKPI evaluates rules spanning two KPIs. They use raw direction.
func (g *generator) crossKPI(set model.KPISet) {
	rev, okRev := set[model.KPIRevenue]
	margin, okMargin := set[model.KPIProfitMargin]
	if okRev && okMargin && rev.Trend == model.TrendDown && margin.Trend == model.TrendDown {
		g.add(model.KPIRevenue, model.PriorityHigh,
			"Revenue and Margin Double Decline",
			"Both revenue and profit margin are declining simultaneously",
			"This indicates serious business model challenges requiring immediate strategic review",
			"Conduct comprehensive pricing and cost structure analysis within 30 days",
		)
	}

	cac, okCAC := set[model.KPICAC]
	churn, okChurn := set[model.KPIChurnRate]
	if okCAC && okChurn && cac.Trend == model.TrendUp && churn.Trend == model.TrendUp {
		g.add(model.KPICAC, model.PriorityHigh,
			"Leaky Bucket Syndrome",
			"Customer acquisition costs are rising while churn rate increases",
			"This creates an unsustainable growth model that will impact long-term profitability",
			"Prioritize customer retention programs and review acquisition channels immediately",
		)
	}
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
