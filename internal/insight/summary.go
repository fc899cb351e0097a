package insight

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/ashita-ai/kenko/internal/model"
)

const (
	maxHighlights        = 4
	maxRisks             = 3
	maxInsightOpenings   = 2
	opportunityKPIMargin = 1.1
)

// Summary is the insight-derived part of the executive summary.
type Summary struct {
	Period        string
	Highlights    []string
	Risks         []model.Insight
	Opportunities []model.Insight
	Narrative     string
}

// Summarize builds highlights, risks, opportunities and the narrative
// paragraph for one run.
func (e *Engine) Summarize(kpis []model.KPI, insights []model.Insight, h model.HealthScore, asOf time.Time) Summary {
	risks := TopRisks(insights)
	opps := Opportunities(insights, kpis, asOf)
	return Summary{
		Period:        Period(asOf),
		Highlights:    Highlights(kpis, h),
		Risks:         risks,
		Opportunities: opps,
		Narrative:     Narrative(h, len(risks), len(opps)),
	}
}

// Period is the calendar quarter of t, as "Q{n} YYYY".
func Period(t time.Time) string {
	return fmt.Sprintf("Q%d %d", (int(t.Month())-1)/3+1, t.Year())
}

// Highlights lists up to four headline facts.
func Highlights(kpis []model.KPI, h model.HealthScore) []string {
	out := []string{
		fmt.Sprintf("Overall business health: %s (%.1f/100)", strings.ToUpper(string(h.Status)), h.Overall),
	}

	best, bestScore := model.CategoryFinancial, h.Financial
	for _, c := range []model.Category{model.CategoryCustomer, model.CategoryOperational} {
		if s := h.CategoryScore(c); s > bestScore {
			best, bestScore = c, s
		}
	}
	out = append(out, fmt.Sprintf("Strongest performance: %s (%.1f/100)", titleCase(string(best)), bestScore))

	critical, momentum := 0, 0
	for _, k := range kpis {
		if k.Status == model.StatusCritical {
			critical++
		}
		if k.Direction.Favorable(k.Trend) && (k.Status == model.StatusGood || k.Status == model.StatusExcellent) {
			momentum++
		}
	}
	if critical > 0 {
		out = append(out, fmt.Sprintf("Critical attention needed: %d KPIs in critical state", critical))
	}
	if momentum > 0 {
		out = append(out, fmt.Sprintf("Positive momentum: %d KPIs showing strong favorable trends", momentum))
	}
	if len(out) > maxHighlights {
		out = out[:maxHighlights]
	}
	return out
}

// TopRisks returns the first three HIGH insights.
func TopRisks(insights []model.Insight) []model.Insight {
	var out []model.Insight
	for _, in := range insights {
		if in.Priority == model.PriorityHigh {
			out = append(out, in)
			if len(out) == maxRisks {
				break
			}
		}
	}
	return out
}

// Opportunities returns up to two momentum or exceeds-target insights plus
// one KPI beating its target by more than 10% in its favorable direction.
func Opportunities(insights []model.Insight, kpis []model.KPI, asOf time.Time) []model.Insight {
	var out []model.Insight
	for _, in := range insights {
		t := strings.ToLower(in.Title)
		if strings.Contains(t, "momentum") || strings.Contains(t, "exceeds") {
			out = append(out, in)
			if len(out) == maxInsightOpenings {
				break
			}
		}
	}
	for _, k := range kpis {
		if k.InsufficientData || k.Target <= 0 || !beatsTarget(k) {
			continue
		}
		name := k.ID.DisplayName()
		out = append(out, model.Insight{
			ID:             uuid.New(),
			KPIID:          k.ID,
			Title:          "Scale " + name + " Success",
			Observation:    "Exceptional performance in " + name + " presents scaling opportunity",
			BusinessImpact: "Exceptional performance in " + name + " presents scaling opportunity",
			Priority:       model.PriorityLow,
			GeneratedAt:    asOf,
			AutoGenerated:  true,
			Source:         model.SourceRuleBased,
		})
		break
	}
	return out
}

func beatsTarget(k model.KPI) bool {
	if k.Direction == model.LowerIsBetter {
		return k.Current*opportunityKPIMargin < k.Target
	}
	return k.Current > k.Target*opportunityKPIMargin
}

var statusDescriptors = map[model.HealthStatus]string{
	model.StatusExcellent: "strong performance across all business areas",
	model.StatusGood:      "solid performance with opportunities for improvement",
	model.StatusWarning:   "mixed performance requiring focused attention",
	model.StatusCritical:  "significant challenges demanding immediate action",
}

// Narrative is the rule-based executive paragraph.
func Narrative(h model.HealthScore, risks, opportunities int) string {
	desc, ok := statusDescriptors[h.Status]
	if !ok {
		desc = "mixed results"
	}
	paragraphs := []string{
		fmt.Sprintf("Business performance shows %s with an overall health score of %.1f/100.", desc, h.Overall),
		fmt.Sprintf("Financial health stands at %.1f/100, customer metrics at %.1f/100, and operational efficiency at %.1f/100.",
			h.Financial, h.Customer, h.Operational),
		fmt.Sprintf("Key priorities include addressing the %d identified risks while capitalizing on %d growth opportunities. "+
			"Focused interventions in the underperforming areas could yield significant improvements within the next quarter.",
			risks, opportunities),
		"Leadership should prioritize the high-impact recommendations while maintaining strong performance in existing strengths.",
	}
	return strings.Join(paragraphs, "\n\n")
}

func titleCase(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
