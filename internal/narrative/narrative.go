// Package narrative writes executive prose for a report. A hosted model can
// enrich the text; the rule-based fallback is always available.
package narrative

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ashita-ai/kenko/internal/model"
)

// ErrDisabled is returned by narrators that are not configured.
var ErrDisabled = errors.New("narrative: disabled")

// perCallTimeout bounds a single enrichment call, independent of the
// caller's deadline.
const perCallTimeout = 15 * time.Second

// maxPriorities bounds the priorities in any narrative.
const maxPriorities = 3

// Brief is what a narrator sees of a report.
type Brief struct {
	AsOf     time.Time
	Health   model.HealthScore
	KPIs     []model.KPI
	Insights []model.Insight
	Focus    string
}

// Narrator turns a Brief into a Narrative.
type Narrator interface {
	Enrich(ctx context.Context, b Brief) (model.Narrative, error)
}

// NoopNarrator is used when no model is configured.
type NoopNarrator struct{}

func (NoopNarrator) Enrich(context.Context, Brief) (model.Narrative, error) {
	return model.Narrative{}, ErrDisabled
}

// RuleBased builds the fallback narrative from ranked insights and the
// executive paragraph.
func RuleBased(insights []model.Insight, summary string) model.Narrative {
	var priorities []string
	high := 0
	for _, in := range insights {
		if in.Priority != model.PriorityHigh {
			continue
		}
		high++
		if len(priorities) < maxPriorities {
			priorities = append(priorities, in.Title)
		}
	}
	assessment := "good"
	if high > 2 {
		assessment = "warning"
	}
	if priorities == nil {
		priorities = []string{}
	}
	return model.Narrative{
		Summary:    summary,
		Priorities: priorities,
		Assessment: assessment,
		Source:     model.SourceRuleBased,
	}
}

const briefPrompt = `You are a business analyst writing for a non-technical owner.

Reporting date: %s
Overall health: %.1f/100 (%s)
Financial %.1f, customer %.1f, operational %.1f.
Recommended focus: %s

Key metrics:
%s
Top findings:
%s
Reply with exactly these lines and nothing else:
ASSESSMENT: one of [excellent, good, warning, critical]
SUMMARY: two or three plain sentences on the state of the business
PRIORITY: the most important action
PRIORITY: the second most important action
PRIORITY: the third most important action`

// maxBriefKPIs and maxBriefInsights keep the prompt short.
const (
	maxBriefKPIs     = 8
	maxBriefInsights = 5
)

func formatPrompt(b Brief) string {
	var kpis strings.Builder
	n := 0
	for _, k := range b.KPIs {
		if k.InsufficientData {
			continue
		}
		fmt.Fprintf(&kpis, "- %s: %g (target %g, %s, trend %s)\n", k.Name, k.Current, k.Target, k.Status, k.Trend)
		if n++; n == maxBriefKPIs {
			break
		}
	}
	if n == 0 {
		kpis.WriteString("- none with sufficient data\n")
	}

	var ins strings.Builder
	for i, in := range b.Insights {
		if i == maxBriefInsights {
			break
		}
		fmt.Fprintf(&ins, "- [%s] %s: %s\n", in.Priority, in.Title, in.Observation)
	}
	if len(b.Insights) == 0 {
		ins.WriteString("- none\n")
	}

	h := b.Health
	return fmt.Sprintf(briefPrompt,
		b.AsOf.Format("2006-01-02"),
		h.Overall, h.Status, h.Financial, h.Customer, h.Operational,
		b.Focus,
		kpis.String(), ins.String(),
	)
}

var validAssessments = map[string]bool{"excellent": true, "good": true, "warning": true, "critical": true}

// ParseResponse extracts assessment, summary and priorities from a model
// reply. A reply with no SUMMARY line or an unknown assessment is an error,
// so the caller falls back to the rule-based narrative.
func ParseResponse(response string) (model.Narrative, error) {
	var assessment, summary string
	priorities := []string{}
	for _, line := range strings.Split(strings.TrimSpace(response), "\n") {
		trimmed := strings.TrimSpace(line)
		lower := strings.ToLower(trimmed)
		switch {
		case strings.HasPrefix(lower, "assessment:"):
			assessment = strings.ToLower(strings.TrimSpace(trimmed[len("assessment:"):]))
		case strings.HasPrefix(lower, "summary:"):
			summary = strings.TrimSpace(trimmed[len("summary:"):])
		case strings.HasPrefix(lower, "priority:"):
			if p := strings.TrimSpace(trimmed[len("priority:"):]); p != "" && len(priorities) < maxPriorities {
				priorities = append(priorities, p)
			}
		}
	}

	if summary == "" {
		return model.Narrative{}, fmt.Errorf("narrative: no SUMMARY line found in response")
	}
	assessment = strings.Trim(assessment, "[] ")
	if !validAssessments[assessment] {
		return model.Narrative{}, fmt.Errorf("narrative: unrecognized assessment %q", assessment)
	}
	return model.Narrative{
		Summary:    summary,
		Priorities: priorities,
		Assessment: assessment,
		Source:     model.SourceLLM,
	}, nil
}

// Check applies the ParseResponse rules to a narrative written by an
// external narrator: a summary is required, the assessment must be known
// and priorities are capped.
func Check(n model.Narrative) (model.Narrative, error) {
	if strings.TrimSpace(n.Summary) == "" {
		return model.Narrative{}, fmt.Errorf("narrative: empty summary")
	}
	n.Assessment = strings.ToLower(strings.TrimSpace(n.Assessment))
	if !validAssessments[n.Assessment] {
		return model.Narrative{}, fmt.Errorf("narrative: unrecognized assessment %q", n.Assessment)
	}
	if n.Priorities == nil {
		n.Priorities = []string{}
	}
	if len(n.Priorities) > maxPriorities {
		n.Priorities = n.Priorities[:maxPriorities]
	}
	n.Source = model.SourceLLM
	return n, nil
}
