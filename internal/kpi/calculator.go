// Package kpi derives the sixteen business metrics from raw records.
//
// Calculation is a pure function of its Input: the same records, as-of date,
// baseline and signals always produce the same KPIs.
package kpi

import (
	"time"

	"github.com/ashita-ai/kenko/internal/model"
	"github.com/ashita-ai/kenko/internal/rules"
)

const (
	// churnAfterDays is how long since the last order before a customer counts as churned.
	churnAfterDays = 90
	// historyMonths is the length of the revenue history, current month included.
	historyMonths = 6
	// marketShareProxy is reported when no market size is known.
	marketShareProxy = 10.0
)

// Input is everything one calculation needs. Records should already be
// sanitized; the calculator does not re-validate them.
type Input struct {
	Records  model.Records
	AsOf     time.Time
	Baseline map[model.KPIID]float64
	Signals  model.Signals
}

// Calculator computes KPIs against one rule set.
type Calculator struct {
	rules *rules.Rules
}

// New creates a Calculator.
func New(r *rules.Rules) *Calculator {
	return &Calculator{rules: r}
}

// measure is a metric before previous-value resolution, rounding and
// classification.
type measure struct {
	current      float64
	previous     float64
	hasPrevious  bool
	insufficient bool
}

func windowed(cur, prev float64, curOK, prevOK bool) measure {
	return measure{current: cur, previous: prev, hasPrevious: prevOK, insufficient: !curOK}
}

func snapshot(cur float64, ok bool) measure {
	return measure{current: cur, insufficient: !ok}
}

// Calculate returns all KPIs in model.AllKPIs order.
func (c *Calculator) Calculate(in Input) []model.KPI {
	asOf := startOfDay(in.AsOf)
	m := c.measure(in, asOf)

	out := make([]model.KPI, 0, len(model.AllKPIs))
	for _, id := range model.AllKPIs {
		k := c.build(id, m[id], in.Baseline, asOf)
		if id == model.KPIRevenue {
			k.History = revenueHistory(in.Records, asOf)
		}
		out = append(out, k)
	}
	return out
}

func (c *Calculator) measure(in Input, asOf time.Time) map[model.KPIID]measure {
	r := in.Records
	w0, w1, w2 := monthWindow(asOf, 0), monthWindow(asOf, 1), monthWindow(asOf, 2)
	t0, t1, t2 := aggregate(r, w0), aggregate(r, w1), aggregate(r, w2)

	m := make(map[model.KPIID]measure, len(model.AllKPIs))

	// Financial.
	m[model.KPIRevenue] = windowed(t0.revenue, t1.revenue, t0.sales > 0, true)
	m[model.KPIMRR] = m[model.KPIRevenue]
	m[model.KPIARR] = windowed(t0.revenue*12, t1.revenue*12, t0.sales > 0, true)

	m[model.KPIRevenueGrowth] = windowed(
		growth(t0.revenue, t1.revenue), growth(t1.revenue, t2.revenue),
		t0.sales > 0 && t1.sales > 0 && t1.revenue > 0, t2.revenue > 0,
	)
	m[model.KPIProfitMargin] = windowed(
		margin(t0), margin(t1),
		t0.revenue > 0, t1.revenue > 0,
	)
	m[model.KPIExpenseRatio] = windowed(
		expenseRatio(t0), expenseRatio(t1),
		t0.revenue > 0, t1.revenue > 0,
	)
	m[model.KPIOperationalEfficiency] = windowed(
		efficiency(t0), efficiency(t1),
		t0.revenue > 0 && t0.expenses > 0, t1.revenue > 0 && t1.expenses > 0,
	)

	if size := in.Signals.MarketSize; size != nil && *size > 0 {
		m[model.KPIMarketShare] = windowed(
			t0.revenue / *size * 100, t1.revenue / *size * 100,
			t0.revenue > 0, t1.revenue > 0,
		)
	} else {
		m[model.KPIMarketShare] = windowed(marketShareProxy, marketShareProxy, t0.revenue > 0, t1.revenue > 0)
	}

	// Customer snapshot.
	cs := summarizeCustomers(r.Customers, asOf)
	have := cs.count > 0
	m[model.KPICustomerHealth] = snapshot(cs.satisfaction*0.6+cs.engagement*0.4, have)
	m[model.KPIChurnRate] = snapshot(cs.churnPercent, have)
	m[model.KPICLV] = snapshot(cs.meanRevenue, have)
	m[model.KPINPS] = snapshot(cs.satisfaction*2-100, have)
	m[model.KPICSAT] = snapshot(cs.satisfaction, have)

	if s := in.Signals.EmployeeSatisfaction; s != nil {
		m[model.KPIEmployeeSatisfaction] = snapshot(*s, true)
	} else {
		m[model.KPIEmployeeSatisfaction] = snapshot(cs.satisfaction*0.9, have)
	}

	// Acquisition.
	n0, n1 := newCustomers(r.Customers, w0), newCustomers(r.Customers, w1)
	cac := windowed(
		perCustomer(t0.marketing, n0), perCustomer(t1.marketing, n1),
		t0.marketing > 0 && n0 > 0, t1.marketing > 0 && n1 > 0,
	)
	m[model.KPICAC] = cac

	clv := m[model.KPICLV]
	ltv := measure{insufficient: clv.insufficient || cac.insufficient || cac.current == 0}
	if !ltv.insufficient {
		ltv.current = clv.current / cac.current
	}
	prevCLV := c.resolvePrevious(model.KPICLV, clv, in.Baseline)
	prevCAC := c.resolvePrevious(model.KPICAC, cac, in.Baseline)
	if prevCAC > 0 {
		ltv.previous, ltv.hasPrevious = prevCLV/prevCAC, true
	}
	m[model.KPILTVCACRatio] = ltv

	return m
}

// resolvePrevious applies the previous-value precedence: explicit baseline,
// then the previous-window aggregate, then the current value.
func (c *Calculator) resolvePrevious(id model.KPIID, m measure, baseline map[model.KPIID]float64) float64 {
	if v, ok := baseline[id]; ok {
		return v
	}
	if m.hasPrevious {
		return m.previous
	}
	if m.insufficient {
		return 0
	}
	return m.current
}

func (c *Calculator) build(id model.KPIID, m measure, baseline map[model.KPIID]float64, asOf time.Time) model.KPI {
	rule := c.rules.KPI(id)
	prec := rule.Precision
	prev := model.Round(c.resolvePrevious(id, m, baseline), prec)

	k := model.KPI{
		ID:          id,
		Name:        rule.Name(),
		Category:    rule.Category,
		Unit:        rule.Unit,
		Direction:   rule.Direction,
		Previous:    prev,
		LastUpdated: asOf,
	}

	if m.insufficient {
		k.Target = model.Round(rule.TargetFor(0, prev), prec)
		k.Trend = model.TrendStable
		k.Status = model.StatusCritical
		k.InsufficientData = true
		return k
	}

	k.Current = model.Round(m.current, prec)
	k.Target = model.Round(rule.TargetFor(k.Current, prev), prec)
	k.Trend = model.TrendOf(k.Current, k.Previous)
	k.Status = rule.Classify(k.Current, k.Target)
	return k
}

func growth(cur, prev float64) float64 {
	if prev <= 0 {
		return 0
	}
	return (cur - prev) / prev * 100
}

func margin(t totals) float64 {
	if t.revenue <= 0 {
		return 0
	}
	return (t.revenue - t.expenses) / t.revenue * 100
}

func expenseRatio(t totals) float64 {
	if t.revenue <= 0 {
		return 0
	}
	return t.expenses / t.revenue * 100
}

func efficiency(t totals) float64 {
	if t.expenses <= 0 {
		return 0
	}
	return t.revenue / t.expenses * 100
}

func perCustomer(spend float64, n int) float64 {
	if n <= 0 {
		return 0
	}
	return spend / float64(n)
}

// revenueHistory returns monthly revenue for the last historyMonths months,
// oldest first.
func revenueHistory(r model.Records, asOf time.Time) []model.HistoricalValue {
	out := make([]model.HistoricalValue, 0, historyMonths)
	for back := historyMonths - 1; back >= 0; back-- {
		w := monthWindow(asOf, back)
		out = append(out, model.HistoricalValue{
			Period: w.period(),
			Value:  model.Round(aggregate(r, w).revenue, 2),
		})
	}
	return out
}
