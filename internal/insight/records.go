package insight

import (
	"cmp"
	"fmt"
	"slices"

	"github.com/ashita-ai/kenko/internal/model"
)

// concentration flags revenue that depends on a small share of customers.
func (g *generator) concentration(sales []model.SalesTransaction) {
	if len(sales) == 0 {
		return
	}
	byCustomer := map[string]float64{}
	var total float64
	for _, s := range sales {
		byCustomer[s.CustomerID] += s.Amount
		total += s.Amount
	}
	if total <= 0 {
		return
	}
	amounts := make([]float64, 0, len(byCustomer))
	for _, v := range byCustomer {
		amounts = append(amounts, v)
	}
	slices.SortFunc(amounts, func(a, b float64) int { return cmp.Compare(b, a) })

	top := max(1, int(float64(len(amounts))*g.cfg.TopCustomerFraction))
	var topSum float64
	for _, v := range amounts[:top] {
		topSum += v
	}
	share := topSum / total * 100
	if share <= g.cfg.ConcentrationShare {
		return
	}
	g.add(model.KPIRevenue, model.PriorityMedium,
		"High Customer Revenue Concentration",
		fmt.Sprintf("Top %.0f%% of customers generate %.1f%% of revenue", g.cfg.TopCustomerFraction*100, share),
		"High dependency on few customers increases revenue volatility and risk",
		"Develop customer diversification strategy and expand middle-market segment",
	)
}

type group struct {
	name  string
	sum   float64
	base  float64
	count int
}

// groupBy aggregates value and base per key. Groups are returned sorted by
// name so ties resolve the same way on every run.
func groupBy[T any](rows []T, key func(T) string, value, base func(T) float64) []group {
	idx := map[string]*group{}
	for _, r := range rows {
		k := key(r)
		gr, ok := idx[k]
		if !ok {
			gr = &group{name: k}
			idx[k] = gr
		}
		gr.sum += value(r)
		gr.base += base(r)
		gr.count++
	}
	out := make([]group, 0, len(idx))
	for _, gr := range idx {
		out = append(out, *gr)
	}
	slices.SortFunc(out, func(a, b group) int { return cmp.Compare(a.name, b.name) })
	return out
}

// segmentChurn flags the segment with the highest mean churn probability.
func (g *generator) segmentChurn(customers []model.Customer) {
	if len(customers) == 0 {
		return
	}
	groups := groupBy(customers,
		func(c model.Customer) string { return c.Segment },
		func(c model.Customer) float64 { return c.ChurnProbability },
		func(model.Customer) float64 { return 1 },
	)
	worst := groups[0]
	for _, gr := range groups[1:] {
		if gr.sum/gr.base > worst.sum/worst.base {
			worst = gr
		}
	}
	rate := worst.sum / worst.base
	if rate <= g.cfg.SegmentChurn {
		return
	}
	name := segmentName(worst.name)
	g.add(model.KPIChurnRate, model.PriorityHigh,
		fmt.Sprintf("High Churn in %s Segment", name),
		fmt.Sprintf("%s segment has %.1f%% churn probability", name, rate*100),
		"Segment-specific churn indicates product-market fit or service delivery issues",
		fmt.Sprintf("Conduct root cause analysis for %s segment and implement targeted retention", name),
	)
}

// lowMarginCategory flags the product category with the lowest margin.
func (g *generator) lowMarginCategory(sales []model.SalesTransaction) {
	groups := groupBy(sales,
		func(s model.SalesTransaction) string { return s.ProductCategory },
		func(s model.SalesTransaction) float64 { return s.Margin },
		func(s model.SalesTransaction) float64 { return s.Amount },
	)
	found := false
	var worst group
	var worstMargin float64
	for _, gr := range groups {
		if gr.base <= 0 {
			continue
		}
		m := gr.sum / gr.base * 100
		if !found || m < worstMargin {
			worst, worstMargin, found = gr, m, true
		}
	}
	if !found || worstMargin >= g.cfg.LowMarginPercent {
		return
	}
	name := segmentName(worst.name)
	g.add(model.KPIProfitMargin, model.PriorityMedium,
		fmt.Sprintf("Low Margin in %s Category", name),
		fmt.Sprintf("%s category has only %.1f%% profit margin", name, worstMargin),
		"Low-margin categories drag overall profitability and may indicate pricing issues",
		fmt.Sprintf("Review pricing strategy and cost structure for %s products", name),
	)
}

func segmentName(s string) string {
	if s == "" {
		return "Unassigned"
	}
	return s
}
