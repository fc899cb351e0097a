package kpi

import (
	"time"

	"github.com/ashita-ai/kenko/internal/model"
)

const (
	recencyHorizonDays = 365.0
	frequencyCapOrders = 50.0
)

// customerSummary holds the snapshot aggregates of the customer base.
type customerSummary struct {
	count        int
	satisfaction float64 // mean satisfaction score
	engagement   float64 // mean engagement score, 0-100
	churnPercent float64
	meanRevenue  float64
}

func summarizeCustomers(customers []model.Customer, asOf time.Time) customerSummary {
	s := customerSummary{count: len(customers)}
	if s.count == 0 {
		return s
	}
	var sat, eng, rev float64
	churned := 0
	for _, c := range customers {
		days := daysBetween(c.LastOrderDate.Time, asOf)
		sat += c.SatisfactionScore
		eng += engagement(days, c.OrderCount)
		rev += c.TotalRevenue
		if days > churnAfterDays {
			churned++
		}
	}
	n := float64(s.count)
	s.satisfaction = sat / n
	s.engagement = eng / n
	s.meanRevenue = rev / n
	s.churnPercent = float64(churned) / n * 100
	return s
}

// engagement is the mean of a recency score and a frequency score.
func engagement(daysSinceOrder, orders int) float64 {
	recency := model.Clamp(100-float64(daysSinceOrder)/recencyHorizonDays*100, 0, 100)
	frequency := model.Clamp(float64(orders)/frequencyCapOrders*100, 0, 100)
	return (recency + frequency) / 2
}

// daysBetween counts whole days from `from` to `to`. Dates after `to` count as zero.
func daysBetween(from, to time.Time) int {
	d := int(startOfDay(to).Sub(startOfDay(from)).Hours() / 24)
	if d < 0 {
		return 0
	}
	return d
}
