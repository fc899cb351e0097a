package kpi

import (
	"time"

	"github.com/ashita-ai/kenko/internal/model"
)

// window is a half-open time range [start, end).
type window struct {
	start time.Time
	end   time.Time
}

func (w window) contains(t time.Time) bool {
	return !t.Before(w.start) && t.Before(w.end)
}

// period is the YYYY-MM label of the window's month.
func (w window) period() string { return w.start.Format("2006-01") }

// monthWindow returns the calendar month `back` months before the month of
// asOf. The current month (back == 0) ends after the as-of day, so records
// dated later are excluded.
func monthWindow(asOf time.Time, back int) window {
	monthStart := time.Date(asOf.Year(), asOf.Month(), 1, 0, 0, 0, 0, time.UTC)
	start := monthStart.AddDate(0, -back, 0)
	end := start.AddDate(0, 1, 0)
	if back == 0 {
		end = startOfDay(asOf).AddDate(0, 0, 1)
	}
	return window{start: start, end: end}
}

func startOfDay(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// totals aggregates the windowed record collections.
type totals struct {
	revenue   float64
	sales     int
	expenses  float64
	marketing float64
}

func aggregate(r model.Records, w window) totals {
	var t totals
	for _, s := range r.Sales {
		if w.contains(s.Date.Time) {
			t.revenue += s.Amount
			t.sales++
		}
	}
	for _, e := range r.Expenses {
		if w.contains(e.Date.Time) {
			t.expenses += e.Amount
		}
	}
	for _, m := range r.Marketing {
		if w.contains(m.Date.Time) {
			t.marketing += m.Amount
		}
	}
	return t
}

// newCustomers counts customers acquired in w. When no customer carries an
// acquisition date the count falls back to one twelfth of the customer base.
func newCustomers(customers []model.Customer, w window) int {
	dated := false
	n := 0
	for _, c := range customers {
		if c.AcquisitionDate == nil || c.AcquisitionDate.IsZero() {
			continue
		}
		dated = true
		if w.contains(c.AcquisitionDate.Time) {
			n++
		}
	}
	if !dated {
		return len(customers) / 12
	}
	return n
}
