package model

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// dateLayouts are tried in order when parsing record dates.
var dateLayouts = []string{
	"2006-01-02",
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
}

// Date is a calendar date carried in record JSON. It accepts YYYY-MM-DD or
// RFC 3339 and always normalizes to UTC.
type Date struct {
	time.Time
}

// NewDate builds a Date from year, month and day.
func NewDate(year int, month time.Month, day int) Date {
	return Date{time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

// ParseDate parses s with the accepted date layouts.
func ParseDate(s string) (Date, error) {
	s = strings.TrimSpace(s)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return Date{t.UTC()}, nil
		}
	}
	return Date{}, fmt.Errorf("invalid date %q: expected YYYY-MM-DD or RFC 3339", s)
}

func (d Date) MarshalJSON() ([]byte, error) {
	if d.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(d.Format("2006-01-02"))
}

func (d *Date) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		*d = Date{}
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return fmt.Errorf("date must be a string: %w", err)
	}
	if s == "" {
		*d = Date{}
		return nil
	}
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// Customer is one row of the customer collection.
type Customer struct {
	CustomerID        string  `json:"customer_id"`
	TotalRevenue      float64 `json:"total_revenue"`
	OrderCount        int     `json:"order_count"`
	LastOrderDate     Date    `json:"last_order_date"`
	SatisfactionScore float64 `json:"satisfaction_score"` // 0-100
	ChurnProbability  float64 `json:"churn_probability"`  // 0-1
	Segment           string  `json:"segment"`
	AcquisitionDate   *Date   `json:"acquisition_date,omitempty"`
	Region            string  `json:"region,omitempty"`
}

// Valid reports whether c can be used for metric computation.
func (c Customer) Valid() bool {
	return strings.TrimSpace(c.CustomerID) != "" &&
		!c.LastOrderDate.IsZero() &&
		c.TotalRevenue >= 0 &&
		c.OrderCount >= 0 &&
		c.SatisfactionScore >= 0 && c.SatisfactionScore <= 100 &&
		c.ChurnProbability >= 0 && c.ChurnProbability <= 1
}

// SalesTransaction is one row of the sales collection.
type SalesTransaction struct {
	TransactionID   string  `json:"transaction_id"`
	CustomerID      string  `json:"customer_id"`
	Date            Date    `json:"date"`
	Amount          float64 `json:"amount"`
	ProductCategory string  `json:"product_category"`
	Margin          float64 `json:"margin"`
	Region          string  `json:"region,omitempty"`
}

func (s SalesTransaction) Valid() bool {
	return strings.TrimSpace(s.TransactionID) != "" && !s.Date.IsZero() && s.Amount >= 0
}

// Expense is one row of the expense collection.
type Expense struct {
	ExpenseID   string  `json:"expense_id"`
	Category    string  `json:"category"`
	Amount      float64 `json:"amount"`
	Date        Date    `json:"date"`
	IsFixed     bool    `json:"is_fixed"`
	Department  string  `json:"department,omitempty"`
	Description string  `json:"description,omitempty"`
}

func (e Expense) Valid() bool {
	return strings.TrimSpace(e.ExpenseID) != "" && !e.Date.IsZero() && e.Amount >= 0
}

// MarketingSpend is one row of the marketing collection.
type MarketingSpend struct {
	CampaignID     string  `json:"campaign_id"`
	Channel        string  `json:"channel"`
	Amount         float64 `json:"amount"`
	Date           Date    `json:"date"`
	LeadsGenerated int     `json:"leads_generated"`
	ConversionRate float64 `json:"conversion_rate"`
}

func (m MarketingSpend) Valid() bool {
	return strings.TrimSpace(m.CampaignID) != "" && !m.Date.IsZero() && m.Amount >= 0
}

// Records is the full raw input to one analysis run.
type Records struct {
	Customers []Customer         `json:"customers"`
	Sales     []SalesTransaction `json:"sales"`
	Expenses  []Expense          `json:"expenses"`
	Marketing []MarketingSpend   `json:"marketing"`
}

// UnmarshalJSON decodes each record on its own so that one malformed row
// (bad date, wrong type) becomes a zero-value record that Sanitize drops and
// counts, instead of failing the whole input. Unknown columns are ignored.
func (r *Records) UnmarshalJSON(b []byte) error {
	var raw struct {
		Customers []json.RawMessage `json:"customers"`
		Sales     []json.RawMessage `json:"sales"`
		Expenses  []json.RawMessage `json:"expenses"`
		Marketing []json.RawMessage `json:"marketing"`
	}
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	*r = Records{
		Customers: decodeRows[Customer](raw.Customers),
		Sales:     decodeRows[SalesTransaction](raw.Sales),
		Expenses:  decodeRows[Expense](raw.Expenses),
		Marketing: decodeRows[MarketingSpend](raw.Marketing),
	}
	return nil
}

func decodeRows[T any](rows []json.RawMessage) []T {
	if rows == nil {
		return nil
	}
	out := make([]T, len(rows))
	for i, row := range rows {
		var v T
		if err := json.Unmarshal(row, &v); err != nil {
			v = *new(T)
		}
		out[i] = v
	}
	return out
}

// Empty reports whether no collection holds any record.
func (r Records) Empty() bool {
	return len(r.Customers) == 0 && len(r.Sales) == 0 && len(r.Expenses) == 0 && len(r.Marketing) == 0
}

// DataQuality counts the malformed records dropped during sanitization.
type DataQuality struct {
	SkippedCustomers int `json:"skipped_customers"`
	SkippedSales     int `json:"skipped_sales"`
	SkippedExpenses  int `json:"skipped_expenses"`
	SkippedMarketing int `json:"skipped_marketing"`
}

// Total is the number of skipped records across all collections.
func (q DataQuality) Total() int {
	return q.SkippedCustomers + q.SkippedSales + q.SkippedExpenses + q.SkippedMarketing
}

// Sanitize returns a copy of r without malformed records, plus counts of
// what was dropped. The input is not modified.
func (r Records) Sanitize() (Records, DataQuality) {
	var out Records
	var q DataQuality
	out.Customers, q.SkippedCustomers = keepValid(r.Customers, Customer.Valid)
	out.Sales, q.SkippedSales = keepValid(r.Sales, SalesTransaction.Valid)
	out.Expenses, q.SkippedExpenses = keepValid(r.Expenses, Expense.Valid)
	out.Marketing, q.SkippedMarketing = keepValid(r.Marketing, MarketingSpend.Valid)
	return out, q
}

func keepValid[T any](in []T, valid func(T) bool) ([]T, int) {
	out := make([]T, 0, len(in))
	for _, v := range in {
		if valid(v) {
			out = append(out, v)
		}
	}
	return out, len(in) - len(out)
}
