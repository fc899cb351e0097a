package analysis_test

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ashita-ai/kenko/internal/model"
	"github.com/ashita-ai/kenko/internal/narrative"
	"github.com/ashita-ai/kenko/internal/rules"
	"github.com/ashita-ai/kenko/internal/service/analysis"
	"github.com/ashita-ai/kenko/internal/storage"
)

type fakeStore struct {
	mu      sync.Mutex
	reports map[uuid.UUID]model.Report
	saveErr error
	cutoff  time.Time
}

func newFakeStore() *fakeStore {
	return &fakeStore{reports: map[uuid.UUID]model.Report{}}
}

func (f *fakeStore) SaveReport(_ context.Context, r model.Report) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.saveErr != nil {
		return f.saveErr
	}
	f.reports[r.ID] = r
	return nil
}

func (f *fakeStore) GetReport(_ context.Context, id uuid.UUID) (model.Report, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.reports[id]
	if !ok {
		return model.Report{}, storage.ErrNotFound
	}
	return r, nil
}

func (f *fakeStore) ListReports(_ context.Context, limit, offset int) ([]model.ReportSummary, int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []model.ReportSummary{}
	for _, r := range f.reports {
		out = append(out, r.Summarize())
	}
	return out, len(out), nil
}

func (f *fakeStore) DeleteReportsBefore(_ context.Context, cutoff time.Time) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cutoff = cutoff
	return 0, nil
}

type fakeNarrator struct {
	out model.Narrative
	err error
}

func (f fakeNarrator) Enrich(context.Context, narrative.Brief) (model.Narrative, error) {
	return f.out, f.err
}

type fakeHook struct {
	got chan model.Report
	err error
}

func (h *fakeHook) ReportCompleted(_ context.Context, r model.Report) error {
	h.got <- r
	return h.err
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newService(store analysis.ReportStore, n narrative.Narrator, hooks ...analysis.Hook) *analysis.Service {
	return analysis.New(analysis.NewPipeline(rules.Default()), store, n, testLogger(), hooks...)
}

// churnHeavy is a small retailer with low satisfaction and 9 of 50
// customers gone quiet for more than 90 days.
func churnHeavy() model.AnalysisInput {
	asOf := model.NewDate(2025, time.March, 15)
	var in model.AnalysisInput
	in.AsOf = &asOf
	for i := range 50 {
		last := model.NewDate(2025, time.March, 1)
		if i < 9 {
			last = model.NewDate(2024, time.October, 1)
		}
		in.Records.Customers = append(in.Records.Customers, model.Customer{
			CustomerID:        fmt.Sprintf("c-%02d", i),
			TotalRevenue:      500,
			OrderCount:        2,
			LastOrderDate:     last,
			SatisfactionScore: 40,
			ChurnProbability:  0.3,
			Segment:           "retail",
		})
	}
	for i := range 20 {
		in.Records.Sales = append(in.Records.Sales, model.SalesTransaction{
			TransactionID:   fmt.Sprintf("t-%02d", i),
			CustomerID:      fmt.Sprintf("c-%02d", i),
			Date:            model.NewDate(2025, time.March, 1+i%10),
			Amount:          250,
			ProductCategory: "general",
			Margin:          0.3,
		})
	}
	in.Records.Expenses = []model.Expense{
		{ExpenseID: "e-1", Category: "rent", Amount: 2000, Date: model.NewDate(2025, time.March, 1), IsFixed: true},
	}
	return in
}

func TestAnalyzeChurnHeavyBusiness(t *testing.T) {
	store := newFakeStore()
	svc := newService(store, nil)

	report, err := svc.Analyze(context.Background(), churnHeavy())
	require.NoError(t, err)

	assert.NotEqual(t, uuid.Nil, report.ID)
	assert.Equal(t, "2025-03-15", report.AsOf.Format("2006-01-02"))
	assert.Len(t, report.KPIs, len(model.AllKPIs))
	require.Len(t, report.Decisions, len(model.AllAreas))
	assert.LessOrEqual(t, len(report.Insights), 10)
	assert.LessOrEqual(t, len(report.Recommendations), 8)

	kpis := model.IndexKPIs(report.KPIs)
	assert.Equal(t, 18.0, kpis[model.KPIChurnRate].Current)
	assert.Equal(t, model.StatusCritical, kpis[model.KPIChurnRate].Status)

	var customer model.Decision
	for _, d := range report.Decisions {
		if d.Area == model.AreaCustomerSatisfaction {
			customer = d
		}
	}
	assert.Equal(t, model.AreaCritical, customer.Status)
	assert.Contains(t, customer.Actions, "immediate_service_improvement")
	assert.Contains(t, report.ExecutiveSummary.CriticalIssues, model.AreaCustomerSatisfaction)

	stored, err := svc.Get(context.Background(), report.ID)
	require.NoError(t, err)
	assert.Equal(t, report.HealthScore.Overall, stored.HealthScore.Overall)
}

func TestAnalyzeNarrativeFallback(t *testing.T) {
	in := churnHeavy()
	in.Enrich = true

	tests := []struct {
		name     string
		narrator narrative.Narrator
		source   string
	}{
		{"disabled", narrative.NoopNarrator{}, model.SourceRuleBased},
		{"provider error", fakeNarrator{err: errors.New("timeout")}, model.SourceRuleBased},
		{"enriched", fakeNarrator{out: model.Narrative{
			Summary:    "Customers are leaving.",
			Priorities: []string{"Call lapsed accounts"},
			Assessment: "critical",
			Source:     model.SourceLLM,
			Model:      "test-model",
		}}, model.SourceLLM},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			report, err := newService(nil, tt.narrator).Analyze(context.Background(), in)
			require.NoError(t, err)
			assert.Equal(t, tt.source, report.Narrative.Source)
			assert.NotEmpty(t, report.Narrative.Summary)
			assert.NotNil(t, report.Narrative.Priorities)
		})
	}
}

func TestAnalyzeSkipsEnrichmentUnlessRequested(t *testing.T) {
	n := fakeNarrator{out: model.Narrative{Summary: "x", Assessment: "good", Source: model.SourceLLM}}
	report, err := newService(nil, n).Analyze(context.Background(), churnHeavy())
	require.NoError(t, err)
	assert.Equal(t, model.SourceRuleBased, report.Narrative.Source)
}

func TestAnalyzeStoreError(t *testing.T) {
	store := newFakeStore()
	store.saveErr = errors.New("disk full")
	_, err := newService(store, nil).Analyze(context.Background(), churnHeavy())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "analysis: save report")
	assert.ErrorIs(t, err, store.saveErr)
}

func TestAnalyzeCancelled(t *testing.T) {
	store := newFakeStore()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := newService(store, nil).Analyze(ctx, churnHeavy())
	require.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, store.reports)
}

func TestAnalyzeCountsSkippedRecords(t *testing.T) {
	in := churnHeavy()
	in.Records.Customers = append(in.Records.Customers, model.Customer{CustomerID: "", SatisfactionScore: 50})
	in.Records.Sales = append(in.Records.Sales, model.SalesTransaction{
		TransactionID: "bad", Date: model.NewDate(2025, time.March, 2), Amount: -10,
	})

	report, err := newService(nil, nil).Analyze(context.Background(), in)
	require.NoError(t, err)
	assert.Equal(t, 1, report.DataQuality.SkippedCustomers)
	assert.Equal(t, 1, report.DataQuality.SkippedSales)
	assert.Equal(t, 2, report.DataQuality.Total())
}

func TestAnalyzeFiresHooks(t *testing.T) {
	hook := &fakeHook{got: make(chan model.Report, 1), err: errors.New("broker down")}
	svc := newService(newFakeStore(), nil, hook)

	report, err := svc.Analyze(context.Background(), churnHeavy())
	require.NoError(t, err, "hook failures never fail the run")

	select {
	case got := <-hook.got:
		assert.Equal(t, report.ID, got.ID)
	case <-time.After(5 * time.Second):
		t.Fatal("hook was not called")
	}
	svc.WaitForHooks()
}

func TestGetWithoutStore(t *testing.T) {
	svc := newService(nil, nil)
	_, err := svc.Get(context.Background(), uuid.New())
	assert.ErrorIs(t, err, storage.ErrNotFound)

	list, total, err := svc.List(context.Background(), 10, 0)
	require.NoError(t, err)
	assert.Empty(t, list)
	assert.Zero(t, total)
}

func TestPurge(t *testing.T) {
	store := newFakeStore()
	svc := newService(store, nil)

	_, err := svc.Purge(context.Background(), 0)
	require.NoError(t, err)
	assert.True(t, store.cutoff.IsZero(), "zero retention keeps everything")

	_, err = svc.Purge(context.Background(), 24*time.Hour)
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(-24*time.Hour), store.cutoff, time.Minute)
}

func TestKPIsOnly(t *testing.T) {
	kpis, dq := newService(nil, nil).KPIs(context.Background(), churnHeavy())
	assert.Len(t, kpis, len(model.AllKPIs))
	assert.Zero(t, dq.Total())
}
