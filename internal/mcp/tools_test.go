package mcp

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"testing"

	"github.com/google/uuid"
	mcplib "github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ashita-ai/kenko/internal/rules"
	"github.com/ashita-ai/kenko/internal/service/analysis"
	"github.com/ashita-ai/kenko/internal/storage/sqlite"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	ctx := context.Background()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	store, err := sqlite.Open(ctx, ":memory:", logger)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close(ctx) })

	svc := analysis.New(analysis.NewPipeline(rules.Default()), store, nil, logger)
	return New(svc, logger, "test")
}

func toolRequest(name string, args map[string]any) mcplib.CallToolRequest {
	return mcplib.CallToolRequest{
		Params: mcplib.CallToolParams{
			Name:      name,
			Arguments: args,
		},
	}
}

// parseToolText extracts the first TextContent text from a CallToolResult.
func parseToolText(t *testing.T, result *mcplib.CallToolResult) string {
	t.Helper()
	for _, c := range result.Content {
		if tc, ok := c.(mcplib.TextContent); ok {
			return tc.Text
		}
	}
	t.Fatal("no TextContent found in tool result")
	return ""
}

var sampleRecords = map[string]any{
	"customers": []any{
		map[string]any{
			"customer_id": "c1", "total_revenue": 5000, "order_count": 6,
			"last_order_date": "2025-03-01", "satisfaction_score": 88, "churn_probability": 0.1,
		},
		map[string]any{
			"customer_id": "c2", "total_revenue": 2500, "order_count": 3,
			"last_order_date": "2025-02-20", "satisfaction_score": 74, "churn_probability": 0.2,
		},
	},
	"sales": []any{
		map[string]any{"transaction_id": "t1", "customer_id": "c1", "date": "2025-03-03", "amount": 1800, "product_category": "services", "margin": 0.4},
		map[string]any{"transaction_id": "t2", "customer_id": "c2", "date": "2025-03-05", "amount": 900, "product_category": "hardware", "margin": 0.2},
		map[string]any{"transaction_id": "", "date": "2025-03-06", "amount": 10},
	},
}

func analyze(t *testing.T, s *Server, args map[string]any) map[string]any {
	t.Helper()
	result, err := s.handleAnalyze(context.Background(), toolRequest("kenko_analyze", args))
	require.NoError(t, err)
	require.False(t, result.IsError, parseToolText(t, result))

	var out map[string]any
	require.NoError(t, json.Unmarshal([]byte(parseToolText(t, result)), &out))
	return out
}

func TestHandleAnalyze(t *testing.T) {
	s := newTestServer(t)
	out := analyze(t, s, map[string]any{"records": sampleRecords, "as_of": "2025-03-15"})

	assert.Equal(t, "2025-03-15", out["as_of"])
	assert.NotEmpty(t, out["id"])
	assert.Contains(t, out, "overall_score")
	assert.Equal(t, float64(1), out["skipped_records"], "the blank transaction is skipped")
	decisions, ok := out["decisions"].([]any)
	require.True(t, ok)
	assert.Len(t, decisions, 4)
}

func TestHandleAnalyze_RecordsAsString(t *testing.T) {
	s := newTestServer(t)
	raw, err := json.Marshal(sampleRecords)
	require.NoError(t, err)

	out := analyze(t, s, map[string]any{"records": string(raw)})
	assert.NotEmpty(t, out["id"])
}

func TestHandleAnalyze_InvalidArguments(t *testing.T) {
	s := newTestServer(t)

	tests := []struct {
		name    string
		args    map[string]any
		wantErr string
	}{
		{"missing records", map[string]any{}, "records is required"},
		{"bad as_of", map[string]any{"records": sampleRecords, "as_of": "March"}, "invalid as_of"},
		{"bad records string", map[string]any{"records": "{not json"}, "invalid records"},
		{"unknown baseline kpi", map[string]any{"records": sampleRecords, "baseline": map[string]any{"vibes": 1}}, "baseline"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := s.handleAnalyze(context.Background(), toolRequest("kenko_analyze", tt.args))
			require.NoError(t, err)
			assert.True(t, result.IsError)
			assert.Contains(t, parseToolText(t, result), tt.wantErr)
		})
	}
}

func TestHandleGetReport(t *testing.T) {
	s := newTestServer(t)
	out := analyze(t, s, map[string]any{"records": sampleRecords})
	id, _ := out["id"].(string)
	require.NotEmpty(t, id)

	result, err := s.handleGetReport(context.Background(), toolRequest("kenko_get_report", map[string]any{"id": id}))
	require.NoError(t, err)
	require.False(t, result.IsError)
	var compact map[string]any
	require.NoError(t, json.Unmarshal([]byte(parseToolText(t, result)), &compact))
	assert.Equal(t, id, compact["id"])
	assert.NotContains(t, compact, "executive_summary")

	result, err = s.handleGetReport(context.Background(), toolRequest("kenko_get_report", map[string]any{"id": id, "full": true}))
	require.NoError(t, err)
	require.False(t, result.IsError)
	assert.Contains(t, parseToolText(t, result), "executive_summary")
}

func TestHandleGetReport_Errors(t *testing.T) {
	s := newTestServer(t)

	tests := []struct {
		name    string
		args    map[string]any
		wantErr string
	}{
		{"missing id", map[string]any{}, "id is required"},
		{"bad id", map[string]any{"id": "nope"}, "must be a UUID"},
		{"unknown id", map[string]any{"id": uuid.NewString()}, "report not found"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := s.handleGetReport(context.Background(), toolRequest("kenko_get_report", tt.args))
			require.NoError(t, err)
			assert.True(t, result.IsError)
			assert.Contains(t, parseToolText(t, result), tt.wantErr)
		})
	}
}

func TestHandleListReports(t *testing.T) {
	s := newTestServer(t)
	for range 3 {
		analyze(t, s, map[string]any{"records": sampleRecords})
	}

	result, err := s.handleListReports(context.Background(), toolRequest("kenko_list_reports", map[string]any{"limit": 2}))
	require.NoError(t, err)
	require.False(t, result.IsError)

	var page struct {
		Reports []map[string]any `json:"reports"`
		Total   int              `json:"total"`
		HasMore bool             `json:"has_more"`
	}
	require.NoError(t, json.Unmarshal([]byte(parseToolText(t, result)), &page))
	assert.Len(t, page.Reports, 2)
	assert.Equal(t, 3, page.Total)
	assert.True(t, page.HasMore)

	result, err = s.handleListReports(context.Background(), toolRequest("kenko_list_reports", map[string]any{"limit": 500}))
	require.NoError(t, err)
	assert.True(t, result.IsError)
}
