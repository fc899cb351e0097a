package narrative_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ashita-ai/kenko/internal/model"
	"github.com/ashita-ai/kenko/internal/narrative"
)

func TestParseResponse(t *testing.T) {
	n, err := narrative.ParseResponse(`ASSESSMENT: warning
SUMMARY: Revenue fell while costs held steady.
PRIORITY: Win back lapsed customers
PRIORITY: Review pricing
PRIORITY: Cut discretionary spend
PRIORITY: ignored fourth line`)
	require.NoError(t, err)
	assert.Equal(t, "warning", n.Assessment)
	assert.Equal(t, "Revenue fell while costs held steady.", n.Summary)
	assert.Equal(t, []string{"Win back lapsed customers", "Review pricing", "Cut discretionary spend"}, n.Priorities)
	assert.Equal(t, model.SourceLLM, n.Source)
}

func TestParseResponseCaseAndWhitespace(t *testing.T) {
	n, err := narrative.ParseResponse("  assessment:  [Good]  \n summary:   Steady quarter.  \n")
	require.NoError(t, err)
	assert.Equal(t, "good", n.Assessment)
	assert.Equal(t, "Steady quarter.", n.Summary)
	assert.Empty(t, n.Priorities)
}

func TestParseResponseFailSafe(t *testing.T) {
	_, err := narrative.ParseResponse("The business is doing fine.")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no SUMMARY line found")

	_, err = narrative.ParseResponse("ASSESSMENT: fantastic\nSUMMARY: ok")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unrecognized assessment")

	_, err = narrative.ParseResponse("SUMMARY: missing assessment")
	require.Error(t, err)
}

func TestRuleBased(t *testing.T) {
	insights := []model.Insight{
		{Title: "A", Priority: model.PriorityHigh},
		{Title: "low", Priority: model.PriorityLow},
		{Title: "B", Priority: model.PriorityHigh},
		{Title: "C", Priority: model.PriorityHigh},
		{Title: "D", Priority: model.PriorityHigh},
	}
	n := narrative.RuleBased(insights, "summary text")
	assert.Equal(t, "warning", n.Assessment)
	assert.Equal(t, []string{"A", "B", "C"}, n.Priorities)
	assert.Equal(t, "summary text", n.Summary)
	assert.Equal(t, model.SourceRuleBased, n.Source)

	n = narrative.RuleBased(insights[:3], "")
	assert.Equal(t, "good", n.Assessment, "two HIGH insights are not enough for warning")
	assert.NotNil(t, narrative.RuleBased(nil, "").Priorities)
}

func TestNoopNarrator(t *testing.T) {
	_, err := narrative.NoopNarrator{}.Enrich(context.Background(), narrative.Brief{})
	assert.True(t, errors.Is(err, narrative.ErrDisabled))
}

func chatServer(t *testing.T, status int, content string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		var req struct {
			Model    string `json:"model"`
			Messages []struct {
				Content string `json:"content"`
			} `json:"messages"`
		}
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "test-model", req.Model)
		if assert.Len(t, req.Messages, 1) {
			assert.Contains(t, req.Messages[0].Content, "Reporting date: 2025-03-15")
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		if status != http.StatusOK {
			_, _ = w.Write([]byte(`{"error":{"message":"boom","type":"server_error"}}`))
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"id":      "chatcmpl-1",
			"object":  "chat.completion",
			"created": 1,
			"model":   "test-model",
			"choices": []map[string]any{{
				"index":         0,
				"message":       map[string]string{"role": "assistant", "content": content},
				"finish_reason": "stop",
			}},
		})
	}))
	t.Cleanup(srv.Close)
	return srv
}

func brief() narrative.Brief {
	return narrative.Brief{
		AsOf:   time.Date(2025, time.March, 15, 0, 0, 0, 0, time.UTC),
		Health: model.HealthScore{Overall: 62.5, Status: model.StatusWarning},
		KPIs: []model.KPI{
			{Name: "Revenue", Current: 800000, Target: 1000000, Status: model.StatusWarning, Trend: model.TrendDown},
		},
		Insights: []model.Insight{{Title: "Revenue Below Target", Priority: model.PriorityMedium}},
		Focus:    "IMPROVEMENT - Focus on systematic improvements across all business areas",
	}
}

func TestOpenAINarratorEnrich(t *testing.T) {
	srv := chatServer(t, http.StatusOK, "ASSESSMENT: warning\nSUMMARY: Sales slowed in March.\nPRIORITY: Recover revenue")
	n := narrative.NewCompatibleNarrator(srv.URL+"/v1", "key", "test-model")

	out, err := n.Enrich(context.Background(), brief())
	require.NoError(t, err)
	assert.Equal(t, "Sales slowed in March.", out.Summary)
	assert.Equal(t, []string{"Recover revenue"}, out.Priorities)
	assert.Equal(t, model.SourceLLM, out.Source)
	assert.Equal(t, "test-model", out.Model)
}

func TestOpenAINarratorUnparseableReply(t *testing.T) {
	srv := chatServer(t, http.StatusOK, "I think things look fine overall.")
	n := narrative.NewCompatibleNarrator(srv.URL+"/v1", "key", "test-model")
	_, err := n.Enrich(context.Background(), brief())
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "no SUMMARY line"))
}

func TestOpenAINarratorServerError(t *testing.T) {
	srv := chatServer(t, http.StatusInternalServerError, "")
	n := narrative.NewCompatibleNarrator(srv.URL+"/v1", "key", "test-model")
	_, err := n.Enrich(context.Background(), brief())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "narrative: chat completion")
}

func TestNewOllamaNarratorDefaults(t *testing.T) {
	assert.Equal(t, "qwen2.5:3b", narrative.NewOllamaNarrator("", "").Model())
	assert.Equal(t, narrative.DefaultOpenAIModel, narrative.NewOpenAINarrator("key", "").Model())
}

func TestCheck(t *testing.T) {
	n, err := narrative.Check(model.Narrative{Summary: "ok", Assessment: " Good ", Priorities: []string{"a", "b", "c", "d"}})
	require.NoError(t, err)
	assert.Equal(t, "good", n.Assessment)
	assert.Len(t, n.Priorities, 3)
	assert.Equal(t, model.SourceLLM, n.Source)

	_, err = narrative.Check(model.Narrative{Summary: " ", Assessment: "good"})
	require.Error(t, err)
	_, err = narrative.Check(model.Narrative{Summary: "ok", Assessment: "concerning"})
	require.Error(t, err)
}
