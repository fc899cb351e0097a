package mcp

import (
	"context"
	"testing"

	mcplib "github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func promptRequest(name string, args map[string]string) mcplib.GetPromptRequest {
	return mcplib.GetPromptRequest{
		Params: mcplib.GetPromptParams{Name: name, Arguments: args},
	}
}

func promptText(t *testing.T, result *mcplib.GetPromptResult) string {
	t.Helper()
	require.NotEmpty(t, result.Messages)
	assert.Equal(t, mcplib.RoleUser, result.Messages[0].Role)
	tc, ok := result.Messages[0].Content.(mcplib.TextContent)
	require.True(t, ok, "message content should be TextContent")
	return tc.Text
}

func TestHealthReviewPrompt(t *testing.T) {
	s := newTestServer(t)

	result, err := s.handleHealthReviewPrompt(context.Background(), promptRequest("health-review", map[string]string{
		"as_of":    "2025-03-15",
		"audience": "the board",
	}))
	require.NoError(t, err)
	text := promptText(t, result)
	assert.Contains(t, text, "kenko_analyze")
	assert.Contains(t, text, `as_of="2025-03-15"`)
	assert.Contains(t, text, "the board")

	result, err = s.handleHealthReviewPrompt(context.Background(), promptRequest("health-review", nil))
	require.NoError(t, err)
	text = promptText(t, result)
	assert.Contains(t, text, "latest record date")
	assert.Contains(t, text, "leadership team")
}

func TestCompareReportsPrompt(t *testing.T) {
	s := newTestServer(t)

	result, err := s.handleCompareReportsPrompt(context.Background(), promptRequest("compare-reports", map[string]string{
		"before": "a", "after": "b",
	}))
	require.NoError(t, err)
	text := promptText(t, result)
	assert.Contains(t, text, "kenko_get_report")
	assert.Contains(t, text, `id="a"`)
	assert.Contains(t, text, `id="b"`)

	_, err = s.handleCompareReportsPrompt(context.Background(), promptRequest("compare-reports", map[string]string{"before": "a"}))
	require.Error(t, err)
}
