package mcp

import (
	"context"
	"fmt"

	mcplib "github.com/mark3labs/mcp-go/mcp"
)

func (s *Server) registerPrompts() {
	// health-review: walks an agent through running and reading an analysis.
	s.mcpServer.AddPrompt(
		mcplib.NewPrompt("health-review",
			mcplib.WithPromptDescription("Run a business health analysis and summarize what needs attention"),
			mcplib.WithArgument("as_of",
				mcplib.ArgumentDescription("Reference date YYYY-MM-DD (optional)"),
			),
			mcplib.WithArgument("audience",
				mcplib.ArgumentDescription("Who the summary is for, e.g. board, operations team (optional)"),
			),
		),
		s.handleHealthReviewPrompt,
	)

	// compare-reports: contrasts two stored reports.
	s.mcpServer.AddPrompt(
		mcplib.NewPrompt("compare-reports",
			mcplib.WithPromptDescription("Compare two stored health reports and explain what changed"),
			mcplib.WithArgument("before",
				mcplib.ArgumentDescription("Id of the earlier report"),
				mcplib.RequiredArgument(),
			),
			mcplib.WithArgument("after",
				mcplib.ArgumentDescription("Id of the later report"),
				mcplib.RequiredArgument(),
			),
		),
		s.handleCompareReportsPrompt,
	)
}

func (s *Server) handleHealthReviewPrompt(ctx context.Context, request mcplib.GetPromptRequest) (*mcplib.GetPromptResult, error) {
	asOf := request.Params.Arguments["as_of"]
	audience := request.Params.Arguments["audience"]
	if audience == "" {
		audience = "the leadership team"
	}

	dateClause := "Let as_of default to the latest record date."
	if asOf != "" {
		dateClause = fmt.Sprintf("Pass as_of=%q.", asOf)
	}

	return &mcplib.GetPromptResult{
		Description: "Run and summarize a business health analysis",
		Messages: []mcplib.PromptMessage{
			{
				Role: mcplib.RoleUser,
				Content: mcplib.TextContent{
					Type: "text",
					Text: fmt.Sprintf(`Review the health of this business for %s.

1. CALL kenko_analyze with the customer, sales, expense and marketing records. %s

2. READ the result:
   - overall_score and status give the headline.
   - critical_issues lists areas that need action now.
   - decisions are already ordered by priority; the first one is the focus.
   - KPIs with insufficient_data were not scored. Say so rather than guessing.

3. SUMMARIZE in plain language: the headline, the top two priorities with
   their first action, and any KPI that moved sharply. Quote numbers from
   the report; do not invent figures.`, audience, dateClause),
				},
			},
		},
	}, nil
}

func (s *Server) handleCompareReportsPrompt(ctx context.Context, request mcplib.GetPromptRequest) (*mcplib.GetPromptResult, error) {
	before := request.Params.Arguments["before"]
	after := request.Params.Arguments["after"]
	if before == "" || after == "" {
		return nil, fmt.Errorf("before and after arguments are required")
	}

	return &mcplib.GetPromptResult{
		Description: "Compare two health reports",
		Messages: []mcplib.PromptMessage{
			{
				Role: mcplib.RoleUser,
				Content: mcplib.TextContent{
					Type: "text",
					Text: fmt.Sprintf(`Compare two business health reports.

1. CALL kenko_get_report with id=%q and again with id=%q.

2. For each KPI present in both, note the change in current value and
   whether its status improved, held or worsened.

3. Explain which areas entered or left critical_issues and whether the
   recommended focus changed. Keep it to one short paragraph per area.`, before, after),
				},
			},
		},
	}, nil
}
