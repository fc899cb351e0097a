package mcp

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	mcplib "github.com/mark3labs/mcp-go/mcp"

	"github.com/ashita-ai/kenko/internal/model"
	"github.com/ashita-ai/kenko/internal/storage"
)

const (
	defaultListLimit = 10
	maxListLimit     = 100
)

func (s *Server) registerTools() {
	// kenko_analyze: run the full pipeline over raw records.
	s.mcpServer.AddTool(
		mcplib.NewTool("kenko_analyze",
			mcplib.WithDescription(`Score business health from raw records and store the report.

WHEN TO USE: When you have customer, sales, expense or marketing records and
need KPIs, an overall health score, insights and prioritized decisions.

WHAT YOU GET BACK: a compact report with the report id, overall score and
status, each KPI against its target, the top decisions by priority and the
top insights. Use kenko_get_report with full=true for everything.

Malformed records are skipped and counted, not rejected.`),
			mcplib.WithDestructiveHintAnnotation(false),
			mcplib.WithIdempotentHintAnnotation(false),
			mcplib.WithOpenWorldHintAnnotation(false),
			mcplib.WithObject("records",
				mcplib.Description("Record collections: customers, sales, expenses, marketing. A JSON string of the same object is also accepted."),
				mcplib.Required(),
			),
			mcplib.WithString("as_of",
				mcplib.Description("Reference date YYYY-MM-DD. Defaults to the latest record date."),
			),
			mcplib.WithObject("baseline",
				mcplib.Description("Explicit previous-period values keyed by KPI id, e.g. {\"revenue\": 950000}"),
			),
			mcplib.WithObject("signals",
				mcplib.Description("Optional external measurements: market_size, employee_satisfaction"),
			),
			mcplib.WithArray("history",
				mcplib.Description("Prior overall health scores, oldest first, used for the trend"),
				mcplib.Items(map[string]any{"type": "number"}),
			),
			mcplib.WithBoolean("enrich",
				mcplib.Description("Ask the configured language model for a narrative summary"),
			),
		),
		s.handleAnalyze,
	)

	// kenko_get_report: fetch one stored report.
	s.mcpServer.AddTool(
		mcplib.NewTool("kenko_get_report",
			mcplib.WithDescription("Fetch a stored health report by id."),
			mcplib.WithReadOnlyHintAnnotation(true),
			mcplib.WithIdempotentHintAnnotation(true),
			mcplib.WithOpenWorldHintAnnotation(false),
			mcplib.WithString("id",
				mcplib.Description("Report id (UUID) from kenko_analyze or kenko_list_reports"),
				mcplib.Required(),
			),
			mcplib.WithBoolean("full",
				mcplib.Description("Return the complete report instead of the compact view"),
			),
		),
		s.handleGetReport,
	)

	// kenko_list_reports: page through stored reports, newest first.
	s.mcpServer.AddTool(
		mcplib.NewTool("kenko_list_reports",
			mcplib.WithDescription("List stored health reports, newest first."),
			mcplib.WithReadOnlyHintAnnotation(true),
			mcplib.WithIdempotentHintAnnotation(true),
			mcplib.WithOpenWorldHintAnnotation(false),
			mcplib.WithNumber("limit",
				mcplib.Description("Maximum results to return"),
				mcplib.Min(1),
				mcplib.Max(maxListLimit),
				mcplib.DefaultNumber(defaultListLimit),
			),
			mcplib.WithNumber("offset",
				mcplib.Description("Number of reports to skip"),
				mcplib.Min(0),
			),
		),
		s.handleListReports,
	)
}

type analyzeArgs struct {
	Records  json.RawMessage         `json:"records"`
	AsOf     string                  `json:"as_of"`
	Baseline map[model.KPIID]float64 `json:"baseline"`
	Signals  model.Signals           `json:"signals"`
	History  []float64               `json:"history"`
	Enrich   bool                    `json:"enrich"`
}

// parseAnalyzeArgs converts tool arguments into an AnalysisInput.
func parseAnalyzeArgs(args map[string]any) (model.AnalysisInput, error) {
	var in model.AnalysisInput

	raw, err := json.Marshal(args)
	if err != nil {
		return in, fmt.Errorf("encode arguments: %w", err)
	}
	var a analyzeArgs
	if err := json.Unmarshal(raw, &a); err != nil {
		return in, fmt.Errorf("invalid arguments: %w", err)
	}

	records := bytes.TrimSpace(a.Records)
	if len(records) == 0 || bytes.Equal(records, []byte("null")) {
		return in, errors.New("records is required")
	}
	if records[0] == '"' {
		var inner string
		if err := json.Unmarshal(records, &inner); err != nil {
			return in, fmt.Errorf("invalid records: %w", err)
		}
		records = []byte(inner)
	}
	if err := json.Unmarshal(records, &in.Records); err != nil {
		return in, fmt.Errorf("invalid records: %w", err)
	}

	if a.AsOf != "" {
		d, err := model.ParseDate(a.AsOf)
		if err != nil {
			return in, fmt.Errorf("invalid as_of: %w", err)
		}
		in.AsOf = &d
	}
	in.Baseline = a.Baseline
	in.Signals = a.Signals
	in.History = a.History
	in.Enrich = a.Enrich

	if err := model.ValidateAnalysisInput(in); err != nil {
		return in, err
	}
	return in, nil
}

func (s *Server) handleAnalyze(ctx context.Context, request mcplib.CallToolRequest) (*mcplib.CallToolResult, error) {
	in, err := parseAnalyzeArgs(request.GetArguments())
	if err != nil {
		return errorResult(err.Error()), nil
	}

	report, err := s.svc.Analyze(ctx, in)
	if err != nil {
		s.logger.Error("mcp: analyze", "error", err)
		return errorResult(fmt.Sprintf("analysis failed: %v", err)), nil
	}

	data, _ := json.MarshalIndent(compactReport(report), "", "  ")
	return textResult(string(data)), nil
}

func (s *Server) handleGetReport(ctx context.Context, request mcplib.CallToolRequest) (*mcplib.CallToolResult, error) {
	rawID := request.GetString("id", "")
	if rawID == "" {
		return errorResult("id is required"), nil
	}
	id, err := uuid.Parse(rawID)
	if err != nil {
		return errorResult(fmt.Sprintf("invalid id %q: must be a UUID", rawID)), nil
	}

	report, err := s.svc.Get(ctx, id)
	if errors.Is(err, storage.ErrNotFound) {
		return errorResult("report not found: " + id.String()), nil
	}
	if err != nil {
		return errorResult(fmt.Sprintf("get report failed: %v", err)), nil
	}

	var out any = compactReport(report)
	if request.GetBool("full", false) {
		out = report
	}
	data, _ := json.MarshalIndent(out, "", "  ")
	return textResult(string(data)), nil
}

func (s *Server) handleListReports(ctx context.Context, request mcplib.CallToolRequest) (*mcplib.CallToolResult, error) {
	limit := request.GetInt("limit", defaultListLimit)
	if limit < 1 || limit > maxListLimit {
		return errorResult(fmt.Sprintf("limit must be between 1 and %d", maxListLimit)), nil
	}
	offset := max(request.GetInt("offset", 0), 0)

	reports, total, err := s.svc.List(ctx, limit, offset)
	if err != nil {
		return errorResult(fmt.Sprintf("list reports failed: %v", err)), nil
	}

	data, _ := json.MarshalIndent(map[string]any{
		"reports":  reports,
		"total":    total,
		"has_more": offset+len(reports) < total,
	}, "", "  ")
	return textResult(string(data)), nil
}
