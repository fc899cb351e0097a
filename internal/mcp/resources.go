package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	mcplib "github.com/mark3labs/mcp-go/mcp"

	"github.com/ashita-ai/kenko/internal/storage"
)

const (
	recentReportsURI  = "kenko://reports/recent"
	reportURIPrefix   = "kenko://reports/"
	recentReportCount = 10
)

func (s *Server) registerResources() {
	// kenko://reports/recent: the latest stored report summaries.
	s.mcpServer.AddResource(
		mcplib.NewResource(
			recentReportsURI,
			"Recent Reports",
			mcplib.WithResourceDescription("The most recent health report summaries, newest first"),
			mcplib.WithMIMEType("application/json"),
		),
		s.handleRecentReports,
	)

	// kenko://reports/{id}: one report in compact form.
	s.mcpServer.AddResourceTemplate(
		mcplib.NewResourceTemplate(
			"kenko://reports/{id}",
			"Health Report",
			mcplib.WithTemplateDescription("A stored health report in compact form"),
			mcplib.WithTemplateMIMEType("application/json"),
		),
		s.handleReportResource,
	)
}

func (s *Server) handleRecentReports(ctx context.Context, request mcplib.ReadResourceRequest) ([]mcplib.ResourceContents, error) {
	reports, total, err := s.svc.List(ctx, recentReportCount, 0)
	if err != nil {
		return nil, fmt.Errorf("mcp: recent reports: %w", err)
	}

	data, err := json.MarshalIndent(map[string]any{
		"reports": reports,
		"total":   total,
	}, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("mcp: marshal reports: %w", err)
	}

	return []mcplib.ResourceContents{
		mcplib.TextResourceContents{
			URI:      recentReportsURI,
			MIMEType: "application/json",
			Text:     string(data),
		},
	}, nil
}

func (s *Server) handleReportResource(ctx context.Context, request mcplib.ReadResourceRequest) ([]mcplib.ResourceContents, error) {
	id, err := parseReportURI(request.Params.URI)
	if err != nil {
		return nil, err
	}

	report, err := s.svc.Get(ctx, id)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, fmt.Errorf("mcp: report not found: %s", id)
	}
	if err != nil {
		return nil, fmt.Errorf("mcp: get report: %w", err)
	}

	data, err := json.MarshalIndent(compactReport(report), "", "  ")
	if err != nil {
		return nil, fmt.Errorf("mcp: marshal report: %w", err)
	}

	return []mcplib.ResourceContents{
		mcplib.TextResourceContents{
			URI:      request.Params.URI,
			MIMEType: "application/json",
			Text:     string(data),
		},
	}, nil
}

// parseReportURI extracts the report id from kenko://reports/{id}.
func parseReportURI(uri string) (uuid.UUID, error) {
	rest, ok := strings.CutPrefix(uri, reportURIPrefix)
	if !ok {
		return uuid.Nil, fmt.Errorf("mcp: invalid report URI: %s", uri)
	}
	if rest == "" || strings.Contains(rest, "/") {
		return uuid.Nil, fmt.Errorf("mcp: invalid report URI: %s", uri)
	}
	id, err := uuid.Parse(rest)
	if err != nil {
		return uuid.Nil, fmt.Errorf("mcp: invalid report id in URI: %s", rest)
	}
	return id, nil
}
