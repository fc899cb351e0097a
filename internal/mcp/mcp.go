// Package mcp implements the Model Context Protocol server for Kenko.
//
// The MCP server exposes the analysis pipeline and stored reports as MCP
// tools and resources, so MCP-compatible agents can run health checks and
// read past results without speaking the HTTP API.
package mcp

import (
	"log/slog"

	mcplib "github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/ashita-ai/kenko/internal/service/analysis"
)

// Server wraps the MCP server with Kenko's service layer.
type Server struct {
	mcpServer *mcpserver.MCPServer
	svc       *analysis.Service
	logger    *slog.Logger
}

// New creates and configures a new MCP server with all resources, tools and
// prompts.
func New(svc *analysis.Service, logger *slog.Logger, version string) *Server {
	s := &Server{
		svc:    svc,
		logger: logger,
	}

	s.mcpServer = mcpserver.NewMCPServer(
		"kenko",
		version,
		mcpserver.WithResourceCapabilities(false, true),
		mcpserver.WithToolCapabilities(true),
		mcpserver.WithPromptCapabilities(true),
		mcpserver.WithInstructions("Kenko scores business health from raw customer, sales, expense and marketing records. "+
			"Call kenko_analyze with the records to get KPIs, a health score and prioritized decisions; "+
			"use kenko_list_reports and kenko_get_report to revisit earlier runs."),
	)

	s.registerResources()
	s.registerTools()
	s.registerPrompts()

	return s
}

// MCPServer returns the underlying mcp-go server for transport setup.
func (s *Server) MCPServer() *mcpserver.MCPServer {
	return s.mcpServer
}

func errorResult(msg string) *mcplib.CallToolResult {
	return &mcplib.CallToolResult{
		Content: []mcplib.Content{
			mcplib.TextContent{Type: "text", Text: msg},
		},
		IsError: true,
	}
}

func textResult(text string) *mcplib.CallToolResult {
	return &mcplib.CallToolResult{
		Content: []mcplib.Content{
			mcplib.TextContent{Type: "text", Text: text},
		},
	}
}
