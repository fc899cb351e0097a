package kenko

import (
	"context"
	"net/http"
)

// Narrator writes the executive narrative for a report. It replaces the
// provider selected by KENKO_NARRATIVE_PROVIDER. Returning an error makes the
// report fall back to the rule-based narrative.
type Narrator interface {
	Narrate(ctx context.Context, brief Brief) (Narrative, error)
}

// ReportHook receives lifecycle events from the analysis service.
// Hooks are called asynchronously after the report is persisted; errors are
// logged and never fail the request.
type ReportHook interface {
	OnReportCompleted(ctx context.Context, report ReportSummary) error
}

// RouteRegistrar registers additional routes on the shared HTTP mux.
// Extra routes share the mux, auth chain, and OTEL instrumentation with the
// built-in routes. Called once during New after the built-in routes.
type RouteRegistrar func(mux *http.ServeMux, auth AuthHelper)

// AuthHelper provides RBAC middleware for use in RouteRegistrar.
type AuthHelper interface {
	RequireRole(role Role) func(http.Handler) http.Handler
}

// Middleware wraps the root HTTP handler.
// Applied outermost (before routing), so it sees all requests including /health.
// Multiple middlewares are applied in registration order (first-registered = outermost).
type Middleware func(http.Handler) http.Handler
