package kenko

import (
	"io"
	"log/slog"
)

// Option configures an App.
type Option func(*resolvedOptions)

// resolvedOptions holds all extension points after applying defaults.
type resolvedOptions struct {
	port            int
	databaseURL     string
	sqlitePath      string
	logger          *slog.Logger
	version         string
	rules           io.Reader
	narrator        Narrator
	reportHooks     []ReportHook
	routeRegistrars []RouteRegistrar
	middlewares     []Middleware
}

// WithPort overrides the TCP port from config (KENKO_PORT env var).
func WithPort(port int) Option {
	return func(o *resolvedOptions) { o.port = port }
}

// WithDatabaseURL overrides the PostgreSQL connection string from config
// (DATABASE_URL env var).
func WithDatabaseURL(url string) Option {
	return func(o *resolvedOptions) { o.databaseURL = url }
}

// WithSQLitePath overrides KENKO_SQLITE_PATH. Ignored when a database URL is set.
func WithSQLitePath(path string) Option {
	return func(o *resolvedOptions) { o.sqlitePath = path }
}

// WithLogger sets the structured logger for the App.
// If not set, the default slog logger is used.
func WithLogger(logger *slog.Logger) Option {
	return func(o *resolvedOptions) { o.logger = logger }
}

// WithVersion sets the version string reported in the health endpoint and logs.
func WithVersion(version string) Option {
	return func(o *resolvedOptions) { o.version = version }
}

// WithRules reads YAML rule overrides from r instead of KENKO_RULES_FILE.
func WithRules(r io.Reader) Option {
	return func(o *resolvedOptions) { o.rules = r }
}

// WithNarrator replaces the configured narrative provider.
func WithNarrator(n Narrator) Option {
	return func(o *resolvedOptions) { o.narrator = n }
}

// WithReportHook registers a hook for report lifecycle events.
// Multiple hooks may be registered; all are called for each event.
func WithReportHook(h ReportHook) Option {
	return func(o *resolvedOptions) { o.reportHooks = append(o.reportHooks, h) }
}

// WithExtraRoutes registers a function that adds routes to the HTTP mux.
// Called once during New after all built-in routes are registered.
func WithExtraRoutes(fn RouteRegistrar) Option {
	return func(o *resolvedOptions) { o.routeRegistrars = append(o.routeRegistrars, fn) }
}

// WithMiddleware adds an HTTP middleware wrapping the root handler.
func WithMiddleware(mw Middleware) Option {
	return func(o *resolvedOptions) { o.middlewares = append(o.middlewares, mw) }
}
