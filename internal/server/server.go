package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/ashita-ai/kenko/internal/auth"
	"github.com/ashita-ai/kenko/internal/model"
	"github.com/ashita-ai/kenko/internal/ratelimit"
	"github.com/ashita-ai/kenko/internal/service/analysis"
)

// Server is the Kenko HTTP server.
type Server struct {
	httpServer *http.Server
	handler    http.Handler
	logger     *slog.Logger
}

// Handler returns the root HTTP handler for use in tests.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// ServerConfig holds all dependencies and configuration for creating a Server.
// Optional fields (nil-safe): Clients, Storage, Limiter, MCPServer, OpenAPISpec.
type ServerConfig struct {
	// Required dependencies.
	Analysis *analysis.Service
	JWTMgr   *auth.JWTManager
	Logger   *slog.Logger

	// Optional dependencies (nil = disabled).
	Clients   ClientStore
	Storage   StorageProbe
	Limiter   ratelimit.Limiter
	MCPServer *mcpserver.MCPServer

	AuthEnabled bool
	AdminAPIKey string

	// HTTP server settings.
	Port                int
	ReadTimeout         time.Duration
	WriteTimeout        time.Duration
	Version             string
	MaxRequestBodyBytes int64
	CORSAllowedOrigins  []string

	OpenAPISpec []byte

	// ExtraRoutes are registered after the built-in routes and share the
	// middleware chain.
	ExtraRoutes []func(mux *http.ServeMux, requireRole RoleMiddlewareFn)
	// Middlewares wrap the root handler; the first is outermost.
	Middlewares []func(http.Handler) http.Handler
}

// RoleMiddlewareFn returns middleware that admits callers holding at least
// the given role.
type RoleMiddlewareFn func(min model.Role) func(http.Handler) http.Handler

// New creates a new HTTP server with all routes configured.
func New(cfg ServerConfig) *Server {
	h := NewHandlers(HandlersDeps{
		Analysis:    cfg.Analysis,
		Clients:     cfg.Clients,
		Storage:     cfg.Storage,
		JWTMgr:      cfg.JWTMgr,
		AdminAPIKey: cfg.AdminAPIKey,
		Logger:      cfg.Logger,
		Version:     cfg.Version,
		OpenAPISpec: cfg.OpenAPISpec,
	})

	limiter := cfg.Limiter
	if limiter == nil {
		limiter = ratelimit.NoopLimiter{}
	}
	authRL := ratelimit.Middleware(limiter, ratelimit.IPKeyFunc, denyRateLimited, cfg.Logger)
	clientRL := ratelimit.Middleware(limiter, clientKeyFunc, denyRateLimited, cfg.Logger)

	mux := http.NewServeMux()

	// Token exchange (no auth, rate limited by IP).
	mux.Handle("POST /auth/token", authRL(http.HandlerFunc(h.HandleAuthToken)))

	// Analysis (analyst+, rate limited per client).
	analyst := requireRole(model.RoleAnalyst)
	mux.Handle("POST /v1/analyze", clientRL(analyst(http.HandlerFunc(h.HandleAnalyze))))
	mux.Handle("POST /v1/kpis", clientRL(analyst(http.HandlerFunc(h.HandleKPIs))))

	// Report reads (viewer+).
	viewer := requireRole(model.RoleViewer)
	mux.Handle("GET /v1/reports", viewer(http.HandlerFunc(h.HandleListReports)))
	mux.Handle("GET /v1/reports/{id}", viewer(http.HandlerFunc(h.HandleGetReport)))
	mux.Handle("GET /v1/reports/{id}/decisions", viewer(http.HandlerFunc(h.HandleReportDecisions)))

	// Client management (admin-only).
	mux.Handle("POST /v1/clients", requireRole(model.RoleAdmin)(http.HandlerFunc(h.HandleCreateClient)))

	// MCP StreamableHTTP transport (auth required, viewer+).
	if cfg.MCPServer != nil {
		mcpHTTP := mcpserver.NewStreamableHTTPServer(cfg.MCPServer)
		mux.Handle("/mcp", viewer(mcpHTTP))
	}

	mux.HandleFunc("GET /openapi.yaml", h.HandleOpenAPISpec)
	mux.HandleFunc("GET /health", h.HandleHealth)

	for _, register := range cfg.ExtraRoutes {
		register(mux, requireRole)
	}

	// Middleware chain (outermost executes first): request ID → security
	// headers → CORS → tracing → logging → auth → recovery → max body → handler.
	var handler http.Handler = mux
	handler = maxBodyMiddleware(cfg.MaxRequestBodyBytes, handler)
	handler = recoveryMiddleware(cfg.Logger, handler)
	handler = authMiddleware(cfg.JWTMgr, cfg.AuthEnabled, handler)
	handler = loggingMiddleware(cfg.Logger, handler)
	handler = tracingMiddleware(newHTTPMetrics(), handler)
	handler = corsMiddleware(cfg.CORSAllowedOrigins, handler)
	handler = securityHeadersMiddleware(handler)
	handler = requestIDMiddleware(handler)
	for i := len(cfg.Middlewares) - 1; i >= 0; i-- {
		handler = cfg.Middlewares[i](handler)
	}

	return &Server{
		httpServer: &http.Server{
			Addr:              fmt.Sprintf(":%d", cfg.Port),
			Handler:           handler,
			ReadTimeout:       cfg.ReadTimeout,
			ReadHeaderTimeout: 10 * time.Second,
			WriteTimeout:      cfg.WriteTimeout,
		},
		handler: handler,
		logger:  cfg.Logger,
	}
}

// Start begins serving HTTP requests.
func (s *Server) Start() error {
	s.logger.Info("http server starting", "addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully shuts down the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("http server shutting down")
	return s.httpServer.Shutdown(ctx)
}
