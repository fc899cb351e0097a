// Package kenko is the public API for embedding the Kenko business health
// server.
//
// Consumers import this package to construct and extend the server without
// forking it:
//
//	app, err := kenko.New(
//	    kenko.WithVersion(version),
//	    kenko.WithLogger(logger),
//	    kenko.WithReportHook(myHook{}),
//	    kenko.WithExtraRoutes(myRoutes),
//	)
//	if err != nil { ... }
//	if err := app.Run(ctx); err != nil { ... }
//
// The import graph enforces a strict no-cycle rule: kenko (root) imports
// internal/*, but internal/* never imports kenko (root). Public types
// (ReportSummary, Brief, Narrative) are standalone structs with no internal
// imports; conversion helpers live here because this is the only file that
// sees both sides of the boundary.
package kenko

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/joho/godotenv"

	"github.com/ashita-ai/kenko/api"
	"github.com/ashita-ai/kenko/internal/auth"
	"github.com/ashita-ai/kenko/internal/config"
	"github.com/ashita-ai/kenko/internal/mcp"
	"github.com/ashita-ai/kenko/internal/model"
	"github.com/ashita-ai/kenko/internal/narrative"
	"github.com/ashita-ai/kenko/internal/publish"
	"github.com/ashita-ai/kenko/internal/ratelimit"
	"github.com/ashita-ai/kenko/internal/rules"
	"github.com/ashita-ai/kenko/internal/server"
	"github.com/ashita-ai/kenko/internal/service/analysis"
	"github.com/ashita-ai/kenko/internal/storage"
	"github.com/ashita-ai/kenko/internal/storage/sqlite"
	"github.com/ashita-ai/kenko/internal/telemetry"
	"github.com/ashita-ai/kenko/migrations"
)

const (
	shutdownHTTPTimeout = 10 * time.Second
	retentionInterval   = time.Hour
)

// reportStore is satisfied by both the PostgreSQL and SQLite backends.
type reportStore interface {
	analysis.ReportStore
	server.ClientStore
	server.StorageProbe
	Close(ctx context.Context)
}

// App is the Kenko server lifecycle. Construct with New(), run with Run().
type App struct {
	cfg          config.Config
	store        reportStore // nil when no backend is configured
	svc          *analysis.Service
	srv          *server.Server
	limiter      ratelimit.Limiter
	publisher    *publish.KafkaPublisher // nil when Kafka is not configured
	otelShutdown telemetry.Shutdown
	logger       *slog.Logger
	version      string
}

// New initialises the Kenko server. It opens storage, runs migrations, wires
// all subsystems, and returns a ready-to-run App.
// It does NOT start any goroutines or accept HTTP connections; call Run().
func New(opts ...Option) (*App, error) {
	o := resolvedOptions{}
	for _, fn := range opts {
		fn(&o)
	}

	logger := o.logger
	if logger == nil {
		logger = slog.Default()
	}

	// Load .env file if present (non-fatal; production won't have one).
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if o.port != 0 {
		cfg.Port = o.port
	}
	if o.databaseURL != "" {
		cfg.DatabaseURL = o.databaseURL
	}
	if o.sqlitePath != "" {
		cfg.SQLitePath = o.sqlitePath
	}
	version := o.version
	if version == "" {
		version = "dev"
	}

	logger.Info("kenko starting", "version", version, "port", cfg.Port)

	ruleSet, err := loadRules(cfg, o)
	if err != nil {
		return nil, err
	}

	ctx := context.Background()
	otelShutdown, err := telemetry.Init(ctx, cfg.OTELEndpoint, cfg.ServiceName, version, cfg.OTELInsecure)
	if err != nil {
		return nil, fmt.Errorf("telemetry: %w", err)
	}

	// cleanup releases what has been opened so far when a later step fails.
	var st reportStore
	cleanup := func() {
		if st != nil {
			st.Close(context.Background())
		}
		_ = otelShutdown(context.Background())
	}

	st, err = openStore(ctx, cfg, logger)
	if err != nil {
		cleanup()
		return nil, err
	}

	jwtMgr, err := auth.NewJWTManager(cfg.JWTPrivateKeyPath, cfg.JWTPublicKeyPath, cfg.JWTExpiration)
	if err != nil {
		cleanup()
		return nil, fmt.Errorf("auth: %w", err)
	}
	if cfg.AuthEnabled && cfg.AdminAPIKey == "" {
		logger.Warn("auth: KENKO_ADMIN_API_KEY is empty, admin tokens cannot be issued")
	}

	limiter, err := newLimiter(ctx, cfg, logger)
	if err != nil {
		cleanup()
		return nil, err
	}

	var narrator narrative.Narrator
	if o.narrator != nil {
		narrator = &narratorAdapter{n: o.narrator}
		logger.Info("narrative: external narrator")
	} else {
		narrator = newNarrator(cfg, logger)
	}

	var hooks []analysis.Hook
	var publisher *publish.KafkaPublisher
	if len(cfg.KafkaBrokers) > 0 {
		publisher = publish.NewKafkaPublisher(cfg.KafkaBrokers, cfg.KafkaTopic, logger)
		hooks = append(hooks, publisher)
		logger.Info("kafka publishing: enabled", "topic", cfg.KafkaTopic, "brokers", len(cfg.KafkaBrokers))
	}
	for _, h := range o.reportHooks {
		hooks = append(hooks, &reportHookAdapter{hook: h})
	}

	svc := analysis.New(analysis.NewPipeline(ruleSet), st, narrator, logger, hooks...)
	mcpSrv := mcp.New(svc, logger, version)

	var extraRoutes []func(*http.ServeMux, server.RoleMiddlewareFn)
	for _, fn := range o.routeRegistrars {
		extraRoutes = append(extraRoutes, func(mux *http.ServeMux, roleFn server.RoleMiddlewareFn) {
			fn(mux, &authHelperImpl{roleFn: roleFn})
		})
	}
	var middlewares []func(http.Handler) http.Handler
	for _, mw := range o.middlewares {
		middlewares = append(middlewares, func(h http.Handler) http.Handler { return mw(h) })
	}

	// A nil store must reach the server as a nil interface, not a typed nil.
	var clients server.ClientStore
	var probe server.StorageProbe
	if st != nil {
		clients, probe = st, st
	}

	srv := server.New(server.ServerConfig{
		Analysis:            svc,
		JWTMgr:              jwtMgr,
		Logger:              logger,
		Clients:             clients,
		Storage:             probe,
		Limiter:             limiter,
		MCPServer:           mcpSrv.MCPServer(),
		AuthEnabled:         cfg.AuthEnabled,
		AdminAPIKey:         cfg.AdminAPIKey,
		Port:                cfg.Port,
		ReadTimeout:         cfg.ReadTimeout,
		WriteTimeout:        cfg.WriteTimeout,
		Version:             version,
		MaxRequestBodyBytes: cfg.MaxRequestBodyBytes,
		CORSAllowedOrigins:  cfg.CORSAllowedOrigins,
		OpenAPISpec:         api.OpenAPISpec,
		ExtraRoutes:         extraRoutes,
		Middlewares:         middlewares,
	})

	return &App{
		cfg:          cfg,
		store:        st,
		svc:          svc,
		srv:          srv,
		limiter:      limiter,
		publisher:    publisher,
		otelShutdown: otelShutdown,
		logger:       logger,
		version:      version,
	}, nil
}

// Handler returns the fully wrapped HTTP handler without starting a listener.
func (a *App) Handler() http.Handler { return a.srv.Handler() }

// Run starts the background loops and the HTTP server, then blocks until
// ctx is cancelled or a fatal server error occurs. On return, Shutdown is called
// automatically; callers should not call Shutdown separately.
func (a *App) Run(ctx context.Context) error {
	if a.cfg.ReportRetention > 0 {
		go a.retentionLoop(ctx)
	}

	errCh := make(chan error, 1)
	go func() {
		if err := a.srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	var runErr error
	select {
	case <-ctx.Done():
	case runErr = <-errCh:
	}

	if err := a.Shutdown(context.Background()); err != nil {
		return errors.Join(runErr, err)
	}
	return runErr
}

// Shutdown stops the App in phases:
// (1) stop accepting HTTP requests and drain in-flight,
// (2) wait for report hooks so no publish is cut short,
// (3) close the publisher, the limiter, the store and telemetry.
func (a *App) Shutdown(ctx context.Context) error {
	a.logger.Info("kenko shutting down")

	// Phase 1: HTTP drain.
	httpCtx, httpCancel := context.WithTimeout(ctx, shutdownHTTPTimeout)
	if err := a.srv.Shutdown(httpCtx); err != nil {
		a.logger.Error("http shutdown error", "error", err)
	}
	httpCancel()

	// Phase 2: hooks. Each call is bounded by its own timeout.
	a.svc.WaitForHooks()

	// Phase 3: cleanup.
	var errs []error
	if a.publisher != nil {
		if err := a.publisher.Close(); err != nil {
			errs = append(errs, fmt.Errorf("publisher close: %w", err))
		}
	}
	if err := a.limiter.Close(); err != nil {
		errs = append(errs, fmt.Errorf("limiter close: %w", err))
	}
	if a.store != nil {
		a.store.Close(ctx)
	}
	if err := a.otelShutdown(ctx); err != nil {
		errs = append(errs, fmt.Errorf("telemetry shutdown: %w", err))
	}

	a.logger.Info("kenko stopped")
	return errors.Join(errs...)
}

func (a *App) retentionLoop(ctx context.Context) {
	a.purgeExpired(ctx)

	ticker := time.NewTicker(retentionInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			a.purgeExpired(ctx)
		}
	}
}

func (a *App) purgeExpired(ctx context.Context) {
	opCtx, cancel := context.WithTimeout(ctx, time.Minute)
	defer cancel()
	n, err := a.svc.Purge(opCtx, a.cfg.ReportRetention)
	if err != nil {
		a.logger.Warn("report retention: purge failed", "error", err)
		return
	}
	if n > 0 {
		a.logger.Info("report retention: purged expired reports", "deleted", n, "retention", a.cfg.ReportRetention)
	}
}

// ── Construction helpers ─────────────────────────────────────────────────────

func loadRules(cfg config.Config, o resolvedOptions) (*rules.Rules, error) {
	if o.rules != nil {
		r, err := rules.Parse(o.rules)
		if err != nil {
			return nil, fmt.Errorf("rules: %w", err)
		}
		return r, nil
	}
	r, err := rules.Load(cfg.RulesFile)
	if err != nil {
		return nil, fmt.Errorf("rules: %w", err)
	}
	return r, nil
}

// openStore picks PostgreSQL when DATABASE_URL is set, then SQLite, and
// otherwise returns nil: reports are computed but not kept.
func openStore(ctx context.Context, cfg config.Config, logger *slog.Logger) (reportStore, error) {
	switch {
	case cfg.DatabaseURL != "":
		db, err := storage.New(ctx, cfg.DatabaseURL, logger)
		if err != nil {
			return nil, fmt.Errorf("storage: %w", err)
		}
		if err := db.RunMigrations(ctx, migrations.FS); err != nil {
			db.Close(ctx)
			return nil, fmt.Errorf("migrations: %w", err)
		}
		logger.Info("storage: postgres")
		return db, nil
	case cfg.SQLitePath != "":
		s, err := sqlite.Open(ctx, cfg.SQLitePath, logger)
		if err != nil {
			return nil, fmt.Errorf("storage: %w", err)
		}
		logger.Info("storage: sqlite", "path", cfg.SQLitePath)
		return s, nil
	default:
		logger.Warn("storage: disabled (no DATABASE_URL or KENKO_SQLITE_PATH), reports will not be kept")
		return nil, nil
	}
}

func newLimiter(ctx context.Context, cfg config.Config, logger *slog.Logger) (ratelimit.Limiter, error) {
	switch {
	case !cfg.RateLimitEnabled:
		logger.Info("rate limiting: disabled")
		return ratelimit.NoopLimiter{}, nil
	case cfg.RedisURL != "":
		l, err := ratelimit.NewRedisLimiter(ctx, cfg.RedisURL, cfg.RateLimitRPS, cfg.RateLimitBurst)
		if err != nil {
			return nil, fmt.Errorf("rate limiter: %w", err)
		}
		logger.Info("rate limiting: redis", "rps", cfg.RateLimitRPS, "burst", cfg.RateLimitBurst)
		return l, nil
	default:
		logger.Info("rate limiting: memory (in-process token bucket)",
			"rps", cfg.RateLimitRPS, "burst", cfg.RateLimitBurst)
		return ratelimit.NewMemoryLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst), nil
	}
}

func newNarrator(cfg config.Config, logger *slog.Logger) narrative.Narrator {
	switch cfg.NarrativeProvider {
	case config.ProviderOpenAI:
		logger.Info("narrative: openai", "model", cfg.NarrativeModel)
		return narrative.NewOpenAINarrator(cfg.OpenAIAPIKey, cfg.NarrativeModel)
	case config.ProviderOllama:
		logger.Info("narrative: ollama", "url", cfg.OllamaURL, "model", cfg.OllamaModel)
		return narrative.NewOllamaNarrator(cfg.OllamaURL, cfg.OllamaModel)
	default:
		logger.Info("narrative: rule-based only")
		return narrative.NoopNarrator{}
	}
}

// ── Adapters ─────────────────────────────────────────────────────────────────

type narratorAdapter struct {
	n Narrator
}

func (a *narratorAdapter) Enrich(ctx context.Context, b narrative.Brief) (model.Narrative, error) {
	out, err := a.n.Narrate(ctx, toPublicBrief(b))
	if err != nil {
		return model.Narrative{}, err
	}
	return narrative.Check(model.Narrative{
		Summary:    out.Summary,
		Priorities: out.Priorities,
		Assessment: out.Assessment,
		Model:      out.Model,
	})
}

type reportHookAdapter struct {
	hook ReportHook
}

func (a *reportHookAdapter) ReportCompleted(ctx context.Context, r model.Report) error {
	return a.hook.OnReportCompleted(ctx, toPublicSummary(r))
}

type authHelperImpl struct {
	roleFn server.RoleMiddlewareFn
}

func (a *authHelperImpl) RequireRole(role Role) func(http.Handler) http.Handler {
	return a.roleFn(model.Role(role))
}

func toPublicSummary(r model.Report) ReportSummary {
	areas := make([]string, 0, len(r.Decisions))
	for _, a := range r.CriticalAreas() {
		areas = append(areas, string(a))
	}
	return ReportSummary{
		ID:               r.ID,
		AsOf:             r.AsOf,
		GeneratedAt:      r.GeneratedAt,
		OverallScore:     r.HealthScore.Overall,
		Status:           string(r.HealthScore.Status),
		CriticalAreas:    areas,
		RecommendedFocus: r.ExecutiveSummary.RecommendedFocus,
		NarrativeSource:  r.Narrative.Source,
	}
}

func toPublicBrief(b narrative.Brief) Brief {
	out := Brief{
		AsOf:         b.AsOf,
		OverallScore: b.Health.Overall,
		Status:       string(b.Health.Status),
		Focus:        b.Focus,
		KPIs:         make([]KPIBrief, 0, len(b.KPIs)),
		Insights:     make([]InsightBrief, 0, len(b.Insights)),
	}
	for _, k := range b.KPIs {
		out.KPIs = append(out.KPIs, KPIBrief{
			Name:    k.Name,
			Current: k.Current,
			Target:  k.Target,
			Trend:   string(k.Trend),
			Status:  string(k.Status),
		})
	}
	for _, in := range b.Insights {
		out.Insights = append(out.Insights, InsightBrief{
			Title:       in.Title,
			Observation: in.Observation,
			Priority:    string(in.Priority),
		})
	}
	return out
}
