// Package analysis runs the business health pipeline on behalf of the HTTP
// API, the MCP server and the CLI.
//
// Both transports delegate here so enrichment, persistence, hooks and
// instrumentation behave the same no matter how a run was requested.
package analysis

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/ashita-ai/kenko/internal/model"
	"github.com/ashita-ai/kenko/internal/narrative"
	"github.com/ashita-ai/kenko/internal/storage"
	"github.com/ashita-ai/kenko/internal/telemetry"
)

// ReportStore persists reports. Both the PostgreSQL and SQLite backends
// implement it.
type ReportStore interface {
	SaveReport(ctx context.Context, r model.Report) error
	GetReport(ctx context.Context, id uuid.UUID) (model.Report, error)
	ListReports(ctx context.Context, limit, offset int) ([]model.ReportSummary, int, error)
	DeleteReportsBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// Hook is notified after a report has been persisted.
type Hook interface {
	ReportCompleted(ctx context.Context, r model.Report) error
}

// hookTimeout bounds a single hook call.
const hookTimeout = 10 * time.Second

var tracer = otel.Tracer("kenko/analysis")

// Service encapsulates analysis runs and report retrieval.
type Service struct {
	pipeline *Pipeline
	store    ReportStore
	narrator narrative.Narrator
	hooks    []Hook
	logger   *slog.Logger
	now      func() time.Time

	hookWG sync.WaitGroup

	duration     metric.Float64Histogram
	count        metric.Int64Counter
	overallScore metric.Float64Histogram
}

// New creates a Service. store may be nil, in which case reports are not
// persisted. narrator may be nil, in which case enrichment is disabled.
func New(p *Pipeline, store ReportStore, narrator narrative.Narrator, logger *slog.Logger, hooks ...Hook) *Service {
	if narrator == nil {
		narrator = narrative.NoopNarrator{}
	}
	meter := telemetry.Meter("kenko/analysis")
	dur, _ := meter.Float64Histogram("kenko.analysis.duration",
		metric.WithDescription("Time to run one analysis (ms)"),
		metric.WithUnit("ms"),
	)
	count, _ := meter.Int64Counter("kenko.analysis.count",
		metric.WithDescription("Number of analysis runs"),
	)
	overall, _ := meter.Float64Histogram("kenko.health.overall",
		metric.WithDescription("Overall health score of completed analyses"),
	)
	return &Service{
		pipeline:     p,
		store:        store,
		narrator:     narrator,
		hooks:        hooks,
		logger:       logger,
		now:          time.Now,
		duration:     dur,
		count:        count,
		overallScore: overall,
	}
}

// Pipeline exposes the pure pipeline.
func (s *Service) Pipeline() *Pipeline { return s.pipeline }

// Analyze runs the pipeline, enriches the narrative when requested,
// persists the report and fires hooks. Only cancellation and store failures
// are errors; enrichment failures fall back to the rule-based narrative.
func (s *Service) Analyze(ctx context.Context, in model.AnalysisInput) (model.Report, error) {
	start := time.Now()
	ctx, span := tracer.Start(ctx, "analysis.analyze")
	defer span.End()

	report, err := s.analyze(ctx, in)

	status := "ok"
	if err != nil {
		status = "error"
		span.RecordError(err)
	}
	s.count.Add(ctx, 1, metric.WithAttributes(attribute.String("status", status)))
	s.duration.Record(ctx, float64(time.Since(start).Milliseconds()))
	if err != nil {
		return model.Report{}, err
	}

	s.overallScore.Record(ctx, report.HealthScore.Overall)
	span.SetAttributes(
		attribute.String("kenko.report_id", report.ID.String()),
		attribute.Float64("kenko.health.overall", report.HealthScore.Overall),
		attribute.String("kenko.health.status", string(report.HealthScore.Status)),
	)
	s.logger.Info("analysis completed",
		"report_id", report.ID,
		"as_of", report.AsOf.Format("2006-01-02"),
		"overall", report.HealthScore.Overall,
		"status", report.HealthScore.Status,
		"insights", len(report.Insights),
		"skipped_records", report.DataQuality.Total(),
		"narrative_source", report.Narrative.Source,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return report, nil
}

func (s *Service) analyze(ctx context.Context, in model.AnalysisInput) (model.Report, error) {
	if err := ctx.Err(); err != nil {
		return model.Report{}, err
	}

	_, pipeSpan := tracer.Start(ctx, "analysis.pipeline")
	report := s.pipeline.Run(in, s.now())
	pipeSpan.End()

	if in.Enrich {
		s.enrich(ctx, &report)
	}

	// Cancellation before persistence discards the run.
	if err := ctx.Err(); err != nil {
		return model.Report{}, err
	}

	if s.store != nil {
		pctx, persistSpan := tracer.Start(ctx, "analysis.persist")
		err := s.store.SaveReport(pctx, report)
		persistSpan.End()
		if err != nil {
			return model.Report{}, fmt.Errorf("analysis: save report: %w", err)
		}
	}

	s.fireHooks(ctx, report)
	return report, nil
}

func (s *Service) enrich(ctx context.Context, report *model.Report) {
	ctx, span := tracer.Start(ctx, "analysis.enrich")
	defer span.End()

	n, err := s.narrator.Enrich(ctx, Brief(*report))
	if err != nil {
		if !errors.Is(err, narrative.ErrDisabled) {
			s.logger.Warn("narrative enrichment failed, using rule-based narrative",
				"report_id", report.ID, "error", err)
		}
		span.SetAttributes(attribute.Bool("kenko.narrative.fallback", true))
		return
	}
	report.Narrative = n
}

func (s *Service) fireHooks(ctx context.Context, report model.Report) {
	if len(s.hooks) == 0 {
		return
	}
	// Hooks outlive the request that triggered them.
	base := context.WithoutCancel(ctx)
	for _, h := range s.hooks {
		s.hookWG.Add(1)
		go func() {
			defer s.hookWG.Done()
			hctx, cancel := context.WithTimeout(base, hookTimeout)
			defer cancel()
			if err := h.ReportCompleted(hctx, report); err != nil {
				s.logger.Warn("report hook failed", "report_id", report.ID, "error", err)
			}
		}()
	}
}

// WaitForHooks blocks until every in-flight hook has returned.
func (s *Service) WaitForHooks() { s.hookWG.Wait() }

// KPIs computes only the KPI stage.
func (s *Service) KPIs(ctx context.Context, in model.AnalysisInput) ([]model.KPI, model.DataQuality) {
	_, span := tracer.Start(ctx, "analysis.kpis", trace.WithAttributes(
		attribute.Int("kenko.records.sales", len(in.Records.Sales)),
	))
	defer span.End()
	return s.pipeline.KPIs(in, s.now())
}

// Get returns a stored report.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (model.Report, error) {
	if s.store == nil {
		return model.Report{}, storage.ErrNotFound
	}
	return s.store.GetReport(ctx, id)
}

// List returns a page of report summaries, newest first, and the total count.
func (s *Service) List(ctx context.Context, limit, offset int) ([]model.ReportSummary, int, error) {
	if s.store == nil {
		return []model.ReportSummary{}, 0, nil
	}
	return s.store.ListReports(ctx, limit, offset)
}

// Purge deletes reports generated more than retention ago.
func (s *Service) Purge(ctx context.Context, retention time.Duration) (int64, error) {
	if s.store == nil || retention <= 0 {
		return 0, nil
	}
	return s.store.DeleteReportsBefore(ctx, s.now().Add(-retention))
}
