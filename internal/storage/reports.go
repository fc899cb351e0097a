package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/ashita-ai/kenko/internal/model"
)

// SaveReport inserts a report. Serialization conflicts are retried.
func (db *DB) SaveReport(ctx context.Context, r model.Report) error {
	doc, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("storage: marshal report: %w", err)
	}
	createdAt := r.GeneratedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	err = WithRetry(ctx, writeRetries, writeBaseDelay, func() error {
		_, err := db.pool.Exec(ctx,
			`INSERT INTO reports (id, as_of, overall_score, status, recommended_focus, report, created_at)
			 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			r.ID, r.AsOf, r.HealthScore.Overall, string(r.HealthScore.Status),
			r.ExecutiveSummary.RecommendedFocus, doc, createdAt,
		)
		return err
	})
	if err != nil {
		if pgCode(err) == codeUniqueViolation {
			return fmt.Errorf("storage: save report %s: %w", r.ID, ErrDuplicate)
		}
		return fmt.Errorf("storage: save report: %w", err)
	}
	return nil
}

// GetReport returns the full report with the given id, or ErrNotFound.
func (db *DB) GetReport(ctx context.Context, id uuid.UUID) (model.Report, error) {
	var doc []byte
	err := db.pool.QueryRow(ctx, `SELECT report FROM reports WHERE id = $1`, id).Scan(&doc)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.Report{}, ErrNotFound
		}
		return model.Report{}, fmt.Errorf("storage: get report: %w", err)
	}
	var r model.Report
	if err := json.Unmarshal(doc, &r); err != nil {
		return model.Report{}, fmt.Errorf("storage: decode report %s: %w", id, err)
	}
	return r, nil
}

// ListReports returns report summaries newest first, plus the total count.
func (db *DB) ListReports(ctx context.Context, limit, offset int) ([]model.ReportSummary, int, error) {
	var total int
	if err := db.pool.QueryRow(ctx, `SELECT count(*) FROM reports`).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("storage: count reports: %w", err)
	}

	rows, err := db.pool.Query(ctx,
		`SELECT id, as_of, overall_score, status, recommended_focus, created_at
		 FROM reports
		 ORDER BY created_at DESC, id
		 LIMIT $1 OFFSET $2`,
		limit, offset,
	)
	if err != nil {
		return nil, 0, fmt.Errorf("storage: list reports: %w", err)
	}
	defer rows.Close()

	out := []model.ReportSummary{}
	for rows.Next() {
		var s model.ReportSummary
		var status string
		if err := rows.Scan(&s.ID, &s.AsOf, &s.OverallScore, &status, &s.RecommendedFocus, &s.CreatedAt); err != nil {
			return nil, 0, fmt.Errorf("storage: scan report summary: %w", err)
		}
		s.Status = model.HealthStatus(status)
		s.AsOf = s.AsOf.UTC()
		s.CreatedAt = s.CreatedAt.UTC()
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("storage: list reports: %w", err)
	}
	return out, total, nil
}

// DeleteReportsBefore removes reports created before cutoff and returns how
// many were deleted.
func (db *DB) DeleteReportsBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := db.pool.Exec(ctx, `DELETE FROM reports WHERE created_at < $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("storage: delete reports: %w", err)
	}
	return tag.RowsAffected(), nil
}
