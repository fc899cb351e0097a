// Package sqlite is the single-file report store used by the CLI and by
// servers started without DATABASE_URL.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/ashita-ai/kenko/internal/model"
	"github.com/ashita-ai/kenko/internal/storage"
	"github.com/ashita-ai/kenko/migrations"
)

const dateLayout = "2006-01-02"

// Store keeps reports and API clients in one SQLite database.
type Store struct {
	db     *sql.DB
	logger *slog.Logger
}

// Open opens (creating if needed) the database at path, enables WAL and
// applies migrations. path may be ":memory:".
func Open(ctx context.Context, path string, logger *slog.Logger) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("sqlite: open %s: %w", path, err)
	}
	if path == ":memory:" {
		// Every connection would otherwise see its own empty database.
		db.SetMaxOpenConns(1)
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA foreign_keys=ON",
	} {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("sqlite: %s: %w", pragma, err)
		}
	}

	s := &Store{db: db, logger: logger}
	if err := s.migrate(ctx, migrations.SQLite()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) migrate(ctx context.Context, fsys fs.FS) error {
	if _, err := s.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version    TEXT PRIMARY KEY,
			applied_at INTEGER NOT NULL
		)`); err != nil {
		return fmt.Errorf("sqlite: create schema_migrations: %w", err)
	}

	names, err := storage.MigrationFiles(fsys)
	if err != nil {
		return err
	}
	for _, name := range names {
		var n int
		if err := s.db.QueryRowContext(ctx,
			`SELECT count(*) FROM schema_migrations WHERE version = ?`, name,
		).Scan(&n); err != nil {
			return fmt.Errorf("sqlite: check migration %s: %w", name, err)
		}
		if n > 0 {
			continue
		}
		content, err := fs.ReadFile(fsys, name)
		if err != nil {
			return fmt.Errorf("sqlite: read migration %s: %w", name, err)
		}
		s.logger.Debug("running migration", "file", name)
		if _, err := s.db.ExecContext(ctx, string(content)); err != nil {
			return fmt.Errorf("sqlite: execute migration %s: %w", name, err)
		}
		if _, err := s.db.ExecContext(ctx,
			`INSERT INTO schema_migrations (version, applied_at) VALUES (?, ?)`,
			name, time.Now().UnixNano(),
		); err != nil {
			return fmt.Errorf("sqlite: record migration %s: %w", name, err)
		}
	}
	return nil
}

// Backend names the storage engine for health output.
func (s *Store) Backend() string { return "sqlite" }

// Ping checks the database is reachable.
func (s *Store) Ping(ctx context.Context) error { return s.db.PingContext(ctx) }

// Close closes the database.
func (s *Store) Close(_ context.Context) {
	if err := s.db.Close(); err != nil {
		s.logger.Warn("sqlite: close", "error", err)
	}
}

func isUnique(err error) bool {
	var se *sqlite.Error
	if !errors.As(err, &se) {
		return false
	}
	switch se.Code() {
	case sqlite3.SQLITE_CONSTRAINT_UNIQUE, sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY:
		return true
	case sqlite3.SQLITE_CONSTRAINT:
		return strings.Contains(se.Error(), "UNIQUE")
	default:
		return false
	}
}

// SaveReport inserts a report.
func (s *Store) SaveReport(ctx context.Context, r model.Report) error {
	doc, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("sqlite: marshal report: %w", err)
	}
	createdAt := r.GeneratedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO reports (id, as_of, overall_score, status, recommended_focus, report, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		r.ID.String(), r.AsOf.UTC().Format(dateLayout), r.HealthScore.Overall,
		string(r.HealthScore.Status), r.ExecutiveSummary.RecommendedFocus,
		string(doc), createdAt.UnixNano(),
	)
	if err != nil {
		if isUnique(err) {
			return fmt.Errorf("sqlite: save report %s: %w", r.ID, storage.ErrDuplicate)
		}
		return fmt.Errorf("sqlite: save report: %w", err)
	}
	return nil
}

// GetReport returns the report with the given id, or storage.ErrNotFound.
func (s *Store) GetReport(ctx context.Context, id uuid.UUID) (model.Report, error) {
	var doc string
	err := s.db.QueryRowContext(ctx, `SELECT report FROM reports WHERE id = ?`, id.String()).Scan(&doc)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Report{}, storage.ErrNotFound
		}
		return model.Report{}, fmt.Errorf("sqlite: get report: %w", err)
	}
	var r model.Report
	if err := json.Unmarshal([]byte(doc), &r); err != nil {
		return model.Report{}, fmt.Errorf("sqlite: decode report %s: %w", id, err)
	}
	return r, nil
}

// ListReports returns report summaries newest first, plus the total count.
func (s *Store) ListReports(ctx context.Context, limit, offset int) ([]model.ReportSummary, int, error) {
	var total int
	if err := s.db.QueryRowContext(ctx, `SELECT count(*) FROM reports`).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("sqlite: count reports: %w", err)
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, as_of, overall_score, status, recommended_focus, created_at
		 FROM reports
		 ORDER BY created_at DESC, id
		 LIMIT ? OFFSET ?`,
		limit, offset,
	)
	if err != nil {
		return nil, 0, fmt.Errorf("sqlite: list reports: %w", err)
	}
	defer func() { _ = rows.Close() }()

	out := []model.ReportSummary{}
	for rows.Next() {
		var (
			sum            model.ReportSummary
			id, asOf, st   string
			createdAtNanos int64
		)
		if err := rows.Scan(&id, &asOf, &sum.OverallScore, &st, &sum.RecommendedFocus, &createdAtNanos); err != nil {
			return nil, 0, fmt.Errorf("sqlite: scan report summary: %w", err)
		}
		if sum.ID, err = uuid.Parse(id); err != nil {
			return nil, 0, fmt.Errorf("sqlite: report id %q: %w", id, err)
		}
		if sum.AsOf, err = time.Parse(dateLayout, asOf); err != nil {
			return nil, 0, fmt.Errorf("sqlite: report as_of %q: %w", asOf, err)
		}
		sum.Status = model.HealthStatus(st)
		sum.CreatedAt = time.Unix(0, createdAtNanos).UTC()
		out = append(out, sum)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("sqlite: list reports: %w", err)
	}
	return out, total, nil
}

// DeleteReportsBefore removes reports created before cutoff.
func (s *Store) DeleteReportsBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM reports WHERE created_at < ?`, cutoff.UnixNano())
	if err != nil {
		return 0, fmt.Errorf("sqlite: delete reports: %w", err)
	}
	return res.RowsAffected()
}

// CreateClient inserts an API client. A taken client_id yields
// storage.ErrDuplicate.
func (s *Store) CreateClient(ctx context.Context, c model.APIClient) (model.APIClient, error) {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO api_clients (id, client_id, name, role, api_key_hash, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		c.ID.String(), c.ClientID, c.Name, string(c.Role), c.APIKeyHash, c.CreatedAt.UnixNano(),
	)
	if err != nil {
		if isUnique(err) {
			return model.APIClient{}, fmt.Errorf("sqlite: client %q: %w", c.ClientID, storage.ErrDuplicate)
		}
		return model.APIClient{}, fmt.Errorf("sqlite: create client: %w", err)
	}
	return c, nil
}

// GetClientByClientID looks up a client by its public identifier.
func (s *Store) GetClientByClientID(ctx context.Context, clientID string) (model.APIClient, error) {
	var (
		c         model.APIClient
		id, role  string
		createdAt int64
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT id, client_id, name, role, api_key_hash, created_at
		 FROM api_clients WHERE client_id = ?`,
		clientID,
	).Scan(&id, &c.ClientID, &c.Name, &role, &c.APIKeyHash, &createdAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.APIClient{}, storage.ErrNotFound
		}
		return model.APIClient{}, fmt.Errorf("sqlite: get client: %w", err)
	}
	if c.ID, err = uuid.Parse(id); err != nil {
		return model.APIClient{}, fmt.Errorf("sqlite: client id %q: %w", id, err)
	}
	c.Role = model.Role(role)
	c.CreatedAt = time.Unix(0, createdAt).UTC()
	return c, nil
}

// CountClients returns the number of registered clients.
func (s *Store) CountClients(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT count(*) FROM api_clients`).Scan(&n); err != nil {
		return 0, fmt.Errorf("sqlite: count clients: %w", err)
	}
	return n, nil
}
