package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/lib/pq"

	"dailybrief/internal/domain"
	"dailybrief/internal/ports"
)

const schema = `CREATE TABLE IF NOT EXISTS run_reports (
    run_id            TEXT PRIMARY KEY,
    run_date          DATE NOT NULL,
    state             TEXT NOT NULL,
    started_at        TIMESTAMPTZ NOT NULL,
    finished_at       TIMESTAMPTZ NOT NULL,
    sources_attempted TEXT[] NOT NULL DEFAULT '{}',
    total_candidates  INT NOT NULL DEFAULT 0,
    total_clusters    INT NOT NULL DEFAULT 0,
    total_items       INT NOT NULL DEFAULT 0,
    delivered         BOOLEAN NOT NULL DEFAULT FALSE,
    audio_included    BOOLEAN NOT NULL DEFAULT FALSE,
    detail            JSONB NOT NULL DEFAULT '{}'
)`

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

// PostgresStore persists run reports into Postgres.
type PostgresStore struct {
	db *sql.DB
}

var _ ports.ReportStore = (*PostgresStore)(nil)

// NewPostgresStore wires a sql.DB implementation.
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// EnsureSchema creates the run_reports table when it does not exist yet.
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	if s.db == nil {
		return nil
	}
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}

// reportDetail is the JSONB payload holding the structured parts of a report.
type reportDetail struct {
	Trail           []domain.StateChange    `json:"trail,omitempty"`
	SourceFailures  []domain.SourceFailure  `json:"source_failures,omitempty"`
	ClusterFailures []domain.ClusterFailure `json:"cluster_failures,omitempty"`
	RunErrors       []domain.RunError       `json:"run_errors,omitempty"`
}

// SaveReport upserts the report snapshot keyed by run ID.
func (s *PostgresStore) SaveReport(ctx context.Context, report domain.RunReport) error {
	if s.db == nil {
		return nil
	}

	query, args, err := buildSaveQuery(report)
	if err != nil {
		return fmt.Errorf("build save query: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("upsert report: %w", err)
	}
	return nil
}

func buildSaveQuery(report domain.RunReport) (string, []interface{}, error) {
	detail, err := json.Marshal(reportDetail{
		Trail:           report.Trail,
		SourceFailures:  report.SourceFailures,
		ClusterFailures: report.ClusterFailures,
		RunErrors:       report.RunErrors,
	})
	if err != nil {
		return "", nil, fmt.Errorf("marshal detail: %w", err)
	}

	return psql.Insert("run_reports").
		Columns("run_id", "run_date", "state", "started_at", "finished_at",
			"sources_attempted", "total_candidates", "total_clusters", "total_items",
			"delivered", "audio_included", "detail").
		Values(report.RunID, report.Date, string(report.State), report.StartedAt, report.FinishedAt,
			pq.StringArray(report.SourcesAttempted), report.TotalCandidates, report.TotalClusters,
			report.TotalItems, report.Delivered, report.AudioIncluded, detail).
		Suffix(`ON CONFLICT (run_id) DO UPDATE
            SET state = EXCLUDED.state,
                finished_at = EXCLUDED.finished_at,
                sources_attempted = EXCLUDED.sources_attempted,
                total_candidates = EXCLUDED.total_candidates,
                total_clusters = EXCLUDED.total_clusters,
                total_items = EXCLUDED.total_items,
                delivered = EXCLUDED.delivered,
                audio_included = EXCLUDED.audio_included,
                detail = EXCLUDED.detail`).
		ToSql()
}

// RecentReports returns the latest reports, newest first.
func (s *PostgresStore) RecentReports(ctx context.Context, limit int) ([]domain.RunReport, error) {
	if s.db == nil {
		return nil, nil
	}
	if limit <= 0 {
		limit = 20
	}

	query, args, err := psql.Select("run_id", "run_date", "state", "started_at", "finished_at",
		"sources_attempted", "total_candidates", "total_clusters", "total_items",
		"delivered", "audio_included", "detail").
		From("run_reports").
		OrderBy("started_at DESC").
		Limit(uint64(limit)).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build recent query: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query reports: %w", err)
	}

	var reports []domain.RunReport
	for rows.Next() {
		var (
			report  domain.RunReport
			state   string
			sources pq.StringArray
			detail  []byte
		)
		if err := rows.Scan(&report.RunID, &report.Date, &state, &report.StartedAt, &report.FinishedAt,
			&sources, &report.TotalCandidates, &report.TotalClusters, &report.TotalItems,
			&report.Delivered, &report.AudioIncluded, &detail); err != nil {
			_ = rows.Close()
			return nil, fmt.Errorf("scan report: %w", err)
		}
		report.State = domain.RunState(state)
		report.SourcesAttempted = []string(sources)

		var d reportDetail
		if len(detail) > 0 {
			if err := json.Unmarshal(detail, &d); err != nil {
				_ = rows.Close()
				return nil, fmt.Errorf("unmarshal detail: %w", err)
			}
		}
		report.Trail = d.Trail
		report.SourceFailures = d.SourceFailures
		report.ClusterFailures = d.ClusterFailures
		report.RunErrors = d.RunErrors

		reports = append(reports, report)
	}

	if rowsErr := rows.Err(); rowsErr != nil {
		_ = rows.Close()
		return nil, fmt.Errorf("rows iteration: %w", rowsErr)
	}

	if closeErr := rows.Close(); closeErr != nil {
		return nil, fmt.Errorf("close rows: %w", closeErr)
	}

	return reports, nil
}
