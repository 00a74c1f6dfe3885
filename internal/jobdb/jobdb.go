// Package jobdb reads failed job executions from the workflow engine's
// PostgreSQL database.
package jobdb

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"jobinsights/internal/domain"
)

const defaultQueryLimit = 1000

// DB wraps a PostgreSQL connection pool.
type DB struct {
	pool *pgxpool.Pool
}

// Connect establishes and verifies a connection pool.
func Connect(ctx context.Context, databaseURL string) (*DB, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("connecting to database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}
	return &DB{pool: pool}, nil
}

func (db *DB) Close() {
	if db.pool != nil {
		db.pool.Close()
	}
}

// QueryOptions narrows the failed-jobs query. Zero values mean the
// defaults: last 24 hours, all tenants, 1000 rows.
type QueryOptions struct {
	Since    time.Time
	Until    time.Time
	TenantID uuid.UUID
	Limit    int
}

func (o QueryOptions) withDefaults() QueryOptions {
	now := time.Now().UTC()
	if o.Until.IsZero() {
		o.Until = now
	}
	if o.Since.IsZero() {
		o.Since = o.Until.Add(-24 * time.Hour)
	}
	if o.Limit <= 0 {
		o.Limit = defaultQueryLimit
	}
	return o
}

// FailedJobs returns failed executions in the window, newest first.
// Rows whose data payload cannot be decoded are logged and skipped: one
// malformed job never aborts the batch.
func (db *DB) FailedJobs(ctx context.Context, opts QueryOptions) ([]domain.JobExecution, error) {
	opts = opts.withDefaults()

	query := `
		SELECT
			je.id::text,
			je.pipeline_id::text,
			je.session_id::text,
			je.tenant_id::text,
			je.status,
			je.data,
			je.started_at,
			je.finished_at,
			je.duration::text,
			COALESCE(p.name, '') AS pipeline_name
		FROM job_execution je
		LEFT JOIN pipeline p ON je.pipeline_id = p.id
		WHERE je.status = 'FAILURE'
		  AND je.finished_at >= $1
		  AND je.finished_at <= $2
		  AND je.data IS NOT NULL
		  AND je.data->>'run_info' IS NOT NULL`
	args := []any{opts.Since, opts.Until}

	if opts.TenantID != uuid.Nil {
		query += fmt.Sprintf(" AND je.tenant_id = $%d", len(args)+1)
		args = append(args, opts.TenantID)
	}
	query += fmt.Sprintf(" ORDER BY je.finished_at DESC LIMIT $%d", len(args)+1)
	args = append(args, opts.Limit)

	rows, err := db.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying failed jobs: %w", err)
	}
	defer rows.Close()

	var jobs []domain.JobExecution
	for rows.Next() {
		var job domain.JobExecution
		var data []byte
		var duration *string
		if err := rows.Scan(
			&job.ID, &job.PipelineID, &job.SessionID, &job.TenantID, &job.Status,
			&data, &job.StartedAt, &job.FinishedAt, &duration, &job.PipelineName,
		); err != nil {
			return nil, fmt.Errorf("scanning job row: %w", err)
		}
		if duration != nil {
			job.Duration = *duration
		}
		if err := json.Unmarshal(data, &job.Data); err != nil {
			log.Printf("skipping job with undecodable data job=%s: %v", job.ID, err)
			continue
		}
		jobs = append(jobs, job)
	}
	return jobs, rows.Err()
}
