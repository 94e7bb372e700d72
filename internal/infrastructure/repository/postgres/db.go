package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
)

func OpenDB(dsn string) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("sql open: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(30 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("db ping: %w", err)
	}
	return db, nil
}

func EnsureSchema(ctx context.Context, db *sql.DB) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	// Serialize bootstrap DDL across api/worker startups.
	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, int64(2026030101)); err != nil {
		return fmt.Errorf("acquire schema lock: %w", err)
	}

	const query = `
CREATE TABLE IF NOT EXISTS applications (
	id TEXT PRIMARY KEY,
	candidate_id TEXT NOT NULL,
	job_id TEXT NOT NULL,
	company_id TEXT NOT NULL,
	status TEXT NOT NULL,
	stage TEXT NOT NULL DEFAULT '',
	resume_path TEXT NOT NULL DEFAULT '',
	match_score DOUBLE PRECISION,
	auto_rejected BOOLEAN NOT NULL DEFAULT FALSE,
	auto_reject_threshold DOUBLE PRECISION NOT NULL DEFAULT 0,
	ai_processing_status TEXT NOT NULL DEFAULT '',
	ai_processing_error TEXT NOT NULL DEFAULT '',
	version BIGINT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_applications_company_status ON applications(company_id, status);
CREATE INDEX IF NOT EXISTS idx_applications_job ON applications(job_id);

CREATE TABLE IF NOT EXISTS jobs (
	id TEXT PRIMARY KEY,
	company_id TEXT NOT NULL,
	title TEXT NOT NULL,
	description TEXT NOT NULL DEFAULT '',
	required_skills JSONB NOT NULL DEFAULT '[]'::jsonb,
	experience_level TEXT NOT NULL DEFAULT '',
	status TEXT NOT NULL,
	version BIGINT NOT NULL DEFAULT 1,
	created_at TIMESTAMPTZ NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_jobs_company ON jobs(company_id);

CREATE TABLE IF NOT EXISTS job_embeddings (
	job_id TEXT PRIMARY KEY REFERENCES jobs(id),
	vector JSONB NOT NULL,
	job_version BIGINT NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS candidates (
	id TEXT PRIMARY KEY,
	full_name TEXT NOT NULL DEFAULT '',
	summary TEXT NOT NULL DEFAULT '',
	skills JSONB NOT NULL DEFAULT '[]'::jsonb,
	years_experience INT NOT NULL DEFAULT 0,
	preferences JSONB NOT NULL DEFAULT '[]'::jsonb
);

CREATE TABLE IF NOT EXISTS aggregate_counters (
	scope_kind TEXT NOT NULL,
	scope_id TEXT NOT NULL,
	by_status JSONB NOT NULL DEFAULT '{}'::jsonb,
	total BIGINT NOT NULL DEFAULT 0,
	updated_at TIMESTAMPTZ NOT NULL,
	PRIMARY KEY (scope_kind, scope_id)
);

CREATE TABLE IF NOT EXISTS pipeline_settings (
	company_id TEXT PRIMARY KEY,
	auto_reject_enabled BOOLEAN NOT NULL DEFAULT FALSE,
	auto_reject_threshold DOUBLE PRECISION NOT NULL DEFAULT 0,
	min_applications_threshold BIGINT NOT NULL DEFAULT 0,
	send_rejection_email BOOLEAN NOT NULL DEFAULT FALSE
);

CREATE TABLE IF NOT EXISTS notifications (
	id TEXT PRIMARY KEY,
	application_id TEXT NOT NULL,
	candidate_id TEXT NOT NULL,
	company_id TEXT NOT NULL,
	kind TEXT NOT NULL,
	status_at_trigger TEXT NOT NULL,
	dedup_key TEXT NOT NULL UNIQUE,
	created_at TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS audit_log (
	id TEXT PRIMARY KEY,
	application_id TEXT NOT NULL,
	from_status TEXT NOT NULL DEFAULT '',
	to_status TEXT NOT NULL,
	actor TEXT NOT NULL,
	note TEXT NOT NULL DEFAULT '',
	created_at TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_audit_log_application ON audit_log(application_id, created_at DESC);
`
	if _, err := tx.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("execute schema ddl: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schema tx: %w", err)
	}
	return nil
}
