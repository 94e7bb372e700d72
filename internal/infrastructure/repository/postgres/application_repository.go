package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/kirillkom/hiring-pipeline/internal/core/domain"
)

type ApplicationRepository struct {
	db *sql.DB
}

func NewApplicationRepository(db *sql.DB) *ApplicationRepository {
	return &ApplicationRepository{db: db}
}

// Create inserts the application if it does not exist yet. A duplicate id is
// reported as inserted=false, not as an error: create events can be
// redelivered.
func (r *ApplicationRepository) Create(ctx context.Context, app *domain.Application) (bool, error) {
	result, err := r.db.ExecContext(ctx, `
INSERT INTO applications (
	id, candidate_id, job_id, company_id, status, stage, resume_path,
	match_score, auto_rejected, auto_reject_threshold,
	ai_processing_status, ai_processing_error, version, created_at, updated_at
) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15)
ON CONFLICT (id) DO NOTHING
`,
		app.ID, app.CandidateID, app.JobID, app.CompanyID, string(app.Status), app.Stage, app.ResumePath,
		app.MatchScore, app.AutoRejected, app.AutoRejectThreshold,
		string(app.AIProcessing), app.AIProcessingError, app.Version, app.CreatedAt, app.UpdatedAt,
	)
	if err != nil {
		return false, fmt.Errorf("insert application: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("insert application rows affected: %w", err)
	}
	return rows > 0, nil
}

func (r *ApplicationRepository) GetByID(ctx context.Context, id string) (*domain.Application, error) {
	row := r.db.QueryRowContext(ctx, `
SELECT id, candidate_id, job_id, company_id, status, stage, resume_path,
	match_score, auto_rejected, auto_reject_threshold,
	ai_processing_status, ai_processing_error, version, created_at, updated_at
FROM applications
WHERE id = $1
`, id)

	app, err := scanApplication(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.WrapError(domain.ErrApplicationNotFound, "get application", fmt.Errorf("id=%s", id))
		}
		return nil, fmt.Errorf("scan application: %w", err)
	}
	return app, nil
}

// CompareAndWrite persists the snapshot only if the stored version still
// matches expectedVersion. A lost race surfaces as ErrConcurrencyConflict so
// the caller can re-read and decide.
func (r *ApplicationRepository) CompareAndWrite(ctx context.Context, app *domain.Application, expectedVersion int64) error {
	result, err := r.db.ExecContext(ctx, `
UPDATE applications
SET status = $3, stage = $4, match_score = $5, auto_rejected = $6,
	auto_reject_threshold = $7, ai_processing_status = $8, ai_processing_error = $9,
	version = $10, updated_at = $11
WHERE id = $1 AND version = $2
`,
		app.ID, expectedVersion,
		string(app.Status), app.Stage, app.MatchScore, app.AutoRejected,
		app.AutoRejectThreshold, string(app.AIProcessing), app.AIProcessingError,
		app.Version, app.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("compare-and-write application: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("compare-and-write rows affected: %w", err)
	}
	if rows == 0 {
		return domain.WrapError(
			domain.ErrConcurrencyConflict,
			"compare-and-write application",
			fmt.Errorf("id=%s expected_version=%d", app.ID, expectedVersion),
		)
	}
	return nil
}

func (r *ApplicationRepository) ListPendingByCompany(ctx context.Context, companyID string) ([]domain.Application, error) {
	rows, err := r.db.QueryContext(ctx, `
SELECT id, candidate_id, job_id, company_id, status, stage, resume_path,
	match_score, auto_rejected, auto_reject_threshold,
	ai_processing_status, ai_processing_error, version, created_at, updated_at
FROM applications
WHERE company_id = $1 AND status IN ($2, $3)
ORDER BY created_at
`, companyID, string(domain.StatusUnderReview), string(domain.StatusScreening))
	if err != nil {
		return nil, fmt.Errorf("list pending applications: %w", err)
	}
	defer rows.Close()

	out := make([]domain.Application, 0)
	for rows.Next() {
		app, err := scanApplication(rows)
		if err != nil {
			return nil, fmt.Errorf("scan pending application: %w", err)
		}
		out = append(out, *app)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate pending applications: %w", err)
	}
	return out, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanApplication(row rowScanner) (*domain.Application, error) {
	var app domain.Application
	var status, aiStatus string
	var matchScore sql.NullFloat64

	err := row.Scan(
		&app.ID, &app.CandidateID, &app.JobID, &app.CompanyID, &status, &app.Stage, &app.ResumePath,
		&matchScore, &app.AutoRejected, &app.AutoRejectThreshold,
		&aiStatus, &app.AIProcessingError, &app.Version, &app.CreatedAt, &app.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	app.Status = domain.ApplicationStatus(status)
	app.AIProcessing = domain.AIProcessingStatus(aiStatus)
	if matchScore.Valid {
		score := matchScore.Float64
		app.MatchScore = &score
	}
	return &app, nil
}
