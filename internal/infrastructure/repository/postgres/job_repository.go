package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/kirillkom/hiring-pipeline/internal/core/domain"
)

type JobRepository struct {
	db *sql.DB
}

func NewJobRepository(db *sql.DB) *JobRepository {
	return &JobRepository{db: db}
}

func (r *JobRepository) GetByID(ctx context.Context, id string) (*domain.Job, error) {
	row := r.db.QueryRowContext(ctx, `
SELECT id, company_id, title, description, required_skills, experience_level, status, version, created_at, updated_at
FROM jobs
WHERE id = $1
`, id)

	job, err := scanJob(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.WrapError(domain.ErrJobNotFound, "get job", fmt.Errorf("id=%s", id))
		}
		return nil, fmt.Errorf("scan job: %w", err)
	}
	return job, nil
}

func (r *JobRepository) ListByCompany(ctx context.Context, companyID string) ([]domain.Job, error) {
	rows, err := r.db.QueryContext(ctx, `
SELECT id, company_id, title, description, required_skills, experience_level, status, version, created_at, updated_at
FROM jobs
WHERE company_id = $1 AND status != $2
ORDER BY created_at
`, companyID, string(domain.JobArchived))
	if err != nil {
		return nil, fmt.Errorf("list company jobs: %w", err)
	}
	defer rows.Close()

	out := make([]domain.Job, 0)
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, fmt.Errorf("scan company job: %w", err)
		}
		out = append(out, *job)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate company jobs: %w", err)
	}
	return out, nil
}

func (r *JobRepository) GetEmbedding(ctx context.Context, jobID string) (*domain.JobEmbedding, error) {
	row := r.db.QueryRowContext(ctx, `
SELECT job_id, vector, job_version, updated_at
FROM job_embeddings
WHERE job_id = $1
`, jobID)

	var embedding domain.JobEmbedding
	var vectorRaw []byte
	err := row.Scan(&embedding.JobID, &vectorRaw, &embedding.JobVersion, &embedding.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("scan job embedding: %w", err)
	}
	if err := json.Unmarshal(vectorRaw, &embedding.Vector); err != nil {
		return nil, fmt.Errorf("unmarshal job embedding: %w", err)
	}
	return &embedding, nil
}

func (r *JobRepository) SaveEmbedding(ctx context.Context, embedding *domain.JobEmbedding) error {
	vectorJSON, err := json.Marshal(embedding.Vector)
	if err != nil {
		return fmt.Errorf("marshal job embedding: %w", err)
	}
	_, err = r.db.ExecContext(ctx, `
INSERT INTO job_embeddings (job_id, vector, job_version, updated_at)
VALUES ($1, $2, $3, $4)
ON CONFLICT (job_id) DO UPDATE
SET vector = EXCLUDED.vector, job_version = EXCLUDED.job_version, updated_at = EXCLUDED.updated_at
`, embedding.JobID, vectorJSON, embedding.JobVersion, embedding.UpdatedAt)
	if err != nil {
		return fmt.Errorf("save job embedding: %w", err)
	}
	return nil
}

func scanJob(row rowScanner) (*domain.Job, error) {
	var job domain.Job
	var status string
	var skillsRaw []byte

	err := row.Scan(
		&job.ID, &job.CompanyID, &job.Title, &job.Description, &skillsRaw,
		&job.ExperienceLevel, &status, &job.Version, &job.CreatedAt, &job.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(skillsRaw, &job.RequiredSkills); err != nil {
		return nil, fmt.Errorf("unmarshal required skills: %w", err)
	}
	job.Status = domain.JobStatus(status)
	return &job, nil
}
