package usecase

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/kirillkom/hiring-pipeline/internal/core/domain"
	"github.com/kirillkom/hiring-pipeline/internal/core/ports"
)

// VectorizeUseCase regenerates job embeddings and ranks indexed candidates
// against them. Re-vectorizing is idempotent: the embedding sub-record is
// keyed by job id and scoped to the job version.
type VectorizeUseCase struct {
	jobs     ports.JobRepository
	embedder ports.Embedder
	index    ports.CandidateIndex

	minSimilarity float64
	now           func() time.Time
}

func NewVectorizeUseCase(jobs ports.JobRepository, embedder ports.Embedder, index ports.CandidateIndex, minSimilarity float64) *VectorizeUseCase {
	return &VectorizeUseCase{
		jobs:          jobs,
		embedder:      embedder,
		index:         index,
		minSimilarity: minSimilarity,
		now:           func() time.Time { return time.Now().UTC() },
	}
}

func (uc *VectorizeUseCase) VectorizeJob(ctx context.Context, jobID string) error {
	job, err := uc.jobs.GetByID(ctx, jobID)
	if err != nil {
		return fmt.Errorf("load job: %w", err)
	}
	return uc.vectorize(ctx, job)
}

func (uc *VectorizeUseCase) VectorizeCompanyJobs(ctx context.Context, companyID string) (domain.BatchSummary, error) {
	var summary domain.BatchSummary

	jobs, err := uc.jobs.ListByCompany(ctx, companyID)
	if err != nil {
		return summary, fmt.Errorf("list company jobs: %w", err)
	}
	summary.Total = len(jobs)

	for i := range jobs {
		if err := ctx.Err(); err != nil {
			return summary, err
		}
		if err := uc.vectorize(ctx, &jobs[i]); err != nil {
			summary.Errors++
			continue
		}
		summary.Processed++
	}
	return summary, nil
}

// MatchCandidates searches the candidate index with the job's embedding,
// regenerating it first if it is missing or stale.
func (uc *VectorizeUseCase) MatchCandidates(ctx context.Context, jobID string, topK int) ([]domain.RankedMatch, error) {
	job, err := uc.jobs.GetByID(ctx, jobID)
	if err != nil {
		return nil, fmt.Errorf("load job: %w", err)
	}

	embedding, err := uc.jobs.GetEmbedding(ctx, jobID)
	if err != nil {
		return nil, fmt.Errorf("load job embedding: %w", err)
	}
	if embedding.Stale(job) {
		if err := uc.vectorize(ctx, job); err != nil {
			return nil, err
		}
		embedding, err = uc.jobs.GetEmbedding(ctx, jobID)
		if err != nil {
			return nil, fmt.Errorf("reload job embedding: %w", err)
		}
	}

	matches, err := uc.index.Search(ctx, embedding.Vector, topK, uc.minSimilarity)
	if err != nil {
		return nil, fmt.Errorf("search candidate index: %w", err)
	}
	return matches, nil
}

func (uc *VectorizeUseCase) vectorize(ctx context.Context, job *domain.Job) error {
	vector, err := uc.embedder.EmbedQuery(ctx, jobText(job))
	if err != nil {
		return fmt.Errorf("embed job %s: %w", job.ID, err)
	}
	if len(vector) == 0 {
		return domain.WrapError(domain.ErrProviderUnavailable, "embed job", fmt.Errorf("empty embedding for job %s", job.ID))
	}

	embedding := &domain.JobEmbedding{
		JobID:      job.ID,
		Vector:     vector,
		JobVersion: job.Version,
		UpdatedAt:  uc.now(),
	}
	if err := uc.jobs.SaveEmbedding(ctx, embedding); err != nil {
		return fmt.Errorf("save job embedding: %w", err)
	}
	return nil
}

func jobText(job *domain.Job) string {
	parts := []string{job.Title, job.Description}
	if len(job.RequiredSkills) > 0 {
		parts = append(parts, "Required skills: "+strings.Join(job.RequiredSkills, ", "))
	}
	if job.ExperienceLevel != "" {
		parts = append(parts, "Experience level: "+job.ExperienceLevel)
	}
	return strings.Join(parts, "\n")
}
