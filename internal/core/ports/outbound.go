package ports

import (
	"context"

	"github.com/kirillkom/hiring-pipeline/internal/core/domain"
)

// ApplicationRepository is the versioned-record store for applications.
// CompareAndWrite persists the snapshot only if the stored version still
// equals expectedVersion, returning ErrConcurrencyConflict otherwise.
type ApplicationRepository interface {
	Create(ctx context.Context, app *domain.Application) (bool, error)
	GetByID(ctx context.Context, id string) (*domain.Application, error)
	CompareAndWrite(ctx context.Context, app *domain.Application, expectedVersion int64) error
	ListPendingByCompany(ctx context.Context, companyID string) ([]domain.Application, error)
}

// JobRepository reads jobs and owns the detachable embedding sub-record.
// GetEmbedding returns (nil, nil) when no embedding has been generated yet.
type JobRepository interface {
	GetByID(ctx context.Context, id string) (*domain.Job, error)
	ListByCompany(ctx context.Context, companyID string) ([]domain.Job, error)
	GetEmbedding(ctx context.Context, jobID string) (*domain.JobEmbedding, error)
	SaveEmbedding(ctx context.Context, embedding *domain.JobEmbedding) error
}

// CandidateRepository reads candidate profiles owned by an external
// collaborator.
type CandidateRepository interface {
	GetProfile(ctx context.Context, candidateID string) (*domain.CandidateProfile, error)
}

// CounterStore applies signed deltas to aggregate counters. Each delta is a
// single atomic read-modify-write on the target scope.
type CounterStore interface {
	ApplyDelta(ctx context.Context, scope domain.CounterScope, statusLabel string, delta int64) error
	Get(ctx context.Context, scope domain.CounterScope) (*domain.AggregateCounters, error)
	ApplicantCount(ctx context.Context, jobID string) (int64, error)
}

// SettingsProvider reads per-company pipeline settings. Absence is reported
// as ErrSettingsNotFound, never as zero-value settings.
type SettingsProvider interface {
	GetPipelineSettings(ctx context.Context, companyID string) (*domain.PipelineSettings, error)
}

// NotificationQueue enqueues outbound notifications. Enqueue reports whether
// the record was newly inserted; a repeated dedup key is a no-op.
type NotificationQueue interface {
	Enqueue(ctx context.Context, notification domain.Notification) (bool, error)
}

// AuditLog appends immutable transition records.
type AuditLog interface {
	Append(ctx context.Context, record domain.AuditRecord) error
}

// MatchScorer delegates pairwise candidate/job judgment to the scoring
// provider.
type MatchScorer interface {
	Score(ctx context.Context, profile *domain.CandidateProfile, job *domain.Job) (*domain.MatchResult, error)
}

// Embedder builds vectors for job postings and candidate profiles.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
}

// CandidateIndex stores candidate vectors and searches them by similarity.
type CandidateIndex interface {
	UpsertCandidate(ctx context.Context, profile *domain.CandidateProfile, vector []float32) error
	Search(ctx context.Context, queryVector []float32, limit int, minSimilarity float64) ([]domain.RankedMatch, error)
}

// MatchCache caches computed match results with a staleness window scoped to
// the job version.
type MatchCache interface {
	Get(ctx context.Context, candidateID, jobID string, jobVersion int64) (*domain.MatchResult, bool, error)
	Set(ctx context.Context, result domain.MatchResult, jobVersion int64) error
}

// EventQueue publishes and consumes change events and scoring requests.
type EventQueue interface {
	PublishChangeEvent(ctx context.Context, event domain.ChangeEvent) error
	SubscribeChangeEvents(ctx context.Context, handler func(context.Context, domain.ChangeEvent) error) error
	PublishScoreRequest(ctx context.Context, applicationID string) error
	SubscribeScoreRequests(ctx context.Context, handler func(context.Context, string) error) error
}
