package ports

import (
	"context"

	"github.com/kirillkom/hiring-pipeline/internal/core/domain"
)

// EventHandler is the inbound contract invoked by the change-event substrate.
// It must be safe to call more than once for the same logical event.
type EventHandler interface {
	HandleEvent(ctx context.Context, event domain.ChangeEvent) (domain.SideEffectReport, error)
}

// ApplicationScorer runs the asynchronous match-scoring callback for one
// application.
type ApplicationScorer interface {
	ScoreApplication(ctx context.Context, applicationID string) error
}

// AutoRejectRunner is the manual/batch re-run of the auto-reject policy for
// a company's pending applications.
type AutoRejectRunner interface {
	RunForCompany(ctx context.Context, companyID string) (domain.BatchSummary, error)
}

// JobVectorizer regenerates job embeddings on demand.
type JobVectorizer interface {
	VectorizeJob(ctx context.Context, jobID string) error
	VectorizeCompanyJobs(ctx context.Context, companyID string) (domain.BatchSummary, error)
}

// CandidateMatcher ranks indexed candidates against a job.
type CandidateMatcher interface {
	MatchCandidates(ctx context.Context, jobID string, topK int) ([]domain.RankedMatch, error)
}

// ApplicationReader is the inbound read model for application state.
type ApplicationReader interface {
	GetByID(ctx context.Context, id string) (*domain.Application, error)
}
