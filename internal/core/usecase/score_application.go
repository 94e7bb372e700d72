package usecase

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/kirillkom/hiring-pipeline/internal/core/domain"
	"github.com/kirillkom/hiring-pipeline/internal/core/ports"
)

// ScoreApplicationUseCase is the asynchronous scoring callback scheduled on
// application creation. It computes the pairwise match and feeds the result
// back through the event substrate so the orchestrator's version guard stays
// the single write path.
type ScoreApplicationUseCase struct {
	apps       ports.ApplicationRepository
	jobs       ports.JobRepository
	candidates ports.CandidateRepository
	matcher    *MatchScoreUseCase
	embedder   ports.Embedder
	index      ports.CandidateIndex
	queue      ports.EventQueue

	now func() time.Time
}

func NewScoreApplicationUseCase(
	apps ports.ApplicationRepository,
	jobs ports.JobRepository,
	candidates ports.CandidateRepository,
	matcher *MatchScoreUseCase,
	embedder ports.Embedder,
	index ports.CandidateIndex,
	queue ports.EventQueue,
) *ScoreApplicationUseCase {
	return &ScoreApplicationUseCase{
		apps:       apps,
		jobs:       jobs,
		candidates: candidates,
		matcher:    matcher,
		embedder:   embedder,
		index:      index,
		queue:      queue,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

func (uc *ScoreApplicationUseCase) ScoreApplication(ctx context.Context, applicationID string) error {
	app, err := uc.apps.GetByID(ctx, applicationID)
	if err != nil {
		return fmt.Errorf("load application: %w", err)
	}
	if app.Scored() || app.AIProcessing == domain.AIProcessingSkipped {
		// Redelivered scoring request; nothing to do.
		return nil
	}

	profile, err := uc.candidates.GetProfile(ctx, app.CandidateID)
	if err != nil {
		return fmt.Errorf("load candidate profile: %w", err)
	}
	job, err := uc.jobs.GetByID(ctx, app.JobID)
	if err != nil {
		return fmt.Errorf("load job: %w", err)
	}

	result, err := uc.matcher.ComputeMatchScore(ctx, profile, job)
	if err != nil {
		return fmt.Errorf("compute match score: %w", err)
	}

	uc.indexCandidate(ctx, profile)

	scored := app.Clone()
	scored.MatchScore = &result.Score
	scored.Version = app.Version + 1
	scored.UpdatedAt = uc.now()

	event := domain.ChangeEvent{
		DocumentID: app.ID,
		Kind:       domain.EventUpdate,
		Previous:   app,
		Current:    scored,
		OccurredAt: uc.now(),
	}
	if err := uc.queue.PublishChangeEvent(ctx, event); err != nil {
		return fmt.Errorf("publish score event: %w", err)
	}
	return nil
}

// indexCandidate keeps the candidate vector index current as a side effect of
// scoring. Failures never block the score itself.
func (uc *ScoreApplicationUseCase) indexCandidate(ctx context.Context, profile *domain.CandidateProfile) {
	if uc.embedder == nil || uc.index == nil {
		return
	}
	vector, err := uc.embedder.EmbedQuery(ctx, candidateText(profile))
	if err != nil || len(vector) == 0 {
		return
	}
	_ = uc.index.UpsertCandidate(ctx, profile, vector)
}

func candidateText(profile *domain.CandidateProfile) string {
	parts := []string{profile.Summary}
	if len(profile.Skills) > 0 {
		parts = append(parts, "Skills: "+strings.Join(profile.Skills, ", "))
	}
	if profile.YearsExperience > 0 {
		parts = append(parts, fmt.Sprintf("Years of experience: %d", profile.YearsExperience))
	}
	return strings.Join(parts, "\n")
}
