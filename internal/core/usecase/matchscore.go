package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/kirillkom/hiring-pipeline/internal/core/domain"
	"github.com/kirillkom/hiring-pipeline/internal/core/ports"
)

// Provider weighting contract: skills overlap 40%, experience alignment 30%,
// preference match 20%, trajectory fit 10%. The provider is expected to honor
// it; this component never re-derives the number.
const (
	fallbackScore  = 50.0
	fallbackReason = "fallback: provider unavailable"
)

type MatchScoreUseCase struct {
	scorer          ports.MatchScorer
	cache           ports.MatchCache
	providerTimeout time.Duration

	// Optional observers, nil unless the hosting process wires metrics in.
	OnFallback    func()
	OnCacheLookup func(hit bool)
}

func NewMatchScoreUseCase(scorer ports.MatchScorer, cache ports.MatchCache, providerTimeout time.Duration) *MatchScoreUseCase {
	if providerTimeout <= 0 {
		providerTimeout = 30 * time.Second
	}
	return &MatchScoreUseCase{
		scorer:          scorer,
		cache:           cache,
		providerTimeout: providerTimeout,
	}
}

// ComputeMatchScore returns the pairwise match for one candidate/job. A
// degraded provider yields the deterministic fallback result instead of an
// error: the pipeline must never block on scoring. Fallback results are not
// cached so a recovered provider can replace them on the next call.
func (uc *MatchScoreUseCase) ComputeMatchScore(ctx context.Context, profile *domain.CandidateProfile, job *domain.Job) (*domain.MatchResult, error) {
	if profile == nil || job == nil {
		return nil, domain.WrapError(domain.ErrInvalidInput, "compute match score", fmt.Errorf("profile and job are required"))
	}

	if uc.cache != nil {
		cached, ok, err := uc.cache.Get(ctx, profile.CandidateID, job.ID, job.Version)
		if uc.OnCacheLookup != nil {
			uc.OnCacheLookup(err == nil && ok)
		}
		if err == nil && ok {
			return cached, nil
		}
	}

	scoreCtx, cancel := context.WithTimeout(ctx, uc.providerTimeout)
	defer cancel()

	result, err := uc.scorer.Score(scoreCtx, profile, job)
	if err != nil || result == nil {
		if uc.OnFallback != nil {
			uc.OnFallback()
		}
		return fallbackMatch(profile.CandidateID, job.ID), nil
	}
	normalizeMatch(result, profile.CandidateID, job.ID)

	if uc.cache != nil {
		// Best effort: a cold cache only costs a recompute.
		_ = uc.cache.Set(ctx, *result, job.Version)
	}
	return result, nil
}

func fallbackMatch(candidateID, jobID string) *domain.MatchResult {
	return &domain.MatchResult{
		CandidateID:    candidateID,
		JobID:          jobID,
		Score:          fallbackScore,
		Recommendation: domain.RecommendationPotential,
		Strengths:      []string{},
		Gaps:           []string{},
		Reason:         fallbackReason,
	}
}

func normalizeMatch(result *domain.MatchResult, candidateID, jobID string) {
	result.CandidateID = candidateID
	result.JobID = jobID
	if result.Score < 0 {
		result.Score = 0
	}
	if result.Score > 100 {
		result.Score = 100
	}
	switch result.Recommendation {
	case domain.RecommendationStrong, domain.RecommendationPotential, domain.RecommendationWeak, domain.RecommendationNone:
	default:
		result.Recommendation = domain.RecommendationPotential
	}
	if result.Strengths == nil {
		result.Strengths = []string{}
	}
	if result.Gaps == nil {
		result.Gaps = []string{}
	}
}
