package usecase

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/kirillkom/hiring-pipeline/internal/core/domain"
)

type scorerFake struct {
	result *domain.MatchResult
	err    error
	calls  int
}

func (f *scorerFake) Score(context.Context, *domain.CandidateProfile, *domain.Job) (*domain.MatchResult, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.result, nil
}

type cacheFake struct {
	entries map[string]domain.MatchResult
	setErr  error
}

func newCacheFake() *cacheFake {
	return &cacheFake{entries: make(map[string]domain.MatchResult)}
}

func cacheKey(candidateID, jobID string, version int64) string {
	return fmt.Sprintf("%s|%s|%d", candidateID, jobID, version)
}

func (f *cacheFake) Get(_ context.Context, candidateID, jobID string, jobVersion int64) (*domain.MatchResult, bool, error) {
	result, ok := f.entries[cacheKey(candidateID, jobID, jobVersion)]
	if !ok {
		return nil, false, nil
	}
	return &result, true, nil
}

func (f *cacheFake) Set(_ context.Context, result domain.MatchResult, jobVersion int64) error {
	if f.setErr != nil {
		return f.setErr
	}
	f.entries[cacheKey(result.CandidateID, result.JobID, jobVersion)] = result
	return nil
}

var (
	testProfile = &domain.CandidateProfile{CandidateID: "cand-1", Summary: "go engineer", Skills: []string{"go"}}
	testJob     = &domain.Job{ID: "job-1", CompanyID: "co-1", Title: "backend", Version: 3}
)

func TestComputeMatchScoreSuccess(t *testing.T) {
	scorer := &scorerFake{result: &domain.MatchResult{
		Score:          82,
		Recommendation: domain.RecommendationStrong,
		Strengths:      []string{"go"},
		Gaps:           []string{"k8s"},
	}}
	cache := newCacheFake()
	uc := NewMatchScoreUseCase(scorer, cache, time.Second)

	result, err := uc.ComputeMatchScore(context.Background(), testProfile, testJob)
	if err != nil {
		t.Fatalf("ComputeMatchScore() error = %v", err)
	}
	if result.Score != 82 || result.Recommendation != domain.RecommendationStrong {
		t.Fatalf("unexpected result: %+v", result)
	}
	if result.CandidateID != "cand-1" || result.JobID != "job-1" {
		t.Fatalf("result must carry candidate/job ids: %+v", result)
	}
	if len(cache.entries) != 1 {
		t.Fatalf("expected result cached")
	}
}

func TestComputeMatchScoreFallbackOnProviderError(t *testing.T) {
	scorer := &scorerFake{err: errors.New("provider timeout")}
	cache := newCacheFake()
	uc := NewMatchScoreUseCase(scorer, cache, time.Second)
	fallbacks := 0
	uc.OnFallback = func() { fallbacks++ }

	result, err := uc.ComputeMatchScore(context.Background(), testProfile, testJob)
	if err != nil {
		t.Fatalf("degraded provider must not error, got %v", err)
	}
	if result.Score != 50 {
		t.Fatalf("expected fallback score 50, got %v", result.Score)
	}
	if result.Recommendation != domain.RecommendationPotential {
		t.Fatalf("expected potential_match, got %s", result.Recommendation)
	}
	if result.Reason != "fallback: provider unavailable" {
		t.Fatalf("unexpected reason: %q", result.Reason)
	}
	if len(cache.entries) != 0 {
		t.Fatalf("fallback result must not be cached")
	}
	if fallbacks != 1 {
		t.Fatalf("expected one fallback observation, got %d", fallbacks)
	}
}

func TestComputeMatchScoreCacheHitSkipsProvider(t *testing.T) {
	scorer := &scorerFake{result: &domain.MatchResult{Score: 70, Recommendation: domain.RecommendationPotential}}
	cache := newCacheFake()
	uc := NewMatchScoreUseCase(scorer, cache, time.Second)

	if _, err := uc.ComputeMatchScore(context.Background(), testProfile, testJob); err != nil {
		t.Fatalf("first call error = %v", err)
	}
	if _, err := uc.ComputeMatchScore(context.Background(), testProfile, testJob); err != nil {
		t.Fatalf("second call error = %v", err)
	}
	if scorer.calls != 1 {
		t.Fatalf("expected one provider call, got %d", scorer.calls)
	}
}

func TestComputeMatchScoreClampsAndNormalizes(t *testing.T) {
	scorer := &scorerFake{result: &domain.MatchResult{Score: 140, Recommendation: "something_else"}}
	uc := NewMatchScoreUseCase(scorer, nil, time.Second)

	result, err := uc.ComputeMatchScore(context.Background(), testProfile, testJob)
	if err != nil {
		t.Fatalf("ComputeMatchScore() error = %v", err)
	}
	if result.Score != 100 {
		t.Fatalf("expected clamp to 100, got %v", result.Score)
	}
	if result.Recommendation != domain.RecommendationPotential {
		t.Fatalf("expected normalized recommendation, got %s", result.Recommendation)
	}
	if result.Strengths == nil || result.Gaps == nil {
		t.Fatalf("expected non-nil strengths/gaps")
	}
}
