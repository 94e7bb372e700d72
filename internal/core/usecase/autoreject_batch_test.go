package usecase

import (
	"context"
	"testing"
	"time"

	"github.com/kirillkom/hiring-pipeline/internal/core/domain"
)

func newBatchFixture() (*lifecycleFixture, *AutoRejectBatchUseCase) {
	fx := newLifecycleFixture()
	batch := NewAutoRejectBatchUseCase(fx.repo, fx.counters, fx.settings, fx.uc)
	batch.now = func() time.Time { return time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC) }
	return fx, batch
}

func seedScored(fx *lifecycleFixture, id string, matchScore float64) {
	app := seedUnderReview(fx, id)
	app.MatchScore = &matchScore
	app.AIProcessing = domain.AIProcessingCompleted
	fx.repo.stored[id] = app
}

func TestRunForCompanyRejectsBelowThreshold(t *testing.T) {
	fx, batch := newBatchFixture()
	fx.settings.settings = &domain.PipelineSettings{
		CompanyID:                "co-1",
		AutoRejectEnabled:        true,
		AutoRejectThreshold:      30,
		MinApplicationsThreshold: 2,
		SendRejectionEmail:       true,
	}
	fx.counters.counts["applicants:job-1"] = 3
	seedScored(fx, "low", 10)
	seedScored(fx, "high", 90)

	summary, err := batch.RunForCompany(context.Background(), "co-1")
	if err != nil {
		t.Fatalf("RunForCompany() error = %v", err)
	}
	if summary.Total != 2 {
		t.Fatalf("expected total 2, got %d", summary.Total)
	}
	if summary.Processed != 1 {
		t.Fatalf("expected 1 rejection, got %d", summary.Processed)
	}
	if summary.Errors != 0 {
		t.Fatalf("expected no errors, got %d", summary.Errors)
	}

	if fx.repo.stored["low"].Status != domain.StatusRejected {
		t.Fatalf("low-score application must be rejected")
	}
	if !fx.repo.stored["low"].AutoRejected {
		t.Fatalf("expected auto_rejected flag")
	}
	if fx.repo.stored["high"].Status != domain.StatusUnderReview {
		t.Fatalf("high-score application must stay under review")
	}
}

func TestRunForCompanyReadsSettingsOnce(t *testing.T) {
	fx, batch := newBatchFixture()
	fx.settings.settings = &domain.PipelineSettings{
		AutoRejectEnabled:        true,
		AutoRejectThreshold:      30,
		MinApplicationsThreshold: 1,
	}
	fx.counters.counts["applicants:job-1"] = 5
	seedScored(fx, "a", 10)
	seedScored(fx, "b", 12)
	seedScored(fx, "c", 14)

	if _, err := batch.RunForCompany(context.Background(), "co-1"); err != nil {
		t.Fatalf("RunForCompany() error = %v", err)
	}
	// One read up front; the rejection path never re-reads per application.
	// The orchestrator reads once more per rejection only for the email gate.
	if fx.settings.reads != 1+3 {
		t.Fatalf("expected 1 batch read + 1 per rejection for email gate, got %d", fx.settings.reads)
	}
}

func TestRunForCompanyMissingSettingsIsNoOp(t *testing.T) {
	fx, batch := newBatchFixture()
	seedScored(fx, "a", 1)

	summary, err := batch.RunForCompany(context.Background(), "co-1")
	if err != nil {
		t.Fatalf("RunForCompany() error = %v", err)
	}
	if summary.Total != 0 || summary.Processed != 0 {
		t.Fatalf("missing settings must fail open, got %+v", summary)
	}
	if fx.repo.stored["a"].Status != domain.StatusUnderReview {
		t.Fatalf("application must stay under review")
	}
}

func TestRunForCompanySkipsUnscoredApplications(t *testing.T) {
	fx, batch := newBatchFixture()
	fx.settings.settings = &domain.PipelineSettings{
		AutoRejectEnabled:        true,
		AutoRejectThreshold:      30,
		MinApplicationsThreshold: 1,
	}
	fx.counters.counts["applicants:job-1"] = 5
	seedUnderReview(fx, "unscored")

	summary, err := batch.RunForCompany(context.Background(), "co-1")
	if err != nil {
		t.Fatalf("RunForCompany() error = %v", err)
	}
	if summary.Processed != 0 {
		t.Fatalf("unscored applications must be held, got %+v", summary)
	}
	if fx.repo.stored["unscored"].Status != domain.StatusUnderReview {
		t.Fatalf("unscored application must stay under review")
	}
}
