package postgres

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/kirillkom/hiring-pipeline/internal/core/domain"
)

func newAppRepoWithMock(t *testing.T) (*ApplicationRepository, sqlmock.Sqlmock, func()) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New() error = %v", err)
	}
	return &ApplicationRepository{db: db}, mock, func() { _ = db.Close() }
}

func TestGetByIDReturnsDomainNotFound(t *testing.T) {
	repo, mock, done := newAppRepoWithMock(t)
	defer done()

	mock.ExpectQuery("SELECT id, candidate_id, job_id, company_id").
		WithArgs("missing").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.GetByID(context.Background(), "missing")
	if err == nil {
		t.Fatalf("expected error")
	}
	if !domain.IsKind(err, domain.ErrApplicationNotFound) {
		t.Fatalf("expected ErrApplicationNotFound, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestCreateReportsDuplicateAsNotInserted(t *testing.T) {
	repo, mock, done := newAppRepoWithMock(t)
	defer done()

	mock.ExpectExec("INSERT INTO applications").
		WillReturnResult(sqlmock.NewResult(0, 0))

	app := &domain.Application{
		ID: "app-1", CandidateID: "cand-1", JobID: "job-1", CompanyID: "co-1",
		Status: domain.StatusUnderReview, AIProcessing: domain.AIProcessingProcessing,
		Version: 1, CreatedAt: time.Now(), UpdatedAt: time.Now(),
	}
	inserted, err := repo.Create(context.Background(), app)
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if inserted {
		t.Fatalf("expected duplicate insert to report inserted=false")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestCompareAndWriteReturnsConflictWhenVersionMoved(t *testing.T) {
	repo, mock, done := newAppRepoWithMock(t)
	defer done()

	mock.ExpectExec("UPDATE applications").
		WillReturnResult(sqlmock.NewResult(0, 0))

	app := &domain.Application{
		ID: "app-1", Status: domain.StatusScreening,
		AIProcessing: domain.AIProcessingCompleted, Version: 3, UpdatedAt: time.Now(),
	}
	err := repo.CompareAndWrite(context.Background(), app, 2)
	if err == nil {
		t.Fatalf("expected error")
	}
	if !domain.IsKind(err, domain.ErrConcurrencyConflict) {
		t.Fatalf("expected ErrConcurrencyConflict, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestGetByIDScansNullableScore(t *testing.T) {
	repo, mock, done := newAppRepoWithMock(t)
	defer done()

	now := time.Now()
	rows := sqlmock.NewRows([]string{
		"id", "candidate_id", "job_id", "company_id", "status", "stage", "resume_path",
		"match_score", "auto_rejected", "auto_reject_threshold",
		"ai_processing_status", "ai_processing_error", "version", "created_at", "updated_at",
	}).AddRow(
		"app-1", "cand-1", "job-1", "co-1", "under_review", "", "/resumes/app-1.pdf",
		nil, false, 0.0,
		"processing", "", int64(1), now, now,
	)
	mock.ExpectQuery("SELECT id, candidate_id, job_id, company_id").
		WithArgs("app-1").
		WillReturnRows(rows)

	app, err := repo.GetByID(context.Background(), "app-1")
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if app.MatchScore != nil {
		t.Fatalf("expected nil match score, got %v", *app.MatchScore)
	}
	if app.Status != domain.StatusUnderReview {
		t.Fatalf("status = %s", app.Status)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}
