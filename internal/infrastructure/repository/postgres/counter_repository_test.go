package postgres

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/kirillkom/hiring-pipeline/internal/core/domain"
)

func newCounterRepoWithMock(t *testing.T) (*CounterRepository, sqlmock.Sqlmock, func()) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New() error = %v", err)
	}
	return &CounterRepository{db: db}, mock, func() { _ = db.Close() }
}

func TestApplyDeltaUpsertsStatusAndTotalTogether(t *testing.T) {
	repo, mock, done := newCounterRepoWithMock(t)
	defer done()

	mock.ExpectExec("INSERT INTO aggregate_counters").
		WithArgs("job", "job-1", "under_review", int64(1), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.ApplyDelta(context.Background(), domain.JobScope("job-1"), "under_review", 1)
	if err != nil {
		t.Fatalf("ApplyDelta() error = %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestGetReturnsEmptyCountersForUnknownScope(t *testing.T) {
	repo, mock, done := newCounterRepoWithMock(t)
	defer done()

	mock.ExpectQuery("SELECT by_status, total").
		WithArgs("company", "co-1").
		WillReturnRows(sqlmock.NewRows([]string{"by_status", "total"}))

	counters, err := repo.Get(context.Background(), domain.CompanyScope("co-1"))
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if counters.Total != 0 || len(counters.ByStatus) != 0 {
		t.Fatalf("expected empty counters, got %+v", counters)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestApplicantCountReadsJobScopedTotal(t *testing.T) {
	repo, mock, done := newCounterRepoWithMock(t)
	defer done()

	rows := sqlmock.NewRows([]string{"by_status", "total"}).
		AddRow([]byte(`{"under_review":4,"rejected":2}`), int64(6))
	mock.ExpectQuery("SELECT by_status, total").
		WithArgs("job", "job-1").
		WillReturnRows(rows)

	count, err := repo.ApplicantCount(context.Background(), "job-1")
	if err != nil {
		t.Fatalf("ApplicantCount() error = %v", err)
	}
	if count != 6 {
		t.Fatalf("count = %d, want 6", count)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}
