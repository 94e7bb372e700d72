package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/kirillkom/hiring-pipeline/internal/core/domain"
	"github.com/kirillkom/hiring-pipeline/internal/infrastructure/resilience"
)

// CounterRepository maintains aggregate counters. Every delta is one atomic
// upsert statement touching both the per-status count and the total, so the
// sum(by_status) == total invariant holds after each applied delta even under
// concurrent writers on the same scope.
type CounterRepository struct {
	db       *sql.DB
	executor *resilience.Executor
}

func NewCounterRepository(db *sql.DB, executor *resilience.Executor) *CounterRepository {
	return &CounterRepository{db: db, executor: executor}
}

func (r *CounterRepository) ApplyDelta(ctx context.Context, scope domain.CounterScope, statusLabel string, delta int64) error {
	apply := func(ctx context.Context) error {
		return r.applyDeltaOnce(ctx, scope, statusLabel, delta)
	}
	if r.executor == nil {
		return apply(ctx)
	}
	err := r.executor.Execute(ctx, "counters.apply_delta", apply, classifyCounterError)
	if err != nil && isSerializationFailure(err) {
		return domain.WrapError(domain.ErrConcurrencyConflict, "apply counter delta", err)
	}
	return err
}

func (r *CounterRepository) applyDeltaOnce(ctx context.Context, scope domain.CounterScope, statusLabel string, delta int64) error {
	_, err := r.db.ExecContext(ctx, `
INSERT INTO aggregate_counters (scope_kind, scope_id, by_status, total, updated_at)
VALUES ($1, $2, jsonb_build_object($3::text, $4::bigint), $4, $5)
ON CONFLICT (scope_kind, scope_id) DO UPDATE
SET by_status = jsonb_set(
		aggregate_counters.by_status,
		ARRAY[$3::text],
		to_jsonb(COALESCE((aggregate_counters.by_status->>$3)::bigint, 0) + $4)
	),
	total = aggregate_counters.total + $4,
	updated_at = $5
`, string(scope.Kind), scope.ID, statusLabel, delta, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("apply counter delta: %w", err)
	}
	return nil
}

func (r *CounterRepository) Get(ctx context.Context, scope domain.CounterScope) (*domain.AggregateCounters, error) {
	row := r.db.QueryRowContext(ctx, `
SELECT by_status, total
FROM aggregate_counters
WHERE scope_kind = $1 AND scope_id = $2
`, string(scope.Kind), scope.ID)

	var byStatusRaw []byte
	counters := &domain.AggregateCounters{Scope: scope, ByStatus: map[string]int64{}}

	err := row.Scan(&byStatusRaw, &counters.Total)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return counters, nil
		}
		return nil, fmt.Errorf("scan counters: %w", err)
	}
	if err := json.Unmarshal(byStatusRaw, &counters.ByStatus); err != nil {
		return nil, fmt.Errorf("unmarshal counters: %w", err)
	}
	return counters, nil
}

// ApplicantCount returns the total number of applications seen for a job.
func (r *CounterRepository) ApplicantCount(ctx context.Context, jobID string) (int64, error) {
	counters, err := r.Get(ctx, domain.JobScope(jobID))
	if err != nil {
		return 0, err
	}
	return counters.Total, nil
}

// Postgres serialization and deadlock failures on the upsert are worth a
// bounded retry; anything else propagates.
func classifyCounterError(err error) resilience.ErrorClassification {
	if err == nil {
		return resilience.ErrorClassification{}
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return resilience.ErrorClassification{Retryable: false, RecordFailure: false}
	}
	if resilience.IsCircuitOpen(err) {
		return resilience.ErrorClassification{Retryable: true, RecordFailure: true}
	}
	if isSerializationFailure(err) {
		return resilience.ErrorClassification{Retryable: true, RecordFailure: false}
	}
	return resilience.ErrorClassification{Retryable: false, RecordFailure: true}
}

func isSerializationFailure(err error) bool {
	// 40001 serialization_failure, 40P01 deadlock_detected.
	var coder interface{ SQLState() string }
	if errors.As(err, &coder) {
		state := coder.SQLState()
		return state == "40001" || state == "40P01"
	}
	return false
}
