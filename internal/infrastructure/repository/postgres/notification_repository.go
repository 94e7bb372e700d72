package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/kirillkom/hiring-pipeline/internal/core/domain"
)

type NotificationRepository struct {
	db *sql.DB
}

func NewNotificationRepository(db *sql.DB) *NotificationRepository {
	return &NotificationRepository{db: db}
}

// Enqueue inserts the notification unless its dedup key was already seen.
// The unique constraint makes the second enqueue of the same logical trigger
// a no-op, which is what lets the orchestrator re-run the notification step
// after a partial failure.
func (r *NotificationRepository) Enqueue(ctx context.Context, notification domain.Notification) (bool, error) {
	result, err := r.db.ExecContext(ctx, `
INSERT INTO notifications (id, application_id, candidate_id, company_id, kind, status_at_trigger, dedup_key, created_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
ON CONFLICT (dedup_key) DO NOTHING
`,
		notification.ID, notification.ApplicationID, notification.CandidateID, notification.CompanyID,
		string(notification.Kind), string(notification.StatusAtTrigger), notification.DedupKey, notification.CreatedAt,
	)
	if err != nil {
		return false, fmt.Errorf("enqueue notification: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("enqueue notification rows affected: %w", err)
	}
	return rows > 0, nil
}
