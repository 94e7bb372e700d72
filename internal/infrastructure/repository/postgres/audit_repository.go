package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/kirillkom/hiring-pipeline/internal/core/domain"
)

type AuditRepository struct {
	db *sql.DB
}

func NewAuditRepository(db *sql.DB) *AuditRepository {
	return &AuditRepository{db: db}
}

func (r *AuditRepository) Append(ctx context.Context, record domain.AuditRecord) error {
	_, err := r.db.ExecContext(ctx, `
INSERT INTO audit_log (id, application_id, from_status, to_status, actor, note, created_at)
VALUES ($1,$2,$3,$4,$5,$6,$7)
`,
		record.ID, record.ApplicationID, string(record.FromStatus), string(record.ToStatus),
		record.Actor, record.Note, record.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("append audit record: %w", err)
	}
	return nil
}
