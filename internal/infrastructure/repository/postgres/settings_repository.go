package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/kirillkom/hiring-pipeline/internal/core/domain"
)

type SettingsRepository struct {
	db *sql.DB
}

func NewSettingsRepository(db *sql.DB) *SettingsRepository {
	return &SettingsRepository{db: db}
}

// GetPipelineSettings reports absence as ErrSettingsNotFound so callers can
// fail open explicitly instead of acting on zero-value thresholds.
func (r *SettingsRepository) GetPipelineSettings(ctx context.Context, companyID string) (*domain.PipelineSettings, error) {
	row := r.db.QueryRowContext(ctx, `
SELECT company_id, auto_reject_enabled, auto_reject_threshold, min_applications_threshold, send_rejection_email
FROM pipeline_settings
WHERE company_id = $1
`, companyID)

	var settings domain.PipelineSettings
	err := row.Scan(
		&settings.CompanyID, &settings.AutoRejectEnabled, &settings.AutoRejectThreshold,
		&settings.MinApplicationsThreshold, &settings.SendRejectionEmail,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.WrapError(domain.ErrSettingsNotFound, "get pipeline settings", fmt.Errorf("company_id=%s", companyID))
		}
		return nil, fmt.Errorf("scan pipeline settings: %w", err)
	}
	return &settings, nil
}
