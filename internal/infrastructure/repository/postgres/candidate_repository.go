package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/kirillkom/hiring-pipeline/internal/core/domain"
)

// CandidateRepository is a read-only view over candidate records owned by an
// external collaborator.
type CandidateRepository struct {
	db *sql.DB
}

func NewCandidateRepository(db *sql.DB) *CandidateRepository {
	return &CandidateRepository{db: db}
}

func (r *CandidateRepository) GetProfile(ctx context.Context, candidateID string) (*domain.CandidateProfile, error) {
	row := r.db.QueryRowContext(ctx, `
SELECT id, full_name, summary, skills, years_experience, preferences
FROM candidates
WHERE id = $1
`, candidateID)

	var profile domain.CandidateProfile
	var skillsRaw, preferencesRaw []byte
	err := row.Scan(
		&profile.CandidateID, &profile.FullName, &profile.Summary,
		&skillsRaw, &profile.YearsExperience, &preferencesRaw,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.WrapError(domain.ErrInvalidInput, "get candidate profile", fmt.Errorf("id=%s", candidateID))
		}
		return nil, fmt.Errorf("scan candidate profile: %w", err)
	}

	if err := json.Unmarshal(skillsRaw, &profile.Skills); err != nil {
		return nil, fmt.Errorf("unmarshal candidate skills: %w", err)
	}
	if err := json.Unmarshal(preferencesRaw, &profile.Preferences); err != nil {
		return nil, fmt.Errorf("unmarshal candidate preferences: %w", err)
	}
	return &profile, nil
}
