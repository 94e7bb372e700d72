package domain

import "time"

type JobStatus string

const (
	JobOpen     JobStatus = "open"
	JobClosed   JobStatus = "closed"
	JobArchived JobStatus = "archived"
)

type Job struct {
	ID              string    `json:"id"`
	CompanyID       string    `json:"company_id"`
	Title           string    `json:"title"`
	Description     string    `json:"description"`
	RequiredSkills  []string  `json:"required_skills"`
	ExperienceLevel string    `json:"experience_level"`
	Status          JobStatus `json:"status"`

	// Version bumps whenever description or required skills change; the
	// embedding and cached match results are scoped to it.
	Version   int64     `json:"version"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// JobEmbedding is a detachable sub-record: regenerated whenever the job's
// description or required skills change, never edited in place.
type JobEmbedding struct {
	JobID      string    `json:"job_id"`
	Vector     []float32 `json:"vector"`
	JobVersion int64     `json:"job_version"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// Stale reports whether the embedding was built for an older job revision.
func (e *JobEmbedding) Stale(job *Job) bool {
	return e == nil || job == nil || e.JobVersion < job.Version
}

type CandidateProfile struct {
	CandidateID     string   `json:"candidate_id"`
	FullName        string   `json:"full_name"`
	Summary         string   `json:"summary"`
	Skills          []string `json:"skills"`
	YearsExperience int      `json:"years_experience"`
	Preferences     []string `json:"preferences,omitempty"`
}
