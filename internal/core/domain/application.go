package domain

import "time"

type ApplicationStatus string

const (
	StatusApplied            ApplicationStatus = "applied"
	StatusUnderReview        ApplicationStatus = "under_review"
	StatusScreening          ApplicationStatus = "screening"
	StatusInterviewScheduled ApplicationStatus = "interview_scheduled"
	StatusInterviewCompleted ApplicationStatus = "interview_completed"
	StatusOfferExtended      ApplicationStatus = "offer_extended"
	StatusHired              ApplicationStatus = "hired"
	StatusRejected           ApplicationStatus = "rejected"
	StatusWithdrawn          ApplicationStatus = "withdrawn"
)

type AIProcessingStatus string

const (
	AIProcessingNone       AIProcessingStatus = ""
	AIProcessingProcessing AIProcessingStatus = "processing"
	AIProcessingCompleted  AIProcessingStatus = "completed"
	AIProcessingSkipped    AIProcessingStatus = "skipped"
	AIProcessingError      AIProcessingStatus = "error"
)

// statusOrder defines the forward direction of the pipeline. A transition is
// valid only if the target rank is strictly greater than the current one.
var statusOrder = map[ApplicationStatus]int{
	StatusApplied:            0,
	StatusUnderReview:        1,
	StatusScreening:          2,
	StatusInterviewScheduled: 3,
	StatusInterviewCompleted: 4,
	StatusOfferExtended:      5,
	StatusHired:              6,
}

func (s ApplicationStatus) IsTerminal() bool {
	switch s {
	case StatusHired, StatusRejected, StatusWithdrawn:
		return true
	default:
		return false
	}
}

func (s ApplicationStatus) Known() bool {
	if s.IsTerminal() {
		return true
	}
	_, ok := statusOrder[s]
	return ok
}

// CanTransition reports whether from -> to is an allowed forward move.
// Rejected and Withdrawn are reachable from any non-terminal state; no
// transition leaves a terminal state.
func CanTransition(from, to ApplicationStatus) bool {
	if !from.Known() || !to.Known() || from == to {
		return false
	}
	if from.IsTerminal() {
		return false
	}
	if to == StatusRejected || to == StatusWithdrawn {
		return true
	}
	fromRank, ok := statusOrder[from]
	if !ok {
		return false
	}
	toRank, ok := statusOrder[to]
	if !ok {
		return false
	}
	return toRank > fromRank
}

type Application struct {
	ID          string `json:"id"`
	CandidateID string `json:"candidate_id"`
	JobID       string `json:"job_id"`
	CompanyID   string `json:"company_id"`

	Status ApplicationStatus `json:"status"`
	Stage  string            `json:"stage,omitempty"`

	ResumePath string `json:"resume_path,omitempty"`

	MatchScore          *float64 `json:"match_score,omitempty"`
	AutoRejected        bool     `json:"auto_rejected"`
	AutoRejectThreshold float64  `json:"auto_reject_threshold,omitempty"`

	AIProcessing      AIProcessingStatus `json:"ai_processing_status,omitempty"`
	AIProcessingError string             `json:"ai_processing_error,omitempty"`

	// Version increments exactly once per accepted mutation and is the
	// guard against stale or duplicated event replays.
	Version int64 `json:"version"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (a *Application) Scored() bool {
	return a != nil && a.MatchScore != nil
}

func (a *Application) Clone() *Application {
	if a == nil {
		return nil
	}
	out := *a
	if a.MatchScore != nil {
		score := *a.MatchScore
		out.MatchScore = &score
	}
	return &out
}
