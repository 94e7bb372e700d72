package usecase

import "github.com/kirillkom/hiring-pipeline/internal/core/domain"

type AutoRejectDecision string

const (
	DecisionAdvance    AutoRejectDecision = "advance"
	DecisionHold       AutoRejectDecision = "hold"
	DecisionAutoReject AutoRejectDecision = "auto-reject"
)

// EvaluateAutoReject is the pure auto-reject policy. It rejects only when the
// policy is enabled, the job has gathered at least the minimum number of
// applicants, and the score is strictly below the threshold; a tie favors the
// candidate. Nil settings mean the policy is disabled (fail open toward human
// review). A nil score cannot be judged and yields hold.
func EvaluateAutoReject(score *float64, settings *domain.PipelineSettings, applicantCount int64) AutoRejectDecision {
	if settings == nil || !settings.AutoRejectEnabled {
		return DecisionAdvance
	}
	if score == nil {
		return DecisionHold
	}
	if applicantCount < settings.MinApplicationsThreshold {
		return DecisionAdvance
	}
	if *score < settings.AutoRejectThreshold {
		return DecisionAutoReject
	}
	return DecisionAdvance
}
