package domain

import "time"

type AuditRecord struct {
	ID            string            `json:"id"`
	ApplicationID string            `json:"application_id"`
	FromStatus    ApplicationStatus `json:"from_status,omitempty"`
	ToStatus      ApplicationStatus `json:"to_status"`
	Actor         string            `json:"actor"`
	Note          string            `json:"note,omitempty"`
	CreatedAt     time.Time         `json:"created_at"`
}

// SideEffectStep names the best-effort steps that follow an accepted
// transition. Persisting the transition itself is not a step: its failure
// aborts the whole event.
type SideEffectStep string

const (
	StepCounters      SideEffectStep = "counters"
	StepScheduleScore SideEffectStep = "schedule_score"
	StepNotifications SideEffectStep = "notifications"
	StepAudit         SideEffectStep = "audit"
)

type SideEffectError struct {
	Step SideEffectStep
	Err  error
}

func (e SideEffectError) Error() string {
	return string(e.Step) + ": " + e.Err.Error()
}

// SideEffectReport collects the outcome of one handled event. A failed step
// never rolls back the persisted transition; it is recorded here so callers
// can log and audit the degraded-but-committed state.
type SideEffectReport struct {
	Applied      bool
	AutoRejected bool
	Variant      EventVariant
	Failures     []SideEffectError
}

func (r *SideEffectReport) Record(step SideEffectStep, err error) {
	if err == nil {
		return
	}
	r.Failures = append(r.Failures, SideEffectError{Step: step, Err: err})
}

func (r *SideEffectReport) Degraded() bool {
	return len(r.Failures) > 0
}

func (r *SideEffectReport) FailureNotes() []string {
	notes := make([]string, 0, len(r.Failures))
	for _, f := range r.Failures {
		notes = append(notes, f.Error())
	}
	return notes
}

// BatchSummary is the synchronous result of a manual/batch operation.
type BatchSummary struct {
	Total     int `json:"total"`
	Processed int `json:"processed"`
	Errors    int `json:"errors"`
}
