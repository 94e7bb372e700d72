package domain

import "time"

type EventKind string

const (
	EventCreate EventKind = "create"
	EventUpdate EventKind = "update"
)

// ChangeEvent is the inbound change notification delivered by the event
// substrate. Delivery is at-least-once and unordered; the version on the
// current snapshot is the only ordering signal.
type ChangeEvent struct {
	DocumentID string       `json:"document_id"`
	Kind       EventKind    `json:"kind"`
	Previous   *Application `json:"previous,omitempty"`
	Current    *Application `json:"current"`
	OccurredAt time.Time    `json:"occurred_at"`
}

// EventVariant is the closed set of meanings a change event can carry,
// dispatched explicitly instead of ad hoc field inspection.
type EventVariant string

const (
	VariantApplicationCreated EventVariant = "application_created"
	VariantScoreArrived       EventVariant = "score_arrived"
	VariantStatusChanged      EventVariant = "status_changed"
	VariantStageChanged       EventVariant = "stage_changed"
	VariantNoChange           EventVariant = "no_change"
)

// Variant classifies the event. Score arrival takes priority: an update that
// sets match_score for the first time is the scoring callback even if it also
// carries a status change.
func (e ChangeEvent) Variant() EventVariant {
	if e.Kind == EventCreate {
		return VariantApplicationCreated
	}
	if e.Previous == nil || e.Current == nil {
		return VariantNoChange
	}
	if !e.Previous.Scored() && e.Current.Scored() {
		return VariantScoreArrived
	}
	if e.Previous.Status != e.Current.Status {
		return VariantStatusChanged
	}
	if e.Previous.Stage != e.Current.Stage {
		return VariantStageChanged
	}
	return VariantNoChange
}
