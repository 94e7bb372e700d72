package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"
)

type NotificationKind string

const (
	NotificationApplicationReceived NotificationKind = "application_received"
	NotificationStatusChanged       NotificationKind = "status_changed"
	NotificationRejection           NotificationKind = "rejection"
	NotificationOfferExtended       NotificationKind = "offer_extended"
)

// Notification is an outbound record handed to a delivery collaborator.
// Responsibility here ends at durable, deduplicated enqueue.
type Notification struct {
	ID              string            `json:"id"`
	ApplicationID   string            `json:"application_id"`
	CandidateID     string            `json:"candidate_id"`
	CompanyID       string            `json:"company_id"`
	Kind            NotificationKind  `json:"kind"`
	StatusAtTrigger ApplicationStatus `json:"status_at_trigger"`
	DedupKey        string            `json:"dedup_key"`
	CreatedAt       time.Time         `json:"created_at"`
}

// NotificationDedupKey derives the deterministic idempotency key. Re-running
// the enqueue step for the same logical trigger must produce the same key.
func NotificationDedupKey(applicationID string, kind NotificationKind, status ApplicationStatus) string {
	sum := sha256.Sum256([]byte(fmt.Sprintf("%s|%s|%s", applicationID, kind, status)))
	return hex.EncodeToString(sum[:])
}
