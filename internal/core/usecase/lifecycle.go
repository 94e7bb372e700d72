package usecase

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/kirillkom/hiring-pipeline/internal/core/domain"
	"github.com/kirillkom/hiring-pipeline/internal/core/ports"
)

const auditActor = "lifecycle-orchestrator"

// LifecycleUseCase is the application state machine. It consumes change
// events from the substrate, enforces forward-only transitions under a
// version guard, and runs the best-effort side effects that follow an
// accepted transition: counters, scoring schedule, notifications, audit.
//
// Persisting the transition is the only step whose failure aborts the event.
// Everything after it is collected into a SideEffectReport and never rolls
// the write back, so a redelivered duplicate stays a pure no-op for the parts
// already applied.
type LifecycleUseCase struct {
	apps     ports.ApplicationRepository
	counters ports.CounterStore
	settings ports.SettingsProvider
	notify   ports.NotificationQueue
	audit    ports.AuditLog
	queue    ports.EventQueue

	now func() time.Time
}

func NewLifecycleUseCase(
	apps ports.ApplicationRepository,
	counters ports.CounterStore,
	settings ports.SettingsProvider,
	notify ports.NotificationQueue,
	audit ports.AuditLog,
	queue ports.EventQueue,
) *LifecycleUseCase {
	return &LifecycleUseCase{
		apps:     apps,
		counters: counters,
		settings: settings,
		notify:   notify,
		audit:    audit,
		queue:    queue,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

func (uc *LifecycleUseCase) HandleEvent(ctx context.Context, event domain.ChangeEvent) (domain.SideEffectReport, error) {
	report := domain.SideEffectReport{Variant: event.Variant()}

	if event.Current == nil {
		return report, domain.WrapError(domain.ErrInvalidInput, "handle event", fmt.Errorf("current snapshot is required"))
	}

	switch event.Kind {
	case domain.EventCreate:
		return uc.handleCreate(ctx, event, report)
	case domain.EventUpdate:
		return uc.handleUpdate(ctx, event, report)
	default:
		return report, domain.WrapError(domain.ErrInvalidInput, "handle event", fmt.Errorf("unknown event kind %q", event.Kind))
	}
}

func (uc *LifecycleUseCase) handleCreate(ctx context.Context, event domain.ChangeEvent, report domain.SideEffectReport) (domain.SideEffectReport, error) {
	now := uc.now()

	app := event.Current.Clone()
	app.Status = domain.StatusUnderReview
	app.AutoRejected = false
	app.Version = 1
	app.CreatedAt = now
	app.UpdatedAt = now

	// Applications without a resume reference stay out of the scoring
	// pipeline entirely.
	if strings.TrimSpace(app.ResumePath) == "" {
		app.AIProcessing = domain.AIProcessingSkipped
	} else {
		app.AIProcessing = domain.AIProcessingProcessing
	}

	inserted, err := uc.apps.Create(ctx, app)
	if err != nil {
		return report, fmt.Errorf("persist application: %w", err)
	}
	if !inserted {
		// Duplicate delivery of the create event.
		return report, nil
	}
	report.Applied = true

	uc.applyCounterMove(ctx, &report, app, "", app.Status)

	if app.AIProcessing == domain.AIProcessingProcessing {
		if err := uc.queue.PublishScoreRequest(ctx, app.ID); err != nil {
			// Scheduling failure never aborts the transition; it is
			// recorded on the application with the causal message.
			report.Record(domain.StepScheduleScore, err)
			uc.recordScheduleFailure(ctx, app, err)
		}
	}

	uc.enqueueNotification(ctx, &report, app, domain.NotificationApplicationReceived)
	uc.appendAudit(ctx, &report, app, "", app.Status, "application created")

	return report, nil
}

func (uc *LifecycleUseCase) handleUpdate(ctx context.Context, event domain.ChangeEvent, report domain.SideEffectReport) (domain.SideEffectReport, error) {
	if event.Previous == nil {
		return report, domain.WrapError(domain.ErrInvalidInput, "handle update", fmt.Errorf("previous snapshot is required"))
	}

	stored, err := uc.apps.GetByID(ctx, event.Current.ID)
	if err != nil {
		return report, fmt.Errorf("load application: %w", err)
	}

	// Version guard: the sole defense against duplicated and out-of-order
	// delivery. Discarding is not an error.
	if event.Current.Version <= stored.Version {
		return report, nil
	}

	switch report.Variant {
	case domain.VariantScoreArrived:
		return uc.handleScoreArrived(ctx, event, stored, report)
	case domain.VariantStatusChanged:
		return uc.handleStatusChanged(ctx, event, stored, report)
	case domain.VariantStageChanged:
		return uc.handleStageChanged(ctx, event, stored, report)
	default:
		return report, nil
	}
}

func (uc *LifecycleUseCase) handleScoreArrived(ctx context.Context, event domain.ChangeEvent, stored *domain.Application, report domain.SideEffectReport) (domain.SideEffectReport, error) {
	score := clampScore(*event.Current.MatchScore)

	// Any settings read failure evaluates as policy-disabled: the fail-open
	// direction is human review, never auto-rejection.
	settings, err := uc.settings.GetPipelineSettings(ctx, stored.CompanyID)
	if err != nil {
		settings = nil
	}

	applicantCount, err := uc.counters.ApplicantCount(ctx, stored.JobID)
	if err != nil {
		applicantCount = 0
	}

	decision := EvaluateAutoReject(&score, settings, applicantCount)

	updated := stored.Clone()
	updated.MatchScore = &score
	updated.AIProcessing = domain.AIProcessingCompleted
	updated.AIProcessingError = ""
	updated.UpdatedAt = uc.now()

	note := fmt.Sprintf("score arrived: %.1f, decision=%s", score, decision)
	if decision == DecisionAutoReject {
		updated.Status = domain.StatusRejected
		updated.AutoRejected = true
		updated.AutoRejectThreshold = settings.AutoRejectThreshold
		note = fmt.Sprintf("auto-rejected: score %.1f below threshold %.1f", score, settings.AutoRejectThreshold)
	}

	if err := uc.write(ctx, updated, stored.Version); err != nil {
		return report, err
	}
	report.Applied = true
	report.AutoRejected = decision == DecisionAutoReject

	if updated.Status != stored.Status {
		uc.applyCounterMove(ctx, &report, updated, stored.Status, updated.Status)
		if updated.Status == domain.StatusRejected && settings != nil && settings.SendRejectionEmail {
			uc.enqueueNotification(ctx, &report, updated, domain.NotificationRejection)
		}
	}
	uc.appendAudit(ctx, &report, updated, stored.Status, updated.Status, note)

	return report, nil
}

func (uc *LifecycleUseCase) handleStatusChanged(ctx context.Context, event domain.ChangeEvent, stored *domain.Application, report domain.SideEffectReport) (domain.SideEffectReport, error) {
	target := event.Current.Status
	if !domain.CanTransition(stored.Status, target) {
		return report, domain.WrapError(
			domain.ErrInvalidTransition,
			"status change",
			fmt.Errorf("%s -> %s", stored.Status, target),
		)
	}

	updated := stored.Clone()
	updated.Status = target
	updated.Stage = event.Current.Stage
	updated.UpdatedAt = uc.now()
	if target == domain.StatusRejected && event.Current.AutoRejected {
		// Batch auto-reject arrives as a status-change event carrying the
		// policy verdict.
		updated.AutoRejected = true
		updated.AutoRejectThreshold = event.Current.AutoRejectThreshold
	}

	if err := uc.write(ctx, updated, stored.Version); err != nil {
		return report, err
	}
	report.Applied = true
	report.AutoRejected = updated.AutoRejected && !stored.AutoRejected

	uc.applyCounterMove(ctx, &report, updated, stored.Status, target)

	switch target {
	case domain.StatusOfferExtended:
		uc.enqueueNotification(ctx, &report, updated, domain.NotificationOfferExtended)
	case domain.StatusRejected:
		if settings, err := uc.settings.GetPipelineSettings(ctx, updated.CompanyID); err == nil && settings.SendRejectionEmail {
			uc.enqueueNotification(ctx, &report, updated, domain.NotificationRejection)
		}
	case domain.StatusWithdrawn:
		// Candidate-driven terminal state: counters and audit only.
	default:
		uc.enqueueNotification(ctx, &report, updated, domain.NotificationStatusChanged)
	}

	uc.appendAudit(ctx, &report, updated, stored.Status, target, "status changed")

	return report, nil
}

func (uc *LifecycleUseCase) handleStageChanged(ctx context.Context, event domain.ChangeEvent, stored *domain.Application, report domain.SideEffectReport) (domain.SideEffectReport, error) {
	updated := stored.Clone()
	updated.Stage = event.Current.Stage
	updated.UpdatedAt = uc.now()

	if err := uc.write(ctx, updated, stored.Version); err != nil {
		return report, err
	}
	report.Applied = true

	uc.appendAudit(ctx, &report, updated, stored.Status, updated.Status, fmt.Sprintf("stage changed to %q", updated.Stage))
	return report, nil
}

// write persists the new snapshot with a version increment under the
// compare-and-write guard.
func (uc *LifecycleUseCase) write(ctx context.Context, app *domain.Application, expectedVersion int64) error {
	app.Version = expectedVersion + 1
	if err := uc.apps.CompareAndWrite(ctx, app, expectedVersion); err != nil {
		return fmt.Errorf("persist transition: %w", err)
	}
	return nil
}

func (uc *LifecycleUseCase) applyCounterMove(ctx context.Context, report *domain.SideEffectReport, app *domain.Application, from, to domain.ApplicationStatus) {
	scopes := []domain.CounterScope{domain.JobScope(app.JobID), domain.CompanyScope(app.CompanyID)}
	for _, scope := range scopes {
		if from != "" {
			report.Record(domain.StepCounters, uc.counters.ApplyDelta(ctx, scope, string(from), -1))
		}
		report.Record(domain.StepCounters, uc.counters.ApplyDelta(ctx, scope, string(to), +1))
	}
}

func (uc *LifecycleUseCase) enqueueNotification(ctx context.Context, report *domain.SideEffectReport, app *domain.Application, kind domain.NotificationKind) {
	notification := domain.Notification{
		ID:              uuid.NewString(),
		ApplicationID:   app.ID,
		CandidateID:     app.CandidateID,
		CompanyID:       app.CompanyID,
		Kind:            kind,
		StatusAtTrigger: app.Status,
		DedupKey:        domain.NotificationDedupKey(app.ID, kind, app.Status),
		CreatedAt:       uc.now(),
	}
	if _, err := uc.notify.Enqueue(ctx, notification); err != nil {
		report.Record(domain.StepNotifications, err)
	}
}

func (uc *LifecycleUseCase) appendAudit(ctx context.Context, report *domain.SideEffectReport, app *domain.Application, from, to domain.ApplicationStatus, note string) {
	if report.Degraded() {
		note = note + "; degraded: " + strings.Join(report.FailureNotes(), ", ")
	}
	record := domain.AuditRecord{
		ID:            uuid.NewString(),
		ApplicationID: app.ID,
		FromStatus:    from,
		ToStatus:      to,
		Actor:         auditActor,
		Note:          note,
		CreatedAt:     uc.now(),
	}
	report.Record(domain.StepAudit, uc.audit.Append(ctx, record))
}

// recordScheduleFailure marks the application so a failed scoring schedule is
// observable; the application itself stays under review.
func (uc *LifecycleUseCase) recordScheduleFailure(ctx context.Context, app *domain.Application, cause error) {
	updated := app.Clone()
	updated.AIProcessing = domain.AIProcessingError
	updated.AIProcessingError = cause.Error()
	updated.UpdatedAt = uc.now()
	_ = uc.write(ctx, updated, app.Version)
	app.Version = updated.Version
	app.AIProcessing = updated.AIProcessing
	app.AIProcessingError = updated.AIProcessingError
}

func clampScore(score float64) float64 {
	if score < 0 {
		return 0
	}
	if score > 100 {
		return 100
	}
	return score
}
