package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/kirillkom/hiring-pipeline/internal/core/domain"
)

type appRepoFake struct {
	stored    map[string]*domain.Application
	createErr error
	writeErr  error
	writes    int
}

func newAppRepoFake() *appRepoFake {
	return &appRepoFake{stored: make(map[string]*domain.Application)}
}

func (f *appRepoFake) Create(_ context.Context, app *domain.Application) (bool, error) {
	if f.createErr != nil {
		return false, f.createErr
	}
	if _, ok := f.stored[app.ID]; ok {
		return false, nil
	}
	f.stored[app.ID] = app.Clone()
	return true, nil
}

func (f *appRepoFake) GetByID(_ context.Context, id string) (*domain.Application, error) {
	app, ok := f.stored[id]
	if !ok {
		return nil, domain.WrapError(domain.ErrApplicationNotFound, "get application", errors.New(id))
	}
	return app.Clone(), nil
}

func (f *appRepoFake) CompareAndWrite(_ context.Context, app *domain.Application, expectedVersion int64) error {
	if f.writeErr != nil {
		return f.writeErr
	}
	stored, ok := f.stored[app.ID]
	if !ok {
		return domain.WrapError(domain.ErrApplicationNotFound, "compare and write", errors.New(app.ID))
	}
	if stored.Version != expectedVersion {
		return domain.WrapError(domain.ErrConcurrencyConflict, "compare and write", errors.New(app.ID))
	}
	f.stored[app.ID] = app.Clone()
	f.writes++
	return nil
}

func (f *appRepoFake) ListPendingByCompany(_ context.Context, companyID string) ([]domain.Application, error) {
	out := make([]domain.Application, 0)
	for _, app := range f.stored {
		if app.CompanyID == companyID && !app.Status.IsTerminal() {
			out = append(out, *app.Clone())
		}
	}
	return out, nil
}

type counterFake struct {
	deltas   []string
	applyErr error
	counts   map[string]int64
}

func newCounterFake() *counterFake {
	return &counterFake{counts: make(map[string]int64)}
}

func (f *counterFake) ApplyDelta(_ context.Context, scope domain.CounterScope, statusLabel string, delta int64) error {
	if f.applyErr != nil {
		return f.applyErr
	}
	f.deltas = append(f.deltas, scope.String()+"/"+statusLabel)
	f.counts[scope.String()+"/"+statusLabel] += delta
	return nil
}

func (f *counterFake) Get(_ context.Context, scope domain.CounterScope) (*domain.AggregateCounters, error) {
	return &domain.AggregateCounters{Scope: scope, ByStatus: map[string]int64{}}, nil
}

func (f *counterFake) ApplicantCount(_ context.Context, jobID string) (int64, error) {
	return f.counts["applicants:"+jobID], nil
}

type settingsFake struct {
	settings *domain.PipelineSettings
	err      error
	reads    int
}

func (f *settingsFake) GetPipelineSettings(context.Context, string) (*domain.PipelineSettings, error) {
	f.reads++
	if f.err != nil {
		return nil, f.err
	}
	if f.settings == nil {
		return nil, domain.WrapError(domain.ErrSettingsNotFound, "get settings", errors.New("absent"))
	}
	return f.settings, nil
}

type notifyFake struct {
	enqueued []domain.Notification
	seen     map[string]bool
	err      error
}

func newNotifyFake() *notifyFake {
	return &notifyFake{seen: make(map[string]bool)}
}

func (f *notifyFake) Enqueue(_ context.Context, n domain.Notification) (bool, error) {
	if f.err != nil {
		return false, f.err
	}
	if f.seen[n.DedupKey] {
		return false, nil
	}
	f.seen[n.DedupKey] = true
	f.enqueued = append(f.enqueued, n)
	return true, nil
}

type auditFake struct {
	records []domain.AuditRecord
	err     error
}

func (f *auditFake) Append(_ context.Context, record domain.AuditRecord) error {
	if f.err != nil {
		return f.err
	}
	f.records = append(f.records, record)
	return nil
}

type queueFake struct {
	scoreRequests []string
	events        []domain.ChangeEvent
	publishErr    error
}

func (f *queueFake) PublishChangeEvent(_ context.Context, event domain.ChangeEvent) error {
	if f.publishErr != nil {
		return f.publishErr
	}
	f.events = append(f.events, event)
	return nil
}

func (f *queueFake) SubscribeChangeEvents(context.Context, func(context.Context, domain.ChangeEvent) error) error {
	return nil
}

func (f *queueFake) PublishScoreRequest(_ context.Context, applicationID string) error {
	if f.publishErr != nil {
		return f.publishErr
	}
	f.scoreRequests = append(f.scoreRequests, applicationID)
	return nil
}

func (f *queueFake) SubscribeScoreRequests(context.Context, func(context.Context, string) error) error {
	return nil
}

type lifecycleFixture struct {
	repo     *appRepoFake
	counters *counterFake
	settings *settingsFake
	notify   *notifyFake
	audit    *auditFake
	queue    *queueFake
	uc       *LifecycleUseCase
}

func newLifecycleFixture() *lifecycleFixture {
	fx := &lifecycleFixture{
		repo:     newAppRepoFake(),
		counters: newCounterFake(),
		settings: &settingsFake{},
		notify:   newNotifyFake(),
		audit:    &auditFake{},
		queue:    &queueFake{},
	}
	fx.uc = NewLifecycleUseCase(fx.repo, fx.counters, fx.settings, fx.notify, fx.audit, fx.queue)
	fx.uc.now = func() time.Time { return time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC) }
	return fx
}

func createEvent(id, resumePath string) domain.ChangeEvent {
	return domain.ChangeEvent{
		DocumentID: id,
		Kind:       domain.EventCreate,
		Current: &domain.Application{
			ID:          id,
			CandidateID: "cand-1",
			JobID:       "job-1",
			CompanyID:   "co-1",
			Status:      domain.StatusApplied,
			ResumePath:  resumePath,
		},
	}
}

func TestHandleCreateWithResumeSchedulesScoring(t *testing.T) {
	fx := newLifecycleFixture()

	report, err := fx.uc.HandleEvent(context.Background(), createEvent("app-1", "resumes/app-1.pdf"))
	if err != nil {
		t.Fatalf("HandleEvent() error = %v", err)
	}
	if !report.Applied {
		t.Fatalf("expected applied report")
	}

	stored := fx.repo.stored["app-1"]
	if stored.Status != domain.StatusUnderReview {
		t.Fatalf("expected under_review, got %s", stored.Status)
	}
	if stored.AIProcessing != domain.AIProcessingProcessing {
		t.Fatalf("expected ai processing, got %s", stored.AIProcessing)
	}
	if stored.Version != 1 {
		t.Fatalf("expected version 1, got %d", stored.Version)
	}
	if len(fx.queue.scoreRequests) != 1 || fx.queue.scoreRequests[0] != "app-1" {
		t.Fatalf("expected one score request for app-1, got %v", fx.queue.scoreRequests)
	}
	if len(fx.notify.enqueued) != 1 || fx.notify.enqueued[0].Kind != domain.NotificationApplicationReceived {
		t.Fatalf("expected application_received notification, got %+v", fx.notify.enqueued)
	}
	if len(fx.audit.records) != 1 {
		t.Fatalf("expected one audit record, got %d", len(fx.audit.records))
	}
}

func TestHandleCreateWithoutResumeSkipsScoring(t *testing.T) {
	fx := newLifecycleFixture()

	_, err := fx.uc.HandleEvent(context.Background(), createEvent("app-1", ""))
	if err != nil {
		t.Fatalf("HandleEvent() error = %v", err)
	}

	stored := fx.repo.stored["app-1"]
	if stored.AIProcessing != domain.AIProcessingSkipped {
		t.Fatalf("expected skipped, got %s", stored.AIProcessing)
	}
	if len(fx.queue.scoreRequests) != 0 {
		t.Fatalf("expected no score requests, got %v", fx.queue.scoreRequests)
	}
}

func TestHandleCreateScheduleFailureKeepsTransition(t *testing.T) {
	fx := newLifecycleFixture()
	fx.queue.publishErr = errors.New("nats down")

	report, err := fx.uc.HandleEvent(context.Background(), createEvent("app-1", "resumes/app-1.pdf"))
	if err != nil {
		t.Fatalf("HandleEvent() error = %v", err)
	}
	if !report.Applied {
		t.Fatalf("expected applied report despite schedule failure")
	}
	if !report.Degraded() {
		t.Fatalf("expected degraded report")
	}

	stored := fx.repo.stored["app-1"]
	if stored.Status != domain.StatusUnderReview {
		t.Fatalf("transition must survive schedule failure, got %s", stored.Status)
	}
	if stored.AIProcessing != domain.AIProcessingError {
		t.Fatalf("expected ai error status, got %s", stored.AIProcessing)
	}
	if stored.AIProcessingError == "" {
		t.Fatalf("expected causal message preserved")
	}
}

func TestHandleCreateDuplicateIsNoOp(t *testing.T) {
	fx := newLifecycleFixture()
	event := createEvent("app-1", "resumes/app-1.pdf")

	if _, err := fx.uc.HandleEvent(context.Background(), event); err != nil {
		t.Fatalf("first HandleEvent() error = %v", err)
	}
	counterCalls := len(fx.counters.deltas)
	notifications := len(fx.notify.enqueued)
	scoreRequests := len(fx.queue.scoreRequests)

	report, err := fx.uc.HandleEvent(context.Background(), event)
	if err != nil {
		t.Fatalf("second HandleEvent() error = %v", err)
	}
	if report.Applied {
		t.Fatalf("duplicate create must not apply")
	}
	if len(fx.counters.deltas) != counterCalls {
		t.Fatalf("duplicate create changed counters")
	}
	if len(fx.notify.enqueued) != notifications {
		t.Fatalf("duplicate create enqueued notifications")
	}
	if len(fx.queue.scoreRequests) != scoreRequests {
		t.Fatalf("duplicate create scheduled scoring again")
	}
}

func scoreArrivalEvent(stored *domain.Application, score float64) domain.ChangeEvent {
	current := stored.Clone()
	current.MatchScore = &score
	current.Version = stored.Version + 1
	return domain.ChangeEvent{
		DocumentID: stored.ID,
		Kind:       domain.EventUpdate,
		Previous:   stored.Clone(),
		Current:    current,
	}
}

func seedUnderReview(fx *lifecycleFixture, id string) *domain.Application {
	app := &domain.Application{
		ID:           id,
		CandidateID:  "cand-1",
		JobID:        "job-1",
		CompanyID:    "co-1",
		Status:       domain.StatusUnderReview,
		AIProcessing: domain.AIProcessingProcessing,
		ResumePath:   "resumes/" + id + ".pdf",
		Version:      1,
	}
	fx.repo.stored[id] = app
	return app
}

func TestScoreArrivalBelowThresholdAutoRejects(t *testing.T) {
	fx := newLifecycleFixture()
	fx.settings.settings = &domain.PipelineSettings{
		CompanyID:                "co-1",
		AutoRejectEnabled:        true,
		AutoRejectThreshold:      30,
		MinApplicationsThreshold: 5,
		SendRejectionEmail:       true,
	}
	fx.counters.counts["applicants:job-1"] = 6
	stored := seedUnderReview(fx, "app-1")

	report, err := fx.uc.HandleEvent(context.Background(), scoreArrivalEvent(stored, 25))
	if err != nil {
		t.Fatalf("HandleEvent() error = %v", err)
	}
	if !report.Applied {
		t.Fatalf("expected applied report")
	}

	if !report.AutoRejected {
		t.Fatalf("expected auto-reject recorded on report")
	}

	updated := fx.repo.stored["app-1"]
	if updated.Status != domain.StatusRejected {
		t.Fatalf("expected rejected, got %s", updated.Status)
	}
	if !updated.AutoRejected {
		t.Fatalf("expected auto_rejected flag")
	}
	if updated.AutoRejectThreshold != 30 {
		t.Fatalf("expected recorded threshold 30, got %v", updated.AutoRejectThreshold)
	}
	if updated.Version != 2 {
		t.Fatalf("expected version 2, got %d", updated.Version)
	}

	rejections := 0
	for _, n := range fx.notify.enqueued {
		if n.Kind == domain.NotificationRejection {
			rejections++
		}
	}
	if rejections != 1 {
		t.Fatalf("expected exactly one rejection notification, got %d", rejections)
	}
}

func TestScoreArrivalRejectionEmailDisabled(t *testing.T) {
	fx := newLifecycleFixture()
	fx.settings.settings = &domain.PipelineSettings{
		AutoRejectEnabled:        true,
		AutoRejectThreshold:      30,
		MinApplicationsThreshold: 5,
		SendRejectionEmail:       false,
	}
	fx.counters.counts["applicants:job-1"] = 6
	stored := seedUnderReview(fx, "app-1")

	if _, err := fx.uc.HandleEvent(context.Background(), scoreArrivalEvent(stored, 25)); err != nil {
		t.Fatalf("HandleEvent() error = %v", err)
	}

	if fx.repo.stored["app-1"].Status != domain.StatusRejected {
		t.Fatalf("expected rejection")
	}
	for _, n := range fx.notify.enqueued {
		if n.Kind == domain.NotificationRejection {
			t.Fatalf("rejection notification must be suppressed when email disabled")
		}
	}
}

func TestScoreArrivalMissingSettingsAdvances(t *testing.T) {
	fx := newLifecycleFixture()
	stored := seedUnderReview(fx, "app-1")

	if _, err := fx.uc.HandleEvent(context.Background(), scoreArrivalEvent(stored, 5)); err != nil {
		t.Fatalf("HandleEvent() error = %v", err)
	}

	updated := fx.repo.stored["app-1"]
	if updated.Status != domain.StatusUnderReview {
		t.Fatalf("missing settings must fail open, got %s", updated.Status)
	}
	if !updated.Scored() || *updated.MatchScore != 5 {
		t.Fatalf("expected score persisted, got %+v", updated.MatchScore)
	}
	if updated.AIProcessing != domain.AIProcessingCompleted {
		t.Fatalf("expected ai completed, got %s", updated.AIProcessing)
	}
}

func TestStaleUpdateIsDiscarded(t *testing.T) {
	fx := newLifecycleFixture()
	stored := seedUnderReview(fx, "app-1")
	stored.Version = 5
	fx.repo.stored["app-1"] = stored

	event := scoreArrivalEvent(stored, 25)
	event.Current.Version = 5 // equal to stored: stale replay

	report, err := fx.uc.HandleEvent(context.Background(), event)
	if err != nil {
		t.Fatalf("HandleEvent() error = %v", err)
	}
	if report.Applied {
		t.Fatalf("stale event must not apply")
	}
	if fx.repo.writes != 0 {
		t.Fatalf("stale event must not write, got %d writes", fx.repo.writes)
	}
	if len(fx.notify.enqueued) != 0 || len(fx.counters.deltas) != 0 {
		t.Fatalf("stale event produced side effects")
	}
}

func statusChangeEvent(stored *domain.Application, to domain.ApplicationStatus) domain.ChangeEvent {
	current := stored.Clone()
	current.Status = to
	current.Version = stored.Version + 1
	return domain.ChangeEvent{
		DocumentID: stored.ID,
		Kind:       domain.EventUpdate,
		Previous:   stored.Clone(),
		Current:    current,
	}
}

func TestBackwardTransitionRejected(t *testing.T) {
	fx := newLifecycleFixture()
	stored := seedUnderReview(fx, "app-1")
	stored.Status = domain.StatusInterviewScheduled
	fx.repo.stored["app-1"] = stored

	_, err := fx.uc.HandleEvent(context.Background(), statusChangeEvent(stored, domain.StatusUnderReview))
	if err == nil {
		t.Fatalf("expected invalid transition error")
	}
	if !domain.IsKind(err, domain.ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition, got %v", err)
	}
	if fx.repo.writes != 0 {
		t.Fatalf("invalid transition must not write")
	}
}

func TestForwardTransitionMovesCounters(t *testing.T) {
	fx := newLifecycleFixture()
	stored := seedUnderReview(fx, "app-1")

	report, err := fx.uc.HandleEvent(context.Background(), statusChangeEvent(stored, domain.StatusInterviewScheduled))
	if err != nil {
		t.Fatalf("HandleEvent() error = %v", err)
	}
	if !report.Applied {
		t.Fatalf("expected applied report")
	}

	// -1 old +1 new for both job and company scopes.
	if len(fx.counters.deltas) != 4 {
		t.Fatalf("expected 4 counter deltas, got %v", fx.counters.deltas)
	}
	if fx.counters.counts["job:job-1/under_review"] != -1 {
		t.Fatalf("expected old status decremented, got %v", fx.counters.counts)
	}
	if fx.counters.counts["job:job-1/interview_scheduled"] != 1 {
		t.Fatalf("expected new status incremented, got %v", fx.counters.counts)
	}
}

func TestCounterFailureDoesNotAbortTransition(t *testing.T) {
	fx := newLifecycleFixture()
	fx.counters.applyErr = errors.New("counter store down")
	stored := seedUnderReview(fx, "app-1")

	report, err := fx.uc.HandleEvent(context.Background(), statusChangeEvent(stored, domain.StatusInterviewScheduled))
	if err != nil {
		t.Fatalf("HandleEvent() error = %v", err)
	}
	if !report.Applied {
		t.Fatalf("counter failure must not abort the transition")
	}
	if !report.Degraded() {
		t.Fatalf("expected degraded report")
	}
	if fx.repo.stored["app-1"].Status != domain.StatusInterviewScheduled {
		t.Fatalf("expected transition persisted")
	}
	// Notifications and audit still run after the counter failure.
	if len(fx.notify.enqueued) != 1 {
		t.Fatalf("expected status notification despite counter failure, got %d", len(fx.notify.enqueued))
	}
	if len(fx.audit.records) != 1 {
		t.Fatalf("expected audit record despite counter failure")
	}
}

func TestWithdrawnAcceptedAsTerminalInput(t *testing.T) {
	fx := newLifecycleFixture()
	stored := seedUnderReview(fx, "app-1")

	report, err := fx.uc.HandleEvent(context.Background(), statusChangeEvent(stored, domain.StatusWithdrawn))
	if err != nil {
		t.Fatalf("HandleEvent() error = %v", err)
	}
	if !report.Applied {
		t.Fatalf("expected applied report")
	}
	if fx.repo.stored["app-1"].Status != domain.StatusWithdrawn {
		t.Fatalf("expected withdrawn")
	}
	if len(fx.notify.enqueued) != 0 {
		t.Fatalf("withdrawal must not notify, got %+v", fx.notify.enqueued)
	}
}
