package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/kirillkom/hiring-pipeline/internal/core/domain"
	"github.com/kirillkom/hiring-pipeline/internal/core/ports"
)

// AutoRejectBatchUseCase re-runs the auto-reject policy over a company's
// pending applications. Settings are read once per run, not once per
// application. Rejections go through the orchestrator so the same version
// guard and side-effect discipline apply.
type AutoRejectBatchUseCase struct {
	apps      ports.ApplicationRepository
	counters  ports.CounterStore
	settings  ports.SettingsProvider
	lifecycle *LifecycleUseCase

	now func() time.Time
}

func NewAutoRejectBatchUseCase(
	apps ports.ApplicationRepository,
	counters ports.CounterStore,
	settings ports.SettingsProvider,
	lifecycle *LifecycleUseCase,
) *AutoRejectBatchUseCase {
	return &AutoRejectBatchUseCase{
		apps:      apps,
		counters:  counters,
		settings:  settings,
		lifecycle: lifecycle,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

func (uc *AutoRejectBatchUseCase) RunForCompany(ctx context.Context, companyID string) (domain.BatchSummary, error) {
	var summary domain.BatchSummary

	settings, err := uc.settings.GetPipelineSettings(ctx, companyID)
	if err != nil {
		if domain.IsKind(err, domain.ErrSettingsNotFound) {
			// Fail open: no settings means no auto-rejection.
			return summary, nil
		}
		return summary, fmt.Errorf("load pipeline settings: %w", err)
	}
	if !settings.AutoRejectEnabled {
		return summary, nil
	}

	pending, err := uc.apps.ListPendingByCompany(ctx, companyID)
	if err != nil {
		return summary, fmt.Errorf("list pending applications: %w", err)
	}
	summary.Total = len(pending)

	countByJob := make(map[string]int64)
	for _, app := range pending {
		if err := ctx.Err(); err != nil {
			return summary, err
		}

		count, ok := countByJob[app.JobID]
		if !ok {
			count, err = uc.counters.ApplicantCount(ctx, app.JobID)
			if err != nil {
				summary.Errors++
				continue
			}
			countByJob[app.JobID] = count
		}

		if EvaluateAutoReject(app.MatchScore, settings, count) != DecisionAutoReject {
			continue
		}

		if err := uc.reject(ctx, app, settings); err != nil {
			summary.Errors++
			continue
		}
		summary.Processed++
	}

	return summary, nil
}

func (uc *AutoRejectBatchUseCase) reject(ctx context.Context, app domain.Application, settings *domain.PipelineSettings) error {
	rejected := app.Clone()
	rejected.Status = domain.StatusRejected
	rejected.AutoRejected = true
	rejected.AutoRejectThreshold = settings.AutoRejectThreshold
	rejected.Version = app.Version + 1
	rejected.UpdatedAt = uc.now()

	event := domain.ChangeEvent{
		DocumentID: app.ID,
		Kind:       domain.EventUpdate,
		Previous:   app.Clone(),
		Current:    rejected,
		OccurredAt: uc.now(),
	}
	report, err := uc.lifecycle.HandleEvent(ctx, event)
	if err != nil {
		return err
	}
	if !report.Applied {
		// A concurrent event already advanced this application.
		return nil
	}
	return nil
}
