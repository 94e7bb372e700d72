package main

import (
	"context"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/kirillkom/hiring-pipeline/internal/bootstrap"
	"github.com/kirillkom/hiring-pipeline/internal/config"
	"github.com/kirillkom/hiring-pipeline/internal/core/domain"
	"github.com/kirillkom/hiring-pipeline/internal/observability/logging"
	"github.com/kirillkom/hiring-pipeline/internal/observability/metrics"
)

const serviceName = "worker"

func main() {
	cfg := config.Load()
	slog.SetDefault(logging.NewJSONLogger(serviceName, cfg.LogLevel))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := bootstrap.New(ctx, cfg)
	if err != nil {
		log.Fatalf("bootstrap error: %v", err)
	}
	defer app.Close()

	workerMetrics := metrics.NewWorkerMetrics(serviceName)
	metricsServer := startMetricsServer(cfg.WorkerMetricsPort, workerMetrics)

	app.MatchScoreUC.OnFallback = func() { workerMetrics.RecordProviderFallback(serviceName) }
	app.MatchScoreUC.OnCacheLookup = func(hit bool) { workerMetrics.RecordCacheLookup(serviceName, hit) }

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		log.Printf("worker subscribed to %s", cfg.NATSEventSubject)
		err := app.Queue.SubscribeChangeEvents(ctx, func(handlerCtx context.Context, event domain.ChangeEvent) error {
			return handleChangeEvent(handlerCtx, app, workerMetrics, event)
		})
		if err != nil {
			slog.Error("change event subscription ended", "error", err)
		}
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		log.Printf("worker subscribed to %s", cfg.NATSScoreSubject)
		err := app.Queue.SubscribeScoreRequests(ctx, func(handlerCtx context.Context, applicationID string) error {
			scoreCtx, cancel := context.WithTimeout(handlerCtx, 5*time.Minute)
			defer cancel()

			start := time.Now()
			err := app.ScoreUC.ScoreApplication(scoreCtx, applicationID)
			workerMetrics.ObserveScoreDuration(serviceName, time.Since(start), err)
			return err
		})
		if err != nil {
			slog.Error("score request subscription ended", "error", err)
		}
	}()

	wg.Wait()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := metricsServer.Shutdown(shutdownCtx); err != nil {
		log.Printf("metrics server shutdown error: %v", err)
	}
}

func handleChangeEvent(ctx context.Context, app *bootstrap.App, m *metrics.WorkerMetrics, event domain.ChangeEvent) error {
	m.StartEvent()
	start := time.Now()

	handleCtx, cancel := context.WithTimeout(ctx, 2*time.Minute)
	defer cancel()

	report, err := app.LifecycleUC.HandleEvent(handleCtx, event)
	m.FinishEvent(serviceName, string(report.Variant), time.Since(start), err)

	if err == nil && !report.Applied && event.Kind == domain.EventUpdate {
		m.RecordStaleEvent(serviceName)
	}
	if report.AutoRejected {
		m.RecordAutoReject(serviceName, string(report.Variant))
	}
	for _, failure := range report.Failures {
		m.RecordSideEffectFailure(serviceName, string(failure.Step))
	}
	if report.Degraded() {
		slog.Warn("event handled with degraded side effects",
			"document_id", event.DocumentID,
			"variant", report.Variant,
			"failures", report.FailureNotes(),
		)
	}
	return err
}

func startMetricsServer(port string, m *metrics.WorkerMetrics) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	server := &http.Server{
		Addr:        ":" + port,
		Handler:     mux,
		ReadTimeout: 10 * time.Second,
	}
	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("metrics server error: %v", err)
		}
	}()
	return server
}
