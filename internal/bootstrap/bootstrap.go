package bootstrap

import (
	"context"
	"fmt"
	"time"

	"github.com/kirillkom/hiring-pipeline/internal/config"
	"github.com/kirillkom/hiring-pipeline/internal/core/usecase"
	"github.com/kirillkom/hiring-pipeline/internal/infrastructure/cache/redis"
	"github.com/kirillkom/hiring-pipeline/internal/infrastructure/llm/ollama"
	"github.com/kirillkom/hiring-pipeline/internal/infrastructure/queue/nats"
	"github.com/kirillkom/hiring-pipeline/internal/infrastructure/repository/postgres"
	"github.com/kirillkom/hiring-pipeline/internal/infrastructure/resilience"
	"github.com/kirillkom/hiring-pipeline/internal/infrastructure/vector/qdrant"
)

// App wires the full pipeline: postgres repositories, the NATS event queue,
// the scoring provider, the candidate index and the match cache, plus the use
// cases on top of them. Both binaries share this wiring.
type App struct {
	Config config.Config

	Queue *nats.Queue

	Applications *postgres.ApplicationRepository

	LifecycleUC  *usecase.LifecycleUseCase
	ScoreUC      *usecase.ScoreApplicationUseCase
	BatchUC      *usecase.AutoRejectBatchUseCase
	VectorizeUC  *usecase.VectorizeUseCase
	MatchScoreUC *usecase.MatchScoreUseCase

	closeFn func()
}

func New(ctx context.Context, cfg config.Config) (*App, error) {
	db, err := postgres.OpenDB(cfg.PostgresDSN)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := postgres.EnsureSchema(ctx, db); err != nil {
		return nil, fmt.Errorf("ensure schema: %w", err)
	}

	executor := resilience.NewExecutor(resilience.DefaultConfig())

	applications := postgres.NewApplicationRepository(db)
	jobs := postgres.NewJobRepository(db)
	candidates := postgres.NewCandidateRepository(db)
	counters := postgres.NewCounterRepository(db, executor)
	settings := postgres.NewSettingsRepository(db)
	notifications := postgres.NewNotificationRepository(db)
	audit := postgres.NewAuditRepository(db)

	queue, err := nats.NewWithOptions(cfg.NATSURL, cfg.NATSEventSubject, cfg.NATSScoreSubject, nats.Options{
		ResilienceExecutor: executor,
	})
	if err != nil {
		return nil, fmt.Errorf("init event queue: %w", err)
	}

	ollamaClient := ollama.NewWithOptions(cfg.OllamaURL, cfg.OllamaGenModel, cfg.OllamaEmbedModel, ollama.ClientOptions{
		RequestTimeout:    time.Duration(cfg.ProviderTimeoutSeconds) * time.Second,
		RequestsPerSecond: cfg.ProviderRequestsPerSec,
		Burst:             cfg.ProviderRequestBurst,
	})
	scorer := ollama.NewScorer(ollamaClient)
	embedder := ollama.NewEmbedder(ollamaClient)

	index := qdrant.New(cfg.QdrantURL, cfg.QdrantCollection)
	matchCache := redis.NewMatchCache(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB,
		time.Duration(cfg.MatchCacheTTLSeconds)*time.Second)

	lifecycleUC := usecase.NewLifecycleUseCase(applications, counters, settings, notifications, audit, queue)
	matchScoreUC := usecase.NewMatchScoreUseCase(scorer, matchCache,
		time.Duration(cfg.ProviderTimeoutSeconds)*time.Second)
	scoreUC := usecase.NewScoreApplicationUseCase(applications, jobs, candidates, matchScoreUC, embedder, index, queue)
	batchUC := usecase.NewAutoRejectBatchUseCase(applications, counters, settings, lifecycleUC)
	vectorizeUC := usecase.NewVectorizeUseCase(jobs, embedder, index,
		float64(cfg.MatchMinSimilarityPct)/100.0)

	return &App{
		Config: cfg,
		Queue:  queue,

		Applications: applications,

		LifecycleUC:  lifecycleUC,
		ScoreUC:      scoreUC,
		BatchUC:      batchUC,
		VectorizeUC:  vectorizeUC,
		MatchScoreUC: matchScoreUC,

		closeFn: func() {
			queue.Close()
			_ = matchCache.Close()
			_ = db.Close()
		},
	}, nil
}

func (a *App) Close() {
	if a.closeFn != nil {
		a.closeFn()
	}
}
