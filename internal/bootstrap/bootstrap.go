package bootstrap

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/mvporto/fii-rag/internal/config"
	"github.com/mvporto/fii-rag/internal/core/ports"
	"github.com/mvporto/fii-rag/internal/core/usecase"
	"github.com/mvporto/fii-rag/internal/infrastructure/chunking"
	"github.com/mvporto/fii-rag/internal/infrastructure/corpus/pdfdir"
	"github.com/mvporto/fii-rag/internal/infrastructure/index"
	"github.com/mvporto/fii-rag/internal/infrastructure/llm/openai"
	"github.com/mvporto/fii-rag/internal/infrastructure/repository/postgres"
	"github.com/mvporto/fii-rag/internal/infrastructure/resilience"
	"github.com/mvporto/fii-rag/internal/observability/logging"
	"github.com/mvporto/fii-rag/internal/observability/metrics"
)

type App struct {
	Config  config.Config
	Logger  *slog.Logger
	Metrics *metrics.HTTPServerMetrics

	Retriever *usecase.Retriever
	Questions ports.QuestionService

	closeFn func()
}

func New(ctx context.Context, cfg config.Config) (*App, error) {
	logger := logging.NewJSONLogger("fii-rag-api", cfg.LogLevel, cfg.LogFilePath)
	slog.SetDefault(logger)

	serverMetrics := metrics.NewHTTPServerMetrics("fii-rag-api")

	breakers := resilience.New(resilience.Config{
		Enabled:          cfg.BreakerEnabled,
		MinRequests:      uint32(cfg.BreakerMinRequests),
		FailureRatio:     cfg.BreakerFailureRatio,
		OpenTimeout:      time.Duration(cfg.BreakerOpenTimeoutSec) * time.Second,
		HalfOpenMaxCalls: uint32(cfg.BreakerHalfOpenMaxCalls),
	})

	oracle := openai.New(openai.Config{
		APIKey:     cfg.OpenAIAPIKey,
		BaseURL:    cfg.OpenAIBaseURL,
		GenModel:   cfg.OpenAIGenModel,
		EmbedModel: cfg.OpenAIEmbedModel,
		Breakers:   breakers,
	})
	embedder := openai.NewEmbedder(oracle)
	generator := openai.NewGenerator(oracle)
	scorer := openai.NewScorer(oracle)

	chunker, err := chunking.NewSplitter(cfg.ChunkSize, cfg.ChunkOverlap)
	if err != nil {
		return nil, fmt.Errorf("init chunker: %w", err)
	}

	corpus := pdfdir.New(cfg.DocsDir, logger)
	passageIndex := index.NewMemory()
	snapshots := index.NewSnapshotStore(cfg.IndexSnapshotPath)

	retriever := usecase.NewRetriever(corpus, chunker, embedder, passageIndex, snapshots, logger)
	retriever.SetBuildObserver(func(duration time.Duration, err error) {
		serverMetrics.RecordIndexBuild("fii-rag-api", duration, err)
	})

	evaluator := usecase.NewEvaluator(generator, scorer)

	var recorder ports.AnswerRecorder
	closeFn := func() {}
	if cfg.PostgresDSN != "" {
		db, err := postgres.OpenDB(cfg.PostgresDSN)
		if err != nil {
			return nil, fmt.Errorf("open postgres: %w", err)
		}
		repo := postgres.NewAnswerLogRepository(db)
		if err := repo.EnsureSchema(ctx); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("ensure schema: %w", err)
		}
		recorder = repo
		closeFn = func() { _ = db.Close() }
	}

	questions := usecase.NewAnswerUseCase(retriever, generator, evaluator, recorder, logger)

	return &App{
		Config:    cfg,
		Logger:    logger,
		Metrics:   serverMetrics,
		Retriever: retriever,
		Questions: questions,
		closeFn:   closeFn,
	}, nil
}

func (a *App) Close() {
	if a.closeFn != nil {
		a.closeFn()
	}
}
