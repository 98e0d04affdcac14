package bootstrap

import (
	"context"
	"fmt"
	"time"

	"github.com/kirillkom/mediscan/internal/config"
	"github.com/kirillkom/mediscan/internal/core/domain"
	"github.com/kirillkom/mediscan/internal/core/ports"
	"github.com/kirillkom/mediscan/internal/core/usecase"
	"github.com/kirillkom/mediscan/internal/infrastructure/fda"
	"github.com/kirillkom/mediscan/internal/infrastructure/llm/gemini"
	"github.com/kirillkom/mediscan/internal/infrastructure/queue/nats"
	"github.com/kirillkom/mediscan/internal/infrastructure/repository/postgres"
	"github.com/kirillkom/mediscan/internal/infrastructure/resilience"
)

type App struct {
	Config config.Config

	Queue    *nats.Queue
	Searches ports.SearchRecordStore
	History  ports.HistoryStore

	AnalyzeUC  ports.MedicineAnalyzer
	HistoryUC  ports.HistoryService
	BackfillUC ports.LabelBackfiller

	closeFn func()
}

func New(ctx context.Context, cfg config.Config) (*App, error) {
	db, err := postgres.OpenDB(cfg.PostgresDSN)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := postgres.EnsureSchema(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ensure schema: %w", err)
	}
	searches := postgres.NewSearchRepository(db)
	history := postgres.NewHistoryRepository(db)

	queue, err := nats.New(cfg.NATSURL, cfg.NATSSubject)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("init message queue: %w", err)
	}

	executor := resilience.NewExecutor(resilience.DefaultConfig())

	geminiClient := gemini.New(cfg.GeminiBaseURL, cfg.GeminiAPIKey, cfg.GeminiModel, executor)
	extractor := gemini.NewExtractor(geminiClient, gemini.GenerationOptions{
		Temperature:     cfg.ExtractTemperature,
		MaxOutputTokens: cfg.ExtractMaxTokens,
	})
	synthesizer := gemini.NewSynthesizer(geminiClient, gemini.GenerationOptions{
		Temperature:     cfg.SummaryTemperature,
		MaxOutputTokens: cfg.SummaryMaxTokens,
	})

	labels := fda.New(cfg.OpenFDABaseURL, executor)

	common, uncommon, rare := cfg.FallbackSplit()
	analyzeUC := usecase.NewAnalyzeUseCase(
		extractor,
		labels,
		synthesizer,
		searches,
		history,
		queue,
		usecase.AnalysisDefaults{
			Confidence:    cfg.DefaultConfidence,
			FallbackSplit: domain.FrequencySplit{Common: common, Uncommon: uncommon, Rare: rare},
		},
	)
	historyUC := usecase.NewHistoryUseCase(history, searches, cfg.HistorySearchLimit)
	backfillUC := usecase.NewBackfillUseCase(
		searches,
		labels,
		time.Duration(cfg.BackfillWindowHours)*time.Hour,
		cfg.BackfillBatchSize,
	)

	return &App{
		Config: cfg,

		Queue:    queue,
		Searches: searches,
		History:  history,

		AnalyzeUC:  analyzeUC,
		HistoryUC:  historyUC,
		BackfillUC: backfillUC,

		closeFn: func() {
			queue.Close()
			_ = db.Close()
		},
	}, nil
}

func (a *App) Close() {
	if a.closeFn != nil {
		a.closeFn()
	}
}
