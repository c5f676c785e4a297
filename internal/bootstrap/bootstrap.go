package bootstrap

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/openclinic/docpipeline/internal/config"
	"github.com/openclinic/docpipeline/internal/core/ports"
	"github.com/openclinic/docpipeline/internal/core/usecase"
	"github.com/openclinic/docpipeline/internal/infrastructure/ai/ollama"
	"github.com/openclinic/docpipeline/internal/infrastructure/ai/whisper"
	"github.com/openclinic/docpipeline/internal/infrastructure/compress"
	"github.com/openclinic/docpipeline/internal/infrastructure/events"
	"github.com/openclinic/docpipeline/internal/infrastructure/extractor"
	"github.com/openclinic/docpipeline/internal/infrastructure/extractor/archive"
	"github.com/openclinic/docpipeline/internal/infrastructure/extractor/audio"
	"github.com/openclinic/docpipeline/internal/infrastructure/extractor/csvfile"
	"github.com/openclinic/docpipeline/internal/infrastructure/extractor/msword"
	"github.com/openclinic/docpipeline/internal/infrastructure/extractor/pdffile"
	"github.com/openclinic/docpipeline/internal/infrastructure/extractor/plaintext"
	"github.com/openclinic/docpipeline/internal/infrastructure/extractor/rasterimage"
	"github.com/openclinic/docpipeline/internal/infrastructure/extractor/spreadsheet"
	"github.com/openclinic/docpipeline/internal/infrastructure/queue/nats"
	"github.com/openclinic/docpipeline/internal/infrastructure/repository/postgres"
	"github.com/openclinic/docpipeline/internal/infrastructure/resilience"
	"github.com/openclinic/docpipeline/internal/infrastructure/storage/localfs"
	"github.com/openclinic/docpipeline/internal/observability/metrics"
)

type App struct {
	Config config.Config

	Processor ports.FileProcessor
	Batch     ports.BatchProcessor
	Store     ports.DocumentStore
	Bus       *events.Bus
	Metrics   *metrics.PipelineMetrics

	closeFn func()
}

func New(ctx context.Context, cfg config.Config) (*App, error) {
	db, err := postgres.OpenDB(cfg.PostgresDSN)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	repo := postgres.NewDocumentRepository(db)
	if err := repo.EnsureSchema(ctx); err != nil {
		return nil, fmt.Errorf("ensure schema: %w", err)
	}

	storage, err := localfs.New(cfg.StoragePath)
	if err != nil {
		return nil, fmt.Errorf("init blob storage: %w", err)
	}

	sink, err := nats.New(cfg.NATSURL, cfg.NATSSubject)
	if err != nil {
		return nil, fmt.Errorf("init progress sink: %w", err)
	}

	executor := resilience.NewExecutor(resilience.DefaultConfig())
	ollamaClient := ollama.New(cfg.OllamaURL, cfg.OllamaGenModel, cfg.OllamaVisionModel, executor)
	summarizer := ollama.NewSummarizer(ollamaClient)
	vision := ollama.NewVision(ollamaClient)
	transcriber := whisper.New(cfg.WhisperURL)

	registry := extractor.NewRegistry()
	registerExtractors(registry, vision, transcriber, cfg)

	bus := events.NewBus()
	pipelineMetrics := metrics.NewPipelineMetrics("api")

	pipeline := usecase.NewPipeline(
		storage,
		registry,
		compress.NewGzip(),
		repo,
		summarizer,
		events.Fanout{bus, sink},
		usecase.PipelineConfig{
			MaxFileSize:          cfg.MaxFileSizeBytes,
			CompressionThreshold: cfg.CompressionThresholdBytes,
			StoredTextMaxChars:   cfg.StoredTextMaxChars,
		},
		pipelineMetrics,
	)

	batch := usecase.NewBatchOrchestrator(pipeline, usecase.BatchConfig{
		MaxConcurrent: cfg.MaxConcurrent,
		MaxRetries:    cfg.MaxRetries,
		RetryBackoff:  time.Duration(cfg.RetryBackoffMS) * time.Millisecond,
	}, pipelineMetrics)

	return &App{
		Config: cfg,

		Processor: pipeline,
		Batch:     batch,
		Store:     repo,
		Bus:       bus,
		Metrics:   pipelineMetrics,

		closeFn: func() {
			bus.Close()
			sink.Close()
			_ = db.Close()
		},
	}, nil
}

func registerExtractors(registry *extractor.Registry, vision ports.VisionOCR, transcriber ports.Transcriber, cfg config.Config) {
	plain := plaintext.New()
	registry.Register("txt", plain)
	registry.Register("md", plain)
	registry.Register("log", plain)

	registry.Register("pdf", pdffile.New())
	registry.Register("docx", msword.New())
	registry.Register("xlsx", spreadsheet.New())
	registry.Register("csv", csvfile.New())

	imageExtractor := rasterimage.New(vision)
	registry.Register("jpg", imageExtractor)
	registry.Register("jpeg", imageExtractor)
	registry.Register("png", imageExtractor)

	audioExtractor := audio.New(transcriber, cfg.AudioMaxSizeBytes)
	registry.Register("mp3", audioExtractor)
	registry.Register("wav", audioExtractor)
	registry.Register("m4a", audioExtractor)
	registry.Register("ogg", audioExtractor)

	registry.Register("zip", archive.New(registry, filepath.Join(cfg.StoragePath, "scratch")))
}

func (a *App) Close() {
	if a.closeFn != nil {
		a.closeFn()
	}
}
