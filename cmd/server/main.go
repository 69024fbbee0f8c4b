package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"actflow/internal/config"
	"actflow/internal/extractor"
	"actflow/internal/handler"
	"actflow/internal/llm"
	_ "actflow/internal/llm/claude"
	_ "actflow/internal/llm/gemini"
	_ "actflow/internal/llm/openai"
	"actflow/internal/logging"
	"actflow/internal/metrics"
	"actflow/internal/pdf"
	"actflow/internal/pipeline"
	"actflow/internal/postprocess"
	"actflow/internal/repository/postgres"
	"actflow/internal/router"
	"actflow/internal/service"
	s3storage "actflow/internal/storage/s3"
	"actflow/internal/validator"
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	logger := logging.New(cfg.Log)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := postgres.NewDB(&cfg.DB)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer func() { _ = db.Close() }()

	// Initialize repositories
	fileTypeRepo := postgres.NewFileTypeRepo(db)
	batchRepo := postgres.NewBatchRepo(db)
	fileRepo := postgres.NewFileRepo(db)
	resultRepo := postgres.NewProcessingResultRepo(db)

	// Initialize storage
	store, err := s3storage.NewStorage(ctx, &cfg.S3)
	if err != nil {
		return fmt.Errorf("failed to initialize S3 storage: %w", err)
	}

	// Initialize the document pipeline
	m := metrics.NewPipelineMetrics()
	llmClient, err := llm.NewFromConfig(&cfg.LLM, m, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize LLM client: %w", err)
	}
	engine := pdf.NewEngine(cfg.PDF, logger)
	processor := pipeline.NewProcessor(
		extractor.New(engine, cfg.PDF.Zoom, logger),
		llmClient,
		validator.NewEngine(validator.DefaultRegistry(), logger),
		pipeline.Config{Model: cfg.Pipeline.Model, PageConcurrency: cfg.Pipeline.PageConcurrency},
		m,
		logger,
	)

	// Initialize services
	fileTypeSvc := service.NewFileTypeService(fileTypeRepo, logger)
	batchSvc := service.NewBatchService(batchRepo, fileRepo, fileTypeRepo, logger)
	processingSvc := service.NewProcessingService(service.ProcessingDeps{
		Files:     fileRepo,
		Batches:   batchRepo,
		FileTypes: fileTypeRepo,
		Results:   resultRepo,
		Storage:   store,
		Pipeline:  processor,
		Refiners:  postprocess.DefaultRegistry(),
	}, &cfg.S3, &cfg.Queue, logger)

	// Setup router
	r := router.Setup(router.Handlers{
		Health:   handler.NewHealthHandler(db),
		FileType: handler.NewFileTypeHandler(fileTypeSvc),
		Batch:    handler.NewBatchHandler(batchSvc, processingSvc),
		File:     handler.NewFileHandler(processingSvc),
		Metrics:  m.Handler(),
	}, logger)

	srv := &http.Server{
		Addr:         cfg.Server.Port,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	worker := service.NewQueueWorker(fileRepo, processingSvc, service.QueueConfig{
		PollInterval:    time.Duration(cfg.Queue.PollIntervalSecs) * time.Second,
		Concurrency:     cfg.Queue.Concurrency,
		DocumentTimeout: cfg.Pipeline.DocumentTimeout(),
	}, m, logger)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		worker.Start(ctx)
	}()

	serveErr := make(chan error, 1)
	go func() {
		logger.Info("server starting", "addr", cfg.Server.Port, "environment", cfg.Server.Environment)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		stop()
		wg.Wait()
		if err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown failed", "error", err)
	}
	wg.Wait()
	logger.Info("shutdown complete")
	return nil
}
