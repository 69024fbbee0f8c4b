package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"actflow/internal/domain"
	"actflow/internal/metrics"
	"actflow/internal/port"
)

// QueueConfig holds settings for the queue worker.
type QueueConfig struct {
	PollInterval    time.Duration
	Concurrency     int
	DocumentTimeout time.Duration
}

// QueueWorker polls for queued files and dispatches them for processing.
type QueueWorker struct {
	fileRepo   port.FileRepository
	processing ProcessingService
	cfg        QueueConfig
	metrics    *metrics.PipelineMetrics
	logger     *slog.Logger
	wg         sync.WaitGroup
}

// NewQueueWorker creates a new QueueWorker.
func NewQueueWorker(
	fileRepo port.FileRepository,
	processing ProcessingService,
	cfg QueueConfig,
	m *metrics.PipelineMetrics,
	logger *slog.Logger,
) *QueueWorker {
	if cfg.Concurrency < 1 {
		cfg.Concurrency = 1
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 5 * time.Second
	}
	if cfg.DocumentTimeout <= 0 {
		cfg.DocumentTimeout = 10 * time.Minute
	}
	return &QueueWorker{
		fileRepo:   fileRepo,
		processing: processing,
		cfg:        cfg,
		metrics:    m,
		logger:     logger,
	}
}

// Start runs the polling loop until ctx is canceled. It blocks until all
// in-flight files have finished.
func (w *QueueWorker) Start(ctx context.Context) {
	ticker := time.NewTicker(w.cfg.PollInterval)
	defer ticker.Stop()

	sem := make(chan struct{}, w.cfg.Concurrency)

	w.logger.Info("queueWorker: started",
		"poll", w.cfg.PollInterval, "concurrency", w.cfg.Concurrency, "timeout", w.cfg.DocumentTimeout)

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("queueWorker: shutting down, waiting for in-flight files")
			w.wg.Wait()
			w.logger.Info("queueWorker: shutdown complete")
			return
		case <-ticker.C:
			w.poll(ctx, sem)
		}
	}
}

func (w *QueueWorker) poll(ctx context.Context, sem chan struct{}) {
	available := w.cfg.Concurrency - len(sem)
	if available <= 0 {
		return
	}

	files, err := w.fileRepo.ClaimQueued(ctx, available)
	if err != nil {
		if ctx.Err() == nil {
			w.logger.Error("queueWorker: ClaimQueued failed", "error", err)
		}
		return
	}

	for i := range files {
		file := files[i]

		sem <- struct{}{}
		w.wg.Add(1)
		go func() {
			defer w.wg.Done()
			defer func() { <-sem }()
			w.dispatch(&file)
		}()
	}
}

// dispatch uses a context independent of the poll context so in-flight files
// complete during shutdown.
func (w *QueueWorker) dispatch(file *domain.File) {
	defer func() {
		if r := recover(); r != nil {
			w.logger.Error("queueWorker: processing panicked", "file_id", file.ID, "panic", r)
			w.metrics.ObserveQueueOutcome("failed")
			if err := w.fileRepo.UpdateStatus(context.Background(), file.ID, domain.FileStatusFailed, fmt.Sprint(r)); err != nil {
				w.logger.Error("queueWorker: marking panicked file failed", "file_id", file.ID, "error", err)
			}
		}
	}()

	ctx, cancel := context.WithTimeout(context.Background(), w.cfg.DocumentTimeout)
	defer cancel()

	w.logger.Info("queueWorker: dispatching file", "file_id", file.ID, "attempt", file.Attempts)
	result, err := w.processing.ProcessQueued(ctx, file)
	switch {
	case errors.Is(err, ErrRequeued):
		w.metrics.ObserveQueueOutcome("requeued")
	case err != nil:
		w.logger.Error("queueWorker: processing failed", "file_id", file.ID, "error", err)
		w.metrics.ObserveQueueOutcome("failed")
	case result.Status == domain.ResultStatusFailed:
		w.metrics.ObserveQueueOutcome("failed")
	default:
		w.metrics.ObserveQueueOutcome("completed")
	}
}
