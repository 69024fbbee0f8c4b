package service_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"actflow/internal/domain"
	"actflow/internal/logging"
	"actflow/internal/metrics"
	"actflow/internal/service"
	"actflow/mocks"
)

func runWorker(t *testing.T, w *service.QueueWorker, d time.Duration) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		w.Start(ctx)
		close(done)
	}()
	time.Sleep(d)
	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("worker did not shut down")
	}
}

func scrape(m *metrics.PipelineMetrics) string {
	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	return rec.Body.String()
}

func TestQueueWorker_PollsAndDispatches(t *testing.T) {
	fileRepo := new(mocks.MockFileRepo)
	svc := new(mocks.MockProcessingService)
	m := metrics.NewPipelineMetrics()

	file := domain.File{ID: uuid.New(), Status: domain.FileStatusProcessing, Attempts: 1}
	fileRepo.On("ClaimQueued", mock.Anything, mock.AnythingOfType("int")).
		Return([]domain.File{file}, nil).Once()
	fileRepo.On("ClaimQueued", mock.Anything, mock.AnythingOfType("int")).
		Return([]domain.File{}, nil).Maybe()
	svc.On("ProcessQueued", mock.Anything, mock.MatchedBy(func(f *domain.File) bool { return f.ID == file.ID })).
		Return(&domain.ProcessingResult{Status: domain.ResultStatusSuccess}, nil).Once()

	w := service.NewQueueWorker(fileRepo, svc, service.QueueConfig{
		PollInterval: 20 * time.Millisecond,
		Concurrency:  2,
	}, m, logging.Discard())

	runWorker(t, w, 150*time.Millisecond)

	svc.AssertExpectations(t)
	assert.Contains(t, scrape(m), `actflow_queue_files_total{outcome="completed"} 1`)
}

func TestQueueWorker_RespectsConcurrencyCap(t *testing.T) {
	fileRepo := new(mocks.MockFileRepo)
	svc := new(mocks.MockProcessingService)
	cfg := service.QueueConfig{PollInterval: 20 * time.Millisecond, Concurrency: 3}

	fileRepo.On("ClaimQueued", mock.Anything, mock.AnythingOfType("int")).
		Return([]domain.File{}, nil).Maybe()

	w := service.NewQueueWorker(fileRepo, svc, cfg, nil, logging.Discard())
	runWorker(t, w, 100*time.Millisecond)

	for _, call := range fileRepo.Calls {
		if call.Method == "ClaimQueued" {
			assert.LessOrEqual(t, call.Arguments.Get(1).(int), cfg.Concurrency)
		}
	}
}

func TestQueueWorker_Outcomes(t *testing.T) {
	fileRepo := new(mocks.MockFileRepo)
	svc := new(mocks.MockProcessingService)
	m := metrics.NewPipelineMetrics()

	requeued := domain.File{ID: uuid.New()}
	broken := domain.File{ID: uuid.New()}
	failedRun := domain.File{ID: uuid.New()}
	fileRepo.On("ClaimQueued", mock.Anything, mock.AnythingOfType("int")).
		Return([]domain.File{requeued, broken, failedRun}, nil).Once()
	fileRepo.On("ClaimQueued", mock.Anything, mock.AnythingOfType("int")).
		Return([]domain.File{}, nil).Maybe()

	byID := func(id uuid.UUID) any {
		return mock.MatchedBy(func(f *domain.File) bool { return f.ID == id })
	}
	svc.On("ProcessQueued", mock.Anything, byID(requeued.ID)).Return(nil, service.ErrRequeued)
	svc.On("ProcessQueued", mock.Anything, byID(broken.ID)).Return(nil, errors.New("download failed"))
	svc.On("ProcessQueued", mock.Anything, byID(failedRun.ID)).
		Return(&domain.ProcessingResult{Status: domain.ResultStatusFailed}, nil)

	w := service.NewQueueWorker(fileRepo, svc, service.QueueConfig{
		PollInterval: 20 * time.Millisecond,
		Concurrency:  3,
	}, m, logging.Discard())
	runWorker(t, w, 150*time.Millisecond)

	body := scrape(m)
	assert.Contains(t, body, `actflow_queue_files_total{outcome="requeued"} 1`)
	assert.Contains(t, body, `actflow_queue_files_total{outcome="failed"} 2`)
}

func TestQueueWorker_ClaimErrorKeepsPolling(t *testing.T) {
	fileRepo := new(mocks.MockFileRepo)
	svc := new(mocks.MockProcessingService)

	fileRepo.On("ClaimQueued", mock.Anything, mock.AnythingOfType("int")).
		Return(nil, errors.New("db down")).Once()
	fileRepo.On("ClaimQueued", mock.Anything, mock.AnythingOfType("int")).
		Return([]domain.File{}, nil).Maybe()

	w := service.NewQueueWorker(fileRepo, svc, service.QueueConfig{PollInterval: 20 * time.Millisecond}, nil, logging.Discard())
	runWorker(t, w, 100*time.Millisecond)

	claims := 0
	for _, call := range fileRepo.Calls {
		if call.Method == "ClaimQueued" {
			claims++
		}
	}
	require.GreaterOrEqual(t, claims, 2)
}

func TestQueueWorker_PanicMarksFileFailed(t *testing.T) {
	fileRepo := new(mocks.MockFileRepo)
	svc := new(mocks.MockProcessingService)
	m := metrics.NewPipelineMetrics()

	file := domain.File{ID: uuid.New(), Status: domain.FileStatusProcessing, Attempts: 1}
	fileRepo.On("ClaimQueued", mock.Anything, mock.AnythingOfType("int")).
		Return([]domain.File{file}, nil).Once()
	fileRepo.On("ClaimQueued", mock.Anything, mock.AnythingOfType("int")).
		Return([]domain.File{}, nil).Maybe()
	fileRepo.On("UpdateStatus", mock.Anything, file.ID, domain.FileStatusFailed, "boom").Return(nil).Once()
	svc.On("ProcessQueued", mock.Anything, mock.Anything).Panic("boom")

	w := service.NewQueueWorker(fileRepo, svc, service.QueueConfig{
		PollInterval: 20 * time.Millisecond,
		Concurrency:  1,
	}, m, logging.Discard())
	runWorker(t, w, 150*time.Millisecond)

	fileRepo.AssertExpectations(t)
	assert.Contains(t, scrape(m), `actflow_queue_files_total{outcome="failed"} 1`)
}
