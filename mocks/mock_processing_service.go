package mocks

import (
	"context"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"actflow/internal/domain"
	"actflow/internal/service"
)

// MockProcessingService is a mock implementation of service.ProcessingService.
type MockProcessingService struct {
	mock.Mock
}

func (m *MockProcessingService) Upload(ctx context.Context, input service.UploadInput) (*domain.File, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.File), args.Error(1)
}

func (m *MockProcessingService) GetFile(ctx context.Context, fileID uuid.UUID) (*domain.File, error) {
	args := m.Called(ctx, fileID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.File), args.Error(1)
}

func (m *MockProcessingService) GetResult(ctx context.Context, fileID uuid.UUID) (*domain.ProcessingResult, error) {
	args := m.Called(ctx, fileID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ProcessingResult), args.Error(1)
}

func (m *MockProcessingService) GetDownloadURL(ctx context.Context, fileID uuid.UUID) (string, error) {
	args := m.Called(ctx, fileID)
	return args.String(0), args.Error(1)
}

func (m *MockProcessingService) Reprocess(ctx context.Context, fileID uuid.UUID) (*domain.File, error) {
	args := m.Called(ctx, fileID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.File), args.Error(1)
}

func (m *MockProcessingService) ProcessQueued(ctx context.Context, file *domain.File) (*domain.ProcessingResult, error) {
	args := m.Called(ctx, file)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ProcessingResult), args.Error(1)
}

func (m *MockProcessingService) ProcessSync(ctx context.Context, input service.ProcessSyncInput) (map[string]any, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[string]any), args.Error(1)
}

func (m *MockProcessingService) ExportFile(ctx context.Context, fileID uuid.UUID, format string) (*service.ExportOutput, error) {
	args := m.Called(ctx, fileID, format)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.ExportOutput), args.Error(1)
}

func (m *MockProcessingService) ExportBatch(ctx context.Context, batchID uuid.UUID, format string) (*service.ExportOutput, error) {
	args := m.Called(ctx, batchID, format)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.ExportOutput), args.Error(1)
}
