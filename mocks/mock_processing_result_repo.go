package mocks

import (
	"context"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"actflow/internal/domain"
)

// MockProcessingResultRepo is a mock implementation of port.ProcessingResultRepository.
type MockProcessingResultRepo struct {
	mock.Mock
}

func (m *MockProcessingResultRepo) Create(ctx context.Context, result *domain.ProcessingResult) error {
	args := m.Called(ctx, result)
	return args.Error(0)
}

func (m *MockProcessingResultRepo) GetLatestByFile(ctx context.Context, fileID uuid.UUID) (*domain.ProcessingResult, error) {
	args := m.Called(ctx, fileID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ProcessingResult), args.Error(1)
}

func (m *MockProcessingResultRepo) ListLatestByBatch(ctx context.Context, batchID uuid.UUID) ([]domain.ProcessingResult, error) {
	args := m.Called(ctx, batchID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.ProcessingResult), args.Error(1)
}
