package mocks

import (
	"context"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"actflow/internal/domain"
	"actflow/internal/service"
)

// MockFileTypeService is a mock implementation of service.FileTypeService.
type MockFileTypeService struct {
	mock.Mock
}

func (m *MockFileTypeService) Create(ctx context.Context, input service.FileTypeInput) (*domain.FileType, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.FileType), args.Error(1)
}

func (m *MockFileTypeService) GetByID(ctx context.Context, id uuid.UUID) (*domain.FileType, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.FileType), args.Error(1)
}

func (m *MockFileTypeService) List(ctx context.Context) ([]domain.FileType, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.FileType), args.Error(1)
}

func (m *MockFileTypeService) Update(ctx context.Context, id uuid.UUID, input service.FileTypeInput) (*domain.FileType, error) {
	args := m.Called(ctx, id, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.FileType), args.Error(1)
}

func (m *MockFileTypeService) Delete(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}
