package mocks

import (
	"context"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"actflow/internal/domain"
)

// MockFileTypeRepo is a mock implementation of port.FileTypeRepository.
type MockFileTypeRepo struct {
	mock.Mock
}

func (m *MockFileTypeRepo) Create(ctx context.Context, ft *domain.FileType) error {
	args := m.Called(ctx, ft)
	return args.Error(0)
}

func (m *MockFileTypeRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.FileType, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.FileType), args.Error(1)
}

func (m *MockFileTypeRepo) GetByName(ctx context.Context, name string) (*domain.FileType, error) {
	args := m.Called(ctx, name)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.FileType), args.Error(1)
}

func (m *MockFileTypeRepo) List(ctx context.Context) ([]domain.FileType, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.FileType), args.Error(1)
}

func (m *MockFileTypeRepo) Update(ctx context.Context, ft *domain.FileType) error {
	args := m.Called(ctx, ft)
	return args.Error(0)
}

func (m *MockFileTypeRepo) Delete(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}
