package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"
)

// MockPDFEngine is a mock implementation of port.PDFEngine.
type MockPDFEngine struct {
	mock.Mock
}

func (m *MockPDFEngine) PageCount(ctx context.Context, pdf []byte) (int, error) {
	args := m.Called(ctx, pdf)
	return args.Int(0), args.Error(1)
}

func (m *MockPDFEngine) RenderPage(ctx context.Context, pdf []byte, pageIndex int, zoom float64) ([]byte, error) {
	args := m.Called(ctx, pdf, pageIndex, zoom)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]byte), args.Error(1)
}

func (m *MockPDFEngine) PageText(ctx context.Context, pdf []byte, pageIndex int) (string, error) {
	args := m.Called(ctx, pdf, pageIndex)
	return args.String(0), args.Error(1)
}
