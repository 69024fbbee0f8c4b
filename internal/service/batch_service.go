package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"actflow/internal/domain"
	"actflow/internal/port"
)

// CreateBatchInput is the DTO for batch creation. FileType accepts either a
// file type ID or its name.
type CreateBatchInput struct {
	Name     string `json:"name"`
	FileType string `json:"file_type"`
}

// BatchWithFiles is a batch together with its files.
type BatchWithFiles struct {
	domain.Batch
	Files []domain.File `json:"files"`
}

// BatchService defines the batch management contract.
type BatchService interface {
	Create(ctx context.Context, input CreateBatchInput) (*domain.Batch, error)
	Get(ctx context.Context, id uuid.UUID) (*BatchWithFiles, error)
	List(ctx context.Context, offset, limit int) ([]domain.Batch, int, error)
	Close(ctx context.Context, id uuid.UUID) error
}

type batchService struct {
	batchRepo    port.BatchRepository
	fileRepo     port.FileRepository
	fileTypeRepo port.FileTypeRepository
	logger       *slog.Logger
}

// NewBatchService creates a new BatchService implementation.
func NewBatchService(
	batchRepo port.BatchRepository,
	fileRepo port.FileRepository,
	fileTypeRepo port.FileTypeRepository,
	logger *slog.Logger,
) BatchService {
	return &batchService{
		batchRepo:    batchRepo,
		fileRepo:     fileRepo,
		fileTypeRepo: fileTypeRepo,
		logger:       logger,
	}
}

func (s *batchService) Create(ctx context.Context, input CreateBatchInput) (*domain.Batch, error) {
	ft, err := resolveFileType(ctx, s.fileTypeRepo, input.FileType)
	if err != nil {
		return nil, err
	}

	name := strings.TrimSpace(input.Name)
	if name == "" {
		name = fmt.Sprintf("%s batch", ft.Name)
	}
	batch := &domain.Batch{
		ID:         uuid.New(),
		Name:       name,
		FileTypeID: ft.ID,
		Status:     domain.BatchStatusOpen,
	}
	if err := s.batchRepo.Create(ctx, batch); err != nil {
		return nil, err
	}
	s.logger.Info("batchService.Create: batch created", "batch_id", batch.ID, "file_type", ft.Name)
	return batch, nil
}

func (s *batchService) Get(ctx context.Context, id uuid.UUID) (*BatchWithFiles, error) {
	batch, err := s.batchRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	files, err := s.fileRepo.ListByBatch(ctx, id)
	if err != nil {
		return nil, err
	}
	if files == nil {
		files = []domain.File{}
	}
	return &BatchWithFiles{Batch: *batch, Files: files}, nil
}

func (s *batchService) List(ctx context.Context, offset, limit int) ([]domain.Batch, int, error) {
	return s.batchRepo.List(ctx, offset, limit)
}

func (s *batchService) Close(ctx context.Context, id uuid.UUID) error {
	return s.batchRepo.UpdateStatus(ctx, id, domain.BatchStatusClosed)
}

// resolveFileType looks a file type up by ID when ref parses as a UUID and by
// name otherwise.
func resolveFileType(ctx context.Context, repo port.FileTypeRepository, ref string) (*domain.FileType, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return nil, domain.ErrFileTypeNotFound
	}
	if id, err := uuid.Parse(ref); err == nil {
		return repo.GetByID(ctx, id)
	}
	return repo.GetByName(ctx, ref)
}
