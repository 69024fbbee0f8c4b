package port

import (
	"context"

	"github.com/google/uuid"

	"actflow/internal/domain"
)

// FileTypeRepository defines the contract for file type persistence.
type FileTypeRepository interface {
	Create(ctx context.Context, ft *domain.FileType) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.FileType, error)
	GetByName(ctx context.Context, name string) (*domain.FileType, error)
	List(ctx context.Context) ([]domain.FileType, error)
	Update(ctx context.Context, ft *domain.FileType) error
	Delete(ctx context.Context, id uuid.UUID) error
}

// BatchRepository defines the contract for batch persistence.
type BatchRepository interface {
	Create(ctx context.Context, batch *domain.Batch) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Batch, error)
	List(ctx context.Context, offset, limit int) ([]domain.Batch, int, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status domain.BatchStatus) error
	IncrementFileCount(ctx context.Context, id uuid.UUID) error
}

// FileRepository defines the contract for uploaded file persistence.
type FileRepository interface {
	Create(ctx context.Context, file *domain.File) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.File, error)
	ListByBatch(ctx context.Context, batchID uuid.UUID) ([]domain.File, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status domain.FileStatus, lastError string) error
	// ClaimQueued atomically moves up to limit queued files to processing and
	// returns them.
	ClaimQueued(ctx context.Context, limit int) ([]domain.File, error)
	// Requeue puts a claimed file back in the queue, recording why.
	Requeue(ctx context.Context, id uuid.UUID, lastError string) error
}

// ProcessingResultRepository defines the contract for pipeline result persistence.
type ProcessingResultRepository interface {
	Create(ctx context.Context, result *domain.ProcessingResult) error
	GetLatestByFile(ctx context.Context, fileID uuid.UUID) (*domain.ProcessingResult, error)
	ListLatestByBatch(ctx context.Context, batchID uuid.UUID) ([]domain.ProcessingResult, error)
}
