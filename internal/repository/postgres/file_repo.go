package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"actflow/internal/domain"
	"actflow/internal/port"
)

type fileRepo struct {
	db *sqlx.DB
}

// NewFileRepo creates a new PostgreSQL-backed FileRepository.
func NewFileRepo(db *sqlx.DB) port.FileRepository {
	return &fileRepo{db: db}
}

func (r *fileRepo) Create(ctx context.Context, file *domain.File) error {
	now := time.Now().UTC()
	file.CreatedAt = now
	file.UpdatedAt = now

	query := `INSERT INTO files
		(id, batch_id, file_type_id, original_name, s3_bucket, s3_key, content_type,
		 file_size, status, attempts, last_error, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`

	_, err := r.db.ExecContext(ctx, query,
		file.ID, file.BatchID, file.FileTypeID, file.OriginalName, file.S3Bucket, file.S3Key,
		file.ContentType, file.FileSize, file.Status, file.Attempts, file.LastError,
		file.CreatedAt, file.UpdatedAt)
	if err != nil {
		return fmt.Errorf("fileRepo.Create: %w", err)
	}
	return nil
}

func (r *fileRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.File, error) {
	var file domain.File
	err := r.db.GetContext(ctx, &file, "SELECT * FROM files WHERE id = $1", id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("fileRepo.GetByID: %w", err)
	}
	return &file, nil
}

func (r *fileRepo) ListByBatch(ctx context.Context, batchID uuid.UUID) ([]domain.File, error) {
	var files []domain.File
	err := r.db.SelectContext(ctx, &files,
		"SELECT * FROM files WHERE batch_id = $1 ORDER BY created_at", batchID)
	if err != nil {
		return nil, fmt.Errorf("fileRepo.ListByBatch: %w", err)
	}
	return files, nil
}

func (r *fileRepo) UpdateStatus(ctx context.Context, id uuid.UUID, status domain.FileStatus, lastError string) error {
	result, err := r.db.ExecContext(ctx,
		"UPDATE files SET status = $1, last_error = $2, updated_at = $3 WHERE id = $4",
		status, lastError, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("fileRepo.UpdateStatus: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// ClaimQueued uses SKIP LOCKED so concurrent workers never claim the same row.
func (r *fileRepo) ClaimQueued(ctx context.Context, limit int) ([]domain.File, error) {
	var files []domain.File
	err := r.db.SelectContext(ctx, &files,
		`UPDATE files SET status = $1, attempts = attempts + 1, updated_at = $2
		 WHERE id IN (
			SELECT id FROM files
			WHERE status = $3
			ORDER BY updated_at
			LIMIT $4
			FOR UPDATE SKIP LOCKED
		 )
		 RETURNING *`,
		domain.FileStatusProcessing, time.Now().UTC(), domain.FileStatusQueued, limit)
	if err != nil {
		return nil, fmt.Errorf("fileRepo.ClaimQueued: %w", err)
	}
	return files, nil
}

func (r *fileRepo) Requeue(ctx context.Context, id uuid.UUID, lastError string) error {
	result, err := r.db.ExecContext(ctx,
		"UPDATE files SET status = $1, last_error = $2, updated_at = $3 WHERE id = $4",
		domain.FileStatusQueued, lastError, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("fileRepo.Requeue: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return domain.ErrNotFound
	}
	return nil
}
