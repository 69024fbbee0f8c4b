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

type processingResultRepo struct {
	db *sqlx.DB
}

// NewProcessingResultRepo creates a new PostgreSQL-backed ProcessingResultRepository.
func NewProcessingResultRepo(db *sqlx.DB) port.ProcessingResultRepository {
	return &processingResultRepo{db: db}
}

func (r *processingResultRepo) Create(ctx context.Context, res *domain.ProcessingResult) error {
	res.CreatedAt = time.Now().UTC()

	query := `INSERT INTO processing_results
		(id, file_id, status, error, processing_mode, result, validation_errors,
		 pages_processed, total_pages, duration_ms, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`

	_, err := r.db.ExecContext(ctx, query,
		res.ID, res.FileID, res.Status, res.Error, res.ProcessingMode,
		jsonOr(res.Result, "{}"), jsonOr(res.ValidationErrors, "[]"),
		res.PagesProcessed, res.TotalPages, res.DurationMS, res.CreatedAt)
	if err != nil {
		return fmt.Errorf("processingResultRepo.Create: %w", err)
	}
	return nil
}

func (r *processingResultRepo) GetLatestByFile(ctx context.Context, fileID uuid.UUID) (*domain.ProcessingResult, error) {
	var res domain.ProcessingResult
	err := r.db.GetContext(ctx, &res,
		`SELECT * FROM processing_results WHERE file_id = $1
		 ORDER BY created_at DESC LIMIT 1`, fileID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrResultNotFound
		}
		return nil, fmt.Errorf("processingResultRepo.GetLatestByFile: %w", err)
	}
	return &res, nil
}

func (r *processingResultRepo) ListLatestByBatch(ctx context.Context, batchID uuid.UUID) ([]domain.ProcessingResult, error) {
	var results []domain.ProcessingResult
	err := r.db.SelectContext(ctx, &results,
		`SELECT DISTINCT ON (pr.file_id) pr.*
		 FROM processing_results pr
		 JOIN files f ON f.id = pr.file_id
		 WHERE f.batch_id = $1
		 ORDER BY pr.file_id, pr.created_at DESC`, batchID)
	if err != nil {
		return nil, fmt.Errorf("processingResultRepo.ListLatestByBatch: %w", err)
	}
	return results, nil
}
