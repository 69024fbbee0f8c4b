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

type fileTypeRepo struct {
	db *sqlx.DB
}

// NewFileTypeRepo creates a new PostgreSQL-backed FileTypeRepository.
func NewFileTypeRepo(db *sqlx.DB) port.FileTypeRepository {
	return &fileTypeRepo{db: db}
}

func (r *fileTypeRepo) Create(ctx context.Context, ft *domain.FileType) error {
	now := time.Now().UTC()
	ft.CreatedAt = now
	ft.UpdatedAt = now

	query := `INSERT INTO file_types
		(id, name, description, processing_prompts, processor_type, processing_mode,
		 verification_enabled, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

	_, err := r.db.ExecContext(ctx, query,
		ft.ID, ft.Name, ft.Description, jsonOr(ft.ProcessingPrompts, "{}"), ft.ProcessorType,
		ft.ProcessingMode, ft.VerificationEnabled, ft.CreatedAt, ft.UpdatedAt)
	if err != nil {
		if isDuplicateKey(err) {
			return domain.ErrDuplicateFileType
		}
		return fmt.Errorf("fileTypeRepo.Create: %w", err)
	}
	return nil
}

func (r *fileTypeRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.FileType, error) {
	var ft domain.FileType
	err := r.db.GetContext(ctx, &ft, "SELECT * FROM file_types WHERE id = $1", id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrFileTypeNotFound
		}
		return nil, fmt.Errorf("fileTypeRepo.GetByID: %w", err)
	}
	return &ft, nil
}

func (r *fileTypeRepo) GetByName(ctx context.Context, name string) (*domain.FileType, error) {
	var ft domain.FileType
	err := r.db.GetContext(ctx, &ft, "SELECT * FROM file_types WHERE name = $1", name)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrFileTypeNotFound
		}
		return nil, fmt.Errorf("fileTypeRepo.GetByName: %w", err)
	}
	return &ft, nil
}

func (r *fileTypeRepo) List(ctx context.Context) ([]domain.FileType, error) {
	var types []domain.FileType
	if err := r.db.SelectContext(ctx, &types, "SELECT * FROM file_types ORDER BY name"); err != nil {
		return nil, fmt.Errorf("fileTypeRepo.List: %w", err)
	}
	return types, nil
}

func (r *fileTypeRepo) Update(ctx context.Context, ft *domain.FileType) error {
	ft.UpdatedAt = time.Now().UTC()
	result, err := r.db.ExecContext(ctx,
		`UPDATE file_types SET name = $1, description = $2, processing_prompts = $3,
		 processor_type = $4, processing_mode = $5, verification_enabled = $6, updated_at = $7
		 WHERE id = $8`,
		ft.Name, ft.Description, jsonOr(ft.ProcessingPrompts, "{}"), ft.ProcessorType,
		ft.ProcessingMode, ft.VerificationEnabled, ft.UpdatedAt, ft.ID)
	if err != nil {
		if isDuplicateKey(err) {
			return domain.ErrDuplicateFileType
		}
		return fmt.Errorf("fileTypeRepo.Update: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return domain.ErrFileTypeNotFound
	}
	return nil
}

func (r *fileTypeRepo) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := r.db.ExecContext(ctx, "DELETE FROM file_types WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("fileTypeRepo.Delete: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return domain.ErrFileTypeNotFound
	}
	return nil
}

// jsonOr substitutes def for empty raw JSON; the JSONB columns are NOT NULL.
func jsonOr(raw []byte, def string) []byte {
	if len(raw) == 0 {
		return []byte(def)
	}
	return raw
}
