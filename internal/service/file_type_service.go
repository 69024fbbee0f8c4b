package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"actflow/internal/domain"
	"actflow/internal/port"
	"actflow/internal/validator"
)

// FileTypeInput is the DTO for creating or replacing a file type.
type FileTypeInput struct {
	Name                string          `json:"name"`
	Description         string          `json:"description"`
	ProcessingPrompts   json.RawMessage `json:"processing_prompts"`
	ProcessorType       string          `json:"processor_type"`
	ProcessingMode      string          `json:"processing_mode"`
	VerificationEnabled bool            `json:"verification_enabled"`
}

// FileTypeService defines the file type management contract.
type FileTypeService interface {
	Create(ctx context.Context, input FileTypeInput) (*domain.FileType, error)
	GetByID(ctx context.Context, id uuid.UUID) (*domain.FileType, error)
	List(ctx context.Context) ([]domain.FileType, error)
	Update(ctx context.Context, id uuid.UUID, input FileTypeInput) (*domain.FileType, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

type fileTypeService struct {
	repo   port.FileTypeRepository
	logger *slog.Logger
}

// NewFileTypeService creates a new FileTypeService implementation.
func NewFileTypeService(repo port.FileTypeRepository, logger *slog.Logger) FileTypeService {
	return &fileTypeService{repo: repo, logger: logger}
}

func (s *fileTypeService) Create(ctx context.Context, input FileTypeInput) (*domain.FileType, error) {
	ft := &domain.FileType{ID: uuid.New()}
	if err := applyFileTypeInput(ft, input); err != nil {
		return nil, err
	}
	if err := s.repo.Create(ctx, ft); err != nil {
		return nil, err
	}
	s.logger.Info("fileTypeService.Create: file type created",
		"file_type_id", ft.ID, "name", ft.Name, "processor_type", ft.ProcessorType)
	return ft, nil
}

func (s *fileTypeService) GetByID(ctx context.Context, id uuid.UUID) (*domain.FileType, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *fileTypeService) List(ctx context.Context) ([]domain.FileType, error) {
	return s.repo.List(ctx)
}

func (s *fileTypeService) Update(ctx context.Context, id uuid.UUID, input FileTypeInput) (*domain.FileType, error) {
	ft, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := applyFileTypeInput(ft, input); err != nil {
		return nil, err
	}
	if err := s.repo.Update(ctx, ft); err != nil {
		return nil, err
	}
	s.logger.Info("fileTypeService.Update: file type updated", "file_type_id", ft.ID, "name", ft.Name)
	return ft, nil
}

func (s *fileTypeService) Delete(ctx context.Context, id uuid.UUID) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.logger.Info("fileTypeService.Delete: file type deleted", "file_type_id", id)
	return nil
}

// applyFileTypeInput validates input and copies it onto ft.
func applyFileTypeInput(ft *domain.FileType, input FileTypeInput) error {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return fmt.Errorf("%w: name is required", domain.ErrInvalidFileType)
	}

	processor := domain.ProcessorType(strings.ToUpper(strings.TrimSpace(input.ProcessorType)))
	if processor == "" {
		processor = domain.ProcessorTypeCustom
	}
	if !domain.AllowedProcessorTypes[processor] {
		return fmt.Errorf("%w: unknown processor_type %q", domain.ErrInvalidFileType, input.ProcessorType)
	}

	mode := domain.ProcessingMode(strings.ToUpper(strings.TrimSpace(input.ProcessingMode)))
	if mode == "" {
		mode = domain.ProcessingModeImageOCR
	}
	if !mode.Valid() {
		return fmt.Errorf("%w: unknown processing_mode %q", domain.ErrInvalidFileType, input.ProcessingMode)
	}

	var bundle domain.PromptBundle
	if len(input.ProcessingPrompts) > 0 && string(input.ProcessingPrompts) != "null" {
		if err := json.Unmarshal(input.ProcessingPrompts, &bundle); err != nil {
			return fmt.Errorf("%w: processing_prompts: %v", domain.ErrInvalidFileType, err)
		}
	}
	if err := validator.CompileSchema(bundle.OutputSchema); err != nil {
		return fmt.Errorf("%w: output_schema: %v", domain.ErrInvalidFileType, err)
	}

	ft.Name = name
	ft.Description = input.Description
	ft.ProcessingPrompts = input.ProcessingPrompts
	ft.ProcessorType = processor
	ft.ProcessingMode = mode
	ft.VerificationEnabled = input.VerificationEnabled
	return nil
}
