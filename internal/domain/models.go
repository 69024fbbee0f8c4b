package domain

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// PromptBundle is the per-document-type configuration handed to the pipeline.
type PromptBundle struct {
	SystemPrompt        string          `json:"system_prompt"`
	ExtractionPrompt    string          `json:"extraction_prompt"`
	RequiredFields      []string        `json:"required_fields"`
	ProcessingMode      string          `json:"processing_mode,omitempty"`
	VerificationEnabled bool            `json:"verification_enabled"`
	OutputSchema        json.RawMessage `json:"output_schema,omitempty"`
}

// Mode returns the effective processing mode of the bundle.
func (b PromptBundle) Mode() ProcessingMode {
	return ParseProcessingMode(b.ProcessingMode)
}

// HasPrompts reports whether both prompts are set.
func (b PromptBundle) HasPrompts() bool {
	return b.SystemPrompt != "" && b.ExtractionPrompt != ""
}

// FileType describes a kind of document and how to process it.
type FileType struct {
	ID                  uuid.UUID       `db:"id" json:"id"`
	Name                string          `db:"name" json:"name"`
	Description         string          `db:"description" json:"description"`
	ProcessingPrompts   json.RawMessage `db:"processing_prompts" json:"processing_prompts"`
	ProcessorType       ProcessorType   `db:"processor_type" json:"processor_type"`
	ProcessingMode      ProcessingMode  `db:"processing_mode" json:"processing_mode"`
	VerificationEnabled bool            `db:"verification_enabled" json:"verification_enabled"`
	CreatedAt           time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt           time.Time       `db:"updated_at" json:"updated_at"`
}

// Bundle decodes the stored prompts and overlays the mode and verification
// columns, which take precedence over anything in the JSON.
func (ft *FileType) Bundle() (PromptBundle, error) {
	var b PromptBundle
	if len(ft.ProcessingPrompts) > 0 && string(ft.ProcessingPrompts) != "null" {
		if err := json.Unmarshal(ft.ProcessingPrompts, &b); err != nil {
			return PromptBundle{}, fmt.Errorf("decoding prompts of file type %s: %w", ft.Name, err)
		}
	}
	b.ProcessingMode = string(ParseProcessingMode(string(ft.ProcessingMode)))
	b.VerificationEnabled = ft.VerificationEnabled
	return b, nil
}

// Batch groups files uploaded together for one file type.
type Batch struct {
	ID         uuid.UUID   `db:"id" json:"id"`
	Name       string      `db:"name" json:"name"`
	FileTypeID uuid.UUID   `db:"file_type_id" json:"file_type_id"`
	Status     BatchStatus `db:"status" json:"status"`
	FileCount  int         `db:"file_count" json:"file_count"`
	CreatedAt  time.Time   `db:"created_at" json:"created_at"`
	UpdatedAt  time.Time   `db:"updated_at" json:"updated_at"`
}

// File is an uploaded PDF awaiting or having gone through processing.
type File struct {
	ID           uuid.UUID  `db:"id" json:"id"`
	BatchID      uuid.UUID  `db:"batch_id" json:"batch_id"`
	FileTypeID   uuid.UUID  `db:"file_type_id" json:"file_type_id"`
	OriginalName string     `db:"original_name" json:"original_name"`
	S3Bucket     string     `db:"s3_bucket" json:"-"`
	S3Key        string     `db:"s3_key" json:"-"`
	ContentType  string     `db:"content_type" json:"content_type"`
	FileSize     int64      `db:"file_size" json:"file_size"`
	Status       FileStatus `db:"status" json:"status"`
	Attempts     int        `db:"attempts" json:"attempts"`
	LastError    string     `db:"last_error" json:"last_error,omitempty"`
	CreatedAt    time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time  `db:"updated_at" json:"updated_at"`
}

// ProcessingResult stores the outcome of one pipeline run for a file.
type ProcessingResult struct {
	ID               uuid.UUID       `db:"id" json:"id"`
	FileID           uuid.UUID       `db:"file_id" json:"file_id"`
	Status           ResultStatus    `db:"status" json:"status"`
	Error            string          `db:"error" json:"error,omitempty"`
	ProcessingMode   ProcessingMode  `db:"processing_mode" json:"processing_mode"`
	Result           json.RawMessage `db:"result" json:"result"`
	ValidationErrors json.RawMessage `db:"validation_errors" json:"validation_errors"`
	PagesProcessed   int             `db:"pages_processed" json:"pages_processed"`
	TotalPages       int             `db:"total_pages" json:"total_pages"`
	DurationMS       int64           `db:"duration_ms" json:"duration_ms"`
	CreatedAt        time.Time       `db:"created_at" json:"created_at"`
}
