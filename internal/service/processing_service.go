package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"actflow/internal/config"
	"actflow/internal/domain"
	"actflow/internal/export"
	"actflow/internal/llm"
	"actflow/internal/pipeline"
	"actflow/internal/port"
	"actflow/internal/postprocess"
	"actflow/internal/storage/s3"
)

// ErrRequeued is returned by ProcessQueued when a rate-limited file was put
// back in the queue.
var ErrRequeued = errors.New("file requeued after rate limit")

// Export formats.
const (
	FormatXLSX = "xlsx"
	FormatCSV  = "csv"
)

// DocumentPipeline runs one document through extraction, the LLM and validation.
type DocumentPipeline interface {
	Run(ctx context.Context, content []byte, bundle domain.PromptBundle) *pipeline.State
}

// UploadInput is the DTO for adding a PDF to a batch.
type UploadInput struct {
	BatchID  uuid.UUID
	FileName string
	Size     int64
	Body     io.ReadSeeker
}

// ProcessSyncInput is the DTO for synchronous processing. Mode, when set,
// overrides the file type's processing mode.
type ProcessSyncInput struct {
	FileType string
	Mode     string
	FileName string
	Content  []byte
}

// ExportOutput is a rendered export ready to be served.
type ExportOutput struct {
	FileName    string
	ContentType string
	Data        []byte
}

// ProcessingService defines the document processing contract.
type ProcessingService interface {
	Upload(ctx context.Context, input UploadInput) (*domain.File, error)
	GetFile(ctx context.Context, fileID uuid.UUID) (*domain.File, error)
	GetResult(ctx context.Context, fileID uuid.UUID) (*domain.ProcessingResult, error)
	GetDownloadURL(ctx context.Context, fileID uuid.UUID) (string, error)
	Reprocess(ctx context.Context, fileID uuid.UUID) (*domain.File, error)
	ProcessQueued(ctx context.Context, file *domain.File) (*domain.ProcessingResult, error)
	ProcessSync(ctx context.Context, input ProcessSyncInput) (map[string]any, error)
	ExportFile(ctx context.Context, fileID uuid.UUID, format string) (*ExportOutput, error)
	ExportBatch(ctx context.Context, batchID uuid.UUID, format string) (*ExportOutput, error)
}

// ProcessingDeps groups the collaborators of the processing service.
type ProcessingDeps struct {
	Files     port.FileRepository
	Batches   port.BatchRepository
	FileTypes port.FileTypeRepository
	Results   port.ProcessingResultRepository
	Storage   port.ObjectStorage
	Pipeline  DocumentPipeline
	Refiners  *postprocess.Registry
}

type processingService struct {
	deps     ProcessingDeps
	s3Cfg    *config.S3Config
	queueCfg *config.QueueConfig
	logger   *slog.Logger
}

// NewProcessingService creates a new ProcessingService implementation.
func NewProcessingService(
	deps ProcessingDeps,
	s3Cfg *config.S3Config,
	queueCfg *config.QueueConfig,
	logger *slog.Logger,
) ProcessingService {
	if deps.Refiners == nil {
		deps.Refiners = postprocess.DefaultRegistry()
	}
	return &processingService{
		deps:     deps,
		s3Cfg:    s3Cfg,
		queueCfg: queueCfg,
		logger:   logger,
	}
}

func (s *processingService) Upload(ctx context.Context, input UploadInput) (*domain.File, error) {
	batch, err := s.deps.Batches.GetByID(ctx, input.BatchID)
	if err != nil {
		return nil, err
	}
	if batch.Status == domain.BatchStatusClosed {
		return nil, domain.ErrBatchClosed
	}

	if input.Size > s.maxBytes() {
		return nil, domain.ErrFileTooLarge
	}
	head := make([]byte, 512)
	n, err := io.ReadFull(input.Body, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("reading file header: %w", err)
	}
	if !isPDF(head[:n]) {
		return nil, domain.ErrUnsupportedFileType
	}
	if _, err := input.Body.Seek(0, io.SeekStart); err != nil {
		return nil, fmt.Errorf("seeking file: %w", err)
	}

	fileID := uuid.New()
	file := &domain.File{
		ID:           fileID,
		BatchID:      batch.ID,
		FileTypeID:   batch.FileTypeID,
		OriginalName: input.FileName,
		S3Bucket:     s.s3Cfg.Bucket,
		S3Key:        s3.ObjectKey(batch.ID, fileID),
		ContentType:  domain.PDFContentType,
		FileSize:     input.Size,
		Status:       domain.FileStatusUploaded,
	}

	s.logger.Info("processingService.Upload: uploading file",
		"file_id", file.ID, "batch_id", batch.ID, "name", input.FileName, "size", input.Size)

	if err := s.deps.Files.Create(ctx, file); err != nil {
		return nil, fmt.Errorf("creating file record: %w", err)
	}

	_, err = s.deps.Storage.Upload(ctx, port.UploadInput{
		Bucket:      file.S3Bucket,
		Key:         file.S3Key,
		Body:        input.Body,
		ContentType: file.ContentType,
		Size:        input.Size,
	})
	if err != nil {
		s.logger.Error("processingService.Upload: storage upload failed", "file_id", file.ID, "error", err)
		_ = s.deps.Files.UpdateStatus(ctx, file.ID, domain.FileStatusFailed, err.Error())
		return nil, domain.ErrUploadFailed
	}

	if err := s.deps.Files.UpdateStatus(ctx, file.ID, domain.FileStatusQueued, ""); err != nil {
		return nil, fmt.Errorf("queueing file: %w", err)
	}
	file.Status = domain.FileStatusQueued

	if err := s.deps.Batches.IncrementFileCount(ctx, batch.ID); err != nil {
		s.logger.Warn("processingService.Upload: batch file count not updated", "batch_id", batch.ID, "error", err)
	}
	return file, nil
}

func (s *processingService) GetFile(ctx context.Context, fileID uuid.UUID) (*domain.File, error) {
	return s.deps.Files.GetByID(ctx, fileID)
}

func (s *processingService) GetResult(ctx context.Context, fileID uuid.UUID) (*domain.ProcessingResult, error) {
	if _, err := s.deps.Files.GetByID(ctx, fileID); err != nil {
		return nil, err
	}
	return s.deps.Results.GetLatestByFile(ctx, fileID)
}

func (s *processingService) GetDownloadURL(ctx context.Context, fileID uuid.UUID) (string, error) {
	file, err := s.deps.Files.GetByID(ctx, fileID)
	if err != nil {
		return "", err
	}
	return s.deps.Storage.GetPresignedURL(ctx, file.S3Bucket, file.S3Key, s.s3Cfg.PresignExpiry)
}

func (s *processingService) Reprocess(ctx context.Context, fileID uuid.UUID) (*domain.File, error) {
	file, err := s.deps.Files.GetByID(ctx, fileID)
	if err != nil {
		return nil, err
	}
	if file.Status == domain.FileStatusQueued || file.Status == domain.FileStatusProcessing {
		return nil, domain.ErrFileBusy
	}
	if err := s.deps.Files.UpdateStatus(ctx, file.ID, domain.FileStatusQueued, ""); err != nil {
		return nil, err
	}
	file.Status = domain.FileStatusQueued
	file.LastError = ""
	s.logger.Info("processingService.Reprocess: file queued", "file_id", file.ID)
	return file, nil
}

// ProcessQueued runs a claimed file through the pipeline, stores the result
// and moves the file to completed or failed. A rate-limited run is requeued
// instead while the file has attempts left.
func (s *processingService) ProcessQueued(ctx context.Context, file *domain.File) (*domain.ProcessingResult, error) {
	content, err := s.deps.Storage.Download(ctx, file.S3Bucket, file.S3Key)
	if err != nil {
		s.failFile(file, "download failed: "+err.Error())
		return nil, fmt.Errorf("downloading file %s: %w", file.ID, err)
	}

	ft, err := s.deps.FileTypes.GetByID(ctx, file.FileTypeID)
	if err != nil {
		s.failFile(file, "file type lookup failed: "+err.Error())
		return nil, err
	}
	bundle, err := s.bundleFor(ft)
	if err != nil {
		s.failFile(file, err.Error())
		return nil, err
	}

	start := time.Now()
	st := s.deps.Pipeline.Run(ctx, content, bundle)
	duration := time.Since(start)

	var rle *llm.RateLimitError
	if st.Failed() && errors.As(st.Cause, &rle) && file.Attempts < s.maxRetries() {
		s.logger.Warn("processingService.ProcessQueued: rate limited, requeueing",
			"file_id", file.ID, "attempt", file.Attempts, "retry_after", rle.RetryAfter)
		if err := s.deps.Files.Requeue(context.WithoutCancel(ctx), file.ID, st.Error); err != nil {
			return nil, fmt.Errorf("requeueing file %s: %w", file.ID, err)
		}
		return nil, ErrRequeued
	}

	output := st.Output()
	if !failedOutput(st, output) {
		output = s.deps.Refiners.Refine(ft.ProcessorType, output)
	}

	result, err := buildResult(file.ID, st, output, duration)
	if err != nil {
		s.failFile(file, err.Error())
		return nil, err
	}

	// Persist even if the caller's deadline fired mid-run.
	persistCtx := context.WithoutCancel(ctx)
	if err := s.deps.Results.Create(persistCtx, result); err != nil {
		s.failFile(file, "storing result failed: "+err.Error())
		return nil, err
	}

	status := domain.FileStatusCompleted
	if result.Status == domain.ResultStatusFailed {
		status = domain.FileStatusFailed
	}
	if err := s.deps.Files.UpdateStatus(persistCtx, file.ID, status, result.Error); err != nil {
		return nil, err
	}
	file.Status = status
	file.LastError = result.Error

	s.logger.Info("processingService.ProcessQueued: file processed",
		"file_id", file.ID, "status", status, "pages", result.PagesProcessed,
		"total_pages", result.TotalPages, "duration_ms", result.DurationMS)
	return result, nil
}

func (s *processingService) ProcessSync(ctx context.Context, input ProcessSyncInput) (map[string]any, error) {
	if int64(len(input.Content)) > s.maxBytes() {
		return nil, domain.ErrFileTooLarge
	}
	if !isPDF(input.Content) {
		return nil, domain.ErrUnsupportedFileType
	}

	ft, err := resolveFileType(ctx, s.deps.FileTypes, input.FileType)
	if err != nil {
		return nil, err
	}
	bundle, err := s.bundleFor(ft)
	if err != nil {
		return nil, err
	}
	if input.Mode != "" {
		mode := domain.ProcessingMode(strings.ToUpper(strings.TrimSpace(input.Mode)))
		if !mode.Valid() {
			return nil, fmt.Errorf("%w: unknown processing_mode %q", domain.ErrInvalidFileType, input.Mode)
		}
		bundle.ProcessingMode = string(mode)
	}

	s.logger.Info("processingService.ProcessSync: processing",
		"name", input.FileName, "file_type", ft.Name, "mode", bundle.Mode(), "size", len(input.Content))

	st := s.deps.Pipeline.Run(ctx, input.Content, bundle)
	output := st.Output()
	if failedOutput(st, output) {
		return output, nil
	}
	return s.deps.Refiners.Refine(ft.ProcessorType, output), nil
}

func (s *processingService) ExportFile(ctx context.Context, fileID uuid.UUID, format string) (*ExportOutput, error) {
	file, err := s.deps.Files.GetByID(ctx, fileID)
	if err != nil {
		return nil, err
	}
	doc := export.Document{FileName: file.OriginalName, Status: string(file.Status)}
	res, err := s.deps.Results.GetLatestByFile(ctx, fileID)
	switch {
	case err == nil:
		if doc.Result, err = decodeResult(res.Result); err != nil {
			return nil, err
		}
	case !errors.Is(err, domain.ErrResultNotFound):
		return nil, err
	}
	return render([]export.Document{doc}, strings.TrimSuffix(file.OriginalName, ".pdf"), format)
}

func (s *processingService) ExportBatch(ctx context.Context, batchID uuid.UUID, format string) (*ExportOutput, error) {
	batch, err := s.deps.Batches.GetByID(ctx, batchID)
	if err != nil {
		return nil, err
	}
	files, err := s.deps.Files.ListByBatch(ctx, batchID)
	if err != nil {
		return nil, err
	}
	results, err := s.deps.Results.ListLatestByBatch(ctx, batchID)
	if err != nil {
		return nil, err
	}
	byFile := make(map[uuid.UUID]json.RawMessage, len(results))
	for _, r := range results {
		byFile[r.FileID] = r.Result
	}

	docs := make([]export.Document, 0, len(files))
	for _, f := range files {
		doc := export.Document{FileName: f.OriginalName, Status: string(f.Status)}
		if raw, ok := byFile[f.ID]; ok {
			if doc.Result, err = decodeResult(raw); err != nil {
				return nil, err
			}
		}
		docs = append(docs, doc)
	}
	return render(docs, batch.Name, format)
}

// bundleFor builds the prompt bundle of a file type, filling missing prompts
// and required fields from the processor's defaults.
func (s *processingService) bundleFor(ft *domain.FileType) (domain.PromptBundle, error) {
	bundle, err := ft.Bundle()
	if err != nil {
		return domain.PromptBundle{}, err
	}
	def := s.deps.Refiners.Get(ft.ProcessorType).DefaultBundle()
	if !bundle.HasPrompts() {
		bundle.SystemPrompt = def.SystemPrompt
		bundle.ExtractionPrompt = def.ExtractionPrompt
	}
	if len(bundle.RequiredFields) == 0 {
		bundle.RequiredFields = def.RequiredFields
	}
	if len(bundle.OutputSchema) == 0 {
		bundle.OutputSchema = def.OutputSchema
	}
	return bundle, nil
}

func (s *processingService) failFile(file *domain.File, msg string) {
	if err := s.deps.Files.UpdateStatus(context.Background(), file.ID, domain.FileStatusFailed, msg); err != nil {
		s.logger.Error("processingService.failFile: status update failed", "file_id", file.ID, "error", err)
	}
	file.Status = domain.FileStatusFailed
	file.LastError = msg
}

func (s *processingService) maxBytes() int64 {
	return s.s3Cfg.MaxFileSizeMB * 1024 * 1024
}

func (s *processingService) maxRetries() int {
	if s.queueCfg == nil {
		return 0
	}
	return s.queueCfg.MaxRetries
}

func isPDF(head []byte) bool {
	return bytes.HasPrefix(head, []byte("%PDF-")) &&
		http.DetectContentType(head) == domain.PDFContentType
}

func buildResult(fileID uuid.UUID, st *pipeline.State, output map[string]any, duration time.Duration) (*domain.ProcessingResult, error) {
	raw, err := json.Marshal(output)
	if err != nil {
		return nil, fmt.Errorf("encoding result: %w", err)
	}

	problems := []string{}
	if list, ok := output["validation_errors"].([]string); ok {
		problems = list
	}
	rawProblems, err := json.Marshal(problems)
	if err != nil {
		return nil, fmt.Errorf("encoding validation errors: %w", err)
	}

	res := &domain.ProcessingResult{
		ID:               uuid.New(),
		FileID:           fileID,
		Status:           domain.ResultStatusSuccess,
		ProcessingMode:   st.Mode,
		Result:           raw,
		ValidationErrors: rawProblems,
		PagesProcessed:   pagesProcessed(st),
		TotalPages:       st.TotalPages,
		DurationMS:       duration.Milliseconds(),
	}
	if failedOutput(st, output) {
		res.Status = domain.ResultStatusFailed
		res.Error = st.Error
		if res.Error == "" {
			res.Error = fmt.Sprint(output["error"])
		}
		res.PagesProcessed = 0
	}
	return res, nil
}

// failedOutput reports whether the run failed outright or produced an error
// result, as when no page of a document succeeded.
func failedOutput(st *pipeline.State, output map[string]any) bool {
	if st.Failed() {
		return true
	}
	_, hasError := output["error"]
	return hasError
}

func pagesProcessed(st *pipeline.State) int {
	if st.Failed() {
		return 0
	}
	if st.Mode == domain.ProcessingModeTextExtraction {
		return st.TotalPages
	}
	n := 0
	for _, p := range st.PageResults {
		if p["page_processing_status"] == pipeline.PageStatusSuccess {
			n++
		}
	}
	return n
}

func decodeResult(raw json.RawMessage) (map[string]any, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, fmt.Errorf("decoding stored result: %w", err)
	}
	return m, nil
}

func render(docs []export.Document, name, format string) (*ExportOutput, error) {
	switch strings.ToLower(format) {
	case FormatXLSX:
		data, err := export.WorkbookXLSX(docs)
		if err != nil {
			return nil, err
		}
		return &ExportOutput{
			FileName:    export.BuildFilename(name, FormatXLSX),
			ContentType: "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
			Data:        data,
		}, nil
	case FormatCSV:
		var buf bytes.Buffer
		buf.Write(export.BOM)
		w := export.NewCSVWriter(&buf)
		if err := w.WriteHeader(); err != nil {
			return nil, err
		}
		if err := w.WriteDocuments(docs); err != nil {
			return nil, err
		}
		w.Flush()
		if err := w.Error(); err != nil {
			return nil, err
		}
		return &ExportOutput{
			FileName:    export.BuildFilename(name, FormatCSV),
			ContentType: "text/csv; charset=utf-8",
			Data:        buf.Bytes(),
		}, nil
	default:
		return nil, domain.ErrUnsupportedFormat
	}
}
