package domain

import "errors"

var (
	ErrNotFound            = errors.New("resource not found")
	ErrFileTypeNotFound    = errors.New("file type not found")
	ErrBatchNotFound       = errors.New("batch not found")
	ErrResultNotFound      = errors.New("processing result not found")
	ErrDuplicateFileType   = errors.New("file type name already exists")
	ErrInvalidFileType     = errors.New("invalid file type definition")
	ErrUnsupportedFileType = errors.New("unsupported file type")
	ErrFileTooLarge        = errors.New("file exceeds maximum allowed size")
	ErrUploadFailed        = errors.New("file upload to storage failed")
	ErrFileBusy            = errors.New("file is already queued or processing")
	ErrBatchClosed         = errors.New("batch is closed")
	ErrUnsupportedFormat   = errors.New("unsupported export format")

	// ErrExtraction marks failures to open or read the source PDF.
	ErrExtraction = errors.New("content extraction failed")
	// ErrLLMCall marks failures of the model capability call.
	ErrLLMCall = errors.New("llm call failed")
)
