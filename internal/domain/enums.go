package domain

import "strings"

// ProcessingMode selects what is sent to the LLM for a document.
type ProcessingMode string

const (
	ProcessingModeImageOCR       ProcessingMode = "IMAGE_OCR"
	ProcessingModeTextExtraction ProcessingMode = "TEXT_EXTRACTION"
)

// ParseProcessingMode maps a configured mode string to a ProcessingMode.
// Unknown or empty values fall back to IMAGE_OCR.
func ParseProcessingMode(s string) ProcessingMode {
	switch ProcessingMode(strings.ToUpper(strings.TrimSpace(s))) {
	case ProcessingModeTextExtraction:
		return ProcessingModeTextExtraction
	default:
		return ProcessingModeImageOCR
	}
}

// Valid reports whether m is one of the known modes.
func (m ProcessingMode) Valid() bool {
	return m == ProcessingModeImageOCR || m == ProcessingModeTextExtraction
}

// ProcessorType selects the downstream refinement applied to a pipeline result.
type ProcessorType string

const (
	ProcessorTypeHuaweiAct ProcessorType = "HUAWEI_ACT"
	ProcessorTypeInvoice   ProcessorType = "INVOICE"
	ProcessorTypeContract  ProcessorType = "CONTRACT"
	ProcessorTypeReceipt   ProcessorType = "RECEIPT"
	ProcessorTypeCustom    ProcessorType = "CUSTOM"
)

// AllowedProcessorTypes lists the processor types accepted on file types.
var AllowedProcessorTypes = map[ProcessorType]bool{
	ProcessorTypeHuaweiAct: true,
	ProcessorTypeInvoice:   true,
	ProcessorTypeContract:  true,
	ProcessorTypeReceipt:   true,
	ProcessorTypeCustom:    true,
}

// FileStatus represents the processing lifecycle of an uploaded file.
type FileStatus string

const (
	FileStatusUploaded   FileStatus = "uploaded"
	FileStatusQueued     FileStatus = "queued"
	FileStatusProcessing FileStatus = "processing"
	FileStatusCompleted  FileStatus = "completed"
	FileStatusFailed     FileStatus = "failed"
)

// BatchStatus represents the lifecycle of a batch of files.
type BatchStatus string

const (
	BatchStatusOpen   BatchStatus = "open"
	BatchStatusClosed BatchStatus = "closed"
)

// ResultStatus is the outcome of one pipeline run.
type ResultStatus string

const (
	ResultStatusSuccess ResultStatus = "success"
	ResultStatusFailed  ResultStatus = "failed"
)

// PDFContentType is the only content type accepted for processing.
const PDFContentType = "application/pdf"
