package pipeline

import "actflow/internal/domain"

// Stage names, in execution order.
const (
	StageExtractContent = "extract_content"
	StageProcessWithLLM = "process_with_llm"
	StageValidateResult = "validate_result"
)

// Page status values stamped on every page result.
const (
	PageStatusSuccess = "success"
	PageStatusFailed  = "failed"
)

// State is the working set of one pipeline run. It is owned by a single run
// and handed between stages by pointer.
type State struct {
	FileContent []byte
	Mode        domain.ProcessingMode
	Bundle      domain.PromptBundle

	ExtractedText string
	PageImages    [][]byte
	TotalPages    int

	PageResults      []map[string]any
	ProcessingResult map[string]any

	// Error is the first fatal error message. Once set, later stages do nothing.
	Error string
	Cause error
}

// NewState creates the initial state for content processed with bundle.
func NewState(content []byte, bundle domain.PromptBundle) *State {
	return &State{
		FileContent: content,
		Mode:        bundle.Mode(),
		Bundle:      bundle,
	}
}

// Fail records a fatal error unless one is already set.
func (s *State) Fail(msg string, cause error) {
	if s.Error != "" {
		return
	}
	s.Error = msg
	s.Cause = cause
}

// Failed reports whether a fatal error has been recorded.
func (s *State) Failed() bool {
	return s.Error != ""
}

// Output is the terminal mapping of the run: {"error": msg} on failure,
// the processing result otherwise.
func (s *State) Output() map[string]any {
	if s.Failed() {
		return map[string]any{"error": s.Error}
	}
	return s.ProcessingResult
}
