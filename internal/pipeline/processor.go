// Package pipeline runs one PDF through extraction, LLM processing and
// validation.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"actflow/internal/domain"
	"actflow/internal/extractor"
	"actflow/internal/logging"
	"actflow/internal/metrics"
	"actflow/internal/port"
	"actflow/internal/respparse"
	"actflow/internal/validator"
)

// ContentExtractor produces the LLM input units for a document.
type ContentExtractor interface {
	Extract(ctx context.Context, pdf []byte, mode domain.ProcessingMode) (*extractor.Content, error)
}

// Config tunes a Processor.
type Config struct {
	Model           string
	PageConcurrency int
}

// Processor is the document pipeline. It holds no per-document state and
// is safe for concurrent use.
type Processor struct {
	extractor       ContentExtractor
	llm             port.LLMClient
	parser          *respparse.Parser
	validator       *validator.Engine
	model           string
	pageConcurrency int
	metrics         *metrics.PipelineMetrics
	logger          *slog.Logger
}

// NewProcessor wires a Processor. A nil validator engine selects the default rules.
func NewProcessor(
	x ContentExtractor,
	llm port.LLMClient,
	v *validator.Engine,
	cfg Config,
	m *metrics.PipelineMetrics,
	logger *slog.Logger,
) *Processor {
	if logger == nil {
		logger = logging.Discard()
	}
	if v == nil {
		v = validator.NewEngine(nil, logger)
	}
	if cfg.PageConcurrency < 1 {
		cfg.PageConcurrency = 1
	}
	return &Processor{
		extractor:       x,
		llm:             llm,
		parser:          respparse.New(),
		validator:       v,
		model:           cfg.Model,
		pageConcurrency: cfg.PageConcurrency,
		metrics:         m,
		logger:          logger,
	}
}

type stage struct {
	name string
	run  func(ctx context.Context, st *State)
}

func (p *Processor) stages() []stage {
	return []stage{
		{StageExtractContent, p.extractContent},
		{StageProcessWithLLM, p.processWithLLM},
		{StageValidateResult, p.validateResult},
	}
}

// Run executes every stage in order, stopping at the first fatal error, and
// returns the final state.
func (p *Processor) Run(ctx context.Context, content []byte, bundle domain.PromptBundle) *State {
	st := NewState(content, bundle)
	start := time.Now()
	p.metrics.StartDocument()

	for _, s := range p.stages() {
		if st.Failed() {
			break
		}
		p.runStage(ctx, s, st)
	}

	dur := time.Since(start)
	p.metrics.FinishDocument(string(st.Mode), dur, st.Failed())
	if st.Failed() {
		p.logger.Warn("pipeline.Run: document failed", "mode", st.Mode, "error", st.Error, "duration_ms", dur.Milliseconds())
	} else {
		p.logger.Info("pipeline.Run: document processed", "mode", st.Mode, "pages", len(st.PageResults), "duration_ms", dur.Milliseconds())
	}
	return st
}

// ProcessDocument runs the pipeline and returns {"error": msg} on failure or
// the validated result.
func (p *Processor) ProcessDocument(ctx context.Context, content []byte, bundle domain.PromptBundle) map[string]any {
	return p.Run(ctx, content, bundle).Output()
}

func (p *Processor) runStage(ctx context.Context, s stage, st *State) {
	defer func() {
		if r := recover(); r != nil {
			p.logger.Error("pipeline.runStage: stage panicked", "stage", s.name, "panic", r)
			st.Fail(fmt.Sprintf("%s failed: %v", s.name, r), fmt.Errorf("panic in %s: %v", s.name, r))
		}
	}()
	s.run(ctx, st)
}

func (p *Processor) extractContent(ctx context.Context, st *State) {
	content, err := p.extractor.Extract(ctx, st.FileContent, st.Mode)
	if err != nil {
		switch {
		case st.Mode == domain.ProcessingModeTextExtraction:
			st.Fail("Text extraction failed: "+err.Error(), err)
		case errors.Is(err, extractor.ErrNoPages):
			st.Fail("No pages could be extracted from PDF", err)
		default:
			st.Fail("PDF to image conversion failed: "+err.Error(), err)
		}
		return
	}

	st.TotalPages = content.TotalPages
	if st.Mode == domain.ProcessingModeTextExtraction {
		st.ExtractedText = content.Text
		return
	}
	st.PageImages = content.PageImages
}
