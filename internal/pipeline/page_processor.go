package pipeline

import (
	"context"
	"fmt"
	"strings"

	"golang.org/x/sync/errgroup"

	"actflow/internal/domain"
	"actflow/internal/port"
	"actflow/internal/respparse"
)

// processWithLLM sends every extracted unit to the model.
func (p *Processor) processWithLLM(ctx context.Context, st *State) {
	if st.Mode == domain.ProcessingModeTextExtraction {
		p.processText(ctx, st)
		return
	}
	p.processImages(ctx, st)
}

func (p *Processor) processText(ctx context.Context, st *State) {
	if strings.TrimSpace(st.ExtractedText) == "" {
		st.Fail("No text could be extracted from PDF", nil)
		return
	}

	resp, err := p.llm.Complete(ctx, &port.CompletionRequest{
		SystemPrompt: st.Bundle.SystemPrompt,
		UserText:     fmt.Sprintf("%s\n\nDocument text:\n%s", st.Bundle.ExtractionPrompt, st.ExtractedText),
		Temperature:  0,
		Model:        p.model,
	})
	if err != nil {
		st.Fail("LLM processing failed: "+err.Error(), fmt.Errorf("%w: %w", domain.ErrLLMCall, err))
		return
	}

	result := p.parser.Parse(resp.Content)
	result["processing_mode"] = string(domain.ProcessingModeTextExtraction)
	result["processing_status"] = PageStatusSuccess
	st.ProcessingResult = result
}

func (p *Processor) processImages(ctx context.Context, st *State) {
	n := len(st.PageImages)
	if n == 0 {
		st.Fail("No pages could be extracted from PDF", nil)
		return
	}

	results := make([]map[string]any, n)
	g := new(errgroup.Group)
	g.SetLimit(p.pageConcurrency)
	for i := range st.PageImages {
		g.Go(func() error {
			defer func() {
				if r := recover(); r != nil {
					p.logger.Error("pipeline.processImages: page panicked", "page", i+1, "panic", r)
					results[i] = failedPage(i+1, fmt.Sprintf("panic: %v", r))
				}
			}()
			results[i] = p.processPage(ctx, st.Bundle, st.PageImages[i], i+1, n)
			return nil
		})
	}
	// Page failures are recorded in results; Wait never returns an error.
	_ = g.Wait()

	st.PageResults = results
	st.ProcessingResult = Aggregate(results)
}

// processPage returns the parsed answer for one page, or a failed marker.
func (p *Processor) processPage(ctx context.Context, bundle domain.PromptBundle, image []byte, pageNumber, totalPages int) map[string]any {
	req := &port.CompletionRequest{
		SystemPrompt: bundle.SystemPrompt,
		UserText: fmt.Sprintf("%s\n\nPage %d of %d. Extract information from this specific page.",
			bundle.ExtractionPrompt, pageNumber, totalPages),
		Images:      []port.Image{{Data: image, MediaType: "image/png"}},
		Temperature: 0,
		Model:       p.model,
	}

	resp, err := p.llm.Complete(ctx, req)
	if err != nil {
		p.logger.Warn("pipeline.processPage: page failed", "page", pageNumber, "total_pages", totalPages, "error", err)
		p.metrics.ObservePage(true)
		return failedPage(pageNumber, err.Error())
	}

	result := p.parser.Parse(resp.Content)
	if respparse.IsFailure(result) {
		p.logger.Warn("pipeline.processPage: unparseable model output", "page", pageNumber, "provider", resp.Provider)
	}
	result["page_number"] = pageNumber
	result["page_processing_status"] = PageStatusSuccess
	p.metrics.ObservePage(false)
	return result
}

func failedPage(pageNumber int, msg string) map[string]any {
	return map[string]any{
		"page_number":            pageNumber,
		"page_processing_status": PageStatusFailed,
		"error":                  msg,
	}
}
