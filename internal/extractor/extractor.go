// Package extractor turns a PDF into the units the LLM stage consumes:
// one PNG per page, or the document's text layer as a single blob.
package extractor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"actflow/internal/domain"
	"actflow/internal/logging"
	"actflow/internal/port"
)

// DefaultZoom renders pages at 144 DPI.
const DefaultZoom = 2.0

// ErrNoPages is wrapped when a document opens but yields no pages.
var ErrNoPages = errors.New("no pages in document")

// ExtractionError reports a PDF that could not be opened or rendered.
type ExtractionError struct {
	Op  string
	Err error
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *ExtractionError) Unwrap() error {
	return e.Err
}

// Is makes every ExtractionError match domain.ErrExtraction.
func (e *ExtractionError) Is(target error) bool {
	return target == domain.ErrExtraction
}

// Content is the output of Extract. Exactly one of PageImages and Text is
// populated, according to Mode.
type Content struct {
	Mode       domain.ProcessingMode
	PageImages [][]byte
	Text       string
	TotalPages int
}

// Extractor reads PDFs through a port.PDFEngine.
type Extractor struct {
	engine port.PDFEngine
	zoom   float64
	logger *slog.Logger
}

// New creates an Extractor. A non-positive zoom selects DefaultZoom.
func New(engine port.PDFEngine, zoom float64, logger *slog.Logger) *Extractor {
	if zoom <= 0 {
		zoom = DefaultZoom
	}
	if logger == nil {
		logger = logging.Discard()
	}
	return &Extractor{engine: engine, zoom: zoom, logger: logger}
}

// Extract dispatches on mode.
func (x *Extractor) Extract(ctx context.Context, pdf []byte, mode domain.ProcessingMode) (*Content, error) {
	if mode == domain.ProcessingModeTextExtraction {
		text, total, err := x.ExtractText(ctx, pdf)
		if err != nil {
			return nil, err
		}
		return &Content{Mode: mode, Text: text, TotalPages: total}, nil
	}
	images, err := x.ExtractImages(ctx, pdf)
	if err != nil {
		return nil, err
	}
	return &Content{Mode: domain.ProcessingModeImageOCR, PageImages: images, TotalPages: len(images)}, nil
}

// ExtractImages renders every page to PNG in page order.
func (x *Extractor) ExtractImages(ctx context.Context, pdf []byte) ([][]byte, error) {
	n, err := x.engine.PageCount(ctx, pdf)
	if err != nil {
		return nil, &ExtractionError{Op: "open", Err: err}
	}
	if n == 0 {
		return nil, &ExtractionError{Op: "open", Err: ErrNoPages}
	}

	images := make([][]byte, 0, n)
	for i := 0; i < n; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		img, err := x.engine.RenderPage(ctx, pdf, i, x.zoom)
		if err != nil {
			return nil, &ExtractionError{Op: fmt.Sprintf("render page %d", i+1), Err: err}
		}
		images = append(images, img)
	}

	x.logger.Debug("extractor.ExtractImages: rendered pages", "pages", n, "zoom", x.zoom)
	return images, nil
}

// ExtractText joins the text layer of every non-empty page, each prefixed
// with a "--- Page N ---" marker. Pages whose text cannot be read are skipped.
// The returned count is the document's page count.
func (x *Extractor) ExtractText(ctx context.Context, pdf []byte) (string, int, error) {
	n, err := x.engine.PageCount(ctx, pdf)
	if err != nil {
		return "", 0, &ExtractionError{Op: "open", Err: err}
	}

	parts := make([]string, 0, n)
	for i := 0; i < n; i++ {
		if err := ctx.Err(); err != nil {
			return "", 0, err
		}
		text, err := x.engine.PageText(ctx, pdf, i)
		if err != nil {
			x.logger.Warn("extractor.ExtractText: skipping unreadable page", "page", i+1, "error", err)
			continue
		}
		if strings.TrimSpace(text) == "" {
			continue
		}
		parts = append(parts, fmt.Sprintf("--- Page %d ---\n%s", i+1, text))
	}

	return strings.Join(parts, "\n\n"), n, nil
}
