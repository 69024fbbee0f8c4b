// Package pdf implements port.PDFEngine with pdfcpu for structure,
// ledongthuc/pdf for the text layer and poppler's pdftoppm for rendering.
package pdf

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"

	lpdf "github.com/ledongthuc/pdf"
	"github.com/pdfcpu/pdfcpu/pkg/api"

	"actflow/internal/config"
	"actflow/internal/logging"
)

// baseDPI is the resolution that corresponds to a zoom of 1.
const baseDPI = 72

// ErrPageOutOfRange is returned for a page index outside the document.
var ErrPageOutOfRange = errors.New("page index out of range")

// Engine is the production PDF engine.
type Engine struct {
	pdftoppm string
	runner   Runner
	logger   *slog.Logger
}

// Option configures an Engine.
type Option func(*Engine)

// WithRunner replaces the command runner used for rendering.
func WithRunner(r Runner) Option {
	return func(e *Engine) { e.runner = r }
}

// NewEngine creates an Engine from config.
func NewEngine(cfg config.PDFConfig, logger *slog.Logger, opts ...Option) *Engine {
	if logger == nil {
		logger = logging.Discard()
	}
	bin := cfg.PdftoppmPath
	if bin == "" {
		bin = "pdftoppm"
	}
	e := &Engine{
		pdftoppm: bin,
		runner:   execRunner{logger: logger},
		logger:   logger,
	}
	for _, o := range opts {
		o(e)
	}
	return e
}

// PageCount returns the number of pages in the document.
func (e *Engine) PageCount(ctx context.Context, data []byte) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	n, err := api.PageCount(bytes.NewReader(data), nil)
	if err != nil {
		return 0, fmt.Errorf("reading page count: %w", err)
	}
	return n, nil
}

// RenderPage rasterizes one zero-based page to PNG at 72*zoom DPI.
func (e *Engine) RenderPage(ctx context.Context, data []byte, pageIndex int, zoom float64) ([]byte, error) {
	if pageIndex < 0 {
		return nil, ErrPageOutOfRange
	}
	if zoom <= 0 {
		zoom = 1
	}

	tmpDir, err := os.MkdirTemp("", "actflow-page-*")
	if err != nil {
		return nil, fmt.Errorf("creating temp dir: %w", err)
	}
	defer func() { _ = os.RemoveAll(tmpDir) }()

	inPath := filepath.Join(tmpDir, "input.pdf")
	if err := os.WriteFile(inPath, data, 0o600); err != nil {
		return nil, fmt.Errorf("writing temp pdf: %w", err)
	}

	// -singlefile makes pdftoppm write exactly <prefix>.png
	outputPrefix := filepath.Join(tmpDir, "page")
	pageStr := strconv.Itoa(pageIndex + 1)
	dpi := strconv.Itoa(int(baseDPI*zoom + 0.5))

	_, stderr, err := e.runner.Run(ctx, e.pdftoppm,
		"-png",
		"-f", pageStr,
		"-l", pageStr,
		"-r", dpi,
		"-singlefile",
		inPath,
		outputPrefix,
	)
	if err != nil {
		return nil, fmt.Errorf("pdftoppm failed: %w (output: %s)", err, truncate(string(stderr), 512))
	}

	img, err := os.ReadFile(outputPrefix + ".png")
	if err != nil {
		return nil, fmt.Errorf("pdftoppm did not create expected output: %w", err)
	}
	return img, nil
}

// PageText returns the plain text layer of one zero-based page. A page with
// no content yields an empty string.
func (e *Engine) PageText(ctx context.Context, data []byte, pageIndex int) (text string, err error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	// ledongthuc/pdf panics on some malformed content streams.
	defer func() {
		if r := recover(); r != nil {
			text, err = "", fmt.Errorf("reading page %d text: %v", pageIndex+1, r)
		}
	}()

	r, err := lpdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("opening pdf: %w", err)
	}
	if pageIndex < 0 || pageIndex >= r.NumPage() {
		return "", ErrPageOutOfRange
	}

	page := r.Page(pageIndex + 1)
	if page.V.IsNull() {
		return "", nil
	}
	text, err = page.GetPlainText(nil)
	if err != nil {
		return "", fmt.Errorf("reading page %d text: %w", pageIndex+1, err)
	}
	return text, nil
}
