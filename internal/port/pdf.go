package port

import "context"

// PDFEngine abstracts the PDF capabilities the pipeline needs.
// Page indexes are zero-based.
type PDFEngine interface {
	PageCount(ctx context.Context, pdf []byte) (int, error)
	RenderPage(ctx context.Context, pdf []byte, pageIndex int, zoom float64) ([]byte, error)
	PageText(ctx context.Context, pdf []byte, pageIndex int) (string, error)
}
