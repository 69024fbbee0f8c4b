package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"actflow/internal/service"
)

// BatchHandler handles batch endpoints.
type BatchHandler struct {
	batchService      service.BatchService
	processingService service.ProcessingService
}

// NewBatchHandler creates a new BatchHandler.
func NewBatchHandler(batchService service.BatchService, processingService service.ProcessingService) *BatchHandler {
	return &BatchHandler{batchService: batchService, processingService: processingService}
}

// Create handles POST /api/v1/batches
func (h *BatchHandler) Create(c *gin.Context) {
	var input service.CreateBatchInput
	if err := c.ShouldBindJSON(&input); err != nil {
		RespondError(c, http.StatusBadRequest, "INVALID_REQUEST", "invalid request body")
		return
	}

	batch, err := h.batchService.Create(c.Request.Context(), input)
	if err != nil {
		HandleError(c, err)
		return
	}
	RespondCreated(c, batch)
}

// List handles GET /api/v1/batches
func (h *BatchHandler) List(c *gin.Context) {
	offset, limit := parsePagination(c)
	batches, total, err := h.batchService.List(c.Request.Context(), offset, limit)
	if err != nil {
		HandleError(c, err)
		return
	}
	RespondPaginated(c, batches, PagMeta{Total: total, Offset: offset, Limit: limit})
}

// GetByID handles GET /api/v1/batches/:id
func (h *BatchHandler) GetByID(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	batch, err := h.batchService.Get(c.Request.Context(), id)
	if err != nil {
		HandleError(c, err)
		return
	}
	RespondOK(c, batch)
}

// Close handles POST /api/v1/batches/:id/close
func (h *BatchHandler) Close(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	if err := h.batchService.Close(c.Request.Context(), id); err != nil {
		HandleError(c, err)
		return
	}
	RespondOK(c, gin.H{"message": "batch closed"})
}

// Upload handles POST /api/v1/batches/:id/files
func (h *BatchHandler) Upload(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	file, header, err := c.Request.FormFile("file")
	if err != nil {
		RespondError(c, http.StatusBadRequest, "MISSING_FILE", "file field is required")
		return
	}
	defer func() { _ = file.Close() }()

	f, err := h.processingService.Upload(c.Request.Context(), service.UploadInput{
		BatchID:  id,
		FileName: header.Filename,
		Size:     header.Size,
		Body:     file,
	})
	if err != nil {
		HandleError(c, err)
		return
	}
	RespondAccepted(c, f)
}

// Export returns a handler for GET /api/v1/batches/:id/export.{format}
func (h *BatchHandler) Export(format string) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := parseID(c, "id")
		if !ok {
			return
		}
		out, err := h.processingService.ExportBatch(c.Request.Context(), id, format)
		if err != nil {
			HandleError(c, err)
			return
		}
		sendExport(c, out)
	}
}

func sendExport(c *gin.Context, out *service.ExportOutput) {
	c.Header("Content-Disposition", `attachment; filename="`+out.FileName+`"`)
	c.Data(http.StatusOK, out.ContentType, out.Data)
}
