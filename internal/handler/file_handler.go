package handler

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"actflow/internal/service"
)

// FileHandler handles processed file endpoints and synchronous processing.
type FileHandler struct {
	processingService service.ProcessingService
}

// NewFileHandler creates a new FileHandler.
func NewFileHandler(processingService service.ProcessingService) *FileHandler {
	return &FileHandler{processingService: processingService}
}

// GetByID handles GET /api/v1/files/:id
func (h *FileHandler) GetByID(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	file, err := h.processingService.GetFile(c.Request.Context(), id)
	if err != nil {
		HandleError(c, err)
		return
	}
	RespondOK(c, file)
}

// GetResult handles GET /api/v1/files/:id/result
func (h *FileHandler) GetResult(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	result, err := h.processingService.GetResult(c.Request.Context(), id)
	if err != nil {
		HandleError(c, err)
		return
	}
	RespondOK(c, result)
}

// Reprocess handles POST /api/v1/files/:id/reprocess
func (h *FileHandler) Reprocess(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	file, err := h.processingService.Reprocess(c.Request.Context(), id)
	if err != nil {
		HandleError(c, err)
		return
	}
	RespondAccepted(c, file)
}

// Download handles GET /api/v1/files/:id/download
func (h *FileHandler) Download(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	url, err := h.processingService.GetDownloadURL(c.Request.Context(), id)
	if err != nil {
		HandleError(c, err)
		return
	}
	RespondOK(c, gin.H{"download_url": url})
}

// Export returns a handler for GET /api/v1/files/:id/export.{format}
func (h *FileHandler) Export(format string) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := parseID(c, "id")
		if !ok {
			return
		}
		out, err := h.processingService.ExportFile(c.Request.Context(), id, format)
		if err != nil {
			HandleError(c, err)
			return
		}
		sendExport(c, out)
	}
}

// Process handles POST /api/v1/process: a multipart PDF processed
// synchronously with the file type named in the file_type form field.
func (h *FileHandler) Process(c *gin.Context) {
	fileType := c.PostForm("file_type")
	if fileType == "" {
		RespondError(c, http.StatusBadRequest, "MISSING_FILE_TYPE", "file_type field is required")
		return
	}
	file, header, err := c.Request.FormFile("file")
	if err != nil {
		RespondError(c, http.StatusBadRequest, "MISSING_FILE", "file field is required")
		return
	}
	defer func() { _ = file.Close() }()

	content, err := io.ReadAll(file)
	if err != nil {
		RespondError(c, http.StatusBadRequest, "INVALID_FILE", "file could not be read")
		return
	}

	result, err := h.processingService.ProcessSync(c.Request.Context(), service.ProcessSyncInput{
		FileType: fileType,
		Mode:     c.PostForm("processing_mode"),
		FileName: header.Filename,
		Content:  content,
	})
	if err != nil {
		HandleError(c, err)
		return
	}
	if msg, failed := result["error"]; failed {
		c.JSON(http.StatusUnprocessableEntity, APIResponse{
			Success: false,
			Data:    result,
			Error:   &APIError{Code: "PROCESSING_FAILED", Message: toString(msg)},
		})
		return
	}
	RespondOK(c, result)
}

func toString(v any) string {
	s, _ := v.(string)
	return s
}
