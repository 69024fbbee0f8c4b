package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"actflow/internal/service"
)

// FileTypeHandler handles file type management endpoints.
type FileTypeHandler struct {
	fileTypeService service.FileTypeService
}

// NewFileTypeHandler creates a new FileTypeHandler.
func NewFileTypeHandler(fileTypeService service.FileTypeService) *FileTypeHandler {
	return &FileTypeHandler{fileTypeService: fileTypeService}
}

// Create handles POST /api/v1/file-types
func (h *FileTypeHandler) Create(c *gin.Context) {
	var input service.FileTypeInput
	if err := c.ShouldBindJSON(&input); err != nil {
		RespondError(c, http.StatusBadRequest, "INVALID_REQUEST", "invalid request body")
		return
	}

	ft, err := h.fileTypeService.Create(c.Request.Context(), input)
	if err != nil {
		HandleError(c, err)
		return
	}
	RespondCreated(c, ft)
}

// List handles GET /api/v1/file-types
func (h *FileTypeHandler) List(c *gin.Context) {
	types, err := h.fileTypeService.List(c.Request.Context())
	if err != nil {
		HandleError(c, err)
		return
	}
	RespondOK(c, types)
}

// GetByID handles GET /api/v1/file-types/:id
func (h *FileTypeHandler) GetByID(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	ft, err := h.fileTypeService.GetByID(c.Request.Context(), id)
	if err != nil {
		HandleError(c, err)
		return
	}
	RespondOK(c, ft)
}

// Update handles PUT /api/v1/file-types/:id
func (h *FileTypeHandler) Update(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	var input service.FileTypeInput
	if err := c.ShouldBindJSON(&input); err != nil {
		RespondError(c, http.StatusBadRequest, "INVALID_REQUEST", "invalid request body")
		return
	}

	ft, err := h.fileTypeService.Update(c.Request.Context(), id, input)
	if err != nil {
		HandleError(c, err)
		return
	}
	RespondOK(c, ft)
}

// Delete handles DELETE /api/v1/file-types/:id
func (h *FileTypeHandler) Delete(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	if err := h.fileTypeService.Delete(c.Request.Context(), id); err != nil {
		HandleError(c, err)
		return
	}
	RespondOK(c, gin.H{"message": "file type deleted"})
}
