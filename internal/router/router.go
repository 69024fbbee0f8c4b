package router

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"actflow/internal/handler"
	"actflow/internal/middleware"
	"actflow/internal/service"
)

// Handlers groups the HTTP handlers mounted by Setup.
type Handlers struct {
	Health   *handler.HealthHandler
	FileType *handler.FileTypeHandler
	Batch    *handler.BatchHandler
	File     *handler.FileHandler
	Metrics  http.Handler
}

// Setup configures the Gin engine with all routes and middleware.
func Setup(h Handlers, logger *slog.Logger) *gin.Engine {
	r := gin.New()

	// Global middleware
	r.Use(middleware.Recovery(logger))
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger(logger))

	// Health checks
	r.GET("/healthz", h.Health.Liveness)
	r.GET("/readyz", h.Health.Readiness)
	if h.Metrics != nil {
		r.GET("/metrics", gin.WrapH(h.Metrics))
	}

	v1 := r.Group("/api/v1")

	fileTypes := v1.Group("/file-types")
	fileTypes.POST("", h.FileType.Create)
	fileTypes.GET("", h.FileType.List)
	fileTypes.GET("/:id", h.FileType.GetByID)
	fileTypes.PUT("/:id", h.FileType.Update)
	fileTypes.DELETE("/:id", h.FileType.Delete)

	batches := v1.Group("/batches")
	batches.POST("", h.Batch.Create)
	batches.GET("", h.Batch.List)
	batches.GET("/:id", h.Batch.GetByID)
	batches.POST("/:id/close", h.Batch.Close)
	batches.POST("/:id/files", h.Batch.Upload)
	batches.GET("/:id/export.xlsx", h.Batch.Export(service.FormatXLSX))
	batches.GET("/:id/export.csv", h.Batch.Export(service.FormatCSV))

	files := v1.Group("/files")
	files.GET("/:id", h.File.GetByID)
	files.GET("/:id/result", h.File.GetResult)
	files.POST("/:id/reprocess", h.File.Reprocess)
	files.GET("/:id/download", h.File.Download)
	files.GET("/:id/export.xlsx", h.File.Export(service.FormatXLSX))
	files.GET("/:id/export.csv", h.File.Export(service.FormatCSV))

	v1.POST("/process", h.File.Process)

	return r
}
