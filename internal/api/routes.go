// routes.go - API route registration
package api

import (
	"github.com/labstack/echo/v4"
)

// RegisterRoutes wires all API endpoints to the handler.
func RegisterRoutes(e *echo.Echo, h *Handler) {
	api := e.Group("/api")

	api.GET("/health", h.HandleHealth)

	api.POST("/files/upload", h.HandleUploadFiles)

	api.POST("/analyze", h.HandleAnalyze)
	api.GET("/analysis/:sessionId", h.HandleGetAnalysis)

	api.DELETE("/cache", h.HandleClearCache)
}
