// handlers.go - HTTP handlers for the upload-and-analyze flow
package api

import (
	"context"
	"io"
	"mime/multipart"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/pwin-ai/pdf-analyzer/internal/cache"
	"github.com/pwin-ai/pdf-analyzer/internal/models"
	"github.com/pwin-ai/pdf-analyzer/internal/render"
	"github.com/pwin-ai/pdf-analyzer/internal/session"
	"github.com/pwin-ai/pdf-analyzer/internal/storage"
	"github.com/pwin-ai/pdf-analyzer/internal/upload"
	"go.uber.org/zap"
)

// AnalysisRunner is the pipeline interface, mockable in tests.
type AnalysisRunner interface {
	Run(ctx context.Context, docs []*models.UploadedDocument, ops []models.Operation) (*models.AnalysisResult, error)
}

// Handler handles API requests.
type Handler struct {
	store     storage.Store
	sessions  *session.Manager
	validator *upload.Validator
	pipeline  AnalysisRunner
	cache     *cache.ResultCache
	logger    *zap.Logger
	maxFiles  int
	version   string
}

// HandlerConfig carries the handler dependencies.
type HandlerConfig struct {
	Store     storage.Store
	Sessions  *session.Manager
	Validator *upload.Validator
	Pipeline  AnalysisRunner
	Cache     *cache.ResultCache
	Logger    *zap.Logger
	MaxFiles  int
	Version   string
}

// NewHandler creates an API handler.
func NewHandler(cfg HandlerConfig) *Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	maxFiles := cfg.MaxFiles
	if maxFiles <= 0 {
		maxFiles = 20
	}
	return &Handler{
		store:     cfg.Store,
		sessions:  cfg.Sessions,
		validator: cfg.Validator,
		pipeline:  cfg.Pipeline,
		cache:     cfg.Cache,
		logger:    logger,
		maxFiles:  maxFiles,
		version:   cfg.Version,
	}
}

// HandleHealth returns server health status.
func (h *Handler) HandleHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]interface{}{
		"status":  "ok",
		"version": h.version,
	})
}

// uploadResponse is returned by HandleUploadFiles.
type uploadResponse struct {
	SessionID string                     `json:"sessionId"`
	Documents []*models.UploadedDocument `json:"documents"`
}

// HandleUploadFiles accepts a multipart upload of one or more PDFs and
// opens a session for them. An optional sessionId form value names the
// previous session, which is replaced entirely: no residual documents or
// result survive a re-upload.
func (h *Handler) HandleUploadFiles(c echo.Context) error {
	form, err := c.MultipartForm()
	if err != nil {
		return NewBadRequestError("invalid multipart form", err)
	}

	files := form.File["files"]
	if len(files) == 0 {
		return NewValidationError("files")
	}
	if len(files) > h.maxFiles {
		return NewBadRequestError("too many files in one upload", nil)
	}

	replacesID := c.FormValue("sessionId")
	sessionID := uuid.New().String()

	docs := make([]*models.UploadedDocument, 0, len(files))
	for _, fh := range files {
		data, err := readMultipartFile(fh)
		if err != nil {
			h.store.RemoveSession(sessionID)
			return NewInternalError("failed to read uploaded file", err)
		}

		// Reject bad files before anything touches the network.
		if err := h.validator.Validate(fh.Filename, data); err != nil {
			h.store.RemoveSession(sessionID)
			return NewUploadRejectedError(err)
		}

		doc, err := h.store.SaveDocument(sessionID, fh.Filename, data)
		if err != nil {
			h.store.RemoveSession(sessionID)
			return NewInternalError("failed to save uploaded file", err)
		}
		doc.PageCount = upload.PageCount(data)
		docs = append(docs, doc)
	}

	sess := h.sessions.Create(sessionID, docs, replacesID)
	h.logger.Info("upload accepted",
		zap.String("session", sess.ID),
		zap.Int("files", len(docs)))

	return c.JSON(http.StatusCreated, uploadResponse{
		SessionID: sess.ID,
		Documents: sess.Documents,
	})
}

type analyzeRequest struct {
	SessionID  string   `json:"sessionId"`
	Operations []string `json:"operations"`
}

// analysisResponse is returned by HandleAnalyze and HandleGetAnalysis.
type analysisResponse struct {
	SessionID string               `json:"sessionId"`
	Status    models.SessionStatus `json:"status"`
	Error     string               `json:"error,omitempty"`
	View      *render.ViewModel    `json:"view,omitempty"`
}

// HandleAnalyze runs the selected operations for a session's documents.
// The call blocks until the backend answers; there is no retry and no
// background job to poll.
func (h *Handler) HandleAnalyze(c echo.Context) error {
	var req analyzeRequest
	if err := c.Bind(&req); err != nil {
		return NewBadRequestError("invalid request body", err)
	}
	if req.SessionID == "" {
		return NewValidationError("sessionId")
	}

	ops, err := parseOperations(req.Operations)
	if err != nil {
		return NewBadRequestError(err.Error(), nil)
	}

	sess, ok := h.sessions.Get(req.SessionID)
	if !ok {
		return NewNotFoundError("session", req.SessionID)
	}
	if !h.sessions.SetAnalyzing(req.SessionID) {
		return NewConflictError("an analysis is already running for this session")
	}

	result, err := h.pipeline.Run(c.Request().Context(), sess.Documents, ops)
	if err != nil {
		apiErr := NewBackendError(err)
		h.sessions.SetError(req.SessionID, apiErr.Message)
		h.logger.Warn("analysis failed",
			zap.String("session", req.SessionID),
			zap.String("code", apiErr.Code),
			zap.Error(err))
		return apiErr
	}

	h.sessions.SetResult(req.SessionID, result)
	h.logger.Info("analysis complete",
		zap.String("session", req.SessionID),
		zap.Int("operations", len(ops)),
		zap.Bool("halted", result.Halt != nil))

	return c.JSON(http.StatusOK, analysisResponse{
		SessionID: req.SessionID,
		Status:    models.SessionStatusComplete,
		View:      render.Build(result),
	})
}

// HandleGetAnalysis returns the current state of a session, re-rendering
// the stored result if there is one.
func (h *Handler) HandleGetAnalysis(c echo.Context) error {
	id := c.Param("sessionId")
	if id == "" {
		return NewValidationError("sessionId")
	}

	sess, ok := h.sessions.Get(id)
	if !ok {
		return NewNotFoundError("session", id)
	}

	resp := analysisResponse{
		SessionID: sess.ID,
		Status:    sess.Status,
		Error:     sess.Error,
	}
	if sess.Result != nil {
		resp.View = render.Build(sess.Result)
	}
	return c.JSON(http.StatusOK, resp)
}

// HandleClearCache empties the analysis result cache.
func (h *Handler) HandleClearCache(c echo.Context) error {
	if h.cache != nil {
		h.cache.Clear()
	}
	return c.JSON(http.StatusOK, map[string]string{"status": "cache cleared"})
}

// parseOperations validates the requested operation names. An empty
// selection means all operations, matching the UI default.
func parseOperations(names []string) ([]models.Operation, error) {
	if len(names) == 0 {
		return models.AllOperations, nil
	}
	ops := make([]models.Operation, 0, len(names))
	for _, name := range names {
		op, err := models.ParseOperation(name)
		if err != nil {
			return nil, err
		}
		ops = append(ops, op)
	}
	return ops, nil
}

func readMultipartFile(fh *multipart.FileHeader) ([]byte, error) {
	src, err := fh.Open()
	if err != nil {
		return nil, err
	}
	defer src.Close()
	return io.ReadAll(src)
}
