package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/pwin-ai/pdf-analyzer/internal/backend"
	"github.com/pwin-ai/pdf-analyzer/internal/cache"
	"github.com/pwin-ai/pdf-analyzer/internal/models"
	"github.com/pwin-ai/pdf-analyzer/internal/session"
	"github.com/pwin-ai/pdf-analyzer/internal/testutil"
	"github.com/pwin-ai/pdf-analyzer/internal/upload"
)

var pdfBody = []byte("%PDF-1.4\n1 0 obj\n<< /Type /Catalog >>\nendobj\n%%EOF")

// fakePipeline records what it was asked to run and returns a canned answer.
type fakePipeline struct {
	result  *models.AnalysisResult
	err     error
	gotOps  []models.Operation
	gotDocs int
	calls   int
}

func (f *fakePipeline) Run(_ context.Context, docs []*models.UploadedDocument, ops []models.Operation) (*models.AnalysisResult, error) {
	f.calls++
	f.gotOps = ops
	f.gotDocs = len(docs)
	if f.err != nil {
		return nil, f.err
	}
	return f.result, nil
}

type fixture struct {
	handler  *Handler
	store    *testutil.MockStorage
	sessions *session.Manager
	pipeline *fakePipeline
	cache    *cache.ResultCache
}

func newFixture() *fixture {
	store := testutil.NewMockStorage()
	sessions := session.NewManager(store)
	pipeline := &fakePipeline{
		result: &models.AnalysisResult{
			Operations: models.AllOperations,
			Classifications: []models.Classification{
				{FileName: "rfp.pdf", DocType: models.DocTypeRFP},
			},
		},
	}
	resultCache := cache.New(8)
	handler := NewHandler(HandlerConfig{
		Store:     store,
		Sessions:  sessions,
		Validator: upload.NewValidator(0),
		Pipeline:  pipeline,
		Cache:     resultCache,
		MaxFiles:  5,
	})
	return &fixture{
		handler:  handler,
		store:    store,
		sessions: sessions,
		pipeline: pipeline,
		cache:    resultCache,
	}
}

type uploadFile struct {
	name string
	data []byte
}

func multipartBody(t *testing.T, sessionID string, files ...uploadFile) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	if sessionID != "" {
		if err := w.WriteField("sessionId", sessionID); err != nil {
			t.Fatalf("write field: %v", err)
		}
	}
	for _, f := range files {
		part, err := w.CreateFormFile("files", f.name)
		if err != nil {
			t.Fatalf("create form file: %v", err)
		}
		if _, err := part.Write(f.data); err != nil {
			t.Fatalf("write part: %v", err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatalf("close writer: %v", err)
	}
	return &buf, w.FormDataContentType()
}

func doUpload(t *testing.T, f *fixture, sessionID string, files ...uploadFile) (*httptest.ResponseRecorder, error) {
	t.Helper()
	body, contentType := multipartBody(t, sessionID, files...)
	req := httptest.NewRequest(http.MethodPost, "/api/files/upload", body)
	req.Header.Set(echo.HeaderContentType, contentType)
	rec := httptest.NewRecorder()
	c := echo.New().NewContext(req, rec)
	return rec, f.handler.HandleUploadFiles(c)
}

func doAnalyze(t *testing.T, f *fixture, sessionID string, ops []string) (*httptest.ResponseRecorder, error) {
	t.Helper()
	payload, _ := json.Marshal(analyzeRequest{SessionID: sessionID, Operations: ops})
	req := httptest.NewRequest(http.MethodPost, "/api/analyze", bytes.NewReader(payload))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := echo.New().NewContext(req, rec)
	return rec, f.handler.HandleAnalyze(c)
}

func apiError(t *testing.T, err error) *APIError {
	t.Helper()
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected *APIError, got %T: %v", err, err)
	}
	return apiErr
}

func TestHandleHealth(t *testing.T) {
	f := newFixture()
	req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
	rec := httptest.NewRecorder()
	c := echo.New().NewContext(req, rec)

	if err := f.handler.HandleHealth(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"status":"ok"`) {
		t.Errorf("unexpected body: %s", rec.Body.String())
	}
}

func TestHandleUploadFiles(t *testing.T) {
	f := newFixture()

	rec, err := doUpload(t, f, "",
		uploadFile{name: "rfp.pdf", data: pdfBody},
		uploadFile{name: "sow.pdf", data: pdfBody},
	)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusCreated {
		t.Errorf("expected 201, got %d", rec.Code)
	}

	var resp uploadResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.SessionID == "" {
		t.Error("expected a session ID")
	}
	if len(resp.Documents) != 2 {
		t.Fatalf("expected 2 documents, got %d", len(resp.Documents))
	}
	if resp.Documents[0].Name != "rfp.pdf" {
		t.Errorf("unexpected document name %q", resp.Documents[0].Name)
	}
	if f.store.DocumentCount(resp.SessionID) != 2 {
		t.Error("expected documents persisted in the store")
	}
}

func TestHandleUploadFiles_RejectsNonPDF(t *testing.T) {
	tests := []struct {
		name   string
		file   uploadFile
		reason string
	}{
		{
			name:   "wrong extension",
			file:   uploadFile{name: "notes.txt", data: []byte("plain text")},
			reason: "only PDF files are accepted",
		},
		{
			name:   "pdf extension but wrong signature",
			file:   uploadFile{name: "fake.pdf", data: []byte("MZ\x90\x00 not a pdf")},
			reason: "not a valid PDF file",
		},
		{
			name:   "empty file",
			file:   uploadFile{name: "empty.pdf", data: nil},
			reason: "file is empty",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture()
			_, err := doUpload(t, f, "", tt.file)

			apiErr := apiError(t, err)
			if apiErr.Code != "UPLOAD_REJECTED" {
				t.Errorf("expected UPLOAD_REJECTED, got %s", apiErr.Code)
			}
			if !strings.Contains(apiErr.Message, tt.reason) {
				t.Errorf("expected reason %q in %q", tt.reason, apiErr.Message)
			}
			// Rejection happens before any session exists or the backend is called.
			if f.sessions.Len() != 0 {
				t.Error("no session should be created for a rejected upload")
			}
			if f.pipeline.calls != 0 {
				t.Error("backend must not be contacted for a rejected upload")
			}
		})
	}
}

func TestHandleUploadFiles_NoFiles(t *testing.T) {
	f := newFixture()
	_, err := doUpload(t, f, "")
	apiErr := apiError(t, err)
	if apiErr.Status != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", apiErr.Status)
	}
}

func TestHandleUploadFiles_ReplacesPreviousSession(t *testing.T) {
	f := newFixture()

	rec, err := doUpload(t, f, "", uploadFile{name: "first.pdf", data: pdfBody})
	if err != nil {
		t.Fatalf("first upload: %v", err)
	}
	var first uploadResponse
	json.Unmarshal(rec.Body.Bytes(), &first)

	// Complete an analysis so the first session carries a result.
	if _, err := doAnalyze(t, f, first.SessionID, nil); err != nil {
		t.Fatalf("analyze: %v", err)
	}

	rec, err = doUpload(t, f, first.SessionID, uploadFile{name: "second.pdf", data: pdfBody})
	if err != nil {
		t.Fatalf("second upload: %v", err)
	}
	var second uploadResponse
	json.Unmarshal(rec.Body.Bytes(), &second)

	if _, ok := f.sessions.Get(first.SessionID); ok {
		t.Error("first session must be gone after re-upload")
	}
	sess, ok := f.sessions.Get(second.SessionID)
	if !ok {
		t.Fatal("replacement session missing")
	}
	if sess.Result != nil {
		t.Error("replacement session must not inherit the previous result")
	}
	if len(sess.Documents) != 1 || sess.Documents[0].Name != "second.pdf" {
		t.Error("replacement session holds the wrong documents")
	}
}

func TestHandleAnalyze(t *testing.T) {
	f := newFixture()
	rec, _ := doUpload(t, f, "", uploadFile{name: "rfp.pdf", data: pdfBody})
	var up uploadResponse
	json.Unmarshal(rec.Body.Bytes(), &up)

	rec, err := doAnalyze(t, f, up.SessionID, []string{"classify"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
	if f.pipeline.gotDocs != 1 {
		t.Errorf("expected pipeline to see 1 document, got %d", f.pipeline.gotDocs)
	}
	if len(f.pipeline.gotOps) != 1 || f.pipeline.gotOps[0] != models.OpClassify {
		t.Errorf("unexpected operations: %v", f.pipeline.gotOps)
	}

	var resp analysisResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Status != models.SessionStatusComplete {
		t.Errorf("expected complete, got %s", resp.Status)
	}
	if resp.View == nil || resp.View.Classification == nil {
		t.Error("expected rendered classification view")
	}

	sess, _ := f.sessions.Get(up.SessionID)
	if sess.Result == nil {
		t.Error("expected result stored on the session")
	}
}

func TestHandleAnalyze_EmptyOperationsMeansAll(t *testing.T) {
	f := newFixture()
	rec, _ := doUpload(t, f, "", uploadFile{name: "rfp.pdf", data: pdfBody})
	var up uploadResponse
	json.Unmarshal(rec.Body.Bytes(), &up)

	if _, err := doAnalyze(t, f, up.SessionID, nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(f.pipeline.gotOps) != len(models.AllOperations) {
		t.Errorf("expected all operations, got %v", f.pipeline.gotOps)
	}
}

func TestHandleAnalyze_UnknownOperation(t *testing.T) {
	f := newFixture()
	rec, _ := doUpload(t, f, "", uploadFile{name: "rfp.pdf", data: pdfBody})
	var up uploadResponse
	json.Unmarshal(rec.Body.Bytes(), &up)

	_, err := doAnalyze(t, f, up.SessionID, []string{"summarize"})
	apiErr := apiError(t, err)
	if apiErr.Status != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", apiErr.Status)
	}
	if f.pipeline.calls != 0 {
		t.Error("pipeline must not run for an unknown operation")
	}
}

func TestHandleAnalyze_UnknownSession(t *testing.T) {
	f := newFixture()
	_, err := doAnalyze(t, f, "nope", nil)
	apiErr := apiError(t, err)
	if apiErr.Status != http.StatusNotFound {
		t.Errorf("expected 404, got %d", apiErr.Status)
	}
}

func TestHandleAnalyze_BackendFailureLeavesNoStaleResult(t *testing.T) {
	f := newFixture()
	rec, _ := doUpload(t, f, "", uploadFile{name: "rfp.pdf", data: pdfBody})
	var up uploadResponse
	json.Unmarshal(rec.Body.Bytes(), &up)

	// First run succeeds and stores a result.
	if _, err := doAnalyze(t, f, up.SessionID, nil); err != nil {
		t.Fatalf("first analyze: %v", err)
	}

	// Second run hits a backend 500.
	f.pipeline.err = &backend.StatusError{Status: http.StatusInternalServerError, Body: "model overloaded"}
	_, err := doAnalyze(t, f, up.SessionID, nil)

	apiErr := apiError(t, err)
	if apiErr.Status != http.StatusBadGateway {
		t.Errorf("expected 502, got %d", apiErr.Status)
	}
	if apiErr.Code != "BACKEND_ERROR" {
		t.Errorf("expected BACKEND_ERROR, got %s", apiErr.Code)
	}

	sess, _ := f.sessions.Get(up.SessionID)
	if sess.Status != models.SessionStatusError {
		t.Errorf("expected error status, got %s", sess.Status)
	}
	if sess.Result != nil {
		t.Error("previous result must not survive a failed analysis")
	}
}

func TestHandleAnalyze_BackendErrorCodes(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantCode string
		wantMsg  string
	}{
		{
			name:     "unreachable backend",
			err:      &backend.TransportError{Err: errors.New("connection refused")},
			wantCode: "BACKEND_UNREACHABLE",
			wantMsg:  "could not reach the analysis service",
		},
		{
			name:     "malformed backend response",
			err:      &backend.DecodeError{Err: errors.New("invalid character '<'")},
			wantCode: "BACKEND_BAD_RESPONSE",
			wantMsg:  "unexpected response from server",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture()
			rec, _ := doUpload(t, f, "", uploadFile{name: "rfp.pdf", data: pdfBody})
			var up uploadResponse
			json.Unmarshal(rec.Body.Bytes(), &up)

			f.pipeline.err = tt.err
			_, err := doAnalyze(t, f, up.SessionID, nil)

			apiErr := apiError(t, err)
			if apiErr.Code != tt.wantCode {
				t.Errorf("expected %s, got %s", tt.wantCode, apiErr.Code)
			}
			if apiErr.Message != tt.wantMsg {
				t.Errorf("expected message %q, got %q", tt.wantMsg, apiErr.Message)
			}
		})
	}
}

func TestHandleGetAnalysis(t *testing.T) {
	f := newFixture()
	rec, _ := doUpload(t, f, "", uploadFile{name: "rfp.pdf", data: pdfBody})
	var up uploadResponse
	json.Unmarshal(rec.Body.Bytes(), &up)

	if _, err := doAnalyze(t, f, up.SessionID, nil); err != nil {
		t.Fatalf("analyze: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/analysis/"+up.SessionID, nil)
	rec = httptest.NewRecorder()
	c := echo.New().NewContext(req, rec)
	c.SetParamNames("sessionId")
	c.SetParamValues(up.SessionID)

	if err := f.handler.HandleGetAnalysis(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var resp analysisResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Status != models.SessionStatusComplete {
		t.Errorf("expected complete, got %s", resp.Status)
	}
	if resp.View == nil {
		t.Error("expected rendered view for completed session")
	}
}

func TestHandleGetAnalysis_NotFound(t *testing.T) {
	f := newFixture()
	req := httptest.NewRequest(http.MethodGet, "/api/analysis/missing", nil)
	rec := httptest.NewRecorder()
	c := echo.New().NewContext(req, rec)
	c.SetParamNames("sessionId")
	c.SetParamValues("missing")

	err := f.handler.HandleGetAnalysis(c)
	apiErr := apiError(t, err)
	if apiErr.Status != http.StatusNotFound {
		t.Errorf("expected 404, got %d", apiErr.Status)
	}
}

func TestHandleClearCache(t *testing.T) {
	f := newFixture()
	f.cache.Put("some-key", &models.AnalysisResult{})
	if f.cache.Len() != 1 {
		t.Fatal("expected one cached entry")
	}

	req := httptest.NewRequest(http.MethodDelete, "/api/cache", nil)
	rec := httptest.NewRecorder()
	c := echo.New().NewContext(req, rec)

	if err := f.handler.HandleClearCache(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
	if f.cache.Len() != 0 {
		t.Error("expected cache to be empty")
	}
}

func TestErrorHandler(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{
			name:       "api error passes through",
			err:        NewNotFoundError("session", "x"),
			wantStatus: http.StatusNotFound,
			wantCode:   "NOT_FOUND",
		},
		{
			name:       "echo http error is wrapped",
			err:        echo.NewHTTPError(http.StatusMethodNotAllowed, "nope"),
			wantStatus: http.StatusMethodNotAllowed,
			wantCode:   "HTTP_ERROR",
		},
		{
			name:       "unknown error hides detail",
			err:        errors.New("sensitive internals"),
			wantStatus: http.StatusInternalServerError,
			wantCode:   "UNKNOWN_ERROR",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			rec := httptest.NewRecorder()
			c := echo.New().NewContext(req, rec)

			ErrorHandler(tt.err, c)

			if rec.Code != tt.wantStatus {
				t.Errorf("expected %d, got %d", tt.wantStatus, rec.Code)
			}
			var body APIError
			if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
				t.Fatalf("decode body: %v", err)
			}
			if body.Code != tt.wantCode {
				t.Errorf("expected code %s, got %s", tt.wantCode, body.Code)
			}
			if tt.wantCode == "UNKNOWN_ERROR" && strings.Contains(rec.Body.String(), "sensitive") {
				t.Error("internal error detail must not reach the client")
			}
		})
	}
}
